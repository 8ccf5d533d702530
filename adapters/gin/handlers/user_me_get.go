package handlers

import (
	"net/http"

	"github.com/PaulFidika/vipkit/adapters/ginutil"
	"github.com/PaulFidika/vipkit/entitlements"
	"github.com/gin-gonic/gin"
)

// HandleUserMeGET returns the caller's profile after the lazy expiry check,
// so a stale VIP flag is never served.
func HandleUserMeGET(vip *entitlements.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ginutil.UserID(c)
		if id == "" {
			ginutil.Unauthorized(c)
			return
		}
		u, err := vip.CheckAndRevoke(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(err)
			ginutil.ServerErr(c, "Internal server error")
			return
		}
		if u == nil {
			ginutil.NotFound(c, "User not found")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
	}
}
