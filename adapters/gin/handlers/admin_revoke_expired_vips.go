package handlers

import (
	"fmt"
	"net/http"

	"github.com/PaulFidika/vipkit/adapters/ginutil"
	"github.com/PaulFidika/vipkit/entitlements"
	"github.com/gin-gonic/gin"
)

// HandleRevokeExpiredVIPsPOST runs the sweep on demand.
func HandleRevokeExpiredVIPsPOST(vip *entitlements.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLAdminRevokeVIPs) {
			ginutil.TooMany(c)
			return
		}
		n, err := vip.RevokeExpired(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			ginutil.ServerErr(c, "Failed to revoke expired VIPs")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"message":      fmt.Sprintf("Revoked VIP status for %d expired subscription(s)", n),
			"revokedCount": n,
		})
	}
}

// HandleRevokeExpiredVIPsGET counts what the sweep would revoke.
func HandleRevokeExpiredVIPsGET(vip *entitlements.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLAdminRevokeVIPs) {
			ginutil.TooMany(c)
			return
		}
		n, err := vip.CountExpired(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			ginutil.ServerErr(c, "Failed to check expired VIPs")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"message":      fmt.Sprintf("Found %d expired VIP subscription(s)", n),
			"expiredCount": n,
		})
	}
}
