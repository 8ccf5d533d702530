package handlers

import (
	"errors"
	"net/http"

	"github.com/PaulFidika/vipkit/adapters/ginutil"
	core "github.com/PaulFidika/vipkit/core"
	"github.com/gin-gonic/gin"
)

func HandleLoginPOST(svc *core.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	type loginReq struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLAuthLogin) {
			ginutil.TooMany(c)
			return
		}
		var req loginReq
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "Invalid request body")
			return
		}
		s, err := svc.Login(c.Request.Context(), req.Email, req.Password)
		if errors.Is(err, core.ErrInvalidCredentials) {
			ginutil.Fail(c, http.StatusUnauthorized, err.Error())
			return
		}
		if err != nil {
			_ = c.Error(err)
			ginutil.ServerErr(c, "Internal server error")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Login successful", "token": s.Token, "user": s.User})
	}
}
