package handlers

import (
	"errors"
	"net/http"

	"github.com/PaulFidika/vipkit/adapters/ginutil"
	core "github.com/PaulFidika/vipkit/core"
	"github.com/PaulFidika/vipkit/identity"
	pwhash "github.com/PaulFidika/vipkit/password"
	"github.com/gin-gonic/gin"
)

func HandleSignupPOST(svc *core.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	type signupReq struct {
		Email    string `json:"email"`
		FullName string `json:"fullName"`
		Password string `json:"password"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLAuthSignup) {
			ginutil.TooMany(c)
			return
		}
		var req signupReq
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "Invalid request body")
			return
		}
		s, err := svc.Signup(c.Request.Context(), req.Email, req.FullName, req.Password)
		switch {
		case errors.Is(err, identity.ErrEmailTaken):
			ginutil.Conflict(c, err.Error())
			return
		case errors.Is(err, core.ErrMissingFields), errors.Is(err, core.ErrInvalidEmail), errors.Is(err, pwhash.ErrTooShort):
			ginutil.BadRequest(c, err.Error())
			return
		case err != nil:
			_ = c.Error(err)
			ginutil.ServerErr(c, "Internal server error")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "User created successfully", "token": s.Token, "user": s.User})
	}
}
