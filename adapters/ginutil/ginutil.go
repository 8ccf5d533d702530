// Package ginutil holds the response and rate-limit helpers shared by the
// gin handlers. Every error body has the shape {"success": false, "message": ...}.
package ginutil

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RateLimiter is satisfied by ratelimit/redis and ratelimit/memory.
type RateLimiter interface {
	AllowNamed(ctx context.Context, bucket, key string) (bool, error)
}

// Rate-limit buckets.
const (
	RLAuthSignup      = "auth_signup"
	RLAuthLogin       = "auth_login"
	RLPaymentsCreate  = "payments_create"
	RLPaymentsVerify  = "payments_verify"
	RLAdminRevokeVIPs = "admin_revoke_vips"
)

// AllowNamed checks bucket for the client IP. A nil limiter or a limiter
// error lets the request through.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	ok, err := rl.AllowNamed(c.Request.Context(), bucket, c.ClientIP())
	if err != nil {
		_ = c.Error(err)
		return true
	}
	return ok
}

func Fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": msg})
}

func BadRequest(c *gin.Context, msg string) { Fail(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string) { Fail(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string) { Fail(c, http.StatusConflict, msg) }
func ServerErr(c *gin.Context, msg string) { Fail(c, http.StatusInternalServerError, msg) }
func Unauthorized(c *gin.Context) { Fail(c, http.StatusUnauthorized, "Unauthorized") }
func TooMany(c *gin.Context) { Fail(c, http.StatusTooManyRequests, "Too many requests") }

// UserID returns the authenticated caller set by the auth middleware.
func UserID(c *gin.Context) string { return c.GetString("auth.user_id") }
