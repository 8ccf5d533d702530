package vipgin

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/PaulFidika/vipkit/adapters/ginutil"
	jwtkit "github.com/PaulFidika/vipkit/jwt"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthRequired verifies "Authorization: Bearer <jwt>" and aborts with 401
// otherwise.
func AuthRequired(signer *jwtkit.HMACSigner) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		tok, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(tok) == "" {
			ginutil.Unauthorized(c)
			return
		}
		claims, err := signer.Parse(strings.TrimSpace(tok))
		if err != nil {
			ginutil.Unauthorized(c)
			return
		}
		attach(c, claims)
		c.Next()
	}
}

// AdminToken guards operator routes with X-Admin-Token. An empty token
// leaves the routes open, for deployments that protect them at the edge.
func AdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := c.GetHeader("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			ginutil.Unauthorized(c)
			return
		}
		c.Next()
	}
}

// RequestLogger writes one structured line per request.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		f := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"ip":       c.ClientIP(),
		}
		if cl, ok := ClaimsFromGin(c); ok {
			f["user_id"] = cl.UserID
		}
		entry := log.WithFields(f)
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}
		switch s := c.Writer.Status(); {
		case s >= 500:
			entry.Error("request failed")
		case s >= 400:
			entry.Info("request rejected")
		default:
			entry.Debug("request served")
		}
	}
}
