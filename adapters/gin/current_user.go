package vipgin

import (
	"context"

	jwtkit "github.com/PaulFidika/vipkit/jwt"
	"github.com/gin-gonic/gin"
)

type claimsKey struct{}

// Claims is the verified token identity attached to a request.
type Claims struct {
	UserID string
	Email  string
}

// SetClaims stores claims on ctx.
func SetClaims(ctx context.Context, cl Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, cl)
}

// ClaimsFromContext reads claims stored by AuthRequired.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	cl, ok := ctx.Value(claimsKey{}).(Claims)
	return cl, ok && cl.UserID != ""
}

// ClaimsFromGin prefers the request context and falls back to gin keys.
func ClaimsFromGin(c *gin.Context) (Claims, bool) {
	if cl, ok := ClaimsFromContext(c.Request.Context()); ok {
		return cl, true
	}
	if id := c.GetString("auth.user_id"); id != "" {
		return Claims{UserID: id, Email: c.GetString("auth.email")}, true
	}
	return Claims{}, false
}

func attach(c *gin.Context, claims *jwtkit.Claims) {
	c.Set("auth.user_id", claims.UserID)
	c.Set("auth.email", claims.Email)
	c.Request = c.Request.WithContext(SetClaims(c.Request.Context(), Claims{UserID: claims.UserID, Email: claims.Email}))
}
