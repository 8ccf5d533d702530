// Package vipgin mounts the VIP API on a gin engine.
package vipgin

import (
	"net/http"

	"github.com/PaulFidika/vipkit/adapters/gin/handlers"
	"github.com/PaulFidika/vipkit/adapters/ginutil"
	"github.com/PaulFidika/vipkit/core"
	"github.com/PaulFidika/vipkit/entitlements"
	"github.com/PaulFidika/vipkit/logging"
	"github.com/PaulFidika/vipkit/payments"
	"github.com/PaulFidika/vipkit/payments/payu"
	"github.com/PaulFidika/vipkit/payments/razorpay"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// API is everything the routes depend on. Orders, Limiter and Audit are
// optional.
type API struct {
	Auth       *core.Service
	VIP        *entitlements.Service
	Payments   *payments.Service
	Razorpay   *razorpay.Gateway
	PayU       *payu.Gateway
	Orders     payments.OrderCache
	Limiter    ginutil.RateLimiter
	Audit      core.AuditLogger
	AdminToken string
	Log        logrus.FieldLogger
}

// Register mounts the API under /api on r.
func (a *API) Register(r gin.IRouter) {
	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", handlers.HandleSignupPOST(a.Auth, a.Limiter))
	auth.POST("/login", handlers.HandleLoginPOST(a.Auth, a.Limiter))

	authed := AuthRequired(a.Auth.Signer())
	api.GET("/user/me", authed, handlers.HandleUserMeGET(a.VIP))

	// Orders can be created anonymously; only applying a payment needs a user.
	pay := api.Group("/payments")
	pay.POST("/create-order", handlers.HandleCreateOrderPOST(a.Razorpay, a.Orders, a.Limiter))
	pay.POST("/verify", authed, handlers.HandleVerifyPOST(a.Payments, a.Razorpay, a.Limiter))
	pay.POST("/create-payu-order", handlers.HandleCreatePayUOrderPOST(a.PayU, a.Orders, a.Limiter))
	pay.POST("/verify-payu", authed, handlers.HandleVerifyPayUPOST(a.Payments, a.PayU, a.Limiter))
	pay.POST("/failure", handlers.HandlePaymentFailurePOST(a.PayU, a.Orders, a.Audit, a.Limiter))

	admin := api.Group("/admin", AdminToken(a.AdminToken))
	admin.POST("/revoke-expired-vips", handlers.HandleRevokeExpiredVIPsPOST(a.VIP, a.Limiter))
	admin.GET("/revoke-expired-vips", handlers.HandleRevokeExpiredVIPsGET(a.VIP, a.Limiter))
}

// NewEngine returns a gin engine with recovery, request logging, a health
// check and the API routes.
func NewEngine(a *API) *gin.Engine {
	log := a.Log
	if log == nil {
		log = logging.Discard()
	}
	e := gin.New()
	e.Use(gin.Recovery(), RequestLogger(log))
	e.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	a.Register(e)
	e.NoRoute(func(c *gin.Context) {
		ginutil.NotFound(c, "Route not found")
	})
	return e
}
