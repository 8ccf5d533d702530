package handlers

import (
	"github.com/PaulFidika/vipkit/adapters/ginutil"
	"github.com/PaulFidika/vipkit/payments"
	"github.com/PaulFidika/vipkit/payments/payu"
	"github.com/gin-gonic/gin"
)

// HandleVerifyPayUPOST accepts the PayU response fields as JSON or form data.
func HandleVerifyPayUPOST(svc *payments.Service, gw *payu.Gateway, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLPaymentsVerify) {
			ginutil.TooMany(c)
			return
		}
		var req payu.Response
		if err := c.ShouldBind(&req); err != nil {
			ginutil.BadRequest(c, msgMissingDetails)
			return
		}
		res, err := svc.VerifyAndGrant(c.Request.Context(), ginutil.UserID(c), gw.Attest(req))
		writeVerifyResult(c, res, err)
	}
}
