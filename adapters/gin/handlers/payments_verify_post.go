package handlers

import (
	"github.com/PaulFidika/vipkit/adapters/ginutil"
	"github.com/PaulFidika/vipkit/payments"
	"github.com/PaulFidika/vipkit/payments/razorpay"
	"github.com/gin-gonic/gin"
)

func HandleVerifyPOST(svc *payments.Service, gw *razorpay.Gateway, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLPaymentsVerify) {
			ginutil.TooMany(c)
			return
		}
		var req razorpay.VerifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, msgMissingDetails)
			return
		}
		res, err := svc.VerifyAndGrant(c.Request.Context(), ginutil.UserID(c), gw.Attest(req))
		writeVerifyResult(c, res, err)
	}
}
