package handlers

import (
	"fmt"
	"net/http"

	"github.com/PaulFidika/vipkit/adapters/ginutil"
	"github.com/PaulFidika/vipkit/core"
	"github.com/PaulFidika/vipkit/payments"
	"github.com/PaulFidika/vipkit/payments/payu"
	"github.com/gin-gonic/gin"
)

// HandlePaymentFailurePOST is PayU's furl. Nothing is granted here. The
// pending order is dropped only when PayU's reverse hash checks out, so an
// anonymous caller cannot discard someone else's quote.
func HandlePaymentFailurePOST(gw *payu.Gateway, orders payments.OrderCache, audit core.AuditLogger, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLPaymentsVerify) {
			ginutil.TooMany(c)
			return
		}
		var req payu.Response
		_ = c.ShouldBind(&req)
		status := req.Status
		if status == "" {
			status = "failure"
		}

		verified := false
		if gw != nil {
			ok, err := gw.Attest(req).Verify()
			if err != nil {
				_ = c.Error(err)
			}
			verified = ok
		}
		if audit != nil {
			detail := status
			if !verified {
				detail += " (unverified)"
			}
			audit.Record(c.Request.Context(), core.Event{Kind: "payment_failed", Gateway: payu.Name, TransactionID: req.TxnID, Detail: detail})
		}
		if verified && orders != nil {
			if err := orders.Del(c.Request.Context(), payu.Name, req.TxnID); err != nil {
				_ = c.Error(err)
			}
		}
		c.JSON(http.StatusOK, gin.H{"success": false, "message": fmt.Sprintf("Payment %s. Transaction ID: %s", status, req.TxnID)})
	}
}
