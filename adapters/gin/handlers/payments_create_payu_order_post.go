package handlers

import (
	"net/http"
	"time"

	"github.com/PaulFidika/vipkit/adapters/ginutil"
	"github.com/PaulFidika/vipkit/payments"
	"github.com/PaulFidika/vipkit/payments/payu"
	"github.com/gin-gonic/gin"
)

func HandleCreatePayUOrderPOST(gw *payu.Gateway, orders payments.OrderCache, rl ginutil.RateLimiter) gin.HandlerFunc {
	type createPayUOrderReq struct {
		Amount    *float64 `json:"amount"`
		FirstName string   `json:"firstname"`
		Email     string   `json:"email"`
		Phone     string   `json:"phone"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLPaymentsCreate) {
			ginutil.TooMany(c)
			return
		}
		var req createPayUOrderReq
		if err := c.ShouldBindJSON(&req); err != nil || req.Amount == nil {
			ginutil.BadRequest(c, msgAmountRequired)
			return
		}
		order, err := gw.CreateOrder(payu.OrderRequest{
			Amount:    *req.Amount,
			Currency:  payu.DefaultCurrency,
			FirstName: req.FirstName,
			Email:     req.Email,
			Phone:     req.Phone,
		})
		if err != nil {
			if payments.IsValidation(err) {
				ginutil.BadRequest(c, err.Error())
				return
			}
			_ = c.Error(err)
			ginutil.ServerErr(c, err.Error())
			return
		}
		rememberOrder(c, orders, payments.PendingOrder{
			Gateway:   payu.Name,
			OrderID:   order.TxnID,
			Amount:    payments.FormatAmount(order.Amount),
			Currency:  order.Currency,
			CreatedAt: time.Now().UTC(),
		})
		c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
	}
}
