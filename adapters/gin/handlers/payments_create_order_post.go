package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/PaulFidika/vipkit/adapters/ginutil"
	"github.com/PaulFidika/vipkit/payments"
	"github.com/PaulFidika/vipkit/payments/razorpay"
	"github.com/gin-gonic/gin"
)

const msgAmountRequired = "Amount is required and must be a number"

func HandleCreateOrderPOST(gw *razorpay.Gateway, orders payments.OrderCache, rl ginutil.RateLimiter) gin.HandlerFunc {
	type createOrderReq struct {
		Amount   *float64          `json:"amount"`
		Currency string            `json:"currency"`
		Notes    map[string]string `json:"notes"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLPaymentsCreate) {
			ginutil.TooMany(c)
			return
		}
		var req createOrderReq
		if err := c.ShouldBindJSON(&req); err != nil || req.Amount == nil {
			ginutil.BadRequest(c, msgAmountRequired)
			return
		}
		if err := payments.RazorpayAmounts.Validate(*req.Amount); err != nil {
			ginutil.BadRequest(c, err.Error())
			return
		}
		order, err := gw.CreateOrder(c.Request.Context(), razorpay.OrderRequest{
			Amount:   int64(*req.Amount),
			Currency: req.Currency,
			Notes:    req.Notes,
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
		key, err := gw.PublicKeyID()
		if err != nil {
			ginutil.ServerErr(c, err.Error())
			return
		}
		rememberOrder(c, orders, payments.PendingOrder{
			Gateway:   razorpay.Name,
			OrderID:   order.ID,
			Amount:    strconv.FormatInt(order.Amount, 10),
			Currency:  order.Currency,
			CreatedAt: time.Now().UTC(),
		})
		c.JSON(http.StatusOK, gin.H{"success": true, "order": order, "key": key})
	}
}

// rememberOrder is best-effort; a cache failure never fails the order.
func rememberOrder(c *gin.Context, orders payments.OrderCache, o payments.PendingOrder) {
	if orders == nil {
		return
	}
	if err := orders.Put(c.Request.Context(), o); err != nil {
		_ = c.Error(err)
	}
}
