package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/PaulFidika/vipkit/adapters/ginutil"
	"github.com/PaulFidika/vipkit/payments"
	"github.com/gin-gonic/gin"
)

const msgMissingDetails = "Missing payment details"

// writeVerifyResult maps a verification outcome to HTTP. Signature failures
// are the client's fault (400), replays on another account conflict (409),
// everything else is a server-side problem (500).
func writeVerifyResult(c *gin.Context, res *payments.Result, err error) {
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrUnauthenticated):
			ginutil.Unauthorized(c)
		case errors.Is(err, payments.ErrMissingDetails):
			ginutil.BadRequest(c, msgMissingDetails)
		default:
			_ = c.Error(err)
			ginutil.ServerErr(c, err.Error())
		}
		return
	}
	if !res.Success {
		status := http.StatusInternalServerError
		switch {
		case res.Code == payments.CodeAlreadyClaimed:
			status = http.StatusConflict
		case strings.Contains(res.Message, "signature"):
			status = http.StatusBadRequest
		}
		ginutil.Fail(c, status, res.Message)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": res.Message,
		"payment": res.Payment,
		"user":    res.User,
	})
}
