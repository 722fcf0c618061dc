package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"toadvault/internal/apperr"
	"toadvault/internal/broker"
	"toadvault/internal/checkout"
	"toadvault/internal/logger"
	"toadvault/internal/messages"
)

func errEmptyReply(pattern string) error {
	return apperr.Infrastructure(fmt.Errorf("%s replied without data", pattern))
}

// POST /payment checks the caller's order out against the tendered cash.
func Checkout(coord *checkout.Coordinator, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /payment"
		defer handlePanic(c, log, route)

		var body messages.PaymentData
		if err := c.ShouldBindJSON(&body); err != nil {
			respondValidationError(c, err)
			return
		}

		receipt, err := coord.Checkout(c.Request.Context(), currentUserID(c), body)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"message":    "Payment success",
			"checkoutId": receipt.CheckoutID,
			"change":     receipt.Change,
			"payment":    receipt.Payment,
		})
	}
}

func PaymentHistory(t broker.Transport, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /payment/history"
		defer handlePanic(c, log, route)

		res, err := broker.Call[messages.PaymentsReply](c.Request.Context(), t, messages.PatternListPayments, messages.UserRequest{UserID: currentUserID(c)})
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(res.Status, gin.H{"success": true, "message": res.Message, "payments": res.Data.Payments})
	}
}
