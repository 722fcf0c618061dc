package handlers

import (
	"github.com/gin-gonic/gin"

	"toadvault/internal/broker"
	"toadvault/internal/logger"
	"toadvault/internal/messages"
)

// POST /users/register
func Register(t broker.Transport, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /users/register"
		defer handlePanic(c, log, route)

		var req messages.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		res, err := broker.Call[messages.UserReply](c.Request.Context(), t, messages.PatternRegister, req)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(res.Status, gin.H{"success": true, "message": res.Message, "user": res.Data.User})
	}
}

// POST /users/login
func Login(t broker.Transport, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /users/login"
		defer handlePanic(c, log, route)

		var req messages.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		res, err := broker.Call[messages.UserReply](c.Request.Context(), t, messages.PatternLogin, req)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(res.Status, gin.H{
			"success": true,
			"message": res.Message,
			"user":    res.Data.User,
			"token":   res.Data.Token,
		})
	}
}
