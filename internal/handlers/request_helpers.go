package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"toadvault/internal/apperr"
	"toadvault/internal/logger"
	"toadvault/internal/middleware"
	"toadvault/internal/validation"
)

// ConfigureBinding makes gin validate request bodies with the `validate`
// tags the broker messages carry.
func ConfigureBinding() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.SetTagName("validate")
		v.RegisterTagNameFunc(validation.JSONTagName)
	}
}

func handlePanic(c *gin.Context, log *logger.Logger, route string) {
	if r := recover(); r != nil {
		log.Error("panic recovered", "route", route, "panic", r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal server error"})
	}
}

// respondWithError writes err with the status its owning service chose.
func respondWithError(c *gin.Context, log *logger.Logger, route string, err error) {
	appErr := apperr.From(err)
	if appErr.Status >= http.StatusInternalServerError {
		log.Error("request failed", "route", route, "status", appErr.Status, "code", appErr.Code, "error", err)
	} else {
		log.Debug("request rejected", "route", route, "status", appErr.Status, "code", appErr.Code)
	}

	body := gin.H{"success": false, "message": appErr.Message}
	if appErr.Code != "" {
		body["code"] = appErr.Code
	}
	c.AbortWithStatusJSON(appErr.Status, body)
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "validation failed",
			"code":    "invalid_body",
			"details": validation.Describe(err),
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "invalid body",
		"code":    "invalid_body",
		"details": err.Error(),
	})
}

func currentUserID(c *gin.Context) string {
	return middleware.UserID(c)
}

func param(c *gin.Context, name string) string {
	return strings.TrimSpace(c.Param(name))
}
