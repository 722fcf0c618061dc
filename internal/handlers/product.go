package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"toadvault/internal/broker"
	"toadvault/internal/logger"
	"toadvault/internal/messages"
)

/*
GET /products
- page + limit are optional, newest first
- response: products + pagination
*/
func GetProducts(t broker.Transport, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, log, route)

		page, limit, err := pagination(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error(), "code": "invalid_pagination"})
			return
		}

		res, err := broker.Call[messages.ProductsReply](c.Request.Context(), t, messages.PatternGetProducts, messages.GetProductsRequest{Page: page, Limit: limit})
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(res.Status, gin.H{
			"success":  true,
			"message":  res.Message,
			"products": res.Data.Products,
			"pagination": gin.H{
				"page":       res.Data.Page,
				"limit":      res.Data.Limit,
				"total":      res.Data.Total,
				"totalPages": res.Data.TotalPages,
			},
		})
	}
}

// GET /products/:ref, ref being an id or a barcode.
func GetProduct(t broker.Transport, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:ref"
		defer handlePanic(c, log, route)

		res, err := broker.Call[messages.ProductReply](c.Request.Context(), t, messages.PatternGetProduct, messages.GetProductRequest{Ref: param(c, "ref")})
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(res.Status, gin.H{"success": true, "message": res.Message, "product": res.Data.Product})
	}
}

func CreateProduct(t broker.Transport, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /products"
		defer handlePanic(c, log, route)

		var body messages.ProductData
		if err := c.ShouldBindJSON(&body); err != nil {
			respondValidationError(c, err)
			return
		}

		res, err := broker.Call[messages.ProductReply](c.Request.Context(), t, messages.PatternAddProduct, messages.AddProductRequest{Product: body})
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(res.Status, gin.H{"success": true, "message": res.Message, "product": res.Data.Product})
	}
}

func UpdateProduct(t broker.Transport, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /products/:id"
		defer handlePanic(c, log, route)

		var body messages.ProductData
		if err := c.ShouldBindJSON(&body); err != nil {
			respondValidationError(c, err)
			return
		}

		res, err := broker.Call[messages.ProductReply](c.Request.Context(), t, messages.PatternUpdateProduct, messages.UpdateProductRequest{
			ID:      param(c, "id"),
			Product: body,
		})
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(res.Status, gin.H{"success": true, "message": res.Message, "product": res.Data.Product})
	}
}
