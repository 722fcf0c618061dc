package handlers

import (
	"github.com/gin-gonic/gin"

	"toadvault/internal/broker"
	"toadvault/internal/logger"
	"toadvault/internal/messages"
	"toadvault/internal/models"
)

func GetOrder(t broker.Transport, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /order"
		defer handlePanic(c, log, route)

		res, err := broker.Call[messages.OrderReply](c.Request.Context(), t, messages.PatternGetOrder, messages.UserRequest{UserID: currentUserID(c)})
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(res.Status, gin.H{"success": true, "message": res.Message, "order": res.Data.Order})
	}
}

/*
GET /order/:barcode
- looks the barcode up in the caller's inventory
- folds one unit into the pending order (201 on create, 200 on update)
*/
func AddToOrder(t broker.Transport, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /order/:barcode"
		defer handlePanic(c, log, route)

		ctx := c.Request.Context()
		userID := currentUserID(c)

		item, err := broker.Call[messages.ItemReply](ctx, t, messages.PatternGetItemForOrder, messages.ItemRequest{
			Scope:   models.UserScope(userID),
			Barcode: param(c, "barcode"),
		})
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		found := item.Data.Item
		if found == nil {
			respondWithError(c, log, route, errEmptyReply(messages.PatternGetItemForOrder))
			return
		}

		res, err := broker.Call[messages.OrderReply](ctx, t, messages.PatternOrder, messages.OrderRequest{
			UserID: userID,
			ItemData: messages.ItemData{
				Barcode: found.Barcode,
				Name:    found.Name,
				Price:   found.Price,
				Stock:   found.Stock,
			},
		})
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(res.Status, gin.H{"success": true, "message": res.Message, "order": res.Data.Order})
	}
}

func RemoveFromOrder(t broker.Transport, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /order/remove/:barcode"
		defer handlePanic(c, log, route)

		res, err := broker.Call[messages.OrderReply](c.Request.Context(), t, messages.PatternRemoveItem, messages.RemoveItemRequest{
			UserID:  currentUserID(c),
			Barcode: param(c, "barcode"),
		})
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(res.Status, gin.H{"success": true, "message": res.Message, "order": res.Data.Order})
	}
}

func CancelOrder(t broker.Transport, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /order"
		defer handlePanic(c, log, route)

		res, err := broker.Call[struct{}](c.Request.Context(), t, messages.PatternCancelOrder, messages.UserRequest{UserID: currentUserID(c)})
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(res.Status, gin.H{"success": true, "message": res.Message})
	}
}
