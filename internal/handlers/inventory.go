package handlers

import (
	"github.com/gin-gonic/gin"

	"toadvault/internal/broker"
	"toadvault/internal/logger"
	"toadvault/internal/messages"
	"toadvault/internal/models"
)

// POST /inventory/new stocks an item in the caller's inventory.
func AddInventoryItem(t broker.Transport, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /inventory/new"
		defer handlePanic(c, log, route)

		var body messages.NewItemData
		if err := c.ShouldBindJSON(&body); err != nil {
			respondValidationError(c, err)
			return
		}

		res, err := broker.Call[messages.ItemReply](c.Request.Context(), t, messages.PatternAddNewItem, messages.AddItemRequest{
			Scope:    models.UserScope(currentUserID(c)),
			ItemData: body,
		})
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(res.Status, gin.H{"success": true, "message": res.Message, "item": res.Data.Item})
	}
}

func GetInventory(t broker.Transport, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /inventory"
		defer handlePanic(c, log, route)

		res, err := broker.Call[messages.ItemsReply](c.Request.Context(), t, messages.PatternGetInventory, messages.ScopeRequest{
			Scope: models.UserScope(currentUserID(c)),
		})
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(res.Status, gin.H{"success": true, "message": res.Message, "items": res.Data.Items})
	}
}

func UpdateInventoryItem(t broker.Transport, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /inventory/item/:barcode"
		defer handlePanic(c, log, route)

		var patch messages.ItemPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			respondValidationError(c, err)
			return
		}

		res, err := broker.Call[messages.ItemReply](c.Request.Context(), t, messages.PatternUpdateItem, messages.UpdateItemRequest{
			Scope:   models.UserScope(currentUserID(c)),
			Barcode: param(c, "barcode"),
			Patch:   patch,
		})
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(res.Status, gin.H{"success": true, "message": res.Message, "item": res.Data.Item})
	}
}

// GET /inventory/item/:storeId/:barcode is public. A store is the user
// account that owns the inventory.
func GetStoreItem(t broker.Transport, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /inventory/item/:storeId/:barcode"
		defer handlePanic(c, log, route)

		res, err := broker.Call[messages.ItemReply](c.Request.Context(), t, messages.PatternGetItemByBarcode, messages.ItemRequest{
			Scope:   models.UserScope(param(c, "storeId")),
			Barcode: param(c, "barcode"),
		})
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(res.Status, gin.H{"success": true, "message": res.Message, "item": res.Data.Item})
	}
}
