package orders

import (
	"context"

	"toadvault/internal/broker"
	"toadvault/internal/messages"
)

// RegisterHandlers exposes the engine on the order patterns.
func RegisterHandlers(r *broker.Router, e *Engine) {
	broker.Register(r, messages.PatternOrder, func(ctx context.Context, req messages.OrderRequest) (broker.Result, error) {
		order, created, err := e.CreateOrAddItem(ctx, req.UserID, Item{
			Barcode: req.ItemData.Barcode,
			Name:    req.ItemData.Name,
			Price:   req.ItemData.Price,
			Stock:   req.ItemData.Stock,
		})
		if err != nil {
			return broker.Result{}, err
		}
		if created {
			return broker.Created("Order created successfully", messages.OrderReply{Order: order}), nil
		}
		return broker.OK("Order updated successfully", messages.OrderReply{Order: order}), nil
	})

	broker.Register(r, messages.PatternGetOrder, func(ctx context.Context, req messages.UserRequest) (broker.Result, error) {
		order, err := e.GetOrderByUserID(ctx, req.UserID)
		if err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Order found", messages.OrderReply{Order: order}), nil
	})

	broker.Register(r, messages.PatternRemoveItem, func(ctx context.Context, req messages.RemoveItemRequest) (broker.Result, error) {
		order, err := e.RemoveItem(ctx, req.UserID, req.Barcode)
		if err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Item removed successfully", messages.OrderReply{Order: order}), nil
	})

	broker.Register(r, messages.PatternCancelOrder, func(ctx context.Context, req messages.UserRequest) (broker.Result, error) {
		if err := e.CancelOrder(ctx, req.UserID); err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Order cancelled successfully", nil), nil
	})

	broker.Register(r, messages.PatternSettleOrder, func(ctx context.Context, req messages.SettleOrderRequest) (broker.Result, error) {
		order, err := e.Settle(ctx, req.UserID, req.CheckoutID, req.Version)
		if err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Order settling", messages.OrderReply{Order: order}), nil
	})

	broker.Register(r, messages.PatternRestoreOrder, func(ctx context.Context, req messages.CheckoutOrderRequest) (broker.Result, error) {
		if err := e.Restore(ctx, req.UserID, req.CheckoutID); err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Order restored", nil), nil
	})

	broker.Register(r, messages.PatternCompleteOrder, func(ctx context.Context, req messages.CheckoutOrderRequest) (broker.Result, error) {
		if err := e.Complete(ctx, req.UserID, req.CheckoutID); err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Order completed", nil), nil
	})

	broker.Register(r, messages.PatternListSettling, func(ctx context.Context, req messages.ListSettlingRequest) (broker.Result, error) {
		orders, err := e.ListSettling(ctx, req.OlderThan)
		if err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Settling orders", messages.OrdersReply{Orders: orders}), nil
	})
}
