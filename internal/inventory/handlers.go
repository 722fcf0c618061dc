package inventory

import (
	"context"

	"toadvault/internal/broker"
	"toadvault/internal/messages"
)

func RegisterHandlers(r *broker.Router, s *Service) {
	broker.Register(r, messages.PatternAddNewItem, func(ctx context.Context, req messages.AddItemRequest) (broker.Result, error) {
		item, restocked, err := s.AddItem(ctx, req.Scope, NewItem{
			Barcode: req.ItemData.Barcode,
			Name:    req.ItemData.Name,
			Price:   req.ItemData.Price,
			Stock:   req.ItemData.Stock,
		})
		if err != nil {
			return broker.Result{}, err
		}
		if restocked {
			return broker.Created("Item restocked", messages.ItemReply{Item: item}), nil
		}
		return broker.Created("Item added successfully", messages.ItemReply{Item: item}), nil
	})

	broker.Register(r, messages.PatternGetInventory, func(ctx context.Context, req messages.ScopeRequest) (broker.Result, error) {
		items, err := s.GetInventory(ctx, req.Scope)
		if err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Items retrieved successfully", messages.ItemsReply{Items: items}), nil
	})

	broker.Register(r, messages.PatternGetItemByBarcode, func(ctx context.Context, req messages.ItemRequest) (broker.Result, error) {
		item, err := s.GetItemByBarcode(ctx, req.Scope, req.Barcode)
		if err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Item retrieved successfully", messages.ItemReply{Item: item}), nil
	})

	broker.Register(r, messages.PatternGetItemForOrder, func(ctx context.Context, req messages.ItemRequest) (broker.Result, error) {
		item, err := s.GetItemForOrder(ctx, req.Scope, req.Barcode)
		if err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Item retrieved successfully", messages.ItemReply{Item: item}), nil
	})

	broker.Register(r, messages.PatternUpdateItem, func(ctx context.Context, req messages.UpdateItemRequest) (broker.Result, error) {
		item, err := s.UpdateItem(ctx, req.Scope, req.Barcode, Patch{
			Name:  req.Patch.Name,
			Price: req.Patch.Price,
			Stock: req.Patch.Stock,
		})
		if err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Item updated successfully", messages.ItemReply{Item: item}), nil
	})

	broker.Register(r, messages.PatternReserveStock, func(ctx context.Context, req messages.StockRequest) (broker.Result, error) {
		if err := s.Reserve(ctx, req.CheckoutID, req.Scope, req.Lines); err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Stock reserved", nil), nil
	})

	broker.Register(r, messages.PatternReleaseStock, func(ctx context.Context, req messages.StockRequest) (broker.Result, error) {
		if err := s.Release(ctx, req.CheckoutID); err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Stock released", nil), nil
	})

	broker.Register(r, messages.PatternCommitStock, func(ctx context.Context, req messages.StockRequest) (broker.Result, error) {
		if err := s.Commit(ctx, req.CheckoutID); err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Stock committed", nil), nil
	})
}
