package products

import (
	"context"

	"toadvault/internal/broker"
	"toadvault/internal/messages"
)

func inputFrom(d messages.ProductData) Input {
	return Input{
		Barcode:     d.Barcode,
		Name:        d.Name,
		Description: d.Description,
		CategoryID:  d.CategoryID,
		Variants:    d.Variants,
	}
}

func RegisterHandlers(r *broker.Router, s *Service) {
	broker.Register(r, messages.PatternAddProduct, func(ctx context.Context, req messages.AddProductRequest) (broker.Result, error) {
		p, err := s.AddProduct(ctx, inputFrom(req.Product))
		if err != nil {
			return broker.Result{}, err
		}
		return broker.Created("Product added successfully", messages.ProductReply{Product: p}), nil
	})

	broker.Register(r, messages.PatternGetProducts, func(ctx context.Context, req messages.GetProductsRequest) (broker.Result, error) {
		page, err := s.GetProducts(ctx, req.Page, req.Limit)
		if err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Products retrieved successfully", messages.ProductsReply{
			Products:   page.Products,
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		}), nil
	})

	broker.Register(r, messages.PatternGetProduct, func(ctx context.Context, req messages.GetProductRequest) (broker.Result, error) {
		p, err := s.GetProductByBarcodeOrID(ctx, req.Ref)
		if err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Product retrieved successfully", messages.ProductReply{Product: p}), nil
	})

	broker.Register(r, messages.PatternUpdateProduct, func(ctx context.Context, req messages.UpdateProductRequest) (broker.Result, error) {
		p, err := s.UpdateProduct(ctx, req.ID, inputFrom(req.Product))
		if err != nil {
			return broker.Result{}, err
		}
		return broker.OK("Product updated successfully", messages.ProductReply{Product: p}), nil
	})
}
