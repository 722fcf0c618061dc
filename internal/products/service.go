package products

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"toadvault/internal/apperr"
	"toadvault/internal/logger"
	"toadvault/internal/models"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Input is the writable part of a product.
type Input struct {
	Barcode     string
	Name        string
	Description string
	CategoryID  string
	Variants    []models.Variant
}

type Page struct {
	Products   []models.Product
	Page       int64
	Limit      int64
	Total      int64
	TotalPages int64
}

type Service struct {
	store Store
	log   *logger.Logger
	now   func() time.Time
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With("component", "ProductService"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func storeError(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperr.From(err)
}

func errProductExists() error {
	return apperr.Conflict("product_exists", "Product already exists")
}

func errProductNotFound() error {
	return apperr.NotFound("product_not_found", "Product not found")
}

func normalize(in Input) (Input, error) {
	in.Barcode = strings.TrimSpace(in.Barcode)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.CategoryID = strings.TrimSpace(in.CategoryID)

	if in.Barcode == "" || strings.Trim(in.Barcode, "0123456789") != "" {
		return in, apperr.Validation("invalid_barcode", "barcode must contain digits only")
	}
	if in.Name == "" {
		return in, apperr.Validation("invalid_name", "name is required")
	}
	variants := make([]models.Variant, 0, len(in.Variants))
	for _, v := range in.Variants {
		name := strings.TrimSpace(v.Name)
		if name == "" {
			return in, apperr.Validation("invalid_variant", "variant name is required")
		}
		variants = append(variants, models.Variant{Name: name})
	}
	in.Variants = variants
	return in, nil
}

func (s *Service) AddProduct(ctx context.Context, in Input) (*models.Product, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &models.Product{
		Barcode:     in.Barcode,
		Name:        in.Name,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		Variants:    in.Variants,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, errProductExists()
		}
		return nil, storeError(err)
	}
	s.log.Info("product created", "product_id", p.ID.Hex(), "barcode", p.Barcode)
	return p, nil
}

// GetProducts pages through the catalog. A zero page or limit falls back to
// the first page of defaultLimit products.
func (s *Service) GetProducts(ctx context.Context, page, limit int64) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	list, total, err := s.store.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, storeError(err)
	}
	return &Page{
		Products:   list,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// GetProductByBarcodeOrID resolves ref as an object id first, then as a
// barcode.
func (s *Service) GetProductByBarcodeOrID(ctx context.Context, ref string) (*models.Product, error) {
	ref = strings.TrimSpace(ref)
	if id, err := primitive.ObjectIDFromHex(ref); err == nil {
		p, err := s.store.FindByID(ctx, id)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, storeError(err)
		}
	}

	p, err := s.store.FindByBarcode(ctx, ref)
	if errors.Is(err, ErrNotFound) {
		return nil, errProductNotFound()
	}
	if err != nil {
		return nil, storeError(err)
	}
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, in Input) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, apperr.Validation("invalid_id", "invalid product id")
	}
	in, err = normalize(in)
	if err != nil {
		return nil, err
	}

	current, err := s.store.FindByID(ctx, oid)
	if errors.Is(err, ErrNotFound) {
		return nil, errProductNotFound()
	}
	if err != nil {
		return nil, storeError(err)
	}

	current.Barcode = in.Barcode
	current.Name = in.Name
	current.Description = in.Description
	current.CategoryID = in.CategoryID
	current.Variants = in.Variants
	current.UpdatedAt = s.now()

	if err := s.store.Replace(ctx, current); err != nil {
		switch {
		case errors.Is(err, ErrDuplicate):
			return nil, errProductExists()
		case errors.Is(err, ErrNotFound):
			return nil, errProductNotFound()
		}
		return nil, storeError(err)
	}
	return current, nil
}
