package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"toadvault/internal/apperr"
	"toadvault/internal/logger"
	"toadvault/internal/models"
)

// NewItem is the payload of an inventory add.
type NewItem struct {
	Barcode string
	Name    string
	Price   decimal.Decimal
	Stock   int
}

type Service struct {
	store Store
	log   *logger.Logger
	now   func() time.Time
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With("component", "InventoryService"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func errItemNotFound() error {
	return apperr.NotFound("item_not_found", "Item not found")
}

func storeError(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperr.From(err)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func validateItem(item NewItem) error {
	switch {
	case !isDigits(item.Barcode):
		return apperr.Validation("invalid_barcode", "barcode must contain digits only")
	case strings.TrimSpace(item.Name) == "":
		return apperr.Validation("invalid_name", "name is required")
	case item.Price.IsNegative():
		return apperr.Validation("invalid_price", "price must be zero or more")
	case item.Stock < 0:
		return apperr.Validation("invalid_stock", "stock must be zero or more")
	}
	return nil
}

// AddItem stocks a new barcode or, when it already exists in scope, adds
// item.Stock to the current stock. restocked reports the second case.
func (s *Service) AddItem(ctx context.Context, scope string, item NewItem) (out *models.InventoryItem, restocked bool, err error) {
	if err := validateItem(item); err != nil {
		return nil, false, err
	}

	now := s.now()
	fresh := &models.InventoryItem{
		Scope:     scope,
		Barcode:   item.Barcode,
		Name:      strings.TrimSpace(item.Name),
		Price:     item.Price,
		Stock:     item.Stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.store.Insert(ctx, fresh)
	if err == nil {
		return fresh, false, nil
	}
	if !errors.Is(err, ErrDuplicate) {
		return nil, false, storeError(err)
	}

	updated, err := s.store.Restock(ctx, scope, item.Barcode, item.Stock, now)
	if err != nil {
		return nil, false, storeError(err)
	}
	s.log.Debug("item restocked", "scope", scope, "barcode", item.Barcode, "added", item.Stock)
	return updated, true, nil
}

func (s *Service) GetInventory(ctx context.Context, scope string) ([]models.InventoryItem, error) {
	items, err := s.store.List(ctx, scope)
	if err != nil {
		return nil, storeError(err)
	}
	return items, nil
}

func (s *Service) GetItemByBarcode(ctx context.Context, scope, barcode string) (*models.InventoryItem, error) {
	item, err := s.store.Find(ctx, scope, barcode)
	if errors.Is(err, ErrNotFound) {
		return nil, errItemNotFound()
	}
	if err != nil {
		return nil, storeError(err)
	}
	return item, nil
}

// GetItemForOrder is GetItemByBarcode restricted to items that can be sold.
func (s *Service) GetItemForOrder(ctx context.Context, scope, barcode string) (*models.InventoryItem, error) {
	item, err := s.GetItemByBarcode(ctx, scope, barcode)
	if err != nil {
		return nil, err
	}
	if !item.Price.IsPositive() {
		return nil, apperr.BusinessRule("item_not_orderable", "Item has no price")
	}
	if item.Stock <= 0 {
		return nil, apperr.BusinessRule("item_not_orderable", "Item is out of stock")
	}
	return item, nil
}

func (s *Service) UpdateItem(ctx context.Context, scope, barcode string, patch Patch) (*models.InventoryItem, error) {
	if patch.Empty() {
		return nil, apperr.Validation("empty_patch", "nothing to update")
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Validation("invalid_name", "name is required")
		}
		patch.Name = &name
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return nil, apperr.Validation("invalid_price", "price must be zero or more")
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return nil, apperr.Validation("invalid_stock", "stock must be zero or more")
	}

	item, err := s.store.Update(ctx, scope, barcode, patch, s.now())
	if errors.Is(err, ErrNotFound) {
		return nil, errItemNotFound()
	}
	if err != nil {
		return nil, storeError(err)
	}
	return item, nil
}

// mergeLines sums quantities of repeated barcodes, keeping first-seen order.
func mergeLines(lines []models.ReservationLine) []models.ReservationLine {
	index := make(map[string]int, len(lines))
	out := make([]models.ReservationLine, 0, len(lines))
	for _, line := range lines {
		if i, ok := index[line.Barcode]; ok {
			out[i].Quantity += line.Quantity
			continue
		}
		index[line.Barcode] = len(out)
		out = append(out, line)
	}
	return out
}

// Reserve takes stock for every line of a checkout. A rerun with the same
// checkoutID resumes the stored reservation instead of taking stock again.
func (s *Service) Reserve(ctx context.Context, checkoutID, scope string, lines []models.ReservationLine) error {
	if len(lines) == 0 {
		return apperr.Validation("empty_reservation", "nothing to reserve")
	}
	if strings.TrimSpace(scope) == "" {
		return apperr.Validation("invalid_scope", "scope is required")
	}

	r, err := s.store.FindReservation(ctx, checkoutID)
	if errors.Is(err, ErrNotFound) {
		r = &models.StockReservation{
			CheckoutID: checkoutID,
			Scope:      scope,
			Lines:      mergeLines(lines),
			Applied:    []string{},
			CreatedAt:  s.now(),
		}
		err = s.store.CreateReservation(ctx, r)
		if errors.Is(err, ErrDuplicate) {
			r, err = s.store.FindReservation(ctx, checkoutID)
		}
	}
	if err != nil {
		return storeError(err)
	}

	for _, line := range r.Lines {
		if r.IsApplied(line.Barcode) {
			continue
		}
		err := s.store.Decrement(ctx, r.Scope, line.Barcode, line.Quantity)
		if errors.Is(err, ErrInsufficientStock) {
			if rbErr := s.rollback(ctx, r); rbErr != nil {
				s.log.Error("reservation rollback failed", "checkout_id", checkoutID, "error", rbErr)
				return storeError(rbErr)
			}
			return apperr.InsufficientStock(fmt.Sprintf("Insufficient stock for %s", line.Barcode))
		}
		if err != nil {
			return storeError(err)
		}
		if err := s.store.SetApplied(ctx, checkoutID, line.Barcode, true); err != nil {
			return storeError(err)
		}
		r.Applied = append(r.Applied, line.Barcode)
	}
	return nil
}

// rollback returns every applied line and drops the reservation.
func (s *Service) rollback(ctx context.Context, r *models.StockReservation) error {
	for _, line := range r.Lines {
		if !r.IsApplied(line.Barcode) {
			continue
		}
		if err := s.store.Increment(ctx, r.Scope, line.Barcode, line.Quantity); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := s.store.SetApplied(ctx, r.CheckoutID, line.Barcode, false); err != nil {
			return err
		}
	}
	return s.store.DeleteReservation(ctx, r.CheckoutID)
}

// Release undoes a reservation. Unknown checkouts are a no-op.
func (s *Service) Release(ctx context.Context, checkoutID string) error {
	r, err := s.store.FindReservation(ctx, checkoutID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return storeError(err)
	}
	if err := s.rollback(ctx, r); err != nil {
		return storeError(err)
	}
	s.log.Info("stock released", "checkout_id", checkoutID)
	return nil
}

// Commit makes a reservation final. Unknown checkouts are a no-op.
func (s *Service) Commit(ctx context.Context, checkoutID string) error {
	if err := s.store.DeleteReservation(ctx, checkoutID); err != nil {
		return storeError(err)
	}
	return nil
}
