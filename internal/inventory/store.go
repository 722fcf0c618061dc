// Package inventory stocks items per owner scope and reserves stock for
// checkouts.
package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"toadvault/internal/models"
)

var (
	ErrNotFound          = errors.New("inventory record not found")
	ErrDuplicate         = errors.New("inventory record already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Patch is a partial item update. Nil fields are left untouched.
type Patch struct {
	Name  *string
	Price *decimal.Decimal
	Stock *int
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.Price == nil && p.Stock == nil
}

type Store interface {
	Insert(ctx context.Context, item *models.InventoryItem) error
	Restock(ctx context.Context, scope, barcode string, qty int, at time.Time) (*models.InventoryItem, error)
	List(ctx context.Context, scope string) ([]models.InventoryItem, error)
	Find(ctx context.Context, scope, barcode string) (*models.InventoryItem, error)
	Update(ctx context.Context, scope, barcode string, patch Patch, at time.Time) (*models.InventoryItem, error)
	// Decrement takes qty units only when at least qty are in stock.
	Decrement(ctx context.Context, scope, barcode string, qty int) error
	Increment(ctx context.Context, scope, barcode string, qty int) error

	CreateReservation(ctx context.Context, r *models.StockReservation) error
	FindReservation(ctx context.Context, checkoutID string) (*models.StockReservation, error)
	SetApplied(ctx context.Context, checkoutID, barcode string, applied bool) error
	DeleteReservation(ctx context.Context, checkoutID string) error
}
