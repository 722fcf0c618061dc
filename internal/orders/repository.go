// Package orders owns the single pending order of each user.
package orders

import (
	"context"
	"errors"
	"time"

	"toadvault/internal/models"
)

var (
	ErrNotFound        = errors.New("order not found")
	ErrDuplicate       = errors.New("order already exists for user")
	ErrVersionConflict = errors.New("order version conflict")
)

// Repository persists orders. Replace and Delete only apply when the stored
// version equals expectedVersion and report ErrVersionConflict otherwise.
type Repository interface {
	FindByUser(ctx context.Context, userID string) (*models.Order, error)
	Insert(ctx context.Context, order *models.Order) error
	Replace(ctx context.Context, order *models.Order, expectedVersion int64) error
	Delete(ctx context.Context, userID string, expectedVersion int64) error
	ListSettling(ctx context.Context, olderThan time.Time) ([]models.Order, error)
}
