package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"toadvault/internal/models"
)

// MemoryRepository keeps orders in process. It honours the same version
// checks as the mongo repository.
type MemoryRepository struct {
	mu     sync.Mutex
	orders map[string]models.Order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[string]models.Order)}
}

func (r *MemoryRepository) FindByUser(_ context.Context, userID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := order.Clone()
	return &out, nil
}

func (r *MemoryRepository) Insert(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[order.UserID]; ok {
		return ErrDuplicate
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	r.orders[order.UserID] = order.Clone()
	return nil
}

func (r *MemoryRepository) Replace(_ context.Context, order *models.Order, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[order.UserID]
	if !ok || stored.Version != expectedVersion {
		return ErrVersionConflict
	}
	r.orders[order.UserID] = order.Clone()
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, userID string, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[userID]
	if !ok || stored.Version != expectedVersion {
		return ErrVersionConflict
	}
	delete(r.orders, userID)
	return nil
}

func (r *MemoryRepository) ListSettling(_ context.Context, olderThan time.Time) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.Order{}
	for _, order := range r.orders {
		if order.Status == models.OrderSettling && order.UpdatedAt.Before(olderThan) {
			out = append(out, order.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}
