package inventory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"toadvault/internal/models"
)

type itemKey struct {
	scope   string
	barcode string
}

type MemoryStore struct {
	mu           sync.Mutex
	items        map[itemKey]models.InventoryItem
	reservations map[string]models.StockReservation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:        make(map[itemKey]models.InventoryItem),
		reservations: make(map[string]models.StockReservation),
	}
}

func (s *MemoryStore) Insert(_ context.Context, item *models.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := itemKey{item.Scope, item.Barcode}
	if _, ok := s.items[key]; ok {
		return ErrDuplicate
	}
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	s.items[key] = *item
	return nil
}

func (s *MemoryStore) Restock(_ context.Context, scope, barcode string, qty int, at time.Time) (*models.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := itemKey{scope, barcode}
	item, ok := s.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	item.Stock += qty
	item.UpdatedAt = at
	s.items[key] = item
	return &item, nil
}

func (s *MemoryStore) List(_ context.Context, scope string) ([]models.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.InventoryItem{}
	for key, item := range s.items {
		if key.scope == scope {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Barcode < out[j].Barcode })
	return out, nil
}

func (s *MemoryStore) Find(_ context.Context, scope, barcode string) (*models.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemKey{scope, barcode}]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (s *MemoryStore) Update(_ context.Context, scope, barcode string, patch Patch, at time.Time) (*models.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := itemKey{scope, barcode}
	item, ok := s.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		item.Name = *patch.Name
	}
	if patch.Price != nil {
		item.Price = *patch.Price
	}
	if patch.Stock != nil {
		item.Stock = *patch.Stock
	}
	item.UpdatedAt = at
	s.items[key] = item
	return &item, nil
}

func (s *MemoryStore) Decrement(_ context.Context, scope, barcode string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := itemKey{scope, barcode}
	item, ok := s.items[key]
	if !ok || item.Stock < qty {
		return ErrInsufficientStock
	}
	item.Stock -= qty
	s.items[key] = item
	return nil
}

func (s *MemoryStore) Increment(_ context.Context, scope, barcode string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := itemKey{scope, barcode}
	item, ok := s.items[key]
	if !ok {
		return ErrNotFound
	}
	item.Stock += qty
	s.items[key] = item
	return nil
}

func (s *MemoryStore) CreateReservation(_ context.Context, r *models.StockReservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reservations[r.CheckoutID]; ok {
		return ErrDuplicate
	}
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	s.reservations[r.CheckoutID] = cloneReservation(*r)
	return nil
}

func (s *MemoryStore) FindReservation(_ context.Context, checkoutID string) (*models.StockReservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[checkoutID]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneReservation(r)
	return &out, nil
}

func (s *MemoryStore) SetApplied(_ context.Context, checkoutID, barcode string, applied bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[checkoutID]
	if !ok {
		return ErrNotFound
	}
	next := make([]string, 0, len(r.Applied)+1)
	for _, b := range r.Applied {
		if b != barcode {
			next = append(next, b)
		}
	}
	if applied {
		next = append(next, barcode)
	}
	r.Applied = next
	s.reservations[checkoutID] = r
	return nil
}

func (s *MemoryStore) DeleteReservation(_ context.Context, checkoutID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reservations, checkoutID)
	return nil
}

func cloneReservation(r models.StockReservation) models.StockReservation {
	r.Lines = append([]models.ReservationLine(nil), r.Lines...)
	r.Applied = append([]string{}, r.Applied...)
	return r
}
