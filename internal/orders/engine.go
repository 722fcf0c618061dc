package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"toadvault/internal/apperr"
	"toadvault/internal/logger"
	"toadvault/internal/models"
)

const defaultMaxAttempts = 5

// Item is the inventory snapshot an add folds into the order. Stock is the
// available stock and acts as the ceiling for the line quantity.
type Item struct {
	Barcode string
	Name    string
	Price   decimal.Decimal
	Stock   int
}

type Engine struct {
	repo        Repository
	log         *logger.Logger
	maxAttempts int
	now         func() time.Time
}

type Option func(*Engine)

func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(repo Repository, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		repo:        repo,
		log:         log.With("component", "OrderEngine"),
		maxAttempts: defaultMaxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func errOrderNotFound() error {
	return apperr.NotFound("order_not_found", "Order not found")
}

func errSettling() error {
	return apperr.Conflict("order_settling", "Order is being checked out")
}

// retry reruns fn while it loses a version race.
func (e *Engine) retry(ctx context.Context, op string, fn func() error) error {
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) && !errors.Is(err, ErrDuplicate) {
			return storeError(err)
		}
		if ctx.Err() != nil {
			return apperr.From(ctx.Err())
		}
		e.log.Debug("order write lost race", "op", op, "attempt", attempt)
	}
	return apperr.Conflict("concurrent_update", "Order was modified concurrently, try again")
}

func storeError(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperr.From(err)
}

// save bumps the version and writes next over the snapshot it was read from.
func (e *Engine) save(ctx context.Context, next *models.Order, readVersion int64) error {
	next.Version = readVersion + 1
	next.UpdatedAt = e.now()
	return e.repo.Replace(ctx, next, readVersion)
}

// CreateOrAddItem folds one unit of item into the user's order, creating the
// order when there is none. created reports whether a new order was stored.
func (e *Engine) CreateOrAddItem(ctx context.Context, userID string, item Item) (order *models.Order, created bool, err error) {
	err = e.retry(ctx, "add", func() error {
		created = false
		current, err := e.repo.FindByUser(ctx, userID)
		if errors.Is(err, ErrNotFound) {
			if item.Stock < 1 {
				return insufficientStock(item)
			}
			now := e.now()
			fresh := &models.Order{
				UserID:    userID,
				Items:     []models.OrderLineItem{models.NewLineItem(item.Barcode, item.Name, item.Price)},
				Status:    models.OrderPending,
				Version:   1,
				CreatedAt: now,
				UpdatedAt: now,
			}
			fresh.Recalculate()
			if err := e.repo.Insert(ctx, fresh); err != nil {
				return err
			}
			order, created = fresh, true
			return nil
		}
		if err != nil {
			return err
		}
		if current.Status == models.OrderSettling {
			return errSettling()
		}

		next := current.Clone()
		if idx := next.LineIndex(item.Barcode); idx >= 0 {
			if item.Stock <= next.Items[idx].Quantity {
				return insufficientStock(item)
			}
			next.Items[idx].Quantity++
		} else {
			if item.Stock < 1 {
				return insufficientStock(item)
			}
			next.Items = append(next.Items, models.NewLineItem(item.Barcode, item.Name, item.Price))
		}
		next.Recalculate()
		if err := e.save(ctx, &next, current.Version); err != nil {
			return err
		}
		order = &next
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return order, created, nil
}

func insufficientStock(item Item) error {
	return apperr.InsufficientStock(fmt.Sprintf("Insufficient stock for %s: %d available", item.Barcode, item.Stock))
}

// RemoveItem takes one unit of barcode off the order. The last unit drops the
// line; the order itself is kept even when it ends up empty.
func (e *Engine) RemoveItem(ctx context.Context, userID, barcode string) (*models.Order, error) {
	var order *models.Order
	err := e.retry(ctx, "remove", func() error {
		current, err := e.repo.FindByUser(ctx, userID)
		if errors.Is(err, ErrNotFound) {
			return errOrderNotFound()
		}
		if err != nil {
			return err
		}
		if current.Status == models.OrderSettling {
			return errSettling()
		}

		next := current.Clone()
		idx := next.LineIndex(barcode)
		if idx < 0 {
			return apperr.NotFound("item_not_in_order", "Item not found")
		}
		if next.Items[idx].Quantity > 1 {
			next.Items[idx].Quantity--
		} else {
			next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
		}
		next.Recalculate()
		if err := e.save(ctx, &next, current.Version); err != nil {
			return err
		}
		order = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (e *Engine) CancelOrder(ctx context.Context, userID string) error {
	return e.retry(ctx, "cancel", func() error {
		current, err := e.repo.FindByUser(ctx, userID)
		if errors.Is(err, ErrNotFound) {
			return errOrderNotFound()
		}
		if err != nil {
			return err
		}
		if current.Status == models.OrderSettling {
			return errSettling()
		}
		return e.repo.Delete(ctx, userID, current.Version)
	})
}

func (e *Engine) GetOrderByUserID(ctx context.Context, userID string) (*models.Order, error) {
	order, err := e.repo.FindByUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, errOrderNotFound()
	}
	if err != nil {
		return nil, storeError(err)
	}
	return order, nil
}

// Settle freezes the order for checkoutID. Settling the same checkout twice
// returns the settled order.
func (e *Engine) Settle(ctx context.Context, userID, checkoutID string, expectedVersion int64) (*models.Order, error) {
	current, err := e.repo.FindByUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, errOrderNotFound()
	}
	if err != nil {
		return nil, storeError(err)
	}

	if current.Status == models.OrderSettling {
		if current.CheckoutID == checkoutID {
			return current, nil
		}
		return nil, errSettling()
	}
	if current.Version != expectedVersion {
		return nil, orderChanged()
	}
	if len(current.Items) == 0 {
		return nil, apperr.BusinessRule("order_empty", "Order has no items")
	}

	next := current.Clone()
	next.Status = models.OrderSettling
	next.CheckoutID = checkoutID
	if err := e.save(ctx, &next, current.Version); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, orderChanged()
		}
		return nil, storeError(err)
	}
	return &next, nil
}

func orderChanged() error {
	return apperr.Conflict("order_changed", "Order changed during checkout, review it and try again")
}

// Restore returns a settling order to pending. Absent, pending or foreign
// orders are left alone.
func (e *Engine) Restore(ctx context.Context, userID, checkoutID string) error {
	return e.retry(ctx, "restore", func() error {
		current, err := e.repo.FindByUser(ctx, userID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if current.Status != models.OrderSettling || current.CheckoutID != checkoutID {
			return nil
		}

		next := current.Clone()
		next.Status = models.OrderPending
		next.CheckoutID = ""
		return e.save(ctx, &next, current.Version)
	})
}

// Complete deletes the order settled under checkoutID. An absent order
// counts as already completed.
func (e *Engine) Complete(ctx context.Context, userID, checkoutID string) error {
	return e.retry(ctx, "complete", func() error {
		current, err := e.repo.FindByUser(ctx, userID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if current.Status != models.OrderSettling || current.CheckoutID != checkoutID {
			return apperr.Conflict("order_not_settling", "Order is not settling under this checkout")
		}
		return e.repo.Delete(ctx, userID, current.Version)
	})
}

func (e *Engine) ListSettling(ctx context.Context, olderThan time.Time) ([]models.Order, error) {
	orders, err := e.repo.ListSettling(ctx, olderThan)
	if err != nil {
		return nil, storeError(err)
	}
	return orders, nil
}
