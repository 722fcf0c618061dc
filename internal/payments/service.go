package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"toadvault/internal/apperr"
	"toadvault/internal/logger"
	"toadvault/internal/messages"
	"toadvault/internal/models"
)

func errInvalidCash() error {
	return apperr.Validation("invalid_cash", "Invalid cash provided")
}

// ParseCash accepts a JSON number only. Strings, null and a missing value are
// rejected even when they would parse as a number.
func ParseCash(raw json.RawMessage) (decimal.Decimal, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return decimal.Zero, errInvalidCash()
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return decimal.Zero, errInvalidCash()
	}
	n, ok := v.(json.Number)
	if !ok {
		return decimal.Zero, errInvalidCash()
	}
	cash, err := decimal.NewFromString(n.String())
	if err != nil || cash.IsNegative() {
		return decimal.Zero, errInvalidCash()
	}
	return cash, nil
}

// ValidateCash checks the tender against order.Total and returns the parsed
// cash amount.
func ValidateCash(data messages.PaymentData, order models.Order) (decimal.Decimal, error) {
	cash, err := ParseCash(data.Cash)
	if err != nil {
		return decimal.Zero, err
	}
	if cash.LessThan(order.Total) {
		return decimal.Zero, apperr.BusinessRule("insufficient_cash", "Insufficient cash provided")
	}
	return cash, nil
}

type Service struct {
	repo Repository
	log  *logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "PaymentService"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func storeError(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperr.From(err)
}

// HandlePayment records the payment for checkoutID. A checkout that already
// paid gets its stored payment back unchanged.
func (s *Service) HandlePayment(ctx context.Context, userID, checkoutID string, data messages.PaymentData, order models.Order) (*models.Payment, error) {
	existing, err := s.repo.FindByCheckout(ctx, checkoutID)
	if err == nil {
		if existing.UserID != userID {
			return nil, apperr.Conflict("checkout_mismatch", "Checkout belongs to another user")
		}
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, storeError(err)
	}

	if order.UserID != "" && order.UserID != userID {
		return nil, apperr.Validation("order_mismatch", "Order belongs to another user")
	}
	cash, err := ValidateCash(data, order)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		UserID:     userID,
		CheckoutID: checkoutID,
		Items:      append([]models.OrderLineItem{}, order.Items...),
		Amount:     order.Total,
		Cash:       cash,
		Change:     cash.Sub(order.Total),
		CreatedAt:  s.now(),
	}
	err = s.repo.Insert(ctx, payment)
	if errors.Is(err, ErrDuplicate) {
		return s.FindByCheckout(ctx, checkoutID)
	}
	if err != nil {
		return nil, storeError(err)
	}
	s.log.Info("payment recorded", "user_id", userID, "checkout_id", checkoutID, "amount", payment.Amount.String())
	return payment, nil
}

func (s *Service) FindByCheckout(ctx context.Context, checkoutID string) (*models.Payment, error) {
	p, err := s.repo.FindByCheckout(ctx, checkoutID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("payment_not_found", "Payment not found")
	}
	if err != nil {
		return nil, storeError(err)
	}
	return p, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Payment, error) {
	out, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	return out, nil
}
