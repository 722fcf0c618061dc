package payments

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toadvault/internal/apperr"
	"toadvault/internal/logger"
	"toadvault/internal/messages"
	"toadvault/internal/models"
)

func cash(raw string) messages.PaymentData {
	return messages.PaymentData{Cash: json.RawMessage(raw)}
}

func sampleOrder() models.Order {
	order := models.Order{
		UserID: "u1",
		Items: []models.OrderLineItem{
			{Barcode: "100", Name: "Fly", UnitPrice: decimal.RequireFromString("2.50"), Quantity: 2},
		},
	}
	order.Recalculate()
	return order
}

func TestParseCash(t *testing.T) {
	cases := []struct {
		raw  string
		ok   bool
		want string
	}{
		{raw: `10`, ok: true, want: "10"},
		{raw: `10.25`, ok: true, want: "10.25"},
		{raw: `1e1`, ok: true, want: "10"},
		{raw: `"10"`},
		{raw: `null`},
		{raw: ``},
		{raw: `true`},
		{raw: `{"n":1}`},
		{raw: `-1`},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseCash(json.RawMessage(tc.raw))
			if !tc.ok {
				assert.True(t, apperr.Is(err, "invalid_cash"), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)))
		})
	}
}

func TestValidateCash(t *testing.T) {
	order := sampleOrder()

	_, err := ValidateCash(cash(`4.99`), order)
	assert.True(t, apperr.Is(err, "insufficient_cash"))
	assert.Equal(t, apperr.KindBusinessRule, apperr.KindOf(err))

	got, err := ValidateCash(cash(`5`), order)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(5)))
}

func TestHandlePaymentRecordsChange(t *testing.T) {
	repo := NewMemoryRepository()
	s := NewService(repo, logger.Nop())
	ctx := context.Background()

	p, err := s.HandlePayment(ctx, "u1", "co-1", cash(`20`), sampleOrder())
	require.NoError(t, err)
	assert.True(t, p.Amount.Equal(decimal.NewFromInt(5)))
	assert.True(t, p.Change.Equal(decimal.NewFromInt(15)))
	assert.Len(t, p.Items, 1)

	again, err := s.HandlePayment(ctx, "u1", "co-1", cash(`100`), sampleOrder())
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
	assert.True(t, again.Change.Equal(decimal.NewFromInt(15)))

	_, err = s.HandlePayment(ctx, "u2", "co-1", cash(`100`), sampleOrder())
	assert.True(t, apperr.Is(err, "checkout_mismatch"))

	history, err := s.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestHandlePaymentRejectsWithoutWriting(t *testing.T) {
	repo := NewMemoryRepository()
	s := NewService(repo, logger.Nop())
	ctx := context.Background()

	_, err := s.HandlePayment(ctx, "u1", "co-1", cash(`1`), sampleOrder())
	assert.True(t, apperr.Is(err, "insufficient_cash"))
	_, err = s.HandlePayment(ctx, "u1", "co-1", cash(`"lots"`), sampleOrder())
	assert.True(t, apperr.Is(err, "invalid_cash"))

	_, err = s.FindByCheckout(ctx, "co-1")
	assert.True(t, apperr.Is(err, "payment_not_found"))
	history, err := s.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, history)
}
