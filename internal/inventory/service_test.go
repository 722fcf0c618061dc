package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toadvault/internal/apperr"
	"toadvault/internal/logger"
	"toadvault/internal/models"
)

const scope = "user:u1"

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewService(store, logger.Nop()), store
}

func seed(t *testing.T, s *Service, barcode string, price string, stock int) {
	t.Helper()
	_, _, err := s.AddItem(context.Background(), scope, NewItem{
		Barcode: barcode,
		Name:    "item " + barcode,
		Price:   decimal.RequireFromString(price),
		Stock:   stock,
	})
	require.NoError(t, err)
}

func stockOf(t *testing.T, s *Service, barcode string) int {
	t.Helper()
	item, err := s.GetItemByBarcode(context.Background(), scope, barcode)
	require.NoError(t, err)
	return item.Stock
}

func TestAddItemValidates(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		item NewItem
		code string
	}{
		{name: "letters in barcode", item: NewItem{Barcode: "12ab", Name: "x", Stock: 1}, code: "invalid_barcode"},
		{name: "blank name", item: NewItem{Barcode: "12", Name: "  ", Stock: 1}, code: "invalid_name"},
		{name: "negative price", item: NewItem{Barcode: "12", Name: "x", Price: decimal.NewFromInt(-1)}, code: "invalid_price"},
		{name: "negative stock", item: NewItem{Barcode: "12", Name: "x", Stock: -2}, code: "invalid_stock"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := s.AddItem(ctx, scope, tc.item)
			assert.True(t, apperr.Is(err, tc.code), "got %v", err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestAddItemRestocksExistingBarcode(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	item, restocked, err := s.AddItem(ctx, scope, NewItem{Barcode: "100", Name: "Fly", Price: decimal.NewFromInt(3), Stock: 2})
	require.NoError(t, err)
	assert.False(t, restocked)
	assert.Equal(t, 2, item.Stock)

	item, restocked, err = s.AddItem(ctx, scope, NewItem{Barcode: "100", Name: "Fly", Price: decimal.NewFromInt(3), Stock: 4})
	require.NoError(t, err)
	assert.True(t, restocked)
	assert.Equal(t, 6, item.Stock)

	_, restocked, err = s.AddItem(ctx, "store:s1", NewItem{Barcode: "100", Name: "Fly", Price: decimal.NewFromInt(3), Stock: 1})
	require.NoError(t, err)
	assert.False(t, restocked, "scopes are independent")
}

func TestGetInventorySortedByBarcode(t *testing.T) {
	s, _ := newTestService(t)
	seed(t, s, "300", "1", 1)
	seed(t, s, "100", "1", 1)
	seed(t, s, "200", "1", 1)

	items, err := s.GetInventory(context.Background(), scope)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"100", "200", "300"}, []string{items[0].Barcode, items[1].Barcode, items[2].Barcode})

	empty, err := s.GetInventory(context.Background(), "user:nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetItemForOrderRejectsUnsellable(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	seed(t, s, "100", "0", 5)
	seed(t, s, "200", "2.00", 0)
	seed(t, s, "300", "2.00", 1)

	_, err := s.GetItemForOrder(ctx, scope, "100")
	assert.True(t, apperr.Is(err, "item_not_orderable"))
	_, err = s.GetItemForOrder(ctx, scope, "200")
	assert.True(t, apperr.Is(err, "item_not_orderable"))
	_, err = s.GetItemForOrder(ctx, scope, "999")
	assert.True(t, apperr.Is(err, "item_not_found"))

	item, err := s.GetItemForOrder(ctx, scope, "300")
	require.NoError(t, err)
	assert.Equal(t, "300", item.Barcode)
}

func TestUpdateItem(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	seed(t, s, "100", "1.00", 1)

	price := decimal.RequireFromString("4.20")
	stock := 9
	item, err := s.UpdateItem(ctx, scope, "100", Patch{Price: &price, Stock: &stock})
	require.NoError(t, err)
	assert.True(t, item.Price.Equal(price))
	assert.Equal(t, 9, item.Stock)
	assert.Equal(t, "item 100", item.Name)

	_, err = s.UpdateItem(ctx, scope, "100", Patch{})
	assert.True(t, apperr.Is(err, "empty_patch"))

	negative := -1
	_, err = s.UpdateItem(ctx, scope, "100", Patch{Stock: &negative})
	assert.True(t, apperr.Is(err, "invalid_stock"))

	_, err = s.UpdateItem(ctx, scope, "999", Patch{Stock: &stock})
	assert.True(t, apperr.Is(err, "item_not_found"))
}

func TestReserveCommit(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	seed(t, s, "100", "1", 5)
	seed(t, s, "200", "1", 2)

	lines := []models.ReservationLine{{Barcode: "100", Quantity: 3}, {Barcode: "200", Quantity: 2}}
	require.NoError(t, s.Reserve(ctx, "co-1", scope, lines))
	assert.Equal(t, 2, stockOf(t, s, "100"))
	assert.Equal(t, 0, stockOf(t, s, "200"))

	require.NoError(t, s.Reserve(ctx, "co-1", scope, lines), "rerun must not take stock twice")
	assert.Equal(t, 2, stockOf(t, s, "100"))

	require.NoError(t, s.Commit(ctx, "co-1"))
	_, err := store.FindReservation(ctx, "co-1")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.Commit(ctx, "co-1"))

	require.NoError(t, s.Release(ctx, "co-1"))
	assert.Equal(t, 2, stockOf(t, s, "100"), "release after commit is a no-op")
}

func TestReserveShortfallRollsBack(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	seed(t, s, "100", "1", 5)
	seed(t, s, "200", "1", 1)

	err := s.Reserve(ctx, "co-1", scope, []models.ReservationLine{{Barcode: "100", Quantity: 3}, {Barcode: "200", Quantity: 2}})
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "insufficient_stock", appErr.Code)

	assert.Equal(t, 5, stockOf(t, s, "100"))
	assert.Equal(t, 1, stockOf(t, s, "200"))
	_, err = store.FindReservation(ctx, "co-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReserveMergesRepeatedBarcodes(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	seed(t, s, "100", "1", 5)

	require.NoError(t, s.Reserve(ctx, "co-1", scope, []models.ReservationLine{{Barcode: "100", Quantity: 1}, {Barcode: "100", Quantity: 2}}))
	assert.Equal(t, 2, stockOf(t, s, "100"))
}

func TestReleaseRestoresAppliedLines(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	seed(t, s, "100", "1", 5)
	seed(t, s, "200", "1", 5)

	require.NoError(t, store.CreateReservation(ctx, &models.StockReservation{
		CheckoutID: "co-1",
		Scope:      scope,
		Lines:      []models.ReservationLine{{Barcode: "100", Quantity: 2}, {Barcode: "200", Quantity: 1}},
	}))
	require.NoError(t, store.Decrement(ctx, scope, "100", 2))
	require.NoError(t, store.SetApplied(ctx, "co-1", "100", true))

	require.NoError(t, s.Release(ctx, "co-1"))
	assert.Equal(t, 5, stockOf(t, s, "100"))
	assert.Equal(t, 5, stockOf(t, s, "200"))
	require.NoError(t, s.Release(ctx, "co-1"))
	assert.Equal(t, 5, stockOf(t, s, "100"))
}
