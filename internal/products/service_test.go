package products

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toadvault/internal/apperr"
	"toadvault/internal/logger"
	"toadvault/internal/models"
)

func newTestService() *Service {
	s := NewService(NewMemoryStore(), logger.Nop())
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return s
}

func TestAddProduct(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	p, err := s.AddProduct(ctx, Input{Barcode: " 4006 ", Name: "Toad figure", Variants: []models.Variant{{Name: " green "}}})
	require.NoError(t, err)
	assert.Equal(t, "4006", p.Barcode)
	assert.Equal(t, "green", p.Variants[0].Name)
	assert.False(t, p.ID.IsZero())

	_, err = s.AddProduct(ctx, Input{Barcode: "4006", Name: "Copy"})
	assert.True(t, apperr.Is(err, "product_exists"))
	assert.Equal(t, 409, apperr.From(err).Status)

	_, err = s.AddProduct(ctx, Input{Barcode: "40x", Name: "Bad"})
	assert.True(t, apperr.Is(err, "invalid_barcode"))
	_, err = s.AddProduct(ctx, Input{Barcode: "41", Name: "Bad", Variants: []models.Variant{{Name: ""}}})
	assert.True(t, apperr.Is(err, "invalid_variant"))
}

func TestGetProductsPagesNewestFirst(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		_, err := s.AddProduct(ctx, Input{Barcode: fmt.Sprintf("%d", i), Name: fmt.Sprintf("p%d", i)})
		require.NoError(t, err)
	}

	page, err := s.GetProducts(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, int64(3), page.TotalPages)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "5", page.Products[0].Barcode)

	last, err := s.GetProducts(ctx, 3, 2)
	require.NoError(t, err)
	require.Len(t, last.Products, 1)
	assert.Equal(t, "1", last.Products[0].Barcode)

	beyond, err := s.GetProducts(ctx, 9, 2)
	require.NoError(t, err)
	assert.Empty(t, beyond.Products)

	defaults, err := s.GetProducts(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), defaults.Page)
	assert.Equal(t, int64(defaultLimit), defaults.Limit)
}

func TestGetProductByBarcodeOrID(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	p, err := s.AddProduct(ctx, Input{Barcode: "777", Name: "Lucky"})
	require.NoError(t, err)

	byID, err := s.GetProductByBarcodeOrID(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "777", byID.Barcode)

	byBarcode, err := s.GetProductByBarcodeOrID(ctx, "777")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byBarcode.ID)

	_, err = s.GetProductByBarcodeOrID(ctx, "000")
	assert.True(t, apperr.Is(err, "product_not_found"))
}

func TestUpdateProduct(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	p, err := s.AddProduct(ctx, Input{Barcode: "1", Name: "One"})
	require.NoError(t, err)
	_, err = s.AddProduct(ctx, Input{Barcode: "2", Name: "Two"})
	require.NoError(t, err)

	updated, err := s.UpdateProduct(ctx, p.ID.Hex(), Input{Barcode: "1", Name: "Uno"})
	require.NoError(t, err)
	assert.Equal(t, "Uno", updated.Name)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	_, err = s.UpdateProduct(ctx, p.ID.Hex(), Input{Barcode: "2", Name: "Clash"})
	assert.True(t, apperr.Is(err, "product_exists"))

	_, err = s.UpdateProduct(ctx, "65f000000000000000000000", Input{Barcode: "3", Name: "Ghost"})
	assert.True(t, apperr.Is(err, "product_not_found"))

	_, err = s.UpdateProduct(ctx, "nope", Input{Barcode: "3", Name: "Ghost"})
	assert.True(t, apperr.Is(err, "invalid_id"))
}
