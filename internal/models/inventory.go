package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InventoryItem is one stocked barcode inside an owner scope.
type InventoryItem struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Scope     string             `bson:"scope" json:"scope"`
	Barcode   string             `bson:"barcode" json:"barcode"`
	Name      string             `bson:"name" json:"name"`
	Price     decimal.Decimal    `bson:"price" json:"price"`
	Stock     int                `bson:"stock" json:"stock"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// UserScope builds the partition key of the inventory collection. Stores
// are user accounts, so a store's inventory lives under its owner's scope.
func UserScope(userID string) string {
	return "user:" + strings.TrimSpace(userID)
}

type ReservationLine struct {
	Barcode  string `bson:"barcode" json:"barcode" validate:"required"`
	Quantity int    `bson:"quantity" json:"quantity" validate:"gte=1"`
}

// StockReservation records the stock a checkout took. Applied lists the
// barcodes whose decrement has already been written.
type StockReservation struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CheckoutID string             `bson:"checkoutId" json:"checkoutId"`
	Scope      string             `bson:"scope" json:"scope"`
	Lines      []ReservationLine  `bson:"lines" json:"lines"`
	Applied    []string           `bson:"applied" json:"applied"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

func (r *StockReservation) IsApplied(barcode string) bool {
	for _, b := range r.Applied {
		if b == barcode {
			return true
		}
	}
	return false
}
