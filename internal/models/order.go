package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderSettling OrderStatus = "settling"
)

// OrderLineItem is one barcode's entry within an order. Name and unit price
// are copied from the inventory item when the line is first added.
type OrderLineItem struct {
	Barcode    string          `bson:"barcode" json:"barcode"`
	Name       string          `bson:"name" json:"name"`
	UnitPrice  decimal.Decimal `bson:"unitPrice" json:"unitPrice"`
	Quantity   int             `bson:"quantity" json:"quantity"`
	TotalPrice decimal.Decimal `bson:"totalPrice" json:"totalPrice"`
}

// Order is the single pending cart of a user. Version increases on every
// write and guards concurrent read-modify-write cycles.
type Order struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"userId" json:"userId"`
	Items      []OrderLineItem    `bson:"items" json:"items"`
	Total      decimal.Decimal    `bson:"total" json:"total"`
	Status     OrderStatus        `bson:"status" json:"status"`
	CheckoutID string             `bson:"checkoutId,omitempty" json:"checkoutId,omitempty"`
	Version    int64              `bson:"version" json:"version"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func NewLineItem(barcode, name string, unitPrice decimal.Decimal) OrderLineItem {
	return OrderLineItem{
		Barcode:    barcode,
		Name:       name,
		UnitPrice:  unitPrice,
		Quantity:   1,
		TotalPrice: unitPrice,
	}
}

// LineIndex returns the position of the line for barcode, or -1.
func (o *Order) LineIndex(barcode string) int {
	for i, item := range o.Items {
		if item.Barcode == barcode {
			return i
		}
	}
	return -1
}

// Recalculate refreshes every line total and the order total.
func (o *Order) Recalculate() {
	total := decimal.Zero
	for i := range o.Items {
		o.Items[i].TotalPrice = LineTotal(o.Items[i].UnitPrice, o.Items[i].Quantity)
		total = total.Add(o.Items[i].TotalPrice)
	}
	o.Total = total
}

// Clone returns a deep copy so callers can mutate without touching a stored
// snapshot.
func (o Order) Clone() Order {
	out := o
	out.Items = append([]OrderLineItem(nil), o.Items...)
	if out.Items == nil {
		out.Items = []OrderLineItem{}
	}
	return out
}
