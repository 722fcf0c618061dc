package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment is the immutable record of a completed checkout.
type Payment struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"userId" json:"userId"`
	CheckoutID string             `bson:"checkoutId" json:"checkoutId"`
	Items      []OrderLineItem    `bson:"items" json:"items"`
	Amount     decimal.Decimal    `bson:"amount" json:"amount"`
	Cash       decimal.Decimal    `bson:"cash" json:"cash"`
	Change     decimal.Decimal    `bson:"change" json:"change"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}
