package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Variant struct {
	Name string `bson:"name" json:"name" validate:"required"`
}

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Barcode     string             `bson:"barcode" json:"barcode"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CategoryID  string             `bson:"categoryId,omitempty" json:"categoryId,omitempty"`
	Variants    []Variant          `bson:"variants" json:"variants"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
