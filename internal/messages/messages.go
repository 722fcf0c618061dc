// Package messages defines the broker contract between the gateway and the
// services: one typed request per pattern, validated before any handler runs.
package messages

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"toadvault/internal/models"
)

const (
	PatternOrder         = "order"
	PatternGetOrder      = "get_order"
	PatternRemoveItem    = "remove_item"
	PatternCancelOrder   = "cancel_order"
	PatternSettleOrder   = "settle_order"
	PatternRestoreOrder  = "restore_order"
	PatternCompleteOrder = "complete_order"
	PatternListSettling  = "list_settling_orders"

	PatternPayment              = "payment"
	PatternGetPaymentByCheckout = "get_payment_by_checkout"
	PatternListPayments         = "list_payments"

	PatternAddNewItem       = "add_new_item"
	PatternGetInventory     = "get_inventory"
	PatternGetItemByBarcode = "get_item_by_barcode"
	PatternGetItemForOrder  = "get_item_by_barcode_for_order"
	PatternUpdateItem       = "update_item"
	PatternReserveStock     = "reserve_stock"
	PatternReleaseStock     = "release_stock"
	PatternCommitStock      = "commit_stock"

	PatternAddProduct    = "add_product"
	PatternGetProducts   = "get_products"
	PatternGetProduct    = "get_product"
	PatternUpdateProduct = "update_product"

	PatternRegister = "register"
	PatternLogin    = "login"
)

/* =========================
   ORDERS
========================= */

// ItemData is the inventory snapshot folded into an order. Stock is the
// inventory's available stock, not a requested quantity.
type ItemData struct {
	Barcode string          `json:"barcode" validate:"required"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	Stock   int             `json:"stock"`
}

type OrderRequest struct {
	UserID   string   `json:"user_id" validate:"required"`
	ItemData ItemData `json:"item_data"`
}

type UserRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type RemoveItemRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Barcode string `json:"barcode" validate:"required"`
}

type SettleOrderRequest struct {
	UserID     string `json:"user_id" validate:"required"`
	CheckoutID string `json:"checkout_id" validate:"required"`
	Version    int64  `json:"version"`
}

type CheckoutOrderRequest struct {
	UserID     string `json:"user_id" validate:"required"`
	CheckoutID string `json:"checkout_id" validate:"required"`
}

type ListSettlingRequest struct {
	OlderThan time.Time `json:"older_than" validate:"required"`
}

type OrderReply struct {
	Order *models.Order `json:"order,omitempty"`
}

type OrdersReply struct {
	Orders []models.Order `json:"orders"`
}

/* =========================
   PAYMENTS
========================= */

// PaymentData keeps cash raw so a non-numeric tender can be told apart from
// a missing one.
type PaymentData struct {
	Cash json.RawMessage `json:"cash"`
}

type PaymentRequest struct {
	UserID      string       `json:"user_id" validate:"required"`
	CheckoutID  string       `json:"checkout_id" validate:"required"`
	PaymentData PaymentData  `json:"payment_data"`
	Order       models.Order `json:"order"`
}

type CheckoutRequest struct {
	CheckoutID string `json:"checkout_id" validate:"required"`
}

type PaymentReply struct {
	Payment *models.Payment  `json:"payment,omitempty"`
	Change  *decimal.Decimal `json:"change,omitempty"`
}

type PaymentsReply struct {
	Payments []models.Payment `json:"payments"`
}

/* =========================
   INVENTORY
========================= */

type NewItemData struct {
	Barcode string          `json:"barcode" validate:"required,numeric"`
	Name    string          `json:"name" validate:"required"`
	Price   decimal.Decimal `json:"price"`
	Stock   int             `json:"stock" validate:"gte=0"`
}

type AddItemRequest struct {
	Scope    string      `json:"scope" validate:"required"`
	ItemData NewItemData `json:"item_data"`
}

type ScopeRequest struct {
	Scope string `json:"scope" validate:"required"`
}

type ItemRequest struct {
	Scope   string `json:"scope" validate:"required"`
	Barcode string `json:"barcode" validate:"required"`
}

type ItemPatch struct {
	Name  *string          `json:"name,omitempty"`
	Price *decimal.Decimal `json:"price,omitempty"`
	Stock *int             `json:"stock,omitempty"`
}

type UpdateItemRequest struct {
	Scope   string    `json:"scope" validate:"required"`
	Barcode string    `json:"barcode" validate:"required"`
	Patch   ItemPatch `json:"patch"`
}

type StockRequest struct {
	CheckoutID string                   `json:"checkout_id" validate:"required"`
	Scope      string                   `json:"scope"`
	Lines      []models.ReservationLine `json:"lines" validate:"dive"`
}

type ItemReply struct {
	Item *models.InventoryItem `json:"item,omitempty"`
}

type ItemsReply struct {
	Items []models.InventoryItem `json:"items"`
}

/* =========================
   PRODUCTS
========================= */

type ProductData struct {
	Barcode     string           `json:"barcode" validate:"required,numeric"`
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	CategoryID  string           `json:"category_id"`
	Variants    []models.Variant `json:"variants" validate:"dive"`
}

type AddProductRequest struct {
	Product ProductData `json:"product"`
}

type GetProductsRequest struct {
	Page  int64 `json:"page" validate:"gte=0"`
	Limit int64 `json:"limit" validate:"gte=0,lte=100"`
}

type GetProductRequest struct {
	Ref string `json:"ref" validate:"required"`
}

type UpdateProductRequest struct {
	ID      string      `json:"id" validate:"required"`
	Product ProductData `json:"product"`
}

type ProductReply struct {
	Product *models.Product `json:"product,omitempty"`
}

type ProductsReply struct {
	Products   []models.Product `json:"products"`
	Page       int64            `json:"page"`
	Limit      int64            `json:"limit"`
	Total      int64            `json:"total"`
	TotalPages int64            `json:"totalPages"`
}

/* =========================
   USERS
========================= */

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserReply struct {
	User  *models.User `json:"user,omitempty"`
	Token string       `json:"token,omitempty"`
}
