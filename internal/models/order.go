package models

import (
	"time"

	"github.com/google/uuid"
)

// Order lifecycle statuses.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Shipping sub-statuses reported by or derived from the carrier.
const (
	ShippingStatusProcessing = "Processing"
	ShippingStatusShipped    = "shipped"
	ShippingStatusFailed     = "Failed"
)

// Payment methods.
const (
	PaymentMethodCOD    = "cod"
	PaymentMethodOnline = "online"
)

// Replacement request statuses.
const (
	ReplacementStatusPending   = "pending"
	ReplacementStatusApproved  = "approved"
	ReplacementStatusRejected  = "rejected"
	ReplacementStatusCompleted = "completed"
)

type Order struct {
	BaseModel
	// OrderNumber is the human-readable identifier handed to customers and
	// the carrier; lookups accept either it or the primary key.
	OrderNumber string      `gorm:"uniqueIndex" json:"order_number"`
	UserID      uuid.UUID   `gorm:"type:uuid;index" json:"user_id"`
	User        *User       `json:"user,omitempty"`
	Status      string      `gorm:"default:pending" json:"status"`
	Items       []OrderItem `json:"items,omitempty"`

	Subtotal     float64 `json:"subtotal"`
	Discount     float64 `json:"discount"`
	CodCharge    float64 `json:"cod_charge"`
	Total        float64 `json:"total"`
	DiscountCode string  `json:"discount_code"`

	Payment      PaymentInfo      `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`
	Address      ShippingAddress  `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	Shipping     ShippingInfo     `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping"`
	Cancellation CancellationInfo `gorm:"embedded;embeddedPrefix:cancel_" json:"cancellation"`
	Replacement  ReplacementInfo  `gorm:"embedded;embeddedPrefix:repl_" json:"replacement"`
}

type OrderItem struct {
	BaseModel
	OrderID   uuid.UUID  `gorm:"type:uuid;index" json:"order_id"`
	ProductID *uuid.UUID `gorm:"type:uuid" json:"product_id"`
	SKU       string     `json:"sku"`
	Name      string     `json:"name"`
	Price     float64    `json:"price"`
	Quantity  int        `json:"quantity"`
	Color     string     `json:"color"`
	Size      string     `json:"size"`
	Image     string     `json:"image"`
}

type PaymentInfo struct {
	Method    string `json:"method"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

type ShippingAddress struct {
	Name         string `json:"name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
}

type ShippingInfo struct {
	ShipmentID           string     `json:"shipment_id"`
	ShiprocketOrderID    string     `gorm:"index" json:"shiprocket_order_id"`
	AWBCode              string     `json:"awb_code"`
	Courier              string     `json:"courier"`
	CourierID            string     `json:"courier_id"`
	Status               string     `json:"status"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
	PickupScheduledDate  *time.Time `json:"pickup_scheduled_date"`
	DeliveredAt          *time.Time `json:"delivered_at"`
}

type CancellationInfo struct {
	Requested   bool       `json:"requested"`
	RequestedAt *time.Time `json:"requested_at"`
	Reason      string     `json:"reason"`
	AdminReason string     `json:"admin_reason"`
	CancelledAt *time.Time `json:"cancelled_at"`
}

type ReplacementInfo struct {
	Requested         bool       `json:"requested"`
	RequestedAt       *time.Time `json:"requested_at"`
	Status            string     `json:"status"`
	Reason            string     `json:"reason"`
	AdminNotes        string     `json:"admin_notes"`
	ApprovedAt        *time.Time `json:"approved_at"`
	RejectedAt        *time.Time `json:"rejected_at"`
	RejectionReason   string     `json:"rejection_reason"`
	CompletedAt       *time.Time `json:"completed_at"`
	ShipmentID        string     `json:"shipment_id"`
	ShiprocketOrderID string     `json:"shiprocket_order_id"`
	Courier           string     `json:"courier"`
}
