package domain

import (
	"errors"
	"time"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusOnHold     OrderStatus = "on-hold"
	StatusProcessing OrderStatus = "processing"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
	StatusFailed     OrderStatus = "failed"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderItem struct {
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

// Note is one entry in an order's append-only audit trail. Customer-visible
// notes are surfaced on the order screen; the rest are internal.
type Note struct {
	Text            string    `json:"text"`
	CustomerVisible bool      `json:"customerVisible"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Order struct {
	ID              int64             `json:"id"`
	Total           float64           `json:"total"`
	Currency        string            `json:"currency"`
	Status          OrderStatus       `json:"status"`
	PaymentMethod   string            `json:"paymentMethod"`
	BillingPhone    string            `json:"billingPhone,omitempty"`
	BillingEmail    string            `json:"billingEmail,omitempty"`
	Items           []OrderItem       `json:"items,omitempty"`
	Notes           []Note            `json:"notes,omitempty"`
	Meta            map[string]string `json:"meta,omitempty"`
	PaymentComplete bool              `json:"paymentComplete"`
	CheckoutURL     string            `json:"checkoutUrl,omitempty"`
	CancelURL       string            `json:"cancelUrl,omitempty"`
	ReturnURL       string            `json:"returnUrl,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}
