package order

import "time"

// Payment status values stored on an order row. Orders only come out of
// payment reconciliation, so they are written PAID, carrying the gateway
// reference, in the same transaction that creates them.
const (
	StatusPaid = "PAID"
)

// Order represents a confirmed purchase made by a user.
type Order struct {
	OrderID        int       `json:"orderID"`
	UserID         int       `json:"userID"`
	DeliveryMethod string    `json:"deliveryMethod"`
	Address        *string   `json:"address"`
	PaymentMethod  string    `json:"paymentMethod"`
	PaymentStatus  string    `json:"paymentStatus"`
	PaymentRef     *string   `json:"paymentRef,omitempty"`
	Total          float64   `json:"total"`
	CreatedAt      time.Time `json:"createdAt"`
}

// OrderItem records one line of an order. PriceAtPurchase is the unit
// price the buyer saw at checkout, not the current catalog price.
type OrderItem struct {
	OrderID         int     `json:"orderID"`
	ProductID       int     `json:"productID"`
	ProductName     string  `json:"productName"`
	Quantity        int     `json:"quantity"`
	PriceAtPurchase float64 `json:"priceAtPurchase"`
}
