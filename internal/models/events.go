package models

import "time"

// Event types
const (
	EventTypeOrderCreated    = "ORDER_CREATED"
	EventTypeOrderPaid       = "ORDER_PAID"
	EventTypeOrderCancelled  = "ORDER_CANCELLED"
	EventTypePaymentCaptured = "PAYMENT_CAPTURED"
	EventTypePaymentFailed   = "PAYMENT_FAILED"
	EventTypeItemSold        = "ITEM_SOLD"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when checkout creates an order
type OrderCreatedEvent struct {
	BaseEvent
	OrderID       int64  `json:"order_id"`
	BuyerID       int64  `json:"buyer_id"`
	ItemID        int64  `json:"item_id"`
	PaymentMethod string `json:"payment_method"`
	TotalAmount   int64  `json:"total_amount"`
}

// PaymentCapturedEvent published once a payment is verified or points
// are deducted; the settlement worker uses it as the retry path.
type PaymentCapturedEvent struct {
	BaseEvent
	OrderID           int64  `json:"order_id"`
	PaymentID         int64  `json:"payment_id"`
	Amount            int64  `json:"amount"`
	Method            string `json:"method"`
	ProviderPaymentID string `json:"provider_payment_id,omitempty"`
}

// PaymentFailedEvent published when verification or deduction fails
type PaymentFailedEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	PaymentID int64  `json:"payment_id"`
	Reason    string `json:"reason"`
}

// OrderPaidEvent published after settlement completes
type OrderPaidEvent struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
	BuyerID int64 `json:"buyer_id"`
	ItemID  int64 `json:"item_id"`
}

// OrderCancelledEvent published on buyer cancel or compensation
type OrderCancelledEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason"`
}

// ItemSoldEvent published when a listing reaches its terminal sold state
type ItemSoldEvent struct {
	BaseEvent
	ItemID   int64 `json:"item_id"`
	SellerID int64 `json:"seller_id"`
	BuyerID  int64 `json:"buyer_id"`
	Price    int64 `json:"price"`
}
