package models

import (
	"time"

	"github.com/lib/pq"
)

// User represents a registered account
type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Phone        string    `db:"phone" json:"phone"`
	Role         string    `db:"role" json:"role"`
	Points       int64     `db:"points" json:"points"`
	EarnedPoints int64     `db:"earned_points" json:"earned_points"`
	Level        string    `db:"level" json:"level"`
	RatingAvg    float64   `db:"rating_avg" json:"rating_avg"`
	RatingCount  int       `db:"rating_count" json:"rating_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Item represents a clothing listing
type Item struct {
	ID              int64          `db:"id" json:"id"`
	SellerID        int64          `db:"seller_id" json:"seller_id"`
	Title           string         `db:"title" json:"title"`
	Description     string         `db:"description" json:"description"`
	Category        string         `db:"category" json:"category"`
	Size            string         `db:"size" json:"size"`
	Condition       string         `db:"condition" json:"condition"`
	Price           int64          `db:"price" json:"price"`
	Images          pq.StringArray `db:"images" json:"images"`
	Status          string         `db:"status" json:"status"`
	QualityBadge    string         `db:"quality_badge" json:"quality_badge"`
	BadgeLocked     bool           `db:"badge_locked" json:"-"`
	RejectionReason string         `db:"rejection_reason" json:"rejection_reason,omitempty"`
	Likes           int            `db:"likes" json:"likes"`
	ReservedBy      *int64         `db:"reserved_by" json:"reserved_by,omitempty"`
	ReservedUntil   *time.Time     `db:"reserved_until" json:"reserved_until,omitempty"`
	SoldTo          *int64         `db:"sold_to" json:"sold_to,omitempty"`
	SoldAt          *time.Time     `db:"sold_at" json:"sold_at,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// Order links a buyer, a seller and one item
type Order struct {
	ID              int64     `db:"id" json:"id"`
	BuyerID         int64     `db:"buyer_id" json:"buyer_id"`
	SellerID        int64     `db:"seller_id" json:"seller_id"`
	ItemID          int64     `db:"item_id" json:"item_id"`
	PaymentMethod   string    `db:"payment_method" json:"payment_method"`
	ItemPrice       int64     `db:"item_price" json:"item_price"`
	ShippingCost    int64     `db:"shipping_cost" json:"shipping_cost"`
	TotalAmount     int64     `db:"total_amount" json:"total_amount"`
	Status          string    `db:"status" json:"status"`
	ProviderOrderID string    `db:"provider_order_id" json:"provider_order_id,omitempty"`
	ShipName        string    `db:"ship_name" json:"ship_name"`
	ShipLine1       string    `db:"ship_line1" json:"ship_line1"`
	ShipCity        string    `db:"ship_city" json:"ship_city"`
	ShipState       string    `db:"ship_state" json:"ship_state"`
	ShipPincode     string    `db:"ship_pincode" json:"ship_pincode"`
	IdempotencyKey  *string   `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// TimelineEntry is one status-change record of an order
type TimelineEntry struct {
	ID        int64     `db:"id" json:"id"`
	OrderID   int64     `db:"order_id" json:"order_id"`
	Status    string    `db:"status" json:"status"`
	Note      string    `db:"note" json:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Payment represents a payment attempt for an order
type Payment struct {
	ID                int64     `db:"id" json:"id"`
	OrderID           int64     `db:"order_id" json:"order_id"`
	Method            string    `db:"method" json:"method"`
	Status            string    `db:"status" json:"status"`
	Amount            int64     `db:"amount" json:"amount"`
	ProviderOrderID   string    `db:"provider_order_id" json:"provider_order_id,omitempty"`
	ProviderPaymentID string    `db:"provider_payment_id" json:"provider_payment_id,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// PointTransaction is one append-only ledger row; the user's balance
// and the row are written in a single database transaction.
type PointTransaction struct {
	ID           int64      `db:"id" json:"id"`
	UserID       int64      `db:"user_id" json:"user_id"`
	Points       int64      `db:"points" json:"points"`
	Type         string     `db:"type" json:"type"`
	Reason       string     `db:"reason" json:"reason"`
	BalanceAfter int64      `db:"balance_after" json:"balance_after"`
	IdemKey      *string    `db:"idem_key" json:"-"`
	ExpiresAt    *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// Review is a buyer<->seller rating tied to a delivered order
type Review struct {
	ID         int64     `db:"id" json:"id"`
	OrderID    int64     `db:"order_id" json:"order_id"`
	ReviewerID int64     `db:"reviewer_id" json:"reviewer_id"`
	RevieweeID int64     `db:"reviewee_id" json:"reviewee_id"`
	Rating     int       `db:"rating" json:"rating"`
	Comment    string    `db:"comment" json:"comment"`
	Status     string    `db:"status" json:"status"`
	Response   string    `db:"response" json:"response,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// WishlistEntry is one saved item on a user's wishlist
type WishlistEntry struct {
	UserID  int64     `db:"user_id" json:"user_id"`
	ItemID  int64     `db:"item_id" json:"item_id"`
	Notes   string    `db:"notes" json:"notes,omitempty"`
	AddedAt time.Time `db:"added_at" json:"added_at"`
}

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Item statuses
const (
	ItemStatusDraft    = "draft"
	ItemStatusPending  = "pending"
	ItemStatusRejected = "rejected"
	ItemStatusActive   = "active"
	ItemStatusReserved = "reserved"
	ItemStatusSold     = "sold"
	ItemStatusFlagged  = "flagged"
	ItemStatusInactive = "inactive"
)

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
	OrderStatusRefunded  = "refunded"
)

// Payment methods and statuses
const (
	PaymentMethodRazorpay = "razorpay"
	PaymentMethodPoints   = "points"

	PaymentStatusPending = "PENDING"
	PaymentStatusSuccess = "SUCCESS"
	PaymentStatusFailed  = "FAILED"
)

// Point transaction types
const (
	PointTypeEarned     = "earned"
	PointTypeSpent      = "spent"
	PointTypeRefund     = "refund"
	PointTypeAdminGrant = "admin_grant"
)

// Quality badges
const (
	BadgeBasic   = "basic"
	BadgeMedium  = "medium"
	BadgeHigh    = "high"
	BadgePremium = "premium"
)

// Review statuses
const (
	ReviewStatusVisible = "visible"
	ReviewStatusHidden  = "hidden"
)

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

// BadgeForCondition derives the quality badge from a listing condition.
// Unknown conditions fall back to basic.
func BadgeForCondition(condition string) string {
	switch condition {
	case "Like New":
		return BadgePremium
	case "Excellent":
		return BadgeHigh
	case "Good":
		return BadgeMedium
	case "Fair":
		return BadgeBasic
	default:
		return BadgeBasic
	}
}

// LevelForPoints derives the user tier from lifetime earned points.
func LevelForPoints(earned int64) string {
	switch {
	case earned >= 20000:
		return "platinum"
	case earned >= 5000:
		return "gold"
	case earned >= 1000:
		return "silver"
	default:
		return "bronze"
	}
}

var itemTransitions = map[string][]string{
	ItemStatusDraft:    {ItemStatusPending},
	ItemStatusPending:  {ItemStatusActive, ItemStatusRejected},
	ItemStatusRejected: {ItemStatusPending},
	ItemStatusActive:   {ItemStatusReserved, ItemStatusFlagged, ItemStatusInactive},
	ItemStatusReserved: {ItemStatusSold, ItemStatusActive},
	ItemStatusFlagged:  {ItemStatusInactive, ItemStatusActive},
	ItemStatusInactive: {ItemStatusActive},
}

var orderTransitions = map[string][]string{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusShipped, OrderStatusRefunded},
	OrderStatusShipped:   {OrderStatusDelivered},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
	OrderStatusRefunded:  {},
}

// ItemCanTransition reports whether an item may move between two statuses.
func ItemCanTransition(from, to string) bool {
	for _, s := range itemTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// OrderCanTransition reports whether an order may move between two statuses.
func OrderCanTransition(from, to string) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
