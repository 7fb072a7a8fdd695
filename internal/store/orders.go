package store

import (
	"context"
	"database/sql"
	"fmt"

	"rewear/internal/models"

	"github.com/lib/pq"
)

// CreateOrder inserts a new order and its first timeline row in one
// transaction. Duplicate idempotency keys return ErrDuplicate.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (buyer_id, seller_id, item_id, payment_method, item_price,
		                    shipping_cost, total_amount, status, provider_order_id,
		                    ship_name, ship_line1, ship_city, ship_state, ship_pincode,
		                    idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowxContext(ctx, query,
		order.BuyerID, order.SellerID, order.ItemID, order.PaymentMethod, order.ItemPrice,
		order.ShippingCost, order.TotalAmount, order.Status, order.ProviderOrderID,
		order.ShipName, order.ShipLine1, order.ShipCity, order.ShipState, order.ShipPincode,
		order.IdempotencyKey).
		Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO order_timeline (order_id, status, note) VALUES ($1, $2, $3)",
		order.ID, order.Status, "order created")
	if err != nil {
		return fmt.Errorf("failed to append timeline: %w", err)
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key; a nil
// order means the key is unused.
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrdersByUser retrieves orders where the user is buyer or seller
func (s *Store) ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY created_at DESC`, userID)
	return orders, err
}

// TransitionOrder moves an order between statuses with one conditional
// update and appends the timeline row in the same transaction. A hop
// outside the order lifecycle, or zero matched rows, returns
// ErrConflict.
func (s *Store) TransitionOrder(ctx context.Context, orderID int64, from, to, note string) error {
	if !models.OrderCanTransition(from, to) {
		return ErrConflict
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		to, orderID, from)
	if err != nil {
		return fmt.Errorf("failed to transition order: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrConflict
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO order_timeline (order_id, status, note) VALUES ($1, $2, $3)",
		orderID, to, note)
	if err != nil {
		return fmt.Errorf("failed to append timeline: %w", err)
	}

	return tx.Commit()
}

// SetProviderOrderID stores the remote payment-provider order id
func (s *Store) SetProviderOrderID(ctx context.Context, orderID int64, providerOrderID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET provider_order_id = $1, updated_at = NOW() WHERE id = $2",
		providerOrderID, orderID)
	return err
}

// DeleteOrder removes an order that never reached payment (compensation)
func (s *Store) DeleteOrder(ctx context.Context, orderID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM orders WHERE id = $1 AND status = 'pending'", orderID)
	return err
}

// GetOrderTimeline retrieves the status history of an order
func (s *Store) GetOrderTimeline(ctx context.Context, orderID int64) ([]models.TimelineEntry, error) {
	var entries []models.TimelineEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM order_timeline WHERE order_id = $1 ORDER BY created_at", orderID)
	return entries, err
}

// CountOrders returns the total number of orders
func (s *Store) CountOrders(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM orders")
	return n, err
}

// CreatePayment creates a new payment record
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (order_id, method, status, amount, provider_order_id, provider_payment_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, payment, query,
		payment.OrderID, payment.Method, payment.Status, payment.Amount,
		payment.ProviderOrderID, payment.ProviderPaymentID)
}

// GetPaymentByOrderID retrieves the latest payment for an order
func (s *Store) GetPaymentByOrderID(ctx context.Context, orderID int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1", orderID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdatePaymentStatus updates payment status and the provider payment id
func (s *Store) UpdatePaymentStatus(ctx context.Context, paymentID int64, status, providerPaymentID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE payments SET status = $1, provider_payment_id = $2, updated_at = NOW() WHERE id = $3",
		status, providerPaymentID, paymentID)
	return err
}
