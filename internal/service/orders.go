package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rewear/config"
	"rewear/internal/broker"
	"rewear/internal/models"
	"rewear/internal/redisclient"
	"rewear/internal/store"
	"rewear/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrItemUnavailable    = errors.New("item is not available for purchase")
	ErrOwnItem            = errors.New("cannot buy your own listing")
	ErrNotParticipant     = errors.New("not a participant of this order")
	ErrInvalidSignature   = errors.New("payment signature verification failed")
	ErrInsufficientPoints = store.ErrInsufficientPoints
)

// OrderService handles checkout and the order lifecycle
type OrderService struct {
	store      *store.Store
	redis      *redisclient.Client
	points     *PointsService
	provider   *ProviderClient
	settlement *SettlementService
	publisher  *broker.EventPublisher
	cfg        *config.Config
	logger     *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	st *store.Store,
	redis *redisclient.Client,
	points *PointsService,
	provider *ProviderClient,
	settlement *SettlementService,
	publisher *broker.EventPublisher,
	cfg *config.Config,
) *OrderService {
	return &OrderService{
		store:      st,
		redis:      redis,
		points:     points,
		provider:   provider,
		settlement: settlement,
		publisher:  publisher,
		cfg:        cfg,
		logger:     util.GetLogger(),
	}
}

// ShippingAddress is the delivery address of a checkout
type ShippingAddress struct {
	Name    string `json:"name" binding:"required"`
	Line1   string `json:"line1" binding:"required"`
	City    string `json:"city" binding:"required"`
	State   string `json:"state" binding:"required"`
	Pincode string `json:"pincode" binding:"required"`
}

// CreateOrderRequest is a checkout submission
type CreateOrderRequest struct {
	ItemID          int64           `json:"item_id" binding:"required"`
	ShippingAddress ShippingAddress `json:"shipping_address" binding:"required"`
	PaymentMethod   string          `json:"payment_method" binding:"required,oneof=razorpay points"`
	IdempotencyKey  string          `json:"idempotency_key,omitempty"`
}

// CreateOrderResponse is returned after checkout
type CreateOrderResponse struct {
	OrderID     int64           `json:"order_id"`
	Status      string          `json:"status"`
	TotalAmount int64           `json:"total_amount"`
	Checkout    *CheckoutParams `json:"checkout,omitempty"`
}

// CheckoutParams are handed to the card checkout frontend
type CheckoutParams struct {
	KeyID           string `json:"key_id"`
	ProviderOrderID string `json:"provider_order_id"`
	AmountPaise     int64  `json:"amount_paise"`
	Currency        string `json:"currency"`
}

// CreateOrder runs checkout: reserve the item, create the order, then
// branch on the payment method. Failures after the reservation are
// compensated by deleting the order and releasing the hold.
func (s *OrderService) CreateOrder(ctx context.Context, buyerID int64, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	existing, err := s.store.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		s.logger.Info("Duplicate checkout request",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("order_id", existing.ID))
		return &CreateOrderResponse{
			OrderID:     existing.ID,
			Status:      existing.Status,
			TotalAmount: existing.TotalAmount,
		}, nil
	}

	item, err := s.store.GetItemByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item.SellerID == buyerID {
		util.OrdersFailedTotal.WithLabelValues("own_item").Inc()
		return nil, ErrOwnItem
	}

	ttl := s.cfg.Business.ReservationTTL

	// Redis is the fast path; the conditional update below is the
	// source of truth.
	held, err := s.redis.HoldItem(ctx, item.ID, buyerID, ttl)
	if err != nil {
		s.logger.Warn("Redis hold failed, relying on database reservation",
			zap.Int64("item_id", item.ID), zap.Error(err))
	} else if !held {
		util.ReservationsFailed.WithLabelValues("held_by_other").Inc()
		return nil, ErrItemUnavailable
	}

	item, err = s.store.ReserveItem(ctx, item.ID, buyerID, int(ttl.Seconds()))
	if errors.Is(err, store.ErrConflict) {
		_ = s.redis.ReleaseHold(ctx, req.ItemID, buyerID)
		util.ReservationsFailed.WithLabelValues("not_active").Inc()
		return nil, ErrItemUnavailable
	}
	if err != nil {
		_ = s.redis.ReleaseHold(ctx, req.ItemID, buyerID)
		return nil, fmt.Errorf("failed to reserve item: %w", err)
	}
	util.ReservationsTotal.Inc()
	_ = s.redis.InvalidateListing(ctx, item.ID)

	total := item.Price + s.cfg.Business.ShippingCost
	order := &models.Order{
		BuyerID:        buyerID,
		SellerID:       item.SellerID,
		ItemID:         item.ID,
		PaymentMethod:  req.PaymentMethod,
		ItemPrice:      item.Price,
		ShippingCost:   s.cfg.Business.ShippingCost,
		TotalAmount:    total,
		Status:         models.OrderStatusPending,
		ShipName:       req.ShippingAddress.Name,
		ShipLine1:      req.ShippingAddress.Line1,
		ShipCity:       req.ShippingAddress.City,
		ShipState:      req.ShippingAddress.State,
		ShipPincode:    req.ShippingAddress.Pincode,
		IdempotencyKey: &req.IdempotencyKey,
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		s.releaseHold(ctx, item.ID, buyerID)
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.WithLabelValues(req.PaymentMethod).Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("item_id", item.ID),
		zap.String("payment_method", req.PaymentMethod))

	if err := s.publisher.PublishOrderCreated(ctx, &models.OrderCreatedEvent{
		BaseEvent:     s.baseEvent(models.EventTypeOrderCreated),
		OrderID:       order.ID,
		BuyerID:       buyerID,
		ItemID:        item.ID,
		PaymentMethod: req.PaymentMethod,
		TotalAmount:   total,
	}); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	switch req.PaymentMethod {
	case models.PaymentMethodPoints:
		return s.payWithPoints(ctx, order)
	default:
		return s.startCardPayment(ctx, order)
	}
}

// startCardPayment creates the remote provider order and returns the
// parameters the checkout frontend needs.
func (s *OrderService) startCardPayment(ctx context.Context, order *models.Order) (*CreateOrderResponse, error) {
	util.PaymentAttemptsTotal.WithLabelValues(models.PaymentMethodRazorpay).Inc()

	providerOrderID, err := s.provider.CreateProviderOrder(ctx, order.TotalAmount,
		fmt.Sprintf("order-%d", order.ID))
	if err != nil {
		s.compensateCheckout(ctx, order, "provider order creation failed")
		util.PaymentFailedTotal.WithLabelValues(models.PaymentMethodRazorpay).Inc()
		return nil, fmt.Errorf("payment provider error: %w", err)
	}

	if err := s.store.SetProviderOrderID(ctx, order.ID, providerOrderID); err != nil {
		s.compensateCheckout(ctx, order, "failed to store provider order id")
		return nil, err
	}

	payment := &models.Payment{
		OrderID:         order.ID,
		Method:          models.PaymentMethodRazorpay,
		Status:          models.PaymentStatusPending,
		Amount:          order.TotalAmount,
		ProviderOrderID: providerOrderID,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	return &CreateOrderResponse{
		OrderID:     order.ID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Checkout: &CheckoutParams{
			KeyID:           s.provider.KeyID(),
			ProviderOrderID: providerOrderID,
			AmountPaise:     order.TotalAmount * 100,
			Currency:        "INR",
		},
	}, nil
}

// payWithPoints deducts the buyer's points and settles synchronously
func (s *OrderService) payWithPoints(ctx context.Context, order *models.Order) (*CreateOrderResponse, error) {
	util.PaymentAttemptsTotal.WithLabelValues(models.PaymentMethodPoints).Inc()

	required := s.points.RequiredPoints(order.TotalAmount)
	_, err := s.points.Debit(ctx, order.BuyerID, required,
		models.PointTypeSpent, fmt.Sprintf("purchase of item #%d", order.ItemID))
	if err != nil {
		s.compensateCheckout(ctx, order, "points deduction failed")
		util.PaymentFailedTotal.WithLabelValues(models.PaymentMethodPoints).Inc()
		if errors.Is(err, store.ErrInsufficientPoints) {
			return nil, ErrInsufficientPoints
		}
		return nil, err
	}

	payment := &models.Payment{
		OrderID: order.ID,
		Method:  models.PaymentMethodPoints,
		Status:  models.PaymentStatusSuccess,
		Amount:  order.TotalAmount,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		s.logger.Error("Failed to record points payment", zap.Error(err))
	}

	// The event is the recovery path: if the synchronous settle dies
	// midway, the worker replays it against the same conditional
	// updates.
	if err := s.publisher.PublishPaymentCaptured(ctx, &models.PaymentCapturedEvent{
		BaseEvent: s.baseEvent(models.EventTypePaymentCaptured),
		OrderID:   order.ID,
		PaymentID: payment.ID,
		Amount:    order.TotalAmount,
		Method:    models.PaymentMethodPoints,
	}); err != nil {
		s.logger.Error("Failed to publish PaymentCaptured event", zap.Error(err))
	}

	if err := s.settlement.Settle(ctx, order.ID); err != nil {
		return nil, fmt.Errorf("settlement failed: %w", err)
	}

	return &CreateOrderResponse{
		OrderID:     order.ID,
		Status:      models.OrderStatusPaid,
		TotalAmount: order.TotalAmount,
	}, nil
}

// VerifyPaymentRequest is the card checkout callback
type VerifyPaymentRequest struct {
	OrderID           int64  `json:"order_id" binding:"required"`
	ProviderOrderID   string `json:"provider_order_id" binding:"required"`
	ProviderPaymentID string `json:"provider_payment_id" binding:"required"`
	Signature         string `json:"signature" binding:"required"`
}

// VerifyPayment validates the provider signature and settles the order
func (s *OrderService) VerifyPayment(ctx context.Context, buyerID int64, req *VerifyPaymentRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.VerifyPayment")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, ErrNotParticipant
	}
	if order.ProviderOrderID == "" || order.ProviderOrderID != req.ProviderOrderID {
		return nil, ErrInvalidSignature
	}

	payment, err := s.store.GetPaymentByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	if !s.provider.VerifyPaymentSignature(req.ProviderOrderID, req.ProviderPaymentID, req.Signature) {
		_ = s.store.UpdatePaymentStatus(ctx, payment.ID, models.PaymentStatusFailed, req.ProviderPaymentID)
		util.PaymentFailedTotal.WithLabelValues(models.PaymentMethodRazorpay).Inc()

		if err := s.publisher.PublishPaymentFailed(ctx, &models.PaymentFailedEvent{
			BaseEvent: s.baseEvent(models.EventTypePaymentFailed),
			OrderID:   order.ID,
			PaymentID: payment.ID,
			Reason:    "signature mismatch",
		}); err != nil {
			s.logger.Error("Failed to publish PaymentFailed event", zap.Error(err))
		}
		return nil, ErrInvalidSignature
	}

	if err := s.store.UpdatePaymentStatus(ctx, payment.ID, models.PaymentStatusSuccess, req.ProviderPaymentID); err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}

	if err := s.publisher.PublishPaymentCaptured(ctx, &models.PaymentCapturedEvent{
		BaseEvent:         s.baseEvent(models.EventTypePaymentCaptured),
		OrderID:           order.ID,
		PaymentID:         payment.ID,
		Amount:            order.TotalAmount,
		Method:            models.PaymentMethodRazorpay,
		ProviderPaymentID: req.ProviderPaymentID,
	}); err != nil {
		s.logger.Error("Failed to publish PaymentCaptured event", zap.Error(err))
	}

	if err := s.settlement.Settle(ctx, order.ID); err != nil {
		return nil, fmt.Errorf("settlement failed: %w", err)
	}

	return s.store.GetOrderByID(ctx, order.ID)
}

// compensateCheckout undoes a checkout that never reached payment
func (s *OrderService) compensateCheckout(ctx context.Context, order *models.Order, reason string) {
	s.logger.Warn("Compensating failed checkout",
		zap.Int64("order_id", order.ID),
		zap.String("reason", reason))

	if err := s.store.DeleteOrder(ctx, order.ID); err != nil {
		s.logger.Error("Failed to delete order during compensation", zap.Error(err))
	}
	s.releaseHold(ctx, order.ItemID, order.BuyerID)
}

func (s *OrderService) releaseHold(ctx context.Context, itemID, buyerID int64) {
	if err := s.store.ReleaseReservation(ctx, itemID, buyerID); err != nil {
		s.logger.Error("Failed to release reservation",
			zap.Int64("item_id", itemID), zap.Error(err))
	}
	_ = s.redis.ReleaseHold(ctx, itemID, buyerID)
}

// GetOrder retrieves an order with its timeline; participants only
func (s *OrderService) GetOrder(ctx context.Context, orderID, userID int64) (*models.Order, []models.TimelineEntry, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.BuyerID != userID && order.SellerID != userID {
		return nil, nil, ErrNotParticipant
	}

	timeline, err := s.store.GetOrderTimeline(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, timeline, nil
}

// MyOrders retrieves every order the user participates in
func (s *OrderService) MyOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.store.ListOrdersByUser(ctx, userID)
}

// Cancel lets the buyer abandon a pending order. A points debit that
// already landed is refunded through the ledger.
func (s *OrderService) Cancel(ctx context.Context, orderID, buyerID int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.Cancel")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.BuyerID != buyerID {
		return ErrNotParticipant
	}

	err = s.store.TransitionOrder(ctx, orderID,
		models.OrderStatusPending, models.OrderStatusCancelled, "cancelled by buyer")
	if err != nil {
		return err
	}

	s.releaseHold(ctx, order.ItemID, order.BuyerID)

	if order.PaymentMethod == models.PaymentMethodPoints {
		if payment, perr := s.store.GetPaymentByOrderID(ctx, orderID); perr == nil &&
			payment.Status == models.PaymentStatusSuccess {
			required := s.points.RequiredPoints(order.TotalAmount)
			if _, cerr := s.points.Credit(ctx, buyerID, required,
				models.PointTypeRefund, fmt.Sprintf("refund for order #%d", orderID)); cerr != nil {
				s.logger.Error("Failed to refund points", zap.Error(cerr))
			}
		}
	}

	util.OrdersCancelledTotal.Inc()

	if err := s.publisher.PublishOrderCancelled(ctx, &models.OrderCancelledEvent{
		BaseEvent: s.baseEvent(models.EventTypeOrderCancelled),
		OrderID:   orderID,
		Reason:    "cancelled by buyer",
	}); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}
	return nil
}

// MarkShipped moves a paid order to shipped; sellers only
func (s *OrderService) MarkShipped(ctx context.Context, orderID, sellerID int64) error {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.SellerID != sellerID {
		return ErrNotParticipant
	}
	return s.store.TransitionOrder(ctx, orderID,
		models.OrderStatusPaid, models.OrderStatusShipped, "shipped by seller")
}

// MarkDelivered moves a shipped order to delivered; buyers only
func (s *OrderService) MarkDelivered(ctx context.Context, orderID, buyerID int64) error {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.BuyerID != buyerID {
		return ErrNotParticipant
	}
	return s.store.TransitionOrder(ctx, orderID,
		models.OrderStatusShipped, models.OrderStatusDelivered, "confirmed by buyer")
}

func (s *OrderService) baseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
