package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rewear/internal/broker"
	"rewear/internal/models"
	"rewear/internal/redisclient"
	"rewear/internal/store"
	"rewear/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SettlementService finalizes a paid order: order paid, item sold,
// points credited. Every step is a conditional update, so Settle is
// safe to call from the synchronous payment paths and again from the
// kafka worker when an event is redelivered.
type SettlementService struct {
	store     *store.Store
	redis     *redisclient.Client
	points    *PointsService
	publisher *broker.EventPublisher
	logger    *zap.Logger
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	st *store.Store,
	redis *redisclient.Client,
	points *PointsService,
	publisher *broker.EventPublisher,
) *SettlementService {
	return &SettlementService{
		store:     st,
		redis:     redis,
		points:    points,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// Settle completes a captured payment for an order
func (ss *SettlementService) Settle(ctx context.Context, orderID int64) error {
	ctx, span := util.StartSpan(ctx, "SettlementService.Settle")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SettlementLatency.Observe(time.Since(start).Seconds())
	}()

	order, err := ss.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}

	err = ss.store.TransitionOrder(ctx, orderID,
		models.OrderStatusPending, models.OrderStatusPaid, "payment captured")
	replay := errors.Is(err, store.ErrConflict)
	if err != nil && !replay {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	if replay {
		// A redelivered event. Cancelled orders have nothing to settle;
		// anything else re-runs the remaining steps, every one of which
		// is conditional or keyed.
		switch order.Status {
		case models.OrderStatusCancelled, models.OrderStatusRefunded:
			return nil
		}
		ss.logger.Info("Re-running settlement", zap.Int64("order_id", orderID))
	}

	item, err := ss.store.MarkItemSold(ctx, order.ItemID, order.BuyerID)
	if errors.Is(err, store.ErrConflict) {
		item, err = ss.recoverItemSale(ctx, order)
	}
	if err != nil {
		return fmt.Errorf("failed to mark item sold for order %d: %w", orderID, err)
	}

	_ = ss.redis.ReleaseHold(ctx, order.ItemID, order.BuyerID)
	_ = ss.redis.InvalidateListing(ctx, order.ItemID)

	// Credit failures propagate so the event stays unprocessed and the
	// worker re-runs the credits against their idempotency keys.
	if err := ss.creditRewards(ctx, order); err != nil {
		return err
	}

	if !replay {
		util.OrdersSettledTotal.Inc()
	}
	ss.logger.Info("Order settled",
		zap.Int64("order_id", orderID),
		zap.Int64("item_id", order.ItemID))

	ss.publishSettled(ctx, order, item)
	return nil
}

// recoverItemSale resolves an ErrConflict from MarkItemSold. The sale
// already landed when the item is sold to this buyer; otherwise the
// hold lapsed between payment and settlement, and since the order is
// paid the sale stands if nobody else took the item.
func (ss *SettlementService) recoverItemSale(ctx context.Context, order *models.Order) (*models.Item, error) {
	item, err := ss.store.GetItemByID(ctx, order.ItemID)
	if err != nil {
		return nil, err
	}
	if item.Status == models.ItemStatusSold && item.SoldTo != nil && *item.SoldTo == order.BuyerID {
		return item, nil
	}

	if _, err := ss.store.ReserveItem(ctx, order.ItemID, order.BuyerID, 60); err != nil {
		return nil, err
	}
	return ss.store.MarkItemSold(ctx, order.ItemID, order.BuyerID)
}

// creditRewards pays out the settlement credits under per-order
// idempotency keys; a replay that already credited is a no-op.
func (ss *SettlementService) creditRewards(ctx context.Context, order *models.Order) error {
	sellerReward := ss.points.SellerReward(order.ItemPrice)
	_, err := ss.points.CreditOnce(ctx, order.SellerID, sellerReward,
		models.PointTypeEarned, fmt.Sprintf("sale of item #%d", order.ItemID),
		fmt.Sprintf("order:%d:seller-reward", order.ID))
	if err != nil && !errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("failed to credit seller reward: %w", err)
	}

	if order.PaymentMethod == models.PaymentMethodRazorpay {
		buyerReward := ss.points.BuyerReward(order.ItemPrice)
		if buyerReward > 0 {
			_, err := ss.points.CreditOnce(ctx, order.BuyerID, buyerReward,
				models.PointTypeEarned, fmt.Sprintf("purchase of item #%d", order.ItemID),
				fmt.Sprintf("order:%d:buyer-reward", order.ID))
			if err != nil && !errors.Is(err, store.ErrDuplicate) {
				return fmt.Errorf("failed to credit buyer reward: %w", err)
			}
		}
	}
	return nil
}

func (ss *SettlementService) publishSettled(ctx context.Context, order *models.Order, item *models.Item) {
	base := func(eventType string) models.BaseEvent {
		return models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: time.Now(),
		}
	}

	if err := ss.publisher.PublishOrderPaid(ctx, &models.OrderPaidEvent{
		BaseEvent: base(models.EventTypeOrderPaid),
		OrderID:   order.ID,
		BuyerID:   order.BuyerID,
		ItemID:    order.ItemID,
	}); err != nil {
		ss.logger.Error("Failed to publish OrderPaid event", zap.Error(err))
	}

	if err := ss.publisher.PublishItemSold(ctx, &models.ItemSoldEvent{
		BaseEvent: base(models.EventTypeItemSold),
		ItemID:    item.ID,
		SellerID:  item.SellerID,
		BuyerID:   order.BuyerID,
		Price:     item.Price,
	}); err != nil {
		ss.logger.Error("Failed to publish ItemSold event", zap.Error(err))
	}
}

// HandlePaymentCaptured is the kafka retry path for settlement
func (ss *SettlementService) HandlePaymentCaptured(ctx context.Context, event *models.PaymentCapturedEvent) error {
	ctx, span := util.StartSpan(ctx, "SettlementService.HandlePaymentCaptured")
	defer span.End()

	processed, err := ss.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		return nil
	}

	if err := ss.Settle(ctx, event.OrderID); err != nil {
		return err
	}

	if err := ss.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		ss.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}

// HandlePaymentFailed compensates a failed card payment: the order is
// cancelled and the checkout hold is released.
func (ss *SettlementService) HandlePaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	ctx, span := util.StartSpan(ctx, "SettlementService.HandlePaymentFailed")
	defer span.End()

	processed, err := ss.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		return nil
	}

	order, err := ss.store.GetOrderByID(ctx, event.OrderID)
	if errors.Is(err, store.ErrNotFound) {
		// checkout already compensated by deleting the order
		return ss.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
	}
	if err != nil {
		return err
	}

	err = ss.store.TransitionOrder(ctx, order.ID,
		models.OrderStatusPending, models.OrderStatusCancelled,
		"payment failed: "+event.Reason)
	if err != nil && !errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("failed to cancel order: %w", err)
	}

	if err := ss.store.ReleaseReservation(ctx, order.ItemID, order.BuyerID); err != nil {
		ss.logger.Error("Failed to release reservation during compensation",
			zap.Int64("item_id", order.ItemID), zap.Error(err))
	}
	_ = ss.redis.ReleaseHold(ctx, order.ItemID, order.BuyerID)

	util.OrdersCancelledTotal.Inc()
	ss.logger.Warn("Order cancelled after payment failure",
		zap.Int64("order_id", order.ID),
		zap.String("reason", event.Reason))

	if err := ss.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		ss.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}
