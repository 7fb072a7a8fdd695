package service

import (
	"context"
	"errors"
	"fmt"

	"rewear/internal/models"
	"rewear/internal/store"
	"rewear/internal/util"

	"go.uber.org/zap"
)

var ErrNotPending = errors.New("listing is not pending moderation")

// AdminService handles moderation and operational actions
type AdminService struct {
	store  *store.Store
	points *PointsService
	logger *zap.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(st *store.Store, points *PointsService) *AdminService {
	return &AdminService{
		store:  st,
		points: points,
		logger: util.GetLogger(),
	}
}

// Stats summarizes the marketplace for the admin dashboard
type Stats struct {
	Users               int64            `json:"users"`
	Orders              int64            `json:"orders"`
	ItemsByStatus       map[string]int64 `json:"items_by_status"`
	PointsInCirculation int64            `json:"points_in_circulation"`
}

// GetStats collects the dashboard counters
func (as *AdminService) GetStats(ctx context.Context) (*Stats, error) {
	users, err := as.store.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := as.store.CountOrders(ctx)
	if err != nil {
		return nil, err
	}
	items, err := as.store.CountItemsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	points, err := as.store.PointsInCirculation(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Users:               users,
		Orders:              orders,
		ItemsByStatus:       items,
		PointsInCirculation: points,
	}, nil
}

// PendingItems lists listings awaiting moderation
func (as *AdminService) PendingItems(ctx context.Context, limit, offset int) ([]models.Item, int64, error) {
	return as.store.ListItems(ctx, store.ItemFilter{
		Status: models.ItemStatusPending,
		Limit:  limit,
		Offset: offset,
	})
}

// FlaggedItems lists listings pulled by user flags
func (as *AdminService) FlaggedItems(ctx context.Context, limit, offset int) ([]models.Item, int64, error) {
	return as.store.ListItems(ctx, store.ItemFilter{
		Status: models.ItemStatusFlagged,
		Limit:  limit,
		Offset: offset,
	})
}

// Approve activates a pending listing and grants the seller the
// approval bonus.
func (as *AdminService) Approve(ctx context.Context, itemID int64) (*models.Item, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.Approve")
	defer span.End()

	item, err := as.store.ApproveItem(ctx, itemID)
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrNotPending
	}
	if err != nil {
		return nil, err
	}

	util.ItemsApprovedTotal.Inc()

	bonus := as.points.ApprovalBonus()
	if _, err := as.points.Credit(ctx, item.SellerID, bonus,
		models.PointTypeEarned, fmt.Sprintf("listing #%d approved", itemID)); err != nil {
		as.logger.Error("Failed to credit approval bonus",
			zap.Int64("item_id", itemID), zap.Error(err))
	}

	as.logger.Info("Listing approved",
		zap.Int64("item_id", itemID),
		zap.Int64("seller_id", item.SellerID))
	return item, nil
}

// Reject declines a pending listing with a reason
func (as *AdminService) Reject(ctx context.Context, itemID int64, reason string) (*models.Item, error) {
	item, err := as.store.RejectItem(ctx, itemID, reason)
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrNotPending
	}
	if err != nil {
		return nil, err
	}

	util.ItemsRejectedTotal.Inc()
	as.logger.Info("Listing rejected",
		zap.Int64("item_id", itemID),
		zap.String("reason", reason))
	return item, nil
}

// SetQuality forces a quality badge; the badge stays locked against
// condition-derived recomputes from then on.
func (as *AdminService) SetQuality(ctx context.Context, itemID int64, badge string) (*models.Item, error) {
	switch badge {
	case models.BadgeBasic, models.BadgeMedium, models.BadgeHigh, models.BadgePremium:
	default:
		return nil, fmt.Errorf("unknown quality badge: %s", badge)
	}
	return as.store.SetQualityBadge(ctx, itemID, badge)
}

// GrantPoints adjusts a user's balance with an admin ledger entry.
// Negative grants debit, but never below zero.
func (as *AdminService) GrantPoints(ctx context.Context, userID, points int64, reason string) (*models.PointTransaction, error) {
	if points == 0 {
		return nil, fmt.Errorf("grant amount must be non-zero")
	}
	if points > 0 {
		return as.points.Credit(ctx, userID, points, models.PointTypeAdminGrant, reason)
	}
	return as.points.Debit(ctx, userID, -points, models.PointTypeAdminGrant, reason)
}

// Remove soft-removes a flagged or active listing
func (as *AdminService) Remove(ctx context.Context, itemID int64) error {
	return as.store.RemoveItem(ctx, itemID)
}

// Restore returns a removed or flagged listing to the marketplace
func (as *AdminService) Restore(ctx context.Context, itemID int64) error {
	return as.store.RestoreItem(ctx, itemID)
}
