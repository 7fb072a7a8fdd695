package service

import (
	"context"

	"rewear/config"
	"rewear/internal/models"
	"rewear/internal/store"
	"rewear/internal/util"

	"go.uber.org/zap"
)

// PointsService wraps the ledger with the marketplace earn/redeem rates
type PointsService struct {
	store  *store.Store
	rates  config.BusinessConfig
	logger *zap.Logger
}

// NewPointsService creates a new points service
func NewPointsService(st *store.Store, cfg *config.Config) *PointsService {
	return &PointsService{
		store:  st,
		rates:  cfg.Business,
		logger: util.GetLogger(),
	}
}

// RequiredPoints converts a rupee total into the points needed to pay it
func (ps *PointsService) RequiredPoints(totalRupees int64) int64 {
	return totalRupees * ps.rates.PointsPerRupee
}

// SellerReward is the points earned by a seller on a completed sale
func (ps *PointsService) SellerReward(itemPrice int64) int64 {
	return itemPrice * ps.rates.SellerEarnRate
}

// BuyerReward is the points earned by a buyer on a card purchase
func (ps *PointsService) BuyerReward(itemPrice int64) int64 {
	return itemPrice * ps.rates.BuyerEarnRate
}

// ApprovalBonus is the points granted to a seller when a listing is
// approved.
func (ps *PointsService) ApprovalBonus() int64 {
	return ps.rates.ApprovalBonus
}

// Credit adds points to a user with a ledger entry
func (ps *PointsService) Credit(ctx context.Context, userID, points int64, txType, reason string) (*models.PointTransaction, error) {
	ctx, span := util.StartSpan(ctx, "PointsService.Credit")
	defer span.End()

	entry, err := ps.store.CreditPoints(ctx, userID, points, txType, reason)
	if err != nil {
		return nil, err
	}

	util.PointsCreditedTotal.WithLabelValues(txType).Add(float64(points))
	ps.logger.Info("Points credited",
		zap.Int64("user_id", userID),
		zap.Int64("points", points),
		zap.String("reason", reason))
	return entry, nil
}

// CreditOnce credits points under an idempotency key. A replay of the
// same key returns store.ErrDuplicate with the balance untouched.
func (ps *PointsService) CreditOnce(ctx context.Context, userID, points int64, txType, reason, key string) (*models.PointTransaction, error) {
	ctx, span := util.StartSpan(ctx, "PointsService.CreditOnce")
	defer span.End()

	entry, err := ps.store.CreditPointsOnce(ctx, userID, points, txType, reason, key)
	if err != nil {
		return nil, err
	}

	util.PointsCreditedTotal.WithLabelValues(txType).Add(float64(points))
	ps.logger.Info("Points credited",
		zap.Int64("user_id", userID),
		zap.Int64("points", points),
		zap.String("reason", reason))
	return entry, nil
}

// Debit removes points from a user with a ledger entry. Returns
// store.ErrInsufficientPoints, leaving the balance unchanged, when the
// user cannot cover the amount.
func (ps *PointsService) Debit(ctx context.Context, userID, points int64, txType, reason string) (*models.PointTransaction, error) {
	ctx, span := util.StartSpan(ctx, "PointsService.Debit")
	defer span.End()

	entry, err := ps.store.DebitPoints(ctx, userID, points, txType, reason)
	if err != nil {
		return nil, err
	}

	util.PointsDebitedTotal.Add(float64(points))
	ps.logger.Info("Points debited",
		zap.Int64("user_id", userID),
		zap.Int64("points", points),
		zap.String("reason", reason))
	return entry, nil
}

// Balance returns a user's spendable balance and level
func (ps *PointsService) Balance(ctx context.Context, userID int64) (int64, string, error) {
	user, err := ps.store.GetUserByID(ctx, userID)
	if err != nil {
		return 0, "", err
	}
	return user.Points, user.Level, nil
}

// History returns a page of a user's ledger
func (ps *PointsService) History(ctx context.Context, userID int64, limit, offset int) ([]models.PointTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return ps.store.GetPointHistory(ctx, userID, limit, offset)
}
