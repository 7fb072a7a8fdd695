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

var (
	ErrOrderNotDelivered = errors.New("order is not delivered yet")
	ErrAlreadyReviewed   = errors.New("order already reviewed")
)

// ReviewService handles post-delivery reviews and wishlists
type ReviewService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewReviewService creates a new review service
func NewReviewService(st *store.Store) *ReviewService {
	return &ReviewService{
		store:  st,
		logger: util.GetLogger(),
	}
}

// CreateReview records a rating for the other party of a delivered
// order; one review per order.
func (rs *ReviewService) CreateReview(ctx context.Context, orderID, reviewerID int64, rating int, comment string) (*models.Review, error) {
	ctx, span := util.StartSpan(ctx, "ReviewService.CreateReview")
	defer span.End()

	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5")
	}

	order, err := rs.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != reviewerID && order.SellerID != reviewerID {
		return nil, ErrNotParticipant
	}
	if order.Status != models.OrderStatusDelivered {
		return nil, ErrOrderNotDelivered
	}

	revieweeID := order.SellerID
	if reviewerID == order.SellerID {
		revieweeID = order.BuyerID
	}

	review := &models.Review{
		OrderID:    orderID,
		ReviewerID: reviewerID,
		RevieweeID: revieweeID,
		Rating:     rating,
		Comment:    comment,
		Status:     models.ReviewStatusVisible,
	}

	if err := rs.store.CreateReview(ctx, review); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}

	rs.logger.Info("Review created",
		zap.Int64("order_id", orderID),
		zap.Int("rating", rating))
	return review, nil
}

// Respond records the reviewee's single response to a review
func (rs *ReviewService) Respond(ctx context.Context, reviewID, revieweeID int64, response string) error {
	return rs.store.SetReviewResponse(ctx, reviewID, revieweeID, response)
}

// Moderate flips review visibility (admin)
func (rs *ReviewService) Moderate(ctx context.Context, reviewID int64, hide bool) error {
	status := models.ReviewStatusVisible
	if hide {
		status = models.ReviewStatusHidden
	}
	return rs.store.SetReviewStatus(ctx, reviewID, status)
}

// ListForUser retrieves visible reviews about a user
func (rs *ReviewService) ListForUser(ctx context.Context, userID int64) ([]models.Review, error) {
	return rs.store.ListReviewsForUser(ctx, userID)
}

// AddToWishlist saves an item; duplicates are rejected
func (rs *ReviewService) AddToWishlist(ctx context.Context, userID, itemID int64, notes string) error {
	if _, err := rs.store.GetItemByID(ctx, itemID); err != nil {
		return err
	}
	return rs.store.AddWishlistEntry(ctx, &models.WishlistEntry{
		UserID: userID,
		ItemID: itemID,
		Notes:  notes,
	})
}

// RemoveFromWishlist removes an item from the caller's wishlist
func (rs *ReviewService) RemoveFromWishlist(ctx context.Context, userID, itemID int64) error {
	return rs.store.RemoveWishlistEntry(ctx, userID, itemID)
}

// Wishlist retrieves the caller's wishlist
func (rs *ReviewService) Wishlist(ctx context.Context, userID int64) ([]models.WishlistEntry, error) {
	return rs.store.ListWishlist(ctx, userID)
}
