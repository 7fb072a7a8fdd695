package store

import (
	"context"
	"database/sql"
	"fmt"

	"rewear/internal/models"

	"github.com/lib/pq"
)

// CreateReview inserts a review and folds the rating into the
// reviewee's aggregate in one transaction. One review per order.
func (s *Store) CreateReview(ctx context.Context, review *models.Review) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO reviews (order_id, reviewer_id, reviewee_id, rating, comment, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		review.OrderID, review.ReviewerID, review.RevieweeID, review.Rating,
		review.Comment, review.Status).
		Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}

	if err := s.ApplyRating(ctx, tx, review.RevieweeID, review.Rating); err != nil {
		return err
	}

	return tx.Commit()
}

// GetReviewByID retrieves a review by ID
func (s *Store) GetReviewByID(ctx context.Context, id int64) (*models.Review, error) {
	var review models.Review
	err := s.db.GetContext(ctx, &review, "SELECT * FROM reviews WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// ListReviewsForUser retrieves visible reviews about a user
func (s *Store) ListReviewsForUser(ctx context.Context, userID int64) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.SelectContext(ctx, &reviews, `
		SELECT * FROM reviews
		WHERE reviewee_id = $1 AND status = 'visible'
		ORDER BY created_at DESC`, userID)
	return reviews, err
}

// SetReviewResponse records the reviewee's single response
func (s *Store) SetReviewResponse(ctx context.Context, reviewID, revieweeID int64, response string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reviews SET response = $1, updated_at = NOW()
		WHERE id = $2 AND reviewee_id = $3 AND response = ''`,
		response, reviewID, revieweeID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// SetReviewStatus flips review visibility (admin moderation)
func (s *Store) SetReviewStatus(ctx context.Context, reviewID int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE reviews SET status = $1, updated_at = NOW() WHERE id = $2",
		status, reviewID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddWishlistEntry saves an item to a user's wishlist; duplicates are
// rejected.
func (s *Store) AddWishlistEntry(ctx context.Context, entry *models.WishlistEntry) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO wishlists (user_id, item_id, notes) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, item_id) DO NOTHING`,
		entry.UserID, entry.ItemID, entry.Notes)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

// RemoveWishlistEntry removes an item from a user's wishlist
func (s *Store) RemoveWishlistEntry(ctx context.Context, userID, itemID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM wishlists WHERE user_id = $1 AND item_id = $2", userID, itemID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListWishlist retrieves a user's wishlist, newest first
func (s *Store) ListWishlist(ctx context.Context, userID int64) ([]models.WishlistEntry, error) {
	var entries []models.WishlistEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM wishlists WHERE user_id = $1 ORDER BY added_at DESC", userID)
	return entries, err
}
