package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"rewear/internal/models"

	"github.com/lib/pq"
)

// CreateItem inserts a new listing in pending status
func (s *Store) CreateItem(ctx context.Context, item *models.Item) error {
	if item.Images == nil {
		item.Images = pq.StringArray{}
	}

	query := `
		INSERT INTO items (seller_id, title, description, category, size, condition, price, images, status, quality_badge)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, likes, badge_locked, created_at, updated_at`

	return s.db.GetContext(ctx, item, query,
		item.SellerID, item.Title, item.Description, item.Category, item.Size,
		item.Condition, item.Price, item.Images, item.Status, item.QualityBadge)
}

// GetItemByID retrieves a listing by ID
func (s *Store) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	err := s.db.GetContext(ctx, &item, "SELECT * FROM items WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ItemFilter narrows a listing query
type ItemFilter struct {
	Status   string
	Category string
	Size     string
	Search   string
	SellerID int64
	Limit    int
	Offset   int
}

// ListItems retrieves a page of listings matching the filter
func (s *Store) ListItems(ctx context.Context, f ItemFilter) ([]models.Item, int64, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	add := func(cond string, val interface{}) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Size != "" {
		add("size = $%d", f.Size)
	}
	if f.SellerID != 0 {
		add("seller_id = $%d", f.SellerID)
	}
	if f.Search != "" {
		args = append(args, f.Search)
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(title ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%')", n, n))
	}

	cond := strings.Join(where, " AND ")

	var total int64
	if err := s.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM items WHERE "+cond, args...); err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(
		"SELECT * FROM items WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		cond, len(args)-1, len(args))

	var items []models.Item
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UpdateItem applies an owner edit. Sold, reserved and inactive listings
// are not editable; editing a rejected listing resubmits it as pending.
// The badge recompute is skipped when an admin has locked it.
func (s *Store) UpdateItem(ctx context.Context, item *models.Item) (*models.Item, error) {
	if item.Images == nil {
		item.Images = pq.StringArray{}
	}

	var updated models.Item
	err := s.db.GetContext(ctx, &updated, `
		UPDATE items
		SET title = $1, description = $2, category = $3, size = $4,
		    condition = $5, price = $6, images = $7,
		    quality_badge = CASE WHEN badge_locked THEN quality_badge ELSE $8 END,
		    status = CASE WHEN status = 'rejected' THEN 'pending' ELSE status END,
		    rejection_reason = CASE WHEN status = 'rejected' THEN '' ELSE rejection_reason END,
		    updated_at = NOW()
		WHERE id = $9 AND seller_id = $10
		  AND status IN ('draft', 'pending', 'rejected', 'active')
		RETURNING *`,
		item.Title, item.Description, item.Category, item.Size, item.Condition,
		item.Price, item.Images, models.BadgeForCondition(item.Condition),
		item.ID, item.SellerID)
	if err == sql.ErrNoRows {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteItem removes an owner's listing unless it is reserved or sold
func (s *Store) DeleteItem(ctx context.Context, itemID, sellerID int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM items
		WHERE id = $1 AND seller_id = $2 AND status NOT IN ('reserved', 'sold')`,
		itemID, sellerID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ToggleLike flips a user's like on an item. The per-user row in
// item_likes is the source of truth; the denormalized counter moves
// with it in the same transaction so it can never go negative.
func (s *Store) ToggleLike(ctx context.Context, itemID, userID int64) (liked bool, likes int, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO item_likes (item_id, user_id) VALUES ($1, $2)
		ON CONFLICT (item_id, user_id) DO NOTHING`, itemID, userID)
	if isForeignKeyViolation(err) {
		return false, 0, ErrNotFound
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to toggle like: %w", err)
	}

	inserted, _ := res.RowsAffected()
	if inserted == 1 {
		liked = true
		err = tx.QueryRowxContext(ctx,
			"UPDATE items SET likes = likes + 1 WHERE id = $1 RETURNING likes",
			itemID).Scan(&likes)
	} else {
		_, err = tx.ExecContext(ctx,
			"DELETE FROM item_likes WHERE item_id = $1 AND user_id = $2", itemID, userID)
		if err == nil {
			err = tx.QueryRowxContext(ctx,
				"UPDATE items SET likes = GREATEST(likes - 1, 0) WHERE id = $1 RETURNING likes",
				itemID).Scan(&likes)
		}
	}
	if err == sql.ErrNoRows {
		return false, 0, ErrNotFound
	}
	if err != nil {
		return false, 0, err
	}

	return liked, likes, tx.Commit()
}

// HasLiked reports whether a user has liked an item
func (s *Store) HasLiked(ctx context.Context, itemID, userID int64) (bool, error) {
	var liked bool
	err := s.db.GetContext(ctx, &liked,
		"SELECT EXISTS(SELECT 1 FROM item_likes WHERE item_id = $1 AND user_id = $2)",
		itemID, userID)
	return liked, err
}

// FlagItem records a distinct-user flag and auto-flags the listing once
// the threshold is reached. Returns the flag count and whether this call
// tripped the threshold.
func (s *Store) FlagItem(ctx context.Context, itemID, userID int64, reason string, threshold int) (int, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO item_flags (item_id, user_id, reason) VALUES ($1, $2, $3)
		ON CONFLICT (item_id, user_id) DO NOTHING`, itemID, userID, reason)
	if isForeignKeyViolation(err) {
		return 0, false, ErrNotFound
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to flag item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, false, ErrDuplicate
	}

	var count int
	if err := tx.QueryRowxContext(ctx,
		"SELECT COUNT(*) FROM item_flags WHERE item_id = $1", itemID).Scan(&count); err != nil {
		return 0, false, err
	}

	flagged := false
	if count >= threshold {
		res, err := tx.ExecContext(ctx,
			"UPDATE items SET status = 'flagged', updated_at = NOW() WHERE id = $1 AND status = 'active'",
			itemID)
		if err != nil {
			return 0, false, err
		}
		n, _ := res.RowsAffected()
		flagged = n == 1
	}

	return count, flagged, tx.Commit()
}

// ApproveItem activates a pending listing. Zero matched rows means the
// listing was not pending and the approval is rejected.
func (s *Store) ApproveItem(ctx context.Context, itemID int64) (*models.Item, error) {
	var item models.Item
	err := s.db.GetContext(ctx, &item, `
		UPDATE items SET status = 'active', rejection_reason = '', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING *`, itemID)
	if err == sql.ErrNoRows {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// RejectItem rejects a pending listing with a reason
func (s *Store) RejectItem(ctx context.Context, itemID int64, reason string) (*models.Item, error) {
	var item models.Item
	err := s.db.GetContext(ctx, &item, `
		UPDATE items SET status = 'rejected', rejection_reason = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
		RETURNING *`, reason, itemID)
	if err == sql.ErrNoRows {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SetQualityBadge forces a badge and locks it against future
// condition-derived recomputes.
func (s *Store) SetQualityBadge(ctx context.Context, itemID int64, badge string) (*models.Item, error) {
	var item models.Item
	err := s.db.GetContext(ctx, &item, `
		UPDATE items SET quality_badge = $1, badge_locked = TRUE, updated_at = NOW()
		WHERE id = $2
		RETURNING *`, badge, itemID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveItem soft-removes a flagged or active listing
func (s *Store) RemoveItem(ctx context.Context, itemID int64) error {
	return s.flipStatus(ctx, itemID, []string{"flagged", "active"}, "inactive")
}

// RestoreItem brings an inactive or flagged listing back to active
func (s *Store) RestoreItem(ctx context.Context, itemID int64) error {
	return s.flipStatus(ctx, itemID, []string{"inactive", "flagged"}, "active")
}

func (s *Store) flipStatus(ctx context.Context, itemID int64, from []string, to string) error {
	// Only statuses the item lifecycle allows into `to` can match.
	valid := from[:0:0]
	for _, f := range from {
		if models.ItemCanTransition(f, to) {
			valid = append(valid, f)
		}
	}
	if len(valid) == 0 {
		return ErrConflict
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET status = $1, updated_at = NOW() WHERE id = $2 AND status = ANY($3)",
		to, itemID, pq.Array(valid))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ReserveItem places a time-boxed checkout hold with one conditional
// update: an active listing, or a reserved one whose hold has lapsed,
// goes to reserved for this buyer. Two concurrent checkouts cannot both
// match.
func (s *Store) ReserveItem(ctx context.Context, itemID, buyerID int64, ttlSeconds int) (*models.Item, error) {
	var item models.Item
	err := s.db.GetContext(ctx, &item, `
		UPDATE items
		SET status = 'reserved', reserved_by = $1,
		    reserved_until = NOW() + make_interval(secs => $2),
		    updated_at = NOW()
		WHERE id = $3
		  AND (status = 'active'
		       OR (status = 'reserved' AND reserved_until < NOW()))
		RETURNING *`, buyerID, ttlSeconds, itemID)
	if err == sql.ErrNoRows {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// MarkItemSold finalizes a sale: only the holder of a live reservation
// can move the listing to its terminal sold state.
func (s *Store) MarkItemSold(ctx context.Context, itemID, buyerID int64) (*models.Item, error) {
	var item models.Item
	err := s.db.GetContext(ctx, &item, `
		UPDATE items
		SET status = 'sold', sold_to = $1, sold_at = NOW(),
		    reserved_by = NULL, reserved_until = NULL, updated_at = NOW()
		WHERE id = $2 AND status = 'reserved' AND reserved_by = $1
		RETURNING *`, buyerID, itemID)
	if err == sql.ErrNoRows {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ReleaseReservation drops a buyer's hold (compensation path)
func (s *Store) ReleaseReservation(ctx context.Context, itemID, buyerID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET status = 'active', reserved_by = NULL, reserved_until = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'reserved' AND reserved_by = $2`,
		itemID, buyerID)
	return err
}

// ReleaseExpiredReservations returns lapsed holds to active; run by the
// background sweeper.
func (s *Store) ReleaseExpiredReservations(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET status = 'active', reserved_by = NULL, reserved_until = NULL, updated_at = NOW()
		WHERE status = 'reserved' AND reserved_until < NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountItemsByStatus returns listing counts per status for admin stats
func (s *Store) CountItemsByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT status, COUNT(*) FROM items GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
