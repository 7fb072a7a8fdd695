package store

import (
	"context"
	"database/sql"
	"fmt"

	"rewear/internal/models"

	"github.com/jmoiron/sqlx"
)

type queryer interface {
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
}

// CreditPoints adds points to a user and appends the ledger row in one
// transaction. Negative grants go through DebitPoints instead.
func (s *Store) CreditPoints(ctx context.Context, userID, points int64, txType, reason string) (*models.PointTransaction, error) {
	if points <= 0 {
		return nil, fmt.Errorf("credit amount must be positive: %d", points)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var balance, earned int64
	err = tx.QueryRowxContext(ctx, `
		UPDATE users
		SET points = points + $1,
		    earned_points = earned_points + CASE WHEN $2 THEN $1 ELSE 0 END,
		    updated_at = NOW()
		WHERE id = $3
		RETURNING points, earned_points`,
		points, txType == models.PointTypeEarned, userID).Scan(&balance, &earned)
	if err != nil {
		return nil, fmt.Errorf("failed to credit points: %w", err)
	}

	// Level follows lifetime earned points, never the spendable balance.
	_, err = tx.ExecContext(ctx,
		"UPDATE users SET level = $1 WHERE id = $2",
		models.LevelForPoints(earned), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update level: %w", err)
	}

	entry := &models.PointTransaction{
		UserID:       userID,
		Points:       points,
		Type:         txType,
		Reason:       reason,
		BalanceAfter: balance,
	}
	if err := insertLedgerRow(ctx, tx, entry); err != nil {
		return nil, err
	}

	return entry, tx.Commit()
}

// DebitPoints removes points from a user and appends the ledger row in
// one transaction. The conditional update is the balance check: zero
// matched rows means the balance was below the amount, and nothing is
// written.
func (s *Store) DebitPoints(ctx context.Context, userID, points int64, txType, reason string) (*models.PointTransaction, error) {
	if points <= 0 {
		return nil, fmt.Errorf("debit amount must be positive: %d", points)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRowxContext(ctx, `
		UPDATE users
		SET points = points - $1, updated_at = NOW()
		WHERE id = $2 AND points >= $1
		RETURNING points`, points, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return nil, ErrInsufficientPoints
	}
	if err != nil {
		return nil, fmt.Errorf("failed to debit points: %w", err)
	}

	entry := &models.PointTransaction{
		UserID:       userID,
		Points:       -points,
		Type:         txType,
		Reason:       reason,
		BalanceAfter: balance,
	}
	if err := insertLedgerRow(ctx, tx, entry); err != nil {
		return nil, err
	}

	return entry, tx.Commit()
}

// CreditPointsOnce is CreditPoints keyed by a caller-supplied
// idempotency key: the ledger row is inserted first with ON CONFLICT
// DO NOTHING, and the balance moves only when the insert landed. A
// replay returns ErrDuplicate with nothing written, so settlement can
// re-run credits safely.
func (s *Store) CreditPointsOnce(ctx context.Context, userID, points int64, txType, reason, key string) (*models.PointTransaction, error) {
	if points <= 0 {
		return nil, fmt.Errorf("credit amount must be positive: %d", points)
	}
	if key == "" {
		return nil, fmt.Errorf("idempotency key is required")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var ledgerID int64
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO point_transactions (user_id, points, type, reason, balance_after, idem_key)
		VALUES ($1, $2, $3, $4, 0, $5)
		ON CONFLICT (idem_key) DO NOTHING
		RETURNING id`,
		userID, points, txType, reason, key).Scan(&ledgerID)
	if err == sql.ErrNoRows {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("failed to append ledger row: %w", err)
	}

	var balance, earned int64
	err = tx.QueryRowxContext(ctx, `
		UPDATE users
		SET points = points + $1,
		    earned_points = earned_points + CASE WHEN $2 THEN $1 ELSE 0 END,
		    updated_at = NOW()
		WHERE id = $3
		RETURNING points, earned_points`,
		points, txType == models.PointTypeEarned, userID).Scan(&balance, &earned)
	if err != nil {
		return nil, fmt.Errorf("failed to credit points: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE users SET level = $1 WHERE id = $2",
		models.LevelForPoints(earned), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update level: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE point_transactions SET balance_after = $1 WHERE id = $2",
		balance, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("failed to record balance: %w", err)
	}

	entry := &models.PointTransaction{
		ID:           ledgerID,
		UserID:       userID,
		Points:       points,
		Type:         txType,
		Reason:       reason,
		BalanceAfter: balance,
		IdemKey:      &key,
	}
	return entry, tx.Commit()
}

func insertLedgerRow(ctx context.Context, tx queryer, entry *models.PointTransaction) error {
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO point_transactions (user_id, points, type, reason, balance_after, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		entry.UserID, entry.Points, entry.Type, entry.Reason, entry.BalanceAfter, entry.ExpiresAt).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append ledger row: %w", err)
	}
	return nil
}

// GetPointHistory retrieves a page of a user's ledger, newest first
func (s *Store) GetPointHistory(ctx context.Context, userID int64, limit, offset int) ([]models.PointTransaction, error) {
	var entries []models.PointTransaction
	err := s.db.SelectContext(ctx, &entries, `
		SELECT * FROM point_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	return entries, err
}

// PointsInCirculation sums every spendable balance
func (s *Store) PointsInCirculation(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.GetContext(ctx, &total, "SELECT COALESCE(SUM(points), 0) FROM users")
	return total, err
}
