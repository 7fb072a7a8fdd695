package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"rewear/internal/models"

	"github.com/lib/pq"
)

// CreateUser inserts a new user. Duplicate emails return ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, name, phone, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, points, earned_points, level, created_at, updated_at`

	err := s.db.GetContext(ctx, user, query,
		user.Email, user.PasswordHash, user.Name, user.Phone, user.Role)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

// GetUserByEmail retrieves a user by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user,
		"SELECT * FROM users WHERE email = $1", strings.ToLower(email))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile updates the mutable profile fields
func (s *Store) UpdateProfile(ctx context.Context, id int64, name, phone string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `
		UPDATE users SET name = $1, phone = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING *`, name, phone, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ApplyRating folds one new review rating into the reviewee's aggregate.
func (s *Store) ApplyRating(ctx context.Context, tx Execer, userID int64, rating int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users
		SET rating_avg = (rating_avg * rating_count + $1) / (rating_count + 1),
		    rating_count = rating_count + 1,
		    updated_at = NOW()
		WHERE id = $2`, rating, userID)
	if err != nil {
		return fmt.Errorf("failed to apply rating: %w", err)
	}
	return nil
}

// CountUsers returns the number of registered users
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM users")
	return n, err
}

// Execer is the common sqlx surface of *sqlx.DB and *sqlx.Tx used by
// helpers that run inside or outside a transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}
