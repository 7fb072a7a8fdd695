package store

import (
	"context"
	"fmt"

	"rewear/internal/models"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// demo fixture emails; clear only ever touches these accounts
var demoEmails = []string{
	"demo.seller@rewear.test",
	"demo.buyer@rewear.test",
	"demo.admin@rewear.test",
}

// SeedDemoData inserts a small, recognizable fixture set: a seller with
// active listings, a buyer with a points balance and an admin account.
func (s *Store) SeedDemoData(ctx context.Context) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	users := []models.User{
		{Email: demoEmails[0], Name: "Demo Seller", Phone: "9000000001", Role: models.RoleUser},
		{Email: demoEmails[1], Name: "Demo Buyer", Phone: "9000000002", Role: models.RoleUser},
		{Email: demoEmails[2], Name: "Demo Admin", Phone: "admin9000", Role: models.RoleAdmin},
	}
	for i := range users {
		users[i].PasswordHash = string(hash)
		if err := s.CreateUser(ctx, &users[i]); err != nil && err != ErrDuplicate {
			return fmt.Errorf("failed to seed user %s: %w", users[i].Email, err)
		}
	}

	seller, err := s.GetUserByEmail(ctx, demoEmails[0])
	if err != nil {
		return err
	}
	buyer, err := s.GetUserByEmail(ctx, demoEmails[1])
	if err != nil {
		return err
	}

	if buyer.Points == 0 {
		if _, err := s.CreditPoints(ctx, buyer.ID, 20000, models.PointTypeAdminGrant, "demo seed balance"); err != nil {
			return err
		}
	}

	items := []models.Item{
		{SellerID: seller.ID, Title: "Denim Jacket", Category: "jackets", Size: "M",
			Condition: "Like New", Price: 1000, Status: models.ItemStatusActive},
		{SellerID: seller.ID, Title: "Linen Shirt", Category: "shirts", Size: "L",
			Condition: "Good", Price: 450, Status: models.ItemStatusActive},
		{SellerID: seller.ID, Title: "Wool Scarf", Category: "accessories", Size: "",
			Condition: "Fair", Price: 150, Status: models.ItemStatusPending},
	}
	for i := range items {
		items[i].QualityBadge = models.BadgeForCondition(items[i].Condition)
		if err := s.CreateItem(ctx, &items[i]); err != nil {
			return fmt.Errorf("failed to seed item %q: %w", items[i].Title, err)
		}
	}

	return nil
}

// ClearDemoData removes the fixture accounts and everything hanging off
// them.
func (s *Store) ClearDemoData(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	statements := []string{
		`DELETE FROM order_timeline WHERE order_id IN (
			SELECT o.id FROM orders o JOIN users u ON u.id IN (o.buyer_id, o.seller_id)
			WHERE u.email = ANY($1))`,
		`DELETE FROM payments WHERE order_id IN (
			SELECT o.id FROM orders o JOIN users u ON u.id IN (o.buyer_id, o.seller_id)
			WHERE u.email = ANY($1))`,
		`DELETE FROM reviews WHERE reviewer_id IN (SELECT id FROM users WHERE email = ANY($1))
			OR reviewee_id IN (SELECT id FROM users WHERE email = ANY($1))`,
		`DELETE FROM orders WHERE buyer_id IN (SELECT id FROM users WHERE email = ANY($1))
			OR seller_id IN (SELECT id FROM users WHERE email = ANY($1))`,
		`DELETE FROM wishlists WHERE user_id IN (SELECT id FROM users WHERE email = ANY($1))`,
		`DELETE FROM items WHERE seller_id IN (SELECT id FROM users WHERE email = ANY($1))`,
		`DELETE FROM point_transactions WHERE user_id IN (SELECT id FROM users WHERE email = ANY($1))`,
		`DELETE FROM users WHERE email = ANY($1)`,
	}

	emails := pq.Array(demoEmails)
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, emails); err != nil {
			return fmt.Errorf("failed to clear demo data: %w", err)
		}
	}

	return tx.Commit()
}

// DemoStatus reports how many fixture rows are present
func (s *Store) DemoStatus(ctx context.Context) (users, items int64, err error) {
	emails := pq.Array(demoEmails)
	if err = s.db.GetContext(ctx, &users,
		"SELECT COUNT(*) FROM users WHERE email = ANY($1)", emails); err != nil {
		return 0, 0, err
	}
	err = s.db.GetContext(ctx, &items, `
		SELECT COUNT(*) FROM items
		WHERE seller_id IN (SELECT id FROM users WHERE email = ANY($1))`, emails)
	return users, items, err
}
