package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go4itsports/licensing/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const customerColumns = `id, email, name, COALESCE(company, ''), password_hash,
	subscription_tier, subscription_status, subscription_expires_at, created_at, updated_at`

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(
		&c.ID,
		&c.Email,
		&c.Name,
		&c.Company,
		&c.PasswordHash,
		&c.Tier,
		&c.Status,
		&c.ExpiresAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// GetCustomerByID returns a customer by ID, or nil if not found.
func (db *DB) GetCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	customer, err := scanCustomer(row)
	if err != nil {
		return nil, fmt.Errorf("get customer by id: %w", err)
	}
	return customer, nil
}

// GetCustomerByEmail returns a customer by email, or nil if not found.
// Email matching is case-insensitive.
func (db *DB) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE LOWER(email) = LOWER($1)`, email)
	customer, err := scanCustomer(row)
	if err != nil {
		return nil, fmt.Errorf("get customer by email: %w", err)
	}
	return customer, nil
}

// CreateCustomer inserts a new customer row.
func (db *DB) CreateCustomer(ctx context.Context, c *models.Customer) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO customers (id, email, name, company, password_hash,
			subscription_tier, subscription_status, subscription_expires_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10)
	`, c.ID, strings.ToLower(c.Email), c.Name, c.Company, c.PasswordHash,
		c.Tier, c.Status, c.ExpiresAt, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

// UpdateSubscription updates a customer's tier, status, and expiry.
func (db *DB) UpdateSubscription(ctx context.Context, id uuid.UUID, tier models.SubscriptionTier, status models.SubscriptionStatus, expiresAt *time.Time) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE customers
		SET subscription_tier = $2, subscription_status = $3,
			subscription_expires_at = $4, updated_at = NOW()
		WHERE id = $1
	`, id, tier, status, expiresAt)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update subscription: customer %s not found", id)
	}
	return nil
}

// ListCustomers returns customers ordered by creation time, newest first.
func (db *DB) ListCustomers(ctx context.Context, limit, offset int) ([]*models.Customer, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+customerColumns+` FROM customers ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}
