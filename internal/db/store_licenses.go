package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/go4itsports/licensing/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const licenseColumns = `id, customer_id, license_key, server_fingerprint,
	installation_id, active, created_at, updated_at`

func scanLicense(row pgx.Row) (*models.License, error) {
	var l models.License
	err := row.Scan(
		&l.ID,
		&l.CustomerID,
		&l.LicenseKey,
		&l.ServerFingerprint,
		&l.InstallationID,
		&l.Active,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// GetActiveLicenseByKey returns the active license with the given key, or
// nil if no active license matches.
func (db *DB) GetActiveLicenseByKey(ctx context.Context, key string) (*models.License, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+licenseColumns+` FROM licenses WHERE license_key = $1 AND active = TRUE`, key)
	lic, err := scanLicense(row)
	if err != nil {
		return nil, fmt.Errorf("get active license by key: %w", err)
	}
	return lic, nil
}

// GetLicenseByKey returns a license by key regardless of active flag.
func (db *DB) GetLicenseByKey(ctx context.Context, key string) (*models.License, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+licenseColumns+` FROM licenses WHERE license_key = $1`, key)
	lic, err := scanLicense(row)
	if err != nil {
		return nil, fmt.Errorf("get license by key: %w", err)
	}
	return lic, nil
}

// GetLicenseByCustomerID returns the customer's most recent license, or nil.
func (db *DB) GetLicenseByCustomerID(ctx context.Context, customerID uuid.UUID) (*models.License, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+licenseColumns+` FROM licenses WHERE customer_id = $1 ORDER BY created_at DESC LIMIT 1`,
		customerID)
	lic, err := scanLicense(row)
	if err != nil {
		return nil, fmt.Errorf("get license by customer: %w", err)
	}
	return lic, nil
}

// CreateLicense inserts a new license row.
func (db *DB) CreateLicense(ctx context.Context, l *models.License) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO licenses (id, customer_id, license_key, server_fingerprint,
			installation_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, l.ID, l.CustomerID, l.LicenseKey, l.ServerFingerprint, l.InstallationID,
		l.Active, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create license: %w", err)
	}
	return nil
}

// ClaimFingerprint binds a server fingerprint and installation id to a
// license only if no fingerprint is bound yet. The conditional update makes
// the first claim atomic: concurrent claims from different servers cannot
// both win.
func (db *DB) ClaimFingerprint(ctx context.Context, licenseID uuid.UUID, fingerprint, installationID string) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE licenses
		SET server_fingerprint = $2, installation_id = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $1 AND server_fingerprint IS NULL
	`, licenseID, fingerprint, installationID)
	if err != nil {
		return false, fmt.Errorf("claim fingerprint: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UnbindFingerprint clears the fingerprint binding. Support override for
// license transfers; the binding is otherwise immutable.
func (db *DB) UnbindFingerprint(ctx context.Context, licenseID uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE licenses
		SET server_fingerprint = NULL, installation_id = NULL, updated_at = NOW()
		WHERE id = $1
	`, licenseID)
	if err != nil {
		return fmt.Errorf("unbind fingerprint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("unbind fingerprint: license %s not found", licenseID)
	}
	return nil
}

// SetLicenseActive toggles the active flag on a license.
func (db *DB) SetLicenseActive(ctx context.Context, licenseID uuid.UUID, active bool) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE licenses SET active = $2, updated_at = NOW() WHERE id = $1
	`, licenseID, active)
	if err != nil {
		return fmt.Errorf("set license active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set license active: license %s not found", licenseID)
	}
	return nil
}

// ListLicenses returns licenses ordered by creation time, newest first.
func (db *DB) ListLicenses(ctx context.Context, limit, offset int) ([]*models.License, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+licenseColumns+` FROM licenses ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	defer rows.Close()

	var licenses []*models.License
	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan license: %w", err)
		}
		licenses = append(licenses, l)
	}
	return licenses, rows.Err()
}
