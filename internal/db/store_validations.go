package db

import (
	"context"
	"fmt"

	"github.com/go4itsports/licensing/internal/models"
	"github.com/google/uuid"
)

// RecordValidation appends one audit row. Validation rows are never updated
// or deleted.
func (db *DB) RecordValidation(ctx context.Context, v *models.LicenseValidation) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO license_validations (id, license_id, server_fingerprint, validated_at)
		VALUES ($1, $2, $3, $4)
	`, v.ID, v.LicenseID, v.ServerFingerprint, v.ValidatedAt)
	if err != nil {
		return fmt.Errorf("record validation: %w", err)
	}
	return nil
}

// GetValidationsByLicenseID returns the most recent validations for a license.
func (db *DB) GetValidationsByLicenseID(ctx context.Context, licenseID uuid.UUID, limit int) ([]*models.LicenseValidation, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, license_id, server_fingerprint, validated_at
		FROM license_validations
		WHERE license_id = $1
		ORDER BY validated_at DESC
		LIMIT $2
	`, licenseID, limit)
	if err != nil {
		return nil, fmt.Errorf("get validations: %w", err)
	}
	defer rows.Close()

	var validations []*models.LicenseValidation
	for rows.Next() {
		var v models.LicenseValidation
		if err := rows.Scan(&v.ID, &v.LicenseID, &v.ServerFingerprint, &v.ValidatedAt); err != nil {
			return nil, fmt.Errorf("scan validation: %w", err)
		}
		validations = append(validations, &v)
	}
	return validations, rows.Err()
}

// CountValidations returns the total number of audit rows for a license.
func (db *DB) CountValidations(ctx context.Context, licenseID uuid.UUID) (int64, error) {
	var count int64
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM license_validations WHERE license_id = $1`, licenseID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count validations: %w", err)
	}
	return count, nil
}
