package license

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go4itsports/licensing/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store defines the persistence operations the license service requires.
type Store interface {
	GetActiveLicenseByKey(ctx context.Context, key string) (*models.License, error)
	GetLicenseByCustomerID(ctx context.Context, customerID uuid.UUID) (*models.License, error)
	GetCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)

	// ClaimFingerprint binds a fingerprint to a license only if none is bound
	// yet, returning whether the claim was applied.
	ClaimFingerprint(ctx context.Context, licenseID uuid.UUID, fingerprint, installationID string) (bool, error)

	RecordValidation(ctx context.Context, v *models.LicenseValidation) error
	GetValidationsByLicenseID(ctx context.Context, licenseID uuid.UUID, limit int) ([]*models.LicenseValidation, error)
}

// Service orchestrates license validation and customer authentication.
type Service struct {
	store         Store
	logger        zerolog.Logger
	portalBaseURL string
}

// NewService creates a license Service. portalBaseURL is the customer-facing
// site used to build renewal links.
func NewService(store Store, portalBaseURL string, logger zerolog.Logger) *Service {
	return &Service{
		store:         store,
		logger:        logger.With().Str("component", "license_service").Logger(),
		portalBaseURL: portalBaseURL,
	}
}

// RenewalURL builds the renewal link surfaced to deployment administrators.
func (s *Service) RenewalURL(licenseKey string) string {
	return fmt.Sprintf("%s/renew?license=%s", s.portalBaseURL, url.QueryEscape(licenseKey))
}

// Validate performs a full license validation: key lookup, subscription
// status and expiry checks, fingerprint binding, and audit logging.
//
// The fingerprint claim is a single conditional update, so two concurrent
// first-time validations from different servers cannot both win the bind.
// Failed validations write no audit row.
func (s *Service) Validate(ctx context.Context, req models.ValidateRequest) (*models.ValidateResponse, error) {
	lic, err := s.store.GetActiveLicenseByKey(ctx, req.LicenseKey)
	if err != nil {
		return nil, fmt.Errorf("lookup license: %w", err)
	}
	if lic == nil {
		return nil, ErrLicenseNotFound
	}

	customer, err := s.store.GetCustomerByID(ctx, lic.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("lookup customer: %w", err)
	}
	if customer == nil {
		return nil, fmt.Errorf("license %s has no customer", lic.ID)
	}

	if customer.Status != models.StatusActive {
		return nil, &SubscriptionInactiveError{
			Status:     customer.Status,
			RenewalURL: s.RenewalURL(req.LicenseKey),
		}
	}

	if customer.IsExpired() {
		return nil, &SubscriptionExpiredError{
			ExpiredAt:  *customer.ExpiresAt,
			RenewalURL: s.RenewalURL(req.LicenseKey),
		}
	}

	if lic.IsBound() {
		if *lic.ServerFingerprint != req.ServerFingerprint {
			return nil, ErrFingerprintMismatch
		}
	} else {
		claimed, err := s.store.ClaimFingerprint(ctx, lic.ID, req.ServerFingerprint, req.InstallationID)
		if err != nil {
			return nil, fmt.Errorf("claim fingerprint: %w", err)
		}
		if !claimed {
			// Lost a concurrent first claim; re-read to see who won.
			current, err := s.store.GetActiveLicenseByKey(ctx, req.LicenseKey)
			if err != nil {
				return nil, fmt.Errorf("re-read license: %w", err)
			}
			if current == nil || !current.IsBound() || *current.ServerFingerprint != req.ServerFingerprint {
				return nil, ErrFingerprintMismatch
			}
		} else {
			s.logger.Info().
				Str("license_id", lic.ID.String()).
				Str("server_fingerprint", req.ServerFingerprint).
				Msg("license bound to server")
		}
	}

	now := time.Now()
	validation := &models.LicenseValidation{
		ID:                uuid.New(),
		LicenseID:         lic.ID,
		ServerFingerprint: req.ServerFingerprint,
		ValidatedAt:       now,
	}
	if err := s.store.RecordValidation(ctx, validation); err != nil {
		return nil, fmt.Errorf("record validation: %w", err)
	}

	return &models.ValidateResponse{
		Valid:       true,
		Tier:        customer.Tier,
		Features:    FeaturesForTier(customer.Tier),
		MaxAthletes: MaxAthletesForTier(customer.Tier),
		ExpiresAt:   customer.ExpiresAt,
		ValidatedAt: now,
	}, nil
}

// Authenticate verifies customer credentials. All failures return
// ErrInvalidCredentials so callers cannot distinguish an unknown email from
// a wrong password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.Customer, error) {
	customer, err := s.store.GetCustomerByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup customer: %w", err)
	}
	if customer == nil {
		// Burn a bcrypt comparison so response timing does not reveal
		// whether the email exists.
		models.ComparePasswordHash(password, "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")
		return nil, ErrInvalidCredentials
	}
	if !models.ComparePasswordHash(password, customer.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return customer, nil
}

// LicenseInfo returns the license summary shown in the customer portal.
func (s *Service) LicenseInfo(ctx context.Context, customerID uuid.UUID) (*models.LicenseInfoResponse, error) {
	customer, err := s.store.GetCustomerByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("lookup customer: %w", err)
	}
	if customer == nil {
		return nil, ErrNoLicense
	}

	lic, err := s.store.GetLicenseByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("lookup license: %w", err)
	}
	if lic == nil {
		return nil, ErrNoLicense
	}

	return &models.LicenseInfoResponse{
		LicenseKey:  lic.LicenseKey,
		Tier:        customer.Tier,
		Status:      customer.Status,
		ExpiresAt:   customer.ExpiresAt,
		Features:    FeaturesForTier(customer.Tier),
		MaxAthletes: MaxAthletesForTier(customer.Tier),
	}, nil
}

// RecentValidations returns the latest audit rows for the customer's license.
func (s *Service) RecentValidations(ctx context.Context, customerID uuid.UUID, limit int) ([]*models.LicenseValidation, error) {
	lic, err := s.store.GetLicenseByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("lookup license: %w", err)
	}
	if lic == nil {
		return nil, ErrNoLicense
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.GetValidationsByLicenseID(ctx, lic.ID, limit)
}
