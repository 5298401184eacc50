package license

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go4itsports/licensing/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	getActiveLicenseByKeyFunc     func(ctx context.Context, key string) (*models.License, error)
	getLicenseByCustomerIDFunc    func(ctx context.Context, customerID uuid.UUID) (*models.License, error)
	getCustomerByIDFunc           func(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	getCustomerByEmailFunc        func(ctx context.Context, email string) (*models.Customer, error)
	claimFingerprintFunc          func(ctx context.Context, licenseID uuid.UUID, fingerprint, installationID string) (bool, error)
	recordValidationFunc          func(ctx context.Context, v *models.LicenseValidation) error
	getValidationsByLicenseIDFunc func(ctx context.Context, licenseID uuid.UUID, limit int) ([]*models.LicenseValidation, error)

	recordedValidations []*models.LicenseValidation
}

func (m *mockStore) GetActiveLicenseByKey(ctx context.Context, key string) (*models.License, error) {
	if m.getActiveLicenseByKeyFunc != nil {
		return m.getActiveLicenseByKeyFunc(ctx, key)
	}
	return nil, nil
}

func (m *mockStore) GetLicenseByCustomerID(ctx context.Context, customerID uuid.UUID) (*models.License, error) {
	if m.getLicenseByCustomerIDFunc != nil {
		return m.getLicenseByCustomerIDFunc(ctx, customerID)
	}
	return nil, nil
}

func (m *mockStore) GetCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	if m.getCustomerByIDFunc != nil {
		return m.getCustomerByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockStore) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	if m.getCustomerByEmailFunc != nil {
		return m.getCustomerByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *mockStore) ClaimFingerprint(ctx context.Context, licenseID uuid.UUID, fingerprint, installationID string) (bool, error) {
	if m.claimFingerprintFunc != nil {
		return m.claimFingerprintFunc(ctx, licenseID, fingerprint, installationID)
	}
	return true, nil
}

func (m *mockStore) RecordValidation(ctx context.Context, v *models.LicenseValidation) error {
	m.recordedValidations = append(m.recordedValidations, v)
	if m.recordValidationFunc != nil {
		return m.recordValidationFunc(ctx, v)
	}
	return nil
}

func (m *mockStore) GetValidationsByLicenseID(ctx context.Context, licenseID uuid.UUID, limit int) ([]*models.LicenseValidation, error) {
	if m.getValidationsByLicenseIDFunc != nil {
		return m.getValidationsByLicenseIDFunc(ctx, licenseID, limit)
	}
	return nil, nil
}

func newTestService(store Store) *Service {
	return NewService(store, "https://go4itsports.com", zerolog.Nop())
}

func testCustomer(tier models.SubscriptionTier, status models.SubscriptionStatus, expiresAt *time.Time) *models.Customer {
	return &models.Customer{
		ID:        uuid.New(),
		Email:     "coach@academy.test",
		Name:      "Test Coach",
		Tier:      tier,
		Status:    status,
		ExpiresAt: expiresAt,
	}
}

func testLicense(customerID uuid.UUID, fingerprint string) *models.License {
	lic := &models.License{
		ID:         uuid.New(),
		CustomerID: customerID,
		LicenseKey: "G4IT-TEST-TEST-TEST-TEST",
		Active:     true,
	}
	if fingerprint != "" {
		lic.ServerFingerprint = &fingerprint
	}
	return lic
}

func TestServiceValidate(t *testing.T) {
	ctx := context.Background()
	future := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("unknown key", func(t *testing.T) {
		store := &mockStore{}
		svc := newTestService(store)

		_, err := svc.Validate(ctx, models.ValidateRequest{LicenseKey: "G4IT-NOPE", ServerFingerprint: "srv-1"})
		assert.ErrorIs(t, err, ErrLicenseNotFound)
		assert.Empty(t, store.recordedValidations)
	})

	t.Run("inactive subscription", func(t *testing.T) {
		customer := testCustomer(models.TierProfessional, models.StatusCancelled, &future)
		lic := testLicense(customer.ID, "srv-1")
		store := &mockStore{
			getActiveLicenseByKeyFunc: func(ctx context.Context, key string) (*models.License, error) { return lic, nil },
			getCustomerByIDFunc:       func(ctx context.Context, id uuid.UUID) (*models.Customer, error) { return customer, nil },
		}
		svc := newTestService(store)

		_, err := svc.Validate(ctx, models.ValidateRequest{LicenseKey: lic.LicenseKey, ServerFingerprint: "srv-1"})
		var inactive *SubscriptionInactiveError
		require.ErrorAs(t, err, &inactive)
		assert.Equal(t, models.StatusCancelled, inactive.Status)
		assert.Equal(t, "https://go4itsports.com/renew?license=G4IT-TEST-TEST-TEST-TEST", inactive.RenewalURL)
		assert.Empty(t, store.recordedValidations)
	})

	t.Run("expired subscription", func(t *testing.T) {
		past := time.Date(2020, 6, 1, 12, 0, 0, 0, time.UTC)
		customer := testCustomer(models.TierProfessional, models.StatusActive, &past)
		lic := testLicense(customer.ID, "srv-1")
		store := &mockStore{
			getActiveLicenseByKeyFunc: func(ctx context.Context, key string) (*models.License, error) { return lic, nil },
			getCustomerByIDFunc:       func(ctx context.Context, id uuid.UUID) (*models.Customer, error) { return customer, nil },
		}
		svc := newTestService(store)

		_, err := svc.Validate(ctx, models.ValidateRequest{LicenseKey: lic.LicenseKey, ServerFingerprint: "srv-1"})
		var expired *SubscriptionExpiredError
		require.ErrorAs(t, err, &expired)
		assert.Equal(t, past, expired.ExpiredAt)
		assert.Contains(t, expired.RenewalURL, "/renew?license=")
		// The stored expiry must not be touched by a failed validation.
		assert.Equal(t, past, *customer.ExpiresAt)
		assert.Empty(t, store.recordedValidations)
	})

	t.Run("no expiry means non-expiring", func(t *testing.T) {
		customer := testCustomer(models.TierEnterprise, models.StatusActive, nil)
		lic := testLicense(customer.ID, "srv-1")
		store := &mockStore{
			getActiveLicenseByKeyFunc: func(ctx context.Context, key string) (*models.License, error) { return lic, nil },
			getCustomerByIDFunc:       func(ctx context.Context, id uuid.UUID) (*models.Customer, error) { return customer, nil },
		}
		svc := newTestService(store)

		resp, err := svc.Validate(ctx, models.ValidateRequest{LicenseKey: lic.LicenseKey, ServerFingerprint: "srv-1"})
		require.NoError(t, err)
		assert.True(t, resp.Valid)
		assert.Nil(t, resp.ExpiresAt)
	})

	t.Run("fingerprint mismatch", func(t *testing.T) {
		customer := testCustomer(models.TierProfessional, models.StatusActive, &future)
		lic := testLicense(customer.ID, "srv-1")
		store := &mockStore{
			getActiveLicenseByKeyFunc: func(ctx context.Context, key string) (*models.License, error) { return lic, nil },
			getCustomerByIDFunc:       func(ctx context.Context, id uuid.UUID) (*models.Customer, error) { return customer, nil },
		}
		svc := newTestService(store)

		_, err := svc.Validate(ctx, models.ValidateRequest{LicenseKey: lic.LicenseKey, ServerFingerprint: "srv-2"})
		assert.ErrorIs(t, err, ErrFingerprintMismatch)
		assert.Empty(t, store.recordedValidations)
	})

	t.Run("first validation claims fingerprint", func(t *testing.T) {
		customer := testCustomer(models.TierProfessional, models.StatusActive, &future)
		lic := testLicense(customer.ID, "")
		var claimedFingerprint, claimedInstallation string
		store := &mockStore{
			getActiveLicenseByKeyFunc: func(ctx context.Context, key string) (*models.License, error) { return lic, nil },
			getCustomerByIDFunc:       func(ctx context.Context, id uuid.UUID) (*models.Customer, error) { return customer, nil },
			claimFingerprintFunc: func(ctx context.Context, licenseID uuid.UUID, fingerprint, installationID string) (bool, error) {
				claimedFingerprint = fingerprint
				claimedInstallation = installationID
				return true, nil
			},
		}
		svc := newTestService(store)

		resp, err := svc.Validate(ctx, models.ValidateRequest{
			LicenseKey:        lic.LicenseKey,
			ServerFingerprint: "srv-1",
			InstallationID:    "install-9",
		})
		require.NoError(t, err)
		assert.True(t, resp.Valid)
		assert.Equal(t, "srv-1", claimedFingerprint)
		assert.Equal(t, "install-9", claimedInstallation)
		require.Len(t, store.recordedValidations, 1)
		assert.Equal(t, lic.ID, store.recordedValidations[0].LicenseID)
		assert.Equal(t, "srv-1", store.recordedValidations[0].ServerFingerprint)
	})

	t.Run("repeat validation with bound fingerprint", func(t *testing.T) {
		customer := testCustomer(models.TierProfessional, models.StatusActive, &future)
		lic := testLicense(customer.ID, "srv-1")
		store := &mockStore{
			getActiveLicenseByKeyFunc: func(ctx context.Context, key string) (*models.License, error) { return lic, nil },
			getCustomerByIDFunc:       func(ctx context.Context, id uuid.UUID) (*models.Customer, error) { return customer, nil },
			claimFingerprintFunc: func(ctx context.Context, licenseID uuid.UUID, fingerprint, installationID string) (bool, error) {
				t.Fatal("ClaimFingerprint should not be called for a bound license")
				return false, nil
			},
		}
		svc := newTestService(store)

		resp, err := svc.Validate(ctx, models.ValidateRequest{LicenseKey: lic.LicenseKey, ServerFingerprint: "srv-1"})
		require.NoError(t, err)
		assert.True(t, resp.Valid)
		assert.Equal(t, models.TierProfessional, resp.Tier)
		assert.Equal(t, 200, resp.MaxAthletes)
		assert.Len(t, resp.Features, 8)
		require.NotNil(t, resp.ExpiresAt)
		assert.Equal(t, future, *resp.ExpiresAt)
	})

	t.Run("lost claim race to same fingerprint succeeds", func(t *testing.T) {
		customer := testCustomer(models.TierStarter, models.StatusActive, &future)
		unbound := testLicense(customer.ID, "")
		bound := *unbound
		fp := "srv-1"
		bound.ServerFingerprint = &fp
		reads := 0
		store := &mockStore{
			getActiveLicenseByKeyFunc: func(ctx context.Context, key string) (*models.License, error) {
				reads++
				if reads == 1 {
					return unbound, nil
				}
				return &bound, nil
			},
			getCustomerByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Customer, error) { return customer, nil },
			claimFingerprintFunc: func(ctx context.Context, licenseID uuid.UUID, fingerprint, installationID string) (bool, error) {
				return false, nil
			},
		}
		svc := newTestService(store)

		resp, err := svc.Validate(ctx, models.ValidateRequest{LicenseKey: unbound.LicenseKey, ServerFingerprint: "srv-1"})
		require.NoError(t, err)
		assert.True(t, resp.Valid)
		assert.Equal(t, 2, reads)
	})

	t.Run("lost claim race to other fingerprint fails", func(t *testing.T) {
		customer := testCustomer(models.TierStarter, models.StatusActive, &future)
		unbound := testLicense(customer.ID, "")
		bound := *unbound
		fp := "srv-other"
		bound.ServerFingerprint = &fp
		reads := 0
		store := &mockStore{
			getActiveLicenseByKeyFunc: func(ctx context.Context, key string) (*models.License, error) {
				reads++
				if reads == 1 {
					return unbound, nil
				}
				return &bound, nil
			},
			getCustomerByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Customer, error) { return customer, nil },
			claimFingerprintFunc: func(ctx context.Context, licenseID uuid.UUID, fingerprint, installationID string) (bool, error) {
				return false, nil
			},
		}
		svc := newTestService(store)

		_, err := svc.Validate(ctx, models.ValidateRequest{LicenseKey: unbound.LicenseKey, ServerFingerprint: "srv-1"})
		assert.ErrorIs(t, err, ErrFingerprintMismatch)
		assert.Empty(t, store.recordedValidations)
	})

	t.Run("store error is propagated", func(t *testing.T) {
		store := &mockStore{
			getActiveLicenseByKeyFunc: func(ctx context.Context, key string) (*models.License, error) {
				return nil, errors.New("connection refused")
			},
		}
		svc := newTestService(store)

		_, err := svc.Validate(ctx, models.ValidateRequest{LicenseKey: "G4IT-TEST", ServerFingerprint: "srv-1"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrLicenseNotFound)
	})
}

func TestServiceAuthenticate(t *testing.T) {
	ctx := context.Background()

	hash, err := models.HashPassword("correct horse")
	require.NoError(t, err)

	customer := testCustomer(models.TierProfessional, models.StatusActive, nil)
	customer.PasswordHash = hash

	store := &mockStore{
		getCustomerByEmailFunc: func(ctx context.Context, email string) (*models.Customer, error) {
			if email == customer.Email {
				return customer, nil
			}
			return nil, nil
		},
	}
	svc := newTestService(store)

	t.Run("valid credentials", func(t *testing.T) {
		got, err := svc.Authenticate(ctx, customer.Email, "correct horse")
		require.NoError(t, err)
		assert.Equal(t, customer.ID, got.ID)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		_, wrongPass := svc.Authenticate(ctx, customer.Email, "wrong")
		_, unknownEmail := svc.Authenticate(ctx, "nobody@academy.test", "wrong")
		assert.ErrorIs(t, wrongPass, ErrInvalidCredentials)
		assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
		assert.Equal(t, wrongPass.Error(), unknownEmail.Error())
	})
}

func TestServiceLicenseInfo(t *testing.T) {
	ctx := context.Background()
	future := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	customer := testCustomer(models.TierEnterprise, models.StatusActive, &future)
	lic := testLicense(customer.ID, "srv-1")

	t.Run("found", func(t *testing.T) {
		store := &mockStore{
			getCustomerByIDFunc:        func(ctx context.Context, id uuid.UUID) (*models.Customer, error) { return customer, nil },
			getLicenseByCustomerIDFunc: func(ctx context.Context, customerID uuid.UUID) (*models.License, error) { return lic, nil },
		}
		svc := newTestService(store)

		info, err := svc.LicenseInfo(ctx, customer.ID)
		require.NoError(t, err)
		assert.Equal(t, lic.LicenseKey, info.LicenseKey)
		assert.Equal(t, models.TierEnterprise, info.Tier)
		assert.Equal(t, 9999, info.MaxAthletes)
		assert.Len(t, info.Features, 13)
	})

	t.Run("no license", func(t *testing.T) {
		store := &mockStore{
			getCustomerByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.Customer, error) { return customer, nil },
		}
		svc := newTestService(store)

		_, err := svc.LicenseInfo(ctx, customer.ID)
		assert.ErrorIs(t, err, ErrNoLicense)
	})
}

func TestServiceRecentValidations(t *testing.T) {
	ctx := context.Background()
	customer := testCustomer(models.TierStarter, models.StatusActive, nil)
	lic := testLicense(customer.ID, "srv-1")

	var gotLimit int
	store := &mockStore{
		getLicenseByCustomerIDFunc: func(ctx context.Context, customerID uuid.UUID) (*models.License, error) { return lic, nil },
		getValidationsByLicenseIDFunc: func(ctx context.Context, licenseID uuid.UUID, limit int) ([]*models.LicenseValidation, error) {
			gotLimit = limit
			return []*models.LicenseValidation{}, nil
		},
	}
	svc := newTestService(store)

	_, err := svc.RecentValidations(ctx, customer.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, gotLimit)

	_, err = svc.RecentValidations(ctx, customer.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, gotLimit)

	_, err = svc.RecentValidations(ctx, customer.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, 50, gotLimit)
}
