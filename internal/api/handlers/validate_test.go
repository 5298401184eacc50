package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go4itsports/licensing/internal/license"
	"github.com/go4itsports/licensing/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockStore struct {
	customers   map[uuid.UUID]*models.Customer
	byEmail     map[string]*models.Customer
	licenses    map[string]*models.License
	byCustomer  map[uuid.UUID]*models.License
	validations []*models.LicenseValidation
	failAll     bool
}

func newMockStore() *mockStore {
	return &mockStore{
		customers:  make(map[uuid.UUID]*models.Customer),
		byEmail:    make(map[string]*models.Customer),
		licenses:   make(map[string]*models.License),
		byCustomer: make(map[uuid.UUID]*models.License),
	}
}

func (m *mockStore) add(customer *models.Customer, lic *models.License) {
	m.customers[customer.ID] = customer
	m.byEmail[customer.Email] = customer
	if lic != nil {
		m.licenses[lic.LicenseKey] = lic
		m.byCustomer[customer.ID] = lic
	}
}

func (m *mockStore) GetActiveLicenseByKey(ctx context.Context, key string) (*models.License, error) {
	if m.failAll {
		return nil, errors.New("database down")
	}
	lic := m.licenses[key]
	if lic == nil || !lic.Active {
		return nil, nil
	}
	return lic, nil
}

func (m *mockStore) GetLicenseByCustomerID(ctx context.Context, customerID uuid.UUID) (*models.License, error) {
	if m.failAll {
		return nil, errors.New("database down")
	}
	return m.byCustomer[customerID], nil
}

func (m *mockStore) GetCustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	if m.failAll {
		return nil, errors.New("database down")
	}
	return m.customers[id], nil
}

func (m *mockStore) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	if m.failAll {
		return nil, errors.New("database down")
	}
	return m.byEmail[email], nil
}

func (m *mockStore) ClaimFingerprint(ctx context.Context, licenseID uuid.UUID, fingerprint, installationID string) (bool, error) {
	for _, lic := range m.licenses {
		if lic.ID == licenseID {
			if lic.ServerFingerprint != nil {
				return false, nil
			}
			fp := fingerprint
			lic.ServerFingerprint = &fp
			if installationID != "" {
				id := installationID
				lic.InstallationID = &id
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) RecordValidation(ctx context.Context, v *models.LicenseValidation) error {
	m.validations = append(m.validations, v)
	return nil
}

func (m *mockStore) GetValidationsByLicenseID(ctx context.Context, licenseID uuid.UUID, limit int) ([]*models.LicenseValidation, error) {
	var out []*models.LicenseValidation
	for i := len(m.validations) - 1; i >= 0 && len(out) < limit; i-- {
		if m.validations[i].LicenseID == licenseID {
			out = append(out, m.validations[i])
		}
	}
	return out, nil
}

func seedCustomer(store *mockStore, tier models.SubscriptionTier, status models.SubscriptionStatus, expiresAt *time.Time, fingerprint string) (*models.Customer, *models.License) {
	customer := &models.Customer{
		ID:        uuid.New(),
		Email:     "coach@academy.test",
		Name:      "Test Coach",
		Tier:      tier,
		Status:    status,
		ExpiresAt: expiresAt,
	}
	lic := &models.License{
		ID:         uuid.New(),
		CustomerID: customer.ID,
		LicenseKey: "ABC123",
		Active:     true,
	}
	if fingerprint != "" {
		lic.ServerFingerprint = &fingerprint
	}
	store.add(customer, lic)
	return customer, lic
}

func validateRouter(store *mockStore) *gin.Engine {
	svc := license.NewService(store, "https://go4itsports.com", zerolog.Nop())
	r := gin.New()
	NewValidateHandler(svc, zerolog.Nop()).RegisterRoutes(r.Group("/api"))
	return r
}

func postValidate(t *testing.T, r *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/validate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestValidateEndpoint(t *testing.T) {
	future := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("valid bound license", func(t *testing.T) {
		store := newMockStore()
		seedCustomer(store, models.TierProfessional, models.StatusActive, &future, "srv-1")
		r := validateRouter(store)

		w := postValidate(t, r, gin.H{"licenseKey": "ABC123", "serverFingerprint": "srv-1"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Valid       bool     `json:"valid"`
			Tier        string   `json:"tier"`
			Features    []string `json:"features"`
			MaxAthletes int      `json:"maxAthletes"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Valid)
		assert.Equal(t, "professional", resp.Tier)
		assert.Equal(t, 200, resp.MaxAthletes)
		assert.Len(t, resp.Features, 8)
		assert.Contains(t, resp.Features, "ai_coaching")
		require.Len(t, store.validations, 1)
		assert.Equal(t, "srv-1", store.validations[0].ServerFingerprint)
	})

	t.Run("unknown key", func(t *testing.T) {
		store := newMockStore()
		r := validateRouter(store)

		w := postValidate(t, r, gin.H{"licenseKey": "G4IT-NOPE", "serverFingerprint": "srv-1"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"Invalid license key"}`, w.Body.String())
	})

	t.Run("deactivated key looks unknown", func(t *testing.T) {
		store := newMockStore()
		_, lic := seedCustomer(store, models.TierProfessional, models.StatusActive, &future, "srv-1")
		lic.Active = false
		r := validateRouter(store)

		w := postValidate(t, r, gin.H{"licenseKey": "ABC123", "serverFingerprint": "srv-1"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"Invalid license key"}`, w.Body.String())
	})

	t.Run("inactive subscription", func(t *testing.T) {
		store := newMockStore()
		seedCustomer(store, models.TierProfessional, models.StatusCancelled, &future, "srv-1")
		r := validateRouter(store)

		w := postValidate(t, r, gin.H{"licenseKey": "ABC123", "serverFingerprint": "srv-1"})
		require.Equal(t, http.StatusForbidden, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Subscription inactive", resp["error"])
		assert.Equal(t, "cancelled", resp["status"])
		assert.Equal(t, "https://go4itsports.com/renew?license=ABC123", resp["renewalUrl"])
		assert.Empty(t, store.validations)
	})

	t.Run("expired subscription", func(t *testing.T) {
		past := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
		store := newMockStore()
		seedCustomer(store, models.TierProfessional, models.StatusActive, &past, "srv-1")
		r := validateRouter(store)

		w := postValidate(t, r, gin.H{"licenseKey": "ABC123", "serverFingerprint": "srv-1"})
		require.Equal(t, http.StatusForbidden, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Subscription expired", resp["error"])
		assert.Equal(t, "2020-06-01T00:00:00Z", resp["expiredAt"])
		assert.Contains(t, resp["renewalUrl"], "/renew?license=ABC123")
	})

	t.Run("fingerprint mismatch", func(t *testing.T) {
		store := newMockStore()
		seedCustomer(store, models.TierProfessional, models.StatusActive, &future, "srv-1")
		r := validateRouter(store)

		w := postValidate(t, r, gin.H{"licenseKey": "ABC123", "serverFingerprint": "srv-2"})
		require.Equal(t, http.StatusForbidden, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "License bound to different server", resp["error"])
		assert.Equal(t, "Contact support to transfer license", resp["support"])
		assert.Empty(t, store.validations)
	})

	t.Run("first validation binds fingerprint", func(t *testing.T) {
		store := newMockStore()
		_, lic := seedCustomer(store, models.TierStarter, models.StatusActive, &future, "")
		r := validateRouter(store)

		w := postValidate(t, r, gin.H{"licenseKey": "ABC123", "serverFingerprint": "srv-1", "installationId": "install-7"})
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, lic.ServerFingerprint)
		assert.Equal(t, "srv-1", *lic.ServerFingerprint)
		require.NotNil(t, lic.InstallationID)
		assert.Equal(t, "install-7", *lic.InstallationID)

		// The bind is permanent: a second server is now rejected.
		w = postValidate(t, r, gin.H{"licenseKey": "ABC123", "serverFingerprint": "srv-2"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		store := newMockStore()
		r := validateRouter(store)

		w := postValidate(t, r, gin.H{"licenseKey": "ABC123"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Missing required fields"}`, w.Body.String())
	})

	t.Run("store failure", func(t *testing.T) {
		store := newMockStore()
		store.failAll = true
		r := validateRouter(store)

		w := postValidate(t, r, gin.H{"licenseKey": "ABC123", "serverFingerprint": "srv-1"})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
	})
}
