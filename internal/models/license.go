package models

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LicenseKeyPrefix is the prefix for all issued license keys.
const LicenseKeyPrefix = "G4IT"

// License represents a license key tied to exactly one customer.
// Once ServerFingerprint is set it is immutable except by support override.
type License struct {
	ID                uuid.UUID  `json:"id"`
	CustomerID        uuid.UUID  `json:"customer_id"`
	LicenseKey        string     `json:"license_key"`
	ServerFingerprint *string    `json:"server_fingerprint,omitempty"`
	InstallationID    *string    `json:"installation_id,omitempty"`
	Active            bool       `json:"active"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NewLicense creates a new active license for a customer with a fresh key.
func NewLicense(customerID uuid.UUID) (*License, error) {
	key, err := GenerateLicenseKey()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &License{
		ID:         uuid.New(),
		CustomerID: customerID,
		LicenseKey: key,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// IsBound returns true if the license is bound to a server fingerprint.
func (l *License) IsBound() bool {
	return l.ServerFingerprint != nil && *l.ServerFingerprint != ""
}

// keyAlphabet excludes ambiguous characters (0/O, 1/I) from generated keys.
const keyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateLicenseKey generates an opaque license key of the form
// G4IT-XXXX-XXXX-XXXX-XXXX.
func GenerateLicenseKey() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate license key: %w", err)
	}
	key := LicenseKeyPrefix
	for i, b := range raw {
		if i%4 == 0 {
			key += "-"
		}
		key += string(keyAlphabet[int(b)%len(keyAlphabet)])
	}
	return key, nil
}

// LicenseValidation is one append-only audit row per successful validation.
type LicenseValidation struct {
	ID                uuid.UUID `json:"id"`
	LicenseID         uuid.UUID `json:"license_id"`
	ServerFingerprint string    `json:"server_fingerprint"`
	ValidatedAt       time.Time `json:"validated_at"`
}

// SubscriptionEventType classifies subscription lifecycle events.
type SubscriptionEventType string

const (
	// EventCreated records initial subscription creation.
	EventCreated SubscriptionEventType = "created"
	// EventRenewed records a subscription renewal.
	EventRenewed SubscriptionEventType = "renewed"
	// EventCancelled records a subscription cancellation.
	EventCancelled SubscriptionEventType = "cancelled"
	// EventExpired records a subscription passing its expiry.
	EventExpired SubscriptionEventType = "expired"
)

// SubscriptionEvent is an append-only billing lifecycle record.
type SubscriptionEvent struct {
	ID         uuid.UUID             `json:"id"`
	CustomerID uuid.UUID             `json:"customer_id"`
	EventType  SubscriptionEventType `json:"event_type"`
	EventData  map[string]any        `json:"event_data,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
}

// ValidateRequest is the request body for license validation.
type ValidateRequest struct {
	LicenseKey        string `json:"licenseKey" binding:"required"`
	ServerFingerprint string `json:"serverFingerprint" binding:"required"`
	InstallationID    string `json:"installationId"`
}

// ValidateResponse is the response body for a successful validation.
type ValidateResponse struct {
	Valid       bool             `json:"valid"`
	Tier        SubscriptionTier `json:"tier"`
	Features    []string         `json:"features"`
	MaxAthletes int              `json:"maxAthletes"`
	ExpiresAt   *time.Time       `json:"expiresAt"`
	ValidatedAt time.Time        `json:"validatedAt"`
}

// LicenseInfoResponse is the portal license summary for a customer.
type LicenseInfoResponse struct {
	LicenseKey  string             `json:"licenseKey"`
	Tier        SubscriptionTier   `json:"tier"`
	Status      SubscriptionStatus `json:"status"`
	ExpiresAt   *time.Time         `json:"expiresAt"`
	Features    []string           `json:"features"`
	MaxAthletes int                `json:"maxAthletes"`
}
