package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SubscriptionTier defines the subscription level of a customer.
type SubscriptionTier string

const (
	// TierStarter is the entry-level subscription.
	TierStarter SubscriptionTier = "starter"
	// TierProfessional adds AI coaching, recruitment and academic tracking.
	TierProfessional SubscriptionTier = "professional"
	// TierEnterprise unlocks all features including white-label branding.
	TierEnterprise SubscriptionTier = "enterprise"
)

// ValidTiers returns all recognized subscription tiers.
func ValidTiers() []SubscriptionTier {
	return []SubscriptionTier{TierStarter, TierProfessional, TierEnterprise}
}

// IsValid reports whether the tier is a recognized value.
func (t SubscriptionTier) IsValid() bool {
	for _, valid := range ValidTiers() {
		if t == valid {
			return true
		}
	}
	return false
}

// SubscriptionStatus defines the billing status of a customer account.
type SubscriptionStatus string

const (
	// StatusActive is a customer in good standing.
	StatusActive SubscriptionStatus = "active"
	// StatusInactive is a customer whose billing has lapsed.
	StatusInactive SubscriptionStatus = "inactive"
	// StatusTrial is a customer in a trial period.
	StatusTrial SubscriptionStatus = "trial"
	// StatusCancelled is a customer who cancelled their subscription.
	StatusCancelled SubscriptionStatus = "cancelled"
)

// Customer represents a customer who purchases self-hosted licenses.
// Customers are never hard-deleted; lifecycle changes go through Status.
type Customer struct {
	ID           uuid.UUID          `json:"id"`
	Email        string             `json:"email"`
	Name         string             `json:"name"`
	Company      string             `json:"company,omitempty"`
	PasswordHash string             `json:"-"` // Never expose password hash
	Tier         SubscriptionTier   `json:"subscription_tier"`
	Status       SubscriptionStatus `json:"subscription_status"`
	ExpiresAt    *time.Time         `json:"subscription_expires_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// NewCustomer creates a new Customer with the given details.
func NewCustomer(email, name, passwordHash string) *Customer {
	now := time.Now()
	return &Customer{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Tier:         TierStarter,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsActive returns true if the customer subscription is active.
func (c *Customer) IsActive() bool {
	return c.Status == StatusActive
}

// IsExpired returns true if the subscription expiry has passed.
func (c *Customer) IsExpired() bool {
	return c.ExpiresAt != nil && time.Now().After(*c.ExpiresAt)
}

// HashPassword creates a bcrypt hash of a password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePasswordHash compares a password with a stored bcrypt hash.
func ComparePasswordHash(password, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}

// LoginRequest is the request body for customer login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CustomerSummary is the public customer payload returned on login.
type CustomerSummary struct {
	ID                 uuid.UUID          `json:"id"`
	Email              string             `json:"email"`
	Name               string             `json:"name"`
	SubscriptionTier   SubscriptionTier   `json:"subscriptionTier"`
	SubscriptionStatus SubscriptionStatus `json:"subscriptionStatus"`
}

// ToSummary converts a Customer to the login response payload.
func (c *Customer) ToSummary() CustomerSummary {
	return CustomerSummary{
		ID:                 c.ID,
		Email:              c.Email,
		Name:               c.Name,
		SubscriptionTier:   c.Tier,
		SubscriptionStatus: c.Status,
	}
}

// LoginResponse is the response body for a successful login.
type LoginResponse struct {
	Token    string          `json:"token"`
	Customer CustomerSummary `json:"customer"`
}
