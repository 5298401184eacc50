package license

import (
	"errors"
	"fmt"
	"time"

	"github.com/go4itsports/licensing/internal/models"
)

var (
	// ErrLicenseNotFound indicates the key does not match an active license.
	ErrLicenseNotFound = errors.New("invalid license key")
	// ErrFingerprintMismatch indicates the license is bound to another server.
	ErrFingerprintMismatch = errors.New("license bound to different server")
	// ErrInvalidCredentials indicates a failed login. It is deliberately
	// identical for unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoLicense indicates the customer has no license on file.
	ErrNoLicense = errors.New("no license found")
)

// SubscriptionInactiveError indicates the customer's subscription status is
// not active. RenewalURL points the deployment administrator at renewal.
type SubscriptionInactiveError struct {
	Status     models.SubscriptionStatus
	RenewalURL string
}

func (e *SubscriptionInactiveError) Error() string {
	return fmt.Sprintf("subscription inactive: status %s", e.Status)
}

// SubscriptionExpiredError indicates the subscription expiry has passed.
// ExpiredAt is the stored expiry, exposed unmodified.
type SubscriptionExpiredError struct {
	ExpiredAt  time.Time
	RenewalURL string
}

func (e *SubscriptionExpiredError) Error() string {
	return fmt.Sprintf("subscription expired at %s", e.ExpiredAt.Format(time.RFC3339))
}
