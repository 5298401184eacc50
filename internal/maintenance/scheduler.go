// Package maintenance runs periodic background jobs for the license server.
package maintenance

import (
	"context"
	"time"

	"github.com/go4itsports/licensing/internal/models"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Store defines the persistence operations the maintenance jobs require.
type Store interface {
	GetNewlyExpiredCustomerIDs(ctx context.Context) ([]uuid.UUID, error)
	RecordSubscriptionEvent(ctx context.Context, e *models.SubscriptionEvent) error
}

// Scheduler runs scheduled maintenance jobs.
type Scheduler struct {
	cron   *cron.Cron
	store  Store
	logger zerolog.Logger
}

// NewScheduler creates a maintenance Scheduler.
func NewScheduler(store Store, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		store:  store,
		logger: logger.With().Str("component", "maintenance").Logger(),
	}
}

// Start registers and starts the maintenance jobs. The expiry sweep runs
// daily and once at startup to catch expiries that happened while down.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("30 3 * * *", s.sweepExpiredSubscriptions); err != nil {
		return err
	}
	s.cron.Start()

	go s.sweepExpiredSubscriptions()

	s.logger.Info().Msg("maintenance scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("maintenance scheduler stopped")
}

// sweepExpiredSubscriptions records an expired event for each customer whose
// subscription expiry has passed without one. Validation behavior is driven
// by the stored expiry itself, so the sweep only affects the event log.
func (s *Scheduler) sweepExpiredSubscriptions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	ids, err := s.store.GetNewlyExpiredCustomerIDs(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("expiry sweep failed")
		return
	}

	for _, customerID := range ids {
		event := &models.SubscriptionEvent{
			ID:         uuid.New(),
			CustomerID: customerID,
			EventType:  models.EventExpired,
			CreatedAt:  time.Now(),
		}
		if err := s.store.RecordSubscriptionEvent(ctx, event); err != nil {
			s.logger.Error().Err(err).
				Str("customer_id", customerID.String()).
				Msg("failed to record expired event")
			continue
		}
		s.logger.Info().
			Str("customer_id", customerID.String()).
			Msg("subscription expired")
	}
}
