// Package sweeper periodically deletes reservations that are past their
// retention window.
package sweeper

import (
	"context"
	"log"
	"time"

	"table-booking-backend/config"
	"table-booking-backend/internal/parse"
)

// Purger deletes reservations dated strictly before the given day.
type Purger interface {
	PurgeReservationsBefore(ctx context.Context, date string) (int64, error)
}

// Service runs the purge on a fixed interval.
type Service struct {
	cfg   config.SweeperConfig
	store Purger
	loc   *time.Location
	now   func() time.Time
}

// NewService creates a sweeper. Dates are computed in loc, the timezone
// reservations are booked in.
func NewService(cfg config.SweeperConfig, store Purger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{cfg: cfg, store: store, loc: loc, now: time.Now}
}

// Cutoff is the first date that is kept.
func (s *Service) Cutoff() string {
	today := s.now().In(s.loc)
	return today.AddDate(0, 0, -s.cfg.RetentionDays).Format(parse.DateLayout)
}

// Run starts the sweep loop and blocks until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Reservation sweeper is disabled. Not starting.")
		return
	}
	log.Printf("Starting reservation sweeper (every %s, keeping %d days)...", s.cfg.Interval, s.cfg.RetentionDays)

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Reservation sweeper shutting down.")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// SweepOnce performs a single purge and returns how many rows it removed.
func (s *Service) SweepOnce(ctx context.Context) int64 {
	cutoff := s.Cutoff()
	n, err := s.store.PurgeReservationsBefore(ctx, cutoff)
	if err != nil {
		log.Printf("Error purging reservations before %s: %v", cutoff, err)
		return 0
	}
	if n > 0 {
		log.Printf("Purged %d reservations dated before %s.", n, cutoff)
	}
	return n
}
