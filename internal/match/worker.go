package match

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/courtside/internal/facility"
)

type locationLister interface {
	ListWithCourts(ctx context.Context) ([]facility.Location, error)
}

type suggester interface {
	SuggestForCourt(ctx context.Context, courtID uuid.UUID) (*Suggestion, error)
}

// Dispatcher periodically asks for a suggestion on every available court.
type Dispatcher struct {
	locations locationLister
	svc       suggester
	logger    zerolog.Logger
	interval  time.Duration
}

func NewDispatcher(locations locationLister, svc suggester, interval time.Duration, logger zerolog.Logger) *Dispatcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Dispatcher{
		locations: locations,
		svc:       svc,
		logger:    logger.With().Str("component", "match_dispatcher").Logger(),
		interval:  interval,
	}
}

// Run blocks until context cancellation.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.locations == nil || d.svc == nil {
		return nil
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	// run immediately
	d.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Dispatcher) tick(ctx context.Context) {
	locations, err := d.locations.ListWithCourts(ctx)
	if err != nil {
		d.logger.Warn().Err(err).Msg("list locations failed")
		return
	}

	suggested := 0
	for _, loc := range locations {
		if !loc.Active {
			continue
		}
		for _, court := range loc.Courts {
			if court.Status != facility.CourtAvailable {
				continue
			}
			sug, err := d.svc.SuggestForCourt(ctx, court.ID)
			switch {
			case errors.Is(err, ErrLocationBusy), errors.Is(err, ErrCourtUnavailable):
				d.logger.Debug().Err(err).Str("court_id", court.ID.String()).Msg("court skipped")
			case err != nil:
				d.logger.Warn().Err(err).Str("court_id", court.ID.String()).Msg("suggest failed")
			case sug != nil:
				suggested++
			}
			if ctx.Err() != nil {
				return
			}
		}
	}

	if suggested > 0 {
		d.logger.Info().Int("suggestions", suggested).Msg("dispatch tick complete")
	}
}
