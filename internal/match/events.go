package match

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultEventChannel is the Redis Pub/Sub channel for allocation events.
const DefaultEventChannel = "alloc:events"

// Event types.
const (
	EventSuggested = "match.suggested"
	EventRejected  = "match.rejected"
	EventStarted   = "match.started"
	EventFinished  = "match.finished"
)

// Event is the payload published for every suggestion lifecycle change.
type Event struct {
	Type           string      `json:"type"`
	SuggestionID   uuid.UUID   `json:"suggestion_id,omitempty"`
	MatchID        uuid.UUID   `json:"match_id,omitempty"`
	CourtID        uuid.UUID   `json:"court_id"`
	LocationID     uuid.UUID   `json:"location_id"`
	ParticipantIDs []uuid.UUID `json:"participant_ids,omitempty"`
	PriorityScore  int         `json:"priority_score,omitempty"`
	Branch         Branch      `json:"branch,omitempty"`
	At             time.Time   `json:"at"`
}

// Publisher fans allocation events out over Redis Pub/Sub.
type Publisher struct {
	redis   *redis.Client
	channel string
	logger  zerolog.Logger
}

// NewPublisher creates a publisher on channel, or DefaultEventChannel when empty.
func NewPublisher(redis *redis.Client, channel string, logger zerolog.Logger) *Publisher {
	if channel == "" {
		channel = DefaultEventChannel
	}
	return &Publisher{
		redis:   redis,
		channel: channel,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish sends evt. Failures are logged, never returned: events are advisory.
func (p *Publisher) Publish(ctx context.Context, evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		p.logger.Warn().Err(err).Str("type", evt.Type).Msg("failed to marshal event")
		return
	}
	if err := p.redis.Publish(ctx, p.channel, data).Err(); err != nil {
		p.logger.Warn().Err(err).Str("type", evt.Type).Msg("failed to publish event")
	}
}

// Listener subscribes to allocation events and hands each decoded event to a callback.
type Listener struct {
	redis   *redis.Client
	channel string
	handle  func(Event)
	logger  zerolog.Logger
}

// NewListener creates a Pub/Sub listener. A nil handle logs each event.
func NewListener(redis *redis.Client, channel string, handle func(Event), logger zerolog.Logger) *Listener {
	if channel == "" {
		channel = DefaultEventChannel
	}
	l := &Listener{
		redis:   redis,
		channel: channel,
		handle:  handle,
		logger:  logger.With().Str("component", "event_listener").Logger(),
	}
	if l.handle == nil {
		l.handle = l.logEvent
	}
	return l
}

// Run subscribes to the channel and blocks until the context is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	if l.redis == nil {
		return nil
	}

	sub := l.redis.Subscribe(ctx, l.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			l.forward(msg.Payload)
		}
	}
}

func (l *Listener) forward(payload string) {
	var evt Event
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		l.logger.Warn().Err(err).Msg("failed to decode event payload")
		return
	}
	l.handle(evt)
}

func (l *Listener) logEvent(evt Event) {
	l.logger.Info().
		Str("type", evt.Type).
		Str("court_id", evt.CourtID.String()).
		Str("location_id", evt.LocationID.String()).
		Int("players", len(evt.ParticipantIDs)).
		Msg("allocation event")
}
