package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrSuggestionNotFound is returned for unknown or expired suggestions.
var ErrSuggestionNotFound = errors.New("suggestion not found")

// SuggestionStore keeps pending suggestions in Redis until they are accepted,
// rejected or expire. A court has at most one pending suggestion.
type SuggestionStore struct {
	redis  *redis.Client
	logger zerolog.Logger
	ttl    time.Duration
}

// NewSuggestionStore creates a store whose entries live for ttl.
func NewSuggestionStore(redis *redis.Client, ttl time.Duration, logger zerolog.Logger) *SuggestionStore {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &SuggestionStore{
		redis:  redis,
		logger: logger.With().Str("component", "suggestion_store").Logger(),
		ttl:    ttl,
	}
}

// Save stores the suggestion and indexes it by court.
func (s *SuggestionStore) Save(ctx context.Context, sug *Suggestion) error {
	data, err := json.Marshal(sug)
	if err != nil {
		return fmt.Errorf("marshal suggestion: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, suggestionKey(sug.ID), data, s.ttl)
	pipe.Set(ctx, courtKey(sug.CourtID), sug.ID.String(), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store suggestion: %w", err)
	}
	return nil
}

// Get loads a suggestion by id.
func (s *SuggestionStore) Get(ctx context.Context, id uuid.UUID) (*Suggestion, error) {
	data, err := s.redis.Get(ctx, suggestionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrSuggestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get suggestion: %w", err)
	}

	var sug Suggestion
	if err := json.Unmarshal(data, &sug); err != nil {
		return nil, fmt.Errorf("unmarshal suggestion: %w", err)
	}
	return &sug, nil
}

// ForCourt returns the court's pending suggestion, or nil.
func (s *SuggestionStore) ForCourt(ctx context.Context, courtID uuid.UUID) (*Suggestion, error) {
	raw, err := s.redis.Get(ctx, courtKey(courtID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get court suggestion: %w", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse suggestion id: %w", err)
	}

	sug, err := s.Get(ctx, id)
	if errors.Is(err, ErrSuggestionNotFound) {
		s.logger.Warn().Str("court_id", courtID.String()).Msg("dangling court suggestion index")
		return nil, nil
	}
	return sug, err
}

// Delete removes the suggestion and, if it still points at it, the court index.
func (s *SuggestionStore) Delete(ctx context.Context, sug *Suggestion) error {
	if err := s.redis.Del(ctx, suggestionKey(sug.ID)).Err(); err != nil {
		return fmt.Errorf("delete suggestion: %w", err)
	}
	script := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`
	if err := s.redis.Eval(ctx, script, []string{courtKey(sug.CourtID)}, sug.ID.String()).Err(); err != nil {
		return fmt.Errorf("delete court index: %w", err)
	}
	return nil
}

func suggestionKey(id uuid.UUID) string {
	return fmt.Sprintf("alloc:suggestion:%s", id.String())
}

func courtKey(courtID uuid.UUID) string {
	return fmt.Sprintf("alloc:court:%s", courtID.String())
}
