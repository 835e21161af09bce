package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	ErrLockNotAcquired = errors.New("location lock already held")
	ErrAlreadyHeld     = errors.New("participant already held by another suggestion")
)

// holdScript sets every key only if none of them exist.
var holdScript = redis.NewScript(`
	for _, key in ipairs(KEYS) do
		if redis.call("EXISTS", key) == 1 then
			return 0
		end
	end
	for _, key in ipairs(KEYS) do
		redis.call("SET", key, ARGV[1], "PX", ARGV[2])
	end
	return 1
`)

// releaseScript deletes only the keys still owned by ARGV[1].
var releaseScript = redis.NewScript(`
	local n = 0
	for _, key in ipairs(KEYS) do
		if redis.call("GET", key) == ARGV[1] then
			n = n + redis.call("DEL", key)
		end
	end
	return n
`)

// Manager reserves queued participants while a suggestion is pending and
// serializes allocation per location, all backed by Redis.
type Manager struct {
	redis   *redis.Client
	logger  zerolog.Logger
	holdTTL time.Duration
	lockTTL time.Duration
}

// NewManager creates a hold manager. Non-positive TTLs fall back to 2m holds and 10s locks.
func NewManager(redis *redis.Client, logger zerolog.Logger, holdTTL, lockTTL time.Duration) *Manager {
	if holdTTL <= 0 {
		holdTTL = 2 * time.Minute
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &Manager{
		redis:   redis,
		logger:  logger.With().Str("component", "hold_manager").Logger(),
		holdTTL: holdTTL,
		lockTTL: lockTTL,
	}
}

// HoldTTL is how long a hold lives without being released.
func (m *Manager) HoldTTL() time.Duration {
	return m.holdTTL
}

// LockLocation acquires the allocation lock for a location.
// The returned unlock function only deletes the lock if it is still ours.
func (m *Manager) LockLocation(ctx context.Context, locationID uuid.UUID) (func() error, error) {
	key := lockKey(locationID)
	token := uuid.New().String()

	acquired, err := m.redis.SetNX(ctx, key, token, m.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return nil, ErrLockNotAcquired
	}

	unlock := func() error {
		return releaseScript.Run(context.WithoutCancel(ctx), m.redis, []string{key}, token).Err()
	}
	return unlock, nil
}

// Hold reserves every participant for suggestionID, or none of them.
func (m *Manager) Hold(ctx context.Context, suggestionID uuid.UUID, participantIDs []uuid.UUID) error {
	ok, err := holdScript.Run(ctx, m.redis, holdKeys(participantIDs), suggestionID.String(), m.holdTTL.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("hold participants: %w", err)
	}
	if ok == 0 {
		return ErrAlreadyHeld
	}

	m.logger.Info().
		Str("suggestion_id", suggestionID.String()).
		Int("participants", len(participantIDs)).
		Dur("ttl", m.holdTTL).
		Msg("participants held")
	return nil
}

// Release drops the holds owned by suggestionID.
func (m *Manager) Release(ctx context.Context, suggestionID uuid.UUID, participantIDs []uuid.UUID) error {
	n, err := releaseScript.Run(ctx, m.redis, holdKeys(participantIDs), suggestionID.String()).Int()
	if err != nil {
		return fmt.Errorf("release participants: %w", err)
	}
	m.logger.Info().
		Str("suggestion_id", suggestionID.String()).
		Int("released", n).
		Msg("participants released")
	return nil
}

// Held reports which of the given participants are currently reserved.
func (m *Manager) Held(ctx context.Context, participantIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	held := make(map[uuid.UUID]bool)
	if len(participantIDs) == 0 {
		return held, nil
	}

	vals, err := m.redis.MGet(ctx, holdKeys(participantIDs)...).Result()
	if err != nil {
		return nil, fmt.Errorf("list holds: %w", err)
	}
	for i, v := range vals {
		if v != nil {
			held[participantIDs[i]] = true
		}
	}
	return held, nil
}

func lockKey(locationID uuid.UUID) string {
	return fmt.Sprintf("alloc:lock:%s", locationID.String())
}

func holdKeys(ids []uuid.UUID) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf("alloc:hold:%s", id.String())
	}
	return keys
}
