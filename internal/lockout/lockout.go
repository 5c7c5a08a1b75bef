package lockout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Config holds the sliding-window parameters for failed-login counting.
type Config struct {
	Window      time.Duration // attempts older than this stop counting
	MaxAttempts int           // attempts in window at which the login locks
	Prefix      string        // redis key prefix, default "flo"
}

// ErrLockoutUnavailable indicates the lockout backend is unreachable.
var ErrLockoutUnavailable = errors.New("lockout backend unavailable")

// Manager tracks failed login attempts per login in a sliding window.
// Attempts are members of a sorted set scored by their timestamp; every
// read prunes entries that have slid out of the window.
type Manager struct {
	redis  redis.UniversalClient
	config Config
	now    func() time.Time
}

// New creates a lockout manager backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Manager {
	if cfg.Prefix == "" {
		cfg.Prefix = "flo"
	}
	return &Manager{
		redis:  redisClient,
		config: cfg,
		now:    time.Now,
	}
}

func (m *Manager) key(login string) string {
	return m.config.Prefix + ":" + login
}

func (m *Manager) windowStart(now time.Time) string {
	// Prune everything at or before now-window; an attempt exactly one
	// window old no longer counts.
	return strconv.FormatInt(now.Add(-m.config.Window).UnixMilli(), 10)
}

// RecordAttempt appends a failed attempt and returns the in-window count
// including it. Prune, append, and count run in one MULTI/EXEC so two
// concurrent failures for the same login both observe the post-append
// count.
func (m *Manager) RecordAttempt(ctx context.Context, login string) (int64, error) {
	now := m.now()
	key := m.key(login)

	var card *redis.IntCmd
	_, err := m.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", m.windowStart(now))
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(now.UnixMilli()),
			Member: uuid.NewString(),
		})
		card = pipe.ZCard(ctx, key)
		pipe.Expire(ctx, key, m.config.Window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	return card.Val(), nil
}

// Count returns the number of attempts currently in the window, pruning
// older ones as a side effect.
func (m *Manager) Count(ctx context.Context, login string) (int64, error) {
	now := m.now()
	key := m.key(login)

	var card *redis.IntCmd
	_, err := m.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", m.windowStart(now))
		card = pipe.ZCard(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	return card.Val(), nil
}

// Attempts returns the timestamps of attempts currently in the window,
// oldest first.
func (m *Manager) Attempts(ctx context.Context, login string) ([]time.Time, error) {
	now := m.now()
	key := m.key(login)

	var members *redis.ZSliceCmd
	_, err := m.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", m.windowStart(now))
		members = pipe.ZRangeWithScores(ctx, key, 0, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	out := make([]time.Time, 0, len(members.Val()))
	for _, z := range members.Val() {
		out = append(out, time.UnixMilli(int64(z.Score)))
	}
	return out, nil
}

// Locked reports whether the login has reached the attempt threshold.
func (m *Manager) Locked(ctx context.Context, login string) (bool, error) {
	count, err := m.Count(ctx, login)
	if err != nil {
		return false, err
	}
	return count >= int64(m.config.MaxAttempts), nil
}

// Clear discards all recorded attempts for the login (administrative
// override, or post-login policy — the caller decides the trigger).
func (m *Manager) Clear(ctx context.Context, login string) error {
	if err := m.redis.Del(ctx, m.key(login)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}
