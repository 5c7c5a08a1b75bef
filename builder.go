package dirauth

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opendirs/dirauth/internal/directory"
	"github.com/opendirs/dirauth/internal/lockout"
	"github.com/opendirs/dirauth/internal/stores"
	"github.com/opendirs/dirauth/password"
)

// Builder assembles an Engine. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	profiles ProfileLookup
	notifier Notifier

	auditSink AuditSink
	snapshot  *directory.Store

	built bool
}

// New returns a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the Redis client backing the lockout window and the
// two-factor code store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithProfiles sets the host application's contact lookup, required when
// two-factor delivery is enabled.
func (b *Builder) WithProfiles(profiles ProfileLookup) *Builder {
	b.profiles = profiles
	return b
}

// WithNotifier sets the out-of-band delivery collaborator, required when
// two-factor delivery is enabled.
func (b *Builder) WithNotifier(notifier Notifier) *Builder {
	b.notifier = notifier
	return b
}

// WithAuditSink sets the audit sink. Ignored unless Config.Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithDirectory seeds the engine with a previously loaded directory
// (see directory.Load) instead of an empty one.
func (b *Builder) WithDirectory(store *directory.Store) *Builder {
	b.snapshot = store
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if cfg.TwoFactor.Enabled {
		if b.profiles == nil {
			return nil, errors.New("two-factor requires a profile lookup")
		}
		if b.notifier == nil {
			return nil, errors.New("two-factor requires a notifier")
		}
	}

	hasher, err := password.NewHasher(password.Config{
		Rounds:     cfg.Password.Rounds,
		SaltLength: cfg.Password.SaltLength,
	})
	if err != nil {
		return nil, err
	}

	dir := b.snapshot
	if dir == nil {
		dir = directory.New(hasher)
	}

	engine := &Engine{
		config:    cfg,
		directory: dir,
		hasher:    hasher,
		lockout: lockout.New(b.redis, lockout.Config{
			Window:      cfg.Lockout.Window,
			MaxAttempts: cfg.Lockout.MaxAttempts,
			Prefix:      cfg.Lockout.RedisPrefix,
		}),
		authCodes: stores.NewAuthCodeStore(b.redis, cfg.TwoFactor.RedisPrefix),
		profiles:  b.profiles,
		notifier:  b.notifier,
		audit:     newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:   NewMetrics(cfg.Metrics),
		now:       time.Now,
	}

	b.built = true

	return engine, nil
}
