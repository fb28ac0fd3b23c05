package goMiniAuth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/goMiniAuth/internal/audit"
	"github.com/MrEthical07/goMiniAuth/internal/rate"
	"github.com/MrEthical07/goMiniAuth/internal/stores"
	"github.com/MrEthical07/goMiniAuth/initdata"
	"github.com/MrEthical07/goMiniAuth/jwt"
	"github.com/MrEthical07/goMiniAuth/session"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Builder assembles an [Engine]. A Builder can be used for one Build only.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	db        *gorm.DB
	logger    *slog.Logger
	auditSink AuditSink
	clock     func() time.Time

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration with a deep copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client used for the session cache, the revocation
// denylist and rate limiting. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDB sets the relational store. Required. The tables are expected to
// exist; see [AutoMigrate].
func (b *Builder) WithDB(db *gorm.DB) *Builder {
	b.db = db
	return b
}

// WithLogger sets the structured logger for warnings. Defaults to
// slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit sink. It is only used when Audit.Enabled is
// true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the time source for issued credentials, session
// timestamps and audit events.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.db == nil {
		return nil, errors.New("database required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	// -------- CREDENTIALS --------
	jwtManager, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		TimeFunc:      clock,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	verifier := initdata.NewVerifier(cfg.Platform.BotToken, cfg.Platform.MaxAuthAge)

	// -------- CACHE --------
	sessionCache, err := session.NewStore(b.redis, session.SessionFamily(cfg.Cache.SessionKeyPrefix, cfg.Cache.SessionTTL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	e := &Engine{
		config:       cfg,
		db:           b.db,
		logger:       logger,
		clock:        clock,
		verifier:     verifier,
		jwtManager:   jwtManager,
		sessionCache: sessionCache,
		users:        stores.NewUserRepo(cfg.Session.SeedCredits),
		sessions: stores.NewSessionRepo(stores.SessionDefaults{
			SeedCredits: float64(cfg.Session.SeedCredits),
			Preferences: cfg.Session.DefaultPreferences,
			Metadata:    cfg.Session.DefaultMetadata,
		}, clock),
		metrics: NewMetrics(cfg.Metrics),
	}

	// -------- REVOCATION --------
	if cfg.Revocation.Enabled {
		// Access tokens are the only credentials that outlive a rotation
		// unchecked, so entries live as long as one access token.
		e.denylist, err = session.NewDenylist(b.redis, cfg.Cache.RevokedKeyPrefix, cfg.JWT.AccessTTL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	// -------- RATE LIMITER --------
	if cfg.RateLimit.Enabled {
		e.rateLimiter = rate.New(b.redis, rate.Config{
			KeyPrefix:          cfg.RateLimit.KeyPrefix,
			MaxLoginAttempts:   cfg.RateLimit.LoginMax,
			LoginWindow:        cfg.RateLimit.LoginWindow,
			MaxRefreshAttempts: cfg.RateLimit.RefreshMax,
			RefreshWindow:      cfg.RateLimit.RefreshWindow,
			FailOpen:           !cfg.RateLimit.FailClosed,
		}, e.warn)
	}

	// -------- AUDIT --------
	if cfg.Audit.Enabled {
		e.audit = internalaudit.NewDispatcher(internalaudit.Config{
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			OnDrop: func(event AuditEvent) {
				logger.Warn("goMiniAuth: audit event dropped", "event_type", event.EventType)
			},
		}, b.auditSink)
	}

	b.built = true
	return e, nil
}
