package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	internalaudit "github.com/rvasily/authcore/internal/audit"
	"github.com/rvasily/authcore/internal/governor"
	internalmetrics "github.com/rvasily/authcore/internal/metrics"
	internalnotify "github.com/rvasily/authcore/internal/notify"
	"github.com/rvasily/authcore/internal/stores"
	"github.com/rvasily/authcore/otp"
	"github.com/rvasily/authcore/password"
	"github.com/rvasily/authcore/session"
	"github.com/rvasily/authcore/token"
)

// Builder assembles an [Engine]. Construction is allocation-only; no I/O
// happens until the engine's methods are called.
type Builder struct {
	config   Config
	redis    redis.UniversalClient
	provider SubjectProvider
	notify   NotificationSink
	audit    AuditSink
	logger   zerolog.Logger
	hasLog   bool
}

// New starts a builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the shared key-value store backing sessions, governors,
// the OTP blacklist, and reset records.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSubjectProvider sets the durable subject store.
func (b *Builder) WithSubjectProvider(p SubjectProvider) *Builder {
	b.provider = p
	return b
}

// WithNotificationSink sets the security-notification receiver. Without one,
// notifications are dropped.
func (b *Builder) WithNotificationSink(sink NotificationSink) *Builder {
	b.notify = sink
	return b
}

// WithAuditSink sets the audit receiver and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.audit = sink
	b.config.Audit.Enabled = true
	return b
}

// WithLogger sets the structured logger. Without one the engine is silent.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	b.hasLog = true
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.provider == nil {
		return nil, errors.New("subject provider is required")
	}
	cfg := b.config
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	issuer, err := token.NewIssuer(token.Config{
		Issuer:           cfg.Token.Issuer,
		Audience:         cfg.Token.Audience,
		Secret:           cfg.Token.SessionSecret,
		StepUpPrivateKey: cfg.Token.StepUpPrivateKey,
		StepUpPublicKey:  cfg.Token.StepUpPublicKey,
		StepUpTTL:        cfg.Token.StepUpTTL,
		Leeway:           cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	otpEngine, err := otp.NewEngine(b.redis, otp.Config{
		Issuer: cfg.OTP.Issuer,
		Period: cfg.OTP.Period,
		Skew:   cfg.OTP.Skew,
		Prefix: cfg.OTP.RedisPrefix,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	policies := make([]governor.Policy, 0, len(cfg.Governor.Routes))
	for _, r := range cfg.Governor.Routes {
		policies = append(policies, governorPolicy(r))
	}

	logger := zerolog.Nop()
	if b.hasLog {
		logger = b.logger
	}

	return &Engine{
		config:   cfg,
		issuer:   issuer,
		sessions: session.NewStore(b.redis, cfg.Session.RedisPrefix),
		otp:      otpEngine,
		hasher:   hasher,
		lockout: governor.NewLockout(b.redis, governor.LockoutConfig{
			Threshold: cfg.Governor.LockoutThreshold,
			Window:    cfg.Governor.LockoutWindow,
			Prefix:    cfg.Governor.RedisPrefix + ":lock",
		}),
		window:   governor.NewSlidingWindow(b.redis, cfg.Governor.RedisPrefix+":rl"),
		policies: governor.NewPolicyTable(governorPolicy(cfg.Governor.DefaultRoute), policies...),
		resets:   stores.NewResetStore(b.redis, cfg.Reset.RedisPrefix),
		notifier: internalnotify.NewDispatcher(internalnotify.Config{
			BufferSize: cfg.Notify.BufferSize,
			DropIfFull: cfg.Notify.DropIfFull,
		}, b.notify),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.audit),
		metrics:  internalmetrics.New(internalmetrics.Config{Enabled: cfg.Metrics.Enabled}),
		provider: b.provider,
		log:      logger,
	}, nil
}

func governorPolicy(r RoutePolicy) governor.Policy {
	return governor.Policy{
		Class:     r.Class,
		Threshold: r.Threshold,
		Window:    r.Window,
		Penalty:   r.Penalty,
		MaxDelay:  r.MaxDelay,
		Exempt:    r.Exempt,
	}
}
