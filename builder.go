package otpgate

import (
	"errors"

	"github.com/devconnect-io/otpgate/jwt"
	"github.com/devconnect-io/otpgate/password"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Construction is allocation-only until Build;
// a builder is single-use.
type Builder struct {
	config Config
	redis  *redis.Client

	accounts AccountStore
	notifier Notifier
	files    FileStager

	built bool
}

// New returns a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The config is cloned; later
// mutation of cfg does not affect the builder.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing all challenge state. Required.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithAccountStore sets the durable account collaborator. Required.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accounts = store
	return b
}

// WithNotifier sets the code-delivery collaborator. Defaults to
// [NoOpNotifier].
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithFileStager sets the staged-upload collaborator. Required only when
// mentor registrations are accepted.
func (b *Builder) WithFileStager(fs FileStager) *Builder {
	b.files = fs
	return b
}

// WithJWTSecret sets the HS256 signing secret without replacing the rest of
// the configuration. Ed25519 deployments should set the key material via
// [Builder.WithConfig] instead.
func (b *Builder) WithJWTSecret(secret []byte) *Builder {
	b.config.JWT.SigningMethod = "hs256"
	b.config.JWT.PrivateKey = cloneBytes(secret)
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the stores, and returns the ready
// engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.accounts == nil {
		return nil, errors.New("account store required")
	}

	challenges := newChallengeStore(b.redis)

	engine := &Engine{
		config:     cfg,
		challenges: challenges,
		loginStore: newLoginChallengeStore(
			b.redis,
			challenges,
			cfg.Challenge.LoginOTPKeyPrefix,
			cfg.Challenge.LoginContextKeyPrefix,
		),
		accounts: b.accounts,
		files:    b.files,
		metrics:  NewMetrics(cfg.Metrics),
	}

	engine.notify = newNotifyDispatcher(cfg.Notify, b.notifier, func(email string, err error) {
		if err != nil {
			engine.metricInc(MetricNotifyFailed)
			engine.warn("otpgate: code delivery to %s failed: %v", email, err)
		}
	})

	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	b.built = true

	return engine, nil
}
