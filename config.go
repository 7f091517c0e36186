package otpgate

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Config defines all tunables for the engine. Instances are cloned at Build
// time and treated as immutable afterwards.
type Config struct {
	Challenge ChallengeConfig
	Cookie    CookieConfig
	JWT       JWTConfig
	Password  PasswordConfig
	Notify    NotifyConfig
	Metrics   MetricsConfig
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ChallengeConfig controls ephemeral challenge behavior. The same TTL and
// attempt limit apply to all three flows (registration, login, email-keyed).
type ChallengeConfig struct {
	// TTL is the lifetime of every challenge key. Expiry is the sole
	// cancellation mechanism.
	TTL time.Duration
	// MaxAttempts bounds wrong-code submissions per challenge. Reaching the
	// bound destroys the challenge; this is a hard cutoff, not a cooldown.
	MaxAttempts int
	// OTPDigits is the numeric code length (6-10).
	OTPDigits int

	RegisterKeyPrefix     string
	LoginOTPKeyPrefix     string
	LoginContextKeyPrefix string
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig shapes the HTTP-only cookie that carries the login challenge
// identifier. MaxAge always matches ChallengeConfig.TTL.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures the token issuer used after a confirmed login OTP.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the Argon2id parameters used to hash registration
// passwords and verify login passwords.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
NOTIFY CONFIG
====================================
*/

// NotifyConfig controls the asynchronous code-delivery dispatcher.
type NotifyConfig struct {
	BufferSize int
	// DropIfFull drops dispatches instead of blocking when the buffer is
	// full. Dropped counts are observable via [Engine.NotifyDropped].
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig enables the in-process atomic counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		Challenge: ChallengeConfig{
			TTL:                   300 * time.Second,
			MaxAttempts:           3,
			OTPDigits:             6,
			RegisterKeyPrefix:     "otp:register:",
			LoginOTPKeyPrefix:     "otp:",
			LoginContextKeyPrefix: "login_ctx:",
		},
		Cookie: CookieConfig{
			Name:     "challenge_id",
			Path:     "/",
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		},
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "hs256",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Notify: NotifyConfig{
			BufferSize: 64,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate reports the first configuration error, if any.
func (c Config) Validate() error {
	if c.Challenge.TTL <= 0 {
		return errors.New("Challenge.TTL must be positive")
	}
	if c.Challenge.MaxAttempts < 1 || c.Challenge.MaxAttempts > 10 {
		return errors.New("Challenge.MaxAttempts must be between 1 and 10")
	}
	if c.Challenge.OTPDigits < 6 || c.Challenge.OTPDigits > 10 {
		return errors.New("Challenge.OTPDigits must be between 6 and 10")
	}
	if c.Challenge.RegisterKeyPrefix == "" ||
		c.Challenge.LoginOTPKeyPrefix == "" ||
		c.Challenge.LoginContextKeyPrefix == "" {
		return errors.New("Challenge key prefixes must be non-empty")
	}
	if c.Challenge.LoginOTPKeyPrefix == c.Challenge.LoginContextKeyPrefix {
		return errors.New("Challenge login key prefixes must differ")
	}
	if strings.TrimSpace(c.Cookie.Name) == "" {
		return errors.New("Cookie.Name must be non-empty")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT TTLs must be positive")
	}
	if c.Notify.BufferSize < 0 {
		return errors.New("Notify.BufferSize must not be negative")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
