package otpgate

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/devconnect-io/otpgate/jwt"
	"github.com/devconnect-io/otpgate/password"
)

// Engine orchestrates the three challenge flows. Instances are produced by
// [Builder.Build] and are immutable and safe for concurrent use afterwards.
type Engine struct {
	config       Config
	challenges   *challengeStore
	loginStore   *loginChallengeStore
	accounts     AccountStore
	files        FileStager
	notify       *notifyDispatcher
	metrics      *Metrics
	passwordHash *password.Argon2
	jwtManager   *jwt.Manager

	logf func(format string, args ...any)
}

// Close drains the notification dispatcher. The engine must not be used after
// Close returns.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.notify != nil {
		e.notify.Close()
	}
}

// NotifyDropped reports code deliveries discarded without reaching the
// Notifier, whether due to a full dispatch buffer or shutdown.
func (e *Engine) NotifyDropped() uint64 {
	if e == nil || e.notify == nil {
		return 0
	}
	return e.notify.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) warn(format string, args ...any) {
	if e == nil {
		return
	}
	if e.logf != nil {
		e.logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// LoginChallengeCookie renders the HTTP-only cookie that delivers a login
// challenge identifier to the client. MaxAge matches the challenge TTL.
func (e *Engine) LoginChallengeCookie(challengeID string) *http.Cookie {
	return &http.Cookie{
		Name:     e.config.Cookie.Name,
		Value:    challengeID,
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		MaxAge:   int(e.config.Challenge.TTL.Seconds()),
		HttpOnly: true,
		Secure:   e.config.Cookie.Secure,
		SameSite: e.config.Cookie.SameSite,
	}
}

// ClearLoginChallengeCookie renders the cookie that instructs the client to
// discard the challenge identifier after confirm.
func (e *Engine) ClearLoginChallengeCookie() *http.Cookie {
	return &http.Cookie{
		Name:     e.config.Cookie.Name,
		Value:    "",
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   e.config.Cookie.Secure,
		SameSite: e.config.Cookie.SameSite,
	}
}

// ChallengeCookieName reports the configured name of the login challenge
// cookie, so HTTP handlers can look it up without hardcoding the default.
func (e *Engine) ChallengeCookieName() string {
	return e.config.Cookie.Name
}

func (e *Engine) dispatchCode(ctx context.Context, email, code string) {
	e.metricInc(MetricNotifyDispatched)
	e.notify.Dispatch(ctx, email, code)
}

// mapChallengeStoreError translates internal store sentinels into the public
// taxonomy. Absence stays indistinguishable between expiry and consumption.
func mapChallengeStoreError(err error) error {
	switch {
	case errors.Is(err, errChallengeNotFound):
		return ErrChallengeExpired
	case errors.Is(err, errChallengeCodeMismatch):
		return ErrInvalidCode
	case errors.Is(err, errChallengeAttemptsExceeded):
		return ErrTooManyAttempts
	default:
		return ErrChallengeUnavailable
	}
}
