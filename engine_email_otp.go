package otpgate

import (
	"context"
	"strings"
)

// SendEmailOTP issues an attempt-limited challenge keyed directly by the
// lowercased email address rather than a random identifier. Re-sending
// overwrites the previous challenge and restarts the TTL window.
func (e *Engine) SendEmailOTP(ctx context.Context, email string) error {
	if e.challenges == nil {
		return ErrEngineNotReady
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrValidation
	}

	code, err := generateOTP(e.config.Challenge.OTPDigits)
	if err != nil {
		return ErrChallengeUnavailable
	}

	record := &challengeRecord{CodeHash: sealCode(code)}
	key := e.config.Challenge.RegisterKeyPrefix + email
	if err := e.challenges.Save(ctx, key, record, e.config.Challenge.TTL); err != nil {
		return ErrChallengeUnavailable
	}

	e.metricInc(MetricEmailOTPSent)
	e.dispatchCode(ctx, email, code)

	return nil
}

// VerifyEmailOTP runs the attempt-limited verify against the email-keyed
// challenge. A wrong code counts an attempt and restores the full TTL window;
// the attempt limit destroys the challenge terminally; a correct code consumes
// it.
func (e *Engine) VerifyEmailOTP(ctx context.Context, email, code string) error {
	if e.challenges == nil {
		return ErrEngineNotReady
	}

	email = strings.ToLower(strings.TrimSpace(email))
	key := e.config.Challenge.RegisterKeyPrefix + email

	_, err := e.challenges.Consume(
		ctx, key, sealCode(code),
		e.config.Challenge.MaxAttempts, e.config.Challenge.TTL,
	)
	if err != nil {
		mapped := mapChallengeStoreError(err)
		switch mapped {
		case ErrTooManyAttempts:
			e.metricInc(MetricEmailOTPAttemptsExceeded)
		default:
			e.metricInc(MetricEmailOTPFailure)
		}
		return mapped
	}

	e.metricInc(MetricEmailOTPVerified)
	return nil
}
