package otpgate

import (
	"context"
	"errors"
	"strings"

	"github.com/devconnect-io/otpgate/internal"
)

// LoginWithPassword verifies the first factor and, on success, issues the
// login OTP challenge. Mentor accounts that have not been approved are
// rejected before any challenge state is created.
func (e *Engine) LoginWithPassword(ctx context.Context, email, pass string) (string, error) {
	if e.accounts == nil || e.passwordHash == nil {
		return "", ErrEngineNotReady
	}
	if pass == "" {
		return "", ErrInvalidCredentials
	}

	account, err := e.accounts.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", ErrAccountStoreUnavailable
	}

	ok, err := e.passwordHash.Verify(pass, account.PasswordHash)
	if err != nil || !ok {
		return "", ErrInvalidCredentials
	}
	if account.Role == RoleMentor && !account.Approved {
		return "", ErrAccountNotApproved
	}

	return e.BeginLoginOTP(ctx, account.ID)
}

// BeginLoginOTP creates the second-factor challenge for an account whose
// password has already been verified. Two keys are written together with the
// same TTL: the sealed code and the account reference, joined only by the
// returned identifier. Deliver the identifier with
// [Engine.LoginChallengeCookie].
func (e *Engine) BeginLoginOTP(ctx context.Context, accountID string) (string, error) {
	if e.loginStore == nil || e.accounts == nil {
		return "", ErrEngineNotReady
	}

	account, err := e.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return "", ErrAccountNotFound
		}
		return "", ErrAccountStoreUnavailable
	}

	code, err := generateOTP(e.config.Challenge.OTPDigits)
	if err != nil {
		return "", ErrChallengeUnavailable
	}
	id, err := internal.NewChallengeID()
	if err != nil {
		return "", ErrChallengeUnavailable
	}
	challengeID := id.String()

	if err := e.loginStore.Create(ctx, challengeID, account.ID, sealCode(code), e.config.Challenge.TTL); err != nil {
		return "", ErrChallengeUnavailable
	}

	e.metricInc(MetricLoginOTPIssued)
	e.dispatchCode(ctx, account.Email, code)

	return challengeID, nil
}

// ConfirmLoginOTP verifies the submitted code against the challenge behind
// the client-held identifier. Partial presence of the two keys is total
// expiry; there is no partially-authenticated outcome. On a correct code both
// keys are destroyed, account eligibility is re-checked (approval state may
// have changed since begin), and tokens are issued. The caller should clear
// the identifier cookie regardless of outcome once the flow terminates.
func (e *Engine) ConfirmLoginOTP(ctx context.Context, challengeID, code string) (*TokenPair, error) {
	if e.loginStore == nil || e.accounts == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	if _, err := internal.ParseChallengeID(challengeID); err != nil {
		return nil, ErrChallengeExpired
	}

	accountID, err := e.loginStore.AccountID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, errChallengeNotFound) {
			// The context half is gone; destroy a possibly lingering OTP
			// half so the pair can never be completed.
			_ = e.loginStore.Destroy(ctx, challengeID)
			e.metricInc(MetricLoginOTPFailure)
			return nil, ErrChallengeExpired
		}
		return nil, ErrChallengeUnavailable
	}

	err = e.loginStore.ConsumeCode(
		ctx, challengeID, sealCode(code),
		e.config.Challenge.MaxAttempts, e.config.Challenge.TTL,
	)
	switch {
	case err == nil:
	case errors.Is(err, errChallengeNotFound):
		_ = e.loginStore.Destroy(ctx, challengeID)
		e.metricInc(MetricLoginOTPFailure)
		return nil, ErrChallengeExpired
	case errors.Is(err, errChallengeCodeMismatch):
		// Both keys stay intact; the caller may retry within the window.
		e.metricInc(MetricLoginOTPFailure)
		return nil, ErrInvalidCode
	case errors.Is(err, errChallengeAttemptsExceeded):
		_ = e.loginStore.Destroy(ctx, challengeID)
		e.metricInc(MetricLoginOTPAttemptsExceeded)
		return nil, ErrTooManyAttempts
	default:
		return nil, ErrChallengeUnavailable
	}

	// Code proven correct: the OTP half is consumed, remove the context half.
	if err := e.loginStore.Destroy(ctx, challengeID); err != nil {
		e.warn("otpgate: login context cleanup for %s failed: %v", challengeID, err)
	}

	account, err := e.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		e.metricInc(MetricLoginOTPFailure)
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, ErrAccountStoreUnavailable
	}
	if account.Role == RoleMentor && !account.Approved {
		e.metricInc(MetricLoginNotApproved)
		return nil, ErrAccountNotApproved
	}

	access, refresh, err := e.jwtManager.IssuePair(account.ID, string(account.Role))
	if err != nil {
		e.metricInc(MetricLoginOTPFailure)
		return nil, err
	}

	e.metricInc(MetricLoginOTPSuccess)
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
