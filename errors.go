package otpgate

import "errors"

var (
	// ErrChallengeExpired is returned when a challenge key is absent. Expiry
	// and prior consumption are indistinguishable by design; callers must
	// restart the flow.
	ErrChallengeExpired = errors.New("challenge expired or not found")
	// ErrInvalidCode is returned on a code mismatch. The challenge remains
	// retryable within its TTL window until the attempt limit is reached.
	ErrInvalidCode = errors.New("invalid code")
	// ErrTooManyAttempts is returned once the per-challenge attempt limit is
	// exhausted. It is terminal for that challenge, even if a correct code is
	// supplied afterwards.
	ErrTooManyAttempts = errors.New("too many attempts")
	// ErrDuplicateAccount is returned when finalizing a registration whose
	// email or username already exists. The challenge has been consumed
	// regardless; a burnt code never replays.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrAccountNotApproved is returned when a mentor account has not been
	// approved, both at login begin and at OTP confirm.
	ErrAccountNotApproved = errors.New("account not approved")
	// ErrInvalidCredentials is returned when password verification fails or
	// the account cannot be resolved.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotFound is returned when the durable store has no account
	// for the given identifier.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidRole is returned when a registration names a role outside the
	// closed developer/mentor enumeration.
	ErrInvalidRole = errors.New("invalid role")
	// ErrValidation is returned when a registration payload fails
	// role-specific field validation.
	ErrValidation = errors.New("invalid registration request")
	// ErrChallengeUnavailable is returned when the Redis backend cannot be
	// reached.
	ErrChallengeUnavailable = errors.New("challenge backend unavailable")
	// ErrAccountStoreUnavailable is returned when the durable account store
	// fails for a reason other than a duplicate identity.
	ErrAccountStoreUnavailable = errors.New("account store unavailable")
	// ErrEngineNotReady is returned when an Engine method is invoked without a
	// dependency its flow requires.
	ErrEngineNotReady = errors.New("engine not initialized")
)
