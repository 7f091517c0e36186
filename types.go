package otpgate

import (
	"context"
	"io"
)

// Role is the closed set of account roles creatable through this surface.
// Admin is intentionally unrepresentable here: role escalation is prevented by
// the enumeration, not by a blocklist.
type Role string

const (
	// RoleDeveloper is a self-service account that is approved on creation.
	RoleDeveloper Role = "developer"
	// RoleMentor is an account that awaits administrative approval after
	// registration completes.
	RoleMentor Role = "mentor"
)

func (r Role) valid() bool {
	return r == RoleDeveloper || r == RoleMentor
}

// RegistrationRequest carries the unconfirmed registration payload handed to
// [Engine.BeginRegistration]. Password is plaintext here and is hashed before
// anything is stored; Proof is the mentor experience upload, already parsed by
// the HTTP layer.
type RegistrationRequest struct {
	Email    string
	Username string
	FullName string
	Password string
	Phone    string
	Role     Role
	Skills   []string

	// Mentor-only fields.
	YearsOfExperience int
	Proof             io.Reader
	ProofFilename     string
}

// Account is the durable account record exposed by [AccountStore].
type Account struct {
	ID           string
	Email        string
	Username     string
	FullName     string
	Phone        string
	Role         Role
	PasswordHash string
	Verified     bool
	Active       bool
	Approved     bool
}

// CreateAccountInput is the input for [AccountStore.CreateAccount]. The store
// must apply the account row and exactly one profile row (developer or mentor,
// by Role) as a single all-or-nothing unit.
type CreateAccountInput struct {
	Email        string
	Username     string
	FullName     string
	Phone        string
	Role         Role
	PasswordHash string
	Verified     bool
	Active       bool
	Approved     bool

	Skills []string

	// Mentor profile fields. ProofPath is the staged (temporary) path at
	// creation time; the permanent path is persisted separately after the
	// file move completes.
	YearsOfExperience int
	ProofPath         string
}

// AccountSummary is returned by [Engine.ConfirmRegistration] once the durable
// transaction has committed.
type AccountSummary struct {
	AccountID string
	Email     string
	Username  string
	Role      Role
	Approved  bool
}

// TokenPair is returned by [Engine.ConfirmLoginOTP] after a successful second
// factor.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AccountStore is the durable account collaborator. Uniqueness of email and
// username is enforced by the store; CreateAccount reports a conflict with
// [ErrDuplicateAccount].
type AccountStore interface {
	CreateAccount(ctx context.Context, input CreateAccountInput) (Account, error)
	GetAccountByID(ctx context.Context, accountID string) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	UpdateMentorProofPath(ctx context.Context, accountID, proofPath string) error
}

// FileStager stages uploaded artifacts in temporary storage and promotes them
// to permanent storage at finalize time. Commit returns the path relative to
// the permanent storage root.
type FileStager interface {
	Stage(ctx context.Context, role Role, filename string, r io.Reader) (tempPath string, err error)
	Commit(ctx context.Context, tempPath string) (finalRelPath string, err error)
}

// Notifier delivers a plaintext passcode to an address. Dispatch is
// fire-and-forget: the engine logs failures and never propagates them into the
// challenge flow.
type Notifier interface {
	Notify(ctx context.Context, email, code string) error
}

// NoOpNotifier discards all codes. Useful in tests and as the default when no
// notifier is configured.
type NoOpNotifier struct{}

// Notify implements [Notifier].
func (NoOpNotifier) Notify(context.Context, string, string) error { return nil }
