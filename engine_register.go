package otpgate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/devconnect-io/otpgate/internal"
)

// registrationPayload is the self-contained pending-registration record stored
// behind one opaque identifier. It is written exactly once at BeginRegistration
// and is immutable until consumed or expired. The code itself lives sealed in
// the surrounding challenge record, never here.
type registrationPayload struct {
	Email             string   `json:"email"`
	Username          string   `json:"username"`
	FullName          string   `json:"full_name"`
	PasswordHash      string   `json:"password_hash"`
	Phone             string   `json:"phone,omitempty"`
	Role              Role     `json:"role"`
	Skills            []string `json:"skills"`
	YearsOfExperience int      `json:"years_of_experience,omitempty"`
	ProofTempPath     string   `json:"proof_temp_path,omitempty"`
}

// BeginRegistration validates the payload, stages the mentor proof upload,
// hashes the password, and parks the whole pending registration in Redis under
// a fresh 128-bit identifier with the configured TTL. Nothing is written to
// the durable store at this stage. The plaintext code travels only to the
// notifier.
func (e *Engine) BeginRegistration(ctx context.Context, req RegistrationRequest) (string, error) {
	if e.challenges == nil || e.passwordHash == nil {
		return "", ErrEngineNotReady
	}

	payload, err := e.validateRegistration(req)
	if err != nil {
		return "", err
	}

	hash, err := e.passwordHash.Hash(req.Password)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	payload.PasswordHash = hash

	if payload.Role == RoleMentor {
		if e.files == nil {
			return "", ErrEngineNotReady
		}
		tempPath, err := e.files.Stage(ctx, RoleMentor, req.ProofFilename, req.Proof)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrValidation, err)
		}
		payload.ProofTempPath = tempPath
	}

	code, err := generateOTP(e.config.Challenge.OTPDigits)
	if err != nil {
		return "", ErrChallengeUnavailable
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", ErrChallengeUnavailable
	}

	id, err := internal.NewChallengeID()
	if err != nil {
		return "", ErrChallengeUnavailable
	}
	challengeID := id.String()

	record := &challengeRecord{
		CodeHash: sealCode(code),
		Payload:  encoded,
	}
	key := e.config.Challenge.RegisterKeyPrefix + challengeID
	if err := e.challenges.Save(ctx, key, record, e.config.Challenge.TTL); err != nil {
		return "", ErrChallengeUnavailable
	}

	e.metricInc(MetricRegistrationBegin)
	e.dispatchCode(ctx, payload.Email, code)

	return challengeID, nil
}

// ConfirmRegistration consumes the challenge and, on a correct code, performs
// the durable account-creation transaction: one account row and exactly one
// profile row, all-or-nothing inside the store. The ephemeral record is
// destroyed the moment the code proves correct, so a burnt code never
// replays even when the durable write fails afterwards. For mentors the
// staged proof file is promoted to permanent storage strictly after the
// database commit.
func (e *Engine) ConfirmRegistration(ctx context.Context, challengeID, code string) (*AccountSummary, error) {
	if e.challenges == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}
	if _, err := internal.ParseChallengeID(challengeID); err != nil {
		return nil, ErrChallengeExpired
	}

	key := e.config.Challenge.RegisterKeyPrefix + challengeID
	record, err := e.challenges.Consume(
		ctx, key, sealCode(code),
		e.config.Challenge.MaxAttempts, e.config.Challenge.TTL,
	)
	if err != nil {
		e.metricInc(MetricRegistrationFailure)
		return nil, mapChallengeStoreError(err)
	}

	var payload registrationPayload
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		e.metricInc(MetricRegistrationFailure)
		e.warn("otpgate: registration payload for %s is unreadable: %v", challengeID, err)
		return nil, ErrChallengeUnavailable
	}

	account, err := e.accounts.CreateAccount(ctx, CreateAccountInput{
		Email:             payload.Email,
		Username:          payload.Username,
		FullName:          payload.FullName,
		Phone:             payload.Phone,
		Role:              payload.Role,
		PasswordHash:      payload.PasswordHash,
		Verified:          true,
		Active:            true,
		Approved:          payload.Role != RoleMentor,
		Skills:            payload.Skills,
		YearsOfExperience: payload.YearsOfExperience,
		ProofPath:         payload.ProofTempPath,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateAccount) {
			e.metricInc(MetricRegistrationDuplicate)
			return nil, ErrDuplicateAccount
		}
		e.metricInc(MetricRegistrationFailure)
		return nil, fmt.Errorf("%w: %v", ErrAccountStoreUnavailable, err)
	}

	if payload.Role == RoleMentor && payload.ProofTempPath != "" {
		// The move is ordered after the database commit. A failure here
		// leaves the committed temp path in place for manual reconciliation
		// rather than a committed record pointing at a phantom final path.
		if e.files == nil {
			e.warn("otpgate: no file stager; mentor proof for %s left at %s", account.ID, payload.ProofTempPath)
		} else if finalPath, err := e.files.Commit(ctx, payload.ProofTempPath); err != nil {
			e.warn("otpgate: mentor proof promotion for %s failed: %v", account.ID, err)
		} else if err := e.accounts.UpdateMentorProofPath(ctx, account.ID, finalPath); err != nil {
			e.warn("otpgate: mentor proof path update for %s failed: %v", account.ID, err)
		}
	}

	e.metricInc(MetricRegistrationSuccess)
	return &AccountSummary{
		AccountID: account.ID,
		Email:     account.Email,
		Username:  account.Username,
		Role:      account.Role,
		Approved:  account.Approved,
	}, nil
}

func (e *Engine) validateRegistration(req RegistrationRequest) (registrationPayload, error) {
	var payload registrationPayload

	if !req.Role.valid() {
		return payload, ErrInvalidRole
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return payload, fmt.Errorf("%w: valid email required", ErrValidation)
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return payload, fmt.Errorf("%w: username required", ErrValidation)
	}
	if strings.TrimSpace(req.FullName) == "" {
		return payload, fmt.Errorf("%w: full name required", ErrValidation)
	}
	if req.Password == "" {
		return payload, fmt.Errorf("%w: password required", ErrValidation)
	}

	skills := normalizeSkills(req.Skills)
	if len(skills) == 0 {
		return payload, fmt.Errorf("%w: at least one skill required", ErrValidation)
	}

	if req.Role == RoleMentor {
		if req.YearsOfExperience < 1 {
			return payload, fmt.Errorf("%w: mentors require at least one year of experience", ErrValidation)
		}
		if req.Proof == nil {
			return payload, fmt.Errorf("%w: mentors require an experience proof upload", ErrValidation)
		}
	}

	payload = registrationPayload{
		Email:    email,
		Username: username,
		FullName: strings.TrimSpace(req.FullName),
		Phone:    strings.TrimSpace(req.Phone),
		Role:     req.Role,
		Skills:   skills,
	}
	if req.Role == RoleMentor {
		payload.YearsOfExperience = req.YearsOfExperience
	}
	return payload, nil
}

func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
