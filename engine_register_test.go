package otpgate

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func developerRequest() RegistrationRequest {
	return RegistrationRequest{
		Email:    "Dev@Example.com",
		Username: "dev1",
		FullName: "Dev One",
		Password: "correct-horse",
		Phone:    "555-0100",
		Role:     RoleDeveloper,
		Skills:   []string{"Go", " Redis ", ""},
	}
}

func mentorRequest() RegistrationRequest {
	return RegistrationRequest{
		Email:             "mentor@example.com",
		Username:          "mentor1",
		FullName:          "Mentor One",
		Password:          "correct-horse",
		Role:              RoleMentor,
		Skills:            []string{"go"},
		YearsOfExperience: 5,
		Proof:             strings.NewReader("certificate bytes"),
		ProofFilename:     "cert.pdf",
	}
}

func TestRegistrationFlowDeveloper(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := newMockAccountStore()
	engine, notifier := newTestEngine(t, rdb, store)
	ctx := context.Background()

	challengeID, err := engine.BeginRegistration(ctx, developerRequest())
	if err != nil {
		t.Fatalf("BeginRegistration failed: %v", err)
	}
	if challengeID == "" {
		t.Fatal("expected non-empty challenge id")
	}

	code := notifier.waitForCode(t)

	summary, err := engine.ConfirmRegistration(ctx, challengeID, code)
	if err != nil {
		t.Fatalf("ConfirmRegistration failed: %v", err)
	}
	if summary.Email != "dev@example.com" {
		t.Fatalf("expected lowercased email, got %q", summary.Email)
	}
	if summary.Role != RoleDeveloper {
		t.Fatalf("unexpected role %q", summary.Role)
	}
	if !summary.Approved {
		t.Fatal("developer accounts must be approved on creation")
	}

	input := store.lastCreateInput()
	if !input.Verified || !input.Active {
		t.Fatal("expected verified active account")
	}
	if len(input.Skills) != 2 || input.Skills[0] != "go" || input.Skills[1] != "redis" {
		t.Fatalf("expected lowercased trimmed skills, got %v", input.Skills)
	}
	if input.PasswordHash == "" || strings.Contains(input.PasswordHash, "correct-horse") {
		t.Fatal("password must be stored only as a hash")
	}
}

func TestRegistrationConfirmIsExactlyOnce(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := newMockAccountStore()
	engine, notifier := newTestEngine(t, rdb, store)
	ctx := context.Background()

	challengeID, err := engine.BeginRegistration(ctx, developerRequest())
	if err != nil {
		t.Fatalf("BeginRegistration failed: %v", err)
	}
	code := notifier.waitForCode(t)

	if _, err := engine.ConfirmRegistration(ctx, challengeID, code); err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}
	if _, err := engine.ConfirmRegistration(ctx, challengeID, code); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("expected ErrChallengeExpired on replay, got %v", err)
	}
	if got := store.createCalls(); got != 1 {
		t.Fatalf("expected exactly one create, got %d", got)
	}
}

func TestRegistrationWrongCodeThenRight(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine, notifier := newTestEngine(t, rdb, newMockAccountStore())
	ctx := context.Background()

	challengeID, err := engine.BeginRegistration(ctx, developerRequest())
	if err != nil {
		t.Fatalf("BeginRegistration failed: %v", err)
	}
	code := notifier.waitForCode(t)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	if _, err := engine.ConfirmRegistration(ctx, challengeID, wrong); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	if _, err := engine.ConfirmRegistration(ctx, challengeID, code); err != nil {
		t.Fatalf("confirm after one wrong guess failed: %v", err)
	}
}

func TestRegistrationAttemptLimitBurnsChallenge(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := newMockAccountStore()
	engine, notifier := newTestEngine(t, rdb, store)
	ctx := context.Background()

	challengeID, err := engine.BeginRegistration(ctx, developerRequest())
	if err != nil {
		t.Fatalf("BeginRegistration failed: %v", err)
	}
	code := notifier.waitForCode(t)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i := 0; i < 3; i++ {
		if _, err := engine.ConfirmRegistration(ctx, challengeID, wrong); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("attempt %d: expected ErrInvalidCode, got %v", i+1, err)
		}
	}

	if _, err := engine.ConfirmRegistration(ctx, challengeID, code); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts with the correct code, got %v", err)
	}
	if got := store.createCalls(); got != 0 {
		t.Fatalf("no account may be created, got %d creates", got)
	}
}

func TestRegistrationDuplicateBurnsChallenge(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := newMockAccountStore()
	store.put(Account{ID: "acct-0", Email: "dev@example.com", Username: "someone-else"})
	engine, notifier := newTestEngine(t, rdb, store)
	ctx := context.Background()

	challengeID, err := engine.BeginRegistration(ctx, developerRequest())
	if err != nil {
		t.Fatalf("BeginRegistration failed: %v", err)
	}
	code := notifier.waitForCode(t)

	if _, err := engine.ConfirmRegistration(ctx, challengeID, code); !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}

	// The challenge was consumed before the durable write; the burnt code
	// never replays.
	if _, err := engine.ConfirmRegistration(ctx, challengeID, code); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("expected ErrChallengeExpired after burn, got %v", err)
	}
}

func TestRegistrationExpiredChallenge(t *testing.T) {
	mr, rdb := newTestRedis(t)
	engine, notifier := newTestEngine(t, rdb, newMockAccountStore())
	ctx := context.Background()

	challengeID, err := engine.BeginRegistration(ctx, developerRequest())
	if err != nil {
		t.Fatalf("BeginRegistration failed: %v", err)
	}
	code := notifier.waitForCode(t)

	mr.FastForward(engine.config.Challenge.TTL + 1)

	if _, err := engine.ConfirmRegistration(ctx, challengeID, code); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("expected ErrChallengeExpired, got %v", err)
	}
}

func TestRegistrationMalformedChallengeID(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine, _ := newTestEngine(t, rdb, newMockAccountStore())

	if _, err := engine.ConfirmRegistration(context.Background(), "not-base64url!!", "123456"); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("expected ErrChallengeExpired, got %v", err)
	}
}

func TestRegistrationMentorApprovalAndProof(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := newMockAccountStore()
	files := &mockFileStager{}
	engine, notifier := newTestEngine(t, rdb, store, func(b *Builder) {
		b.WithFileStager(files)
	})
	ctx := context.Background()

	challengeID, err := engine.BeginRegistration(ctx, mentorRequest())
	if err != nil {
		t.Fatalf("BeginRegistration failed: %v", err)
	}
	code := notifier.waitForCode(t)

	summary, err := engine.ConfirmRegistration(ctx, challengeID, code)
	if err != nil {
		t.Fatalf("ConfirmRegistration failed: %v", err)
	}
	if summary.Approved {
		t.Fatal("mentor accounts must await approval")
	}

	committed := files.committedPaths()
	if len(committed) != 1 || committed[0] != "/staged/proof-1" {
		t.Fatalf("expected staged proof to be committed, got %v", committed)
	}

	store.mu.Lock()
	proofPath := store.proofPaths[summary.AccountID]
	store.mu.Unlock()
	if proofPath != "mentor_proofs/proof-1" {
		t.Fatalf("expected permanent proof path recorded, got %q", proofPath)
	}
}

func TestRegistrationMentorProofCommitFailureIsNonFatal(t *testing.T) {
	_, rdb := newTestRedis(t)
	store := newMockAccountStore()
	files := &mockFileStager{commitErr: errors.New("disk full")}
	engine, notifier := newTestEngine(t, rdb, store, func(b *Builder) {
		b.WithFileStager(files)
	})
	ctx := context.Background()

	challengeID, err := engine.BeginRegistration(ctx, mentorRequest())
	if err != nil {
		t.Fatalf("BeginRegistration failed: %v", err)
	}
	code := notifier.waitForCode(t)

	// The account commit already happened; a failed file move is logged, not
	// surfaced.
	summary, err := engine.ConfirmRegistration(ctx, challengeID, code)
	if err != nil {
		t.Fatalf("ConfirmRegistration failed: %v", err)
	}
	if summary.AccountID == "" {
		t.Fatal("expected created account")
	}
}

func TestRegistrationValidation(t *testing.T) {
	_, rdb := newTestRedis(t)
	engine, _ := newTestEngine(t, rdb, newMockAccountStore(), func(b *Builder) {
		b.WithFileStager(&mockFileStager{})
	})
	ctx := context.Background()

	cases := []struct {
		name    string
		mutate  func(*RegistrationRequest)
		wantErr error
	}{
		{"unknown role", func(r *RegistrationRequest) { r.Role = "admin" }, ErrInvalidRole},
		{"empty role", func(r *RegistrationRequest) { r.Role = "" }, ErrInvalidRole},
		{"missing email", func(r *RegistrationRequest) { r.Email = "" }, ErrValidation},
		{"email without at sign", func(r *RegistrationRequest) { r.Email = "nope" }, ErrValidation},
		{"missing username", func(r *RegistrationRequest) { r.Username = " " }, ErrValidation},
		{"missing full name", func(r *RegistrationRequest) { r.FullName = "" }, ErrValidation},
		{"missing password", func(r *RegistrationRequest) { r.Password = "" }, ErrValidation},
		{"empty skills", func(r *RegistrationRequest) { r.Skills = []string{" ", ""} }, ErrValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := developerRequest()
			tc.mutate(&req)
			if _, err := engine.BeginRegistration(ctx, req); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	t.Run("mentor without experience", func(t *testing.T) {
		req := mentorRequest()
		req.YearsOfExperience = 0
		if _, err := engine.BeginRegistration(ctx, req); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("mentor without proof", func(t *testing.T) {
		req := mentorRequest()
		req.Proof = nil
		if _, err := engine.BeginRegistration(ctx, req); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}
