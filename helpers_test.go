package otpgate

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

func testConfig() Config {
	cfg := defaultConfig()
	// Cheap Argon2 parameters keep the suite fast.
	cfg.Password = PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func newTestEngine(t *testing.T, rdb *redis.Client, store AccountStore, opts ...func(*Builder)) (*Engine, *recorderNotifier) {
	t.Helper()

	notifier := newRecorderNotifier()

	builder := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithAccountStore(store).
		WithNotifier(notifier)
	for _, opt := range opts {
		opt(builder)
	}

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, notifier
}

/*
====================================
RECORDER NOTIFIER
====================================
*/

// recorderNotifier captures dispatched codes so tests can replay them.
type recorderNotifier struct {
	mu    sync.Mutex
	codes map[string][]string
	ch    chan string
}

func newRecorderNotifier() *recorderNotifier {
	return &recorderNotifier{
		codes: make(map[string][]string),
		ch:    make(chan string, 16),
	}
}

func (r *recorderNotifier) Notify(_ context.Context, email, code string) error {
	r.mu.Lock()
	r.codes[email] = append(r.codes[email], code)
	r.mu.Unlock()

	select {
	case r.ch <- code:
	default:
	}
	return nil
}

// waitForCode blocks until the dispatcher worker delivers the next code.
func (r *recorderNotifier) waitForCode(t *testing.T) string {
	t.Helper()

	select {
	case code := <-r.ch:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatched code")
		return ""
	}
}

func (r *recorderNotifier) codesFor(email string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.codes[email]...)
}

/*
====================================
MOCK ACCOUNT STORE
====================================
*/

type mockAccountStore struct {
	mu         sync.Mutex
	nextID     int
	byID       map[string]Account
	byEmail    map[string]string
	byUsername map[string]string
	proofPaths map[string]string

	createErr error
	createN   int
	lastInput CreateAccountInput
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{
		byID:       make(map[string]Account),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		proofPaths: make(map[string]string),
	}
}

func (m *mockAccountStore) CreateAccount(_ context.Context, input CreateAccountInput) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createN++
	m.lastInput = input
	if m.createErr != nil {
		return Account{}, m.createErr
	}
	if _, exists := m.byEmail[input.Email]; exists {
		return Account{}, ErrDuplicateAccount
	}
	if _, exists := m.byUsername[input.Username]; exists {
		return Account{}, ErrDuplicateAccount
	}

	m.nextID++
	account := Account{
		ID:           fmt.Sprintf("acct-%d", m.nextID),
		Email:        input.Email,
		Username:     input.Username,
		FullName:     input.FullName,
		Phone:        input.Phone,
		Role:         input.Role,
		PasswordHash: input.PasswordHash,
		Verified:     input.Verified,
		Active:       input.Active,
		Approved:     input.Approved,
	}
	m.byID[account.ID] = account
	m.byEmail[account.Email] = account.ID
	m.byUsername[account.Username] = account.ID
	return account, nil
}

func (m *mockAccountStore) GetAccountByID(_ context.Context, accountID string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.byID[accountID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (m *mockAccountStore) GetAccountByEmail(_ context.Context, email string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return m.byID[id], nil
}

func (m *mockAccountStore) UpdateMentorProofPath(_ context.Context, accountID, proofPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[accountID]; !ok {
		return ErrAccountNotFound
	}
	m.proofPaths[accountID] = proofPath
	return nil
}

func (m *mockAccountStore) put(account Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[account.ID] = account
	m.byEmail[account.Email] = account.ID
	m.byUsername[account.Username] = account.ID
}

func (m *mockAccountStore) setApproved(accountID string, approved bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account := m.byID[accountID]
	account.Approved = approved
	m.byID[accountID] = account
}

func (m *mockAccountStore) createCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createN
}

func (m *mockAccountStore) lastCreateInput() CreateAccountInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastInput
}

/*
====================================
MOCK FILE STAGER
====================================
*/

type mockFileStager struct {
	mu        sync.Mutex
	stageN    int
	staged    []string
	committed []string

	stageErr  error
	commitErr error
}

func (f *mockFileStager) Stage(_ context.Context, _ Role, _ string, _ io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stageErr != nil {
		return "", f.stageErr
	}
	f.stageN++
	path := fmt.Sprintf("/staged/proof-%d", f.stageN)
	f.staged = append(f.staged, path)
	return path, nil
}

func (f *mockFileStager) Commit(_ context.Context, tempPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.commitErr != nil {
		return "", f.commitErr
	}
	f.committed = append(f.committed, tempPath)
	return "mentor_proofs/" + filepath.Base(tempPath), nil
}

func (f *mockFileStager) committedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.committed...)
}
