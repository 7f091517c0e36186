package otpgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// loginChallengeStore manages the two-key login challenge: the sealed OTP
// record under one key and the authenticated-but-unconfirmed account reference
// under a second, both addressed by the same client-held identifier. Redis
// offers no cross-key transactionality, so both keys are written in one
// pipeline with identical TTLs and the confirm path defensively requires both
// to be present.
type loginChallengeStore struct {
	redis      *redis.Client
	challenges *challengeStore

	otpPrefix string
	ctxPrefix string
}

func newLoginChallengeStore(redisClient *redis.Client, challenges *challengeStore, otpPrefix, ctxPrefix string) *loginChallengeStore {
	return &loginChallengeStore{
		redis:      redisClient,
		challenges: challenges,
		otpPrefix:  otpPrefix,
		ctxPrefix:  ctxPrefix,
	}
}

func (s *loginChallengeStore) otpKey(challengeID string) string {
	return s.otpPrefix + challengeID
}

func (s *loginChallengeStore) ctxKey(challengeID string) string {
	return s.ctxPrefix + challengeID
}

// Create writes both keys together with the same TTL window.
func (s *loginChallengeStore) Create(
	ctx context.Context,
	challengeID, accountID string,
	codeHash [32]byte,
	ttl time.Duration,
) error {
	encoded, err := encodeChallengeRecord(&challengeRecord{CodeHash: codeHash})
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.otpKey(challengeID), encoded, ttl)
		pipe.Set(ctx, s.ctxKey(challengeID), accountID, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errChallengeBackend, err)
	}
	return nil
}

// AccountID resolves the context half of the pair.
func (s *loginChallengeStore) AccountID(ctx context.Context, challengeID string) (string, error) {
	accountID, err := s.redis.Get(ctx, s.ctxKey(challengeID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", errChallengeNotFound
		}
		return "", fmt.Errorf("%w: %v", errChallengeBackend, err)
	}
	return accountID, nil
}

// ConsumeCode runs the shared attempt-limited verify against the OTP half.
func (s *loginChallengeStore) ConsumeCode(
	ctx context.Context,
	challengeID string,
	providedHash [32]byte,
	maxAttempts int,
	window time.Duration,
) error {
	_, err := s.challenges.Consume(ctx, s.otpKey(challengeID), providedHash, maxAttempts, window)
	return err
}

// Destroy force-expires both halves. Removing absent keys is a no-op.
func (s *loginChallengeStore) Destroy(ctx context.Context, challengeID string) error {
	if err := s.redis.Del(ctx, s.otpKey(challengeID), s.ctxKey(challengeID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errChallengeBackend, err)
	}
	return nil
}
