package otpgate

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const challengeRecordVersionV1 = 1

var (
	errChallengeNotFound          = errors.New("challenge record not found")
	errChallengeCodeMismatch      = errors.New("challenge code mismatch")
	errChallengeAttemptsExceeded  = errors.New("challenge attempts exceeded")
	errChallengeBackend           = errors.New("challenge redis unavailable")
	errChallengeRecordMalformed   = errors.New("malformed challenge record")
	errChallengePayloadTooLarge   = errors.New("challenge payload too large")
	errChallengeConsumeContention = errors.New("challenge consume contention")
)

// challengeRecord is the single record shape shared by all three flows: a
// sealed code, an attempt counter, and an optional opaque payload (the
// registration flow stores its whole pending payload here; the login and
// email-keyed flows leave it empty).
type challengeRecord struct {
	Attempts uint16
	CodeHash [32]byte
	Payload  []byte
}

// challengeStore provides put/get/delete plus the attempt-limited consume
// primitive over Redis. Keys are fully qualified by the caller; the store
// imposes no prefix of its own.
type challengeStore struct {
	redis *redis.Client
}

func newChallengeStore(redisClient *redis.Client) *challengeStore {
	return &challengeStore{redis: redisClient}
}

// Save writes the record unconditionally, establishing or refreshing expiry.
func (s *challengeStore) Save(ctx context.Context, key string, record *challengeRecord, ttl time.Duration) error {
	encoded, err := encodeChallengeRecord(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, key, encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errChallengeBackend, err)
	}
	return nil
}

// Peek reads the record without touching the attempt counter. Absence is
// reported identically whether caused by expiry or prior deletion.
func (s *challengeStore) Peek(ctx context.Context, key string) (*challengeRecord, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", errChallengeBackend, err)
	}
	return decodeChallengeRecord(data)
}

// Delete removes the key. Deleting an absent key is a no-op; the returned bool
// reports whether a key was actually removed.
func (s *challengeStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.redis.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", errChallengeBackend, err)
	}
	return n > 0, nil
}

// Consume runs the attempt-limited verify against the record at key:
//
//   - absent key: errChallengeNotFound
//   - attempts already at maxAttempts: delete, errChallengeAttemptsExceeded
//     (even if the provided code is correct)
//   - code mismatch: increment attempts, re-store with the full window TTL,
//     errChallengeCodeMismatch
//   - code match: delete, return the record
//
// The read-modify-write runs under WATCH so concurrent guesses against the
// same key cannot both observe the same counter value.
func (s *challengeStore) Consume(
	ctx context.Context,
	key string,
	providedHash [32]byte,
	maxAttempts int,
	window time.Duration,
) (*challengeRecord, error) {
	const maxRetries = 4

	for i := 0; i < maxRetries; i++ {
		var matched *challengeRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeChallengeRecord(data)
			if err != nil {
				return err
			}

			if int(record.Attempts) >= maxAttempts {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return errChallengeAttemptsExceeded
			}

			if !codeHashEqual(record.CodeHash, providedHash) {
				record.Attempts++
				updated, err := encodeChallengeRecord(record)
				if err != nil {
					return err
				}
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, updated, window)
					return nil
				})
				if err != nil {
					return err
				}
				return errChallengeCodeMismatch
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}

			matched = record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return nil, errChallengeNotFound
			case errors.Is(err, errChallengeCodeMismatch),
				errors.Is(err, errChallengeAttemptsExceeded),
				errors.Is(err, errChallengeRecordMalformed):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %v", errChallengeBackend, err)
			}
		}

		return matched, nil
	}

	return nil, errChallengeConsumeContention
}

func encodeChallengeRecord(record *challengeRecord) ([]byte, error) {
	if len(record.Payload) > 1<<20 {
		return nil, errChallengePayloadTooLarge
	}

	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	buf.Write(record.CodeHash[:])

	if err := binary.Write(&buf, binary.BigEndian, uint32(len(record.Payload))); err != nil {
		return nil, err
	}
	buf.Write(record.Payload)

	return buf.Bytes(), nil
}

func decodeChallengeRecord(data []byte) (*challengeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, errChallengeRecordMalformed
	}
	if version != challengeRecordVersionV1 {
		return nil, errChallengeRecordMalformed
	}

	record := &challengeRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, errChallengeRecordMalformed
	}
	if _, err := io.ReadFull(reader, record.CodeHash[:]); err != nil {
		return nil, errChallengeRecordMalformed
	}

	var payloadLen uint32
	if err := binary.Read(reader, binary.BigEndian, &payloadLen); err != nil {
		return nil, errChallengeRecordMalformed
	}
	if payloadLen > 0 {
		record.Payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(reader, record.Payload); err != nil {
			return nil, errChallengeRecordMalformed
		}
	}

	return record, nil
}
