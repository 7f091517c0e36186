package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// ChallengeID is a 128-bit random challenge identifier. Its string form is
// compact base64url without padding.
type ChallengeID [16]byte

// NewChallengeID draws a fresh identifier from crypto/rand.
func NewChallengeID() (ChallengeID, error) {
	var id ChallengeID
	_, err := rand.Read(id[:])
	return id, err
}

// Bytes returns the raw identifier bytes.
func (c ChallengeID) Bytes() []byte {
	return c[:]
}

// String renders the identifier as base64url, no padding.
func (c ChallengeID) String() string {
	return base64.RawURLEncoding.EncodeToString(c[:])
}

// ParseChallengeID validates and decodes a string-form identifier.
func ParseChallengeID(challengeID string) (ChallengeID, error) {
	var id ChallengeID

	raw, err := base64.RawURLEncoding.DecodeString(challengeID)
	if err != nil {
		return id, err
	}
	if len(raw) != len(id) {
		return id, errors.New("invalid challenge id size")
	}

	copy(id[:], raw)
	return id, nil
}
