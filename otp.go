package otpgate

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"math/big"
)

// generateOTP returns a numeric code of the given length, uniformly sampled
// from the full range with a leading non-zero digit (six digits: 100000 to
// 999999). crypto/rand keeps generation time uncorrelated with the value.
func generateOTP(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	low := big.NewInt(1)
	for i := 1; i < digits; i++ {
		low.Mul(low, big.NewInt(10))
	}
	span := new(big.Int).Mul(low, big.NewInt(9))

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	n.Add(n, low)

	return n.String(), nil
}

// sealCode is the one-way verification form of a code. Every stored comparison
// is digest-vs-digest; the plaintext only ever travels to the notifier.
func sealCode(code string) [32]byte {
	return sha256.Sum256([]byte(code))
}

func codeHashEqual(a, b [32]byte) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
