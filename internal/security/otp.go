package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	otpLength = 6
	otpDigits = "0123456789"
)

// GenerateOTP returns a six-digit numeric code. Each digit is drawn
// independently from crypto/rand; leading zeros are allowed.
func GenerateOTP() (string, error) {
	code := make([]byte, otpLength)
	max := big.NewInt(int64(len(otpDigits)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("draw otp digit: %w", err)
		}
		code[i] = otpDigits[n.Int64()]
	}
	return string(code), nil
}

// HashOTP produces the storage digest for a code. OTPs are short-lived and
// compared by exact digest match, so a fast deterministic hash is used
// instead of the password KDF.
func HashOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// OTPEqual compares two digests in constant time.
func OTPEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
