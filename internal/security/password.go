package security

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a bcrypt digest with a fresh random salt, so two
// hashes of the same plaintext never match byte-for-byte.
func HashPassword(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// VerifyPassword reports whether plain matches the stored digest. A malformed
// digest counts as a mismatch rather than an error.
func VerifyPassword(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
