package crypto

import "golang.org/x/crypto/bcrypt"

// HashPassword derives the stored bcrypt digest for a signup password.
func HashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
}

// ComparePassword checks a login attempt against the stored digest,
// returning bcrypt's mismatch error on failure.
func ComparePassword(hash []byte, plain string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain))
}
