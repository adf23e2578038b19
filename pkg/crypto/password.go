package crypto

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a salted bcrypt digest from plaintext. The plaintext is
// never stored or logged; only the digest is persisted.
func HashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
}

// ComparePassword reports whether plaintext matches the stored digest.
// A mismatch returns bcrypt.ErrMismatchedHashAndPassword, not a server fault.
func ComparePassword(hash []byte, plain string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain))
}
