package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// VerifyBcrypt compares a bcrypt hash with a plaintext password. Accounts
// imported from the previous deployment still carry bcrypt hashes.
func VerifyBcrypt(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return err == nil, err
}

// IsBcryptHash detects common bcrypt prefixes.
func IsBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}
