package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash suitable for use as the
// SNIPD_ADMIN_PASSWORD value.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a login attempt against the configured admin
// credential. The credential may be stored as a bcrypt hash or, for
// quick local setups, as the plain password itself.
func CheckPassword(password, configured string) bool {
	if configured == "" {
		return false
	}
	if strings.HasPrefix(configured, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(configured)) == 1
}
