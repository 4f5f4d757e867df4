package shortcode

import (
	"crypto/rand"
)

const (
	// Alphabet is the set of characters short codes are drawn from.
	Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	// DefaultLength is the length of generated codes.
	DefaultLength = 6
)

// Generate returns a random short code of the given length, drawn
// from cryptographically random bytes mapped onto the alphabet. Codes
// are not guaranteed unique; the link store enforces uniqueness at
// insertion time.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	code := make([]byte, length)
	for i, b := range buf {
		code[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(code), nil
}
