package shortener

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/jaevor/go-nanoid"
)

const (
	// Alphabet is the character set of generated tokens.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// DefaultTokenLength is the length of generated tokens.
	DefaultTokenLength = 6
	// MaxTokenLength bounds both generated and custom tokens.
	MaxTokenLength = 64
)

// tokenPattern matches what the redirect route accepts, and what custom tokens may use.
var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// reserved tokens collide with fixed routes of the API.
var reserved = map[string]struct{}{
	"docs":    {},
	"health":  {},
	"links":   {},
	"openapi": {},
	"schemas": {},
	"users":   {},
}

// IsReserved reports whether token is shadowed by a fixed route.
func IsReserved(token string) bool {
	_, ok := reserved[token]

	return ok
}

// Generator produces a random token. It guarantees nothing about uniqueness.
type Generator func() string

// NewGenerator returns a generator drawing length characters uniformly from Alphabet.
func NewGenerator(length int) (Generator, error) {
	if length < 1 || length > MaxTokenLength {
		return nil, fmt.Errorf("token length %d out of range 1..%d", length, MaxTokenLength)
	}

	gen, err := nanoid.CustomASCII(Alphabet, length)
	if err != nil {
		return nil, err
	}

	return Generator(gen), nil
}

// ValidateToken checks the token charset and length.
func ValidateToken(token string) error {
	if token == "" {
		return fmt.Errorf("%w: empty", ErrInvalidToken)
	}

	if len(token) > MaxTokenLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidToken, MaxTokenLength)
	}

	if !tokenPattern.MatchString(token) {
		return fmt.Errorf("%w: only letters, digits, '-' and '_' are allowed", ErrInvalidToken)
	}

	return nil
}

// ValidateURL checks that a long URL is present and within MaxURLLength.
func ValidateURL(longURL string) error {
	if longURL == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	if len(longURL) > MaxURLLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidURL, MaxURLLength)
	}

	return nil
}

// HashURL computes the SHA-256 of the URL as it was submitted.
func HashURL(longURL string) URLHash {
	h := sha256.Sum256([]byte(longURL))

	return URLHash(hex.EncodeToString(h[:]))
}
