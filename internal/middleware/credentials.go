package middleware

import (
	"encoding/base64"
	"errors"
	"strings"
)

var (
	ErrMissingCredentials   = errors.New("missing credentials")
	ErrMalformedCredentials = errors.New("malformed credentials")
	ErrMissingIdentifier    = errors.New("credentials missing identifier")
	ErrMissingSecret        = errors.New("credentials missing secret")
)

// ParseBasic decodes a Basic Authorization header value into identifier and secret.
func ParseBasic(header string) (identifier, secret string, err error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", "", ErrMissingCredentials
	}

	scheme, encoded, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Basic") {
		return "", "", ErrMalformedCredentials
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", "", ErrMalformedCredentials
	}

	identifier, secret, ok = strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", ErrMalformedCredentials
	}

	if identifier == "" {
		return "", "", ErrMissingIdentifier
	}

	if secret == "" {
		return "", "", ErrMissingSecret
	}

	return identifier, secret, nil
}
