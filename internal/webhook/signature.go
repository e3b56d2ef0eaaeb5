package webhook

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// ComputeSignature returns the hex-encoded HMAC-SHA512 of the canonical
// payload bytes keyed with secret.
func ComputeSignature(payload map[string]any, secret string) (string, error) {
	canonical, err := Canonicalize(payload)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha512.New, []byte(secret))
	if _, err := mac.Write(canonical); err != nil {
		return "", err
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifySignature checks a provider-supplied signature against the locally
// computed one. Missing credentials fail closed: an empty secret or an
// empty provided signature is a verification failure, never an error.
// The comparison is constant time.
func VerifySignature(payload map[string]any, provided, secret string) bool {
	if secret == "" || provided == "" {
		return false
	}

	expected, err := ComputeSignature(payload, secret)
	if err != nil {
		return false
	}

	return hmac.Equal([]byte(expected), []byte(provided))
}
