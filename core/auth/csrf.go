package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// GenerateCSRF derives a per-session CSRF token from the server key, so
// tokens survive restarts without being stored alongside the session.
func GenerateCSRF(key, sessionID string) (string, error) {
	mac := hmac.New(sha256.New, []byte(key))
	if _, err := mac.Write([]byte(sessionID)); err != nil {
		return "", err
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func VerifyCSRF(expected, presented string) bool {
	if expected == "" || presented == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(presented))
}
