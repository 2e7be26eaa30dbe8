package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"time"
)

func NowUTC() time.Time {
	return time.Now().UTC()
}

// RandString returns n bytes of randomness hex-encoded (2n characters).
func RandString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

var usernameRe = regexp.MustCompile(`^[a-z0-9._@-]{3,64}$`)

func ValidateUsername(username string) error {
	u := strings.TrimSpace(username)
	if u == "" {
		return errors.New("username required")
	}
	if !usernameRe.MatchString(u) {
		return errors.New("username invalid")
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if len(password) > 128 {
		return errors.New("password too long")
	}
	return nil
}
