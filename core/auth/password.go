package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// pepperize pre-hashes the password with the server pepper so the bcrypt
// input stays under its 72-byte limit regardless of password length.
func pepperize(password, pepper string) []byte {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(password))
	return []byte(hex.EncodeToString(mac.Sum(nil)))
}

func HashPassword(password, pepper string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(pepperize(password, pepper), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
// Errors other than a mismatch (malformed hash) are returned to the caller.
func VerifyPassword(password, pepper, storedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), pepperize(password, pepper))
	if err == nil {
		return true, nil
	}
	if err == bcrypt.ErrMismatchedHashAndPassword {
		return false, nil
	}
	return false, err
}
