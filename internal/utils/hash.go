package utils

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// HashPin returns a bcrypt hash of a staff PIN.
func HashPin(pin string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPin compares a bcrypt hashed PIN with its possible plaintext equivalent.
func CheckPin(hashedPin, pin string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPin), []byte(pin)) == nil
}

// PinFingerprint is the stable key of a PIN in the lockout table. bcrypt
// hashes are salted and cannot be used as lookup keys.
func PinFingerprint(pin string) string {
	sum := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(sum[:])
}
