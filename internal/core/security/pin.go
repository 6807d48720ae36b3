package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashPIN hashes the 4-digit authorization PIN for storage. The raw PIN
// never leaves the registration request: only this hash is persisted, and
// nothing logs or returns it.
func HashPIN(pin string) string {
	hash := sha256.Sum256([]byte(pin))
	return hex.EncodeToString(hash[:])
}

// VerifyPIN checks a provided PIN against the stored hash in constant time.
func VerifyPIN(providedPIN, storedHash string) bool {
	computed := HashPIN(providedPIN)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
