// Package auth hashes admin passwords and issues the signed session tokens
// that gate administrative endpoints.  Nothing in here performs I/O.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// Parameters of credentials created by the previous sign-up system, stored
// as "saltHex:hashHex".
const (
	legacyIterations = 100_000
	legacyKeyLen     = 32
)

// HashPassword returns a bcrypt hash using the given cost.  A cost below
// bcrypt.MinCost falls back to bcrypt.DefaultCost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares plain against a stored credential.  bcrypt hashes
// and legacy PBKDF2 credentials are both accepted.  Malformed credentials
// simply fail.
func VerifyPassword(credential, plain string) bool {
	if strings.HasPrefix(credential, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(credential), []byte(plain)) == nil
	}
	return verifyLegacy(credential, plain)
}

func verifyLegacy(credential, plain string) bool {
	saltHex, hashHex, ok := strings.Cut(credential, ":")
	if !ok || saltHex == "" || hashHex == "" {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(hashHex)
	if err != nil || len(want) != legacyKeyLen {
		return false
	}
	got := pbkdf2.Key([]byte(plain), salt, legacyIterations, legacyKeyLen, sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

