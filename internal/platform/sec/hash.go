// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package sec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashCode hashes a plain-text one-time code using the bcrypt algorithm.
//
// Codes are low-entropy (6 digits), so a deliberately slow hash raises the
// cost of offline guessing if the store ever leaks. The plaintext code is
// never persisted anywhere.
func HashCode(plainTextCode string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextCode), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash code: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckCodeHash compares a plain-text code with its bcrypt hash.
//
// bcrypt's comparison is constant-time over the hash output, which is the
// appropriate comparison for this hash family.
func CheckCodeHash(plainTextCode, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextCode))
	return err == nil
}

// HashToken computes the SHA-256 hex digest of an opaque token value.
//
// Refresh tokens are stored and looked up by this digest so that a leaked
// database never yields usable credentials. Unlike one-time codes, signed
// tokens carry full entropy, so a fast hash is sufficient here.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
