// Copyright (c) 2026 Airbotix. All rights reserved.
// Author: platform@airbotix.ai

package sec

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// SecureDigits generates a fixed-length numeric code from the OS
// cryptographic random source.
//
// # Uniformity
//
// The value is drawn uniformly from [0, 10^n) via [rand.Int], then
// zero-padded, so every n-digit code (including leading zeros) is equally
// likely. Modulo reduction over raw bytes would bias the distribution.
func SecureDigits(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("sec: code length must be positive, got %d", length)
	}

	upperBound := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	value, err := rand.Int(rand.Reader, upperBound)
	if err != nil {
		return "", fmt.Errorf("sec: failed to read random source: %w", err)
	}

	return fmt.Sprintf("%0*d", length, value), nil
}
