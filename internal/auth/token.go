// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/samber/oops"
)

// TokenBytes is the number of random bytes in a generated token (256 bits).
const TokenBytes = 32

// TokenGenerator issues unpredictable URL-safe tokens.
type TokenGenerator interface {
	Generate() (string, error)
}

// RandomTokenGenerator reads TokenBytes from crypto/rand and encodes them
// with unpadded base64url.
type RandomTokenGenerator struct{}

// NewRandomTokenGenerator creates a RandomTokenGenerator.
func NewRandomTokenGenerator() *RandomTokenGenerator {
	return &RandomTokenGenerator{}
}

// Generate returns a fresh 43-character token.
func (RandomTokenGenerator) Generate() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("TOKEN_GENERATE_FAILED").Wrap(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
