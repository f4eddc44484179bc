// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/pkg/errutil"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", auth.NormalizeEmail("  Alice@Example.COM \n"))
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"minimum length", "Al", false},
		{"maximum length", strings.Repeat("a", 100), false},
		{"multibyte counted as runes", strings.Repeat("é", 100), false},
		{"too short", "A", true},
		{"too long", strings.Repeat("a", 101), true},
		{"whitespace only", "    ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidateName(tt.input)
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, auth.CodeInvalidInput)
				errutil.AssertErrorContext(t, err, "field", "name")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple address", "alice@example.com", false},
		{"subdomain", "bob@mail.example.org", false},
		{"empty", "", true},
		{"missing at", "alice.example.com", true},
		{"missing domain dot", "alice@localhost", true},
		{"display name form", "Alice <alice@example.com>", true},
		{"too long", strings.Repeat("a", 250) + "@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidateEmail(tt.input)
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, auth.CodeInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"minimum length", "123456", false},
		{"maximum length", strings.Repeat("p", 128), false},
		{"too short", "12345", true},
		{"too long", strings.Repeat("p", 129), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidatePassword(tt.input)
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, auth.CodeInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}
