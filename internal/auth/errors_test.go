// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth_test

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/passgate/passgate/internal/auth"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want auth.Kind
	}{
		{"nil", nil, ""},
		{"conflict", oops.Code(auth.CodeEmailTaken).Errorf("x"), auth.KindConflict},
		{"unauthorized", oops.Code(auth.CodeInvalidCredentials).Errorf("x"), auth.KindUnauthorized},
		{"forbidden", oops.Code(auth.CodeAccountDisabled).Errorf("x"), auth.KindForbidden},
		{"bad request", oops.Code(auth.CodeResetTokenExpired).Errorf("x"), auth.KindBadRequest},
		{"not found", oops.Code(auth.CodeResetAccountMissing).Errorf("x"), auth.KindNotFound},
		{"timeout", oops.Code(auth.CodeIdentityTimeout).Errorf("x"), auth.KindTimeout},
		{"unknown code", oops.Code("RESET_REQUEST_FAILED").Errorf("x"), auth.KindInternal},
		{"plain error", errors.New("boom"), auth.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.KindOf(tt.err))
		})
	}
}
