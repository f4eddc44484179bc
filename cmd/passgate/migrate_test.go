// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passgate/passgate/internal/store"
	"github.com/passgate/passgate/pkg/errutil"
)

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErrCode string
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "leading whitespace is handled", input: "  42", wantVersion: 42},
		{name: "trailing chars are ignored", input: "2abc", wantVersion: 2},
		{name: "negative parses", input: "-1", wantVersion: -1},
		{name: "non-numeric", input: "abc", wantErrCode: "INVALID_VERSION"},
		{name: "empty", input: "", wantErrCode: "INVALID_VERSION"},
		{name: "whitespace only", input: "   ", wantErrCode: "INVALID_VERSION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, err := parseForceVersion(tt.input)
			if tt.wantErrCode != "" {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantErrCode)
				assert.Equal(t, 0, version)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	clearEnv(t)
	for _, args := range [][]string{
		{"migrate"},
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "status"},
		{"migrate", "force", "1"},
	} {
		t.Run(args[len(args)-1], func(t *testing.T) {
			_, err := execute(t, args...)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
		})
	}
}

func TestMigrate_ForceRejectsBadVersionBeforeConnecting(t *testing.T) {
	clearEnv(t)
	_, err := execute(t, "migrate", "force", "abc", "--database-url", "postgres://localhost:1/none")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "INVALID_VERSION")
}

func TestFormatStatus(t *testing.T) {
	out := formatStatus(&store.MigrationStatus{Current: 1, Dirty: true, Applied: []uint{1}, Pending: []uint{2}})
	assert.Equal(t, "Current version: 1 (dirty)\n  [x] 000001_accounts\n  [ ] 000002_reset_tokens\n", out)
}
