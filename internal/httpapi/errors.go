// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package httpapi

import (
	"context"
	"net/http"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/pkg/errutil"
)

// Transport error codes.
const (
	codeMalformedBody = "HTTP_MALFORMED_BODY"
	codeBodyTooLarge  = "HTTP_BODY_TOO_LARGE"
	codeInternal      = "INTERNAL"
)

var kindStatus = map[auth.Kind]int{
	auth.KindConflict:     http.StatusConflict,
	auth.KindUnauthorized: http.StatusUnauthorized,
	auth.KindForbidden:    http.StatusForbidden,
	auth.KindBadRequest:   http.StatusBadRequest,
	auth.KindNotFound:     http.StatusNotFound,
	auth.KindTimeout:      http.StatusGatewayTimeout,
	auth.KindInternal:     http.StatusInternalServerError,
}

// StatusFor returns the HTTP status for err.
func StatusFor(err error) int {
	switch errutil.Code(err) {
	case codeMalformedBody:
		return http.StatusBadRequest
	case codeBodyTooLarge:
		return http.StatusRequestEntityTooLarge
	}
	if status, ok := kindStatus[auth.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (h *Handler) failure(ctx context.Context, operation string, err error) (int, errorResponse) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusGatewayTimeout {
		errutil.LogError(h.logger.With("operation", operation), "request failed", err)
		return status, errorResponse{Code: codeInternal, Detail: "internal error"}
	}
	h.logger.DebugContext(ctx, "request rejected", "operation", operation, "code", errutil.Code(err), "status", status)
	return status, errorResponse{Code: errutil.Code(err), Detail: err.Error()}
}

