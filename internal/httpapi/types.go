// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package httpapi

import "github.com/passgate/passgate/internal/auth"

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type federatedRequest struct {
	Credential string `json:"credential"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type okResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type registerResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type loginResponse struct {
	OK      bool         `json:"ok"`
	Message string       `json:"message"`
	User    userResponse `json:"user"`
	Token   string       `json:"token"`
}

func newLoginResponse(res *auth.LoginResult) loginResponse {
	return loginResponse{
		OK:      true,
		Message: "login successful",
		User: userResponse{
			ID:    res.Account.ID.String(),
			Name:  res.Account.Name,
			Email: res.Account.Email,
		},
		Token: res.SessionMarker,
	}
}

type forgotPasswordResponse struct {
	OK         bool   `json:"ok"`
	Message    string `json:"message"`
	Token      string `json:"token,omitempty"`
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`
}

type errorResponse struct {
	OK     bool   `json:"ok"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}
