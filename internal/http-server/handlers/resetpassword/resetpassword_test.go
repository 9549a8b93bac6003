package resetpassword

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/scorecard-backend/internal/tokens"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	args := m.Called(ctx, token, newPassword)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestResetPasswordHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		mockErr        error
		wantStatusCode int
		wantSuccess    bool
		wantError      string
	}{
		{
			name:           "valid reset",
			requestBody:    Request{Token: "reset-token", NewPassword: "newsecret"},
			wantStatusCode: http.StatusOK,
			wantSuccess:    true,
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
		},
		{
			name:           "missing token",
			requestBody:    Request{NewPassword: "newsecret"},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "field Token is a required field",
		},
		{
			name:           "new password too short",
			requestBody:    Request{Token: "reset-token", NewPassword: "short"},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "field NewPassword is too short",
		},
		{
			name:           "invalid token",
			requestBody:    Request{Token: "bad-token", NewPassword: "newsecret"},
			mockErr:        tokens.ErrTokenInvalid,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid reset token",
		},
		{
			name:           "expired token",
			requestBody:    Request{Token: "old-token", NewPassword: "newsecret"},
			mockErr:        tokens.ErrTokenExpired,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "reset token has expired",
		},
		{
			name:           "storage failure",
			requestBody:    Request{Token: "reset-token", NewPassword: "newsecret"},
			mockErr:        errors.New("connection refused"),
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "failed to reset password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMock := new(AuthServiceMock)
			if req, ok := tt.requestBody.(Request); ok {
				authMock.On("ConfirmPasswordReset", mock.Anything, req.Token, req.NewPassword).
					Return(tt.mockErr).Maybe()
			}
			handler := New(newNoopLogger(), authMock)

			var bodyBytes []byte
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				var err error
				bodyBytes, err = json.Marshal(v)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/auth/reset-password", bytes.NewReader(bodyBytes))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatusCode, w.Code)

			var resp struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantSuccess, resp.Success)
			if tt.wantError != "" {
				assert.Contains(t, resp.Error, tt.wantError)
			}
		})
	}
}
