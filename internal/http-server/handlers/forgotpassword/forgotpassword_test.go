package forgotpassword

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
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) RequestPasswordReset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestForgotPasswordHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		mockErr        error
		wantStatusCode int
		wantSuccess    bool
		wantError      string
	}{
		{
			name:           "known email",
			requestBody:    Request{Email: "a@x.com"},
			wantStatusCode: http.StatusOK,
			wantSuccess:    true,
		},
		{
			name:           "unknown email indistinguishable",
			requestBody:    Request{Email: "ghost@x.com"},
			wantStatusCode: http.StatusOK,
			wantSuccess:    true,
		},
		{
			name:           "infrastructure failure still succeeds",
			requestBody:    Request{Email: "a@x.com"},
			mockErr:        errors.New("amqp connection refused"),
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
			name:           "email without at sign",
			requestBody:    Request{Email: "nope"},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "field Email must be a valid email address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMock := new(AuthServiceMock)
			if req, ok := tt.requestBody.(Request); ok {
				authMock.On("RequestPasswordReset", mock.Anything, req.Email).
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

			req := httptest.NewRequest(http.MethodPost, "/api/auth/forgot-password", bytes.NewReader(bodyBytes))
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
