package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/scorecard-backend/internal/services/billing"
)

const testSecret = "test-webhook-secret"

type BillingServiceMock struct {
	mock.Mock
}

func (m *BillingServiceMock) ProcessEvent(ctx context.Context, ev *billing.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newRequest(body []byte, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	return req
}

func TestWebhookHandler_ServeHTTP(t *testing.T) {
	validBody := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"customer": "cus_42", "metadata": {"username": "alice", "plan": "pro"}}}
	}`)

	t.Run("valid signature processes event", func(t *testing.T) {
		billingMock := new(BillingServiceMock)
		billingMock.On("ProcessEvent", mock.Anything, mock.MatchedBy(func(ev *billing.Event) bool {
			return ev.Type == billing.EventCheckoutCompleted &&
				ev.Data.Object.Metadata["username"] == "alice"
		})).Return(nil).Once()
		handler := New(newNoopLogger(), billingMock, testSecret)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newRequest(validBody, sign(validBody)))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"success":true`)
		billingMock.AssertExpectations(t)
	})

	t.Run("missing signature", func(t *testing.T) {
		billingMock := new(BillingServiceMock)
		handler := New(newNoopLogger(), billingMock, testSecret)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newRequest(validBody, ""))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid signature")
		billingMock.AssertNotCalled(t, "ProcessEvent")
	})

	t.Run("wrong signature", func(t *testing.T) {
		billingMock := new(BillingServiceMock)
		handler := New(newNoopLogger(), billingMock, testSecret)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newRequest(validBody, sign([]byte("other body"))))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		billingMock.AssertNotCalled(t, "ProcessEvent")
	})

	t.Run("tampered body rejected", func(t *testing.T) {
		billingMock := new(BillingServiceMock)
		handler := New(newNoopLogger(), billingMock, testSecret)

		tampered := bytes.Replace(validBody, []byte(`"pro"`), []byte(`"basic"`), 1)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newRequest(tampered, sign(validBody)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		billingMock.AssertNotCalled(t, "ProcessEvent")
	})

	t.Run("signed but malformed payload", func(t *testing.T) {
		billingMock := new(BillingServiceMock)
		handler := New(newNoopLogger(), billingMock, testSecret)

		body := []byte("not a json")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newRequest(body, sign(body)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid payload")
		billingMock.AssertNotCalled(t, "ProcessEvent")
	})

	t.Run("event without id gets generated one", func(t *testing.T) {
		billingMock := new(BillingServiceMock)
		billingMock.On("ProcessEvent", mock.Anything, mock.MatchedBy(func(ev *billing.Event) bool {
			return ev.ID != ""
		})).Return(nil).Once()
		handler := New(newNoopLogger(), billingMock, testSecret)

		body := []byte(`{"type": "invoice.payment_succeeded", "data": {"object": {}}}`)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newRequest(body, sign(body)))

		require.Equal(t, http.StatusOK, w.Code)
		billingMock.AssertExpectations(t)
	})

	t.Run("processing failure", func(t *testing.T) {
		billingMock := new(BillingServiceMock)
		billingMock.On("ProcessEvent", mock.Anything, mock.Anything).
			Return(errors.New("connection refused")).Once()
		handler := New(newNoopLogger(), billingMock, testSecret)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, newRequest(validBody, sign(validBody)))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
