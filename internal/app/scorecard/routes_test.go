package scorecard_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/scorecard-backend/internal/app/scorecard"
	"github.com/magabrotheeeer/scorecard-backend/internal/config"
	"github.com/magabrotheeeer/scorecard-backend/internal/models"
	"github.com/magabrotheeeer/scorecard-backend/internal/notifier"
	"github.com/magabrotheeeer/scorecard-backend/internal/services/auth"
	"github.com/magabrotheeeer/scorecard-backend/internal/services/billing"
	"github.com/magabrotheeeer/scorecard-backend/internal/storage/repository"
	"github.com/magabrotheeeer/scorecard-backend/internal/tokens"
)

const webhookSecret = "e2e-webhook-secret"

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

// memoryStore реализует и репозиторий пользователей, и репозиторий подписок.
type memoryStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: make(map[string]*models.User)}
}

func (s *memoryStore) CreateUser(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Username]; ok {
		return repository.ErrUsernameTaken
	}
	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	s.users[user.Username] = &user
	return nil
}

func (s *memoryStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *memoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *memoryStore) UpdatePassword(_ context.Context, username, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (s *memoryStore) DeleteUser(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return repository.ErrUserNotFound
	}
	delete(s.users, username)
	return nil
}

func (s *memoryStore) ListUsers(_ context.Context) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.User
	for _, u := range s.users {
		copied := *u
		result = append(result, &copied)
	}
	return result, nil
}

func (s *memoryStore) ApplyCheckout(_ context.Context, username, plan, status,
	customerID, subscriptionID string, periodEnd *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Subscription.Plan = plan
	u.Subscription.Status = status
	if u.Subscription.ExternalCustomerID == nil && customerID != "" {
		id := customerID
		u.Subscription.ExternalCustomerID = &id
	}
	if subscriptionID != "" {
		id := subscriptionID
		u.Subscription.ExternalSubscriptionID = &id
	}
	u.Subscription.CurrentPeriodEnd = periodEnd
	return nil
}

func (s *memoryStore) findByCustomerID(customerID string) *models.User {
	for _, u := range s.users {
		if u.Subscription.ExternalCustomerID != nil && *u.Subscription.ExternalCustomerID == customerID {
			return u
		}
	}
	return nil
}

func (s *memoryStore) UpdateStatusByCustomerID(_ context.Context, customerID, status string, periodEnd *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.findByCustomerID(customerID)
	if u == nil {
		return repository.ErrUserNotFound
	}
	u.Subscription.Status = status
	if periodEnd != nil {
		u.Subscription.CurrentPeriodEnd = periodEnd
	}
	return nil
}

func (s *memoryStore) CancelByCustomerID(_ context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.findByCustomerID(customerID)
	if u == nil {
		return repository.ErrUserNotFound
	}
	u.Subscription.Plan = models.PlanFree
	u.Subscription.Status = models.StatusCanceled
	u.Subscription.ExternalSubscriptionID = nil
	u.Subscription.CurrentPeriodEnd = nil
	return nil
}

func newTestRouter(t *testing.T) (chi.Router, *captureNotifier) {
	t.Helper()
	logger := slog.New(discardHandler{})
	store := newMemoryStore()
	capture := &captureNotifier{}

	authService := auth.New(store, tokens.NewMemorySessions(), tokens.NewMemoryResets(),
		capture, 24*time.Hour, time.Hour, logger)
	billingService := billing.New(store, logger)

	cfg := &config.Config{}
	cfg.Tokens.SessionTTL = 24 * time.Hour
	cfg.Billing.WebhookSecret = webhookSecret

	router := chi.NewRouter()
	scorecard.RegisterRoutes(router, logger, authService, billingService, cfg)
	return router, capture
}

type captureNotifier struct {
	mu       sync.Mutex
	messages []notifier.ResetEmail
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, msg notifier.ResetEmail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

func doJSON(t *testing.T, router chi.Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, router chi.Router, payload string) *httptest.ResponseRecorder {
	t.Helper()
	body := []byte(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", bytes.NewReader(body))
	req.Header.Set("Signature", signBody(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type statusResponse struct {
	LoggedIn     bool                 `json:"loggedIn"`
	Username     string               `json:"username"`
	IsAdmin      bool                 `json:"isAdmin"`
	Subscription *models.Subscription `json:"subscription"`
}

func getStatus(t *testing.T, router chi.Router, token string) statusResponse {
	t.Helper()
	w := doJSON(t, router, http.MethodGet, "/api/auth/status", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)

	// регистрация
	w := doJSON(t, router, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "alice", "password": "secret1", "email": "a@x.com",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// вход
	w = doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var loginResp struct {
		Token        string              `json:"token"`
		Subscription models.Subscription `json:"subscription"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginResp))
	require.NotEmpty(t, loginResp.Token)
	assert.Equal(t, models.PlanFree, loginResp.Subscription.Plan)

	// статус: бесплатный план
	st := getStatus(t, router, loginResp.Token)
	assert.True(t, st.LoggedIn)
	assert.Equal(t, "alice", st.Username)
	assert.Equal(t, models.PlanFree, st.Subscription.Plan)

	// оплата: событие checkout от провайдера
	w = postWebhook(t, router, `{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"customer": "cus_42",
			"subscription": "sub_42",
			"metadata": {"username": "alice", "plan": "pro"}
		}}
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	st = getStatus(t, router, loginResp.Token)
	assert.Equal(t, models.PlanPro, st.Subscription.Plan)
	assert.Equal(t, models.StatusActive, st.Subscription.Status)
	assert.True(t, st.Subscription.Entitled())

	// просрочка: статус от провайдера
	w = postWebhook(t, router, `{
		"type": "customer.subscription.updated",
		"data": {"object": {"customer": "cus_42", "status": "past_due"}}
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	st = getStatus(t, router, loginResp.Token)
	assert.Equal(t, models.PlanPro, st.Subscription.Plan)
	assert.False(t, st.Subscription.Entitled())

	// отмена подписки
	w = postWebhook(t, router, `{
		"type": "customer.subscription.deleted",
		"data": {"object": {"customer": "cus_42"}}
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	st = getStatus(t, router, loginResp.Token)
	assert.Equal(t, models.PlanFree, st.Subscription.Plan)
	assert.Equal(t, models.StatusCanceled, st.Subscription.Status)

	// выход
	w = doJSON(t, router, http.MethodPost, "/api/auth/logout", loginResp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	st = getStatus(t, router, loginResp.Token)
	assert.False(t, st.LoggedIn)
}

func TestPasswordResetFlow(t *testing.T) {
	router, capture := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "alice", "password": "secret1", "email": "a@x.com",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{
		"email": "a@x.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, capture.messages, 1)
	resetToken := capture.messages[0].Token

	// токен не раскрывается в ответе
	assert.NotContains(t, w.Body.String(), resetToken)

	w = doJSON(t, router, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token": resetToken, "new_password": "newsecret",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// старый пароль не работает, новый — работает
	w = doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "secret1",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "newsecret",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// токен одноразовый
	w = doJSON(t, router, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token": resetToken, "new_password": "anothersecret",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, u := range []map[string]string{
		{"username": "admin", "password": "adminpass", "email": "admin@x.com"},
		{"username": "alice", "password": "secret1", "email": "a@x.com"},
	} {
		w := doJSON(t, router, http.MethodPost, "/api/auth/signup", "", u)
		require.Equal(t, http.StatusOK, w.Code)
	}

	login := func(username, password string) string {
		w := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
			"username": username, "password": password,
		})
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.Token
	}
	adminToken := login("admin", "adminpass")
	aliceToken := login("alice", "secret1")

	// обычному пользователю админские маршруты недоступны
	w := doJSON(t, router, http.MethodGet, "/api/admin/users", aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// администратор видит список
	w = doJSON(t, router, http.MethodGet, "/api/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listResp struct {
		Users []models.PublicUser `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	assert.Len(t, listResp.Users, 2)

	// администратор удаляет пользователя, его сессия гаснет
	w = doJSON(t, router, http.MethodDelete, "/api/admin/users/alice", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	st := getStatus(t, router, aliceToken)
	assert.False(t, st.LoggedIn)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	router, _ := newTestRouter(t)

	body := []byte(`{"type": "customer.subscription.deleted", "data": {"object": {"customer": "cus_42"}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/billing/webhook", bytes.NewReader(body))
	req.Header.Set("Signature", "bm90LWEtcmVhbC1zaWduYXR1cmU=")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
