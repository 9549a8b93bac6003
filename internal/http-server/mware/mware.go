// Package mware содержит middleware для HTTP-сервера: проверку сессионного
// токена, ограничение частоты запросов, доступ для администратора и метрики.
package mware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/response"
	"github.com/magabrotheeeer/scorecard-backend/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// UserKey — ключ для имени пользователя в контексте.
const UserKey Key = "username"

// SessionCookie — имя cookie, в котором клиент может передать сессионный токен.
const SessionCookie = "session_token"

// SessionResolver описывает контракт разрешения сессионного токена в пользователя.
type SessionResolver interface {
	Status(ctx context.Context, token string) (*models.User, error)
}

// TokenFromRequest извлекает сессионный токен из запроса: сначала из
// заголовка Authorization (Bearer), затем из cookie. Заголовок имеет
// приоритет над cookie.
func TokenFromRequest(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer "), true
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}

// Username возвращает имя пользователя, положенное в контекст SessionMiddleware.
func Username(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UserKey).(string)
	return username, ok
}

// SessionMiddleware возвращает middleware, которое проверяет сессионный токен.
// Логика работы:
//  1. Извлекает токен из заголовка Authorization или из cookie.
//  2. Разрешает токен в пользователя через сервис аутентификации.
//  3. Кладёт имя пользователя в контекст запроса.
//  4. Передаёт управление следующему обработчику.
func SessionMiddleware(resolver SessionResolver, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "mware.SessionMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token, ok := TokenFromRequest(r)
			if !ok {
				log.Info("missing session token")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("authentication required"))
				return
			}

			user, err := resolver.Status(r.Context(), token)
			if err != nil {
				log.Info("invalid or expired session token")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired session token"))
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnlyMiddleware пропускает дальше только администратора.
// Должен стоять после SessionMiddleware.
func AdminOnlyMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "mware.AdminOnlyMiddleware"

			username, ok := Username(r.Context())
			if !ok || username != models.AdminUsername {
				log.Info("admin access denied",
					slog.String("op", op),
					slog.String("username", username),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware ограничивает частоту запросов к конечной точке.
// Каждый вызов создаёт собственный лимитер, поэтому разные группы маршрутов
// не делят один бюджет.
func RateLimitMiddleware(rps float64, burst int, log *slog.Logger) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Warn("too many requests",
					slog.String("path", r.URL.Path),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
