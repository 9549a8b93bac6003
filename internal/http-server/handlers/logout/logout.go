// Package logout реализует HTTP-обработчик выхода из системы.
// Выход идемпотентен: отзыв отсутствующего или уже отозванного токена
// всё равно завершается успехом.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/mware"
	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/response"
	"github.com/magabrotheeeer/scorecard-backend/internal/lib/sl"
)

// Service описывает интерфейс бизнес-логики выхода.
type Service interface {
	Logout(ctx context.Context, token string) error
}

// Handler обрабатывает HTTP-запросы выхода.
type Handler struct {
	log  *slog.Logger
	auth Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, auth Service) *Handler {
	return &Handler{log: log, auth: auth}
}

// ServeHTTP godoc
// @Summary Выход пользователя
// @Description Отзывает сессионный токен и очищает cookie. Всегда успешен.
// @Tags Auth
// @Produce  json
// @Success 200 {object} response.Response "Сессия завершена"
// @Router /api/auth/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if token, ok := mware.TokenFromRequest(r); ok {
		if err := h.auth.Logout(r.Context(), token); err != nil {
			// отзыв не удался, но клиенту это знать незачем
			log.Error("failed to revoke session", sl.Err(err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     mware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	log.Info("logout processed")
	render.JSON(w, r, response.OK())
}
