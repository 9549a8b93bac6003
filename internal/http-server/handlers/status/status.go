// Package status реализует HTTP-обработчик проверки текущей сессии.
// Отсутствующий или недействительный токен — не ошибка: ответ просто
// сообщает loggedIn=false.
package status

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/mware"
	"github.com/magabrotheeeer/scorecard-backend/internal/lib/sl"
	"github.com/magabrotheeeer/scorecard-backend/internal/models"
	"github.com/magabrotheeeer/scorecard-backend/internal/tokens"
)

// Response — тело ответа о состоянии сессии.
type Response struct {
	LoggedIn     bool                 `json:"loggedIn"`
	Username     string               `json:"username,omitempty"`
	IsAdmin      bool                 `json:"isAdmin,omitempty"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
}

// Service описывает интерфейс разрешения сессионного токена.
type Service interface {
	Status(ctx context.Context, token string) (*models.User, error)
}

// Handler обрабатывает HTTP-запросы состояния сессии.
type Handler struct {
	log  *slog.Logger
	auth Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, auth Service) *Handler {
	return &Handler{log: log, auth: auth}
}

// ServeHTTP godoc
// @Summary Состояние сессии
// @Description Возвращает пользователя текущей сессии либо loggedIn=false.
// @Tags Auth
// @Produce  json
// @Success 200 {object} Response "Состояние сессии"
// @Router /api/auth/status [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.status"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token, ok := mware.TokenFromRequest(r)
	if !ok {
		render.JSON(w, r, Response{LoggedIn: false})
		return
	}

	user, err := h.auth.Status(r.Context(), token)
	if err != nil {
		if !errors.Is(err, tokens.ErrTokenInvalid) && !errors.Is(err, tokens.ErrTokenExpired) {
			log.Error("failed to resolve session", sl.Err(err))
		}
		render.JSON(w, r, Response{LoggedIn: false})
		return
	}

	render.JSON(w, r, Response{
		LoggedIn:     true,
		Username:     user.Username,
		IsAdmin:      user.IsAdmin(),
		Subscription: &user.Subscription,
	})
}
