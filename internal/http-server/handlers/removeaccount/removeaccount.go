// Package removeaccount реализует HTTP-обработчик удаления собственной
// учётной записи. Удаление отзывает все сессии пользователя.
package removeaccount

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

// Service описывает интерфейс бизнес-логики удаления учётной записи.
type Service interface {
	DeleteAccount(ctx context.Context, username string) error
}

// Handler обрабатывает HTTP-запросы удаления учётной записи.
type Handler struct {
	log  *slog.Logger
	auth Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, auth Service) *Handler {
	return &Handler{log: log, auth: auth}
}

// ServeHTTP godoc
// @Summary Удаление своей учётной записи
// @Description Удаляет учётную запись текущего пользователя и все её сессии.
// @Tags Account
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} response.Response "Учётная запись удалена"
// @Failure 401 {object} response.Response "Нет действительной сессии"
// @Failure 500 {object} response.Response "Внутренняя ошибка сервера"
// @Router /api/account [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.removeaccount"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	username, ok := mware.Username(r.Context())
	if !ok {
		log.Error("no username in request context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("authentication required"))
		return
	}

	if err := h.auth.DeleteAccount(r.Context(), username); err != nil {
		log.Error("failed to delete account", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to delete account"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     mware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	log.Info("account deleted", slog.String("username", username))
	render.JSON(w, r, response.OK())
}
