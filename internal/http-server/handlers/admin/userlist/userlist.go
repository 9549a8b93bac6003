// Package userlist реализует административный HTTP-обработчик списка
// пользователей. Хэши паролей в ответ не попадают.
package userlist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/response"
	"github.com/magabrotheeeer/scorecard-backend/internal/lib/sl"
	"github.com/magabrotheeeer/scorecard-backend/internal/models"
)

// Response — тело ответа со списком пользователей.
type Response struct {
	response.Response
	Users []models.PublicUser `json:"users"`
}

// Service описывает интерфейс бизнес-логики списка пользователей.
type Service interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// Handler обрабатывает административные запросы списка пользователей.
type Handler struct {
	log  *slog.Logger
	auth Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, auth Service) *Handler {
	return &Handler{log: log, auth: auth}
}

// ServeHTTP godoc
// @Summary Список пользователей
// @Description Возвращает всех пользователей. Только для администратора.
// @Tags Admin
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} Response "Список пользователей"
// @Failure 403 {object} response.Response "Недостаточно прав"
// @Failure 500 {object} response.Response "Внутренняя ошибка сервера"
// @Router /api/admin/users [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.userlist"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list users"))
		return
	}

	public := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}

	log.Info("users listed", slog.Int("count", len(public)))
	render.JSON(w, r, Response{
		Response: response.OK(),
		Users:    public,
	})
}
