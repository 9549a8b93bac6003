// Package userremove реализует административный HTTP-обработчик удаления
// произвольной учётной записи. Административную учётную запись удалить нельзя.
package userremove

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/response"
	"github.com/magabrotheeeer/scorecard-backend/internal/lib/sl"
	"github.com/magabrotheeeer/scorecard-backend/internal/models"
	"github.com/magabrotheeeer/scorecard-backend/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики удаления учётной записи.
type Service interface {
	DeleteAccount(ctx context.Context, username string) error
}

// Handler обрабатывает административные запросы удаления пользователя.
type Handler struct {
	log  *slog.Logger
	auth Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, auth Service) *Handler {
	return &Handler{log: log, auth: auth}
}

// ServeHTTP godoc
// @Summary Удаление пользователя
// @Description Удаляет указанную учётную запись и все её сессии. Только для администратора.
// @Tags Admin
// @Produce  json
// @Security ApiKeyAuth
// @Param username path string true "Имя пользователя"
// @Success 200 {object} response.Response "Учётная запись удалена"
// @Failure 400 {object} response.Response "Попытка удалить администратора"
// @Failure 404 {object} response.Response "Пользователь не найден"
// @Failure 500 {object} response.Response "Внутренняя ошибка сервера"
// @Router /api/admin/users/{username} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.userremove"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	username := chi.URLParam(r, "username")
	if username == "" {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("username is required"))
		return
	}
	if username == models.AdminUsername {
		log.Info("refused to delete admin account")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("cannot delete the admin account"))
		return
	}

	if err := h.auth.DeleteAccount(r.Context(), username); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Info("user not found", slog.String("username", username))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
			return
		}
		log.Error("failed to delete user", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to delete user"))
		return
	}

	log.Info("user deleted", slog.String("username", username))
	render.JSON(w, r, response.OK())
}
