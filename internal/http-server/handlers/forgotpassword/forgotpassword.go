// Package forgotpassword реализует HTTP-обработчик запроса сброса пароля.
//
// Ответ одинаков для существующей и несуществующей почты: перечисление
// учётных записей через эту конечную точку невозможно. Токен сброса
// уходит пользователю по почте и никогда не попадает в тело ответа.
package forgotpassword

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/response"
	"github.com/magabrotheeeer/scorecard-backend/internal/lib/sl"
)

// Request — входные данные запроса сброса пароля.
type Request struct {
	Email string `json:"email" validate:"required,contains=@"`
}

// Service описывает интерфейс бизнес-логики запроса сброса.
type Service interface {
	RequestPasswordReset(ctx context.Context, email string) error
}

// Handler обрабатывает HTTP-запросы на сброс пароля.
type Handler struct {
	log      *slog.Logger
	auth     Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, auth Service) *Handler {
	return &Handler{
		log:      log,
		auth:     auth,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Запрос сброса пароля
// @Description Отправляет письмо со ссылкой для сброса, если почта известна.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Почта учётной записи"
// @Success 200 {object} response.Response "Запрос принят"
// @Failure 400 {object} response.Response "Некорректный JSON или почта"
// @Router /api/auth/forgot-password [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.forgotpassword"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	// ошибка инфраструктуры не меняет ответ: иначе по коду ответа можно
	// было бы отличить существующую почту от несуществующей
	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		log.Error("failed to process password reset request", sl.Err(err))
	}

	log.Info("password reset request processed")
	render.JSON(w, r, response.OK())
}
