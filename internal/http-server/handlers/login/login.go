// Package login реализует HTTP-обработчик входа пользователей.
//
// При успешной проверке учётных данных сервер выдаёт сессионный токен:
// он возвращается в теле ответа и дублируется в HttpOnly cookie, чтобы
// клиент мог выбрать способ передачи. Несуществующий пользователь и
// неверный пароль не различаются в ответе.
package login

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/mware"
	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/response"
	"github.com/magabrotheeeer/scorecard-backend/internal/lib/sl"
	"github.com/magabrotheeeer/scorecard-backend/internal/models"
	"github.com/magabrotheeeer/scorecard-backend/internal/services/auth"
)

// Request — структура входных данных для входа.
type Request struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Response — тело успешного ответа на вход.
type Response struct {
	response.Response
	Token        string              `json:"token"`
	Username     string              `json:"username"`
	IsAdmin      bool                `json:"isAdmin"`
	Subscription models.Subscription `json:"subscription"`
}

// Service описывает интерфейс бизнес-логики входа.
type Service interface {
	Login(ctx context.Context, username, password string) (string, *models.User, error)
}

// Handler обрабатывает HTTP-запросы входа.
type Handler struct {
	log        *slog.Logger
	auth       Service
	sessionTTL time.Duration
	validate   *validator.Validate
}

// New создает новый экземпляр Handler. sessionTTL задаёт срок жизни cookie,
// совпадающий со сроком жизни сессионного токена.
func New(log *slog.Logger, auth Service, sessionTTL time.Duration) *Handler {
	return &Handler{
		log:        log,
		auth:       auth,
		sessionTTL: sessionTTL,
		validate:   validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Вход пользователя
// @Description Проверяет учётные данные и выдаёт сессионный токен.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Учетные данные пользователя"
// @Success 200 {object} Response "Успешный вход"
// @Failure 400 {object} response.Response "Некорректный JSON или ошибка валидации"
// @Failure 401 {object} response.Response "Неверные учетные данные"
// @Failure 500 {object} response.Response "Внутренняя ошибка сервера"
// @Router /api/auth/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.login"

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
	log.Info("request body decoded", slog.String("username", req.Username))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	token, user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			log.Info("invalid credentials", slog.String("username", req.Username))
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("invalid username or password"))
			return
		}
		log.Error("login failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     mware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.sessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	log.Info("login success", slog.String("username", user.Username))
	render.JSON(w, r, Response{
		Response:     response.OK(),
		Token:        token,
		Username:     user.Username,
		IsAdmin:      user.IsAdmin(),
		Subscription: user.Subscription,
	})
}
