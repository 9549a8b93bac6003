// Package webhook реализует HTTP-обработчик событий платёжного провайдера.
//
// Подпись проверяется по сырым байтам тела до разбора JSON: недоверенная
// структура не разбирается, пока не доказана подлинность отправителя.
// Ни сессии, ни cookie здесь не участвуют — это отдельный канал доверия
// сервер-сервер.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/scorecard-backend/internal/http-server/response"
	"github.com/magabrotheeeer/scorecard-backend/internal/lib/sl"
	"github.com/magabrotheeeer/scorecard-backend/internal/services/billing"
)

// SignatureHeader — заголовок, в котором провайдер передаёт подпись тела.
const SignatureHeader = "Signature"

// Service описывает интерфейс обработки биллинговых событий.
type Service interface {
	ProcessEvent(ctx context.Context, ev *billing.Event) error
}

// Handler обрабатывает входящие вебхуки провайдера.
type Handler struct {
	log           *slog.Logger
	billing       Service
	webhookSecret string
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, billing Service, secret string) *Handler {
	return &Handler{
		log:           log,
		billing:       billing,
		webhookSecret: secret,
	}
}

func (h *Handler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ServeHTTP godoc
// @Summary Вебхук платёжного провайдера
// @Description Принимает подписанные события биллинга и применяет их к подпискам.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param Signature header string true "HMAC-SHA256 подпись тела (base64)"
// @Success 200 {object} response.Response "Событие принято"
// @Failure 400 {object} response.Response "Неверная подпись или тело"
// @Failure 500 {object} response.Response "Внутренняя ошибка сервера"
// @Router /api/billing/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to read request body"))
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get(SignatureHeader)
	if signature == "" || !h.verifySignature(body, signature) {
		log.Error("invalid or missing webhook signature")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	var ev billing.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid payload"))
		return
	}
	if ev.ID == "" {
		// провайдер не прислал идентификатор: генерируем свой для трассировки
		ev.ID = uuid.NewString()
	}

	if err := h.billing.ProcessEvent(r.Context(), &ev); err != nil {
		log.Error("failed to process webhook event", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to process event"))
		return
	}

	log.Info("webhook processed",
		slog.String("event_type", ev.Type),
		slog.String("event_id", ev.ID))
	render.JSON(w, r, response.OK())
}
