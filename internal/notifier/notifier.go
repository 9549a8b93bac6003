// Package notifier отвечает за передачу токена сброса пароля во внешний
// канал уведомлений. Основная реализация публикует сообщение в RabbitMQ,
// откуда его забирает сервис отправки писем; запасная — только логирует,
// чтобы сервис работал без брокера в локальном окружении.
package notifier

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/scorecard-backend/internal/lib/rabbitmq"
)

// ResetRoutingKey — ключ маршрутизации писем сброса пароля.
const ResetRoutingKey = "password_reset"

// ResetEmail — сообщение для сервиса отправки писем.
// Токен передаётся как есть: письмо строит ссылку на странице сброса.
type ResetEmail struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}

// Notifier передаёт запрос на письмо сброса пароля во внешний канал.
type Notifier interface {
	SendPasswordReset(ctx context.Context, msg ResetEmail) error
}

// RabbitNotifier публикует сообщения в очередь RabbitMQ.
type RabbitNotifier struct {
	ch *amqp.Channel
}

// NewRabbitNotifier создаёт нотификатор поверх открытого канала.
func NewRabbitNotifier(ch *amqp.Channel) *RabbitNotifier {
	return &RabbitNotifier{ch: ch}
}

// SendPasswordReset публикует сообщение в очередь писем сброса.
func (n *RabbitNotifier) SendPasswordReset(_ context.Context, msg ResetEmail) error {
	return rabbitmq.PublishMessage(n.ch, rabbitmq.Exchange, ResetRoutingKey, msg)
}

// LogNotifier пишет факт выдачи токена в лог вместо отправки письма.
// Сам токен в лог не попадает.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier создаёт логирующий нотификатор.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// SendPasswordReset логирует выдачу токена сброса.
func (n *LogNotifier) SendPasswordReset(_ context.Context, msg ResetEmail) error {
	n.log.Info("password reset issued",
		slog.String("username", msg.Username),
		slog.String("email", msg.Email))
	return nil
}
