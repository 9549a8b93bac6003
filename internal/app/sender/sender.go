// Package sender собирает сервис отправки писем: подключение к брокеру,
// SMTP-транспорт и потребителя очереди писем сброса пароля.
package sender

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/scorecard-backend/internal/config"
	"github.com/magabrotheeeer/scorecard-backend/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/scorecard-backend/internal/lib/smtp"
	"github.com/magabrotheeeer/scorecard-backend/internal/notifier"
	senderservice "github.com/magabrotheeeer/scorecard-backend/internal/services/sender"
)

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	resetQueue    string
	logger        *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, 5, 2*time.Second)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, []rabbitmq.QueueConfig{
		{QueueName: cfg.RabbitMQ.ResetQueue, RoutingKey: notifier.ResetRoutingKey},
	})
	if err != nil {
		conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg, logger)
	senderService := senderservice.NewSenderService(transport, cfg.SMTP.AppURL, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		resetQueue:    cfg.RabbitMQ.ResetQueue,
		logger:        logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumeMessages(ctx, a.ch, a.resetQueue, a.senderService.SendPasswordResetEmail)
	if err != nil {
		a.logger.Error("failed to start reset email consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
