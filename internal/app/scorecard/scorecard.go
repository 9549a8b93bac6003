// Package scorecard собирает приложение: хранилище, токены, очередь
// уведомлений, сервисы и HTTP-сервер.
package scorecard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/scorecard-backend/internal/config"
	"github.com/magabrotheeeer/scorecard-backend/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/scorecard-backend/internal/migrations"
	"github.com/magabrotheeeer/scorecard-backend/internal/notifier"
	"github.com/magabrotheeeer/scorecard-backend/internal/services/auth"
	"github.com/magabrotheeeer/scorecard-backend/internal/services/billing"
	"github.com/magabrotheeeer/scorecard-backend/internal/storage/repository"
	"github.com/magabrotheeeer/scorecard-backend/internal/tokens"
)

// App держит собранный HTTP-сервер и подключения, которые нужно закрыть
// при остановке.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	redis  *redis.Client
	amqp   *amqp.Connection
}

// New собирает приложение из конфигурации: применяет миграции, выбирает
// хранилище токенов и канал уведомлений, связывает сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	app := &App{logger: logger, db: db}

	var sessions tokens.Sessions
	var resets tokens.Resets
	if cfg.AddressRedis != "" {
		client, err := tokens.NewRedisClient(ctx, cfg.RedisConnection)
		if err != nil {
			return nil, err
		}
		app.redis = client
		sessions = tokens.NewRedisSessions(client)
		resets = tokens.NewRedisResets(client)
		logger.Info("session store: redis", slog.String("address", cfg.AddressRedis))
	} else {
		sessions = tokens.NewMemorySessions()
		resets = tokens.NewMemoryResets()
		logger.Info("session store: in-process memory")
	}

	var notify notifier.Notifier
	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, 5, 2*time.Second)
		if err != nil {
			return nil, err
		}
		ch, err := rabbitmq.SetupChannel(conn, []rabbitmq.QueueConfig{
			{QueueName: cfg.RabbitMQ.ResetQueue, RoutingKey: notifier.ResetRoutingKey},
		})
		if err != nil {
			return nil, err
		}
		app.amqp = conn
		notify = notifier.NewRabbitNotifier(ch)
	} else {
		notify = notifier.NewLogNotifier(logger)
	}

	authService := auth.New(db, sessions, resets, notify,
		cfg.Tokens.SessionTTL, cfg.Tokens.ResetTTL, logger)
	billingService := billing.New(db, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, authService, billingService, cfg)

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run запускает HTTP-сервер и дожидается либо его падения, либо отмены
// контекста, после чего останавливает сервер и закрывает подключения.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.db != nil {
		a.db.DB.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.amqp != nil {
		a.amqp.Close()
	}
}
