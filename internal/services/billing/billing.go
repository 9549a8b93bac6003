// Package billing применяет события платёжного провайдера к записям
// подписок. Все переходы — абсолютные записи: повторная доставка того же
// события приводит к тому же состоянию.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/scorecard-backend/internal/models"
	"github.com/magabrotheeeer/scorecard-backend/internal/storage/repository"
)

// Типы событий провайдера, которые меняют состояние подписки.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"

	// Платёжные события принимаются и логируются, но состояние не меняют.
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
)

// Event — разобранное тело вебхука провайдера.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID               string            `json:"id"`
			Customer         string            `json:"customer"`
			Subscription     string            `json:"subscription"`
			Status           string            `json:"status"`
			CurrentPeriodEnd int64             `json:"current_period_end"`
			Metadata         map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// SubscriptionRepository описывает контракт для записи состояния подписок.
type SubscriptionRepository interface {
	ApplyCheckout(ctx context.Context, username, plan, status,
		customerID, subscriptionID string, periodEnd *time.Time) error
	UpdateStatusByCustomerID(ctx context.Context, customerID, status string, periodEnd *time.Time) error
	CancelByCustomerID(ctx context.Context, customerID string) error
}

// BillingService переводит события провайдера в переходы состояний подписки.
type BillingService struct {
	repo SubscriptionRepository
	log  *slog.Logger
}

// New создает новый экземпляр BillingService.
func New(repo SubscriptionRepository, log *slog.Logger) *BillingService {
	return &BillingService{repo: repo, log: log}
}

// ProcessEvent применяет событие к записи подписки. Неизвестные типы событий
// и события без корреляции подтверждаются без изменений: повтор доставки —
// ответственность провайдера, а не наша.
func (s *BillingService) ProcessEvent(ctx context.Context, ev *Event) error {
	const op = "billing.ProcessEvent"
	log := s.log.With(
		slog.String("op", op),
		slog.String("event_type", ev.Type),
		slog.String("event_id", ev.ID),
	)

	switch ev.Type {
	case EventCheckoutCompleted:
		return s.applyCheckout(ctx, log, ev)
	case EventSubscriptionUpdated:
		return s.updateStatus(ctx, log, ev)
	case EventSubscriptionDeleted:
		return s.cancel(ctx, log, ev)
	case EventInvoicePaymentSucceeded, EventInvoicePaymentFailed:
		log.Info("invoice event acknowledged",
			slog.String("customer_id", ev.Data.Object.Customer))
		return nil
	default:
		log.Info("ignored unrecognized event type")
		return nil
	}
}

func (s *BillingService) applyCheckout(ctx context.Context, log *slog.Logger, ev *Event) error {
	const op = "billing.applyCheckout"
	username := ev.Data.Object.Metadata["username"]
	plan := ev.Data.Object.Metadata["plan"]
	if username == "" || plan == "" {
		log.Warn("checkout event without username or plan metadata, acknowledged")
		return nil
	}
	if !models.KnownPlan(plan) {
		log.Warn("checkout event with unknown plan, acknowledged",
			slog.String("plan", plan))
		return nil
	}

	err := s.repo.ApplyCheckout(ctx, username, plan, models.StatusActive,
		ev.Data.Object.Customer, ev.Data.Object.Subscription,
		periodEnd(ev.Data.Object.CurrentPeriodEnd))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Warn("checkout event for unknown user, acknowledged",
				slog.String("username", username))
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("checkout applied",
		slog.String("username", username),
		slog.String("plan", plan))
	return nil
}

func (s *BillingService) updateStatus(ctx context.Context, log *slog.Logger, ev *Event) error {
	const op = "billing.updateStatus"
	customerID := ev.Data.Object.Customer
	status := ev.Data.Object.Status
	if customerID == "" || status == "" {
		log.Warn("subscription update without customer or status, acknowledged")
		return nil
	}

	err := s.repo.UpdateStatusByCustomerID(ctx, customerID, status,
		periodEnd(ev.Data.Object.CurrentPeriodEnd))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Warn("subscription update for unknown customer, acknowledged",
				slog.String("customer_id", customerID))
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("subscription status updated",
		slog.String("customer_id", customerID),
		slog.String("status", status))
	return nil
}

func (s *BillingService) cancel(ctx context.Context, log *slog.Logger, ev *Event) error {
	const op = "billing.cancel"
	customerID := ev.Data.Object.Customer
	if customerID == "" {
		log.Warn("subscription deletion without customer, acknowledged")
		return nil
	}

	if err := s.repo.CancelByCustomerID(ctx, customerID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Warn("subscription deletion for unknown customer, acknowledged",
				slog.String("customer_id", customerID))
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("subscription canceled", slog.String("customer_id", customerID))
	return nil
}

func periodEnd(unix int64) *time.Time {
	if unix == 0 {
		return nil
	}
	t := time.Unix(unix, 0).UTC()
	return &t
}
