package repository

import (
	"context"
	"fmt"
	"time"
)

// ApplyCheckout записывает результат завершённой оплаты: план, активный
// статус и внешние идентификаторы. Абсолютная запись — повторное
// применение того же события даёт то же состояние.
func (s *Storage) ApplyCheckout(ctx context.Context, username, plan, status,
	customerID, subscriptionID string, periodEnd *time.Time) error {
	const op = "storage.ApplyCheckout"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET plan = $1,
			      status = $2,
			      external_customer_id = COALESCE(external_customer_id, $3),
			      external_subscription_id = $4,
			      current_period_end = $5
			  WHERE username = $6`
	res, err := s.DB.ExecContext(ctx, query, plan, status,
		nullIfEmpty(customerID), nullIfEmpty(subscriptionID), periodEnd, username)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// UpdateStatusByCustomerID устанавливает статус подписки, присланный
// провайдером, у пользователя с данным внешним идентификатором.
func (s *Storage) UpdateStatusByCustomerID(ctx context.Context, customerID, status string, periodEnd *time.Time) error {
	const op = "storage.UpdateStatusByCustomerID"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET status = $1,
			      current_period_end = COALESCE($2, current_period_end)
			  WHERE external_customer_id = $3`
	res, err := s.DB.ExecContext(ctx, query, status, periodEnd, customerID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// CancelByCustomerID переводит подписку на бесплатный план и очищает
// идентификатор подписки. Идентификатор клиента сохраняется: он стабилен
// после первого присвоения.
func (s *Storage) CancelByCustomerID(ctx context.Context, customerID string) error {
	const op = "storage.CancelByCustomerID"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET plan = 'free',
			      status = 'canceled',
			      external_subscription_id = NULL,
			      current_period_end = NULL
			  WHERE external_customer_id = $1`
	res, err := s.DB.ExecContext(ctx, query, customerID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
