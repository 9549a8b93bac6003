package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/scorecard-backend/internal/models"
)

const userColumns = `username, email, password_hash, created_at, plan, status,
			      external_customer_id, external_subscription_id, current_period_end`

// CreateUser сохраняет нового пользователя. Уникальность имени и почты
// гарантируют ограничения базы: два конкурентных INSERT с одной почтой
// не могут пройти оба.
func (s *Storage) CreateUser(ctx context.Context, user models.User) error {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (username, email, password_hash, created_at, plan, status)
			  VALUES ($1, $2, $3, $4, $5, $6);`
	if _, err := s.DB.ExecContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.CreatedAt,
		user.Subscription.Plan, user.Subscription.Status); err != nil {
		if conflict := uniqueViolation(err); conflict != nil {
			return fmt.Errorf("%s: %w", op, conflict)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUserByUsername возвращает пользователя по его username.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE username = $1`
	return s.scanUser(op, s.DB.QueryRowContext(ctx, query, username))
}

// GetUserByEmail возвращает пользователя по адресу почты.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE email = $1`
	return s.scanUser(op, s.DB.QueryRowContext(ctx, query, email))
}

// UpdatePassword заменяет хэш пароля пользователя.
func (s *Storage) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	const op = "storage.UpdatePassword"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET password_hash = $1
			  WHERE username = $2`
	res, err := s.DB.ExecContext(ctx, query, passwordHash, username)
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

// DeleteUser удаляет пользователя. Отзыв его сессий выполняет вызывающий слой.
func (s *Storage) DeleteUser(ctx context.Context, username string) error {
	const op = "storage.DeleteUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE username = $1`, username)
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

// ListUsers возвращает всех пользователей, отсортированных по дате создания.
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  ORDER BY created_at`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUserRow(op, rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Storage) scanUser(op string, row *sql.Row) (*models.User, error) {
	u, err := scanUserRow(op, row)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func scanUserRow(op string, row rowScanner) (*models.User, error) {
	u := &models.User{}
	var customerID, subscriptionID sql.NullString
	var periodEnd sql.NullTime

	if err := row.Scan(&u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt,
		&u.Subscription.Plan, &u.Subscription.Status,
		&customerID, &subscriptionID, &periodEnd); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if customerID.Valid {
		u.Subscription.ExternalCustomerID = &customerID.String
	}
	if subscriptionID.Valid {
		u.Subscription.ExternalSubscriptionID = &subscriptionID.String
	}
	if periodEnd.Valid {
		u.Subscription.CurrentPeriodEnd = &periodEnd.Time
	}
	return u, nil
}
