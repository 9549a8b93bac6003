// Package auth содержит логику бизнес-уровня для работы с учётными записями:
// регистрацию, вход, выход, сброс пароля и удаление аккаунта.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/scorecard-backend/internal/lib/password"
	"github.com/magabrotheeeer/scorecard-backend/internal/lib/sl"
	"github.com/magabrotheeeer/scorecard-backend/internal/models"
	"github.com/magabrotheeeer/scorecard-backend/internal/notifier"
	"github.com/magabrotheeeer/scorecard-backend/internal/storage/repository"
	"github.com/magabrotheeeer/scorecard-backend/internal/tokens"
)

// ErrInvalidCredentials возвращается при неверном имени пользователя или пароле.
// Несуществующий пользователь и неверный пароль неразличимы для вызывающего.
var ErrInvalidCredentials = errors.New("invalid username or password")

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, username, passwordHash string) error
	DeleteUser(ctx context.Context, username string) error
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// AuthService отвечает за учётные записи и жизненный цикл токенов.
type AuthService struct {
	users      UserRepository
	sessions   tokens.Sessions
	resets     tokens.Resets
	notify     notifier.Notifier
	sessionTTL time.Duration
	resetTTL   time.Duration
	log        *slog.Logger
}

// New создает новый экземпляр AuthService.
func New(users UserRepository, sessions tokens.Sessions, resets tokens.Resets,
	notify notifier.Notifier, sessionTTL, resetTTL time.Duration, log *slog.Logger) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		resets:     resets,
		notify:     notify,
		sessionTTL: sessionTTL,
		resetTTL:   resetTTL,
		log:        log,
	}
}

// Register создает нового пользователя с хэшированием пароля и бесплатной подпиской.
func (s *AuthService) Register(ctx context.Context, username, rawPassword, email string) error {
	const op = "auth.Register"
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		CreatedAt:    time.Now().UTC(),
		Subscription: models.DefaultSubscription(),
	}
	return s.users.CreateUser(ctx, user)
}

// Login проверяет пароль пользователя и выдает сессионный токен.
// Для несуществующего пользователя выполняется сравнение с фиктивным
// хэшем, чтобы обе ветки отказа занимали одинаковое время.
func (s *AuthService) Login(ctx context.Context, username, rawPassword string) (string, *models.User, error) {
	const op = "auth.Login"
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_ = password.CompareDummy(rawPassword)
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	tok, err := s.sessions.Issue(ctx, user.Username, s.sessionTTL)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return tok, user, nil
}

// Logout отзывает сессионный токен. Отзыв неизвестного токена — не ошибка.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// Status возвращает пользователя по сессионному токену.
// Сессия удалённого пользователя отзывается и считается недействительной.
func (s *AuthService) Status(ctx context.Context, token string) (*models.User, error) {
	const op = "auth.Status"
	username, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_ = s.sessions.Revoke(ctx, token)
			return nil, tokens.ErrTokenInvalid
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// RequestPasswordReset выдает токен сброса и передает его в канал уведомлений.
// Для неизвестной почты возвращается nil без каких-либо действий: ответ
// не должен выдавать существование учётной записи.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "auth.RequestPasswordReset"
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.log.Info("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	tok, err := s.resets.Issue(ctx, user.Username, user.Email, s.resetTTL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.notify.SendPasswordReset(ctx, notifier.ResetEmail{
		Username: user.Username,
		Email:    user.Email,
		Token:    tok,
	}); err != nil {
		s.log.Error("failed to hand off reset token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ConfirmPasswordReset меняет пароль по токену сброса. Запись нового хэша
// выполняется до уничтожения токена: если запись не удалась, токен остаётся
// действительным и пользователь не оказывается заблокированным.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	const op = "auth.ConfirmPasswordReset"
	entry, err := s.resets.Peek(ctx, token)
	if err != nil {
		return err
	}

	hashed, err := password.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.UpdatePassword(ctx, entry.Username, hashed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.resets.Consume(ctx, token); err != nil {
		// токен успел истечь или был использован конкурентным вызовом
		return err
	}

	// смена пароля завершает все открытые сессии пользователя
	if err := s.sessions.RevokeAll(ctx, entry.Username); err != nil {
		s.log.Error("failed to revoke sessions after password reset", sl.Err(err))
	}
	return nil
}

// DeleteAccount удаляет пользователя и отзывает все его сессии.
func (s *AuthService) DeleteAccount(ctx context.Context, username string) error {
	const op = "auth.DeleteAccount"
	if err := s.users.DeleteUser(ctx, username); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.sessions.RevokeAll(ctx, username); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListUsers возвращает всех пользователей для административного интерфейса.
func (s *AuthService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.users.ListUsers(ctx)
}
