// Package tokens реализует хранилища непрозрачных токенов: сессионных
// и одноразовых токенов сброса пароля. Токен — случайная строка без
// встроенных утверждений, поэтому отзыв выполняется немедленным удалением.
//
// Доступны два бэкенда: in-memory (по умолчанию, используется и в тестах)
// и Redis для работы нескольких экземпляров сервиса.
package tokens

import (
	"context"
	"errors"
	"time"
)

// Ошибки хранилищ токенов.
var (
	// ErrTokenInvalid — токен не найден, отозван или уже использован.
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrTokenExpired — токен найден, но срок его действия истёк.
	ErrTokenExpired = errors.New("token is expired")
)

// Sessions описывает хранилище сессионных токенов.
// На одного пользователя может существовать несколько токенов одновременно.
type Sessions interface {
	// Issue создаёт токен для пользователя и сохраняет привязку.
	Issue(ctx context.Context, username string, ttl time.Duration) (string, error)

	// Resolve возвращает имя пользователя по токену или ErrTokenInvalid.
	Resolve(ctx context.Context, token string) (string, error)

	// Revoke удаляет токен. Отзыв неизвестного токена не является ошибкой.
	Revoke(ctx context.Context, token string) error

	// RevokeAll удаляет все токены пользователя.
	RevokeAll(ctx context.Context, username string) error
}

// ResetEntry — данные, привязанные к токену сброса пароля.
type ResetEntry struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Resets описывает хранилище одноразовых токенов сброса пароля.
type Resets interface {
	// Issue создаёт токен с ограниченным сроком действия и отменяет
	// ранее выданный токен этого пользователя.
	Issue(ctx context.Context, username, email string, ttl time.Duration) (string, error)

	// Peek возвращает данные токена без его удаления.
	Peek(ctx context.Context, token string) (*ResetEntry, error)

	// Consume атомарно находит и удаляет токен. Два конкурентных вызова
	// с одним токеном не могут завершиться успешно оба.
	Consume(ctx context.Context, token string) (*ResetEntry, error)
}
