package tokens

import (
	"context"
	"sync"
	"time"

	"github.com/magabrotheeeer/scorecard-backend/internal/lib/token"
)

// MemorySessions — in-memory хранилище сессионных токенов.
// Все операции выполняются под одним мьютексом, чтобы проверка и удаление
// токена происходили в одной критической секции.
type MemorySessions struct {
	mu      sync.Mutex
	tokens  map[string]sessionEntry
	byUser  map[string]map[string]struct{}
	nowFunc func() time.Time
}

type sessionEntry struct {
	username  string
	expiresAt time.Time
}

// NewMemorySessions создаёт пустое хранилище сессий.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{
		tokens:  make(map[string]sessionEntry),
		byUser:  make(map[string]map[string]struct{}),
		nowFunc: time.Now,
	}
}

// Issue создаёт токен для пользователя и сохраняет привязку.
func (s *MemorySessions) Issue(_ context.Context, username string, ttl time.Duration) (string, error) {
	tok, err := token.New()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tok] = sessionEntry{username: username, expiresAt: s.nowFunc().Add(ttl)}
	if s.byUser[username] == nil {
		s.byUser[username] = make(map[string]struct{})
	}
	s.byUser[username][tok] = struct{}{}
	return tok, nil
}

// Resolve возвращает имя пользователя по токену. Просроченный токен
// удаляется и считается недействительным.
func (s *MemorySessions) Resolve(_ context.Context, tok string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[tok]
	if !ok {
		return "", ErrTokenInvalid
	}
	if s.nowFunc().After(entry.expiresAt) {
		s.removeLocked(tok, entry.username)
		return "", ErrTokenInvalid
	}
	return entry.username, nil
}

// Revoke удаляет токен. Отзыв неизвестного токена не является ошибкой.
func (s *MemorySessions) Revoke(_ context.Context, tok string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.tokens[tok]; ok {
		s.removeLocked(tok, entry.username)
	}
	return nil
}

// RevokeAll удаляет все токены пользователя.
func (s *MemorySessions) RevokeAll(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for tok := range s.byUser[username] {
		delete(s.tokens, tok)
	}
	delete(s.byUser, username)
	return nil
}

func (s *MemorySessions) removeLocked(tok, username string) {
	delete(s.tokens, tok)
	if set := s.byUser[username]; set != nil {
		delete(set, tok)
		if len(set) == 0 {
			delete(s.byUser, username)
		}
	}
}

// MemoryResets — in-memory хранилище токенов сброса пароля.
// На пользователя хранится не более одного действующего токена:
// выдача нового отменяет предыдущий.
type MemoryResets struct {
	mu      sync.Mutex
	tokens  map[string]ResetEntry
	byUser  map[string]string
	nowFunc func() time.Time
}

// NewMemoryResets создаёт пустое хранилище токенов сброса.
func NewMemoryResets() *MemoryResets {
	return &MemoryResets{
		tokens:  make(map[string]ResetEntry),
		byUser:  make(map[string]string),
		nowFunc: time.Now,
	}
}

// Issue создаёт токен сброса и отменяет ранее выданный токен пользователя.
func (s *MemoryResets) Issue(_ context.Context, username, email string, ttl time.Duration) (string, error) {
	tok, err := token.New()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.byUser[username]; ok {
		delete(s.tokens, prev)
	}
	s.tokens[tok] = ResetEntry{
		Username:  username,
		Email:     email,
		ExpiresAt: s.nowFunc().Add(ttl),
	}
	s.byUser[username] = tok
	return tok, nil
}

// Peek возвращает данные токена без его удаления.
func (s *MemoryResets) Peek(_ context.Context, tok string) (*ResetEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[tok]
	if !ok {
		return nil, ErrTokenInvalid
	}
	if s.nowFunc().After(entry.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return &entry, nil
}

// Consume атомарно находит и удаляет токен: проверка и удаление происходят
// в одной критической секции, повторный вызов получает ErrTokenInvalid.
func (s *MemoryResets) Consume(_ context.Context, tok string) (*ResetEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[tok]
	if !ok {
		return nil, ErrTokenInvalid
	}
	delete(s.tokens, tok)
	if s.byUser[entry.Username] == tok {
		delete(s.byUser, entry.Username)
	}
	if s.nowFunc().After(entry.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return &entry, nil
}
