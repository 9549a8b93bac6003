package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/scorecard-backend/internal/config"
	"github.com/magabrotheeeer/scorecard-backend/internal/lib/token"
)

// Ключи в Redis.
const (
	sessionKeyPrefix  = "session:"
	userSessionsKey   = "user_sessions:"
	resetKeyPrefix    = "reset:"
	resetByUserPrefix = "reset_user:"
)

// NewRedisClient создает клиент Redis по настройкам из конфига и проверяет соединение.
func NewRedisClient(ctx context.Context, cfg config.RedisConnection) (*redis.Client, error) {
	const op = "tokens.NewRedisClient"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return db, nil
}

// RedisSessions — хранилище сессионных токенов в Redis.
// Привязка токена к пользователю дублируется в множестве user_sessions:<имя>,
// чтобы RevokeAll не сканировал всё пространство ключей.
type RedisSessions struct {
	db *redis.Client
}

// NewRedisSessions создаёт хранилище сессий поверх клиента Redis.
func NewRedisSessions(db *redis.Client) *RedisSessions {
	return &RedisSessions{db: db}
}

// Issue создаёт токен и сохраняет привязку с TTL.
func (s *RedisSessions) Issue(ctx context.Context, username string, ttl time.Duration) (string, error) {
	const op = "tokens.RedisSessions.Issue"
	tok, err := token.New()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	pipe := s.db.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+tok, username, ttl)
	pipe.SAdd(ctx, userSessionsKey+username, tok)
	pipe.Expire(ctx, userSessionsKey+username, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return tok, nil
}

// Resolve возвращает имя пользователя по токену.
func (s *RedisSessions) Resolve(ctx context.Context, tok string) (string, error) {
	const op = "tokens.RedisSessions.Resolve"
	username, err := s.db.Get(ctx, sessionKeyPrefix+tok).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenInvalid
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return username, nil
}

// Revoke удаляет токен. Отзыв неизвестного токена не является ошибкой.
func (s *RedisSessions) Revoke(ctx context.Context, tok string) error {
	const op = "tokens.RedisSessions.Revoke"
	username, err := s.db.GetDel(ctx, sessionKeyPrefix+tok).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.db.SRem(ctx, userSessionsKey+username, tok).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RevokeAll удаляет все токены пользователя.
func (s *RedisSessions) RevokeAll(ctx context.Context, username string) error {
	const op = "tokens.RedisSessions.RevokeAll"
	toks, err := s.db.SMembers(ctx, userSessionsKey+username).Result()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	pipe := s.db.TxPipeline()
	for _, tok := range toks {
		pipe.Del(ctx, sessionKeyPrefix+tok)
	}
	pipe.Del(ctx, userSessionsKey+username)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RedisResets — хранилище токенов сброса пароля в Redis.
// Атомарность consume-once обеспечивает GETDEL.
type RedisResets struct {
	db *redis.Client
}

// NewRedisResets создаёт хранилище токенов сброса поверх клиента Redis.
func NewRedisResets(db *redis.Client) *RedisResets {
	return &RedisResets{db: db}
}

// Issue создаёт токен сброса и отменяет ранее выданный токен пользователя.
func (s *RedisResets) Issue(ctx context.Context, username, email string, ttl time.Duration) (string, error) {
	const op = "tokens.RedisResets.Issue"
	tok, err := token.New()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	prev, err := s.db.GetDel(ctx, resetByUserPrefix+username).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if prev != "" {
		if err := s.db.Del(ctx, resetKeyPrefix+prev).Err(); err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}

	entry := ResetEntry{Username: username, Email: email, ExpiresAt: time.Now().Add(ttl)}
	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	pipe := s.db.TxPipeline()
	pipe.Set(ctx, resetKeyPrefix+tok, data, ttl)
	pipe.Set(ctx, resetByUserPrefix+username, tok, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return tok, nil
}

// Peek возвращает данные токена без его удаления.
func (s *RedisResets) Peek(ctx context.Context, tok string) (*ResetEntry, error) {
	const op = "tokens.RedisResets.Peek"
	val, err := s.db.Get(ctx, resetKeyPrefix+tok).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return decodeResetEntry(op, val)
}

// Consume атомарно находит и удаляет токен через GETDEL: из двух
// конкурентных вызовов значение получит только один.
func (s *RedisResets) Consume(ctx context.Context, tok string) (*ResetEntry, error) {
	const op = "tokens.RedisResets.Consume"
	val, err := s.db.GetDel(ctx, resetKeyPrefix+tok).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entry, err := decodeResetEntry(op, val)
	if err != nil {
		return nil, err
	}
	if err := s.db.Del(ctx, resetByUserPrefix+entry.Username).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entry, nil
}

func decodeResetEntry(op, val string) (*ResetEntry, error) {
	var entry ResetEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if time.Now().After(entry.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return &entry, nil
}
