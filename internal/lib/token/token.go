// Package token генерирует непрозрачные случайные токены для сессий
// и сброса пароля. Токен не содержит никаких утверждений о пользователе,
// поэтому отзыв сводится к немедленному удалению записи из хранилища.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenBytes — длина токена в байтах, 256 бит энтропии.
const tokenBytes = 32

// New возвращает криптографически случайный токен в кодировке base64url.
func New() (string, error) {
	const op = "token.New"
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
