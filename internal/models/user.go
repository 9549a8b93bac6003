// Package models содержит доменные структуры пользователя и его подписки.
// Подписка встроена в пользователя: она принадлежит ему и мутируется
// как обработчиком биллинговых событий, так и действиями самого пользователя.
package models

import "time"

// AdminUsername — имя встроенной административной учётной записи.
const AdminUsername = "admin"

// User представляет зарегистрированного пользователя системы.
type User struct {
	Username     string       // Имя пользователя (уникальное, первичный ключ)
	Email        string       // Электронная почта (уникальная)
	PasswordHash string       // bcrypt-хэш пароля
	CreatedAt    time.Time    // Дата создания учётной записи
	Subscription Subscription // Подписка пользователя
}

// IsAdmin сообщает, является ли пользователь администратором.
func (u *User) IsAdmin() bool {
	return u.Username == AdminUsername
}

// Public возвращает представление пользователя без чувствительных полей.
// Хэш пароля никогда не попадает в ответы сервера.
func (u *User) Public() PublicUser {
	return PublicUser{
		Username:     u.Username,
		Email:        u.Email,
		IsAdmin:      u.IsAdmin(),
		CreatedAt:    u.CreatedAt,
		Subscription: u.Subscription,
	}
}

// PublicUser — ответное представление пользователя для HTTP-обработчиков.
type PublicUser struct {
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	IsAdmin      bool         `json:"isAdmin"`
	CreatedAt    time.Time    `json:"createdAt"`
	Subscription Subscription `json:"subscription"`
}
