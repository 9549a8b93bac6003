package models

import "time"

// Планы подписки.
const (
	PlanFree  = "free"
	PlanBasic = "basic"
	PlanPro   = "pro"
)

// Статусы подписки. Статус приходит от платёжного провайдера
// и сохраняется как есть, известные значения перечислены ниже.
const (
	StatusActive     = "active"
	StatusPastDue    = "past_due"
	StatusCanceled   = "canceled"
	StatusIncomplete = "incomplete"
)

// KnownPlan проверяет, что план входит в число поддерживаемых.
func KnownPlan(plan string) bool {
	switch plan {
	case PlanFree, PlanBasic, PlanPro:
		return true
	}
	return false
}

// Subscription описывает состояние подписки пользователя.
// Внешние идентификаторы присваиваются платёжным провайдером,
// ExternalCustomerID стабилен после первого присвоения.
type Subscription struct {
	Plan                   string     `json:"plan"`
	Status                 string     `json:"status"`
	ExternalCustomerID     *string    `json:"externalCustomerId"`
	ExternalSubscriptionID *string    `json:"externalSubscriptionId"`
	CurrentPeriodEnd       *time.Time `json:"currentPeriodEnd"`
}

// DefaultSubscription возвращает подписку нового пользователя.
func DefaultSubscription() Subscription {
	return Subscription{
		Plan:   PlanFree,
		Status: StatusActive,
	}
}

// Entitled сообщает, даёт ли подписка доступ к платным возможностям.
// План сам по себе не означает доступ: не-free план с неактивным статусом
// считается прекращённым, хотя план и статус сохраняются для отображения.
func (s Subscription) Entitled() bool {
	return s.Plan != PlanFree && s.Status == StatusActive
}
