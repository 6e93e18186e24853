// session.go — модель административной сессии.
package model

import "time"

// Session — административная сессия: выдаётся при логине,
// аннулируется при логауте или по истечении срока.
type Session struct {
	// ID — идентификатор сессии (jti выданного токена).
	// Сам токен не хранится: строка нужна только для отзыва.
	ID string `json:"id"`

	// ExpiresAt — момент истечения (UTC)
	ExpiresAt time.Time `json:"expires_at"`

	// CreatedAt — момент выдачи (UTC)
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired проверяет, истекла ли сессия на момент now.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
