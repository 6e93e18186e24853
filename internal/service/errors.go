// Пакет service — бизнес-логика портфолио-бэкенда.
// errors.go — типизированная ошибка операций с HTTP-кодом.
package service

import "fmt"

// OperationError — ошибка операции сервиса с HTTP-кодом.
// Хендлер транслирует её в JSON-ответ без дополнительного маппинга.
type OperationError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
