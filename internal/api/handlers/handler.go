// handler.go — основной обработчик API портфолио-бэкенда.
// Объединяет auth, records, resolve, maintenance и health обработчики,
// делегируя бизнес-логику в сервисный слой.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/SognaneRoot/portfolio-sognane/internal/auth"
	"github.com/SognaneRoot/portfolio-sognane/internal/migrate"
	"github.com/SognaneRoot/portfolio-sognane/internal/service"
)

// APIHandler — основной обработчик API.
type APIHandler struct {
	records  *service.RecordService
	resolve  *service.ResolveService
	sessions *auth.SessionService
	detector *migrate.Detector
	recovery *service.RecoveryPolicy
	health   *HealthHandler
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	records *service.RecordService,
	resolve *service.ResolveService,
	sessions *auth.SessionService,
	detector *migrate.Detector,
	recovery *service.RecoveryPolicy,
	health *HealthHandler,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		records:  records,
		resolve:  resolve,
		sessions: sessions,
		detector: detector,
		recovery: recovery,
		health:   health,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
