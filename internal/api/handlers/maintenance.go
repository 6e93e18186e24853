// maintenance.go — обслуживающие обработчики.
// GET /api/v1/maintenance/stale — отчёт о legacy-записях,
// POST /api/v1/maintenance/recovery — ручной запуск политики
// освобождения места.
package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/SognaneRoot/portfolio-sognane/internal/api/errors"
)

// recoveryResponse — ответ запуска политики освобождения места.
type recoveryResponse struct {
	Purged int `json:"purged"`
}

// StaleReport — реализация GET /api/v1/maintenance/stale.
func (h *APIHandler) StaleReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.detector.Scan(r.Context())
	if err != nil {
		h.logger.Error("Ошибка сканирования legacy-записей", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка при сканировании")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// RunRecovery — реализация POST /api/v1/maintenance/recovery.
func (h *APIHandler) RunRecovery(w http.ResponseWriter, r *http.Request) {
	purged, err := h.recovery.Apply(r.Context())
	if err != nil {
		h.logger.Error("Ошибка политики освобождения места", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка при освобождении места")
		return
	}
	writeJSON(w, http.StatusOK, recoveryResponse{Purged: purged})
}
