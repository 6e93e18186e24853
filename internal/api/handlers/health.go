// health.go — обработчики health endpoints.
// /health/live — liveness probe (процесс жив)
// /health/ready — readiness probe (зависимости доступны)
// /metrics — Prometheus метрики
package handlers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SognaneRoot/portfolio-sognane/internal/config"
)

// serviceName — имя сервиса в ответах health endpoints.
const serviceName = "portfolio-sognane"

// ReadinessChecker — интерфейс проверки готовности зависимостей.
type ReadinessChecker interface {
	// CheckReady возвращает статус ("ok" или "fail") и сообщение.
	CheckReady() (status, message string)
}

// ReadinessFunc адаптирует функцию к интерфейсу ReadinessChecker.
type ReadinessFunc func() (status, message string)

// CheckReady вызывает функцию.
func (f ReadinessFunc) CheckReady() (status, message string) {
	return f()
}

// HealthHandler — обработчик health endpoints.
type HealthHandler struct {
	backend     string
	checker     ReadinessChecker
	promHandler http.Handler
}

// NewHealthHandler создаёт обработчик health endpoints.
// checker — проверка активного бэкенда; nil означает, что внешних
// зависимостей нет и readiness всегда ok (локальный бэкенд).
func NewHealthHandler(backend string, checker ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		backend:     backend,
		checker:     checker,
		promHandler: promhttp.Handler(),
	}
}

// healthCheckResult — результат проверки одной зависимости.
type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthResponse — ответ health probe.
type healthResponse struct {
	Status    string                       `json:"status"`
	Timestamp string                       `json:"timestamp"`
	Version   string                       `json:"version"`
	Service   string                       `json:"service"`
	Backend   string                       `json:"backend"`
	Checks    map[string]healthCheckResult `json:"checks,omitempty"`
}

// HealthLive — liveness probe.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
		Backend:   h.backend,
	})
}

// HealthReady — readiness probe.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
		Backend:   h.backend,
	}

	if h.checker != nil {
		status, message := h.checker.CheckReady()
		resp.Checks = map[string]healthCheckResult{
			"storage": {Status: status, Message: message},
		}
		if status != "ok" {
			resp.Status = "fail"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetMetrics — Prometheus метрики.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}
