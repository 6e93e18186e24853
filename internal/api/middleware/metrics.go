// metrics.go — Prometheus HTTP метрики.
// Регистрирует метрики: ps_http_requests_total, ps_http_request_duration_seconds.
// Нормализация путей предотвращает взрывной рост кардинальности.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики.
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ps_http_requests_total",
			Help: "Общее количество HTTP-запросов к портфолио-бэкенду",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ps_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к портфолио-бэкенду в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет динамические сегменты пути на плейсхолдеры
// для предотвращения взрывного роста кардинальности метрик.
// /api/v1/records/5f1c... → /api/v1/records/{id}
// /api/v1/resolve/cert1 → /api/v1/resolve/{roleId}
func normalizePath(path string) string {
	// Статические пути — возвращаем как есть
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/v1/records",
		"/api/v1/auth/login", "/api/v1/auth/logout", "/api/v1/auth/session",
		"/api/v1/annotations/categories", "/api/v1/annotations/tags",
		"/api/v1/maintenance/stale", "/api/v1/maintenance/recovery":
		return path
	}

	const recordsPrefix = "/api/v1/records/"
	if strings.HasPrefix(path, recordsPrefix) {
		if strings.HasSuffix(path, "/annotation") {
			return "/api/v1/records/{id}/annotation"
		}
		return "/api/v1/records/{id}"
	}

	const resolvePrefix = "/api/v1/resolve/"
	if strings.HasPrefix(path, resolvePrefix) {
		return "/api/v1/resolve/{roleId}"
	}

	const rolesPrefix = "/api/v1/roles/"
	if strings.HasPrefix(path, rolesPrefix) {
		if strings.HasSuffix(path, "/available") {
			return "/api/v1/roles/{roleId}/available"
		}
		return "/api/v1/roles/{roleId}"
	}

	return path
}
