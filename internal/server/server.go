// Пакет server — HTTP-сервер портфолио-бэкенда с graceful shutdown.
// Без TLS — TLS termination на reverse proxy перед сервисом.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/SognaneRoot/portfolio-sognane/internal/api/handlers"
	"github.com/SognaneRoot/portfolio-sognane/internal/api/middleware"
	"github.com/SognaneRoot/portfolio-sognane/internal/auth"
	"github.com/SognaneRoot/portfolio-sognane/internal/config"
)

// Server — HTTP-сервер портфолио-бэкенда.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными маршрутами и middleware.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	handler *handlers.APIHandler,
	health *handlers.HealthHandler,
	sessions *auth.SessionService,
) *Server {
	router := NewRouter(logger, handler, health, sessions)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi-роутер с полной картой маршрутов.
// Выделен из New для использования в тестах без запуска сервера.
func NewRouter(
	logger *slog.Logger,
	handler *handlers.APIHandler,
	health *handlers.HealthHandler,
	sessions *auth.SessionService,
) chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health и метрики — без аутентификации
	router.Get("/health/live", health.HealthLive)
	router.Get("/health/ready", health.HealthReady)
	router.Get("/metrics", health.GetMetrics)

	router.Route("/api/v1", func(r chi.Router) {
		// Аутентификация
		r.Post("/auth/login", handler.Login)
		r.Post("/auth/logout", handler.Logout)
		r.Get("/auth/session", handler.Session)

		// Публичное чтение для рендера сайта
		r.Get("/records", handler.ListRecords)
		r.Get("/records/{id}", handler.GetRecord)
		r.Get("/annotations/categories", handler.ListCategories)
		r.Get("/annotations/tags", handler.ListTags)
		r.Get("/resolve/{roleId}", handler.ResolveRole)
		r.Get("/roles/{roleId}/available", handler.RoleAvailable)

		// Административные мутации и обслуживание — только с сессией
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(sessions))

			r.Post("/records", handler.CreateRecord)
			r.Delete("/records/{id}", handler.DeleteRecord)
			r.Patch("/records/{id}/annotation", handler.UpdateAnnotation)
			r.Get("/maintenance/stale", handler.StaleReport)
			r.Post("/maintenance/recovery", handler.RunRecovery)
		})
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
