// Точка входа портфолио-бэкенда.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/SognaneRoot/portfolio-sognane/internal/api/handlers"
	"github.com/SognaneRoot/portfolio-sognane/internal/auth"
	"github.com/SognaneRoot/portfolio-sognane/internal/classify"
	"github.com/SognaneRoot/portfolio-sognane/internal/config"
	"github.com/SognaneRoot/portfolio-sognane/internal/migrate"
	"github.com/SognaneRoot/portfolio-sognane/internal/overlay"
	"github.com/SognaneRoot/portfolio-sognane/internal/server"
	"github.com/SognaneRoot/portfolio-sognane/internal/service"
	"github.com/SognaneRoot/portfolio-sognane/internal/store"
	"github.com/SognaneRoot/portfolio-sognane/internal/store/localstore"
	"github.com/SognaneRoot/portfolio-sognane/internal/store/remotestore"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)

	// Выбор бэкенда: статическая проверка конфигурации, один раз
	backend := store.Select(cfg.RemoteURL)
	logger.Info("Портфолио-бэкенд запускается",
		slog.String("instance_id", cfg.InstanceID),
		slog.String("version", config.Version),
		slog.String("backend", backend),
		slog.Int("port", cfg.Port),
	)

	// --- Инициализация компонентов ---

	// 1. Общий bbolt-файл: локальные записи, аннотации, сессии
	db, err := localstore.Open(cfg.DataPath)
	if err != nil {
		logger.Error("Ошибка открытия хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	// 2. Активный бэкенд записей
	var records store.RecordStore
	if backend == store.BackendRemote {
		records = remotestore.New(cfg.RemoteURL, cfg.RemoteToken, cfg.RemoteOwner,
			cfg.RemoteTimeout, logger)
	} else {
		records = localstore.New(db, cfg.LocalQuota, logger)
	}

	// 3. Таблица аннотаций
	ov := overlay.New(db, logger)

	// 4. Классификатор ролей (встроенная таблица + YAML-переопределение)
	aliases, err := classify.LoadAliasFile(cfg.AliasFile)
	if err != nil {
		logger.Error("Ошибка загрузки таблицы псевдонимов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	classifier := classify.New(aliases, logger)

	// 5. Сервисы
	cache := service.NewResolveCache(cfg.CacheSize, cfg.CacheTTL)
	recovery := service.NewRecoveryPolicy(records, ov, logger)
	recordSvc := service.NewRecordService(records, ov, recovery, cache, cfg.MaxUploadSize, logger)
	resolveSvc := service.NewResolveService(records, ov, classifier, cache, logger)
	detector := migrate.New(records, logger)

	// 6. Сессии: строки локально или в таблице удалённого сервиса
	var sessionStore auth.SessionStore
	if backend == store.BackendRemote {
		sessionStore = auth.NewRemoteSessionStore(cfg.RemoteURL, cfg.RemoteToken, cfg.RemoteTimeout)
	} else {
		sessionStore = auth.NewLocalSessionStore(db)
	}
	sessions := auth.NewSessionService(cfg.AdminPassword, []byte(cfg.SessionSecret),
		cfg.SessionTTL, sessionStore, logger)

	// --- Фоновые процессы ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Sweep истёкших сессий — только для удалённой таблицы, локальные
	// строки чистятся лениво при проверке
	if auth.SweepRequired(backend) {
		go sessions.RunSweeper(ctx, cfg.SessionSweepInterval)
	}

	// Мониторинг удалённого сервиса — только при удалённом бэкенде
	var checker handlers.ReadinessChecker
	if backend == store.BackendRemote {
		dephealthSvc, dhErr := service.NewDephealthService(
			cfg.InstanceID,
			cfg.DephealthGroup,
			cfg.DephealthDepName,
			cfg.RemoteURL,
			cfg.DephealthCheckInterval,
			logger,
		)
		if dhErr != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", dhErr.Error()),
			)
		} else {
			if startErr := dephealthSvc.Start(ctx); startErr != nil {
				logger.Warn("Ошибка запуска topologymetrics",
					slog.String("error", startErr.Error()),
				)
			} else {
				defer dephealthSvc.Stop()
				depName := cfg.DephealthDepName
				checker = handlers.ReadinessFunc(func() (string, string) {
					if dephealthSvc.Health()[depName] {
						return "ok", ""
					}
					return "fail", "удалённый сервис хранения недоступен"
				})
			}
		}
	}

	// --- HTTP-сервер ---
	healthHandler := handlers.NewHealthHandler(backend, checker)
	apiHandler := handlers.NewAPIHandler(recordSvc, resolveSvc, sessions,
		detector, recovery, healthHandler, logger)

	srv := server.New(cfg, logger, apiHandler, healthHandler, sessions)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Портфолио-бэкенд остановлен")
}
