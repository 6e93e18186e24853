// Пакет config — загрузка и валидация конфигурации сервиса
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации сервиса.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Идентификатор экземпляра (для метрик и dephealth)
	InstanceID string
	// Путь к файлу локального key-value хранилища (bbolt)
	DataPath string
	// Базовый URL удалённого бэкенда; пустой — локальный бэкенд
	RemoteURL string
	// Токен авторизации запросов к удалённому бэкенду
	RemoteToken string
	// Идентификатор владельца строк метаданных на удалённом бэкенде
	RemoteOwner string
	// Таймаут HTTP-запросов к удалённому бэкенду
	RemoteTimeout time.Duration
	// Пароль администратора (обязательный)
	AdminPassword string
	// Секрет подписи сессионных токенов (обязательный)
	SessionSecret string
	// Срок действия сессии
	SessionTTL time.Duration
	// Интервал фоновой очистки истёкших сессий (только удалённый путь)
	SessionSweepInterval time.Duration
	// Максимальный размер загружаемого файла в байтах
	MaxUploadSize int64
	// Квота локального хранилища в байтах (сериализованный список записей)
	LocalQuota int64
	// Путь к YAML-файлу таблицы алиасов ролей (опционально)
	AliasFile string
	// Размер LRU-кэша кандидатов разрешения ролей
	CacheSize int
	// TTL записи кэша
	CacheTTL time.Duration
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Имя зависимости (удалённого бэкенда) в метриках topologymetrics
	DephealthDepName string
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймауты HTTP-сервера
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// PS_PORT — порт HTTP-сервера (по умолчанию 8080)
	port, err := getEnvInt("PS_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("PS_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("PS_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// PS_INSTANCE_ID — идентификатор экземпляра (по умолчанию "portfolio-01")
	cfg.InstanceID = getEnvDefault("PS_INSTANCE_ID", "portfolio-01")

	// PS_DATA_PATH — обязательный, путь к файлу bbolt
	cfg.DataPath, err = getEnvRequired("PS_DATA_PATH")
	if err != nil {
		return nil, err
	}

	// PS_REMOTE_URL — базовый URL удалённого бэкенда (опционально).
	// Присутствие и форма URL проверяются здесь; доступность — нет (см. selector).
	cfg.RemoteURL = getEnvDefault("PS_REMOTE_URL", "")
	if cfg.RemoteURL != "" {
		if _, urlErr := url.ParseRequestURI(cfg.RemoteURL); urlErr != nil {
			return nil, fmt.Errorf("PS_REMOTE_URL: некорректный URL %q", cfg.RemoteURL)
		}
	}

	// PS_REMOTE_TOKEN — токен авторизации удалённого бэкенда
	cfg.RemoteToken = getEnvDefault("PS_REMOTE_TOKEN", "")

	// PS_REMOTE_OWNER — владелец строк метаданных (по умолчанию "admin")
	cfg.RemoteOwner = getEnvDefault("PS_REMOTE_OWNER", "admin")

	// PS_REMOTE_TIMEOUT — таймаут запросов к удалённому бэкенду (по умолчанию 30s)
	cfg.RemoteTimeout, err = getEnvDuration("PS_REMOTE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PS_REMOTE_TIMEOUT: %w", err)
	}

	// PS_ADMIN_PASSWORD — обязательный
	cfg.AdminPassword, err = getEnvRequired("PS_ADMIN_PASSWORD")
	if err != nil {
		return nil, err
	}

	// PS_SESSION_SECRET — обязательный, минимум 32 байта
	cfg.SessionSecret, err = getEnvRequired("PS_SESSION_SECRET")
	if err != nil {
		return nil, err
	}
	if len(cfg.SessionSecret) < 32 {
		return nil, fmt.Errorf("PS_SESSION_SECRET: длина %d меньше минимальной (32 байта)", len(cfg.SessionSecret))
	}

	// PS_SESSION_TTL — срок действия сессии (по умолчанию 2h)
	cfg.SessionTTL, err = getEnvDuration("PS_SESSION_TTL", 2*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("PS_SESSION_TTL: %w", err)
	}

	// PS_SESSION_SWEEP_INTERVAL — интервал очистки сессий (по умолчанию 30m)
	cfg.SessionSweepInterval, err = getEnvDuration("PS_SESSION_SWEEP_INTERVAL", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("PS_SESSION_SWEEP_INTERVAL: %w", err)
	}

	// PS_MAX_UPLOAD_SIZE — максимальный размер файла (по умолчанию 10 MiB)
	cfg.MaxUploadSize, err = getEnvInt64("PS_MAX_UPLOAD_SIZE", 10*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("PS_MAX_UPLOAD_SIZE: %w", err)
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("PS_MAX_UPLOAD_SIZE: значение должно быть положительным")
	}

	// PS_LOCAL_QUOTA — квота локального хранилища (по умолчанию 5 MiB,
	// типичный лимит localStorage-подобного blob-хранилища)
	cfg.LocalQuota, err = getEnvInt64("PS_LOCAL_QUOTA", 5*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("PS_LOCAL_QUOTA: %w", err)
	}
	if cfg.LocalQuota <= 0 {
		return nil, fmt.Errorf("PS_LOCAL_QUOTA: значение должно быть положительным")
	}

	// PS_ALIAS_FILE — YAML с таблицей алиасов ролей (опционально)
	cfg.AliasFile = getEnvDefault("PS_ALIAS_FILE", "")

	// PS_CACHE_SIZE — размер LRU-кэша (по умолчанию 128)
	cfg.CacheSize, err = getEnvInt("PS_CACHE_SIZE", 128)
	if err != nil {
		return nil, fmt.Errorf("PS_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("PS_CACHE_SIZE: значение должно быть положительным")
	}

	// PS_CACHE_TTL — TTL записи кэша (по умолчанию 30s)
	cfg.CacheTTL, err = getEnvDuration("PS_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PS_CACHE_TTL: %w", err)
	}

	// PS_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("PS_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PS_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// PS_DEPHEALTH_GROUP — имя группы в метриках topologymetrics
	cfg.DephealthGroup = getEnvDefault("PS_DEPHEALTH_GROUP", "portfolio")

	// PS_DEPHEALTH_DEP_NAME — имя зависимости в метриках topologymetrics
	cfg.DephealthDepName = getEnvDefault("PS_DEPHEALTH_DEP_NAME", "remote-storage")

	// PS_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("PS_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("PS_LOG_LEVEL: %w", err)
	}

	// PS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("PS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("PS_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// Таймауты HTTP-сервера
	cfg.HTTPReadTimeout, err = getEnvDuration("PS_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PS_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("PS_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PS_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("PS_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PS_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// PS_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("PS_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PS_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
