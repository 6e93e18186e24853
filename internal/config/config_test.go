package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

// setRequiredEnv задаёт минимальный набор обязательных переменных.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PS_DATA_PATH", "/tmp/portfolio.db")
	t.Setenv("PS_ADMIN_PASSWORD", "secret-password")
	t.Setenv("PS_SESSION_SECRET", strings.Repeat("s", 32))
}

// TestLoad_Defaults проверяет значения по умолчанию при минимальной конфигурации.
func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port: ожидалось 8080, получено %d", cfg.Port)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("SessionTTL: ожидалось 2h, получено %v", cfg.SessionTTL)
	}
	if cfg.SessionSweepInterval != 30*time.Minute {
		t.Errorf("SessionSweepInterval: ожидалось 30m, получено %v", cfg.SessionSweepInterval)
	}
	if cfg.MaxUploadSize != 10*1024*1024 {
		t.Errorf("MaxUploadSize: ожидалось 10 MiB, получено %d", cfg.MaxUploadSize)
	}
	if cfg.LocalQuota != 5*1024*1024 {
		t.Errorf("LocalQuota: ожидалось 5 MiB, получено %d", cfg.LocalQuota)
	}
	if cfg.RemoteURL != "" {
		t.Errorf("RemoteURL: ожидалась пустая строка, получено %q", cfg.RemoteURL)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel: ожидалось info, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat: ожидалось json, получено %q", cfg.LogFormat)
	}
}

// TestLoad_MissingRequired проверяет ошибку при отсутствии обязательной переменной.
func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("PS_DATA_PATH", "")
	t.Setenv("PS_ADMIN_PASSWORD", "secret")
	t.Setenv("PS_SESSION_SECRET", strings.Repeat("s", 32))

	if _, err := Load(); err == nil {
		t.Fatal("ожидалась ошибка при незаданном PS_DATA_PATH")
	}
}

// TestLoad_ShortSessionSecret проверяет минимальную длину секрета.
func TestLoad_ShortSessionSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PS_SESSION_SECRET", "short")

	if _, err := Load(); err == nil {
		t.Fatal("ожидалась ошибка при коротком PS_SESSION_SECRET")
	}
}

// TestLoad_InvalidRemoteURL проверяет валидацию формы URL удалённого бэкенда.
func TestLoad_InvalidRemoteURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PS_REMOTE_URL", "not a url")

	if _, err := Load(); err == nil {
		t.Fatal("ожидалась ошибка при некорректном PS_REMOTE_URL")
	}
}

// TestLoad_InvalidPort проверяет диапазон порта.
func TestLoad_InvalidPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PS_PORT", "70000")

	if _, err := Load(); err == nil {
		t.Fatal("ожидалась ошибка при порте вне диапазона")
	}
}

// TestParseLogLevel проверяет разбор уровней логирования.
func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tc := range cases {
		got, err := parseLogLevel(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseLogLevel(%q): ожидалась ошибка", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseLogLevel(%q): неожиданная ошибка %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseLogLevel(%q): ожидалось %v, получено %v", tc.in, tc.want, got)
		}
	}
}
