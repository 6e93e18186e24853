package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SognaneRoot/portfolio-sognane/internal/auth"
	"github.com/SognaneRoot/portfolio-sognane/internal/store/localstore"
)

// newTestSessions собирает сервис сессий для тестов middleware.
func newTestSessions(t *testing.T) *auth.SessionService {
	t.Helper()

	db, err := localstore.Open(filepath.Join(t.TempDir(), "portfolio.db"))
	if err != nil {
		t.Fatalf("ошибка открытия bbolt: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return auth.NewSessionService("password", []byte(strings.Repeat("s", 32)),
		2*time.Hour, auth.NewLocalSessionStore(db), slog.Default())
}

// protectedHandler отмечает прохождение middleware и проверяет
// наличие сессии в контексте.
func protectedHandler(t *testing.T, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if _, ok := SessionFromContext(r.Context()); !ok {
			t.Error("сессия отсутствует в контексте")
		}
		w.WriteHeader(http.StatusOK)
	})
}

// TestRequireSession_Valid проверяет пропуск запроса с действительным токеном.
func TestRequireSession_Valid(t *testing.T) {
	sessions := newTestSessions(t)
	token, _, err := sessions.Login(t.Context(), "password")
	if err != nil {
		t.Fatalf("ошибка login: %v", err)
	}

	called := false
	handler := RequireSession(sessions)(protectedHandler(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получено %d", rec.Code)
	}
	if !called {
		t.Fatal("обработчик не вызван")
	}
}

// TestRequireSession_Missing проверяет 401 без заголовка Authorization.
func TestRequireSession_Missing(t *testing.T) {
	sessions := newTestSessions(t)

	called := false
	handler := RequireSession(sessions)(protectedHandler(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ожидался 401, получено %d", rec.Code)
	}
	if called {
		t.Fatal("обработчик не должен вызываться")
	}
}

// TestRequireSession_Revoked проверяет 401 для отозванного токена.
func TestRequireSession_Revoked(t *testing.T) {
	sessions := newTestSessions(t)
	token, _, err := sessions.Login(t.Context(), "password")
	if err != nil {
		t.Fatalf("ошибка login: %v", err)
	}
	if err := sessions.Logout(t.Context(), token); err != nil {
		t.Fatalf("ошибка logout: %v", err)
	}

	called := false
	handler := RequireSession(sessions)(protectedHandler(t, &called))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/records/abc", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ожидался 401, получено %d", rec.Code)
	}
	if called {
		t.Fatal("обработчик не должен вызываться")
	}
}

// TestExtractBearerToken проверяет разбор заголовка Authorization.
func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		if got := ExtractBearerToken(req); got != tc.want {
			t.Errorf("заголовок %q: ожидалось %q, получено %q", tc.header, tc.want, got)
		}
	}
}
