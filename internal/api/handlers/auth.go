// auth.go — обработчики аутентификации.
// POST /api/v1/auth/login, POST /api/v1/auth/logout, GET /api/v1/auth/session.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/SognaneRoot/portfolio-sognane/internal/api/errors"
	"github.com/SognaneRoot/portfolio-sognane/internal/api/middleware"
	"github.com/SognaneRoot/portfolio-sognane/internal/auth"
)

// loginRequest — тело запроса входа.
type loginRequest struct {
	Password string `json:"password"`
}

// loginResponse — ответ успешного входа.
type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// sessionResponse — ответ проверки сессии.
type sessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login — реализация POST /api/v1/auth/login.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}
	if req.Password == "" {
		apierrors.ValidationError(w, "Пароль не указан")
		return
	}

	token, session, err := h.sessions.Login(r.Context(), req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			apierrors.Unauthorized(w, "Неверный пароль")
			return
		}
		h.logger.Error("Ошибка входа", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка при входе")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	})
}

// Logout — реализация POST /api/v1/auth/logout.
// Идемпотентен: недействительный токен тоже даёт 204.
func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractBearerToken(r)
	if token != "" {
		if err := h.sessions.Logout(r.Context(), token); err != nil {
			h.logger.Error("Ошибка выхода", slog.String("error", err.Error()))
			apierrors.InternalError(w, "Внутренняя ошибка при выходе")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session — реализация GET /api/v1/auth/session.
// Возвращает параметры действительной сессии или 401.
func (h *APIHandler) Session(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractBearerToken(r)
	if token == "" {
		apierrors.Unauthorized(w, "Токен сессии не передан")
		return
	}

	session, err := h.sessions.Verify(r.Context(), token)
	if err != nil {
		apierrors.Unauthorized(w, "Сессия недействительна или истекла")
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		ID:        session.ID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
}
