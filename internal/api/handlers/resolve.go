// resolve.go — обработчики разрешения ролей публичного сайта.
// GET /api/v1/resolve/{roleId}, GET /api/v1/roles/{roleId}/available.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/SognaneRoot/portfolio-sognane/internal/api/errors"
	"github.com/SognaneRoot/portfolio-sognane/internal/store"
)

// availableResponse — ответ пробы доступности роли.
type availableResponse struct {
	RoleID    string `json:"role_id"`
	Available bool   `json:"available"`
}

// ResolveRole — реализация GET /api/v1/resolve/{roleId}.
// Параметр fallback — ссылка, возвращаемая для отсутствующей роли;
// any_document=true подставляет самый свежий документ перед fallback.
// Без запасных вариантов отсутствующая роль даёт 404.
func (h *APIHandler) ResolveRole(w http.ResponseWriter, r *http.Request) {
	roleID := chi.URLParam(r, "roleId")
	fallback := r.URL.Query().Get("fallback")
	anyDocument, _ := strconv.ParseBool(r.URL.Query().Get("any_document"))

	res, err := h.resolve.Resolve(r.Context(), roleID, fallback, anyDocument)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apierrors.NotFound(w, "Роль не разрешается ни в одну запись")
			return
		}
		h.logger.Error("Ошибка разрешения роли",
			slog.String("role_id", roleID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при разрешении роли")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// RoleAvailable — реализация GET /api/v1/roles/{roleId}/available.
// any_document=true засчитывает любой документ, как при разрешении
// ролей отчётов.
func (h *APIHandler) RoleAvailable(w http.ResponseWriter, r *http.Request) {
	roleID := chi.URLParam(r, "roleId")
	anyDocument, _ := strconv.ParseBool(r.URL.Query().Get("any_document"))

	available, err := h.resolve.Available(r.Context(), roleID, anyDocument)
	if err != nil {
		h.logger.Error("Ошибка пробы доступности роли",
			slog.String("role_id", roleID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при пробе доступности")
		return
	}

	writeJSON(w, http.StatusOK, availableResponse{RoleID: roleID, Available: available})
}
