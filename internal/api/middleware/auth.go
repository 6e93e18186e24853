// auth.go — middleware проверки административной сессии.
// Извлекает bearer-токен, проверяет его через auth.SessionService
// и помещает сессию в контекст запроса.
package middleware

import (
	"context"
	"net/http"
	"strings"

	apierrors "github.com/SognaneRoot/portfolio-sognane/internal/api/errors"
	"github.com/SognaneRoot/portfolio-sognane/internal/auth"
	"github.com/SognaneRoot/portfolio-sognane/internal/domain/model"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeySession — проверенная сессия в контексте запроса.
const ContextKeySession contextKey = "admin_session"

// RequireSession возвращает middleware, пропускающий только запросы
// с действительной административной сессией.
func RequireSession(sessions *auth.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractBearerToken(r)
			if token == "" {
				apierrors.Unauthorized(w, "Токен сессии не передан")
				return
			}

			session, err := sessions.Verify(r.Context(), token)
			if err != nil {
				apierrors.Unauthorized(w, "Сессия недействительна или истекла")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext возвращает сессию из контекста запроса.
func SessionFromContext(ctx context.Context) (*model.Session, bool) {
	session, ok := ctx.Value(ContextKeySession).(*model.Session)
	return session, ok
}

// ExtractBearerToken извлекает токен из заголовка Authorization.
// Пустая строка, если заголовок отсутствует или имеет иную схему.
func ExtractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
