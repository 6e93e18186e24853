// Пакет auth — административная аутентификация.
//
// Единственный пользователь — администратор с паролем из конфигурации.
// Login выдаёт HS256 JWT, jti которого — id персистентной строки
// сессии. Токен действителен, пока верна подпись, не истёк exp и
// строка существует: удаление строки отзывает токен немедленно.
// Истёкшие строки удаляются лениво при проверке и периодическим
// sweep-ом.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/SognaneRoot/portfolio-sognane/internal/domain/model"
	"github.com/SognaneRoot/portfolio-sognane/internal/store"
)

// SweepRequired сообщает, нужен ли бэкенду периодический sweep сессий.
// Локальные строки чистятся лениво при Verify; периодический проход
// нужен только удалённой таблице.
func SweepRequired(backend string) bool {
	return backend == store.BackendRemote
}

// tokenIssuer — значение iss выдаваемых токенов.
const tokenIssuer = "portfolio-sognane"

// Ошибки аутентификации.
var (
	// ErrInvalidCredentials — неверный пароль.
	ErrInvalidCredentials = errors.New("неверные учётные данные")

	// ErrSessionInvalid — токен отсутствует, подпись неверна, сессия
	// истекла или отозвана.
	ErrSessionInvalid = errors.New("сессия недействительна")
)

// Prometheus-метрики аутентификации.
var (
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ps_logins_total",
		Help: "Общее количество попыток входа по результату.",
	}, []string{"status"})

	sessionsSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ps_sessions_swept_total",
		Help: "Общее количество истёкших сессий, удалённых sweep-ом.",
	})
)

// SessionStore — персистентное хранилище строк сессий.
// Реализации: локальная (bbolt) и удалённая (таблица за HTTP API).
type SessionStore interface {
	// Save сохраняет строку сессии.
	Save(ctx context.Context, session *model.Session) error

	// Get возвращает строку сессии или ErrSessionInvalid.
	Get(ctx context.Context, id string) (*model.Session, error)

	// Delete удаляет строку сессии. Отсутствие строки не ошибка.
	Delete(ctx context.Context, id string) error

	// DeleteExpired удаляет строки с истёкшим сроком, возвращает
	// число удалённых.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// SessionService — выдача и проверка административных сессий.
type SessionService struct {
	adminPassword string
	secret        []byte
	ttl           time.Duration
	sessions      SessionStore
	logger        *slog.Logger
}

// NewSessionService создаёт сервис сессий.
func NewSessionService(
	adminPassword string,
	secret []byte,
	ttl time.Duration,
	sessions SessionStore,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		adminPassword: adminPassword,
		secret:        secret,
		ttl:           ttl,
		sessions:      sessions,
		logger:        logger.With(slog.String("component", "auth")),
	}
}

// Login проверяет пароль и выдаёт токен сессии.
func (s *SessionService) Login(ctx context.Context, password string) (string, *model.Session, error) {
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) != 1 {
		loginsTotal.WithLabelValues("denied").Inc()
		s.logger.Warn("Отказ входа: неверный пароль")
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	session := &model.Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	claims := jwt.RegisteredClaims{
		ID:        session.ID,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		loginsTotal.WithLabelValues("error").Inc()
		return "", nil, fmt.Errorf("подпись токена: %w", err)
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		loginsTotal.WithLabelValues("error").Inc()
		return "", nil, fmt.Errorf("сохранение сессии: %w", err)
	}

	loginsTotal.WithLabelValues("success").Inc()
	s.logger.Info("Администратор вошёл",
		slog.String("session_id", session.ID),
		slog.Time("expires_at", session.ExpiresAt),
	)
	return token, session, nil
}

// Verify проверяет токен: подпись, exp и наличие строки сессии.
// Истёкшая строка удаляется лениво.
func (s *SessionService) Verify(ctx context.Context, token string) (*model.Session, error) {
	sessionID, err := s.parseToken(token)
	if err != nil {
		return nil, ErrSessionInvalid
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionInvalid
	}

	if session.IsExpired(time.Now().UTC()) {
		if dErr := s.sessions.Delete(ctx, sessionID); dErr != nil {
			s.logger.Warn("Истёкшая сессия не удалена",
				slog.String("session_id", sessionID),
				slog.String("error", dErr.Error()),
			)
		}
		return nil, ErrSessionInvalid
	}

	return session, nil
}

// Logout отзывает сессию токена. Недействительный токен не ошибка:
// выход идемпотентен.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	sessionID, err := s.parseToken(token)
	if err != nil {
		return nil
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("удаление сессии: %w", err)
	}

	s.logger.Info("Администратор вышел", slog.String("session_id", sessionID))
	return nil
}

// Sweep удаляет истёкшие строки сессий.
func (s *SessionService) Sweep(ctx context.Context) (int, error) {
	swept, err := s.sessions.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		sessionsSweptTotal.Add(float64(swept))
		s.logger.Info("Истёкшие сессии удалены", slog.Int("count", swept))
	}
	return swept, nil
}

// RunSweeper запускает периодический sweep до отмены контекста.
func (s *SessionService) RunSweeper(ctx context.Context, interval time.Duration) {
	s.logger.Info("Sweep сессий запущен", slog.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sweep сессий остановлен")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("Ошибка sweep сессий", slog.String("error", err.Error()))
			}
		}
	}
}

// parseToken проверяет подпись и exp токена, возвращает jti.
func (s *SessionService) parseToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("неожиданный метод подписи %v", t.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ID == "" {
		return "", errors.New("jti отсутствует")
	}
	return claims.ID, nil
}
