// store_remote.go — строки сессий в таблице удалённого сервиса.
// Используется при активном удалённом бэкенде: сессии переживают
// рестарт любого экземпляра и видны всем экземплярам сразу.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SognaneRoot/portfolio-sognane/internal/domain/model"
)

// sessionsResource — путь таблицы сессий удалённого сервиса.
const sessionsResource = "/rest/v1/admin_sessions"

// RemoteSessionStore — клиент таблицы сессий удалённого сервиса.
type RemoteSessionStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewRemoteSessionStore создаёт клиент таблицы сессий.
func NewRemoteSessionStore(baseURL, token string, timeout time.Duration) *RemoteSessionStore {
	return &RemoteSessionStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

// Save сохраняет строку сессии.
func (s *RemoteSessionStore) Save(ctx context.Context, session *model.Session) error {
	body, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("сериализация сессии: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+sessionsResource, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("создание запроса save: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос save: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("save: неожиданный статус %d", resp.StatusCode)
	}
	return nil
}

// Get возвращает строку сессии или ErrSessionInvalid.
func (s *RemoteSessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	reqURL := fmt.Sprintf("%s%s?id=%s", s.baseURL, sessionsResource, url.QueryEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса get: %w", err)
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get: неожиданный статус %d", resp.StatusCode)
	}

	var rows []*model.Session
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("десериализация ответа get: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrSessionInvalid
	}
	return rows[0], nil
}

// Delete удаляет строку сессии. Отсутствие строки не ошибка.
func (s *RemoteSessionStore) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		s.baseURL+sessionsResource+"/"+url.PathEscape(id), http.NoBody)
	if err != nil {
		return fmt.Errorf("создание запроса delete: %w", err)
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос delete: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("delete: неожиданный статус %d", resp.StatusCode)
	}
}

// DeleteExpired удаляет истёкшие строки одним запросом с фильтром
// по expires_at. Сервис возвращает удалённые строки для подсчёта.
func (s *RemoteSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	reqURL := fmt.Sprintf("%s%s?expires_at=lt.%s",
		s.baseURL, sessionsResource, url.QueryEscape(now.Format(time.RFC3339)))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("создание запроса sweep: %w", err)
	}
	req.Header.Set("Prefer", "return=representation")
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("запрос sweep: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return 0, fmt.Errorf("sweep: неожиданный статус %d", resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNoContent {
		return 0, nil
	}

	var rows []*model.Session
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return 0, fmt.Errorf("десериализация ответа sweep: %w", err)
	}
	return len(rows), nil
}

// authorize добавляет bearer-токен, если он настроен.
func (s *RemoteSessionStore) authorize(req *http.Request) {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}

// Проверка реализации интерфейса на этапе компиляции.
var _ SessionStore = (*RemoteSessionStore)(nil)
