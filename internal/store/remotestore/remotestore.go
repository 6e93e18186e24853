// Пакет remotestore — удалённый бэкенд хранилища записей.
//
// HTTP-клиент двух ресурсов удалённого сервиса:
//   - object storage: загрузка/удаление байтов, durable public URL;
//   - таблица метаданных: insert / list-by-owner (created_at desc) /
//     delete-by-id.
//
// Put — два зависимых шага (байты, затем строка метаданных). Отказ
// второго шага возвращает *store.DependentStepError: загруженный объект
// осиротевает, автоматического отката нет (известный, документированный
// разрыв, не тихая порча данных).
package remotestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SognaneRoot/portfolio-sognane/internal/domain/model"
	"github.com/SognaneRoot/portfolio-sognane/internal/store"
)

// BucketName — имя bucket-а в object storage удалённого сервиса.
const BucketName = "portfolio-files"

// fileRow — строка таблицы метаданных удалённого сервиса.
type fileRow struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Kind      model.Kind `json:"kind"`
	Size      int64      `json:"size"`
	FilePath  string     `json:"file_path"`
	PublicURL string     `json:"public_url"`
	Owner     string     `json:"owner"`
	CreatedAt time.Time  `json:"created_at"`
}

// RemoteStore — удалённый бэкенд записей. Реализует store.RecordStore.
type RemoteStore struct {
	baseURL    string
	token      string
	owner      string
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент удалённого бэкенда.
// baseURL — базовый URL сервиса; token — bearer-токен (пустая строка —
// без авторизации); owner — идентификатор владельца строк метаданных.
func New(baseURL, token, owner string, timeout time.Duration, logger *slog.Logger) *RemoteStore {
	return &RemoteStore{
		baseURL: normalizeURL(baseURL),
		token:   token,
		owner:   owner,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				// Пул idle-соединений для переиспользования
				MaxIdleConnsPerHost: 10,
			},
		},
		logger: logger.With(slog.String("component", "remotestore")),
	}
}

// Backend возвращает имя бэкенда.
func (s *RemoteStore) Backend() string {
	return "remote"
}

// Put загружает байты в object storage, затем вставляет строку метаданных.
// Шаг 2 зависит от шага 1; его отказ возвращает *store.DependentStepError
// с путём осиротевшего объекта.
func (s *RemoteStore) Put(ctx context.Context, params store.PutParams) (*model.Record, error) {
	objectPath := fmt.Sprintf("uploads/%d-%s%s",
		time.Now().UnixMilli(), uuid.New().String()[:8], path.Ext(params.Name))

	// Шаг 1: загрузка байтов
	publicURL, err := s.uploadObject(ctx, objectPath, params.Content, params.ContentType)
	if err != nil {
		return nil, fmt.Errorf("загрузка объекта %s: %w", objectPath, err)
	}

	// Шаг 2: строка метаданных
	row := fileRow{
		Name:      params.Name,
		Kind:      params.Kind,
		Size:      int64(len(params.Content)),
		FilePath:  objectPath,
		PublicURL: publicURL,
		Owner:     s.owner,
	}
	inserted, err := s.insertRow(ctx, row)
	if err != nil {
		s.logger.Error("Строка метаданных не вставлена, объект осиротел",
			slog.String("object_path", objectPath),
			slog.String("error", err.Error()),
		)
		return nil, &store.DependentStepError{
			Step:       "metadata-insert",
			ObjectPath: objectPath,
			Err:        err,
		}
	}

	s.logger.Info("Запись сохранена на удалённом бэкенде",
		slog.String("record_id", inserted.ID),
		slog.String("name", inserted.Name),
		slog.String("public_url", inserted.PublicURL),
	)
	return rowToRecord(inserted), nil
}

// List возвращает все записи владельца, новые первыми.
func (s *RemoteStore) List(ctx context.Context) ([]*model.Record, error) {
	rows, err := s.listRows(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]*model.Record, 0, len(rows))
	for i := range rows {
		records = append(records, rowToRecord(&rows[i]))
	}
	// Сервис отдаёт created_at desc; сортировка здесь — защита контракта
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// Get возвращает запись по id. Endpoint метаданных поддерживает только
// list-by-owner, поэтому выборка — фильтрация списка.
func (s *RemoteStore) Get(ctx context.Context, id string) (*model.Record, error) {
	rows, err := s.listRows(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].ID == id {
			return rowToRecord(&rows[i]), nil
		}
	}
	return nil, store.ErrNotFound
}

// Delete удаляет объект, затем строку метаданных. Отказ после удаления
// объекта оставляет висящую строку — тот же класс orphan-а, что и в Put.
func (s *RemoteStore) Delete(ctx context.Context, id string) error {
	rows, err := s.listRows(ctx)
	if err != nil {
		return err
	}

	var row *fileRow
	for i := range rows {
		if rows[i].ID == id {
			row = &rows[i]
			break
		}
	}
	if row == nil {
		return store.ErrNotFound
	}

	if err := s.deleteObject(ctx, row.FilePath); err != nil {
		return fmt.Errorf("удаление объекта %s: %w", row.FilePath, err)
	}

	if err := s.deleteRow(ctx, id); err != nil {
		s.logger.Error("Строка метаданных не удалена, осталась висящая строка",
			slog.String("record_id", id),
			slog.String("error", err.Error()),
		)
		return &store.DependentStepError{
			Step:       "metadata-delete",
			ObjectPath: row.FilePath,
			Err:        err,
		}
	}

	s.logger.Info("Запись удалена на удалённом бэкенде", slog.String("record_id", id))
	return nil
}

// --- HTTP-операции ---

// uploadObject загружает байты и возвращает durable public URL.
// Формат: POST {base}/storage/v1/object/{bucket}/{path}.
func (s *RemoteStore) uploadObject(ctx context.Context, objectPath string, content []byte, contentType string) (string, error) {
	reqURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, BucketName, objectPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("создание запроса upload: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("запрос upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("upload: неожиданный статус %d: %s", resp.StatusCode, readBodyPrefix(resp.Body))
	}

	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, BucketName, objectPath), nil
}

// deleteObject удаляет объект из object storage.
func (s *RemoteStore) deleteObject(ctx context.Context, objectPath string) error {
	reqURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, BucketName, objectPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("создание запроса delete object: %w", err)
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос delete object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("delete object: неожиданный статус %d", resp.StatusCode)
	}
	return nil
}

// insertRow вставляет строку метаданных и возвращает её с присвоенным id.
func (s *RemoteStore) insertRow(ctx context.Context, row fileRow) (*fileRow, error) {
	body, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("сериализация строки метаданных: %w", err)
	}

	reqURL := s.baseURL + "/rest/v1/portfolio_files"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("создание запроса insert: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос insert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("insert: неожиданный статус %d: %s", resp.StatusCode, readBodyPrefix(resp.Body))
	}

	var inserted fileRow
	if err := json.NewDecoder(resp.Body).Decode(&inserted); err != nil {
		return nil, fmt.Errorf("десериализация ответа insert: %w", err)
	}
	return &inserted, nil
}

// listRows возвращает строки метаданных владельца (created_at desc).
func (s *RemoteStore) listRows(ctx context.Context) ([]fileRow, error) {
	reqURL := fmt.Sprintf("%s/rest/v1/portfolio_files?owner=%s&order=created_at.desc",
		s.baseURL, url.QueryEscape(s.owner))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса list: %w", err)
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list: неожиданный статус %d", resp.StatusCode)
	}

	var rows []fileRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("десериализация ответа list: %w", err)
	}
	return rows, nil
}

// deleteRow удаляет строку метаданных по id.
func (s *RemoteStore) deleteRow(ctx context.Context, id string) error {
	reqURL := fmt.Sprintf("%s/rest/v1/portfolio_files/%s", s.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("создание запроса delete row: %w", err)
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос delete row: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("delete row: неожиданный статус %d", resp.StatusCode)
	}
	return nil
}

// authorize добавляет bearer-токен, если он настроен.
func (s *RemoteStore) authorize(req *http.Request) {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}

// rowToRecord преобразует строку метаданных в доменную запись.
// ContentRef — durable public URL объекта.
func rowToRecord(row *fileRow) *model.Record {
	return &model.Record{
		ID:         row.ID,
		Name:       row.Name,
		Kind:       row.Kind,
		SizeBytes:  row.Size,
		ContentRef: row.PublicURL,
		CreatedAt:  row.CreatedAt,
	}
}

// normalizeURL убирает trailing slash из URL.
func normalizeURL(rawURL string) string {
	return strings.TrimRight(rawURL, "/")
}

// readBodyPrefix читает начало тела ответа для сообщения об ошибке.
func readBodyPrefix(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(data))
}

// Проверка реализации интерфейса на этапе компиляции.
var _ store.RecordStore = (*RemoteStore)(nil)
