// records.go — сервис записей: загрузка, список, удаление, аннотации.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apierrors "github.com/SognaneRoot/portfolio-sognane/internal/api/errors"
	"github.com/SognaneRoot/portfolio-sognane/internal/classify"
	"github.com/SognaneRoot/portfolio-sognane/internal/domain/model"
	"github.com/SognaneRoot/portfolio-sognane/internal/overlay"
	"github.com/SognaneRoot/portfolio-sognane/internal/store"
)

// allowedContentTypes — допустимые MIME-типы загрузки.
var allowedContentTypes = map[string]struct{}{
	"image/jpeg":         {},
	"image/png":          {},
	"image/gif":          {},
	"image/webp":         {},
	"application/pdf":    {},
	"text/plain":         {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

// Prometheus-метрики операций с записями.
var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ps_uploads_total",
		Help: "Общее количество загрузок по бэкенду и результату.",
	}, []string{"backend", "status"})

	deletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ps_deletes_total",
		Help: "Общее количество удалений по бэкенду и результату.",
	}, []string{"backend", "status"})
)

// UploadParams — параметры загрузки файла.
type UploadParams struct {
	// Content — байты файла
	Content []byte
	// Name — оригинальное имя файла
	Name string
	// ContentType — MIME-тип файла
	ContentType string
}

// ListFilter — фильтр списка записей.
type ListFilter struct {
	// Query — подстрока поиска по имени и аннотации (пустая — без поиска)
	Query string
	// Kind — фильтр по типу содержимого (пустой — все типы)
	Kind model.Kind
}

// RecordService — сервис записей поверх активного бэкенда и таблицы
// аннотаций.
type RecordService struct {
	records   store.RecordStore
	overlay   *overlay.Overlay
	recovery  *RecoveryPolicy
	cache     *ResolveCache
	maxUpload int64
	logger    *slog.Logger
}

// NewRecordService создаёт сервис записей.
// recovery используется только локальным бэкендом; для удалённого
// передаётся nil.
func NewRecordService(
	records store.RecordStore,
	ov *overlay.Overlay,
	recovery *RecoveryPolicy,
	cache *ResolveCache,
	maxUpload int64,
	logger *slog.Logger,
) *RecordService {
	return &RecordService{
		records:   records,
		overlay:   ov,
		recovery:  recovery,
		cache:     cache,
		maxUpload: maxUpload,
		logger:    logger.With(slog.String("component", "record_service")),
	}
}

// Upload валидирует и сохраняет файл.
//
// Поток:
//  1. Проверка MIME-типа по allow-list
//  2. Проверка размера
//  3. Put в активный бэкенд
//  4. Для локального бэкенда при исчерпании квоты — политика
//     освобождения места и ровно один повтор
func (s *RecordService) Upload(ctx context.Context, params UploadParams) (*model.Record, *OperationError) {
	contentType := normalizeContentType(params.ContentType)

	if _, ok := allowedContentTypes[contentType]; !ok {
		uploadsTotal.WithLabelValues(s.records.Backend(), "rejected").Inc()
		return nil, &OperationError{
			StatusCode: 415,
			Code:       apierrors.CodeUnsupportedMedia,
			Message:    fmt.Sprintf("Тип %s не поддерживается", contentType),
		}
	}
	if int64(len(params.Content)) > s.maxUpload {
		uploadsTotal.WithLabelValues(s.records.Backend(), "rejected").Inc()
		return nil, &OperationError{
			StatusCode: 415,
			Code:       apierrors.CodeUnsupportedMedia,
			Message:    fmt.Sprintf("Размер файла %d байт превышает максимум %d байт", len(params.Content), s.maxUpload),
		}
	}
	if params.Name == "" {
		uploadsTotal.WithLabelValues(s.records.Backend(), "rejected").Inc()
		return nil, &OperationError{
			StatusCode: 400,
			Code:       apierrors.CodeValidationError,
			Message:    "Имя файла не указано",
		}
	}

	putParams := store.PutParams{
		Content:     params.Content,
		Name:        params.Name,
		ContentType: contentType,
		Kind:        model.KindFromContentType(contentType),
	}

	rec, err := s.records.Put(ctx, putParams)
	if errors.Is(err, store.ErrCapacityExceeded) && s.recovery != nil {
		rec, err = s.retryAfterRecovery(ctx, putParams)
	}
	if err != nil {
		return nil, s.translatePutError(err)
	}

	s.cache.Purge()
	uploadsTotal.WithLabelValues(s.records.Backend(), "success").Inc()

	s.logger.Info("Файл загружен",
		slog.String("record_id", rec.ID),
		slog.String("name", rec.Name),
		slog.String("kind", string(rec.Kind)),
		slog.Int64("size", rec.SizeBytes),
		slog.String("backend", s.records.Backend()),
	)
	return rec, nil
}

// retryAfterRecovery запускает политику освобождения места и повторяет
// запись ровно один раз. Если освобождать нечего, исходная ошибка
// квоты возвращается без повтора.
func (s *RecordService) retryAfterRecovery(ctx context.Context, params store.PutParams) (*model.Record, error) {
	purged, rErr := s.recovery.Apply(ctx)
	if rErr != nil {
		s.logger.Error("Политика освобождения места не выполнена",
			slog.String("error", rErr.Error()),
		)
		return nil, store.ErrCapacityExceeded
	}
	if purged == 0 {
		return nil, store.ErrCapacityExceeded
	}

	s.logger.Info("Место освобождено, повтор записи",
		slog.Int("purged", purged),
	)
	return s.records.Put(ctx, params)
}

// translatePutError переводит ошибку бэкенда в OperationError.
func (s *RecordService) translatePutError(err error) *OperationError {
	backend := s.records.Backend()

	var depErr *store.DependentStepError
	switch {
	case errors.Is(err, store.ErrCapacityExceeded):
		uploadsTotal.WithLabelValues(backend, "capacity").Inc()
		return &OperationError{
			StatusCode: 507,
			Code:       apierrors.CodeStorageFull,
			Message:    "Квота хранилища исчерпана, освободить место не удалось",
		}
	case errors.As(err, &depErr):
		uploadsTotal.WithLabelValues(backend, "dependent_step").Inc()
		return &OperationError{
			StatusCode: 502,
			Code:       apierrors.CodeDependentStep,
			Message:    fmt.Sprintf("Шаг %s не выполнен, объект %s остался без метаданных", depErr.Step, depErr.ObjectPath),
		}
	default:
		uploadsTotal.WithLabelValues(backend, "error").Inc()
		s.logger.Error("Ошибка сохранения файла", slog.String("error", err.Error()))
		return &OperationError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Внутренняя ошибка при сохранении файла",
		}
	}
}

// List возвращает записи с аннотациями, новые первыми, с применённым
// фильтром.
func (s *RecordService) List(ctx context.Context, filter ListFilter) ([]*model.AnnotatedRecord, error) {
	records, err := s.records.List(ctx)
	if err != nil {
		return nil, err
	}

	merged, err := s.overlay.Merge(records)
	if err != nil {
		return nil, err
	}

	if filter.Kind == "" && filter.Query == "" {
		return merged, nil
	}

	out := make([]*model.AnnotatedRecord, 0, len(merged))
	for _, rec := range merged {
		if filter.Kind != "" && rec.Kind != filter.Kind {
			continue
		}
		if filter.Query != "" && !matchesQuery(rec, filter.Query) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Get возвращает запись с аннотацией по id.
func (s *RecordService) Get(ctx context.Context, id string) (*model.AnnotatedRecord, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ann, err := s.overlay.Get(rec.ID)
	if err != nil {
		return nil, err
	}
	return &model.AnnotatedRecord{Record: *rec, Annotation: ann}, nil
}

// Delete удаляет запись, затем её аннотацию. Ошибка удаления
// аннотации не откатывает удаление записи.
func (s *RecordService) Delete(ctx context.Context, id string) error {
	if err := s.records.Delete(ctx, id); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			deletesTotal.WithLabelValues(s.records.Backend(), "error").Inc()
		}
		return err
	}

	if err := s.overlay.Delete(id); err != nil {
		s.logger.Warn("Аннотация удалённой записи не удалена",
			slog.String("record_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.cache.Purge()
	deletesTotal.WithLabelValues(s.records.Backend(), "success").Inc()

	s.logger.Info("Запись удалена",
		slog.String("record_id", id),
		slog.String("backend", s.records.Backend()),
	)
	return nil
}

// Annotate записывает аннотацию существующей записи.
// store.ErrNotFound, если записи нет.
func (s *RecordService) Annotate(ctx context.Context, id string, ann model.Annotation) error {
	if _, err := s.records.Get(ctx, id); err != nil {
		return err
	}
	if err := s.overlay.Annotate(id, ann); err != nil {
		return err
	}

	s.cache.Purge()
	s.logger.Info("Аннотация обновлена", slog.String("record_id", id))
	return nil
}

// Categories возвращает справочник категорий аннотаций.
func (s *RecordService) Categories() ([]string, error) {
	return s.overlay.Categories()
}

// Tags возвращает справочник тегов аннотаций.
func (s *RecordService) Tags() ([]string, error) {
	return s.overlay.Tags()
}

// Backend возвращает имя активного бэкенда.
func (s *RecordService) Backend() string {
	return s.records.Backend()
}

// matchesQuery проверяет совпадение записи с поисковой подстрокой
// по нормализованной форме имени, описания, категории и тегов.
func matchesQuery(rec *model.AnnotatedRecord, query string) bool {
	q := classify.Normalize(query)
	if q == "" {
		return true
	}
	if strings.Contains(classify.Normalize(rec.Name), q) {
		return true
	}
	if strings.Contains(classify.Normalize(rec.Annotation.Description), q) {
		return true
	}
	if strings.Contains(classify.Normalize(rec.Annotation.Category), q) {
		return true
	}
	for _, tag := range rec.Annotation.Tags {
		if strings.Contains(classify.Normalize(tag), q) {
			return true
		}
	}
	return false
}

// normalizeContentType убирает параметры MIME-типа (charset и т.д.).
func normalizeContentType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
