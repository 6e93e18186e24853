// resolve.go — сервис разрешения ролей публичного сайта.
package service

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/SognaneRoot/portfolio-sognane/internal/classify"
	"github.com/SognaneRoot/portfolio-sognane/internal/domain/model"
	"github.com/SognaneRoot/portfolio-sognane/internal/overlay"
	"github.com/SognaneRoot/portfolio-sognane/internal/store"
)

// Prometheus-метрики разрешения ролей.
var resolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ps_resolve_total",
	Help: "Общее количество разрешений ролей по источнику результата.",
}, []string{"source"})

// Источники результата разрешения для метрик и ответа API.
const (
	ResolveSourceRecord   = "record"
	ResolveSourceDocument = "document"
	ResolveSourceFallback = "fallback"
	ResolveSourceAbsent   = "absent"
)

// ResolveResult — результат разрешения роли.
type ResolveResult struct {
	// Ref — ссылка на содержимое (ContentRef записи или fallback)
	Ref string `json:"ref"`
	// Source — источник ссылки: record, fallback
	Source string `json:"source"`
	// Name — имя записи (пустое для fallback)
	Name string `json:"name,omitempty"`
}

// ResolveService — разрешение ролей поверх хранилища, таблицы
// аннотаций и классификатора, с LRU-кэшем результатов.
type ResolveService struct {
	records    store.RecordStore
	overlay    *overlay.Overlay
	classifier *classify.Classifier
	cache      *ResolveCache
	logger     *slog.Logger
}

// NewResolveService создаёт сервис разрешения ролей.
func NewResolveService(
	records store.RecordStore,
	ov *overlay.Overlay,
	classifier *classify.Classifier,
	cache *ResolveCache,
	logger *slog.Logger,
) *ResolveService {
	return &ResolveService{
		records:    records,
		overlay:    ov,
		classifier: classifier,
		cache:      cache,
		logger:     logger.With(slog.String("component", "resolve_service")),
	}
}

// Resolve возвращает ссылку для роли. Для отсутствующей роли с
// anyDocument берётся самый свежий документ (роли отчётов: проект без
// явной привязки открывает последний загруженный PDF), затем fallback;
// без того и другого возвращается store.ErrNotFound. Результат
// классификации кэшируется, оба запасных варианта применяются после
// кэша.
func (s *ResolveService) Resolve(ctx context.Context, roleID, fallback string, anyDocument bool) (*ResolveResult, error) {
	res, err := s.resolveCached(ctx, roleID)
	if err != nil {
		return nil, err
	}

	if res.Found {
		resolveTotal.WithLabelValues(ResolveSourceRecord).Inc()
		return &ResolveResult{Ref: res.Ref, Source: ResolveSourceRecord, Name: res.Name}, nil
	}
	if anyDocument {
		doc, dErr := s.newestDocument(ctx)
		if dErr != nil {
			return nil, dErr
		}
		if doc != nil {
			resolveTotal.WithLabelValues(ResolveSourceDocument).Inc()
			return &ResolveResult{Ref: doc.ContentRef, Source: ResolveSourceDocument, Name: doc.Name}, nil
		}
	}
	if fallback != "" {
		resolveTotal.WithLabelValues(ResolveSourceFallback).Inc()
		return &ResolveResult{Ref: fallback, Source: ResolveSourceFallback}, nil
	}

	resolveTotal.WithLabelValues(ResolveSourceAbsent).Inc()
	return nil, store.ErrNotFound
}

// newestDocument возвращает самый свежий документ или nil.
func (s *ResolveService) newestDocument(ctx context.Context) (*model.Record, error) {
	records, err := s.records.List(ctx)
	if err != nil {
		return nil, err
	}

	var newest *model.Record
	for _, rec := range records {
		if rec.Kind != model.KindDocument {
			continue
		}
		if newest == nil || rec.CreatedAt.After(newest.CreatedAt) {
			newest = rec
		}
	}
	return newest, nil
}

// Available сообщает, разрешается ли роль в запись (без учёта
// fallback-ссылки). anyDocument засчитывает и самый свежий документ,
// как при Resolve для ролей отчётов.
func (s *ResolveService) Available(ctx context.Context, roleID string, anyDocument bool) (bool, error) {
	res, err := s.resolveCached(ctx, roleID)
	if err != nil {
		return false, err
	}
	if res.Found {
		return true, nil
	}
	if anyDocument {
		doc, dErr := s.newestDocument(ctx)
		if dErr != nil {
			return false, dErr
		}
		return doc != nil, nil
	}
	return false, nil
}

// resolveCached возвращает результат классификации из кэша или
// выполняет полный проход список-слияние-классификация.
func (s *ResolveService) resolveCached(ctx context.Context, roleID string) (resolution, error) {
	if res, ok := s.cache.Get(roleID); ok {
		return res, nil
	}

	records, err := s.records.List(ctx)
	if err != nil {
		return resolution{}, err
	}
	merged, err := s.overlay.Merge(records)
	if err != nil {
		return resolution{}, err
	}

	var res resolution
	if rec := s.classifier.Resolve(roleID, merged); rec != nil {
		res = resolution{Ref: rec.ContentRef, Name: rec.Name, Found: true}
	}

	s.cache.Set(roleID, res)

	s.logger.Debug("Роль разрешена",
		slog.String("role_id", roleID),
		slog.Bool("found", res.Found),
	)
	return res, nil
}
