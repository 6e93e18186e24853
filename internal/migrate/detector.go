// Пакет migrate — детектор legacy-записей.
//
// Ранние версии админки сохраняли в ContentRef эфемерные blob:-ссылки,
// живущие только в рамках сессии браузера. Такие записи числятся в
// списке, но их содержимое безвозвратно потеряно. Детектор находит их
// для отчёта и для политики освобождения места; автоматической
// миграции содержимого нет, восстановить его неоткуда.
package migrate

import (
	"context"
	"log/slog"

	"github.com/SognaneRoot/portfolio-sognane/internal/domain/model"
	"github.com/SognaneRoot/portfolio-sognane/internal/store"
)

// Report — отчёт о legacy-записях хранилища.
type Report struct {
	// Total — всего записей в хранилище
	Total int `json:"total"`
	// Names — имена записей с потерянным содержимым (blob:-ссылки)
	Names []string `json:"names"`
}

// StaleCount возвращает число legacy-записей.
func (r *Report) StaleCount() int {
	return len(r.Names)
}

// Detector — детектор legacy-записей поверх хранилища.
type Detector struct {
	records store.RecordStore
	logger  *slog.Logger
}

// New создаёт детектор.
func New(records store.RecordStore, logger *slog.Logger) *Detector {
	return &Detector{
		records: records,
		logger:  logger.With(slog.String("component", "migrate")),
	}
}

// Scan перечисляет записи хранилища и возвращает отчёт.
func (d *Detector) Scan(ctx context.Context) (*Report, error) {
	records, err := d.records.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Total: len(records), Names: []string{}}
	for _, rec := range records {
		if rec.IsStale() {
			report.Names = append(report.Names, rec.Name)
		}
	}

	if len(report.Names) > 0 {
		d.logger.Warn("Обнаружены legacy-записи с потерянным содержимым",
			slog.Int("stale", len(report.Names)),
			slog.Int("total", report.Total),
		)
	}
	return report, nil
}

// Partition делит записи на свежие и legacy, сохраняя порядок.
// Используется политикой освобождения места: удалять можно только
// legacy-подмножество.
func Partition(records []*model.Record) (fresh, stale []*model.Record) {
	for _, rec := range records {
		if rec.IsStale() {
			stale = append(stale, rec)
		} else {
			fresh = append(fresh, rec)
		}
	}
	return fresh, stale
}
