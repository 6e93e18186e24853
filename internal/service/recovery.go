// recovery.go — политика освобождения места локального хранилища.
//
// Единственные кандидаты на удаление — legacy-записи с потерянным
// содержимым (blob:-ссылки, см. пакет migrate): их байты и так
// недоступны, пользовательские данные при удалении не теряются.
// Свежие записи политика не трогает никогда.
package service

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/SognaneRoot/portfolio-sognane/internal/domain/model"
	"github.com/SognaneRoot/portfolio-sognane/internal/migrate"
	"github.com/SognaneRoot/portfolio-sognane/internal/overlay"
	"github.com/SognaneRoot/portfolio-sognane/internal/store"
)

// Prometheus-метрики политики освобождения места.
var (
	recoveryRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ps_recovery_runs_total",
		Help: "Общее количество запусков политики освобождения места.",
	}, []string{"outcome"})

	recoveryPurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ps_recovery_purged_total",
		Help: "Общее количество удалённых legacy-записей.",
	})
)

// RecoveryPolicy — политика освобождения места локального хранилища.
type RecoveryPolicy struct {
	records store.RecordStore
	overlay *overlay.Overlay
	logger  *slog.Logger
}

// NewRecoveryPolicy создаёт политику освобождения места.
func NewRecoveryPolicy(records store.RecordStore, ov *overlay.Overlay, logger *slog.Logger) *RecoveryPolicy {
	return &RecoveryPolicy{
		records: records,
		overlay: ov,
		logger:  logger.With(slog.String("component", "recovery")),
	}
}

// Plan возвращает записи, которые политика удалит: ровно
// legacy-подмножество текущего списка.
func (p *RecoveryPolicy) Plan(ctx context.Context) ([]*model.Record, error) {
	records, err := p.records.List(ctx)
	if err != nil {
		return nil, err
	}
	_, stale := migrate.Partition(records)
	return stale, nil
}

// Apply удаляет legacy-записи и их аннотации, возвращает число
// удалённых. Ноль без ошибки означает, что освобождать нечего.
func (p *RecoveryPolicy) Apply(ctx context.Context) (int, error) {
	stale, err := p.Plan(ctx)
	if err != nil {
		recoveryRunsTotal.WithLabelValues("error").Inc()
		return 0, err
	}
	if len(stale) == 0 {
		recoveryRunsTotal.WithLabelValues("noop").Inc()
		return 0, nil
	}

	purged := 0
	for _, rec := range stale {
		if err := p.records.Delete(ctx, rec.ID); err != nil {
			recoveryRunsTotal.WithLabelValues("error").Inc()
			return purged, err
		}
		if err := p.overlay.Delete(rec.ID); err != nil {
			p.logger.Warn("Аннотация legacy-записи не удалена",
				slog.String("record_id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
		purged++
		recoveryPurgedTotal.Inc()

		p.logger.Info("Legacy-запись удалена для освобождения места",
			slog.String("record_id", rec.ID),
			slog.String("name", rec.Name),
		)
	}

	recoveryRunsTotal.WithLabelValues("purged").Inc()
	return purged, nil
}
