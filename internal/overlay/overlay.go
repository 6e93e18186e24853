// Пакет overlay — таблица аннотаций записей (metadata overlay).
//
// Аннотации живут отдельно от записей: привязаны по id записи, не
// участвуют в квоте бэкенда и переживают его смену. Таблица хранится
// одним JSON-документом в общем bbolt-файле (ключ localstore.KeyAnnotations).
// Слияние с записями — чистая операция без побочных эффектов.
package overlay

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/SognaneRoot/portfolio-sognane/internal/domain/model"
	"github.com/SognaneRoot/portfolio-sognane/internal/store/localstore"
)

// Overlay — таблица аннотаций поверх bbolt.
type Overlay struct {
	db     *bolt.DB
	logger *slog.Logger
}

// New создаёт таблицу аннотаций поверх открытого bbolt-файла.
func New(db *bolt.DB, logger *slog.Logger) *Overlay {
	return &Overlay{
		db:     db,
		logger: logger.With(slog.String("component", "overlay")),
	}
}

// Annotate записывает аннотацию записи. Отсутствующая аннотация
// создаётся лениво; пустая аннотация (IsZero) удаляет элемент таблицы.
// Существование записи не проверяется, это ответственность сервиса.
func (o *Overlay) Annotate(recordID string, ann model.Annotation) error {
	err := o.db.Update(func(tx *bolt.Tx) error {
		table, tErr := readTable(tx)
		if tErr != nil {
			return tErr
		}

		if ann.IsZero() {
			delete(table, recordID)
		} else {
			table[recordID] = ann
		}

		return writeTable(tx, table)
	})
	if err != nil {
		return err
	}

	o.logger.Debug("Аннотация обновлена", slog.String("record_id", recordID))
	return nil
}

// Get возвращает аннотацию записи. Отсутствующая аннотация
// эквивалентна пустой.
func (o *Overlay) Get(recordID string) (model.Annotation, error) {
	var ann model.Annotation
	err := o.db.View(func(tx *bolt.Tx) error {
		table, tErr := readTable(tx)
		if tErr != nil {
			return tErr
		}
		ann = table[recordID]
		return nil
	})
	return ann, err
}

// Delete удаляет аннотацию записи. Отсутствие аннотации не ошибка:
// вызывается после удаления записи безусловно.
func (o *Overlay) Delete(recordID string) error {
	return o.db.Update(func(tx *bolt.Tx) error {
		table, tErr := readTable(tx)
		if tErr != nil {
			return tErr
		}
		if _, ok := table[recordID]; !ok {
			return nil
		}
		delete(table, recordID)
		return writeTable(tx, table)
	})
}

// Merge соединяет записи с их аннотациями. Порядок входного списка
// сохраняется; запись без аннотации получает пустую аннотацию.
func (o *Overlay) Merge(records []*model.Record) ([]*model.AnnotatedRecord, error) {
	var table map[string]model.Annotation
	err := o.db.View(func(tx *bolt.Tx) error {
		var tErr error
		table, tErr = readTable(tx)
		return tErr
	})
	if err != nil {
		return nil, err
	}

	merged := make([]*model.AnnotatedRecord, 0, len(records))
	for _, rec := range records {
		merged = append(merged, &model.AnnotatedRecord{
			Record:     *rec,
			Annotation: table[rec.ID],
		})
	}
	return merged, nil
}

// Categories возвращает отсортированный список уникальных категорий.
func (o *Overlay) Categories() ([]string, error) {
	return o.collect(func(ann model.Annotation) []string {
		if ann.Category == "" {
			return nil
		}
		return []string{ann.Category}
	})
}

// Tags возвращает отсортированный список уникальных тегов.
func (o *Overlay) Tags() ([]string, error) {
	return o.collect(func(ann model.Annotation) []string {
		return ann.Tags
	})
}

// collect собирает уникальные значения по всем аннотациям.
func (o *Overlay) collect(extract func(model.Annotation) []string) ([]string, error) {
	seen := map[string]struct{}{}
	err := o.db.View(func(tx *bolt.Tx) error {
		table, tErr := readTable(tx)
		if tErr != nil {
			return tErr
		}
		for _, ann := range table {
			for _, v := range extract(ann) {
				if v != "" {
					seen[v] = struct{}{}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// readTable десериализует таблицу аннотаций внутри транзакции.
func readTable(tx *bolt.Tx) (map[string]model.Annotation, error) {
	data := tx.Bucket([]byte(localstore.BucketName)).Get([]byte(localstore.KeyAnnotations))
	if len(data) == 0 {
		return map[string]model.Annotation{}, nil
	}

	var table map[string]model.Annotation
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("десериализация таблицы аннотаций: %w", err)
	}
	return table, nil
}

// writeTable сериализует и записывает таблицу целиком.
func writeTable(tx *bolt.Tx, table map[string]model.Annotation) error {
	data, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("сериализация таблицы аннотаций: %w", err)
	}
	return tx.Bucket([]byte(localstore.BucketName)).Put([]byte(localstore.KeyAnnotations), data)
}
