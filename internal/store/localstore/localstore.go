// Пакет localstore — локальный бэкенд хранилища записей поверх bbolt.
//
// Раскладка нарочно простая: весь список
// записей — один JSON-документ под одним фиксированным ключом, каждая
// мутация пересериализует список целиком. Содержимое файлов кодируется
// inline в ContentRef (data:-схема), поэтому квота ограничивает размер
// сериализованного списка, а не число записей.
package localstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/SognaneRoot/portfolio-sognane/internal/domain/model"
	"github.com/SognaneRoot/portfolio-sognane/internal/store"
)

// Имена bucket-а и фиксированных ключей локальной раскладки.
const (
	// BucketName — единственный bucket локального хранилища.
	BucketName = "portfolio"
	// KeyRecords — сериализованный список записей.
	KeyRecords = "records"
	// KeyAnnotations — сериализованная таблица аннотаций (пакет overlay).
	KeyAnnotations = "annotations"
	// KeySession — административная сессия (пакет auth).
	KeySession = "session"
)

// Open открывает bbolt-файл и создаёт bucket, если его нет.
// Возвращённый *bolt.DB разделяется локальным хранилищем записей,
// таблицей аннотаций и локальным хранилищем сессий.
func Open(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("открытие bbolt %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, bErr := tx.CreateBucketIfNotExists([]byte(BucketName))
		return bErr
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("создание bucket %s: %w", BucketName, err)
	}

	return db, nil
}

// LocalStore — локальный бэкенд записей. Реализует store.RecordStore.
type LocalStore struct {
	db     *bolt.DB
	quota  int64
	logger *slog.Logger
}

// New создаёт локальное хранилище записей.
// quota — максимальный размер сериализованного списка в байтах.
func New(db *bolt.DB, quota int64, logger *slog.Logger) *LocalStore {
	return &LocalStore{
		db:     db,
		quota:  quota,
		logger: logger.With(slog.String("component", "localstore")),
	}
}

// Backend возвращает имя бэкенда.
func (s *LocalStore) Backend() string {
	return "local"
}

// Put сохраняет запись с inline-содержимым.
// Возвращает store.ErrCapacityExceeded, если сериализованный список
// с новой записью превысил бы квоту; частичной записи при этом нет.
func (s *LocalStore) Put(_ context.Context, params store.PutParams) (*model.Record, error) {
	rec := &model.Record{
		ID:        uuid.New().String(),
		Name:      params.Name,
		Kind:      params.Kind,
		SizeBytes: int64(len(params.Content)),
		ContentRef: fmt.Sprintf("%s%s;base64,%s",
			model.RefSchemeData, params.ContentType,
			base64.StdEncoding.EncodeToString(params.Content)),
		CreatedAt: time.Now().UTC(),
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		records, rErr := readRecords(tx)
		if rErr != nil {
			return rErr
		}

		records = append(records, rec)

		data, mErr := json.Marshal(records)
		if mErr != nil {
			return fmt.Errorf("сериализация списка записей: %w", mErr)
		}
		if int64(len(data)) > s.quota {
			return store.ErrCapacityExceeded
		}

		return tx.Bucket([]byte(BucketName)).Put([]byte(KeyRecords), data)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Запись сохранена локально",
		slog.String("record_id", rec.ID),
		slog.String("name", rec.Name),
		slog.Int64("size", rec.SizeBytes),
	)
	return rec, nil
}

// List возвращает все записи, новые первыми.
func (s *LocalStore) List(_ context.Context) ([]*model.Record, error) {
	var records []*model.Record

	err := s.db.View(func(tx *bolt.Tx) error {
		var rErr error
		records, rErr = readRecords(tx)
		return rErr
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// Get возвращает запись по id или store.ErrNotFound.
func (s *LocalStore) Get(ctx context.Context, id string) (*model.Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, store.ErrNotFound
}

// Delete удаляет запись по id. Список пересериализуется целиком.
func (s *LocalStore) Delete(_ context.Context, id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		records, rErr := readRecords(tx)
		if rErr != nil {
			return rErr
		}

		filtered := records[:0]
		found := false
		for _, rec := range records {
			if rec.ID == id {
				found = true
				continue
			}
			filtered = append(filtered, rec)
		}
		if !found {
			return store.ErrNotFound
		}

		return writeRecords(tx, filtered)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Запись удалена локально", slog.String("record_id", id))
	return nil
}

// UsedBytes возвращает текущий размер сериализованного списка записей.
func (s *LocalStore) UsedBytes() (int64, error) {
	var used int64
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(BucketName)).Get([]byte(KeyRecords))
		used = int64(len(data))
		return nil
	})
	return used, err
}

// readRecords десериализует список записей внутри транзакции.
// Отсутствующий ключ эквивалентен пустому списку.
func readRecords(tx *bolt.Tx) ([]*model.Record, error) {
	data := tx.Bucket([]byte(BucketName)).Get([]byte(KeyRecords))
	if len(data) == 0 {
		return nil, nil
	}

	var records []*model.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("десериализация списка записей: %w", err)
	}
	return records, nil
}

// writeRecords сериализует и записывает список целиком.
func writeRecords(tx *bolt.Tx, records []*model.Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("сериализация списка записей: %w", err)
	}
	return tx.Bucket([]byte(BucketName)).Put([]byte(KeyRecords), data)
}

// SeedRecords дописывает готовые записи в список как есть, без
// генерации id и пересчёта ссылок. Используется тестами и утилитами
// миграции для воспроизведения legacy-состояний (blob:-ссылки).
func SeedRecords(db *bolt.DB, records ...*model.Record) error {
	return db.Update(func(tx *bolt.Tx) error {
		existing, err := readRecords(tx)
		if err != nil {
			return err
		}
		return writeRecords(tx, append(existing, records...))
	})
}

// Проверка реализации интерфейса на этапе компиляции.
var _ store.RecordStore = (*LocalStore)(nil)
