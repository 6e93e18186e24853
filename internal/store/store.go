// Пакет store — контракт хранилища записей и выбор активного бэкенда.
//
// RecordStore реализуют два взаимозаменяемых бэкенда:
//   - localstore.LocalStore — встроенное key-value хранилище (bbolt),
//     содержимое кодируется inline (data:-схема);
//   - remotestore.RemoteStore — удалённый object storage + таблица
//     метаданных за HTTP API, содержимое по durable URL.
//
// Выбор бэкенда — статическая проверка конфигурации при старте
// (см. Select), не probe доступности.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/SognaneRoot/portfolio-sognane/internal/domain/model"
)

// Ошибки хранилища.
var (
	// ErrNotFound — запись с указанным id отсутствует.
	ErrNotFound = errors.New("запись не найдена")

	// ErrCapacityExceeded — запись превысила бы квоту локального хранилища.
	// Восстановимо через политику освобождения места (service.RecoveryPolicy).
	ErrCapacityExceeded = errors.New("квота локального хранилища исчерпана")
)

// DependentStepError — частичный отказ многошаговой записи на удалённый
// бэкенд: первый шаг (загрузка байтов) выполнен, второй (вставка строки
// метаданных) — нет. Автоматического отката нет; ObjectPath указывает
// на осиротевший объект для ручной сверки.
type DependentStepError struct {
	// Step — имя отказавшего шага
	Step string
	// ObjectPath — путь объекта, оставшегося без строки метаданных
	ObjectPath string
	// Err — исходная ошибка шага
	Err error
}

func (e *DependentStepError) Error() string {
	return fmt.Sprintf("шаг %q не выполнен (orphan: %s): %v", e.Step, e.ObjectPath, e.Err)
}

func (e *DependentStepError) Unwrap() error {
	return e.Err
}

// PutParams — параметры записи нового артефакта.
type PutParams struct {
	// Content — байты артефакта
	Content []byte
	// Name — оригинальное имя файла
	Name string
	// ContentType — MIME-тип (источник для Kind)
	ContentType string
	// Kind — тип содержимого, вычислен вызывающим кодом один раз
	Kind model.Kind
}

// RecordStore — контракт хранилища записей. Оба бэкенда реализуют
// один и тот же интерфейс; вызывающий код не знает, какой активен.
type RecordStore interface {
	// Put сохраняет байты и возвращает новую запись.
	// Локальный бэкенд возвращает store.ErrCapacityExceeded при
	// переполнении квоты; удалённый — *DependentStepError при
	// частичном отказе двухшаговой записи.
	Put(ctx context.Context, params PutParams) (*model.Record, error)

	// List возвращает все записи, новые первыми.
	List(ctx context.Context) ([]*model.Record, error)

	// Get возвращает запись по id или store.ErrNotFound.
	Get(ctx context.Context, id string) (*model.Record, error)

	// Delete удаляет запись и её содержимое. store.ErrNotFound,
	// если записи нет.
	Delete(ctx context.Context, id string) error

	// Backend возвращает имя бэкенда ("local" или "remote") для логов и метрик.
	Backend() string
}
