// store_local.go — локальное хранилище строк сессий поверх bbolt.
// Таблица сессий сериализуется одним JSON-документом, как и остальные
// локальные таблицы.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/SognaneRoot/portfolio-sognane/internal/domain/model"
	"github.com/SognaneRoot/portfolio-sognane/internal/store/localstore"
)

// LocalSessionStore — строки сессий в общем bbolt-файле.
type LocalSessionStore struct {
	db *bolt.DB
}

// NewLocalSessionStore создаёт локальное хранилище сессий.
func NewLocalSessionStore(db *bolt.DB) *LocalSessionStore {
	return &LocalSessionStore{db: db}
}

// Save сохраняет строку сессии.
func (s *LocalSessionStore) Save(_ context.Context, session *model.Session) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		table, err := readSessions(tx)
		if err != nil {
			return err
		}
		table[session.ID] = session
		return writeSessions(tx, table)
	})
}

// Get возвращает строку сессии или ErrSessionInvalid.
func (s *LocalSessionStore) Get(_ context.Context, id string) (*model.Session, error) {
	var session *model.Session
	err := s.db.View(func(tx *bolt.Tx) error {
		table, tErr := readSessions(tx)
		if tErr != nil {
			return tErr
		}
		session = table[id]
		return nil
	})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionInvalid
	}
	return session, nil
}

// Delete удаляет строку сессии. Отсутствие строки не ошибка.
func (s *LocalSessionStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		table, err := readSessions(tx)
		if err != nil {
			return err
		}
		if _, ok := table[id]; !ok {
			return nil
		}
		delete(table, id)
		return writeSessions(tx, table)
	})
}

// DeleteExpired удаляет истёкшие строки, возвращает число удалённых.
func (s *LocalSessionStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	swept := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		table, tErr := readSessions(tx)
		if tErr != nil {
			return tErr
		}
		for id, session := range table {
			if session.IsExpired(now) {
				delete(table, id)
				swept++
			}
		}
		if swept == 0 {
			return nil
		}
		return writeSessions(tx, table)
	})
	if err != nil {
		return 0, err
	}
	return swept, nil
}

// readSessions десериализует таблицу сессий внутри транзакции.
func readSessions(tx *bolt.Tx) (map[string]*model.Session, error) {
	data := tx.Bucket([]byte(localstore.BucketName)).Get([]byte(localstore.KeySession))
	if len(data) == 0 {
		return map[string]*model.Session{}, nil
	}

	var table map[string]*model.Session
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("десериализация таблицы сессий: %w", err)
	}
	return table, nil
}

// writeSessions сериализует и записывает таблицу целиком.
func writeSessions(tx *bolt.Tx, table map[string]*model.Session) error {
	data, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("сериализация таблицы сессий: %w", err)
	}
	return tx.Bucket([]byte(localstore.BucketName)).Put([]byte(localstore.KeySession), data)
}

// Проверка реализации интерфейса на этапе компиляции.
var _ SessionStore = (*LocalSessionStore)(nil)
