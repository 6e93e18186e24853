package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/SognaneRoot/portfolio-sognane/internal/domain/model"
	"github.com/SognaneRoot/portfolio-sognane/internal/overlay"
	"github.com/SognaneRoot/portfolio-sognane/internal/store"
	"github.com/SognaneRoot/portfolio-sognane/internal/store/localstore"
)

// memStore — in-memory бэкенд для тестов сервисного слоя.
// Квота считается по сумме SizeBytes, как упрощение локального бэкенда.
type memStore struct {
	mu      sync.Mutex
	records []*model.Record
	quota   int64
	nextID  int
	putErr  error
}

func newMemStore(quota int64) *memStore {
	return &memStore{quota: quota}
}

func (m *memStore) Backend() string { return "local" }

func (m *memStore) Put(_ context.Context, params store.PutParams) (*model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.putErr != nil {
		return nil, m.putErr
	}

	var used int64
	for _, rec := range m.records {
		used += rec.SizeBytes
	}
	if used+int64(len(params.Content)) > m.quota {
		return nil, store.ErrCapacityExceeded
	}

	m.nextID++
	rec := &model.Record{
		ID:         fmt.Sprintf("rec-%d", m.nextID),
		Name:       params.Name,
		Kind:       params.Kind,
		SizeBytes:  int64(len(params.Content)),
		ContentRef: "data:" + params.ContentType + ";base64,QQ==",
		CreatedAt:  time.Now().UTC().Add(time.Duration(m.nextID) * time.Second),
	}
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *memStore) List(_ context.Context) ([]*model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*model.Record, len(m.records))
	copy(out, m.records)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memStore) Get(_ context.Context, id string) (*model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, rec := range m.records {
		if rec.ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// seed добавляет запись как есть.
func (m *memStore) seed(rec *model.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

var _ store.RecordStore = (*memStore)(nil)

// newTestOverlay создаёт таблицу аннотаций во временном bbolt-файле.
func newTestOverlay(t *testing.T) *overlay.Overlay {
	t.Helper()

	db, err := localstore.Open(filepath.Join(t.TempDir(), "portfolio.db"))
	if err != nil {
		t.Fatalf("ошибка открытия bbolt: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return overlay.New(db, slog.Default())
}

// newTestRecordService собирает сервис записей поверх memStore.
func newTestRecordService(t *testing.T, ms *memStore) *RecordService {
	t.Helper()

	ov := newTestOverlay(t)
	cache := NewResolveCache(16, time.Minute)
	recovery := NewRecoveryPolicy(ms, ov, slog.Default())
	return NewRecordService(ms, ov, recovery, cache, 10*1024*1024, slog.Default())
}

// TestUpload проверяет успешную загрузку допустимого файла.
func TestUpload(t *testing.T) {
	s := newTestRecordService(t, newMemStore(1024*1024))

	rec, opErr := s.Upload(context.Background(), UploadParams{
		Content:     []byte("%PDF-1.4"),
		Name:        "CV_Ndiaga.pdf",
		ContentType: "application/pdf",
	})
	if opErr != nil {
		t.Fatalf("ошибка upload: %v", opErr)
	}
	if rec.Kind != model.KindDocument {
		t.Errorf("kind: получено %q", rec.Kind)
	}
}

// TestUpload_UnsupportedType проверяет отказ 415 для типа вне allow-list.
func TestUpload_UnsupportedType(t *testing.T) {
	s := newTestRecordService(t, newMemStore(1024*1024))

	_, opErr := s.Upload(context.Background(), UploadParams{
		Content:     []byte("MZ"),
		Name:        "virus.exe",
		ContentType: "application/x-msdownload",
	})
	if opErr == nil || opErr.StatusCode != 415 {
		t.Fatalf("ожидался отказ 415, получено %+v", opErr)
	}
}

// TestUpload_TooLarge проверяет отказ для файла сверх лимита.
func TestUpload_TooLarge(t *testing.T) {
	ms := newMemStore(1024 * 1024 * 1024)
	ov := newTestOverlay(t)
	s := NewRecordService(ms, ov, nil, NewResolveCache(16, time.Minute), 8, slog.Default())

	_, opErr := s.Upload(context.Background(), UploadParams{
		Content:     []byte("слишком длинное содержимое"),
		Name:        "big.pdf",
		ContentType: "application/pdf",
	})
	if opErr == nil || opErr.StatusCode != 415 {
		t.Fatalf("ожидался отказ 415, получено %+v", opErr)
	}
}

// TestUpload_ContentTypeParams проверяет обрезание параметров MIME-типа.
func TestUpload_ContentTypeParams(t *testing.T) {
	s := newTestRecordService(t, newMemStore(1024*1024))

	_, opErr := s.Upload(context.Background(), UploadParams{
		Content:     []byte("text"),
		Name:        "notes.txt",
		ContentType: "text/plain; charset=utf-8",
	})
	if opErr != nil {
		t.Fatalf("параметры MIME-типа не должны мешать: %v", opErr)
	}
}

// TestUpload_QuotaRecovery проверяет политику освобождения места:
// legacy-записи удаляются, запись повторяется один раз и проходит.
func TestUpload_QuotaRecovery(t *testing.T) {
	ms := newMemStore(100)
	ms.seed(&model.Record{
		ID: "stale-1", Name: "old.png", SizeBytes: 90,
		ContentRef: "blob:http://localhost/abc",
		CreatedAt:  time.Now().UTC(),
	})
	s := newTestRecordService(t, ms)

	rec, opErr := s.Upload(context.Background(), UploadParams{
		Content:     []byte("0123456789012345678901234567890123456789"),
		Name:        "photo.png",
		ContentType: "image/png",
	})
	if opErr != nil {
		t.Fatalf("загрузка после освобождения места должна пройти: %v", opErr)
	}

	records, err := ms.List(context.Background())
	if err != nil {
		t.Fatalf("ошибка list: %v", err)
	}
	if len(records) != 1 || records[0].ID != rec.ID {
		t.Fatalf("legacy-запись должна быть удалена, осталось %d записей", len(records))
	}
}

// TestUpload_QuotaRecovery_NothingToPurge проверяет отказ 507, когда
// все записи свежие: политика не трогает их, повтора нет.
func TestUpload_QuotaRecovery_NothingToPurge(t *testing.T) {
	ms := newMemStore(100)
	ms.seed(&model.Record{
		ID: "fresh-1", Name: "keep.png", SizeBytes: 90,
		ContentRef: "data:image/png;base64,QQ==",
		CreatedAt:  time.Now().UTC(),
	})
	s := newTestRecordService(t, ms)

	_, opErr := s.Upload(context.Background(), UploadParams{
		Content:     []byte("0123456789012345678901234567890123456789"),
		Name:        "photo.png",
		ContentType: "image/png",
	})
	if opErr == nil || opErr.StatusCode != 507 {
		t.Fatalf("ожидался отказ 507, получено %+v", opErr)
	}

	records, err := ms.List(context.Background())
	if err != nil {
		t.Fatalf("ошибка list: %v", err)
	}
	if len(records) != 1 || records[0].ID != "fresh-1" {
		t.Fatal("свежая запись не должна быть удалена")
	}
}

// TestUpload_DependentStep проверяет трансляцию частичного отказа
// удалённого бэкенда в 502.
func TestUpload_DependentStep(t *testing.T) {
	ms := newMemStore(1024)
	ms.putErr = &store.DependentStepError{
		Step:       "metadata-insert",
		ObjectPath: "uploads/123-abcd.png",
		Err:        errors.New("status 500"),
	}
	s := newTestRecordService(t, ms)

	_, opErr := s.Upload(context.Background(), UploadParams{
		Content:     []byte("data"),
		Name:        "photo.png",
		ContentType: "image/png",
	})
	if opErr == nil || opErr.StatusCode != 502 {
		t.Fatalf("ожидался отказ 502, получено %+v", opErr)
	}
}

// TestList_Filter проверяет поиск и фильтр по типу.
func TestList_Filter(t *testing.T) {
	ms := newMemStore(1024 * 1024)
	s := newTestRecordService(t, ms)
	ctx := context.Background()

	for _, f := range []struct {
		name, ct string
	}{
		{"ccna1_certificate.png", "image/png"},
		{"CV_Ndiaga.pdf", "application/pdf"},
		{"notes.txt", "text/plain"},
	} {
		if _, opErr := s.Upload(ctx, UploadParams{
			Content: []byte("x"), Name: f.name, ContentType: f.ct,
		}); opErr != nil {
			t.Fatalf("ошибка upload %s: %v", f.name, opErr)
		}
	}

	images, err := s.List(ctx, ListFilter{Kind: model.KindImage})
	if err != nil {
		t.Fatalf("ошибка list: %v", err)
	}
	if len(images) != 1 || images[0].Name != "ccna1_certificate.png" {
		t.Errorf("фильтр по типу: получено %d записей", len(images))
	}

	found, err := s.List(ctx, ListFilter{Query: "CCNA-1"})
	if err != nil {
		t.Fatalf("ошибка list: %v", err)
	}
	if len(found) != 1 || found[0].Name != "ccna1_certificate.png" {
		t.Errorf("поиск с нормализацией: получено %d записей", len(found))
	}

	all, err := s.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("ошибка list: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("без фильтра: получено %d записей", len(all))
	}
}

// TestDelete_RemovesAnnotation проверяет удаление аннотации вслед
// за записью.
func TestDelete_RemovesAnnotation(t *testing.T) {
	ms := newMemStore(1024 * 1024)
	s := newTestRecordService(t, ms)
	ctx := context.Background()

	rec, opErr := s.Upload(ctx, UploadParams{
		Content: []byte("x"), Name: "a.png", ContentType: "image/png",
	})
	if opErr != nil {
		t.Fatalf("ошибка upload: %v", opErr)
	}
	if err := s.Annotate(ctx, rec.ID, model.Annotation{Category: "certificates"}); err != nil {
		t.Fatalf("ошибка annotate: %v", err)
	}

	if err := s.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("ошибка delete: %v", err)
	}

	cats, err := s.Categories()
	if err != nil {
		t.Fatalf("ошибка categories: %v", err)
	}
	if len(cats) != 0 {
		t.Errorf("аннотация должна быть удалена вместе с записью: %v", cats)
	}
}

// TestAnnotate_NotFound проверяет отказ аннотации несуществующей записи.
func TestAnnotate_NotFound(t *testing.T) {
	s := newTestRecordService(t, newMemStore(1024))

	err := s.Annotate(context.Background(), "нет-такой", model.Annotation{Category: "x"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("ожидался ErrNotFound, получено %v", err)
	}
}
