package localstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SognaneRoot/portfolio-sognane/internal/domain/model"
	"github.com/SognaneRoot/portfolio-sognane/internal/store"
)

// newTestStore создаёт локальное хранилище во временном файле.
func newTestStore(t *testing.T, quota int64) *LocalStore {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "portfolio.db"))
	if err != nil {
		t.Fatalf("ошибка открытия bbolt: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return New(db, quota, slog.Default())
}

// TestPut_List проверяет, что после записи list содержит ровно
// на одну запись больше с совпадающими name/kind/size.
func TestPut_List(t *testing.T) {
	s := newTestStore(t, 1024*1024)
	ctx := context.Background()

	before, err := s.List(ctx)
	if err != nil {
		t.Fatalf("ошибка list: %v", err)
	}

	content := []byte("%PDF-1.4 test content")
	rec, err := s.Put(ctx, store.PutParams{
		Content:     content,
		Name:        "CV_Ndiaga.pdf",
		ContentType: "application/pdf",
		Kind:        model.KindDocument,
	})
	if err != nil {
		t.Fatalf("ошибка put: %v", err)
	}

	after, err := s.List(ctx)
	if err != nil {
		t.Fatalf("ошибка list: %v", err)
	}
	if len(after) != len(before)+1 {
		t.Fatalf("ожидалось %d записей, получено %d", len(before)+1, len(after))
	}

	if rec.Name != "CV_Ndiaga.pdf" {
		t.Errorf("name: получено %q", rec.Name)
	}
	if rec.Kind != model.KindDocument {
		t.Errorf("kind: получено %q", rec.Kind)
	}
	if rec.SizeBytes != int64(len(content)) {
		t.Errorf("size: ожидалось %d, получено %d", len(content), rec.SizeBytes)
	}
	if rec.ID == "" {
		t.Error("id не присвоен")
	}
}

// TestPut_Get_RoundTrip проверяет, что содержимое восстанавливается
// из ContentRef байт-в-байт.
func TestPut_Get_RoundTrip(t *testing.T) {
	s := newTestStore(t, 1024*1024)
	ctx := context.Background()

	content := []byte{0x89, 0x50, 0x4e, 0x47, 0x00, 0x01, 0x02}
	rec, err := s.Put(ctx, store.PutParams{
		Content:     content,
		Name:        "photo.png",
		ContentType: "image/png",
		Kind:        model.KindImage,
	})
	if err != nil {
		t.Fatalf("ошибка put: %v", err)
	}

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ошибка get: %v", err)
	}
	if got.ContentRef != rec.ContentRef {
		t.Error("ContentRef после round-trip не совпадает")
	}

	// Декодируем data:-payload и сверяем байты
	idx := strings.Index(got.ContentRef, ";base64,")
	if idx < 0 {
		t.Fatalf("некорректная data:-ссылка: %q", got.ContentRef)
	}
	decoded, err := base64.StdEncoding.DecodeString(got.ContentRef[idx+len(";base64,"):])
	if err != nil {
		t.Fatalf("ошибка декодирования payload: %v", err)
	}
	if !bytes.Equal(decoded, content) {
		t.Error("содержимое после round-trip не совпадает")
	}
}

// TestGet_NotFound проверяет store.ErrNotFound для неизвестного id.
func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t, 1024*1024)

	_, err := s.Get(context.Background(), "несуществующий-id")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("ожидался ErrNotFound, получено %v", err)
	}
}

// TestDelete проверяет удаление и ErrNotFound при повторном удалении.
func TestDelete(t *testing.T) {
	s := newTestStore(t, 1024*1024)
	ctx := context.Background()

	rec, err := s.Put(ctx, store.PutParams{
		Content:     []byte("data"),
		Name:        "doc.pdf",
		ContentType: "application/pdf",
		Kind:        model.KindDocument,
	})
	if err != nil {
		t.Fatalf("ошибка put: %v", err)
	}

	if err := s.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("ошибка delete: %v", err)
	}
	if _, err := s.Get(ctx, rec.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("запись не удалена: %v", err)
	}
	if err := s.Delete(ctx, rec.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("ожидался ErrNotFound при повторном удалении, получено %v", err)
	}
}

// TestPut_CapacityExceeded проверяет отказ без частичной записи
// при превышении квоты.
func TestPut_CapacityExceeded(t *testing.T) {
	s := newTestStore(t, 512)
	ctx := context.Background()

	big := bytes.Repeat([]byte("x"), 4096)
	_, err := s.Put(ctx, store.PutParams{
		Content:     big,
		Name:        "big.pdf",
		ContentType: "application/pdf",
		Kind:        model.KindDocument,
	})
	if !errors.Is(err, store.ErrCapacityExceeded) {
		t.Fatalf("ожидался ErrCapacityExceeded, получено %v", err)
	}

	// Частичной записи нет
	records, err := s.List(ctx)
	if err != nil {
		t.Fatalf("ошибка list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("после отказа хранилище должно быть пустым, найдено %d записей", len(records))
	}
}

// TestList_NewestFirst проверяет сортировку по дате создания (новые первыми).
func TestList_NewestFirst(t *testing.T) {
	s := newTestStore(t, 1024*1024)

	// Вставляем записи с контролируемыми датами напрямую
	old := &model.Record{
		ID: "old", Name: "ccna1_old.png", Kind: model.KindImage,
		ContentRef: "data:image/png;base64,AA==",
		CreatedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	recent := &model.Record{
		ID: "new", Name: "ccna1_new.png", Kind: model.KindImage,
		ContentRef: "data:image/png;base64,AA==",
		CreatedAt:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := SeedRecords(s.db, old, recent); err != nil {
		t.Fatalf("ошибка заполнения: %v", err)
	}

	records, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("ошибка list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ожидалось 2 записи, получено %d", len(records))
	}
	if records[0].ID != "new" {
		t.Errorf("первая запись должна быть новейшей, получено %q", records[0].ID)
	}
}
