package migrate

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/SognaneRoot/portfolio-sognane/internal/domain/model"
	"github.com/SognaneRoot/portfolio-sognane/internal/store/localstore"
)

// seedStore создаёт локальное хранилище с готовым набором записей.
func seedStore(t *testing.T, records ...*model.Record) *localstore.LocalStore {
	t.Helper()

	db, err := localstore.Open(filepath.Join(t.TempDir(), "portfolio.db"))
	if err != nil {
		t.Fatalf("ошибка открытия bbolt: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := localstore.SeedRecords(db, records...); err != nil {
		t.Fatalf("ошибка заполнения: %v", err)
	}
	return localstore.New(db, 1024*1024, slog.Default())
}

// TestScan проверяет, что отчёт содержит ровно blob:-записи.
func TestScan(t *testing.T) {
	now := time.Now().UTC()
	s := seedStore(t,
		&model.Record{ID: "fresh", Name: "photo.png",
			ContentRef: "data:image/png;base64,AA==", CreatedAt: now},
		&model.Record{ID: "stale-1", Name: "old_ccna.png",
			ContentRef: "blob:http://localhost/abc-123", CreatedAt: now},
		&model.Record{ID: "stale-2", Name: "old_cv.pdf",
			ContentRef: "blob:http://localhost/def-456", CreatedAt: now},
	)

	report, err := New(s, slog.Default()).Scan(context.Background())
	if err != nil {
		t.Fatalf("ошибка scan: %v", err)
	}

	if report.Total != 3 {
		t.Errorf("total: ожидалось 3, получено %d", report.Total)
	}
	if report.StaleCount() != 2 {
		t.Fatalf("stale: ожидалось 2, получено %d", report.StaleCount())
	}
	want := map[string]bool{"old_ccna.png": true, "old_cv.pdf": true}
	for _, name := range report.Names {
		if !want[name] {
			t.Errorf("имя %q не является legacy-записью", name)
		}
	}
}

// TestScan_Empty проверяет пустой отчёт для пустого хранилища.
func TestScan_Empty(t *testing.T) {
	s := seedStore(t)

	report, err := New(s, slog.Default()).Scan(context.Background())
	if err != nil {
		t.Fatalf("ошибка scan: %v", err)
	}
	if report.Total != 0 || report.StaleCount() != 0 {
		t.Errorf("ожидался пустой отчёт, получено %+v", report)
	}
}

// TestPartition проверяет разбиение с сохранением порядка.
func TestPartition(t *testing.T) {
	records := []*model.Record{
		{ID: "a", ContentRef: "data:image/png;base64,AA=="},
		{ID: "b", ContentRef: "blob:http://localhost/1"},
		{ID: "c", ContentRef: "https://example.supabase.co/storage/v1/object/public/portfolio-files/c.png"},
		{ID: "d", ContentRef: "blob:http://localhost/2"},
	}

	fresh, stale := Partition(records)
	if len(fresh) != 2 || fresh[0].ID != "a" || fresh[1].ID != "c" {
		t.Errorf("fresh: получено %v", ids(fresh))
	}
	if len(stale) != 2 || stale[0].ID != "b" || stale[1].ID != "d" {
		t.Errorf("stale: получено %v", ids(stale))
	}
}

func ids(records []*model.Record) []string {
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.ID)
	}
	return out
}
