package overlay

import (
	"log/slog"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/SognaneRoot/portfolio-sognane/internal/domain/model"
	"github.com/SognaneRoot/portfolio-sognane/internal/store/localstore"
)

func newTestOverlay(t *testing.T) *Overlay {
	t.Helper()

	db, err := localstore.Open(filepath.Join(t.TempDir(), "portfolio.db"))
	if err != nil {
		t.Fatalf("ошибка открытия bbolt: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return New(db, slog.Default())
}

// TestAnnotate_Get проверяет ленивую запись и чтение аннотации.
func TestAnnotate_Get(t *testing.T) {
	o := newTestOverlay(t)

	ann := model.Annotation{
		Description: "Сертификат CCNA, модуль 1",
		Category:    "certificates",
		Tags:        []string{"cisco", "networking"},
		RoleLink:    "cert1",
	}
	if err := o.Annotate("rec-1", ann); err != nil {
		t.Fatalf("ошибка annotate: %v", err)
	}

	got, err := o.Get("rec-1")
	if err != nil {
		t.Fatalf("ошибка get: %v", err)
	}
	if !reflect.DeepEqual(got, ann) {
		t.Errorf("аннотация не совпадает: %+v", got)
	}
}

// TestGet_Missing проверяет, что отсутствующая аннотация — пустая.
func TestGet_Missing(t *testing.T) {
	o := newTestOverlay(t)

	got, err := o.Get("нет-такой")
	if err != nil {
		t.Fatalf("ошибка get: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("ожидалась пустая аннотация, получено %+v", got)
	}
}

// TestAnnotate_ZeroDeletes проверяет, что пустая аннотация удаляет
// элемент таблицы.
func TestAnnotate_ZeroDeletes(t *testing.T) {
	o := newTestOverlay(t)

	if err := o.Annotate("rec-1", model.Annotation{Category: "projects"}); err != nil {
		t.Fatalf("ошибка annotate: %v", err)
	}
	if err := o.Annotate("rec-1", model.Annotation{}); err != nil {
		t.Fatalf("ошибка annotate пустой: %v", err)
	}

	cats, err := o.Categories()
	if err != nil {
		t.Fatalf("ошибка categories: %v", err)
	}
	if len(cats) != 0 {
		t.Errorf("таблица должна быть пуста, категории: %v", cats)
	}
}

// TestDelete проверяет удаление аннотации, в том числе отсутствующей.
func TestDelete(t *testing.T) {
	o := newTestOverlay(t)

	if err := o.Annotate("rec-1", model.Annotation{Category: "projects"}); err != nil {
		t.Fatalf("ошибка annotate: %v", err)
	}
	if err := o.Delete("rec-1"); err != nil {
		t.Fatalf("ошибка delete: %v", err)
	}
	if err := o.Delete("rec-1"); err != nil {
		t.Fatalf("повторное удаление не должно быть ошибкой: %v", err)
	}

	got, err := o.Get("rec-1")
	if err != nil {
		t.Fatalf("ошибка get: %v", err)
	}
	if !got.IsZero() {
		t.Error("аннотация не удалена")
	}
}

// TestMerge проверяет чистое слияние: порядок сохранён, запись без
// аннотации получает пустую.
func TestMerge(t *testing.T) {
	o := newTestOverlay(t)

	if err := o.Annotate("rec-2", model.Annotation{RoleLink: "cert3"}); err != nil {
		t.Fatalf("ошибка annotate: %v", err)
	}

	records := []*model.Record{
		{ID: "rec-1", Name: "a.png", CreatedAt: time.Now()},
		{ID: "rec-2", Name: "b.png", CreatedAt: time.Now()},
	}
	merged, err := o.Merge(records)
	if err != nil {
		t.Fatalf("ошибка merge: %v", err)
	}

	if len(merged) != 2 {
		t.Fatalf("ожидалось 2 элемента, получено %d", len(merged))
	}
	if merged[0].ID != "rec-1" || merged[1].ID != "rec-2" {
		t.Error("порядок записей не сохранён")
	}
	if !merged[0].Annotation.IsZero() {
		t.Error("запись без аннотации должна получить пустую")
	}
	if merged[1].Annotation.RoleLink != "cert3" {
		t.Errorf("RoleLink: получено %q", merged[1].Annotation.RoleLink)
	}
}

// TestCategories_Tags проверяет дедупликацию и сортировку справочников.
func TestCategories_Tags(t *testing.T) {
	o := newTestOverlay(t)

	anns := map[string]model.Annotation{
		"r1": {Category: "certificates", Tags: []string{"cisco", "networking"}},
		"r2": {Category: "projects", Tags: []string{"go", "cisco"}},
		"r3": {Category: "certificates"},
	}
	for id, ann := range anns {
		if err := o.Annotate(id, ann); err != nil {
			t.Fatalf("ошибка annotate: %v", err)
		}
	}

	cats, err := o.Categories()
	if err != nil {
		t.Fatalf("ошибка categories: %v", err)
	}
	if !reflect.DeepEqual(cats, []string{"certificates", "projects"}) {
		t.Errorf("categories: получено %v", cats)
	}

	tags, err := o.Tags()
	if err != nil {
		t.Fatalf("ошибка tags: %v", err)
	}
	if !reflect.DeepEqual(tags, []string{"cisco", "go", "networking"}) {
		t.Errorf("tags: получено %v", tags)
	}
}
