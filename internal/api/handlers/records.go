// records.go — обработчики записей.
// POST/GET /api/v1/records, GET/DELETE /api/v1/records/{id},
// PATCH /api/v1/records/{id}/annotation,
// GET /api/v1/annotations/categories, GET /api/v1/annotations/tags.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/SognaneRoot/portfolio-sognane/internal/api/errors"
	"github.com/SognaneRoot/portfolio-sognane/internal/domain/model"
	"github.com/SognaneRoot/portfolio-sognane/internal/service"
	"github.com/SognaneRoot/portfolio-sognane/internal/store"
)

// multipartMemoryLimit — лимит памяти разбора multipart-формы.
const multipartMemoryLimit = 32 << 20

// CreateRecord — реализация POST /api/v1/records.
// Принимает multipart-форму с полем file.
func (h *APIHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		apierrors.ValidationError(w, "Некорректная multipart-форма")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Поле file отсутствует")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Ошибка чтения загружаемого файла", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка чтения загружаемого файла")
		return
	}

	rec, opErr := h.records.Upload(r.Context(), service.UploadParams{
		Content:     content,
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	})
	if opErr != nil {
		apierrors.WriteError(w, opErr.StatusCode, opErr.Code, opErr.Message)
		return
	}

	// Необязательные поля аннотации в той же форме. Запись уже
	// сохранена, поэтому ошибка аннотации не отменяет загрузку.
	ann := model.Annotation{
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Tags:        parseTags(r.FormValue("tags")),
		RoleLink:    r.FormValue("role_link"),
	}
	if !ann.IsZero() {
		if err := h.records.Annotate(r.Context(), rec.ID, ann); err != nil {
			h.logger.Warn("Аннотация при загрузке не сохранена",
				slog.String("record_id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	writeJSON(w, http.StatusCreated, rec)
}

// parseTags разбирает список тегов из строки с запятыми,
// убирая пробелы, пустые элементы и дубликаты.
func parseTags(value string) []string {
	if value == "" {
		return nil
	}
	var tags []string
	seen := map[string]struct{}{}
	for _, tag := range strings.Split(value, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// ListRecords — реализация GET /api/v1/records.
// Параметры: q — поисковая подстрока, kind — фильтр по типу.
func (h *APIHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	filter := service.ListFilter{Query: r.URL.Query().Get("q")}

	if kind := r.URL.Query().Get("kind"); kind != "" {
		switch model.Kind(kind) {
		case model.KindImage, model.KindDocument, model.KindOther:
			filter.Kind = model.Kind(kind)
		default:
			apierrors.ValidationError(w, "Недопустимое значение kind")
			return
		}
	}

	records, err := h.records.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("Ошибка получения списка записей", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка при получении списка")
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// GetRecord — реализация GET /api/v1/records/{id}.
func (h *APIHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.records.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apierrors.NotFound(w, "Запись не найдена")
			return
		}
		h.logger.Error("Ошибка получения записи",
			slog.String("record_id", id),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при получении записи")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// DeleteRecord — реализация DELETE /api/v1/records/{id}.
func (h *APIHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.records.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apierrors.NotFound(w, "Запись не найдена")
			return
		}
		var depErr *store.DependentStepError
		if errors.As(err, &depErr) {
			apierrors.DependentStep(w, "Удаление завершилось частично, осталась висящая строка метаданных")
			return
		}
		h.logger.Error("Ошибка удаления записи",
			slog.String("record_id", id),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при удалении записи")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateAnnotation — реализация PATCH /api/v1/records/{id}/annotation.
func (h *APIHandler) UpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var ann model.Annotation
	if err := json.NewDecoder(r.Body).Decode(&ann); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	if err := h.records.Annotate(r.Context(), id, ann); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apierrors.NotFound(w, "Запись не найдена")
			return
		}
		h.logger.Error("Ошибка обновления аннотации",
			slog.String("record_id", id),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при обновлении аннотации")
		return
	}

	writeJSON(w, http.StatusOK, ann)
}

// ListCategories — реализация GET /api/v1/annotations/categories.
func (h *APIHandler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	categories, err := h.records.Categories()
	if err != nil {
		h.logger.Error("Ошибка получения категорий", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка при получении категорий")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// ListTags — реализация GET /api/v1/annotations/tags.
func (h *APIHandler) ListTags(w http.ResponseWriter, _ *http.Request) {
	tags, err := h.records.Tags()
	if err != nil {
		h.logger.Error("Ошибка получения тегов", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка при получении тегов")
		return
	}
	writeJSON(w, http.StatusOK, tags)
}
