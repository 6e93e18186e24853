// Пакет model — доменные модели портфолио-хранилища.
// Record — единая структура записи о загруженном артефакте,
// используется обоими бэкендами (локальным и удалённым).
package model

import (
	"strings"
	"time"
)

// Kind — тип содержимого записи, определяется один раз при загрузке
// из Content-Type и далее не меняется.
type Kind string

const (
	// KindImage — изображения (сертификаты, скриншоты)
	KindImage Kind = "image"
	// KindDocument — документы (CV, отчёты по проектам, PDF)
	KindDocument Kind = "document"
	// KindOther — всё остальное
	KindOther Kind = "other"
)

// KindFromContentType определяет Kind по MIME-типу.
// image/* → image; pdf, text и word-документы → document; иначе other.
func KindFromContentType(contentType string) Kind {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	case strings.Contains(ct, "pdf"),
		strings.Contains(ct, "document"),
		strings.Contains(ct, "text"):
		return KindDocument
	default:
		return KindOther
	}
}

// Схемы ссылок на содержимое (ContentRef).
const (
	// RefSchemeData — inline-закодированное содержимое (локальный бэкенд).
	RefSchemeData = "data:"
	// RefSchemeBlob — эфемерный in-process handle (legacy, не переживает рестарт).
	RefSchemeBlob = "blob:"
)

// Record — запись о загруженном артефакте.
// ContentRef — capability-ссылка на байты: data:-payload для локального
// бэкенда или https-URL для удалённого. Владение байтами у Record Store.
type Record struct {
	// ID — уникальный идентификатор записи (UUID v4), неизменен
	ID string `json:"id"`

	// Name — оригинальное имя файла; участвует в эвристической классификации
	Name string `json:"name"`

	// Kind — тип содержимого, вычислен при загрузке, неизменен
	Kind Kind `json:"kind"`

	// SizeBytes — размер содержимого в байтах (информационное поле)
	SizeBytes int64 `json:"size_bytes"`

	// ContentRef — ссылка на содержимое (data:-payload или URL)
	ContentRef string `json:"content_ref"`

	// CreatedAt — дата и время создания (UTC), tie-break по свежести
	CreatedAt time.Time `json:"created_at"`
}

// IsStale проверяет, использует ли запись эфемерную blob:-схему ссылки.
// Такие ссылки действительны только в породившей их сессии и после
// перезагрузки не открываются. Восстановление — только повторная загрузка.
func (r *Record) IsStale() bool {
	return strings.HasPrefix(r.ContentRef, RefSchemeBlob)
}

// Annotation — редактируемое пользователем обогащение записи.
// Хранится отдельно от Record (side table по Record.ID) и мержится
// при чтении. Отсутствующая аннотация эквивалентна пустой.
type Annotation struct {
	// Description — произвольное описание
	Description string `json:"description,omitempty"`

	// Category — одиночная метка, открытый словарь
	Category string `json:"category,omitempty"`

	// Tags — набор тегов; уникальность обеспечивается на входе
	Tags []string `json:"tags,omitempty"`

	// RoleLink — явная привязка к семантической роли (например, id проекта).
	// При разрешении роли имеет приоритет над эвристикой по имени.
	RoleLink string `json:"role_link,omitempty"`
}

// IsZero возвращает true, если все поля аннотации пусты.
func (a *Annotation) IsZero() bool {
	return a.Description == "" && a.Category == "" && len(a.Tags) == 0 && a.RoleLink == ""
}

// AnnotatedRecord — запись вместе с аннотацией (результат merge).
type AnnotatedRecord struct {
	Record
	Annotation Annotation `json:"annotation"`
}
