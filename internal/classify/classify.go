// Пакет classify — классификатор ролей: детерминированный выбор записи
// для роли публичного сайта (позиции timeline, CV).
//
// Порядок разрешения:
//  1. явная привязка: аннотация с RoleLink, равным id роли или одному
//     из её псевдонимов (без учёта регистра); новейшая побеждает;
//  2. сканирование по псевдонимам: токены в объявленном порядке (сначала
//     id роли), первый токен с совпадениями по имени останавливает
//     сканирование; среди совпавших новейшая побеждает;
//  3. роль отсутствует.
//
// Сравнение имён — по нормализованной форме (нижний регистр, только
// буквы и цифры), поэтому варианты написания ccna-1 / ccna_1 / CCNA1
// совпадают.
package classify

import (
	"log/slog"
	"strings"

	"github.com/SognaneRoot/portfolio-sognane/internal/domain/model"
)

// RoleCV — специальная роль «резюме»: документ, в имени которого
// встречается cv или resume.
const RoleCV = "cv"

// cvTokens — токены роли RoleCV в порядке сканирования.
var cvTokens = []string{"cv", "resume"}

// Classifier — классификатор ролей с таблицей псевдонимов.
type Classifier struct {
	aliases map[string][]string
	logger  *slog.Logger
}

// New создаёт классификатор с заданной таблицей псевдонимов.
func New(aliases map[string][]string, logger *slog.Logger) *Classifier {
	return &Classifier{
		aliases: aliases,
		logger:  logger.With(slog.String("component", "classify")),
	}
}

// Normalize приводит строку к форме сравнения: нижний регистр,
// только буквы и цифры.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokens возвращает токены роли в порядке сканирования: сначала id
// роли, затем её псевдонимы. Для роли без псевдонимов — только id.
func (c *Classifier) Tokens(roleID string) []string {
	if roleID == RoleCV {
		return cvTokens
	}
	tokens := make([]string, 0, 1+len(c.aliases[roleID]))
	tokens = append(tokens, roleID)
	return append(tokens, c.aliases[roleID]...)
}

// Resolve выбирает запись для роли или nil, если роль отсутствует.
// Вход — записи с аннотациями, новые первыми (порядок хранилища);
// при равных совпадениях побеждает новейшая по CreatedAt.
func (c *Classifier) Resolve(roleID string, records []*model.AnnotatedRecord) *model.AnnotatedRecord {
	if roleID == RoleCV {
		return c.resolveCV(records)
	}

	tokens := c.Tokens(roleID)

	// Явная привязка побеждает сканирование
	if rec := newestMatch(records, func(r *model.AnnotatedRecord) bool {
		if r.Annotation.RoleLink == "" {
			return false
		}
		for _, token := range tokens {
			if strings.EqualFold(r.Annotation.RoleLink, token) {
				return true
			}
		}
		return false
	}); rec != nil {
		c.logger.Debug("Роль разрешена по явной привязке",
			slog.String("role_id", roleID),
			slog.String("record_id", rec.ID),
		)
		return rec
	}

	// Сканирование: первый токен с совпадениями останавливает поиск
	for _, token := range tokens {
		normToken := Normalize(token)
		if normToken == "" {
			continue
		}
		if rec := newestMatch(records, func(r *model.AnnotatedRecord) bool {
			return strings.Contains(Normalize(r.Name), normToken)
		}); rec != nil {
			c.logger.Debug("Роль разрешена сканированием имён",
				slog.String("role_id", roleID),
				slog.String("token", token),
				slog.String("record_id", rec.ID),
			)
			return rec
		}
	}

	return nil
}

// resolveCV выбирает документ для роли «резюме»: среди документов
// новейший, в нормализованном имени которого есть cv или resume.
func (c *Classifier) resolveCV(records []*model.AnnotatedRecord) *model.AnnotatedRecord {
	return newestMatch(records, func(r *model.AnnotatedRecord) bool {
		if r.Kind != model.KindDocument {
			return false
		}
		name := Normalize(r.Name)
		for _, token := range cvTokens {
			if strings.Contains(name, token) {
				return true
			}
		}
		return false
	})
}

// newestMatch возвращает новейшую по CreatedAt запись, удовлетворяющую
// предикату, или nil.
func newestMatch(records []*model.AnnotatedRecord, match func(*model.AnnotatedRecord) bool) *model.AnnotatedRecord {
	var best *model.AnnotatedRecord
	for _, rec := range records {
		if !match(rec) {
			continue
		}
		if best == nil || rec.CreatedAt.After(best.CreatedAt) {
			best = rec
		}
	}
	return best
}
