package engine

import (
	"strconv"
	"strings"

	"github.com/shaiso/Rowpipe/internal/domain"
)

// Values — значения, извлечённые из ответов в рамках одной строки.
type Values map[string]any

// Clone возвращает поверхностную копию.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Scope — контекст подстановки плейсхолдеров.
//
// Порядок поиска имени:
//  1. извлечённые значения (вложенный путь $a.b.c, затем плоское имя)
//  2. строки таблиц в порядке передачи (вторичная строка, затем основная)
//
// Если имя не найдено ни в одном слое, Lookup возвращает found=false.
type Scope struct {
	extracted   Values
	rows        []*domain.Row
	arrayFields map[string]bool
}

// NewScope создаёт контекст. rows перечисляются в порядке приоритета.
func NewScope(extracted Values, rows ...*domain.Row) *Scope {
	if extracted == nil {
		extracted = make(Values)
	}
	filtered := make([]*domain.Row, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			filtered = append(filtered, r)
		}
	}
	return &Scope{
		extracted:   extracted,
		rows:        filtered,
		arrayFields: make(map[string]bool),
	}
}

// WithArrayFields помечает поля, значения которых разбираются как массив.
func (s *Scope) WithArrayFields(fields []string) *Scope {
	for _, f := range fields {
		s.arrayFields[f] = true
	}
	return s
}

// Lookup ищет значение по имени (без "$").
//
// Возвращаемая ошибка — некритичная проблема приведения (ErrArrayParse);
// значение в этом случае nil, found=true.
func (s *Scope) Lookup(name string) (value any, found bool, err error) {
	// 1. Вложенный путь по извлечённым значениям
	if strings.Contains(name, ".") {
		parts := strings.Split(name, ".")
		if root, ok := s.extracted[parts[0]]; ok {
			if v, ok := walkPath(root, parts[1:]); ok {
				coerced, err := Coerce(v, s.arrayFields[name])
				return coerced, true, err
			}
		}
	}

	// 2. Плоское имя в извлечённых значениях
	if v, ok := s.extracted[name]; ok {
		coerced, err := Coerce(v, s.arrayFields[name])
		return coerced, true, err
	}

	// 3. Колонки строк
	for _, row := range s.rows {
		if raw, ok := row.Get(name); ok {
			coerced, err := Coerce(raw, s.arrayFields[name])
			return coerced, true, err
		}
	}

	return nil, false, nil
}

// walkPath проходит по вложенной структуре (map и массивы по индексу).
// Возвращает false, если какой-то промежуточный элемент отсутствует или null.
func walkPath(value any, parts []string) (any, bool) {
	current := value
	for _, part := range parts {
		if current == nil {
			return nil, false
		}
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			current = next
		case Values:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}
