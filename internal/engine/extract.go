package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jmespath/go-jmespath"

	"github.com/shaiso/Rowpipe/internal/domain"
)

// Field — одно записанное извлечённое значение.
type Field struct {
	Name  string
	Value any
}

// Extractor извлекает поля из тела ответа.
//
// Поддерживает два вида путей:
//   - jsonPath: путь через точку ("data.items.0.id"), допускается префикс "$."
//   - expression: JMESPath-выражение
//
// Скомпилированные JMESPath-выражения кэшируются. Потокобезопасен.
type Extractor struct {
	mu    sync.RWMutex
	cache map[string]*jmespath.JMESPath
}

// NewExtractor создаёт новый Extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		cache: make(map[string]*jmespath.JMESPath),
	}
}

// Extract применяет правила извлечения к телу ответа и пишет значения в into.
//
// Правила независимы: ошибка одного не мешает остальным. Если путь не
// найден или промежуточное значение null, поле получает nil и
// возвращается предупреждение.
func (e *Extractor) Extract(body any, specs []domain.ExtractSpec, into Values) ([]Field, []Warning) {
	var (
		fields   []Field
		warnings []Warning
	)

	for _, spec := range specs {
		value, err := e.extractOne(body, spec)
		if err != nil {
			warnings = append(warnings, Warning{
				Kind:    WarnExtraction,
				Name:    spec.Field,
				Message: err.Error(),
			})
			value = nil
		}
		into[spec.Field] = value
		fields = append(fields, Field{Name: spec.Field, Value: value})
	}

	return fields, warnings
}

func (e *Extractor) extractOne(body any, spec domain.ExtractSpec) (any, error) {
	if spec.Expression != "" {
		return e.search(spec.Expression, body)
	}

	path := normalizePath(spec.JSONPath)
	if path == "" {
		return body, nil
	}

	value, ok := walkPath(body, strings.Split(path, "."))
	if !ok {
		return nil, fmt.Errorf("path %q not found in response", spec.JSONPath)
	}
	return value, nil
}

// normalizePath убирает необязательный префикс "$" / "$.".
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "$")
	return strings.TrimPrefix(path, ".")
}

// search выполняет JMESPath-выражение.
func (e *Extractor) search(expression string, body any) (any, error) {
	compiled, err := e.getOrCompile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", expression, err)
	}

	result, err := compiled.Search(body)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate expression %q: %w", expression, err)
	}
	if result == nil {
		return nil, fmt.Errorf("expression %q matched nothing", expression)
	}
	return result, nil
}

// Validate проверяет корректность JMESPath-выражения.
func (e *Extractor) Validate(expression string) error {
	_, err := e.getOrCompile(expression)
	return err
}

func (e *Extractor) getOrCompile(expression string) (*jmespath.JMESPath, error) {
	e.mu.RLock()
	compiled, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	compiled, err := jmespath.Compile(expression)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expression] = compiled
	e.mu.Unlock()

	return compiled, nil
}
