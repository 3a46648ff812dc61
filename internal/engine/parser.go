package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/shaiso/Rowpipe/internal/domain"
)

// validate — общий валидатор структур конфигурации.
var validate = validator.New(validator.WithRequiredStructEnabled())

// legacyGlobals — общие поля верхнего уровня в одношаговой форме.
type legacyGlobals struct {
	ArrayFields []string `yaml:"arrayFields"`
	DelayMs     int      `yaml:"delayMs"`
}

// LoadSequence читает и разбирает файл последовательности.
func LoadSequence(path string) (*domain.Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request config: %w", err)
	}
	return ParseSequence(data)
}

// ParseSequence разбирает последовательность из YAML или JSON.
//
// Поддерживаются две формы:
//   - {"requests": [...], "headers": {...}, "arrayFields": [...]}
//   - устаревшая одношаговая: поля шага на верхнем уровне, без "requests"
//
// Одношаговая форма приводится к списку из одного элемента.
func ParseSequence(data []byte) (*domain.Sequence, error) {
	data, err := jsonToYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSequence, err)
	}

	var top map[string]any
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSequence, err)
	}
	if len(top) == 0 {
		return nil, ErrEmptySequence
	}

	var seq domain.Sequence
	if _, ok := top["requests"]; ok {
		if err := yaml.Unmarshal(data, &seq); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSequence, err)
		}
	} else {
		var step domain.RequestStep
		if err := yaml.Unmarshal(data, &step); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSequence, err)
		}
		var globals legacyGlobals
		if err := yaml.Unmarshal(data, &globals); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSequence, err)
		}
		seq = domain.Sequence{
			Requests:    []domain.RequestStep{step},
			ArrayFields: globals.ArrayFields,
			DelayMs:     globals.DelayMs,
		}
	}

	normalize(&seq)

	if err := Validate(&seq); err != nil {
		return nil, err
	}
	return &seq, nil
}

// jsonToYAML переводит JSON-документ в YAML через универсальное дерево.
// YAML-парсер не всегда принимает JSON с табуляцией в отступах.
func jsonToYAML(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return data, nil
	}

	var generic any
	if err := json.Unmarshal(trimmed, &generic); err != nil {
		return nil, err
	}
	return yaml.Marshal(generic)
}

// normalize проставляет имена шагов по умолчанию.
func normalize(seq *domain.Sequence) {
	for i := range seq.Requests {
		step := &seq.Requests[i]
		step.Name = strings.TrimSpace(step.DisplayName(i))
		step.Method = strings.ToUpper(strings.TrimSpace(step.Method))
	}
}

// Validate выполняет структурную валидацию последовательности.
//
// Проверяет:
//   - наличие запросов
//   - у каждого правила извлечения есть field и не больше одного пути
//   - JMESPath-выражения компилируются
func Validate(seq *domain.Sequence) error {
	if seq == nil || len(seq.Requests) == 0 {
		return ErrEmptySequence
	}

	if err := validate.Struct(seq); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return NewValidationError("", fe.Namespace(),
				fmt.Sprintf("%s failed %q validation", fe.Namespace(), fe.Tag()), ErrInvalidSequence)
		}
		return fmt.Errorf("%w: %v", ErrInvalidSequence, err)
	}

	extractor := NewExtractor()
	for i := range seq.Requests {
		step := &seq.Requests[i]
		for _, spec := range step.Extract {
			if spec.Expression != "" && spec.JSONPath != "" {
				return NewValidationError(step.Name, "extractFromResponse",
					fmt.Sprintf("field %s: jsonPath and expression are mutually exclusive", spec.Field),
					ErrInvalidSequence)
			}
			if spec.Expression != "" {
				if err := extractor.Validate(spec.Expression); err != nil {
					return NewValidationError(step.Name, "extractFromResponse",
						fmt.Sprintf("field %s: %v", spec.Field, err), ErrInvalidSequence)
				}
			}
		}
	}

	return nil
}

// Lint возвращает замечания к последовательности, которые не мешают
// запуску. Сейчас это только неизвестные операторы условий.
func Lint(seq *domain.Sequence) []Warning {
	var warnings []Warning
	for i := range seq.Requests {
		step := &seq.Requests[i]
		if step.Condition == nil || step.Condition.Operator.IsKnown() {
			continue
		}
		warnings = append(warnings, Warning{
			Kind:    WarnCondition,
			Name:    string(step.Condition.Operator),
			Message: fmt.Sprintf("unknown operator in request %q condition, step will always run", step.Name),
		})
	}
	return warnings
}

// RunOptions — параметры запуска, влияющие на валидность конфигурации.
type RunOptions struct {
	// EndpointOverride — глобальный шаблон endpoint из командной строки.
	EndpointOverride string

	// HasSecondary — задана ли вторичная таблица.
	HasSecondary bool
}

// ValidateForRun проверяет, что последовательность можно выполнить
// с заданными параметрами. Вызывается до обработки первой строки.
func ValidateForRun(seq *domain.Sequence, opts RunOptions) error {
	if err := Validate(seq); err != nil {
		return err
	}

	for i := range seq.Requests {
		step := &seq.Requests[i]

		if strings.TrimSpace(opts.EndpointOverride) == "" && strings.TrimSpace(step.EndpointTemplate()) == "" {
			return NewValidationError(step.Name, "endpoint",
				"endpoint is required when no --endpoint override is given", ErrMissingEndpoint)
		}

		if step.LoopOverSecondary && !opts.HasSecondary {
			return NewValidationError(step.Name, "loopOverSecondary",
				"secondary table is required", ErrSecondaryRequired)
		}
	}

	return nil
}
