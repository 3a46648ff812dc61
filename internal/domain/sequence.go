package domain

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Sequence — упорядоченный список запросов, выполняемых для каждой строки.
//
// Это "программа" для Rowpipe: загружается один раз перед обработкой
// и дальше только читается.
type Sequence struct {
	// Requests — шаги в порядке выполнения.
	Requests []RequestStep `yaml:"requests" json:"requests" validate:"required,min=1,dive"`

	// Headers — заголовки, добавляемые ко всем запросам.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// ArrayFields — колонки/поля, значения которых трактуются как
	// встроенный массив ("a","b" → ["a","b"]).
	ArrayFields []string `yaml:"arrayFields,omitempty" json:"arrayFields,omitempty"`

	// DelayMs — пауза между строками в миллисекундах.
	DelayMs int `yaml:"delayMs,omitempty" json:"delayMs,omitempty" validate:"gte=0"`
}

// UsesSecondary проверяет, есть ли шаги с циклом по вторичной таблице.
func (s *Sequence) UsesSecondary() bool {
	for i := range s.Requests {
		if s.Requests[i].LoopOverSecondary {
			return true
		}
	}
	return false
}

// RequestStep — один запрос последовательности.
type RequestStep struct {
	// Name — имя шага для логов. По умолчанию "Request N".
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Method — HTTP-метод. Пустой или неизвестный трактуется как POST.
	Method string `yaml:"method,omitempty" json:"method,omitempty"`

	// Endpoint — шаблон URL с токенами $name.
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	// URL — устаревший синоним Endpoint.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`

	// Headers — заголовки шага (шаблоны, как у Endpoint).
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// Payload — шаблон тела запроса. Строковые листья вида "$name"
	// заменяются типизированными значениями.
	Payload any `yaml:"payload,omitempty" json:"payload,omitempty"`

	// Condition — условие выполнения шага. nil — выполнять всегда.
	Condition *Condition `yaml:"condition,omitempty" json:"condition,omitempty"`

	// LoopOverSecondary — повторять запрос для каждой строки вторичной таблицы.
	LoopOverSecondary bool `yaml:"loopOverSecondary,omitempty" json:"loopOverSecondary,omitempty"`

	// Extract — поля, извлекаемые из тела ответа.
	Extract ExtractSpecs `yaml:"extractFromResponse,omitempty" json:"extractFromResponse,omitempty" validate:"dive"`
}

// EndpointTemplate возвращает шаблон URL шага (endpoint имеет приоритет над url).
func (s *RequestStep) EndpointTemplate() string {
	if s.Endpoint != "" {
		return s.Endpoint
	}
	return s.URL
}

// DisplayName возвращает имя шага или позиционную метку.
func (s *RequestStep) DisplayName(index int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("Request %d", index+1)
}

// ExtractSpec — правило извлечения одного поля из ответа.
type ExtractSpec struct {
	// Field — имя, под которым значение попадает в извлечённые значения.
	Field string `yaml:"field" json:"field" validate:"required"`

	// JSONPath — путь через точку ("data.items.0.id"). Пустой — всё тело.
	JSONPath string `yaml:"jsonPath,omitempty" json:"jsonPath,omitempty"`

	// Expression — JMESPath-выражение; используется вместо JSONPath, если задано.
	Expression string `yaml:"expression,omitempty" json:"expression,omitempty"`
}

// ExtractSpecs — одно или несколько правил извлечения.
// В конфиге допускается как объект, так и список объектов.
type ExtractSpecs []ExtractSpec

// UnmarshalYAML принимает одиночный объект или список.
func (e *ExtractSpecs) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		var spec ExtractSpec
		if err := node.Decode(&spec); err != nil {
			return err
		}
		*e = ExtractSpecs{spec}
		return nil
	case yaml.SequenceNode:
		var specs []ExtractSpec
		if err := node.Decode(&specs); err != nil {
			return err
		}
		*e = specs
		return nil
	default:
		return fmt.Errorf("extractFromResponse: expected object or list, got %s", node.Tag)
	}
}
