package engine

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Rowpipe/internal/domain"
)

// Значения по умолчанию для сгенерированного шаблона.
const (
	scaffoldEndpoint     = "https://api.example.com/records"
	scaffoldLoopEndpoint = "https://api.example.com/records/$recordId/items"
	scaffoldIDField      = "recordId"
)

// Scaffold строит шаблон последовательности по заголовкам таблиц.
//
// Первый шаг отправляет все колонки основной таблицы как $column.
// Если переданы колонки вторичной таблицы, добавляется второй шаг
// с циклом по вторичной таблице, использующий id из ответа первого.
func Scaffold(columns []string, secondaryColumns []string) *domain.Sequence {
	seq := &domain.Sequence{
		Headers: map[string]string{"Content-Type": "application/json"},
	}

	first := domain.RequestStep{
		Name:     "Create record",
		Method:   "POST",
		Endpoint: scaffoldEndpoint,
		Payload:  placeholderPayload(columns),
	}

	if len(secondaryColumns) > 0 {
		first.Extract = domain.ExtractSpecs{{Field: scaffoldIDField, JSONPath: "id"}}
		seq.Requests = append(seq.Requests, first, domain.RequestStep{
			Name:              "Create items",
			Method:            "POST",
			Endpoint:          scaffoldLoopEndpoint,
			Payload:           placeholderPayload(secondaryColumns),
			LoopOverSecondary: true,
		})
		return seq
	}

	seq.Requests = append(seq.Requests, first)
	return seq
}

func placeholderPayload(columns []string) map[string]any {
	payload := make(map[string]any, len(columns))
	for _, col := range columns {
		name := strings.TrimSpace(col)
		if name == "" {
			continue
		}
		payload[name] = "$" + name
	}
	return payload
}

// MarshalSequence сериализует последовательность в формат по расширению
// файла: .yaml/.yml — YAML, иначе JSON с отступами.
func MarshalSequence(seq *domain.Sequence, path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := yaml.Marshal(seq)
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return data, nil
	default:
		data, err := json.MarshalIndent(seq, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal json: %w", err)
		}
		return append(data, '\n'), nil
	}
}
