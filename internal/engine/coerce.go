package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coerce приводит сырое значение к типизированному.
//
// Правила для строк:
//   - "" и "null" → nil
//   - "true"/"false" → bool
//   - строка, целиком являющаяся числом → float64
//   - иначе строка без изменений
//
// Если asArray=true, непустая строка оборачивается в [ ] (если ещё не
// обёрнута) и разбирается как JSON. При ошибке разбора возвращается nil
// и ErrArrayParse — это предупреждение, а не ошибка строки.
//
// Уже приведённые значения возвращаются как есть, поэтому повторный
// вызов даёт тот же результат. Исходное значение не изменяется.
func Coerce(value any, asArray bool) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		if asArray {
			return coerceArray(v)
		}
		return coerceString(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, nil
		}
		return v.String(), nil
	default:
		return value, nil
	}
}

func coerceString(s string) any {
	switch s {
	case "", "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if n, ok := parseNumber(s); ok {
		return n
	}
	return s
}

func coerceArray(s string) (any, error) {
	if s == "" || s == "null" {
		return nil, nil
	}

	text := strings.TrimSpace(s)
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		text = "[" + text + "]"
	}

	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrArrayParse, s, err)
	}
	return parsed, nil
}

// parseNumber разбирает строку, целиком являющуюся конечным числом.
func parseNumber(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Stringify возвращает строковую форму типизированного значения
// для подстановки в URL и заголовки.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
