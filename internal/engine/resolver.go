package engine

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	// wholePlaceholder — строка целиком является токеном "$name".
	wholePlaceholder = regexp.MustCompile(`^\$([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+)*)$`)

	// embeddedPlaceholder — токен "$name" внутри строки (URL, заголовки).
	embeddedPlaceholder = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+)*)`)
)

// PlaceholderName возвращает имя, если s целиком является токеном "$name".
func PlaceholderName(s string) (string, bool) {
	m := wholePlaceholder.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ResolveValue подставляет значения в шаблон тела запроса.
//
// Шаблон не изменяется: map и слайсы копируются, строится новое дерево.
// Заменяются только строковые листья, целиком равные "$name" — они
// получают типизированное значение. Остальные строки не трогаются.
// Ненайденный токен остаётся как есть, по нему возвращается предупреждение.
func ResolveValue(template any, scope *Scope) (any, []Warning) {
	var warnings []Warning
	result := resolveValue(template, scope, &warnings)
	return result, warnings
}

func resolveValue(value any, scope *Scope, warnings *[]Warning) any {
	switch v := value.(type) {
	case string:
		name, ok := PlaceholderName(v)
		if !ok {
			return v
		}
		resolved, found, err := scope.Lookup(name)
		if err != nil {
			*warnings = append(*warnings, Warning{Kind: WarnCoercion, Name: name, Message: err.Error()})
		}
		if !found {
			*warnings = append(*warnings, unresolved(v))
			return v
		}
		return resolved

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = resolveValue(val, scope, warnings)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = resolveValue(val, scope, warnings)
		}
		return result

	case map[string]string:
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = resolveValue(val, scope, warnings)
		}
		return result

	case []string:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = resolveValue(val, scope, warnings)
		}
		return result

	default:
		// Для остальных типов (числа, bool, nil) возвращаем как есть
		return value
	}
}

// ResolveURL подставляет значения в шаблон URL.
//
// Токены ищутся в любом месте строки; "$$name" не считается токеном.
// Значение подставляется в percent-encoded строковой форме.
func ResolveURL(tmpl string, scope *Scope) (string, []Warning) {
	return resolveString(tmpl, scope, encodeComponent)
}

// ResolveText подставляет значения в строку без кодирования (заголовки).
func ResolveText(tmpl string, scope *Scope) (string, []Warning) {
	return resolveString(tmpl, scope, func(s string) string { return s })
}

// ResolveHeaders подставляет значения во все значения заголовков.
func ResolveHeaders(headers map[string]string, scope *Scope) (map[string]string, []Warning) {
	var warnings []Warning
	result := make(map[string]string, len(headers))
	for key, tmpl := range headers {
		val, w := ResolveText(tmpl, scope)
		warnings = append(warnings, w...)
		result[key] = val
	}
	return result, warnings
}

func resolveString(tmpl string, scope *Scope, encode func(string) string) (string, []Warning) {
	if !strings.Contains(tmpl, "$") {
		return tmpl, nil
	}

	var (
		b        strings.Builder
		warnings []Warning
		last     int
	)

	for _, m := range embeddedPlaceholder.FindAllStringSubmatchIndex(tmpl, -1) {
		start, end := m[0], m[1]
		if start > 0 && tmpl[start-1] == '$' {
			continue
		}

		name := tmpl[m[2]:m[3]]
		value, matched, err := lookupLongest(scope, name)
		if err != nil {
			warnings = append(warnings, Warning{Kind: WarnCoercion, Name: matched, Message: err.Error()})
		}

		b.WriteString(tmpl[last:start])
		if matched == "" {
			b.WriteString(tmpl[start:end])
			warnings = append(warnings, unresolved(tmpl[start:end]))
		} else {
			b.WriteString(encode(Stringify(value)))
			// Остаток имени после совпавшего префикса ("$id.json" → ".json")
			b.WriteString(name[len(matched):])
		}
		last = end
	}
	b.WriteString(tmpl[last:])

	return b.String(), warnings
}

// lookupLongest ищет самое длинное разрешимое имя, отбрасывая сегменты
// после точки справа. Укороченное имя принимается, только если его
// значение скалярное: объект или массив означает, что вложенного пути
// нет. Возвращает совпавшее имя или "".
func lookupLongest(scope *Scope, name string) (any, string, error) {
	candidate := name
	for {
		value, found, err := scope.Lookup(candidate)
		if found {
			if candidate != name && isComposite(value) {
				return nil, "", nil
			}
			return value, candidate, err
		}
		idx := strings.LastIndex(candidate, ".")
		if idx < 0 {
			return nil, "", nil
		}
		candidate = candidate[:idx]
	}
}

func isComposite(value any) bool {
	switch value.(type) {
	case map[string]any, Values, []any:
		return true
	default:
		return false
	}
}

// encodeComponent кодирует значение как компонент URL (пробел → %20).
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func unresolved(token string) Warning {
	return Warning{
		Kind:    WarnUnresolved,
		Name:    token,
		Message: "placeholder not found in extracted values or row, left as is",
	}
}
