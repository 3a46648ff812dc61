package steps

import (
	"context"
	"net/http"
	"strings"
)

// Doer — HTTP транспорт для шагов.
//
// Реализация отправляет запрос и возвращает разобранный ответ.
// Для статуса вне 2xx возвращается *HTTPError.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Confirmer — интерактивное подтверждение перед отправкой запроса.
// Подключается только в интерактивном режиме.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Request — готовый к отправке HTTP запрос (все плейсхолдеры подставлены).
type Request struct {
	// Method — HTTP метод (уже нормализованный).
	Method string

	// URL — итоговый адрес.
	URL string

	// Headers — заголовки запроса.
	Headers map[string]string

	// Body — тело, сериализуется в JSON. Используется, только если HasBody.
	Body any

	// HasBody — отправлять ли тело (false для GET и DELETE).
	HasBody bool
}

// Response — результат HTTP запроса.
type Response struct {
	// StatusCode — HTTP код ответа.
	StatusCode int

	// Headers — заголовки ответа.
	Headers map[string]string

	// Body — разобранный JSON или строка, если тело не JSON. nil для пустого тела.
	Body any
}

// Поддерживаемые HTTP методы.
var supportedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// NormalizeMethod приводит метод к верхнему регистру.
// Пустой или неподдерживаемый метод становится POST; known=false
// для непустого неподдерживаемого значения.
func NormalizeMethod(method string) (normalized string, known bool) {
	m := strings.ToUpper(strings.TrimSpace(method))
	if m == "" {
		return http.MethodPost, true
	}
	if !supportedMethods[m] {
		return http.MethodPost, false
	}
	return m, true
}

// MethodAllowsBody проверяет, можно ли отправлять тело с этим методом.
func MethodAllowsBody(method string) bool {
	return method != http.MethodGet && method != http.MethodDelete
}
