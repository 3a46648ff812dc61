package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shaiso/Rowpipe/internal/telemetry"
)

const (
	// Значения по умолчанию.
	defaultHTTPTimeout = 30 * time.Second
	defaultAuthHeader  = "Authorization"
	maxResponseBody    = 10 * 1024 * 1024 // 10 MB
)

// HTTPClientConfig — настройки HTTP транспорта.
type HTTPClientConfig struct {
	// Timeout — таймаут одного запроса. 0 — значение по умолчанию.
	Timeout time.Duration

	// APIKey — ключ API. Пустой — заголовок авторизации не ставится.
	APIKey string

	// AuthHeader — имя заголовка с ключом (по умолчанию Authorization).
	AuthHeader string

	// AuthScheme — префикс значения ("Bearer"). Пустая строка — ключ без префикса.
	AuthScheme string

	// Transport — базовый RoundTripper. nil — http.DefaultTransport.
	Transport http.RoundTripper
}

// HTTPClient — транспорт шагов поверх net/http.
//
// Добавляет к каждому запросу ключ API, сериализует тело в JSON
// и разбирает JSON-ответ. Запросы трассируются через otelhttp
// и учитываются в метриках.
type HTTPClient struct {
	client     *http.Client
	apiKey     string
	authHeader string
	authScheme string
}

// NewHTTPClient создаёт новый HTTPClient.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	header := cfg.AuthHeader
	if header == "" {
		header = defaultAuthHeader
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(base),
		},
		apiKey:     cfg.APIKey,
		authHeader: header,
		authScheme: cfg.AuthScheme,
	}
}

// Do выполняет HTTP запрос.
func (c *HTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrHTTPRequest, err)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		telemetry.RecordHTTPRequest(req.Method, 0, time.Since(start).Seconds())
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", ErrHTTPRequest, err)
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)
	telemetry.RecordHTTPRequest(req.Method, resp.StatusCode, elapsed.Seconds())
	telemetry.FromContext(ctx).Debug("http response",
		"method", req.Method,
		"url", req.URL,
		"status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
	)

	result, err := parseResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       result.Body,
		}
	}

	return result, nil
}

// buildRequest создаёт HTTP запрос.
func (c *HTTPClient) buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var bodyReader io.Reader

	if req.HasBody {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("serialize body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Accept", "application/json")
	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		value := c.apiKey
		if c.authScheme != "" {
			value = c.authScheme + " " + c.apiKey
		}
		httpReq.Header.Set(c.authHeader, value)
	}

	// Заголовки последовательности и шага перекрывают значения по умолчанию
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

// parseResponse читает тело с ограничением размера и разбирает его.
// Тело, не являющееся JSON, возвращается строкой.
func parseResponse(resp *http.Response) (*Response, error) {
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", ErrHTTPRequest, err)
	}

	var body any
	if trimmed := bytes.TrimSpace(bodyBytes); len(trimmed) > 0 {
		contentType := resp.Header.Get("Content-Type")
		if strings.Contains(contentType, "json") || trimmed[0] == '{' || trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &body); err != nil {
				// Если не удалось распарсить JSON, возвращаем как строку
				body = string(bodyBytes)
			}
		} else {
			body = string(bodyBytes)
		}
	}

	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       body,
	}, nil
}
