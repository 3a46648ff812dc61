package steps

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shaiso/Rowpipe/internal/domain"
	"github.com/shaiso/Rowpipe/internal/engine"
)

// ExecutorConfig — зависимости Executor.
type ExecutorConfig struct {
	// Doer — HTTP транспорт (обязателен).
	Doer Doer

	// Extractor — извлечение полей из ответа. nil — создаётся новый.
	Extractor *engine.Extractor

	// EndpointOverride — глобальный шаблон endpoint; полностью заменяет
	// endpoint шагов, если задан.
	EndpointOverride string

	// Headers — заголовки последовательности, добавляемые ко всем запросам.
	Headers map[string]string

	// ArrayFields — поля, значения которых разбираются как массив.
	ArrayFields []string

	// Confirmer — подтверждение каждого запроса. nil — без подтверждения.
	Confirmer Confirmer

	Logger *slog.Logger
}

// Executor выполняет один шаг последовательности для строки.
type Executor struct {
	doer             Doer
	extractor        *engine.Extractor
	endpointOverride string
	headers          map[string]string
	arrayFields      []string
	confirmer        Confirmer
	logger           *slog.Logger
}

// NewExecutor создаёт новый Executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	extractor := cfg.Extractor
	if extractor == nil {
		extractor = engine.NewExtractor()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		doer:             cfg.Doer,
		extractor:        extractor,
		endpointOverride: strings.TrimSpace(cfg.EndpointOverride),
		headers:          cfg.Headers,
		arrayFields:      cfg.ArrayFields,
		confirmer:        cfg.Confirmer,
		logger:           logger,
	}
}

// Input — данные строки для выполнения шага.
type Input struct {
	// Row — строка основной таблицы.
	Row *domain.Row

	// Secondary — строки вторичной таблицы (для шагов с циклом).
	Secondary []*domain.Row

	// Extracted — значения, извлечённые предыдущими шагами. Не изменяется.
	Extracted engine.Values
}

// Output — результат выполнения шага.
type Output struct {
	// Extracted — рабочая копия извлечённых значений с полями этого шага.
	Extracted engine.Values

	// Fields — поля, записанные этим шагом, в порядке записи.
	Fields []engine.Field

	// Calls — число отправленных запросов.
	Calls int

	// Declined — число запросов, отклонённых при подтверждении.
	Declined int

	// Warnings — некритичные предупреждения.
	Warnings []engine.Warning
}

// Execute выполняет шаг: один запрос или по запросу на каждую строку
// вторичной таблицы.
//
// Извлечённые значения пишутся в рабочую копию; входные значения
// не изменяются. Output возвращается и при ошибке (с предупреждениями
// и счётчиками), ошибка имеет тип *StepError.
func (e *Executor) Execute(ctx context.Context, step *domain.RequestStep, in Input) (*Output, error) {
	out := &Output{Extracted: in.Extracted.Clone()}

	if !step.LoopOverSecondary {
		return out, e.call(ctx, step, in.Row, nil, out)
	}

	for _, secondary := range in.Secondary {
		if err := e.call(ctx, step, in.Row, secondary, out); err != nil {
			return out, err
		}
	}
	return out, nil
}

// call выполняет один запрос шага.
func (e *Executor) call(ctx context.Context, step *domain.RequestStep, primary, secondary *domain.Row, out *Output) error {
	if err := ctx.Err(); err != nil {
		return newStepError(step.Name, fmt.Errorf("%w: %v", ErrStepCancelled, err))
	}

	req, warnings, err := e.BuildRequest(step, engine.NewScope(out.Extracted, secondary, primary))
	out.Warnings = append(out.Warnings, warnings...)
	if err != nil {
		return newStepError(step.Name, err)
	}

	logger := e.logger.With("step", step.Name, "method", req.Method, "url", req.URL)
	if secondary != nil {
		logger = logger.With("secondary_row", secondary.Index)
	}

	if e.confirmer != nil {
		ok, err := e.confirmer.Confirm(ctx, fmt.Sprintf("Send %s %s?", req.Method, req.URL))
		if err != nil {
			return newStepError(step.Name, err)
		}
		if !ok {
			logger.Info("request declined")
			out.Declined++
			return nil
		}
	}

	logger.Debug("sending request")

	resp, err := e.doer.Do(ctx, req)
	out.Calls++
	if err != nil {
		return newStepError(step.Name, err)
	}

	if len(step.Extract) > 0 {
		fields, warnings := e.extractor.Extract(resp.Body, step.Extract, out.Extracted)
		out.Fields = append(out.Fields, fields...)
		out.Warnings = append(out.Warnings, warnings...)
	}

	logger.Debug("request completed", "status", resp.StatusCode)
	return nil
}

// BuildRequest подставляет значения в endpoint, заголовки и тело шага.
//
// Ошибка возвращается, только если итоговый endpoint пустой.
func (e *Executor) BuildRequest(step *domain.RequestStep, scope *engine.Scope) (*Request, []engine.Warning, error) {
	scope.WithArrayFields(e.arrayFields)

	var warnings []engine.Warning

	tmpl := step.EndpointTemplate()
	if e.endpointOverride != "" {
		tmpl = e.endpointOverride
	}
	url, w := engine.ResolveURL(tmpl, scope)
	warnings = append(warnings, w...)
	if strings.TrimSpace(url) == "" {
		return nil, warnings, engine.ErrMissingEndpoint
	}

	method, known := NormalizeMethod(step.Method)
	if !known {
		warnings = append(warnings, engine.Warning{
			Kind:    engine.WarnMethod,
			Name:    step.Method,
			Message: "unsupported method, using POST",
		})
	}

	headers, w := engine.ResolveHeaders(mergeHeaders(e.headers, step.Headers), scope)
	warnings = append(warnings, w...)

	req := &Request{
		Method:  method,
		URL:     url,
		Headers: headers,
	}

	if MethodAllowsBody(method) && step.Payload != nil {
		body, w := engine.ResolveValue(step.Payload, scope)
		warnings = append(warnings, w...)
		req.Body = body
		req.HasBody = true
	}

	return req, warnings, nil
}

// mergeHeaders объединяет заголовки; заголовки шага имеют приоритет.
func mergeHeaders(base, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}
