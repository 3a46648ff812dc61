package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shaiso/Rowpipe/internal/domain"
	"github.com/shaiso/Rowpipe/internal/engine"
	"github.com/shaiso/Rowpipe/internal/steps"
	"github.com/shaiso/Rowpipe/internal/telemetry"
)

// Default configuration values.
const (
	defaultFailureDriver = "none"
)

// StepRunner выполняет один шаг для строки. Реализуется steps.Executor.
type StepRunner interface {
	Execute(ctx context.Context, step *domain.RequestStep, in steps.Input) (*steps.Output, error)
}

// Orchestrator выполняет последовательность запросов для строк таблицы.
//
// Строки обрабатываются строго по одной, шаги строки строго по порядку:
// шаг i+1 может использовать значения, извлечённые шагом i.
type Orchestrator struct {
	sequence  *domain.Sequence
	runner    StepRunner
	secondary []*domain.Row

	// Пакетная обработка
	sink          FailureSink
	failureDriver string
	reporter      Reporter
	continuer     steps.Confirmer
	delay         time.Duration

	logger *slog.Logger
	tracer trace.Tracer
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Sequence — последовательность запросов (обязательна).
	Sequence *domain.Sequence

	// Runner — исполнитель шагов (обязателен).
	Runner StepRunner

	// Secondary — строки вторичной таблицы для шагов с циклом.
	Secondary []*domain.Row

	// FailureSink — журнал ошибок. nil — ошибки не журналируются.
	FailureSink FailureSink

	// FailureDriver — имя драйвера журнала для метрик.
	FailureDriver string

	// Reporter — вывод прогресса. nil — без вывода.
	Reporter Reporter

	// Continuer — вопрос "продолжать?" между строками (интерактивный режим).
	Continuer steps.Confirmer

	// Delay — пауза между строками.
	Delay time.Duration

	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Sequence == nil || len(cfg.Sequence.Requests) == 0 {
		return nil, ErrNoSequence
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	driver := cfg.FailureDriver
	if driver == "" {
		driver = defaultFailureDriver
	}

	return &Orchestrator{
		sequence:      cfg.Sequence,
		runner:        cfg.Runner,
		secondary:     cfg.Secondary,
		sink:          cfg.FailureSink,
		failureDriver: driver,
		reporter:      cfg.Reporter,
		continuer:     cfg.Continuer,
		delay:         cfg.Delay,
		logger:        logger,
		tracer:        telemetry.Tracer(),
	}, nil
}

// ProcessRow выполняет все шаги последовательности для одной строки.
//
// Для каждого шага сначала вычисляется условие; если оно ложно, шаг
// пропускается без вызова исполнителя. Поля, извлечённые шагом,
// становятся видны только следующим шагам. Первая ошибка шага
// переводит строку в FAILED, оставшиеся шаги не выполняются, а
// значения упавшего шага отбрасываются.
func (o *Orchestrator) ProcessRow(ctx context.Context, row *domain.Row) *domain.RowOutcome {
	start := time.Now()

	ctx, span := o.tracer.Start(ctx, "row", trace.WithAttributes(attribute.Int("rowpipe.row", row.Index)))
	defer span.End()

	logger := telemetry.WithRow(o.logger, row.Index)
	ctx = telemetry.WithLogger(ctx, logger)
	outcome := &domain.RowOutcome{Row: row.Index}
	extracted := engine.Values{}

	state := NewRowState(row.Index)
	o.must(logger, state.Start())

	for i := range o.sequence.Requests {
		step := &o.sequence.Requests[i]
		o.must(logger, state.Advance(i))
		stepLogger := telemetry.WithStep(logger, step.Name)

		scope := engine.NewScope(extracted, row).WithArrayFields(o.sequence.ArrayFields)
		execute, warnings := engine.EvaluateCondition(step.Condition, scope)
		o.warn(stepLogger, outcome, step.Name, warnings)

		if !execute {
			stepLogger.Debug("condition not met, step skipped", "condition", step.Condition.String())
			outcome.Steps = append(outcome.Steps, domain.StepResult{Name: step.Name, Status: domain.StepStatusSkipped})
			telemetry.RecordStep(string(domain.StepStatusSkipped))
			continue
		}

		out, err := o.runStep(ctx, step, row, extracted)
		if out != nil {
			o.warn(stepLogger, outcome, step.Name, out.Warnings)
		}

		result := domain.StepResult{Name: step.Name, Status: domain.StepStatusExecuted}
		if out != nil {
			result.Calls = out.Calls
			result.Declined = out.Declined
		}

		if err != nil {
			result.Status = domain.StepStatusFailed
			outcome.Steps = append(outcome.Steps, result)
			telemetry.RecordStep(string(domain.StepStatusFailed))

			o.must(logger, state.Fail(step.Name))
			o.fillFailure(outcome, step.Name, err)
			stepLogger.Warn("step failed", "status_code", outcome.StatusCode, "error", outcome.Error)
			break
		}

		outcome.Steps = append(outcome.Steps, result)
		telemetry.RecordStep(string(domain.StepStatusExecuted))
		extracted = out.Extracted
	}

	if state.Status() == domain.RowStatusRunning {
		o.must(logger, state.Succeed())
	}

	outcome.Status = state.Status()
	outcome.Extracted = extracted
	outcome.Duration = time.Since(start)

	if outcome.Succeeded() {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, outcome.Error)
		span.SetAttributes(attribute.String("rowpipe.failed_step", outcome.FailedStep))
	}
	telemetry.RecordRow(string(outcome.Status), outcome.Duration.Seconds())

	return outcome
}

// runStep выполняет шаг в отдельном спане.
func (o *Orchestrator) runStep(ctx context.Context, step *domain.RequestStep, row *domain.Row, extracted engine.Values) (*steps.Output, error) {
	ctx, span := o.tracer.Start(ctx, "step "+step.Name, trace.WithAttributes(
		attribute.String("rowpipe.step", step.Name),
		attribute.Bool("rowpipe.loop", step.LoopOverSecondary),
	))
	defer span.End()

	in := steps.Input{Row: row, Extracted: extracted}
	if step.LoopOverSecondary {
		in.Secondary = o.secondary
	}

	out, err := o.runner.Execute(ctx, step, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return out, err
}

// fillFailure заполняет поля ошибки в итоге строки.
func (o *Orchestrator) fillFailure(outcome *domain.RowOutcome, stepName string, err error) {
	outcome.FailedStep = stepName

	var stepErr *steps.StepError
	if errors.As(err, &stepErr) {
		outcome.StatusCode = stepErr.StatusCode
		outcome.Error = stepErr.Message()
		return
	}
	outcome.Error = err.Error()
}

// warn пишет предупреждения в лог и в итог строки.
func (o *Orchestrator) warn(logger *slog.Logger, outcome *domain.RowOutcome, stepName string, warnings []engine.Warning) {
	for _, w := range warnings {
		logger.Warn(w.Message, "kind", string(w.Kind), "name", w.Name)
		outcome.Warnings = append(outcome.Warnings, stepName+": "+w.String())
		telemetry.RecordWarning(string(w.Kind))
	}
}

// must логирует нарушение машины состояний. Такие ошибки означают
// баг в оркестраторе, а не в данных строки.
func (o *Orchestrator) must(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("row state machine violated", "error", err)
	}
}
