package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Rowpipe/internal/domain"
	"github.com/shaiso/Rowpipe/internal/telemetry"
)

// RowSource — источник строк основной таблицы.
// Next возвращает io.EOF, когда строки закончились.
type RowSource interface {
	Columns() []string
	Next() (*domain.Row, error)
}

// FailureSink — журнал ошибок строк (только добавление).
type FailureSink interface {
	Append(ctx context.Context, record domain.FailureRecord) error
}

// Reporter получает итог каждой строки сразу после её завершения.
type Reporter interface {
	RowDone(outcome *domain.RowOutcome)
}

// Summary — итоги обработки пакета.
type Summary struct {
	BatchID   uuid.UUID     `json:"batch_id"`
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Halted    bool          `json:"halted"`
	Duration  time.Duration `json:"duration"`
}

// Run обрабатывает все строки источника по одной.
//
// Пауза и вопрос "продолжать?" выполняются только между строками:
// после завершения строки и перед началом следующей. Упавшая строка
// записывается в журнал ошибок, обработка продолжается со следующей.
//
// Summary возвращается всегда, в том числе вместе с ошибкой чтения
// или отменой контекста. Остановка оператором не считается ошибкой.
func (o *Orchestrator) Run(ctx context.Context, source RowSource) (*Summary, error) {
	summary := &Summary{BatchID: uuid.New()}
	start := time.Now()
	defer func() { summary.Duration = time.Since(start) }()

	logger := telemetry.WithBatchID(o.logger, summary.BatchID.String())
	logger.Info("batch started", "steps", len(o.sequence.Requests), "secondary_rows", len(o.secondary))

	for {
		row, err := source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("read row %d: %w", summary.Processed+1, err)
		}

		if summary.Processed > 0 {
			proceed, err := o.between(ctx, row.Index)
			if err != nil {
				return summary, err
			}
			if !proceed {
				summary.Halted = true
				logger.Info("batch halted by operator", "next_row", row.Index)
				break
			}
		}

		if err := ctx.Err(); err != nil {
			return summary, err
		}

		outcome := o.ProcessRow(ctx, row)
		summary.Processed++
		if outcome.Succeeded() {
			summary.Succeeded++
		} else {
			summary.Failed++
			o.logFailure(ctx, summary.BatchID, outcome)
		}

		if o.reporter != nil {
			o.reporter.RowDone(outcome)
		}
	}

	logger.Info("batch finished",
		"processed", summary.Processed,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"halted", summary.Halted,
	)
	return summary, nil
}

// between выполняется между строками: вопрос оператору и пауза.
func (o *Orchestrator) between(ctx context.Context, nextRow int) (bool, error) {
	if o.continuer != nil {
		ok, err := o.continuer.Confirm(ctx, fmt.Sprintf("Continue with row %d?", nextRow))
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}

	if o.delay <= 0 {
		return true, nil
	}

	timer := time.NewTimer(o.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C:
		return true, nil
	}
}

// logFailure пишет упавшую строку в журнал. Ошибка журнала не
// останавливает пакет.
func (o *Orchestrator) logFailure(ctx context.Context, batchID uuid.UUID, outcome *domain.RowOutcome) {
	if o.sink == nil {
		return
	}

	err := o.sink.Append(ctx, domain.NewFailureRecord(batchID, outcome))
	telemetry.RecordFailureLogged(o.failureDriver, err)
	if err != nil {
		o.logger.Error("failed to write failure record",
			"row", outcome.Row,
			"driver", o.failureDriver,
			"error", err,
		)
	}
}
