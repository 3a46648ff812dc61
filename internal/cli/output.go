package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shaiso/Rowpipe/internal/domain"
	"github.com/shaiso/Rowpipe/internal/orchestrator"
)

// Output управляет форматированием вывода CLI.
type Output struct {
	jsonMode bool
	w        io.Writer // stdout для данных
	errW     io.Writer // stderr для сообщений
}

// NewOutput создаёт Output. Если jsonMode=true, итоги выводятся в JSON.
func NewOutput(w, errW io.Writer, jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        w,
		errW:     errW,
	}
}

// Table выводит данные в виде таблицы через tabwriter.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Success выводит сообщение в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Warn выводит предупреждение в stderr.
func (o *Output) Warn(msg string) {
	fmt.Fprintln(o.errW, "Warning: "+msg)
}

// progress — куда писать строки прогресса.
func (o *Output) progress() io.Writer {
	if o.jsonMode {
		return o.errW
	}
	return o.w
}

// RowDone печатает итог строки сразу после её завершения.
func (o *Output) RowDone(outcome *domain.RowOutcome) {
	for _, w := range outcome.Warnings {
		fmt.Fprintf(o.errW, "Row %d warning: %s\n", outcome.Row, w)
	}

	if outcome.Succeeded() {
		fmt.Fprintf(o.progress(), "Row %d ✓ %s\n", outcome.Row, stepsLine(outcome.Steps))
		return
	}

	status := "N/A"
	if outcome.StatusCode != 0 {
		status = strconv.Itoa(outcome.StatusCode)
	}
	fmt.Fprintf(o.progress(), "Row %d ✗ %q failed (%s): %s\n", outcome.Row, outcome.FailedStep, status, outcome.Error)
}

// stepsLine — краткая сводка шагов строки.
func stepsLine(results []domain.StepResult) string {
	var executed, skipped, calls, declined int
	for _, r := range results {
		switch r.Status {
		case domain.StepStatusSkipped:
			skipped++
		default:
			executed++
		}
		calls += r.Calls
		declined += r.Declined
	}

	line := fmt.Sprintf("%d executed, %d skipped, %d requests", executed, skipped, calls)
	if declined > 0 {
		line += fmt.Sprintf(", %d declined", declined)
	}
	return line
}

// summaryJSON — итог пакета для --json.
type summaryJSON struct {
	*orchestrator.Summary
	DurationMs int64  `json:"duration_ms"`
	FailureLog string `json:"failure_log,omitempty"`
}

// Summary выводит итоги пакета. failureLog — описание журнала ошибок
// (пусто, если журнал не ведётся).
func (o *Output) Summary(s *orchestrator.Summary, failureLog string) {
	if o.jsonMode {
		o.JSON(summaryJSON{Summary: s, DurationMs: s.Duration.Milliseconds(), FailureLog: failureLog})
		return
	}

	fmt.Fprintln(o.w)
	o.Table(
		[]string{"BATCH", "PROCESSED", "SUCCEEDED", "FAILED", "DURATION"},
		[][]string{{
			s.BatchID.String(),
			strconv.Itoa(s.Processed),
			strconv.Itoa(s.Succeeded),
			strconv.Itoa(s.Failed),
			s.Duration.Round(time.Millisecond).String(),
		}},
	)

	if s.Halted {
		o.Success("Batch halted by operator.")
	}
	if s.Failed > 0 && failureLog != "" {
		o.Success("Failed rows logged to " + failureLog)
	}
}
