package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/shaiso/Rowpipe/internal/config"
	"github.com/shaiso/Rowpipe/internal/domain"
	"github.com/shaiso/Rowpipe/internal/engine"
	"github.com/shaiso/Rowpipe/internal/failurelog"
	"github.com/shaiso/Rowpipe/internal/mq"
	"github.com/shaiso/Rowpipe/internal/orchestrator"
	"github.com/shaiso/Rowpipe/internal/scheduler"
	"github.com/shaiso/Rowpipe/internal/steps"
	"github.com/shaiso/Rowpipe/internal/table"
	"github.com/shaiso/Rowpipe/internal/telemetry"
)

// runOptions — флаги команды run.
type runOptions struct {
	csvPath       string
	secondaryPath string
	configPath    string
	endpoint      string
	delay         time.Duration
	interactive   bool
	errorLog      string
	dryRun        bool
	cron          string
	every         time.Duration
	maxRuns       int
	metricsAddr   string
	traceFile     string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every CSV row through the request sequence",
		Example: `  rowpipe run --csv users.csv --config requests.yaml
  rowpipe run --csv orders.csv --secondary items.csv --config orders.json --delay 500ms
  rowpipe run --csv users.csv --config requests.yaml --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.csvPath, "csv", "", "Primary CSV file (one request sequence per row)")
	f.StringVar(&opts.secondaryPath, "secondary", "", "Secondary CSV file for loopOverSecondary steps")
	f.StringVar(&opts.configPath, "config", "", "Request sequence file (JSON or YAML)")
	f.StringVar(&opts.endpoint, "endpoint", "", "Endpoint template overriding every step's endpoint")
	f.DurationVar(&opts.delay, "delay", 0, "Pause between rows (overrides batch.delay and delayMs)")
	f.BoolVar(&opts.interactive, "interactive", false, "Confirm each request and each next row")
	f.StringVar(&opts.errorLog, "error-log", "", "Write failed rows to this JSONL file (empty disables the log)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Resolve and print requests without sending them")
	f.StringVar(&opts.cron, "cron", "", "Repeat the batch on a cron schedule until interrupted")
	f.DurationVar(&opts.every, "every", 0, "Repeat the batch at a fixed interval until interrupted")
	f.IntVar(&opts.maxRuns, "max-runs", 0, "Stop a repeated batch after this many runs (0 = unlimited)")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	f.StringVar(&opts.traceFile, "trace-file", "", "Write OpenTelemetry spans to this file")

	cmd.MarkFlagRequired("csv")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagsMutuallyExclusive("cron", "every")

	return cmd
}

// applyFlags переносит явно заданные флаги поверх настроек.
func (o *runOptions) applyFlags(cmd *cobra.Command, s *config.Settings) {
	f := cmd.Flags()

	if f.Changed("delay") {
		s.Batch.Delay = o.delay
	}
	if f.Changed("error-log") {
		if o.errorLog == "" {
			s.FailureLog.Driver = config.DriverNone
		} else {
			s.FailureLog.Driver = config.DriverFile
			s.FailureLog.Path = o.errorLog
		}
	}
	if f.Changed("metrics-addr") {
		s.Metrics.Addr = o.metricsAddr
	}
	if f.Changed("trace-file") {
		s.Trace.File = o.traceFile
	}
	if o.dryRun {
		s.FailureLog.Driver = config.DriverNone
	}
}

// rowDelay выбирает паузу между строками: флаг или настройка, иначе delayMs.
func rowDelay(s *config.Settings, seq *domain.Sequence) time.Duration {
	if s.Batch.Delay > 0 {
		return s.Batch.Delay
	}
	return time.Duration(seq.DelayMs) * time.Millisecond
}

// failureLogName — описание журнала для итогового вывода.
func failureLogName(s config.FailureLogSettings) string {
	switch s.Driver {
	case config.DriverFile:
		return s.Path
	case config.DriverNone, "":
		return ""
	default:
		return s.Driver
	}
}

func runBatch(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	ctx := cmd.Context()
	logger := root.logger
	out := root.output(cmd)

	settings, err := config.Load(root.settingsPath)
	if err != nil {
		return err
	}
	opts.applyFlags(cmd, settings)

	// Ошибки конфигурации фатальны до обработки первой строки
	seq, err := engine.LoadSequence(opts.configPath)
	if err != nil {
		return err
	}
	if err := engine.ValidateForRun(seq, engine.RunOptions{
		EndpointOverride: opts.endpoint,
		HasSecondary:     opts.secondaryPath != "",
	}); err != nil {
		return err
	}

	for _, w := range engine.Lint(seq) {
		out.Warn(w.String())
	}

	var secondary []*domain.Row
	if opts.secondaryPath != "" {
		if _, secondary, err = table.ReadAll(opts.secondaryPath); err != nil {
			return fmt.Errorf("load secondary table: %w", err)
		}
		if !seq.UsesSecondary() {
			out.Warn("secondary table given but no step has loopOverSecondary")
		}
	}

	shutdownTracer, err := telemetry.InitTracer(settings.Trace.File, logger)
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	if settings.Metrics.Addr != "" {
		srv := startMetricsServer(settings.Metrics.Addr, logger)
		defer srv.Shutdown(context.Background())
	}

	sink, err := failurelog.Open(ctx, settings.FailureLog, logger)
	if err != nil {
		return fmt.Errorf("open failure log: %w", err)
	}
	var failureSink orchestrator.FailureSink
	if sink != nil {
		defer sink.Close()
		failureSink = sink
	}

	var doer steps.Doer
	if opts.dryRun {
		doer = steps.NewDryRunDoer(out.progress())
	} else {
		if settings.API.Key == "" {
			logger.Warn("api.key is empty, requests are sent without credentials")
		}
		doer = steps.NewHTTPClient(steps.HTTPClientConfig{
			Timeout:    settings.HTTP.Timeout,
			APIKey:     settings.API.Key,
			AuthHeader: settings.API.Header,
			AuthScheme: settings.API.Scheme,
		})
	}

	var confirmer steps.Confirmer
	if opts.interactive {
		prompter := NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
		defer prompter.Close()
		confirmer = prompter
	}

	executor := steps.NewExecutor(steps.ExecutorConfig{
		Doer:             doer,
		EndpointOverride: opts.endpoint,
		Headers:          seq.Headers,
		ArrayFields:      seq.ArrayFields,
		Confirmer:        confirmer,
		Logger:           logger,
	})

	orch, err := orchestrator.New(orchestrator.Config{
		Sequence:      seq,
		Runner:        executor,
		Secondary:     secondary,
		FailureSink:   failureSink,
		FailureDriver: settings.FailureLog.Driver,
		Reporter:      out,
		Continuer:     confirmer,
		Delay:         rowDelay(settings, seq),
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	publisher, _ := failurelog.BatchPublisher(sink)
	logName := failureLogName(settings.FailureLog)

	job := func(ctx context.Context) error {
		source, err := table.Open(opts.csvPath)
		if err != nil {
			return scheduler.Permanent(err)
		}
		defer source.Close()

		summary, runErr := orch.Run(ctx, source)
		out.Summary(summary, logName)

		if publisher != nil {
			err := publisher.PublishBatchFinished(context.WithoutCancel(ctx), mq.BatchFinishedPayload{
				BatchID:   summary.BatchID,
				Processed: summary.Processed,
				Succeeded: summary.Succeeded,
				Failed:    summary.Failed,
				Halted:    summary.Halted,
			})
			if err != nil {
				logger.Warn("failed to publish batch.finished", "error", err)
			}
		}
		return runErr
	}

	if opts.cron == "" && opts.every == 0 {
		err := job(ctx)
		if errors.Is(err, context.Canceled) {
			out.Success("Interrupted.")
			return nil
		}
		return err
	}

	sched, err := scheduler.New(scheduler.Config{
		Schedule: scheduler.Schedule{Cron: opts.cron, Interval: opts.every},
		Job:      job,
		MaxRuns:  opts.maxRuns,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	return sched.Run(ctx)
}

// startMetricsServer поднимает /metrics и /healthz в фоне.
func startMetricsServer(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()
	return srv
}
