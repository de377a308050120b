package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/feather-lang/vmbench/baseline"
	"github.com/feather-lang/vmbench/harness"
	"github.com/feather-lang/vmbench/internal/config"
	"github.com/feather-lang/vmbench/report"
	"github.com/feather-lang/vmbench/suite"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		saveBaseline string
		compareWith  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Measure every workload on every runtime",
		Long: `Set up each benchmark outside the timed region, warm it up, then record
samples of calibrated batches. The run stops at the first failure.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Decode(a.v)
			if err != nil {
				return err
			}
			return runBenchmarks(cmd.Context(), a.logger, cmd.OutOrStdout(), cfg, runFlags{
				saveBaseline: saveBaseline,
				compareWith:  compareWith,
			})
		},
	}

	flags := cmd.Flags()
	flags.String("filter", "",
		"Go regular expression selecting benchmarks by name, e.g. '^add:'")
	flags.Duration("warm-up", harness.DefaultOptions().WarmUp,
		"Warm-up time per benchmark")
	flags.Int("samples", harness.DefaultOptions().Samples,
		"Samples per benchmark")
	flags.Duration("measurement-time", harness.DefaultOptions().MeasurementTime,
		"Target measurement time per benchmark")
	flags.StringSlice("plan", nil,
		"HTML benchmark plan files or directories overriding options per benchmark")
	flags.String("format", config.FormatText,
		"Output format: text, markdown, json")
	flags.String("chart", "",
		"Write an HTML bar chart to this file")
	flags.String("textfile", "",
		"Write Prometheus textfile metrics to this file")
	flags.String("baseline-dir", ".vmbench",
		"Directory holding saved baselines")
	flags.Float64("threshold", baseline.DefaultThreshold,
		"Change in percent treated as noise when comparing with a baseline")
	flags.StringVar(&saveBaseline, "save-baseline", "",
		"Save the results as a named baseline")
	flags.StringVar(&compareWith, "baseline", "",
		"Compare the results with a named baseline")

	bindFlags(a.v, flags, map[string]string{
		config.KeyFilter:          "filter",
		config.KeyWarmUp:          "warm-up",
		config.KeySamples:         "samples",
		config.KeyMeasurementTime: "measurement-time",
		config.KeyPlan:            "plan",
		config.KeyFormat:          "format",
		config.KeyChart:           "chart",
		config.KeyTextfile:        "textfile",
		config.KeyBaselineDir:     "baseline-dir",
		config.KeyThreshold:       "threshold",
	})

	return cmd
}

type runFlags struct {
	saveBaseline string
	compareWith  string
}

func runBenchmarks(
	ctx context.Context,
	logger *slog.Logger,
	out io.Writer,
	cfg config.Config,
	flags runFlags,
) error {
	selected, err := harness.Select(suite.Benchmarks(), cfg.Options.Filter)
	if err != nil {
		return err
	}

	runner := harness.NewBenchmarkRunner(cfg.Options, logger)
	if len(cfg.Plans) > 0 {
		runner.Plan, err = harness.LoadPlans(cfg.Plans)
		if err != nil {
			return fmt.Errorf("load plan: %w", err)
		}
		logger.Debug("loaded plan",
			slog.String("name", runner.Plan.Name),
			slog.Int("entries", len(runner.Plan.Entries)),
		)
	}

	var reporter *harness.BenchmarkReporter
	if cfg.Format == config.FormatText {
		reporter = harness.NewBenchmarkReporter(out)
		runner.OnResult = reporter.ReportResult
	}

	logger.InfoContext(ctx, "starting run",
		slog.Int("benchmarks", len(selected)),
		slog.Duration("warm_up", cfg.Options.WarmUp),
		slog.Int("samples", cfg.Options.Samples),
		slog.Duration("measurement_time", cfg.Options.MeasurementTime),
		slog.Duration("estimate", cfg.MeasurementBudget(len(selected))),
	)

	start := time.Now()
	results, runErr := runner.RunSuite(ctx, selected)

	switch cfg.Format {
	case config.FormatText:
		// results were reported as they completed
		reporter.ReportSummary(len(results), runErr)
	case config.FormatMarkdown:
		if len(results) > 0 {
			if err := report.Generate(out, results); err != nil {
				return err
			}
		}
	case config.FormatJSON:
		if err := report.GenerateJSON(out, results); err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}
	logger.InfoContext(ctx, "run finished",
		slog.Int("benchmarks", len(results)),
		slog.Duration("elapsed", time.Since(start)),
	)

	if cfg.Chart != "" {
		if err := writeFile(cfg.Chart, func(w io.Writer) error {
			return report.GenerateChart(w, results)
		}); err != nil {
			return err
		}
		logger.Info("wrote chart", slog.String("path", cfg.Chart))
	}

	if cfg.Textfile != "" {
		if err := report.WriteTextfile(cfg.Textfile, results); err != nil {
			return err
		}
		logger.Info("wrote textfile", slog.String("path", cfg.Textfile))
	}

	if flags.compareWith == "" && flags.saveBaseline == "" {
		return nil
	}

	store, err := baseline.NewFileStore(cfg.BaselineDir)
	if err != nil {
		return err
	}
	run := baseline.Run{
		Name:      flags.saveBaseline,
		Timestamp: time.Now().UTC(),
		Options:   cfg.Options,
		Results:   results,
	}

	if flags.compareWith != "" {
		prev, err := store.Load(flags.compareWith)
		if err != nil {
			return err
		}
		comparisons := baseline.Compare(*prev, run, cfg.Threshold)
		fmt.Fprintln(out)
		baseline.Fprint(out, prev.Name, comparisons)
		for _, c := range baseline.Regressions(comparisons) {
			logger.Warn("regression",
				slog.String("benchmark", c.Name),
				slog.Float64("change_pct", c.MeanDiff),
			)
		}
	}

	if flags.saveBaseline != "" {
		if err := store.Save(run); err != nil {
			return fmt.Errorf("save baseline: %w", err)
		}
		logger.Info("saved baseline",
			slog.String("name", run.Name),
			slog.String("dir", store.Dir()),
		)
	}

	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
