package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tmontague/datafetch/internal/config"
	"github.com/tmontague/datafetch/internal/database"
	"github.com/tmontague/datafetch/internal/derive"
	"github.com/tmontague/datafetch/internal/fetch"
	seclog "github.com/tmontague/datafetch/internal/log"
	"github.com/tmontague/datafetch/internal/model"
	"github.com/tmontague/datafetch/internal/pipeline"
	"github.com/tmontague/datafetch/internal/report"
	"github.com/tmontague/datafetch/internal/storage"
)

// ErrLanesFailed is returned by run --strict when any lane failed.
var ErrLanesFailed = errors.New("one or more lanes failed")

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch every dataset and derive its report",
		Long: `Run fetches the dataset of every lane, writes the raw payload below the
root directory, then derives each lane's report from the file on disk.

Lanes run one after another. A lane that fails is logged and shown in the
run summary; the other lanes still run and the command succeeds unless
--strict is given.

Examples:
  # Run all four lanes into the current directory
  datafetch run

  # Only the CSV and JSON lanes, into ./out
  datafetch run -k csv -k json -r ./out

  # Fetch through a SOCKS5 proxy and print a JSON summary
  datafetch run --proxy 127.0.0.1:1080 --json

  # Fail the command when any lane fails
  datafetch run --strict`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .datafetch.yaml or $XDG_CONFIG_HOME/datafetch/config.yaml)")
	cmd.Flags().StringP("root", "r", "",
		"Directory lane paths are resolved against (default: config file or current directory)")
	cmd.Flags().StringSliceP("kind", "k", nil,
		"Only run these content kinds: "+kindNames()+" (repeatable)")

	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (host:port)")
	cmd.Flags().String("user-agent", "",
		"User-Agent header for requests")

	cmd.Flags().BoolP("json", "j", false,
		"Print the run summary as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the run summary as Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Also write the run summary to this file")

	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")
	cmd.Flags().Bool("strict", false,
		"Exit with an error when any lane fails")
	cmd.Flags().Bool("skip-process", false,
		"Only fetch and write payloads; do not derive reports")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	runReport, err := runPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if err := outputReport(cmd.OutOrStdout(), cfg, runReport); err != nil {
		return fmt.Errorf("failed to write run summary: %w", err)
	}

	if cfg.Strict && runReport.Failed() > 0 {
		return fmt.Errorf("%w: %d of %d", ErrLanesFailed, runReport.Failed(), len(runReport.Lanes))
	}
	return nil
}

// kindNames lists the content kind names in pipeline order.
func kindNames() string {
	kinds := model.AllKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from defaults, the config file and flags,
// in that order.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit --config must exist; the default locations are optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if root, err := flags.GetString("root"); err != nil {
		return nil, err
	} else if root != "" {
		cfg.Root = root
	}

	kinds, err := flags.GetStringSlice("kind")
	if err != nil {
		return nil, err
	}
	for _, name := range kinds {
		kind, err := model.ParseContentKind(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", config.ErrInvalidLaneKind, name)
		}
		cfg.Kinds = append(cfg.Kinds, kind)
	}

	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}

	if proxy, err := flags.GetString("proxy"); err != nil {
		return nil, err
	} else if proxy != "" {
		cfg.ProxyAddress = proxy
	}

	if ua, err := flags.GetString("user-agent"); err != nil {
		return nil, err
	} else if ua != "" {
		cfg.UserAgent = ua
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	if noHistory {
		cfg.SaveHistory = false
	}

	if cfg.Strict, err = flags.GetBool("strict"); err != nil {
		return nil, err
	}
	if cfg.SkipProcess, err = flags.GetBool("skip-process"); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// setupLogger creates the secure structured logger for a run.
// Lane progress is logged at Info, so a run shows it unless quiet; verbose
// adds Debug output.
func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return seclog.NewSecureLoggerWithLevel(w, level)
}

// runPipeline wires the fetcher, writer, processor and history database
// from cfg and runs every selected lane.
func runPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*model.RunReport, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid root %q: %w", cfg.Root, err)
	}

	fetcher, err := fetch.New(
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithProxy(cfg.ProxyAddress),
		fetch.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	store := storage.NewWriter(root)
	processor := derive.NewProcessor(store, derive.WithLogger(logger))

	opts := []pipeline.DriverOption{
		pipeline.WithSkipProcess(cfg.SkipProcess),
		pipeline.WithRoot(root),
		pipeline.WithDriverLogger(logger),
	}

	if cfg.SaveHistory {
		db, err := database.Open(cfg.HistoryDir, database.DefaultOptions())
		if err != nil {
			// History is a side record; the run itself can proceed.
			logger.Warn("run history disabled", "dir", cfg.HistoryDir, "error", err)
		} else {
			defer db.Close()
			opts = append(opts, pipeline.WithRecorder(db))
		}
	}

	driver := pipeline.NewDriver(cfg.SelectedLanes(), fetcher, store, processor, opts...)
	return driver.Run(ctx), nil
}

// outputReport writes the run summary in the requested format to stdout
// and, when a report file is set, to that file as well.
func outputReport(stdout io.Writer, cfg *config.Config, runReport *model.RunReport) error {
	format := report.FormatText
	switch {
	case cfg.JSONReport:
		format = report.FormatJSON
	case cfg.MarkdownReport:
		format = report.FormatMarkdown
	}

	if cfg.ReportFile == "" {
		_, err := report.NewWriter(format, stdout, getVersion(), cfg.Verbose).Write(runReport)
		return err
	}

	var buf bytes.Buffer
	writer := report.NewMultiWriter(
		report.NewWriter(format, stdout, getVersion(), cfg.Verbose),
		report.NewWriter(format, &buf, getVersion(), cfg.Verbose),
	)
	if _, err := writer.Write(runReport); err != nil {
		return err
	}

	if dir := filepath.Dir(cfg.ReportFile); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	// Summaries can contain source URLs; keep them owner-readable.
	if err := os.WriteFile(cfg.ReportFile, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	return nil
}
