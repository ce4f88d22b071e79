package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-crm/internal/pipeline"
	"github.com/ajitpratap0/nebula-crm/pkg/config"
	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/connector/registry"
	jsonpool "github.com/ajitpratap0/nebula-crm/pkg/json"
	"github.com/ajitpratap0/nebula-crm/pkg/logger"
	"github.com/ajitpratap0/nebula-crm/pkg/observability"
)

func newExtractCmd(v *viper.Viper) *cobra.Command {
	var sourceFile, outputFile string
	var maxRecords int

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Read every record of a source as JSON lines",
		Long: `Read every record of a source and write one JSON document per line.
Output goes to stdout unless --output is set; a .gz or .zst suffix compresses it.

Example:
  nebula-crm extract --source orders.yaml --output orders.jsonl.zst --max-records 1000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			srcCfg, err := loadConfig(sourceFile)
			if err != nil {
				return fmt.Errorf("source configuration error: %w", err)
			}
			if cmd.Flags().Changed("max-records") {
				srcCfg.Paging.MaxRecords = maxRecords
			}

			return withRun(cmd.Context(), v, func(ctx context.Context, log *zap.Logger) error {
				source, err := registry.CreateSource(srcCfg.Type, srcCfg)
				if err != nil {
					return fmt.Errorf("failed to create source connector '%s': %w", srcCfg.Type, err)
				}
				return runExtract(ctx, source, outputFile, cmd.OutOrStdout(), log)
			})
		},
	}

	cmd.Flags().StringVarP(&sourceFile, "source", "s", "", "Path to source configuration file (required)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (.jsonl, .jsonl.gz, .jsonl.zst); stdout when empty")
	cmd.Flags().IntVar(&maxRecords, "max-records", 0, "Stop after this many records (overrides paging.max_records)")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func newSyncCmd(v *viper.Viper) *cobra.Command {
	var sourceFile, destFile string
	var failFast bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy a source into a CRM destination",
		Long: `Copy every record of a source into a CRM destination as create-or-update writes.
Record-level failures are logged and skipped unless --fail-fast is set.

Example:
  nebula-crm sync --source erp-contacts.yaml --destination crm-contacts.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			srcCfg, err := loadConfig(sourceFile)
			if err != nil {
				return fmt.Errorf("source configuration error: %w", err)
			}
			dstCfg, err := loadConfig(destFile)
			if err != nil {
				return fmt.Errorf("destination configuration error: %w", err)
			}
			if cmd.Flags().Changed("fail-fast") {
				dstCfg.Reliability.FailFast = failFast
			}

			return withRun(cmd.Context(), v, func(ctx context.Context, log *zap.Logger) error {
				source, err := registry.CreateSource(srcCfg.Type, srcCfg)
				if err != nil {
					return fmt.Errorf("failed to create source connector '%s': %w", srcCfg.Type, err)
				}
				destination, err := registry.CreateDestination(dstCfg.Type, dstCfg)
				if err != nil {
					_ = source.Close(ctx)
					return fmt.Errorf("failed to create destination connector '%s': %w", dstCfg.Type, err)
				}

				p := pipeline.NewSyncPipeline(source, destination, &pipeline.SyncConfig{
					FailFast: dstCfg.Reliability.FailFast,
				}, log)
				if err := p.Run(ctx); err != nil {
					return fmt.Errorf("sync failed: %w", err)
				}

				m := p.Metrics()
				fmt.Fprintf(cmd.OutOrStdout(), "read=%d created=%d updated=%d skipped=%d failed=%d\n",
					m["read"], m["created"], m["updated"], m["skipped"], m["failed"])
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&sourceFile, "source", "s", "", "Path to source configuration file (required)")
	cmd.Flags().StringVarP(&destFile, "destination", "d", "", "Path to destination configuration file (required)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop at the first failed record (overrides reliability.fail_fast)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("destination")
	return cmd
}

// runExtract streams source into the output at path. The source is closed on
// every path, including when the output cannot be created.
func runExtract(ctx context.Context, source core.Source, path string, stdout io.Writer, log *zap.Logger) error {
	out, err := openOutput(path, stdout)
	if err != nil {
		_ = source.Close(ctx)
		return err
	}
	n, err := pipeline.Extract(ctx, source, jsonpool.NewLinesWriter(out), log)
	if cerr := out.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("extract failed after %d records: %w", n, err)
	}
	return nil
}

// withRun sets up the run context (run id, timeout, signals, tracing) and
// calls fn with it.
func withRun(parent context.Context, v *viper.Viper, fn func(ctx context.Context, log *zap.Logger) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if timeout := v.GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	runID := uuid.New().String()
	ctx = logger.ContextWithRunID(ctx, runID)
	log := logger.WithContext(ctx).With(zap.String("component", "nebula-crm-cli"))
	defer func() { _ = logger.Sync() }()

	if v.GetBool("trace") {
		tc := observability.DefaultTracingConfig()
		tc.ServiceVersion = version
		shutdown, err := observability.InitTracing(tc)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn("failed to flush traces", zap.Error(err))
			}
		}()
	}

	log.Info("run started", zap.String("version", version))
	return fn(ctx, log)
}

// loadConfig reads a connector configuration (YAML or JSON) on top of the
// defaults.
func loadConfig(path string) (*config.BaseConfig, error) {
	cfg, err := config.LoadBase(path)
	if err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Type
	}
	return cfg, nil
}
