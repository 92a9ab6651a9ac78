// Command i94-etl builds the I-94 immigration star-schema dataset from
// the raw source extracts.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/config"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/pipeline"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/s3stage"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/version"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:          "i94-etl",
		Short:        "Build the I-94 immigration analytics dataset",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "configuration file (json or yaml)")

	root.AddCommand(newRunCommand(&configFile))
	root.AddCommand(newScheduleCommand(&configFile))
	root.AddCommand(newVersionCommand())
	return root
}

func newRunCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(*configFile)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			return runOnce(ctx, cfg, log)
		},
	}
}

func newScheduleCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on the configured cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(*configFile)
			if err != nil {
				return err
			}
			if cfg.Schedule == "" {
				return fmt.Errorf("schedule requires a cron expression in the configuration")
			}

			ctx, stop := signalContext()
			defer stop()

			scheduler := gocron.NewScheduler(time.UTC)
			_, err = scheduler.Cron(cfg.Schedule).Do(func() {
				if err := runOnce(ctx, cfg, log); err != nil {
					log.Error("scheduled run failed", "error", err)
				}
			})
			if err != nil {
				return fmt.Errorf("configuring schedule %q: %w", cfg.Schedule, err)
			}

			log.Info("scheduler started", "cron", cfg.Schedule)
			scheduler.StartAsync()
			<-ctx.Done()
			scheduler.Stop()
			log.Info("scheduler stopped")
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Get().String())
		},
	}
}

func setup(configFile string) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return config.Config{}, nil, err
	}

	level := slog.LevelInfo
	if cfg.VerboseLogging {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, log, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runOnce executes one pipeline run. When S3 staging is enabled the raw
// sources are downloaded to a temporary directory first and the output
// tables are uploaded afterwards.
func runOnce(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	var stage *s3stage.Stage
	if cfg.S3.Enabled {
		var err error
		stage, err = s3stage.New(s3stage.OptRegion(cfg.S3.Region))
		if err != nil {
			return err
		}

		workDir, err := os.MkdirTemp("", "i94-etl-")
		if err != nil {
			return fmt.Errorf("creating staging directory: %w", err)
		}
		defer os.RemoveAll(workDir)

		log.Info("downloading sources",
			"bucket", cfg.S3.SourceBucket, "prefix", cfg.S3.SourcePrefix)
		n, err := stage.DownloadPrefix(ctx, cfg.S3.SourceBucket, cfg.S3.SourcePrefix, workDir)
		if err != nil {
			return err
		}
		log.Info("sources downloaded", "objects", n)

		// Input paths in the configuration are keys below the source
		// prefix when staging is enabled.
		cfg.Inputs.ImmigrationDir = filepath.Join(workDir, cfg.Inputs.ImmigrationDir)
		cfg.Inputs.TemperatureCSV = filepath.Join(workDir, cfg.Inputs.TemperatureCSV)
		cfg.Inputs.DemographicsCSV = filepath.Join(workDir, cfg.Inputs.DemographicsCSV)
		cfg.Inputs.AirportsCSV = filepath.Join(workDir, cfg.Inputs.AirportsCSV)
		cfg.Inputs.SASLabels = filepath.Join(workDir, cfg.Inputs.SASLabels)
		cfg.Output.Dir = filepath.Join(workDir, "output")
	}

	runner := pipeline.NewRunner(cfg, log)
	stats, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	log.Info("pipeline finished", "stats", stats.String())

	if stage != nil {
		log.Info("uploading tables",
			"bucket", cfg.S3.DestBucket, "prefix", cfg.S3.DestPrefix)
		n, err := stage.UploadDir(ctx, cfg.Output.Dir, cfg.S3.DestBucket, cfg.S3.DestPrefix)
		if err != nil {
			return err
		}
		log.Info("tables uploaded", "objects", n)
	}
	return nil
}
