// Command cc-bench runs an external congestion-control simulator once
// per configured variant, collects the result files it writes, computes
// comparative statistics, and renders comparison charts.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"cc-bench/config"
	"cc-bench/logger"
	"cc-bench/orchestrate"
	"cc-bench/pipeline"
	"cc-bench/storage"
	"cc-bench/visualise"
)

var (
	configPath = flag.String("config", "", "Experiment config file (YAML); defaults to the built-in multi-RTT comparison")
	outputDir  = flag.String("output", "", "Override the configured output directory")
	skipSim    = flag.Bool("skip-sim", false, "Skip simulations and reprocess existing result files")
	noPlots    = flag.Bool("no-plots", false, "Skip chart rendering, produce text summary only")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Error("failed to load config", zap.Error(err))
			return 1
		}
		cfg = loaded
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	logger.Init(&cfg.Log)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		logger.Error("failed to create output directory", zap.Error(err))
		return 1
	}

	var exporter *storage.Exporter
	if cfg.MetricsAddr != "" {
		exporter = storage.NewExporter()
		go func() {
			logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
			if err := exporter.StartServer(cfg.MetricsAddr); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	archive, err := storage.NewArchiveWriter(cfg.OutputDir, 256)
	if err != nil {
		logger.Warn("flow archive disabled", zap.Error(err))
		archive = nil
	}

	paths := orchestrate.Paths{OutputDir: cfg.OutputDir}
	driver := &pipeline.Driver{
		Runner: &orchestrate.Runner{
			Command:  cfg.SimCommand,
			Dir:      cfg.SimRoot,
			Scenario: cfg.Scenario,
			Timeout:  cfg.RunTimeout(),
		},
		Paths:    paths,
		Exporter: exporter,
		Archive:  archive,
		Configs:  cfg.Configurations,
		SkipSim:  *skipSim,
	}
	if !*noPlots {
		driver.Renderer = &visualise.Renderer{Paths: paths}
	}

	rep := driver.Run(ctx)

	var archivePath string
	if archive != nil {
		archivePath = archive.FilePath()
		if err := archive.Close(); err != nil {
			logger.Warn("failed to finalize flow archive", zap.Error(err))
			archivePath = ""
		}
	}

	pipeline.PrintSummary(os.Stdout, rep)

	if cfg.Upload.Bucket != "" {
		uploads := append([]string{}, rep.Artifacts...)
		if archivePath != "" {
			uploads = append(uploads, archivePath)
		}
		publish(ctx, cfg.Upload, uploads)
	}

	if rep.UsableCount() == 0 {
		return 1
	}
	return 0
}

// publish uploads run artifacts to the configured bucket. Upload
// problems are warnings; by this point the run has already succeeded or
// failed on its own terms.
func publish(ctx context.Context, cfg config.UploadConfig, files []string) {
	var (
		store *storage.ObjectStore
		err   error
	)
	if cfg.AccountID != "" {
		store, err = storage.NewR2(ctx, cfg.AccountID,
			os.Getenv("R2_ACCESS_KEY_ID"), os.Getenv("R2_SECRET_ACCESS_KEY"), cfg.Bucket)
	} else {
		store, err = storage.NewS3(ctx, cfg.Region, cfg.Bucket)
	}
	if err != nil {
		logger.Warn("artifact upload unavailable", zap.Error(err))
		return
	}

	for _, f := range files {
		key, uploaded, err := store.UploadFileIfAbsent(ctx, cfg.Prefix, f)
		if err != nil {
			logger.Warn("failed to upload artifact", zap.String("file", f), zap.Error(err))
			continue
		}
		if !uploaded {
			logger.Info("artifact already published", zap.String("key", key))
			continue
		}
		logger.Info("uploaded artifact", zap.String("key", key), zap.String("endpoint", store.Endpoint()))
	}
}
