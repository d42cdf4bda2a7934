package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"proccount/config"
	"proccount/internal/graph/process"
	"proccount/internal/input/stream"
	"proccount/internal/logger"
	"proccount/internal/metrics"
	"proccount/internal/output/summarytext"
	"proccount/internal/pipeline"
)

const usage = "usage: proccount <audit-log.json>"

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 || args[0] == "" {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	inputPath := args[0]

	cfg, configPath, err := config.Load()
	if err != nil {
		if configPath == "" {
			configPath = os.Getenv(config.EnvConfigPath)
		}
		fmt.Fprintf(stderr, "proccount: load config %s: %v\n", configPath, err)
		return 1
	}

	logCfg := cfg.ProcCount.Logging
	if err := logger.Init(logger.Options{
		Enabled:    logCfg.Enabled,
		Level:      logCfg.Level,
		Format:     logCfg.Format,
		File:       logCfg.File,
		Console:    logCfg.Console,
		MaxSizeMB:  logCfg.MaxSizeMB,
		MaxBackups: logCfg.MaxBackups,
		MaxAgeDays: logCfg.MaxAgeDays,
		Fields:     map[string]string{"run_id": uuid.NewString()},
		Writer:     stderr,
	}); err != nil {
		fmt.Fprintf(stderr, "proccount: initialize logger: %v\n", err)
		return 1
	}
	defer logger.Close()

	logger.Infof("proccount starting")
	if configPath != "" {
		logger.Infof("Config loaded from: %s", configPath)
	}

	var m *metrics.Metrics
	if cfg.ProcCount.Metrics.Enabled {
		m = metrics.New()
		if err := m.Serve(cfg.ProcCount.Metrics.Listen); err != nil {
			logger.Warnf("Metrics listener disabled: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ProcCount.Metrics.ShutdownTimeout)
			defer cancel()
			if err := m.Close(ctx); err != nil {
				logger.Errorf("Error closing metrics listener: %v", err)
			}
		}()
	}

	reader, err := stream.Open(inputPath, stream.Config{
		Compression: cfg.ProcCount.Input.Compression,
		BufferSize:  cfg.ProcCount.Input.BufferSize,
	})
	if err != nil {
		logger.Errorf("Failed to open input: %v", err)
		fmt.Fprintf(stderr, "proccount: %v\n", err)
		return 1
	}
	defer reader.Close()

	start := time.Now()
	pipe := pipeline.NewStreamPipeline(
		reader,
		process.NewCounter(),
		summarytext.NewWriter(stdout),
		pipeline.Options{
			ProgressEvery: cfg.ProcCount.Input.ProgressEvery,
			Metrics:       m,
		},
	)
	if _, err := pipe.Run(); err != nil {
		logger.Errorf("Run failed after %s: %v", logger.Since(start), err)
		fmt.Fprintf(stderr, "proccount: %s: %v\n", inputPath, err)
		return 1
	}

	logger.Infof("proccount stopped")
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
