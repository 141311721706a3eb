// Decompd is the task-decomposition daemon.
//
// It serves an HTTP API that previews AI-generated splits of oversized
// tasks into smaller subtasks, holds each proposal behind a
// human-approval gate, and commits approved splits to the task store.
//
// Configuration is loaded from an optional YAML file and environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults (in-memory store, Ollama on localhost)
//	decompd
//
//	# Configure via flags and environment
//	decompd --config ~/.config/decompd/config.yaml
//	SERVER_PORT=9000 STORE_DRIVER=sqlite STORE_PATH=tasks.db decompd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/decompd/internal/ai"
	"github.com/fyrsmithlabs/decompd/internal/config"
	"github.com/fyrsmithlabs/decompd/internal/decompose"
	httpserver "github.com/fyrsmithlabs/decompd/internal/http"
	"github.com/fyrsmithlabs/decompd/internal/logging"
	"github.com/fyrsmithlabs/decompd/internal/suggest"
	"github.com/fyrsmithlabs/decompd/internal/task"
	"github.com/fyrsmithlabs/decompd/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  decompd           Start the decompd daemon\n")
			fmt.Fprintf(os.Stderr, "  decompd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("decompd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires the daemon and blocks until ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logging.Sync(logger)
	}()

	logger.Info("starting decompd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
		zap.String("model", cfg.AI.Model))

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	tasks, err := openTaskStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer tasks.Close()

	generator := ai.NewOllamaClient(ai.Config{
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		Timeout:     cfg.AI.Timeout,
		Temperature: cfg.AI.Temperature,
		TopP:        cfg.AI.TopP,
	})

	proposals := decompose.NewStore(logger)
	go proposals.StartSweeper(ctx, cfg.Decompose.SweepInterval)

	analyzer := decompose.NewAnalyzer(
		decompose.NewGatherer(tasks, logger),
		generator,
		proposals,
		decompose.AnalyzerConfig{
			ProposalTTL:     cfg.Decompose.ProposalTTL,
			GenerateTimeout: cfg.Decompose.GenerateTimeout,
			MaxSiblings:     cfg.Decompose.MaxSiblings,
		},
		logger,
	)
	executor := decompose.NewExecutor(proposals, tasks, logger)
	suggester := suggest.NewService(generator, tasks, logger)

	server, err := httpserver.NewServer(
		&httpserver.Config{Host: cfg.Server.Host, Port: cfg.Server.Port},
		logger, tasks, analyzer, executor, proposals, suggester,
		generator, generator.Model(),
	)
	if err != nil {
		return fmt.Errorf("create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func openTaskStore(cfg config.StoreConfig) (task.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return task.OpenSQLite(cfg.Path)
	default:
		return task.NewMemoryStore(), nil
	}
}
