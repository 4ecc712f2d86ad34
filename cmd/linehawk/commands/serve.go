package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linehawk/linehawk/internal/engine"
	"github.com/linehawk/linehawk/internal/task"
	"github.com/linehawk/linehawk/internal/telemetry"
)

// serveCmd runs the engine as a long-lived process with the Prometheus
// scrape endpoint, draining hash tasks fed through stdin.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine with the metrics endpoint",
	Long: `Start the engine, expose telemetry on the Prometheus scrape endpoint,
and hash every line read from standard input until interrupted.

Examples:
  # Serve with default config
  linehawk serve

  # Serve with a config file and custom metrics address
  linehawk serve --config linehawk.yaml --metrics-addr :9191`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("metrics-addr", "", "Metrics listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		cfg.Metrics.ListenAddr = addr
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	eng, err := engine.New(logger, cfg.Engine, engine.WithThermalConfig(cfg.Thermal))
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	if err := eng.Start(); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	var exporter *telemetry.Exporter
	if cfg.Metrics.Enabled {
		exporter = telemetry.NewExporter(logger, cfg.Metrics, eng.Metrics)
		if err := exporter.Start(); err != nil {
			eng.Shutdown(10 * time.Second)
			return fmt.Errorf("failed to start metrics exporter: %w", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go feedStdin(eng, logger)

	sig := <-sigChan
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	if exporter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := exporter.Stop(ctx); err != nil {
			logger.Error("Error stopping metrics exporter", zap.Error(err))
		}
	}
	if err := eng.Shutdown(10 * time.Second); err != nil {
		logger.Warn("Shutdown incomplete", zap.Error(err))
	}

	m := eng.Metrics()
	logger.Info("Serve finished",
		zap.Uint64("ops", m.TotalOps),
		zap.Uint64("lines", m.TotalLines),
		zap.Uint64("errors", m.TaskErrors),
	)
	return nil
}

// feedChunkBytes is the payload size stdin lines are coalesced into before
// submission, large enough to amortize per-task overhead.
const feedChunkBytes = 256 * 1024

// feedStdin coalesces stdin lines into chunks and submits them as hash
// tasks, printing one digest per chunk. EOF simply stops the feed; the
// engine keeps serving metrics until the process is signalled.
func feedStdin(eng *engine.Engine, logger *zap.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	buf := make([]byte, 0, feedChunkBytes)
	flush := func() {
		if len(buf) == 0 {
			return
		}
		chunk := make([]byte, len(buf))
		copy(chunk, buf)
		buf = buf[:0]

		h, err := eng.SubmitWait(task.NewHash(chunk), 30*time.Second)
		if err != nil {
			logger.Error("Submit failed", zap.Error(err))
			return
		}
		res, err := h.Wait(30 * time.Second)
		if err != nil {
			logger.Error("Task failed", zap.Error(err))
			return
		}
		fmt.Printf("%016x  %d lines  %s\n", res.Hash, res.Lines, res.Backend)
	}

	for scanner.Scan() {
		buf = append(buf, scanner.Bytes()...)
		buf = append(buf, '\n')
		if len(buf) >= feedChunkBytes {
			flush()
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		logger.Error("Stdin read failed", zap.Error(err))
	}
}
