package commands

import (
	"bytes"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/linehawk/linehawk/internal/engine"
	"github.com/linehawk/linehawk/internal/task"
	"github.com/linehawk/linehawk/internal/telemetry"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run throughput benchmarks",
	Long:  "Run hashing and diffing benchmarks through the full engine and report throughput against the scalar baseline",
	RunE:  runBench,
}

var (
	benchDuration  time.Duration
	benchType      string
	benchChunkSize int
)

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().DurationVar(&benchDuration, "duration", 10*time.Second, "Benchmark duration per workload")
	benchCmd.Flags().StringVar(&benchType, "type", "all", "Benchmark type: all, hash, diff, batch")
	benchCmd.Flags().IntVar(&benchChunkSize, "chunk-size", 1<<20, "Payload size per task in bytes")
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
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
	defer eng.Shutdown(30 * time.Second)

	p := eng.Profile()
	fmt.Println("Starting Linehawk Benchmark")
	fmt.Printf("Model: %s\n", p.ModelName)
	fmt.Printf("Cores: %d performance, %d efficiency, %d low-power\n",
		len(p.PerformanceCores), len(p.EfficiencyCores), len(p.LowPowerCores))
	fmt.Printf("Accelerator: %v\n", p.AcceleratorPresent)
	fmt.Printf("Type: %s, Duration: %s, Chunk: %s\n",
		benchType, benchDuration, humanize.IBytes(uint64(benchChunkSize)))

	workloads := []struct {
		name string
		fn   func(*engine.Engine) error
	}{
		{"hash", runHashBench},
		{"diff", runDiffBench},
		{"batch", runBatchBench},
	}
	ran := false
	for _, w := range workloads {
		if benchType != "all" && benchType != w.name {
			continue
		}
		fmt.Printf("\n=== %s ===\n", w.name)
		if err := w.fn(eng); err != nil {
			return err
		}
		ran = true
	}
	if !ran {
		return fmt.Errorf("unknown benchmark type: %s", benchType)
	}

	printBenchReport(eng.Metrics())
	return nil
}

// benchPayload builds a synthetic line-oriented buffer of the requested size.
func benchPayload(size int) []byte {
	line := []byte("the quick brown fox jumps over the lazy dog 0123456789\n")
	return bytes.Repeat(line, size/len(line)+1)[:size]
}

func benchLoop(eng *engine.Engine, submit func() (*task.Handle, error)) error {
	deadline := time.Now().Add(benchDuration)
	inflight := make([]*task.Handle, 0, 256)

	for time.Now().Before(deadline) {
		h, err := submit()
		if err != nil {
			return err
		}
		inflight = append(inflight, h)
		if len(inflight) == cap(inflight) {
			for _, h := range inflight {
				if _, err := h.Wait(time.Minute); err != nil {
					return err
				}
			}
			inflight = inflight[:0]
		}
	}
	for _, h := range inflight {
		if _, err := h.Wait(time.Minute); err != nil {
			return err
		}
	}
	return nil
}

func runHashBench(eng *engine.Engine) error {
	data := benchPayload(benchChunkSize)
	return benchLoop(eng, func() (*task.Handle, error) {
		return eng.SubmitWait(task.NewHash(data), time.Minute)
	})
}

func runDiffBench(eng *engine.Engine) error {
	a := benchPayload(benchChunkSize)
	b := append([]byte(nil), a...)
	for i := 0; i < len(b); i += 4096 {
		b[i] ^= 0x20
	}
	return benchLoop(eng, func() (*task.Handle, error) {
		return eng.SubmitWait(task.NewDiff(a, b), time.Minute)
	})
}

func runBatchBench(eng *engine.Engine) error {
	chunk := benchPayload(benchChunkSize / 16)
	batch := make([][]byte, 16)
	for i := range batch {
		batch[i] = chunk
	}
	return benchLoop(eng, func() (*task.Handle, error) {
		return eng.SubmitWait(task.NewBatchHash(batch), time.Minute)
	})
}

func printBenchReport(m telemetry.Metrics) {
	fmt.Println("\nBenchmark Report:")
	fmt.Printf("  Tasks:          %s\n", humanize.Comma(int64(m.TotalOps)))
	fmt.Printf("  Lines:          %s\n", humanize.Comma(int64(m.TotalLines)))
	fmt.Printf("  Bytes:          %s\n", humanize.IBytes(m.TotalBytes))
	fmt.Printf("  Avg rate:       %s lines/sec\n", humanize.CommafWithDigits(m.AvgLinesPerSec, 0))
	fmt.Printf("  Peak rate:      %s lines/sec\n", humanize.CommafWithDigits(m.PeakLinesPerSec, 0))
	fmt.Printf("  Speedup:        %.2fx vs scalar baseline\n", m.SpeedupVsBaseline)
	fmt.Printf("  Target:         %.1f%%\n", m.TargetAchievementPct)
	fmt.Printf("  Vector ops:     %s\n", humanize.Comma(int64(m.VectorOps)))
	fmt.Printf("  Accel ops:      %s\n", humanize.Comma(int64(m.AcceleratorOps)))
	fmt.Printf("  Fallbacks:      %s\n", humanize.Comma(int64(m.Fallbacks)))
	fmt.Printf("  Steals:         %s\n", humanize.Comma(int64(m.Steals)))
	if m.PeakTemp > 0 {
		fmt.Printf("  Peak temp:      %.1f C (throttling: %v)\n", m.PeakTemp, m.Throttling)
	}
}
