package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linehawk/linehawk/internal/config"
	"github.com/linehawk/linehawk/internal/logging"

	"go.uber.org/zap"
)

const Version = "1.0.0"

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "linehawk",
	Short: "Hardware-aware line hashing and diffing engine",
	Long: `Linehawk is a work-stealing execution engine for line-oriented hashing
and diffing workloads. It pins workers to the host's performance and
efficiency cores, offloads large payloads to an inference accelerator when
one is present, and throttles under thermal pressure.`,
	Version: Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default built-in)")
}

// loadConfig resolves the effective configuration: the file named by --config
// when given, the built-in defaults otherwise.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.Load(cfgFile)
}

// newLogger builds the process logger from the logging section.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
