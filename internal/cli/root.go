package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ppiankov/hazardwatch/internal/policy"
)

var (
	configPath string
	verbose    bool
	logger     = zap.NewNop()
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default ~/.hazardwatch/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

var rootCmd = &cobra.Command{
	Use:   "hazardwatch",
	Short: "Danger probability monitor",
	Long: "Scores categorical observations of a monitored subject into a danger\n" +
		"probability, classifies it as Safe/Caution/High/Critical with fuzzy sets,\n" +
		"and reports on a fixed cadence.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if f := cmd.Flags().Lookup("format"); f != nil {
			if err := validFormat(f.Value.String()); err != nil {
				return err
			}
		}
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadEngine loads --config and builds the engine.
func loadEngine() (*policy.Config, *policy.Engine, string, error) {
	cfg, hash, err := policy.LoadConfigWithHash(configPath)
	if err != nil {
		return nil, nil, "", fmt.Errorf("load config: %w", err)
	}
	engine, err := policy.NewEngine(cfg)
	if err != nil {
		return nil, nil, "", fmt.Errorf("load config: %w", err)
	}
	return cfg, engine, hash, nil
}
