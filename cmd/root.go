// =============================================================================
// Sales Aggregator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (sales)
//   ├── processCmd (sales process)
//   ├── seriesCmd  (sales series)
//   └── versionCmd (sales version)
//
// CONFIGURATION:
//   Before any subcommand runs, the root command:
//   1. Loads the YAML configuration (or the defaults if config.yaml is absent)
//   2. Applies --source, --output and --product overrides
//   3. Builds the zap logger at the configured level
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"

	"github.com/ginjaninja78/sales-aggregator/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// defaultConfigFile is read when --config is not given. Unlike an explicit
// --config path, it may be absent.
const defaultConfigFile = "config.yaml"

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// Overrides for values in the configuration file.
var (
	sourceOverrides []string
	outputOverride  string
	productOverride string
)

// mainConfig and logger are set up by the root command before any
// subcommand runs.
var (
	mainConfig *config.MainConfig
	logger     *zap.Logger
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sales",
	Short: "Sales Aggregator - Clean daily sales exports into a chartable series",
	Long: `Sales Aggregator reads daily sales exports, keeps the sales of a single
product, computes price x quantity for every sale and produces:

  - A flat sales,date,region CSV artifact
  - A per-date sales series, optionally for one region

Missing source files are skipped with a warning. Rows that cannot be read are
skipped, counted and reported in the run summary.

Example Usage:
  sales process                      # Load all sources and write the artifact
  sales process --dry-run            # Load and report without writing
  sales series --region north        # Print the daily series for one region
  sales process --config ./my.yaml   # Use a custom configuration file`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cfgFile, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		if err := applyOverrides(cfg); err != nil {
			return err
		}

		l, err := newLogger(cfg.LogLevel, verbose)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		mainConfig = cfg
		logger = l
		return nil
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main(). An interrupt
// cancels the running load.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", defaultConfigFile,
		"Path to the configuration file")
	flags.BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
	flags.StringSliceVar(&sourceOverrides, "source", nil,
		"Source file to read (repeatable, replaces the configured sources)")
	flags.StringVar(&outputOverride, "output", "",
		"Path of the output artifact")
	flags.StringVar(&productOverride, "product", "",
		"Product to keep")
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// loadConfig reads the configuration at path. When the path was not given
// explicitly and does not exist the defaults are used.
func loadConfig(path string, explicit bool) (*config.MainConfig, error) {
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
	}

	cfg, err := config.LoadMainConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// applyOverrides applies the command line overrides to cfg and validates
// the result.
func applyOverrides(cfg *config.MainConfig) error {
	if len(sourceOverrides) > 0 {
		cfg.Sources = append([]string(nil), sourceOverrides...)
	}
	if outputOverride != "" {
		cfg.OutputFile = outputOverride
	}
	if productOverride != "" {
		cfg.TargetProduct = productOverride
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// newLogger builds a production zap logger writing to stderr. verbose
// forces the debug level.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()

	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	if verbose {
		atomic = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zcfg.Level = atomic
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	return zcfg.Build()
}
