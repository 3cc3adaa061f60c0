// =============================================================================
// FIV Automation - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every subcommand
// shares the configuration and logger prepared here.
//
// COBRA CLI STRUCTURE:
//   rootCmd (fivtool)
//   ├── fivCmd         (fivtool fiv)
//   ├── settlementCmd  (fivtool settlement)
//   │   ├── sheets
//   │   └── filter
//   ├── serveCmd       (fivtool serve)
//   └── versionCmd     (fivtool version)
//
// CONFIGURATION:
//   Before any subcommand runs, the root command:
//   1. Loads the YAML configuration (defaults when the file is absent)
//   2. Applies FIV_* environment overrides
//   3. Builds the zap logger (--verbose forces debug level)
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/fiv-automation/internal/config"
	"github.com/ginjaninja78/fiv-automation/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// mainConfig and logger are set by PersistentPreRunE.
var (
	mainConfig *config.MainConfig
	logger     *zap.Logger
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fivtool",
	Short: "FIV Automation - Build FIV import files and filter settlement reports",
	Long: `fivtool turns spreadsheet exports into ERP-ready workbooks.

Pipelines:
  - FIV: an e-invoice listing plus the customer reference (KH) list become
    the fixed 32-column FIV import sheet, with customer accounts resolved by
    tax code first and buyer name second.
  - Settlement: a travel-agency settlement report is filtered to a checkout
    date window, keeping rows whose revenue and deducted amounts are positive.

Example Usage:
  fivtool fiv --invoice EAS.xlsx --reference KH.xlsx
  fivtool settlement sheets --file LCB.xlsx
  fivtool settlement filter --file LCB.xlsx --start 2025-08-01 --end 2025-08-07
  fivtool serve --addr :8080`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadMainConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load main config: %w", err)
		}

		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		l, err := logging.New(level, cfg.LogFormat)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		mainConfig, logger = cfg, l
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

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}
