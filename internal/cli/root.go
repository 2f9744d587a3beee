// Package cli wires the analysis pipeline into subcommands. Each
// command reads the previous stage's file output, so a study runs as
// extract, rmse, movement, rates, matrix, plot in sequence.
package cli

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"coastline/internal/config"
	"coastline/internal/logging"
)

var (
	cfgPath string
	verbose bool

	cfg    config.SiteConfig
	logger logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "coastline",
	Short: "Shoreline extraction and change statistics",
	Long: `coastline extracts water/land masks and shoreline vectors from
satellite scenes, then computes the standard shoreline-change
statistics (RMSE, NSM, EPR, LRR) over transect tables and compiles
them into summary matrices.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.LoadEnv()

		level := logging.LevelFromEnv()
		if verbose {
			level = zerolog.DebugLevel
		}
		logger = logging.NewConsoleLogger(level)

		if cfgPath == "" {
			cfg = config.Defaults()
			return nil
		}

		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}

		logger.Debug("cli", "site config loaded", map[string]interface{}{
			"path": cfgPath,
			"site": cfg.Name,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "site config file (JSON5)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command under a cancellable context, so
// long extractions stop on SIGINT.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
