package cli

import (
	"github.com/spf13/cobra"

	"coastline/tides"
)

var (
	tidesTable string
	tidesOut   string
	tidesLow   float64
	tidesHigh  float64
)

var tidesCmd = &cobra.Command{
	Use:   "tides",
	Short: "Generate candidate acquisition dates from a tide table",
	Long: `Reads a tide prediction table (datetime,stage) and emits one candidate
date per day whose predicted stage falls inside the tidal window and
inside the study range. The window defaults to the site config and can
be overridden per run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		window := tides.Window{Low: cfg.Tide.WindowLow, High: cfg.Tide.WindowHigh}
		if cmd.Flags().Changed("low") {
			window.Low = tidesLow
		}
		if cmd.Flags().Changed("high") {
			window.High = tidesHigh
		}

		predictions, err := tides.ReadPredictions(tidesTable)
		if err != nil {
			return err
		}

		study, err := studyRange()
		if err != nil {
			return err
		}

		candidates, err := tides.SelectCandidates(predictions, window, study)
		if err != nil {
			return err
		}

		logger.Info("tides", "candidate dates selected", map[string]interface{}{
			"predictions": len(predictions),
			"candidates":  len(candidates),
			"low":         window.Low,
			"high":        window.High,
		})

		return tides.WriteCandidatesCSV(tidesOut, candidates)
	},
}

func init() {
	tidesCmd.Flags().StringVar(&tidesTable, "table", "tides.csv", "tide prediction CSV")
	tidesCmd.Flags().StringVarP(&tidesOut, "out", "o", "acquisition_dates.csv", "output CSV")
	tidesCmd.Flags().Float64Var(&tidesLow, "low", 0, "window low stage (m), overrides config")
	tidesCmd.Flags().Float64Var(&tidesHigh, "high", 0, "window high stage (m), overrides config")
	rootCmd.AddCommand(tidesCmd)
}
