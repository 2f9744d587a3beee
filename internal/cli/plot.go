package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"coastline/plotting"
	"coastline/stats"
)

var (
	plotTransects    string
	plotObservations string
	plotOutDir       string
	plotSeries       bool
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Render rate and time-series figures",
	Long: `Draws the EPR/LRR rate figure over baseline chainage and, optionally,
one shoreline-position time-series figure per transect with the fitted
regression line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable(plotTransects, plotObservations)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(plotOutDir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create output directory %s", plotOutDir)
		}

		movements, err := stats.ComputeMovements(table, logger)
		if err != nil {
			return err
		}
		rates, err := stats.ComputeRates(table, logger)
		if err != nil {
			logger.Warning("plot", "regression rates unavailable", map[string]interface{}{
				"reason": err.Error(),
			})
			rates = nil
		}

		ratesPath := filepath.Join(plotOutDir, "rates.png")
		if err := plotting.SaveRates(table.Transects, movements, rates, ratesPath); err != nil {
			return err
		}

		figures := 1
		if plotSeries {
			rateByID := make(map[string]int, len(rates))
			for i, r := range rates {
				rateByID[r.TransectID] = i
			}

			for _, tr := range table.Transects {
				obs := table.Observations[tr.ID]
				if len(obs) == 0 {
					continue
				}

				var rate stats.Rate
				if i, ok := rateByID[tr.ID]; ok {
					rate = rates[i]
				}

				path := filepath.Join(plotOutDir, fmt.Sprintf("series_%s.png", tr.ID))
				if err := plotting.SaveTimeSeries(tr.ID, obs, rate, path); err != nil {
					return err
				}
				figures++
			}
		}

		logger.Info("plot", "figures rendered", map[string]interface{}{
			"figures": figures,
			"out":     plotOutDir,
		})
		return nil
	},
}

func init() {
	plotCmd.Flags().StringVar(&plotTransects, "transects", "transects.csv", "transect definition CSV")
	plotCmd.Flags().StringVar(&plotObservations, "observations", "observations.csv", "observation CSV")
	plotCmd.Flags().StringVarP(&plotOutDir, "out", "o", "figures", "output directory")
	plotCmd.Flags().BoolVar(&plotSeries, "series", false, "also render per-transect time series")
	rootCmd.AddCommand(plotCmd)
}
