package cli

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"coastline/matrix"
	"coastline/stats"
)

var (
	matrixTransects    string
	matrixObservations string
	matrixOutDir       string
)

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Compile per-transect results into summary matrices",
	Long: `Pivots the observation table into a transect × survey-date distance
matrix, joins the end-point and regression statistics into a
transect × statistic matrix, and aggregates a spatial summary. Writes
distances.csv, statistics.csv and summary.csv to the output
directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable(matrixTransects, matrixObservations)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(matrixOutDir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create output directory %s", matrixOutDir)
		}

		distances, err := matrix.BuildDistances(table)
		if err != nil {
			return err
		}
		if err := distances.WriteDistancesCSV(filepath.Join(matrixOutDir, "distances.csv")); err != nil {
			return err
		}

		movements, err := stats.ComputeMovements(table, logger)
		if err != nil {
			return err
		}
		rates, err := stats.ComputeRates(table, logger)
		if err != nil {
			// Short series still produce the end-point half of the
			// matrix.
			logger.Warning("matrix", "regression rates unavailable", map[string]interface{}{
				"reason": err.Error(),
			})
			rates = nil
		}

		statistics, err := matrix.BuildStatistics(table.Transects, movements, rates)
		if err != nil {
			return err
		}
		if err := statistics.WriteStatisticsCSV(filepath.Join(matrixOutDir, "statistics.csv")); err != nil {
			return err
		}

		summary, err := matrix.Summarize(statistics)
		if err != nil {
			return err
		}
		if err := summary.WriteSummaryCSV(filepath.Join(matrixOutDir, "summary.csv")); err != nil {
			return err
		}

		logger.Info("matrix", "matrices compiled", map[string]interface{}{
			"transects": summary.Transects,
			"eroding":   summary.Eroding,
			"accreting": summary.Accreting,
			"mean_epr":  summary.MeanEPR,
			"out":       matrixOutDir,
		})
		return nil
	},
}

func init() {
	matrixCmd.Flags().StringVar(&matrixTransects, "transects", "transects.csv", "transect definition CSV")
	matrixCmd.Flags().StringVar(&matrixObservations, "observations", "observations.csv", "observation CSV")
	matrixCmd.Flags().StringVarP(&matrixOutDir, "out", "o", "matrix", "output directory")
	rootCmd.AddCommand(matrixCmd)
}
