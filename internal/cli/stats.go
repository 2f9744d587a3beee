package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"coastline/stats"
	"coastline/transect"
)

var (
	rmseTransects string
	rmseInput     string
	rmseOut       string
	rmseResiduals string

	movementTransects    string
	movementObservations string
	movementOut          string

	ratesTransects    string
	ratesObservations string
	ratesOut          string
)

var rmseCmd = &cobra.Command{
	Use:   "rmse",
	Short: "Compute extraction accuracy against surveyed references",
	Long: `Reads extracted-versus-reference shoreline positions
(transect_id,date,extracted,reference) and reports RMSE, bias and MAE
per survey date plus an overall row.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transects, err := transect.ReadTransects(rmseTransects)
		if err != nil {
			return err
		}

		rows, err := stats.ReadAccuracyRows(rmseInput, transects)
		if err != nil {
			return err
		}

		acc, err := stats.ComputeAccuracy(rows)
		if err != nil {
			return err
		}

		overall := acc[len(acc)-1]
		logger.Info("rmse", "accuracy computed", map[string]interface{}{
			"rows":  len(rows),
			"dates": len(acc) - 1,
			"rmse":  overall.RMSE,
			"bias":  overall.Bias,
		})

		residuals := rmseResiduals
		if residuals == "" {
			residuals = filepath.Join(filepath.Dir(rmseOut), "residuals.csv")
		}
		if err := stats.WriteResidualsCSV(residuals, rows); err != nil {
			return err
		}

		return stats.WriteAccuracyCSV(rmseOut, acc)
	},
}

var movementCmd = &cobra.Command{
	Use:   "movement",
	Short: "Compute net shoreline movement and end point rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable(movementTransects, movementObservations)
		if err != nil {
			return err
		}

		movements, err := stats.ComputeMovements(table, logger)
		if err != nil {
			return err
		}

		logger.Info("movement", "end-point statistics computed", map[string]interface{}{
			"transects": len(movements),
		})

		return stats.WriteMovementsCSV(movementOut, movements)
	},
}

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Fit linear regression rates per transect",
	Long: `Fits shoreline position against decimal year per transect and reports
the regression rate with its 90% confidence half-width. When every
survey carries an uncertainty, a 1/u²-weighted fit is reported
alongside.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable(ratesTransects, ratesObservations)
		if err != nil {
			return err
		}

		rates, err := stats.ComputeRates(table, logger)
		if err != nil {
			return err
		}

		logger.Info("rates", "regression rates computed", map[string]interface{}{
			"transects": len(rates),
		})

		return stats.WriteRatesCSV(ratesOut, rates)
	},
}

func init() {
	rmseCmd.Flags().StringVar(&rmseTransects, "transects", "transects.csv", "transect definition CSV")
	rmseCmd.Flags().StringVar(&rmseInput, "accuracy", "accuracy_rows.csv", "extracted vs reference CSV")
	rmseCmd.Flags().StringVarP(&rmseOut, "out", "o", "accuracy.csv", "output CSV")
	rmseCmd.Flags().StringVar(&rmseResiduals, "residuals", "", "per-row residuals CSV (default residuals.csv next to --out)")

	movementCmd.Flags().StringVar(&movementTransects, "transects", "transects.csv", "transect definition CSV")
	movementCmd.Flags().StringVar(&movementObservations, "observations", "observations.csv", "observation CSV")
	movementCmd.Flags().StringVarP(&movementOut, "out", "o", "movements.csv", "output CSV")

	ratesCmd.Flags().StringVar(&ratesTransects, "transects", "transects.csv", "transect definition CSV")
	ratesCmd.Flags().StringVar(&ratesObservations, "observations", "observations.csv", "observation CSV")
	ratesCmd.Flags().StringVarP(&ratesOut, "out", "o", "rates.csv", "output CSV")

	rootCmd.AddCommand(rmseCmd, movementCmd, ratesCmd)
}
