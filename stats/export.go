package stats

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// WriteAccuracyCSV exports accuracy aggregates. The overall row keeps
// an empty date cell.
func WriteAccuracyCSV(path string, acc []Accuracy) error {
	header := []string{"date", "n", "rmse", "bias", "mae"}
	rows := make([][]string, len(acc))
	for i, a := range acc {
		rows[i] = []string{
			formatDate(a.Date),
			strconv.Itoa(a.N),
			formatStat(a.RMSE),
			formatStat(a.Bias),
			formatStat(a.MAE),
		}
	}
	return writeCSV(path, header, rows)
}

// WriteMovementsCSV exports the end-point statistics.
func WriteMovementsCSV(path string, movements []Movement) error {
	header := []string{"transect_id", "first", "last", "years", "nsm", "epr", "nsm_uncertainty", "epr_uncertainty"}
	rows := make([][]string, len(movements))
	for i, m := range movements {
		rows[i] = []string{
			m.TransectID,
			formatDate(m.First),
			formatDate(m.Last),
			formatStat(m.Years),
			formatStat(m.NSM),
			formatStat(m.EPR),
			formatStat(m.ENSM),
			formatStat(m.EEPR),
		}
	}
	return writeCSV(path, header, rows)
}

// WriteRatesCSV exports the regression statistics. Weighted columns
// are empty when no uncertainties were available.
func WriteRatesCSV(path string, rates []Rate) error {
	header := []string{"transect_id", "n", "lrr", "intercept", "r2", "stderr", "lci90", "wlr", "wci90"}
	rows := make([][]string, len(rates))
	for i, r := range rates {
		wlr, wci := "", ""
		if r.HasWLR {
			wlr = formatStat(r.WLR)
			wci = formatStat(r.WCI90)
		}
		rows[i] = []string{
			r.TransectID,
			strconv.Itoa(r.N),
			formatStat(r.LRR),
			formatStat(r.Intercept),
			formatStat(r.R2),
			formatStat(r.StdErr),
			formatStat(r.LCI90),
			wlr,
			wci,
		}
	}
	return writeCSV(path, header, rows)
}

// WriteResidualsCSV exports the per-row signed errors behind the
// accuracy aggregates.
func WriteResidualsCSV(path string, rows []AccuracyRow) error {
	header := []string{"transect_id", "date", "extracted", "reference", "residual"}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{
			r.TransectID,
			formatDate(r.Date),
			formatStat(r.Extracted),
			formatStat(r.Reference),
			formatStat(r.Residual()),
		}
	}
	return writeCSV(path, header, out)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatStat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
