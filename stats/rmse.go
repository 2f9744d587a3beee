// Package stats implements the standard shoreline-change statistics:
// extraction accuracy (RMSE), end-point movement (NSM/EPR) with
// propagated uncertainty, and regression rates (LRR/WLR).
package stats

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"coastline/transect"
)

// AccuracyRow pairs an extracted shoreline position with its surveyed
// reference on one transect.
type AccuracyRow struct {
	TransectID string
	Date       time.Time
	Extracted  float64
	Reference  float64
}

// Residual reports the signed error of one row.
func (r AccuracyRow) Residual() float64 {
	return r.Extracted - r.Reference
}

// Accuracy summarizes extraction error for one survey date.
type Accuracy struct {
	Date time.Time
	N    int
	RMSE float64
	Bias float64 // mean signed error
	MAE  float64
}

// ReadAccuracyRows reads the accuracy CSV
// (transect_id,date,extracted,reference), validating transect ids
// against the known set.
func ReadAccuracyRows(path string, transects []transect.Transect) ([]AccuracyRow, error) {
	rows, err := transect.ReadCSV(path, []string{"transect_id", "date", "extracted", "reference"})
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(transects))
	for _, tr := range transects {
		known[tr.ID] = true
	}

	out := make([]AccuracyRow, 0, len(rows))
	for i, row := range rows {
		line := i + 2

		if !known[row[0]] {
			return nil, fmt.Errorf("row %d: unknown transect id %q", line, row[0])
		}

		date, err := time.Parse("2006-01-02", row[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date %q: %w", line, row[1], err)
		}

		extracted, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid extracted position %q: %w", line, row[2], err)
		}

		reference, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid reference position %q: %w", line, row[3], err)
		}

		out = append(out, AccuracyRow{
			TransectID: row[0],
			Date:       date,
			Extracted:  extracted,
			Reference:  reference,
		})
	}

	return out, nil
}

// ComputeAccuracy aggregates RMSE, bias and MAE per survey date, plus
// an overall row (zero date) across all surveys.
func ComputeAccuracy(rows []AccuracyRow) ([]Accuracy, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no accuracy rows to aggregate")
	}

	byDate := make(map[time.Time][]AccuracyRow)
	for _, row := range rows {
		byDate[row.Date] = append(byDate[row.Date], row)
	}

	out := make([]Accuracy, 0, len(byDate)+1)
	for date, group := range byDate {
		out = append(out, summarize(date, group))
	}

	sortAccuracy(out)
	out = append(out, summarize(time.Time{}, rows))

	return out, nil
}

func summarize(date time.Time, rows []AccuracyRow) Accuracy {
	sumSq, sum, sumAbs := 0.0, 0.0, 0.0
	for _, row := range rows {
		e := row.Residual()
		sumSq += e * e
		sum += e
		sumAbs += math.Abs(e)
	}

	n := float64(len(rows))
	return Accuracy{
		Date: date,
		N:    len(rows),
		RMSE: math.Sqrt(sumSq / n),
		Bias: sum / n,
		MAE:  sumAbs / n,
	}
}

func sortAccuracy(acc []Accuracy) {
	sort.Slice(acc, func(i, j int) bool { return acc[i].Date.Before(acc[j].Date) })
}
