// Package matrix assembles per-transect results into the summary
// matrices handed to reporting: a transect × survey-date distance
// matrix, a transect × statistic matrix, and a spatial summary.
package matrix

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"coastline/stats"
	"coastline/transect"
)

// Distances is the transect × survey-date position matrix. Cells
// without an observation are NaN and export as empty, never as zero.
type Distances struct {
	TransectIDs []string
	Dates       []time.Time
	Cells       [][]float64 // [transect][date]
}

// BuildDistances pivots the observation table into a matrix over the
// union of survey dates.
func BuildDistances(table *transect.Table) (*Distances, error) {
	if table == nil || len(table.Transects) == 0 {
		return nil, fmt.Errorf("no transects to compile")
	}

	dates := table.SurveyDates()
	if len(dates) == 0 {
		return nil, fmt.Errorf("observation table is empty")
	}

	dateIndex := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		dateIndex[d] = i
	}

	out := &Distances{
		TransectIDs: make([]string, len(table.Transects)),
		Dates:       dates,
		Cells:       make([][]float64, len(table.Transects)),
	}

	for i, tr := range table.Transects {
		out.TransectIDs[i] = tr.ID
		row := make([]float64, len(dates))
		for j := range row {
			row[j] = math.NaN()
		}
		for _, o := range table.Observations[tr.ID] {
			row[dateIndex[o.Date]] = o.Distance
		}
		out.Cells[i] = row
	}

	return out, nil
}

// Statistics is the transect × statistic matrix joining end-point and
// regression results. A transect present in only one input keeps NaN
// in the other columns.
type Statistics struct {
	TransectIDs []string
	Columns     []string
	Cells       [][]float64
}

var statisticColumns = []string{"nsm", "epr", "epr_uncertainty", "lrr", "lci90", "r2"}

// BuildStatistics joins movement and rate results by transect id,
// ordered like the transect definition.
func BuildStatistics(transects []transect.Transect, movements []stats.Movement, rates []stats.Rate) (*Statistics, error) {
	if len(transects) == 0 {
		return nil, fmt.Errorf("no transects to compile")
	}

	moveByID := make(map[string]stats.Movement, len(movements))
	for _, m := range movements {
		moveByID[m.TransectID] = m
	}
	rateByID := make(map[string]stats.Rate, len(rates))
	for _, r := range rates {
		rateByID[r.TransectID] = r
	}

	out := &Statistics{
		TransectIDs: make([]string, 0, len(transects)),
		Columns:     statisticColumns,
		Cells:       make([][]float64, 0, len(transects)),
	}

	for _, tr := range transects {
		row := []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()}

		m, hasMove := moveByID[tr.ID]
		if hasMove {
			row[0], row[1], row[2] = m.NSM, m.EPR, m.EEPR
		}
		r, hasRate := rateByID[tr.ID]
		if hasRate {
			row[3], row[4], row[5] = r.LRR, r.LCI90, r.R2
		}

		if !hasMove && !hasRate {
			continue
		}

		out.TransectIDs = append(out.TransectIDs, tr.ID)
		out.Cells = append(out.Cells, row)
	}

	if len(out.Cells) == 0 {
		return nil, fmt.Errorf("no transect appears in either statistics input")
	}

	return out, nil
}

// Summary is the spatial aggregate over all compiled transects.
type Summary struct {
	Transects int
	Eroding   int // EPR < 0
	Accreting int // EPR > 0
	Stable    int // EPR == 0

	MeanEPR float64
	MinEPR  float64
	MaxEPR  float64
	MeanLRR float64
	MeanNSM float64
}

// Summarize aggregates the statistic matrix. NaN cells are excluded
// from every aggregate.
func Summarize(matrix *Statistics) (Summary, error) {
	if matrix == nil || len(matrix.Cells) == 0 {
		return Summary{}, fmt.Errorf("empty statistic matrix")
	}

	var nsm, epr, lrr []float64
	summary := Summary{Transects: len(matrix.Cells)}

	for _, row := range matrix.Cells {
		if !math.IsNaN(row[0]) {
			nsm = append(nsm, row[0])
		}
		if !math.IsNaN(row[1]) {
			epr = append(epr, row[1])
			switch {
			case row[1] < 0:
				summary.Eroding++
			case row[1] > 0:
				summary.Accreting++
			default:
				summary.Stable++
			}
		}
		if !math.IsNaN(row[3]) {
			lrr = append(lrr, row[3])
		}
	}

	if len(epr) == 0 {
		return Summary{}, fmt.Errorf("no transect carries an EPR value")
	}

	summary.MeanEPR = stat.Mean(epr, nil)
	summary.MinEPR, summary.MaxEPR = bounds(epr)
	if len(lrr) > 0 {
		summary.MeanLRR = stat.Mean(lrr, nil)
	} else {
		summary.MeanLRR = math.NaN()
	}
	if len(nsm) > 0 {
		summary.MeanNSM = stat.Mean(nsm, nil)
	} else {
		summary.MeanNSM = math.NaN()
	}

	return summary, nil
}

func bounds(values []float64) (float64, float64) {
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// WriteDistancesCSV exports the distance matrix with one column per
// survey date.
func (d *Distances) WriteDistancesCSV(path string) error {
	header := make([]string, 0, len(d.Dates)+1)
	header = append(header, "transect_id")
	for _, date := range d.Dates {
		header = append(header, date.Format("2006-01-02"))
	}

	rows := make([][]string, len(d.Cells))
	for i, cells := range d.Cells {
		row := make([]string, 0, len(cells)+1)
		row = append(row, d.TransectIDs[i])
		for _, v := range cells {
			row = append(row, formatCell(v))
		}
		rows[i] = row
	}

	return writeCSV(path, header, rows)
}

// WriteStatisticsCSV exports the statistic matrix.
func (s *Statistics) WriteStatisticsCSV(path string) error {
	header := append([]string{"transect_id"}, s.Columns...)

	rows := make([][]string, len(s.Cells))
	for i, cells := range s.Cells {
		row := make([]string, 0, len(cells)+1)
		row = append(row, s.TransectIDs[i])
		for _, v := range cells {
			row = append(row, formatCell(v))
		}
		rows[i] = row
	}

	return writeCSV(path, header, rows)
}

// WriteSummaryCSV exports the spatial summary as a single-row table.
func (s Summary) WriteSummaryCSV(path string) error {
	header := []string{
		"transects", "eroding", "accreting", "stable",
		"mean_epr", "min_epr", "max_epr", "mean_lrr", "mean_nsm",
	}
	row := []string{
		strconv.Itoa(s.Transects),
		strconv.Itoa(s.Eroding),
		strconv.Itoa(s.Accreting),
		strconv.Itoa(s.Stable),
		formatCell(s.MeanEPR),
		formatCell(s.MinEPR),
		formatCell(s.MaxEPR),
		formatCell(s.MeanLRR),
		formatCell(s.MeanNSM),
	}

	return writeCSV(path, header, [][]string{row})
}

// formatCell renders NaN as an empty cell, never as zero.
func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
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
