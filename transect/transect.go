// Package transect holds the tabular data model the statistics
// commands share: transects along a baseline and dated shoreline
// position observations on them, as exported by the shoreline-change
// plugin.
package transect

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Transect is one shore-normal measurement line.
type Transect struct {
	ID       string
	Chainage float64 // meters along the baseline
}

// Observation is a dated shoreline position on a transect. Distance is
// signed: positive seaward of the baseline.
type Observation struct {
	TransectID  string
	Date        time.Time
	Distance    float64
	Uncertainty float64
}

// Table is an observation set indexed by transect.
type Table struct {
	Transects    []Transect
	Observations map[string][]Observation
}

// DateRange limits which observation dates a table accepts. Zero
// bounds are unconstrained.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// ReadTransects reads the transect definition CSV
// (transect_id,chainage).
func ReadTransects(path string) ([]Transect, error) {
	rows, err := ReadCSV(path, []string{"transect_id", "chainage"})
	if err != nil {
		return nil, err
	}

	transects := make([]Transect, 0, len(rows))
	seen := make(map[string]bool, len(rows))

	for i, row := range rows {
		id := row[0]
		if id == "" {
			return nil, fmt.Errorf("row %d: empty transect id", i+2)
		}
		if seen[id] {
			return nil, fmt.Errorf("row %d: duplicate transect id %q", i+2, id)
		}
		seen[id] = true

		chainage, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid chainage %q: %w", i+2, row[1], err)
		}

		transects = append(transects, Transect{ID: id, Chainage: chainage})
	}

	sort.Slice(transects, func(i, j int) bool { return transects[i].Chainage < transects[j].Chainage })
	return transects, nil
}

// ReadObservations reads the observation CSV
// (transect_id,date,distance,uncertainty) and validates every row
// against the known transects and the study range. Uncertainty may be
// empty, in which case it reads as zero.
func ReadObservations(path string, transects []Transect, studyRange DateRange) (*Table, error) {
	rows, err := ReadCSV(path, []string{"transect_id", "date", "distance", "uncertainty"})
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(transects))
	for _, tr := range transects {
		known[tr.ID] = true
	}

	table := &Table{
		Transects:    transects,
		Observations: make(map[string][]Observation, len(transects)),
	}

	for i, row := range rows {
		line := i + 2

		id := row[0]
		if !known[id] {
			return nil, fmt.Errorf("row %d: unknown transect id %q", line, id)
		}

		date, err := time.Parse("2006-01-02", row[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date %q: %w", line, row[1], err)
		}
		if !studyRange.Contains(date) {
			return nil, fmt.Errorf("row %d: date %s outside the study range", line, row[1])
		}

		distance, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid distance %q: %w", line, row[2], err)
		}

		uncertainty := 0.0
		if row[3] != "" {
			uncertainty, err = strconv.ParseFloat(row[3], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid uncertainty %q: %w", line, row[3], err)
			}
			if uncertainty < 0 {
				return nil, fmt.Errorf("row %d: negative uncertainty %g", line, uncertainty)
			}
		}

		table.Observations[id] = append(table.Observations[id], Observation{
			TransectID:  id,
			Date:        date,
			Distance:    distance,
			Uncertainty: uncertainty,
		})
	}

	for id := range table.Observations {
		obs := table.Observations[id]
		sort.Slice(obs, func(a, b int) bool { return obs[a].Date.Before(obs[b].Date) })
	}

	return table, nil
}

// SurveyDates returns the sorted union of observation dates across all
// transects.
func (t *Table) SurveyDates() []time.Time {
	seen := make(map[time.Time]bool)
	for _, obs := range t.Observations {
		for _, o := range obs {
			seen[o.Date] = true
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// DecimalYear converts a date to fractional years, the time axis used
// by the regression and rate calculations.
func DecimalYear(t time.Time) float64 {
	yearStart := time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	return float64(t.Year()) + t.Sub(yearStart).Hours()/24/365.25
}

// ReadCSV reads a headered CSV and verifies the expected column
// layout.
func ReadCSV(path string, header []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	got, err := r.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read header of %s", path)
	}
	if len(got) != len(header) {
		return nil, fmt.Errorf("%s: expected %d columns %v, got %d", path, len(header), header, len(got))
	}
	for i := range header {
		if got[i] != header[i] {
			return nil, fmt.Errorf("%s: expected column %d to be %q, got %q", path, i+1, header[i], got[i])
		}
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
		rows = append(rows, row)
	}

	return rows, nil
}
