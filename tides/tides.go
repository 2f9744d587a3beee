// Package tides selects candidate acquisition dates from a tide
// prediction table: days whose predicted stage falls inside the
// configured tidal window and inside the study range.
package tides

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"coastline/transect"
)

// Prediction is one row of the tide table: a timestamp and the
// predicted water stage in meters relative to datum.
type Prediction struct {
	Time  time.Time
	Stage float64
}

// Window bounds the acceptable tidal stage.
type Window struct {
	Low  float64
	High float64
}

// Contains reports whether a stage falls inside the window, bounds
// included.
func (w Window) Contains(stage float64) bool {
	return stage >= w.Low && stage <= w.High
}

// Validate rejects inverted windows.
func (w Window) Validate() error {
	if w.High < w.Low {
		return fmt.Errorf("tidal window is inverted: low %.2f above high %.2f", w.Low, w.High)
	}
	return nil
}

// predictionTimeLayouts are the timestamp formats accepted in tide
// tables, tried in order.
var predictionTimeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC3339,
	"2006-01-02",
}

// ReadPredictions reads the tide-table CSV (datetime,stage), sorted by
// time.
func ReadPredictions(path string) ([]Prediction, error) {
	rows, err := transect.ReadCSV(path, []string{"datetime", "stage"})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("tide table %s has no predictions", path)
	}

	out := make([]Prediction, 0, len(rows))
	for i, row := range rows {
		line := i + 2

		ts, err := parsePredictionTime(row[0])
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", line)
		}

		stage, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid stage %q: %w", line, row[1], err)
		}
		if math.IsNaN(stage) {
			return nil, fmt.Errorf("row %d: stage is NaN", line)
		}

		out = append(out, Prediction{Time: ts, Stage: stage})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func parsePredictionTime(raw string) (time.Time, error) {
	for _, layout := range predictionTimeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

// Candidate is one acquisition day together with the in-window
// prediction chosen for it.
type Candidate struct {
	Date  time.Time
	Time  time.Time
	Stage float64
}

// SelectCandidates filters predictions to those inside the window and
// the study range, keeping one prediction per calendar day: the one
// whose stage sits closest to the middle of the window. Predictions
// outside the study range are never emitted.
func SelectCandidates(predictions []Prediction, window Window, studyRange transect.DateRange) ([]Candidate, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if len(predictions) == 0 {
		return nil, fmt.Errorf("no tide predictions to select from")
	}

	mid := (window.Low + window.High) / 2
	best := make(map[time.Time]Candidate)

	for _, p := range predictions {
		if !window.Contains(p.Stage) {
			continue
		}
		if !studyRange.Contains(p.Time) {
			continue
		}

		day := p.Time.Truncate(24 * time.Hour)
		cand := Candidate{Date: day, Time: p.Time, Stage: p.Stage}

		current, seen := best[day]
		if !seen || math.Abs(cand.Stage-mid) < math.Abs(current.Stage-mid) {
			best[day] = cand
		}
	}

	if len(best) == 0 {
		return nil, fmt.Errorf("no prediction falls inside the tidal window within the study range")
	}

	out := make([]Candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	return out, nil
}

// WriteCandidatesCSV exports the candidate dates
// (date,datetime,stage).
func WriteCandidatesCSV(path string, candidates []Candidate) error {
	if len(candidates) == 0 {
		return fmt.Errorf("no candidates to write")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "datetime", "stage"}); err != nil {
		return err
	}
	for _, c := range candidates {
		row := []string{
			c.Date.Format("2006-01-02"),
			c.Time.Format("2006-01-02 15:04"),
			strconv.FormatFloat(c.Stage, 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
