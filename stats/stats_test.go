package stats

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coastline/internal/logging"
	"coastline/transect"
)

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func tableFor(obs map[string][]transect.Observation) *transect.Table {
	transects := make([]transect.Transect, 0, len(obs))
	for id := range obs {
		transects = append(transects, transect.Transect{ID: id})
	}
	// Deterministic order for assertions.
	sort.Slice(transects, func(i, j int) bool { return transects[i].ID < transects[j].ID })
	return &transect.Table{Transects: transects, Observations: obs}
}

func TestComputeAccuracy(t *testing.T) {
	d := date(2020, 6, 1)
	rows := []AccuracyRow{
		{TransectID: "T001", Date: d, Extracted: 12, Reference: 10},
		{TransectID: "T002", Date: d, Extracted: 8, Reference: 10},
		{TransectID: "T003", Date: d, Extracted: 11, Reference: 10},
	}

	acc, err := ComputeAccuracy(rows)
	require.NoError(t, err)

	// One dated row plus the overall row.
	require.Len(t, acc, 2)
	perDate := acc[0]
	assert.Equal(t, 3, perDate.N)
	assert.InDelta(t, math.Sqrt((4.0+4.0+1.0)/3.0), perDate.RMSE, 1e-12)
	assert.InDelta(t, 1.0/3.0, perDate.Bias, 1e-12)
	assert.InDelta(t, 5.0/3.0, perDate.MAE, 1e-12)
}

func TestComputeAccuracyOverallRowLast(t *testing.T) {
	rows := []AccuracyRow{
		{TransectID: "T001", Date: date(2019, 1, 1), Extracted: 1, Reference: 0},
		{TransectID: "T001", Date: date(2020, 1, 1), Extracted: -1, Reference: 0},
	}

	acc, err := ComputeAccuracy(rows)
	require.NoError(t, err)
	require.Len(t, acc, 3)

	overall := acc[len(acc)-1]
	assert.True(t, overall.Date.IsZero())
	assert.Equal(t, 2, overall.N)
	assert.InDelta(t, 1.0, overall.RMSE, 1e-12)
	assert.InDelta(t, 0.0, overall.Bias, 1e-12)
}

func TestComputeAccuracyEmpty(t *testing.T) {
	_, err := ComputeAccuracy(nil)
	assert.Error(t, err)
}

func TestComputeMovements(t *testing.T) {
	table := tableFor(map[string][]transect.Observation{
		"T001": {
			{TransectID: "T001", Date: date(2000, 1, 1), Distance: 10, Uncertainty: 3},
			{TransectID: "T001", Date: date(2010, 1, 1), Distance: 40, Uncertainty: 4},
			{TransectID: "T001", Date: date(2020, 1, 1), Distance: -20, Uncertainty: 4},
		},
	})

	movements, err := ComputeMovements(table, logging.NoOpLogger{})
	require.NoError(t, err)
	require.Len(t, movements, 1)

	m := movements[0]
	assert.InDelta(t, -30.0, m.NSM, 1e-9, "NSM uses first and last surveys only")
	assert.InDelta(t, 20.0, m.Years, 0.01)
	assert.InDelta(t, -1.5, m.EPR, 0.01)
	assert.InDelta(t, 5.0, m.ENSM, 1e-9, "3-4-5 quadrature")
	assert.InDelta(t, 0.25, m.EEPR, 0.01)
}

func TestComputeMovementsSkipsSparseTransects(t *testing.T) {
	table := tableFor(map[string][]transect.Observation{
		"T001": {
			{TransectID: "T001", Date: date(2000, 1, 1), Distance: 0},
			{TransectID: "T001", Date: date(2010, 1, 1), Distance: 5},
		},
		"T002": {
			{TransectID: "T002", Date: date(2000, 1, 1), Distance: 0},
		},
	})

	movements, err := ComputeMovements(table, logging.NoOpLogger{})
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, "T001", movements[0].TransectID)
}

func TestComputeMovementsZeroElapsed(t *testing.T) {
	table := tableFor(map[string][]transect.Observation{
		"T001": {
			{TransectID: "T001", Date: date(2000, 1, 1), Distance: 0},
			{TransectID: "T001", Date: date(2000, 1, 1), Distance: 5},
		},
	})

	_, err := ComputeMovements(table, logging.NoOpLogger{})
	assert.ErrorContains(t, err, "rate undefined")
}

func TestComputeRatesPerfectLine(t *testing.T) {
	// Exactly -2 m/yr.
	table := tableFor(map[string][]transect.Observation{
		"T001": {
			{TransectID: "T001", Date: date(2000, 1, 1), Distance: 100},
			{TransectID: "T001", Date: date(2005, 1, 1), Distance: 90},
			{TransectID: "T001", Date: date(2010, 1, 1), Distance: 80},
			{TransectID: "T001", Date: date(2015, 1, 1), Distance: 70},
		},
	})

	rates, err := ComputeRates(table, logging.NoOpLogger{})
	require.NoError(t, err)
	require.Len(t, rates, 1)

	r := rates[0]
	assert.Equal(t, 4, r.N)
	assert.InDelta(t, -2.0, r.LRR, 0.01)
	assert.InDelta(t, 1.0, r.R2, 1e-6)
	assert.InDelta(t, 0.0, r.StdErr, 0.01)
	assert.False(t, r.HasWLR, "no uncertainties, no weighted fit")
	assert.True(t, math.IsNaN(r.WLR))
}

func TestComputeRatesNoisyLineBounds(t *testing.T) {
	table := tableFor(map[string][]transect.Observation{
		"T001": {
			{TransectID: "T001", Date: date(2000, 1, 1), Distance: 100.4, Uncertainty: 2},
			{TransectID: "T001", Date: date(2004, 1, 1), Distance: 95.1, Uncertainty: 2},
			{TransectID: "T001", Date: date(2008, 1, 1), Distance: 91.2, Uncertainty: 2},
			{TransectID: "T001", Date: date(2012, 1, 1), Distance: 86.3, Uncertainty: 2},
			{TransectID: "T001", Date: date(2016, 1, 1), Distance: 80.9, Uncertainty: 2},
		},
	})

	rates, err := ComputeRates(table, logging.NoOpLogger{})
	require.NoError(t, err)
	r := rates[0]

	assert.InDelta(t, -1.2, r.LRR, 0.1)
	assert.Greater(t, r.R2, 0.99)
	assert.Greater(t, r.LCI90, 0.0)
	assert.True(t, r.HasWLR)
	// Uniform weights give the same slope as OLS.
	assert.InDelta(t, r.LRR, r.WLR, 1e-9)
}

func TestComputeRatesSkipsShortSeries(t *testing.T) {
	table := tableFor(map[string][]transect.Observation{
		"T001": {
			{TransectID: "T001", Date: date(2000, 1, 1), Distance: 0},
			{TransectID: "T001", Date: date(2010, 1, 1), Distance: 5},
		},
	})

	_, err := ComputeRates(table, logging.NoOpLogger{})
	assert.ErrorContains(t, err, "no transect had enough observations")
}

func TestStudentT90(t *testing.T) {
	// Classic table values.
	assert.InDelta(t, 2.92, studentT90(2), 0.01)
	assert.InDelta(t, 1.645, studentT90(100000), 0.01)
}
