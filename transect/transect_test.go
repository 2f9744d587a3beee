package transect

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const transectCSV = `transect_id,chainage
T003,200.0
T001,0.0
T002,100.0
`

func TestReadTransectsSortsByChainage(t *testing.T) {
	path := writeFile(t, "transects.csv", transectCSV)

	transects, err := ReadTransects(path)
	require.NoError(t, err)

	require.Len(t, transects, 3)
	assert.Equal(t, "T001", transects[0].ID)
	assert.Equal(t, "T002", transects[1].ID)
	assert.Equal(t, "T003", transects[2].ID)
}

func TestReadTransectsDuplicateID(t *testing.T) {
	path := writeFile(t, "transects.csv", "transect_id,chainage\nT001,0\nT001,50\n")

	_, err := ReadTransects(path)
	assert.ErrorContains(t, err, "duplicate transect id")
}

func TestReadTransectsBadHeader(t *testing.T) {
	path := writeFile(t, "transects.csv", "id,chainage\nT001,0\n")

	_, err := ReadTransects(path)
	assert.ErrorContains(t, err, "transect_id")
}

func someTransects() []Transect {
	return []Transect{{ID: "T001"}, {ID: "T002"}}
}

func TestReadObservations(t *testing.T) {
	path := writeFile(t, "obs.csv", `transect_id,date,distance,uncertainty
T001,1990-06-01,10.0,3.0
T001,2020-06-01,-35.0,1.5
T002,1990-06-01,5.0,
`)

	table, err := ReadObservations(path, someTransects(), DateRange{})
	require.NoError(t, err)

	require.Len(t, table.Observations["T001"], 2)
	assert.Equal(t, 10.0, table.Observations["T001"][0].Distance)
	assert.Equal(t, 0.0, table.Observations["T002"][0].Uncertainty, "empty uncertainty reads as zero")

	dates := table.SurveyDates()
	require.Len(t, dates, 2)
	assert.True(t, dates[0].Before(dates[1]))
}

func TestReadObservationsSortsByDate(t *testing.T) {
	path := writeFile(t, "obs.csv", `transect_id,date,distance,uncertainty
T001,2020-06-01,-35.0,1.5
T001,1990-06-01,10.0,3.0
`)

	table, err := ReadObservations(path, someTransects(), DateRange{})
	require.NoError(t, err)

	obs := table.Observations["T001"]
	require.Len(t, obs, 2)
	assert.Equal(t, 1990, obs[0].Date.Year())
	assert.Equal(t, 2020, obs[1].Date.Year())
}

func TestReadObservationsUnknownTransect(t *testing.T) {
	path := writeFile(t, "obs.csv", "transect_id,date,distance,uncertainty\nT999,1990-06-01,1.0,\n")

	_, err := ReadObservations(path, someTransects(), DateRange{})
	assert.ErrorContains(t, err, `unknown transect id "T999"`)
}

func TestReadObservationsOutsideStudyRange(t *testing.T) {
	path := writeFile(t, "obs.csv", "transect_id,date,distance,uncertainty\nT001,1980-06-01,1.0,\n")

	studyRange := DateRange{
		Start: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	_, err := ReadObservations(path, someTransects(), studyRange)
	assert.ErrorContains(t, err, "outside the study range")
}

func TestReadObservationsNegativeUncertainty(t *testing.T) {
	path := writeFile(t, "obs.csv", "transect_id,date,distance,uncertainty\nT001,1995-06-01,1.0,-2\n")

	_, err := ReadObservations(path, someTransects(), DateRange{})
	assert.ErrorContains(t, err, "negative uncertainty")
}

func TestDecimalYear(t *testing.T) {
	assert.InDelta(t, 2000.0, DecimalYear(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)), 1e-9)

	mid := DecimalYear(time.Date(2000, 7, 2, 0, 0, 0, 0, time.UTC))
	assert.InDelta(t, 2000.5, mid, 0.01)
}
