package cli

import (
	"coastline/transect"
)

// studyRange converts the site config window into a table filter.
func studyRange() (transect.DateRange, error) {
	start, end, err := cfg.StudyRange()
	if err != nil {
		return transect.DateRange{}, err
	}
	return transect.DateRange{Start: start, End: end}, nil
}

// loadTable reads the transect definitions and their observations,
// rejecting rows outside the study range.
func loadTable(transectsPath, observationsPath string) (*transect.Table, error) {
	transects, err := transect.ReadTransects(transectsPath)
	if err != nil {
		return nil, err
	}

	window, err := studyRange()
	if err != nil {
		return nil, err
	}

	table, err := transect.ReadObservations(observationsPath, transects, window)
	if err != nil {
		return nil, err
	}

	logger.Debug("tables", "observation table loaded", map[string]interface{}{
		"transects": len(table.Transects),
		"surveys":   len(table.SurveyDates()),
	})
	return table, nil
}
