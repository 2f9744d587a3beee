package stats

import (
	"fmt"
	"math"
	"time"

	"coastline/internal/logging"
	"coastline/transect"
)

// Movement is the end-point statistics for one transect.
type Movement struct {
	TransectID string
	First      time.Time
	Last       time.Time
	Years      float64

	// NSM is the net shoreline movement: last distance minus first.
	NSM float64
	// EPR is the end point rate, NSM over elapsed years.
	EPR float64

	// ENSM is the NSM uncertainty, the two survey uncertainties summed
	// in quadrature. EEPR annualizes it.
	ENSM float64
	EEPR float64
}

// ComputeMovements derives NSM/EPR per transect. Transects with fewer
// than two observations are skipped with a warning; a transect whose
// first and last surveys share a date is an error, since the rate is
// undefined.
func ComputeMovements(table *transect.Table, logger logging.Logger) ([]Movement, error) {
	if table == nil || len(table.Transects) == 0 {
		return nil, fmt.Errorf("no transects to process")
	}

	movements := make([]Movement, 0, len(table.Transects))

	for _, tr := range table.Transects {
		obs := table.Observations[tr.ID]
		if len(obs) < 2 {
			logger.Warning("movement", "skipping transect with fewer than two observations", map[string]interface{}{
				"transect":     tr.ID,
				"observations": len(obs),
			})
			continue
		}

		first, last := obs[0], obs[len(obs)-1]
		years := transect.DecimalYear(last.Date) - transect.DecimalYear(first.Date)
		if years <= 0 {
			return nil, fmt.Errorf("transect %s: first and last surveys are %s apart, rate undefined",
				tr.ID, last.Date.Sub(first.Date))
		}

		nsm := last.Distance - first.Distance
		ensm := math.Sqrt(first.Uncertainty*first.Uncertainty + last.Uncertainty*last.Uncertainty)

		movements = append(movements, Movement{
			TransectID: tr.ID,
			First:      first.Date,
			Last:       last.Date,
			Years:      years,
			NSM:        nsm,
			EPR:        nsm / years,
			ENSM:       ensm,
			EEPR:       ensm / years,
		})
	}

	if len(movements) == 0 {
		return nil, fmt.Errorf("no transect had enough observations for end-point statistics")
	}

	return movements, nil
}
