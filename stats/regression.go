package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"coastline/internal/logging"
	"coastline/transect"
)

// Rate is the regression statistics for one transect: the slope of
// shoreline position over decimal year.
type Rate struct {
	TransectID string
	N          int

	// LRR is the ordinary least-squares slope in meters per year.
	LRR       float64
	Intercept float64
	R2        float64

	// StdErr is the standard error of the slope; LCI90 the half-width
	// of its two-sided 90% confidence interval.
	StdErr float64
	LCI90  float64

	// WLR is the 1/u²-weighted slope, with its own confidence
	// half-width. NaN when any observation lacks an uncertainty.
	WLR    float64
	WCI90  float64
	HasWLR bool
}

// minRegressionObs is the smallest sample that yields a finite
// confidence interval (n-2 degrees of freedom).
const minRegressionObs = 3

// ComputeRates fits per-transect regressions. Transects with fewer
// than three observations are skipped with a warning.
func ComputeRates(table *transect.Table, logger logging.Logger) ([]Rate, error) {
	if table == nil || len(table.Transects) == 0 {
		return nil, fmt.Errorf("no transects to process")
	}

	rates := make([]Rate, 0, len(table.Transects))

	for _, tr := range table.Transects {
		obs := table.Observations[tr.ID]
		if len(obs) < minRegressionObs {
			logger.Warning("rates", "skipping transect with too few observations for regression", map[string]interface{}{
				"transect":     tr.ID,
				"observations": len(obs),
				"minimum":      minRegressionObs,
			})
			continue
		}

		rate, err := fitTransect(tr.ID, obs)
		if err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}

	if len(rates) == 0 {
		return nil, fmt.Errorf("no transect had enough observations for regression")
	}

	return rates, nil
}

func fitTransect(id string, obs []transect.Observation) (Rate, error) {
	n := len(obs)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, o := range obs {
		xs[i] = transect.DecimalYear(o.Date)
		ys[i] = o.Distance
	}

	if allEqual(xs) {
		return Rate{}, fmt.Errorf("transect %s: all observations share one date, regression undefined", id)
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	r2 := stat.RSquared(xs, ys, nil, alpha, beta)

	stdErr := slopeStdErr(xs, ys, nil, alpha, beta)
	tCrit := studentT90(n - 2)

	rate := Rate{
		TransectID: id,
		N:          n,
		LRR:        beta,
		Intercept:  alpha,
		R2:         r2,
		StdErr:     stdErr,
		LCI90:      tCrit * stdErr,
		WLR:        math.NaN(),
		WCI90:      math.NaN(),
	}

	weights := observationWeights(obs)
	if weights != nil {
		wAlpha, wBeta := stat.LinearRegression(xs, ys, weights, false)
		wStdErr := slopeStdErr(xs, ys, weights, wAlpha, wBeta)
		rate.WLR = wBeta
		rate.WCI90 = tCrit * wStdErr
		rate.HasWLR = true
	}

	return rate, nil
}

// observationWeights returns 1/u² weights, or nil when any survey
// lacks an uncertainty estimate.
func observationWeights(obs []transect.Observation) []float64 {
	weights := make([]float64, len(obs))
	for i, o := range obs {
		if o.Uncertainty <= 0 {
			return nil
		}
		weights[i] = 1 / (o.Uncertainty * o.Uncertainty)
	}
	return weights
}

// slopeStdErr computes the (optionally weighted) standard error of the
// regression slope.
func slopeStdErr(xs, ys, weights []float64, alpha, beta float64) float64 {
	n := len(xs)
	if n <= 2 {
		return math.Inf(1)
	}

	xMean := stat.Mean(xs, weights)

	ssr, sxx := 0.0, 0.0
	for i := range xs {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		r := ys[i] - (alpha + beta*xs[i])
		ssr += w * r * r
		dx := xs[i] - xMean
		sxx += w * dx * dx
	}

	if sxx == 0 {
		return math.Inf(1)
	}

	return math.Sqrt(ssr / float64(n-2) / sxx)
}

// studentT90 is the two-sided 90% critical value of Student's t.
func studentT90(dof int) float64 {
	if dof < 1 {
		return math.Inf(1)
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(dof)}
	return dist.Quantile(0.95)
}

func allEqual(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}
