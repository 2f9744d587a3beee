package otsu

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoThreshold reports that the histogram admits no valid cut point:
// it is empty, has a single populated bin, or every candidate produced
// a degenerate class split.
var ErrNoThreshold = errors.New("no valid threshold found")

// Method selects how the water/land cut point is chosen. Otsu is the
// default; mean and median are cheap fallbacks for diagnostics.
type Method string

const (
	MethodOtsu   Method = "otsu"
	MethodMean   Method = "mean"
	MethodMedian Method = "median"
)

// Params tunes the threshold search.
type Params struct {
	Method Method

	// CoarseStep is the stride of the first search pass. A stride
	// above 1 is followed by a local refinement pass around the best
	// coarse bin.
	CoarseStep int

	// MinClassFraction rejects cut points that leave either class with
	// less than this fraction of the total count. Guards against a
	// threshold hugging the histogram edge on nearly single-class
	// scenes.
	MinClassFraction float64
}

// DefaultParams mirrors the values used across the study sites.
func DefaultParams() Params {
	return Params{
		Method:           MethodOtsu,
		CoarseStep:       2,
		MinClassFraction: 0.001,
	}
}

// Result describes a selected threshold.
type Result struct {
	// Threshold is the cut value in histogram value units. Values at
	// or below it classify as the lower class; NDWI-family indices put
	// water above the cut.
	Threshold float64

	// Bin is the selected histogram bin.
	Bin int

	// Variance is the between-class variance at the cut point.
	Variance float64

	// Separability is the ratio of between-class to total variance in
	// [0, 1]; values near zero indicate a poorly separated scene.
	Separability float64

	// LowerFraction is the fraction of values at or below the cut.
	LowerFraction float64
}

// FindThreshold selects a cut point for the histogram using the
// configured method. The Otsu path maximizes between-class variance
// with a coarse pass plus local refinement.
func FindThreshold(hist *Histogram, params Params) (Result, error) {
	if hist == nil {
		return Result{}, fmt.Errorf("histogram is nil")
	}
	if hist.Total() == 0 {
		return Result{}, fmt.Errorf("histogram is empty: %w", ErrNoThreshold)
	}
	if hist.PopulatedBins() < 2 {
		return Result{}, fmt.Errorf("histogram has a single populated bin: %w", ErrNoThreshold)
	}

	if params.CoarseStep < 1 {
		params.CoarseStep = 1
	}

	switch params.Method {
	case MethodMean:
		return thresholdAt(hist, binFor(hist, hist.Mean()), params)
	case MethodMedian:
		return thresholdAt(hist, binFor(hist, hist.Median()), params)
	case MethodOtsu, "":
		return otsuSearch(hist, params)
	default:
		return Result{}, fmt.Errorf("unknown threshold method %q", params.Method)
	}
}

// otsuSearch runs the between-class variance maximization. The coarse
// pass strides over candidate bins; when the stride exceeds 1 the best
// candidate is refined in a +/- stride neighborhood at stride 1.
func otsuSearch(hist *Histogram, params Params) (Result, error) {
	bins := hist.Bins()
	total := float64(hist.Total())

	// Cumulative moments allow O(1) class statistics per candidate.
	sum := 0.0
	for t := 0; t < bins; t++ {
		sum += float64(t) * float64(hist.Count(t))
	}

	best, bestVariance := -1, 0.0

	evaluate := func(lo, hi, step int) {
		wB := 0.0
		sumB := 0.0
		for t := 0; t < hi; t++ {
			wB += float64(hist.Count(t))
			sumB += float64(t) * float64(hist.Count(t))
			if t < lo || (t-lo)%step != 0 {
				continue
			}

			wF := total - wB
			if wB == 0 {
				continue
			}
			if wF == 0 {
				break
			}
			if wB/total < params.MinClassFraction || wF/total < params.MinClassFraction {
				continue
			}

			mB := sumB / wB
			mF := (sum - sumB) / wF
			variance := wB * wF * (mB - mF) * (mB - mF)

			if variance > bestVariance {
				bestVariance = variance
				best = t
			}
		}
	}

	evaluate(0, bins-1, params.CoarseStep)

	if best >= 0 && params.CoarseStep > 1 {
		lo := best - params.CoarseStep
		if lo < 0 {
			lo = 0
		}
		hi := best + params.CoarseStep + 1
		if hi > bins-1 {
			hi = bins - 1
		}
		evaluate(lo, hi, 1)
	}

	if best < 0 {
		return Result{}, fmt.Errorf("every candidate split was degenerate: %w", ErrNoThreshold)
	}

	return buildResult(hist, best, bestVariance)
}

// thresholdAt evaluates a fixed bin as the cut point, applying the same
// degeneracy guards as the search path.
func thresholdAt(hist *Histogram, bin int, params Params) (Result, error) {
	total := float64(hist.Total())

	wB, sumB, sum := 0.0, 0.0, 0.0
	for t := 0; t < hist.Bins(); t++ {
		c := float64(hist.Count(t))
		sum += float64(t) * c
		if t <= bin {
			wB += c
			sumB += float64(t) * c
		}
	}

	wF := total - wB
	if wB == 0 || wF == 0 ||
		wB/total < params.MinClassFraction || wF/total < params.MinClassFraction {
		return Result{}, fmt.Errorf("cut at bin %d leaves a degenerate class: %w", bin, ErrNoThreshold)
	}

	mB := sumB / wB
	mF := (sum - sumB) / wF
	variance := wB * wF * (mB - mF) * (mB - mF)

	return buildResult(hist, bin, variance)
}

func buildResult(hist *Histogram, bin int, variance float64) (Result, error) {
	total := float64(hist.Total())

	lower := 0
	for t := 0; t <= bin; t++ {
		lower += hist.Count(t)
	}

	result := Result{
		Threshold:     hist.Value(bin),
		Bin:           bin,
		Variance:      variance,
		LowerFraction: float64(lower) / total,
	}

	if tv := totalVariance(hist); tv > 0 {
		// Normalized variances: the search accumulates raw counts, the
		// separability measure wants probability weighting.
		result.Separability = variance / (total * total * tv)
		if result.Separability > 1 {
			result.Separability = 1
		}
	}

	if math.IsNaN(result.Variance) || math.IsInf(result.Variance, 0) {
		return Result{}, fmt.Errorf("variance is not finite at bin %d", bin)
	}

	return result, nil
}

// totalVariance computes the bin-index variance of the full histogram.
func totalVariance(hist *Histogram) float64 {
	total := float64(hist.Total())
	if total == 0 {
		return 0
	}

	mean, m2 := 0.0, 0.0
	for t := 0; t < hist.Bins(); t++ {
		c := float64(hist.Count(t))
		mean += float64(t) * c
		m2 += float64(t) * float64(t) * c
	}
	mean /= total

	return m2/total - mean*mean
}

func binFor(hist *Histogram, value float64) int {
	width := (hist.max - hist.min) / float64(hist.Bins())
	bin := int((value - hist.min) / width)
	if bin < 0 {
		bin = 0
	} else if bin >= hist.Bins() {
		bin = hist.Bins() - 1
	}
	return bin
}
