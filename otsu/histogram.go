package otsu

import (
	"fmt"
	"math"
)

// Histogram is a fixed-bin histogram over a closed value range. Water
// indices live in [-1, 1], so the range is explicit rather than assumed
// from 8-bit intensities.
type Histogram struct {
	counts []int
	min    float64
	max    float64
	total  int
}

// NewHistogram builds an empty histogram with the given bin count and
// value range.
func NewHistogram(bins int, min, max float64) (*Histogram, error) {
	if bins < 2 {
		return nil, fmt.Errorf("histogram needs at least 2 bins, got %d", bins)
	}
	if !(max > min) {
		return nil, fmt.Errorf("invalid histogram range [%g, %g]", min, max)
	}

	return &Histogram{
		counts: make([]int, bins),
		min:    min,
		max:    max,
	}, nil
}

// Add accumulates a single value. NaN and infinite values are skipped;
// out-of-range values clamp to the edge bins.
func (h *Histogram) Add(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}

	// Bin width is range/bins, matching Value and binFor. The max value
	// clamps into the last bin.
	bin := int(float64(len(h.counts)) * (v - h.min) / (h.max - h.min))
	if bin < 0 {
		bin = 0
	} else if bin >= len(h.counts) {
		bin = len(h.counts) - 1
	}

	h.counts[bin]++
	h.total++
}

// AddAll accumulates a slice of values.
func (h *Histogram) AddAll(values []float64) {
	for _, v := range values {
		h.Add(v)
	}
}

// Bins returns the bin count.
func (h *Histogram) Bins() int { return len(h.counts) }

// Total returns the number of accumulated values.
func (h *Histogram) Total() int { return h.total }

// Count returns the count of a single bin.
func (h *Histogram) Count(bin int) int { return h.counts[bin] }

// Value converts a bin index back to the value at the bin center.
func (h *Histogram) Value(bin int) float64 {
	width := (h.max - h.min) / float64(len(h.counts))
	return h.min + width*(float64(bin)+0.5)
}

// PopulatedBins counts bins holding at least one value. A histogram
// with fewer than two populated bins cannot be split.
func (h *Histogram) PopulatedBins() int {
	populated := 0
	for _, c := range h.counts {
		if c > 0 {
			populated++
		}
	}
	return populated
}

// Mean returns the count-weighted mean value.
func (h *Histogram) Mean() float64 {
	if h.total == 0 {
		return 0
	}
	sum := 0.0
	for i, c := range h.counts {
		sum += h.Value(i) * float64(c)
	}
	return sum / float64(h.total)
}

// Median returns the value of the bin holding the middle count.
func (h *Histogram) Median() float64 {
	if h.total == 0 {
		return 0
	}
	half := h.total / 2
	cum := 0
	for i, c := range h.counts {
		cum += c
		if cum >= half {
			return h.Value(i)
		}
	}
	return h.Value(len(h.counts) - 1)
}
