package stats

import (
	"plstats/internal/errors"
	"plstats/pkg/contracts/domain"
)

// Histogram bins values into binCount equal-width bins spanning
// [min, max]. Each value lands in exactly one bin; the maximum value
// belongs to the last bin. Counts are normalized to frequencies summing to
// 1.0 and bins are reported by their centers. A degenerate range
// (min == max) expands by half a unit on each side, matching the numpy
// histogram behavior the original outputs were built with.
func Histogram(values []float64, binCount int) domain.LiftDistribution {
	if binCount < 1 {
		binCount = 1
	}

	centers := make([]float64, binCount)
	counts := make([]float64, binCount)
	if len(values) == 0 {
		return domain.LiftDistribution{Bins: centers, Counts: counts}
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(binCount)
	for i := range centers {
		centers[i] = lo + width*(float64(i)+0.5)
	}

	raw := make([]int, binCount)
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= binCount {
			idx = binCount - 1
		}
		if idx < 0 {
			idx = 0
		}
		raw[idx]++
	}

	n := float64(len(values))
	for i, c := range raw {
		counts[i] = float64(c) / n
	}

	return domain.LiftDistribution{
		Bins:         centers,
		Counts:       counts,
		TotalSamples: len(values),
	}
}

// Distributions computes per-lift histograms over the qualifying subset of
// the cohort (all four lifts positive). The same whole-cohort gate as the
// percentile curves applies: fewer than MinSampleSize qualifying rows
// yields InsufficientDataError.
func (e *Engine) Distributions(rows []domain.LiftValues, binCount int) (map[string]domain.LiftDistribution, int, error) {
	qualifying := make([]domain.LiftValues, 0, len(rows))
	for _, row := range rows {
		if row.AllPositive() {
			qualifying = append(qualifying, row)
		}
	}
	if len(qualifying) < e.minSampleSize {
		return nil, 0, errors.NewInsufficientData(len(qualifying), e.minSampleSize)
	}

	out := make(map[string]domain.LiftDistribution, len(liftNames))
	for l, name := range liftNames {
		out[name] = Histogram(rawValues(qualifying, l), binCount)
	}
	return out, len(qualifying), nil
}
