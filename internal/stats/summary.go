package stats

import (
	"math"
	"sort"

	"plstats/pkg/contracts/domain"
)

// Summarize computes presentation statistics for one lift's values. All
// fields are rounded to one decimal. An empty input yields the zero struct:
// a defined default, not an error. Callers that must distinguish "no data"
// from a legitimate zero check the sample size separately.
func Summarize(values []float64) domain.LiftStatistics {
	if len(values) == 0 {
		return domain.LiftStatistics{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	// Population variance, matching the source's std with ddof=0.
	var sq float64
	for _, v := range sorted {
		d := v - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(sorted)))

	return domain.LiftStatistics{
		Mean:         round1(mean),
		Median:       round1(percentileSorted(sorted, 0.5)),
		Min:          round1(sorted[0]),
		Max:          round1(sorted[len(sorted)-1]),
		Std:          round1(std),
		Percentile25: round1(percentileSorted(sorted, 0.25)),
		Percentile75: round1(percentileSorted(sorted, 0.75)),
		Percentile90: round1(percentileSorted(sorted, 0.90)),
		Percentile95: round1(percentileSorted(sorted, 0.95)),
		Percentile99: round1(percentileSorted(sorted, 0.99)),
	}
}

// Statistics summarizes each lift over the qualifying subset of the cohort
// (rows with all four lifts positive, mirroring the cohort gate). An empty
// cohort yields an all-zero result with SampleSize 0.
func (e *Engine) Statistics(rows []domain.LiftValues) domain.StatisticsResult {
	qualifying := make([]domain.LiftValues, 0, len(rows))
	for _, row := range rows {
		if row.AllPositive() {
			qualifying = append(qualifying, row)
		}
	}

	if len(qualifying) == 0 {
		return domain.StatisticsResult{}
	}

	return domain.StatisticsResult{
		SampleSize: len(qualifying),
		Squat:      Summarize(positiveValues(qualifying, liftSquat)),
		Bench:      Summarize(positiveValues(qualifying, liftBench)),
		Deadlift:   Summarize(positiveValues(qualifying, liftDeadlift)),
		Total:      Summarize(positiveValues(qualifying, liftTotal)),
	}
}
