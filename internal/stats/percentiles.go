// Package stats implements the aggregation math over cohort lift values:
// percentile curves, summary statistics, percentile ranks and histograms.
// Every function here is pure; the cohort index hands in immutable value
// slices and results never alias their inputs.
package stats

import (
	"math"
	"sort"

	"plstats/internal/errors"
	"plstats/pkg/contracts/domain"
)

// curvePoints is the number of entries in a percentile curve: the 1st
// through 99th percentile. Clients consume the curve positionally.
const curvePoints = 99

// Engine computes cohort aggregations. MinSampleSize gates every aggregate
// query at the cohort level.
type Engine struct {
	minSampleSize int
}

// NewEngine creates a stats engine with the given minimum sample size.
func NewEngine(minSampleSize int) *Engine {
	if minSampleSize < 1 {
		minSampleSize = 1
	}
	return &Engine{minSampleSize: minSampleSize}
}

// MinSampleSize returns the configured cohort gate.
func (e *Engine) MinSampleSize() int { return e.minSampleSize }

// QualifyingCount counts rows with all four lift values positive. This is
// the whole-cohort gate: an aggregate query is answerable only when at
// least MinSampleSize rows qualify simultaneously on every lift.
func (e *Engine) QualifyingCount(rows []domain.LiftValues) int {
	n := 0
	for _, row := range rows {
		if row.AllPositive() {
			n++
		}
	}
	return n
}

// Percentiles computes the 1st-99th percentile curves for each lift.
// Non-positive values are excluded per lift independently: a row with a
// zero squat still contributes to the bench, deadlift and total curves.
// Returns InsufficientDataError when fewer than MinSampleSize rows have all
// four lifts positive; never a partial or zero-filled result.
func (e *Engine) Percentiles(rows []domain.LiftValues) (domain.PercentileCurves, int, error) {
	qualifying := e.QualifyingCount(rows)
	if qualifying < e.minSampleSize {
		return domain.PercentileCurves{}, 0, errors.NewInsufficientData(qualifying, e.minSampleSize)
	}

	curves := domain.PercentileCurves{
		Squat:    PercentileCurve(positiveValues(rows, liftSquat)),
		Bench:    PercentileCurve(positiveValues(rows, liftBench)),
		Deadlift: PercentileCurve(positiveValues(rows, liftDeadlift)),
		Total:    PercentileCurve(positiveValues(rows, liftTotal)),
	}
	return curves, qualifying, nil
}

// PercentileCurve returns the 1st through 99th percentile of values using
// linear interpolation: rank = p/100*(n-1), result interpolated between the
// two bracketing order statistics. This matches the default "linear" method
// of array-based percentile libraries, which the frontend depends on
// positionally.
func PercentileCurve(values []float64) []float64 {
	curve := make([]float64, curvePoints)
	if len(values) == 0 {
		return curve
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	for p := 1; p <= curvePoints; p++ {
		curve[p-1] = percentileSorted(sorted, float64(p)/100)
	}
	return curve
}

// percentileSorted computes a single percentile (fraction in [0,1]) over an
// already sorted slice using linear interpolation.
func percentileSorted(sorted []float64, fraction float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if fraction <= 0 {
		return sorted[0]
	}
	if fraction >= 1 {
		return sorted[n-1]
	}

	index := fraction * float64(n-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// RankPercentile returns the percentage of qualifying values (value > 0)
// strictly less than userValue, rounded to one decimal. An empty qualifying
// set yields 0.0 by definition, not an error.
func RankPercentile(values []float64, userValue float64) float64 {
	total := 0
	below := 0
	for _, v := range values {
		if v <= 0 {
			continue
		}
		total++
		if v < userValue {
			below++
		}
	}
	if total == 0 {
		return 0.0
	}
	return round1(float64(below) / float64(total) * 100)
}

// Rank computes the percentile rank of a user's four lifts within a cohort.
// Each lift is ranked against that lift's positive values independently.
func (e *Engine) Rank(rows []domain.LiftValues, user domain.LiftValues) domain.RankResult {
	return domain.RankResult{
		Squat:    RankPercentile(rawValues(rows, liftSquat), user.Squat),
		Bench:    RankPercentile(rawValues(rows, liftBench), user.Bench),
		Deadlift: RankPercentile(rawValues(rows, liftDeadlift), user.Deadlift),
		Total:    RankPercentile(rawValues(rows, liftTotal), user.Total),
	}
}

type lift int

const (
	liftSquat lift = iota
	liftBench
	liftDeadlift
	liftTotal
)

// liftNames maps lifts to their wire names, in canonical order.
var liftNames = map[lift]string{
	liftSquat:    "squat",
	liftBench:    "bench",
	liftDeadlift: "deadlift",
	liftTotal:    "total",
}

func liftValue(row domain.LiftValues, l lift) float64 {
	switch l {
	case liftSquat:
		return row.Squat
	case liftBench:
		return row.Bench
	case liftDeadlift:
		return row.Deadlift
	default:
		return row.Total
	}
}

func rawValues(rows []domain.LiftValues, l lift) []float64 {
	out := make([]float64, 0, len(rows))
	for _, row := range rows {
		out = append(out, liftValue(row, l))
	}
	return out
}

func positiveValues(rows []domain.LiftValues, l lift) []float64 {
	out := make([]float64, 0, len(rows))
	for _, row := range rows {
		if v := liftValue(row, l); v > 0 {
			out = append(out, v)
		}
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
