package domain

// PercentileCurves holds the 1st through 99th percentile of each lift within
// a cohort. Index 0 is the 1st percentile; the frontend consumes the curves
// positionally, so length and ordering are part of the contract.
type PercentileCurves struct {
	Squat    []float64 `json:"squat"`
	Bench    []float64 `json:"bench"`
	Deadlift []float64 `json:"deadlift"`
	Total    []float64 `json:"total"`
}

// PercentileResult is the response for a percentile-curve query.
// SampleSize counts cohort records with all four lift values positive.
type PercentileResult struct {
	Percentiles PercentileCurves `json:"percentiles"`
	SampleSize  int              `json:"sample_size"`
	Filters     FilterSet        `json:"filters"`
}

// LiftDistribution is the histogram of one lift within a cohort. Counts are
// normalized frequencies summing to 1.0, not raw integers.
type LiftDistribution struct {
	Bins         []float64 `json:"bins"`
	Counts       []float64 `json:"counts"`
	TotalSamples int       `json:"total_samples"`
}

// DistributionResult is the response for a distribution query.
type DistributionResult struct {
	Distributions map[string]LiftDistribution `json:"distributions"`
	SampleSize    int                         `json:"sample_size"`
	Filters       FilterSet                   `json:"filters"`
}

// LiftStatistics summarizes one lift's values. All fields are rounded to one
// decimal place for presentation. A zero struct is the defined result for an
// empty cohort; callers distinguish "no data" via the enclosing SampleSize.
type LiftStatistics struct {
	Mean         float64 `json:"mean"`
	Median       float64 `json:"median"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Std          float64 `json:"std"`
	Percentile25 float64 `json:"percentile25"`
	Percentile75 float64 `json:"percentile75"`
	Percentile90 float64 `json:"percentile90"`
	Percentile95 float64 `json:"percentile95"`
	Percentile99 float64 `json:"percentile99"`
}

// StatisticsResult is the response for a summary-statistics query.
type StatisticsResult struct {
	SampleSize int            `json:"sample_size"`
	Squat      LiftStatistics `json:"squat"`
	Bench      LiftStatistics `json:"bench"`
	Deadlift   LiftStatistics `json:"deadlift"`
	Total      LiftStatistics `json:"total"`
	Filters    FilterSet      `json:"filters"`
}

// RankResult gives the percentile rank of a user's lifts within a cohort:
// the percentage of qualifying cohort values strictly below the user's,
// rounded to one decimal. 0.0 is the defined value for an empty cohort.
type RankResult struct {
	Squat    float64   `json:"squat"`
	Bench    float64   `json:"bench"`
	Deadlift float64   `json:"deadlift"`
	Total    float64   `json:"total"`
	Filters  FilterSet `json:"filters"`
}

// YearRange bounds the meet years present in a snapshot.
type YearRange struct {
	MinYear int `json:"min_year"`
	MaxYear int `json:"max_year"`
}

// Metadata describes the filterable universe of a snapshot, used by clients
// to populate filter controls.
type Metadata struct {
	TotalRecords    int                 `json:"total_records"`
	Countries       []string            `json:"countries"`
	Federations     []string            `json:"federations"`
	EquipmentTypes  []string            `json:"equipment_types"`
	WeightClasses   map[string][]string `json:"weight_classes"`
	AgeDivisions    []string            `json:"age_divisions"`
	TestedStatuses  []string            `json:"tested_statuses"`
	Years           []string            `json:"years"`
	StatesByCountry map[string][]string `json:"states_by_country"`
	DateRange       YearRange           `json:"date_range"`
}
