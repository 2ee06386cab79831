package domain

// Sex is the competitor sex as recorded in the source data.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

// TestedStatus indicates whether a result came from a drug-tested meet.
type TestedStatus string

const (
	Tested   TestedStatus = "Tested"
	Untested TestedStatus = "Untested"
)

// Canonical equipment labels. The cleaner maps raw source values onto these
// through a configurable equipment map rather than matching them inline.
const (
	EquipmentRaw       = "Raw"
	EquipmentWraps     = "Wraps"
	EquipmentSinglePly = "Single-ply"
	EquipmentMultiPly  = "Multi-ply"
)

// RawRecord is an untyped view of one row of the source CSV. Every field is
// the raw cell text; an empty string means the cell was missing. Parsing and
// validation happen in the cleaner, not here.
type RawRecord struct {
	Sex             string
	Equipment       string
	Age             string
	BodyweightKg    string
	Best3SquatKg    string
	Best3BenchKg    string
	Best3DeadliftKg string
	TotalKg         string
	Tested          string
	Country         string
	State           string
	Federation      string
	Date            string
	MeetName        string
}

// CanonicalRecord is the unit the aggregation engines operate on. Every
// instance satisfies the cleaning invariants: sex and equipment are canonical,
// bodyweight lies in the configured range, total meets the minimum, and the
// individual lifts are non-negative with at least one originally present.
type CanonicalRecord struct {
	Sex          Sex          `json:"sex" db:"sex"`
	Equipment    string       `json:"equipment" db:"equipment"`
	BodyweightKg float64      `json:"bodyweight_kg" db:"bodyweight_kg"`
	WeightClass  string       `json:"weight_class" db:"weight_class"`
	AgeDiv       string       `json:"age_div" db:"age_div"`
	Age          float64      `json:"age" db:"age"`
	SquatKg      float64      `json:"squat_kg" db:"squat_kg"`
	BenchKg      float64      `json:"bench_kg" db:"bench_kg"`
	DeadliftKg   float64      `json:"deadlift_kg" db:"deadlift_kg"`
	TotalKg      float64      `json:"total_kg" db:"total_kg"`
	Tested       TestedStatus `json:"tested" db:"tested"`
	Country      string       `json:"country,omitempty" db:"country"`
	State        string       `json:"state,omitempty" db:"state"`
	Federation   string       `json:"federation,omitempty" db:"federation"`
	Date         string       `json:"date,omitempty" db:"date"`
	MeetName     string       `json:"meet_name,omitempty" db:"meet_name"`
	// Year is derived from the leading four characters of Date; zero means
	// the date was missing or unparseable.
	Year int `json:"year,omitempty" db:"year"`
}

// Lifts returns the record's four lift values in canonical order.
func (r CanonicalRecord) Lifts() LiftValues {
	return LiftValues{
		Squat:    r.SquatKg,
		Bench:    r.BenchKg,
		Deadlift: r.DeadliftKg,
		Total:    r.TotalKg,
	}
}

// LiftValues groups the three best lifts plus the meet total.
type LiftValues struct {
	Squat    float64 `json:"squat"`
	Bench    float64 `json:"bench"`
	Deadlift float64 `json:"deadlift"`
	Total    float64 `json:"total"`
}

// AllPositive reports whether every one of the four values is strictly
// positive. Records passing this gate count toward cohort sample size.
func (v LiftValues) AllPositive() bool {
	return v.Squat > 0 && v.Bench > 0 && v.Deadlift > 0 && v.Total > 0
}
