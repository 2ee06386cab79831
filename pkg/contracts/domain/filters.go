package domain

import (
	"fmt"
	"strconv"
)

// Dimension names accepted by the query layer. Filter parsing rejects
// anything outside this set instead of silently ignoring it.
const (
	DimSex         = "sex"
	DimEquipment   = "equipment"
	DimWeightClass = "weight_class"
	DimAgeDiv      = "age_div"
	DimTested      = "tested"
	DimCountry     = "country"
	DimState       = "state"
	DimFederation  = "federation"
	DimYear        = "year"
)

// Dimensions lists every filterable dimension in canonical order.
var Dimensions = []string{
	DimSex, DimEquipment, DimWeightClass, DimAgeDiv, DimTested,
	DimCountry, DimState, DimFederation, DimYear,
}

// FilterSet is a conjunctive filter over the cohort dimensions. String
// values of "", "Any" or "All" mean "no constraint on this dimension" and
// never match against empty fields. Year arrives as a string so the query
// layer can distinguish a wildcard from a non-numeric value.
type FilterSet struct {
	Sex         string `json:"sex" validate:"omitempty,oneof=M F Any All"`
	Equipment   string `json:"equipment" validate:"omitempty,oneof=Raw Wraps Single-ply Multi-ply Any All"`
	WeightClass string `json:"weight_class" validate:"omitempty,max=8"`
	AgeDiv      string `json:"age_div" validate:"omitempty,max=16"`
	Tested      string `json:"tested" validate:"omitempty,oneof=Tested Untested Any All"`
	Country     string `json:"country" validate:"omitempty,max=64"`
	State       string `json:"state" validate:"omitempty,max=64"`
	Federation  string `json:"federation" validate:"omitempty,max=64"`
	Year        string `json:"year" validate:"omitempty,max=8"`
}

// IsWildcard reports whether a filter value leaves its dimension
// unconstrained.
func IsWildcard(v string) bool {
	return v == "" || v == "Any" || v == "All"
}

// YearValue coerces the year filter to an integer. ok is false when the
// year is a wildcard; a non-numeric value yields an error.
func (f FilterSet) YearValue() (year int, ok bool, err error) {
	if IsWildcard(f.Year) {
		return 0, false, nil
	}
	year, err = strconv.Atoi(f.Year)
	if err != nil {
		return 0, false, fmt.Errorf("year %q is not numeric", f.Year)
	}
	return year, true, nil
}

// Matches reports whether a record satisfies every constrained dimension.
// The year filter must already be validated; a non-numeric year matches
// nothing.
func (f FilterSet) Matches(r *CanonicalRecord) bool {
	if !IsWildcard(f.Sex) && string(r.Sex) != f.Sex {
		return false
	}
	if !IsWildcard(f.Equipment) && r.Equipment != f.Equipment {
		return false
	}
	if !IsWildcard(f.WeightClass) && r.WeightClass != f.WeightClass {
		return false
	}
	if !IsWildcard(f.AgeDiv) && r.AgeDiv != f.AgeDiv {
		return false
	}
	if !IsWildcard(f.Tested) && string(r.Tested) != f.Tested {
		return false
	}
	if !IsWildcard(f.Country) && r.Country != f.Country {
		return false
	}
	if !IsWildcard(f.State) && r.State != f.State {
		return false
	}
	if !IsWildcard(f.Federation) && r.Federation != f.Federation {
		return false
	}
	if year, ok, err := f.YearValue(); err != nil {
		return false
	} else if ok && r.Year != year {
		return false
	}
	return true
}
