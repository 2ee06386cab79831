// Package cohort holds the in-memory record set queries run against. A
// Snapshot is immutable once built; refreshes build a new one and publish
// it through the Holder, so readers never see a partially loaded dataset.
package cohort

import (
	"sort"
	"strconv"
	"strings"

	"plstats/pkg/contracts/domain"
)

// compositeKey indexes the five low-cardinality dimensions most queries
// constrain together.
type compositeKey struct {
	Sex         string
	Equipment   string
	WeightClass string
	AgeDiv      string
	Tested      string
}

// Snapshot is an immutable, indexed view of one cleaned dataset.
type Snapshot struct {
	records []domain.CanonicalRecord

	bySex     map[string][]int32
	byCountry map[string][]int32
	byState   map[string][]int32
	composite map[compositeKey][]int32

	metadata domain.Metadata
}

// NewSnapshot builds a snapshot over records. The slice is owned by the
// snapshot afterwards and must not be mutated by the caller.
func NewSnapshot(records []domain.CanonicalRecord) *Snapshot {
	s := &Snapshot{
		records:   records,
		bySex:     make(map[string][]int32),
		byCountry: make(map[string][]int32),
		byState:   make(map[string][]int32),
		composite: make(map[compositeKey][]int32),
	}

	for i := range records {
		r := &records[i]
		idx := int32(i)
		s.bySex[string(r.Sex)] = append(s.bySex[string(r.Sex)], idx)
		if r.Country != "" {
			s.byCountry[r.Country] = append(s.byCountry[r.Country], idx)
		}
		if r.State != "" {
			s.byState[r.State] = append(s.byState[r.State], idx)
		}
		key := compositeKey{
			Sex:         string(r.Sex),
			Equipment:   r.Equipment,
			WeightClass: r.WeightClass,
			AgeDiv:      r.AgeDiv,
			Tested:      string(r.Tested),
		}
		s.composite[key] = append(s.composite[key], idx)
	}

	s.metadata = buildMetadata(records)
	return s
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int { return len(s.records) }

// Metadata describes the snapshot's filterable universe.
func (s *Snapshot) Metadata() domain.Metadata { return s.metadata }

// Select returns the lift values of every record matching the filter set.
// A candidate posting list narrows the scan when the filters allow it; the
// full filter is always re-applied to candidates, so the lists only have
// to be supersets.
func (s *Snapshot) Select(filters domain.FilterSet) []domain.LiftValues {
	candidates := s.candidates(filters)

	out := make([]domain.LiftValues, 0, len(candidates))
	for _, idx := range candidates {
		r := &s.records[idx]
		if filters.Matches(r) {
			out = append(out, r.Lifts())
		}
	}
	return out
}

// candidates picks the narrowest applicable posting list. Geography first:
// state and country partitions are far smaller than anything else in this
// dataset. Falls back to a full scan only when nothing is constrained.
func (s *Snapshot) candidates(filters domain.FilterSet) []int32 {
	if !domain.IsWildcard(filters.State) {
		return s.byState[filters.State]
	}
	if !domain.IsWildcard(filters.Country) {
		return s.byCountry[filters.Country]
	}
	if !domain.IsWildcard(filters.Sex) &&
		!domain.IsWildcard(filters.Equipment) &&
		!domain.IsWildcard(filters.WeightClass) &&
		!domain.IsWildcard(filters.AgeDiv) &&
		!domain.IsWildcard(filters.Tested) {
		return s.composite[compositeKey{
			Sex:         filters.Sex,
			Equipment:   filters.Equipment,
			WeightClass: filters.WeightClass,
			AgeDiv:      filters.AgeDiv,
			Tested:      filters.Tested,
		}]
	}
	if !domain.IsWildcard(filters.Sex) {
		return s.bySex[filters.Sex]
	}

	all := make([]int32, len(s.records))
	for i := range all {
		all[i] = int32(i)
	}
	return all
}

// FilterOptions returns the distinct values the given dimension takes among
// records matching every OTHER constrained dimension. This is what filter
// controls use to avoid offering combinations with no data.
func (s *Snapshot) FilterOptions(dimension string, filters domain.FilterSet) []string {
	// The dimension being enumerated must not constrain itself.
	switch dimension {
	case domain.DimSex:
		filters.Sex = ""
	case domain.DimEquipment:
		filters.Equipment = ""
	case domain.DimWeightClass:
		filters.WeightClass = ""
	case domain.DimAgeDiv:
		filters.AgeDiv = ""
	case domain.DimTested:
		filters.Tested = ""
	case domain.DimCountry:
		filters.Country = ""
	case domain.DimState:
		filters.State = ""
	case domain.DimFederation:
		filters.Federation = ""
	case domain.DimYear:
		filters.Year = ""
	default:
		return nil
	}

	seen := make(map[string]struct{})
	for _, idx := range s.candidates(filters) {
		r := &s.records[idx]
		if !filters.Matches(r) {
			continue
		}
		if v := dimensionValue(r, dimension); v != "" {
			seen[v] = struct{}{}
		}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	if dimension == domain.DimWeightClass {
		sortWeightClasses(values)
	} else {
		sort.Strings(values)
	}
	return values
}

func dimensionValue(r *domain.CanonicalRecord, dimension string) string {
	switch dimension {
	case domain.DimSex:
		return string(r.Sex)
	case domain.DimEquipment:
		return r.Equipment
	case domain.DimWeightClass:
		return r.WeightClass
	case domain.DimAgeDiv:
		return r.AgeDiv
	case domain.DimTested:
		return string(r.Tested)
	case domain.DimCountry:
		return r.Country
	case domain.DimState:
		return r.State
	case domain.DimFederation:
		return r.Federation
	case domain.DimYear:
		if r.Year == 0 {
			return ""
		}
		return strconv.Itoa(r.Year)
	}
	return ""
}

// sortWeightClasses orders class labels numerically, with the open-ended
// "+" class sorting after its bounded counterpart.
func sortWeightClasses(classes []string) {
	sort.Slice(classes, func(i, j int) bool {
		ni, oi := weightClassKey(classes[i])
		nj, oj := weightClassKey(classes[j])
		if ni != nj {
			return ni < nj
		}
		return !oi && oj
	})
}

func weightClassKey(class string) (threshold float64, open bool) {
	open = strings.HasSuffix(class, "+")
	threshold, _ = strconv.ParseFloat(strings.TrimSuffix(class, "+"), 64)
	return threshold, open
}
