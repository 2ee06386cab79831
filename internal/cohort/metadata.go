package cohort

import (
	"sort"
	"strconv"

	"plstats/pkg/contracts/domain"
)

// buildMetadata computes the snapshot's metadata once at construction so
// the /api/metadata path is a plain read.
func buildMetadata(records []domain.CanonicalRecord) domain.Metadata {
	countries := make(map[string]struct{})
	federations := make(map[string]struct{})
	equipment := make(map[string]struct{})
	ageDivs := make(map[string]struct{})
	years := make(map[int]struct{})
	classesBySex := map[string]map[string]struct{}{
		string(domain.SexMale):   {},
		string(domain.SexFemale): {},
	}
	statesByCountry := make(map[string]map[string]struct{})

	minYear, maxYear := 0, 0
	for i := range records {
		r := &records[i]
		if r.Country != "" {
			countries[r.Country] = struct{}{}
			if r.State != "" {
				if statesByCountry[r.Country] == nil {
					statesByCountry[r.Country] = make(map[string]struct{})
				}
				statesByCountry[r.Country][r.State] = struct{}{}
			}
		}
		if r.Federation != "" {
			federations[r.Federation] = struct{}{}
		}
		equipment[r.Equipment] = struct{}{}
		ageDivs[r.AgeDiv] = struct{}{}
		classesBySex[string(r.Sex)][r.WeightClass] = struct{}{}
		if r.Year != 0 {
			years[r.Year] = struct{}{}
			if minYear == 0 || r.Year < minYear {
				minYear = r.Year
			}
			if r.Year > maxYear {
				maxYear = r.Year
			}
		}
	}

	weightClasses := make(map[string][]string, len(classesBySex))
	for sex, classes := range classesBySex {
		list := setToSlice(classes)
		sortWeightClasses(list)
		weightClasses[sex] = list
	}

	states := make(map[string][]string, len(statesByCountry))
	for country, set := range statesByCountry {
		list := setToSlice(set)
		sort.Strings(list)
		states[country] = list
	}

	// Most recent first, the order year pickers present them in.
	yearValues := make([]int, 0, len(years))
	for y := range years {
		yearValues = append(yearValues, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(yearValues)))
	yearLabels := make([]string, 0, len(yearValues))
	for _, y := range yearValues {
		yearLabels = append(yearLabels, strconv.Itoa(y))
	}

	return domain.Metadata{
		TotalRecords:    len(records),
		Countries:       sortedSet(countries),
		Federations:     sortedSet(federations),
		EquipmentTypes:  sortedSet(equipment),
		WeightClasses:   weightClasses,
		AgeDivisions:    sortedSet(ageDivs),
		TestedStatuses:  []string{string(domain.Tested), string(domain.Untested)},
		Years:           yearLabels,
		StatesByCountry: states,
		DateRange:       domain.YearRange{MinYear: minYear, MaxYear: maxYear},
	}
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}

func sortedSet(set map[string]struct{}) []string {
	out := setToSlice(set)
	sort.Strings(out)
	return out
}
