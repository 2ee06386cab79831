// Package classify derives the canonical categorical dimensions of a
// competition result: the age division and the IPF weight class. All tables
// are carried by an immutable Tables value built from configuration, so
// alternate threshold tables can be substituted in tests.
package classify

import (
	"fmt"
	"strconv"

	"plstats/internal/config"
	"plstats/pkg/contracts/domain"
)

// openEndSentinel marks the unbounded final weight class threshold.
const openEndSentinel = 999

// Tables holds the classification tables. The zero value is not usable;
// construct via NewTables.
type Tables struct {
	equipment      map[string]string
	weightClassesM []float64
	weightClassesF []float64
	ageBands       []config.AgeBand
}

// NewTables builds an immutable Tables from configuration. The inputs are
// copied, so later mutation of the config does not leak in.
func NewTables(cfg config.ClassificationConfig) (*Tables, error) {
	if len(cfg.WeightClassesM) < 2 || len(cfg.WeightClassesF) < 2 {
		return nil, fmt.Errorf("weight class tables need at least two thresholds")
	}
	if len(cfg.AgeBands) == 0 {
		return nil, fmt.Errorf("age band table is empty")
	}
	if last := cfg.AgeBands[len(cfg.AgeBands)-1]; last.Upper != 0 {
		return nil, fmt.Errorf("final age band %q must be unbounded", last.Name)
	}

	t := &Tables{
		equipment:      make(map[string]string, len(cfg.EquipmentMap)),
		weightClassesM: append([]float64(nil), cfg.WeightClassesM...),
		weightClassesF: append([]float64(nil), cfg.WeightClassesF...),
		ageBands:       append([]config.AgeBand(nil), cfg.AgeBands...),
	}
	for raw, canonical := range cfg.EquipmentMap {
		t.equipment[raw] = canonical
	}
	return t, nil
}

// Equipment maps a raw equipment value to its canonical label. ok is false
// for values outside the configured map; such rows are dropped upstream.
func (t *Tables) Equipment(raw string) (label string, ok bool) {
	label, ok = t.equipment[raw]
	return label, ok
}

// AgeDivision returns the division for an age using the disjoint contiguous
// partition: the bands are walked in order and the first whose exclusive
// upper bound exceeds the age wins, with the final band catching everything
// else. Every real-valued age resolves to exactly one division; negative
// ages land in the first band.
func (t *Tables) AgeDivision(age float64) string {
	for _, band := range t.ageBands {
		if band.Upper == 0 {
			return band.Name
		}
		if age < band.Upper {
			return band.Name
		}
	}
	// Unreachable: NewTables guarantees an unbounded final band.
	return t.ageBands[len(t.ageBands)-1].Name
}

// WeightClass returns the class label for a bodyweight and sex. Thresholds
// are walked ascending and the first one at or above the bodyweight wins.
// The open-ended sentinel renders as "<previous>+", e.g. "120+". A
// bodyweight beyond every finite threshold falls back to the open label
// rather than failing.
func (t *Tables) WeightClass(bodyweightKg float64, sex domain.Sex) string {
	classes := t.weightClassesM
	if sex == domain.SexFemale {
		classes = t.weightClassesF
	}

	for i, wc := range classes {
		if bodyweightKg <= wc {
			if wc == openEndSentinel {
				return formatThreshold(classes[i-1]) + "+"
			}
			return formatThreshold(wc)
		}
	}

	return formatThreshold(classes[len(classes)-2]) + "+"
}

func formatThreshold(wc float64) string {
	return strconv.FormatFloat(wc, 'f', -1, 64)
}
