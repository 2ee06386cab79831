package cohort

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plstats/internal/shared/testutil"
	"plstats/pkg/contracts/domain"
)

func sampleRecords() []domain.CanonicalRecord {
	return []domain.CanonicalRecord{
		{
			Sex: domain.SexMale, Equipment: "Raw", WeightClass: "83", AgeDiv: "Open",
			Tested: domain.Tested, Country: "USA", State: "TX", Federation: "USAPL",
			Year: 2023, SquatKg: 180, BenchKg: 120, DeadliftKg: 220, TotalKg: 520,
		},
		{
			Sex: domain.SexMale, Equipment: "Raw", WeightClass: "93", AgeDiv: "Open",
			Tested: domain.Untested, Country: "USA", State: "CA", Federation: "USPA",
			Year: 2024, SquatKg: 200, BenchKg: 140, DeadliftKg: 250, TotalKg: 590,
		},
		{
			Sex: domain.SexFemale, Equipment: "Wraps", WeightClass: "63", AgeDiv: "Junior",
			Tested: domain.Tested, Country: "Canada", State: "ON", Federation: "CPU",
			Year: 2023, SquatKg: 130, BenchKg: 70, DeadliftKg: 160, TotalKg: 360,
		},
		{
			Sex: domain.SexFemale, Equipment: "Raw", WeightClass: "72", AgeDiv: "Open",
			Tested: domain.Tested, Country: "Canada", Federation: "CPU",
			Year: 2022, SquatKg: 145, BenchKg: 80, DeadliftKg: 175, TotalKg: 400,
		},
	}
}

func TestSelectAppliesAllDimensions(t *testing.T) {
	snap := NewSnapshot(sampleRecords())

	tests := []struct {
		name    string
		filters domain.FilterSet
		want    int
	}{
		{"no filters", domain.FilterSet{}, 4},
		{"wildcard values", domain.FilterSet{Sex: "Any", Equipment: "All"}, 4},
		{"by sex", domain.FilterSet{Sex: "M"}, 2},
		{"by state", domain.FilterSet{State: "TX"}, 1},
		{"state and sex conflict", domain.FilterSet{State: "TX", Sex: "F"}, 0},
		{"by country", domain.FilterSet{Country: "Canada"}, 2},
		{"country and equipment", domain.FilterSet{Country: "Canada", Equipment: "Raw"}, 1},
		{"by year", domain.FilterSet{Year: "2023"}, 2},
		{"non-numeric year", domain.FilterSet{Year: "soon"}, 0},
		{
			"composite",
			domain.FilterSet{Sex: "M", Equipment: "Raw", WeightClass: "83", AgeDiv: "Open", Tested: "Tested"},
			1,
		},
		{"by federation", domain.FilterSet{Federation: "CPU"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, snap.Select(tt.filters), tt.want)
		})
	}
}

func TestSelectReturnsLiftValues(t *testing.T) {
	snap := NewSnapshot(sampleRecords())

	rows := snap.Select(domain.FilterSet{State: "TX"})

	require.Len(t, rows, 1)
	assert.Equal(t, domain.LiftValues{Squat: 180, Bench: 120, Deadlift: 220, Total: 520}, rows[0])
}

func TestMetadata(t *testing.T) {
	snap := NewSnapshot(sampleRecords())

	md := snap.Metadata()

	assert.Equal(t, 4, md.TotalRecords)
	assert.Equal(t, []string{"Canada", "USA"}, md.Countries)
	assert.Equal(t, []string{"CPU", "USAPL", "USPA"}, md.Federations)
	assert.Equal(t, []string{"Raw", "Wraps"}, md.EquipmentTypes)
	assert.Equal(t, []string{"83", "93"}, md.WeightClasses["M"])
	assert.Equal(t, []string{"63", "72"}, md.WeightClasses["F"])
	assert.Equal(t, []string{"2024", "2023", "2022"}, md.Years)
	assert.Equal(t, []string{"CA", "TX"}, md.StatesByCountry["USA"])
	assert.Equal(t, []string{"ON"}, md.StatesByCountry["Canada"])
	assert.Equal(t, domain.YearRange{MinYear: 2022, MaxYear: 2024}, md.DateRange)
}

func TestFilterOptionsIgnoresOwnDimension(t *testing.T) {
	snap := NewSnapshot(sampleRecords())

	// Enumerating equipment with an equipment filter set must not narrow
	// the result to the already-selected value.
	options := snap.FilterOptions(domain.DimEquipment, domain.FilterSet{Equipment: "Raw", Country: "Canada"})

	assert.Equal(t, []string{"Raw", "Wraps"}, options)
}

func TestFilterOptionsRespectsOtherDimensions(t *testing.T) {
	snap := NewSnapshot(sampleRecords())

	assert.Equal(t, []string{"CA", "TX"}, snap.FilterOptions(domain.DimState, domain.FilterSet{Country: "USA"}))
	assert.Equal(t, []string{"2023", "2024"}, snap.FilterOptions(domain.DimYear, domain.FilterSet{Sex: "M"}))
	assert.Nil(t, snap.FilterOptions("bogus", domain.FilterSet{}))
}

func TestWeightClassOrdering(t *testing.T) {
	classes := []string{"120+", "59", "120", "105", "66"}
	sortWeightClasses(classes)
	assert.Equal(t, []string{"59", "66", "105", "120", "120+"}, classes)
}

func TestHolderSwapUnderConcurrentReads(t *testing.T) {
	logger, _ := testutil.NewTestLogger()
	holder := NewHolder(logger)
	require.Nil(t, holder.Current())

	snapshots := make([]*Snapshot, 8)
	for i := range snapshots {
		records := make([]domain.CanonicalRecord, i+1)
		for j := range records {
			records[j] = domain.CanonicalRecord{
				Sex: domain.SexMale, Equipment: "Raw", WeightClass: "83",
				AgeDiv: "Open", Tested: domain.Tested,
				Country: fmt.Sprintf("C%d", i),
			}
		}
		snapshots[i] = NewSnapshot(records)
	}
	holder.Publish(snapshots[0])

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := holder.Current()
				// Every observed snapshot is internally consistent.
				assert.Equal(t, snap.Len(), snap.Metadata().TotalRecords)
			}
		}()
	}

	for _, snap := range snapshots[1:] {
		holder.Publish(snap)
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, 8, holder.Current().Len())
}
