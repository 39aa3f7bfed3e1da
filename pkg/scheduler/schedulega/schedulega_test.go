package schedulega

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/shiftcycle/shiftopt/pkg/model"
	"github.com/shiftcycle/shiftopt/pkg/rng"
)

func TestGuidedMutation_FullAdherenceConvergesToBaseline(t *testing.T) {
	emp := uuid.New()
	baseline := model.Schedule{emp: {Shifts: []model.ShiftID{"M", "P", "N", "M", "P"}}}
	child := model.Schedule{emp: {Shifts: []model.ShiftID{"N", "N", "M", "P", "N"}}}

	source := rng.New(1)
	guidedMutation(child, baseline, []uuid.UUID{emp}, 1.0, 1.0, source)

	assert.Equal(t, baseline[emp].Shifts, child[emp].Shifts)
}

func TestCrossoverEmployee_PicksWholeRowFromOneParent(t *testing.T) {
	emp1, emp2 := uuid.New(), uuid.New()
	a := model.Schedule{
		emp1: {Shifts: []model.ShiftID{"M", "M"}},
		emp2: {Shifts: []model.ShiftID{"M", "M"}},
	}
	b := model.Schedule{
		emp1: {Shifts: []model.ShiftID{"N", "N"}},
		emp2: {Shifts: []model.ShiftID{"N", "N"}},
	}
	source := rng.New(7)
	child := crossoverEmployee(a, b, []uuid.UUID{emp1, emp2}, source)

	for _, id := range []uuid.UUID{emp1, emp2} {
		shifts := child[id].Shifts
		assert.True(t, shifts[0] == "M" || shifts[0] == "N")
		assert.Equal(t, shifts[0], shifts[1], "both days come from the same parent for a given employee")
	}
}

func TestInitialisePopulation_FirstIndividualIsExactBaselineCopy(t *testing.T) {
	emp := uuid.New()
	baseline := model.Schedule{emp: {Shifts: []model.ShiftID{"M", "P", "N"}}}
	allowed := map[uuid.UUID][]model.ShiftID{emp: {"M", "P", "N"}}
	source := rng.New(3)

	pop := initialisePopulation(baseline, []uuid.UUID{emp}, allowed, 5, source)
	assert.Equal(t, baseline[emp].Shifts, pop[0][emp].Shifts)
}

func TestSwapMutation_NeverProducesExclusionViolation(t *testing.T) {
	emp1, emp2 := uuid.New(), uuid.New()
	// emp1 excludes N, so emp1 must never receive emp2's "N" via a swap.
	allowed := map[uuid.UUID][]model.ShiftID{
		emp1: {"M"},
		emp2: {"M", "N"},
	}
	child := model.Schedule{
		emp1: {Shifts: []model.ShiftID{"M", "M"}},
		emp2: {Shifts: []model.ShiftID{"N", "M"}},
	}
	source := rng.New(9)
	for i := 0; i < 50; i++ {
		swapMutation(child, allowed, []uuid.UUID{emp1, emp2}, 1.0, source)
	}

	for _, day := range child[emp1].Shifts {
		assert.Equal(t, model.ShiftID("M"), day, "emp1 excludes N and must never receive it via a swap")
	}
	assert.Len(t, child[emp1].Shifts, 2)
	assert.Len(t, child[emp2].Shifts, 2)
}
