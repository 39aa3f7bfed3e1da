package schedulega

import (
	"github.com/google/uuid"
	"github.com/shiftcycle/shiftopt/pkg/model"
	"github.com/shiftcycle/shiftopt/pkg/rng"
)

// initialisePopulation builds the starting population: individual 0 is an
// exact copy of baseline; individual i perturbs each cell independently
// with probability 0.02 + 0.15*i/N, drawing from the employee's allowed
// shift set.
func initialisePopulation(baseline model.Schedule, employeeIDs []uuid.UUID, allowed map[uuid.UUID][]model.ShiftID, popSize int, source *rng.Source) []model.Schedule {
	out := make([]model.Schedule, popSize)
	out[0] = baseline.Clone()

	for i := 1; i < popSize; i++ {
		p := 0.02 + 0.15*float64(i)/float64(popSize)
		out[i] = perturb(baseline, employeeIDs, allowed, p, source)
	}
	return out
}

func perturb(baseline model.Schedule, employeeIDs []uuid.UUID, allowed map[uuid.UUID][]model.ShiftID, p float64, source *rng.Source) model.Schedule {
	clone := baseline.Clone()
	for _, id := range employeeIDs {
		es, ok := clone[id]
		if !ok {
			continue
		}
		candidates := allowed[id]
		if len(candidates) == 0 {
			continue
		}
		for day := range es.Shifts {
			if source.Bool(p) {
				es.Shifts[day] = rng.Pick(source, candidates)
			}
		}
		es.Source = model.SourceGA
		clone[id] = es
	}
	return clone
}
