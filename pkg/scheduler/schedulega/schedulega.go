// Package schedulega evolves a population of monthly schedules, seeded
// from the greedy baseline, toward lower fitness using elitism,
// tournament selection, and matrix-aware crossover/mutation.
package schedulega

import (
	"time"

	"github.com/google/uuid"
	"github.com/shiftcycle/shiftopt/pkg/model"
	"github.com/shiftcycle/shiftopt/pkg/rng"
	"github.com/shiftcycle/shiftopt/pkg/scheduler/evaluator"
	"github.com/shiftcycle/shiftopt/pkg/scheduler/gacommon"
)

// Crossover modes, selectable via model.OptimizerOptions.CrossoverMode.
const (
	CrossoverEmployee    = "employee"
	CrossoverSinglePoint = "single_point"
	CrossoverUniform     = "uniform"
)

// Mutation modes, selectable via model.OptimizerOptions.MutationMode.
const (
	MutationGuided = "guided" // swap mutation + guided reversion toward baseline
	MutationPoint  = "point"
)

// Defaults used when the matching model.OptimizerOptions field is unset.
const (
	DefaultPopulationSize    = 60
	DefaultMaxGenerations    = 300
	DefaultStagnationLimit   = 40
	DefaultMutationRate      = 0.05
	DefaultCrossoverRate     = 0.8
	DefaultTournamentSize    = 5
	DefaultBaselineAdherence = 0.7
	DefaultGATimeout         = 30 * time.Minute
)

func defaultEliteCount(pop int) int {
	e := pop / 20
	if e < 1 {
		e = 1
	}
	return e
}

// Result is what Run returns: the best schedule found, its evaluation,
// and terminal GA bookkeeping.
type Result struct {
	Schedule model.Schedule
	Report   evaluator.Report
	Stats    gacommon.Stats
}

type individual struct {
	schedule model.Schedule
	report   evaluator.Report
}

// Run evolves schedules starting from baseline until one of the four
// termination conditions fires. deadline is a wall-clock cutoff (zero
// value means no timeout); cancel is polled once per generation.
func Run(cfg *model.Config, baseline model.Schedule, opts *model.OptimizerOptions, source *rng.Source, reporter gacommon.Reporter, cancel gacommon.Cancel, deadline time.Time) Result {
	if reporter == nil {
		reporter = gacommon.NoopReporter
	}
	start := time.Now()

	popSize := opts.PopulationSizeOr(DefaultPopulationSize)
	maxGen := opts.MaxGenerationsOr(DefaultMaxGenerations)
	stagnationLimit := opts.StagnationLimitOr(DefaultStagnationLimit)
	eliteCount := opts.EliteCountOr(defaultEliteCount(popSize))
	mutationRate := opts.MutationRateOr(DefaultMutationRate)
	crossoverRate := opts.CrossoverRateOr(DefaultCrossoverRate)
	tournamentSize := opts.TournamentSizeOr(DefaultTournamentSize)
	baselineAdherence := opts.BaselineAdherenceOr(DefaultBaselineAdherence)
	crossoverMode := opts.CrossoverModeOr(CrossoverEmployee)
	mutationMode := opts.MutationModeOr(MutationGuided)
	var weights *model.Weights
	if opts != nil {
		weights = opts.Weights
	}

	employeeIDs := make([]uuid.UUID, 0, len(cfg.Employees))
	allowedByEmployee := make(map[uuid.UUID][]model.ShiftID, len(cfg.Employees))
	shiftSet := cfg.ShiftSetLookup()
	for _, e := range cfg.Employees {
		employeeIDs = append(employeeIDs, e.ID)
		allowedByEmployee[e.ID] = allowedShifts(shiftSet, e)
	}

	population := initialisePopulation(baseline, employeeIDs, allowedByEmployee, popSize, source)
	scored := evaluatePopulation(population, cfg, baseline, weights)
	sortAscending(scored)

	best := scored[0]
	stagnation := 0
	generation := 0
	reason := gacommon.ReasonGenerationsExhausted

	for ; generation < maxGen; generation++ {
		if best.report.Fitness == 0 {
			reason = gacommon.ReasonTargetReached
			break
		}
		if cancel != nil && cancel() {
			reason = gacommon.ReasonCancelled
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			reason = gacommon.ReasonTimeout
			break
		}
		if stagnation >= stagnationLimit {
			reason = gacommon.ReasonStagnation
			break
		}

		if generation%gacommon.Stride == 0 {
			reporter.Report(gacommon.Progress{
				Generation: generation, MaxGenerations: maxGen,
				BestFitness: best.report.Fitness, Stagnation: stagnation,
				AvgFitness: averageFitness(scored), IsValid: best.report.IsValid,
				TimeMs: time.Since(start).Milliseconds(),
			})
		}

		next := make([]individual, 0, popSize)
		for i := 0; i < eliteCount && i < len(scored); i++ {
			next = append(next, scored[i])
		}

		for len(next) < popSize {
			if source.Bool(crossoverRate) {
				parentA := tournamentSelect(scored, tournamentSize, source)
				parentB := tournamentSelect(scored, tournamentSize, source)
				child := crossover(parentA.schedule, parentB.schedule, employeeIDs, crossoverMode, source)
				mutate(child, baseline, allowedByEmployee, employeeIDs, mutationRate, mutationMode, baselineAdherence, source)
				next = append(next, individual{schedule: child})
			} else {
				parent := tournamentSelect(scored, tournamentSize, source)
				child := parent.schedule.Clone()
				mutate(child, baseline, allowedByEmployee, employeeIDs, 2*mutationRate, mutationMode, baselineAdherence, source)
				next = append(next, individual{schedule: child})
			}
		}

		scored = evaluatePopulation(schedulesOf(next), cfg, baseline, weights)
		sortAscending(scored)

		if scored[0].report.Fitness < best.report.Fitness {
			best = scored[0]
			stagnation = 0
		} else {
			stagnation++
		}
	}

	stats := gacommon.Stats{
		State:             terminalState(reason),
		Generations:       generation,
		BestFitness:       best.report.Fitness,
		Stagnation:        stagnation,
		Elapsed:           time.Since(start),
		TerminationReason: reason,
	}
	return Result{Schedule: best.schedule, Report: best.report, Stats: stats}
}

func terminalState(reason string) gacommon.State {
	switch reason {
	case gacommon.ReasonTimeout:
		return gacommon.StateTimedOut
	case gacommon.ReasonStagnation:
		return gacommon.StateStagnated
	default:
		return gacommon.StateDone
	}
}

func allowedShifts(shiftSet *model.ShiftSet, e model.Employee) []model.ShiftID {
	var out []model.ShiftID
	for _, id := range shiftSet.IDs() {
		if !e.Excludes(id) {
			out = append(out, id)
		}
	}
	return out
}

func schedulesOf(pop []individual) []model.Schedule {
	out := make([]model.Schedule, len(pop))
	for i, ind := range pop {
		out[i] = ind.schedule
	}
	return out
}

func evaluatePopulation(pop []model.Schedule, cfg *model.Config, baseline model.Schedule, weights *model.Weights) []individual {
	out := make([]individual, len(pop))
	for i, s := range pop {
		out[i] = individual{schedule: s, report: evaluator.Evaluate(s, cfg, baseline, weights)}
	}
	return out
}

func sortAscending(pop []individual) {
	// insertion sort is fine here: population sizes are small (tens to
	// low hundreds) and this runs once per generation.
	for i := 1; i < len(pop); i++ {
		for j := i; j > 0 && pop[j].report.Fitness < pop[j-1].report.Fitness; j-- {
			pop[j], pop[j-1] = pop[j-1], pop[j]
		}
	}
}

func averageFitness(pop []individual) float64 {
	if len(pop) == 0 {
		return 0
	}
	var sum float64
	for _, ind := range pop {
		sum += ind.report.Fitness
	}
	return sum / float64(len(pop))
}

func tournamentSelect(pop []individual, size int, source *rng.Source) individual {
	if size > len(pop) {
		size = len(pop)
	}
	best := pop[source.Intn(len(pop))]
	for i := 1; i < size; i++ {
		candidate := pop[source.Intn(len(pop))]
		if candidate.report.Fitness < best.report.Fitness {
			best = candidate
		}
	}
	return best
}
