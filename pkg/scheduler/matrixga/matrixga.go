// Package matrixga evolves one cyclic matrix, or all matrices jointly, so
// that the baseline schedule they yield is already near-optimal. Every
// fitness probe is nested: it runs the baseline builder (C3) over the
// candidate matrices and scores the result with the evaluator (C2).
package matrixga

import (
	"time"

	"github.com/google/uuid"
	"github.com/shiftcycle/shiftopt/pkg/model"
	"github.com/shiftcycle/shiftopt/pkg/rng"
	"github.com/shiftcycle/shiftopt/pkg/scheduler/baseline"
	"github.com/shiftcycle/shiftopt/pkg/scheduler/constraint"
	"github.com/shiftcycle/shiftopt/pkg/scheduler/evaluator"
	"github.com/shiftcycle/shiftopt/pkg/scheduler/gacommon"
)

// Defaults — population is an order of magnitude larger than the
// schedule GA's, reflecting the coarser, more combinatorial search space.
const (
	DefaultPopulationSize  = 1000
	DefaultMaxGenerations  = 150
	DefaultStagnationLimit = 40
	DefaultMutationRate    = 0.05
	DefaultCrossoverRate   = 0.8
	DefaultTournamentSize  = 5
	DefaultGATimeout       = 3000 * time.Second
	DefaultEliteShare      = 0.05

	// RowViolationWeight scales the cheap per-row constraint-ring proxy
	// penalty that dominates the nested C2 fitness whenever a row itself
	// is structurally broken.
	RowViolationWeight = 10000.0

	// cellMutationBypassProbability is the fraction of cell mutations
	// that ignore the valid-next-shift bias entirely, letting the search
	// escape local optima the bias would otherwise trap it in.
	cellMutationBypassProbability = 0.02
)

func defaultEliteCount(pop int) int {
	e := int(float64(pop) * DefaultEliteShare)
	if e < 1 {
		e = 1
	}
	return e
}

// Mode selects which matrices a run evolves.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeJoint  Mode = "joint"
)

// Chromosome maps an evolving matrix's id to its candidate grid.
type Chromosome map[uuid.UUID]model.Matrix

// Result is what Run returns.
type Result struct {
	Matrices Chromosome
	Fitness  float64
	Schedule model.Schedule
	Stats    gacommon.Stats
}

type individual struct {
	chromosome Chromosome
	fitness    float64
	schedule   model.Schedule
}

// RunSingle evolves one matrix, holding every other matrix fixed.
func RunSingle(cfg *model.Config, targetMatrixID uuid.UUID, previous model.PreviousMonthSchedule, opts *model.OptimizerOptions, source *rng.Source, reporter gacommon.Reporter, cancel gacommon.Cancel, deadline time.Time) Result {
	return run(cfg, []uuid.UUID{targetMatrixID}, previous, opts, source, reporter, cancel, deadline)
}

// RunJoint evolves every matrix in cfg as a single individual.
func RunJoint(cfg *model.Config, previous model.PreviousMonthSchedule, opts *model.OptimizerOptions, source *rng.Source, reporter gacommon.Reporter, cancel gacommon.Cancel, deadline time.Time) Result {
	ids := make([]uuid.UUID, 0, len(cfg.Matrices))
	for _, m := range cfg.Matrices {
		ids = append(ids, m.ID)
	}
	return run(cfg, ids, previous, opts, source, reporter, cancel, deadline)
}

func run(cfg *model.Config, evolvingIDs []uuid.UUID, previous model.PreviousMonthSchedule, opts *model.OptimizerOptions, source *rng.Source, reporter gacommon.Reporter, cancel gacommon.Cancel, deadline time.Time) Result {
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
	useCurrentAsSeed := opts.UseCurrentAsSeedOr(false)
	var weights *model.Weights
	if opts != nil {
		weights = opts.Weights
	}

	fixed := fixedMatrices(cfg, evolvingIDs)
	allowed := make(map[uuid.UUID][]model.ShiftID, len(evolvingIDs))
	mustFollow := mustFollowMap(cfg.Constraints)
	for _, id := range evolvingIDs {
		allowed[id] = allowedShiftsForMatrix(cfg, id)
	}

	population := initialisePopulation(cfg, evolvingIDs, fixed, allowed, popSize, useCurrentAsSeed, source)
	scored := evaluatePopulation(population, cfg, fixed, previous, weights, source)
	var seed individual
	if useCurrentAsSeed {
		seed = scored[0]
	}
	sortAscending(scored)

	best := scored[0]

	stagnation := 0
	generation := 0
	reason := gacommon.ReasonGenerationsExhausted

	for ; generation < maxGen; generation++ {
		if best.fitness == 0 {
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
				BestFitness: best.fitness, Stagnation: stagnation,
				AvgFitness: averageFitness(scored),
				TimeMs:     time.Since(start).Milliseconds(),
			})
		}

		next := make([]Chromosome, 0, popSize)
		for i := 0; i < eliteCount && i < len(scored); i++ {
			next = append(next, cloneChromosome(scored[i].chromosome))
		}

		for len(next) < popSize {
			if source.Bool(crossoverRate) {
				parentA := tournamentSelect(scored, tournamentSize, source)
				parentB := tournamentSelect(scored, tournamentSize, source)
				child := crossoverRowWise(parentA.chromosome, parentB.chromosome, evolvingIDs, source)
				mutateChromosome(child, evolvingIDs, allowed, mustFollow, cfg.Constraints, mutationRate, source)
				next = append(next, child)
			} else {
				parent := tournamentSelect(scored, tournamentSize, source)
				child := cloneChromosome(parent.chromosome)
				mutateChromosome(child, evolvingIDs, allowed, mustFollow, cfg.Constraints, 2*mutationRate, source)
				next = append(next, child)
			}
		}

		if len(evolvingIDs) > 1 {
			jointRowShuffle(next, evolvingIDs, allowed, mutationRate, source)
		}

		scored = evaluatePopulation(next, cfg, fixed, previous, weights, source)
		sortAscending(scored)

		if scored[0].fitness < best.fitness {
			best = scored[0]
			stagnation = 0
		} else {
			stagnation++
		}
	}

	stats := gacommon.Stats{
		State:             terminalState(reason),
		Generations:       generation,
		BestFitness:       best.fitness,
		Stagnation:        stagnation,
		Elapsed:           time.Since(start),
		TerminationReason: reason,
	}
	if useCurrentAsSeed && best.fitness > seed.fitness {
		// Seed monotonicity: the evolved result is never worse than the
		// supplied seed — if the loop somehow produced a worse incumbent
		// than the seed we started from, prefer the seed itself.
		best = seed
	}
	return Result{Matrices: best.chromosome, Fitness: best.fitness, Schedule: best.schedule, Stats: stats}
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

func fixedMatrices(cfg *model.Config, evolvingIDs []uuid.UUID) []model.Matrix {
	evolving := make(map[uuid.UUID]bool, len(evolvingIDs))
	for _, id := range evolvingIDs {
		evolving[id] = true
	}
	var out []model.Matrix
	for _, m := range cfg.Matrices {
		if !evolving[m.ID] {
			out = append(out, m)
		}
	}
	return out
}

func cloneChromosome(c Chromosome) Chromosome {
	out := make(Chromosome, len(c))
	for id, m := range c {
		out[id] = m.Clone()
	}
	return out
}

func mergedConfig(cfg *model.Config, fixed []model.Matrix, chromosome Chromosome) *model.Config {
	matrices := make([]model.Matrix, 0, len(fixed)+len(chromosome))
	matrices = append(matrices, fixed...)
	for _, m := range chromosome {
		matrices = append(matrices, m)
	}
	clone := *cfg
	clone.Matrices = matrices
	return &clone
}

func evaluatePopulation(pop []Chromosome, cfg *model.Config, fixed []model.Matrix, previous model.PreviousMonthSchedule, weights *model.Weights, source *rng.Source) []individual {
	out := make([]individual, len(pop))
	for i, chromosome := range pop {
		out[i] = scoreChromosome(chromosome, cfg, fixed, previous, weights, source)
	}
	return out
}

func scoreChromosome(chromosome Chromosome, cfg *model.Config, fixed []model.Matrix, previous model.PreviousMonthSchedule, weights *model.Weights, source *rng.Source) individual {
	merged := mergedConfig(cfg, fixed, chromosome)

	var rowPenalty float64
	for _, m := range chromosome {
		for _, row := range m.Rows {
			rowPenalty += float64(len(constraint.Validate(row, cfg.Constraints, true))) * RowViolationWeight
		}
	}

	schedule, err := baseline.Build(merged, previous, source)
	if err != nil {
		// An unbuildable candidate (e.g. a mutation emptied a row) is
		// simply the worst possible individual — it will lose every
		// tournament and elitism never preserves it.
		return individual{chromosome: chromosome, fitness: rowPenalty + 1e12}
	}

	report := evaluator.Evaluate(schedule, merged, nil, weights)
	return individual{chromosome: chromosome, fitness: rowPenalty + report.Fitness, schedule: schedule}
}

func sortAscending(pop []individual) {
	for i := 1; i < len(pop); i++ {
		for j := i; j > 0 && pop[j].fitness < pop[j-1].fitness; j-- {
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
		sum += ind.fitness
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
		if candidate.fitness < best.fitness {
			best = candidate
		}
	}
	return best
}
