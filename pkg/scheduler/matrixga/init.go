package matrixga

import (
	"github.com/google/uuid"
	"github.com/shiftcycle/shiftopt/pkg/model"
	"github.com/shiftcycle/shiftopt/pkg/rng"
)

// initialisePopulation builds popSize candidate chromosomes. When
// useCurrentAsSeed is set, individual 0 is the matrices' current grid
// verbatim; every other individual (and individual 0 when not seeding) is
// built by smart, per-column coverage-driven initialization.
func initialisePopulation(cfg *model.Config, evolvingIDs []uuid.UUID, fixed []model.Matrix, allowed map[uuid.UUID][]model.ShiftID, popSize int, useCurrentAsSeed bool, source *rng.Source) []Chromosome {
	pop := make([]Chromosome, 0, popSize)
	if useCurrentAsSeed {
		pop = append(pop, currentChromosome(cfg, evolvingIDs))
	}
	for len(pop) < popSize {
		pop = append(pop, smartInit(cfg, evolvingIDs, fixed, allowed, source))
	}
	return pop
}

func currentChromosome(cfg *model.Config, evolvingIDs []uuid.UUID) Chromosome {
	out := make(Chromosome, len(evolvingIDs))
	for _, id := range evolvingIDs {
		if m, ok := cfg.MatrixByID(id); ok {
			out[id] = m.Clone()
		}
	}
	return out
}

// smartInit fills every evolving matrix column by column: each column
// first receives whatever coverage its fixed matrices still owe, dropped
// into rows whose representative employee can legally work it, then any
// remaining cells are filled uniformly from the matrix's allowed set.
func smartInit(cfg *model.Config, evolvingIDs []uuid.UUID, fixed []model.Matrix, allowed map[uuid.UUID][]model.ShiftID, source *rng.Source) Chromosome {
	out := make(Chromosome, len(evolvingIDs))
	for _, id := range evolvingIDs {
		current, ok := cfg.MatrixByID(id)
		if !ok {
			continue
		}
		out[id] = smartInitMatrix(cfg, id, current.R(), current.C(), fixed, allowed[id], source)
	}
	return out
}

func smartInitMatrix(cfg *model.Config, matrixID uuid.UUID, rows, cols int, fixed []model.Matrix, allowed []model.ShiftID, source *rng.Source) model.Matrix {
	grid := make([][]model.ShiftID, rows)
	for r := range grid {
		grid[r] = make([]model.ShiftID, cols)
	}
	if len(allowed) == 0 {
		return model.Matrix{ID: matrixID, Rows: grid}
	}

	filled := make([][]bool, rows)
	for r := range filled {
		filled[r] = make([]bool, cols)
	}

	for col := 0; col < cols; col++ {
		toAssign := requiredForColumn(cfg, fixed, col)

		rowOrder := make([]int, rows)
		for r := range rowOrder {
			rowOrder[r] = r
		}
		source.Shuffle(len(rowOrder), func(i, j int) { rowOrder[i], rowOrder[j] = rowOrder[j], rowOrder[i] })

		for _, r := range rowOrder {
			if len(toAssign) == 0 {
				break
			}
			emp, hasEmp := rowEmployee(cfg, matrixID, r, rows)
			next := toAssign[0]
			if isExcludedFromAllowed(allowed, next) {
				toAssign = toAssign[1:]
				continue
			}
			if hasEmp && emp.Excludes(next) {
				continue
			}
			grid[r][col] = next
			filled[r][col] = true
			toAssign = toAssign[1:]
		}
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if filled[r][c] {
				continue
			}
			emp, hasEmp := rowEmployee(cfg, matrixID, r, rows)
			candidates := allowed
			if hasEmp {
				candidates = excludeFor(allowed, emp)
			}
			if len(candidates) == 0 {
				candidates = allowed
			}
			grid[r][c] = rng.Pick(source, candidates)
		}
	}

	return model.Matrix{ID: matrixID, Rows: grid}
}

// requiredForColumn returns, for every coverage rule still short after the
// fixed matrices' contribution at this column, the rule's representative
// shift repeated once per missing unit.
func requiredForColumn(cfg *model.Config, fixed []model.Matrix, col int) []model.ShiftID {
	var out []model.ShiftID
	for _, rule := range cfg.CoverageRules {
		if len(rule.Shifts) == 0 {
			continue
		}
		supplied := 0
		for _, m := range fixed {
			c := m.C()
			if c == 0 {
				continue
			}
			aligned := col % c
			for _, row := range m.Rows {
				if rule.Contains(row[aligned]) {
					supplied++
				}
			}
		}
		missing := rule.Min - supplied
		for i := 0; i < missing; i++ {
			out = append(out, rule.Shifts[0])
		}
	}
	return out
}

func excludeFor(allowed []model.ShiftID, emp model.Employee) []model.ShiftID {
	var out []model.ShiftID
	for _, id := range allowed {
		if !emp.Excludes(id) {
			out = append(out, id)
		}
	}
	return out
}
