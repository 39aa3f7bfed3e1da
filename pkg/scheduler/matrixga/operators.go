package matrixga

import (
	"github.com/google/uuid"
	"github.com/shiftcycle/shiftopt/pkg/model"
	"github.com/shiftcycle/shiftopt/pkg/rng"
	"github.com/shiftcycle/shiftopt/pkg/scheduler/constraint"
)

// crossoverRowWise builds a child by taking each evolving matrix's row
// independently from parent A or B with probability ½, mirroring the
// schedule GA's per-employee row crossover at the matrix level.
func crossoverRowWise(a, b Chromosome, evolvingIDs []uuid.UUID, source *rng.Source) Chromosome {
	child := make(Chromosome, len(evolvingIDs))
	for _, id := range evolvingIDs {
		ma, mb := a[id], b[id]
		rows := make([][]model.ShiftID, len(ma.Rows))
		for r := range rows {
			if source.Bool(0.5) {
				rows[r] = append([]model.ShiftID(nil), ma.Rows[r]...)
			} else {
				rows[r] = append([]model.ShiftID(nil), mb.Rows[r]...)
			}
		}
		child[id] = model.Matrix{ID: id, Rows: rows}
	}
	return child
}

// mutateChromosome applies, in order: cell mutation (valid-next-shift
// biased with a random bypass), smart follower insertion/deletion, block
// swap, and row rotation, to every evolving matrix in place.
func mutateChromosome(c Chromosome, evolvingIDs []uuid.UUID, allowed map[uuid.UUID][]model.ShiftID, mustFollow map[model.ShiftID]model.ShiftID, constraints []model.Constraint, rate float64, source *rng.Source) {
	for _, id := range evolvingIDs {
		m := c[id]
		candidates := allowed[id]
		if len(candidates) == 0 {
			continue
		}
		for r := range m.Rows {
			before := append([]model.ShiftID(nil), m.Rows[r]...)
			cellMutateRow(m.Rows[r], candidates, constraints, rate, source)
			followerInsertDeleteRow(m.Rows[r], before, mustFollow, candidates, source)
			blockSwapRow(m.Rows[r], mustFollow, rate, source)
			rotateRow(m.Rows[r], rate, source)
		}
		c[id] = m
	}
}

// cellMutateRow mutates each cell with probability rate. With 2%
// probability the replacement ignores the valid-next-shift bias entirely
// (uniform pick); otherwise it prefers a candidate that keeps the row's
// cyclic ring clean at this position.
func cellMutateRow(row []model.ShiftID, candidates []model.ShiftID, constraints []model.Constraint, rate float64, source *rng.Source) {
	for i := range row {
		if !source.Bool(rate) {
			continue
		}
		if source.Bool(cellMutationBypassProbability) {
			row[i] = rng.Pick(source, candidates)
			continue
		}
		valid := constraint.ValidNextShiftsCyclic(row, i, candidates, constraints)
		if len(valid) == 0 {
			valid = candidates
		}
		row[i] = rng.Pick(source, valid)
	}
}

// followerInsertDeleteRow consults the cached must_follow map against the
// row's state before this generation's cell mutation ran. A cell that
// newly enforces a follower gets that follower written into the next
// cyclic cell (insertion). A cell that used to enforce a follower but no
// longer does, while its follower cell is still the stale value nothing
// else wrote this pass, has that follower cell cleared back to a random
// candidate (deletion).
func followerInsertDeleteRow(row []model.ShiftID, before []model.ShiftID, mustFollow map[model.ShiftID]model.ShiftID, candidates []model.ShiftID, source *rng.Source) {
	n := len(row)
	if n == 0 {
		return
	}
	for i := 0; i < n; i++ {
		next := (i + 1) % n
		oldFollower, hadFollower := mustFollow[before[i]]
		newFollower, hasFollower := mustFollow[row[i]]

		switch {
		case hasFollower && row[i] != before[i]:
			row[next] = newFollower
		case hadFollower && row[i] != before[i] && row[next] == oldFollower:
			row[next] = rng.Pick(source, candidates)
		}
	}
}

// blockSwapRow swaps two cells, and also swaps their cyclic successors
// when either newly placed cell enforces a must_follow follower.
func blockSwapRow(row []model.ShiftID, mustFollow map[model.ShiftID]model.ShiftID, rate float64, source *rng.Source) {
	n := len(row)
	if n < 4 || !source.Bool(rate) {
		return
	}
	i := source.Intn(n)
	j := source.Intn(n)
	if i == j {
		return
	}
	iNext, jNext := (i+1)%n, (j+1)%n
	row[i], row[j] = row[j], row[i]
	_, iEnforces := mustFollow[row[i]]
	_, jEnforces := mustFollow[row[j]]
	if iEnforces || jEnforces {
		row[iNext], row[jNext] = row[jNext], row[iNext]
	}
}

// rotateRow rotates the whole row by a random offset with probability
// rate/2, which preserves every internal adjacency — a pure phase shift.
func rotateRow(row []model.ShiftID, rate float64, source *rng.Source) {
	n := len(row)
	if n < 2 || !source.Bool(rate/2) {
		return
	}
	k := 1 + source.Intn(n-1)
	rotated := make([]model.ShiftID, n)
	for i := range row {
		rotated[(i+k)%n] = row[i]
	}
	copy(row, rotated)
}

// jointRowShuffle occasionally swaps a whole row between two evolving
// matrices of equal column count and compatible allowed-shift sets, letting a
// pattern that fits well in one matrix migrate to another.
func jointRowShuffle(population []Chromosome, evolvingIDs []uuid.UUID, allowed map[uuid.UUID][]model.ShiftID, rate float64, source *rng.Source) {
	if len(evolvingIDs) < 2 {
		return
	}
	for _, chromosome := range population {
		if !source.Bool(rate) {
			continue
		}
		i := source.Intn(len(evolvingIDs))
		j := source.Intn(len(evolvingIDs))
		if i == j {
			continue
		}
		idA, idB := evolvingIDs[i], evolvingIDs[j]
		ma, mb := chromosome[idA], chromosome[idB]
		if ma.C() != mb.C() || ma.R() == 0 || mb.R() == 0 {
			continue
		}
		if !compatibleAllowedSets(allowed[idA], allowed[idB]) {
			continue
		}
		rowA := source.Intn(ma.R())
		rowB := source.Intn(mb.R())
		ma.Rows[rowA], mb.Rows[rowB] = append([]model.ShiftID(nil), mb.Rows[rowB]...), append([]model.ShiftID(nil), ma.Rows[rowA]...)
		chromosome[idA], chromosome[idB] = ma, mb
	}
}

// compatibleAllowedSets reports whether a and b are the same set of shift
// ids. A row swap must check both directions: a shift allowed in the
// source matrix but excluded from the destination (or vice versa) would
// let an excluded shift slip across the row-swap boundary.
func compatibleAllowedSets(a, b []model.ShiftID) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[model.ShiftID]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}
