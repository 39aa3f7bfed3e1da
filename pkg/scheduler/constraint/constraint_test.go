package constraint

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/shiftcycle/shiftopt/pkg/model"
)

func shifts(codes ...string) []model.ShiftID {
	out := make([]model.ShiftID, len(codes))
	for i, c := range codes {
		out[i] = model.ShiftID(c)
	}
	return out
}

func TestValidate_CyclicWrapViolation(t *testing.T) {
	row := shifts("M", "P", "M", "P", "M", "P", "N")
	c := model.Constraint{ID: uuid.New(), Kind: model.KindCannotFollow, ShiftA: "N", ShiftB: "M", Enabled: true}

	linear := Validate(row, []model.Constraint{c}, false)
	assert.Empty(t, linear)

	cyclic := Validate(row, []model.Constraint{c}, true)
	assert.Len(t, cyclic, 1)
	assert.Equal(t, 0, cyclic[0].Day)
}

func TestValidate_MustFollow(t *testing.T) {
	row := shifts("N", "SN", "M", "N", "P")
	c := model.Constraint{ID: uuid.New(), Kind: model.KindMustFollow, ShiftA: "N", ShiftB: "SN", Enabled: true}

	out := Validate(row, []model.Constraint{c}, false)
	assert.Len(t, out, 1)
	assert.Equal(t, 4, out[0].Day)
}

func TestValidate_VariantPrefixMatches(t *testing.T) {
	row := shifts("M_1", "N")
	c := model.Constraint{ID: uuid.New(), Kind: model.KindCannotFollow, ShiftA: "M", ShiftB: "N", Enabled: true}

	out := Validate(row, []model.Constraint{c}, false)
	assert.Len(t, out, 1)
}

func TestValidate_MaxConsecutive(t *testing.T) {
	row := shifts("N", "N", "N", "P")
	c := model.Constraint{ID: uuid.New(), Kind: model.KindMaxConsecutive, ShiftA: "N", Days: 2, Enabled: true}

	out := Validate(row, []model.Constraint{c}, false)
	assert.Len(t, out, 1)
	assert.Equal(t, 2, out[0].Day)
}

func TestValidate_MaxConsecutiveCyclicWrap(t *testing.T) {
	row := shifts("N", "P", "N", "N")
	c := model.Constraint{ID: uuid.New(), Kind: model.KindMaxConsecutive, ShiftA: "N", Days: 2, Enabled: true}

	out := Validate(row, []model.Constraint{c}, true)
	assert.Len(t, out, 1)
}

func TestValidate_MinGap(t *testing.T) {
	row := shifts("N", "SN", "M", "P")
	c := model.Constraint{ID: uuid.New(), Kind: model.KindMinGap, ShiftA: "N", ShiftB: "SN", Days: 1, Enabled: true}

	out := Validate(row, []model.Constraint{c}, false)
	assert.Len(t, out, 1)
}

func TestValidate_DisabledConstraintIgnored(t *testing.T) {
	row := shifts("N", "M")
	c := model.Constraint{ID: uuid.New(), Kind: model.KindCannotFollow, ShiftA: "N", ShiftB: "M", Enabled: false}

	out := Validate(row, []model.Constraint{c}, false)
	assert.Empty(t, out)
}

func TestValidate_OrderInsensitiveToConstraintOrdering(t *testing.T) {
	row := shifts("N", "M", "N", "P")
	a := model.Constraint{ID: uuid.New(), Kind: model.KindCannotFollow, ShiftA: "N", ShiftB: "M", Enabled: true}
	b := model.Constraint{ID: uuid.New(), Kind: model.KindMaxConsecutive, ShiftA: "N", Days: 1, Enabled: true}

	forward := Validate(row, []model.Constraint{a, b}, false)
	backward := Validate(row, []model.Constraint{b, a}, false)
	assert.Equal(t, len(forward), len(backward))
}

func TestValidNextShifts_ExcludesViolatingCandidate(t *testing.T) {
	row := shifts("N", "_", "M")
	c := model.Constraint{ID: uuid.New(), Kind: model.KindMustFollow, ShiftA: "N", ShiftB: "SN", Enabled: true}

	out := ValidNextShifts(row, 1, shifts("SN", "M", "P"), []model.Constraint{c})
	assert.Contains(t, out, model.ShiftID("SN"))
	assert.NotContains(t, out, model.ShiftID("M"))
	assert.NotContains(t, out, model.ShiftID("P"))
}

func TestValidNextShiftsCyclic_WrapsWindow(t *testing.T) {
	row := shifts("M", "N", "P", "_")
	c := model.Constraint{ID: uuid.New(), Kind: model.KindCannotFollow, ShiftA: "N", ShiftB: "M", Enabled: true}

	out := ValidNextShiftsCyclic(row, 3, shifts("N", "P"), []model.Constraint{c})
	assert.NotContains(t, out, model.ShiftID("N"))
}
