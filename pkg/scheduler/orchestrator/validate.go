package orchestrator

import (
	"fmt"

	"github.com/google/uuid"
	apperrors "github.com/shiftcycle/shiftopt/pkg/errors"
	"github.com/shiftcycle/shiftopt/pkg/model"
)

// validateConfig rejects contradictions the baseline builder and GAs
// can't be expected to recover from: a missing default matrix, an
// employee bound to an undeclared matrix, a matrix with fewer cells than
// bound employees, a coverage rule or constraint naming an undeclared
// shift.
func validateConfig(cfg *model.Config) *apperrors.AppError {
	if cfg == nil {
		return apperrors.ConfigInvalid("config is nil")
	}
	if len(cfg.Matrices) == 0 {
		return apperrors.ConfigInvalid("config declares no matrices")
	}
	if len(cfg.Employees) == 0 {
		return apperrors.ConfigInvalid("config declares no employees")
	}

	matrixIDs := make(map[uuid.UUID]bool, len(cfg.Matrices))
	for _, m := range cfg.Matrices {
		matrixIDs[m.ID] = true
	}
	if cfg.DefaultMatrixID != uuid.Nil && !matrixIDs[cfg.DefaultMatrixID] {
		return apperrors.ConfigInvalid(fmt.Sprintf("default matrix %s is not declared", cfg.DefaultMatrixID))
	}

	bound := make(map[uuid.UUID]int, len(cfg.Matrices))
	for _, e := range cfg.Employees {
		mid := cfg.EmployeeMatrixID(e)
		if mid == uuid.Nil || !matrixIDs[mid] {
			return apperrors.ConfigInvalid(fmt.Sprintf("employee %s references undeclared matrix %s", e.ID, mid))
		}
		bound[mid]++
	}
	for _, m := range cfg.Matrices {
		if m.Len() > 0 && m.Len() < bound[m.ID] {
			return apperrors.ConfigInvalid(fmt.Sprintf("matrix %s has %d cells for %d bound employees", m.ID, m.Len(), bound[m.ID]))
		}
	}

	shiftSet := cfg.ShiftSetLookup()
	for _, r := range cfg.CoverageRules {
		for _, id := range r.Shifts {
			if _, ok := shiftSet.Get(id); !ok {
				return apperrors.ConfigInvalid(fmt.Sprintf("coverage rule %s references undeclared shift %q", r.ID, id))
			}
		}
	}
	for _, c := range cfg.Constraints {
		if _, ok := shiftSet.Get(c.ShiftA); !ok {
			return apperrors.ConfigInvalid(fmt.Sprintf("constraint %s references undeclared shift %q", c.ID, c.ShiftA))
		}
		if c.ShiftB != "" {
			if _, ok := shiftSet.Get(c.ShiftB); !ok {
				return apperrors.ConfigInvalid(fmt.Sprintf("constraint %s references undeclared shift %q", c.ID, c.ShiftB))
			}
		}
	}
	return nil
}

// validateTargetMatrix additionally checks that a single-matrix job
// names a matrix actually present in cfg.
func validateTargetMatrix(cfg *model.Config, targetMatrixID uuid.UUID) *apperrors.AppError {
	if _, ok := cfg.MatrixByID(targetMatrixID); !ok {
		return apperrors.ConfigInvalid(fmt.Sprintf("target matrix %s is not declared", targetMatrixID))
	}
	return nil
}
