package salary

import (
	"errors"
	"fmt"

	"paycore/internal/domain/errs"
)

var (
	ErrStructureNotFound = fmt.Errorf("salary structure %w", errs.ErrNotFound)
	ErrNoActiveStructure = fmt.Errorf("approved salary structure in effect %w", errs.ErrNotFound)
	ErrStructureExists   = fmt.Errorf("employee already has a salary structure, revise it instead: %w", errs.ErrStateConflict)
	ErrDuplicateRevision = fmt.Errorf("salary structure revision already exists: %w", errs.ErrStateConflict)
	ErrInvalidState      = errors.New("salary structure is not in a state that allows this action")
	ErrSuperseded        = errors.New("salary structure has been superseded")
)
