package cycle

import (
	"errors"
	"fmt"

	"paycore/internal/domain/errs"
)

var (
	ErrCycleNotFound      = fmt.Errorf("payroll cycle %w", errs.ErrNotFound)
	ErrErrorNotFound      = fmt.Errorf("processing error %w", errs.ErrNotFound)
	ErrDuplicateCycle     = fmt.Errorf("payroll cycle already exists for the period: %w", errs.ErrStateConflict)
	ErrInvalidState       = errors.New("payroll cycle is not in a state that allows this action")
	ErrUnresolvedErrors   = errors.New("payroll cycle has unresolved processing errors")
	ErrWorkflowIncomplete = errors.New("cycle approval workflow is incomplete")
)
