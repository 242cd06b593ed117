package payroll

import (
	"errors"
	"fmt"

	"paycore/internal/domain/errs"
)

var (
	ErrPayrollNotFound      = fmt.Errorf("payroll %w", errs.ErrNotFound)
	ErrDuplicatePayroll     = fmt.Errorf("payroll already exists for employee and period: %w", errs.ErrStateConflict)
	ErrWorkflowIncomplete   = errors.New("approval workflow is incomplete")
	ErrImmutableRecord      = errors.New("paid payroll cannot be modified")
	ErrCancelled            = errors.New("payroll has been cancelled")
	ErrInvalidState         = errors.New("payroll is not in a state that allows this action")
	ErrDisbursementMismatch = errors.New("payroll is being paid by a different disbursement")

	errNoChange = errors.New("no change")
)
