package disbursement

import (
	"errors"
	"fmt"

	"paycore/internal/domain/errs"
)

var (
	ErrDisbursementNotFound  = fmt.Errorf("disbursement %w", errs.ErrNotFound)
	ErrDuplicateDisbursement = fmt.Errorf("disbursement already exists for the payroll: %w", errs.ErrStateConflict)
	ErrInvalidState          = errors.New("disbursement is not in a state that allows this action")
	ErrRetryExhausted        = fmt.Errorf("disbursement retries exhausted: %w", errs.ErrRetryExhausted)
	ErrPayrollNotApproved    = errors.New("payroll is not approved")
	ErrAlreadyReconciled     = errors.New("disbursement is already reconciled")
	ErrNoDiscrepancy         = errors.New("disbursement has no open discrepancy")
)

var errNoChange = errors.New("no change")
