package tax

import (
	"errors"
	"fmt"

	"paycore/internal/domain/errs"
)

var (
	ErrRecordNotFound  = fmt.Errorf("tax record %w", errs.ErrNotFound)
	ErrProofNotFound   = fmt.Errorf("investment proof %w", errs.ErrNotFound)
	ErrDuplicateRecord = fmt.Errorf("tax record already exists for employee and financial year: %w", errs.ErrStateConflict)
	ErrInvalidState    = errors.New("tax record is not in a state that allows this action")
)
