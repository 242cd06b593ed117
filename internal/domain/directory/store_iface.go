package directory

import (
	"context"
	"time"
)

type StoreAPI interface {
	Get(ctx context.Context, id string) (Employee, error)
	// ListPayable returns employees that are active or were on roll during
	// the period, so that leavers still receive their final pay.
	ListPayable(ctx context.Context, start, end time.Time) ([]Employee, error)
	Upsert(ctx context.Context, emp Employee) error
}
