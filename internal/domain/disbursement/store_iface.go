package disbursement

import (
	"context"
	"time"
)

type StoreAPI interface {
	Create(ctx context.Context, d *Disbursement) error
	Update(ctx context.Context, d *Disbursement) error
	Get(ctx context.Context, id string) (*Disbursement, error)
	FindByPayroll(ctx context.Context, payrollID string) (*Disbursement, error)
	List(ctx context.Context, f Filter) ([]*Disbursement, error)
	ListRetryEligible(ctx context.Context, now time.Time) ([]*Disbursement, error)
}
