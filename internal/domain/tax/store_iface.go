package tax

import "context"

type StoreAPI interface {
	Create(ctx context.Context, rec *Record) error
	Update(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	FindByEmployeeYear(ctx context.Context, employeeID, financialYear string) (*Record, error)
	ListByYear(ctx context.Context, financialYear string) ([]*Record, error)
}
