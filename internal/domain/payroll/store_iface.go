package payroll

import "context"

type StoreAPI interface {
	Create(ctx context.Context, p *Payroll) error
	Update(ctx context.Context, p *Payroll) error
	Get(ctx context.Context, id string) (*Payroll, error)
	FindByEmployeePeriod(ctx context.Context, employeeID string, month, year int) (*Payroll, error)
	List(ctx context.Context, f Filter) ([]*Payroll, error)
}
