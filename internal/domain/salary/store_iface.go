package salary

import "context"

type StoreAPI interface {
	Create(ctx context.Context, s *Structure) error
	Update(ctx context.Context, s *Structure) error
	Get(ctx context.Context, id string) (*Structure, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*Structure, error)
}
