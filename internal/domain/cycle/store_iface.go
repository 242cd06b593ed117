package cycle

import "context"

type StoreAPI interface {
	Create(ctx context.Context, c *Cycle) error
	Update(ctx context.Context, c *Cycle) error
	Get(ctx context.Context, id string) (*Cycle, error)
	FindByPeriod(ctx context.Context, month, year int) (*Cycle, error)
	List(ctx context.Context, year int) ([]*Cycle, error)
}
