package attendance

import "context"

type StoreAPI interface {
	Get(ctx context.Context, employeeID string, month, year int) (Summary, error)
	Upsert(ctx context.Context, s Summary) error
}
