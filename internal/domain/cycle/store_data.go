package cycle

import (
	"context"
	"encoding/json"

	"paycore/internal/domain/errs"
	"paycore/internal/platform/db"
)

const uniquePeriod = "payroll_cycles_period_key"

type Store struct {
	DB db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{DB: q}
}

func (s *Store) Create(ctx context.Context, c *Cycle) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO payroll_cycles (id, month, year, status, version, doc, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, c.ID, c.Month, c.Year, c.Status, c.Version, doc, c.CreatedAt, c.UpdatedAt)
	if db.IsUniqueViolation(err, uniquePeriod) {
		return ErrDuplicateCycle
	}
	return err
}

func (s *Store) Update(ctx context.Context, c *Cycle) error {
	expected := c.Version
	c.Version++
	doc, err := json.Marshal(c)
	if err != nil {
		c.Version = expected
		return err
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE payroll_cycles
    SET status = $2, version = $3, doc = $4, updated_at = $5
    WHERE id = $1 AND version = $6
  `, c.ID, c.Status, c.Version, doc, c.UpdatedAt, expected)
	if err != nil {
		c.Version = expected
		return err
	}
	if tag.RowsAffected() == 0 {
		c.Version = expected
		return errs.ErrConcurrentModification
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*Cycle, error) {
	return s.scanOne(ctx, `SELECT doc FROM payroll_cycles WHERE id = $1`, id)
}

func (s *Store) FindByPeriod(ctx context.Context, month, year int) (*Cycle, error) {
	return s.scanOne(ctx, `SELECT doc FROM payroll_cycles WHERE month = $1 AND year = $2`, month, year)
}

func (s *Store) List(ctx context.Context, year int) ([]*Cycle, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT doc FROM payroll_cycles
    WHERE $1 = 0 OR year = $1
    ORDER BY year DESC, month DESC
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Cycle
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var c Cycle
		if err := json.Unmarshal(doc, &c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *Store) scanOne(ctx context.Context, query string, args ...any) (*Cycle, error) {
	var doc []byte
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&doc); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrCycleNotFound
		}
		return nil, err
	}
	var c Cycle
	if err := json.Unmarshal(doc, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
