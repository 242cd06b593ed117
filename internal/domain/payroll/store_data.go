package payroll

import (
	"context"
	"encoding/json"
	"strconv"

	"paycore/internal/domain/errs"
	"paycore/internal/platform/db"
)

const uniqueEmployeePeriod = "payrolls_employee_period_key"

type Store struct {
	DB db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{DB: q}
}

func (s *Store) Create(ctx context.Context, p *Payroll) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO payrolls (id, employee_id, cycle_id, month, year, status, department, version, doc, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
  `, p.ID, p.EmployeeID, nullIfEmpty(p.CycleID), p.Month, p.Year, p.Status, p.Department, p.Version, doc, p.CreatedAt, p.UpdatedAt)
	if db.IsUniqueViolation(err, uniqueEmployeePeriod) {
		return ErrDuplicatePayroll
	}
	return err
}

func (s *Store) Update(ctx context.Context, p *Payroll) error {
	expected := p.Version
	p.Version++
	doc, err := json.Marshal(p)
	if err != nil {
		p.Version = expected
		return err
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE payrolls
    SET status = $2, cycle_id = $3, version = $4, doc = $5, updated_at = $6
    WHERE id = $1 AND version = $7
  `, p.ID, p.Status, nullIfEmpty(p.CycleID), p.Version, doc, p.UpdatedAt, expected)
	if err != nil {
		p.Version = expected
		return err
	}
	if tag.RowsAffected() == 0 {
		p.Version = expected
		return errs.ErrConcurrentModification
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*Payroll, error) {
	return s.scanOne(ctx, `SELECT doc FROM payrolls WHERE id = $1`, id)
}

func (s *Store) FindByEmployeePeriod(ctx context.Context, employeeID string, month, year int) (*Payroll, error) {
	return s.scanOne(ctx, `
    SELECT doc FROM payrolls
    WHERE employee_id = $1 AND month = $2 AND year = $3
  `, employeeID, month, year)
}

func (s *Store) List(ctx context.Context, f Filter) ([]*Payroll, error) {
	query := `
    SELECT doc FROM payrolls
    WHERE 1=1
  `
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		query += " AND " + clause + " = $" + strconv.Itoa(len(args))
	}
	if f.Month > 0 {
		add("month", f.Month)
	}
	if f.Year > 0 {
		add("year", f.Year)
	}
	if f.CycleID != "" {
		add("cycle_id", f.CycleID)
	}
	if f.EmployeeID != "" {
		add("employee_id", f.EmployeeID)
	}
	if f.Status != "" {
		add("status", f.Status)
	}
	query += " ORDER BY year DESC, month DESC, employee_id"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Payroll
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var p Payroll
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *Store) scanOne(ctx context.Context, query string, args ...any) (*Payroll, error) {
	var doc []byte
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&doc); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrPayrollNotFound
		}
		return nil, err
	}
	var p Payroll
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
