package tax

import (
	"context"
	"encoding/json"

	"paycore/internal/domain/errs"
	"paycore/internal/platform/db"
)

const uniqueEmployeeYear = "tax_records_employee_year_key"

type Store struct {
	DB db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{DB: q}
}

func (s *Store) Create(ctx context.Context, rec *Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO tax_records (id, employee_id, financial_year, status, version, doc, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, rec.ID, rec.EmployeeID, rec.FinancialYear, rec.Status, rec.Version, doc, rec.CreatedAt, rec.UpdatedAt)
	if db.IsUniqueViolation(err, uniqueEmployeeYear) {
		return ErrDuplicateRecord
	}
	return err
}

func (s *Store) Update(ctx context.Context, rec *Record) error {
	expected := rec.Version
	rec.Version++
	doc, err := json.Marshal(rec)
	if err != nil {
		rec.Version = expected
		return err
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE tax_records
    SET status = $2, version = $3, doc = $4, updated_at = $5
    WHERE id = $1 AND version = $6
  `, rec.ID, rec.Status, rec.Version, doc, rec.UpdatedAt, expected)
	if err != nil {
		rec.Version = expected
		return err
	}
	if tag.RowsAffected() == 0 {
		rec.Version = expected
		return errs.ErrConcurrentModification
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	return s.scanOne(ctx, `SELECT doc FROM tax_records WHERE id = $1`, id)
}

func (s *Store) FindByEmployeeYear(ctx context.Context, employeeID, financialYear string) (*Record, error) {
	return s.scanOne(ctx, `SELECT doc FROM tax_records WHERE employee_id = $1 AND financial_year = $2`, employeeID, financialYear)
}

func (s *Store) ListByYear(ctx context.Context, financialYear string) ([]*Record, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT doc FROM tax_records
    WHERE financial_year = $1
    ORDER BY employee_id
  `, financialYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var rec Record
		if err := json.Unmarshal(doc, &rec); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (s *Store) scanOne(ctx context.Context, query string, args ...any) (*Record, error) {
	var doc []byte
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&doc); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
