package salary

import (
	"context"
	"encoding/json"

	"paycore/internal/domain/errs"
	"paycore/internal/platform/db"
)

const uniqueEmployeeRevision = "salary_structures_employee_revision_key"

type Store struct {
	DB db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{DB: q}
}

func (s *Store) Create(ctx context.Context, st *Structure) error {
	doc, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO salary_structures (id, employee_id, revision, status, effective_date, version, doc, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, st.ID, st.EmployeeID, st.Revision, st.Status, st.EffectiveDate, st.Version, doc, st.CreatedAt, st.UpdatedAt)
	if db.IsUniqueViolation(err, uniqueEmployeeRevision) {
		return ErrDuplicateRevision
	}
	return err
}

func (s *Store) Update(ctx context.Context, st *Structure) error {
	expected := st.Version
	st.Version++
	doc, err := json.Marshal(st)
	if err != nil {
		st.Version = expected
		return err
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE salary_structures
    SET status = $2, effective_date = $3, version = $4, doc = $5, updated_at = $6
    WHERE id = $1 AND version = $7
  `, st.ID, st.Status, st.EffectiveDate, st.Version, doc, st.UpdatedAt, expected)
	if err != nil {
		st.Version = expected
		return err
	}
	if tag.RowsAffected() == 0 {
		st.Version = expected
		return errs.ErrConcurrentModification
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*Structure, error) {
	var doc []byte
	if err := s.DB.QueryRow(ctx, `SELECT doc FROM salary_structures WHERE id = $1`, id).Scan(&doc); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrStructureNotFound
		}
		return nil, err
	}
	var st Structure
	if err := json.Unmarshal(doc, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) ListByEmployee(ctx context.Context, employeeID string) ([]*Structure, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT doc FROM salary_structures
    WHERE employee_id = $1
    ORDER BY revision
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Structure
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var st Structure
		if err := json.Unmarshal(doc, &st); err != nil {
			return nil, err
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}
