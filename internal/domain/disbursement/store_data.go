package disbursement

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"paycore/internal/domain/errs"
	"paycore/internal/platform/crypto"
	"paycore/internal/platform/db"
)

const uniquePayroll = "disbursements_payroll_key"

// Store persists disbursements in Postgres. The bank account number is
// sealed inside the JSON document and never stored in clear.
type Store struct {
	DB     db.Querier
	Crypto *crypto.Service
}

func NewStore(q db.Querier, c *crypto.Service) *Store {
	return &Store{DB: q, Crypto: c}
}

func (s *Store) Create(ctx context.Context, d *Disbursement) error {
	doc, err := s.seal(d)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO disbursements (id, payroll_id, batch_id, cycle_id, employee_id, status, retry_count, max_retries, next_retry_at, version, doc, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
  `, d.ID, d.PayrollID, d.BatchID, nullIfEmpty(d.CycleID), d.EmployeeID, d.Transaction.Status,
		d.Transaction.RetryCount, d.Transaction.MaxRetries, d.Transaction.NextRetryAt, d.Version, doc, d.CreatedAt, d.UpdatedAt)
	if db.IsUniqueViolation(err, uniquePayroll) {
		return ErrDuplicateDisbursement
	}
	return err
}

func (s *Store) Update(ctx context.Context, d *Disbursement) error {
	expected := d.Version
	d.Version++
	doc, err := s.seal(d)
	if err != nil {
		d.Version = expected
		return err
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE disbursements
    SET status = $2, retry_count = $3, next_retry_at = $4, version = $5, doc = $6, updated_at = $7
    WHERE id = $1 AND version = $8
  `, d.ID, d.Transaction.Status, d.Transaction.RetryCount, d.Transaction.NextRetryAt, d.Version, doc, d.UpdatedAt, expected)
	if err != nil {
		d.Version = expected
		return err
	}
	if tag.RowsAffected() == 0 {
		d.Version = expected
		return errs.ErrConcurrentModification
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*Disbursement, error) {
	return s.scanOne(ctx, `SELECT doc FROM disbursements WHERE id = $1`, id)
}

func (s *Store) FindByPayroll(ctx context.Context, payrollID string) (*Disbursement, error) {
	return s.scanOne(ctx, `SELECT doc FROM disbursements WHERE payroll_id = $1`, payrollID)
}

func (s *Store) List(ctx context.Context, f Filter) ([]*Disbursement, error) {
	query := `
    SELECT doc FROM disbursements
    WHERE 1=1
  `
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		query += " AND " + clause + " = $" + strconv.Itoa(len(args))
	}
	if f.BatchID != "" {
		add("batch_id", f.BatchID)
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
	query += " ORDER BY created_at, id"
	return s.scanMany(ctx, query, args...)
}

func (s *Store) ListRetryEligible(ctx context.Context, now time.Time) ([]*Disbursement, error) {
	return s.scanMany(ctx, `
    SELECT doc FROM disbursements
    WHERE status = $1 AND retry_count < max_retries AND next_retry_at <= $2
    ORDER BY next_retry_at
  `, StatusFailed, now)
}

func (s *Store) scanMany(ctx context.Context, query string, args ...any) ([]*Disbursement, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Disbursement
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		d, err := s.open(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) scanOne(ctx context.Context, query string, args ...any) (*Disbursement, error) {
	var doc []byte
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&doc); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrDisbursementNotFound
		}
		return nil, err
	}
	return s.open(doc)
}

func (s *Store) seal(d *Disbursement) ([]byte, error) {
	stored := *d
	sealed, err := s.Crypto.SealString(d.Bank.AccountNumber)
	if err != nil {
		return nil, err
	}
	stored.Bank.AccountNumber = sealed
	return json.Marshal(stored)
}

func (s *Store) open(doc []byte) (*Disbursement, error) {
	var d Disbursement
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, err
	}
	plain, err := s.Crypto.OpenString(d.Bank.AccountNumber)
	if err != nil {
		return nil, err
	}
	d.Bank.AccountNumber = plain
	return &d, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
