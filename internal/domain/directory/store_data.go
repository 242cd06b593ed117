package directory

import (
	"context"
	"time"

	"paycore/internal/platform/crypto"
	"paycore/internal/platform/db"
)

// Store reads employees from Postgres. Bank account numbers are sealed at
// rest with the data encryption key when one is configured.
type Store struct {
	DB     db.Querier
	Crypto *crypto.Service
}

func NewStore(q db.Querier, c *crypto.Service) *Store {
	return &Store{DB: q, Crypto: c}
}

const employeeColumns = `id, code, first_name, last_name, email, phone, department, work_state, status,
       join_date, exit_date, bank_account_enc, bank_ifsc, bank_name, bank_holder`

func (s *Store) Get(ctx context.Context, id string) (Employee, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)
	emp, err := s.scan(row)
	if db.IsNoRows(err) {
		return Employee{}, ErrEmployeeNotFound
	}
	return emp, err
}

func (s *Store) ListPayable(ctx context.Context, start, end time.Time) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE join_date <= $2
      AND (exit_date IS NULL OR exit_date >= $1)
      AND (status = 'active' OR exit_date IS NOT NULL)
    ORDER BY code
  `, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) Upsert(ctx context.Context, emp Employee) error {
	sealed, err := s.Crypto.EncryptString(emp.Bank.AccountNumber)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO employees (id, code, first_name, last_name, email, phone, department, work_state, status,
                           join_date, exit_date, bank_account_enc, bank_ifsc, bank_name, bank_holder)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
    ON CONFLICT (id) DO UPDATE SET
      code = EXCLUDED.code, first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
      email = EXCLUDED.email, phone = EXCLUDED.phone, department = EXCLUDED.department,
      work_state = EXCLUDED.work_state, status = EXCLUDED.status, join_date = EXCLUDED.join_date,
      exit_date = EXCLUDED.exit_date, bank_account_enc = EXCLUDED.bank_account_enc,
      bank_ifsc = EXCLUDED.bank_ifsc, bank_name = EXCLUDED.bank_name, bank_holder = EXCLUDED.bank_holder
  `, emp.ID, emp.Code, emp.FirstName, emp.LastName, emp.Email, emp.Phone, emp.Department, emp.WorkState, emp.Status,
		emp.JoinDate, emp.ExitDate, sealed, emp.Bank.IFSC, emp.Bank.BankName, emp.Bank.HolderName)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scan(row scanner) (Employee, error) {
	var emp Employee
	var sealed []byte
	if err := row.Scan(&emp.ID, &emp.Code, &emp.FirstName, &emp.LastName, &emp.Email, &emp.Phone, &emp.Department,
		&emp.WorkState, &emp.Status, &emp.JoinDate, &emp.ExitDate, &sealed, &emp.Bank.IFSC, &emp.Bank.BankName, &emp.Bank.HolderName); err != nil {
		return Employee{}, err
	}
	account, err := s.Crypto.DecryptString(sealed)
	if err != nil {
		return Employee{}, err
	}
	emp.Bank.AccountNumber = account
	return emp, nil
}
