package server

import (
	"paycore/internal/domain/attendance"
	"paycore/internal/domain/audit"
	"paycore/internal/domain/cycle"
	"paycore/internal/domain/directory"
	"paycore/internal/domain/disbursement"
	"paycore/internal/domain/payroll"
	"paycore/internal/domain/salary"
	"paycore/internal/domain/tax"
	"paycore/internal/platform/crypto"
	"paycore/internal/platform/db"
	"paycore/internal/platform/jobs"
	"paycore/internal/transport/http/middleware"
)

type stores struct {
	Employees     directory.StoreAPI
	Attendance    attendance.StoreAPI
	Salary        salary.StoreAPI
	Tax           tax.StoreAPI
	Payrolls      payroll.StoreAPI
	Cycles        cycle.StoreAPI
	Disbursements disbursement.StoreAPI
	Audit         audit.Log
	Runs          jobs.RunRecorder
	Idempotency   middleware.IdempotencyStore
}

// postgresStores backs every record with its table. Bank account numbers are
// sealed with the bank key before they reach a row.
func postgresStores(q db.Querier, bankKey *crypto.Service) stores {
	return stores{
		Employees:     directory.NewStore(q, bankKey),
		Attendance:    attendance.NewStore(q),
		Salary:        salary.NewStore(q),
		Tax:           tax.NewStore(q),
		Payrolls:      payroll.NewStore(q),
		Cycles:        cycle.NewStore(q),
		Disbursements: disbursement.NewStore(q, bankKey),
		Audit:         audit.NewStore(q),
		Runs:          jobs.PGRuns{DB: q},
		Idempotency:   middleware.NewIdempotencyStore(q),
	}
}

func memoryStores() stores {
	return stores{
		Employees:     directory.NewMemoryStore(),
		Attendance:    attendance.NewMemoryStore(),
		Salary:        salary.NewMemoryStore(),
		Tax:           tax.NewMemoryStore(),
		Payrolls:      payroll.NewMemoryStore(),
		Cycles:        cycle.NewMemoryStore(),
		Disbursements: disbursement.NewMemoryStore(),
		Audit:         audit.NewMemoryStore(),
		Runs:          &jobs.MemoryRuns{},
		Idempotency:   middleware.NewMemoryIdempotencyStore(),
	}
}
