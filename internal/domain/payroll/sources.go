package payroll

import (
	"context"
	"time"

	"paycore/internal/domain/attendance"
	"paycore/internal/domain/directory"
	"paycore/internal/domain/salary"
	"paycore/internal/domain/tax"
)

type EmployeeSource interface {
	Get(ctx context.Context, id string) (directory.Employee, error)
}

type StructureSource interface {
	ActiveAt(ctx context.Context, employeeID string, at time.Time) (*salary.Structure, error)
}

type AttendanceSource interface {
	Get(ctx context.Context, employeeID string, month, year int) (attendance.Summary, error)
}

// TaxLedger is the employee's tax record for the financial year. Payroll
// reads the monthly TDS from it and posts back what was withheld.
type TaxLedger interface {
	FindActive(ctx context.Context, employeeID, financialYear string) (*tax.Record, error)
	PostMonthlyTDS(ctx context.Context, employeeID, financialYear string, posting tax.TDSPosting, actorID string) (*tax.Record, error)
}

// DocumentSink renders a payslip and returns where it was stored. The tax
// record may be nil.
type DocumentSink interface {
	Payslip(ctx context.Context, p *Payroll, taxRecord *tax.Record) (Document, error)
}
