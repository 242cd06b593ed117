package payroll

import (
	"time"

	"github.com/shopspring/decimal"

	"paycore/internal/domain/approval"
	"paycore/internal/domain/attendance"
	"paycore/internal/domain/errs"
	"paycore/internal/domain/money"
	"paycore/internal/domain/salary"
	"paycore/internal/domain/statutory"
)

type Line = attendance.Line

type Earnings struct {
	Basic      money.Amount `json:"basic"`
	HRA        money.Amount `json:"hra"`
	Allowances []Line       `json:"allowances"`
	Overtime   money.Amount `json:"overtime"`
	Bonus      money.Amount `json:"bonus"`
	Arrears    money.Amount `json:"arrears"`
}

func (e Earnings) AllowanceTotal() money.Amount {
	var total money.Amount
	for _, l := range e.Allowances {
		total += l.Amount
	}
	return total
}

func (e Earnings) Total() money.Amount {
	return money.Sum(e.Basic, e.HRA, e.AllowanceTotal(), e.Overtime, e.Bonus, e.Arrears)
}

// Statutory holds the employee and employer sides of each statutory head.
// Only the employee side is deducted from pay.
type Statutory struct {
	PF              statutory.PF  `json:"pf"`
	ESI             statutory.ESI `json:"esi"`
	ProfessionalTax money.Amount  `json:"professionalTax"`
	PTState         string        `json:"ptState"`
	TDS             money.Amount  `json:"tds"`
	TDSSource       string        `json:"tdsSource"`
}

func (s Statutory) Total() money.Amount {
	return money.Sum(s.PF.Employee, s.ESI.Employee, s.ProfessionalTax, s.TDS)
}

func (s Statutory) EmployerTotal() money.Amount {
	return s.PF.Employer + s.ESI.Employer
}

type Other struct {
	LossOfPay    money.Amount `json:"lossOfPay"`
	Loan         money.Amount `json:"loan"`
	Advance      money.Amount `json:"advance"`
	Disciplinary money.Amount `json:"disciplinary"`
	Custom       []Line       `json:"custom"`
}

func (o Other) Total() money.Amount {
	total := money.Sum(o.LossOfPay, o.Loan, o.Advance, o.Disciplinary)
	for _, l := range o.Custom {
		total += l.Amount
	}
	return total
}

// Adjustments are one-off operator inputs for a single period.
type Adjustments struct {
	Bonus        money.Amount `json:"bonus"`
	Arrears      money.Amount `json:"arrears"`
	Loan         money.Amount `json:"loan"`
	Advance      money.Amount `json:"advance"`
	Disciplinary money.Amount `json:"disciplinary"`
	Remarks      string       `json:"remarks,omitempty"`
}

func (a Adjustments) Validate() error {
	verr := &errs.ValidationError{}
	for _, f := range []struct {
		name string
		v    money.Amount
	}{
		{"bonus", a.Bonus},
		{"arrears", a.Arrears},
		{"loan", a.Loan},
		{"advance", a.Advance},
		{"disciplinary", a.Disciplinary},
	} {
		if f.v < 0 {
			verr.Issues = append(verr.Issues, errs.Issue{Field: "adjustments." + f.name, Reason: "must not be negative"})
		}
	}
	if len(verr.Issues) > 0 {
		return verr
	}
	return nil
}

type Compliance struct {
	PFApplicable  bool     `json:"pfApplicable"`
	ESIApplicable bool     `json:"esiApplicable"`
	PTApplicable  bool     `json:"ptApplicable"`
	Warnings      []string `json:"warnings,omitempty"`
}

type StructureSnapshot struct {
	ID            string          `json:"id"`
	Revision      int             `json:"revision"`
	EffectiveDate time.Time       `json:"effectiveDate"`
	AnnualCTC     money.Amount    `json:"annualCtc"`
	Basic         money.Amount    `json:"basic"`
	HRAPercent    decimal.Decimal `json:"hraPercent"`
	MonthlyGross  money.Amount    `json:"monthlyGross"`
	Rules         salary.Rules    `json:"rules"`
}

type AttendanceSnapshot struct {
	Summary attendance.Summary `json:"summary"`
	Result  attendance.Result  `json:"result"`
}

type Payment struct {
	DisbursementID string     `json:"disbursementId,omitempty"`
	State          string     `json:"state"`
	TransactionRef string     `json:"transactionRef,omitempty"`
	FailureReason  string     `json:"failureReason,omitempty"`
	Failures       int        `json:"failures"`
	ProcessedAt    *time.Time `json:"processedAt,omitempty"`
	PaidAt         *time.Time `json:"paidAt,omitempty"`
}

type Document struct {
	Ref         string    `json:"ref"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Payroll is one employee's pay for one month. GrossPay, TotalDeductions
// and NetPay are derived and rewritten together on every calculation.
type Payroll struct {
	ID                    string             `json:"id"`
	EmployeeID            string             `json:"employeeId"`
	EmployeeCode          string             `json:"employeeCode"`
	EmployeeName          string             `json:"employeeName"`
	Department            string             `json:"department"`
	CycleID               string             `json:"cycleId,omitempty"`
	Month                 int                `json:"month"`
	Year                  int                `json:"year"`
	PeriodStart           time.Time          `json:"periodStart"`
	PeriodEnd             time.Time          `json:"periodEnd"`
	Status                Status             `json:"status"`
	Structure             StructureSnapshot  `json:"structure"`
	Attendance            AttendanceSnapshot `json:"attendance"`
	Earnings              Earnings           `json:"earnings"`
	Statutory             Statutory          `json:"statutory"`
	Other                 Other              `json:"otherDeductions"`
	Adjustments           Adjustments        `json:"adjustments"`
	GrossPay              money.Amount       `json:"grossPay"`
	TotalDeductions       money.Amount       `json:"totalDeductions"`
	NetPay                money.Amount       `json:"netPay"`
	EmployerContributions money.Amount       `json:"employerContributions"`
	Compliance            Compliance         `json:"compliance"`
	Payment               Payment            `json:"payment"`
	Approvals             approval.Workflow  `json:"approvals"`
	Payslip               *Document          `json:"payslip,omitempty"`
	CalculatedAt          *time.Time         `json:"calculatedAt,omitempty"`
	ApprovedAt            *time.Time         `json:"approvedAt,omitempty"`
	CancelledAt           *time.Time         `json:"cancelledAt,omitempty"`
	CancelReason          string             `json:"cancelReason,omitempty"`
	CreatedBy             string             `json:"createdBy"`
	Version               int64              `json:"version"`
	CreatedAt             time.Time          `json:"createdAt"`
	UpdatedAt             time.Time          `json:"updatedAt"`
}

// Balanced reports whether the three pay identities hold.
func (p *Payroll) Balanced() bool {
	return p.GrossPay == p.Earnings.Total() &&
		p.TotalDeductions == p.Statutory.Total()+p.Other.Total() &&
		p.NetPay == p.GrossPay-p.TotalDeductions
}

func (p *Payroll) apply(c Calculation) {
	p.Attendance.Result = c.Attendance
	p.Earnings = c.Earnings
	p.Statutory = c.Statutory
	p.Other = c.Other
	p.GrossPay = c.GrossPay
	p.TotalDeductions = c.TotalDeductions
	p.NetPay = c.NetPay
	p.EmployerContributions = c.EmployerContributions
	p.Compliance.PFApplicable = c.Statutory.PF.Employee > 0
	p.Compliance.ESIApplicable = c.Statutory.ESI.Applicable
	p.Compliance.PTApplicable = c.Statutory.ProfessionalTax > 0
}

type Filter struct {
	Month      int
	Year       int
	CycleID    string
	EmployeeID string
	Status     Status
}

func PeriodBounds(month, year int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}
