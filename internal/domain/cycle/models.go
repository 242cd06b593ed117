package cycle

import (
	"time"

	"paycore/internal/domain/approval"
	"paycore/internal/domain/money"
)

type Status string

const (
	StatusDraft            Status = "draft"
	StatusAttendanceLocked Status = "attendance_locked"
	StatusCalculated       Status = "calculated"
	StatusReviewed         Status = "reviewed"
	StatusApproved         Status = "approved"
	StatusProcessed        Status = "processed"
	StatusDisbursed        Status = "disbursed"
	StatusCompleted        Status = "completed"
)

var stages = []Status{
	StatusDraft,
	StatusAttendanceLocked,
	StatusCalculated,
	StatusReviewed,
	StatusApproved,
	StatusProcessed,
	StatusDisbursed,
	StatusCompleted,
}

// Step is the position of s in the stage order, or -1.
func (s Status) Step() int {
	for i, st := range stages {
		if st == s {
			return i
		}
	}
	return -1
}

const (
	ErrorTypeUpstream    = "upstream_unavailable"
	ErrorTypeDuplicate   = "duplicate_payroll"
	ErrorTypeValidation  = "validation"
	ErrorTypeState       = "state_conflict"
	ErrorTypeCalculation = "calculation"
)

// Stamps holds one timestamp per stage after draft.
type Stamps struct {
	AttendanceLockedAt *time.Time `json:"attendanceLockedAt,omitempty"`
	CalculatedAt       *time.Time `json:"calculatedAt,omitempty"`
	ReviewedAt         *time.Time `json:"reviewedAt,omitempty"`
	ApprovedAt         *time.Time `json:"approvedAt,omitempty"`
	ProcessedAt        *time.Time `json:"processedAt,omitempty"`
	DisbursedAt        *time.Time `json:"disbursedAt,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
}

func (s *Stamps) slot(status Status) **time.Time {
	switch status {
	case StatusAttendanceLocked:
		return &s.AttendanceLockedAt
	case StatusCalculated:
		return &s.CalculatedAt
	case StatusReviewed:
		return &s.ReviewedAt
	case StatusApproved:
		return &s.ApprovedAt
	case StatusProcessed:
		return &s.ProcessedAt
	case StatusDisbursed:
		return &s.DisbursedAt
	case StatusCompleted:
		return &s.CompletedAt
	}
	return nil
}

// Ordered reports whether the set stamps never decrease in stage order.
func (s Stamps) Ordered() bool {
	var last *time.Time
	for _, st := range stages[1:] {
		at := *s.slot(st)
		if at == nil {
			continue
		}
		if last != nil && at.Before(*last) {
			return false
		}
		last = at
	}
	return true
}

type ProcessingError struct {
	ID         string     `json:"id"`
	EmployeeID string     `json:"employeeId"`
	Type       string     `json:"errorType"`
	Message    string     `json:"message"`
	Resolved   bool       `json:"resolved"`
	ResolvedBy string     `json:"resolvedBy,omitempty"`
	Resolution string     `json:"resolution,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

type DepartmentSummary struct {
	Department      string       `json:"department"`
	Employees       int          `json:"employees"`
	GrossPay        money.Amount `json:"grossPay"`
	TotalDeductions money.Amount `json:"totalDeductions"`
	NetPay          money.Amount `json:"netPay"`
}

type Summary struct {
	Employees             int                 `json:"employees"`
	Calculated            int                 `json:"calculated"`
	Approved              int                 `json:"approved"`
	Paid                  int                 `json:"paid"`
	Cancelled             int                 `json:"cancelled"`
	GrossPay              money.Amount        `json:"grossPay"`
	TotalDeductions       money.Amount        `json:"totalDeductions"`
	NetPay                money.Amount        `json:"netPay"`
	EmployerContributions money.Amount        `json:"employerContributions"`
	PF                    money.Amount        `json:"pf"`
	ESI                   money.Amount        `json:"esi"`
	ProfessionalTax       money.Amount        `json:"professionalTax"`
	TDS                   money.Amount        `json:"tds"`
	Departments           []DepartmentSummary `json:"departments"`
}

type Cycle struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Month       int               `json:"month"`
	Year        int               `json:"year"`
	PeriodStart time.Time         `json:"periodStart"`
	PeriodEnd   time.Time         `json:"periodEnd"`
	PayDate     *time.Time        `json:"payDate,omitempty"`
	Status      Status            `json:"status"`
	Stamps      Stamps            `json:"stamps"`
	Summary     Summary           `json:"summary"`
	Errors      []ProcessingError `json:"processingErrors"`
	Approvals   approval.Workflow `json:"approvals"`
	CreatedBy   string            `json:"createdBy"`
	Version     int64             `json:"version"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func (c *Cycle) UnresolvedErrors() int {
	n := 0
	for _, e := range c.Errors {
		if !e.Resolved {
			n++
		}
	}
	return n
}

// CanProcess gates the processed stage: the cycle must be approved with no
// unresolved processing errors.
func (c *Cycle) CanProcess() bool {
	return c.Status == StatusApproved && c.UnresolvedErrors() == 0
}

// advance moves to the stage directly after the current one and stamps it
// no earlier than the previous stage.
func (c *Cycle) advance(to Status, now time.Time) bool {
	if to.Step() != c.Status.Step()+1 {
		return false
	}
	at := now.UTC()
	if prev := c.lastStamp(); prev != nil && at.Before(*prev) {
		at = *prev
	}
	*c.Stamps.slot(to) = &at
	c.Status = to
	return true
}

func (c *Cycle) lastStamp() *time.Time {
	for i := c.Status.Step(); i > 0; i-- {
		if at := *c.Stamps.slot(stages[i]); at != nil {
			return at
		}
	}
	return nil
}
