// Package payroll aggregates salary structure, attendance, statutory
// deductions and TDS into one payroll record per employee and month, and
// owns the payroll state machine.
package payroll

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"paycore/internal/domain/approval"
	"paycore/internal/domain/audit"
	"paycore/internal/domain/directory"
	"paycore/internal/domain/errs"
	"paycore/internal/domain/money"
	"paycore/internal/domain/statutory"
	"paycore/internal/domain/tax"
	"paycore/internal/platform/keylock"
)

type Deps struct {
	Store          StoreAPI
	Employees      EmployeeSource
	Structures     StructureSource
	Attendance     AttendanceSource
	Tax            TaxLedger
	Documents      DocumentSink
	Calculator     *statutory.Calculator
	Audit          *audit.Recorder
	ApprovalLevels []string
	Now            func() time.Time
}

type Service struct {
	store      StoreAPI
	employees  EmployeeSource
	structures StructureSource
	attendance AttendanceSource
	tax        TaxLedger
	documents  DocumentSink
	calc       *statutory.Calculator
	audit      *audit.Recorder
	levels     []string
	locks      *keylock.Map
	now        func() time.Time
}

func NewService(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Calculator == nil {
		d.Calculator = statutory.NewCalculator(statutory.DefaultConfig())
	}
	return &Service{
		store:      d.Store,
		employees:  d.Employees,
		structures: d.Structures,
		attendance: d.Attendance,
		tax:        d.Tax,
		documents:  d.Documents,
		calc:       d.Calculator,
		audit:      d.Audit,
		levels:     d.ApprovalLevels,
		locks:      keylock.New(),
		now:        d.Now,
	}
}

type CalculateInput struct {
	EmployeeID  string      `json:"employeeId"`
	Month       int         `json:"month"`
	Year        int         `json:"year"`
	CycleID     string      `json:"cycleId,omitempty"`
	Adjustments Adjustments `json:"adjustments"`
}

func (in CalculateInput) validate() error {
	verr := &errs.ValidationError{}
	if strings.TrimSpace(in.EmployeeID) == "" {
		verr.Issues = append(verr.Issues, errs.Issue{Field: "employeeId", Reason: "is required"})
	}
	if in.Month < 1 || in.Month > 12 {
		verr.Issues = append(verr.Issues, errs.Issue{Field: "month", Reason: "must be between 1 and 12"})
	}
	if in.Year < 2000 || in.Year > 2100 {
		verr.Issues = append(verr.Issues, errs.Issue{Field: "year", Reason: "is out of range"})
	}
	var adj *errs.ValidationError
	if errors.As(in.Adjustments.Validate(), &adj) {
		verr.Issues = append(verr.Issues, adj.Issues...)
	}
	if len(verr.Issues) > 0 {
		return verr
	}
	return nil
}

// Calculate creates the payroll for an employee and month. A second
// calculation for the same key fails with ErrDuplicatePayroll; use
// Recalculate to refresh an existing record.
func (s *Service) Calculate(ctx context.Context, in CalculateInput, actorID string) (*Payroll, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(periodKey(in.EmployeeID, in.Month, in.Year))
	defer unlock()

	if _, err := s.store.FindByEmployeePeriod(ctx, in.EmployeeID, in.Month, in.Year); err == nil {
		return nil, ErrDuplicatePayroll
	} else if !errors.Is(err, ErrPayrollNotFound) {
		return nil, err
	}

	emp, err := s.employees.Get(ctx, in.EmployeeID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
		return nil, errs.Upstream("employee directory", err)
	}
	start, end := PeriodBounds(in.Month, in.Year)
	if !emp.OnRollDuring(start, end) {
		return nil, errs.Invalid("employeeId", "employee was not on roll during the period")
	}

	now := s.now().UTC()
	p := &Payroll{
		ID:           uuid.NewString(),
		EmployeeID:   emp.ID,
		EmployeeCode: emp.Code,
		EmployeeName: emp.FullName(),
		Department:   emp.Department,
		CycleID:      in.CycleID,
		Month:        in.Month,
		Year:         in.Year,
		PeriodStart:  start,
		PeriodEnd:    end,
		Status:       StatusDraft,
		Adjustments:  in.Adjustments,
		Payment:      Payment{State: PaymentPending},
		Approvals:    approval.New(s.levels),
		CreatedBy:    actorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.compute(ctx, p, emp); err != nil {
		return nil, err
	}
	p.Status = StatusCalculated
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "payroll.create", p.ID, "", string(StatusDraft))
	s.record(ctx, actorID, "payroll.calculate", p.ID, string(StatusDraft), string(StatusCalculated))
	return p, nil
}

// Recalculate rewrites every derived field from current inputs. Approvals
// already given are discarded.
func (s *Service) Recalculate(ctx context.Context, id, actorID string) (*Payroll, error) {
	return s.mutate(ctx, id, actorID, "payroll.recalculate", []Status{StatusDraft, StatusCalculated}, func(p *Payroll) error {
		return s.recalculate(ctx, p)
	})
}

func (s *Service) SetAdjustments(ctx context.Context, id string, adj Adjustments, actorID string) (*Payroll, error) {
	if err := adj.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, actorID, "payroll.adjust", []Status{StatusDraft, StatusCalculated}, func(p *Payroll) error {
		p.Adjustments = adj
		return s.recalculate(ctx, p)
	})
}

// AssignCycle attaches a payroll calculated outside a cycle run.
func (s *Service) AssignCycle(ctx context.Context, id, cycleID, actorID string) (*Payroll, error) {
	return s.mutate(ctx, id, actorID, "payroll.assign_cycle", []Status{StatusDraft, StatusCalculated, StatusApproved}, func(p *Payroll) error {
		if p.CycleID == cycleID {
			return errNoChange
		}
		p.CycleID = cycleID
		return nil
	})
}

func (s *Service) recalculate(ctx context.Context, p *Payroll) error {
	emp, err := s.employees.Get(ctx, p.EmployeeID)
	if err != nil {
		return errs.Upstream("employee directory", err)
	}
	if err := s.compute(ctx, p, emp); err != nil {
		return err
	}
	p.Approvals.Reset()
	p.Status = StatusCalculated
	return nil
}

// compute gathers the inputs for p's period and applies the result.
func (s *Service) compute(ctx context.Context, p *Payroll, emp directory.Employee) error {
	st, err := s.structures.ActiveAt(ctx, p.EmployeeID, p.PeriodEnd)
	if err != nil {
		return errs.Upstream("salary structure", err)
	}
	summary, err := s.attendance.Get(ctx, p.EmployeeID, p.Month, p.Year)
	if err != nil {
		return errs.Upstream("attendance", err)
	}
	if err := summary.Validate(); err != nil {
		return err
	}
	tds, source, err := s.monthlyTDS(ctx, p.EmployeeID, p.Month, p.Year, st.Resolved.Gross)
	if err != nil {
		return err
	}

	c := Compute(CalcInput{
		Structure:   st,
		Attendance:  summary,
		Adjustments: p.Adjustments,
		PTState:     emp.WorkState,
		MonthlyTDS:  tds,
		TDSSource:   source,
	}, s.calc)

	p.Structure = StructureSnapshot{
		ID:            st.ID,
		Revision:      st.Revision,
		EffectiveDate: st.EffectiveDate,
		AnnualCTC:     st.AnnualCTC,
		Basic:         st.Basic,
		HRAPercent:    st.HRAPercent,
		MonthlyGross:  st.Resolved.Gross,
		Rules:         st.Rules,
	}
	p.Attendance.Summary = summary
	p.apply(c)
	p.Compliance.Warnings = nil
	if p.NetPay < 0 {
		p.Compliance.Warnings = append(p.Compliance.Warnings, FlagNegativeNet)
	}
	if !emp.Bank.Present() {
		p.Compliance.Warnings = append(p.Compliance.Warnings, FlagMissingBank)
	}
	at := s.now().UTC()
	p.CalculatedAt = &at
	return nil
}

// monthlyTDS prefers the employee's tax record for the financial year and
// otherwise estimates under the new regime from the structure gross.
func (s *Service) monthlyTDS(ctx context.Context, employeeID string, month, year int, monthlyGross money.Amount) (money.Amount, string, error) {
	if s.tax != nil {
		rec, err := s.tax.FindActive(ctx, employeeID, tax.FinancialYear(month, year))
		switch {
		case err == nil:
			return rec.MonthlyTDS, TDSFromTaxRecord, nil
		case !errors.Is(err, errs.ErrNotFound):
			return 0, "", errs.Upstream("tax records", err)
		}
	}
	est := tax.Compute(tax.Input{AnnualGross: monthlyGross * 12, Regime: tax.RegimeNew})
	return est.MonthlyTDS, TDSEstimated, nil
}

func (s *Service) ApproveLevel(ctx context.Context, id string, d approval.Decision, actorID string) (*Payroll, error) {
	return s.mutate(ctx, id, actorID, "payroll.approve_level", []Status{StatusCalculated}, func(p *Payroll) error {
		d.ApproverID = actorID
		d.At = s.now()
		return workflowError(p, "payroll.approve_level", p.Approvals.Approve(d))
	})
}

// RejectLevel marks a single level rejected. The payroll stays calculated
// until the level is re-routed and approved.
func (s *Service) RejectLevel(ctx context.Context, id string, d approval.Decision, actorID string) (*Payroll, error) {
	if strings.TrimSpace(d.Comment) == "" {
		return nil, errs.Invalid("comment", "is required when rejecting")
	}
	return s.mutate(ctx, id, actorID, "payroll.reject_level", []Status{StatusCalculated}, func(p *Payroll) error {
		d.ApproverID = actorID
		d.At = s.now()
		return workflowError(p, "payroll.reject_level", p.Approvals.Reject(d))
	})
}

func (s *Service) Reroute(ctx context.Context, id string, level int, role, actorID string) (*Payroll, error) {
	return s.mutate(ctx, id, actorID, "payroll.reroute", []Status{StatusCalculated}, func(p *Payroll) error {
		return workflowError(p, "payroll.reroute", p.Approvals.Reroute(level, role))
	})
}

func workflowError(p *Payroll, action string, err error) error {
	if err == nil || errors.Is(err, errs.ErrNotFound) {
		return err
	}
	return errs.Conflict(audit.EntityPayroll, p.ID, string(p.Status), action, err)
}

func (s *Service) Approve(ctx context.Context, id, actorID string) (*Payroll, error) {
	return s.mutate(ctx, id, actorID, "payroll.approve", []Status{StatusCalculated}, func(p *Payroll) error {
		if !p.Approvals.Complete() {
			return errs.Conflict(audit.EntityPayroll, p.ID, string(p.Status), "payroll.approve", ErrWorkflowIncomplete)
		}
		at := s.now().UTC()
		p.Status = StatusApproved
		p.ApprovedAt = &at
		return nil
	})
}

// MarkProcessed records that a disbursement has been initiated. Repeating
// the call for the same disbursement is a no-op. The month's TDS is posted
// to the tax record; a posting failure is logged and does not block payment.
func (s *Service) MarkProcessed(ctx context.Context, id, disbursementID, actorID string) (*Payroll, error) {
	p, err := s.mutate(ctx, id, actorID, "payroll.process", []Status{StatusApproved, StatusProcessed}, func(p *Payroll) error {
		if p.Status == StatusProcessed {
			if p.Payment.DisbursementID == disbursementID {
				return errNoChange
			}
			return errs.Conflict(audit.EntityPayroll, p.ID, string(p.Status), "payroll.process", ErrDisbursementMismatch)
		}
		at := s.now().UTC()
		p.Status = StatusProcessed
		p.Payment.DisbursementID = disbursementID
		p.Payment.State = PaymentProcessing
		p.Payment.ProcessedAt = &at
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.postTDS(ctx, p, actorID)
	return p, nil
}

func (s *Service) postTDS(ctx context.Context, p *Payroll, actorID string) {
	if s.tax == nil || p.Statutory.TDSSource != TDSFromTaxRecord {
		return
	}
	posting := tax.TDSPosting{Month: p.Month, Year: p.Year, Amount: p.Statutory.TDS, PayrollID: p.ID}
	if _, err := s.tax.PostMonthlyTDS(ctx, p.EmployeeID, tax.FinancialYear(p.Month, p.Year), posting, actorID); err != nil {
		slog.Warn("tds posting failed", "payrollId", p.ID, "employeeId", p.EmployeeID, "err", err)
	}
}

// RecordPaymentFailure notes a failed attempt. The payroll stays processed
// while the disbursement is retried.
func (s *Service) RecordPaymentFailure(ctx context.Context, id, disbursementID, reason, actorID string) (*Payroll, error) {
	return s.mutate(ctx, id, actorID, "payroll.payment_failed", []Status{StatusProcessed}, func(p *Payroll) error {
		if p.Payment.DisbursementID != disbursementID {
			return errs.Conflict(audit.EntityPayroll, p.ID, string(p.Status), "payroll.payment_failed", ErrDisbursementMismatch)
		}
		p.Payment.State = PaymentFailed
		p.Payment.FailureReason = reason
		p.Payment.Failures++
		return nil
	})
}

// MarkPaid closes the payroll and renders its payslip. A rendering failure
// leaves the payroll paid without a payslip; RegeneratePayslip retries it.
func (s *Service) MarkPaid(ctx context.Context, id, disbursementID, transactionRef, actorID string) (*Payroll, error) {
	return s.mutate(ctx, id, actorID, "payroll.paid", []Status{StatusProcessed, StatusPaid}, func(p *Payroll) error {
		if p.Payment.DisbursementID != disbursementID {
			return errs.Conflict(audit.EntityPayroll, p.ID, string(p.Status), "payroll.paid", ErrDisbursementMismatch)
		}
		if p.Status == StatusPaid {
			return errNoChange
		}
		at := s.now().UTC()
		p.Status = StatusPaid
		p.Payment.State = PaymentPaid
		p.Payment.PaidAt = &at
		p.Payment.TransactionRef = transactionRef
		p.Payment.FailureReason = ""
		s.renderPayslip(ctx, p)
		return nil
	})
}

// RegeneratePayslip is the only change accepted on a paid payroll.
func (s *Service) RegeneratePayslip(ctx context.Context, id, actorID string) (*Payroll, error) {
	return s.mutate(ctx, id, actorID, "payroll.payslip", []Status{StatusPaid}, func(p *Payroll) error {
		if s.documents == nil {
			return errs.Upstream("document generation", errors.New("not configured"))
		}
		doc, err := s.documents.Payslip(ctx, p, s.taxRecord(ctx, p))
		if err != nil {
			return errs.Upstream("document generation", err)
		}
		p.Payslip = &doc
		return nil
	})
}

func (s *Service) renderPayslip(ctx context.Context, p *Payroll) {
	if s.documents == nil {
		return
	}
	doc, err := s.documents.Payslip(ctx, p, s.taxRecord(ctx, p))
	if err != nil {
		slog.Warn("payslip generation failed", "payrollId", p.ID, "err", err)
		return
	}
	p.Payslip = &doc
}

func (s *Service) taxRecord(ctx context.Context, p *Payroll) *tax.Record {
	if s.tax == nil {
		return nil
	}
	rec, err := s.tax.FindActive(ctx, p.EmployeeID, tax.FinancialYear(p.Month, p.Year))
	if err != nil {
		return nil
	}
	return rec
}

func (s *Service) Cancel(ctx context.Context, id, reason, actorID string) (*Payroll, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, errs.Invalid("reason", "is required")
	}
	return s.mutate(ctx, id, actorID, "payroll.cancel", nil, func(p *Payroll) error {
		at := s.now().UTC()
		p.Status = StatusCancelled
		p.CancelledAt = &at
		p.CancelReason = reason
		return nil
	})
}

func (s *Service) Get(ctx context.Context, id string) (*Payroll, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) FindByEmployeePeriod(ctx context.Context, employeeID string, month, year int) (*Payroll, error) {
	return s.store.FindByEmployeePeriod(ctx, employeeID, month, year)
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Payroll, error) {
	return s.store.List(ctx, f)
}

// mutate applies one transition under the record lock. Paid and cancelled
// records are re-checked after the lock is taken, so a cancel that lands
// first always wins over a concurrent transition.
func (s *Service) mutate(ctx context.Context, id, actorID, action string, allowed []Status, apply func(*Payroll) error) (*Payroll, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case p.Status == StatusPaid && !slices.Contains(allowed, StatusPaid):
		return nil, errs.Conflict(audit.EntityPayroll, id, string(p.Status), action, ErrImmutableRecord)
	case p.Status == StatusCancelled:
		return nil, errs.Conflict(audit.EntityPayroll, id, string(p.Status), action, ErrCancelled)
	case len(allowed) > 0 && !slices.Contains(allowed, p.Status):
		return nil, errs.Conflict(audit.EntityPayroll, id, string(p.Status), action, ErrInvalidState)
	}
	before := p.Status
	if err := apply(p); err != nil {
		if errors.Is(err, errNoChange) {
			return p, nil
		}
		return nil, err
	}
	p.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, action, id, string(before), string(p.Status))
	return p, nil
}

func (s *Service) record(ctx context.Context, actorID, action, id, from, to string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Transition(ctx, actorID, action, audit.EntityPayroll, id, from, to); err != nil {
		slog.Warn("audit append failed", "action", action, "payrollId", id, "err", err)
	}
}
