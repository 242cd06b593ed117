// Package cycle runs a monthly payroll cycle across all payable employees
// and tracks its eight-stage lifecycle. Per-employee failures are recorded
// on the cycle and never abort the run.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"paycore/internal/domain/approval"
	"paycore/internal/domain/audit"
	"paycore/internal/domain/directory"
	"paycore/internal/domain/errs"
	"paycore/internal/domain/payroll"
	"paycore/internal/platform/keylock"
)

type Roster interface {
	ListPayable(ctx context.Context, start, end time.Time) ([]directory.Employee, error)
}

type Payrolls interface {
	Calculate(ctx context.Context, in payroll.CalculateInput, actorID string) (*payroll.Payroll, error)
	Recalculate(ctx context.Context, id, actorID string) (*payroll.Payroll, error)
	AssignCycle(ctx context.Context, id, cycleID, actorID string) (*payroll.Payroll, error)
	FindByEmployeePeriod(ctx context.Context, employeeID string, month, year int) (*payroll.Payroll, error)
	List(ctx context.Context, f payroll.Filter) ([]*payroll.Payroll, error)
	ApproveLevel(ctx context.Context, id string, d approval.Decision, actorID string) (*payroll.Payroll, error)
	Approve(ctx context.Context, id, actorID string) (*payroll.Payroll, error)
}

type Observer interface {
	CycleProcessed(processed, failed int)
}

type Deps struct {
	Store          StoreAPI
	Roster         Roster
	Payrolls       Payrolls
	Audit          *audit.Recorder
	Observer       Observer
	ApprovalLevels []string
	Concurrency    int
	Now            func() time.Time
}

type Service struct {
	store       StoreAPI
	roster      Roster
	payrolls    Payrolls
	audit       *audit.Recorder
	observer    Observer
	levels      []string
	concurrency int
	locks       *keylock.Map
	now         func() time.Time
}

func NewService(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Concurrency < 1 {
		d.Concurrency = 1
	}
	return &Service{
		store:       d.Store,
		roster:      d.Roster,
		payrolls:    d.Payrolls,
		audit:       d.Audit,
		observer:    d.Observer,
		levels:      d.ApprovalLevels,
		concurrency: d.Concurrency,
		locks:       keylock.New(),
		now:         d.Now,
	}
}

type CreateInput struct {
	Month   int        `json:"month"`
	Year    int        `json:"year"`
	Name    string     `json:"name"`
	PayDate *time.Time `json:"payDate,omitempty"`
}

func (s *Service) Create(ctx context.Context, in CreateInput, actorID string) (*Cycle, error) {
	verr := &errs.ValidationError{}
	if in.Month < 1 || in.Month > 12 {
		verr.Issues = append(verr.Issues, errs.Issue{Field: "month", Reason: "must be between 1 and 12"})
	}
	if in.Year < 2000 || in.Year > 2100 {
		verr.Issues = append(verr.Issues, errs.Issue{Field: "year", Reason: "is out of range"})
	}
	if len(verr.Issues) > 0 {
		return nil, verr
	}
	start, end := payroll.PeriodBounds(in.Month, in.Year)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = fmt.Sprintf("Payroll %s", start.Format("January 2006"))
	}
	now := s.now().UTC()
	c := &Cycle{
		ID:          uuid.NewString(),
		Name:        name,
		Month:       in.Month,
		Year:        in.Year,
		PeriodStart: start,
		PeriodEnd:   end,
		PayDate:     in.PayDate,
		Status:      StatusDraft,
		Approvals:   approval.New(s.levels),
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "cycle.create", c.ID, "", string(c.Status))
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Cycle, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, year int) ([]*Cycle, error) {
	return s.store.List(ctx, year)
}

func (s *Service) LockAttendance(ctx context.Context, id, actorID string) (*Cycle, error) {
	return s.advance(ctx, id, actorID, "cycle.lock_attendance", StatusAttendanceLocked, nil)
}

type ProcessInput struct {
	EmployeeIDs []string `json:"employeeIds,omitempty"`
}

type ItemResult struct {
	EmployeeID string `json:"employeeId"`
	PayrollID  string `json:"payrollId,omitempty"`
	Skipped    bool   `json:"skipped,omitempty"`
	ErrorType  string `json:"errorType,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ProcessResult is returned for every run, including partial failures.
type ProcessResult struct {
	CycleID   string       `json:"cycleId"`
	Total     int          `json:"total"`
	Processed int          `json:"processed"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Items     []ItemResult `json:"items"`
	Cycle     *Cycle       `json:"cycle"`
}

// Process calculates the payroll of every payable employee, or of the
// given subset. Existing payrolls that are not yet approved are
// recalculated in place; approved or later ones are left untouched.
func (s *Service) Process(ctx context.Context, id string, in ProcessInput, actorID string) (*ProcessResult, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusAttendanceLocked && c.Status != StatusCalculated {
		return nil, errs.Conflict(audit.EntityCycle, id, string(c.Status), "cycle.process", ErrInvalidState)
	}

	employees, err := s.roster.ListPayable(ctx, c.PeriodStart, c.PeriodEnd)
	if err != nil {
		return nil, errs.Upstream("employee directory", err)
	}
	if len(in.EmployeeIDs) > 0 {
		employees = slices.DeleteFunc(employees, func(e directory.Employee) bool {
			return !slices.Contains(in.EmployeeIDs, e.ID)
		})
	}

	items := make([]ItemResult, len(employees))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, emp := range employees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i] = s.processOne(gctx, c, emp.ID, actorID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &ProcessResult{CycleID: c.ID, Total: len(items), Items: items}
	now := s.now().UTC()
	for _, item := range items {
		switch {
		case item.Error != "":
			res.Failed++
			c.recordError(item, now)
		case item.Skipped:
			res.Skipped++
		default:
			res.Processed++
			c.resolveErrorsFor(item.EmployeeID, "system", "recalculated successfully", now)
		}
	}

	if err := s.refreshSummary(ctx, c); err != nil {
		return nil, err
	}
	before := c.Status
	if c.Status == StatusAttendanceLocked {
		c.advance(StatusCalculated, now)
	}
	c.UpdatedAt = now
	if err := s.store.Update(ctx, c); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "cycle.process", c.ID, string(before), string(c.Status))
	if s.observer != nil {
		s.observer.CycleProcessed(res.Processed, res.Failed)
	}
	slog.Info("payroll cycle processed", "cycleId", c.ID, "processed", res.Processed, "skipped", res.Skipped, "failed", res.Failed)
	res.Cycle = c
	return res, nil
}

func (s *Service) processOne(ctx context.Context, c *Cycle, employeeID, actorID string) ItemResult {
	item := ItemResult{EmployeeID: employeeID}
	p, err := s.payrolls.FindByEmployeePeriod(ctx, employeeID, c.Month, c.Year)
	switch {
	case err == nil:
		if p.CycleID != c.ID && !p.Status.Terminal() && p.Status != payroll.StatusProcessed {
			if p, err = s.payrolls.AssignCycle(ctx, p.ID, c.ID, actorID); err != nil {
				break
			}
		}
		if p.Status != payroll.StatusDraft && p.Status != payroll.StatusCalculated {
			item.PayrollID = p.ID
			item.Skipped = true
			return item
		}
		p, err = s.payrolls.Recalculate(ctx, p.ID, actorID)
	case errors.Is(err, payroll.ErrPayrollNotFound):
		p, err = s.payrolls.Calculate(ctx, payroll.CalculateInput{
			EmployeeID: employeeID,
			Month:      c.Month,
			Year:       c.Year,
			CycleID:    c.ID,
		}, actorID)
	}
	if err != nil {
		item.ErrorType = classify(err)
		item.Error = err.Error()
		slog.Warn("payroll calculation failed", "cycleId", c.ID, "employeeId", employeeID, "errorType", item.ErrorType, "err", err)
		return item
	}
	item.PayrollID = p.ID
	return item
}

func classify(err error) string {
	switch {
	case errors.Is(err, errs.ErrUpstreamUnavailable):
		return ErrorTypeUpstream
	case errors.Is(err, payroll.ErrDuplicatePayroll):
		return ErrorTypeDuplicate
	case errors.Is(err, errs.ErrValidation):
		return ErrorTypeValidation
	case errors.Is(err, errs.ErrStateConflict):
		return ErrorTypeState
	default:
		return ErrorTypeCalculation
	}
}

func (c *Cycle) recordError(item ItemResult, at time.Time) {
	for i := range c.Errors {
		e := &c.Errors[i]
		if !e.Resolved && e.EmployeeID == item.EmployeeID && e.Type == item.ErrorType {
			e.Message = item.Error
			e.OccurredAt = at
			return
		}
	}
	c.Errors = append(c.Errors, ProcessingError{
		ID:         uuid.NewString(),
		EmployeeID: item.EmployeeID,
		Type:       item.ErrorType,
		Message:    item.Error,
		OccurredAt: at,
	})
}

func (c *Cycle) resolveErrorsFor(employeeID, actorID, resolution string, at time.Time) {
	for i := range c.Errors {
		e := &c.Errors[i]
		if e.Resolved || e.EmployeeID != employeeID {
			continue
		}
		e.Resolved = true
		e.ResolvedBy = actorID
		e.Resolution = resolution
		e.ResolvedAt = &at
	}
}

// ResolveError marks a processing error as handled outside the run.
func (s *Service) ResolveError(ctx context.Context, id, errorID, resolution, actorID string) (*Cycle, error) {
	if strings.TrimSpace(resolution) == "" {
		return nil, errs.Invalid("resolution", "is required")
	}
	return s.mutate(ctx, id, actorID, "cycle.resolve_error", nil, func(c *Cycle) error {
		for i := range c.Errors {
			e := &c.Errors[i]
			if e.ID != errorID {
				continue
			}
			if e.Resolved {
				return errNoChange
			}
			at := s.now().UTC()
			e.Resolved = true
			e.ResolvedBy = actorID
			e.Resolution = resolution
			e.ResolvedAt = &at
			return nil
		}
		return ErrErrorNotFound
	})
}

func (s *Service) Review(ctx context.Context, id, actorID string) (*Cycle, error) {
	return s.advance(ctx, id, actorID, "cycle.review", StatusReviewed, nil)
}

func (s *Service) ApproveLevel(ctx context.Context, id string, d approval.Decision, actorID string) (*Cycle, error) {
	return s.mutate(ctx, id, actorID, "cycle.approve_level", []Status{StatusReviewed}, func(c *Cycle) error {
		d.ApproverID = actorID
		d.At = s.now()
		return workflowError(c, "cycle.approve_level", c.Approvals.Approve(d))
	})
}

func (s *Service) RejectLevel(ctx context.Context, id string, d approval.Decision, actorID string) (*Cycle, error) {
	if strings.TrimSpace(d.Comment) == "" {
		return nil, errs.Invalid("comment", "is required when rejecting")
	}
	return s.mutate(ctx, id, actorID, "cycle.reject_level", []Status{StatusReviewed}, func(c *Cycle) error {
		d.ApproverID = actorID
		d.At = s.now()
		return workflowError(c, "cycle.reject_level", c.Approvals.Reject(d))
	})
}

func (s *Service) Reroute(ctx context.Context, id string, level int, role, actorID string) (*Cycle, error) {
	return s.mutate(ctx, id, actorID, "cycle.reroute", []Status{StatusReviewed}, func(c *Cycle) error {
		return workflowError(c, "cycle.reroute", c.Approvals.Reroute(level, role))
	})
}

func (s *Service) Approve(ctx context.Context, id, actorID string) (*Cycle, error) {
	return s.advance(ctx, id, actorID, "cycle.approve", StatusApproved, func(c *Cycle) error {
		if !c.Approvals.Complete() {
			return errs.Conflict(audit.EntityCycle, c.ID, string(c.Status), "cycle.approve", ErrWorkflowIncomplete)
		}
		return nil
	})
}

func (s *Service) MarkProcessed(ctx context.Context, id, actorID string) (*Cycle, error) {
	return s.advance(ctx, id, actorID, "cycle.process_payments", StatusProcessed, func(c *Cycle) error {
		if !c.CanProcess() {
			return errs.Conflict(audit.EntityCycle, c.ID, string(c.Status), "cycle.process_payments", ErrUnresolvedErrors)
		}
		return s.refreshSummary(ctx, c)
	})
}

func (s *Service) MarkDisbursed(ctx context.Context, id, actorID string) (*Cycle, error) {
	return s.advance(ctx, id, actorID, "cycle.disburse", StatusDisbursed, func(c *Cycle) error {
		return s.refreshSummary(ctx, c)
	})
}

func (s *Service) Complete(ctx context.Context, id, actorID string) (*Cycle, error) {
	return s.advance(ctx, id, actorID, "cycle.complete", StatusCompleted, func(c *Cycle) error {
		return s.refreshSummary(ctx, c)
	})
}

func (s *Service) RefreshSummary(ctx context.Context, id, actorID string) (*Cycle, error) {
	return s.mutate(ctx, id, actorID, "cycle.refresh_summary", nil, func(c *Cycle) error {
		return s.refreshSummary(ctx, c)
	})
}

type BulkResult struct {
	Approved int          `json:"approved"`
	Failed   int          `json:"failed"`
	Items    []ItemResult `json:"items"`
}

// ApprovePayrolls signs one approval level on every calculated payroll in
// the cycle and approves those whose workflow becomes complete.
func (s *Service) ApprovePayrolls(ctx context.Context, id string, d approval.Decision, actorID string) (*BulkResult, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	list, err := s.payrolls.List(ctx, payroll.Filter{CycleID: c.ID, Status: payroll.StatusCalculated})
	if err != nil {
		return nil, err
	}
	res := &BulkResult{}
	for _, p := range list {
		item := ItemResult{EmployeeID: p.EmployeeID, PayrollID: p.ID}
		updated, err := s.payrolls.ApproveLevel(ctx, p.ID, d, actorID)
		if err == nil && updated.Approvals.Complete() {
			_, err = s.payrolls.Approve(ctx, p.ID, actorID)
		}
		if err != nil {
			item.ErrorType = classify(err)
			item.Error = err.Error()
			res.Failed++
		} else {
			res.Approved++
		}
		res.Items = append(res.Items, item)
	}
	return res, nil
}

// refreshSummary recomputes totals from the cycle's payrolls. Cancelled
// payrolls are counted but excluded from the money totals.
func (s *Service) refreshSummary(ctx context.Context, c *Cycle) error {
	list, err := s.payrolls.List(ctx, payroll.Filter{CycleID: c.ID})
	if err != nil {
		return err
	}
	sum := Summary{}
	depts := map[string]*DepartmentSummary{}
	for _, p := range list {
		if p.Status == payroll.StatusCancelled {
			sum.Cancelled++
			continue
		}
		sum.Employees++
		switch p.Status {
		case payroll.StatusCalculated:
			sum.Calculated++
		case payroll.StatusApproved, payroll.StatusProcessed:
			sum.Approved++
		case payroll.StatusPaid:
			sum.Paid++
		}
		sum.GrossPay += p.GrossPay
		sum.TotalDeductions += p.TotalDeductions
		sum.NetPay += p.NetPay
		sum.EmployerContributions += p.EmployerContributions
		sum.PF += p.Statutory.PF.Employee
		sum.ESI += p.Statutory.ESI.Employee
		sum.ProfessionalTax += p.Statutory.ProfessionalTax
		sum.TDS += p.Statutory.TDS

		d, ok := depts[p.Department]
		if !ok {
			d = &DepartmentSummary{Department: p.Department}
			depts[p.Department] = d
		}
		d.Employees++
		d.GrossPay += p.GrossPay
		d.TotalDeductions += p.TotalDeductions
		d.NetPay += p.NetPay
	}
	for _, d := range depts {
		sum.Departments = append(sum.Departments, *d)
	}
	sort.Slice(sum.Departments, func(i, j int) bool { return sum.Departments[i].Department < sum.Departments[j].Department })
	c.Summary = sum
	return nil
}

var errNoChange = errors.New("no change")

// advance moves the cycle exactly one stage forward after check passes.
func (s *Service) advance(ctx context.Context, id, actorID, action string, to Status, check func(*Cycle) error) (*Cycle, error) {
	from := stages[to.Step()-1]
	return s.mutate(ctx, id, actorID, action, []Status{from}, func(c *Cycle) error {
		if check != nil {
			if err := check(c); err != nil {
				return err
			}
		}
		c.advance(to, s.now())
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, id, actorID, action string, allowed []Status, apply func(*Cycle) error) (*Cycle, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(allowed) > 0 && !slices.Contains(allowed, c.Status) {
		return nil, errs.Conflict(audit.EntityCycle, id, string(c.Status), action, ErrInvalidState)
	}
	before := c.Status
	if err := apply(c); err != nil {
		if errors.Is(err, errNoChange) {
			return c, nil
		}
		return nil, err
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, c); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, action, id, string(before), string(c.Status))
	return c, nil
}

func workflowError(c *Cycle, action string, err error) error {
	if err == nil || errors.Is(err, errs.ErrNotFound) {
		return err
	}
	return errs.Conflict(audit.EntityCycle, c.ID, string(c.Status), action, err)
}

func (s *Service) record(ctx context.Context, actorID, action, id, from, to string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Transition(ctx, actorID, action, audit.EntityCycle, id, from, to); err != nil {
		slog.Warn("audit append failed", "action", action, "cycleId", id, "err", err)
	}
}
