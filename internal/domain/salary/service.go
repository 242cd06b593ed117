package salary

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"paycore/internal/domain/audit"
	"paycore/internal/domain/errs"
	"paycore/internal/domain/money"
	"paycore/internal/domain/statutory"
	"paycore/internal/platform/keylock"
)

type Service struct {
	store StoreAPI
	calc  *statutory.Calculator
	audit *audit.Recorder
	locks *keylock.Map
	now   func() time.Time
}

func NewService(store StoreAPI, calc *statutory.Calculator, recorder *audit.Recorder, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, calc: calc, audit: recorder, locks: keylock.New(), now: now}
}

type Input struct {
	EmployeeID    string          `json:"employeeId"`
	EffectiveDate time.Time       `json:"effectiveDate"`
	AnnualCTC     money.Amount    `json:"annualCtc"`
	Basic         money.Amount    `json:"basic"`
	HRAPercent    decimal.Decimal `json:"hraPercent"`
	Earnings      []Component     `json:"earnings"`
	Deductions    []Component     `json:"deductions"`
	Rules         *Rules          `json:"rules,omitempty"`
}

var hundred = decimal.NewFromInt(100)

func (in Input) validate() error {
	verr := &errs.ValidationError{}
	add := func(field, reason string) {
		verr.Issues = append(verr.Issues, errs.Issue{Field: field, Reason: reason})
	}
	if strings.TrimSpace(in.EmployeeID) == "" {
		add("employeeId", "is required")
	}
	if in.EffectiveDate.IsZero() {
		add("effectiveDate", "is required")
	}
	if in.AnnualCTC <= 0 {
		add("annualCtc", "must be positive")
	}
	if in.Basic <= 0 {
		add("basic", "must be positive")
	}
	if in.AnnualCTC > 0 && in.Basic*12 > in.AnnualCTC {
		add("basic", "annualised basic must not exceed CTC")
	}
	if in.HRAPercent.IsNegative() || in.HRAPercent.GreaterThan(hundred) {
		add("hraPercent", "must be between 0 and 100")
	}
	check := func(prefix string, comps []Component) {
		for i, c := range comps {
			field := fmt.Sprintf("%s[%d]", prefix, i)
			if strings.TrimSpace(c.Name) == "" {
				add(field+".name", "is required")
			}
			if c.Value.IsNegative() {
				add(field+".value", "must not be negative")
			}
			switch c.Kind {
			case KindFixed:
			case KindPercentage:
				switch c.Base {
				case "", BaseBasic, BaseGross, BaseCTC:
				default:
					add(field+".base", "must be basic, gross or ctc")
				}
				if c.Value.GreaterThan(hundred) {
					add(field+".value", "percentage must not exceed 100")
				}
			default:
				add(field+".kind", "must be fixed or percentage")
			}
		}
	}
	check("earnings", in.Earnings)
	check("deductions", in.Deductions)
	if len(verr.Issues) > 0 {
		return verr
	}
	return nil
}

func (in Input) apply(st *Structure) {
	st.EffectiveDate = dateOnly(in.EffectiveDate)
	st.AnnualCTC = in.AnnualCTC
	st.Basic = in.Basic
	st.HRAPercent = in.HRAPercent
	if st.HRAPercent.IsZero() {
		st.HRAPercent = DefaultHRAPercent
	}
	st.Earnings = normalize(in.Earnings)
	st.Deductions = normalize(in.Deductions)
	if in.Rules != nil {
		st.Rules = *in.Rules
	} else if st.Rules == (Rules{}) {
		st.Rules = DefaultRules()
	}
}

func normalize(comps []Component) []Component {
	out := make([]Component, 0, len(comps))
	for _, c := range comps {
		if c.Kind == KindPercentage && c.Base == "" {
			c.Base = BaseBasic
		}
		out = append(out, c)
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Create starts an employee's structure history as a draft.
func (s *Service) Create(ctx context.Context, in Input, actorID string) (*Structure, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(in.EmployeeID)
	defer unlock()

	existing, err := s.store.ListByEmployee(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrStructureExists
	}
	st := s.newStructure(in, 1, StatusDraft, actorID)
	if err := s.store.Create(ctx, st); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "salary.create", st.ID, "", string(st.Status))
	return st, nil
}

// Revise adds a new effective-dated version awaiting approval. The current
// version stays in force until the revision is approved.
func (s *Service) Revise(ctx context.Context, id string, in Input, actorID string) (*Structure, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.EmployeeID = current.EmployeeID
	if err := in.validate(); err != nil {
		return nil, err
	}
	if !dateOnly(in.EffectiveDate).After(current.EffectiveDate) {
		return nil, errs.Invalid("effectiveDate", "must be after the revised structure's effective date")
	}

	unlock := s.locks.Lock(current.EmployeeID)
	defer unlock()

	history, err := s.store.ListByEmployee(ctx, current.EmployeeID)
	if err != nil {
		return nil, err
	}
	revision := 1
	for _, h := range history {
		revision = max(revision, h.Revision+1)
	}
	st := s.newStructure(in, revision, StatusPendingApproval, actorID)
	if err := s.store.Create(ctx, st); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "salary.revise", st.ID, "", string(st.Status))
	return st, nil
}

// Update edits a structure in place. An approved structure goes back to
// pending approval.
func (s *Service) Update(ctx context.Context, id string, in Input, actorID string) (*Structure, error) {
	return s.mutate(ctx, id, actorID, "salary.update", nil, func(st *Structure) error {
		in.EmployeeID = st.EmployeeID
		if err := in.validate(); err != nil {
			return err
		}
		in.apply(st)
		st.Recompute(s.calc)
		switch st.Status {
		case StatusApproved:
			st.Status = StatusPendingApproval
			st.ApprovedBy = ""
			st.ApprovedAt = nil
		case StatusRejected:
			st.Status = StatusDraft
		}
		return nil
	})
}

func (s *Service) Recompute(ctx context.Context, id, actorID string) (*Structure, error) {
	return s.mutate(ctx, id, actorID, "salary.recompute", nil, func(st *Structure) error {
		st.Recompute(s.calc)
		return nil
	})
}

func (s *Service) Submit(ctx context.Context, id, actorID string) (*Structure, error) {
	return s.mutate(ctx, id, actorID, "salary.submit", []Status{StatusDraft, StatusRejected}, func(st *Structure) error {
		st.Status = StatusPendingApproval
		st.RejectReason = ""
		return nil
	})
}

func (s *Service) Reject(ctx context.Context, id, reason, actorID string) (*Structure, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, errs.Invalid("reason", "is required")
	}
	return s.mutate(ctx, id, actorID, "salary.reject", []Status{StatusPendingApproval}, func(st *Structure) error {
		st.Status = StatusRejected
		st.RejectReason = reason
		return nil
	})
}

// Approve puts the structure in force and closes any earlier approved
// version that overlaps its effective date.
func (s *Service) Approve(ctx context.Context, id, actorID string) (*Structure, error) {
	return s.mutate(ctx, id, actorID, "salary.approve", []Status{StatusPendingApproval}, func(st *Structure) error {
		history, err := s.store.ListByEmployee(ctx, st.EmployeeID)
		if err != nil {
			return err
		}
		end := st.EffectiveDate.AddDate(0, 0, -1)
		for _, h := range history {
			if h.ID == st.ID || h.Status != StatusApproved || h.SupersededBy != "" {
				continue
			}
			if !h.EffectiveDate.Before(st.EffectiveDate) {
				continue
			}
			if h.EndDate != nil && h.EndDate.Before(st.EffectiveDate) {
				continue
			}
			h.EndDate = &end
			h.SupersededBy = st.ID
			h.UpdatedAt = s.now().UTC()
			if err := s.store.Update(ctx, h); err != nil {
				return fmt.Errorf("close superseded structure %s: %w", h.ID, err)
			}
			s.record(ctx, actorID, "salary.supersede", h.ID, string(h.Status), string(h.Status))
		}
		now := s.now().UTC()
		st.Status = StatusApproved
		st.ApprovedBy = actorID
		st.ApprovedAt = &now
		return nil
	})
}

func (s *Service) Get(ctx context.Context, id string) (*Structure, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) History(ctx context.Context, employeeID string) ([]*Structure, error) {
	return s.store.ListByEmployee(ctx, employeeID)
}

// ActiveAt returns the approved structure in force on day at.
func (s *Service) ActiveAt(ctx context.Context, employeeID string, at time.Time) (*Structure, error) {
	history, err := s.store.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	day := dateOnly(at)
	var active *Structure
	for _, st := range history {
		if !st.ActiveOn(day) {
			continue
		}
		if active == nil || st.EffectiveDate.After(active.EffectiveDate) {
			active = st
		}
	}
	if active == nil {
		return nil, ErrNoActiveStructure
	}
	return active, nil
}

func (s *Service) newStructure(in Input, revision int, status Status, actorID string) *Structure {
	now := s.now().UTC()
	st := &Structure{
		ID:         uuid.NewString(),
		EmployeeID: in.EmployeeID,
		Revision:   revision,
		Status:     status,
		CreatedBy:  actorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	in.apply(st)
	st.Recompute(s.calc)
	return st
}

// mutate locks on the employee so approvals and supersession of sibling
// versions never interleave.
func (s *Service) mutate(ctx context.Context, id, actorID, action string, allowed []Status, apply func(*Structure) error) (*Structure, error) {
	probe, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(probe.EmployeeID)
	defer unlock()

	st, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.SupersededBy != "" {
		return nil, errs.Conflict(audit.EntitySalaryStructure, id, string(st.Status), action, ErrSuperseded)
	}
	if len(allowed) > 0 && !slices.Contains(allowed, st.Status) {
		return nil, errs.Conflict(audit.EntitySalaryStructure, id, string(st.Status), action, ErrInvalidState)
	}
	before := st.Status
	if err := apply(st); err != nil {
		return nil, err
	}
	st.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, st); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, action, id, string(before), string(st.Status))
	return st, nil
}

func (s *Service) record(ctx context.Context, actorID, action, id, from, to string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Transition(ctx, actorID, action, audit.EntitySalaryStructure, id, from, to); err != nil {
		slog.Warn("audit append failed", "action", action, "structureId", id, "err", err)
	}
}
