package tax

import (
	"context"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"paycore/internal/domain/audit"
	"paycore/internal/domain/errs"
	"paycore/internal/platform/keylock"
)

var financialYearPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

type Service struct {
	store StoreAPI
	audit *audit.Recorder
	locks *keylock.Map
	now   func() time.Time
}

func NewService(store StoreAPI, recorder *audit.Recorder, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, audit: recorder, locks: keylock.New(), now: now}
}

type OpenInput struct {
	EmployeeID    string          `json:"employeeId"`
	FinancialYear string          `json:"financialYear"`
	Regime        Regime          `json:"regime"`
	Salary        SalaryBreakdown `json:"salary"`
}

func (in OpenInput) validate() error {
	verr := &errs.ValidationError{}
	if strings.TrimSpace(in.EmployeeID) == "" {
		verr.Issues = append(verr.Issues, errs.Issue{Field: "employeeId", Reason: "is required"})
	}
	if !financialYearPattern.MatchString(in.FinancialYear) {
		verr.Issues = append(verr.Issues, errs.Issue{Field: "financialYear", Reason: "must look like 2024-25"})
	}
	if in.Regime != "" && !in.Regime.Valid() {
		verr.Issues = append(verr.Issues, errs.Issue{Field: "regime", Reason: "must be old or new"})
	}
	if in.Salary.Gross < 0 || in.Salary.Basic < 0 || in.Salary.HRA < 0 {
		verr.Issues = append(verr.Issues, errs.Issue{Field: "salary", Reason: "amounts must not be negative"})
	}
	if len(verr.Issues) > 0 {
		return verr
	}
	return nil
}

// Open creates the single active record for an employee and financial year.
func (s *Service) Open(ctx context.Context, in OpenInput, actorID string) (*Record, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.Regime == "" {
		in.Regime = RegimeNew
	}
	now := s.now().UTC()
	rec := &Record{
		ID:            uuid.NewString(),
		EmployeeID:    in.EmployeeID,
		FinancialYear: in.FinancialYear,
		Regime:        in.Regime,
		Status:        StatusDraft,
		Salary:        in.Salary,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	rec.Recompute()
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "tax.open", rec.ID, "", string(rec.Status))
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) FindActive(ctx context.Context, employeeID, financialYear string) (*Record, error) {
	return s.store.FindByEmployeeYear(ctx, employeeID, financialYear)
}

func (s *Service) ListByYear(ctx context.Context, financialYear string) ([]*Record, error) {
	return s.store.ListByYear(ctx, financialYear)
}

func (s *Service) Declare(ctx context.Context, id string, decl Declarations, actorID string) (*Record, error) {
	if decl.Section80C < 0 || decl.Section80D < 0 || decl.Section80E < 0 || decl.Section24 < 0 || decl.RentPaid < 0 {
		return nil, errs.Invalid("declarations", "amounts must not be negative")
	}
	return s.mutate(ctx, id, actorID, "tax.declare", []Status{StatusDraft}, func(rec *Record) error {
		rec.Declarations = decl
		rec.Recompute()
		return nil
	})
}

func (s *Service) UpdateSalary(ctx context.Context, id string, salary SalaryBreakdown, actorID string) (*Record, error) {
	if salary.Gross < 0 || salary.Basic < 0 || salary.HRA < 0 {
		return nil, errs.Invalid("salary", "amounts must not be negative")
	}
	return s.mutate(ctx, id, actorID, "tax.salary", []Status{StatusDraft, StatusSubmitted, StatusUnderReview}, func(rec *Record) error {
		rec.Salary = salary
		rec.Recompute()
		return nil
	})
}

func (s *Service) SelectRegime(ctx context.Context, id string, regime Regime, actorID string) (*Record, error) {
	if !regime.Valid() {
		return nil, errs.Invalid("regime", "must be old or new")
	}
	return s.mutate(ctx, id, actorID, "tax.regime", []Status{StatusDraft}, func(rec *Record) error {
		rec.Regime = regime
		rec.Recompute()
		return nil
	})
}

type ProofInput struct {
	Section     string `json:"section"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	FileRef     string `json:"fileRef"`
}

func (s *Service) AddProof(ctx context.Context, id string, in ProofInput, actorID string) (*Record, error) {
	verr := &errs.ValidationError{}
	if strings.TrimSpace(in.Section) == "" {
		verr.Issues = append(verr.Issues, errs.Issue{Field: "section", Reason: "is required"})
	}
	if strings.TrimSpace(in.FileRef) == "" {
		verr.Issues = append(verr.Issues, errs.Issue{Field: "fileRef", Reason: "is required"})
	}
	if in.Amount < 0 {
		verr.Issues = append(verr.Issues, errs.Issue{Field: "amount", Reason: "must not be negative"})
	}
	if len(verr.Issues) > 0 {
		return nil, verr
	}
	return s.mutate(ctx, id, actorID, "tax.proof.add", []Status{StatusDraft, StatusSubmitted}, func(rec *Record) error {
		rec.Proofs = append(rec.Proofs, Proof{
			ID:          uuid.NewString(),
			Section:     in.Section,
			Description: in.Description,
			Amount:      in.Amount,
			FileRef:     in.FileRef,
			UploadedAt:  s.now().UTC(),
		})
		return nil
	})
}

// VerifyProof marks one proof checked. Proofs are verified independently.
func (s *Service) VerifyProof(ctx context.Context, id, proofID string, verified bool, remarks, actorID string) (*Record, error) {
	return s.mutate(ctx, id, actorID, "tax.proof.verify", []Status{StatusSubmitted, StatusUnderReview}, func(rec *Record) error {
		for i := range rec.Proofs {
			if rec.Proofs[i].ID != proofID {
				continue
			}
			now := s.now().UTC()
			rec.Proofs[i].Verified = verified
			rec.Proofs[i].VerifiedBy = actorID
			rec.Proofs[i].VerifiedAt = &now
			rec.Proofs[i].Remarks = remarks
			return nil
		}
		return ErrProofNotFound
	})
}

func (s *Service) Compute(ctx context.Context, id, actorID string) (*Record, error) {
	return s.mutate(ctx, id, actorID, "tax.compute", []Status{StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved}, func(rec *Record) error {
		rec.Recompute()
		return nil
	})
}

func (s *Service) Submit(ctx context.Context, id, actorID string) (*Record, error) {
	return s.mutate(ctx, id, actorID, "tax.submit", []Status{StatusDraft}, func(rec *Record) error {
		now := s.now().UTC()
		rec.Recompute()
		rec.Status = StatusSubmitted
		rec.SubmittedAt = &now
		return nil
	})
}

func (s *Service) StartReview(ctx context.Context, id, actorID string) (*Record, error) {
	return s.mutate(ctx, id, actorID, "tax.review", []Status{StatusSubmitted}, func(rec *Record) error {
		rec.Status = StatusUnderReview
		return nil
	})
}

func (s *Service) Approve(ctx context.Context, id, actorID string) (*Record, error) {
	return s.mutate(ctx, id, actorID, "tax.approve", []Status{StatusUnderReview}, func(rec *Record) error {
		now := s.now().UTC()
		rec.Status = StatusApproved
		rec.ApprovedBy = actorID
		rec.ApprovedAt = &now
		return nil
	})
}

func (s *Service) Complete(ctx context.Context, id, actorID string) (*Record, error) {
	return s.mutate(ctx, id, actorID, "tax.complete", []Status{StatusApproved}, func(rec *Record) error {
		rec.Status = StatusCompleted
		return nil
	})
}

// PostMonthlyTDS records the TDS withheld by one processed payroll. A second
// posting for the same month replaces the first.
func (s *Service) PostMonthlyTDS(ctx context.Context, employeeID, financialYear string, posting TDSPosting, actorID string) (*Record, error) {
	if posting.Month < 1 || posting.Month > 12 {
		return nil, errs.Invalid("month", "must be between 1 and 12")
	}
	if posting.Amount < 0 {
		return nil, errs.Invalid("amount", "must not be negative")
	}
	rec, err := s.store.FindByEmployeeYear(ctx, employeeID, financialYear)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, rec.ID, actorID, "tax.tds.post", nil, func(rec *Record) error {
		if posting.PostedAt.IsZero() {
			posting.PostedAt = s.now().UTC()
		}
		rec.upsertPosting(posting)
		return nil
	})
}

func (s *Service) CompareRegimes(ctx context.Context, id string) (Comparison, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return Comparison{}, err
	}
	return Compare(rec.Salary.Gross, rec.Declarations.Deductible(), rec.HRAExemption()), nil
}

func (s *Service) MarkForm16Generated(ctx context.Context, id, ref, actorID string) (*Record, error) {
	return s.mutate(ctx, id, actorID, "tax.form16", []Status{StatusApproved, StatusCompleted}, func(rec *Record) error {
		now := s.now().UTC()
		rec.Form16Generated = true
		rec.Form16Ref = ref
		rec.Form16At = &now
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, id, actorID, action string, allowed []Status, apply func(*Record) error) (*Record, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(allowed) > 0 && !slices.Contains(allowed, rec.Status) {
		return nil, errs.Conflict(audit.EntityTaxRecord, id, string(rec.Status), action, ErrInvalidState)
	}
	before := rec.Status
	if err := apply(rec); err != nil {
		return nil, err
	}
	rec.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, rec); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, action, id, string(before), string(rec.Status))
	return rec, nil
}

func (s *Service) record(ctx context.Context, actorID, action, id, from, to string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Transition(ctx, actorID, action, audit.EntityTaxRecord, id, from, to); err != nil {
		slog.Warn("audit append failed", "action", action, "taxRecordId", id, "err", err)
	}
}
