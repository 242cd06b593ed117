// Package disbursement pays approved payrolls through an external payment
// rail. Each disbursement carries its own transaction state machine with
// bounded retries, and can be reconciled against a bank statement once the
// payment has succeeded.
package disbursement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"paycore/internal/domain/audit"
	"paycore/internal/domain/directory"
	"paycore/internal/domain/errs"
	"paycore/internal/domain/money"
	"paycore/internal/domain/payroll"
	"paycore/internal/platform/keylock"
)

const (
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 30 * time.Minute
)

var reconcileTolerance = decimal.RequireFromString("0.01")

type Payrolls interface {
	Get(ctx context.Context, id string) (*payroll.Payroll, error)
	List(ctx context.Context, f payroll.Filter) ([]*payroll.Payroll, error)
	MarkProcessed(ctx context.Context, id, disbursementID, actorID string) (*payroll.Payroll, error)
	RecordPaymentFailure(ctx context.Context, id, disbursementID, reason, actorID string) (*payroll.Payroll, error)
	MarkPaid(ctx context.Context, id, disbursementID, transactionRef, actorID string) (*payroll.Payroll, error)
}

type EmployeeSource interface {
	Get(ctx context.Context, id string) (directory.Employee, error)
}

type Instruction struct {
	DisbursementID string
	Reference      string
	Amount         money.Amount
	Account        directory.BankAccount
	Method         Method
	Attempt        int
}

// Ack is the rail's synchronous answer. The final outcome arrives later
// through UpdatePaymentStatus.
type Ack struct {
	TransactionID string
	Gateway       string
	Queued        bool
}

type Rail interface {
	Submit(ctx context.Context, in Instruction) (Ack, error)
}

// Event is published once a payment succeeds.
type Event struct {
	DisbursementID string       `json:"disbursementId"`
	PayrollID      string       `json:"payrollId"`
	EmployeeID     string       `json:"employeeId"`
	EmployeeName   string       `json:"employeeName"`
	Email          string       `json:"email,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	Month          int          `json:"month"`
	Year           int          `json:"year"`
	NetAmount      money.Amount `json:"netAmount"`
	TransactionRef string       `json:"transactionRef,omitempty"`
	PaidAt         time.Time    `json:"paidAt"`
}

type Notifier interface {
	DisbursementSucceeded(ctx context.Context, e Event) error
}

type Observer interface {
	PaymentInitiated()
	PaymentSettled(success bool)
	PaymentRetried(exhausted bool)
	PaymentReconciled(matched bool)
}

type Deps struct {
	Store        StoreAPI
	Payrolls     Payrolls
	Employees    EmployeeSource
	Rail         Rail
	Notifier     Notifier
	Audit        *audit.Recorder
	Observer     Observer
	MaxRetries   int
	RetryBackoff time.Duration
	Concurrency  int
	Now          func() time.Time
}

type Service struct {
	store       StoreAPI
	payrolls    Payrolls
	employees   EmployeeSource
	rail        Rail
	notifier    Notifier
	audit       *audit.Recorder
	observer    Observer
	maxRetries  int
	backoff     time.Duration
	concurrency int
	locks       *keylock.Map
	now         func() time.Time
}

func NewService(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.MaxRetries <= 0 {
		d.MaxRetries = DefaultMaxRetries
	}
	if d.RetryBackoff <= 0 {
		d.RetryBackoff = DefaultRetryBackoff
	}
	if d.Concurrency < 1 {
		d.Concurrency = 1
	}
	return &Service{
		store:       d.Store,
		payrolls:    d.Payrolls,
		employees:   d.Employees,
		rail:        d.Rail,
		notifier:    d.Notifier,
		audit:       d.Audit,
		observer:    d.Observer,
		maxRetries:  d.MaxRetries,
		backoff:     d.RetryBackoff,
		concurrency: d.Concurrency,
		locks:       keylock.New(),
		now:         d.Now,
	}
}

type CreateInput struct {
	PayrollID string `json:"payrollId"`
	BatchID   string `json:"batchId,omitempty"`
	Method    Method `json:"method,omitempty"`
}

// Create opens a pending disbursement for an approved payroll. Bank and
// contact details are copied from the directory at this point.
func (s *Service) Create(ctx context.Context, in CreateInput, actorID string) (*Disbursement, error) {
	if strings.TrimSpace(in.PayrollID) == "" {
		return nil, errs.Invalid("payrollId", "is required")
	}
	if in.Method == "" {
		in.Method = MethodBankTransfer
	}
	if !in.Method.Valid() {
		return nil, errs.Invalid("method", "is not supported")
	}
	if in.BatchID == "" {
		in.BatchID = uuid.NewString()
	}
	p, err := s.payrolls.Get(ctx, in.PayrollID)
	if err != nil {
		return nil, err
	}
	if p.Status != payroll.StatusApproved {
		return nil, errs.Conflict(audit.EntityPayroll, p.ID, string(p.Status), "disbursement.create", ErrPayrollNotApproved)
	}
	emp, err := s.employees.Get(ctx, p.EmployeeID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
		return nil, errs.Upstream("employee directory", err)
	}

	now := s.now().UTC()
	d := &Disbursement{
		ID:           uuid.NewString(),
		BatchID:      in.BatchID,
		PayrollID:    p.ID,
		EmployeeID:   p.EmployeeID,
		EmployeeCode: emp.Code,
		EmployeeName: emp.FullName(),
		Email:        emp.Email,
		Phone:        emp.Phone,
		CycleID:      p.CycleID,
		Month:        p.Month,
		Year:         p.Year,
		GrossAmount:  p.GrossPay,
		Deductions:   p.TotalDeductions,
		NetAmount:    p.NetPay,
		Bank:         emp.Bank,
		Method:       in.Method,
		Transaction: Transaction{
			Status:     StatusPending,
			MaxRetries: s.maxRetries,
		},
		CreatedBy: actorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "disbursement.create", d.ID, "", string(StatusPending))
	return d, nil
}

type BatchItem struct {
	DisbursementID string       `json:"disbursementId,omitempty"`
	PayrollID      string       `json:"payrollId"`
	EmployeeID     string       `json:"employeeId"`
	Status         Status       `json:"status,omitempty"`
	Skipped        bool         `json:"skipped,omitempty"`
	Error          string       `json:"error,omitempty"`
	Issues         []errs.Issue `json:"issues,omitempty"`
}

type BatchResult struct {
	BatchID   string      `json:"batchId"`
	Total     int         `json:"total"`
	Processed int         `json:"processed"`
	Skipped   int         `json:"skipped"`
	Failed    int         `json:"failed"`
	Items     []BatchItem `json:"items"`
}

// CreateBatch opens one disbursement per approved payroll of the cycle
// under a fresh batch id. Payrolls that already have a disbursement are
// skipped.
func (s *Service) CreateBatch(ctx context.Context, cycleID string, method Method, actorID string) (*BatchResult, error) {
	if strings.TrimSpace(cycleID) == "" {
		return nil, errs.Invalid("cycleId", "is required")
	}
	list, err := s.payrolls.List(ctx, payroll.Filter{CycleID: cycleID, Status: payroll.StatusApproved})
	if err != nil {
		return nil, err
	}
	res := &BatchResult{BatchID: uuid.NewString(), Total: len(list)}
	for _, p := range list {
		item := BatchItem{PayrollID: p.ID, EmployeeID: p.EmployeeID}
		d, err := s.Create(ctx, CreateInput{PayrollID: p.ID, BatchID: res.BatchID, Method: method}, actorID)
		switch {
		case errors.Is(err, ErrDuplicateDisbursement):
			item.Skipped = true
			res.Skipped++
		case err != nil:
			item.Error = err.Error()
			res.Failed++
		default:
			item.DisbursementID = d.ID
			item.Status = d.Status()
			res.Processed++
		}
		res.Items = append(res.Items, item)
	}
	slog.Info("disbursement batch created", "batchId", res.BatchID, "cycleId", cycleID, "created", res.Processed, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}

// Validate checks the payment details and stores the outcome. A non-empty
// issue list is also returned as a validation error.
func (s *Service) Validate(ctx context.Context, id, actorID string) (*Disbursement, error) {
	d, err := s.mutate(ctx, id, actorID, "disbursement.validate", []Status{StatusPending, StatusFailed}, func(d *Disbursement) error {
		at := s.now().UTC()
		issues := Validate(d)
		d.Processing.Validated = len(issues) == 0
		d.Processing.ValidationErrors = issues
		d.Processing.ValidatedBy = actorID
		d.Processing.ValidatedAt = &at
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !d.Processing.Validated {
		return d, &errs.ValidationError{Issues: d.Processing.ValidationErrors}
	}
	return d, nil
}

// InitiatePayment validates a pending disbursement, marks its payroll
// processed and submits it to the rail. Only one caller can move a given
// disbursement out of pending; a concurrent second call gets a state
// conflict.
func (s *Service) InitiatePayment(ctx context.Context, id, actorID string) (*Disbursement, error) {
	if _, err := s.Validate(ctx, id, actorID); err != nil {
		return nil, err
	}
	d, err := s.mutate(ctx, id, actorID, "disbursement.initiate", []Status{StatusPending}, func(d *Disbursement) error {
		if issues := Validate(d); len(issues) > 0 {
			return &errs.ValidationError{Issues: issues}
		}
		// Checked last so a concurrent cancel of the payroll wins.
		if _, err := s.payrolls.MarkProcessed(ctx, d.PayrollID, d.ID, actorID); err != nil {
			return err
		}
		at := s.now().UTC()
		d.move(StatusProcessing, at, actorID, "initiated")
		d.Transaction.InitiatedAt = &at
		d.Processing.InitiatedBy = actorID
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.observer != nil {
		s.observer.PaymentInitiated()
	}
	return s.submit(ctx, d, actorID)
}

// submit hands the instruction to the rail outside any lock. A submission
// error is recorded as a failed attempt, not returned.
func (s *Service) submit(ctx context.Context, d *Disbursement, actorID string) (*Disbursement, error) {
	if s.rail == nil {
		return d, nil
	}
	ack, err := s.rail.Submit(ctx, Instruction{
		DisbursementID: d.ID,
		Reference:      d.PayrollID,
		Amount:         d.NetAmount,
		Account:        d.Bank,
		Method:         d.Method,
		Attempt:        d.Transaction.RetryCount + 1,
	})
	if err != nil {
		slog.Warn("payment submission failed", "disbursementId", d.ID, "attempt", d.Transaction.RetryCount+1, "err", err)
		return s.UpdatePaymentStatus(ctx, d.ID, StatusUpdate{
			Status:        StatusFailed,
			FailureReason: err.Error(),
			FailureCode:   "submit_error",
		}, actorID)
	}
	up := StatusUpdate{Status: StatusProcessing, TransactionID: ack.TransactionID, Gateway: ack.Gateway}
	if ack.Queued {
		up.Status = StatusQueued
	}
	updated, err := s.UpdatePaymentStatus(ctx, d.ID, up, actorID)
	if err != nil && errors.Is(err, errs.ErrStateConflict) {
		// The rail already reported a final outcome through the callback.
		return s.store.Get(ctx, d.ID)
	}
	return updated, err
}

// StatusUpdate is a status report from the rail or an operator.
type StatusUpdate struct {
	Status        Status     `json:"status"`
	TransactionID string     `json:"transactionId,omitempty"`
	UTR           string     `json:"utr,omitempty"`
	Gateway       string     `json:"gateway,omitempty"`
	FailureReason string     `json:"failureReason,omitempty"`
	FailureCode   string     `json:"failureCode,omitempty"`
	At            *time.Time `json:"at,omitempty"`
}

// UpdatePaymentStatus is the single entry point for transaction outcomes.
// A failure schedules the next retry while attempts remain but never
// retries by itself. Reporting the current status again only refreshes the
// transaction references.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id string, up StatusUpdate, actorID string) (*Disbursement, error) {
	switch up.Status {
	case StatusProcessing, StatusQueued, StatusSuccess, StatusFailed, StatusCancelled, StatusReversed:
	default:
		return nil, errs.Invalid("status", "is not a reportable payment status")
	}
	changed := false
	d, err := s.mutate(ctx, id, actorID, "disbursement.status."+string(up.Status), nil, func(d *Disbursement) error {
		t := &d.Transaction
		if t.Status == up.Status {
			if !setRefs(t, up) {
				return errNoChange
			}
			return nil
		}
		if !t.Status.CanMoveTo(up.Status) {
			return errs.Conflict(audit.EntityDisbursement, d.ID, string(t.Status), "disbursement.status."+string(up.Status), ErrInvalidState)
		}
		at := s.now().UTC()
		if up.At != nil {
			at = up.At.UTC()
		}
		setRefs(t, up)
		d.move(up.Status, at, actorID, up.FailureReason)
		changed = true

		switch up.Status {
		case StatusFailed:
			t.FailureReason = up.FailureReason
			t.FailureCode = up.FailureCode
			t.NextRetryAt = nil
			if t.RetryCount < t.MaxRetries {
				next := s.now().UTC().Add(s.backoff)
				t.NextRetryAt = &next
			}
		case StatusSuccess:
			t.ProcessedAt = &at
			t.TransactionDate = &at
			t.NextRetryAt = nil
			t.FailureReason = ""
			t.FailureCode = ""
			d.Processing.ProcessedBy = actorID
		case StatusCancelled:
			t.NextRetryAt = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.afterStatus(ctx, d, actorID)
	}
	return d, nil
}

func setRefs(t *Transaction, up StatusUpdate) bool {
	changed := false
	if up.TransactionID != "" && up.TransactionID != t.TransactionID {
		t.TransactionID = up.TransactionID
		changed = true
	}
	if up.UTR != "" && up.UTR != t.UTR {
		t.UTR = up.UTR
		changed = true
	}
	if up.Gateway != "" && up.Gateway != t.Gateway {
		t.Gateway = up.Gateway
		changed = true
	}
	return changed
}

// afterStatus propagates a settled outcome to the payroll and the
// notification sink. Failures here are logged and never undo the
// disbursement transition.
func (s *Service) afterStatus(ctx context.Context, d *Disbursement, actorID string) {
	switch d.Status() {
	case StatusCancelled, StatusReversed:
		s.afterAbandoned(ctx, d, actorID)
	case StatusFailed:
		if s.observer != nil {
			s.observer.PaymentSettled(false)
		}
		if _, err := s.payrolls.RecordPaymentFailure(ctx, d.PayrollID, d.ID, d.Transaction.FailureReason, actorID); err != nil {
			slog.Warn("payroll payment failure not recorded", "disbursementId", d.ID, "payrollId", d.PayrollID, "err", err)
		}
	case StatusSuccess:
		if s.observer != nil {
			s.observer.PaymentSettled(true)
		}
		ref := d.Transaction.UTR
		if ref == "" {
			ref = d.Transaction.TransactionID
		}
		if _, err := s.payrolls.MarkPaid(ctx, d.PayrollID, d.ID, ref, actorID); err != nil {
			slog.Error("payroll not marked paid", "disbursementId", d.ID, "payrollId", d.PayrollID, "err", err)
		}
		s.notify(ctx, d, ref)
	}
}

// afterAbandoned records a payment that will not settle on the payroll, so
// the payroll shows payment state failed. A payment abandoned before it was
// submitted, or after a failure already recorded, leaves the payroll alone.
// A reversal of a settled payment is only logged; the payroll stays paid.
func (s *Service) afterAbandoned(ctx context.Context, d *Disbursement, actorID string) {
	from := d.lastChange().From
	switch from {
	case StatusProcessing, StatusQueued:
	case StatusSuccess:
		slog.Warn("settled payment reversed", "disbursementId", d.ID, "payrollId", d.PayrollID)
		return
	default:
		return
	}
	reason := d.lastChange().Reason
	if reason == "" {
		reason = "payment " + string(d.Status())
	}
	if _, err := s.payrolls.RecordPaymentFailure(ctx, d.PayrollID, d.ID, reason, actorID); err != nil {
		slog.Warn("payroll payment failure not recorded", "disbursementId", d.ID, "payrollId", d.PayrollID, "err", err)
	}
}

func (s *Service) notify(ctx context.Context, d *Disbursement, ref string) {
	if s.notifier == nil {
		return
	}
	paidAt := s.now().UTC()
	if d.Transaction.ProcessedAt != nil {
		paidAt = *d.Transaction.ProcessedAt
	}
	err := s.notifier.DisbursementSucceeded(ctx, Event{
		DisbursementID: d.ID,
		PayrollID:      d.PayrollID,
		EmployeeID:     d.EmployeeID,
		EmployeeName:   d.EmployeeName,
		Email:          d.Email,
		Phone:          d.Phone,
		Month:          d.Month,
		Year:           d.Year,
		NetAmount:      d.NetAmount,
		TransactionRef: ref,
		PaidAt:         paidAt,
	})
	if err != nil {
		slog.Warn("disbursement notification failed", "disbursementId", d.ID, "err", err)
	}
}

// RetryPayment resubmits a failed payment. Once retryCount reaches
// maxRetries it fails with ErrRetryExhausted and leaves the record as is;
// the payment then has to be settled manually or cancelled. A payroll
// cancelled since the last attempt blocks the retry with a state conflict
// wrapping payroll.ErrCancelled.
func (s *Service) RetryPayment(ctx context.Context, id, actorID string) (*Disbursement, error) {
	d, err := s.mutate(ctx, id, actorID, "disbursement.retry", nil, func(d *Disbursement) error {
		t := &d.Transaction
		if t.Status != StatusFailed {
			return errs.Conflict(audit.EntityDisbursement, d.ID, string(t.Status), "disbursement.retry", ErrInvalidState)
		}
		if t.RetryCount >= t.MaxRetries {
			if s.observer != nil {
				s.observer.PaymentRetried(true)
			}
			return fmt.Errorf("disbursement %s after %d attempts: %w", d.ID, t.RetryCount, ErrRetryExhausted)
		}
		p, err := s.payrolls.Get(ctx, d.PayrollID)
		if err != nil {
			return err
		}
		if p.Status == payroll.StatusCancelled {
			return errs.Conflict(audit.EntityPayroll, p.ID, string(p.Status), "disbursement.retry", payroll.ErrCancelled)
		}
		t.RetryCount++
		t.NextRetryAt = nil
		d.move(StatusProcessing, s.now().UTC(), actorID, fmt.Sprintf("retry %d of %d", t.RetryCount, t.MaxRetries))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.observer != nil {
		s.observer.PaymentRetried(false)
	}
	return s.submit(ctx, d, actorID)
}

type StatementEntry struct {
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
}

// ReconcilePayment matches a successful payment against a bank statement
// line. Amounts within 0.01 match; otherwise an open discrepancy of
// net minus statement amount is recorded.
func (s *Service) ReconcilePayment(ctx context.Context, id string, entry StatementEntry, actorID string) (*Disbursement, error) {
	if strings.TrimSpace(entry.Reference) == "" {
		return nil, errs.Invalid("reference", "is required")
	}
	d, err := s.mutate(ctx, id, actorID, "disbursement.reconcile", []Status{StatusSuccess}, func(d *Disbursement) error {
		r := &d.Reconciliation
		if r.Reconciled {
			return errs.Conflict(audit.EntityDisbursement, d.ID, string(d.Status()), "disbursement.reconcile", ErrAlreadyReconciled)
		}
		amount := entry.Amount
		r.StatementRef = entry.Reference
		r.StatementAmount = &amount
		if !entry.Date.IsZero() {
			date := entry.Date.UTC()
			r.StatementDate = &date
		}
		diff := money.Dec(d.NetAmount).Sub(entry.Amount)
		if diff.Abs().LessThanOrEqual(reconcileTolerance) {
			at := s.now().UTC()
			r.Reconciled = true
			r.ReconciledAt = &at
			r.ReconciledBy = actorID
			r.Discrepancy = nil
			return nil
		}
		r.Discrepancy = &Discrepancy{
			Amount: diff,
			Reason: "statement amount does not match net amount",
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.observer != nil {
		s.observer.PaymentReconciled(d.Reconciliation.Reconciled)
	}
	return d, nil
}

// ResolveDiscrepancy closes an open discrepancy and with it the
// reconciliation.
func (s *Service) ResolveDiscrepancy(ctx context.Context, id, resolution, actorID string) (*Disbursement, error) {
	if strings.TrimSpace(resolution) == "" {
		return nil, errs.Invalid("resolution", "is required")
	}
	return s.mutate(ctx, id, actorID, "disbursement.resolve_discrepancy", []Status{StatusSuccess}, func(d *Disbursement) error {
		r := &d.Reconciliation
		if r.Discrepancy == nil || r.Discrepancy.Resolved {
			return errs.Conflict(audit.EntityDisbursement, d.ID, string(d.Status()), "disbursement.resolve_discrepancy", ErrNoDiscrepancy)
		}
		at := s.now().UTC()
		r.Discrepancy.Resolved = true
		r.Discrepancy.Resolution = resolution
		r.Discrepancy.ResolvedBy = actorID
		r.Discrepancy.ResolvedAt = &at
		r.Reconciled = true
		r.ReconciledAt = &at
		r.ReconciledBy = actorID
		return nil
	})
}

func (s *Service) Cancel(ctx context.Context, id, reason, actorID string) (*Disbursement, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, errs.Invalid("reason", "is required")
	}
	return s.UpdatePaymentStatus(ctx, id, StatusUpdate{Status: StatusCancelled, FailureReason: reason}, actorID)
}

// ListRetryEligible returns failed payments whose scheduled retry is due.
// Nothing in this package acts on them.
func (s *Service) ListRetryEligible(ctx context.Context, now time.Time) ([]*Disbursement, error) {
	return s.store.ListRetryEligible(ctx, now)
}

// ProcessBatch initiates every pending disbursement of a batch in
// parallel. Items fail independently and are reported one by one.
func (s *Service) ProcessBatch(ctx context.Context, batchID, actorID string) (*BatchResult, error) {
	all, err := s.store.List(ctx, Filter{BatchID: batchID})
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("batch %s: %w", batchID, ErrDisbursementNotFound)
	}
	pending := slices.DeleteFunc(all, func(d *Disbursement) bool { return d.Status() != StatusPending })

	items := make([]BatchItem, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, d := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i] = s.processItem(gctx, d, actorID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &BatchResult{BatchID: batchID, Total: len(items), Items: items}
	for _, item := range items {
		if item.Error != "" {
			res.Failed++
			continue
		}
		res.Processed++
	}
	slog.Info("disbursement batch processed", "batchId", batchID, "processed", res.Processed, "failed", res.Failed)
	return res, nil
}

func (s *Service) processItem(ctx context.Context, d *Disbursement, actorID string) BatchItem {
	item := BatchItem{DisbursementID: d.ID, PayrollID: d.PayrollID, EmployeeID: d.EmployeeID}
	updated, err := s.InitiatePayment(ctx, d.ID, actorID)
	if err != nil {
		item.Error = err.Error()
		var verr *errs.ValidationError
		if errors.As(err, &verr) {
			item.Issues = verr.Issues
		}
		item.Status = d.Status()
		if current, gerr := s.store.Get(ctx, d.ID); gerr == nil {
			item.Status = current.Status()
		}
		slog.Warn("disbursement initiation failed", "disbursementId", d.ID, "employeeId", d.EmployeeID, "err", err)
		return item
	}
	item.Status = updated.Status()
	return item
}

func (s *Service) Get(ctx context.Context, id string) (*Disbursement, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Disbursement, error) {
	return s.store.List(ctx, f)
}

func (s *Service) mutate(ctx context.Context, id, actorID, action string, allowed []Status, apply func(*Disbursement) error) (*Disbursement, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(allowed) > 0 && !slices.Contains(allowed, d.Status()) {
		return nil, errs.Conflict(audit.EntityDisbursement, id, string(d.Status()), action, ErrInvalidState)
	}
	before := d.Status()
	if err := apply(d); err != nil {
		if errors.Is(err, errNoChange) {
			return d, nil
		}
		return nil, err
	}
	d.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, d); err != nil {
		return nil, err
	}
	s.record(ctx, actorID, action, id, string(before), string(d.Status()))
	return d, nil
}

func (s *Service) record(ctx context.Context, actorID, action, id, from, to string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Transition(ctx, actorID, action, audit.EntityDisbursement, id, from, to); err != nil {
		slog.Warn("audit append failed", "action", action, "disbursementId", id, "err", err)
	}
}
