package disbursement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycore/internal/domain/audit"
	"paycore/internal/domain/directory"
	"paycore/internal/domain/errs"
	"paycore/internal/domain/payroll"
)

var testNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type fakePayrolls struct {
	mu    sync.Mutex
	items map[string]*payroll.Payroll
}

func (f *fakePayrolls) put(p *payroll.Payroll) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[p.ID] = p
}

func (f *fakePayrolls) snapshot(id string) payroll.Payroll {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.items[id]
}

func (f *fakePayrolls) Get(_ context.Context, id string) (*payroll.Payroll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, payroll.ErrPayrollNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePayrolls) List(_ context.Context, filter payroll.Filter) ([]*payroll.Payroll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*payroll.Payroll
	for i := 1; i <= len(f.items); i++ {
		p, ok := f.items[fmt.Sprintf("pay-%d", i)]
		if !ok || p.CycleID != filter.CycleID || (filter.Status != "" && p.Status != filter.Status) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakePayrolls) MarkProcessed(_ context.Context, id, disbursementID, _ string) (*payroll.Payroll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.items[id]
	switch {
	case p.Status == payroll.StatusCancelled:
		return nil, errs.Conflict(audit.EntityPayroll, id, string(p.Status), "payroll.process", payroll.ErrCancelled)
	case p.Status == payroll.StatusProcessed && p.Payment.DisbursementID == disbursementID:
	case p.Status != payroll.StatusApproved:
		return nil, errs.Conflict(audit.EntityPayroll, id, string(p.Status), "payroll.process", payroll.ErrInvalidState)
	}
	p.Status = payroll.StatusProcessed
	p.Payment.DisbursementID = disbursementID
	cp := *p
	return &cp, nil
}

func (f *fakePayrolls) RecordPaymentFailure(_ context.Context, id, _, reason, _ string) (*payroll.Payroll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.items[id]
	p.Payment.State = payroll.PaymentFailed
	p.Payment.Failures++
	p.Payment.FailureReason = reason
	cp := *p
	return &cp, nil
}

func (f *fakePayrolls) MarkPaid(_ context.Context, id, _, ref, _ string) (*payroll.Payroll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.items[id]
	p.Status = payroll.StatusPaid
	p.Payment.TransactionRef = ref
	cp := *p
	return &cp, nil
}

type fakeRail struct {
	mu       sync.Mutex
	fail     bool
	queue    bool
	attempts []Instruction
}

func (r *fakeRail) Submit(_ context.Context, in Instruction) (Ack, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, in)
	if r.fail {
		return Ack{}, errors.New("gateway timeout")
	}
	return Ack{TransactionID: "txn-" + in.DisbursementID, Gateway: "sim", Queued: r.queue}, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *fakeNotifier) DisbursementSucceeded(_ context.Context, e Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

type fixture struct {
	svc      *Service
	payrolls *fakePayrolls
	rail     *fakeRail
	notifier *fakeNotifier
	audit    *audit.Recorder
}

func newFixture(t *testing.T, employees ...directory.Employee) *fixture {
	t.Helper()
	clock := func() time.Time { return testNow }
	f := &fixture{
		payrolls: &fakePayrolls{items: map[string]*payroll.Payroll{}},
		rail:     &fakeRail{},
		notifier: &fakeNotifier{},
		audit:    audit.NewRecorder(audit.NewMemoryStore(), clock),
	}
	f.svc = NewService(Deps{
		Store:       NewMemoryStore(),
		Payrolls:    f.payrolls,
		Employees:   directory.NewMemoryStore(employees...),
		Rail:        f.rail,
		Notifier:    f.notifier,
		Audit:       f.audit,
		MaxRetries:  3,
		Concurrency: 2,
		Now:         clock,
	})
	return f
}

func employee(n int, ifsc string) directory.Employee {
	id := fmt.Sprintf("emp-%d", n)
	return directory.Employee{
		ID:        id,
		Code:      "E" + id,
		FirstName: "Emp",
		LastName:  id,
		Email:     id + "@example.com",
		WorkState: "KA",
		Status:    directory.StatusActive,
		JoinDate:  time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		Bank:      directory.BankAccount{AccountNumber: "12345678901", IFSC: ifsc},
	}
}

func approvedPayroll(n int) *payroll.Payroll {
	return &payroll.Payroll{
		ID:              fmt.Sprintf("pay-%d", n),
		EmployeeID:      fmt.Sprintf("emp-%d", n),
		CycleID:         "cycle-1",
		Month:           4,
		Year:            2024,
		Status:          payroll.StatusApproved,
		GrossPay:        47750,
		TotalDeductions: 4927,
		NetPay:          42823,
	}
}

func (f *fixture) created(t *testing.T, n int) *Disbursement {
	t.Helper()
	f.payrolls.put(approvedPayroll(n))
	d, err := f.svc.Create(context.Background(), CreateInput{PayrollID: fmt.Sprintf("pay-%d", n)}, "finance-1")
	require.NoError(t, err)
	return d
}

func TestValidate(t *testing.T) {
	base := Disbursement{
		GrossAmount: 1000,
		NetAmount:   900,
		Bank:        directory.BankAccount{AccountNumber: "123456", IFSC: "HDFC0001234"},
	}
	tests := []struct {
		name   string
		mutate func(d *Disbursement)
		fields []string
	}{
		{"valid", func(d *Disbursement) {}, nil},
		{"missing bank", func(d *Disbursement) { d.Bank = directory.BankAccount{} }, []string{"bank.accountNumber", "bank.ifsc"}},
		{"lowercase ifsc", func(d *Disbursement) { d.Bank.IFSC = "hdfc0001234" }, []string{"bank.ifsc"}},
		{"fifth char not zero", func(d *Disbursement) { d.Bank.IFSC = "HDFC1001234" }, []string{"bank.ifsc"}},
		{"zero net", func(d *Disbursement) { d.NetAmount = 0 }, []string{"netAmount"}},
		{"net above gross", func(d *Disbursement) { d.NetAmount = 1100 }, []string{"grossAmount"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := base
			tc.mutate(&d)
			var fields []string
			for _, issue := range Validate(&d) {
				fields = append(fields, issue.Field)
			}
			assert.Equal(t, tc.fields, fields)
		})
	}
}

func TestCreateRequiresApprovedPayroll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, employee(1, "HDFC0001234"))
	p := approvedPayroll(1)
	p.Status = payroll.StatusCalculated
	f.payrolls.put(p)

	_, err := f.svc.Create(ctx, CreateInput{PayrollID: p.ID}, "finance-1")
	require.ErrorIs(t, err, ErrPayrollNotApproved)
	state, ok := errs.CurrentState(err)
	require.True(t, ok)
	assert.Equal(t, "calculated", state)

	p.Status = payroll.StatusApproved
	d, err := f.svc.Create(ctx, CreateInput{PayrollID: p.ID}, "finance-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, d.Status())
	assert.Equal(t, int64(42823), d.NetAmount)
	assert.Equal(t, "HDFC0001234", d.Bank.IFSC)
	assert.Equal(t, "Emp emp-1", d.EmployeeName)
	assert.Equal(t, 3, d.Transaction.MaxRetries)

	_, err = f.svc.Create(ctx, CreateInput{PayrollID: p.ID}, "finance-1")
	require.ErrorIs(t, err, ErrDuplicateDisbursement)
	require.ErrorIs(t, err, errs.ErrStateConflict)
}

func TestInitiatePaymentIsSingleShot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, employee(1, "HDFC0001234"))
	d := f.created(t, 1)

	got, err := f.svc.InitiatePayment(ctx, d.ID, "finance-1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status())
	assert.Equal(t, "txn-"+d.ID, got.Transaction.TransactionID)
	assert.True(t, got.Processing.Validated)
	assert.Equal(t, "finance-1", got.Processing.InitiatedBy)
	require.NotEmpty(t, got.Transaction.History)
	assert.Equal(t, StatusPending, got.Transaction.History[0].From)
	assert.Equal(t, StatusProcessing, got.Transaction.History[0].To)

	p := f.payrolls.snapshot("pay-1")
	assert.Equal(t, payroll.StatusProcessed, p.Status)
	assert.Equal(t, d.ID, p.Payment.DisbursementID)

	_, err = f.svc.InitiatePayment(ctx, d.ID, "finance-2")
	require.ErrorIs(t, err, errs.ErrStateConflict)
	state, _ := errs.CurrentState(err)
	assert.Equal(t, "processing", state)
	assert.Len(t, f.rail.attempts, 1)
}

func TestInitiatePaymentConcurrentCallers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, employee(1, "HDFC0001234"))
	d := f.created(t, 1)

	var wg sync.WaitGroup
	results := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = f.svc.InitiatePayment(ctx, d.ID, "finance-1")
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, errs.ErrStateConflict)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.rail.attempts, 1)
}

func TestInitiatePaymentRejectsCancelledPayroll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, employee(1, "HDFC0001234"))
	d := f.created(t, 1)
	f.payrolls.mu.Lock()
	f.payrolls.items["pay-1"].Status = payroll.StatusCancelled
	f.payrolls.mu.Unlock()

	_, err := f.svc.InitiatePayment(ctx, d.ID, "finance-1")
	require.ErrorIs(t, err, payroll.ErrCancelled)

	got, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status())
	assert.Empty(t, f.rail.attempts)
}

func TestRetryRejectsCancelledPayroll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, employee(1, "HDFC0001234"))
	f.rail.fail = true
	d := f.created(t, 1)
	_, err := f.svc.InitiatePayment(ctx, d.ID, "finance-1")
	require.NoError(t, err)

	f.payrolls.mu.Lock()
	f.payrolls.items["pay-1"].Status = payroll.StatusCancelled
	f.payrolls.mu.Unlock()
	f.rail.fail = false

	_, err = f.svc.RetryPayment(ctx, d.ID, "sweeper")
	require.ErrorIs(t, err, payroll.ErrCancelled)
	require.ErrorIs(t, err, errs.ErrStateConflict)

	got, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status())
	assert.Equal(t, 0, got.Transaction.RetryCount)
	assert.Len(t, f.rail.attempts, 1)

	got, err = f.svc.Cancel(ctx, d.ID, "payroll cancelled", "sweeper")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status())
	assert.Nil(t, got.Transaction.NextRetryAt)
	assert.Equal(t, 1, f.payrolls.snapshot("pay-1").Payment.Failures)
}

func TestCancelInFlightPaymentRecordsFailureOnPayroll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, employee(1, "HDFC0001234"))
	f.rail.queue = true
	d := f.created(t, 1)
	got, err := f.svc.InitiatePayment(ctx, d.ID, "finance-1")
	require.NoError(t, err)
	require.Equal(t, StatusQueued, got.Status())

	got, err = f.svc.Cancel(ctx, d.ID, "beneficiary bank on hold", "finance-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status())

	p := f.payrolls.snapshot("pay-1")
	assert.Equal(t, payroll.StatusProcessed, p.Status)
	assert.Equal(t, payroll.PaymentFailed, p.Payment.State)
	assert.Equal(t, "beneficiary bank on hold", p.Payment.FailureReason)
	assert.Equal(t, 1, p.Payment.Failures)
}

func TestReversedInFlightPaymentRecordsFailureOnPayroll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, employee(1, "HDFC0001234"))
	d := f.created(t, 1)
	_, err := f.svc.InitiatePayment(ctx, d.ID, "finance-1")
	require.NoError(t, err)

	got, err := f.svc.UpdatePaymentStatus(ctx, d.ID, StatusUpdate{Status: StatusReversed}, "rail")
	require.NoError(t, err)
	assert.Equal(t, StatusReversed, got.Status())

	p := f.payrolls.snapshot("pay-1")
	assert.Equal(t, payroll.PaymentFailed, p.Payment.State)
	assert.Equal(t, "payment reversed", p.Payment.FailureReason)
	assert.Empty(t, f.notifier.events)
}

func TestSuccessMarksPayrollPaidAndNotifies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, employee(1, "HDFC0001234"))
	d := f.created(t, 1)
	_, err := f.svc.InitiatePayment(ctx, d.ID, "finance-1")
	require.NoError(t, err)

	got, err := f.svc.UpdatePaymentStatus(ctx, d.ID, StatusUpdate{Status: StatusSuccess, UTR: "UTR123"}, "rail")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, got.Status())
	require.NotNil(t, got.Transaction.ProcessedAt)
	require.NotNil(t, got.Transaction.TransactionDate)
	assert.Equal(t, testNow, *got.Transaction.ProcessedAt)

	p := f.payrolls.snapshot("pay-1")
	assert.Equal(t, payroll.StatusPaid, p.Status)
	assert.Equal(t, "UTR123", p.Payment.TransactionRef)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, int64(42823), f.notifier.events[0].NetAmount)
	assert.Equal(t, "emp-1@example.com", f.notifier.events[0].Email)

	again, err := f.svc.UpdatePaymentStatus(ctx, d.ID, StatusUpdate{Status: StatusSuccess}, "rail")
	require.NoError(t, err)
	assert.Equal(t, got.Version, again.Version)
	assert.Len(t, f.notifier.events, 1)
}

func TestQueuedAcknowledgement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, employee(1, "HDFC0001234"))
	f.rail.queue = true
	d := f.created(t, 1)

	got, err := f.svc.InitiatePayment(ctx, d.ID, "finance-1")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, got.Status())

	got, err = f.svc.UpdatePaymentStatus(ctx, d.ID, StatusUpdate{Status: StatusProcessing}, "rail")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status())
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusSuccess, false},
		{StatusProcessing, StatusSuccess, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusQueued, true},
		{StatusQueued, StatusFailed, true},
		{StatusFailed, StatusSuccess, false},
		{StatusProcessing, StatusReversed, true},
		{StatusFailed, StatusProcessing, false},
		{StatusFailed, StatusCancelled, true},
		{StatusSuccess, StatusReversed, true},
		{StatusSuccess, StatusFailed, false},
		{StatusCancelled, StatusProcessing, false},
		{StatusReversed, StatusSuccess, false},
	}
	for _, tc := range tests {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.ok, tc.from.CanMoveTo(tc.to))
		})
	}
}

func TestUpdatePaymentStatusRejectsInvalidTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, employee(1, "HDFC0001234"))
	d := f.created(t, 1)

	_, err := f.svc.UpdatePaymentStatus(ctx, d.ID, StatusUpdate{Status: StatusSuccess}, "rail")
	require.ErrorIs(t, err, ErrInvalidState)
	state, _ := errs.CurrentState(err)
	assert.Equal(t, "pending", state)

	_, err = f.svc.UpdatePaymentStatus(ctx, d.ID, StatusUpdate{Status: StatusPending}, "rail")
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestRetryExhaustion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, employee(1, "HDFC0001234"))
	f.rail.fail = true
	d := f.created(t, 1)

	got, err := f.svc.InitiatePayment(ctx, d.ID, "finance-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status())
	assert.Equal(t, "gateway timeout", got.Transaction.FailureReason)
	assert.Equal(t, "submit_error", got.Transaction.FailureCode)
	require.NotNil(t, got.Transaction.NextRetryAt)
	assert.Equal(t, testNow.Add(30*time.Minute), *got.Transaction.NextRetryAt)

	for attempt := 1; attempt <= 3; attempt++ {
		got, err = f.svc.RetryPayment(ctx, d.ID, "sweeper")
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, got.Status())
		assert.Equal(t, attempt, got.Transaction.RetryCount)
	}
	assert.Nil(t, got.Transaction.NextRetryAt)

	before, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)

	_, err = f.svc.RetryPayment(ctx, d.ID, "sweeper")
	require.ErrorIs(t, err, ErrRetryExhausted)
	require.ErrorIs(t, err, errs.ErrRetryExhausted)
	assert.NotErrorIs(t, err, errs.ErrStateConflict)

	after, err := f.svc.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 3, after.Transaction.RetryCount)
	assert.Len(t, f.rail.attempts, 4)
	assert.Equal(t, 4, f.payrolls.snapshot("pay-1").Payment.Failures)
}

func TestRetryRequiresFailedStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, employee(1, "HDFC0001234"))
	d := f.created(t, 1)

	_, err := f.svc.RetryPayment(ctx, d.ID, "sweeper")
	require.ErrorIs(t, err, ErrInvalidState)
	require.ErrorIs(t, err, errs.ErrStateConflict)
}

func TestRetryAfterFailureCanSucceed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, employee(1, "HDFC0001234"))
	f.rail.fail = true
	d := f.created(t, 1)
	_, err := f.svc.InitiatePayment(ctx, d.ID, "finance-1")
	require.NoError(t, err)

	f.rail.fail = false
	got, err := f.svc.RetryPayment(ctx, d.ID, "sweeper")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status())
	assert.Equal(t, 1, got.Transaction.RetryCount)
	assert.Nil(t, got.Transaction.NextRetryAt)
	assert.Equal(t, 2, f.rail.attempts[1].Attempt)
}

func TestListRetryEligible(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, employee(1, "HDFC0001234"), employee(2, "HDFC0001234"))
	f.rail.fail = true
	failing := f.created(t, 1)
	_, err := f.svc.InitiatePayment(ctx, failing.ID, "finance-1")
	require.NoError(t, err)
	f.created(t, 2)

	due, err := f.svc.ListRetryEligible(ctx, testNow)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = f.svc.ListRetryEligible(ctx, testNow.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, failing.ID, due[0].ID)
}

func TestBatchPartialFailure(t *testing.T) {
	ctx := context.Background()
	var employees []directory.Employee
	for n := 1; n <= 5; n++ {
		ifsc := "HDFC0001234"
		if n == 3 {
			ifsc = "HDFC001234"
		}
		employees = append(employees, employee(n, ifsc))
	}
	f := newFixture(t, employees...)
	for n := 1; n <= 5; n++ {
		f.payrolls.put(approvedPayroll(n))
	}

	batch, err := f.svc.CreateBatch(ctx, "cycle-1", MethodNEFT, "finance-1")
	require.NoError(t, err)
	assert.Equal(t, 5, batch.Processed)

	res, err := f.svc.ProcessBatch(ctx, batch.BatchID, "finance-1")
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 1, res.Failed)

	for _, item := range res.Items {
		if item.EmployeeID == "emp-3" {
			require.NotEmpty(t, item.Error)
			require.Len(t, item.Issues, 1)
			assert.Equal(t, "bank.ifsc", item.Issues[0].Field)
			assert.Equal(t, StatusPending, item.Status)
			continue
		}
		assert.Empty(t, item.Error, item.EmployeeID)
		assert.Equal(t, StatusProcessing, item.Status, item.EmployeeID)
	}

	list, err := f.svc.List(ctx, Filter{BatchID: batch.BatchID, Status: StatusProcessing})
	require.NoError(t, err)
	assert.Len(t, list, 4)

	failed, err := f.svc.List(ctx, Filter{BatchID: batch.BatchID, EmployeeID: "emp-3"})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.False(t, failed[0].Processing.Validated)
	assert.Len(t, failed[0].Processing.ValidationErrors, 1)

	again, err := f.svc.CreateBatch(ctx, "cycle-1", MethodNEFT, "finance-1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Skipped)
}

func TestReconcilePayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, employee(1, "HDFC0001234"), employee(2, "HDFC0001234"))
	paid := func(n int) *Disbursement {
		d := f.created(t, n)
		_, err := f.svc.InitiatePayment(ctx, d.ID, "finance-1")
		require.NoError(t, err)
		d, err = f.svc.UpdatePaymentStatus(ctx, d.ID, StatusUpdate{Status: StatusSuccess, UTR: fmt.Sprintf("UTR%d", n)}, "rail")
		require.NoError(t, err)
		return d
	}

	t.Run("within tolerance", func(t *testing.T) {
		d := paid(1)
		got, err := f.svc.ReconcilePayment(ctx, d.ID, StatementEntry{Reference: "UTR1", Amount: decimal.RequireFromString("42823.01"), Date: testNow}, "finance-1")
		require.NoError(t, err)
		assert.True(t, got.Reconciliation.Reconciled)
		assert.Nil(t, got.Reconciliation.Discrepancy)

		_, err = f.svc.ReconcilePayment(ctx, d.ID, StatementEntry{Reference: "UTR1", Amount: decimal.NewFromInt(42823)}, "finance-1")
		require.ErrorIs(t, err, ErrAlreadyReconciled)
	})

	t.Run("discrepancy", func(t *testing.T) {
		d := paid(2)
		got, err := f.svc.ReconcilePayment(ctx, d.ID, StatementEntry{Reference: "UTR2", Amount: decimal.NewFromInt(42723)}, "finance-1")
		require.NoError(t, err)
		assert.False(t, got.Reconciliation.Reconciled)
		require.NotNil(t, got.Reconciliation.Discrepancy)
		assert.True(t, decimal.NewFromInt(100).Equal(got.Reconciliation.Discrepancy.Amount))
		assert.False(t, got.Reconciliation.Discrepancy.Resolved)

		_, err = f.svc.ResolveDiscrepancy(ctx, d.ID, "", "finance-1")
		require.ErrorIs(t, err, errs.ErrValidation)

		got, err = f.svc.ResolveDiscrepancy(ctx, d.ID, "bank charge reversed", "finance-1")
		require.NoError(t, err)
		assert.True(t, got.Reconciliation.Discrepancy.Resolved)
		assert.True(t, got.Reconciliation.Reconciled)
	})

	t.Run("only after success", func(t *testing.T) {
		list, err := f.svc.List(ctx, Filter{EmployeeID: "emp-1"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		_, err = f.svc.UpdatePaymentStatus(ctx, list[0].ID, StatusUpdate{Status: StatusReversed, FailureReason: "returned by bank"}, "rail")
		require.NoError(t, err)
		_, err = f.svc.ReconcilePayment(ctx, list[0].ID, StatementEntry{Reference: "UTR1", Amount: decimal.NewFromInt(1)}, "finance-1")
		require.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestCancelPendingDisbursement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, employee(1, "HDFC0001234"))
	d := f.created(t, 1)

	_, err := f.svc.Cancel(ctx, d.ID, "", "finance-1")
	require.ErrorIs(t, err, errs.ErrValidation)

	got, err := f.svc.Cancel(ctx, d.ID, "employee on hold", "finance-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status())

	_, err = f.svc.InitiatePayment(ctx, d.ID, "finance-1")
	require.ErrorIs(t, err, errs.ErrStateConflict)

	entries, err := f.audit.List(ctx, audit.EntityDisbursement, d.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
