package tax

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycore/internal/domain/audit"
	"paycore/internal/domain/errs"
	"paycore/internal/domain/money"
)

func newTestService(t *testing.T) (*Service, *audit.Recorder) {
	t.Helper()
	clock := func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC) }
	rec := audit.NewRecorder(audit.NewMemoryStore(), clock)
	return NewService(NewMemoryStore(), rec, clock), rec
}

func openRecord(t *testing.T, svc *Service, regime Regime) *Record {
	t.Helper()
	rec, err := svc.Open(context.Background(), OpenInput{
		EmployeeID:    "emp-1",
		FinancialYear: "2024-25",
		Regime:        regime,
		Salary:        SalaryBreakdown{Gross: 1200000, Basic: 480000, HRA: 192000},
	}, "hr-1")
	require.NoError(t, err)
	return rec
}

func TestOpenComputesSelectedRegime(t *testing.T) {
	svc, _ := newTestService(t)
	rec := openRecord(t, svc, "")

	assert.Equal(t, RegimeNew, rec.Regime)
	assert.Equal(t, StatusDraft, rec.Status)
	assert.Equal(t, money.Amount(70200), rec.TotalTaxLiability)
	assert.Equal(t, money.Amount(5850), rec.MonthlyTDS)
	require.NotNil(t, rec.OldRegime)
	require.NotNil(t, rec.NewRegime)
}

func TestOpenRejectsDuplicateEmployeeYear(t *testing.T) {
	svc, _ := newTestService(t)
	openRecord(t, svc, RegimeNew)

	_, err := svc.Open(context.Background(), OpenInput{EmployeeID: "emp-1", FinancialYear: "2024-25"}, "hr-1")
	assert.ErrorIs(t, err, ErrDuplicateRecord)
	assert.ErrorIs(t, err, errs.ErrStateConflict)
}

func TestOpenValidation(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Open(context.Background(), OpenInput{FinancialYear: "FY24", Regime: "flat"}, "hr-1")
	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Issues, 3)
}

func TestOldRegimeRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	rec := openRecord(t, svc, RegimeOld)

	rec, err := svc.Declare(ctx, rec.ID, Declarations{Section80C: 200000, Section80D: 20000, RentPaid: 240000}, "emp-1")
	require.NoError(t, err)
	liability := rec.TotalTaxLiability
	// 80C capped at 150k, HRA exemption min(192k, 240k-48k, 240k) = 192k
	assert.Equal(t, money.Amount(170000), rec.Declarations.Deductible())
	assert.Equal(t, money.Amount(192000), rec.HRAExemption())
	assert.Equal(t, money.Amount(1200000-170000-192000), rec.OldRegime.TaxableIncome)

	loaded, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	loaded.Recompute()
	assert.Equal(t, liability, loaded.TotalTaxLiability)

	recomputed, err := svc.Compute(ctx, rec.ID, "hr-1")
	require.NoError(t, err)
	assert.Equal(t, liability, recomputed.TotalTaxLiability)
}

func TestLifecycle(t *testing.T) {
	svc, recorder := newTestService(t)
	ctx := context.Background()
	rec := openRecord(t, svc, RegimeOld)

	rec, err := svc.AddProof(ctx, rec.ID, ProofInput{Section: "80C", Amount: 150000, FileRef: "s3://proofs/ppf.pdf"}, "emp-1")
	require.NoError(t, err)
	require.Len(t, rec.Proofs, 1)

	_, err = svc.VerifyProof(ctx, rec.ID, rec.Proofs[0].ID, true, "", "hr-1")
	assert.ErrorIs(t, err, errs.ErrStateConflict)

	_, err = svc.MarkForm16Generated(ctx, rec.ID, "form16.pdf", "hr-1")
	assert.ErrorIs(t, err, ErrInvalidState)

	rec, err = svc.Submit(ctx, rec.ID, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, rec.Status)

	_, err = svc.Declare(ctx, rec.ID, Declarations{}, "emp-1")
	state, ok := errs.CurrentState(err)
	require.True(t, ok)
	assert.Equal(t, string(StatusSubmitted), state)

	rec, err = svc.StartReview(ctx, rec.ID, "hr-1")
	require.NoError(t, err)
	rec, err = svc.VerifyProof(ctx, rec.ID, rec.Proofs[0].ID, true, "ok", "hr-1")
	require.NoError(t, err)
	assert.True(t, rec.Proofs[0].Verified)

	_, err = svc.VerifyProof(ctx, rec.ID, "missing", true, "", "hr-1")
	assert.ErrorIs(t, err, ErrProofNotFound)

	rec, err = svc.Approve(ctx, rec.ID, "fin-1")
	require.NoError(t, err)
	rec, err = svc.MarkForm16Generated(ctx, rec.ID, "form16.pdf", "hr-1")
	require.NoError(t, err)
	assert.True(t, rec.Form16Generated)
	rec, err = svc.Complete(ctx, rec.ID, "hr-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status)

	entries, err := recorder.List(ctx, audit.EntityTaxRecord, rec.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 8)
}

func TestPostMonthlyTDSReplacesSameMonth(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	openRecord(t, svc, RegimeNew)

	_, err := svc.PostMonthlyTDS(ctx, "emp-1", "2024-25", TDSPosting{Month: 4, Year: 2024, Amount: 5850, PayrollID: "p-apr"}, "system")
	require.NoError(t, err)
	_, err = svc.PostMonthlyTDS(ctx, "emp-1", "2024-25", TDSPosting{Month: 5, Year: 2024, Amount: 5850, PayrollID: "p-may"}, "system")
	require.NoError(t, err)
	rec, err := svc.PostMonthlyTDS(ctx, "emp-1", "2024-25", TDSPosting{Month: 4, Year: 2024, Amount: 6000, PayrollID: "p-apr"}, "system")
	require.NoError(t, err)

	require.Len(t, rec.TDSPostings, 2)
	assert.Equal(t, money.Amount(6000), rec.TDSPostings[0].Amount)
	assert.Equal(t, money.Amount(11850), rec.TDSDeducted())

	_, err = svc.PostMonthlyTDS(ctx, "emp-2", "2024-25", TDSPosting{Month: 4, Year: 2024}, "system")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestConcurrentPostingsDoNotLoseUpdates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	openRecord(t, svc, RegimeNew)

	var wg sync.WaitGroup
	for month := 1; month <= 12; month++ {
		wg.Add(1)
		go func(month int) {
			defer wg.Done()
			_, err := svc.PostMonthlyTDS(ctx, "emp-1", "2024-25", TDSPosting{Month: month, Year: 2024, Amount: 100}, "system")
			assert.NoError(t, err)
		}(month)
	}
	wg.Wait()

	rec, err := svc.FindActive(ctx, "emp-1", "2024-25")
	require.NoError(t, err)
	assert.Len(t, rec.TDSPostings, 12)
}

func TestCompareRegimes(t *testing.T) {
	svc, _ := newTestService(t)
	rec := openRecord(t, svc, RegimeNew)
	cmp, err := svc.CompareRegimes(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, RegimeNew, cmp.Recommended)
}

func TestFinancialYear(t *testing.T) {
	assert.Equal(t, "2024-25", FinancialYear(4, 2024))
	assert.Equal(t, "2024-25", FinancialYear(3, 2025))
	assert.Equal(t, "2099-00", FinancialYear(12, 2099))
}
