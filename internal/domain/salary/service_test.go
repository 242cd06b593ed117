package salary

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycore/internal/domain/audit"
	"paycore/internal/domain/errs"
	"paycore/internal/domain/money"
	"paycore/internal/domain/statutory"
)

func newTestService(t *testing.T) (*Service, *audit.Recorder) {
	t.Helper()
	clock := func() time.Time { return time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC) }
	rec := audit.NewRecorder(audit.NewMemoryStore(), clock)
	return NewService(NewMemoryStore(), statutory.NewCalculator(statutory.Config{}), rec, clock), rec
}

func baseInput() Input {
	return Input{
		EmployeeID:    "emp-1",
		EffectiveDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		AnnualCTC:     720000,
		Basic:         30000,
		Earnings:      []Component{{Name: "special", Kind: KindFixed, Value: pct(5000)}},
	}
}

func approved(t *testing.T, svc *Service, in Input) *Structure {
	t.Helper()
	ctx := context.Background()
	st, err := svc.Create(ctx, in, "hr-1")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, st.ID, "hr-1")
	require.NoError(t, err)
	st, err = svc.Approve(ctx, st.ID, "fin-1")
	require.NoError(t, err)
	return st
}

func TestCreateResolvesAndDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	st, err := svc.Create(context.Background(), baseInput(), "hr-1")
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, st.Status)
	assert.Equal(t, 1, st.Revision)
	assert.True(t, DefaultHRAPercent.Equal(st.HRAPercent))
	assert.Equal(t, DefaultRules(), st.Rules)
	assert.Equal(t, money.Amount(47000), st.Resolved.Gross)
	assert.Equal(t, st.Resolved.Gross-st.Resolved.TotalDeductions, st.Resolved.Net)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	in := baseInput()
	in.Basic = 70000
	in.HRAPercent = pct(120)
	in.Earnings = []Component{{Kind: "slab", Value: pct(-1)}}

	_, err := svc.Create(context.Background(), in, "hr-1")
	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, errs.ErrValidation)
	fields := make([]string, 0, len(verr.Issues))
	for _, is := range verr.Issues {
		fields = append(fields, is.Field)
	}
	assert.ElementsMatch(t, []string{"basic", "hraPercent", "earnings[0].name", "earnings[0].value", "earnings[0].kind"}, fields)
}

func TestCreateTwiceRequiresRevision(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), baseInput(), "hr-1")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), baseInput(), "hr-1")
	assert.ErrorIs(t, err, ErrStructureExists)
}

func TestApprovalLifecycle(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()
	st, err := svc.Create(ctx, baseInput(), "hr-1")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, st.ID, "fin-1")
	var conflict *errs.StateConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, string(StatusDraft), conflict.Current)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Submit(ctx, st.ID, "hr-1")
	require.NoError(t, err)
	_, err = svc.Reject(ctx, st.ID, "", "fin-1")
	assert.ErrorIs(t, err, errs.ErrValidation)
	st, err = svc.Reject(ctx, st.ID, "basic too high", "fin-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, st.Status)

	_, err = svc.Submit(ctx, st.ID, "hr-1")
	require.NoError(t, err)
	st, err = svc.Approve(ctx, st.ID, "fin-1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, st.Status)
	assert.Equal(t, "fin-1", st.ApprovedBy)
	require.NotNil(t, st.ApprovedAt)

	entries, err := rec.List(ctx, audit.EntitySalaryStructure, st.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestEditAfterApprovalNeedsReapproval(t *testing.T) {
	svc, _ := newTestService(t)
	st := approved(t, svc, baseInput())

	in := baseInput()
	in.Basic = 35000
	st, err := svc.Update(context.Background(), st.ID, in, "hr-1")
	require.NoError(t, err)

	assert.Equal(t, StatusPendingApproval, st.Status)
	assert.Empty(t, st.ApprovedBy)
	assert.Nil(t, st.ApprovedAt)
	assert.Equal(t, money.Amount(14000), st.Resolved.HRA)
	assert.Equal(t, money.Amount(54000), st.Resolved.Gross)
}

func TestRevisionSupersedesOnApproval(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	first := approved(t, svc, baseInput())

	in := baseInput()
	in.EffectiveDate = time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	in.AnnualCTC = 840000
	in.Basic = 35000
	rev, err := svc.Revise(ctx, first.ID, in, "hr-1")
	require.NoError(t, err)
	assert.Equal(t, 2, rev.Revision)
	assert.Equal(t, StatusPendingApproval, rev.Status)

	active, err := svc.ActiveAt(ctx, "emp-1", time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)

	_, err = svc.Approve(ctx, rev.ID, "fin-1")
	require.NoError(t, err)

	old, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, old.EndDate)
	assert.Equal(t, time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC), *old.EndDate)
	assert.Equal(t, rev.ID, old.SupersededBy)

	active, err = svc.ActiveAt(ctx, "emp-1", time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)
	active, err = svc.ActiveAt(ctx, "emp-1", time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, rev.ID, active.ID)

	_, err = svc.Update(ctx, first.ID, baseInput(), "hr-1")
	assert.ErrorIs(t, err, ErrSuperseded)
	assert.ErrorIs(t, err, errs.ErrStateConflict)

	history, err := svc.History(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].Revision)
}

func TestReviseRequiresLaterEffectiveDate(t *testing.T) {
	svc, _ := newTestService(t)
	first := approved(t, svc, baseInput())

	_, err := svc.Revise(context.Background(), first.ID, baseInput(), "hr-1")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestActiveAtWithoutApproval(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), baseInput(), "hr-1")
	require.NoError(t, err)

	_, err = svc.ActiveAt(context.Background(), "emp-1", time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrNoActiveStructure)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
