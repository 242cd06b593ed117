package attendance

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycore/internal/domain/errs"
	"paycore/internal/domain/money"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestLossOfPayTwoAbsentDays(t *testing.T) {
	res := Apply(Summary{TotalWorkingDays: d(30), PresentDays: d(28), AbsentDays: d(2)}, Pay{Basic: 30000})

	assert.True(t, res.DailyRate.Equal(d(1000)))
	assert.Equal(t, money.Amount(2000), res.LossOfPay)
	assert.False(t, res.ProRated)
	assert.Equal(t, money.Amount(30000), res.Basic)
}

func TestLossOfPayIncludesUnpaidLeave(t *testing.T) {
	res := Apply(Summary{TotalWorkingDays: d(26), AbsentDays: d(1), UnpaidLeaveDays: d(1.5)}, Pay{Basic: 26000})
	assert.True(t, res.LOPDays.Equal(d(2.5)))
	assert.Equal(t, money.Amount(2500), res.LossOfPay)
}

func TestOvertime(t *testing.T) {
	// hourly = 30000 / 240 = 125; 125 * 1.5 * 10 = 1875
	res := Apply(Summary{TotalWorkingDays: d(30), OvertimeHours: d(10)}, Pay{Basic: 30000})
	assert.True(t, res.HourlyRate.Equal(d(125)))
	assert.Equal(t, money.Amount(1875), res.OvertimePay)
}

func TestProRataForMidMonthJoiner(t *testing.T) {
	sum := Summary{TotalWorkingDays: d(30), DaysOnRoll: d(15), PresentDays: d(14), HalfDays: d(1)}
	res := Apply(sum, Pay{Basic: 30000, HRA: 12000, Allowances: []Line{{Name: "special", Amount: 5001}}})

	assert.True(t, res.ProRated)
	assert.True(t, res.ProRataRatio.Equal(d(0.5)))
	assert.True(t, res.ActualWorkingDays.Equal(d(14.5)))
	assert.Equal(t, money.Amount(15000), res.Basic)
	assert.Equal(t, money.Amount(6000), res.HRA)
	assert.Equal(t, money.Amount(2501), res.Allowances[0].Amount)
}

func TestApplyDoesNotMutateInputAllowances(t *testing.T) {
	allowances := []Line{{Name: "special", Amount: 1000}}
	Apply(Summary{TotalWorkingDays: d(30), DaysOnRoll: d(10)}, Pay{Basic: 3000, Allowances: allowances})
	assert.Equal(t, money.Amount(1000), allowances[0].Amount)
}

func TestSummaryValidate(t *testing.T) {
	err := Summary{Month: 13, AbsentDays: d(-1), OvertimeHours: d(-2), HalfDays: d(-1)}.Validate()
	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make([]string, 0, len(verr.Issues))
	for _, issue := range verr.Issues {
		fields = append(fields, issue.Field)
	}
	assert.Equal(t, []string{"totalWorkingDays", "halfDays", "absentDays", "overtimeHours", "month"}, fields)

	assert.NoError(t, Summary{Month: 4, TotalWorkingDays: d(22)}.Validate())
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, Summary{EmployeeID: "e1", Month: 4, Year: 2024, TotalWorkingDays: d(22)}))

	got, err := store.Get(ctx, "e1", 4, 2024)
	require.NoError(t, err)
	assert.True(t, got.TotalWorkingDays.Equal(d(22)))

	_, err = store.Get(ctx, "e1", 5, 2024)
	assert.ErrorIs(t, err, ErrSummaryNotFound)
}
