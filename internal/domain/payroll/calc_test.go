package payroll

import (
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycore/internal/domain/attendance"
	"paycore/internal/domain/money"
	"paycore/internal/domain/salary"
	"paycore/internal/domain/statutory"
)

func structureFor(calc *statutory.Calculator, basic money.Amount, earnings ...salary.Component) *salary.Structure {
	st := &salary.Structure{
		AnnualCTC:  basic * 24,
		Basic:      basic,
		HRAPercent: salary.DefaultHRAPercent,
		Earnings:   earnings,
		Rules:      salary.DefaultRules(),
	}
	st.Recompute(calc)
	return st
}

func fullMonth() attendance.Summary {
	return attendance.Summary{Month: 4, Year: 2024, TotalWorkingDays: decimal.NewFromInt(30), PresentDays: decimal.NewFromInt(30)}
}

func TestComputeProRatesJoinerAndRecomputesPF(t *testing.T) {
	calc := statutory.NewCalculator(statutory.DefaultConfig())
	summary := fullMonth()
	summary.DaysOnRoll = decimal.NewFromInt(15)
	summary.PresentDays = decimal.NewFromInt(15)

	c := Compute(CalcInput{Structure: structureFor(calc, 20000), Attendance: summary}, calc)

	assert.True(t, c.Attendance.ProRated)
	assert.Equal(t, money.Amount(10000), c.Earnings.Basic)
	assert.Equal(t, money.Amount(4000), c.Earnings.HRA)
	assert.Equal(t, money.Amount(14000), c.GrossPay)
	assert.Equal(t, money.Amount(1200), c.Statutory.PF.Employee)
	assert.Equal(t, money.Amount(105), c.Statutory.ESI.Employee)
	assert.Equal(t, money.Amount(150), c.Statutory.ProfessionalTax)
	assert.Zero(t, c.Other.LossOfPay)
	assert.Equal(t, money.Amount(1455), c.TotalDeductions)
	assert.Equal(t, money.Amount(12545), c.NetPay)
}

func TestComputeLOPScenario(t *testing.T) {
	calc := statutory.NewCalculator(statutory.DefaultConfig())
	summary := fullMonth()
	summary.PresentDays = decimal.NewFromInt(28)
	summary.AbsentDays = decimal.NewFromInt(2)

	c := Compute(CalcInput{Structure: structureFor(calc, 30000), Attendance: summary}, calc)
	assert.Equal(t, money.Amount(2000), c.Other.LossOfPay)
	assert.Equal(t, money.Amount(30000), c.Earnings.Basic)
}

func TestComputeStructureStateOverridesWorkState(t *testing.T) {
	calc := statutory.NewCalculator(statutory.DefaultConfig())
	st := structureFor(calc, 9000)
	st.Rules.PTState = "MH"

	c := Compute(CalcInput{Structure: st, Attendance: fullMonth(), PTState: "KA"}, calc)
	assert.Equal(t, "MH", c.Statutory.PTState)
	assert.Equal(t, money.Amount(200), c.Statutory.ProfessionalTax)
}

func TestComputeIdentitiesHoldForGeneratedInputs(t *testing.T) {
	calc := statutory.NewCalculator(statutory.DefaultConfig())
	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 500; i++ {
		basic := money.Amount(rng.IntN(200000) + 1)
		st := structureFor(calc, basic,
			salary.Component{Name: "special", Kind: salary.KindFixed, Value: decimal.NewFromInt(int64(rng.IntN(20000)))},
			salary.Component{Name: "lta", Kind: salary.KindPercentage, Value: decimal.NewFromInt(int64(rng.IntN(30))), Base: salary.BaseGross},
		)
		days := int64(rng.IntN(10) + 20)
		absent := int64(rng.IntN(5))
		summary := attendance.Summary{
			Month:            4,
			Year:             2024,
			TotalWorkingDays: decimal.NewFromInt(days),
			DaysOnRoll:       decimal.NewFromInt(int64(rng.IntN(int(days))) + 1),
			PresentDays:      decimal.NewFromInt(days - absent),
			AbsentDays:       decimal.NewFromInt(absent),
			OvertimeHours:    decimal.NewFromInt(int64(rng.IntN(40))),
		}
		in := CalcInput{
			Structure:   st,
			Attendance:  summary,
			Adjustments: Adjustments{Bonus: money.Amount(rng.IntN(5000)), Loan: money.Amount(rng.IntN(5000))},
			MonthlyTDS:  money.Amount(rng.IntN(30000)),
		}
		c := Compute(in, calc)
		p := &Payroll{}
		p.apply(c)

		require.True(t, p.Balanced(), "iteration %d", i)
		require.LessOrEqual(t, c.Statutory.PF.Base, statutory.DefaultPFWageCeiling)
		again := Compute(in, calc)
		require.Equal(t, c.Earnings, again.Earnings, "iteration %d", i)
		require.Equal(t, c.Statutory, again.Statutory, "iteration %d", i)
		require.Equal(t, c.Other, again.Other, "iteration %d", i)
	}
}
