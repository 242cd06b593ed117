package tax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycore/internal/domain/money"
)

func TestComputeNewRegimeTwelveLakh(t *testing.T) {
	res := Compute(Input{AnnualGross: 1200000, Regime: RegimeNew})

	assert.Equal(t, money.Amount(1150000), res.TaxableIncome)
	require.Len(t, res.Slabs, 4)
	assert.Equal(t, money.Amount(0), res.Slabs[0].Tax)
	assert.Equal(t, money.Amount(15000), res.Slabs[1].Tax)
	assert.Equal(t, money.Amount(30000), res.Slabs[2].Tax)
	assert.Equal(t, money.Amount(150000), res.Slabs[3].Taxable)
	assert.Equal(t, money.Amount(22500), res.Slabs[3].Tax)
	assert.Equal(t, money.Amount(67500), res.SlabTax)
	assert.Equal(t, money.Amount(2700), res.Cess)
	assert.Equal(t, money.Amount(70200), res.TotalTax)
	assert.Equal(t, money.Amount(5850), res.MonthlyTDS)
}

func TestComputeOldRegime(t *testing.T) {
	res := Compute(Input{AnnualGross: 1200000, Regime: RegimeOld, DeclaredDeductions: 150000, HRAExemption: 50000})

	assert.Equal(t, money.Amount(1000000), res.TaxableIncome)
	// 12,500 + 100,000
	assert.Equal(t, money.Amount(112500), res.SlabTax)
	assert.Equal(t, money.Amount(4500), res.Cess)
	assert.Equal(t, money.Amount(117000), res.TotalTax)
	assert.Equal(t, money.Amount(9750), res.MonthlyTDS)
	assert.Zero(t, res.StandardDeduction)
}

func TestComputeClampsToZero(t *testing.T) {
	cases := []Input{
		{AnnualGross: 40000, Regime: RegimeNew},
		{AnnualGross: 100000, Regime: RegimeOld, DeclaredDeductions: 300000},
		{AnnualGross: -5, Regime: "bogus"},
	}
	for _, in := range cases {
		res := Compute(in)
		assert.Zero(t, res.TaxableIncome)
		assert.Zero(t, res.TotalTax)
		assert.Zero(t, res.MonthlyTDS)
	}
	assert.Equal(t, RegimeNew, Compute(Input{Regime: "bogus"}).Regime)
}

func TestComputeTopSlab(t *testing.T) {
	res := Compute(Input{AnnualGross: 2050000, Regime: RegimeNew})
	// 15k + 30k + 45k + 60k + 150k
	assert.Equal(t, money.Amount(300000), res.SlabTax)
	assert.Equal(t, money.Amount(312000), res.TotalTax)
	assert.Equal(t, money.Amount(26000), res.MonthlyTDS)
}

func TestHRAExemption(t *testing.T) {
	cases := []struct {
		name                   string
		hra, rent, basic, want money.Amount
	}{
		{"received is smallest", 100000, 400000, 600000, 100000},
		{"rent over basic is smallest", 240000, 150000, 600000, 90000},
		{"half basic is smallest", 500000, 900000, 600000, 300000},
		{"rent below ten percent", 240000, 50000, 600000, 0},
		{"no rent", 240000, 0, 600000, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HRAExemption(tc.hra, tc.rent, tc.basic))
		})
	}
}

func TestCompare(t *testing.T) {
	cmp := Compare(1200000, 0, 0)
	assert.Equal(t, RegimeNew, cmp.Recommended)
	assert.Equal(t, cmp.Old.TotalTax-cmp.New.TotalTax, cmp.Savings)

	cmp = Compare(800000, 350000, 150000)
	assert.Equal(t, RegimeOld, cmp.Recommended)
	assert.Positive(t, cmp.Savings)
}
