// Package tax computes annual income tax and monthly TDS under the old and
// new regimes, and owns the per employee, per financial year tax record.
package tax

import (
	"github.com/shopspring/decimal"

	"paycore/internal/domain/money"
)

type Regime string

const (
	RegimeOld Regime = "old"
	RegimeNew Regime = "new"
)

func (r Regime) Valid() bool {
	return r == RegimeOld || r == RegimeNew
}

const NewRegimeStandardDeduction money.Amount = 50000

var cessRate = decimal.NewFromInt(4)

// Slab taxes income above From up to To (0 means unbounded) at Rate percent.
type Slab struct {
	From money.Amount
	To   money.Amount
	Rate decimal.Decimal
}

var newRegimeSlabs = []Slab{
	{From: 0, To: 300000, Rate: decimal.Zero},
	{From: 300000, To: 600000, Rate: decimal.NewFromInt(5)},
	{From: 600000, To: 900000, Rate: decimal.NewFromInt(10)},
	{From: 900000, To: 1200000, Rate: decimal.NewFromInt(15)},
	{From: 1200000, To: 1500000, Rate: decimal.NewFromInt(20)},
	{From: 1500000, Rate: decimal.NewFromInt(30)},
}

var oldRegimeSlabs = []Slab{
	{From: 0, To: 250000, Rate: decimal.Zero},
	{From: 250000, To: 500000, Rate: decimal.NewFromInt(5)},
	{From: 500000, To: 1000000, Rate: decimal.NewFromInt(20)},
	{From: 1000000, Rate: decimal.NewFromInt(30)},
}

func Slabs(regime Regime) []Slab {
	if regime == RegimeOld {
		return oldRegimeSlabs
	}
	return newRegimeSlabs
}

type SlabLine struct {
	From    money.Amount    `json:"from"`
	To      money.Amount    `json:"to"`
	Rate    decimal.Decimal `json:"rate"`
	Taxable money.Amount    `json:"taxable"`
	Tax     money.Amount    `json:"tax"`
}

type Input struct {
	AnnualGross        money.Amount
	Regime             Regime
	DeclaredDeductions money.Amount
	HRAExemption       money.Amount
}

type Computation struct {
	Regime             Regime       `json:"regime"`
	AnnualGross        money.Amount `json:"annualGross"`
	StandardDeduction  money.Amount `json:"standardDeduction"`
	DeclaredDeductions money.Amount `json:"declaredDeductions"`
	HRAExemption       money.Amount `json:"hraExemption"`
	TaxableIncome      money.Amount `json:"taxableIncome"`
	Slabs              []SlabLine   `json:"slabs"`
	SlabTax            money.Amount `json:"slabTax"`
	Cess               money.Amount `json:"cess"`
	TotalTax           money.Amount `json:"totalTax"`
	MonthlyTDS         money.Amount `json:"monthlyTds"`
}

// Compute never fails. Negative intermediates are clamped to zero.
func Compute(in Input) Computation {
	regime := in.Regime
	if !regime.Valid() {
		regime = RegimeNew
	}
	out := Computation{Regime: regime, AnnualGross: money.ClampZero(in.AnnualGross)}

	switch regime {
	case RegimeOld:
		out.DeclaredDeductions = money.ClampZero(in.DeclaredDeductions)
		out.HRAExemption = money.ClampZero(in.HRAExemption)
		out.TaxableIncome = money.ClampZero(out.AnnualGross - out.DeclaredDeductions - out.HRAExemption)
	default:
		out.StandardDeduction = NewRegimeStandardDeduction
		out.TaxableIncome = money.ClampZero(out.AnnualGross - NewRegimeStandardDeduction)
	}

	out.Slabs, out.SlabTax = applySlabs(out.TaxableIncome, Slabs(regime))
	out.Cess = money.Percent(out.SlabTax, cessRate)
	out.TotalTax = out.SlabTax + out.Cess
	out.MonthlyTDS = money.Round(money.Dec(out.TotalTax).Div(decimal.NewFromInt(12)))
	return out
}

func applySlabs(taxable money.Amount, slabs []Slab) ([]SlabLine, money.Amount) {
	lines := make([]SlabLine, 0, len(slabs))
	var total money.Amount
	for _, slab := range slabs {
		if taxable <= slab.From {
			break
		}
		upper := taxable
		if slab.To > 0 && slab.To < upper {
			upper = slab.To
		}
		portion := upper - slab.From
		tax := money.Percent(portion, slab.Rate)
		lines = append(lines, SlabLine{From: slab.From, To: slab.To, Rate: slab.Rate, Taxable: portion, Tax: tax})
		total += tax
	}
	return lines, total
}

// HRAExemption applies the minimum-of-three rule on annual amounts. The
// 50% of basic term is the metro rate and is not varied by city.
func HRAExemption(hraReceived, rentPaid, basic money.Amount) money.Amount {
	received := money.ClampZero(hraReceived)
	rentOverBasic := money.ClampZero(rentPaid - money.Percent(basic, decimal.NewFromInt(10)))
	halfBasic := money.ClampZero(money.Percent(basic, decimal.NewFromInt(50)))
	return money.Min(received, money.Min(rentOverBasic, halfBasic))
}

// Comparison is the side by side result of both regimes for one salary.
type Comparison struct {
	Old         Computation  `json:"old"`
	New         Computation  `json:"new"`
	Recommended Regime       `json:"recommended"`
	Savings     money.Amount `json:"savings"`
}

func Compare(annualGross, declared, hraExemption money.Amount) Comparison {
	oldRes := Compute(Input{AnnualGross: annualGross, Regime: RegimeOld, DeclaredDeductions: declared, HRAExemption: hraExemption})
	newRes := Compute(Input{AnnualGross: annualGross, Regime: RegimeNew})
	cmp := Comparison{Old: oldRes, New: newRes, Recommended: RegimeNew, Savings: oldRes.TotalTax - newRes.TotalTax}
	if oldRes.TotalTax < newRes.TotalTax {
		cmp.Recommended = RegimeOld
		cmp.Savings = newRes.TotalTax - oldRes.TotalTax
	}
	return cmp
}
