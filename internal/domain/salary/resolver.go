// Package salary resolves CTC and component rules into a monthly pay
// breakdown and keeps the effective-dated history of each employee's
// structure with its approval state.
package salary

import (
	"github.com/shopspring/decimal"

	"paycore/internal/domain/money"
	"paycore/internal/domain/statutory"
)

var twelve = decimal.NewFromInt(12)

type ResolveInput struct {
	AnnualCTC  money.Amount
	Basic      money.Amount
	HRAPercent decimal.Decimal
	Earnings   []Component
	Deductions []Component
	Rules      Rules
}

// Resolve folds the earning components in declared order. A component based
// on gross sees only the earnings resolved before it. Custom deductions are
// evaluated after all earnings, against the final gross.
func Resolve(in ResolveInput, calc *statutory.Calculator) Resolution {
	hraPercent := in.HRAPercent
	if hraPercent.IsZero() {
		hraPercent = DefaultHRAPercent
	}
	monthlyCTC := money.Dec(in.AnnualCTC).Div(twelve)

	res := Resolution{Basic: in.Basic, HRA: money.Percent(in.Basic, hraPercent)}
	running := res.Basic + res.HRA
	for _, c := range in.Earnings {
		amount := componentAmount(c, res.Basic, running, monthlyCTC)
		res.Earnings = append(res.Earnings, Line{Name: c.Name, Amount: amount})
		running += amount
	}
	res.Gross = running

	var custom money.Amount
	for _, c := range in.Deductions {
		amount := componentAmount(c, res.Basic, res.Gross, monthlyCTC)
		res.CustomDeductions = append(res.CustomDeductions, Line{Name: c.Name, Amount: amount})
		custom += amount
	}

	res.Statutory = ApplyRules(calc.Compute(res.Basic, res.Gross, in.Rules.PTState), in.Rules)
	res.TotalDeductions = res.Statutory.EmployeeTotal() + custom
	res.Net = res.Gross - res.TotalDeductions
	res.EmployerContributions = res.Statutory.EmployerTotal()
	return res
}

func componentAmount(c Component, basic, gross money.Amount, monthlyCTC decimal.Decimal) money.Amount {
	if c.Kind == KindFixed {
		return money.Round(c.Value)
	}
	switch c.Base {
	case BaseGross:
		return money.Percent(gross, c.Value)
	case BaseCTC:
		return money.Round(money.PercentOf(monthlyCTC, c.Value))
	default:
		return money.Percent(basic, c.Value)
	}
}

// ApplyRules zeroes the statutory heads a structure opts out of.
func ApplyRules(res statutory.Result, rules Rules) statutory.Result {
	if !rules.PFEnabled {
		res.PF = statutory.PF{}
	}
	if !rules.ESIEnabled {
		res.ESI = statutory.ESI{}
	}
	if !rules.PTEnabled {
		res.ProfessionalTax = 0
	}
	return res
}
