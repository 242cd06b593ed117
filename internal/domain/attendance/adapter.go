package attendance

import (
	"github.com/shopspring/decimal"

	"paycore/internal/domain/money"
)

var (
	overtimeMultiplier = decimal.NewFromFloat(1.5)
	hoursPerDay        = decimal.NewFromInt(8)
)

type Line struct {
	Name   string       `json:"name"`
	Amount money.Amount `json:"amount"`
}

// Pay is the monthly earnings the structure grants for a full period.
type Pay struct {
	Basic      money.Amount
	HRA        money.Amount
	Allowances []Line
}

type Result struct {
	ActualWorkingDays decimal.Decimal `json:"actualWorkingDays"`
	DailyRate         decimal.Decimal `json:"dailyRate"`
	HourlyRate        decimal.Decimal `json:"hourlyRate"`
	LOPDays           decimal.Decimal `json:"lopDays"`
	LossOfPay         money.Amount    `json:"lossOfPay"`
	OvertimePay       money.Amount    `json:"overtimePay"`
	ProRataRatio      decimal.Decimal `json:"proRataRatio"`
	ProRated          bool            `json:"proRated"`
	Basic             money.Amount    `json:"basic"`
	HRA               money.Amount    `json:"hra"`
	Allowances        []Line          `json:"allowances"`
}

// Apply requires s.TotalWorkingDays > 0; Summary.Validate enforces it
// upstream. Rates are derived from the full monthly basic.
func Apply(s Summary, pay Pay) Result {
	days := s.TotalWorkingDays
	basic := money.Dec(pay.Basic)

	res := Result{
		ActualWorkingDays: s.ActualWorkingDays(),
		DailyRate:         basic.Div(days),
		HourlyRate:        basic.Div(days.Mul(hoursPerDay)),
		LOPDays:           s.LOPDays(),
		ProRataRatio:      decimal.NewFromInt(1),
		Basic:             pay.Basic,
		HRA:               pay.HRA,
		Allowances:        append([]Line(nil), pay.Allowances...),
	}
	res.LossOfPay = money.Round(basic.Mul(res.LOPDays).Div(days))
	res.OvertimePay = money.Round(basic.Mul(overtimeMultiplier).Mul(s.OvertimeHours).Div(days.Mul(hoursPerDay)))

	rostered := s.RosteredDays()
	if rostered.LessThan(days) {
		ratio := rostered.Div(days)
		res.ProRataRatio = ratio
		res.ProRated = true
		res.Basic = prorate(pay.Basic, rostered, days)
		res.HRA = prorate(pay.HRA, rostered, days)
		for i := range res.Allowances {
			res.Allowances[i].Amount = prorate(res.Allowances[i].Amount, rostered, days)
		}
	}
	return res
}

func prorate(amount money.Amount, num, den decimal.Decimal) money.Amount {
	return money.Round(money.Dec(amount).Mul(num).Div(den))
}
