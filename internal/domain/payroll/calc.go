package payroll

import (
	"paycore/internal/domain/attendance"
	"paycore/internal/domain/money"
	"paycore/internal/domain/salary"
	"paycore/internal/domain/statutory"
)

type CalcInput struct {
	Structure   *salary.Structure
	Attendance  attendance.Summary
	Adjustments Adjustments
	PTState     string
	MonthlyTDS  money.Amount
	TDSSource   string
}

type Calculation struct {
	Attendance            attendance.Result
	Earnings              Earnings
	Statutory             Statutory
	Other                 Other
	GrossPay              money.Amount
	TotalDeductions       money.Amount
	NetPay                money.Amount
	EmployerContributions money.Amount
}

// Compute derives a payroll from its inputs. It has no side effects and the
// same input always yields the same output.
func Compute(in CalcInput, calc *statutory.Calculator) Calculation {
	res := in.Structure.Resolved
	allowances := make([]Line, 0, len(res.Earnings))
	for _, l := range res.Earnings {
		allowances = append(allowances, Line{Name: l.Name, Amount: l.Amount})
	}
	att := attendance.Apply(in.Attendance, attendance.Pay{Basic: res.Basic, HRA: res.HRA, Allowances: allowances})

	out := Calculation{Attendance: att}
	out.Earnings = Earnings{
		Basic:      att.Basic,
		HRA:        att.HRA,
		Allowances: att.Allowances,
		Overtime:   att.OvertimePay,
		Bonus:      in.Adjustments.Bonus,
		Arrears:    in.Adjustments.Arrears,
	}
	out.GrossPay = out.Earnings.Total()

	state := in.PTState
	if in.Structure.Rules.PTState != "" {
		state = in.Structure.Rules.PTState
	}
	// PF follows the pro-rated basic; ESI and PT follow the period gross.
	sr := salary.ApplyRules(calc.Compute(att.Basic, out.GrossPay, state), in.Structure.Rules)
	out.Statutory = Statutory{
		PF:              sr.PF,
		ESI:             sr.ESI,
		ProfessionalTax: sr.ProfessionalTax,
		PTState:         sr.State,
		TDS:             money.ClampZero(in.MonthlyTDS),
		TDSSource:       in.TDSSource,
	}

	custom := make([]Line, 0, len(res.CustomDeductions))
	for _, l := range res.CustomDeductions {
		custom = append(custom, Line{Name: l.Name, Amount: l.Amount})
	}
	out.Other = Other{
		LossOfPay:    att.LossOfPay,
		Loan:         in.Adjustments.Loan,
		Advance:      in.Adjustments.Advance,
		Disciplinary: in.Adjustments.Disciplinary,
		Custom:       custom,
	}

	out.TotalDeductions = out.Statutory.Total() + out.Other.Total()
	out.NetPay = out.GrossPay - out.TotalDeductions
	out.EmployerContributions = out.Statutory.EmployerTotal()
	return out
}
