// Package attendance turns a period attendance summary into pay effects:
// loss of pay, overtime and pro-rated earnings.
package attendance

import (
	"fmt"

	"github.com/shopspring/decimal"

	"paycore/internal/domain/errs"
)

var ErrSummaryNotFound = fmt.Errorf("attendance summary %w", errs.ErrNotFound)

// Summary is produced by the attendance system for one employee and month.
// Day counts allow halves.
type Summary struct {
	EmployeeID       string          `json:"employeeId"`
	Month            int             `json:"month"`
	Year             int             `json:"year"`
	TotalWorkingDays decimal.Decimal `json:"totalWorkingDays"`
	DaysOnRoll       decimal.Decimal `json:"daysOnRoll"`
	PresentDays      decimal.Decimal `json:"presentDays"`
	HalfDays         decimal.Decimal `json:"halfDays"`
	AbsentDays       decimal.Decimal `json:"absentDays"`
	PaidLeaveDays    decimal.Decimal `json:"paidLeaveDays"`
	UnpaidLeaveDays  decimal.Decimal `json:"unpaidLeaveDays"`
	OvertimeHours    decimal.Decimal `json:"overtimeHours"`
}

var half = decimal.NewFromFloat(0.5)

// ActualWorkingDays counts present days plus half days at one half each.
func (s Summary) ActualWorkingDays() decimal.Decimal {
	return s.PresentDays.Add(s.HalfDays.Mul(half))
}

func (s Summary) LOPDays() decimal.Decimal {
	return s.AbsentDays.Add(s.UnpaidLeaveDays)
}

// RosteredDays is the part of the period the employee was on roll. It
// defaults to the whole period.
func (s Summary) RosteredDays() decimal.Decimal {
	if s.DaysOnRoll.IsPositive() && s.DaysOnRoll.LessThan(s.TotalWorkingDays) {
		return s.DaysOnRoll
	}
	return s.TotalWorkingDays
}

func (s Summary) Validate() error {
	verr := &errs.ValidationError{}
	if !s.TotalWorkingDays.IsPositive() {
		verr.Issues = append(verr.Issues, errs.Issue{Field: "totalWorkingDays", Reason: "must be positive"})
	}
	for _, f := range []struct {
		name string
		v    decimal.Decimal
	}{
		{"daysOnRoll", s.DaysOnRoll},
		{"presentDays", s.PresentDays},
		{"halfDays", s.HalfDays},
		{"absentDays", s.AbsentDays},
		{"paidLeaveDays", s.PaidLeaveDays},
		{"unpaidLeaveDays", s.UnpaidLeaveDays},
		{"overtimeHours", s.OvertimeHours},
	} {
		if f.v.IsNegative() {
			verr.Issues = append(verr.Issues, errs.Issue{Field: f.name, Reason: "must not be negative"})
		}
	}
	if s.Month < 1 || s.Month > 12 {
		verr.Issues = append(verr.Issues, errs.Issue{Field: "month", Reason: "must be between 1 and 12"})
	}
	if len(verr.Issues) > 0 {
		return verr
	}
	return nil
}
