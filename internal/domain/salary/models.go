package salary

import (
	"time"

	"github.com/shopspring/decimal"

	"paycore/internal/domain/money"
	"paycore/internal/domain/statutory"
)

type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
)

type Kind string

const (
	KindFixed      Kind = "fixed"
	KindPercentage Kind = "percentage"
)

// Base names what a percentage component is computed against. Gross means
// the running sum of earnings resolved so far, in declared order.
type Base string

const (
	BaseBasic Base = "basic"
	BaseGross Base = "gross"
	BaseCTC   Base = "ctc"
)

var DefaultHRAPercent = decimal.NewFromInt(40)

// Component is a monthly earning or custom deduction. Value is rupees for
// fixed components and a percentage otherwise.
type Component struct {
	Name  string          `json:"name"`
	Kind  Kind            `json:"kind"`
	Value decimal.Decimal `json:"value"`
	Base  Base            `json:"base,omitempty"`
}

type Rules struct {
	PFEnabled        bool   `json:"pfEnabled"`
	ESIEnabled       bool   `json:"esiEnabled"`
	PTEnabled        bool   `json:"ptEnabled"`
	PTState          string `json:"ptState,omitempty"`
	GratuityEligible bool   `json:"gratuityEligible"`
	BonusEligible    bool   `json:"bonusEligible"`
}

func DefaultRules() Rules {
	return Rules{PFEnabled: true, ESIEnabled: true, PTEnabled: true}
}

type Line struct {
	Name   string       `json:"name"`
	Amount money.Amount `json:"amount"`
}

// Resolution is the derived monthly breakdown of a structure.
type Resolution struct {
	Basic                 money.Amount     `json:"basic"`
	HRA                   money.Amount     `json:"hra"`
	Earnings              []Line           `json:"earnings"`
	Gross                 money.Amount     `json:"gross"`
	Statutory             statutory.Result `json:"statutory"`
	CustomDeductions      []Line           `json:"customDeductions"`
	TotalDeductions       money.Amount     `json:"totalDeductions"`
	Net                   money.Amount     `json:"net"`
	EmployerContributions money.Amount     `json:"employerContributions"`
}

// Structure is one effective-dated version of an employee's pay. AnnualCTC
// is yearly; Basic and components are monthly.
type Structure struct {
	ID            string          `json:"id"`
	EmployeeID    string          `json:"employeeId"`
	Revision      int             `json:"revision"`
	EffectiveDate time.Time       `json:"effectiveDate"`
	EndDate       *time.Time      `json:"endDate,omitempty"`
	AnnualCTC     money.Amount    `json:"annualCtc"`
	Basic         money.Amount    `json:"basic"`
	HRAPercent    decimal.Decimal `json:"hraPercent"`
	Earnings      []Component     `json:"earnings"`
	Deductions    []Component     `json:"deductions"`
	Rules         Rules           `json:"rules"`
	Status        Status          `json:"status"`
	Resolved      Resolution      `json:"resolved"`
	SupersededBy  string          `json:"supersededBy,omitempty"`
	CreatedBy     string          `json:"createdBy"`
	ApprovedBy    string          `json:"approvedBy,omitempty"`
	ApprovedAt    *time.Time      `json:"approvedAt,omitempty"`
	RejectReason  string          `json:"rejectReason,omitempty"`
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// ActiveOn reports whether the structure covers day at.
func (s *Structure) ActiveOn(at time.Time) bool {
	if s.Status != StatusApproved || at.Before(s.EffectiveDate) {
		return false
	}
	return s.EndDate == nil || !at.After(*s.EndDate)
}

// Recompute refreshes Resolved from the inputs. Call it after every change
// to basic, CTC, components or rules.
func (s *Structure) Recompute(calc *statutory.Calculator) {
	s.Resolved = Resolve(ResolveInput{
		AnnualCTC:  s.AnnualCTC,
		Basic:      s.Basic,
		HRAPercent: s.HRAPercent,
		Earnings:   s.Earnings,
		Deductions: s.Deductions,
		Rules:      s.Rules,
	}, calc)
}
