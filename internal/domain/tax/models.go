package tax

import (
	"fmt"
	"time"

	"paycore/internal/domain/money"
)

type Status string

const (
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusCompleted   Status = "completed"
)

// Annual caps applied to declared amounts under the old regime.
const (
	Cap80C money.Amount = 150000
	Cap80D money.Amount = 25000
	Cap24  money.Amount = 200000
)

type SalaryBreakdown struct {
	Gross money.Amount `json:"gross"`
	Basic money.Amount `json:"basic"`
	HRA   money.Amount `json:"hra"`
}

type Declarations struct {
	Section80C money.Amount `json:"section80C"`
	Section80D money.Amount `json:"section80D"`
	Section80E money.Amount `json:"section80E"`
	Section24  money.Amount `json:"section24"`
	RentPaid   money.Amount `json:"rentPaid"`
}

// Deductible is the capped sum of chapter VI-A and housing loan interest.
func (d Declarations) Deductible() money.Amount {
	return money.Min(money.ClampZero(d.Section80C), Cap80C) +
		money.Min(money.ClampZero(d.Section80D), Cap80D) +
		money.ClampZero(d.Section80E) +
		money.Min(money.ClampZero(d.Section24), Cap24)
}

type Proof struct {
	ID          string       `json:"id"`
	Section     string       `json:"section"`
	Description string       `json:"description"`
	Amount      money.Amount `json:"amount"`
	FileRef     string       `json:"fileRef"`
	UploadedAt  time.Time    `json:"uploadedAt"`
	Verified    bool         `json:"verified"`
	VerifiedBy  string       `json:"verifiedBy,omitempty"`
	VerifiedAt  *time.Time   `json:"verifiedAt,omitempty"`
	Remarks     string       `json:"remarks,omitempty"`
}

type TDSPosting struct {
	Month     int          `json:"month"`
	Year      int          `json:"year"`
	Amount    money.Amount `json:"amount"`
	PayrollID string       `json:"payrollId"`
	PostedAt  time.Time    `json:"postedAt"`
}

type Record struct {
	ID                string          `json:"id"`
	EmployeeID        string          `json:"employeeId"`
	FinancialYear     string          `json:"financialYear"`
	Regime            Regime          `json:"regime"`
	Status            Status          `json:"status"`
	Salary            SalaryBreakdown `json:"salary"`
	Declarations      Declarations    `json:"declarations"`
	Proofs            []Proof         `json:"proofs"`
	OldRegime         *Computation    `json:"oldRegime,omitempty"`
	NewRegime         *Computation    `json:"newRegime,omitempty"`
	TotalTaxLiability money.Amount    `json:"totalTaxLiability"`
	Cess              money.Amount    `json:"cess"`
	MonthlyTDS        money.Amount    `json:"monthlyTds"`
	TDSPostings       []TDSPosting    `json:"tdsPostings"`
	Form16Generated   bool            `json:"form16Generated"`
	Form16Ref         string          `json:"form16Ref,omitempty"`
	Form16At          *time.Time      `json:"form16At,omitempty"`
	SubmittedAt       *time.Time      `json:"submittedAt,omitempty"`
	ApprovedBy        string          `json:"approvedBy,omitempty"`
	ApprovedAt        *time.Time      `json:"approvedAt,omitempty"`
	Version           int64           `json:"version"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// TDSDeducted is the sum of all monthly postings so far.
func (r *Record) TDSDeducted() money.Amount {
	var total money.Amount
	for _, p := range r.TDSPostings {
		total += p.Amount
	}
	return total
}

func (r *Record) HRAExemption() money.Amount {
	return HRAExemption(r.Salary.HRA, r.Declarations.RentPaid, r.Salary.Basic)
}

// Recompute refreshes both regime computations and the liability of the
// selected regime from the stored salary and declarations.
func (r *Record) Recompute() {
	oldRes := Compute(Input{
		AnnualGross:        r.Salary.Gross,
		Regime:             RegimeOld,
		DeclaredDeductions: r.Declarations.Deductible(),
		HRAExemption:       r.HRAExemption(),
	})
	newRes := Compute(Input{AnnualGross: r.Salary.Gross, Regime: RegimeNew})
	r.OldRegime = &oldRes
	r.NewRegime = &newRes

	selected := newRes
	if r.Regime == RegimeOld {
		selected = oldRes
	}
	r.TotalTaxLiability = selected.TotalTax
	r.Cess = selected.Cess
	r.MonthlyTDS = selected.MonthlyTDS
}

func (r *Record) upsertPosting(p TDSPosting) {
	for i := range r.TDSPostings {
		if r.TDSPostings[i].Month == p.Month && r.TDSPostings[i].Year == p.Year {
			r.TDSPostings[i] = p
			return
		}
	}
	r.TDSPostings = append(r.TDSPostings, p)
}

// FinancialYear labels the Indian April-March year containing month/year,
// e.g. 2024-25.
func FinancialYear(month, year int) string {
	start := year
	if month < 4 {
		start = year - 1
	}
	return fmt.Sprintf("%d-%02d", start, (start+1)%100)
}
