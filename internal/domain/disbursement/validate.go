package disbursement

import (
	"regexp"
	"strings"

	"paycore/internal/domain/errs"
)

var ifscPattern = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)

// Validate checks the payment details. An empty list means the payment may
// be initiated.
func Validate(d *Disbursement) []errs.Issue {
	var issues []errs.Issue
	if strings.TrimSpace(d.Bank.AccountNumber) == "" {
		issues = append(issues, errs.Issue{Field: "bank.accountNumber", Reason: "is required"})
	}
	switch ifsc := strings.TrimSpace(d.Bank.IFSC); {
	case ifsc == "":
		issues = append(issues, errs.Issue{Field: "bank.ifsc", Reason: "is required"})
	case !ifscPattern.MatchString(ifsc):
		issues = append(issues, errs.Issue{Field: "bank.ifsc", Reason: "is not a valid IFSC code"})
	}
	if d.NetAmount <= 0 {
		issues = append(issues, errs.Issue{Field: "netAmount", Reason: "must be positive"})
	}
	if d.GrossAmount < d.NetAmount {
		issues = append(issues, errs.Issue{Field: "grossAmount", Reason: "must not be less than net amount"})
	}
	return issues
}
