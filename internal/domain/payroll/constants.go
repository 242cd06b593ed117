package payroll

type Status string

const (
	StatusDraft      Status = "draft"
	StatusCalculated Status = "calculated"
	StatusApproved   Status = "approved"
	StatusProcessed  Status = "processed"
	StatusPaid       Status = "paid"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

const (
	PaymentPending    = "pending"
	PaymentProcessing = "processing"
	PaymentFailed     = "failed"
	PaymentPaid       = "paid"
)

const (
	TDSFromTaxRecord = "tax_record"
	TDSEstimated     = "estimated"
)

const (
	FlagNegativeNet = "negative_net"
	FlagMissingBank = "missing_bank_account"
)
