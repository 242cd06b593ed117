package disbursement

import (
	"time"

	"github.com/shopspring/decimal"

	"paycore/internal/domain/directory"
	"paycore/internal/domain/errs"
	"paycore/internal/domain/money"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusQueued     Status = "queued"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusReversed   Status = "reversed"
)

type Method string

const (
	MethodBankTransfer Method = "bank_transfer"
	MethodNEFT         Method = "neft"
	MethodIMPS         Method = "imps"
	MethodRTGS         Method = "rtgs"
)

func (m Method) Valid() bool {
	switch m {
	case MethodBankTransfer, MethodNEFT, MethodIMPS, MethodRTGS:
		return true
	}
	return false
}

// transitions lists the statuses reachable through UpdatePaymentStatus.
// Entering processing from pending or failed goes through InitiatePayment
// and RetryPayment instead.
var transitions = map[Status][]Status{
	StatusPending:    {StatusCancelled},
	StatusProcessing: {StatusSuccess, StatusFailed, StatusQueued, StatusCancelled, StatusReversed},
	StatusQueued:     {StatusProcessing, StatusSuccess, StatusFailed, StatusCancelled},
	StatusFailed:     {StatusCancelled},
	StatusSuccess:    {StatusReversed},
}

func (s Status) CanMoveTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type StatusChange struct {
	From   Status    `json:"from"`
	To     Status    `json:"to"`
	At     time.Time `json:"at"`
	Actor  string    `json:"actor,omitempty"`
	Reason string    `json:"reason,omitempty"`
}

type Transaction struct {
	Status          Status         `json:"status"`
	TransactionID   string         `json:"transactionId,omitempty"`
	UTR             string         `json:"utr,omitempty"`
	Gateway         string         `json:"gateway,omitempty"`
	History         []StatusChange `json:"history"`
	FailureReason   string         `json:"failureReason,omitempty"`
	FailureCode     string         `json:"failureCode,omitempty"`
	RetryCount      int            `json:"retryCount"`
	MaxRetries      int            `json:"maxRetries"`
	NextRetryAt     *time.Time     `json:"nextRetryAt,omitempty"`
	InitiatedAt     *time.Time     `json:"initiatedAt,omitempty"`
	ProcessedAt     *time.Time     `json:"processedAt,omitempty"`
	TransactionDate *time.Time     `json:"transactionDate,omitempty"`
}

type Processing struct {
	InitiatedBy      string       `json:"initiatedBy,omitempty"`
	ValidatedBy      string       `json:"validatedBy,omitempty"`
	ProcessedBy      string       `json:"processedBy,omitempty"`
	Validated        bool         `json:"validated"`
	ValidatedAt      *time.Time   `json:"validatedAt,omitempty"`
	ValidationErrors []errs.Issue `json:"validationErrors,omitempty"`
}

type Discrepancy struct {
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	Resolved   bool            `json:"resolved"`
	Resolution string          `json:"resolution,omitempty"`
	ResolvedBy string          `json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time      `json:"resolvedAt,omitempty"`
}

type Reconciliation struct {
	Reconciled      bool             `json:"reconciled"`
	StatementRef    string           `json:"statementRef,omitempty"`
	StatementAmount *decimal.Decimal `json:"statementAmount,omitempty"`
	StatementDate   *time.Time       `json:"statementDate,omitempty"`
	Discrepancy     *Discrepancy     `json:"discrepancy,omitempty"`
	ReconciledAt    *time.Time       `json:"reconciledAt,omitempty"`
	ReconciledBy    string           `json:"reconciledBy,omitempty"`
}

// Disbursement is the payment of one approved payroll. Bank details are a
// snapshot taken at creation; later directory edits do not affect it.
type Disbursement struct {
	ID             string                `json:"id"`
	BatchID        string                `json:"batchId"`
	PayrollID      string                `json:"payrollId"`
	EmployeeID     string                `json:"employeeId"`
	EmployeeCode   string                `json:"employeeCode"`
	EmployeeName   string                `json:"employeeName"`
	Email          string                `json:"email,omitempty"`
	Phone          string                `json:"phone,omitempty"`
	CycleID        string                `json:"cycleId,omitempty"`
	Month          int                   `json:"month"`
	Year           int                   `json:"year"`
	GrossAmount    money.Amount          `json:"grossAmount"`
	Deductions     money.Amount          `json:"deductions"`
	NetAmount      money.Amount          `json:"netAmount"`
	Bank           directory.BankAccount `json:"bank"`
	Method         Method                `json:"method"`
	Transaction    Transaction           `json:"transaction"`
	Processing     Processing            `json:"processing"`
	Reconciliation Reconciliation        `json:"reconciliation"`
	CreatedBy      string                `json:"createdBy"`
	Version        int                   `json:"version"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

func (d *Disbursement) Status() Status {
	return d.Transaction.Status
}

func (d *Disbursement) move(to Status, at time.Time, actor, reason string) {
	d.Transaction.History = append(d.Transaction.History, StatusChange{
		From:   d.Transaction.Status,
		To:     to,
		At:     at,
		Actor:  actor,
		Reason: reason,
	})
	d.Transaction.Status = to
}

func (d *Disbursement) lastChange() StatusChange {
	if n := len(d.Transaction.History); n > 0 {
		return d.Transaction.History[n-1]
	}
	return StatusChange{}
}

// RetryEligible reports whether a failed payment has a scheduled retry that
// is due at now.
func (d *Disbursement) RetryEligible(now time.Time) bool {
	t := d.Transaction
	return t.Status == StatusFailed &&
		t.RetryCount < t.MaxRetries &&
		t.NextRetryAt != nil &&
		!t.NextRetryAt.After(now)
}

// Masked returns a copy safe to log or return over the API.
func (d Disbursement) Masked() Disbursement {
	d.Bank = d.Bank.Masked()
	return d
}

type Filter struct {
	BatchID    string
	CycleID    string
	EmployeeID string
	Status     Status
}
