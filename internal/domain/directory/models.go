// Package directory is the read side of employee master data consumed by
// payroll: identity, department, work state, bank details and contact.
package directory

import (
	"fmt"
	"strings"
	"time"

	"paycore/internal/domain/errs"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

var ErrEmployeeNotFound = fmt.Errorf("employee %w", errs.ErrNotFound)

type BankAccount struct {
	AccountNumber string `json:"accountNumber"`
	IFSC          string `json:"ifsc"`
	BankName      string `json:"bankName,omitempty"`
	HolderName    string `json:"holderName,omitempty"`
}

func (b BankAccount) Present() bool {
	return strings.TrimSpace(b.AccountNumber) != "" && strings.TrimSpace(b.IFSC) != ""
}

// Masked keeps only the last four digits, for logs and API responses.
func (b BankAccount) Masked() BankAccount {
	b.AccountNumber = MaskAccount(b.AccountNumber)
	return b
}

func MaskAccount(number string) string {
	number = strings.TrimSpace(number)
	if len(number) <= 4 {
		return strings.Repeat("*", len(number))
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}

type Employee struct {
	ID         string      `json:"id"`
	Code       string      `json:"code"`
	FirstName  string      `json:"firstName"`
	LastName   string      `json:"lastName"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone,omitempty"`
	Department string      `json:"department"`
	WorkState  string      `json:"workState"`
	Status     string      `json:"status"`
	JoinDate   time.Time   `json:"joinDate"`
	ExitDate   *time.Time  `json:"exitDate,omitempty"`
	Bank       BankAccount `json:"bank"`
}

func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// OnRollDuring reports whether the employee was employed at any point of
// the [start, end] period.
func (e Employee) OnRollDuring(start, end time.Time) bool {
	if e.JoinDate.After(end) {
		return false
	}
	if e.ExitDate != nil && e.ExitDate.Before(start) {
		return false
	}
	return true
}
