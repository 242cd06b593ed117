package server

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"paycore/internal/domain/attendance"
	"paycore/internal/domain/directory"
)

var demoEmployees = []directory.Employee{
	{
		ID: "emp-1001", Code: "E1001", FirstName: "Asha", LastName: "Rao",
		Email: "asha.rao@example.com", Phone: "+919800000001", Department: "Engineering",
		WorkState: "KA", Status: "active",
		Bank: directory.BankAccount{AccountNumber: "50100012345678", IFSC: "HDFC0001234", BankName: "HDFC Bank", HolderName: "Asha Rao"},
	},
	{
		ID: "emp-1002", Code: "E1002", FirstName: "Vikram", LastName: "Shah",
		Email: "vikram.shah@example.com", Phone: "+919800000002", Department: "Finance",
		WorkState: "MH", Status: "active",
		Bank: directory.BankAccount{AccountNumber: "00112233445566", IFSC: "ICIC0000456", BankName: "ICICI Bank", HolderName: "Vikram Shah"},
	},
	{
		ID: "emp-1003", Code: "E1003", FirstName: "Meera", LastName: "Iyer",
		Email: "meera.iyer@example.com", Department: "Operations",
		WorkState: "TN", Status: "active",
		Bank: directory.BankAccount{AccountNumber: "33445566778899", IFSC: "SBIN0007890", BankName: "State Bank of India", HolderName: "Meera Iyer"},
	},
}

// seedDemo loads a small roster with a full attendance month so a fresh
// environment can run a cycle end to end.
func seedDemo(ctx context.Context, st stores, now time.Time) error {
	month, year := int(now.Month()), now.Year()
	joined := time.Date(year-1, time.April, 1, 0, 0, 0, 0, time.UTC)
	for _, emp := range demoEmployees {
		emp.JoinDate = joined
		if err := st.Employees.Upsert(ctx, emp); err != nil {
			return err
		}
		if err := st.Attendance.Upsert(ctx, attendance.Summary{
			EmployeeID:       emp.ID,
			Month:            month,
			Year:             year,
			TotalWorkingDays: decimal.NewFromInt(22),
			PresentDays:      decimal.NewFromInt(21),
			PaidLeaveDays:    decimal.NewFromInt(1),
		}); err != nil {
			return err
		}
	}
	return nil
}
