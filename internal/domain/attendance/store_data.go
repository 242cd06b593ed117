package attendance

import (
	"context"

	"paycore/internal/platform/db"
)

type Store struct {
	DB db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{DB: q}
}

func (s *Store) Get(ctx context.Context, employeeID string, month, year int) (Summary, error) {
	sum := Summary{EmployeeID: employeeID, Month: month, Year: year}
	err := s.DB.QueryRow(ctx, `
    SELECT total_working_days, days_on_roll, present_days, half_days, absent_days,
           paid_leave_days, unpaid_leave_days, overtime_hours
    FROM attendance_summaries
    WHERE employee_id = $1 AND month = $2 AND year = $3
  `, employeeID, month, year).Scan(&sum.TotalWorkingDays, &sum.DaysOnRoll, &sum.PresentDays, &sum.HalfDays,
		&sum.AbsentDays, &sum.PaidLeaveDays, &sum.UnpaidLeaveDays, &sum.OvertimeHours)
	if db.IsNoRows(err) {
		return Summary{}, ErrSummaryNotFound
	}
	if err != nil {
		return Summary{}, err
	}
	return sum, nil
}

func (s *Store) Upsert(ctx context.Context, sum Summary) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO attendance_summaries (employee_id, month, year, total_working_days, days_on_roll, present_days,
                                      half_days, absent_days, paid_leave_days, unpaid_leave_days, overtime_hours)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    ON CONFLICT (employee_id, month, year) DO UPDATE SET
      total_working_days = EXCLUDED.total_working_days, days_on_roll = EXCLUDED.days_on_roll,
      present_days = EXCLUDED.present_days, half_days = EXCLUDED.half_days, absent_days = EXCLUDED.absent_days,
      paid_leave_days = EXCLUDED.paid_leave_days, unpaid_leave_days = EXCLUDED.unpaid_leave_days,
      overtime_hours = EXCLUDED.overtime_hours, updated_at = now()
  `, sum.EmployeeID, sum.Month, sum.Year, sum.TotalWorkingDays, sum.DaysOnRoll, sum.PresentDays, sum.HalfDays,
		sum.AbsentDays, sum.PaidLeaveDays, sum.UnpaidLeaveDays, sum.OvertimeHours)
	return err
}
