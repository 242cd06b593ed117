package auth

const (
	RoleEmployee     = "employee"
	RoleHR           = "hr"
	RoleFinance      = "finance"
	RolePayrollAdmin = "payroll_admin"
	RoleSystem       = "system"
)

const (
	PermSalaryRead        = "salary.read"
	PermSalaryWrite       = "salary.write"
	PermSalaryApprove     = "salary.approve"
	PermTaxRead           = "tax.read"
	PermTaxWrite          = "tax.write"
	PermTaxApprove        = "tax.approve"
	PermPayrollRead       = "payroll.read"
	PermPayrollRun        = "payroll.run"
	PermPayrollApprove    = "payroll.approve"
	PermCycleRun          = "cycle.run"
	PermCycleApprove      = "cycle.approve"
	PermDisbursementRead  = "disbursement.read"
	PermDisbursementRun   = "disbursement.run"
	PermDisbursementRecon = "disbursement.reconcile"
	PermPaymentCallback   = "payment.callback"
	PermDocumentsRead     = "documents.read"
	PermAuditRead         = "audit.read"
	PermJobsRun           = "jobs.run"
)

var DefaultPermissions = []string{
	PermSalaryRead,
	PermSalaryWrite,
	PermSalaryApprove,
	PermTaxRead,
	PermTaxWrite,
	PermTaxApprove,
	PermPayrollRead,
	PermPayrollRun,
	PermPayrollApprove,
	PermCycleRun,
	PermCycleApprove,
	PermDisbursementRead,
	PermDisbursementRun,
	PermDisbursementRecon,
	PermPaymentCallback,
	PermDocumentsRead,
	PermAuditRead,
	PermJobsRun,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermPayrollRead,
		PermTaxRead,
		PermTaxWrite,
		PermDocumentsRead,
	},
	RoleHR: {
		PermSalaryRead,
		PermSalaryWrite,
		PermSalaryApprove,
		PermTaxRead,
		PermTaxWrite,
		PermTaxApprove,
		PermPayrollRead,
		PermPayrollRun,
		PermPayrollApprove,
		PermCycleRun,
		PermCycleApprove,
		PermDocumentsRead,
		PermAuditRead,
	},
	RoleFinance: {
		PermSalaryRead,
		PermTaxRead,
		PermPayrollRead,
		PermPayrollApprove,
		PermCycleApprove,
		PermDisbursementRead,
		PermDisbursementRun,
		PermDisbursementRecon,
		PermDocumentsRead,
		PermAuditRead,
	},
	RolePayrollAdmin: DefaultPermissions,
	RoleSystem: {
		PermPaymentCallback,
		PermJobsRun,
	},
}

// StaticPermissions answers permission checks from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(role, permission string) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}
