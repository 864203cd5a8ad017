package auth

const (
	RoleEmployee       = "employee"
	RolePayrollOfficer = "payroll_officer"
	RoleApprover       = "approver"
	RoleSystemAdmin    = "admin"
)

const (
	PermPayrollRead     = "payroll.read"
	PermPayrollWrite    = "payroll.write"
	PermPayrollRun      = "payroll.run"
	PermPayrollFinalize = "payroll.finalize"
	PermPayrollApprove  = "payroll.approve"
	PermPayrollExport   = "payroll.export"
	PermPayrollSelf     = "payroll.self"
)

var DefaultPermissions = []string{
	PermPayrollRead,
	PermPayrollWrite,
	PermPayrollRun,
	PermPayrollFinalize,
	PermPayrollApprove,
	PermPayrollExport,
	PermPayrollSelf,
}

// RolePermissions is the static grant table. Employees only reach their own
// payslips through PermPayrollSelf.
var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermPayrollSelf,
	},
	RolePayrollOfficer: {
		PermPayrollRead,
		PermPayrollWrite,
		PermPayrollRun,
		PermPayrollExport,
		PermPayrollSelf,
	},
	RoleApprover: {
		PermPayrollRead,
		PermPayrollApprove,
		PermPayrollFinalize,
		PermPayrollSelf,
	},
	RoleSystemAdmin: DefaultPermissions,
}

type UserContext struct {
	UserID     string
	EmployeeID string
	Role       string
}

// HasPermission reports whether role grants perm.
func HasPermission(role, perm string) bool {
	for _, granted := range RolePermissions[role] {
		if granted == perm {
			return true
		}
	}
	return false
}
