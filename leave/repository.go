package leave

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// COLLABORATOR INTERFACES - What the rule engine reads
// =============================================================================

// EmployeeDirectory looks up employees. Missing ids return generic.ErrNotFound.
type EmployeeDirectory interface {
	Employee(ctx context.Context, id string) (Employee, error)
}

// EmployeeLister enumerates the directory for batch jobs (balance refresh).
type EmployeeLister interface {
	ListEmployees(ctx context.Context) ([]Employee, error)
}

// HolidayCalendar answers holiday questions for a country. Only active
// holidays count.
type HolidayCalendar interface {
	IsHoliday(ctx context.Context, date generic.Date, country string) (bool, error)
	HolidaysBetween(ctx context.Context, r generic.Range, country string) ([]PublicHoliday, error)
}

// LeaveHistory aggregates over Approved applications. An application belongs
// to the year of its start date.
type LeaveHistory interface {
	SumApprovedDays(ctx context.Context, employeeID string, code LeaveTypeCode, year int) (decimal.Decimal, error)
	CountApproved(ctx context.Context, employeeID string, code LeaveTypeCode, year int) (int, error)
	// HasApprovedLeaveOn reports whether any Approved application, of any
	// leave type, covers date.
	HasApprovedLeaveOn(ctx context.Context, employeeID string, date generic.Date) (bool, error)
}

// =============================================================================
// WRITE SIDE - Used by the workflow service only
// =============================================================================

type ApplicationStore interface {
	CreateApplication(ctx context.Context, app LeaveApplication) error
	GetApplication(ctx context.Context, id string) (LeaveApplication, error)
	UpdateApplication(ctx context.Context, app LeaveApplication) error
	ListApplications(ctx context.Context, employeeID string) ([]LeaveApplication, error)
}

// BalanceStore caches LeaveBalance rows.
//
// SaveBalance is an optimistic write: b.Version is the version the caller
// read (0 for a row that does not exist yet). The stored row gets Version+1.
// A mismatch returns generic.ErrConcurrentModification.
type BalanceStore interface {
	GetBalance(ctx context.Context, employeeID string, code LeaveTypeCode, year int) (LeaveBalance, error)
	SaveBalance(ctx context.Context, b LeaveBalance) error
}

// Repository is everything the engine and the workflow need.
type Repository interface {
	EmployeeDirectory
	EmployeeLister
	HolidayCalendar
	LeaveHistory
	ApplicationStore
	BalanceStore
}

// Store adds single-writer transactions. fn sees a Repository bound to the
// transaction; returning an error rolls everything back.
type Store interface {
	Repository
	WithTx(ctx context.Context, fn func(Repository) error) error
}
