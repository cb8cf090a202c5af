// Package leave implements leave validation, sandwich-rule deduction and
// accrual-based balances on top of the generic date and error types.
//
// The rule engine is stateless: every component is a value type holding the
// narrow collaborator interfaces it reads from (repository.go). Persistence
// and the approval workflow live in service.go.
package leave

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// EMPLOYMENT STAGE
// =============================================================================

type EmploymentStage string

const (
	StageTrainee      EmploymentStage = "trainee"
	StageIntern       EmploymentStage = "intern"
	StageProbation    EmploymentStage = "probation"
	StageNoticePeriod EmploymentStage = "notice_period"
	StageConfirmed    EmploymentStage = "confirmed"
)

// IsRestricted reports whether the stage is barred from discretionary leave.
func (s EmploymentStage) IsRestricted() bool {
	switch s {
	case StageTrainee, StageIntern, StageProbation, StageNoticePeriod:
		return true
	default:
		return false
	}
}

func (s EmploymentStage) Valid() bool {
	return s == StageConfirmed || s.IsRestricted()
}

// =============================================================================
// LEAVE TYPE CODES
// =============================================================================

type LeaveTypeCode string

const (
	LeaveCasual              LeaveTypeCode = "casual"
	LeaveEmergency           LeaveTypeCode = "emergency"
	LeaveBirthday            LeaveTypeCode = "birthday"
	LeaveMarriageAnniversary LeaveTypeCode = "marriage_anniversary"
	LeaveCarryForwardCasual  LeaveTypeCode = "carry_forward_casual"
	LeavePublicHoliday       LeaveTypeCode = "public_holiday"
	LeaveWeekend             LeaveTypeCode = "weekend"
	LeaveMarriageAbsence     LeaveTypeCode = "marriage_absence"
	LeavePaternity           LeaveTypeCode = "paternity"
	LeaveMaternity           LeaveTypeCode = "maternity"
)

// =============================================================================
// EMPLOYEE - Read-only view owned by the employee directory
// =============================================================================

type Employee struct {
	ID            string
	Name          string
	Stage         EmploymentStage
	JoiningDate   generic.Date
	RelievingDate *generic.Date
	Disciplinary  bool
	Country       string // holiday calendar country; empty = engine default
}

// =============================================================================
// LEAVE TYPE - One row of the leave-type table
// =============================================================================

type LeaveType struct {
	Code                        LeaveTypeCode
	Name                        string
	AnnualAllocationDays        decimal.Decimal
	IsAccrualBased              bool
	MonthlyAccrualDays          decimal.Decimal // accrual-based types only
	IsRestrictedForNonConfirmed bool
	MaxApplicationsPerYear      *int
	IsPaidAbsence               bool
	RequiresFirstChild          bool
}

// =============================================================================
// PUBLIC HOLIDAY
// =============================================================================

// PublicHoliday is unique per (Date, Country).
type PublicHoliday struct {
	ID      string
	Date    generic.Date
	Country string
	Name    string
	Active  bool
}

// =============================================================================
// LEAVE REQUEST - Input, not yet persisted
// =============================================================================

type LeaveRequest struct {
	EmployeeID     string
	LeaveType      LeaveTypeCode
	StartDate      generic.Date
	EndDate        generic.Date
	IsHalfDay      bool
	ScheduledHours *decimal.Decimal // required when IsHalfDay
	IsWorkFromHome bool
	IsOffice       bool
	Reason         string
}

func (r LeaveRequest) Range() generic.Range {
	return generic.Range{Start: r.StartDate, End: r.EndDate}
}

// PaidAbsenceRequest asks for a one-off paid absence (marriage, paternity,
// maternity).
type PaidAbsenceRequest struct {
	EmployeeID   string
	AbsenceType  LeaveTypeCode
	StartDate    generic.Date
	IsFirstChild bool
}

// =============================================================================
// LEAVE APPLICATION - Persisted outcome
// =============================================================================

type ApplicationStatus string

const (
	StatusPending   ApplicationStatus = "pending"
	StatusApproved  ApplicationStatus = "approved"
	StatusRejected  ApplicationStatus = "rejected"
	StatusCancelled ApplicationStatus = "cancelled"
)

// transitions lists the allowed one-way status moves. Nothing returns to
// pending; rejected and cancelled are terminal.
var transitions = map[ApplicationStatus][]ApplicationStatus{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusCancelled},
}

// CanTransition reports whether from -> to is an allowed status change.
func CanTransition(from, to ApplicationStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type LeaveApplication struct {
	ID                string
	EmployeeID        string
	LeaveType         LeaveTypeCode
	StartDate         generic.Date
	EndDate           generic.Date
	IsHalfDay         bool
	TotalDays         decimal.Decimal
	Status            ApplicationStatus
	IsSandwichLeave   bool
	ActualWorkingDays int
	ApprovedBy        string
	ApprovedAt        *time.Time
	RejectionReason   string
	Reason            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (a LeaveApplication) Range() generic.Range {
	return generic.Range{Start: a.StartDate, End: a.EndDate}
}

// Year is the calendar year the application is charged to.
func (a LeaveApplication) Year() int { return a.StartDate.Year() }

// Covers reports whether d falls inside the application's span.
func (a LeaveApplication) Covers(d generic.Date) bool { return a.Range().Contains(d) }

// =============================================================================
// LEAVE BALANCE - Derived, cached per employee x leave type x year
// =============================================================================

type LeaveBalance struct {
	EmployeeID     string
	LeaveType      LeaveTypeCode
	Year           int
	IsAccrualBased bool
	Allocated      decimal.Decimal
	Accrued        decimal.Decimal
	Used           decimal.Decimal
	CarriedForward decimal.Decimal
	MonthsWorked   int
	Version        int64 // optimistic lock for cached rows
	UpdatedAt      time.Time
}

// Available is accrued (accrual-based) or allocated (flat) plus carried
// forward minus used. It may be negative; callers must reject before persisting.
func (b LeaveBalance) Available() decimal.Decimal {
	base := b.Allocated
	if b.IsAccrualBased {
		base = b.Accrued
	}
	return base.Add(b.CarriedForward).Sub(b.Used)
}
