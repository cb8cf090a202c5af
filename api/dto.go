/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *DTO:      Response types returned to clients
  - *Request:  Request body types from clients
  - *Response: Composite response wrappers

VALIDATION:
  Request types carry go-playground/validator tags. Dates travel as
  "YYYY-MM-DD" strings and are checked with the datetime tag before they
  are parsed.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/leavetype.go: LeaveTypeJSON (served as-is by /api/leave-types)
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// EmployeeRequest upserts an employee.
type EmployeeRequest struct {
	ID            string  `json:"id" validate:"required,max=64"`
	Name          string  `json:"name" validate:"max=200"`
	Stage         string  `json:"employment_stage" validate:"required,oneof=trainee intern probation notice_period confirmed"`
	JoiningDate   string  `json:"joining_date" validate:"required,datetime=2006-01-02"`
	RelievingDate *string `json:"relieving_date" validate:"omitempty,datetime=2006-01-02"`
	Disciplinary  bool    `json:"disciplinary"`
	Country       string  `json:"country" validate:"omitempty,alpha,max=3"`
}

// HolidayRequest creates or updates a public holiday.
type HolidayRequest struct {
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Country string `json:"country" validate:"omitempty,alpha,max=3"`
	Name    string `json:"name" validate:"required,max=200"`
	Active  *bool  `json:"active"`
}

// LeaveRequestBody is the body of validate and submit.
type LeaveRequestBody struct {
	EmployeeID     string           `json:"employee_id" validate:"required"`
	LeaveType      string           `json:"leave_type" validate:"required"`
	StartDate      string           `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate        string           `json:"end_date" validate:"required,datetime=2006-01-02"`
	IsHalfDay      bool             `json:"is_half_day"`
	ScheduledHours *decimal.Decimal `json:"scheduled_hours" validate:"required_if=IsHalfDay true"`
	IsWorkFromHome bool             `json:"is_work_from_home"`
	IsOffice       bool             `json:"is_office"`
	Reason         string           `json:"reason" validate:"max=500"`
}

// PaidAbsenceRequestBody is the body of /api/paid-absences/validate.
type PaidAbsenceRequestBody struct {
	EmployeeID   string `json:"employee_id" validate:"required"`
	AbsenceType  string `json:"absence_type" validate:"required"`
	StartDate    string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	IsFirstChild bool   `json:"is_first_child"`
}

// DecisionRequest is the body of approve / reject / cancel.
type DecisionRequest struct {
	ActorID string `json:"actor_id" validate:"required"`
	Reason  string `json:"reason" validate:"max=500"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type EmployeeDTO struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Stage         string        `json:"employment_stage"`
	JoiningDate   generic.Date  `json:"joining_date"`
	RelievingDate *generic.Date `json:"relieving_date,omitempty"`
	Disciplinary  bool          `json:"disciplinary"`
	Country       string        `json:"country,omitempty"`
}

type HolidayDTO struct {
	ID      string       `json:"id"`
	Date    generic.Date `json:"date"`
	Country string       `json:"country"`
	Name    string       `json:"name"`
	Active  bool         `json:"active"`
}

type ApplicationDTO struct {
	ID                string          `json:"id"`
	EmployeeID        string          `json:"employee_id"`
	LeaveType         string          `json:"leave_type"`
	StartDate         generic.Date    `json:"start_date"`
	EndDate           generic.Date    `json:"end_date"`
	IsHalfDay         bool            `json:"is_half_day"`
	TotalDays         decimal.Decimal `json:"total_days"`
	Status            string          `json:"status"`
	IsSandwichLeave   bool            `json:"is_sandwich_leave"`
	ActualWorkingDays int             `json:"actual_working_days"`
	ApprovedBy        string          `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time      `json:"approved_at,omitempty"`
	RejectionReason   string          `json:"rejection_reason,omitempty"`
	Reason            string          `json:"reason,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type BalanceDTO struct {
	EmployeeID     string          `json:"employee_id"`
	LeaveType      string          `json:"leave_type"`
	Year           int             `json:"year"`
	IsAccrualBased bool            `json:"is_accrual_based"`
	Allocated      decimal.Decimal `json:"allocated"`
	Accrued        decimal.Decimal `json:"accrued"`
	Used           decimal.Decimal `json:"used"`
	CarriedForward decimal.Decimal `json:"carried_forward"`
	MonthsWorked   int             `json:"months_worked"`
	Available      decimal.Decimal `json:"available"`
}

// SubmitResponse is returned by POST /api/leave/applications.
type SubmitResponse struct {
	Application *ApplicationDTO        `json:"application,omitempty"`
	Result      leave.ValidationResult `json:"result"`
}

// ErrorResponse is the body of every non-2xx response except rejections,
// which return the ValidationResult itself.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEmployeeDTO(e leave.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:            e.ID,
		Name:          e.Name,
		Stage:         string(e.Stage),
		JoiningDate:   e.JoiningDate,
		RelievingDate: e.RelievingDate,
		Disciplinary:  e.Disciplinary,
		Country:       e.Country,
	}
}

func toHolidayDTO(h leave.PublicHoliday) HolidayDTO {
	return HolidayDTO{ID: h.ID, Date: h.Date, Country: h.Country, Name: h.Name, Active: h.Active}
}

func toApplicationDTO(a leave.LeaveApplication) ApplicationDTO {
	return ApplicationDTO{
		ID:                a.ID,
		EmployeeID:        a.EmployeeID,
		LeaveType:         string(a.LeaveType),
		StartDate:         a.StartDate,
		EndDate:           a.EndDate,
		IsHalfDay:         a.IsHalfDay,
		TotalDays:         a.TotalDays,
		Status:            string(a.Status),
		IsSandwichLeave:   a.IsSandwichLeave,
		ActualWorkingDays: a.ActualWorkingDays,
		ApprovedBy:        a.ApprovedBy,
		ApprovedAt:        a.ApprovedAt,
		RejectionReason:   a.RejectionReason,
		Reason:            a.Reason,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func toBalanceDTO(b leave.LeaveBalance) BalanceDTO {
	return BalanceDTO{
		EmployeeID:     b.EmployeeID,
		LeaveType:      string(b.LeaveType),
		Year:           b.Year,
		IsAccrualBased: b.IsAccrualBased,
		Allocated:      b.Allocated,
		Accrued:        b.Accrued,
		Used:           b.Used,
		CarriedForward: b.CarriedForward,
		MonthsWorked:   b.MonthsWorked,
		Available:      b.Available(),
	}
}

func (r EmployeeRequest) toEmployee() (leave.Employee, error) {
	joining, err := generic.ParseDate(r.JoiningDate)
	if err != nil {
		return leave.Employee{}, err
	}
	emp := leave.Employee{
		ID:           r.ID,
		Name:         r.Name,
		Stage:        leave.EmploymentStage(r.Stage),
		JoiningDate:  joining,
		Disciplinary: r.Disciplinary,
		Country:      r.Country,
	}
	if r.RelievingDate != nil && *r.RelievingDate != "" {
		d, err := generic.ParseDate(*r.RelievingDate)
		if err != nil {
			return leave.Employee{}, err
		}
		emp.RelievingDate = &d
	}
	return emp, nil
}

func (r LeaveRequestBody) toLeaveRequest() (leave.LeaveRequest, error) {
	start, err := generic.ParseDate(r.StartDate)
	if err != nil {
		return leave.LeaveRequest{}, err
	}
	end, err := generic.ParseDate(r.EndDate)
	if err != nil {
		return leave.LeaveRequest{}, err
	}
	return leave.LeaveRequest{
		EmployeeID:     r.EmployeeID,
		LeaveType:      leave.LeaveTypeCode(r.LeaveType),
		StartDate:      start,
		EndDate:        end,
		IsHalfDay:      r.IsHalfDay,
		ScheduledHours: r.ScheduledHours,
		IsWorkFromHome: r.IsWorkFromHome,
		IsOffice:       r.IsOffice,
		Reason:         r.Reason,
	}, nil
}

func (r PaidAbsenceRequestBody) toPaidAbsenceRequest() (leave.PaidAbsenceRequest, error) {
	req := leave.PaidAbsenceRequest{
		EmployeeID:   r.EmployeeID,
		AbsenceType:  leave.LeaveTypeCode(r.AbsenceType),
		IsFirstChild: r.IsFirstChild,
	}
	if r.StartDate != "" {
		d, err := generic.ParseDate(r.StartDate)
		if err != nil {
			return leave.PaidAbsenceRequest{}, err
		}
		req.StartDate = d
	}
	return req, nil
}
