package leave

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// REJECTION CODES - Business-rule outcomes, returned as values
// =============================================================================

type RejectionCode string

const (
	RejectIneligibleLeaveType      RejectionCode = "IneligibleLeaveType"
	RejectHolidayInRange           RejectionCode = "HolidayInRange"
	RejectWeekendInRange           RejectionCode = "WeekendInRange"
	RejectAnnualLimitExceeded      RejectionCode = "AnnualLimitExceeded"
	RejectConflictingHalfDayMode   RejectionCode = "ConflictingHalfDayMode"
	RejectInsufficientBalance      RejectionCode = "InsufficientBalance"
	RejectNotFirstChild            RejectionCode = "NotFirstChild"
	RejectUnknownAbsenceType       RejectionCode = "UnknownAbsenceType"
	RejectTenureNotMet             RejectionCode = "TenureNotMet"
	RejectDisciplinaryDisqualified RejectionCode = "DisciplinaryDisqualified"
	RejectInvalidRequest           RejectionCode = "InvalidRequest"
	RejectUnknownLeaveType         RejectionCode = "UnknownLeaveType"
)

// Details carries the breakdown shown to the user alongside a message.
type Details struct {
	Holidays    []HolidayRef     `json:"holidays,omitempty"`
	WeekendDate *generic.Date    `json:"weekend_date,omitempty"`
	Accrued     *decimal.Decimal `json:"accrued,omitempty"`
	Allocated   *decimal.Decimal `json:"allocated,omitempty"`
	Used        *decimal.Decimal `json:"used,omitempty"`
	Available   *decimal.Decimal `json:"available,omitempty"`
	Requested   *decimal.Decimal `json:"requested,omitempty"`
	Limit       *int             `json:"limit,omitempty"`
	Count       *int             `json:"count,omitempty"`
	TenureDays  *int             `json:"tenure_days,omitempty"`
}

type HolidayRef struct {
	Date generic.Date `json:"date"`
	Name string       `json:"name"`
}

// Rejection is what a single gate returns when it refuses a request.
type Rejection struct {
	Code    RejectionCode
	Message string
	Details Details
}

func reject(code RejectionCode, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult is the single verdict returned by the processors.
type ValidationResult struct {
	Valid             bool            `json:"valid"`
	Code              RejectionCode   `json:"code,omitempty"`
	Message           string          `json:"message"`
	DeductionDays     decimal.Decimal `json:"deduction_days"`
	IsSandwich        bool            `json:"is_sandwich"`
	ActualWorkingDays int             `json:"actual_working_days"`
	Details           Details         `json:"details"`
}

// Rejected converts a gate rejection into a failed ValidationResult.
func Rejected(r *Rejection) ValidationResult {
	return ValidationResult{
		Valid:         false,
		Code:          r.Code,
		Message:       r.Message,
		DeductionDays: decimal.Zero,
		Details:       r.Details,
	}
}

// RejectionError lets workflow operations (approve, submit) return a
// business rejection through an error return.
type RejectionError struct {
	Result ValidationResult
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Result.Code, e.Result.Message)
}

func decPtr(d decimal.Decimal) *decimal.Decimal { return &d }
func intPtr(n int) *int                         { return &n }
