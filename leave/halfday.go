package leave

import (
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// HalfDayThresholdHours is the scheduled-hours boundary. Exactly 5.0 is a
// half day.
var HalfDayThresholdHours = decimal.NewFromInt(5)

// HalfDayCalculator turns scheduled hours into a 0.5 or 1.0 day deduction.
type HalfDayCalculator struct{}

// CheckConflict rejects a half-day request that claims both work-from-home
// and office.
func (HalfDayCalculator) CheckConflict(req LeaveRequest) *Rejection {
	if req.IsHalfDay && req.IsWorkFromHome && req.IsOffice {
		return reject(RejectConflictingHalfDayMode,
			"a half-day leave cannot be both work-from-home and in-office")
	}
	return nil
}

// Deduction is 0.5 day when scheduledHours >= 5.0, otherwise a full day.
func (HalfDayCalculator) Deduction(scheduledHours decimal.Decimal) decimal.Decimal {
	if scheduledHours.GreaterThanOrEqual(HalfDayThresholdHours) {
		return generic.HalfDay
	}
	return generic.OneDay
}
