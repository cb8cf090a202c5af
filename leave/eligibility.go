package leave

import (
	"context"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// ELIGIBILITY GATE
// =============================================================================

// EligibilityGate bars restricted employment stages (trainee, intern,
// probation, notice period) from leave types flagged as restricted.
type EligibilityGate struct{}

// Check rejects with IneligibleLeaveType when both the stage and the leave
// type are restricted.
func (EligibilityGate) Check(emp Employee, lt LeaveType) *Rejection {
	if emp.Stage.IsRestricted() && lt.IsRestrictedForNonConfirmed {
		return reject(RejectIneligibleLeaveType,
			"%s is not available to employees in the %s stage", lt.Name, emp.Stage)
	}
	return nil
}

// =============================================================================
// ANNUAL LIMIT CHECKER
// =============================================================================

// AnnualLimitChecker enforces "at most N per calendar year" caps for
// confirmed employees.
type AnnualLimitChecker struct {
	History LeaveHistory
}

// Check counts Approved applications of lt in year and rejects with
// AnnualLimitExceeded once the cap is reached.
func (c AnnualLimitChecker) Check(ctx context.Context, emp Employee, lt LeaveType, year int) (*Rejection, error) {
	if emp.Stage != StageConfirmed || lt.MaxApplicationsPerYear == nil {
		return nil, nil
	}
	limit := *lt.MaxApplicationsPerYear

	count, err := c.History.CountApproved(ctx, emp.ID, lt.Code, year)
	if err != nil {
		return nil, generic.Unavailable("leave history", "count approved", err)
	}
	if count >= limit {
		r := reject(RejectAnnualLimitExceeded,
			"%s can be taken %d time(s) per year; %d already approved in %d",
			lt.Name, limit, count, year)
		r.Details.Limit = intPtr(limit)
		r.Details.Count = intPtr(count)
		return r, nil
	}
	return nil, nil
}
