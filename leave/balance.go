/*
balance.go - Accrual-based and flat balances

BALANCE FORMULAS:
  accrual-based (casual):
    monthsWorked = clamp(0, 12, currentMonth - firstEligibleMonth + 1)
      firstEligibleMonth = joining month if joined in `year`, else January
      currentMonth       = month of "now" for the current year,
                           12 for a past year
      a future year, or a year before joining, accrues nothing
    accrued   = monthsWorked * monthlyAccrualDays
    available = accrued - used

  flat:
    available = annualAllocationDays - used

  used = sum(totalDays) of Approved applications of the type in `year`.

CARRY FORWARD:
  LeaveBalance has a CarriedForward field and cached rows store it, but it
  only joins `available` when ApplyCarryForward is set. Off by default.

EXAMPLE:
  Joined 2024-03-10, as of 2024-07-15: monthsWorked = 7 - 3 + 1 = 5.
  No approved casual leave -> available = 5.
*/
package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// BalanceLedger computes available balance per employee x leave type x year.
type BalanceLedger struct {
	History LeaveHistory

	// Balances is read for CarriedForward when ApplyCarryForward is true.
	Balances          BalanceStore
	ApplyCarryForward bool

	// Now defaults to time.Now.
	Now func() time.Time
}

func (l BalanceLedger) today() generic.Date {
	if l.Now != nil {
		return generic.DateOf(l.Now())
	}
	return generic.DateOf(time.Now())
}

// GetBalance returns the available balance.
func (l BalanceLedger) GetBalance(ctx context.Context, emp Employee, lt LeaveType, year int) (decimal.Decimal, error) {
	b, err := l.Breakdown(ctx, emp, lt, year)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Available(), nil
}

// Breakdown returns allocated / accrued / used / carried-forward for display
// and for the insufficient-balance message.
func (l BalanceLedger) Breakdown(ctx context.Context, emp Employee, lt LeaveType, year int) (LeaveBalance, error) {
	used, err := l.History.SumApprovedDays(ctx, emp.ID, lt.Code, year)
	if err != nil {
		return LeaveBalance{}, generic.Unavailable("leave history", "sum approved days", err)
	}

	b := LeaveBalance{
		EmployeeID:     emp.ID,
		LeaveType:      lt.Code,
		Year:           year,
		IsAccrualBased: lt.IsAccrualBased,
		Allocated:      lt.AnnualAllocationDays,
		Accrued:        decimal.Zero,
		Used:           used,
		CarriedForward: decimal.Zero,
	}

	if lt.IsAccrualBased {
		b.MonthsWorked = MonthsWorked(emp.JoiningDate, year, l.today())
		b.Accrued = lt.MonthlyAccrualDays.Mul(decimal.NewFromInt(int64(b.MonthsWorked)))
	}

	if l.ApplyCarryForward && l.Balances != nil {
		cached, err := l.Balances.GetBalance(ctx, emp.ID, lt.Code, year)
		switch {
		case err == nil:
			b.CarriedForward = cached.CarriedForward
		case generic.IsNotFound(err):
		default:
			return LeaveBalance{}, generic.Unavailable("balance store", "carried forward", err)
		}
	}

	return b, nil
}

// MonthsWorked counts accrual months for year as of asOf.
func MonthsWorked(joining generic.Date, year int, asOf generic.Date) int {
	if year > asOf.Year() || joining.Year() > year {
		return 0
	}

	currentMonth := 12
	if year == asOf.Year() {
		currentMonth = int(asOf.Month())
	}

	firstEligible := 1
	if joining.Year() == year {
		firstEligible = int(joining.Month())
	}

	months := currentMonth - firstEligible + 1
	switch {
	case months < 0:
		return 0
	case months > 12:
		return 12
	}
	return months
}
