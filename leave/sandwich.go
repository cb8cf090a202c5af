/*
sandwich.go - Sandwich rule

PURPOSE:
  Stops employees from leaving single days next to a weekend/holiday block
  while an approved leave already sits on the far side of that block. The
  bridged non-working days are charged on top of the working days actually
  requested.

ALGORITHM (full-day requests only):
  1. actual = CountWorkingDays(start, end)
  2. Walk backward from start-1 over non-working days (beforeRun) to the
     first working day d0. If beforeRun > 0 and an Approved leave covers d0,
     sandwiched += beforeRun.
  3. Same forward from end+1 (afterRun) to d1.
  4. total = actual + sandwiched, isSandwich = sandwiched > 0

EXAMPLE:
  Approved leave on Fri 2024-11-01, new request Mon 2024-11-04.
  Backward walk: Sun 03, Sat 02 (run=2) -> Fri 01 is approved.
  total = 1 + 2 = 3, isSandwich = true.

SEE ALSO:
  - processor.go: only the full-day branch calls Evaluate
*/
package leave

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// DefaultMaxBridgeDays bounds a single non-working run. A run longer than
// this bridges nothing.
const DefaultMaxBridgeDays = 31

// SandwichRuleEngine computes the full-day deduction.
type SandwichRuleEngine struct {
	Calendar      Calendar
	History       LeaveHistory
	MaxBridgeDays int
}

// SandwichOutcome is the engine's verdict for one request.
type SandwichOutcome struct {
	IsSandwich        bool
	TotalDeduction    decimal.Decimal
	ActualWorkingDays int
	BridgedBefore     int
	BridgedAfter      int
}

// Evaluate applies the sandwich rule to [start, end] for employeeID.
func (e SandwichRuleEngine) Evaluate(ctx context.Context, employeeID string, start, end generic.Date, country string) (SandwichOutcome, error) {
	actual, err := e.Calendar.CountWorkingDays(ctx, start, end, country)
	if err != nil {
		return SandwichOutcome{}, err
	}

	before, err := e.bridge(ctx, employeeID, start.AddDays(-1), -1, country)
	if err != nil {
		return SandwichOutcome{}, err
	}
	after, err := e.bridge(ctx, employeeID, end.AddDays(1), 1, country)
	if err != nil {
		return SandwichOutcome{}, err
	}

	sandwiched := before + after
	return SandwichOutcome{
		IsSandwich:        sandwiched > 0,
		TotalDeduction:    generic.Days(actual + sandwiched),
		ActualWorkingDays: actual,
		BridgedBefore:     before,
		BridgedAfter:      after,
	}, nil
}

// bridge walks from `from` in direction step over non-working days and
// returns the run length if the working day that ends the run is covered by
// an approved leave, 0 otherwise.
func (e SandwichRuleEngine) bridge(ctx context.Context, employeeID string, from generic.Date, step int, country string) (int, error) {
	limit := e.MaxBridgeDays
	if limit <= 0 {
		limit = DefaultMaxBridgeDays
	}

	run := 0
	d := from
	for {
		working, err := e.Calendar.IsWorkingDay(ctx, d, country)
		if err != nil {
			return 0, err
		}
		if working {
			break
		}
		run++
		if run > limit {
			return 0, nil
		}
		d = d.AddDays(step)
	}
	if run == 0 {
		return 0, nil
	}

	covered, err := e.History.HasApprovedLeaveOn(ctx, employeeID, d)
	if err != nil {
		return 0, generic.Unavailable("leave history", "approved leave on "+d.String(), err)
	}
	if !covered {
		return 0, nil
	}
	return run, nil
}
