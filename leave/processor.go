/*
processor.go - Leave request pipeline

PIPELINE (fixed order, first failure wins):
  0. sanity        InvalidRequest / UnknownLeaveType
  1. eligibility   IneligibleLeaveType
  2. date range    HolidayInRange / WeekendInRange (every employee)
  3. annual limit  AnnualLimitExceeded (confirmed employees, capped types)
  4. half-day      ConflictingHalfDayMode
  5. deduction     half-day calculator XOR sandwich rule engine
  6. balance       InsufficientBalance
  7. valid         {deduction, isSandwich, actualWorkingDays}

Rejections come back as ValidationResult values. The error return is used
only for collaborator failures (generic.ErrDependencyUnavailable).

The processor never writes. Persisting the Pending application is the
caller's job (see service.go, which re-runs Process inside a transaction).
*/
package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Config tunes processor construction.
type Config struct {
	DefaultCountry    string
	MaxBridgeDays     int
	ApplyCarryForward bool
	Now               func() time.Time
}

// Processor orchestrates the leave gates for a single request.
type Processor struct {
	Catalog     *Catalog
	Eligibility EligibilityGate
	DateRange   DateRangeValidator
	AnnualLimit AnnualLimitChecker
	HalfDay     HalfDayCalculator
	Sandwich    SandwichRuleEngine
	Balance     BalanceLedger

	DefaultCountry string
}

// NewProcessor wires every gate to repo.
func NewProcessor(catalog *Catalog, repo Repository, cfg Config) *Processor {
	cal := Calendar{Holidays: repo}
	return &Processor{
		Catalog:     catalog,
		DateRange:   DateRangeValidator{Calendar: cal},
		AnnualLimit: AnnualLimitChecker{History: repo},
		Sandwich: SandwichRuleEngine{
			Calendar:      cal,
			History:       repo,
			MaxBridgeDays: cfg.MaxBridgeDays,
		},
		Balance: BalanceLedger{
			History:           repo,
			Balances:          repo,
			ApplyCarryForward: cfg.ApplyCarryForward,
			Now:               cfg.Now,
		},
		DefaultCountry: cfg.DefaultCountry,
	}
}

func (p *Processor) country(emp Employee) string {
	if emp.Country != "" {
		return emp.Country
	}
	return p.DefaultCountry
}

// Process returns the verdict for req. Identical inputs against unchanged
// collaborator state yield identical results.
func (p *Processor) Process(ctx context.Context, emp Employee, req LeaveRequest) (ValidationResult, error) {
	lt, rej := p.sanity(req)
	if rej != nil {
		return Rejected(rej), nil
	}
	country := p.country(emp)
	year := req.StartDate.Year()

	// 1. Eligibility
	if rej := p.Eligibility.Check(emp, lt); rej != nil {
		return Rejected(rej), nil
	}

	// 2. Weekends / holidays
	rej, err := p.DateRange.Validate(ctx, req.Range(), country)
	if err != nil {
		return ValidationResult{}, err
	}
	if rej != nil {
		return Rejected(rej), nil
	}

	// 3. Annual caps
	rej, err = p.AnnualLimit.Check(ctx, emp, lt, year)
	if err != nil {
		return ValidationResult{}, err
	}
	if rej != nil {
		return Rejected(rej), nil
	}

	// 4. Half-day mode conflict
	if rej := p.HalfDay.CheckConflict(req); rej != nil {
		return Rejected(rej), nil
	}

	// 5. Deduction
	var (
		deduction  decimal.Decimal
		isSandwich bool
		actualDays int
	)
	if req.IsHalfDay {
		deduction = p.HalfDay.Deduction(*req.ScheduledHours)
	} else {
		out, err := p.Sandwich.Evaluate(ctx, emp.ID, req.StartDate, req.EndDate, country)
		if err != nil {
			return ValidationResult{}, err
		}
		deduction = out.TotalDeduction
		isSandwich = out.IsSandwich
		actualDays = out.ActualWorkingDays
	}

	// 6. Balance
	bal, err := p.Balance.Breakdown(ctx, emp, lt, year)
	if err != nil {
		return ValidationResult{}, err
	}
	if rej := insufficient(lt, bal, deduction); rej != nil {
		return Rejected(rej), nil
	}

	return ValidationResult{
		Valid:             true,
		Message:           "leave request is valid",
		DeductionDays:     deduction,
		IsSandwich:        isSandwich,
		ActualWorkingDays: actualDays,
	}, nil
}

// sanity resolves the leave type and rejects malformed requests before any
// collaborator is consulted.
func (p *Processor) sanity(req LeaveRequest) (LeaveType, *Rejection) {
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return LeaveType{}, reject(RejectInvalidRequest, "start and end dates are required")
	}
	if req.EndDate.Before(req.StartDate) {
		return LeaveType{}, reject(RejectInvalidRequest,
			"end date %s is before start date %s", req.EndDate, req.StartDate)
	}
	lt, ok := p.Catalog.Lookup(req.LeaveType)
	if !ok {
		return LeaveType{}, reject(RejectUnknownLeaveType, "unknown leave type %q", req.LeaveType)
	}
	if req.IsHalfDay {
		if !req.StartDate.Equal(req.EndDate) {
			return LeaveType{}, reject(RejectInvalidRequest, "a half-day leave must start and end on the same day")
		}
		if req.ScheduledHours == nil || !req.ScheduledHours.IsPositive() {
			return LeaveType{}, reject(RejectInvalidRequest, "scheduled hours are required for a half-day leave")
		}
	}
	return lt, nil
}

// insufficient rejects when the available balance does not cover deduction.
func insufficient(lt LeaveType, bal LeaveBalance, deduction decimal.Decimal) *Rejection {
	available := bal.Available()
	if !available.LessThan(deduction) {
		return nil
	}

	var r *Rejection
	if lt.IsAccrualBased {
		r = reject(RejectInsufficientBalance,
			"insufficient %s balance: accrued %s, used %s, available %s, requested %s",
			lt.Name, bal.Accrued, bal.Used, available, deduction)
		r.Details.Accrued = decPtr(bal.Accrued)
	} else {
		r = reject(RejectInsufficientBalance,
			"insufficient %s balance: allocated %s, used %s, available %s, requested %s",
			lt.Name, bal.Allocated, bal.Used, available, deduction)
		r.Details.Allocated = decPtr(bal.Allocated)
	}
	r.Details.Used = decPtr(bal.Used)
	r.Details.Available = decPtr(available)
	r.Details.Requested = decPtr(deduction)
	return r
}
