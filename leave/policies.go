/*
policies.go - Leave-type table

PURPOSE:
  Leave-type metadata (allocations, accrual, restrictions, caps) is data,
  not code. The Catalog is an immutable table built once at startup, either
  from DefaultLeaveTypes or from a JSON file parsed by package factory, so
  operators can add or retire leave types without a release.

DEFAULT TABLE:
  code                   alloc  accrual  restricted  max/yr  paid-absence
  casual                  12    1/month     yes        -         -
  emergency                3      -         yes        -         -
  birthday                 1      -         yes        1         -
  marriage_anniversary     1      -         yes        1         -
  carry_forward_casual     0      -         yes        -         -
  public_holiday           0      -          -         -         -
  weekend                  0      -          -         -         -
  marriage_absence         2      -          -         -        yes
  paternity                5      -          -         -     yes (first child)
  maternity               56      -          -         -     yes (first child)

SEE ALSO:
  - factory/leavetype.go: JSON <-> LeaveType
  - store/sqlite/sqlite.go: leave_types table
*/
package leave

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOG
// =============================================================================

// Catalog is a read-only leave-type table keyed by code.
type Catalog struct {
	types map[LeaveTypeCode]LeaveType
}

// NewCatalog validates and indexes types.
func NewCatalog(types []LeaveType) (*Catalog, error) {
	c := &Catalog{types: make(map[LeaveTypeCode]LeaveType, len(types))}
	for _, lt := range types {
		if lt.Code == "" {
			return nil, fmt.Errorf("leave type with empty code")
		}
		if _, dup := c.types[lt.Code]; dup {
			return nil, fmt.Errorf("duplicate leave type %q", lt.Code)
		}
		if lt.AnnualAllocationDays.IsNegative() {
			return nil, fmt.Errorf("leave type %q: negative allocation", lt.Code)
		}
		if lt.IsAccrualBased && !lt.MonthlyAccrualDays.IsPositive() {
			return nil, fmt.Errorf("leave type %q: accrual-based without a monthly accrual", lt.Code)
		}
		if lt.MaxApplicationsPerYear != nil && *lt.MaxApplicationsPerYear < 1 {
			return nil, fmt.Errorf("leave type %q: max applications per year must be >= 1", lt.Code)
		}
		c.types[lt.Code] = lt
	}
	return c, nil
}

// MustCatalog panics on an invalid table. Use for the built-in defaults.
func MustCatalog(types []LeaveType) *Catalog {
	c, err := NewCatalog(types)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the leave type for code.
func (c *Catalog) Lookup(code LeaveTypeCode) (LeaveType, bool) {
	lt, ok := c.types[code]
	return lt, ok
}

// All returns every leave type ordered by code.
func (c *Catalog) All() []LeaveType {
	out := make([]LeaveType, 0, len(c.types))
	for _, lt := range c.types {
		out = append(out, lt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// =============================================================================
// DEFAULT TABLE
// =============================================================================

// DefaultLeaveTypes returns the built-in leave-type table.
func DefaultLeaveTypes() []LeaveType {
	one := 1
	return []LeaveType{
		{
			Code:                        LeaveCasual,
			Name:                        "Casual Leave",
			AnnualAllocationDays:        decimal.NewFromInt(12),
			IsAccrualBased:              true,
			MonthlyAccrualDays:          decimal.NewFromInt(1),
			IsRestrictedForNonConfirmed: true,
		},
		{
			Code:                        LeaveEmergency,
			Name:                        "Emergency Leave",
			AnnualAllocationDays:        decimal.NewFromInt(3),
			IsRestrictedForNonConfirmed: true,
		},
		{
			Code:                        LeaveBirthday,
			Name:                        "Birthday Leave",
			AnnualAllocationDays:        decimal.NewFromInt(1),
			IsRestrictedForNonConfirmed: true,
			MaxApplicationsPerYear:      &one,
		},
		{
			Code:                        LeaveMarriageAnniversary,
			Name:                        "Marriage Anniversary Leave",
			AnnualAllocationDays:        decimal.NewFromInt(1),
			IsRestrictedForNonConfirmed: true,
			MaxApplicationsPerYear:      &one,
		},
		{
			Code:                        LeaveCarryForwardCasual,
			Name:                        "Carry Forward Casual Leave",
			AnnualAllocationDays:        decimal.Zero,
			IsRestrictedForNonConfirmed: true,
		},
		{
			Code:                 LeavePublicHoliday,
			Name:                 "Public Holiday",
			AnnualAllocationDays: decimal.Zero,
		},
		{
			Code:                 LeaveWeekend,
			Name:                 "Weekend",
			AnnualAllocationDays: decimal.Zero,
		},
		{
			Code:                 LeaveMarriageAbsence,
			Name:                 "Marriage Leave",
			AnnualAllocationDays: decimal.NewFromInt(2),
			IsPaidAbsence:        true,
		},
		{
			Code:                 LeavePaternity,
			Name:                 "Paternity Leave",
			AnnualAllocationDays: decimal.NewFromInt(5),
			IsPaidAbsence:        true,
			RequiresFirstChild:   true,
		},
		{
			Code:                 LeaveMaternity,
			Name:                 "Maternity Leave",
			AnnualAllocationDays: decimal.NewFromInt(56),
			IsPaidAbsence:        true,
			RequiresFirstChild:   true,
		},
	}
}

// DefaultCatalog is the catalog built from DefaultLeaveTypes.
func DefaultCatalog() *Catalog { return MustCatalog(DefaultLeaveTypes()) }
