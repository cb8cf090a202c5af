/*
Package factory provides JSON to Go leave-type conversion.

PURPOSE:
  Converts JSON leave-type definitions into leave.LeaveType values so the
  leave-type table can be edited by HR, stored in the database and shipped
  as a file, without code changes.

JSON SCHEMA:
  [
    {
      "code": "casual",
      "name": "Casual Leave",
      "annual_allocation_days": 12,
      "accrual": {"monthly_days": 1},
      "restricted_for_non_confirmed": true,
      "max_applications_per_year": null,
      "paid_absence": false,
      "requires_first_child": false
    }
  ]

  Day amounts accept JSON numbers or strings ("0.5").

USAGE:
  f := factory.NewLeaveTypeFactory()
  catalog, err := f.LoadCatalog("")              // embedded default table
  catalog, err := f.LoadCatalog("leave_types.json")

SEE ALSO:
  - leave/policies.go: Catalog and the built-in table
  - store/sqlite/sqlite.go: leave_types.config_json column
*/
package factory

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/leave"
)

//go:embed default_leave_types.json
var defaultLeaveTypesJSON []byte

// DefaultLeaveTypesJSON returns the embedded default table.
func DefaultLeaveTypesJSON() []byte {
	out := make([]byte, len(defaultLeaveTypesJSON))
	copy(out, defaultLeaveTypesJSON)
	return out
}

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// LeaveTypeJSON is the JSON representation of a leave type.
type LeaveTypeJSON struct {
	Code                      string          `json:"code"`
	Name                      string          `json:"name"`
	AnnualAllocationDays      decimal.Decimal `json:"annual_allocation_days"`
	Accrual                   *AccrualJSON    `json:"accrual,omitempty"`
	RestrictedForNonConfirmed bool            `json:"restricted_for_non_confirmed,omitempty"`
	MaxApplicationsPerYear    *int            `json:"max_applications_per_year,omitempty"`
	PaidAbsence               bool            `json:"paid_absence,omitempty"`
	RequiresFirstChild        bool            `json:"requires_first_child,omitempty"`
}

// AccrualJSON marks a type as accrual-based.
type AccrualJSON struct {
	MonthlyDays decimal.Decimal `json:"monthly_days"`
}

// =============================================================================
// LEAVE TYPE FACTORY
// =============================================================================

// LeaveTypeFactory converts JSON leave types to Go structs.
type LeaveTypeFactory struct{}

// NewLeaveTypeFactory creates a new leave-type factory.
func NewLeaveTypeFactory() *LeaveTypeFactory {
	return &LeaveTypeFactory{}
}

// ParseLeaveTypes parses a JSON array of leave types.
func (f *LeaveTypeFactory) ParseLeaveTypes(data []byte) ([]leave.LeaveType, error) {
	var raw []LeaveTypeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid leave-type JSON: %w", err)
	}
	out := make([]leave.LeaveType, 0, len(raw))
	for i, lj := range raw {
		lt, err := f.FromJSON(lj)
		if err != nil {
			return nil, fmt.Errorf("leave type #%d: %w", i, err)
		}
		out = append(out, lt)
	}
	return out, nil
}

// ParseLeaveType parses a single JSON object.
func (f *LeaveTypeFactory) ParseLeaveType(data []byte) (leave.LeaveType, error) {
	var lj LeaveTypeJSON
	if err := json.Unmarshal(data, &lj); err != nil {
		return leave.LeaveType{}, fmt.Errorf("invalid leave-type JSON: %w", err)
	}
	return f.FromJSON(lj)
}

// FromJSON validates lj and converts it.
func (f *LeaveTypeFactory) FromJSON(lj LeaveTypeJSON) (leave.LeaveType, error) {
	if lj.Code == "" {
		return leave.LeaveType{}, fmt.Errorf("code is required")
	}
	name := lj.Name
	if name == "" {
		name = lj.Code
	}

	lt := leave.LeaveType{
		Code:                        leave.LeaveTypeCode(lj.Code),
		Name:                        name,
		AnnualAllocationDays:        lj.AnnualAllocationDays,
		IsRestrictedForNonConfirmed: lj.RestrictedForNonConfirmed,
		MaxApplicationsPerYear:      lj.MaxApplicationsPerYear,
		IsPaidAbsence:               lj.PaidAbsence,
		RequiresFirstChild:          lj.RequiresFirstChild,
	}
	if lj.Accrual != nil {
		if !lj.Accrual.MonthlyDays.IsPositive() {
			return leave.LeaveType{}, fmt.Errorf("%s: accrual.monthly_days must be positive", lj.Code)
		}
		lt.IsAccrualBased = true
		lt.MonthlyAccrualDays = lj.Accrual.MonthlyDays
	}
	if lt.RequiresFirstChild && !lt.IsPaidAbsence {
		return leave.LeaveType{}, fmt.Errorf("%s: requires_first_child is only valid for paid absences", lj.Code)
	}
	return lt, nil
}

// ToJSON converts a leave type back to its JSON form.
func (f *LeaveTypeFactory) ToJSON(lt leave.LeaveType) LeaveTypeJSON {
	lj := LeaveTypeJSON{
		Code:                      string(lt.Code),
		Name:                      lt.Name,
		AnnualAllocationDays:      lt.AnnualAllocationDays,
		RestrictedForNonConfirmed: lt.IsRestrictedForNonConfirmed,
		MaxApplicationsPerYear:    lt.MaxApplicationsPerYear,
		PaidAbsence:               lt.IsPaidAbsence,
		RequiresFirstChild:        lt.RequiresFirstChild,
	}
	if lt.IsAccrualBased {
		lj.Accrual = &AccrualJSON{MonthlyDays: lt.MonthlyAccrualDays}
	}
	return lj
}

// Marshal encodes one leave type.
func (f *LeaveTypeFactory) Marshal(lt leave.LeaveType) ([]byte, error) {
	return json.Marshal(f.ToJSON(lt))
}

// LoadCatalog builds a catalog from the JSON file at path, or from the
// embedded default table when path is empty.
func (f *LeaveTypeFactory) LoadCatalog(path string) (*leave.Catalog, error) {
	data := defaultLeaveTypesJSON
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read leave types: %w", err)
		}
		data = b
	}
	types, err := f.ParseLeaveTypes(data)
	if err != nil {
		return nil, err
	}
	return leave.NewCatalog(types)
}
