// Package memory provides an in-memory leave.Store for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu sync.RWMutex
	state
}

type state struct {
	employees    map[string]leave.Employee
	holidays     map[holidayKey]leave.PublicHoliday
	applications map[string]leave.LeaveApplication
	balances     map[balanceKey]leave.LeaveBalance
}

type holidayKey struct {
	Date    string
	Country string
}

type balanceKey struct {
	EmployeeID string
	LeaveType  leave.LeaveTypeCode
	Year       int
}

func New() *Store {
	return &Store{state: state{
		employees:    make(map[string]leave.Employee),
		holidays:     make(map[holidayKey]leave.PublicHoliday),
		applications: make(map[string]leave.LeaveApplication),
		balances:     make(map[balanceKey]leave.LeaveBalance),
	}}
}

// =============================================================================
// DIRECTORY / CALENDAR ADMIN
// =============================================================================

// SaveEmployee inserts or replaces an employee.
func (m *Store) SaveEmployee(_ context.Context, emp leave.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[emp.ID] = emp
	return nil
}

// SaveHoliday inserts or replaces the holiday for (date, country).
func (m *Store) SaveHoliday(_ context.Context, h leave.PublicHoliday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[holidayKey{Date: h.Date.String(), Country: h.Country}] = h
	return nil
}

// ListHolidays returns every holiday (active or not) for country in r.
func (m *Store) ListHolidays(_ context.Context, country string, r generic.Range) ([]leave.PublicHoliday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.holidaysIn(country, r, false), nil
}

// =============================================================================
// leave.Repository
// =============================================================================

func (m *Store) Employee(ctx context.Context, id string) (leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Employee(ctx, id)
}

func (m *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.ListEmployees(ctx)
}

func (m *Store) IsHoliday(ctx context.Context, date generic.Date, country string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.IsHoliday(ctx, date, country)
}

func (m *Store) HolidaysBetween(ctx context.Context, r generic.Range, country string) ([]leave.PublicHoliday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.HolidaysBetween(ctx, r, country)
}

func (m *Store) SumApprovedDays(ctx context.Context, employeeID string, code leave.LeaveTypeCode, year int) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.SumApprovedDays(ctx, employeeID, code, year)
}

func (m *Store) CountApproved(ctx context.Context, employeeID string, code leave.LeaveTypeCode, year int) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.CountApproved(ctx, employeeID, code, year)
}

func (m *Store) HasApprovedLeaveOn(ctx context.Context, employeeID string, date generic.Date) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.HasApprovedLeaveOn(ctx, employeeID, date)
}

func (m *Store) CreateApplication(ctx context.Context, app leave.LeaveApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateApplication(ctx, app)
}

func (m *Store) GetApplication(ctx context.Context, id string) (leave.LeaveApplication, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.GetApplication(ctx, id)
}

func (m *Store) UpdateApplication(ctx context.Context, app leave.LeaveApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.UpdateApplication(ctx, app)
}

func (m *Store) ListApplications(ctx context.Context, employeeID string) ([]leave.LeaveApplication, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.ListApplications(ctx, employeeID)
}

func (m *Store) GetBalance(ctx context.Context, employeeID string, code leave.LeaveTypeCode, year int) (leave.LeaveBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.GetBalance(ctx, employeeID, code, year)
}

func (m *Store) SaveBalance(ctx context.Context, b leave.LeaveBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.SaveBalance(ctx, b)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn under the write lock. It is simulated with a snapshot and a
// rollback when fn fails.
func (m *Store) WithTx(_ context.Context, fn func(leave.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&m.state); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (s *state) clone() state {
	c := state{
		employees:    make(map[string]leave.Employee, len(s.employees)),
		holidays:     make(map[holidayKey]leave.PublicHoliday, len(s.holidays)),
		applications: make(map[string]leave.LeaveApplication, len(s.applications)),
		balances:     make(map[balanceKey]leave.LeaveBalance, len(s.balances)),
	}
	for k, v := range s.employees {
		c.employees[k] = v
	}
	for k, v := range s.holidays {
		c.holidays[k] = v
	}
	for k, v := range s.applications {
		c.applications[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	return c
}

// =============================================================================
// UNLOCKED STATE - Shared by the locked store and the transactional view
// =============================================================================

func (s *state) Employee(_ context.Context, id string) (leave.Employee, error) {
	emp, ok := s.employees[id]
	if !ok {
		return leave.Employee{}, generic.ErrNotFound
	}
	return emp, nil
}

func (s *state) ListEmployees(_ context.Context) ([]leave.Employee, error) {
	out := make([]leave.Employee, 0, len(s.employees))
	for _, emp := range s.employees {
		out = append(out, emp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *state) IsHoliday(_ context.Context, date generic.Date, country string) (bool, error) {
	h, ok := s.holidays[holidayKey{Date: date.String(), Country: country}]
	return ok && h.Active, nil
}

func (s *state) HolidaysBetween(_ context.Context, r generic.Range, country string) ([]leave.PublicHoliday, error) {
	return s.holidaysIn(country, r, true), nil
}

func (s *state) holidaysIn(country string, r generic.Range, activeOnly bool) []leave.PublicHoliday {
	var out []leave.PublicHoliday
	for _, h := range s.holidays {
		if h.Country != country || !r.Contains(h.Date) {
			continue
		}
		if activeOnly && !h.Active {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (s *state) approved(employeeID string, code leave.LeaveTypeCode, year int) []leave.LeaveApplication {
	var out []leave.LeaveApplication
	for _, app := range s.applications {
		if app.EmployeeID == employeeID && app.LeaveType == code &&
			app.Status == leave.StatusApproved && app.Year() == year {
			out = append(out, app)
		}
	}
	return out
}

func (s *state) SumApprovedDays(_ context.Context, employeeID string, code leave.LeaveTypeCode, year int) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, app := range s.approved(employeeID, code, year) {
		sum = sum.Add(app.TotalDays)
	}
	return sum, nil
}

func (s *state) CountApproved(_ context.Context, employeeID string, code leave.LeaveTypeCode, year int) (int, error) {
	return len(s.approved(employeeID, code, year)), nil
}

func (s *state) HasApprovedLeaveOn(_ context.Context, employeeID string, date generic.Date) (bool, error) {
	for _, app := range s.applications {
		if app.EmployeeID == employeeID && app.Status == leave.StatusApproved && app.Covers(date) {
			return true, nil
		}
	}
	return false, nil
}

func (s *state) CreateApplication(_ context.Context, app leave.LeaveApplication) error {
	if _, exists := s.applications[app.ID]; exists {
		return fmt.Errorf("application %s already exists", app.ID)
	}
	s.applications[app.ID] = app
	return nil
}

func (s *state) GetApplication(_ context.Context, id string) (leave.LeaveApplication, error) {
	app, ok := s.applications[id]
	if !ok {
		return leave.LeaveApplication{}, generic.ErrNotFound
	}
	return app, nil
}

func (s *state) UpdateApplication(_ context.Context, app leave.LeaveApplication) error {
	if _, ok := s.applications[app.ID]; !ok {
		return generic.ErrNotFound
	}
	s.applications[app.ID] = app
	return nil
}

func (s *state) ListApplications(_ context.Context, employeeID string) ([]leave.LeaveApplication, error) {
	var out []leave.LeaveApplication
	for _, app := range s.applications {
		if app.EmployeeID == employeeID {
			out = append(out, app)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *state) GetBalance(_ context.Context, employeeID string, code leave.LeaveTypeCode, year int) (leave.LeaveBalance, error) {
	b, ok := s.balances[balanceKey{EmployeeID: employeeID, LeaveType: code, Year: year}]
	if !ok {
		return leave.LeaveBalance{}, generic.ErrNotFound
	}
	return b, nil
}

func (s *state) SaveBalance(_ context.Context, b leave.LeaveBalance) error {
	k := balanceKey{EmployeeID: b.EmployeeID, LeaveType: b.LeaveType, Year: b.Year}
	current, exists := s.balances[k]
	switch {
	case !exists && b.Version != 0, exists && current.Version != b.Version:
		return generic.ErrConcurrentModification
	}
	b.Version++
	s.balances[k] = b
	return nil
}
