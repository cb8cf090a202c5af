package leave_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const country = "IN"

// November 2024: Fri 1, Sat 2, Sun 3, Mon 4 ... Fri 15.
var today = time.Date(2024, time.November, 15, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return today }

func date(s string) generic.Date { return generic.MustParseDate(s) }

func days(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func hours(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newRepo(t *testing.T, emps ...leave.Employee) *memory.Store {
	t.Helper()
	repo := memory.New()
	for _, e := range emps {
		require.NoError(t, repo.SaveEmployee(context.Background(), e))
	}
	return repo
}

func newProcessor(repo leave.Repository) *leave.Processor {
	return leave.NewProcessor(leave.DefaultCatalog(), repo, leave.Config{
		DefaultCountry: country,
		Now:            fixedNow,
	})
}

func confirmed(id, joined string) leave.Employee {
	return leave.Employee{
		ID:          id,
		Name:        "Employee " + id,
		Stage:       leave.StageConfirmed,
		JoiningDate: date(joined),
	}
}

func withStage(e leave.Employee, stage leave.EmploymentStage) leave.Employee {
	e.Stage = stage
	return e
}

func holiday(t *testing.T, repo *memory.Store, on, name string) {
	t.Helper()
	require.NoError(t, repo.SaveHoliday(context.Background(), leave.PublicHoliday{
		ID:      on + "-" + country,
		Date:    date(on),
		Country: country,
		Name:    name,
		Active:  true,
	}))
}

var appSeq int

// approved stores an Approved application directly, bypassing the workflow.
func approved(t *testing.T, repo *memory.Store, empID string, code leave.LeaveTypeCode, start, end, total string) leave.LeaveApplication {
	t.Helper()
	return stored(t, repo, empID, code, start, end, total, leave.StatusApproved)
}

func stored(t *testing.T, repo *memory.Store, empID string, code leave.LeaveTypeCode, start, end, total string, status leave.ApplicationStatus) leave.LeaveApplication {
	t.Helper()
	appSeq++
	app := leave.LeaveApplication{
		ID:         fmt.Sprintf("app-%03d", appSeq),
		EmployeeID: empID,
		LeaveType:  code,
		StartDate:  date(start),
		EndDate:    date(end),
		TotalDays:  days(total),
		Status:     status,
		CreatedAt:  today,
		UpdatedAt:  today,
	}
	require.NoError(t, repo.CreateApplication(context.Background(), app))
	return app
}

func fullDay(empID string, code leave.LeaveTypeCode, start, end string) leave.LeaveRequest {
	return leave.LeaveRequest{
		EmployeeID: empID,
		LeaveType:  code,
		StartDate:  date(start),
		EndDate:    date(end),
	}
}

func halfDay(empID string, code leave.LeaveTypeCode, on, scheduled string) leave.LeaveRequest {
	return leave.LeaveRequest{
		EmployeeID:     empID,
		LeaveType:      code,
		StartDate:      date(on),
		EndDate:        date(on),
		IsHalfDay:      true,
		ScheduledHours: hours(scheduled),
	}
}

// =============================================================================
// FAILING COLLABORATORS
// =============================================================================

var errBackend = errors.New("backend down")

// flakyRepo wraps a repository and fails the selected collaborator calls.
type flakyRepo struct {
	leave.Repository
	failEmployee bool
	failHolidays bool
	failHistory  bool
}

func (f *flakyRepo) Employee(ctx context.Context, id string) (leave.Employee, error) {
	if f.failEmployee {
		return leave.Employee{}, errBackend
	}
	return f.Repository.Employee(ctx, id)
}

func (f *flakyRepo) IsHoliday(ctx context.Context, d generic.Date, c string) (bool, error) {
	if f.failHolidays {
		return false, errBackend
	}
	return f.Repository.IsHoliday(ctx, d, c)
}

func (f *flakyRepo) HolidaysBetween(ctx context.Context, r generic.Range, c string) ([]leave.PublicHoliday, error) {
	if f.failHolidays {
		return nil, errBackend
	}
	return f.Repository.HolidaysBetween(ctx, r, c)
}

func (f *flakyRepo) SumApprovedDays(ctx context.Context, id string, code leave.LeaveTypeCode, year int) (decimal.Decimal, error) {
	if f.failHistory {
		return decimal.Zero, errBackend
	}
	return f.Repository.SumApprovedDays(ctx, id, code, year)
}

func (f *flakyRepo) CountApproved(ctx context.Context, id string, code leave.LeaveTypeCode, year int) (int, error) {
	if f.failHistory {
		return 0, errBackend
	}
	return f.Repository.CountApproved(ctx, id, code, year)
}

func (f *flakyRepo) HasApprovedLeaveOn(ctx context.Context, id string, d generic.Date) (bool, error) {
	if f.failHistory {
		return false, errBackend
	}
	return f.Repository.HasApprovedLeaveOn(ctx, id, d)
}

// flakyStore gives flakyRepo a WithTx so it can back a Service.
type flakyStore struct {
	*flakyRepo
	inner leave.Store
}

func (f *flakyStore) WithTx(ctx context.Context, fn func(leave.Repository) error) error {
	return f.inner.WithTx(ctx, func(repo leave.Repository) error {
		tx := *f.flakyRepo
		tx.Repository = repo
		return fn(&tx)
	})
}
