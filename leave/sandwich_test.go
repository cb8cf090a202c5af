package leave_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

func newSandwich(repo leave.Repository) leave.SandwichRuleEngine {
	return leave.SandwichRuleEngine{
		Calendar: leave.Calendar{Holidays: repo},
		History:  repo,
	}
}

func TestSandwich_ApprovedFridayThenMonday(t *testing.T) {
	// GIVEN: Approved leave on Fri 2024-11-01
	repo := newRepo(t)
	approved(t, repo, "e1", leave.LeaveCasual, "2024-11-01", "2024-11-01", "1")

	// WHEN: Requesting Mon 2024-11-04
	out, err := newSandwich(repo).Evaluate(context.Background(), "e1", date("2024-11-04"), date("2024-11-04"), country)

	// THEN: The weekend is bridged: 1 + 2 = 3
	require.NoError(t, err)
	assert.True(t, out.IsSandwich)
	assert.Equal(t, 1, out.ActualWorkingDays)
	assert.Equal(t, 2, out.BridgedBefore)
	assert.Equal(t, 0, out.BridgedAfter)
	assert.True(t, out.TotalDeduction.Equal(days("3")))
}

func TestSandwich_ApprovedMondayThenFriday(t *testing.T) {
	// GIVEN: Approved leave on Mon 2024-11-11
	repo := newRepo(t)
	approved(t, repo, "e1", leave.LeaveEmergency, "2024-11-11", "2024-11-11", "1")

	// WHEN: Requesting Fri 2024-11-08 (of another leave type)
	out, err := newSandwich(repo).Evaluate(context.Background(), "e1", date("2024-11-08"), date("2024-11-08"), country)

	// THEN: The forward walk bridges Sat + Sun
	require.NoError(t, err)
	assert.True(t, out.IsSandwich)
	assert.Equal(t, 2, out.BridgedAfter)
	assert.True(t, out.TotalDeduction.Equal(days("3")))
}

func TestSandwich_NoNeighbouringLeave(t *testing.T) {
	repo := newRepo(t)
	out, err := newSandwich(repo).Evaluate(context.Background(), "e1", date("2024-11-04"), date("2024-11-08"), country)

	require.NoError(t, err)
	assert.False(t, out.IsSandwich)
	assert.Equal(t, 5, out.ActualWorkingDays)
	assert.True(t, out.TotalDeduction.Equal(days("5")))
}

func TestSandwich_OnlyApprovedLeaveCounts(t *testing.T) {
	// GIVEN: Pending, rejected and cancelled leave on Fri 2024-11-01
	repo := newRepo(t)
	for _, st := range []leave.ApplicationStatus{leave.StatusPending, leave.StatusRejected, leave.StatusCancelled} {
		stored(t, repo, "e1", leave.LeaveCasual, "2024-11-01", "2024-11-01", "1", st)
	}

	out, err := newSandwich(repo).Evaluate(context.Background(), "e1", date("2024-11-04"), date("2024-11-04"), country)
	require.NoError(t, err)
	assert.False(t, out.IsSandwich)
	assert.True(t, out.TotalDeduction.Equal(days("1")))
}

func TestSandwich_OtherEmployeesLeaveIgnored(t *testing.T) {
	repo := newRepo(t)
	approved(t, repo, "e2", leave.LeaveCasual, "2024-11-01", "2024-11-01", "1")

	out, err := newSandwich(repo).Evaluate(context.Background(), "e1", date("2024-11-04"), date("2024-11-04"), country)
	require.NoError(t, err)
	assert.False(t, out.IsSandwich)
}

func TestSandwich_HolidayExtendsTheRun(t *testing.T) {
	// GIVEN: Approved Fri 2024-11-01 and a holiday on Mon 2024-11-04
	repo := newRepo(t)
	holiday(t, repo, "2024-11-04", "Long Weekend")
	approved(t, repo, "e1", leave.LeaveCasual, "2024-11-01", "2024-11-01", "1")

	// WHEN: Requesting Tue 2024-11-05
	out, err := newSandwich(repo).Evaluate(context.Background(), "e1", date("2024-11-05"), date("2024-11-05"), country)

	// THEN: Mon + Sun + Sat are bridged
	require.NoError(t, err)
	assert.Equal(t, 3, out.BridgedBefore)
	assert.True(t, out.TotalDeduction.Equal(days("4")))
}

func TestSandwich_BothSides(t *testing.T) {
	// GIVEN: Approved Fri 2024-11-01 and Mon 2024-11-11
	repo := newRepo(t)
	approved(t, repo, "e1", leave.LeaveCasual, "2024-11-01", "2024-11-01", "1")
	approved(t, repo, "e1", leave.LeaveCasual, "2024-11-11", "2024-11-11", "1")

	// WHEN: Requesting the whole week in between
	out, err := newSandwich(repo).Evaluate(context.Background(), "e1", date("2024-11-04"), date("2024-11-08"), country)

	// THEN: 5 working days + 2 weekend days on each side
	require.NoError(t, err)
	assert.Equal(t, 5, out.ActualWorkingDays)
	assert.True(t, out.TotalDeduction.Equal(days("9")))
}

func TestSandwich_RunLongerThanLimitBridgesNothing(t *testing.T) {
	// GIVEN: A three-day holiday block before the request and a limit of 2
	repo := newRepo(t)
	holiday(t, repo, "2024-11-04", "Block")
	approved(t, repo, "e1", leave.LeaveCasual, "2024-11-01", "2024-11-01", "1")
	engine := newSandwich(repo)
	engine.MaxBridgeDays = 2

	out, err := engine.Evaluate(context.Background(), "e1", date("2024-11-05"), date("2024-11-05"), country)
	require.NoError(t, err)
	assert.False(t, out.IsSandwich)
	assert.True(t, out.TotalDeduction.Equal(days("1")))
}

func TestSandwich_HistoryUnavailable(t *testing.T) {
	repo := &flakyRepo{Repository: memory.New(), failHistory: true}

	_, err := newSandwich(repo).Evaluate(context.Background(), "e1", date("2024-11-04"), date("2024-11-04"), country)
	assert.ErrorIs(t, err, generic.ErrDependencyUnavailable)
}
