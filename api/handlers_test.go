/*
handlers_test.go - HTTP tests for the leave API

Tests for:
- Validate / submit status codes (200, 201, 422)
- Approve / reject / cancel workflow and its 409s
- Request validation (400) and lookups (404)
- Dependency failures (503)
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var today = time.Date(2024, time.November, 15, 10, 0, 0, 0, time.UTC)

type testServer struct {
	store  *memory.Store
	router *chi.Mux
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, memory.New())
}

func newTestServerWith(t *testing.T, store leave.Store) *testServer {
	t.Helper()
	svc := leave.NewService(store, leave.DefaultCatalog(), leave.Config{
		DefaultCountry: "IN",
		Now:            func() time.Time { return today },
	})

	var registry Registry
	mem, _ := store.(*memory.Store)
	if mem != nil {
		registry = mem
	} else if d, ok := store.(*downStore); ok {
		registry = d.Store
		mem = d.Store
	}

	h := NewHandler(svc, registry, "IN")
	h.now = func() time.Time { return today }
	return &testServer{store: mem, router: NewRouter(h, RouterOptions{})}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) hire(t *testing.T, id, stage, joined string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/employees", map[string]any{
		"id":               id,
		"name":             "Employee " + id,
		"employment_stage": stage,
		"joining_date":     joined,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func leaveBody(empID, code, start, end string) map[string]any {
	return map[string]any{
		"employee_id": empID,
		"leave_type":  code,
		"start_date":  start,
		"end_date":    end,
	}
}

// downStore fails every employee lookup.
type downStore struct {
	*memory.Store
}

func (d *downStore) Employee(context.Context, string) (leave.Employee, error) {
	return leave.Employee{}, errors.New("directory timeout")
}

// =============================================================================
// VALIDATE / SUBMIT
// =============================================================================

func TestValidateLeave(t *testing.T) {
	srv := newTestServer(t)
	srv.hire(t, "e1", "confirmed", "2020-01-01")

	t.Run("valid", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/api/leave/validate", leaveBody("e1", "casual", "2024-11-18", "2024-11-19"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		res := decodeBody[leave.ValidationResult](t, rec)
		assert.True(t, res.Valid)
		assert.Equal(t, "2", res.DeductionDays.String())
		assert.Equal(t, 2, res.ActualWorkingDays)
	})

	t.Run("weekend is a 422 with the verdict", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/api/leave/validate", leaveBody("e1", "casual", "2024-11-16", "2024-11-16"))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		res := decodeBody[leave.ValidationResult](t, rec)
		assert.False(t, res.Valid)
		assert.Equal(t, leave.RejectWeekendInRange, res.Code)
		require.NotNil(t, res.Details.WeekendDate)
		assert.Equal(t, "2024-11-16", res.Details.WeekendDate.String())
	})

	t.Run("unknown employee", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/api/leave/validate", leaveBody("ghost", "casual", "2024-11-18", "2024-11-18"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("half day needs scheduled hours", func(t *testing.T) {
		body := leaveBody("e1", "casual", "2024-11-18", "2024-11-18")
		body["is_half_day"] = true
		rec := srv.do(t, http.MethodPost, "/api/leave/validate", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		resp := decodeBody[ErrorResponse](t, rec)
		assert.Equal(t, "validation failed", resp.Error)
		assert.Equal(t, map[string]any{"ScheduledHours": "required_if"}, resp.Details)
	})

	t.Run("half day", func(t *testing.T) {
		body := leaveBody("e1", "casual", "2024-11-18", "2024-11-18")
		body["is_half_day"] = true
		body["scheduled_hours"] = "8"
		rec := srv.do(t, http.MethodPost, "/api/leave/validate", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		res := decodeBody[leave.ValidationResult](t, rec)
		assert.Equal(t, "0.5", res.DeductionDays.String())
	})

	t.Run("malformed", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/api/leave/validate", `{"employee_id":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = srv.do(t, http.MethodPost, "/api/leave/validate", leaveBody("e1", "casual", "18/11/2024", "2024-11-18"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSubmitAndDecide(t *testing.T) {
	srv := newTestServer(t)
	srv.hire(t, "e1", "confirmed", "2020-01-01")

	// GIVEN: A submitted emergency leave
	rec := srv.do(t, http.MethodPost, "/api/leave/applications", leaveBody("e1", "emergency", "2024-11-18", "2024-11-19"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	submitted := decodeBody[SubmitResponse](t, rec)
	require.NotNil(t, submitted.Application)
	assert.Equal(t, "pending", submitted.Application.Status)
	id := submitted.Application.ID

	// WHEN: Approving it
	rec = srv.do(t, http.MethodPost, "/api/leave/applications/"+id+"/approve", map[string]string{"actor_id": "mgr-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	app := decodeBody[ApplicationDTO](t, rec)
	assert.Equal(t, "approved", app.Status)
	assert.Equal(t, "mgr-1", app.ApprovedBy)

	// THEN: The balance reflects it
	rec = srv.do(t, http.MethodGet, "/api/employees/e1/balances/emergency?year=2024", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bal := decodeBody[BalanceDTO](t, rec)
	assert.Equal(t, "2", bal.Used.String())
	assert.Equal(t, "1", bal.Available.String())

	// AND: Approving twice or rejecting an approved leave conflicts
	rec = srv.do(t, http.MethodPost, "/api/leave/applications/"+id+"/approve", map[string]string{"actor_id": "mgr-1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = srv.do(t, http.MethodPost, "/api/leave/applications/"+id+"/reject", map[string]string{"actor_id": "mgr-1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// AND: Cancelling credits the days back
	rec = srv.do(t, http.MethodPost, "/api/leave/applications/"+id+"/cancel", map[string]string{"actor_id": "e1"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = srv.do(t, http.MethodGet, "/api/employees/e1/balances/emergency?year=2024", nil)
	bal = decodeBody[BalanceDTO](t, rec)
	assert.Equal(t, "3", bal.Available.String())

	rec = srv.do(t, http.MethodGet, "/api/employees/e1/applications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	apps := decodeBody[[]ApplicationDTO](t, rec)
	require.Len(t, apps, 1)
	assert.Equal(t, "cancelled", apps[0].Status)
}

func TestSubmitRejected(t *testing.T) {
	srv := newTestServer(t)
	srv.hire(t, "e1", "probation", "2024-06-01")

	rec := srv.do(t, http.MethodPost, "/api/leave/applications", leaveBody("e1", "casual", "2024-11-18", "2024-11-18"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodeBody[SubmitResponse](t, rec)
	assert.Nil(t, resp.Application)
	assert.Equal(t, leave.RejectIneligibleLeaveType, resp.Result.Code)
}

func TestApproveInsufficientBalance(t *testing.T) {
	srv := newTestServer(t)
	srv.hire(t, "e1", "confirmed", "2020-01-01")

	var ids []string
	for _, span := range [][2]string{{"2024-11-18", "2024-11-19"}, {"2024-11-20", "2024-11-21"}} {
		rec := srv.do(t, http.MethodPost, "/api/leave/applications", leaveBody("e1", "emergency", span[0], span[1]))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		ids = append(ids, decodeBody[SubmitResponse](t, rec).Application.ID)
	}

	rec := srv.do(t, http.MethodPost, "/api/leave/applications/"+ids[0]+"/approve", map[string]string{"actor_id": "mgr-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/leave/applications/"+ids[1]+"/approve", map[string]string{"actor_id": "mgr-1"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	res := decodeBody[leave.ValidationResult](t, rec)
	assert.Equal(t, leave.RejectInsufficientBalance, res.Code)
}

func TestRejectLeave(t *testing.T) {
	srv := newTestServer(t)
	srv.hire(t, "e1", "confirmed", "2020-01-01")
	rec := srv.do(t, http.MethodPost, "/api/leave/applications", leaveBody("e1", "casual", "2024-11-18", "2024-11-18"))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeBody[SubmitResponse](t, rec).Application.ID

	rec = srv.do(t, http.MethodPost, "/api/leave/applications/"+id+"/reject", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "actor_id is required")

	rec = srv.do(t, http.MethodPost, "/api/leave/applications/"+id+"/reject",
		map[string]string{"actor_id": "mgr-1", "reason": "release week"})
	require.Equal(t, http.StatusOK, rec.Code)
	app := decodeBody[ApplicationDTO](t, rec)
	assert.Equal(t, "rejected", app.Status)
	assert.Equal(t, "release week", app.RejectionReason)

	rec = srv.do(t, http.MethodPost, "/api/leave/applications/missing/approve", map[string]string{"actor_id": "mgr-1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// EMPLOYEES / HOLIDAYS / LEAVE TYPES
// =============================================================================

func TestEmployees(t *testing.T) {
	srv := newTestServer(t)
	srv.hire(t, "e1", "intern", "2024-07-01")

	rec := srv.do(t, http.MethodGet, "/api/employees/e1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	emp := decodeBody[EmployeeDTO](t, rec)
	assert.Equal(t, "intern", emp.Stage)
	assert.Equal(t, "2024-07-01", emp.JoiningDate.String())

	rec = srv.do(t, http.MethodGet, "/api/employees/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/employees", map[string]any{
		"id": "e2", "employment_stage": "contractor", "joining_date": "2024-07-01",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, map[string]any{"Stage": "oneof"}, resp.Details)

	rec = srv.do(t, http.MethodGet, "/api/employees/e1/balances/sabbatical?year=2024", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = srv.do(t, http.MethodGet, "/api/employees/e1/balances/casual?year=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHolidays(t *testing.T) {
	srv := newTestServer(t)
	srv.hire(t, "e1", "confirmed", "2020-01-01")

	rec := srv.do(t, http.MethodPost, "/api/holidays", map[string]any{"date": "2024-11-18", "name": "Festival"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	hol := decodeBody[HolidayDTO](t, rec)
	assert.Equal(t, "IN", hol.Country)
	assert.True(t, hol.Active)

	inactive := false
	rec = srv.do(t, http.MethodPost, "/api/holidays", map[string]any{"date": "2024-11-20", "name": "Optional", "active": &inactive})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/holidays?from=2024-11-01&to=2024-11-30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]HolidayDTO](t, rec), 2)

	rec = srv.do(t, http.MethodGet, "/api/holidays?from=2024-12-01&to=2024-11-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The holiday is now reported by validation
	rec = srv.do(t, http.MethodPost, "/api/leave/validate", leaveBody("e1", "casual", "2024-11-18", "2024-11-20"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	res := decodeBody[leave.ValidationResult](t, rec)
	assert.Equal(t, leave.RejectHolidayInRange, res.Code)
	require.Len(t, res.Details.Holidays, 1)
	assert.Equal(t, "Festival", res.Details.Holidays[0].Name)
}

func TestListLeaveTypes(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/leave-types", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	types := decodeBody[[]factory.LeaveTypeJSON](t, rec)
	require.Len(t, types, len(leave.DefaultLeaveTypes()))
	for _, lt := range types {
		if lt.Code == "casual" {
			require.NotNil(t, lt.Accrual)
			assert.Equal(t, "1", lt.Accrual.MonthlyDays.String())
		}
	}
}

func TestValidatePaidAbsence(t *testing.T) {
	srv := newTestServer(t)
	srv.hire(t, "e1", "confirmed", "2020-01-01")

	rec := srv.do(t, http.MethodPost, "/api/paid-absences/validate", map[string]any{
		"employee_id": "e1", "absence_type": "maternity", "is_first_child": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "56", decodeBody[leave.ValidationResult](t, rec).DeductionDays.String())

	rec = srv.do(t, http.MethodPost, "/api/paid-absences/validate", map[string]any{
		"employee_id": "e1", "absence_type": "paternity", "is_first_child": false,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, leave.RejectNotFirstChild, decodeBody[leave.ValidationResult](t, rec).Code)
}

// =============================================================================
// DEPENDENCY FAILURES / HEALTH
// =============================================================================

func TestDependencyUnavailable(t *testing.T) {
	srv := newTestServerWith(t, &downStore{Store: memory.New()})

	rec := srv.do(t, http.MethodPost, "/api/leave/validate", leaveBody("e1", "casual", "2024-11-18", "2024-11-18"))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "DependencyUnavailable:employee directory", resp.Code)
}

func TestFailMapping(t *testing.T) {
	h := NewHandler(nil, nil, "IN")
	tests := []struct {
		err  error
		want int
	}{
		{&leave.RejectionError{Result: leave.Rejected(&leave.Rejection{Code: leave.RejectInsufficientBalance})}, http.StatusUnprocessableEntity},
		{generic.Unavailable("holiday calendar", "is holiday", errors.New("timeout")), http.StatusServiceUnavailable},
		{generic.ErrNotFound, http.StatusNotFound},
		{&generic.TransitionError{ID: "a1", From: "rejected", To: "approved"}, http.StatusConflict},
		{generic.ErrConcurrentModification, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.fail(rec, tt.err)
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
