/*
handlers.go - HTTP API handlers for the leave engine

ENDPOINTS:
  Leave types:
    GET    /api/leave-types                       Leave-type table

  Employees:
    POST   /api/employees                         Upsert employee
    GET    /api/employees/{id}                    Employee details
    GET    /api/employees/{id}/balances/{code}    Balance breakdown (?year=)
    GET    /api/employees/{id}/applications       Applications

  Holidays:
    GET    /api/holidays                          List (?country=&from=&to=)
    POST   /api/holidays                          Create / update

  Leave:
    POST   /api/leave/validate                    Dry run
    POST   /api/leave/applications                Submit (Pending on success)
    POST   /api/leave/applications/{id}/approve
    POST   /api/leave/applications/{id}/reject
    POST   /api/leave/applications/{id}/cancel

  Paid absence:
    POST   /api/paid-absences/validate

ERROR HANDLING:
  - 400: malformed JSON, validator failures, bad dates
  - 404: unknown employee / application / leave type
  - 409: illegal status transition, lost optimistic-lock race
  - 422: business rejection; body is the ValidationResult
  - 503: a collaborator (directory, calendar, history) is unavailable

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Registry is the admin side of the directory and the holiday calendar.
type Registry interface {
	SaveEmployee(ctx context.Context, emp leave.Employee) error
	SaveHoliday(ctx context.Context, h leave.PublicHoliday) error
	ListHolidays(ctx context.Context, country string, r generic.Range) ([]leave.PublicHoliday, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service        *leave.Service
	Registry       Registry
	DefaultCountry string

	validate *validator.Validate
	types    *factory.LeaveTypeFactory
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates a handler. The optional logger defaults to a no-op.
func NewHandler(svc *leave.Service, registry Registry, defaultCountry string, logger ...*zap.Logger) *Handler {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Handler{
		Service:        svc,
		Registry:       registry,
		DefaultCountry: defaultCountry,
		validate:       validator.New(),
		types:          factory.NewLeaveTypeFactory(),
		logger:         l.Named("leave.handler"),
		now:            time.Now,
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	all := h.Service.Catalog().All()
	out := make([]factory.LeaveTypeJSON, 0, len(all))
	for _, lt := range all {
		out = append(out, h.types.ToJSON(lt))
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (h *Handler) UpsertEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}
	emp, err := req.toEmployee()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}
	if err := h.Registry.SaveEmployee(r.Context(), emp); err != nil {
		h.logger.Error("save employee failed", zap.String("employee_id", emp.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save employee", err)
		return
	}
	h.logger.Info("employee saved", zap.String("employee_id", emp.ID), zap.String("stage", string(emp.Stage)))
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Service.Employee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	year := h.now().Year()
	if s := r.URL.Query().Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1900 || y > 9999 {
			writeError(w, http.StatusBadRequest, "invalid year", err)
			return
		}
		year = y
	}

	b, err := h.Service.Balance(r.Context(), chi.URLParam(r, "id"),
		leave.LeaveTypeCode(chi.URLParam(r, "code")), year)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(b))
}

func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Service.Employee(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	apps, err := h.Service.Applications(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]ApplicationDTO, 0, len(apps))
	for _, a := range apps {
		out = append(out, toApplicationDTO(a))
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	country := q.Get("country")
	if country == "" {
		country = h.DefaultCountry
	}

	rng := generic.YearRange(h.now().Year())
	for param, dst := range map[string]*generic.Date{"from": &rng.Start, "to": &rng.End} {
		if s := q.Get(param); s != "" {
			d, err := generic.ParseDate(s)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid "+param, err)
				return
			}
			*dst = d
		}
	}
	if !rng.Valid() {
		writeError(w, http.StatusBadRequest, "from must not be after to", nil)
		return
	}

	hs, err := h.Registry.ListHolidays(r.Context(), country, rng)
	if err != nil {
		h.logger.Error("list holidays failed", zap.String("country", country), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "holiday calendar unavailable", err)
		return
	}
	out := make([]HolidayDTO, 0, len(hs))
	for _, hol := range hs {
		out = append(out, toHolidayDTO(hol))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}
	hol := leave.PublicHoliday{
		ID:      uuid.NewString(),
		Date:    date,
		Country: req.Country,
		Name:    req.Name,
		Active:  req.Active == nil || *req.Active,
	}
	if hol.Country == "" {
		hol.Country = h.DefaultCountry
	}
	if err := h.Registry.SaveHoliday(r.Context(), hol); err != nil {
		h.logger.Error("save holiday failed", zap.Stringer("date", hol.Date), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save holiday", err)
		return
	}
	h.logger.Info("holiday saved", zap.Stringer("date", hol.Date), zap.String("country", hol.Country))
	writeJSON(w, http.StatusCreated, toHolidayDTO(hol))
}

// =============================================================================
// LEAVE
// =============================================================================

func (h *Handler) ValidateLeave(w http.ResponseWriter, r *http.Request) {
	req, ok := h.leaveRequest(w, r)
	if !ok {
		return
	}
	res, err := h.Service.Validate(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeResult(w, res)
}

func (h *Handler) SubmitLeave(w http.ResponseWriter, r *http.Request) {
	req, ok := h.leaveRequest(w, r)
	if !ok {
		return
	}
	app, res, err := h.Service.Submit(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	if !res.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, SubmitResponse{Result: res})
		return
	}
	dto := toApplicationDTO(app)
	writeJSON(w, http.StatusCreated, SubmitResponse{Application: &dto, Result: res})
}

func (h *Handler) ApproveLeave(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, id string, d DecisionRequest) (leave.LeaveApplication, error) {
		return h.Service.Approve(ctx, id, d.ActorID)
	})
}

func (h *Handler) RejectLeave(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, id string, d DecisionRequest) (leave.LeaveApplication, error) {
		return h.Service.Reject(ctx, id, d.ActorID, d.Reason)
	})
}

func (h *Handler) CancelLeave(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, id string, d DecisionRequest) (leave.LeaveApplication, error) {
		return h.Service.Cancel(ctx, id, d.ActorID)
	})
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, id string, d DecisionRequest) (leave.LeaveApplication, error)) {
	var req DecisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	app, err := fn(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplicationDTO(app))
}

func (h *Handler) leaveRequest(w http.ResponseWriter, r *http.Request) (leave.LeaveRequest, bool) {
	var body LeaveRequestBody
	if !h.decode(w, r, &body) {
		return leave.LeaveRequest{}, false
	}
	req, err := body.toLeaveRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return leave.LeaveRequest{}, false
	}
	return req, true
}

// =============================================================================
// PAID ABSENCE
// =============================================================================

func (h *Handler) ValidatePaidAbsence(w http.ResponseWriter, r *http.Request) {
	var body PaidAbsenceRequestBody
	if !h.decode(w, r, &body) {
		return
	}
	req, err := body.toPaidAbsenceRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}
	res, err := h.Service.ValidatePaidAbsence(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeResult(w, res)
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads and validates a JSON body. It writes the 400 itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: fields})
			return false
		}
		writeError(w, http.StatusBadRequest, "validation failed", err)
		return false
	}
	return true
}

// fail maps service errors to HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var rej *leave.RejectionError
	switch {
	case errors.As(err, &rej):
		writeJSON(w, http.StatusUnprocessableEntity, rej.Result)
	case errors.Is(err, generic.ErrDependencyUnavailable):
		writeError(w, http.StatusServiceUnavailable, "dependency unavailable", err)
	case errors.Is(err, generic.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, generic.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid status transition", err)
	case errors.Is(err, generic.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "concurrent modification, retry", err)
	default:
		h.logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

// writeResult sends 200 for a valid verdict and 422 for a rejection.
func writeResult(w http.ResponseWriter, res leave.ValidationResult) {
	status := http.StatusOK
	if !res.Valid {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	var dep *generic.DependencyError
	if errors.As(err, &dep) {
		resp.Code = fmt.Sprintf("DependencyUnavailable:%s", dep.Dependency)
	}
	writeJSON(w, status, resp)
}
