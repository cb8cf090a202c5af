/*
service.go - Leave application lifecycle with transactional guarantees

OPERATIONS:
  Validate             dry run, no side effects
  Submit               re-run the pipeline inside WithTx, insert Pending
  Approve              Pending -> Approved, balance + cap re-checked in the tx
  Reject               Pending -> Rejected
  Cancel               Pending|Approved -> Cancelled, cached balance refreshed
  Balance              breakdown for employee x type x year
  ValidatePaidAbsence  paid-absence verdict
  RefreshBalances      rebuilds cached balance rows (scheduler)

CONCURRENCY:
  Every write runs inside Store.WithTx, which is single-writer. Two approvals
  racing for the last day of balance are serialized: the second sees the
  first one's Approved row and is rejected with InsufficientBalance.
  Cached LeaveBalance rows additionally carry an optimistic version.

ERRORS:
  A business rejection during Approve is returned as *RejectionError.
  Submit returns the rejection as a ValidationResult and persists nothing.
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/warp/leave-engine/generic"
)

// Service runs the leave workflow against a transactional store.
type Service struct {
	store   Store
	catalog *Catalog
	cfg     Config
	logger  *zap.Logger

	newID   func() string
	refresh singleflight.Group
}

// NewService builds a Service. The optional logger defaults to a no-op.
func NewService(store Store, catalog *Catalog, cfg Config, logger ...*zap.Logger) *Service {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		store:   store,
		catalog: catalog,
		cfg:     cfg,
		logger:  l.Named("leave.service"),
		newID:   uuid.NewString,
	}
}

// Catalog returns the leave-type table the service validates against.
func (s *Service) Catalog() *Catalog { return s.catalog }

// Employee looks an employee up in the directory.
func (s *Service) Employee(ctx context.Context, id string) (Employee, error) {
	return s.employee(ctx, s.store, id)
}

func (s *Service) processor(repo Repository) *Processor {
	return NewProcessor(s.catalog, repo, s.cfg)
}

func (s *Service) employee(ctx context.Context, repo Repository, id string) (Employee, error) {
	emp, err := repo.Employee(ctx, id)
	switch {
	case err == nil:
		return emp, nil
	case generic.IsNotFound(err):
		return Employee{}, fmt.Errorf("employee %s: %w", id, err)
	default:
		return Employee{}, generic.Unavailable("employee directory", "get "+id, err)
	}
}

func (s *Service) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if errors.Is(err, generic.ErrDependencyUnavailable) {
		s.logger.Error(msg, fields...)
		return
	}
	s.logger.Warn(msg, fields...)
}

// =============================================================================
// VALIDATE / SUBMIT
// =============================================================================

// Validate runs the full pipeline without writing anything.
func (s *Service) Validate(ctx context.Context, req LeaveRequest) (ValidationResult, error) {
	s.logger.Debug("validate leave",
		zap.String("employee_id", req.EmployeeID),
		zap.String("leave_type", string(req.LeaveType)),
		zap.Stringer("start", req.StartDate),
		zap.Stringer("end", req.EndDate),
	)

	emp, err := s.employee(ctx, s.store, req.EmployeeID)
	if err != nil {
		s.logFailure("validate leave failed", err, zap.String("employee_id", req.EmployeeID))
		return ValidationResult{}, err
	}

	res, err := s.processor(s.store).Process(ctx, emp, req)
	if err != nil {
		s.logFailure("validate leave failed", err, zap.String("employee_id", req.EmployeeID))
		return ValidationResult{}, err
	}
	if !res.Valid {
		s.logger.Warn("leave rejected",
			zap.String("employee_id", req.EmployeeID),
			zap.String("code", string(res.Code)),
			zap.String("message", res.Message),
		)
	}
	return res, nil
}

// Submit validates req inside a transaction and, on success, inserts a
// Pending application. A rejected request is returned with a zero
// application and nothing is persisted.
func (s *Service) Submit(ctx context.Context, req LeaveRequest) (LeaveApplication, ValidationResult, error) {
	var (
		app LeaveApplication
		res ValidationResult
	)

	err := s.store.WithTx(ctx, func(repo Repository) error {
		emp, err := s.employee(ctx, repo, req.EmployeeID)
		if err != nil {
			return err
		}
		res, err = s.processor(repo).Process(ctx, emp, req)
		if err != nil || !res.Valid {
			return err
		}

		now := s.cfg.Now().UTC()
		app = LeaveApplication{
			ID:                s.newID(),
			EmployeeID:        emp.ID,
			LeaveType:         req.LeaveType,
			StartDate:         req.StartDate,
			EndDate:           req.EndDate,
			IsHalfDay:         req.IsHalfDay,
			TotalDays:         res.DeductionDays,
			Status:            StatusPending,
			IsSandwichLeave:   res.IsSandwich,
			ActualWorkingDays: res.ActualWorkingDays,
			Reason:            req.Reason,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		return repo.CreateApplication(ctx, app)
	})
	if err != nil {
		s.logFailure("submit leave failed", err, zap.String("employee_id", req.EmployeeID))
		return LeaveApplication{}, ValidationResult{}, err
	}

	if !res.Valid {
		s.logger.Warn("leave submission rejected",
			zap.String("employee_id", req.EmployeeID),
			zap.String("code", string(res.Code)),
		)
		return LeaveApplication{}, res, nil
	}

	s.logger.Info("leave submitted",
		zap.String("application_id", app.ID),
		zap.String("employee_id", app.EmployeeID),
		zap.String("total_days", app.TotalDays.String()),
		zap.Bool("sandwich", app.IsSandwichLeave),
	)
	return app, res, nil
}

// =============================================================================
// APPROVE / REJECT / CANCEL
// =============================================================================

// Approve moves a Pending application to Approved. The balance and the
// annual cap are re-checked inside the transaction so that concurrent
// approvals cannot overdraw.
func (s *Service) Approve(ctx context.Context, id, approverID string) (LeaveApplication, error) {
	var app LeaveApplication

	err := s.store.WithTx(ctx, func(repo Repository) error {
		var err error
		app, err = s.transition(ctx, repo, id, StatusApproved)
		if err != nil {
			return err
		}

		emp, err := s.employee(ctx, repo, app.EmployeeID)
		if err != nil {
			return err
		}
		lt, ok := s.catalog.Lookup(app.LeaveType)
		if !ok {
			return &RejectionError{Result: Rejected(reject(RejectUnknownLeaveType,
				"unknown leave type %q", app.LeaveType))}
		}

		p := s.processor(repo)
		year := app.Year()

		bal, err := p.Balance.Breakdown(ctx, emp, lt, year)
		if err != nil {
			return err
		}
		if rej := insufficient(lt, bal, app.TotalDays); rej != nil {
			return &RejectionError{Result: Rejected(rej)}
		}

		rej, err := p.AnnualLimit.Check(ctx, emp, lt, year)
		if err != nil {
			return err
		}
		if rej != nil {
			return &RejectionError{Result: Rejected(rej)}
		}

		now := s.cfg.Now().UTC()
		app.Status = StatusApproved
		app.ApprovedBy = approverID
		app.ApprovedAt = &now
		app.UpdatedAt = now
		if err := repo.UpdateApplication(ctx, app); err != nil {
			return err
		}
		return s.refreshBalance(ctx, repo, emp, lt, year)
	})
	if err != nil {
		s.logFailure("approve leave failed", err, zap.String("application_id", id))
		return LeaveApplication{}, err
	}

	s.logger.Info("leave approved",
		zap.String("application_id", app.ID),
		zap.String("approver_id", approverID),
	)
	return app, nil
}

// Reject moves a Pending application to Rejected.
func (s *Service) Reject(ctx context.Context, id, approverID, reason string) (LeaveApplication, error) {
	var app LeaveApplication

	err := s.store.WithTx(ctx, func(repo Repository) error {
		var err error
		app, err = s.transition(ctx, repo, id, StatusRejected)
		if err != nil {
			return err
		}
		app.Status = StatusRejected
		app.ApprovedBy = approverID
		app.RejectionReason = reason
		app.UpdatedAt = s.cfg.Now().UTC()
		return repo.UpdateApplication(ctx, app)
	})
	if err != nil {
		s.logFailure("reject leave failed", err, zap.String("application_id", id))
		return LeaveApplication{}, err
	}

	s.logger.Info("leave rejected by approver",
		zap.String("application_id", app.ID),
		zap.String("approver_id", approverID),
	)
	return app, nil
}

// Cancel withdraws a Pending or Approved application. Cancelling an
// approved one credits its days back; the cached balance row is refreshed
// in the same transaction.
func (s *Service) Cancel(ctx context.Context, id, actorID string) (LeaveApplication, error) {
	var app LeaveApplication

	err := s.store.WithTx(ctx, func(repo Repository) error {
		var err error
		app, err = s.transition(ctx, repo, id, StatusCancelled)
		if err != nil {
			return err
		}
		wasApproved := app.Status == StatusApproved

		app.Status = StatusCancelled
		app.UpdatedAt = s.cfg.Now().UTC()
		if err := repo.UpdateApplication(ctx, app); err != nil {
			return err
		}
		if !wasApproved {
			return nil
		}

		emp, err := s.employee(ctx, repo, app.EmployeeID)
		if err != nil {
			return err
		}
		lt, ok := s.catalog.Lookup(app.LeaveType)
		if !ok {
			s.logger.Warn("cancelled leave type not in catalog, balance row not refreshed",
				zap.String("application_id", app.ID),
				zap.String("leave_type", string(app.LeaveType)),
			)
			return nil
		}
		return s.refreshBalance(ctx, repo, emp, lt, app.Year())
	})
	if err != nil {
		s.logFailure("cancel leave failed", err, zap.String("application_id", id))
		return LeaveApplication{}, err
	}

	s.logger.Info("leave cancelled",
		zap.String("application_id", app.ID),
		zap.String("actor_id", actorID),
	)
	return app, nil
}

// transition loads id and checks that its status may move to `to`.
func (s *Service) transition(ctx context.Context, repo Repository, id string, to ApplicationStatus) (LeaveApplication, error) {
	app, err := repo.GetApplication(ctx, id)
	if err != nil {
		return LeaveApplication{}, fmt.Errorf("application %s: %w", id, err)
	}
	if !CanTransition(app.Status, to) {
		return LeaveApplication{}, &generic.TransitionError{ID: id, From: string(app.Status), To: string(to)}
	}
	return app, nil
}

// =============================================================================
// BALANCES
// =============================================================================

// refreshBalance recomputes and caches the balance row. The stored
// CarriedForward is kept; the write is version-checked.
func (s *Service) refreshBalance(ctx context.Context, repo Repository, emp Employee, lt LeaveType, year int) error {
	bal, err := s.processor(repo).Balance.Breakdown(ctx, emp, lt, year)
	if err != nil {
		return err
	}

	cached, err := repo.GetBalance(ctx, emp.ID, lt.Code, year)
	switch {
	case err == nil:
		bal.Version = cached.Version
		bal.CarriedForward = cached.CarriedForward
	case generic.IsNotFound(err):
		bal.Version = 0
	default:
		return err
	}

	bal.UpdatedAt = s.cfg.Now().UTC()
	return repo.SaveBalance(ctx, bal)
}

// Balance returns the breakdown for employeeID x code x year.
func (s *Service) Balance(ctx context.Context, employeeID string, code LeaveTypeCode, year int) (LeaveBalance, error) {
	emp, err := s.employee(ctx, s.store, employeeID)
	if err != nil {
		return LeaveBalance{}, err
	}
	lt, ok := s.catalog.Lookup(code)
	if !ok {
		return LeaveBalance{}, fmt.Errorf("leave type %q: %w", code, generic.ErrNotFound)
	}
	return s.processor(s.store).Balance.Breakdown(ctx, emp, lt, year)
}

// RefreshBalances rebuilds the cached balance rows of every employee for
// year, one transaction per employee. It returns the number of rows written.
// Concurrent calls for the same year share a single run.
func (s *Service) RefreshBalances(ctx context.Context, year int) (int, error) {
	v, err, shared := s.refresh.Do(strconv.Itoa(year), func() (any, error) {
		return s.refreshBalances(ctx, year)
	})
	if shared {
		s.logger.Debug("balance refresh shared", zap.Int("year", year))
	}
	n, _ := v.(int)
	return n, err
}

func (s *Service) refreshBalances(ctx context.Context, year int) (int, error) {
	emps, err := s.store.ListEmployees(ctx)
	if err != nil {
		return 0, generic.Unavailable("employee directory", "list", err)
	}

	written := 0
	for _, emp := range emps {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n := 0
		err := s.store.WithTx(ctx, func(repo Repository) error {
			n = 0
			for _, lt := range s.catalog.All() {
				if lt.IsPaidAbsence {
					continue
				}
				if err := s.refreshBalance(ctx, repo, emp, lt, year); err != nil {
					return err
				}
				n++
			}
			return nil
		})
		if err != nil {
			s.logFailure("refresh balances failed", err, zap.String("employee_id", emp.ID))
			return written, err
		}
		written += n
	}

	s.logger.Debug("balances refreshed", zap.Int("year", year), zap.Int("rows", written))
	return written, nil
}

// Applications lists an employee's applications.
func (s *Service) Applications(ctx context.Context, employeeID string) ([]LeaveApplication, error) {
	return s.store.ListApplications(ctx, employeeID)
}

// =============================================================================
// PAID ABSENCE
// =============================================================================

// ValidatePaidAbsence looks the employee up and runs the paid-absence rules.
func (s *Service) ValidatePaidAbsence(ctx context.Context, req PaidAbsenceRequest) (ValidationResult, error) {
	emp, err := s.employee(ctx, s.store, req.EmployeeID)
	if err != nil {
		s.logFailure("validate paid absence failed", err, zap.String("employee_id", req.EmployeeID))
		return ValidationResult{}, err
	}

	res := PaidAbsenceProcessor{Catalog: s.catalog, Now: s.cfg.Now}.Process(emp, req)
	if !res.Valid {
		s.logger.Warn("paid absence rejected",
			zap.String("employee_id", req.EmployeeID),
			zap.String("code", string(res.Code)),
		)
	}
	return res, nil
}
