/*
Package sqlite provides a SQLite-backed leave.Store.

PURPOSE:
  Implements every repository interface the leave engine reads from
  (employee directory, holiday calendar, leave history) plus the workflow
  write side (applications, cached balances) and the admin tables
  (employees, holidays, leave types).

KEY TABLES:
  employees:          Employee directory
  holidays:           Public holidays, unique per (date, country)
  leave_types:        Leave-type table as JSON (see package factory)
  leave_applications: Submitted applications and their status
  leave_balances:     Cached balance rows with an optimistic version

INDEXES:
  - idx_applications_history: SumApprovedDays / CountApproved (hot path)
  - idx_applications_span:    HasApprovedLeaveOn (sandwich rule)
  - idx_holidays_country_date: HolidaysBetween

DATES:
  Calendar days are TEXT "2006-01-02", so lexical order is date order.
  Timestamps are RFC3339 UTC. Day amounts are decimal strings and are summed
  in Go, never in SQL.

CONCURRENCY:
  A single connection (SetMaxOpenConns(1)) plus sync.RWMutex. WithTx holds
  the write lock for the whole transaction, so it is a single writer and
  every read inside fn goes through the same *sql.Tx.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := leave.NewService(store, catalog, leave.Config{DefaultCountry: "IN"})

MIGRATION:
  Schema is auto-migrated on New(). NewWithDB skips it; call Migrate.

SEE ALSO:
  - leave/repository.go: Interface definitions
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// Store implements leave.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
	q  queries
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := NewWithDB(db)
	if err := store.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// NewWithDB wraps an open handle without migrating it.
func NewWithDB(db *sql.DB) *Store {
	// ":memory:" databases are per-connection; one connection also makes
	// WithTx the only writer.
	db.SetMaxOpenConns(1)
	return &Store{db: db, q: queries{db: db}}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the database schema.
func (s *Store) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		stage TEXT NOT NULL,
		joining_date TEXT NOT NULL,
		relieving_date TEXT,
		disciplinary INTEGER NOT NULL DEFAULT 0,
		country TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		country TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		UNIQUE(date, country)
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_country_date
		ON holidays(country, date);

	CREATE TABLE IF NOT EXISTS leave_types (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leave_applications (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		is_half_day INTEGER NOT NULL DEFAULT 0,
		total_days TEXT NOT NULL,
		status TEXT NOT NULL,
		is_sandwich INTEGER NOT NULL DEFAULT 0,
		actual_working_days INTEGER NOT NULL DEFAULT 0,
		approved_by TEXT,
		approved_at TEXT,
		rejection_reason TEXT,
		reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (start_date <= end_date)
	);

	CREATE INDEX IF NOT EXISTS idx_applications_history
		ON leave_applications(employee_id, leave_type, status, start_date);
	CREATE INDEX IF NOT EXISTS idx_applications_span
		ON leave_applications(employee_id, status, start_date, end_date);

	CREATE TABLE IF NOT EXISTS leave_balances (
		employee_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		year INTEGER NOT NULL,
		is_accrual_based INTEGER NOT NULL DEFAULT 0,
		allocated TEXT NOT NULL,
		accrued TEXT NOT NULL,
		used TEXT NOT NULL,
		carried_forward TEXT NOT NULL,
		months_worked INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, leave_type, year)
	);
	`
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// =============================================================================
// QUERIER - *sql.DB or *sql.Tx
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements leave.Repository on top of a querier. The Store
// wraps it with locking; WithTx hands out one bound to the transaction.
type queries struct {
	db querier
}

// =============================================================================
// TRANSACTIONAL STORE (leave.Store)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(leave.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{db: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

func (s *Store) Employee(ctx context.Context, id string) (leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.Employee(ctx, id)
}

func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListEmployees(ctx)
}

// SaveEmployee inserts or updates an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, stage, joining_date, relieving_date, disciplinary, country, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			stage = excluded.stage,
			joining_date = excluded.joining_date,
			relieving_date = excluded.relieving_date,
			disciplinary = excluded.disciplinary,
			country = excluded.country,
			updated_at = excluded.updated_at
	`
	now := timestamp(time.Now())
	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, string(emp.Stage), emp.JoiningDate.String(),
		nullDate(emp.RelievingDate), emp.Disciplinary, emp.Country, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

const employeeColumns = "id, name, stage, joining_date, relieving_date, disciplinary, country"

func (q *queries) Employee(ctx context.Context, id string) (leave.Employee, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE id = ?", id)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return leave.Employee{}, generic.ErrNotFound
	}
	return emp, err
}

func (q *queries) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT "+employeeColumns+" FROM employees ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(sc scanner) (leave.Employee, error) {
	var (
		emp       leave.Employee
		stage     string
		joining   string
		relieving sql.NullString
	)
	if err := sc.Scan(&emp.ID, &emp.Name, &stage, &joining, &relieving, &emp.Disciplinary, &emp.Country); err != nil {
		return leave.Employee{}, err
	}
	emp.Stage = leave.EmploymentStage(stage)

	var err error
	if emp.JoiningDate, err = generic.ParseDate(joining); err != nil {
		return leave.Employee{}, fmt.Errorf("employee %s: %w", emp.ID, err)
	}
	if relieving.Valid {
		d, err := generic.ParseDate(relieving.String)
		if err != nil {
			return leave.Employee{}, fmt.Errorf("employee %s: %w", emp.ID, err)
		}
		emp.RelievingDate = &d
	}
	return emp, nil
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// SaveHoliday inserts or updates the holiday for (date, country).
func (s *Store) SaveHoliday(ctx context.Context, h leave.PublicHoliday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, date, country, name, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, country) DO UPDATE SET
			name = excluded.name,
			active = excluded.active
	`
	_, err := s.db.ExecContext(ctx, query,
		h.ID, h.Date.String(), h.Country, h.Name, h.Active, timestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

// ListHolidays returns every holiday (active or not) for country in r.
func (s *Store) ListHolidays(ctx context.Context, country string, r generic.Range) ([]leave.PublicHoliday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.holidays(ctx, country, r, false)
}

func (s *Store) IsHoliday(ctx context.Context, date generic.Date, country string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.IsHoliday(ctx, date, country)
}

func (s *Store) HolidaysBetween(ctx context.Context, r generic.Range, country string) ([]leave.PublicHoliday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.HolidaysBetween(ctx, r, country)
}

func (q *queries) IsHoliday(ctx context.Context, date generic.Date, country string) (bool, error) {
	var count int
	err := q.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM holidays WHERE date = ? AND country = ? AND active = 1",
		date.String(), country,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (q *queries) HolidaysBetween(ctx context.Context, r generic.Range, country string) ([]leave.PublicHoliday, error) {
	return q.holidays(ctx, country, r, true)
}

func (q *queries) holidays(ctx context.Context, country string, r generic.Range, activeOnly bool) ([]leave.PublicHoliday, error) {
	query := `
		SELECT id, date, country, name, active
		FROM holidays
		WHERE country = ? AND date >= ? AND date <= ?
	`
	if activeOnly {
		query += " AND active = 1"
	}
	query += " ORDER BY date ASC"

	rows, err := q.db.QueryContext(ctx, query, country, r.Start.String(), r.End.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.PublicHoliday
	for rows.Next() {
		var (
			h       leave.PublicHoliday
			dateStr string
		)
		if err := rows.Scan(&h.ID, &dateStr, &h.Country, &h.Name, &h.Active); err != nil {
			return nil, err
		}
		if h.Date, err = generic.ParseDate(dateStr); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

// SaveLeaveTypes upserts the leave-type table.
func (s *Store) SaveLeaveTypes(ctx context.Context, types []leave.LeaveType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := factory.NewLeaveTypeFactory()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO leave_types (code, name, config_json, version, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json,
			version = CASE WHEN leave_types.config_json = excluded.config_json
				THEN leave_types.version ELSE leave_types.version + 1 END,
			updated_at = excluded.updated_at
	`
	now := timestamp(time.Now())
	for _, lt := range types {
		cfg, err := f.Marshal(lt)
		if err != nil {
			return fmt.Errorf("encode leave type %s: %w", lt.Code, err)
		}
		if _, err := tx.ExecContext(ctx, query, string(lt.Code), lt.Name, string(cfg), now); err != nil {
			return fmt.Errorf("failed to save leave type %s: %w", lt.Code, err)
		}
	}
	return tx.Commit()
}

// ListLeaveTypes loads the stored leave-type table ordered by code.
func (s *Store) ListLeaveTypes(ctx context.Context) ([]leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT code, config_json FROM leave_types ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	f := factory.NewLeaveTypeFactory()
	var out []leave.LeaveType
	for rows.Next() {
		var code, cfg string
		if err := rows.Scan(&code, &cfg); err != nil {
			return nil, err
		}
		lt, err := f.ParseLeaveType([]byte(cfg))
		if err != nil {
			return nil, fmt.Errorf("leave type %s: %w", code, err)
		}
		out = append(out, lt)
	}
	return out, rows.Err()
}

// =============================================================================
// LEAVE HISTORY
// =============================================================================

func (s *Store) SumApprovedDays(ctx context.Context, employeeID string, code leave.LeaveTypeCode, year int) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.SumApprovedDays(ctx, employeeID, code, year)
}

func (s *Store) CountApproved(ctx context.Context, employeeID string, code leave.LeaveTypeCode, year int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.CountApproved(ctx, employeeID, code, year)
}

func (s *Store) HasApprovedLeaveOn(ctx context.Context, employeeID string, date generic.Date) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.HasApprovedLeaveOn(ctx, employeeID, date)
}

const approvedInYear = `
	FROM leave_applications
	WHERE employee_id = ? AND leave_type = ? AND status = ?
	  AND start_date >= ? AND start_date <= ?
`

func (q *queries) SumApprovedDays(ctx context.Context, employeeID string, code leave.LeaveTypeCode, year int) (decimal.Decimal, error) {
	yr := generic.YearRange(year)
	rows, err := q.db.QueryContext(ctx, "SELECT total_days"+approvedInYear,
		employeeID, string(code), string(leave.StatusApproved), yr.Start.String(), yr.End.String())
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var days string
		if err := rows.Scan(&days); err != nil {
			return decimal.Zero, err
		}
		d, err := decimal.NewFromString(days)
		if err != nil {
			return decimal.Zero, fmt.Errorf("malformed total_days %q: %w", days, err)
		}
		sum = sum.Add(d)
	}
	return sum, rows.Err()
}

func (q *queries) CountApproved(ctx context.Context, employeeID string, code leave.LeaveTypeCode, year int) (int, error) {
	yr := generic.YearRange(year)
	var count int
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*)"+approvedInYear,
		employeeID, string(code), string(leave.StatusApproved), yr.Start.String(), yr.End.String(),
	).Scan(&count)
	return count, err
}

func (q *queries) HasApprovedLeaveOn(ctx context.Context, employeeID string, date generic.Date) (bool, error) {
	var count int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM leave_applications
		WHERE employee_id = ? AND status = ? AND start_date <= ? AND end_date >= ?
	`, employeeID, string(leave.StatusApproved), date.String(), date.String()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// =============================================================================
// APPLICATIONS
// =============================================================================

func (s *Store) CreateApplication(ctx context.Context, app leave.LeaveApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.CreateApplication(ctx, app)
}

func (s *Store) GetApplication(ctx context.Context, id string) (leave.LeaveApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetApplication(ctx, id)
}

func (s *Store) UpdateApplication(ctx context.Context, app leave.LeaveApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.UpdateApplication(ctx, app)
}

func (s *Store) ListApplications(ctx context.Context, employeeID string) ([]leave.LeaveApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListApplications(ctx, employeeID)
}

const applicationColumns = `id, employee_id, leave_type, start_date, end_date, is_half_day, total_days,
	status, is_sandwich, actual_working_days, approved_by, approved_at, rejection_reason, reason,
	created_at, updated_at`

func (q *queries) CreateApplication(ctx context.Context, app leave.LeaveApplication) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO leave_applications ("+applicationColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		app.ID, app.EmployeeID, string(app.LeaveType), app.StartDate.String(), app.EndDate.String(),
		app.IsHalfDay, app.TotalDays.String(), string(app.Status), app.IsSandwichLeave,
		app.ActualWorkingDays, nullString(app.ApprovedBy), nullTime(app.ApprovedAt),
		nullString(app.RejectionReason), nullString(app.Reason),
		timestamp(app.CreatedAt), timestamp(app.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("application %s already exists: %w", app.ID, err)
		}
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

func (q *queries) GetApplication(ctx context.Context, id string) (leave.LeaveApplication, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+applicationColumns+" FROM leave_applications WHERE id = ?", id)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return leave.LeaveApplication{}, generic.ErrNotFound
	}
	return app, err
}

func (q *queries) UpdateApplication(ctx context.Context, app leave.LeaveApplication) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE leave_applications SET
			status = ?, total_days = ?, is_sandwich = ?, actual_working_days = ?,
			approved_by = ?, approved_at = ?, rejection_reason = ?, updated_at = ?
		WHERE id = ?
	`,
		string(app.Status), app.TotalDays.String(), app.IsSandwichLeave, app.ActualWorkingDays,
		nullString(app.ApprovedBy), nullTime(app.ApprovedAt), nullString(app.RejectionReason),
		timestamp(app.UpdatedAt), app.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return generic.ErrNotFound
	}
	return nil
}

func (q *queries) ListApplications(ctx context.Context, employeeID string) ([]leave.LeaveApplication, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+applicationColumns+" FROM leave_applications WHERE employee_id = ? ORDER BY start_date, id",
		employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []leave.LeaveApplication
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

func scanApplication(sc scanner) (leave.LeaveApplication, error) {
	var (
		app                          leave.LeaveApplication
		leaveType, status, totalDays string
		start, end                   string
		approvedBy, approvedAt       sql.NullString
		rejection, reason            sql.NullString
		createdAt, updatedAt         string
	)
	err := sc.Scan(&app.ID, &app.EmployeeID, &leaveType, &start, &end, &app.IsHalfDay, &totalDays,
		&status, &app.IsSandwichLeave, &app.ActualWorkingDays, &approvedBy, &approvedAt,
		&rejection, &reason, &createdAt, &updatedAt)
	if err != nil {
		return leave.LeaveApplication{}, err
	}

	app.LeaveType = leave.LeaveTypeCode(leaveType)
	app.Status = leave.ApplicationStatus(status)
	app.ApprovedBy = approvedBy.String
	app.RejectionReason = rejection.String
	app.Reason = reason.String
	if app.StartDate, err = generic.ParseDate(start); err != nil {
		return leave.LeaveApplication{}, err
	}
	if app.EndDate, err = generic.ParseDate(end); err != nil {
		return leave.LeaveApplication{}, err
	}
	if app.TotalDays, err = decimal.NewFromString(totalDays); err != nil {
		return leave.LeaveApplication{}, fmt.Errorf("malformed total_days %q: %w", totalDays, err)
	}
	if approvedAt.Valid {
		t, err := parseTimestamp("approved_at", approvedAt.String)
		if err != nil {
			return leave.LeaveApplication{}, err
		}
		app.ApprovedAt = &t
	}
	if app.CreatedAt, err = parseTimestamp("created_at", createdAt); err != nil {
		return leave.LeaveApplication{}, err
	}
	if app.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return leave.LeaveApplication{}, err
	}
	return app, nil
}

// =============================================================================
// BALANCE CACHE
// =============================================================================

func (s *Store) GetBalance(ctx context.Context, employeeID string, code leave.LeaveTypeCode, year int) (leave.LeaveBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetBalance(ctx, employeeID, code, year)
}

func (s *Store) SaveBalance(ctx context.Context, b leave.LeaveBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.SaveBalance(ctx, b)
}

func (q *queries) GetBalance(ctx context.Context, employeeID string, code leave.LeaveTypeCode, year int) (leave.LeaveBalance, error) {
	var (
		b                                 leave.LeaveBalance
		leaveType                         string
		allocated, accrued, used, carried string
		updatedAt                         string
	)
	err := q.db.QueryRowContext(ctx, `
		SELECT employee_id, leave_type, year, is_accrual_based, allocated, accrued, used,
		       carried_forward, months_worked, version, updated_at
		FROM leave_balances
		WHERE employee_id = ? AND leave_type = ? AND year = ?
	`, employeeID, string(code), year).Scan(
		&b.EmployeeID, &leaveType, &b.Year, &b.IsAccrualBased, &allocated, &accrued, &used,
		&carried, &b.MonthsWorked, &b.Version, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return leave.LeaveBalance{}, generic.ErrNotFound
	}
	if err != nil {
		return leave.LeaveBalance{}, err
	}

	b.LeaveType = leave.LeaveTypeCode(leaveType)
	if b.Allocated, err = parseDecimal("allocated", allocated); err != nil {
		return leave.LeaveBalance{}, err
	}
	if b.Accrued, err = parseDecimal("accrued", accrued); err != nil {
		return leave.LeaveBalance{}, err
	}
	if b.Used, err = parseDecimal("used", used); err != nil {
		return leave.LeaveBalance{}, err
	}
	if b.CarriedForward, err = parseDecimal("carried_forward", carried); err != nil {
		return leave.LeaveBalance{}, err
	}
	if b.UpdatedAt, err = parseTimestamp("updated_at", updatedAt); err != nil {
		return leave.LeaveBalance{}, err
	}
	return b, nil
}

// SaveBalance writes b if the stored version still equals b.Version.
func (q *queries) SaveBalance(ctx context.Context, b leave.LeaveBalance) error {
	args := []any{
		b.IsAccrualBased, b.Allocated.String(), b.Accrued.String(), b.Used.String(),
		b.CarriedForward.String(), b.MonthsWorked, b.Version + 1, timestamp(b.UpdatedAt),
	}

	if b.Version == 0 {
		_, err := q.db.ExecContext(ctx, `
			INSERT INTO leave_balances
			(is_accrual_based, allocated, accrued, used, carried_forward, months_worked, version, updated_at,
			 employee_id, leave_type, year)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, append(args, b.EmployeeID, string(b.LeaveType), b.Year)...)
		if isUniqueConstraintError(err) {
			return generic.ErrConcurrentModification
		}
		if err != nil {
			return fmt.Errorf("failed to insert balance: %w", err)
		}
		return nil
	}

	res, err := q.db.ExecContext(ctx, `
		UPDATE leave_balances SET
			is_accrual_based = ?, allocated = ?, accrued = ?, used = ?, carried_forward = ?,
			months_worked = ?, version = ?, updated_at = ?
		WHERE employee_id = ? AND leave_type = ? AND year = ? AND version = ?
	`, append(args, b.EmployeeID, string(b.LeaveType), b.Year, b.Version)...)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return generic.ErrConcurrentModification
	}
	return nil
}

// Reset clears all data (for testing/demo purposes).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM leave_balances;
		DELETE FROM leave_applications;
		DELETE FROM holidays;
		DELETE FROM employees;
	`)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func timestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTimestamp(column, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed %s %q: %w", column, s, err)
	}
	return t, nil
}

func parseDecimal(column, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed %s %q: %w", column, s, err)
	}
	return d, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d *generic.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
