package mill

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"ptrj.com/venus/core"
)

type Mode string

const (
	ModeTesting Mode = "testing"
	ModeReal    Mode = "real"
)

const (
	DatabaseReal    = "db_ptrj_mill"
	DatabaseTesting = "db_ptrj_mill_test"
)

// Tolerance is the absolute hour difference still counted as a match.
// The boundary itself matches: a diff of exactly 0.1 is a SUCCESS.
const Tolerance = 0.1

const (
	StatusSuccess        = "SUCCESS"
	StatusMismatch       = "MISMATCH"
	StatusNotFound       = "NOT_FOUND"
	StatusError          = "ERROR"
	StatusOfflineSuccess = "OFFLINE_SUCCESS"
	StatusOfflineError   = "OFFLINE_ERROR"
)

const (
	ConnOnline     = "ONLINE"
	ConnOffline    = "OFFLINE"
	ConnReconciled = "RECONCILED"
)

// TaskRegLine is one row of PR_TASKREGLN, the mill payroll task register.
// OT is 1 for overtime lines, 0 for regular ones.
type TaskRegLine struct {
	EmpCode  string
	EmpName  string
	TrxDate  string
	OT       int
	Hours    float64
	Amount   float64
	Status   string
	ChargeTo string
}

// Querier fetches task register lines for one employee and transaction date.
type Querier interface {
	TaskRegLines(ctx context.Context, empCode, trxDate string) ([]TaskRegLine, error)
}

type boundQuerier struct {
	m        *Manager
	database string
}

func (b boundQuerier) TaskRegLines(ctx context.Context, empCode, trxDate string) ([]TaskRegLine, error) {
	return b.m.TaskRegLines(ctx, b.database, empCode, trxDate)
}

// ForDatabase binds the manager to one mill database as a Querier.
func (m *Manager) ForDatabase(database string) Querier {
	return boundQuerier{m: m, database: database}
}

// Database returns the mill database name for the mode.
func Database(mode Mode) string {
	if mode == ModeTesting {
		return DatabaseTesting
	}
	return DatabaseReal
}

// Result is the outcome of validating one staging record against the mill.
type Result struct {
	Status           string  `json:"status"`
	TrxDate          string  `json:"trx_date"`
	ExpectedRegular  float64 `json:"expected_regular"`
	ExpectedOvertime float64 `json:"expected_overtime"`
	ActualRegular    float64 `json:"actual_regular"`
	ActualOvertime   float64 `json:"actual_overtime"`
	ConnectionStatus string  `json:"connection_status"`
	Database         string  `json:"database"`
	Message          string  `json:"message"`
}

// Success covers both online and optimistic offline success.
func (r Result) Success() bool {
	return r.Status == StatusSuccess || r.Status == StatusOfflineSuccess
}

// Validator checks entered hours against the mill task register, logging
// every attempt and falling back to an offline queue when the mill is
// unreachable.
type Validator struct {
	store   *core.Store
	querier Querier
	mode    Mode
	log     *zap.Logger
}

func NewValidator(store *core.Store, querier Querier, mode Mode, log *zap.Logger) *Validator {
	return &Validator{store: store, querier: querier, mode: mode, log: log}
}

// HoursMatch reports whether actual is within Tolerance of expected,
// boundary included.
func HoursMatch(expected, actual float64) bool {
	return math.Abs(expected-actual) <= Tolerance
}

// TrxDate maps an attendance date onto the mill transaction date. Testing
// mode runs one calendar month behind the attendance data; real mode uses
// the date as-is.
func (v *Validator) TrxDate(date string) (string, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", fmt.Errorf("invalid attendance date %q: %w", date, err)
	}
	if v.mode != ModeTesting {
		return date, nil
	}
	return monthEarlier(t).Format("2006-01-02"), nil
}

// monthEarlier shifts back one calendar month, clamping the day to the last
// day of the target month (Mar 31 -> Feb 28).
func monthEarlier(t time.Time) time.Time {
	y, m, d := t.Date()
	firstOfMonth := time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	prev := firstOfMonth.AddDate(0, -1, 0)
	lastDay := firstOfMonth.AddDate(0, 0, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(prev.Year(), prev.Month(), d, 0, 0, 0, 0, t.Location())
}

// Validate checks one record. Connectivity failures never surface as an
// error return; they queue the record and report an optimistic offline
// status instead.
func (v *Validator) Validate(ctx context.Context, rec *core.StagingRecord) Result {
	res := Result{
		ExpectedRegular:  rec.RegularHours,
		ExpectedOvertime: rec.OvertimeHours,
		ConnectionStatus: ConnOnline,
		Database:         Database(v.mode),
	}

	trxDate, err := v.TrxDate(rec.Date)
	if err != nil {
		res.Status = StatusError
		res.Message = err.Error()
		v.logResult(rec, res)
		return res
	}
	res.TrxDate = trxDate

	lines, err := v.querier.TaskRegLines(ctx, rec.EmployeeIDPtrj, trxDate)
	switch {
	case errors.Is(err, ErrOffline):
		return v.validateOffline(rec, res)
	case err != nil:
		res.Status = StatusError
		res.Message = err.Error()
		v.logResult(rec, res)
		return res
	}

	if len(lines) == 0 {
		res.Status = StatusNotFound
		res.Message = "no task register lines for employee and date"
		v.logResult(rec, res)
		return res
	}

	for _, line := range lines {
		if line.OT == 1 {
			res.ActualOvertime += line.Hours
		} else {
			res.ActualRegular += line.Hours
		}
	}

	if HoursMatch(rec.RegularHours, res.ActualRegular) &&
		HoursMatch(rec.OvertimeHours, res.ActualOvertime) {
		res.Status = StatusSuccess
	} else {
		res.Status = StatusMismatch
		res.Message = fmt.Sprintf("expected %.2f/%.2f, mill has %.2f/%.2f",
			rec.RegularHours, rec.OvertimeHours, res.ActualRegular, res.ActualOvertime)
	}

	v.logResult(rec, res)

	if res.Status == StatusSuccess {
		if err := v.store.RecordTransfer(rec, "transferred"); err != nil {
			v.log.Error("failed to record transfer", zap.String("record", rec.ID), zap.Error(err))
		}
	}

	return res
}

// validateOffline queues exactly one entry and reports an optimistic result
// based on local sanity of the hours alone.
func (v *Validator) validateOffline(rec *core.StagingRecord, res Result) Result {
	res.ConnectionStatus = ConnOffline

	entry := core.OfflineQueueEntry{
		EmployeeIDPtrj: rec.EmployeeIDPtrj,
		EmployeeName:   rec.EmployeeName,
		Date:           rec.Date,
		RegularHours:   rec.RegularHours,
		OvertimeHours:  rec.OvertimeHours,
	}
	if err := v.store.EnqueueOffline(&entry); err != nil {
		v.log.Error("failed to queue offline validation", zap.String("record", rec.ID), zap.Error(err))
	}

	if rec.RegularHours >= 0 && rec.OvertimeHours >= 0 {
		res.Status = StatusOfflineSuccess
		res.Message = "mill unreachable, queued for later validation"
	} else {
		res.Status = StatusOfflineError
		res.Message = "mill unreachable and hours are negative"
	}

	v.logResult(rec, res)

	if res.Status == StatusOfflineSuccess {
		if err := v.store.RecordTransfer(rec, "offline"); err != nil {
			v.log.Error("failed to record offline transfer", zap.String("record", rec.ID), zap.Error(err))
		}
	}

	return res
}

func (v *Validator) logResult(rec *core.StagingRecord, res Result) {
	entry := core.ValidationLog{
		EmployeeIDPtrj:   rec.EmployeeIDPtrj,
		EmployeeName:     rec.EmployeeName,
		Date:             rec.Date,
		TrxDate:          res.TrxDate,
		ExpectedRegular:  res.ExpectedRegular,
		ExpectedOvertime: res.ExpectedOvertime,
		ActualRegular:    res.ActualRegular,
		ActualOvertime:   res.ActualOvertime,
		Status:           res.Status,
		ConnectionStatus: res.ConnectionStatus,
		MillDatabase:     res.Database,
		Message:          res.Message,
	}
	if err := v.store.LogValidation(&entry); err != nil {
		v.log.Error("failed to log validation", zap.String("record", rec.ID), zap.Error(err))
	}

	v.log.Info("validation result",
		zap.String("employee", rec.EmployeeIDPtrj),
		zap.String("date", rec.Date),
		zap.String("status", res.Status),
		zap.String("connection", res.ConnectionStatus))
}

// ProcessOfflineQueue re-validates pending entries now that the mill is
// reachable again. The outcome is recorded in the validation log only; the
// optimistic transfer made while offline is not rewritten. Stops early and
// returns ErrOffline if the mill drops away mid-run.
func (v *Validator) ProcessOfflineQueue(ctx context.Context) (int, error) {
	entries, err := v.store.PendingOffline()
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, e := range entries {
		rec := core.StagingRecord{
			EmployeeIDPtrj: e.EmployeeIDPtrj,
			EmployeeName:   e.EmployeeName,
			Date:           e.Date,
			RegularHours:   e.RegularHours,
			OvertimeHours:  e.OvertimeHours,
		}

		res := Result{
			ExpectedRegular:  rec.RegularHours,
			ExpectedOvertime: rec.OvertimeHours,
			ConnectionStatus: ConnReconciled,
			Database:         Database(v.mode),
		}

		trxDate, err := v.TrxDate(rec.Date)
		if err != nil {
			res.Status = StatusError
			res.Message = err.Error()
			v.logResult(&rec, res)
			if err := v.store.MarkOfflineProcessed(e.ID); err != nil {
				v.log.Error("failed to mark queue entry processed", zap.Uint("entry", e.ID), zap.Error(err))
			}
			processed++
			continue
		}
		res.TrxDate = trxDate

		lines, err := v.querier.TaskRegLines(ctx, rec.EmployeeIDPtrj, trxDate)
		if errors.Is(err, ErrOffline) {
			return processed, ErrOffline
		}
		if err != nil {
			if bumpErr := v.store.BumpOfflineRetry(e.ID); bumpErr != nil {
				v.log.Error("failed to bump retry count", zap.Uint("entry", e.ID), zap.Error(bumpErr))
			}
			v.log.Warn("offline queue entry failed, will retry",
				zap.Uint("entry", e.ID), zap.Error(err))
			continue
		}

		if len(lines) == 0 {
			res.Status = StatusNotFound
		} else {
			for _, line := range lines {
				if line.OT == 1 {
					res.ActualOvertime += line.Hours
				} else {
					res.ActualRegular += line.Hours
				}
			}
			if HoursMatch(rec.RegularHours, res.ActualRegular) &&
				HoursMatch(rec.OvertimeHours, res.ActualOvertime) {
				res.Status = StatusSuccess
			} else {
				res.Status = StatusMismatch
			}
		}

		v.logResult(&rec, res)
		if err := v.store.MarkOfflineProcessed(e.ID); err != nil {
			v.log.Error("failed to mark queue entry processed", zap.Uint("entry", e.ID), zap.Error(err))
		}
		processed++
	}

	return processed, nil
}
