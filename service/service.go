package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ptrj.com/venus/core"
	"ptrj.com/venus/mill"
	"ptrj.com/venus/utils"
)

type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// RecordResult is the per-record outcome attached to a job once it ends.
type RecordResult struct {
	RecordID   string       `json:"record_id"`
	Status     string       `json:"status"`
	Validation *mill.Result `json:"validation,omitempty"`
	Error      string       `json:"error,omitempty"`
}

type Job struct {
	ID           string         `json:"id"`
	State        JobState       `json:"state"`
	RecordIDs    []string       `json:"record_ids"`
	Results      []RecordResult `json:"results,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"`

	cancel context.CancelFunc
}

// Processor performs the browser-side work: one-time initialization and the
// form entry for one record.
type Processor interface {
	Init(ctx context.Context) error
	Process(ctx context.Context, rec *core.StagingRecord, trxDate string) error
	Stop()
}

// Validator abstracts the mill validator for the pipeline.
type Validator interface {
	Validate(ctx context.Context, rec *core.StagingRecord) mill.Result
	TrxDate(date string) (string, error)
}

// Notifier receives end-of-job summaries. May be nil.
type Notifier interface {
	Info(message string) error
	Error(message string) error
}

// Service owns automation jobs. The browser is exclusive, so at most one
// job runs at a time; the engine initializes in the background and early
// submissions block until it is ready.
type Service struct {
	store     *core.Store
	validator Validator
	proc      Processor
	notifier  Notifier
	log       *zap.Logger

	readyTimeout time.Duration
	ready        chan struct{}
	initErr      error

	mu      sync.Mutex
	jobs    map[string]*Job
	running string
}

func New(store *core.Store, validator Validator, proc Processor, notifier Notifier, log *zap.Logger) *Service {
	s := &Service{
		store:        store,
		validator:    validator,
		proc:         proc,
		notifier:     notifier,
		log:          log,
		readyTimeout: 60 * time.Second,
		ready:        make(chan struct{}),
		jobs:         map[string]*Job{},
	}
	go s.initEngine()
	return s
}

func (s *Service) initEngine() {
	err := s.proc.Init(context.Background())
	s.mu.Lock()
	s.initErr = err
	s.mu.Unlock()
	close(s.ready)
	if err != nil {
		s.log.Error("engine initialization failed", zap.Error(err))
		return
	}
	s.log.Info("engine initialized")
}

// EngineStatus reports whether initialization has finished and how.
func (s *Service) EngineStatus() (ready bool, err error) {
	select {
	case <-s.ready:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.initErr == nil, s.initErr
	default:
		return false, nil
	}
}

func (s *Service) waitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.initErr != nil {
			return fmt.Errorf("engine failed to initialize: %w", s.initErr)
		}
		return nil
	case <-time.After(s.readyTimeout):
		return errors.New("engine not ready, try again later")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartJob submits records for transfer. Records already in the transfer
// history are dropped first; a submission that is entirely duplicates fails
// here, before the engine or the mill is touched.
func (s *Service) StartJob(ctx context.Context, recordIDs []string) (string, error) {
	if len(recordIDs) == 0 {
		return "", errors.New("no record ids given")
	}

	records, err := s.store.StagingByIDs(recordIDs)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", errors.New("no staging records match the given ids")
	}

	fresh, err := s.store.FilterUntransferred(records)
	if err != nil {
		return "", err
	}
	if len(fresh) == 0 {
		return "", errors.New("all records were already transferred")
	}

	if err := s.waitReady(ctx); err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.running != "" {
		s.mu.Unlock()
		return "", fmt.Errorf("job %s is still running", s.running)
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:        uuid.NewString(),
		State:     JobPending,
		RecordIDs: recordIDs,
		CreatedAt: time.Now(),
		cancel:    cancel,
	}
	s.jobs[job.ID] = job
	s.running = job.ID
	s.mu.Unlock()

	go s.run(jobCtx, job, fresh)

	return job.ID, nil
}

func (s *Service) run(ctx context.Context, job *Job, records []core.StagingRecord) {
	s.mu.Lock()
	job.State = JobRunning
	job.StartedAt = utils.Ptr(time.Now())
	s.mu.Unlock()

	s.log.Info("job started", zap.String("job", job.ID), zap.Int("records", len(records)))

	var results []RecordResult
	cancelled := false

	for i := range records {
		rec := &records[i]

		if ctx.Err() != nil {
			cancelled = true
			break
		}

		result := s.processRecord(ctx, rec)
		results = append(results, result)
	}

	succeeded := 0
	for _, r := range results {
		if r.Error == "" {
			succeeded++
		}
	}

	s.mu.Lock()
	job.Results = results
	job.FinishedAt = utils.Ptr(time.Now())
	switch {
	case cancelled:
		job.State = JobCancelled
	case succeeded == 0 && len(results) > 0:
		job.State = JobFailed
		job.ErrorMessage = "no records transferred successfully"
	default:
		job.State = JobCompleted
	}
	if s.running == job.ID {
		s.running = ""
	}
	state := job.State
	s.mu.Unlock()

	s.log.Info("job finished",
		zap.String("job", job.ID),
		zap.String("state", string(state)),
		zap.Int("succeeded", succeeded),
		zap.Int("total", len(results)))

	s.notify(job, succeeded, len(results))
}

func (s *Service) processRecord(ctx context.Context, rec *core.StagingRecord) RecordResult {
	result := RecordResult{RecordID: rec.ID}

	trxDate, err := s.validator.TrxDate(rec.Date)
	if err != nil {
		result.Status = core.StatusFailed
		result.Error = err.Error()
		s.markRecord(rec.ID, core.StatusFailed, err.Error())
		return result
	}

	if err := s.proc.Process(ctx, rec, trxDate); err != nil {
		result.Status = core.StatusFailed
		result.Error = fmt.Sprintf("form entry failed: %v", err)
		s.markRecord(rec.ID, core.StatusFailed, result.Error)
		return result
	}

	res := s.validator.Validate(ctx, rec)
	result.Validation = &res

	if res.Success() {
		result.Status = core.StatusProcessed
		s.markRecord(rec.ID, core.StatusProcessed, res.Status)
	} else {
		result.Status = core.StatusFailed
		result.Error = res.Message
		s.markRecord(rec.ID, core.StatusFailed, res.Status+": "+res.Message)
	}

	return result
}

func (s *Service) markRecord(id, status, notes string) {
	if err := s.store.UpdateStagingStatus(id, status, notes); err != nil {
		s.log.Error("failed to update staging status",
			zap.String("record", id), zap.Error(err))
	}
}

func (s *Service) notify(job *Job, succeeded, total int) {
	if s.notifier == nil {
		return
	}
	msg := fmt.Sprintf("transfer job %s %s: %d/%d records", job.ID, job.State, succeeded, total)
	var err error
	if job.State == JobCompleted {
		err = s.notifier.Info(msg)
	} else {
		err = s.notifier.Error(msg)
	}
	if err != nil {
		s.log.Warn("failed to send notification", zap.Error(err))
	}
}

// JobStatus returns a copy of the job.
func (s *Service) JobStatus(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

func (s *Service) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	return out
}

// Cancel is best-effort: it flips the bookkeeping and asks the engine to
// stop at the next event boundary. In-flight browser actions finish.
func (s *Service) Cancel(id string) error {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("no job with id %s", id)
	}
	if job.State.Terminal() {
		s.mu.Unlock()
		return fmt.Errorf("job %s already %s", id, job.State)
	}
	job.cancel()
	s.mu.Unlock()

	s.proc.Stop()
	s.log.Info("job cancel requested", zap.String("job", id))
	return nil
}

// CleanupOldJobs drops terminal jobs older than maxAge (24h when zero).
// Returns the number removed.
func (s *Service) CleanupOldJobs(maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, job := range s.jobs {
		if job.State.Terminal() && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}
