package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/common"
	"github.com/ternarybob/stockpulse/internal/interfaces"
)

// stopTimeout bounds how long Stop waits for a running job
const stopTimeout = 2 * time.Minute

// jobEntry represents a registered job with metadata
type jobEntry struct {
	name      string
	schedule  string
	handler   func() error
	cronID    cron.EntryID
	lastRun   *time.Time
	isRunning bool
	lastError string
	runs      int
}

// JobStatus is a snapshot of a registered job
type JobStatus struct {
	Name      string
	Schedule  string
	IsRunning bool
	LastRun   *time.Time
	NextRun   *time.Time
	LastError string
	Runs      int
}

// Service implements SchedulerService on robfig/cron.
// Jobs never overlap: a trigger that arrives while another job runs waits.
type Service struct {
	cron     *cron.Cron
	logger   arbor.ILogger
	jobMu    sync.Mutex // Protects jobs map and entries
	globalMu sync.Mutex // Prevents concurrent job execution
	jobs     map[string]*jobEntry
	running  bool
	now      func() time.Time
}

// NewService creates a new scheduler service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		cron:   cron.New(),
		logger: logger,
		jobs:   make(map[string]*jobEntry),
		now:    time.Now,
	}
}

var _ interfaces.SchedulerService = (*Service)(nil)

// RegisterJob adds a handler on a standard 5-field cron schedule
func (s *Service) RegisterJob(name string, schedule string, handler func() error) error {
	if err := common.ValidateSchedule(schedule); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}

	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	cronID, err := s.cron.AddFunc(schedule, func() {
		s.executeJob(name)
	})
	if err != nil {
		return fmt.Errorf("failed to add job to cron: %w", err)
	}

	s.jobs[name] = &jobEntry{
		name:     name,
		schedule: schedule,
		handler:  handler,
		cronID:   cronID,
	}

	s.logger.Info().
		Str("job_name", name).
		Str("schedule", schedule).
		Msg("Job registered")

	return nil
}

// Start begins firing registered jobs
func (s *Service) Start() error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.cron.Start()
	s.running = true

	s.logger.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
	return nil
}

// Stop halts the scheduler and waits for a running job to finish
func (s *Service) Stop() error {
	s.jobMu.Lock()
	if !s.running {
		s.jobMu.Unlock()
		return nil
	}
	s.running = false
	s.jobMu.Unlock()

	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		s.logger.Info().Msg("Scheduler stopped")
		return nil
	case <-time.After(stopTimeout):
		s.logger.Warn().Dur("timeout", stopTimeout).Msg("Scheduler stop timed out waiting for running job")
		return fmt.Errorf("scheduler stop timed out after %s", stopTimeout)
	}
}

// IsRunning reports whether the scheduler has been started
func (s *Service) IsRunning() bool {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	return s.running
}

// TriggerJob runs a registered job immediately and returns its error
func (s *Service) TriggerJob(name string) error {
	s.jobMu.Lock()
	_, exists := s.jobs[name]
	s.jobMu.Unlock()
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}
	return s.executeJob(name)
}

// GetJobStatus returns the status of a registered job
func (s *Service) GetJobStatus(name string) (*JobStatus, error) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	entry, exists := s.jobs[name]
	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}

	status := &JobStatus{
		Name:      entry.name,
		Schedule:  entry.schedule,
		IsRunning: entry.isRunning,
		LastRun:   entry.lastRun,
		LastError: entry.lastError,
		Runs:      entry.runs,
	}
	if next := s.cron.Entry(entry.cronID).Next; !next.IsZero() {
		status.NextRun = &next
	}
	return status, nil
}

func (s *Service) executeJob(name string) (err error) {
	s.globalMu.Lock()
	defer s.globalMu.Unlock()

	s.jobMu.Lock()
	entry, exists := s.jobs[name]
	if !exists {
		s.jobMu.Unlock()
		s.logger.Warn().Str("job_name", name).Msg("Job not found")
		return fmt.Errorf("job %s not found", name)
	}
	started := s.now()
	entry.isRunning = true
	entry.lastRun = &started
	handler := entry.handler
	s.jobMu.Unlock()

	s.logger.Info().Str("job_name", name).Msg("Job execution started")

	err = common.RecoverToError(name, handler)

	s.jobMu.Lock()
	entry.isRunning = false
	entry.runs++
	entry.lastError = ""
	if err != nil {
		entry.lastError = err.Error()
	}
	s.jobMu.Unlock()

	if err != nil {
		s.logger.Error().
			Err(err).
			Str("job_name", name).
			Dur("duration", s.now().Sub(started)).
			Msg("Job execution failed")
		return err
	}

	s.logger.Info().
		Str("job_name", name).
		Dur("duration", s.now().Sub(started)).
		Msg("Job execution completed")
	return nil
}
