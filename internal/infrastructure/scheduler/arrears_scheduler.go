package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	appfees "github.com/shulepay/backend/internal/application/fees"
)

// ErrSchedulerNotRunning is returned when a manual trigger hits a stopped scheduler
var ErrSchedulerNotRunning = errors.New("scheduler is not running")

// ArrearsRecomputer runs the arrears sweep for one school
type ArrearsRecomputer interface {
	RecomputeAll(ctx context.Context, schoolID uuid.UUID) (*appfees.RecomputeResult, error)
}

// SchoolSource lists the schools a sweep must cover
type SchoolSource interface {
	SchoolIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Config holds the arrears scheduler configuration
type Config struct {
	// Enabled indicates whether the background sweep runs at all
	Enabled bool
	// CheckInterval is how often the sweep runs; 24h gives the daily cadence
	CheckInterval time.Duration
	// JobTimeout bounds one school's sweep
	JobTimeout time.Duration
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		CheckInterval: 24 * time.Hour,
		JobTimeout:    30 * time.Minute,
	}
}

// ArrearsScheduler periodically recomputes arrears for every school.
// Overdue transitions depend on the passage of time, so without this sweep
// an invoice past its due date would stay ISSUED until the next payment.
type ArrearsScheduler struct {
	config     Config
	recomputer ArrearsRecomputer
	schools    SchoolSource
	jobRepo    *JobRepository
	logger     *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRunAt *time.Time
}

// NewArrearsScheduler creates a new arrears scheduler. jobRepo may be nil,
// in which case runs are not recorded.
func NewArrearsScheduler(
	config Config,
	recomputer ArrearsRecomputer,
	schools SchoolSource,
	jobRepo *JobRepository,
	logger *zap.Logger,
) *ArrearsScheduler {
	return &ArrearsScheduler{
		config:     config,
		recomputer: recomputer,
		schools:    schools,
		jobRepo:    jobRepo,
		logger:     logger,
	}
}

// Start starts the background sweep loop
func (s *ArrearsScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	if !s.config.Enabled {
		s.logger.Info("arrears scheduler disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("arrears scheduler started",
		zap.Duration("check_interval", s.config.CheckInterval))
	return nil
}

// Stop stops the scheduler, waiting for an in-flight sweep to finish
func (s *ArrearsScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("arrears scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("arrears scheduler stop timed out")
		return ctx.Err()
	}
}

// TriggerManualRun runs a sweep immediately, outside the ticker cadence.
// Runs on a background context so an HTTP caller disconnecting does not
// cancel the sweep midway.
func (s *ArrearsScheduler) TriggerManualRun() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	go s.runSweep(context.Background())
	return nil
}

// LastRunAt returns when the last sweep started, or nil before the first run
func (s *ArrearsScheduler) LastRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt
}

func (s *ArrearsScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runSweep(ctx)
		}
	}
}

// runSweep recomputes arrears for every school. Per-school failures are
// logged and recorded; the sweep always covers the remaining schools.
func (s *ArrearsScheduler) runSweep(ctx context.Context) {
	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	schoolIDs, err := s.schools.SchoolIDs(ctx)
	if err != nil {
		s.logger.Error("failed to list schools for arrears sweep", zap.Error(err))
		return
	}

	s.logger.Info("arrears sweep started", zap.Int("schools", len(schoolIDs)))

	for _, schoolID := range schoolIDs {
		s.sweepSchool(ctx, schoolID)
	}

	s.logger.Info("arrears sweep completed", zap.Int("schools", len(schoolIDs)))
}

func (s *ArrearsScheduler) sweepSchool(ctx context.Context, schoolID uuid.UUID) {
	jobCtx := ctx
	if s.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}

	var jobID uuid.UUID
	if s.jobRepo != nil {
		var err error
		jobID, err = s.jobRepo.RecordStart(jobCtx, schoolID)
		if err != nil {
			s.logger.Warn("failed to record sweep start",
				zap.String("school_id", schoolID.String()),
				zap.Error(err))
		}
	}

	result, err := s.recomputer.RecomputeAll(jobCtx, schoolID)
	if err != nil {
		s.logger.Error("arrears sweep failed for school",
			zap.String("school_id", schoolID.String()),
			zap.Error(err))
		if s.jobRepo != nil && jobID != uuid.Nil {
			_ = s.jobRepo.RecordComplete(jobCtx, jobID, 0, err.Error())
		}
		return
	}

	if s.jobRepo != nil && jobID != uuid.Nil {
		errMsg := ""
		if len(result.Errors) > 0 {
			errMsg = result.Errors[0]
		}
		_ = s.jobRepo.RecordComplete(jobCtx, jobID, result.Students, errMsg)
	}
}

// GormSchoolSource lists schools from the invoices table. A school with no
// invoices has nothing for the sweep to do, so the distinct set is exactly
// the schools worth visiting.
type GormSchoolSource struct {
	db *gorm.DB
}

// NewGormSchoolSource creates a new GormSchoolSource
func NewGormSchoolSource(db *gorm.DB) *GormSchoolSource {
	return &GormSchoolSource{db: db}
}

// SchoolIDs returns every school holding at least one invoice
func (s *GormSchoolSource) SchoolIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := s.db.WithContext(ctx).
		Table("invoices").
		Distinct("school_id").
		Pluck("school_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

var _ SchoolSource = (*GormSchoolSource)(nil)
