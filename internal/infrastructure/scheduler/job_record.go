package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobStatus is the lifecycle state of one recorded scheduler run
type JobStatus string

const (
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobRecord tracks one arrears sweep run for a school
type JobRecord struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	SchoolID    uuid.UUID  `gorm:"column:school_id;type:uuid;not null;index"`
	Status      string     `gorm:"column:status;size:20;not null"`
	Error       string     `gorm:"column:error;type:text"`
	Students    int        `gorm:"column:students"`
	StartedAt   time.Time  `gorm:"column:started_at;not null"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

// TableName returns the table name for GORM
func (JobRecord) TableName() string {
	return "arrears_scheduler_jobs"
}

// JobRepository persists scheduler run records
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// RecordStart records the start of a sweep for one school
func (r *JobRepository) RecordStart(ctx context.Context, schoolID uuid.UUID) (uuid.UUID, error) {
	now := time.Now()
	record := &JobRecord{
		ID:        uuid.New(),
		SchoolID:  schoolID,
		Status:    string(JobStatusRunning),
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return uuid.Nil, err
	}
	return record.ID, nil
}

// RecordComplete records the outcome of a sweep
func (r *JobRepository) RecordComplete(ctx context.Context, jobID uuid.UUID, students int, errMsg string) error {
	now := time.Now()
	status := string(JobStatusSuccess)
	if errMsg != "" {
		status = string(JobStatusFailed)
	}
	return r.db.WithContext(ctx).
		Model(&JobRecord{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"status":       status,
			"error":        errMsg,
			"students":     students,
			"completed_at": now,
			"updated_at":   now,
		}).Error
}

// LastRun returns the most recent run record for a school
func (r *JobRepository) LastRun(ctx context.Context, schoolID uuid.UUID) (*JobRecord, error) {
	var record JobRecord
	if err := r.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Order("started_at DESC").
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
