package migration

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"magewoo/internal/models"
)

var (
	// ErrJobAlreadyRunning is returned when a start request arrives while a
	// job is still pending or processing. There is exactly one job slot.
	ErrJobAlreadyRunning = errors.New("a migration is already running")

	// ErrNoActiveJob is returned by cancel when nothing is in flight.
	ErrNoActiveJob = errors.New("no active migration")

	// ErrNoJob is returned by Current when no migration was ever run.
	ErrNoJob = errors.New("no migration job found")
)

// recentErrorLimit bounds the error slice returned with a job snapshot. The
// full list stays in migration_errors.
const recentErrorLimit = 10

// JobStore persists migration jobs, their error lists, and the per-item audit
// log. It enforces the single-active-job invariant: terminal jobs are history,
// and at most one row may be pending or processing.
type JobStore struct {
	db *gorm.DB
}

func NewJobStore(db *gorm.DB) *JobStore {
	return &JobStore{db: db}
}

// Start creates a new pending job, rejecting if another job holds the active
// slot. The check and insert run in one transaction.
func (s *JobStore) Start(kind models.EntityKind, scopePage int) (*models.MigrationJob, error) {
	job := &models.MigrationJob{
		EntityType: kind,
		Status:     models.JobPending,
		ScopePage:  scopePage,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&models.MigrationJob{}).
			Where("status IN ?", []models.JobStatus{models.JobPending, models.JobProcessing}).
			Count(&active).Error; err != nil {
			return fmt.Errorf("failed to check active jobs: %w", err)
		}
		if active > 0 {
			return ErrJobAlreadyRunning
		}
		if err := tx.Create(job).Error; err != nil {
			// Two concurrent starts can both pass the count under read
			// committed; the partial unique index on active status breaks
			// the tie.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrJobAlreadyRunning
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Claim moves a job from pending to processing. Returns false when the job
// was not pending (already claimed, cancelled before pickup, or unknown), so
// a stale trigger message is simply dropped.
func (s *JobStore) Claim(jobID string) (bool, error) {
	now := time.Now()
	res := s.db.Model(&models.MigrationJob{}).
		Where("id = ? AND status = ?", jobID, models.JobPending).
		Updates(map[string]interface{}{
			"status":     models.JobProcessing,
			"started_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim job %s: %w", jobID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *JobStore) Get(jobID string) (*models.MigrationJob, error) {
	var job models.MigrationJob
	if err := s.db.First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoJob
		}
		return nil, err
	}
	return &job, nil
}

// Current returns the latest job and its most recent errors (bounded for the
// progress UI; the full list stays in storage).
func (s *JobStore) Current() (*models.MigrationJob, []models.MigrationError, error) {
	var job models.MigrationJob
	err := s.db.Order("created_at DESC").First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrNoJob
	}
	if err != nil {
		return nil, nil, err
	}

	var errs []models.MigrationError
	if err := s.db.Where("job_id = ?", job.ID).
		Order("created_at DESC").Limit(recentErrorLimit).
		Find(&errs).Error; err != nil {
		return nil, nil, err
	}
	return &job, errs, nil
}

// UpdateProgress persists the counter set. Counters only move forward within
// a run; the reader may see a stale but internally consistent snapshot.
func (s *JobStore) UpdateProgress(jobID string, total, processed, successful, failed int, currentItem string) error {
	return s.db.Model(&models.MigrationJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"total":        total,
			"processed":    processed,
			"successful":   successful,
			"failed":       failed,
			"current_item": currentItem,
		}).Error
}

func (s *JobStore) RecordError(jobID, itemID, message string) error {
	return s.db.Create(&models.MigrationError{
		JobID:   jobID,
		ItemID:  itemID,
		Message: message,
	}).Error
}

// Finish moves a processing job to a terminal status. Terminal rows are never
// touched again.
func (s *JobStore) Finish(jobID string, status models.JobStatus, message string) error {
	if !status.Terminal() {
		return fmt.Errorf("finish with non-terminal status %s", status)
	}
	now := time.Now()
	res := s.db.Model(&models.MigrationJob{}).
		Where("id = ? AND status = ?", jobID, models.JobProcessing).
		Updates(map[string]interface{}{
			"status":       status,
			"message":      message,
			"completed_at": now,
			"current_item": "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("job %s is not processing", jobID)
	}
	return nil
}

// Abort fails a job that never left pending, e.g. when its trigger message
// could not be enqueued.
func (s *JobStore) Abort(jobID, message string) error {
	now := time.Now()
	return s.db.Model(&models.MigrationJob{}).
		Where("id = ? AND status = ?", jobID, models.JobPending).
		Updates(map[string]interface{}{
			"status":       models.JobFailed,
			"message":      message,
			"completed_at": now,
		}).Error
}

// FailStale fails processing rows left behind by a crashed worker. Run at
// worker startup so a mid-run crash never wedges the single job slot.
func (s *JobStore) FailStale(message string) (int64, error) {
	now := time.Now()
	res := s.db.Model(&models.MigrationJob{}).
		Where("status = ?", models.JobProcessing).
		Updates(map[string]interface{}{
			"status":       models.JobFailed,
			"message":      message,
			"completed_at": now,
			"current_item": "",
		})
	return res.RowsAffected, res.Error
}

// RequestCancel flips the cooperative cancellation flag on the active job.
// The orchestrator observes it at the next page boundary.
func (s *JobStore) RequestCancel() error {
	res := s.db.Model(&models.MigrationJob{}).
		Where("status IN ?", []models.JobStatus{models.JobPending, models.JobProcessing}).
		Update("cancel_requested", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoActiveJob
	}
	return nil
}

func (s *JobStore) CancelRequested(jobID string) (bool, error) {
	var job models.MigrationJob
	if err := s.db.Select("cancel_requested").First(&job, "id = ?", jobID).Error; err != nil {
		return false, err
	}
	return job.CancelRequested, nil
}

// AppendLog writes one audit entry for a processed item.
func (s *JobStore) AppendLog(kind models.EntityKind, externalID string, status models.LogStatus, message string) error {
	return s.db.Create(&models.MigrationLogEntry{
		EntityType: kind,
		ExternalID: externalID,
		Status:     status,
		Message:    message,
	}).Error
}

// PurgeLogs drops audit entries older than the cutoff and returns how many
// went away.
func (s *JobStore) PurgeLogs(olderThan time.Time) (int64, error) {
	res := s.db.Where("created_at < ?", olderThan).Delete(&models.MigrationLogEntry{})
	return res.RowsAffected, res.Error
}
