package migration

import (
	"math"
	"time"

	"magewoo/internal/models"
)

// Progress is the snapshot the polling endpoint serves: the persisted job
// plus derived figures. TimeRemaining is advisory only.
type Progress struct {
	Job                  *models.MigrationJob    `json:"job"`
	Percentage           int                     `json:"percentage"`
	SuccessRate          int                     `json:"success_rate"`
	TimeRemainingSeconds *int                    `json:"time_remaining_seconds,omitempty"`
	RecentErrors         []models.MigrationError `json:"recent_errors"`
}

// Snapshot derives the progress view from a job record.
func Snapshot(job *models.MigrationJob, recentErrors []models.MigrationError) *Progress {
	p := &Progress{
		Job:          job,
		RecentErrors: recentErrors,
	}
	if recentErrors == nil {
		p.RecentErrors = []models.MigrationError{}
	}

	if job.Total > 0 {
		p.Percentage = int(math.Round(float64(job.Processed) / float64(job.Total) * 100))
	}
	if job.Processed > 0 {
		p.SuccessRate = int(math.Round(float64(job.Successful) / float64(job.Processed) * 100))
	}

	if job.Status == models.JobProcessing && job.StartedAt != nil && job.Processed > 0 && job.Total > job.Processed {
		elapsed := time.Since(*job.StartedAt).Seconds()
		if elapsed > 0 {
			rate := float64(job.Processed) / elapsed
			if rate > 0 {
				remaining := int(math.Round(float64(job.Total-job.Processed) / rate))
				p.TimeRemainingSeconds = &remaining
			}
		}
	}
	return p
}
