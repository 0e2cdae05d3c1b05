// Package migration contains the paginated migration engine: the job store,
// the orchestrator that drives one run end to end, and the per-entity
// normalizers that map raw Magento records into local catalog entities.
package migration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"magewoo/internal/logger"
	"magewoo/internal/models"
)

// ErrPageMalformed marks a page whose payload could not be decoded. The
// orchestrator logs it and treats the page as empty instead of failing the
// run; transport errors stay fatal.
var ErrPageMalformed = errors.New("malformed source page")

// ItemResult describes one processed item.
type ItemResult struct {
	ExternalID string
	Label      string
	Warnings   []string
}

// FetchFunc returns one page of raw records plus the remote total. The total
// comes from an untrusted counter and is advisory only.
type FetchFunc func(ctx context.Context, page, limit int) ([]json.RawMessage, int, error)

// ProcessFunc normalizes and upserts a single raw record. An error is an
// item-level failure and never aborts the page.
type ProcessFunc func(ctx context.Context, raw json.RawMessage) (ItemResult, error)

// Pipeline is the per-entity-kind pair of fetch and process functions the
// orchestrator is parameterized with.
type Pipeline struct {
	Kind    models.EntityKind
	Fetch   FetchFunc
	Process ProcessFunc
}

// jobState is the slice of the job store the orchestrator writes through.
type jobState interface {
	UpdateProgress(jobID string, total, processed, successful, failed int, currentItem string) error
	RecordError(jobID, itemID, message string) error
	Finish(jobID string, status models.JobStatus, message string) error
	CancelRequested(jobID string) (bool, error)
	AppendLog(kind models.EntityKind, externalID string, status models.LogStatus, message string) error
	PurgeLogs(olderThan time.Time) (int64, error)
}

// Options are the tuning knobs for a run. The empty-page threshold and page
// scan bound are heuristics against a lying remote counter, not invariants.
type Options struct {
	BatchSize          int
	EmptyPageThreshold int
	MaxPageScan        int
	LogRetentionDays   int
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 20
	}
	if o.EmptyPageThreshold <= 0 {
		o.EmptyPageThreshold = 3
	}
	if o.MaxPageScan <= 0 {
		o.MaxPageScan = 10000
	}
	if o.LogRetentionDays <= 0 {
		o.LogRetentionDays = 30
	}
	return o
}

// Orchestrator drives one migration run for one entity type. It owns the
// page loop, the counters, and the terminal transition; it assumes the job
// was already claimed into processing.
type Orchestrator struct {
	jobs   jobState
	opts   Options
	logger *logger.Logger
}

func NewOrchestrator(jobs jobState, opts Options, logger *logger.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:   jobs,
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// Run executes the migration until the source is exhausted, the scope page is
// done, cancellation is observed, or a fatal error occurs. Item failures are
// isolated; already-committed items are never rolled back.
func (o *Orchestrator) Run(ctx context.Context, job *models.MigrationJob, p *Pipeline) error {
	var (
		total      = job.Total
		processed  int
		successful int
		failed     int
	)

	page := 1
	singlePage := job.ScopePage > 0
	if singlePage {
		page = job.ScopePage
	}

	emptyStreak := 0
	fetched := 0

	for {
		cancelled, err := o.cancelled(ctx, job.ID)
		if err != nil {
			return o.fail(job, fmt.Errorf("cancellation check failed: %w", err))
		}
		if cancelled {
			o.logger.Info("Migration %s cancelled after %d items", job.ID, processed)
			return o.jobs.Finish(job.ID, models.JobCancelled,
				fmt.Sprintf("cancelled after %d of %d items", processed, total))
		}

		records, remoteTotal, err := p.Fetch(ctx, page, o.opts.BatchSize)
		if errors.Is(err, ErrPageMalformed) {
			// A bad payload counts as an empty page; persistent garbage
			// trips the empty-streak guard below.
			o.logger.Warn("Malformed %s page %d, treating as empty", p.Kind, page)
			o.appendLog(p.Kind, fmt.Sprintf("page-%d", page), models.LogWarning, "malformed page payload, treated as empty")
			records = nil
		} else if err != nil {
			// Transport failures after a clean pre-flight mean the source
			// went away; the run cannot continue.
			return o.fail(job, fmt.Errorf("page %d fetch failed: %w", page, err))
		}
		fetched++

		if singlePage {
			total = len(records)
		} else if remoteTotal > 0 {
			total = remoteTotal
		}

		for _, raw := range records {
			result, perr := p.Process(ctx, raw)
			processed++
			if total > 0 && processed > total {
				// The remote counter undercounted; keep processed <= total.
				total = processed
			}

			item := result.Label
			if item == "" {
				item = result.ExternalID
			}

			if perr != nil {
				failed++
				if err := o.jobs.RecordError(job.ID, item, perr.Error()); err != nil {
					o.logger.Error("Failed to record item error: %v", err)
				}
				o.appendLog(p.Kind, result.ExternalID, models.LogError, perr.Error())
			} else {
				successful++
				o.appendLog(p.Kind, result.ExternalID, models.LogSuccess, "")
			}
			for _, w := range result.Warnings {
				o.appendLog(p.Kind, result.ExternalID, models.LogWarning, w)
			}

			if err := o.jobs.UpdateProgress(job.ID, total, processed, successful, failed, item); err != nil {
				o.logger.Error("Failed to persist progress: %v", err)
			}
		}

		if err := o.jobs.UpdateProgress(job.ID, total, processed, successful, failed, ""); err != nil {
			o.logger.Error("Failed to persist progress: %v", err)
		}

		if singlePage {
			break
		}

		if len(records) == 0 {
			emptyStreak++
		} else {
			emptyStreak = 0
		}
		if emptyStreak >= o.opts.EmptyPageThreshold {
			o.logger.Warn("Stopping %s migration after %d consecutive empty pages (remote total %d)",
				p.Kind, emptyStreak, total)
			break
		}

		morePages := total > 0 && page*o.opts.BatchSize < total
		if !morePages && len(records) < o.opts.BatchSize {
			break
		}

		if fetched >= o.opts.MaxPageScan {
			o.logger.Warn("Stopping %s migration at page scan bound %d", p.Kind, o.opts.MaxPageScan)
			break
		}
		page++
	}

	retention := time.Duration(o.opts.LogRetentionDays) * 24 * time.Hour
	if purged, err := o.jobs.PurgeLogs(time.Now().Add(-retention)); err != nil {
		o.logger.Error("Audit log purge failed: %v", err)
	} else if purged > 0 {
		o.logger.Debug("Purged %d audit log entries", purged)
	}

	msg := fmt.Sprintf("migrated %d of %d items (%d failed)", successful, total, failed)
	o.logger.Info("Migration %s completed: %s", job.ID, msg)
	return o.jobs.Finish(job.ID, models.JobCompleted, msg)
}

func (o *Orchestrator) cancelled(ctx context.Context, jobID string) (bool, error) {
	if ctx.Err() != nil {
		return true, nil
	}
	return o.jobs.CancelRequested(jobID)
}

func (o *Orchestrator) fail(job *models.MigrationJob, cause error) error {
	o.logger.Error("Migration %s failed: %v", job.ID, cause)
	if err := o.jobs.Finish(job.ID, models.JobFailed, cause.Error()); err != nil {
		o.logger.Error("Failed to finalize job %s: %v", job.ID, err)
	}
	return cause
}

func (o *Orchestrator) appendLog(kind models.EntityKind, externalID string, status models.LogStatus, message string) {
	if externalID == "" {
		externalID = "unknown"
	}
	if err := o.jobs.AppendLog(kind, externalID, status, message); err != nil {
		o.logger.Error("Failed to append audit log: %v", err)
	}
}
