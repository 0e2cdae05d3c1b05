package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"magewoo/internal/logger"
	"magewoo/internal/migration"
	"magewoo/internal/models"
	"magewoo/internal/worker"
)

// jobStore is the handler-facing slice of migration.JobStore.
type jobStore interface {
	Start(kind models.EntityKind, scopePage int) (*models.MigrationJob, error)
	Abort(jobID, message string) error
	Current() (*models.MigrationJob, []models.MigrationError, error)
	RequestCancel() error
	UpdateProgress(jobID string, total, processed, successful, failed int, currentItem string) error
}

type sourceClient interface {
	Ping(ctx context.Context) error
	Probe(ctx context.Context) error
	Count(ctx context.Context, kind models.EntityKind) (int, error)
}

type statsStore interface {
	MigratedCount(kind models.EntityKind) (int64, error)
}

type jobTrigger interface {
	Enqueue(ctx context.Context, msg worker.JobMessage) error
}

type MigrationHandler struct {
	jobs    jobStore
	source  sourceClient
	target  statsStore
	trigger jobTrigger
	logger  *logger.Logger
}

func NewMigrationHandler(jobs jobStore, source sourceClient, target statsStore, trigger jobTrigger, logger *logger.Logger) *MigrationHandler {
	return &MigrationHandler{
		jobs:    jobs,
		source:  source,
		target:  target,
		trigger: trigger,
		logger:  logger,
	}
}

type startRequest struct {
	Page int `json:"page"` // 0 = migrate all pages
}

// Start validates the source, persists a pending job, and enqueues it for
// the background worker. Returns before the run begins.
func (h *MigrationHandler) Start(c *gin.Context) {
	kind, ok := models.ParseEntityKind(c.Param("type"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown entity type: " + c.Param("type")})
		return
	}

	var req startRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Page < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be >= 1"})
		return
	}

	total, err := migration.Preflight(c.Request.Context(), h.source, kind)
	if err != nil {
		var pf *migration.PreflightError
		if errors.As(err, &pf) {
			c.JSON(http.StatusBadGateway, gin.H{"error": pf.Error(), "stage": pf.Stage})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	job, err := h.jobs.Start(kind, req.Page)
	if err != nil {
		if errors.Is(err, migration.ErrJobAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create migration job"})
		return
	}

	// Prime the total from pre-flight so the first progress poll is not 0/0.
	// Single-page runs learn their total from the page itself.
	if req.Page == 0 && total > 0 {
		if err := h.jobs.UpdateProgress(job.ID, total, 0, 0, 0, ""); err != nil {
			h.logger.Error("Failed to prime job total: %v", err)
		}
	}

	if err := h.trigger.Enqueue(c.Request.Context(), worker.JobMessage{
		JobID:      job.ID,
		EntityType: kind,
		ScopePage:  req.Page,
	}); err != nil {
		h.logger.Error("Failed to enqueue job %s: %v", job.ID, err)
		if aerr := h.jobs.Abort(job.ID, "trigger enqueue failed: "+err.Error()); aerr != nil {
			h.logger.Error("Failed to abort job %s: %v", job.ID, aerr)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to schedule migration"})
		return
	}

	h.logger.Info("Queued %s migration job %s (scope page %d)", kind, job.ID, req.Page)
	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "total": total})
}

// Progress returns the latest job snapshot with derived percentages and the
// most recent errors.
func (h *MigrationHandler) Progress(c *gin.Context) {
	job, recent, err := h.jobs.Current()
	if err != nil {
		if errors.Is(err, migration.ErrNoJob) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no migration has been run"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load migration status"})
		return
	}

	c.JSON(http.StatusOK, migration.Snapshot(job, recent))
}

// Cancel requests cooperative cancellation of the active job.
func (h *MigrationHandler) Cancel(c *gin.Context) {
	if err := h.jobs.RequestCancel(); err != nil {
		if errors.Is(err, migration.ErrNoActiveJob) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to request cancellation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cancellation requested"})
}

type entityStats struct {
	Migrated    int64 `json:"migrated"`
	RemoteTotal int   `json:"remote_total"`
}

// Stats reports migrated vs remote counts per entity type. A dead source
// does not break the response; its totals read -1.
func (h *MigrationHandler) Stats(c *gin.Context) {
	stats := make(map[models.EntityKind]entityStats, 4)

	for _, kind := range models.AllEntityKinds() {
		migrated, err := h.target.MigratedCount(kind)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count migrated entities"})
			return
		}

		remote := -1
		if n, err := h.source.Count(c.Request.Context(), kind); err == nil {
			remote = n
		}
		stats[kind] = entityStats{Migrated: migrated, RemoteTotal: remote}
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

// TestSource runs the pre-flight stages against the configured connector and
// reports each one, for the settings screen's "test connection" button.
func (h *MigrationHandler) TestSource(c *gin.Context) {
	ctx := c.Request.Context()
	result := gin.H{"reachable": false, "authenticated": false, "counts_available": false}

	if err := h.source.Ping(ctx); err != nil {
		result["error"] = err.Error()
		c.JSON(http.StatusOK, result)
		return
	}
	result["reachable"] = true

	if err := h.source.Probe(ctx); err != nil {
		result["error"] = err.Error()
		c.JSON(http.StatusOK, result)
		return
	}
	result["authenticated"] = true

	if _, err := h.source.Count(ctx, models.KindProducts); err != nil {
		result["error"] = err.Error()
		c.JSON(http.StatusOK, result)
		return
	}
	result["counts_available"] = true

	c.JSON(http.StatusOK, result)
}
