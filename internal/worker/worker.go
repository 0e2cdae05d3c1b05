package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"magewoo/internal/config"
	"magewoo/internal/database"
	"magewoo/internal/logger"
	"magewoo/internal/migration"
	"magewoo/internal/models"
	"magewoo/internal/services/magento"
	"magewoo/internal/store"
)

// jobStore is the slice of migration.JobStore the worker drives a run
// through.
type jobStore interface {
	Claim(jobID string) (bool, error)
	Get(jobID string) (*models.MigrationJob, error)
	Finish(jobID string, status models.JobStatus, message string) error
	FailStale(message string) (int64, error)
	UpdateProgress(jobID string, total, processed, successful, failed int, currentItem string) error
	RecordError(jobID, itemID, message string) error
	CancelRequested(jobID string) (bool, error)
	AppendLog(kind models.EntityKind, externalID string, status models.LogStatus, message string) error
	PurgeLogs(olderThan time.Time) (int64, error)
}

// Worker consumes queued migration jobs and runs them one at a time. The
// single consumer group member is what serializes runs process-wide.
type Worker struct {
	config *config.Config
	logger *logger.Logger
	reader *kafka.Reader
	jobs   jobStore
	client *magento.Client
	target *store.Store
}

func New(cfg *config.Config, logger *logger.Logger, db *database.Database) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{cfg.KafkaBrokers},
		GroupID:        "magewoo-worker",
		Topic:          cfg.KafkaTopic,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})

	client := magento.NewClient(cfg.MagentoBaseURL, cfg.MagentoAPIKey,
		time.Duration(cfg.RequestTimeoutSecs)*time.Second, logger)

	return &Worker{
		config: cfg,
		logger: logger,
		reader: reader,
		jobs:   migration.NewJobStore(db.DB),
		client: client,
		target: store.New(db.DB, logger),
	}
}

func (w *Worker) Start() {
	// A crash mid-run leaves the job stuck in processing and the single job
	// slot wedged; fail those leftovers before consuming anything.
	if n, err := w.jobs.FailStale("worker restarted while the migration was running"); err != nil {
		w.logger.Error("Failed to clear stale jobs: %v", err)
	} else if n > 0 {
		w.logger.Warn("Failed %d stale processing job(s) from a previous run", n)
	}

	w.logger.Info("Worker started, waiting for migration jobs...")

	for {
		ctx := context.Background()
		message, err := w.reader.ReadMessage(ctx)
		if err != nil {
			w.logger.Error("Failed to read message: %v", err)
			time.Sleep(time.Second)
			continue
		}

		var msg JobMessage
		if err := json.Unmarshal(message.Value, &msg); err != nil {
			w.logger.Error("Failed to parse job message: %v", err)
			continue
		}

		w.handle(ctx, msg)
	}
}

// handle claims and runs one job. All failure paths are finalized into the
// job row; the consume loop itself never dies over a bad job.
func (w *Worker) handle(ctx context.Context, msg JobMessage) {
	claimed, err := w.jobs.Claim(msg.JobID)
	if err != nil {
		w.logger.Error("Failed to claim job %s: %v", msg.JobID, err)
		return
	}
	if !claimed {
		// Stale or duplicate trigger; the job moved on without us.
		w.logger.Warn("Job %s not claimable, dropping trigger", msg.JobID)
		return
	}

	job, err := w.jobs.Get(msg.JobID)
	if err != nil {
		// The job is already processing; leaving it there would hold the
		// single job slot forever.
		w.logger.Error("Failed to load job %s: %v", msg.JobID, err)
		if ferr := w.jobs.Finish(msg.JobID, models.JobFailed, "failed to load job: "+err.Error()); ferr != nil {
			w.logger.Error("Failed to finalize job %s: %v", msg.JobID, ferr)
		}
		return
	}

	pipeline, err := migration.NewPipeline(job.EntityType, w.client, w.target)
	if err != nil {
		w.logger.Error("Failed to build pipeline for job %s: %v", job.ID, err)
		w.jobs.Finish(job.ID, models.JobFailed, err.Error())
		return
	}

	w.logger.Info("Starting %s migration job %s", job.EntityType, job.ID)

	orch := migration.NewOrchestrator(w.jobs, migration.Options{
		BatchSize:          w.config.BatchSize,
		EmptyPageThreshold: w.config.EmptyPageThreshold,
		MaxPageScan:        w.config.MaxPageScan,
		LogRetentionDays:   w.config.LogRetentionDays,
	}, w.logger)

	if err := orch.Run(ctx, job, pipeline); err != nil {
		w.logger.Error("Migration job %s ended with error: %v", job.ID, err)
	}
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.reader.Close()
}
