package migration_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"magewoo/internal/database"
	"magewoo/internal/migration"
	"magewoo/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.DB
}

func TestStartAndClaim(t *testing.T) {
	jobs := migration.NewJobStore(newTestDB(t))

	job, err := jobs.Start(models.KindProducts, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.JobPending, job.Status)

	claimed, err := jobs.Claim(job.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	got, err := jobs.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobProcessing, got.Status)
	assert.NotNil(t, got.StartedAt)

	// A duplicate trigger must not claim the job twice.
	claimed, err = jobs.Claim(job.ID)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestStartRejectsWhileActive(t *testing.T) {
	jobs := migration.NewJobStore(newTestDB(t))

	job, err := jobs.Start(models.KindProducts, 0)
	require.NoError(t, err)

	_, err = jobs.Start(models.KindCategories, 0)
	assert.ErrorIs(t, err, migration.ErrJobAlreadyRunning, "pending job holds the slot")

	_, err = jobs.Claim(job.ID)
	require.NoError(t, err)
	_, err = jobs.Start(models.KindCategories, 0)
	assert.ErrorIs(t, err, migration.ErrJobAlreadyRunning, "processing job holds the slot")

	require.NoError(t, jobs.Finish(job.ID, models.JobCompleted, "done"))
	_, err = jobs.Start(models.KindCategories, 0)
	assert.NoError(t, err, "terminal job frees the slot")
}

func TestActiveSlotEnforcedBySchema(t *testing.T) {
	db := newTestDB(t)
	jobs := migration.NewJobStore(db)

	_, err := jobs.Start(models.KindProducts, 0)
	require.NoError(t, err)

	// Insert directly, bypassing Start's count check, the way a racing
	// transaction would: the unique index on active status must refuse it.
	err = db.Create(&models.MigrationJob{
		EntityType: models.KindOrders,
		Status:     models.JobPending,
	}).Error
	assert.Error(t, err, "a second pending row must not exist")
}

func TestFailStale(t *testing.T) {
	jobs := migration.NewJobStore(newTestDB(t))

	job, err := jobs.Start(models.KindProducts, 0)
	require.NoError(t, err)
	_, err = jobs.Claim(job.ID)
	require.NoError(t, err)

	n, err := jobs.FailStale("worker restarted")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := jobs.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, got.Status)
	assert.Equal(t, "worker restarted", got.Message)
	assert.NotNil(t, got.CompletedAt)

	_, err = jobs.Start(models.KindProducts, 0)
	assert.NoError(t, err, "the slot is free again")

	// Nothing processing means nothing to fail.
	n, err = jobs.FailStale("worker restarted")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFinishRequiresProcessing(t *testing.T) {
	jobs := migration.NewJobStore(newTestDB(t))

	job, err := jobs.Start(models.KindOrders, 0)
	require.NoError(t, err)

	err = jobs.Finish(job.ID, models.JobCompleted, "done")
	assert.Error(t, err, "pending job cannot be finished")

	_, err = jobs.Claim(job.ID)
	require.NoError(t, err)
	require.NoError(t, jobs.Finish(job.ID, models.JobFailed, "source went away"))

	// Terminal rows are never overwritten.
	err = jobs.Finish(job.ID, models.JobCompleted, "done")
	assert.Error(t, err)

	got, err := jobs.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, got.Status)
	assert.Equal(t, "source went away", got.Message)
	assert.NotNil(t, got.CompletedAt)
}

func TestRequestCancel(t *testing.T) {
	jobs := migration.NewJobStore(newTestDB(t))

	assert.ErrorIs(t, jobs.RequestCancel(), migration.ErrNoActiveJob)

	job, err := jobs.Start(models.KindCustomers, 0)
	require.NoError(t, err)
	_, err = jobs.Claim(job.ID)
	require.NoError(t, err)

	require.NoError(t, jobs.RequestCancel())
	cancelled, err := jobs.CancelRequested(job.ID)
	require.NoError(t, err)
	assert.True(t, cancelled)
}

func TestAbortPendingJob(t *testing.T) {
	jobs := migration.NewJobStore(newTestDB(t))

	job, err := jobs.Start(models.KindProducts, 0)
	require.NoError(t, err)
	require.NoError(t, jobs.Abort(job.ID, "trigger enqueue failed"))

	got, err := jobs.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, got.Status)

	claimed, err := jobs.Claim(job.ID)
	require.NoError(t, err)
	assert.False(t, claimed, "aborted job is not claimable")
}

func TestCurrentBoundsRecentErrors(t *testing.T) {
	db := newTestDB(t)
	jobs := migration.NewJobStore(db)

	job, err := jobs.Start(models.KindProducts, 0)
	require.NoError(t, err)
	_, err = jobs.Claim(job.ID)
	require.NoError(t, err)

	for i := 0; i < 15; i++ {
		require.NoError(t, jobs.RecordError(job.ID, fmt.Sprintf("sku-%d", i), "boom"))
	}
	require.NoError(t, jobs.UpdateProgress(job.ID, 100, 15, 0, 15, "sku-14"))

	got, recent, err := jobs.Current()
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, 15, got.Failed)
	assert.Len(t, recent, 10, "progress endpoint sees a bounded error slice")

	var stored int64
	require.NoError(t, db.Model(&models.MigrationError{}).Count(&stored).Error)
	assert.EqualValues(t, 15, stored, "full error list stays in storage")
}

func TestCurrentWithNoJobs(t *testing.T) {
	jobs := migration.NewJobStore(newTestDB(t))
	_, _, err := jobs.Current()
	assert.ErrorIs(t, err, migration.ErrNoJob)
}

func TestPurgeLogs(t *testing.T) {
	db := newTestDB(t)
	jobs := migration.NewJobStore(db)

	require.NoError(t, jobs.AppendLog(models.KindProducts, "1", models.LogSuccess, ""))
	require.NoError(t, jobs.AppendLog(models.KindProducts, "2", models.LogError, "boom"))

	// Age one entry past the retention window.
	old := time.Now().Add(-40 * 24 * time.Hour)
	require.NoError(t, db.Model(&models.MigrationLogEntry{}).
		Where("external_id = ?", "1").
		Update("created_at", old).Error)

	purged, err := jobs.PurgeLogs(time.Now().Add(-30 * 24 * time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	var remaining int64
	require.NoError(t, db.Model(&models.MigrationLogEntry{}).Count(&remaining).Error)
	assert.EqualValues(t, 1, remaining)
}
