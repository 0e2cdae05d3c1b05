package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntityKind identifies one of the four migratable entity types.
type EntityKind string

const (
	KindProducts   EntityKind = "products"
	KindCategories EntityKind = "categories"
	KindCustomers  EntityKind = "customers"
	KindOrders     EntityKind = "orders"
)

func AllEntityKinds() []EntityKind {
	return []EntityKind{KindProducts, KindCategories, KindCustomers, KindOrders}
}

func ParseEntityKind(s string) (EntityKind, bool) {
	switch EntityKind(s) {
	case KindProducts, KindCategories, KindCustomers, KindOrders:
		return EntityKind(s), true
	}
	return "", false
}

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal jobs are never
// mutated again; a re-run is a brand-new job with a new ID.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// MigrationJob is the singleton "current migration" record. At most one row
// may be in a non-terminal status at any time.
type MigrationJob struct {
	ID              string     `json:"id" gorm:"primary_key"`
	EntityType      EntityKind `json:"entity_type" gorm:"not null"`
	Status          JobStatus  `json:"status" gorm:"not null;default:pending"`
	ScopePage       int        `json:"scope_page"` // 0 = all pages
	Total           int        `json:"total"`
	Processed       int        `json:"processed"`
	Successful      int        `json:"successful"`
	Failed          int        `json:"failed"`
	CurrentItem     string     `json:"current_item"`
	Message         string     `json:"message"`
	CancelRequested bool       `json:"cancel_requested"`
	StartedAt       *time.Time `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (j *MigrationJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	return nil
}

// MigrationError is one item-level failure within a run.
type MigrationError struct {
	ID        uint      `json:"-" gorm:"primary_key"`
	JobID     string    `json:"-" gorm:"not null;index"`
	ItemID    string    `json:"item_id" gorm:"not null"`
	Message   string    `json:"message" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// ExternalIDMapping associates a source-system entity with the local record
// created for it. Unique per (entity_type, external_id); this is what makes
// re-running a migration idempotent.
type ExternalIDMapping struct {
	ID         uint       `json:"-" gorm:"primary_key"`
	EntityType EntityKind `json:"entity_type" gorm:"not null;uniqueIndex:uq_entity_external"`
	ExternalID string     `json:"external_id" gorm:"not null;uniqueIndex:uq_entity_external"`
	LocalID    string     `json:"local_id" gorm:"not null"`
	CreatedAt  time.Time  `json:"created_at"`
}

type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogError   LogStatus = "error"
	LogWarning LogStatus = "warning"
)

// MigrationLogEntry is the per-item audit trail, purged past the retention
// window.
type MigrationLogEntry struct {
	ID         uint       `json:"-" gorm:"primary_key"`
	EntityType EntityKind `json:"entity_type" gorm:"not null;index"`
	ExternalID string     `json:"external_id" gorm:"not null"`
	Status     LogStatus  `json:"status" gorm:"not null"`
	Message    string     `json:"message"`
	CreatedAt  time.Time  `json:"created_at"`
}
