// Package store writes migrated entities into the local catalog tables and
// maintains the external-ID mapping that makes repeated migrations idempotent.
package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"magewoo/internal/logger"
	"magewoo/internal/models"
)

// ValidationError marks an upsert rejected because the normalized entity is
// missing required fields. Distinct from transient I/O errors so callers can
// tell a bad record from a bad connection.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

type Store struct {
	db     *gorm.DB
	logger *logger.Logger
}

func New(db *gorm.DB, logger *logger.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// FindLocalID resolves an external identifier to the local record it was
// migrated to, if any.
func (s *Store) FindLocalID(kind models.EntityKind, externalID string) (string, bool, error) {
	var mapping models.ExternalIDMapping
	err := s.db.Where("entity_type = ? AND external_id = ?", kind, externalID).First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("mapping lookup failed: %w", err)
	}
	return mapping.LocalID, true, nil
}

// MigratedCount returns how many entities of a kind have been migrated.
func (s *Store) MigratedCount(kind models.EntityKind) (int64, error) {
	var n int64
	if err := s.db.Model(&models.ExternalIDMapping{}).Where("entity_type = ?", kind).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// UpsertProduct creates or updates a product keyed by its external ID and
// returns the local ID. Calling it again with the same input converges on
// the same row.
func (s *Store) UpsertProduct(externalID string, p *models.Product) (string, error) {
	if p.SKU == "" {
		return "", &ValidationError{Field: "sku", Reason: "must not be empty"}
	}
	if p.Name == "" {
		return "", &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return s.upsert(models.KindProducts, externalID, p, func(localID string) error {
		p.ID = localID
		return s.db.Save(p).Error
	})
}

func (s *Store) UpsertCategory(externalID string, c *models.Category) (string, error) {
	if c.Name == "" {
		return "", &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return s.upsert(models.KindCategories, externalID, c, func(localID string) error {
		c.ID = localID
		return s.db.Save(c).Error
	})
}

func (s *Store) UpsertCustomer(externalID string, c *models.Customer) (string, error) {
	if c.Email == "" {
		return "", &ValidationError{Field: "email", Reason: "must not be empty"}
	}
	return s.upsert(models.KindCustomers, externalID, c, func(localID string) error {
		c.ID = localID
		return s.db.Save(c).Error
	})
}

func (s *Store) UpsertOrder(externalID string, o *models.Order) (string, error) {
	if o.IncrementID == "" {
		return "", &ValidationError{Field: "increment_id", Reason: "must not be empty"}
	}
	return s.upsert(models.KindOrders, externalID, o, func(localID string) error {
		o.ID = localID
		return s.db.Save(o).Error
	})
}

// upsert routes to update when a mapping exists, otherwise creates the record
// and registers the mapping.
func (s *Store) upsert(kind models.EntityKind, externalID string, entity interface{}, save func(localID string) error) (string, error) {
	localID, found, err := s.FindLocalID(kind, externalID)
	if err != nil {
		return "", err
	}
	if found {
		if err := save(localID); err != nil {
			return "", fmt.Errorf("update %s %s failed: %w", kind, externalID, err)
		}
		return localID, nil
	}

	if err := s.db.Create(entity).Error; err != nil {
		return "", fmt.Errorf("create %s %s failed: %w", kind, externalID, err)
	}
	localID = entityID(entity)

	if err := s.saveMapping(kind, externalID, localID); err != nil {
		return "", err
	}
	return localID, nil
}

// saveMapping is insert-or-get: under a concurrent race for the same external
// ID the first insert wins and the loser re-reads it.
func (s *Store) saveMapping(kind models.EntityKind, externalID, localID string) error {
	mapping := models.ExternalIDMapping{
		EntityType: kind,
		ExternalID: externalID,
		LocalID:    localID,
	}
	err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&mapping).Error
	if err != nil {
		return fmt.Errorf("save mapping %s/%s failed: %w", kind, externalID, err)
	}
	return nil
}

func entityID(entity interface{}) string {
	switch e := entity.(type) {
	case *models.Product:
		return e.ID
	case *models.Category:
		return e.ID
	case *models.Customer:
		return e.ID
	case *models.Order:
		return e.ID
	}
	return ""
}
