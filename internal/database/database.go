package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	DB *gorm.DB
}

func New(databaseURL string) (*Database, error) {
	var db *gorm.DB
	var err error

	dialect := "postgres"
	if strings.HasPrefix(databaseURL, "sqlite://") {
		// SQLite for development
		dialect = "sqlite"
		dbPath := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Warn),
			TranslateError: true,
		})
	} else {
		// PostgreSQL for production
		db, err = gorm.Open(postgres.Open(databaseURL), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Warn),
			TranslateError: true,
		})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Exec(bootstrapSQL(dialect)).Error; err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Database{DB: db}, nil
}

// bootstrapSQL renders the schema for the active dialect. Integer primary
// keys must be DB-generated because gorm omits them from its INSERTs: SQLite
// fills them from its rowid alias, Postgres needs the identity spelled out.
func bootstrapSQL(dialect string) string {
	generatedPK := "INTEGER PRIMARY KEY"
	if dialect == "postgres" {
		generatedPK = "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
	}
	return fmt.Sprintf(schemaTemplate, generatedPK, generatedPK, generatedPK)
}

const schemaTemplate = `
	CREATE TABLE IF NOT EXISTS migration_jobs (
		id TEXT PRIMARY KEY,
		entity_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		scope_page INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL DEFAULT 0,
		processed INTEGER NOT NULL DEFAULT 0,
		successful INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		current_item TEXT,
		message TEXT,
		cancel_requested BOOLEAN NOT NULL DEFAULT false,
		started_at TIMESTAMP,
		completed_at TIMESTAMP,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS uq_one_active_job
		ON migration_jobs (status)
		WHERE status IN ('pending', 'processing');

	CREATE TABLE IF NOT EXISTS migration_errors (
		id %s,
		job_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS external_id_mappings (
		id %s,
		entity_type TEXT NOT NULL,
		external_id TEXT NOT NULL,
		local_id TEXT NOT NULL,
		created_at TIMESTAMP,
		CONSTRAINT uq_entity_external UNIQUE (entity_type, external_id)
	);

	CREATE TABLE IF NOT EXISTS migration_log_entries (
		id %s,
		entity_type TEXT NOT NULL,
		external_id TEXT NOT NULL,
		status TEXT NOT NULL,
		message TEXT,
		created_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		sku TEXT NOT NULL,
		name TEXT NOT NULL,
		slug TEXT NOT NULL,
		description TEXT,
		short_description TEXT,
		price DECIMAL(12,4),
		stock_quantity INTEGER NOT NULL DEFAULT 0,
		in_stock BOOLEAN NOT NULL DEFAULT true,
		visible BOOLEAN NOT NULL DEFAULT true,
		category_ids TEXT,
		images TEXT,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL,
		description TEXT,
		parent_id TEXT,
		active BOOLEAN NOT NULL DEFAULT true,
		include_in_menu BOOLEAN NOT NULL DEFAULT true,
		position INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		first_name TEXT,
		last_name TEXT,
		customer_group TEXT,
		addresses TEXT,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		increment_id TEXT NOT NULL,
		status TEXT,
		state TEXT,
		subtotal DECIMAL(12,4),
		shipping_amount DECIMAL(12,4),
		tax_amount DECIMAL(12,4),
		grand_total DECIMAL(12,4),
		customer_id TEXT,
		billing_address TEXT,
		shipping_address TEXT,
		items TEXT,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	);
`

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
