package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapSQLPostgresGeneratesIntegerIDs(t *testing.T) {
	sql := bootstrapSQL("postgres")

	// gorm omits integer primary keys from its INSERTs, so every one of the
	// three auto-id tables needs a DB-side identity.
	assert.Equal(t, 3, strings.Count(sql, "GENERATED BY DEFAULT AS IDENTITY"))
	assert.NotContains(t, sql, "id INTEGER PRIMARY KEY")
}

func TestBootstrapSQLSQLiteUsesRowidAlias(t *testing.T) {
	sql := bootstrapSQL("sqlite")

	assert.Equal(t, 3, strings.Count(sql, "id INTEGER PRIMARY KEY"))
	assert.NotContains(t, sql, "IDENTITY")
}

func TestBootstrapSQLDeclaresActiveJobSlotIndex(t *testing.T) {
	for _, dialect := range []string{"postgres", "sqlite"} {
		assert.Contains(t, bootstrapSQL(dialect), "uq_one_active_job", dialect)
	}
}

func TestNewBootstrapsSQLite(t *testing.T) {
	db, err := New("sqlite://file:TestNewBootstrapsSQLite?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// The generated id must come back from the driver, not stay zero.
	type row struct{ ID int64 }
	require.NoError(t, db.DB.Exec(
		`INSERT INTO external_id_mappings (entity_type, external_id, local_id) VALUES ('products', '1', 'abc')`,
	).Error)
	var got row
	require.NoError(t, db.DB.Raw(`SELECT id FROM external_id_mappings WHERE external_id = '1'`).Scan(&got).Error)
	assert.NotZero(t, got.ID)
}
