package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/pricewise/pkg/db"
	"github.com/smallbiznis/pricewise/pkg/db/dbtest"
)

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	src, err := Source()
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	next, err := src.Next(first)
	require.NoError(t, err)
	assert.Equal(t, uint(2), next)

	r, identifier, err := src.ReadUp(first)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, "enable_pg_trgm", identifier)
}

func TestItemsMigrationCarriesTrigramIndex(t *testing.T) {
	raw, err := embeddedMigrations.ReadFile("migrations/000003_create_items.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "gin_trgm_ops")
	assert.Contains(t, string(raw), "CREATE TABLE IF NOT EXISTS price_history")
}

func TestRunAutoMigratesOutsidePostgres(t *testing.T) {
	conn := dbtest.Open(t)

	require.NoError(t, Run(conn, db.TypeSQLite))
	for _, table := range []string{"categories", "items", "price_history"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}

func TestRunMigrationsRequiresHandle(t *testing.T) {
	assert.Error(t, RunMigrations(nil))
}
