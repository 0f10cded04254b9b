package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	require.Equal(t, "001_initial", migrations[0].version)
	require.Contains(t, migrations[0].sql, "CREATE TABLE IF NOT EXISTS profiles")

	for i := 1; i < len(migrations); i++ {
		require.Less(t, migrations[i-1].version, migrations[i].version)
	}
}

func TestEnsureSchemaRequiresPool(t *testing.T) {
	var db *DB
	require.ErrorIs(t, db.EnsureSchema(context.Background()), errNoPool)
	require.Error(t, (&DB{}).EnsureSchema(context.Background()))
}
