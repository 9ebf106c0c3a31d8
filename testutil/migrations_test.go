package testutil_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/itinerary-planner/migrations"
	"github.com/pkordes/itinerary-planner/testutil"
)

// TestMigrations applies every migration, checks the itineraries schema and
// rolls everything back again. The schema is brought back up afterwards for
// other packages sharing the database. Skipped without TEST_DATABASE_URL.
func TestMigrations(t *testing.T) {
	db := testutil.NewSQLDB(t)
	t.Cleanup(func() { testutil.Migrate(t, db) })

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	require.NoError(t, err, "create goose provider")

	ctx := context.Background()

	// Another package's TestMain may already have migrated this shared
	// database. Start from version 0 so the test is order-independent.
	_, err = provider.DownTo(ctx, 0)
	require.NoError(t, err, "initial reset")

	results, err := provider.Up(ctx)
	require.NoError(t, err, "goose up")
	assert.NotEmpty(t, results, "expected at least one migration to be applied")

	assert.Equal(t, map[string]string{
		"profile_id": "text",
		"data":       "jsonb",
		"updated_at": "timestamp with time zone",
	}, columnTypes(t, db, "itineraries"))

	_, err = provider.DownTo(ctx, 0)
	require.NoError(t, err, "goose down-to 0")
	assert.Empty(t, columnTypes(t, db, "itineraries"), "table should be dropped")
}

func TestNewRedis(t *testing.T) {
	rdb, mr := testutil.NewRedis(t)

	require.NoError(t, rdb.Set(context.Background(), "k", "v", 0).Err())

	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

// columnTypes returns column name -> data type for a table in the public
// schema, or an empty map when the table does not exist.
func columnTypes(t *testing.T, db *sql.DB, table string) map[string]string {
	t.Helper()

	const q = `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public'
		AND   table_name   = $1`
	rows, err := db.QueryContext(context.Background(), q, table)
	require.NoError(t, err, "list columns of %q", table)
	defer rows.Close()

	cols := map[string]string{}
	for rows.Next() {
		var name, typ string
		require.NoError(t, rows.Scan(&name, &typ))
		cols[name] = typ
	}
	require.NoError(t, rows.Err())
	return cols
}
