package migrate_test

import (
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/ttml-backend/pkg/migrate"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, migrate.ValidateFS(migrate.Migrations()))

	names, err := fs.Glob(migrate.Migrations(), "*.sql")
	require.NoError(t, err)
	assert.Len(t, names, 4)
}

func TestEmbeddedMatchesSourceDir(t *testing.T) {
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	embedded, err := fs.Glob(migrate.Migrations(), "*.sql")
	require.NoError(t, err)
	require.Len(t, embedded, len(onDisk))
	for i := range onDisk {
		assert.Equal(t, filepath.Base(onDisk[i]), embedded[i])
	}
}

func TestBillingMigrationGuardsQuota(t *testing.T) {
	content := readMigration(t, "*_create_billing_tables.sql")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS subscriptions",
		"letters_remaining integer NOT NULL CHECK (letters_remaining >= 0)",
		"CONSTRAINT employee_coupons_code_key UNIQUE (code)",
		"CONSTRAINT employee_coupons_usage_cap",
		"CREATE TABLE IF NOT EXISTS commissions",
		"CREATE TABLE IF NOT EXISTS refill_history",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestLettersMigrationDeclaresStatusEnum(t *testing.T) {
	content := readMigration(t, "*_create_letters_table.sql")
	assert.Contains(t, content, "CREATE TYPE letter_status AS ENUM ('draft', 'generating', 'completed', 'failed')")
}

func TestValidateFSReportsEveryProblem(t *testing.T) {
	const ok = "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose StatementEnd\n-- +goose Down\nSELECT 1;\n"
	fsys := fstest.MapFS{
		"create_things.sql":             {Data: []byte(ok)},
		"20260101000000_a.sql":          {Data: []byte(ok)},
		"20260101000000_b.sql":          {Data: []byte(ok)},
		"20260102000000_no_down.sql":    {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		"20260103000000_open_block.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n")},
		"20260104000000_stray_end.sql":  {Data: []byte("-- +goose Up\n-- +goose StatementEnd\n-- +goose Down\n")},
		"README.md":                     {Data: []byte("ignored")},
	}

	err := migrate.ValidateFS(fsys)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 6)
	joined := err.Error()
	assert.Contains(t, joined, "create_things.sql: expected YYYYMMDDHHMMSS_name.sql")
	assert.Contains(t, joined, "version 20260101000000 already used")
	assert.Contains(t, joined, "20260102000000_no_down.sql: want one Up and one Down section")
	assert.Contains(t, joined, "20260103000000_open_block.sql:4: Down begins inside an open statement block")
	assert.Contains(t, joined, "20260104000000_stray_end.sql:2: StatementEnd without StatementBegin")
	assert.NotContains(t, joined, "README")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	first, err := migrate.CreateSQLMigration(dir, "Add Letter Index!", now)
	require.NoError(t, err)
	assert.Equal(t, "20261015093000_add_letter_index.sql", filepath.Base(first))

	second, err := migrate.CreateSQLMigration(dir, "add coupon index", now)
	require.NoError(t, err)
	assert.Equal(t, "20261015093001_add_coupon_index.sql", filepath.Base(second))

	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "!!!", now)
	assert.Error(t, err)
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := fs.Glob(migrate.Migrations(), pattern)
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no migration matching %s", pattern)
	data, err := fs.ReadFile(migrate.Migrations(), matches[0])
	require.NoError(t, err)
	return strings.TrimSpace(string(data))
}
