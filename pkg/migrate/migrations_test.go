package migrate

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/memorial-backend/pkg/db/dbtest"
	"github.com/angelmondragon/memorial-backend/pkg/db/models"
)

func readEmbedded(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := fs.Glob(Files(), "migrations/*"+suffix)
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected exactly one migration ending in %s", suffix)
	b, err := fs.ReadFile(Files(), matches[0])
	require.NoError(t, err)
	return string(b)
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateFS(Files(), embeddedDir))
	require.NoError(t, ValidateDir("migrations"))
}

func TestCandleMigrationEnforcesOnePerVisitor(t *testing.T) {
	sql := readEmbedded(t, "_create_candles.sql")
	require.Contains(t, sql, "CONSTRAINT "+models.CandleVisitorIndex+" UNIQUE (memorial_id, visitor_id)")
	require.Contains(t, sql, "ON DELETE CASCADE")
}

func TestSubscriptionMigrationGuardsDoubleConfirm(t *testing.T) {
	sql := readEmbedded(t, "_create_subscriptions.sql")
	require.Contains(t, sql, "CONSTRAINT "+models.SubscriptionPaymentIndex+" UNIQUE (payment_id)")
}

func TestMemorialMigrationTierChecks(t *testing.T) {
	sql := readEmbedded(t, "_create_memorials.sql")
	for _, want := range []string{
		"CHECK (tier IN ('temporary', 'active', 'permanent'))",
		"tier <> 'temporary' OR expires_at IS NOT NULL",
		"tier <> 'permanent' OR expires_at IS NULL",
		"jsonb_array_length(timeline) <= 20",
	} {
		require.True(t, strings.Contains(sql, want), "missing %q", want)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestValidateDirRejectsMissingDown(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_x.sql"), []byte("-- +goose Up\n"), 0o644))
	err := ValidateDir(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Down")
}

func TestValidateDirRejectsUnbalancedStatements(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_x.sql"), []byte(body), 0o644))
	err := ValidateDir(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "StatementEnd")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Memorial Slug!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_memorial_slug.sql"))
	require.NoError(t, ValidateDir(dir))
}

func TestPrepareSQLiteIsRepeatable(t *testing.T) {
	client := dbtest.Client(t)
	ctx := context.Background()
	require.NoError(t, Prepare(ctx, nil, nil, client))
	require.NoError(t, Prepare(ctx, nil, nil, client))
	require.True(t, client.DB().Migrator().HasTable(&models.Candle{}))
}
