package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-booking-engine/internal/db/migrations"
)

func TestMigrationsArePaired(t *testing.T) {
	names, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, n := range names {
		switch {
		case strings.HasSuffix(n, ".up.sql"):
			ups[strings.TrimSuffix(n, ".up.sql")] = true
		case strings.HasSuffix(n, ".down.sql"):
			downs[strings.TrimSuffix(n, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %s", n)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestInitMigrationGuardsLiveSlots(t *testing.T) {
	body, err := fs.ReadFile(migrations.FS, "000001_init.up.sql")
	require.NoError(t, err)
	sql := string(body)

	assert.Contains(t, sql, "CREATE UNIQUE INDEX IF NOT EXISTS appointments_live_slot_key")
	assert.Contains(t, sql, "WHERE status IN ('pending', 'confirmed', 'arrived')")
	for _, table := range []string{"providers", "exception_days", "appointments", "event_logs"} {
		assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+table)
	}
}
