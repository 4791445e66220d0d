package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	tables := []string{
		"sessions",
		"journal",
		"api_keys",
	}

	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}
}

func TestMigrations_Idempotent(t *testing.T) {
	db := NewTestDB(t)
	require.NoError(t, db.RunMigrations())
}

// TestSessionsTable verifies the sessions table constraints
func TestSessionsTable(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO sessions (id, tenant_id, status) VALUES (?, ?, ?)`,
		"s1", "tenant1", "active")
	require.NoError(t, err)

	// same id is allowed for another tenant
	_, err = db.ExecContext(ctx,
		`INSERT INTO sessions (id, tenant_id, status) VALUES (?, ?, ?)`,
		"s1", "tenant2", "active")
	require.NoError(t, err)

	var states, timeline string
	err = db.QueryRowContext(ctx,
		`SELECT states, timeline FROM sessions WHERE id = ? AND tenant_id = ?`,
		"s1", "tenant1").Scan(&states, &timeline)
	require.NoError(t, err)
	require.Equal(t, "[]", states)
	require.Equal(t, "[]", timeline)

	_, err = db.ExecContext(ctx,
		`INSERT INTO sessions (id, tenant_id, status) VALUES (?, ?, ?)`,
		"s2", "tenant1", "stale")
	require.Error(t, err, "should fail with invalid status")
}
