package db

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	err := Migrate(db)
	require.NoError(t, err)

	err = Migrate(db)
	require.NoError(t, err)
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	expected := []string{
		"rooms", "room_datestamps", "room_issues",
		"assignments", "assignment_rooms", "log_entries",
		"global_settings", "documents", "checkpoints",
	}
	for _, table := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_CreatesIndexes(t *testing.T) {
	db := openTestDB(t)

	for _, idx := range []string{"idx_log_entries_room", "idx_log_entries_created"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name=?`, idx).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
	}
}

func TestMigrate_ForeignKeysEnabled(t *testing.T) {
	db := openTestDB(t)

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestMigrate_RejectsOutOfRangeSlot(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO assignments (week_type, week_day) VALUES (2, 0)`)
	assert.Error(t, err)
	_, err = db.Exec(`INSERT INTO assignments (week_type, week_day) VALUES (0, 7)`)
	assert.Error(t, err)
	_, err = db.Exec(`INSERT INTO assignments (week_type, week_day) VALUES (1, 6)`)
	assert.NoError(t, err)
}

func TestMigrate_DatestampsCascadeWithRoom(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO rooms (id, name) VALUES (1, 'Kitchen')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO room_datestamps (room_id, slot, stamp) VALUES (1, 3, '2024-01-11_08:00')`)
	require.NoError(t, err)

	_, err = db.Exec(`DELETE FROM rooms WHERE id = 1`)
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM room_datestamps`).Scan(&n))
	assert.Equal(t, 0, n)
}
