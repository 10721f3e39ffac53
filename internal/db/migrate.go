package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
		id              INTEGER PRIMARY KEY,
		name            TEXT NOT NULL,
		position_id     INTEGER NOT NULL DEFAULT 0,
		floor_id        INTEGER NOT NULL DEFAULT 0,
		building_id     INTEGER NOT NULL DEFAULT 0,
		territory_id    INTEGER NOT NULL DEFAULT 0,
		map             TEXT NOT NULL DEFAULT '',
		info_pixel      TEXT,
		info_meter      TEXT,
		surface_type    TEXT NOT NULL DEFAULT '',
		cleaning_method INTEGER NOT NULL DEFAULT 0
		                CHECK(cleaning_method IN (0, 1)),
		surface_area    REAL NOT NULL DEFAULT 0,
		trashcan_count  INTEGER NOT NULL DEFAULT 0,
		scheduled_days  TEXT NOT NULL DEFAULT '[]'
	)`,

	`CREATE TABLE IF NOT EXISTS room_datestamps (
		room_id INTEGER NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		slot    INTEGER NOT NULL CHECK(slot >= 0 AND slot < 14),
		stamp   TEXT NOT NULL,
		PRIMARY KEY (room_id, slot)
	)`,

	`CREATE TABLE IF NOT EXISTS room_issues (
		room_id     INTEGER NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		issue_id    INTEGER NOT NULL,
		issue_type  INTEGER NOT NULL DEFAULT 0,
		images      TEXT NOT NULL DEFAULT '[]',
		x           REAL NOT NULL DEFAULT 0,
		y           REAL NOT NULL DEFAULT 0,
		z           REAL NOT NULL DEFAULT 0,
		detected_at TEXT NOT NULL,
		PRIMARY KEY (room_id, issue_id)
	)`,

	`CREATE TABLE IF NOT EXISTS assignments (
		week_type      INTEGER NOT NULL CHECK(week_type IN (0, 1)),
		week_day       INTEGER NOT NULL CHECK(week_day >= 0 AND week_day < 7),
		last_completed TEXT,
		PRIMARY KEY (week_type, week_day)
	)`,

	`CREATE TABLE IF NOT EXISTS assignment_rooms (
		week_type INTEGER NOT NULL,
		week_day  INTEGER NOT NULL,
		kind      TEXT NOT NULL CHECK(kind IN ('cleaning','trash')),
		room_id   INTEGER NOT NULL,
		position  INTEGER NOT NULL,
		PRIMARY KEY (week_type, week_day, kind, room_id),
		FOREIGN KEY (week_type, week_day) REFERENCES assignments(week_type, week_day) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS log_entries (
		id                   TEXT PRIMARY KEY,
		room_id              INTEGER NOT NULL,
		status               INTEGER NOT NULL CHECK(status BETWEEN 1 AND 4),
		tasks                TEXT NOT NULL DEFAULT '[]',
		found_dirtspots      INTEGER NOT NULL DEFAULT 0,
		found_trashcans      INTEGER NOT NULL DEFAULT 0,
		cleaned_surface_area REAL NOT NULL DEFAULT 0,
		reason               TEXT NOT NULL DEFAULT '',
		created_at           TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_log_entries_room ON log_entries(room_id)`,
	`CREATE INDEX IF NOT EXISTS idx_log_entries_created ON log_entries(created_at)`,

	`CREATE TABLE IF NOT EXISTS global_settings (
		id                        INTEGER PRIMARY KEY CHECK(id = 1),
		auto_complete_overdue     INTEGER NOT NULL DEFAULT 1,
		max_aux_time_sec          INTEGER NOT NULL DEFAULT 0,
		assignment_timedelta_days REAL NOT NULL DEFAULT 14
	)`,

	`CREATE TABLE IF NOT EXISTS documents (
		name       TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS checkpoints (
		id       INTEGER PRIMARY KEY CHECK(id = 1),
		payload  TEXT NOT NULL,
		saved_at TEXT NOT NULL
	)`,

	// Consumption metrics were added after the first release.
	`ALTER TABLE log_entries ADD COLUMN used_water_amount REAL NOT NULL DEFAULT 0`,
	`ALTER TABLE log_entries ADD COLUMN battery_usage REAL NOT NULL DEFAULT 0`,
	`ALTER TABLE rooms ADD COLUMN open_tasks TEXT NOT NULL DEFAULT '[]'`,
}
