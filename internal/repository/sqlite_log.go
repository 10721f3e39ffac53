package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/custodian/internal/db"
	"github.com/alexanderramin/custodian/internal/domain"
)

// SQLiteLogRepo implements LogRepo using a SQLite database.
type SQLiteLogRepo struct {
	db db.DBTX
}

// NewSQLiteLogRepo creates a new SQLiteLogRepo.
func NewSQLiteLogRepo(conn db.DBTX) *SQLiteLogRepo {
	return &SQLiteLogRepo{db: conn}
}

const logColumns = `id, room_id, status, tasks, found_dirtspots, found_trashcans,
	cleaned_surface_area, used_water_amount, battery_usage, reason, created_at`

func (r *SQLiteLogRepo) Append(ctx context.Context, e *domain.LogEntry) error {
	tasks, err := encodeJSON(nonNilTasks(e.Tasks))
	if err != nil {
		return fmt.Errorf("log entry %s: %w", e.ID, err)
	}
	query := `INSERT INTO log_entries (` + logColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		e.ID,
		e.RoomID,
		int(e.Status),
		tasks,
		e.FoundDirtspots,
		e.FoundTrashcans,
		e.CleanedSurfaceArea,
		e.UsedWaterAmount,
		e.BatteryUsage,
		e.Reason,
		e.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting log entry: %w", err)
	}
	return nil
}

func (r *SQLiteLogRepo) List(ctx context.Context) ([]*domain.LogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+logColumns+` FROM log_entries ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing log entries: %w", err)
	}
	defer rows.Close()
	return scanLogEntries(rows)
}

func (r *SQLiteLogRepo) ListByRoom(ctx context.Context, roomID int) ([]*domain.LogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+logColumns+` FROM log_entries WHERE room_id = ? ORDER BY created_at, rowid`, roomID)
	if err != nil {
		return nil, fmt.Errorf("listing log entries by room: %w", err)
	}
	defer rows.Close()
	return scanLogEntries(rows)
}

func scanLogEntries(rows *sql.Rows) ([]*domain.LogEntry, error) {
	var entries []*domain.LogEntry
	for rows.Next() {
		var e domain.LogEntry
		var status int
		var tasks, createdAt string
		err := rows.Scan(
			&e.ID, &e.RoomID, &status, &tasks, &e.FoundDirtspots, &e.FoundTrashcans,
			&e.CleanedSurfaceArea, &e.UsedWaterAmount, &e.BatteryUsage, &e.Reason, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		e.Status = domain.LogStatus(status)
		if err := decodeJSON(tasks, &e.Tasks); err != nil {
			return nil, fmt.Errorf("log entry %s tasks: %w", e.ID, err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
