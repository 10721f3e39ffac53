package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/custodian/internal/db"
	"github.com/alexanderramin/custodian/internal/domain"
)

const (
	assignmentKindCleaning = "cleaning"
	assignmentKindTrash    = "trash"
)

// SQLiteAssignmentRepo implements AssignmentRepo using a SQLite database.
type SQLiteAssignmentRepo struct {
	db db.DBTX
}

// NewSQLiteAssignmentRepo creates a new SQLiteAssignmentRepo.
func NewSQLiteAssignmentRepo(conn db.DBTX) *SQLiteAssignmentRepo {
	return &SQLiteAssignmentRepo{db: conn}
}

// Upsert writes the assignment and replaces its room lists, preserving order.
func (r *SQLiteAssignmentRepo) Upsert(ctx context.Context, a *domain.Assignment) error {
	query := `INSERT INTO assignments (week_type, week_day, last_completed) VALUES (?, ?, ?)
		ON CONFLICT(week_type, week_day) DO UPDATE SET last_completed = excluded.last_completed`
	_, err := r.db.ExecContext(ctx, query,
		a.Slot.WeekType, a.Slot.WeekDay, nullableTimeToString(a.LastCompleted, time.RFC3339))
	if err != nil {
		return fmt.Errorf("upserting assignment %s: %w", a.Slot, err)
	}

	_, err = r.db.ExecContext(ctx,
		`DELETE FROM assignment_rooms WHERE week_type = ? AND week_day = ?`,
		a.Slot.WeekType, a.Slot.WeekDay)
	if err != nil {
		return fmt.Errorf("clearing rooms of assignment %s: %w", a.Slot, err)
	}
	if err := r.insertRooms(ctx, a.Slot, assignmentKindCleaning, a.CleaningRooms); err != nil {
		return err
	}
	return r.insertRooms(ctx, a.Slot, assignmentKindTrash, a.TrashRooms)
}

func (r *SQLiteAssignmentRepo) insertRooms(ctx context.Context, slot domain.Slot, kind string, ids []int) error {
	for pos, id := range ids {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO assignment_rooms (week_type, week_day, kind, room_id, position) VALUES (?, ?, ?, ?, ?)`,
			slot.WeekType, slot.WeekDay, kind, id, pos)
		if err != nil {
			return fmt.Errorf("inserting %s room %d of assignment %s: %w", kind, id, slot, err)
		}
	}
	return nil
}

func (r *SQLiteAssignmentRepo) GetBySlot(ctx context.Context, slot domain.Slot) (*domain.Assignment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT week_type, week_day, last_completed FROM assignments WHERE week_type = ? AND week_day = ?`,
		slot.WeekType, slot.WeekDay)
	a, err := scanAssignment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("assignment %s: %w", slot, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning assignment: %w", err)
	}
	if err := r.loadRooms(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// List returns all assignments in calendar order.
func (r *SQLiteAssignmentRepo) List(ctx context.Context) ([]*domain.Assignment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT week_type, week_day, last_completed FROM assignments ORDER BY week_type, week_day`)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	var out []*domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating assignments: %w", err)
	}
	rows.Close()

	for _, a := range out {
		if err := r.loadRooms(ctx, a); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *SQLiteAssignmentRepo) DeleteAll(ctx context.Context) error {
	for _, table := range []string{"assignment_rooms", "assignments"} {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("deleting %s: %w", table, err)
		}
	}
	return nil
}

func (r *SQLiteAssignmentRepo) loadRooms(ctx context.Context, a *domain.Assignment) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, room_id FROM assignment_rooms
		WHERE week_type = ? AND week_day = ? ORDER BY kind, position`,
		a.Slot.WeekType, a.Slot.WeekDay)
	if err != nil {
		return fmt.Errorf("loading rooms of assignment %s: %w", a.Slot, err)
	}
	defer rows.Close()

	a.CleaningRooms = []int{}
	a.TrashRooms = []int{}
	for rows.Next() {
		var kind string
		var id int
		if err := rows.Scan(&kind, &id); err != nil {
			return fmt.Errorf("scanning assignment room: %w", err)
		}
		switch kind {
		case assignmentKindCleaning:
			a.CleaningRooms = append(a.CleaningRooms, id)
		case assignmentKindTrash:
			a.TrashRooms = append(a.TrashRooms, id)
		}
	}
	return rows.Err()
}

func scanAssignment(s rowScanner) (*domain.Assignment, error) {
	var a domain.Assignment
	var last sql.NullString
	if err := s.Scan(&a.Slot.WeekType, &a.Slot.WeekDay, &last); err != nil {
		return nil, err
	}
	a.LastCompleted = parseNullableTime(last, time.RFC3339)
	return &a, nil
}
