package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/custodian/internal/db"
	"github.com/alexanderramin/custodian/internal/domain"
)

// SQLiteRoomRepo implements RoomRepo using a SQLite database.
type SQLiteRoomRepo struct {
	db db.DBTX
}

// NewSQLiteRoomRepo creates a new SQLiteRoomRepo.
func NewSQLiteRoomRepo(conn db.DBTX) *SQLiteRoomRepo {
	return &SQLiteRoomRepo{db: conn}
}

const roomColumns = `id, name, position_id, floor_id, building_id, territory_id, map,
	info_pixel, info_meter, surface_type, cleaning_method, surface_area,
	trashcan_count, scheduled_days, open_tasks`

// Upsert writes the room row and replaces its datestamps and issues.
func (r *SQLiteRoomRepo) Upsert(ctx context.Context, room *domain.Room) error {
	pixel, err := encodeNullableJSON(room.InfoInPixel)
	if err != nil {
		return fmt.Errorf("room %d: %w", room.ID, err)
	}
	meter, err := encodeNullableJSON(room.InfoInMeter)
	if err != nil {
		return fmt.Errorf("room %d: %w", room.ID, err)
	}
	days, err := encodeJSON(nonNilInts(room.ScheduledDays))
	if err != nil {
		return fmt.Errorf("room %d: %w", room.ID, err)
	}
	tasks, err := encodeJSON(nonNilTasks(room.OpenCleaningTasks))
	if err != nil {
		return fmt.Errorf("room %d: %w", room.ID, err)
	}

	query := `INSERT INTO rooms (` + roomColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			position_id = excluded.position_id,
			floor_id = excluded.floor_id,
			building_id = excluded.building_id,
			territory_id = excluded.territory_id,
			map = excluded.map,
			info_pixel = excluded.info_pixel,
			info_meter = excluded.info_meter,
			surface_type = excluded.surface_type,
			cleaning_method = excluded.cleaning_method,
			surface_area = excluded.surface_area,
			trashcan_count = excluded.trashcan_count,
			scheduled_days = excluded.scheduled_days,
			open_tasks = excluded.open_tasks`
	_, err = r.db.ExecContext(ctx, query,
		room.ID,
		room.Name,
		room.PositionID,
		room.FloorID,
		room.BuildingID,
		room.TerritoryID,
		room.Map,
		pixel,
		meter,
		room.SurfaceType,
		int(room.Method),
		room.SurfaceArea,
		room.TrashcanCount,
		days,
		tasks,
	)
	if err != nil {
		return fmt.Errorf("upserting room %d: %w", room.ID, err)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM room_datestamps WHERE room_id = ?`, room.ID); err != nil {
		return fmt.Errorf("clearing datestamps of room %d: %w", room.ID, err)
	}
	for slot, ts := range room.CleaningDatestamps {
		if ts == nil {
			continue
		}
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO room_datestamps (room_id, slot, stamp) VALUES (?, ?, ?)`,
			room.ID, slot, ts.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("inserting datestamp %d of room %d: %w", slot, room.ID, err)
		}
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM room_issues WHERE room_id = ?`, room.ID); err != nil {
		return fmt.Errorf("clearing issues of room %d: %w", room.ID, err)
	}
	for _, issue := range room.Issues {
		images, err := encodeJSON(nonNilStrings(issue.Images))
		if err != nil {
			return fmt.Errorf("room %d issue %d: %w", room.ID, issue.ID, err)
		}
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO room_issues (room_id, issue_id, issue_type, images, x, y, z, detected_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			room.ID, issue.ID, issue.Type, images,
			issue.Position.X, issue.Position.Y, issue.Position.Z,
			issue.DetectedAt.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("inserting issue %d of room %d: %w", issue.ID, room.ID, err)
		}
	}
	return nil
}

func (r *SQLiteRoomRepo) GetByID(ctx context.Context, id int) (*domain.Room, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	room, err := scanRoom(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("room %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning room: %w", err)
	}
	if err := r.loadChildren(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// List returns all rooms ordered by id.
func (r *SQLiteRoomRepo) List(ctx context.Context) ([]*domain.Room, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing rooms: %w", err)
	}
	var rooms []*domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating rooms: %w", err)
	}
	rows.Close()

	// Children are loaded after the cursor is closed; in-memory databases
	// run on a single connection.
	for _, room := range rooms {
		if err := r.loadChildren(ctx, room); err != nil {
			return nil, err
		}
	}
	return rooms, nil
}

// DeleteAll removes every room with its datestamps and issues. Children are
// deleted explicitly since foreign keys are only enforced per connection.
func (r *SQLiteRoomRepo) DeleteAll(ctx context.Context) error {
	for _, table := range []string{"room_datestamps", "room_issues", "rooms"} {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("deleting %s: %w", table, err)
		}
	}
	return nil
}

func (r *SQLiteRoomRepo) loadChildren(ctx context.Context, room *domain.Room) error {
	rows, err := r.db.QueryContext(ctx, `SELECT slot, stamp FROM room_datestamps WHERE room_id = ?`, room.ID)
	if err != nil {
		return fmt.Errorf("loading datestamps of room %d: %w", room.ID, err)
	}
	for rows.Next() {
		var slot int
		var stamp string
		if err := rows.Scan(&slot, &stamp); err != nil {
			rows.Close()
			return fmt.Errorf("scanning datestamp: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, stamp)
		if err != nil {
			rows.Close()
			return fmt.Errorf("parsing datestamp %q of room %d: %w", stamp, room.ID, err)
		}
		if slot >= 0 && slot < domain.SlotCount {
			room.CleaningDatestamps[slot] = &ts
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterating datestamps: %w", err)
	}
	rows.Close()

	rows, err = r.db.QueryContext(ctx,
		`SELECT issue_id, issue_type, images, x, y, z, detected_at
		FROM room_issues WHERE room_id = ? ORDER BY issue_id`, room.ID)
	if err != nil {
		return fmt.Errorf("loading issues of room %d: %w", room.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var issue domain.RoomIssue
		var images, detectedAt string
		if err := rows.Scan(&issue.ID, &issue.Type, &images,
			&issue.Position.X, &issue.Position.Y, &issue.Position.Z, &detectedAt); err != nil {
			return fmt.Errorf("scanning issue: %w", err)
		}
		if err := decodeJSON(images, &issue.Images); err != nil {
			return fmt.Errorf("issue %d images: %w", issue.ID, err)
		}
		ts, err := time.Parse(time.RFC3339, detectedAt)
		if err != nil {
			return fmt.Errorf("parsing issue date %q: %w", detectedAt, err)
		}
		issue.DetectedAt = ts
		room.Issues = append(room.Issues, issue)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(s rowScanner) (*domain.Room, error) {
	var room domain.Room
	var pixel, meter sql.NullString
	var method int
	var days, tasks string
	err := s.Scan(
		&room.ID, &room.Name, &room.PositionID, &room.FloorID, &room.BuildingID,
		&room.TerritoryID, &room.Map, &pixel, &meter, &room.SurfaceType, &method,
		&room.SurfaceArea, &room.TrashcanCount, &days, &tasks,
	)
	if err != nil {
		return nil, err
	}
	room.Method = domain.CleaningMethod(method)
	if room.InfoInPixel, err = decodeNullableJSON[domain.RoomInformation](pixel); err != nil {
		return nil, err
	}
	if room.InfoInMeter, err = decodeNullableJSON[domain.RoomInformation](meter); err != nil {
		return nil, err
	}
	if err := decodeJSON(days, &room.ScheduledDays); err != nil {
		return nil, err
	}
	if err := decodeJSON(tasks, &room.OpenCleaningTasks); err != nil {
		return nil, err
	}
	return &room, nil
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilTasks(v []domain.TaskType) []domain.TaskType {
	if v == nil {
		return []domain.TaskType{}
	}
	return v
}
