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
	docRobotProperties = "robot_properties"
	docGlobalMapData   = "global_map_data"
)

// SQLiteSettingsRepo implements SettingsRepo. Global settings live in a
// singleton row; robot properties and map data are stored as documents.
type SQLiteSettingsRepo struct {
	db db.DBTX
}

// NewSQLiteSettingsRepo creates a new SQLiteSettingsRepo.
func NewSQLiteSettingsRepo(conn db.DBTX) *SQLiteSettingsRepo {
	return &SQLiteSettingsRepo{db: conn}
}

func (r *SQLiteSettingsRepo) GetGlobal(ctx context.Context) (*domain.GlobalSettings, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT auto_complete_overdue, max_aux_time_sec, assignment_timedelta_days
		FROM global_settings WHERE id = 1`)

	var auto int
	var auxSec int64
	var days float64
	if err := row.Scan(&auto, &auxSec, &days); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("global settings: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning global settings: %w", err)
	}
	return &domain.GlobalSettings{
		AutoCompleteOverdue: intToBool(auto),
		MaxAuxTime:          time.Duration(auxSec) * time.Second,
		AssignmentTimedelta: time.Duration(days * float64(24*time.Hour)),
	}, nil
}

func (r *SQLiteSettingsRepo) UpsertGlobal(ctx context.Context, s *domain.GlobalSettings) error {
	query := `INSERT OR REPLACE INTO global_settings
		(id, auto_complete_overdue, max_aux_time_sec, assignment_timedelta_days)
		VALUES (1, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		boolToInt(s.AutoCompleteOverdue),
		int64(s.MaxAuxTime/time.Second),
		s.AssignmentTimedelta.Hours()/24,
	)
	if err != nil {
		return fmt.Errorf("upserting global settings: %w", err)
	}
	return nil
}

func (r *SQLiteSettingsRepo) GetRobotProperties(ctx context.Context) (*domain.RobotProperties, error) {
	var p domain.RobotProperties
	if err := r.getDocument(ctx, docRobotProperties, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SQLiteSettingsRepo) UpsertRobotProperties(ctx context.Context, p *domain.RobotProperties) error {
	return r.putDocument(ctx, docRobotProperties, p)
}

func (r *SQLiteSettingsRepo) GetMapData(ctx context.Context) (*domain.GlobalMapData, error) {
	var m domain.GlobalMapData
	if err := r.getDocument(ctx, docGlobalMapData, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *SQLiteSettingsRepo) UpsertMapData(ctx context.Context, m *domain.GlobalMapData) error {
	return r.putDocument(ctx, docGlobalMapData, m)
}

func (r *SQLiteSettingsRepo) getDocument(ctx context.Context, name string, dst any) error {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM documents WHERE name = ?`, name).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("loading %s: %w", name, err)
	}
	if err := decodeJSON(payload, dst); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (r *SQLiteSettingsRepo) putDocument(ctx context.Context, name string, v any) error {
	payload, err := encodeJSON(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (name, payload, updated_at) VALUES (?, ?, ?)`,
		name, payload, nowUTC())
	if err != nil {
		return fmt.Errorf("upserting %s: %w", name, err)
	}
	return nil
}
