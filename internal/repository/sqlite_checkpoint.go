package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/custodian/internal/db"
)

// SQLiteCheckpointRepo implements CheckpointRepo using a singleton row.
type SQLiteCheckpointRepo struct {
	db db.DBTX
}

// NewSQLiteCheckpointRepo creates a new SQLiteCheckpointRepo.
func NewSQLiteCheckpointRepo(conn db.DBTX) *SQLiteCheckpointRepo {
	return &SQLiteCheckpointRepo{db: conn}
}

func (r *SQLiteCheckpointRepo) Save(ctx context.Context, payload []byte, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO checkpoints (id, payload, saved_at) VALUES (1, ?, ?)`,
		string(payload), at.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

func (r *SQLiteCheckpointRepo) Load(ctx context.Context) ([]byte, time.Time, error) {
	var payload, savedAt string
	err := r.db.QueryRowContext(ctx, `SELECT payload, saved_at FROM checkpoints WHERE id = 1`).Scan(&payload, &savedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, time.Time{}, fmt.Errorf("checkpoint: %w", ErrNotFound)
		}
		return nil, time.Time{}, fmt.Errorf("loading checkpoint: %w", err)
	}
	at, err := time.Parse(time.RFC3339, savedAt)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parsing checkpoint time: %w", err)
	}
	return []byte(payload), at, nil
}

func (r *SQLiteCheckpointRepo) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM checkpoints`); err != nil {
		return fmt.Errorf("deleting checkpoint: %w", err)
	}
	return nil
}
