// Package sqlitestore persists store snapshots in SQLite. Committed state is
// normalized across the repository tables; the temporal checkpoint is a
// single row holding the rooms and assignments in their JSON document form.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/custodian/internal/db"
	"github.com/alexanderramin/custodian/internal/domain"
	"github.com/alexanderramin/custodian/internal/repository"
	"github.com/alexanderramin/custodian/internal/store"
	"github.com/alexanderramin/custodian/internal/store/jsonfile"
)

type Backend struct {
	db  *sql.DB
	uow db.UnitOfWork
}

var _ store.Backend = (*Backend)(nil)

// Open opens (and migrates) the database at path.
func Open(path string) (*Backend, error) {
	database, err := db.OpenDB(path)
	if err != nil {
		return nil, err
	}
	return New(database, db.NewSQLiteUnitOfWork(database)), nil
}

func New(database *sql.DB, uow db.UnitOfWork) *Backend {
	return &Backend{db: database, uow: uow}
}

func (b *Backend) Close() error {
	return b.db.Close()
}

type checkpointPayload struct {
	Rooms       json.RawMessage `json:"rooms"`
	Assignments json.RawMessage `json:"assignments"`
}

func (b *Backend) Load(ctx context.Context) (*store.Snapshot, error) {
	snap := &store.Snapshot{}
	err := b.uow.WithinTx(ctx, "loading snapshot", func(ctx context.Context, tx db.DBTX) error {
		var err error
		if snap.Rooms, err = repository.NewSQLiteRoomRepo(tx).List(ctx); err != nil {
			return err
		}
		if snap.Assignments, err = repository.NewSQLiteAssignmentRepo(tx).List(ctx); err != nil {
			return err
		}

		settings := repository.NewSQLiteSettingsRepo(tx)
		snap.Settings = domain.DefaultGlobalSettings()
		if g, err := settings.GetGlobal(ctx); err == nil {
			snap.Settings = *g
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		snap.Robot = domain.DefaultRobotProperties()
		if p, err := settings.GetRobotProperties(ctx); err == nil {
			snap.Robot = *p
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if m, err := settings.GetMapData(ctx); err == nil {
			snap.Map = *m
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (b *Backend) LoadTemporal(ctx context.Context) (*store.Snapshot, error) {
	raw, _, err := repository.NewSQLiteCheckpointRepo(b.db).Load(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, store.ErrNoCheckpoint
	}
	if err != nil {
		return nil, err
	}

	var payload checkpointPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parsing checkpoint: %w", err)
	}
	snap := &store.Snapshot{}
	if snap.Rooms, err = jsonfile.DecodeRooms(payload.Rooms); err != nil {
		return nil, fmt.Errorf("checkpoint rooms: %w", err)
	}
	if snap.Assignments, err = jsonfile.DecodeAssignments(payload.Assignments); err != nil {
		return nil, fmt.Errorf("checkpoint assignments: %w", err)
	}
	return snap, nil
}

func (b *Backend) Save(ctx context.Context, snap *store.Snapshot, temporal bool) error {
	if temporal {
		return b.saveCheckpoint(ctx, snap)
	}
	return b.uow.WithinTx(ctx, "committing snapshot", func(ctx context.Context, tx db.DBTX) error {
		rooms := repository.NewSQLiteRoomRepo(tx)
		if err := rooms.DeleteAll(ctx); err != nil {
			return err
		}
		for _, r := range snap.Rooms {
			if err := rooms.Upsert(ctx, r); err != nil {
				return err
			}
		}

		assignments := repository.NewSQLiteAssignmentRepo(tx)
		if err := assignments.DeleteAll(ctx); err != nil {
			return err
		}
		for _, a := range snap.Assignments {
			if err := assignments.Upsert(ctx, a); err != nil {
				return err
			}
		}

		settings := repository.NewSQLiteSettingsRepo(tx)
		if err := settings.UpsertGlobal(ctx, &snap.Settings); err != nil {
			return err
		}
		if err := settings.UpsertRobotProperties(ctx, &snap.Robot); err != nil {
			return err
		}
		if err := settings.UpsertMapData(ctx, &snap.Map); err != nil {
			return err
		}
		return repository.NewSQLiteCheckpointRepo(tx).Delete(ctx)
	})
}

func (b *Backend) saveCheckpoint(ctx context.Context, snap *store.Snapshot) error {
	rooms, err := jsonfile.EncodeRooms(snap.Rooms)
	if err != nil {
		return fmt.Errorf("encoding checkpoint rooms: %w", err)
	}
	assignments, err := jsonfile.EncodeAssignments(snap.Assignments)
	if err != nil {
		return fmt.Errorf("encoding checkpoint assignments: %w", err)
	}
	payload, err := json.Marshal(checkpointPayload{Rooms: rooms, Assignments: assignments})
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	return repository.NewSQLiteCheckpointRepo(b.db).Save(ctx, payload, time.Now())
}

func (b *Backend) DiscardTemporal(ctx context.Context) error {
	return repository.NewSQLiteCheckpointRepo(b.db).Delete(ctx)
}

func (b *Backend) AppendLog(ctx context.Context, e *domain.LogEntry) error {
	return repository.NewSQLiteLogRepo(b.db).Append(ctx, e)
}

func (b *Backend) Log(ctx context.Context) ([]*domain.LogEntry, error) {
	return repository.NewSQLiteLogRepo(b.db).List(ctx)
}

// LogByRoom lists the log entries of one room.
func (b *Backend) LogByRoom(ctx context.Context, roomID int) ([]*domain.LogEntry, error) {
	return repository.NewSQLiteLogRepo(b.db).ListByRoom(ctx, roomID)
}
