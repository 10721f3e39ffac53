package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/custodian/internal/domain"
)

type RoomRepo interface {
	Upsert(ctx context.Context, r *domain.Room) error
	GetByID(ctx context.Context, id int) (*domain.Room, error)
	List(ctx context.Context) ([]*domain.Room, error)
	DeleteAll(ctx context.Context) error
}

type AssignmentRepo interface {
	Upsert(ctx context.Context, a *domain.Assignment) error
	GetBySlot(ctx context.Context, slot domain.Slot) (*domain.Assignment, error)
	List(ctx context.Context) ([]*domain.Assignment, error)
	DeleteAll(ctx context.Context) error
}

type LogRepo interface {
	Append(ctx context.Context, e *domain.LogEntry) error
	List(ctx context.Context) ([]*domain.LogEntry, error)
	ListByRoom(ctx context.Context, roomID int) ([]*domain.LogEntry, error)
}

type SettingsRepo interface {
	GetGlobal(ctx context.Context) (*domain.GlobalSettings, error)
	UpsertGlobal(ctx context.Context, s *domain.GlobalSettings) error
	GetRobotProperties(ctx context.Context) (*domain.RobotProperties, error)
	UpsertRobotProperties(ctx context.Context, p *domain.RobotProperties) error
	GetMapData(ctx context.Context) (*domain.GlobalMapData, error)
	UpsertMapData(ctx context.Context, m *domain.GlobalMapData) error
}

// CheckpointRepo holds the single temporal snapshot written during a run.
type CheckpointRepo interface {
	Save(ctx context.Context, payload []byte, at time.Time) error
	Load(ctx context.Context) ([]byte, time.Time, error)
	Delete(ctx context.Context) error
}
