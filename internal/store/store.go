// Package store holds the in-memory room and assignment model for one run
// and persists it through a Backend. A run mutates rooms and assignments in
// place, writes temporal checkpoints while it progresses, and commits at the
// end. Loading prefers a temporal checkpoint so an interrupted run resumes.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alexanderramin/custodian/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNoCheckpoint is returned by backends when no temporal snapshot exists.
	ErrNoCheckpoint = errors.New("no temporal checkpoint")
	ErrNotLoaded    = errors.New("store not loaded")
	ErrUnknownRoom  = fmt.Errorf("unknown room: %w", domain.ErrConfiguration)
)

// Snapshot is the full persisted state, minus the append-only log.
type Snapshot struct {
	Rooms       []*domain.Room
	Assignments []*domain.Assignment
	Settings    domain.GlobalSettings
	Robot       domain.RobotProperties
	Map         domain.GlobalMapData
}

// Backend is durable storage for snapshots and the log.
//
// Save with temporal=true writes only the mutable progress (rooms and
// assignments) as a checkpoint. Save with temporal=false writes the committed
// snapshot and removes any checkpoint.
type Backend interface {
	Load(ctx context.Context) (*Snapshot, error)
	LoadTemporal(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot, temporal bool) error
	DiscardTemporal(ctx context.Context) error
	AppendLog(ctx context.Context, e *domain.LogEntry) error
	Log(ctx context.Context) ([]*domain.LogEntry, error)
}

type Store struct {
	backend Backend
	logger  *zap.Logger

	mu       sync.RWMutex
	snap     *Snapshot
	rooms    map[int]*domain.Room
	restored bool
}

func New(backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: backend, logger: logger}
}

// Load reads the committed snapshot and overlays the temporal checkpoint's
// rooms and assignments when one exists.
func (s *Store) Load(ctx context.Context) error {
	snap, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading committed snapshot: %w", err)
	}

	restored := false
	tmp, err := s.backend.LoadTemporal(ctx)
	switch {
	case err == nil:
		snap.Rooms = tmp.Rooms
		snap.Assignments = tmp.Assignments
		restored = true
	case errors.Is(err, ErrNoCheckpoint):
	default:
		return fmt.Errorf("loading temporal checkpoint: %w", err)
	}

	if err := s.install(snap); err != nil {
		return err
	}
	s.mu.Lock()
	s.restored = restored
	s.mu.Unlock()

	s.logger.Info("store loaded",
		zap.Int("rooms", len(snap.Rooms)),
		zap.Int("assignments", len(snap.Assignments)),
		zap.Bool("from_checkpoint", restored),
	)
	return nil
}

// Replace installs snap as the current state without touching the backend.
func (s *Store) Replace(snap *Snapshot) error {
	if err := s.install(snap); err != nil {
		return err
	}
	s.mu.Lock()
	s.restored = false
	s.mu.Unlock()
	return nil
}

func (s *Store) install(snap *Snapshot) error {
	rooms := make(map[int]*domain.Room, len(snap.Rooms))
	for _, r := range snap.Rooms {
		if _, dup := rooms[r.ID]; dup {
			return fmt.Errorf("duplicate room id %d: %w", r.ID, domain.ErrInvariantViolation)
		}
		rooms[r.ID] = r
	}
	sort.Slice(snap.Rooms, func(i, j int) bool { return snap.Rooms[i].ID < snap.Rooms[j].ID })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.rooms = rooms
	return nil
}

// Restored reports whether the last Load resumed from a checkpoint.
func (s *Store) Restored() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restored
}

func (s *Store) Room(id int) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, ErrNotLoaded
	}
	r, ok := s.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %d: %w", id, ErrUnknownRoom)
	}
	return r, nil
}

// Rooms returns all rooms ordered by id.
func (s *Store) Rooms() []*domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil
	}
	return append([]*domain.Room(nil), s.snap.Rooms...)
}

func (s *Store) Assignments() []*domain.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil
	}
	return append([]*domain.Assignment(nil), s.snap.Assignments...)
}

func (s *Store) Settings() domain.GlobalSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return domain.DefaultGlobalSettings()
	}
	return s.snap.Settings
}

func (s *Store) RobotProperties() domain.RobotProperties {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return domain.DefaultRobotProperties()
	}
	return s.snap.Robot
}

func (s *Store) MapData() domain.GlobalMapData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return domain.GlobalMapData{}
	}
	return s.snap.Map
}

// Snapshot returns the current state for export.
func (s *Store) Snapshot() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, ErrNotLoaded
	}
	return s.snap, nil
}

// Checkpoint writes the temporal snapshot.
func (s *Store) Checkpoint(ctx context.Context) error {
	snap, err := s.Snapshot()
	if err != nil {
		return err
	}
	if err := s.backend.Save(ctx, snap, true); err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	s.logger.Debug("checkpoint saved")
	return nil
}

// Commit writes the committed snapshot and drops the checkpoint.
func (s *Store) Commit(ctx context.Context) error {
	snap, err := s.Snapshot()
	if err != nil {
		return err
	}
	if err := s.backend.Save(ctx, snap, false); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	s.mu.Lock()
	s.restored = false
	s.mu.Unlock()
	s.logger.Info("snapshot committed")
	return nil
}

// Discard drops the checkpoint and reloads the committed snapshot, forgetting
// any progress made since the last commit.
func (s *Store) Discard(ctx context.Context) error {
	if err := s.backend.DiscardTemporal(ctx); err != nil {
		return fmt.Errorf("discarding checkpoint: %w", err)
	}
	return s.Load(ctx)
}

func (s *Store) AppendLog(ctx context.Context, e *domain.LogEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if err := s.backend.AppendLog(ctx, e); err != nil {
		return fmt.Errorf("appending log entry for room %d: %w", e.RoomID, err)
	}
	return nil
}

func (s *Store) Log(ctx context.Context) ([]*domain.LogEntry, error) {
	entries, err := s.backend.Log(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	return entries, nil
}
