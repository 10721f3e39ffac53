package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alexanderramin/custodian/internal/domain"
	"github.com/alexanderramin/custodian/internal/store"
)

const (
	RoomsFile          = "rooms.json"
	TempRoomsFile      = "tmp_rooms.json"
	AssignmentsFile    = "assignments.json"
	TempAssignmentFile = "tmp_assignments.json"
	SettingsFile       = "global_settings.json"
	RobotFile          = "robot_properties.json"
	MapFile            = "global_map_data.json"
	LogFile            = "log.json"
)

// Backend stores snapshots as JSON documents in a single directory.
type Backend struct {
	dir string
	mu  sync.Mutex
}

var _ store.Backend = (*Backend)(nil)

func New(dir string) *Backend {
	return &Backend{dir: dir}
}

func (b *Backend) Dir() string { return b.dir }

func (b *Backend) path(name string) string {
	return filepath.Join(b.dir, name)
}

func (b *Backend) Load(_ context.Context) (*store.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := &store.Snapshot{}
	data, err := b.read(RoomsFile)
	if err != nil {
		return nil, err
	}
	if snap.Rooms, err = DecodeRooms(data); err != nil {
		return nil, fmt.Errorf("%s: %w", RoomsFile, err)
	}

	if data, err = b.read(AssignmentsFile); err != nil {
		return nil, err
	}
	if snap.Assignments, err = DecodeAssignments(data); err != nil {
		return nil, fmt.Errorf("%s: %w", AssignmentsFile, err)
	}

	snap.Settings = domain.DefaultGlobalSettings()
	if data, err = b.readOptional(SettingsFile); err != nil {
		return nil, err
	} else if data != nil {
		if snap.Settings, err = decodeSettings(data); err != nil {
			return nil, fmt.Errorf("%s: %w", SettingsFile, err)
		}
	}

	snap.Robot = domain.DefaultRobotProperties()
	if data, err = b.readOptional(RobotFile); err != nil {
		return nil, err
	} else if data != nil {
		if snap.Robot, err = decodeRobot(data); err != nil {
			return nil, fmt.Errorf("%s: %w", RobotFile, err)
		}
	}

	if data, err = b.readOptional(MapFile); err != nil {
		return nil, err
	} else if data != nil {
		if snap.Map, err = decodeMap(data); err != nil {
			return nil, fmt.Errorf("%s: %w", MapFile, err)
		}
	}
	return snap, nil
}

// LoadTemporal returns the checkpointed rooms and assignments. Static parts
// of the snapshot are left zero.
func (b *Backend) LoadTemporal(_ context.Context) (*store.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := b.readOptional(TempRoomsFile)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, store.ErrNoCheckpoint
	}
	snap := &store.Snapshot{}
	if snap.Rooms, err = DecodeRooms(data); err != nil {
		return nil, fmt.Errorf("%s: %w", TempRoomsFile, err)
	}

	// A checkpoint written before assignment tracking holds rooms only.
	name := TempAssignmentFile
	data, err = b.readOptional(name)
	if err != nil {
		return nil, err
	}
	if data == nil {
		name = AssignmentsFile
		if data, err = b.read(name); err != nil {
			return nil, err
		}
	}
	if snap.Assignments, err = DecodeAssignments(data); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return snap, nil
}

func (b *Backend) Save(_ context.Context, snap *store.Snapshot, temporal bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rooms, err := EncodeRooms(snap.Rooms)
	if err != nil {
		return fmt.Errorf("encoding rooms: %w", err)
	}
	assignments, err := EncodeAssignments(snap.Assignments)
	if err != nil {
		return fmt.Errorf("encoding assignments: %w", err)
	}

	if temporal {
		if err := b.write(TempRoomsFile, rooms); err != nil {
			return err
		}
		return b.write(TempAssignmentFile, assignments)
	}

	settings, err := encodeSettings(snap.Settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	robot, err := encodeRobot(snap.Robot)
	if err != nil {
		return fmt.Errorf("encoding robot properties: %w", err)
	}
	mapData, err := encodeMap(snap.Map)
	if err != nil {
		return fmt.Errorf("encoding map data: %w", err)
	}
	for _, f := range []struct {
		name string
		data []byte
	}{
		{RoomsFile, rooms},
		{AssignmentsFile, assignments},
		{SettingsFile, settings},
		{RobotFile, robot},
		{MapFile, mapData},
	} {
		if err := b.write(f.name, f.data); err != nil {
			return err
		}
	}
	return b.removeTemporal()
}

func (b *Backend) DiscardTemporal(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.removeTemporal()
}

func (b *Backend) AppendLog(_ context.Context, e *domain.LogEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.readLog()
	if err != nil {
		return err
	}
	data, err := encodeLog(append(entries, e))
	if err != nil {
		return fmt.Errorf("encoding log: %w", err)
	}
	return b.write(LogFile, data)
}

func (b *Backend) Log(_ context.Context) ([]*domain.LogEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readLog()
}

func (b *Backend) readLog() ([]*domain.LogEntry, error) {
	data, err := b.readOptional(LogFile)
	if err != nil || data == nil {
		return nil, err
	}
	entries, err := decodeLog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", LogFile, err)
	}
	return entries, nil
}

func (b *Backend) removeTemporal() error {
	for _, name := range []string{TempRoomsFile, TempAssignmentFile} {
		if err := os.Remove(b.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", name, err)
		}
	}
	return nil
}

func (b *Backend) read(name string) ([]byte, error) {
	data, err := os.ReadFile(b.path(name))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// readOptional returns nil data without error when the file is missing.
func (b *Backend) readOptional(name string) ([]byte, error) {
	data, err := os.ReadFile(b.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// write replaces name atomically so a crash never leaves a torn document.
func (b *Backend) write(name string, data []byte) error {
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", b.dir, err)
	}
	tmp, err := os.CreateTemp(b.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), b.path(name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}
