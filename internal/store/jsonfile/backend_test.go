package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexanderramin/custodian/internal/domain"
	"github.com/alexanderramin/custodian/internal/store"
	"github.com/alexanderramin/custodian/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *store.Snapshot {
	stamp := time.Date(2024, 1, 11, 8, 30, 0, 0, time.Local)
	kitchen := testutil.NewTestRoom(1, "Kitchen",
		testutil.WithTrashcans(2),
		testutil.WithStamp(domain.Slot{WeekType: 1, WeekDay: 3}, stamp),
		testutil.WithIssue(domain.RoomIssue{
			ID: 3, Type: 12, Images: []string{"D3.06_1.jpg"},
			Position: domain.Point{X: 1, Y: 2}, DetectedAt: stamp,
		}),
	)
	kitchen.InfoInPixel = &domain.RoomInformation{
		Center: domain.Point{X: 100, Y: 120},
		Max:    domain.Point{X: 140, Y: 160},
	}
	kitchen.OpenCleaningTasks = []domain.TaskType{domain.TaskTrash, domain.TaskDry}
	office := testutil.NewTestRoom(12, "Office", testutil.WithMethod(domain.MethodWet))
	office.InfoInPixel = &domain.RoomInformation{}

	done := stamp.Add(-24 * time.Hour)
	return &store.Snapshot{
		Rooms: []*domain.Room{kitchen, office},
		Assignments: []*domain.Assignment{
			testutil.NewTestAssignment(1, 3, testutil.WithCleaning(1, 12), testutil.WithTrash(1)),
			testutil.NewTestAssignment(1, 2, testutil.WithCleaning(12), testutil.WithLastCompleted(done)),
		},
		Settings: domain.GlobalSettings{
			AutoCompleteOverdue: true,
			MaxAuxTime:          45 * time.Minute,
			AssignmentTimedelta: 14 * 24 * time.Hour,
		},
		Robot: domain.DefaultRobotProperties(),
		Map: domain.GlobalMapData{
			MapImage:   "global_map.png",
			Resolution: 0.05,
			Origin: domain.Pose{
				Position:    domain.Point{X: -19.2, Y: -19.2},
				Orientation: domain.Quaternion{W: 1},
			},
			HeaderFrame: "map",
		},
	}
}

func TestBackend_SaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b := New(t.TempDir())
	want := sampleSnapshot()

	require.NoError(t, b.Save(ctx, want, false))
	got, err := b.Load(ctx)
	require.NoError(t, err)

	require.Len(t, got.Rooms, 2)
	kitchen := got.Rooms[0]
	assert.Equal(t, "Kitchen", kitchen.Name)
	assert.Equal(t, 2, kitchen.TrashcanCount)
	assert.Equal(t, want.Rooms[0].InfoInMeter, kitchen.InfoInMeter)
	assert.Equal(t, want.Rooms[0].InfoInPixel, kitchen.InfoInPixel)
	assert.Equal(t, []domain.TaskType{domain.TaskTrash, domain.TaskDry}, kitchen.OpenCleaningTasks)
	for i := range want.Rooms[0].CleaningDatestamps {
		w, g := want.Rooms[0].CleaningDatestamps[i], kitchen.CleaningDatestamps[i]
		if w == nil {
			assert.Nil(t, g, "slot %d", i)
			continue
		}
		require.NotNil(t, g, "slot %d", i)
		assert.True(t, w.Equal(*g), "slot %d", i)
	}
	require.Len(t, kitchen.Issues, 1)
	assert.Equal(t, 12, kitchen.Issues[0].Type)
	assert.Equal(t, domain.Point{X: 1, Y: 2}, kitchen.Issues[0].Position)

	assert.Equal(t, domain.MethodWet, got.Rooms[1].Method)

	require.Len(t, got.Assignments, 2)
	assert.Equal(t, []int{1, 12}, got.Assignments[0].CleaningRooms)
	assert.Equal(t, []int{1}, got.Assignments[0].TrashRooms)
	assert.Nil(t, got.Assignments[0].LastCompleted)
	require.NotNil(t, got.Assignments[1].LastCompleted)
	assert.True(t, want.Assignments[1].LastCompleted.Equal(*got.Assignments[1].LastCompleted))

	assert.Equal(t, want.Settings, got.Settings)
	assert.Equal(t, want.Robot, got.Robot)
	assert.Equal(t, want.Map, got.Map)
}

func TestBackend_Temporal_WrittenAndRemovedOnCommit(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := New(dir)
	snap := sampleSnapshot()
	require.NoError(t, b.Save(ctx, snap, false))

	_, err := b.LoadTemporal(ctx)
	assert.ErrorIs(t, err, store.ErrNoCheckpoint)

	now := time.Date(2024, 1, 11, 9, 0, 0, 0, time.Local)
	snap.Rooms[1].MarkCleaned(domain.SlotOf(now), now)
	require.NoError(t, b.Save(ctx, snap, true))
	assert.FileExists(t, filepath.Join(dir, TempRoomsFile))

	tmp, err := b.LoadTemporal(ctx)
	require.NoError(t, err)
	assert.True(t, tmp.Rooms[1].CleanedOn(domain.SlotOf(now), now))

	committed, err := b.Load(ctx)
	require.NoError(t, err)
	assert.False(t, committed.Rooms[1].CleanedOn(domain.SlotOf(now), now))

	require.NoError(t, b.Save(ctx, snap, false))
	assert.NoFileExists(t, filepath.Join(dir, TempRoomsFile))
	assert.NoFileExists(t, filepath.Join(dir, TempAssignmentFile))
}

func TestBackend_LoadTemporal_RoomsOnlyCheckpoint(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := New(dir)
	snap := sampleSnapshot()
	require.NoError(t, b.Save(ctx, snap, false))
	require.NoError(t, b.Save(ctx, snap, true))
	require.NoError(t, os.Remove(filepath.Join(dir, TempAssignmentFile)))

	tmp, err := b.LoadTemporal(ctx)
	require.NoError(t, err)
	assert.Len(t, tmp.Assignments, 2)
}

func TestBackend_DiscardTemporal_Idempotent(t *testing.T) {
	ctx := context.Background()
	b := New(t.TempDir())
	require.NoError(t, b.Save(ctx, sampleSnapshot(), true))
	require.NoError(t, b.DiscardTemporal(ctx))
	require.NoError(t, b.DiscardTemporal(ctx))

	_, err := b.LoadTemporal(ctx)
	assert.ErrorIs(t, err, store.ErrNoCheckpoint)
}

func TestBackend_Load_MissingOptionalFilesUseDefaults(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, RoomsFile), []byte(`{}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, AssignmentsFile), []byte(`[]`), 0644))

	snap, err := New(dir).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultGlobalSettings(), snap.Settings)
	assert.Equal(t, domain.DefaultRobotProperties(), snap.Robot)
	assert.Empty(t, snap.Rooms)
}

func TestBackend_Load_MissingRoomsFails(t *testing.T) {
	_, err := New(t.TempDir()).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), RoomsFile)
}

func TestBackend_Log_Appends(t *testing.T) {
	ctx := context.Background()
	b := New(t.TempDir())

	at := time.Date(2024, 1, 11, 9, 0, 0, 0, time.Local)
	require.NoError(t, b.AppendLog(ctx, testutil.NewTestLogEntry(1, testutil.WithCreatedAt(at))))
	require.NoError(t, b.AppendLog(ctx, testutil.NewTestLogEntry(2,
		testutil.WithCreatedAt(at.Add(time.Minute)),
		testutil.WithStatus(domain.LogCancelled))))

	entries, err := b.Log(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].RoomID)
	assert.True(t, at.Equal(entries[0].CreatedAt))
	assert.Equal(t, domain.LogCancelled, entries[1].Status)
}
