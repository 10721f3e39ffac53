package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/custodian/internal/domain"
	"github.com/alexanderramin/custodian/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRepo_Global_NotFoundUntilWritten(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteSettingsRepo(db)
	ctx := context.Background()

	_, err := repo.GetGlobal(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	want := &domain.GlobalSettings{
		AutoCompleteOverdue: false,
		MaxAuxTime:          90 * time.Minute,
		AssignmentTimedelta: 7 * 24 * time.Hour,
	}
	require.NoError(t, repo.UpsertGlobal(ctx, want))

	got, err := repo.GetGlobal(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSettingsRepo_Documents(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteSettingsRepo(db)
	ctx := context.Background()

	_, err := repo.GetRobotProperties(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	props := domain.DefaultRobotProperties()
	require.NoError(t, repo.UpsertRobotProperties(ctx, &props))
	gotProps, err := repo.GetRobotProperties(ctx)
	require.NoError(t, err)
	assert.Equal(t, props, *gotProps)

	m := &domain.GlobalMapData{MapImage: "floor1.pgm", Resolution: 0.05, HeaderFrame: "map"}
	m.Origin.Position = domain.Point{X: -10, Y: -12}
	m.Origin.Orientation = domain.Quaternion{W: 1}
	require.NoError(t, repo.UpsertMapData(ctx, m))
	gotMap, err := repo.GetMapData(ctx)
	require.NoError(t, err)
	assert.Equal(t, m, gotMap)
}

func TestCheckpointRepo_SaveLoadDelete(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteCheckpointRepo(db)
	ctx := context.Background()

	_, _, err := repo.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	at := time.Date(2024, 1, 11, 9, 15, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, []byte(`{"a":1}`), at))
	require.NoError(t, repo.Save(ctx, []byte(`{"a":2}`), at.Add(time.Minute)))

	payload, savedAt, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(payload))
	assert.True(t, at.Add(time.Minute).Equal(savedAt))

	require.NoError(t, repo.Delete(ctx))
	_, _, err = repo.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}
