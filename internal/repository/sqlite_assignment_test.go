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

func TestAssignmentRepo_UpsertAndGet_PreservesRoomOrder(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteAssignmentRepo(db)
	ctx := context.Background()

	done := time.Date(2024, 1, 4, 18, 0, 0, 0, time.UTC)
	a := testutil.NewTestAssignment(1, 3,
		testutil.WithCleaning(7, 2, 5),
		testutil.WithTrash(5, 1),
		testutil.WithLastCompleted(done),
	)
	require.NoError(t, repo.Upsert(ctx, a))

	got, err := repo.GetBySlot(ctx, domain.Slot{WeekType: 1, WeekDay: 3})
	require.NoError(t, err)
	assert.Equal(t, []int{7, 2, 5}, got.CleaningRooms)
	assert.Equal(t, []int{5, 1}, got.TrashRooms)
	require.NotNil(t, got.LastCompleted)
	assert.True(t, done.Equal(*got.LastCompleted))
}

func TestAssignmentRepo_NilLastCompleted(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteAssignmentRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testutil.NewTestAssignment(0, 0, testutil.WithCleaning(1))))

	got, err := repo.GetBySlot(ctx, domain.Slot{})
	require.NoError(t, err)
	assert.Nil(t, got.LastCompleted)
	assert.Empty(t, got.TrashRooms)
}

func TestAssignmentRepo_List_CalendarOrder(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteAssignmentRepo(db)
	ctx := context.Background()

	cal := testutil.FullCalendar(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	for i := len(cal) - 1; i >= 0; i-- {
		require.NoError(t, repo.Upsert(ctx, cal[i]))
	}

	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, domain.SlotCount)
	for i, a := range got {
		assert.Equal(t, i, a.Slot.Index())
	}
}

func TestAssignmentRepo_GetBySlot_NotFound(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteAssignmentRepo(db)

	_, err := repo.GetBySlot(context.Background(), domain.Slot{WeekType: 1, WeekDay: 6})
	assert.ErrorIs(t, err, ErrNotFound)
}
