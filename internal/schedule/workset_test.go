package schedule

import (
	"fmt"
	"testing"
	"time"

	"github.com/alexanderramin/custodian/internal/domain"
	"github.com/alexanderramin/custodian/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roomMap map[int]*domain.Room

func (m roomMap) Room(id int) (*domain.Room, error) {
	r, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("room %d: %w", id, domain.ErrConfiguration)
	}
	return r, nil
}

func newRooms(wet ...int) roomMap {
	m := roomMap{}
	for id := 1; id <= 9; id++ {
		m[id] = testutil.NewTestRoom(id, fmt.Sprintf("room-%d", id))
	}
	for _, id := range wet {
		m[id].Method = domain.MethodWet
	}
	return m
}

func resolveScenario(t *testing.T, now time.Time) *Resolution {
	t.Helper()
	recent := now.Add(-time.Hour)
	cal := testutil.FullCalendar(recent)
	due := domain.SlotOf(now)
	prev := due.Prev()
	cal[due.Index()] = testutil.NewTestAssignment(due.WeekType, due.WeekDay,
		testutil.WithCleaning(1, 2), testutil.WithTrash(2, 3))
	cal[prev.Index()] = testutil.NewTestAssignment(prev.WeekType, prev.WeekDay,
		testutil.WithCleaning(4, 1), testutil.WithTrash(5))

	r, err := NewResolver(cal, settings(), nil)
	require.NoError(t, err)
	res, err := r.Resolve(now)
	require.NoError(t, err)
	return res
}

func TestWorkSet_Checkout_StampsWhenRoomLeavesAllLists(t *testing.T) {
	now := thursdayWeek3
	rooms := newRooms()
	w := NewWorkSet(resolveScenario(t, now), rooms)

	require.NoError(t, w.Checkout(2, KindCleaning, now))
	assert.False(t, rooms[2].CleanedOn(domain.SlotOf(now), now), "room 2 is still on the trash list")

	require.NoError(t, w.Checkout(2, KindTrash, now))
	assert.True(t, rooms[2].CleanedOn(domain.SlotOf(now), now))
}

func TestWorkSet_Checkout_CompletesAssignments(t *testing.T) {
	now := thursdayWeek3
	res := resolveScenario(t, now)
	w := NewWorkSet(res, newRooms())
	require.Len(t, res.OverdueAssignments, 1)
	overdue := res.OverdueAssignments[0]

	for _, step := range []struct {
		id   int
		kind Kind
	}{
		{1, KindCleaning}, {2, KindCleaning}, {2, KindTrash}, {3, KindTrash},
	} {
		require.NoError(t, w.Checkout(step.id, step.kind, now))
	}
	require.NotNil(t, res.DueAssignment.LastCompleted)
	assert.True(t, now.Equal(*res.DueAssignment.LastCompleted))
	assert.Nil(t, overdue.LastCompleted, "room 4 and trash room 5 are still pending")

	require.NoError(t, w.Checkout(4, KindCleaning, now))
	require.NoError(t, w.Checkout(5, KindTrash, now))
	require.NotNil(t, overdue.LastCompleted)
	assert.Zero(t, w.Outstanding())
}

func TestWorkSet_Settle_TruncatesToStampPrecision(t *testing.T) {
	now := thursdayWeek3.Add(30*time.Minute + 45*time.Second)
	res := resolveScenario(t, now)
	w := NewWorkSet(res, newRooms())

	require.NoError(t, w.Checkout(1, KindCleaning, now))
	require.NoError(t, w.Checkout(2, KindCleaning, now))
	require.NoError(t, w.Checkout(2, KindTrash, now))
	require.NoError(t, w.Checkout(3, KindTrash, now))

	done := res.DueAssignment.LastCompleted
	require.NotNil(t, done)
	assert.True(t, now.Truncate(time.Minute).Equal(*done))

	parsed, err := domain.ParseStamp(domain.FormatStamp(*done))
	require.NoError(t, err)
	assert.True(t, done.Equal(parsed), "completion time survives the stamp format")
}

func TestWorkSet_Checkout_RoomNotListed(t *testing.T) {
	now := thursdayWeek3
	w := NewWorkSet(resolveScenario(t, now), newRooms())

	err := w.Checkout(1, KindTrash, now)
	assert.Error(t, err)
	require.NoError(t, w.Checkout(1, KindCleaning, now))
	assert.Error(t, w.Checkout(1, KindCleaning, now), "second checkout of the same room")
}

func TestWorkSet_Plan_SplitsByMethod(t *testing.T) {
	now := thursdayWeek3
	w := NewWorkSet(resolveScenario(t, now), newRooms(2, 4))

	p, err := w.Plan(now)
	require.NoError(t, err)

	assert.Equal(t, []Job{
		{RoomID: 1, Clean: true},
		{RoomID: 2, Trash: true},
		{RoomID: 3, Trash: true},
	}, p.DryDue)
	assert.Equal(t, []Job{{RoomID: 2, Clean: true}}, p.WetDue)
	assert.Equal(t, []Job{{RoomID: 5, Trash: true, Overdue: true}}, p.DryOverdue)
	assert.Equal(t, []Job{{RoomID: 4, Clean: true, Overdue: true}}, p.WetOverdue)
	assert.False(t, p.Empty())
}

func TestWorkSet_Plan_MergesCleaningAndTrashForDryRoom(t *testing.T) {
	now := thursdayWeek3
	w := NewWorkSet(resolveScenario(t, now), newRooms())

	p, err := w.Plan(now)
	require.NoError(t, err)
	require.Len(t, p.DryDue, 3)
	assert.Equal(t, Job{RoomID: 2, Clean: true, Trash: true}, p.DryDue[1])
	assert.Equal(t, []Kind{KindCleaning, KindTrash}, p.DryDue[1].Kinds())

	require.NoError(t, w.CheckoutJob(p.DryDue[1], now))
	assert.Equal(t, 4, w.Outstanding())
}

func TestWorkSet_Plan_ResumeSkipsRoomsStampedToday(t *testing.T) {
	now := thursdayWeek3
	rooms := newRooms()
	slot := domain.SlotOf(now)
	earlier := now.Add(-2 * time.Hour)
	rooms[1].MarkCleaned(slot, earlier)
	rooms[2].MarkCleaned(slot, earlier)
	rooms[3].MarkCleaned(slot, earlier)
	// A stamp from the previous cycle on the same slot does not count.
	rooms[4].MarkCleaned(slot, now.AddDate(0, 0, -14))

	res := resolveScenario(t, now)
	w := NewWorkSet(res, rooms)

	dc, dt, oc, ot, err := w.Remaining(now)
	require.NoError(t, err)
	assert.Empty(t, dc)
	assert.Empty(t, dt)
	assert.Equal(t, []int{4}, oc)
	assert.Equal(t, []int{5}, ot)

	p, err := w.Plan(now)
	require.NoError(t, err)
	assert.Empty(t, p.DryDue)
	assert.Empty(t, p.WetDue)
	require.NotNil(t, res.DueAssignment.LastCompleted, "all due rooms were already done")
	assert.Equal(t, []Job{
		{RoomID: 4, Clean: true, Overdue: true},
		{RoomID: 5, Trash: true, Overdue: true},
	}, p.DryOverdue)
	assert.Empty(t, p.WetOverdue)
}

func TestWorkSet_Plan_EmptyDueAssignmentCompletes(t *testing.T) {
	now := thursdayWeek3
	cal := testutil.FullCalendar(now.Add(-time.Hour))
	r, err := NewResolver(cal, settings(), nil)
	require.NoError(t, err)
	res, err := r.Resolve(now)
	require.NoError(t, err)

	w := NewWorkSet(res, newRooms())
	p, err := w.Plan(now)
	require.NoError(t, err)
	assert.True(t, p.Empty())
	require.NotNil(t, res.DueAssignment.LastCompleted)
	assert.True(t, now.Equal(*res.DueAssignment.LastCompleted))
}

func TestSplitByMethod_UnknownRoom(t *testing.T) {
	_, _, err := SplitByMethod([]int{1, 42}, newRooms())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
