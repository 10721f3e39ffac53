package cleaning

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/alexanderramin/custodian/internal/behavior"
	"github.com/alexanderramin/custodian/internal/detection"
	"github.com/alexanderramin/custodian/internal/domain"
	"github.com/alexanderramin/custodian/internal/gateway"
	"github.com/alexanderramin/custodian/internal/schedule"
	"github.com/alexanderramin/custodian/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func waypoints(n int) []domain.Pose2D {
	path := make([]domain.Pose2D, n)
	for i := range path {
		path[i] = domain.Pose2D{X: float64(i), Y: 1}
	}
	return path
}

func testConfig(policy detection.Policy, priority ...detection.Kind) Config {
	if len(priority) == 0 {
		priority = detection.DefaultPriority
	}
	return Config{PollInterval: time.Millisecond, Policy: policy, Priority: priority}
}

func dryCleaner(gw *fakeGateway, feed detection.Feed, cfg Config) *Cleaner {
	return NewDryCleaner(gateway.NewCaller(gw, 1, nil), feed, domain.DefaultRobotProperties(),
		domain.GlobalMapData{HeaderFrame: "map"}, cfg, nil)
}

func dirt(x, y float64) detection.Detection {
	return detection.Detection{Kind: detection.KindDirt, Position: domain.Point{X: x, Y: y}, At: time.Now()}
}

func trash(x, y float64) detection.Detection {
	return detection.Detection{Kind: detection.KindTrash, Position: domain.Point{X: x, Y: y}, At: time.Now()}
}

var fullJob = schedule.Job{RoomID: 1, Clean: true, Trash: true}

func TestDryCleaner_ResumesFromLastVisitedIndex(t *testing.T) {
	feed := detection.NewMemoryFeed()
	full := waypoints(5)
	gw := newFakeGateway(feed, full,
		pathScript{stopAt: 2, detections: []detection.Detection{dirt(2, 1)}},
		pathScript{complete: true},
	)
	room := testutil.NewTestRoom(1, "Office")

	visit, err := dryCleaner(gw, feed, testConfig(detection.PolicyHandleBoth)).
		Visit(context.Background(), behavior.NewSignal(), room, fullJob)

	require.NoError(t, err)
	assert.Equal(t, domain.LogCompleted, visit.Status)
	assert.Equal(t, 1, visit.FoundDirtspots)
	assert.Equal(t, 2, visit.Segments)
	assert.Equal(t, room.SurfaceArea, visit.CleanedSurfaceArea)
	assert.Equal(t, []domain.TaskType{domain.TaskDry, domain.TaskTrash}, visit.Tasks)

	reqs := gw.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, full, reqs[0])
	assert.Equal(t, full[2:], reqs[1])
	assert.Equal(t, full, append(append([]domain.Pose2D(nil), reqs[0][:2]...), reqs[1]...))

	assert.Equal(t, 1, gw.count(gateway.ActionCleanSpot))
	assert.Equal(t, 0, feed.Subscribers())
	assert.Equal(t, gw.count(gateway.ActionStartDirtDetector), gw.count(gateway.ActionStopDirtDetector))
	assert.Equal(t, gw.count(gateway.ActionStartTrashDetector), gw.count(gateway.ActionStopTrashDetector))
}

func TestDryCleaner_SimultaneousDetections_HandleBoth(t *testing.T) {
	feed := detection.NewMemoryFeed()
	gw := newFakeGateway(feed, waypoints(4),
		pathScript{stopAt: 1, detections: []detection.Detection{trash(7, 7), dirt(3, 3)}},
	)

	visit, err := dryCleaner(gw, feed, testConfig(detection.PolicyHandleBoth)).
		Visit(context.Background(), behavior.NewSignal(), testutil.NewTestRoom(1, "Office"), fullJob)

	require.NoError(t, err)
	assert.Equal(t, 1, visit.FoundDirtspots)
	assert.Equal(t, 1, visit.FoundTrashcans)

	kinds := gw.Kinds()
	clean := slices.Index(kinds, gateway.ActionCleanSpot)
	catch := slices.Index(kinds, gateway.ActionCatchTrashcan)
	require.NotEqual(t, -1, clean)
	require.NotEqual(t, -1, catch)
	assert.Less(t, clean, catch, "dirt is handled before trash")
}

func TestDryCleaner_SimultaneousDetections_PriorityConfigurable(t *testing.T) {
	feed := detection.NewMemoryFeed()
	gw := newFakeGateway(feed, waypoints(4),
		pathScript{stopAt: 1, detections: []detection.Detection{dirt(3, 3), trash(7, 7)}},
	)
	cfg := testConfig(detection.PolicyHandleBoth, detection.KindTrash, detection.KindDirt)

	_, err := dryCleaner(gw, feed, cfg).
		Visit(context.Background(), behavior.NewSignal(), testutil.NewTestRoom(1, "Office"), fullJob)

	require.NoError(t, err)
	kinds := gw.Kinds()
	assert.Less(t, slices.Index(kinds, gateway.ActionCatchTrashcan), slices.Index(kinds, gateway.ActionCleanSpot))
}

func TestDryCleaner_SimultaneousDetections_FirstOnly(t *testing.T) {
	feed := detection.NewMemoryFeed()
	gw := newFakeGateway(feed, waypoints(4),
		pathScript{stopAt: 1, detections: []detection.Detection{trash(7, 7), dirt(3, 3)}},
	)

	visit, err := dryCleaner(gw, feed, testConfig(detection.PolicyFirstOnly)).
		Visit(context.Background(), behavior.NewSignal(), testutil.NewTestRoom(1, "Office"), fullJob)

	require.NoError(t, err)
	assert.Equal(t, 1, visit.FoundDirtspots)
	assert.Equal(t, 0, visit.FoundTrashcans)
	assert.Equal(t, 0, gw.count(gateway.ActionCatchTrashcan))
}

func TestDryCleaner_EmptyPath_SkipsRoom(t *testing.T) {
	feed := detection.NewMemoryFeed()
	gw := newFakeGateway(feed, nil)

	visit, err := dryCleaner(gw, feed, testConfig(detection.PolicyHandleBoth)).
		Visit(context.Background(), behavior.NewSignal(), testutil.NewTestRoom(1, "Office"), fullJob)

	require.NoError(t, err)
	assert.Equal(t, domain.LogSkipped, visit.Status)
	assert.Equal(t, "already clean", visit.Reason)
	assert.Empty(t, gw.Requests())
	assert.Equal(t, 1, gw.count(gateway.ActionMove))
}

func TestDryCleaner_Cancel_StopsDetectorsAndPath(t *testing.T) {
	feed := detection.NewMemoryFeed()
	sig := behavior.NewSignal()
	gw := newFakeGateway(feed, waypoints(6),
		pathScript{stopAt: 3, onStart: sig.Cancel},
	)

	visit, err := dryCleaner(gw, feed, testConfig(detection.PolicyHandleBoth)).
		Visit(context.Background(), sig, testutil.NewTestRoom(1, "Office"), fullJob)

	require.Error(t, err)
	assert.ErrorIs(t, err, behavior.ErrCancelled)
	assert.Equal(t, domain.LogCancelled, visit.Status)
	assert.Len(t, gw.Requests(), 1)
	assert.Equal(t, 0, feed.Subscribers())
	assert.Equal(t, 1, gw.count(gateway.ActionStopDirtDetector))
	assert.Equal(t, 1, gw.count(gateway.ActionStopTrashDetector))
}

func TestDryCleaner_ContextCancel(t *testing.T) {
	feed := detection.NewMemoryFeed()
	ctx, cancel := context.WithCancel(context.Background())
	gw := newFakeGateway(feed, waypoints(6),
		pathScript{stopAt: 2, onStart: cancel},
	)

	visit, err := dryCleaner(gw, feed, testConfig(detection.PolicyHandleBoth)).
		Visit(ctx, behavior.NewSignal(), testutil.NewTestRoom(1, "Office"), fullJob)

	assert.ErrorIs(t, err, behavior.ErrCancelled)
	assert.Equal(t, domain.LogCancelled, visit.Status)
	assert.Equal(t, 0, feed.Subscribers())
}

func TestDryCleaner_PauseResumesFromLastVisitedIndex(t *testing.T) {
	feed := detection.NewMemoryFeed()
	sig := behavior.NewSignal()
	full := waypoints(6)
	gw := newFakeGateway(feed, full,
		pathScript{stopAt: 3, onStart: func() {
			sig.Pause()
			time.AfterFunc(20*time.Millisecond, sig.Resume)
		}},
		pathScript{complete: true},
	)

	visit, err := dryCleaner(gw, feed, testConfig(detection.PolicyHandleBoth)).
		Visit(context.Background(), sig, testutil.NewTestRoom(1, "Office"), fullJob)

	require.NoError(t, err)
	assert.Equal(t, domain.LogCompleted, visit.Status)
	reqs := gw.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, full[3:], reqs[1])
	assert.Equal(t, 0, visit.FoundDirtspots+visit.FoundTrashcans)
}

func TestDryCleaner_MoveFailure_RetriedOnceThenFails(t *testing.T) {
	feed := detection.NewMemoryFeed()
	gw := newFakeGateway(feed, waypoints(3))
	gw.failures[gateway.ActionMove] = 2

	visit, err := dryCleaner(gw, feed, testConfig(detection.PolicyHandleBoth)).
		Visit(context.Background(), behavior.NewSignal(), testutil.NewTestRoom(1, "Office"), fullJob)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceFailure)
	assert.False(t, domain.IsFatal(err))
	assert.Equal(t, domain.LogFailed, visit.Status)
	assert.NotEmpty(t, visit.Reason)
	assert.Equal(t, 2, gw.count(gateway.ActionMove))
	assert.Empty(t, gw.Requests())
}

func TestDryCleaner_UnreachableDirt_FailsHandlerNotRoom(t *testing.T) {
	feed := detection.NewMemoryFeed()
	gw := newFakeGateway(feed, waypoints(4),
		pathScript{stopAt: 1, detections: []detection.Detection{dirt(9, 9)}},
	)
	gw.inaccessible[domain.Point{X: 9, Y: 9}] = true

	visit, err := dryCleaner(gw, feed, testConfig(detection.PolicyHandleBoth)).
		Visit(context.Background(), behavior.NewSignal(), testutil.NewTestRoom(1, "Office"), fullJob)

	require.NoError(t, err)
	assert.Equal(t, domain.LogCompleted, visit.Status)
	assert.Equal(t, 1, visit.FoundDirtspots)
	assert.Equal(t, 0, gw.count(gateway.ActionCleanSpot))
}

func TestDryCleaner_HandlerServiceFailure_FailsRoom(t *testing.T) {
	feed := detection.NewMemoryFeed()
	gw := newFakeGateway(feed, waypoints(4),
		pathScript{stopAt: 1, detections: []detection.Detection{dirt(2, 2)}},
	)
	gw.failures[gateway.ActionCleanSpot] = 2

	visit, err := dryCleaner(gw, feed, testConfig(detection.PolicyHandleBoth)).
		Visit(context.Background(), behavior.NewSignal(), testutil.NewTestRoom(1, "Office"), fullJob)

	assert.ErrorIs(t, err, domain.ErrServiceFailure)
	assert.Equal(t, domain.LogFailed, visit.Status)
	assert.Len(t, gw.Requests(), 1)
}

func TestDryCleaner_DetectionAfterPathConsumedIgnored(t *testing.T) {
	feed := detection.NewMemoryFeed()
	gw := newFakeGateway(feed, waypoints(3),
		pathScript{complete: true, detections: []detection.Detection{dirt(1, 1)}},
	)

	visit, err := dryCleaner(gw, feed, testConfig(detection.PolicyHandleBoth)).
		Visit(context.Background(), behavior.NewSignal(), testutil.NewTestRoom(1, "Office"), fullJob)

	require.NoError(t, err)
	assert.Equal(t, 0, visit.FoundDirtspots)
	assert.Equal(t, 0, gw.count(gateway.ActionCleanSpot))
	assert.Len(t, gw.Requests(), 1)
}

func TestWetCleaner_FollowsPathWithoutDetectors(t *testing.T) {
	gw := newFakeGateway(detection.NewMemoryFeed(), waypoints(3))
	c := NewWetCleaner(gateway.NewCaller(gw, 1, nil), domain.DefaultRobotProperties(), domain.GlobalMapData{}, testConfig(""), nil)
	room := testutil.NewTestRoom(2, "Lab", testutil.WithMethod(domain.MethodWet))

	require.NoError(t, c.PrepareTool(context.Background()))
	visit, err := c.Visit(context.Background(), behavior.NewSignal(), room, schedule.Job{RoomID: 2, Clean: true})

	require.NoError(t, err)
	assert.Equal(t, domain.LogCompleted, visit.Status)
	assert.Equal(t, []domain.TaskType{domain.TaskWet}, visit.Tasks)
	assert.Equal(t, 0, gw.count(gateway.ActionStartDirtDetector))
	assert.Equal(t, 0, gw.count(gateway.ActionStartTrashDetector))
	assert.Equal(t, gateway.ActionChangeTool, gw.Kinds()[0])
	assert.Equal(t, gateway.ToolMop, c.Tool())
}

func TestTrashcanEmptying_Sequence(t *testing.T) {
	gw := newFakeGateway(detection.NewMemoryFeed(), nil)
	task := NewTrashcanEmptying(gateway.NewCaller(gw, 0, nil), domain.Point{X: 1}, domain.Point{X: 5}, nil)

	require.NoError(t, behavior.NewRunner(task, nil, nil).Execute(context.Background()))
	assert.Equal(t, []gateway.ActionKind{
		gateway.ActionMove,
		gateway.ActionCatchTrashcan,
		gateway.ActionTransportPose,
		gateway.ActionMove,
		gateway.ActionEmptyTrashcan,
		gateway.ActionTransportPose,
		gateway.ActionMove,
		gateway.ActionLeaveTrashcan,
		gateway.ActionRestPose,
	}, gw.Kinds())
}

func TestTrashcanEmptying_UnreachableTrashcan(t *testing.T) {
	gw := newFakeGateway(detection.NewMemoryFeed(), nil)
	gw.inaccessible[domain.Point{X: 1}] = true
	task := NewTrashcanEmptying(gateway.NewCaller(gw, 1, nil), domain.Point{X: 1}, domain.Point{X: 5}, nil)

	err := behavior.NewRunner(task, nil, nil).Execute(context.Background())
	assert.ErrorIs(t, err, domain.ErrResourceUnavailable)
	assert.Equal(t, []gateway.ActionKind{gateway.ActionMove}, gw.Kinds())
}

func TestTrashcanEmptying_CancelStowsArm(t *testing.T) {
	gw := newFakeGateway(detection.NewMemoryFeed(), nil)
	sig := behavior.NewSignal()
	sig.Cancel()
	task := NewTrashcanEmptying(gateway.NewCaller(gw, 0, nil), domain.Point{X: 1}, domain.Point{X: 5}, nil)

	err := behavior.NewRunner(task, sig, nil).Execute(context.Background())
	assert.ErrorIs(t, err, behavior.ErrCancelled)
	assert.Equal(t, []gateway.ActionKind{gateway.ActionMove, gateway.ActionRestPose}, gw.Kinds())
}

func TestTrashcanEmptying_FailedStowIsLogged(t *testing.T) {
	gw := newFakeGateway(detection.NewMemoryFeed(), nil)
	gw.failures[gateway.ActionRestPose] = 1
	sig := behavior.NewSignal()
	sig.Cancel()
	core, logs := observer.New(zap.WarnLevel)
	task := NewTrashcanEmptying(gateway.NewCaller(gw, 0, nil), domain.Point{X: 1}, domain.Point{X: 5}, zap.New(core))

	err := behavior.NewRunner(task, sig, nil).Execute(context.Background())
	assert.ErrorIs(t, err, behavior.ErrCancelled)
	require.Equal(t, 1, logs.FilterMessage("stowing arm failed").Len())
	assert.Equal(t, zap.WarnLevel, logs.All()[0].Level)
}

func TestDirtRemoval_Sequence(t *testing.T) {
	gw := newFakeGateway(detection.NewMemoryFeed(), nil)
	task := NewDirtRemoval(gateway.NewCaller(gw, 0, nil), domain.Point{X: 2, Y: 2})

	require.NoError(t, behavior.NewRunner(task, nil, nil).Execute(context.Background()))
	assert.Equal(t, []gateway.ActionKind{
		gateway.ActionCheckAccessibility,
		gateway.ActionMove,
		gateway.ActionCleanSpot,
	}, gw.Kinds())
}
