// Package cleaning executes room visits: coverage path following that is
// pre-empted by dirt and trashcan detections, handled, and resumed where it
// stopped.
package cleaning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/custodian/internal/behavior"
	"github.com/alexanderramin/custodian/internal/detection"
	"github.com/alexanderramin/custodian/internal/domain"
	"github.com/alexanderramin/custodian/internal/gateway"
	"github.com/alexanderramin/custodian/internal/schedule"
	"go.uber.org/zap"
)

type Config struct {
	// PollInterval is how often the control loop looks at the latch while
	// a path is being followed.
	PollInterval time.Duration
	Policy       detection.Policy
	Priority     []detection.Kind
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 2 * time.Second,
		Policy:       detection.PolicyHandleBoth,
		Priority:     detection.DefaultPriority,
	}
}

// Visit is the outcome of one room visit.
type Visit struct {
	RoomID             int
	Status             domain.LogStatus
	Tasks              []domain.TaskType
	FoundDirtspots     int
	FoundTrashcans     int
	CleanedSurfaceArea float64
	Reason             string
	Duration           time.Duration
	// Segments counts the path-following actions started for the room.
	Segments int
}

// Cleaner visits rooms with one cleaning method. Dry cleaners listen for
// detections while following the path; wet cleaners do not.
type Cleaner struct {
	method  domain.CleaningMethod
	gw      *gateway.Caller
	feed    detection.Feed
	robot   domain.RobotProperties
	mapData domain.GlobalMapData
	cfg     Config
	logger  *zap.Logger
}

func NewDryCleaner(gw *gateway.Caller, feed detection.Feed, robot domain.RobotProperties, mapData domain.GlobalMapData, cfg Config, logger *zap.Logger) *Cleaner {
	return newCleaner(domain.MethodDry, gw, feed, robot, mapData, cfg, logger)
}

func NewWetCleaner(gw *gateway.Caller, robot domain.RobotProperties, mapData domain.GlobalMapData, cfg Config, logger *zap.Logger) *Cleaner {
	return newCleaner(domain.MethodWet, gw, nil, robot, mapData, cfg, logger)
}

func newCleaner(method domain.CleaningMethod, gw *gateway.Caller, feed detection.Feed, robot domain.RobotProperties, mapData domain.GlobalMapData, cfg Config, logger *zap.Logger) *Cleaner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{
		method:  method,
		gw:      gw,
		feed:    feed,
		robot:   robot,
		mapData: mapData,
		cfg:     cfg,
		logger:  logger,
	}
}

func (c *Cleaner) Method() domain.CleaningMethod { return c.method }

// Tool is the cleaning tool the method needs.
func (c *Cleaner) Tool() string {
	if c.method == domain.MethodWet {
		return gateway.ToolMop
	}
	return gateway.ToolVacuum
}

// PrepareTool mounts the cleaning tool before a phase.
func (c *Cleaner) PrepareTool(ctx context.Context) error {
	return c.gw.Do(ctx, gateway.ShortAction{Kind: gateway.ActionChangeTool, Tool: c.Tool()})
}

// Visit cleans one room under the supervisor signal. It returns a nil error
// for completed and skipped visits, an error wrapping behavior.ErrCancelled
// for cancelled ones and the failure otherwise. The Visit is filled in all
// cases.
func (c *Cleaner) Visit(ctx context.Context, signal *behavior.Signal, room *domain.Room, job schedule.Job) (Visit, error) {
	v := &roomVisit{
		c:    c,
		room: room,
		job:  job,
		out:  Visit{RoomID: room.ID, Tasks: c.tasks(job)},
	}
	logger := c.logger.With(zap.Int("room_id", room.ID))
	start := time.Now()
	err := behavior.NewRunner(v, signal, logger).Execute(ctx)
	v.out.Duration = time.Since(start)

	switch {
	case err == nil:
	case errors.Is(err, behavior.ErrCancelled):
		v.out.Status = domain.LogCancelled
		v.out.Reason = "cancelled"
	default:
		v.out.Status = domain.LogFailed
		v.out.Reason = err.Error()
	}
	return v.out, err
}

// Abandon returns the failed Visit of a job that could not be started.
func (c *Cleaner) Abandon(job schedule.Job, err error) Visit {
	return Visit{
		RoomID: job.RoomID,
		Status: domain.LogFailed,
		Tasks:  c.tasks(job),
		Reason: err.Error(),
	}
}

func (c *Cleaner) tasks(job schedule.Job) []domain.TaskType {
	var tasks []domain.TaskType
	if job.Clean {
		if c.method == domain.MethodWet {
			tasks = append(tasks, domain.TaskWet)
		} else {
			tasks = append(tasks, domain.TaskDry)
		}
	}
	if job.Trash && c.method == domain.MethodDry {
		tasks = append(tasks, domain.TaskTrash)
	}
	return tasks
}

func (c *Cleaner) kinds() []detection.Kind {
	if c.feed == nil {
		return nil
	}
	return []detection.Kind{detection.KindDirt, detection.KindTrash}
}

// roomVisit is the behavior task for one room.
type roomVisit struct {
	c    *Cleaner
	room *domain.Room
	job  schedule.Job
	out  Visit
}

func (v *roomVisit) Name() string {
	return v.c.method.String() + "_cleaning"
}

func (v *roomVisit) Run(ctx context.Context, ctl *behavior.Control) error {
	if err := ctl.Checkpoint(ctx); err != nil {
		return err
	}
	path, err := v.approach(ctx)
	if err != nil {
		return err
	}
	if len(path) == 0 {
		ctl.Logger().Info("empty coverage path, room already clean")
		v.out.Status = domain.LogSkipped
		v.out.Reason = "already clean"
		return nil
	}
	if err := v.follow(ctx, ctl, path); err != nil {
		return err
	}
	v.out.Status = domain.LogCompleted
	v.out.CleanedSurfaceArea = v.room.SurfaceArea
	return nil
}

// approach drives to the room center while the coverage path is planned.
func (v *roomVisit) approach(ctx context.Context) ([]domain.Pose2D, error) {
	center := v.room.Center()
	moved := make(chan error, 1)
	go func() {
		moved <- v.c.gw.Do(ctx, gateway.ShortAction{Kind: gateway.ActionMove, Target: center})
	}()

	var info domain.RoomInformation
	if v.room.InfoInMeter != nil {
		info = *v.room.InfoInMeter
	}
	path, planErr := v.c.gw.PlanCoverage(ctx, gateway.CoverageRequest{
		RoomID:         v.room.ID,
		Room:           info,
		Map:            v.c.mapData,
		RobotRadius:    v.c.robot.ExplorationRobotRadius,
		CoverageRadius: v.c.robot.ExplorationCoverageRadius,
		FieldOfView:    v.c.robot.ExplorationFieldOfView,
		FrameID:        v.c.mapData.HeaderFrame,
		Start:          domain.Pose2D{X: center.X, Y: center.Y},
	})

	if err := <-moved; err != nil {
		return nil, fmt.Errorf("moving to room %d: %w", v.room.ID, err)
	}
	if planErr != nil {
		return nil, planErr
	}
	return path, nil
}

// follow runs the path, handling detections and resuming from the last
// visited waypoint until the path completes.
func (v *roomVisit) follow(ctx context.Context, ctl *behavior.Control, path []domain.Pose2D) error {
	latch := detection.NewLatch(v.c.cfg.Policy, v.c.cfg.Priority)
	for {
		if err := ctl.Checkpoint(ctx); err != nil {
			return err
		}
		res, stopped, err := v.segment(ctx, ctl, latch, path)
		if err != nil {
			return err
		}
		if res.Completed {
			return nil
		}
		if !stopped {
			return fmt.Errorf("path in room %d aborted at waypoint %d: %w",
				v.room.ID, res.LastVisitedIndex, domain.ErrServiceFailure)
		}

		// Pauses block here, with the path stopped.
		if err := ctl.Checkpoint(ctx); err != nil {
			return err
		}
		for {
			d, ok := latch.Take()
			if !ok {
				break
			}
			if err := v.handle(ctx, ctl, d); err != nil {
				return err
			}
		}

		idx := min(max(res.LastVisitedIndex, 0), len(path)-1)
		ctl.Logger().Debug("resuming path", zap.Int("from", idx), zap.Int("remaining", len(path)-idx))
		path = path[idx:]
	}
}

// segment follows path until it completes, a detection is latched, the
// signal changes or ctx ends. stopped reports whether the path was
// interrupted from this side.
func (v *roomVisit) segment(ctx context.Context, ctl *behavior.Control, latch *detection.Latch, path []domain.Pose2D) (res gateway.PathResult, stopped bool, err error) {
	latch.Reset()
	latch.Arm()

	var subs []detection.Subscription
	var started []detection.Kind
	release := func() {
		latch.Disarm()
		cleanup := context.WithoutCancel(ctx)
		for _, k := range started {
			if err := v.c.gw.Do(cleanup, gateway.ShortAction{Kind: stopDetector(k)}); err != nil {
				ctl.Logger().Warn("stopping detector failed", zap.Stringer("kind", k), zap.Error(err))
			}
		}
		for _, s := range subs {
			if err := s.Unsubscribe(); err != nil {
				ctl.Logger().Warn("unsubscribing detector failed", zap.Error(err))
			}
		}
	}

	for _, k := range v.c.kinds() {
		sub, err := v.c.feed.Subscribe(k, latch.Handler())
		if err != nil {
			release()
			return res, false, fmt.Errorf("subscribing to %s detections: %w", k, err)
		}
		subs = append(subs, sub)
	}
	for _, k := range v.c.kinds() {
		if err := v.c.gw.Do(ctx, gateway.ShortAction{Kind: startDetector(k)}); err != nil {
			release()
			return res, false, err
		}
		started = append(started, k)
	}

	h, err := v.c.gw.FollowPath(ctx, gateway.PathRequest{
		RoomID:     v.room.ID,
		Path:       path,
		Tolerances: v.c.robot.PathFollow,
		FrameID:    v.c.mapData.HeaderFrame,
	})
	if err != nil {
		release()
		return res, false, err
	}
	v.out.Segments++

	stopped = v.watch(ctx, ctl.Signal(), latch, h)
	release()
	if stopped {
		h.Interrupt()
	}
	res, err = h.Result(context.WithoutCancel(ctx))
	if err != nil {
		return res, stopped, fmt.Errorf("following path in room %d: %w", v.room.ID, gateway.Classify(err))
	}
	return res, stopped, nil
}

// watch blocks until the path ends on its own (false) or must be stopped
// (true).
func (v *roomVisit) watch(ctx context.Context, sig *behavior.Signal, latch *detection.Latch, h gateway.PathHandle) bool {
	ticker := time.NewTicker(v.c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		changed := sig.Changed()
		if sig.Level() != behavior.LevelNone {
			return true
		}
		select {
		case <-h.Done():
			return false
		case <-ticker.C:
			if latch.Pending() {
				return true
			}
		case <-changed:
		case <-ctx.Done():
			return true
		}
	}
}

// handle runs the handler behavior for d to completion. Handlers share the
// room's signal. An unreachable target fails the handler, not the room.
func (v *roomVisit) handle(ctx context.Context, ctl *behavior.Control, d detection.Detection) error {
	var task behavior.Task
	switch d.Kind {
	case detection.KindDirt:
		v.out.FoundDirtspots++
		task = NewDirtRemoval(v.c.gw, d.Position)
	case detection.KindTrash:
		v.out.FoundTrashcans++
		task = NewTrashcanEmptying(v.c.gw, d.Position, v.room.Center(), ctl.Logger())
	default:
		return nil
	}

	logger := v.c.logger.With(zap.Int("room_id", v.room.ID))
	err := behavior.NewRunner(task, ctl.Signal(), logger).Execute(ctx)
	if err != nil && !errors.Is(err, behavior.ErrCancelled) && errors.Is(err, domain.ErrResourceUnavailable) {
		logger.Warn("detection not handled, target unreachable",
			zap.Stringer("kind", d.Kind),
			zap.Float64("x", d.Position.X),
			zap.Float64("y", d.Position.Y),
			zap.Error(err),
		)
		return nil
	}
	return err
}

func startDetector(k detection.Kind) gateway.ActionKind {
	if k == detection.KindTrash {
		return gateway.ActionStartTrashDetector
	}
	return gateway.ActionStartDirtDetector
}

func stopDetector(k detection.Kind) gateway.ActionKind {
	if k == detection.KindTrash {
		return gateway.ActionStopTrashDetector
	}
	return gateway.ActionStopDirtDetector
}
