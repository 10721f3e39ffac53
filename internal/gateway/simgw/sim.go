// Package simgw is an in-process gateway.Gateway used by `run --simulate`
// and by tests. It plans lawnmower coverage paths and walks them on a timer.
package simgw

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/alexanderramin/custodian/internal/domain"
	"github.com/alexanderramin/custodian/internal/gateway"
	"go.uber.org/zap"
)

type Config struct {
	// StepDuration is the time spent per waypoint and per short action.
	StepDuration time.Duration
}

func DefaultConfig() Config {
	return Config{StepDuration: 50 * time.Millisecond}
}

// WaypointFunc is called from the path goroutine each time a waypoint is
// reached.
type WaypointFunc func(roomID, index int, pose domain.Pose2D)

type Sim struct {
	cfg    Config
	logger *zap.Logger

	mu           sync.Mutex
	onWaypoint   WaypointFunc
	inaccessible map[domain.Point]bool
	actions      []gateway.ShortAction
}

var _ gateway.Gateway = (*Sim)(nil)

func New(cfg Config, logger *zap.Logger) *Sim {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sim{cfg: cfg, logger: logger, inaccessible: make(map[domain.Point]bool)}
}

// OnWaypoint registers fn to be called at each visited waypoint.
func (s *Sim) OnWaypoint(fn WaypointFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onWaypoint = fn
}

// Block makes p inaccessible for move and accessibility actions.
func (s *Sim) Block(p domain.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inaccessible[p] = true
}

// Actions returns the short actions run so far.
func (s *Sim) Actions() []gateway.ShortAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]gateway.ShortAction(nil), s.actions...)
}

// PlanCoverage returns a boustrophedon path over the room's bounding box with
// lanes one coverage diameter apart. Rooms without area get an empty path.
func (s *Sim) PlanCoverage(ctx context.Context, req gateway.CoverageRequest) ([]domain.Pose2D, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lane := 2 * req.CoverageRadius
	if lane <= 0 {
		lane = 0.5
	}
	minX, maxX := req.Room.Min.X, req.Room.Max.X
	minY, maxY := req.Room.Min.Y, req.Room.Max.Y
	if maxX <= minX || maxY <= minY {
		return nil, nil
	}

	var path []domain.Pose2D
	forward := true
	for y := minY + lane/2; y <= maxY; y += lane {
		if forward {
			path = append(path, domain.Pose2D{X: minX, Y: y}, domain.Pose2D{X: maxX, Y: y})
		} else {
			path = append(path, domain.Pose2D{X: maxX, Y: y, Theta: math.Pi}, domain.Pose2D{X: minX, Y: y, Theta: math.Pi})
		}
		forward = !forward
	}
	s.logger.Debug("simulated coverage planned", zap.Int("room_id", req.RoomID), zap.Int("waypoints", len(path)))
	return path, nil
}

func (s *Sim) FollowPath(ctx context.Context, req gateway.PathRequest) (gateway.PathHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	onWaypoint := s.onWaypoint
	s.mu.Unlock()

	h := &pathHandle{interrupt: make(chan struct{}), done: make(chan struct{})}
	go h.walk(ctx, s.cfg.StepDuration, req, onWaypoint)
	return h, nil
}

func (s *Sim) RunShortAction(ctx context.Context, action gateway.ShortAction) (gateway.Outcome, error) {
	s.mu.Lock()
	s.actions = append(s.actions, action)
	blocked := s.inaccessible[action.Target]
	s.mu.Unlock()

	if s.cfg.StepDuration > 0 {
		t := time.NewTimer(s.cfg.StepDuration)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return gateway.Outcome{}, ctx.Err()
		}
	}

	switch action.Kind {
	case gateway.ActionMove, gateway.ActionCheckAccessibility, gateway.ActionCatchTrashcan:
		if blocked {
			return gateway.Outcome{Status: gateway.OutcomeNotAccessible, Message: "blocked"}, nil
		}
	}
	return gateway.Outcome{Status: gateway.OutcomeSucceeded}, nil
}

type pathHandle struct {
	interrupt chan struct{}
	once      sync.Once
	done      chan struct{}
	result    gateway.PathResult
}

func (h *pathHandle) Interrupt() {
	h.once.Do(func() { close(h.interrupt) })
}

func (h *pathHandle) Done() <-chan struct{} { return h.done }

func (h *pathHandle) Result(ctx context.Context) (gateway.PathResult, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return gateway.PathResult{}, ctx.Err()
	}
}

func (h *pathHandle) walk(ctx context.Context, step time.Duration, req gateway.PathRequest, onWaypoint WaypointFunc) {
	defer close(h.done)
	if len(req.Path) == 0 {
		h.result.Completed = true
		return
	}
	ticker := time.NewTicker(max(step, time.Millisecond))
	defer ticker.Stop()

	for i, pose := range req.Path {
		if i > 0 {
			select {
			case <-ticker.C:
			case <-h.interrupt:
				return
			case <-ctx.Done():
				return
			}
		}
		h.result.LastVisitedIndex = i
		if onWaypoint != nil {
			onWaypoint(req.RoomID, i, pose)
		}
	}
	h.result.Completed = true
}
