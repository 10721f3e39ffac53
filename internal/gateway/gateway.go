// Package gateway is the boundary to the robot's action servers: coverage
// planning, path following and short manipulation or motion actions.
package gateway

import (
	"context"

	"github.com/alexanderramin/custodian/internal/domain"
)

// CoverageRequest asks the planner for a path covering one room.
type CoverageRequest struct {
	RoomID         int
	Room           domain.RoomInformation
	Map            domain.GlobalMapData
	RobotRadius    float64
	CoverageRadius float64
	FieldOfView    [4]domain.Point
	FrameID        string
	Start          domain.Pose2D
}

// PathRequest starts a path-following long action.
type PathRequest struct {
	RoomID     int
	Path       []domain.Pose2D
	Tolerances domain.Tolerances
	FrameID    string
}

// PathResult is the final state of a path-following action.
// LastVisitedIndex indexes the Path of the request that started it.
type PathResult struct {
	Completed        bool
	LastVisitedIndex int
}

type ActionKind string

const (
	ActionMove               ActionKind = "move"
	ActionCheckAccessibility ActionKind = "check_accessibility"
	ActionCatchTrashcan      ActionKind = "catch_trashcan"
	ActionEmptyTrashcan      ActionKind = "empty_trashcan"
	ActionLeaveTrashcan      ActionKind = "leave_trashcan"
	ActionTransportPose      ActionKind = "transport_pose"
	ActionRestPose           ActionKind = "rest_pose"
	ActionCleanSpot          ActionKind = "clean_spot"
	ActionStartDirtDetector  ActionKind = "start_dirt_detector"
	ActionStopDirtDetector   ActionKind = "stop_dirt_detector"
	ActionStartTrashDetector ActionKind = "start_trash_detector"
	ActionStopTrashDetector  ActionKind = "stop_trash_detector"
	ActionChangeTool         ActionKind = "change_tool"
)

// Tools mounted by ActionChangeTool.
const (
	ToolVacuum = "vacuum"
	ToolMop    = "mop"
)

type ShortAction struct {
	Kind   ActionKind
	Target domain.Point
	Tool   string
}

type OutcomeStatus string

const (
	OutcomeSucceeded     OutcomeStatus = "succeeded"
	OutcomeFailed        OutcomeStatus = "failed"
	OutcomeNotAccessible OutcomeStatus = "not_accessible"
)

// Outcome is the server's answer to a short action.
type Outcome struct {
	Status  OutcomeStatus
	Message string
}

type Gateway interface {
	PlanCoverage(ctx context.Context, req CoverageRequest) ([]domain.Pose2D, error)
	FollowPath(ctx context.Context, req PathRequest) (PathHandle, error)
	RunShortAction(ctx context.Context, action ShortAction) (Outcome, error)
}

// PathHandle tracks a running path-following action. Interrupt is safe to
// call more than once and from any goroutine.
type PathHandle interface {
	Interrupt()
	Done() <-chan struct{}
	Result(ctx context.Context) (PathResult, error)
}
