package domain

import "time"

type CleaningMethod int

const (
	MethodDry CleaningMethod = 0
	MethodWet CleaningMethod = 1
)

func (m CleaningMethod) String() string {
	switch m {
	case MethodDry:
		return "dry"
	case MethodWet:
		return "wet"
	default:
		return "unknown"
	}
}

// TaskType identifies a kind of work performed during a room visit.
// Values match the persisted open_cleaning_tasks codes.
type TaskType int

const (
	TaskTrash TaskType = -1
	TaskDry   TaskType = 0
	TaskWet   TaskType = 1
)

func (t TaskType) String() string {
	switch t {
	case TaskTrash:
		return "trash"
	case TaskDry:
		return "dry"
	case TaskWet:
		return "wet"
	default:
		return "unknown"
	}
}

type Point struct {
	X float64
	Y float64
	Z float64
}

type Pose2D struct {
	X     float64
	Y     float64
	Theta float64
}

// RoomInformation is the room center plus its bounding box corners.
type RoomInformation struct {
	Center Point
	Min    Point
	Max    Point
}

type RoomIssue struct {
	ID         int
	Type       int
	Images     []string
	Position   Point
	DetectedAt time.Time
}

type Room struct {
	ID          int
	Name        string
	PositionID  int
	FloorID     int
	BuildingID  int
	TerritoryID int

	Map           string
	InfoInPixel   *RoomInformation
	InfoInMeter   *RoomInformation
	SurfaceType   int
	Method        CleaningMethod
	SurfaceArea   float64
	TrashcanCount int

	Issues            []RoomIssue
	ScheduledDays     []int
	OpenCleaningTasks []TaskType

	// CleaningDatestamps holds the last cleaning time per calendar slot.
	CleaningDatestamps [SlotCount]*time.Time
}

// Center returns the room center in meters, or the zero point when the room
// carries no metric information.
func (r *Room) Center() Point {
	if r.InfoInMeter == nil {
		return Point{}
	}
	return r.InfoInMeter.Center
}

// CleanedOn reports whether the room was stamped for slot on the same
// calendar day as now.
func (r *Room) CleanedOn(slot Slot, now time.Time) bool {
	ts := r.CleaningDatestamps[slot.Index()]
	if ts == nil {
		return false
	}
	y1, m1, d1 := ts.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// MarkCleaned stamps the room for slot. Stamps are truncated to the minute
// to match the persisted precision.
func (r *Room) MarkCleaned(slot Slot, at time.Time) {
	ts := at.Truncate(time.Minute)
	r.CleaningDatestamps[slot.Index()] = &ts
}

func (r *Room) HasTask(t TaskType) bool {
	for _, open := range r.OpenCleaningTasks {
		if open == t {
			return true
		}
	}
	return false
}
