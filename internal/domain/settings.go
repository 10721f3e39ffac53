package domain

import "time"

type GlobalSettings struct {
	AutoCompleteOverdue bool
	MaxAuxTime          time.Duration
	AssignmentTimedelta time.Duration
}

// DefaultGlobalSettings mirrors the values shipped with a fresh database.
func DefaultGlobalSettings() GlobalSettings {
	return GlobalSettings{
		AutoCompleteOverdue: true,
		MaxAuxTime:          2 * time.Hour,
		AssignmentTimedelta: 14 * 24 * time.Hour,
	}
}

// Tolerances bounds how closely a path-following skill must track its goal.
type Tolerances struct {
	Path         float64
	GoalPosition float64
	GoalAngle    float64
}

type RobotProperties struct {
	ExplorationRobotRadius    float64
	ExplorationCoverageRadius float64
	ExplorationFieldOfView    [4]Point
	ExplorationFOVOrigin      Point
	ExplorationHeaderFrameID  string

	PathFollow Tolerances
	WallFollow Tolerances
}

// DefaultRobotProperties returns the geometry of the reference platform.
func DefaultRobotProperties() RobotProperties {
	return RobotProperties{
		ExplorationRobotRadius:    0.2875,
		ExplorationCoverageRadius: 0.233655,
		ExplorationFieldOfView: [4]Point{
			{X: 0.04035, Y: 0.136},
			{X: 0.04035, Y: -0.364},
			{X: 0.54035, Y: -0.364},
			{X: 0.54035, Y: 0.136},
		},
		ExplorationHeaderFrameID: "base_link",
		PathFollow:               Tolerances{Path: 0.2, GoalPosition: 0.5, GoalAngle: 1.57},
		WallFollow:               Tolerances{Path: 0.2, GoalPosition: 0.4, GoalAngle: 1.57},
	}
}

// Pose is a position plus orientation quaternion.
type Pose struct {
	Position    Point
	Orientation Quaternion
}

type Quaternion struct {
	W float64
	X float64
	Y float64
	Z float64
}

type GlobalMapData struct {
	MapImage    string
	Resolution  float64
	Origin      Pose
	HeaderFrame string
}
