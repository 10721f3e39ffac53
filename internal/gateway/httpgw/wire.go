package httpgw

import "github.com/alexanderramin/custodian/internal/domain"

type pointDTO struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type poseDTO struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

type roomDTO struct {
	Center pointDTO `json:"center"`
	Min    pointDTO `json:"min"`
	Max    pointDTO `json:"max"`
}

type mapDTO struct {
	Image      string     `json:"image"`
	Resolution float64    `json:"resolution"`
	Origin     [7]float64 `json:"origin"`
	FrameID    string     `json:"frame_id"`
}

type coverageRequest struct {
	RoomID         int         `json:"room_id"`
	Room           roomDTO     `json:"room"`
	Map            mapDTO      `json:"map"`
	RobotRadius    float64     `json:"robot_radius"`
	CoverageRadius float64     `json:"coverage_radius"`
	FieldOfView    [4]pointDTO `json:"field_of_view"`
	FrameID        string      `json:"frame_id"`
	Start          poseDTO     `json:"start"`
}

type coverageResponse struct {
	Path []poseDTO `json:"path"`
}

type tolerancesDTO struct {
	Path         float64 `json:"path"`
	GoalPosition float64 `json:"goal_position"`
	GoalAngle    float64 `json:"goal_angle"`
}

type pathRequest struct {
	RoomID     int           `json:"room_id"`
	Path       []poseDTO     `json:"path"`
	Tolerances tolerancesDTO `json:"tolerances"`
	FrameID    string        `json:"frame_id"`
}

type pathStarted struct {
	ID string `json:"id"`
}

// Path states reported by GET /paths/{id}.
const (
	pathRunning     = "running"
	pathCompleted   = "completed"
	pathInterrupted = "interrupted"
	pathFailed      = "failed"
)

type pathStatus struct {
	State            string `json:"state"`
	LastVisitedIndex int    `json:"last_visited_index"`
	Message          string `json:"message,omitempty"`
}

type actionRequest struct {
	Kind   string   `json:"kind"`
	Target pointDTO `json:"target"`
	Tool   string   `json:"tool,omitempty"`
}

type actionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func toPoint(p domain.Point) pointDTO {
	return pointDTO{X: p.X, Y: p.Y, Z: p.Z}
}

func toPoses(path []domain.Pose2D) []poseDTO {
	out := make([]poseDTO, len(path))
	for i, p := range path {
		out[i] = poseDTO{X: p.X, Y: p.Y, Theta: p.Theta}
	}
	return out
}

func fromPoses(path []poseDTO) []domain.Pose2D {
	out := make([]domain.Pose2D, len(path))
	for i, p := range path {
		out[i] = domain.Pose2D{X: p.X, Y: p.Y, Theta: p.Theta}
	}
	return out
}

func toMap(m domain.GlobalMapData) mapDTO {
	o := m.Origin
	return mapDTO{
		Image:      m.MapImage,
		Resolution: m.Resolution,
		Origin: [7]float64{
			o.Position.X, o.Position.Y, o.Position.Z,
			o.Orientation.W, o.Orientation.X, o.Orientation.Y, o.Orientation.Z,
		},
		FrameID: m.HeaderFrame,
	}
}
