// Package jsonfile persists store snapshots as the JSON document set used by
// the robot's resource directory (rooms.json, assignments.json, ...).
package jsonfile

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/alexanderramin/custodian/internal/domain"
)

type roomFile map[string]roomJSON

type roomJSON struct {
	ID                 int                  `json:"room_id"`
	Name               string               `json:"room_name"`
	PositionID         int                  `json:"room_position_id"`
	FloorID            int                  `json:"room_floor_id"`
	BuildingID         int                  `json:"room_building_id"`
	TerritoryID        int                  `json:"room_territory_id"`
	Issues             map[string]issueJSON `json:"room_issues"`
	Map                *string              `json:"room_map"`
	InfoInPixel        [3]*[3]float64       `json:"room_information_in_pixel"`
	InfoInMeter        [3]*[3]float64       `json:"room_information_in_meter"`
	SurfaceType        int                  `json:"room_surface_type"`
	CleaningMethod     int                  `json:"room_cleaning_method"`
	SurfaceArea        float64              `json:"room_surface_area"`
	TrashcanCount      int                  `json:"room_trashcan_count"`
	ScheduledDays      []int                `json:"room_scheduled_days"`
	OpenCleaningTasks  []int                `json:"open_cleaning_tasks,omitempty"`
	CleaningDatestamps []*string            `json:"room_cleaning_datestamps"`
}

type issueJSON struct {
	ID     int        `json:"issue_id"`
	Type   int        `json:"issue_type"`
	Images []string   `json:"issue_images"`
	Coords [3]float64 `json:"issue_coords"`
	Date   string     `json:"issue_date"`
}

type assignmentJSON struct {
	WeekType      int     `json:"assignment_week_type"`
	WeekDay       int     `json:"assignment_week_day"`
	CleaningRooms []int   `json:"scheduled_rooms_cleaning"`
	TrashRooms    []int   `json:"scheduled_rooms_trashcan"`
	LastCompleted *string `json:"last_successful_clean_date"`
}

type settingsJSON struct {
	ShallAutoComplete bool `json:"shall_auto_complete"`
	// MaxAuxTime is in minutes.
	MaxAuxTime float64 `json:"max_aux_time"`
	// AssignmentTimedelta is in days.
	AssignmentTimedelta float64 `json:"assignment_timedelta"`
}

type robotJSON struct {
	ExplorationRobotRadius          float64       `json:"exploration_robot_radius"`
	ExplorationCoverageRadius       float64       `json:"exploration_coverage_radius"`
	ExplorationFieldOfView          [4][2]float64 `json:"exploration_field_of_view"`
	ExplorationFieldOfViewOrigin    *[2]float64   `json:"exploration_field_of_view_origin,omitempty"`
	ExplorationHeaderFrameID        string        `json:"exploration_header_frame_id"`
	PathFollowPathTolerance         float64       `json:"path_follow_path_tolerance"`
	PathFollowGoalPositionTolerance float64       `json:"path_follow_goal_position_tolerance"`
	PathFollowGoalAngleTolerance    float64       `json:"path_follow_goal_angle_tolerance"`
	WallFollowPathTolerance         float64       `json:"wall_follow_path_tolerance"`
	WallFollowGoalPositionTolerance float64       `json:"wall_follow_goal_position_tolerance"`
	WallFollowGoalAngleTolerance    float64       `json:"wall_follow_goal_angle_tolerance"`
}

type mapJSON struct {
	MapImage    string     `json:"map_image,omitempty"`
	Resolution  float64    `json:"map_resolution"`
	Origin      [7]float64 `json:"map_origin"`
	HeaderFrame string     `json:"map_header_frame_id"`
}

type logJSON struct {
	ID                 string  `json:"log_id"`
	RoomID             int     `json:"room_id"`
	Status             int     `json:"status"`
	Tasks              []int   `json:"tasks"`
	FoundDirtspots     int     `json:"found_dirtspots"`
	FoundTrashcans     int     `json:"found_trashcans"`
	CleanedSurfaceArea float64 `json:"cleaned_surface_area"`
	UsedWaterAmount    float64 `json:"used_water_amount"`
	BatteryUsage       float64 `json:"battery_usage"`
	Reason             string  `json:"reason,omitempty"`
	Date               string  `json:"date"`
}

// DefaultMapImage is used when global_map_data.json names no image.
const DefaultMapImage = "global_map.png"

// EncodeRooms renders rooms in the rooms.json layout, keyed by room id.
func EncodeRooms(rooms []*domain.Room) ([]byte, error) {
	out := make(roomFile, len(rooms))
	for _, r := range rooms {
		out[strconv.Itoa(r.ID)] = roomToJSON(r)
	}
	return json.MarshalIndent(out, "", "    ")
}

// DecodeRooms parses a rooms.json document. Rooms are returned ordered by id.
func DecodeRooms(data []byte) ([]*domain.Room, error) {
	var in roomFile
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parsing rooms: %w", err)
	}
	rooms := make([]*domain.Room, 0, len(in))
	for key, rj := range in {
		r, err := roomFromJSON(rj)
		if err != nil {
			return nil, fmt.Errorf("room %q: %w", key, err)
		}
		if key != strconv.Itoa(r.ID) {
			return nil, fmt.Errorf("room key %q does not match room_id %d: %w", key, r.ID, domain.ErrInvariantViolation)
		}
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

func EncodeAssignments(assignments []*domain.Assignment) ([]byte, error) {
	out := make([]assignmentJSON, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, assignmentJSON{
			WeekType:      a.Slot.WeekType,
			WeekDay:       a.Slot.WeekDay,
			CleaningRooms: nonNil(a.CleaningRooms),
			TrashRooms:    nonNil(a.TrashRooms),
			LastCompleted: domain.FormatStampPtr(a.LastCompleted),
		})
	}
	return json.MarshalIndent(out, "", "    ")
}

func DecodeAssignments(data []byte) ([]*domain.Assignment, error) {
	var in []assignmentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parsing assignments: %w", err)
	}
	out := make([]*domain.Assignment, 0, len(in))
	for _, aj := range in {
		last, err := domain.ParseStampPtr(aj.LastCompleted)
		if err != nil {
			return nil, fmt.Errorf("assignment w%d/d%d: %w", aj.WeekType, aj.WeekDay, err)
		}
		out = append(out, &domain.Assignment{
			Slot:          domain.Slot{WeekType: aj.WeekType, WeekDay: aj.WeekDay},
			CleaningRooms: nonNil(aj.CleaningRooms),
			TrashRooms:    nonNil(aj.TrashRooms),
			LastCompleted: last,
		})
	}
	return out, nil
}

func encodeSettings(s domain.GlobalSettings) ([]byte, error) {
	return json.MarshalIndent(settingsJSON{
		ShallAutoComplete:   s.AutoCompleteOverdue,
		MaxAuxTime:          s.MaxAuxTime.Minutes(),
		AssignmentTimedelta: s.AssignmentTimedelta.Hours() / 24,
	}, "", "    ")
}

func decodeSettings(data []byte) (domain.GlobalSettings, error) {
	var in settingsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return domain.GlobalSettings{}, fmt.Errorf("parsing global settings: %w", err)
	}
	return domain.GlobalSettings{
		AutoCompleteOverdue: in.ShallAutoComplete,
		MaxAuxTime:          time.Duration(in.MaxAuxTime * float64(time.Minute)),
		AssignmentTimedelta: time.Duration(in.AssignmentTimedelta * float64(24*time.Hour)),
	}, nil
}

func encodeRobot(p domain.RobotProperties) ([]byte, error) {
	out := robotJSON{
		ExplorationRobotRadius:          p.ExplorationRobotRadius,
		ExplorationCoverageRadius:       p.ExplorationCoverageRadius,
		ExplorationFieldOfViewOrigin:    &[2]float64{p.ExplorationFOVOrigin.X, p.ExplorationFOVOrigin.Y},
		ExplorationHeaderFrameID:        p.ExplorationHeaderFrameID,
		PathFollowPathTolerance:         p.PathFollow.Path,
		PathFollowGoalPositionTolerance: p.PathFollow.GoalPosition,
		PathFollowGoalAngleTolerance:    p.PathFollow.GoalAngle,
		WallFollowPathTolerance:         p.WallFollow.Path,
		WallFollowGoalPositionTolerance: p.WallFollow.GoalPosition,
		WallFollowGoalAngleTolerance:    p.WallFollow.GoalAngle,
	}
	for i, pt := range p.ExplorationFieldOfView {
		out.ExplorationFieldOfView[i] = [2]float64{pt.X, pt.Y}
	}
	return json.MarshalIndent(out, "", "    ")
}

func decodeRobot(data []byte) (domain.RobotProperties, error) {
	var in robotJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return domain.RobotProperties{}, fmt.Errorf("parsing robot properties: %w", err)
	}
	p := domain.RobotProperties{
		ExplorationRobotRadius:    in.ExplorationRobotRadius,
		ExplorationCoverageRadius: in.ExplorationCoverageRadius,
		ExplorationHeaderFrameID:  in.ExplorationHeaderFrameID,
		PathFollow: domain.Tolerances{
			Path:         in.PathFollowPathTolerance,
			GoalPosition: in.PathFollowGoalPositionTolerance,
			GoalAngle:    in.PathFollowGoalAngleTolerance,
		},
		WallFollow: domain.Tolerances{
			Path:         in.WallFollowPathTolerance,
			GoalPosition: in.WallFollowGoalPositionTolerance,
			GoalAngle:    in.WallFollowGoalAngleTolerance,
		},
	}
	for i, pt := range in.ExplorationFieldOfView {
		p.ExplorationFieldOfView[i] = domain.Point{X: pt[0], Y: pt[1]}
	}
	if in.ExplorationFieldOfViewOrigin != nil {
		p.ExplorationFOVOrigin = domain.Point{X: in.ExplorationFieldOfViewOrigin[0], Y: in.ExplorationFieldOfViewOrigin[1]}
	}
	return p, nil
}

func encodeMap(m domain.GlobalMapData) ([]byte, error) {
	o := m.Origin
	return json.MarshalIndent(mapJSON{
		MapImage:   m.MapImage,
		Resolution: m.Resolution,
		Origin: [7]float64{
			o.Position.X, o.Position.Y, o.Position.Z,
			o.Orientation.W, o.Orientation.X, o.Orientation.Y, o.Orientation.Z,
		},
		HeaderFrame: m.HeaderFrame,
	}, "", "    ")
}

func decodeMap(data []byte) (domain.GlobalMapData, error) {
	var in mapJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return domain.GlobalMapData{}, fmt.Errorf("parsing global map data: %w", err)
	}
	m := domain.GlobalMapData{
		MapImage:    in.MapImage,
		Resolution:  in.Resolution,
		HeaderFrame: in.HeaderFrame,
	}
	if m.MapImage == "" {
		m.MapImage = DefaultMapImage
	}
	m.Origin.Position = domain.Point{X: in.Origin[0], Y: in.Origin[1], Z: in.Origin[2]}
	m.Origin.Orientation = domain.Quaternion{W: in.Origin[3], X: in.Origin[4], Y: in.Origin[5], Z: in.Origin[6]}
	return m, nil
}

func encodeLog(entries []*domain.LogEntry) ([]byte, error) {
	out := make([]logJSON, 0, len(entries))
	for _, e := range entries {
		tasks := make([]int, 0, len(e.Tasks))
		for _, t := range e.Tasks {
			tasks = append(tasks, int(t))
		}
		out = append(out, logJSON{
			ID:                 e.ID,
			RoomID:             e.RoomID,
			Status:             int(e.Status),
			Tasks:              tasks,
			FoundDirtspots:     e.FoundDirtspots,
			FoundTrashcans:     e.FoundTrashcans,
			CleanedSurfaceArea: e.CleanedSurfaceArea,
			UsedWaterAmount:    e.UsedWaterAmount,
			BatteryUsage:       e.BatteryUsage,
			Reason:             e.Reason,
			Date:               domain.FormatStamp(e.CreatedAt),
		})
	}
	return json.MarshalIndent(out, "", "    ")
}

func decodeLog(data []byte) ([]*domain.LogEntry, error) {
	var in []logJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parsing log: %w", err)
	}
	out := make([]*domain.LogEntry, 0, len(in))
	for _, lj := range in {
		created, err := domain.ParseStamp(lj.Date)
		if err != nil {
			return nil, fmt.Errorf("log entry %s: %w", lj.ID, err)
		}
		e := &domain.LogEntry{
			ID:                 lj.ID,
			RoomID:             lj.RoomID,
			Status:             domain.LogStatus(lj.Status),
			FoundDirtspots:     lj.FoundDirtspots,
			FoundTrashcans:     lj.FoundTrashcans,
			CleanedSurfaceArea: lj.CleanedSurfaceArea,
			UsedWaterAmount:    lj.UsedWaterAmount,
			BatteryUsage:       lj.BatteryUsage,
			Reason:             lj.Reason,
			CreatedAt:          created,
		}
		for _, t := range lj.Tasks {
			e.Tasks = append(e.Tasks, domain.TaskType(t))
		}
		out = append(out, e)
	}
	return out, nil
}

func roomToJSON(r *domain.Room) roomJSON {
	rj := roomJSON{
		ID:                 r.ID,
		Name:               r.Name,
		PositionID:         r.PositionID,
		FloorID:            r.FloorID,
		BuildingID:         r.BuildingID,
		TerritoryID:        r.TerritoryID,
		Issues:             make(map[string]issueJSON, len(r.Issues)),
		SurfaceType:        r.SurfaceType,
		CleaningMethod:     int(r.Method),
		SurfaceArea:        r.SurfaceArea,
		TrashcanCount:      r.TrashcanCount,
		ScheduledDays:      nonNil(r.ScheduledDays),
		CleaningDatestamps: make([]*string, domain.SlotCount),
	}
	if r.Map != "" {
		m := r.Map
		rj.Map = &m
	}
	// The original layout writes all-null information unless both frames are known.
	if r.InfoInPixel != nil && r.InfoInMeter != nil {
		rj.InfoInPixel = infoToJSON(r.InfoInPixel)
		rj.InfoInMeter = infoToJSON(r.InfoInMeter)
	}
	for _, issue := range r.Issues {
		rj.Issues[strconv.Itoa(issue.ID)] = issueJSON{
			ID:     issue.ID,
			Type:   issue.Type,
			Images: nonNilStrings(issue.Images),
			Coords: [3]float64{issue.Position.X, issue.Position.Y, issue.Position.Z},
			Date:   domain.FormatStamp(issue.DetectedAt),
		}
	}
	for _, t := range r.OpenCleaningTasks {
		rj.OpenCleaningTasks = append(rj.OpenCleaningTasks, int(t))
	}
	for i, ts := range r.CleaningDatestamps {
		rj.CleaningDatestamps[i] = domain.FormatStampPtr(ts)
	}
	return rj
}

func roomFromJSON(rj roomJSON) (*domain.Room, error) {
	if rj.CleaningMethod != int(domain.MethodDry) && rj.CleaningMethod != int(domain.MethodWet) {
		return nil, fmt.Errorf("cleaning method %d: %w", rj.CleaningMethod, domain.ErrInvariantViolation)
	}
	if len(rj.CleaningDatestamps) > domain.SlotCount {
		return nil, fmt.Errorf("%d datestamps, calendar has %d slots: %w",
			len(rj.CleaningDatestamps), domain.SlotCount, domain.ErrInvariantViolation)
	}
	r := &domain.Room{
		ID:            rj.ID,
		Name:          rj.Name,
		PositionID:    rj.PositionID,
		FloorID:       rj.FloorID,
		BuildingID:    rj.BuildingID,
		TerritoryID:   rj.TerritoryID,
		SurfaceType:   rj.SurfaceType,
		Method:        domain.CleaningMethod(rj.CleaningMethod),
		SurfaceArea:   rj.SurfaceArea,
		TrashcanCount: rj.TrashcanCount,
		ScheduledDays: nonNil(rj.ScheduledDays),
		InfoInPixel:   infoFromJSON(rj.InfoInPixel),
		InfoInMeter:   infoFromJSON(rj.InfoInMeter),
	}
	if rj.Map != nil {
		r.Map = *rj.Map
	}
	for _, t := range rj.OpenCleaningTasks {
		r.OpenCleaningTasks = append(r.OpenCleaningTasks, domain.TaskType(t))
	}
	for i, s := range rj.CleaningDatestamps {
		ts, err := domain.ParseStampPtr(s)
		if err != nil {
			return nil, fmt.Errorf("datestamp %d: %w", i, err)
		}
		r.CleaningDatestamps[i] = ts
	}

	keys := make([]string, 0, len(rj.Issues))
	for k := range rj.Issues {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return rj.Issues[keys[i]].ID < rj.Issues[keys[j]].ID })
	for _, k := range keys {
		ij := rj.Issues[k]
		date, err := domain.ParseStamp(ij.Date)
		if err != nil {
			return nil, fmt.Errorf("issue %s: %w", k, err)
		}
		r.Issues = append(r.Issues, domain.RoomIssue{
			ID:         ij.ID,
			Type:       ij.Type,
			Images:     ij.Images,
			Position:   domain.Point{X: ij.Coords[0], Y: ij.Coords[1], Z: ij.Coords[2]},
			DetectedAt: date,
		})
	}
	return r, nil
}

func infoToJSON(info *domain.RoomInformation) [3]*[3]float64 {
	return [3]*[3]float64{
		{info.Center.X, info.Center.Y, info.Center.Z},
		{info.Min.X, info.Min.Y, info.Min.Z},
		{info.Max.X, info.Max.Y, info.Max.Z},
	}
}

func infoFromJSON(v [3]*[3]float64) *domain.RoomInformation {
	if v[0] == nil || v[1] == nil || v[2] == nil {
		return nil
	}
	return &domain.RoomInformation{
		Center: domain.Point{X: v[0][0], Y: v[0][1], Z: v[0][2]},
		Min:    domain.Point{X: v[1][0], Y: v[1][1], Z: v[1][2]},
		Max:    domain.Point{X: v[2][0], Y: v[2][1], Z: v[2][2]},
	}
}

func nonNil(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
