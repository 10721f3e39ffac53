package store

import (
	"time"

	"github.com/alexanderramin/custodian/internal/domain"
)

// Clone deep-copies the mutable parts of a snapshot.
func Clone(s *Snapshot) *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		Settings: s.Settings,
		Robot:    s.Robot,
		Map:      s.Map,
	}
	for _, r := range s.Rooms {
		out.Rooms = append(out.Rooms, CloneRoom(r))
	}
	for _, a := range s.Assignments {
		out.Assignments = append(out.Assignments, cloneAssignment(a))
	}
	return out
}

func CloneRoom(r *domain.Room) *domain.Room {
	cp := *r
	if r.InfoInPixel != nil {
		v := *r.InfoInPixel
		cp.InfoInPixel = &v
	}
	if r.InfoInMeter != nil {
		v := *r.InfoInMeter
		cp.InfoInMeter = &v
	}
	cp.Issues = nil
	for _, issue := range r.Issues {
		issue.Images = append([]string(nil), issue.Images...)
		cp.Issues = append(cp.Issues, issue)
	}
	cp.ScheduledDays = append([]int(nil), r.ScheduledDays...)
	cp.OpenCleaningTasks = append([]domain.TaskType(nil), r.OpenCleaningTasks...)
	for i, ts := range r.CleaningDatestamps {
		cp.CleaningDatestamps[i] = copyTime(ts)
	}
	return &cp
}

func cloneAssignment(a *domain.Assignment) *domain.Assignment {
	cp := *a
	cp.CleaningRooms = append([]int(nil), a.CleaningRooms...)
	cp.TrashRooms = append([]int(nil), a.TrashRooms...)
	cp.LastCompleted = copyTime(a.LastCompleted)
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
