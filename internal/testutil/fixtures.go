package testutil

import (
	"time"

	"github.com/alexanderramin/custodian/internal/domain"
	"github.com/google/uuid"
)

// Room options
type RoomOption func(*domain.Room)

func WithMethod(m domain.CleaningMethod) RoomOption {
	return func(r *domain.Room) {
		r.Method = m
	}
}

func WithCenter(x, y float64) RoomOption {
	return func(r *domain.Room) {
		r.InfoInMeter = &domain.RoomInformation{
			Center: domain.Point{X: x, Y: y},
			Min:    domain.Point{X: x - 2, Y: y - 2},
			Max:    domain.Point{X: x + 2, Y: y + 2},
		}
	}
}

func WithTrashcans(n int) RoomOption {
	return func(r *domain.Room) {
		r.TrashcanCount = n
	}
}

func WithStamp(slot domain.Slot, at time.Time) RoomOption {
	return func(r *domain.Room) {
		r.CleaningDatestamps[slot.Index()] = &at
	}
}

func WithIssue(issue domain.RoomIssue) RoomOption {
	return func(r *domain.Room) {
		r.Issues = append(r.Issues, issue)
	}
}

func NewTestRoom(id int, name string, opts ...RoomOption) *domain.Room {
	r := &domain.Room{
		ID:            id,
		Name:          name,
		FloorID:       1,
		BuildingID:    1,
		TerritoryID:   1,
		Map:           "map.pgm",
		SurfaceArea:   20,
		Method:        domain.MethodDry,
		ScheduledDays: []int{},
		InfoInMeter: &domain.RoomInformation{
			Center: domain.Point{X: float64(id), Y: float64(id)},
			Min:    domain.Point{X: float64(id) - 2, Y: float64(id) - 2},
			Max:    domain.Point{X: float64(id) + 2, Y: float64(id) + 2},
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Assignment options
type AssignmentOption func(*domain.Assignment)

func WithCleaning(ids ...int) AssignmentOption {
	return func(a *domain.Assignment) {
		a.CleaningRooms = ids
	}
}

func WithTrash(ids ...int) AssignmentOption {
	return func(a *domain.Assignment) {
		a.TrashRooms = ids
	}
}

func WithLastCompleted(t time.Time) AssignmentOption {
	return func(a *domain.Assignment) {
		a.LastCompleted = &t
	}
}

func NewTestAssignment(weekType, weekDay int, opts ...AssignmentOption) *domain.Assignment {
	a := &domain.Assignment{
		Slot:          domain.Slot{WeekType: weekType, WeekDay: weekDay},
		CleaningRooms: []int{},
		TrashRooms:    []int{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FullCalendar returns one empty assignment per slot, each completed at
// completedAt. Callers overwrite the slots they care about.
func FullCalendar(completedAt time.Time) []*domain.Assignment {
	out := make([]*domain.Assignment, 0, domain.SlotCount)
	for i := 0; i < domain.SlotCount; i++ {
		s := domain.SlotFromIndex(i)
		out = append(out, NewTestAssignment(s.WeekType, s.WeekDay, WithLastCompleted(completedAt)))
	}
	return out
}

// Log entry options
type LogOption func(*domain.LogEntry)

func WithStatus(s domain.LogStatus) LogOption {
	return func(e *domain.LogEntry) {
		e.Status = s
	}
}

func WithCreatedAt(t time.Time) LogOption {
	return func(e *domain.LogEntry) {
		e.CreatedAt = t
	}
}

func NewTestLogEntry(roomID int, opts ...LogOption) *domain.LogEntry {
	e := &domain.LogEntry{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		Status:    domain.LogCompleted,
		Tasks:     []domain.TaskType{domain.TaskDry},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
