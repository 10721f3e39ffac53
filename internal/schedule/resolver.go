// Package schedule decides which rooms are due today and which earlier
// assignments were missed, and tracks the working set while a run checks
// rooms out.
package schedule

import (
	"fmt"
	"time"

	"github.com/alexanderramin/custodian/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrNoMatchingAssignment = fmt.Errorf("no assignment for today: %w", domain.ErrConfiguration)
	ErrCalendarCycle        = fmt.Errorf("calendar walk did not terminate: %w", domain.ErrInvariantViolation)
)

// Resolution is the read-only outcome of resolving one day.
type Resolution struct {
	Now  time.Time
	Slot domain.Slot

	DueAssignment *domain.Assignment
	DueCleaning   []int
	DueTrash      []int

	// OverdueAssignments is ordered nearest-first.
	OverdueAssignments []*domain.Assignment
	OverdueCleaning    []int
	OverdueTrash       []int
}

type Resolver struct {
	calendar *Calendar
	settings domain.GlobalSettings
	logger   *zap.Logger
}

func NewResolver(assignments []*domain.Assignment, settings domain.GlobalSettings, logger *zap.Logger) (*Resolver, error) {
	cal, err := NewCalendar(assignments)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{calendar: cal, settings: settings, logger: logger}, nil
}

// Resolve computes due and overdue rooms for now. It does not mutate any
// assignment or room.
//
// Overdue classification uses assignment completion timestamps only: an
// assignment is overdue when it never completed or completed before
// now-AssignmentTimedelta. Overdue room lists never repeat a room that is due
// today on the same list. The check is per list: a room due today for trash
// only can still be overdue for cleaning, and is then visited in both the due
// and the overdue dry phases.
func (r *Resolver) Resolve(now time.Time) (*Resolution, error) {
	slot := domain.SlotOf(now)
	due := r.calendar.At(slot)
	if due == nil {
		return nil, fmt.Errorf("slot %s: %w", slot, ErrNoMatchingAssignment)
	}

	res := &Resolution{
		Now:           now,
		Slot:          slot,
		DueAssignment: due,
		DueCleaning:   dedupe(due.CleaningRooms, nil),
		DueTrash:      dedupe(due.TrashRooms, nil),
	}

	if r.settings.AutoCompleteOverdue {
		preds, err := r.calendar.Predecessors(slot)
		if err != nil {
			return nil, err
		}
		for _, a := range preds {
			if a.IsOverdue(now, r.settings.AssignmentTimedelta) {
				res.OverdueAssignments = append(res.OverdueAssignments, a)
			}
		}
		var cleaning, trash []int
		for _, a := range res.OverdueAssignments {
			cleaning = append(cleaning, a.CleaningRooms...)
			trash = append(trash, a.TrashRooms...)
		}
		res.OverdueCleaning = dedupe(cleaning, res.DueCleaning)
		res.OverdueTrash = dedupe(trash, res.DueTrash)
	}

	r.logger.Debug("resolved schedule",
		zap.Stringer("slot", slot),
		zap.Ints("due_cleaning", res.DueCleaning),
		zap.Ints("due_trash", res.DueTrash),
		zap.Int("overdue_assignments", len(res.OverdueAssignments)),
		zap.Ints("overdue_cleaning", res.OverdueCleaning),
		zap.Ints("overdue_trash", res.OverdueTrash),
	)
	return res, nil
}

// dedupe keeps the first occurrence of each id not present in exclude.
func dedupe(ids, exclude []int) []int {
	seen := make(map[int]struct{}, len(ids)+len(exclude))
	for _, id := range exclude {
		seen[id] = struct{}{}
	}
	out := []int{}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
