package schedule

import (
	"fmt"
	"time"

	"github.com/alexanderramin/custodian/internal/domain"
)

// Kind distinguishes the two room lists of an assignment.
type Kind int

const (
	KindCleaning Kind = iota
	KindTrash
)

func (k Kind) String() string {
	if k == KindTrash {
		return "trash"
	}
	return "cleaning"
}

// RoomLookup resolves room ids. *store.Store satisfies it.
type RoomLookup interface {
	Room(id int) (*domain.Room, error)
}

// Job is one room visit in a cleaning phase.
type Job struct {
	RoomID  int
	Clean   bool
	Trash   bool
	Overdue bool
}

func (j Job) Kinds() []Kind {
	var out []Kind
	if j.Clean {
		out = append(out, KindCleaning)
	}
	if j.Trash {
		out = append(out, KindTrash)
	}
	return out
}

// Plan splits the remaining work into the phases of a run.
type Plan struct {
	DryDue     []Job
	WetDue     []Job
	DryOverdue []Job
	WetOverdue []Job
}

func (p *Plan) Empty() bool {
	return len(p.DryDue)+len(p.WetDue)+len(p.DryOverdue)+len(p.WetOverdue) == 0
}

type roomKey struct {
	kind Kind
	id   int
}

// WorkSet holds the mutable room lists of one run. Only the control
// goroutine may call its methods.
type WorkSet struct {
	rooms RoomLookup
	slot  domain.Slot

	dueCleaning     []int
	dueTrash        []int
	overdueCleaning []int
	overdueTrash    []int

	assignments []*domain.Assignment
	pending     map[*domain.Assignment]map[roomKey]struct{}
}

func NewWorkSet(res *Resolution, rooms RoomLookup) *WorkSet {
	w := &WorkSet{
		rooms:           rooms,
		slot:            res.Slot,
		dueCleaning:     append([]int(nil), res.DueCleaning...),
		dueTrash:        append([]int(nil), res.DueTrash...),
		overdueCleaning: append([]int(nil), res.OverdueCleaning...),
		overdueTrash:    append([]int(nil), res.OverdueTrash...),
		pending:         make(map[*domain.Assignment]map[roomKey]struct{}),
	}
	w.assignments = append(w.assignments, res.DueAssignment)
	w.assignments = append(w.assignments, res.OverdueAssignments...)
	for _, a := range w.assignments {
		keys := make(map[roomKey]struct{})
		for _, id := range a.CleaningRooms {
			keys[roomKey{KindCleaning, id}] = struct{}{}
		}
		for _, id := range a.TrashRooms {
			keys[roomKey{KindTrash, id}] = struct{}{}
		}
		w.pending[a] = keys
	}
	return w
}

// Remaining returns the four lists without rooms already stamped for today's
// slot on now's date, so a run resumed from a checkpoint skips them.
func (w *WorkSet) Remaining(now time.Time) (dueCleaning, dueTrash, overdueCleaning, overdueTrash []int, err error) {
	filter := func(ids []int) ([]int, error) {
		out := []int{}
		for _, id := range ids {
			room, err := w.rooms.Room(id)
			if err != nil {
				return nil, err
			}
			if room.CleanedOn(w.slot, now) {
				continue
			}
			out = append(out, id)
		}
		return out, nil
	}
	if dueCleaning, err = filter(w.dueCleaning); err != nil {
		return
	}
	if dueTrash, err = filter(w.dueTrash); err != nil {
		return
	}
	if overdueCleaning, err = filter(w.overdueCleaning); err != nil {
		return
	}
	overdueTrash, err = filter(w.overdueTrash)
	return
}

// Checkout records that kind work on roomID is done: the room leaves the
// matching list, assignments left without pending rooms complete, and once
// the room is on no list at all it is stamped for today's slot.
func (w *WorkSet) Checkout(roomID int, kind Kind, now time.Time) error {
	room, err := w.rooms.Room(roomID)
	if err != nil {
		return err
	}

	removed := false
	switch kind {
	case KindCleaning:
		w.dueCleaning, removed = remove(w.dueCleaning, roomID, removed)
		w.overdueCleaning, removed = remove(w.overdueCleaning, roomID, removed)
	case KindTrash:
		w.dueTrash, removed = remove(w.dueTrash, roomID, removed)
		w.overdueTrash, removed = remove(w.overdueTrash, roomID, removed)
	}
	if !removed {
		return fmt.Errorf("room %d is not on a %s list", roomID, kind)
	}

	key := roomKey{kind, roomID}
	for _, a := range w.assignments {
		delete(w.pending[a], key)
	}
	w.Settle(now)

	if !w.listed(roomID) {
		room.MarkCleaned(w.slot, now)
	}
	return nil
}

// CheckoutJob checks out every kind of the job.
func (w *WorkSet) CheckoutJob(job Job, now time.Time) error {
	for _, k := range job.Kinds() {
		if err := w.Checkout(job.RoomID, k, now); err != nil {
			return err
		}
	}
	return nil
}

// Settle completes every assignment with no pending rooms that has not been
// completed during this run. Empty assignments complete on the first call.
// Completion times are truncated to the minute like room stamps.
func (w *WorkSet) Settle(now time.Time) {
	for _, a := range w.assignments {
		keys, ok := w.pending[a]
		if !ok || len(keys) > 0 {
			continue
		}
		done := now.Truncate(time.Minute)
		a.LastCompleted = &done
		delete(w.pending, a)
	}
}

// Outstanding reports how many rooms are still listed.
func (w *WorkSet) Outstanding() int {
	return len(w.dueCleaning) + len(w.dueTrash) + len(w.overdueCleaning) + len(w.overdueTrash)
}

func (w *WorkSet) listed(id int) bool {
	for _, list := range [][]int{w.dueCleaning, w.dueTrash, w.overdueCleaning, w.overdueTrash} {
		for _, v := range list {
			if v == id {
				return true
			}
		}
	}
	return false
}

// Plan builds the phases of the run from the remaining rooms. Wet rooms on a
// cleaning list go to the wet phase; their trash, and everything else, is
// handled in the dry phase.
//
// Rooms already stamped today are dropped from the working set first so that
// their assignments can still complete.
func (w *WorkSet) Plan(now time.Time) (*Plan, error) {
	dc, dt, oc, ot, err := w.Remaining(now)
	if err != nil {
		return nil, err
	}
	w.retain(dc, dt, oc, ot, now)

	p := &Plan{}
	if p.DryDue, p.WetDue, err = w.jobs(dc, dt, false); err != nil {
		return nil, err
	}
	if p.DryOverdue, p.WetOverdue, err = w.jobs(oc, ot, true); err != nil {
		return nil, err
	}
	return p, nil
}

func (w *WorkSet) jobs(cleaning, trash []int, overdue bool) (dry, wet []Job, err error) {
	dryCleaning, wetCleaning, err := SplitByMethod(cleaning, w.rooms)
	if err != nil {
		return nil, nil, err
	}

	index := make(map[int]int)
	add := func(id int, clean, tr bool) {
		if i, ok := index[id]; ok {
			dry[i].Clean = dry[i].Clean || clean
			dry[i].Trash = dry[i].Trash || tr
			return
		}
		index[id] = len(dry)
		dry = append(dry, Job{RoomID: id, Clean: clean, Trash: tr, Overdue: overdue})
	}
	for _, id := range dryCleaning {
		add(id, true, false)
	}
	for _, id := range trash {
		add(id, false, true)
	}
	for _, id := range wetCleaning {
		wet = append(wet, Job{RoomID: id, Clean: true, Overdue: overdue})
	}
	return dry, wet, nil
}

// SplitByMethod partitions room ids by cleaning method, keeping order.
func SplitByMethod(ids []int, rooms RoomLookup) (dry, wet []int, err error) {
	for _, id := range ids {
		room, err := rooms.Room(id)
		if err != nil {
			return nil, nil, err
		}
		if room.Method == domain.MethodWet {
			wet = append(wet, id)
		} else {
			dry = append(dry, id)
		}
	}
	return dry, wet, nil
}

func (w *WorkSet) retain(dc, dt, oc, ot []int, now time.Time) {
	drop := func(kind Kind, before, after []int) {
		keep := make(map[int]struct{}, len(after))
		for _, id := range after {
			keep[id] = struct{}{}
		}
		for _, id := range before {
			if _, ok := keep[id]; ok {
				continue
			}
			for _, a := range w.assignments {
				delete(w.pending[a], roomKey{kind, id})
			}
		}
	}
	drop(KindCleaning, w.dueCleaning, dc)
	drop(KindTrash, w.dueTrash, dt)
	drop(KindCleaning, w.overdueCleaning, oc)
	drop(KindTrash, w.overdueTrash, ot)
	w.dueCleaning, w.dueTrash, w.overdueCleaning, w.overdueTrash = dc, dt, oc, ot
	w.Settle(now)
}

func remove(ids []int, id int, removed bool) ([]int, bool) {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...), true
		}
	}
	return ids, removed
}
