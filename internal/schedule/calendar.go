package schedule

import (
	"fmt"

	"github.com/alexanderramin/custodian/internal/domain"
)

// Calendar is the two-week cycle of assignments indexed by slot.
type Calendar [domain.SlotCount]*domain.Assignment

// NewCalendar places each assignment at its slot. Out-of-range and duplicate
// slots are invariant violations.
func NewCalendar(assignments []*domain.Assignment) (*Calendar, error) {
	var c Calendar
	for _, a := range assignments {
		if !a.Slot.Valid() {
			return nil, fmt.Errorf("assignment slot %s out of range: %w", a.Slot, domain.ErrInvariantViolation)
		}
		i := a.Slot.Index()
		if c[i] != nil {
			return nil, fmt.Errorf("duplicate assignment for slot %s: %w", a.Slot, domain.ErrInvariantViolation)
		}
		c[i] = a
	}
	return &c, nil
}

func (c *Calendar) At(slot domain.Slot) *domain.Assignment {
	if !slot.Valid() {
		return nil
	}
	return c[slot.Index()]
}

// Predecessors returns the assignments before slot, nearest first, walking
// back around the cycle until it returns to slot. Empty slots are skipped.
func (c *Calendar) Predecessors(slot domain.Slot) ([]*domain.Assignment, error) {
	start := slot.Index()
	var out []*domain.Assignment
	i := start
	for steps := 0; ; steps++ {
		if steps >= domain.SlotCount {
			return nil, fmt.Errorf("walk from %s did not return after %d steps: %w", slot, steps, ErrCalendarCycle)
		}
		i = (i - 1 + domain.SlotCount) % domain.SlotCount
		if i == start {
			return out, nil
		}
		if c[i] != nil {
			out = append(out, c[i])
		}
	}
}
