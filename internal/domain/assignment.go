package domain

import (
	"fmt"
	"time"
)

const (
	WeekTypes = 2
	WeekDays  = 7
	// SlotCount is the length of the cleaning calendar cycle.
	SlotCount = WeekTypes * WeekDays
)

// Slot is a position in the two-week cleaning calendar.
// WeekDay 0 is Monday.
type Slot struct {
	WeekType int
	WeekDay  int
}

// SlotOf returns the calendar slot for t: ISO week parity and weekday.
func SlotOf(t time.Time) Slot {
	_, week := t.ISOWeek()
	return Slot{
		WeekType: week % WeekTypes,
		WeekDay:  (int(t.Weekday()) + 6) % WeekDays,
	}
}

func SlotFromIndex(i int) Slot {
	i = ((i % SlotCount) + SlotCount) % SlotCount
	return Slot{WeekType: i / WeekDays, WeekDay: i % WeekDays}
}

func (s Slot) Valid() bool {
	return s.WeekType >= 0 && s.WeekType < WeekTypes && s.WeekDay >= 0 && s.WeekDay < WeekDays
}

// Index maps the slot to 0..SlotCount-1.
func (s Slot) Index() int {
	return s.WeekType*WeekDays + s.WeekDay
}

// Prev returns the slot before s, wrapping around the cycle.
func (s Slot) Prev() Slot {
	return SlotFromIndex((s.Index() - 1 + SlotCount) % SlotCount)
}

func (s Slot) String() string {
	return fmt.Sprintf("w%d/d%d", s.WeekType, s.WeekDay)
}

type Assignment struct {
	Slot          Slot
	CleaningRooms []int
	TrashRooms    []int
	LastCompleted *time.Time
}

// IsOverdue reports whether the assignment has never completed or last
// completed before now-threshold.
func (a *Assignment) IsOverdue(now time.Time, threshold time.Duration) bool {
	if a.LastCompleted == nil {
		return true
	}
	return a.LastCompleted.Before(now.Add(-threshold))
}
