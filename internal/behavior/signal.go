package behavior

import (
	"context"
	"sync"
)

// Level is the supervisor's interrupt request.
type Level int

const (
	LevelNone   Level = 0
	LevelPause  Level = 1
	LevelCancel Level = 2
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelPause:
		return "pause"
	case LevelCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Signal is the interrupt variable shared by a behavior tree. Cancel is
// sticky until Reset.
type Signal struct {
	mu      sync.Mutex
	level   Level
	changed chan struct{}
}

func NewSignal() *Signal {
	return &Signal{changed: make(chan struct{})}
}

func (s *Signal) Level() Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// Changed returns a channel closed at the next level change. Callers must
// fetch a fresh channel after each wake-up.
func (s *Signal) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

func (s *Signal) Pause()  { s.Set(LevelPause) }
func (s *Signal) Resume() { s.Set(LevelNone) }
func (s *Signal) Cancel() { s.Set(LevelCancel) }

// Set requests level. Requests after a cancel are ignored.
func (s *Signal) Set(level Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.level == LevelCancel || s.level == level {
		return
	}
	s.level = level
	s.notify()
}

// Reset clears any request, including a cancel.
func (s *Signal) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.level == LevelNone {
		return
	}
	s.level = LevelNone
	s.notify()
}

func (s *Signal) notify() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// waitWhilePaused blocks until the level leaves LevelPause or ctx ends.
func (s *Signal) waitWhilePaused(ctx context.Context) Level {
	for {
		s.mu.Lock()
		level, ch := s.level, s.changed
		s.mu.Unlock()
		if level != LevelPause {
			return level
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return LevelCancel
		}
	}
}
