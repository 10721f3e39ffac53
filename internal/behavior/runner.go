// Package behavior runs interruptible tasks under a supervisor signal. A
// task polls its Control at safe points; pausing blocks there and
// cancelling unwinds the task with ErrCancelled.
package behavior

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrCancelled         = errors.New("behavior cancelled")
	ErrInvalidTransition = errors.New("invalid behavior state transition")
)

type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateCancelled
	StateFinished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCancelled:
		return "cancelled"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var transitions = map[State][]State{
	StateIdle:    {StateRunning},
	StateRunning: {StatePaused, StateCancelled, StateFinished, StateFailed},
	StatePaused:  {StateRunning, StateCancelled},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Task is the body of a behavior.
type Task interface {
	Name() string
	Run(ctx context.Context, c *Control) error
}

// Optional hooks a Task may implement.
type (
	PrePauser interface {
		PrePause(ctx context.Context)
	}
	PostPauser interface {
		PostPause(ctx context.Context)
	}
	Canceller interface {
		OnCancel(ctx context.Context)
	}
)

// Runner drives one Task through the behavior state machine.
type Runner struct {
	task   Task
	signal *Signal
	logger *zap.Logger

	mu        sync.Mutex
	state     State
	cancelRan bool
}

// NewRunner creates a Runner. Children of a behavior share their parent's
// signal; a nil signal gets a fresh one.
func NewRunner(task Task, signal *Signal, logger *zap.Logger) *Runner {
	if signal == nil {
		signal = NewSignal()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		task:   task,
		signal: signal,
		logger: logger.With(zap.String("behavior", task.Name())),
	}
}

func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) Signal() *Signal { return r.signal }

// HandleInterrupt forwards a supervisor request to the signal.
func (r *Runner) HandleInterrupt(level Level) {
	r.logger.Info("interrupt requested", zap.Stringer("level", level))
	r.signal.Set(level)
}

func (r *Runner) transition(to State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !canTransition(r.state, to) {
		return fmt.Errorf("%s: %s -> %s: %w", r.task.Name(), r.state, to, ErrInvalidTransition)
	}
	r.logger.Debug("state change", zap.Stringer("from", r.state), zap.Stringer("to", to))
	r.state = to
	return nil
}

// Execute runs the task once. It returns nil when the task finished,
// ErrCancelled (possibly wrapped) when it was cancelled, and the task's
// error otherwise.
func (r *Runner) Execute(ctx context.Context) error {
	if err := r.transition(StateRunning); err != nil {
		return err
	}
	r.logger.Info("behavior started")

	err := r.task.Run(ctx, &Control{runner: r})
	switch {
	case err == nil:
		if terr := r.transition(StateFinished); terr != nil {
			return terr
		}
		r.logger.Info("behavior finished")
		return nil
	case errors.Is(err, ErrCancelled):
		r.runOnCancel(ctx)
		if terr := r.transition(StateCancelled); terr != nil {
			return terr
		}
		r.logger.Info("behavior cancelled")
		return err
	default:
		if terr := r.transition(StateFailed); terr != nil {
			return terr
		}
		r.logger.Warn("behavior failed", zap.Error(err))
		return fmt.Errorf("%s: %w", r.task.Name(), err)
	}
}

func (r *Runner) runOnCancel(ctx context.Context) {
	r.mu.Lock()
	ran := r.cancelRan
	r.cancelRan = true
	r.mu.Unlock()
	if ran {
		return
	}
	if h, ok := r.task.(Canceller); ok {
		h.OnCancel(context.WithoutCancel(ctx))
	}
}

// Control is handed to a running Task.
type Control struct {
	runner *Runner
}

func (c *Control) Signal() *Signal { return c.runner.signal }

func (c *Control) Logger() *zap.Logger { return c.runner.logger }

// Checkpoint is polled by the task at safe points. With no request pending
// it returns nil immediately. A pause request moves the behavior to Paused,
// runs PrePause, blocks until resumed, runs PostPause and returns to
// Running. A cancel request, or ctx ending, runs OnCancel and returns
// ErrCancelled.
func (c *Control) Checkpoint(ctx context.Context) error {
	r := c.runner
	for {
		if ctx.Err() != nil {
			r.runOnCancel(ctx)
			return fmt.Errorf("%s: %w: %v", r.task.Name(), ErrCancelled, ctx.Err())
		}
		switch r.signal.Level() {
		case LevelNone:
			return nil
		case LevelCancel:
			r.runOnCancel(ctx)
			return fmt.Errorf("%s: %w", r.task.Name(), ErrCancelled)
		case LevelPause:
			if err := r.transition(StatePaused); err != nil {
				return err
			}
			r.logger.Info("behavior paused")
			if h, ok := r.task.(PrePauser); ok {
				h.PrePause(ctx)
			}
			if r.signal.waitWhilePaused(ctx) != LevelNone {
				// Cancelled while paused; the next iteration unwinds.
				continue
			}
			if h, ok := r.task.(PostPauser); ok {
				h.PostPause(ctx)
			}
			if err := r.transition(StateRunning); err != nil {
				return err
			}
			r.logger.Info("behavior resumed")
		}
	}
}
