// Package telemetry reports run progress to observers.
package telemetry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type EventType string

const (
	EventRunStarted   EventType = "run_started"
	EventPhaseStarted EventType = "phase_started"
	EventRoomStarted  EventType = "room_started"
	EventRoomFinished EventType = "room_finished"
	EventRunPaused    EventType = "run_paused"
	EventRunResumed   EventType = "run_resumed"
	EventRunCancelled EventType = "run_cancelled"
	EventRunFinished  EventType = "run_finished"
	EventCheckpointed EventType = "checkpointed"
)

// Event records one step of a run.
type Event struct {
	RunID    string
	Type     EventType
	Phase    string
	RoomID   int
	Status   string
	Detail   string
	Duration time.Duration
	At       time.Time
}

// Observer receives run events. Implementations must not block the run for
// long and must swallow their own errors.
type Observer interface {
	OnEvent(ctx context.Context, e Event)
}

// Noop discards all events. Useful for tests.
type Noop struct{}

func (Noop) OnEvent(context.Context, Event) {}

// Multi fans events out to several observers in order.
type Multi []Observer

func (m Multi) OnEvent(ctx context.Context, e Event) {
	for _, o := range m {
		if o != nil {
			o.OnEvent(ctx, e)
		}
	}
}

// Recorder keeps events in memory.
type Recorder struct {
	Events []Event
}

func (r *Recorder) OnEvent(_ context.Context, e Event) {
	r.Events = append(r.Events, e)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []EventType {
	out := make([]EventType, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}

// LogObserver writes events to a zap logger.
type LogObserver struct {
	logger *zap.Logger
}

func NewLogObserver(logger *zap.Logger) *LogObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnEvent(_ context.Context, e Event) {
	fields := []zap.Field{
		zap.String("run_id", e.RunID),
		zap.String("event", string(e.Type)),
	}
	if e.Phase != "" {
		fields = append(fields, zap.String("phase", e.Phase))
	}
	if e.RoomID != 0 {
		fields = append(fields, zap.Int("room_id", e.RoomID))
	}
	if e.Status != "" {
		fields = append(fields, zap.String("status", e.Status))
	}
	if e.Detail != "" {
		fields = append(fields, zap.String("detail", e.Detail))
	}
	if e.Duration > 0 {
		fields = append(fields, zap.Duration("duration", e.Duration))
	}
	o.logger.Info("run event", fields...)
}
