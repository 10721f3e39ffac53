package telemetry

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// StreamPublisher appends run events to a redis stream.
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *zap.Logger
}

// NewStreamPublisher publishes to stream. A positive maxLen caps the stream
// length.
func NewStreamPublisher(client *redis.Client, stream string, maxLen int64, logger *zap.Logger) *StreamPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen, logger: logger}
}

func (p *StreamPublisher) OnEvent(ctx context.Context, e Event) {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"run_id":      e.RunID,
			"event":       string(e.Type),
			"phase":       e.Phase,
			"room_id":     strconv.Itoa(e.RoomID),
			"status":      e.Status,
			"detail":      e.Detail,
			"duration_ms": strconv.FormatInt(e.Duration.Milliseconds(), 10),
			"timestamp":   strconv.FormatInt(at.Unix(), 10),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
	}
	// Telemetry must outlive a cancelled run so the cancel itself is reported.
	if _, err := p.client.XAdd(context.WithoutCancel(ctx), args).Result(); err != nil {
		p.logger.Warn("publishing run event failed",
			zap.String("stream", p.stream),
			zap.String("event", string(e.Type)),
			zap.Error(err),
		)
	}
}
