package cli

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/alexanderramin/custodian/internal/config"
	"github.com/alexanderramin/custodian/internal/detection"
	"github.com/alexanderramin/custodian/internal/detection/mqttfeed"
	"github.com/alexanderramin/custodian/internal/domain"
	"github.com/alexanderramin/custodian/internal/gateway"
	"github.com/alexanderramin/custodian/internal/gateway/httpgw"
	"github.com/alexanderramin/custodian/internal/gateway/simgw"
	"github.com/alexanderramin/custodian/internal/store"
	"github.com/alexanderramin/custodian/internal/store/jsonfile"
	"github.com/alexanderramin/custodian/internal/store/sqlitestore"
	"github.com/alexanderramin/custodian/internal/telemetry"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// closers releases wired resources in reverse order.
type closers []func() error

func (c *closers) add(fn func() error) { *c = append(*c, fn) }

func (c closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		errs = append(errs, c[i]())
	}
	return errors.Join(errs...)
}

func openBackend(cfg config.Config, cl *closers) (store.Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		b, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		cl.add(b.Close)
		return b, nil
	default:
		return jsonfile.New(cfg.DataDir), nil
	}
}

func newGateway(cfg config.Config, logger *zap.Logger) (gateway.Gateway, *simgw.Sim) {
	if cfg.Gateway.Mode == config.GatewaySim {
		sim := simgw.New(simgw.Config{StepDuration: cfg.Gateway.SimStep}, logger)
		return sim, sim
	}
	return httpgw.New(httpgw.Config{
		BaseURL:      cfg.Gateway.URL,
		Timeout:      cfg.Gateway.Timeout,
		RetryCount:   cfg.Gateway.HTTPRetries,
		PollInterval: cfg.Gateway.PollInterval,
	}, logger), nil
}

func newFeed(cfg config.Config, sim *simgw.Sim, logger *zap.Logger, cl *closers) (detection.Feed, error) {
	switch cfg.Detection.Feed {
	case config.FeedMQTT:
		f, err := mqttfeed.Connect(mqttfeed.Config{
			Broker:     cfg.Detection.Broker,
			ClientID:   cfg.Detection.ClientID,
			Username:   cfg.Detection.Username,
			Password:   cfg.Detection.Password,
			DirtTopic:  cfg.Detection.DirtTopic,
			TrashTopic: cfg.Detection.TrashTopic,
			QoS:        mqttfeed.DefaultConfig().QoS,
		}, logger)
		if err != nil {
			return nil, err
		}
		cl.add(func() error { f.Close(); return nil })
		return f, nil
	case config.FeedSim:
		feed := detection.NewMemoryFeed()
		if sim == nil {
			return nil, fmt.Errorf("detection feed %q needs the sim gateway: %w", cfg.Detection.Feed, domain.ErrConfiguration)
		}
		simulateDetections(sim, feed, cfg.Detection.SimRate, rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)))
		return feed, nil
	default:
		return detection.NewMemoryFeed(), nil
	}
}

// simulateDetections publishes a detection next to a visited waypoint with
// probability rate.
func simulateDetections(sim *simgw.Sim, feed *detection.MemoryFeed, rate float64, rng *rand.Rand) {
	sim.OnWaypoint(func(_, _ int, pose domain.Pose2D) {
		if rng.Float64() >= rate {
			return
		}
		kind := detection.KindDirt
		if rng.IntN(2) == 1 {
			kind = detection.KindTrash
		}
		feed.Publish(detection.Detection{
			Kind:     kind,
			Position: domain.Point{X: pose.X + rng.Float64() - 0.5, Y: pose.Y + rng.Float64() - 0.5},
			At:       time.Now(),
		})
	})
}

func newObserver(cfg config.Config, logger *zap.Logger, cl *closers) telemetry.Observer {
	observers := telemetry.Multi{telemetry.NewLogObserver(logger)}
	if cfg.Telemetry.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Telemetry.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unreachable, run events will not be streamed", zap.String("addr", cfg.Telemetry.RedisAddr), zap.Error(err))
		}
		cl.add(client.Close)
		observers = append(observers, telemetry.NewStreamPublisher(client, cfg.Telemetry.Stream, cfg.Telemetry.MaxLen, logger))
	}
	return observers
}

// roomLogger is implemented by backends that can filter the log themselves.
type roomLogger interface {
	LogByRoom(ctx context.Context, roomID int) ([]*domain.LogEntry, error)
}
