// Package httpgw implements gateway.Gateway against the robot's HTTP action
// server.
package httpgw

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/alexanderramin/custodian/internal/domain"
	"github.com/alexanderramin/custodian/internal/gateway"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

type Config struct {
	BaseURL      string
	Timeout      time.Duration
	RetryCount   int
	PollInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:8080",
		Timeout:      10 * time.Second,
		RetryCount:   0,
		PollInterval: 500 * time.Millisecond,
	}
}

// Client talks to the action server. Transport-level retries are left to
// resty; gateway.Caller decides whether an action is retried.
type Client struct {
	http   *resty.Client
	cfg    Config
	logger *zap.Logger
}

var _ gateway.Gateway = (*Client)(nil)

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: client, cfg: cfg, logger: logger}
}

func (c *Client) PlanCoverage(ctx context.Context, req gateway.CoverageRequest) ([]domain.Pose2D, error) {
	body := coverageRequest{
		RoomID: req.RoomID,
		Room: roomDTO{
			Center: toPoint(req.Room.Center),
			Min:    toPoint(req.Room.Min),
			Max:    toPoint(req.Room.Max),
		},
		Map:            toMap(req.Map),
		RobotRadius:    req.RobotRadius,
		CoverageRadius: req.CoverageRadius,
		FrameID:        req.FrameID,
		Start:          poseDTO{X: req.Start.X, Y: req.Start.Y, Theta: req.Start.Theta},
	}
	for i, p := range req.FieldOfView {
		body.FieldOfView[i] = toPoint(p)
	}

	var out coverageResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/coverage")
	if err := c.check(ctx, "plan coverage", resp, err); err != nil {
		return nil, err
	}
	c.logger.Debug("coverage planned", zap.Int("room_id", req.RoomID), zap.Int("waypoints", len(out.Path)))
	return fromPoses(out.Path), nil
}

func (c *Client) FollowPath(ctx context.Context, req gateway.PathRequest) (gateway.PathHandle, error) {
	body := pathRequest{
		RoomID: req.RoomID,
		Path:   toPoses(req.Path),
		Tolerances: tolerancesDTO{
			Path:         req.Tolerances.Path,
			GoalPosition: req.Tolerances.GoalPosition,
			GoalAngle:    req.Tolerances.GoalAngle,
		},
		FrameID: req.FrameID,
	}

	var started pathStarted
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&started).
		Post("/paths")
	if err := c.check(ctx, "start path", resp, err); err != nil {
		return nil, err
	}
	if started.ID == "" {
		return nil, fmt.Errorf("start path: empty action id: %w", gateway.ErrActionFailed)
	}

	h := &pathHandle{
		client:    c,
		id:        started.ID,
		interrupt: make(chan struct{}),
		done:      make(chan struct{}),
	}
	go h.watch(ctx)
	c.logger.Debug("path started", zap.String("action_id", started.ID), zap.Int("waypoints", len(req.Path)))
	return h, nil
}

func (c *Client) RunShortAction(ctx context.Context, action gateway.ShortAction) (gateway.Outcome, error) {
	var out actionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(actionRequest{
			Kind:   string(action.Kind),
			Target: toPoint(action.Target),
			Tool:   action.Tool,
		}).
		SetResult(&out).
		Post("/actions")
	if err := c.check(ctx, string(action.Kind), resp, err); err != nil {
		if errors.Is(err, gateway.ErrNotAccessible) {
			return gateway.Outcome{Status: gateway.OutcomeNotAccessible, Message: resp.String()}, nil
		}
		return gateway.Outcome{}, err
	}
	return gateway.Outcome{Status: gateway.OutcomeStatus(out.Status), Message: out.Message}, nil
}

// check maps transport errors and HTTP status codes onto gateway errors.
func (c *Client) check(ctx context.Context, op string, resp *resty.Response, err error) error {
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("%s: %w", op, gateway.ErrTimeout)
		}
		c.logger.Warn("action server call failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w: %v", op, gateway.ErrServiceUnavailable, err)
	}
	switch code := resp.StatusCode(); {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnprocessableEntity:
		return fmt.Errorf("%s: %w", op, gateway.ErrNotAccessible)
	case code == http.StatusServiceUnavailable:
		return fmt.Errorf("%s: %w", op, gateway.ErrServiceUnavailable)
	case code == http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w", op, gateway.ErrTimeout)
	default:
		return fmt.Errorf("%s: action server returned status %d: %s", op, code, resp.String())
	}
}

// pathHandle polls the action server until the path reaches a terminal
// state. One goroutine owns all requests for the action.
type pathHandle struct {
	client *Client
	id     string

	interrupt chan struct{}
	once      sync.Once
	done      chan struct{}

	result gateway.PathResult
	err    error
}

func (h *pathHandle) Interrupt() {
	h.once.Do(func() { close(h.interrupt) })
}

func (h *pathHandle) Done() <-chan struct{} { return h.done }

func (h *pathHandle) Result(ctx context.Context) (gateway.PathResult, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return gateway.PathResult{}, ctx.Err()
	}
}

func (h *pathHandle) watch(ctx context.Context) {
	defer close(h.done)

	// Polls outlive the caller's context so an interrupted path still
	// reports where it stopped.
	pollCtx := context.WithoutCancel(ctx)
	ticker := time.NewTicker(h.client.cfg.PollInterval)
	defer ticker.Stop()

	interrupt := h.interrupt
	cancelled := ctx.Done()
	for {
		select {
		case <-interrupt:
			interrupt = nil
			h.sendInterrupt(pollCtx)
		case <-cancelled:
			cancelled = nil
			h.Interrupt()
			continue
		case <-ticker.C:
		}

		st, err := h.poll(pollCtx)
		if err != nil {
			h.err = err
			return
		}
		h.result.LastVisitedIndex = st.LastVisitedIndex
		switch st.State {
		case pathRunning:
			continue
		case pathCompleted:
			h.result.Completed = true
			return
		case pathInterrupted:
			return
		case pathFailed:
			h.err = fmt.Errorf("path %s: %w: %s", h.id, gateway.ErrActionFailed, st.Message)
			return
		default:
			h.err = fmt.Errorf("path %s: unknown state %q: %w", h.id, st.State, gateway.ErrActionFailed)
			return
		}
	}
}

func (h *pathHandle) poll(ctx context.Context) (pathStatus, error) {
	var st pathStatus
	resp, err := h.client.http.R().
		SetContext(ctx).
		SetPathParam("id", h.id).
		SetResult(&st).
		Get("/paths/{id}")
	if err := h.client.check(ctx, "poll path", resp, err); err != nil {
		return pathStatus{}, err
	}
	return st, nil
}

func (h *pathHandle) sendInterrupt(ctx context.Context) {
	resp, err := h.client.http.R().
		SetContext(ctx).
		SetPathParam("id", h.id).
		Post("/paths/{id}/interrupt")
	if err := h.client.check(ctx, "interrupt path", resp, err); err != nil {
		h.client.logger.Warn("path interrupt failed", zap.String("action_id", h.id), zap.Error(err))
	}
}
