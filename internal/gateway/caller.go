package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/custodian/internal/domain"
	"go.uber.org/zap"
)

// Caller wraps a Gateway with the run's error policy: every error is
// classified and service failures are retried up to Retries times.
type Caller struct {
	gw      Gateway
	retries int
	logger  *zap.Logger
}

// NewCaller creates a Caller. A negative retries count is treated as zero.
func NewCaller(gw Gateway, retries int, logger *zap.Logger) *Caller {
	if retries < 0 {
		retries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Caller{gw: gw, retries: retries, logger: logger}
}

func (c *Caller) Gateway() Gateway { return c.gw }

// PlanCoverage plans a coverage path for one room.
func (c *Caller) PlanCoverage(ctx context.Context, req CoverageRequest) ([]domain.Pose2D, error) {
	var path []domain.Pose2D
	err := c.retry(ctx, "plan_coverage", func() error {
		var err error
		path, err = c.gw.PlanCoverage(ctx, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("planning coverage for room %d: %w", req.RoomID, err)
	}
	return path, nil
}

// FollowPath starts a path-following action.
func (c *Caller) FollowPath(ctx context.Context, req PathRequest) (PathHandle, error) {
	var h PathHandle
	err := c.retry(ctx, "follow_path", func() error {
		var err error
		h, err = c.gw.FollowPath(ctx, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("following path in room %d: %w", req.RoomID, err)
	}
	return h, nil
}

// Do runs a short action and turns an unsuccessful outcome into an error.
func (c *Caller) Do(ctx context.Context, action ShortAction) error {
	err := c.retry(ctx, string(action.Kind), func() error {
		out, err := c.gw.RunShortAction(ctx, action)
		if err != nil {
			return err
		}
		return out.Err()
	})
	if err != nil {
		return fmt.Errorf("%s: %w", action.Kind, err)
	}
	return nil
}

func (c *Caller) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		err = Classify(fn())
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !errors.Is(err, domain.ErrServiceFailure) {
			break
		}
		c.logger.Warn("gateway call failed",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.String("code", errorCode(err)),
			zap.Error(err),
		)
	}
	return err
}
