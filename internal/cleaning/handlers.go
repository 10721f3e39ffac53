package cleaning

import (
	"context"
	"fmt"

	"github.com/alexanderramin/custodian/internal/behavior"
	"github.com/alexanderramin/custodian/internal/domain"
	"github.com/alexanderramin/custodian/internal/gateway"
	"go.uber.org/zap"
)

type step struct {
	name   string
	action gateway.ShortAction
}

// runSteps runs each action in order with a checkpoint after every step.
func runSteps(ctx context.Context, c *behavior.Control, gw *gateway.Caller, steps []step) error {
	for _, s := range steps {
		c.Logger().Debug("handler step", zap.String("step", s.name))
		if err := gw.Do(ctx, s.action); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		if err := c.Checkpoint(ctx); err != nil {
			return err
		}
	}
	return nil
}

// TrashcanEmptying carries a detected trashcan to the trolley, empties it
// and puts it back.
type TrashcanEmptying struct {
	gw       *gateway.Caller
	trashcan domain.Point
	trolley  domain.Point
	logger   *zap.Logger
}

func NewTrashcanEmptying(gw *gateway.Caller, trashcan, trolley domain.Point, logger *zap.Logger) *TrashcanEmptying {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrashcanEmptying{gw: gw, trashcan: trashcan, trolley: trolley, logger: logger}
}

func (t *TrashcanEmptying) Name() string { return "trashcan_emptying" }

func (t *TrashcanEmptying) Run(ctx context.Context, c *behavior.Control) error {
	return runSteps(ctx, c, t.gw, []step{
		{"move to trashcan", gateway.ShortAction{Kind: gateway.ActionMove, Target: t.trashcan}},
		{"catch trashcan", gateway.ShortAction{Kind: gateway.ActionCatchTrashcan, Target: t.trashcan}},
		{"transport pose", gateway.ShortAction{Kind: gateway.ActionTransportPose}},
		{"move to trolley", gateway.ShortAction{Kind: gateway.ActionMove, Target: t.trolley}},
		{"empty trashcan", gateway.ShortAction{Kind: gateway.ActionEmptyTrashcan, Target: t.trolley}},
		{"transport pose", gateway.ShortAction{Kind: gateway.ActionTransportPose}},
		{"move back", gateway.ShortAction{Kind: gateway.ActionMove, Target: t.trashcan}},
		{"leave trashcan", gateway.ShortAction{Kind: gateway.ActionLeaveTrashcan, Target: t.trashcan}},
		{"rest pose", gateway.ShortAction{Kind: gateway.ActionRestPose}},
	})
}

// OnCancel stows the arm.
func (t *TrashcanEmptying) OnCancel(ctx context.Context) {
	if err := t.gw.Do(ctx, gateway.ShortAction{Kind: gateway.ActionRestPose}); err != nil {
		t.logger.Warn("stowing arm failed", zap.Error(err))
	}
}

// DirtRemoval drives to a detected dirt spot and cleans it.
type DirtRemoval struct {
	gw   *gateway.Caller
	spot domain.Point
}

func NewDirtRemoval(gw *gateway.Caller, spot domain.Point) *DirtRemoval {
	return &DirtRemoval{gw: gw, spot: spot}
}

func (d *DirtRemoval) Name() string { return "dirt_removal" }

func (d *DirtRemoval) Run(ctx context.Context, c *behavior.Control) error {
	return runSteps(ctx, c, d.gw, []step{
		{"check accessibility", gateway.ShortAction{Kind: gateway.ActionCheckAccessibility, Target: d.spot}},
		{"move to spot", gateway.ShortAction{Kind: gateway.ActionMove, Target: d.spot}},
		{"clean spot", gateway.ShortAction{Kind: gateway.ActionCleanSpot, Target: d.spot}},
	})
}
