package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/alexanderramin/custodian/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	outcomes []Outcome
	errs     []error
	calls    int
}

func (s *stubGateway) PlanCoverage(context.Context, CoverageRequest) ([]domain.Pose2D, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return []domain.Pose2D{{X: 1}}, nil
}

func (s *stubGateway) FollowPath(context.Context, PathRequest) (PathHandle, error) {
	return nil, errors.New("not scripted")
}

func (s *stubGateway) RunShortAction(context.Context, ShortAction) (Outcome, error) {
	s.calls++
	var err error
	if len(s.errs) > 0 {
		err = s.errs[0]
		s.errs = s.errs[1:]
	}
	out := Outcome{Status: OutcomeSucceeded}
	if len(s.outcomes) > 0 {
		out = s.outcomes[0]
		s.outcomes = s.outcomes[1:]
	}
	return out, err
}

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil))
	assert.ErrorIs(t, Classify(ErrNotAccessible), domain.ErrResourceUnavailable)
	assert.ErrorIs(t, Classify(ErrNotAccessible), ErrNotAccessible)
	assert.ErrorIs(t, Classify(ErrTimeout), domain.ErrServiceFailure)
	assert.ErrorIs(t, Classify(ErrServiceUnavailable), domain.ErrServiceFailure)
	assert.ErrorIs(t, Classify(errors.New("boom")), domain.ErrServiceFailure)
	assert.Equal(t, context.Canceled, Classify(context.Canceled))

	once := Classify(ErrTimeout)
	assert.Equal(t, once, Classify(once))
}

func TestOutcome_Err(t *testing.T) {
	assert.NoError(t, Outcome{Status: OutcomeSucceeded}.Err())
	assert.ErrorIs(t, Outcome{Status: OutcomeNotAccessible}.Err(), ErrNotAccessible)
	err := Outcome{Status: OutcomeFailed, Message: "gripper jammed"}.Err()
	assert.ErrorIs(t, err, ErrActionFailed)
	assert.Contains(t, err.Error(), "gripper jammed")
}

func TestCaller_RetriesServiceFailureOnce(t *testing.T) {
	gw := &stubGateway{errs: []error{ErrTimeout}}
	c := NewCaller(gw, 1, nil)

	require.NoError(t, c.Do(context.Background(), ShortAction{Kind: ActionMove}))
	assert.Equal(t, 2, gw.calls)
}

func TestCaller_GivesUpAfterRetry(t *testing.T) {
	gw := &stubGateway{errs: []error{ErrServiceUnavailable, ErrServiceUnavailable, nil}}
	c := NewCaller(gw, 1, nil)

	err := c.Do(context.Background(), ShortAction{Kind: ActionCleanSpot})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceFailure)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, 2, gw.calls)
}

func TestCaller_DoesNotRetryInaccessible(t *testing.T) {
	gw := &stubGateway{outcomes: []Outcome{{Status: OutcomeNotAccessible}}}
	c := NewCaller(gw, 1, nil)

	err := c.Do(context.Background(), ShortAction{Kind: ActionCheckAccessibility})
	assert.ErrorIs(t, err, domain.ErrResourceUnavailable)
	assert.Equal(t, 1, gw.calls)
}

func TestCaller_FailedOutcomeIsServiceFailure(t *testing.T) {
	gw := &stubGateway{outcomes: []Outcome{{Status: OutcomeFailed}, {Status: OutcomeFailed}}}
	c := NewCaller(gw, 1, nil)

	err := c.Do(context.Background(), ShortAction{Kind: ActionEmptyTrashcan})
	assert.ErrorIs(t, err, domain.ErrServiceFailure)
	assert.ErrorIs(t, err, ErrActionFailed)
	assert.Equal(t, 2, gw.calls)
}

func TestCaller_NoRetryAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gw := &stubGateway{errs: []error{ErrTimeout, nil}}
	c := NewCaller(gw, 1, nil)

	_, err := c.PlanCoverage(ctx, CoverageRequest{RoomID: 3})
	require.Error(t, err)
	assert.Equal(t, 1, gw.calls)
}
