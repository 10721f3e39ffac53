package cleaning

import (
	"context"
	"sync"

	"github.com/alexanderramin/custodian/internal/detection"
	"github.com/alexanderramin/custodian/internal/domain"
	"github.com/alexanderramin/custodian/internal/gateway"
)

// pathScript describes one FollowPath call. A script with complete set ends
// on its own; otherwise the path runs until interrupted and reports stopAt.
type pathScript struct {
	complete   bool
	stopAt     int
	detections []detection.Detection
	onStart    func()
}

// fakeGateway is a scripted gateway. Detections of a script are published
// on feed before FollowPath returns.
type fakeGateway struct {
	mu           sync.Mutex
	feed         *detection.MemoryFeed
	coverage     []domain.Pose2D
	scripts      []pathScript
	requests     [][]domain.Pose2D
	actions      []gateway.ShortAction
	inaccessible map[domain.Point]bool
	failures     map[gateway.ActionKind]int
}

func newFakeGateway(feed *detection.MemoryFeed, coverage []domain.Pose2D, scripts ...pathScript) *fakeGateway {
	return &fakeGateway{
		feed:         feed,
		coverage:     coverage,
		scripts:      scripts,
		inaccessible: make(map[domain.Point]bool),
		failures:     make(map[gateway.ActionKind]int),
	}
}

func (g *fakeGateway) PlanCoverage(context.Context, gateway.CoverageRequest) ([]domain.Pose2D, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.Pose2D(nil), g.coverage...), nil
}

func (g *fakeGateway) FollowPath(_ context.Context, req gateway.PathRequest) (gateway.PathHandle, error) {
	g.mu.Lock()
	g.requests = append(g.requests, append([]domain.Pose2D(nil), req.Path...))
	script := pathScript{complete: true}
	if len(g.scripts) > 0 {
		script = g.scripts[0]
		g.scripts = g.scripts[1:]
	}
	g.mu.Unlock()

	h := &fakeHandle{interrupt: make(chan struct{}), done: make(chan struct{})}
	if script.complete {
		h.result = gateway.PathResult{Completed: true, LastVisitedIndex: len(req.Path) - 1}
		close(h.done)
	} else {
		h.result = gateway.PathResult{LastVisitedIndex: script.stopAt}
		go func() {
			<-h.interrupt
			close(h.done)
		}()
	}
	for _, d := range script.detections {
		g.feed.Publish(d)
	}
	if script.onStart != nil {
		script.onStart()
	}
	return h, nil
}

func (g *fakeGateway) RunShortAction(_ context.Context, a gateway.ShortAction) (gateway.Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.actions = append(g.actions, a)
	if n := g.failures[a.Kind]; n > 0 {
		g.failures[a.Kind] = n - 1
		return gateway.Outcome{}, gateway.ErrServiceUnavailable
	}
	if g.inaccessible[a.Target] && (a.Kind == gateway.ActionMove || a.Kind == gateway.ActionCheckAccessibility) {
		return gateway.Outcome{Status: gateway.OutcomeNotAccessible}, nil
	}
	return gateway.Outcome{Status: gateway.OutcomeSucceeded}, nil
}

func (g *fakeGateway) Requests() [][]domain.Pose2D {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([][]domain.Pose2D(nil), g.requests...)
}

func (g *fakeGateway) Kinds() []gateway.ActionKind {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]gateway.ActionKind, len(g.actions))
	for i, a := range g.actions {
		out[i] = a.Kind
	}
	return out
}

func (g *fakeGateway) count(kind gateway.ActionKind) int {
	n := 0
	for _, k := range g.Kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

type fakeHandle struct {
	interrupt chan struct{}
	once      sync.Once
	done      chan struct{}
	result    gateway.PathResult
}

func (h *fakeHandle) Interrupt() { h.once.Do(func() { close(h.interrupt) }) }

func (h *fakeHandle) Done() <-chan struct{} { return h.done }

func (h *fakeHandle) Result(ctx context.Context) (gateway.PathResult, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return gateway.PathResult{}, ctx.Err()
	}
}
