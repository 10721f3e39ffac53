package detection

import (
	"fmt"
	"strings"
	"sync"
)

// Policy decides what happens when several kinds are detected before the
// cleaning loop gets to them.
type Policy string

const (
	// PolicyHandleBoth handles every pending kind in priority order. The
	// lower-priority detection is handled in the same stop, right after the
	// first, rather than on a later interruption of the path; once the path
	// completes late detections are no longer taken.
	PolicyHandleBoth Policy = "handle-both"
	// PolicyFirstOnly handles the highest-priority kind and drops the rest.
	PolicyFirstOnly Policy = "first-only"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyHandleBoth, PolicyFirstOnly:
		return p, nil
	case "":
		return PolicyHandleBoth, nil
	default:
		return "", fmt.Errorf("unknown detection policy %q", s)
	}
}

// DefaultPriority handles dirt before trash.
var DefaultPriority = []Kind{KindDirt, KindTrash}

// Latch records at most one pending detection per kind between two
// interruptions of the cleaning loop. It is written by detector handlers and
// read by the control goroutine; the mutex guards only the slots.
type Latch struct {
	policy   Policy
	priority []Kind

	mu      sync.Mutex
	armed   bool
	pending [kindCount]*Detection
}

// NewLatch creates a disarmed latch. Kinds missing from priority rank after
// the listed ones in declaration order.
func NewLatch(policy Policy, priority []Kind) *Latch {
	if policy == "" {
		policy = PolicyHandleBoth
	}
	order := make([]Kind, 0, kindCount)
	seen := make(map[Kind]bool)
	for _, k := range append(append([]Kind(nil), priority...), DefaultPriority...) {
		if k < 0 || k >= kindCount || seen[k] {
			continue
		}
		seen[k] = true
		order = append(order, k)
	}
	return &Latch{policy: policy, priority: order}
}

func (l *Latch) Policy() Policy { return l.policy }

// Reset clears all pending detections and disarms the latch.
func (l *Latch) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.armed = false
	l.pending = [kindCount]*Detection{}
}

// Arm starts accepting detections.
func (l *Latch) Arm() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.armed = true
}

// Disarm stops accepting detections. Pending ones are kept.
func (l *Latch) Disarm() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.armed = false
}

// Offer records d unless the latch is disarmed or a detection of the same
// kind is already pending. It reports whether d was kept.
func (l *Latch) Offer(d Detection) bool {
	if d.Kind < 0 || d.Kind >= kindCount {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.armed || l.pending[d.Kind] != nil {
		return false
	}
	l.pending[d.Kind] = &d
	return true
}

// Handler returns a Handler that offers detections to the latch.
func (l *Latch) Handler() Handler {
	return func(d Detection) { l.Offer(d) }
}

func (l *Latch) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, d := range l.pending {
		if d != nil {
			return true
		}
	}
	return false
}

// Take removes and returns the highest-priority pending detection. Under
// PolicyFirstOnly the remaining ones are discarded.
func (l *Latch) Take() (Detection, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range l.priority {
		d := l.pending[k]
		if d == nil {
			continue
		}
		l.pending[k] = nil
		if l.policy == PolicyFirstOnly {
			l.pending = [kindCount]*Detection{}
		}
		return *d, true
	}
	return Detection{}, false
}

// ParsePriority parses a comma-separated kind list such as "trash,dirt".
func ParsePriority(s string) ([]Kind, error) {
	if strings.TrimSpace(s) == "" {
		return append([]Kind(nil), DefaultPriority...), nil
	}
	var out []Kind
	for _, part := range strings.Split(s, ",") {
		k, err := ParseKind(part)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}
