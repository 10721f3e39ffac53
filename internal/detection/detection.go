// Package detection carries dirt and trashcan detections from the robot's
// detectors to the cleaning loop.
package detection

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alexanderramin/custodian/internal/domain"
)

type Kind int

const (
	KindDirt Kind = iota
	KindTrash
	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindDirt:
		return "dirt"
	case KindTrash:
		return "trash"
	default:
		return "unknown"
	}
}

// ParseKind accepts "dirt" or "trash".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dirt":
		return KindDirt, nil
	case "trash", "trashcan":
		return KindTrash, nil
	default:
		return 0, fmt.Errorf("unknown detection kind %q", s)
	}
}

type Detection struct {
	Kind     Kind
	Position domain.Point
	At       time.Time
}

type Handler func(Detection)

type Subscription interface {
	Unsubscribe() error
}

// Feed delivers detections of one kind to a handler until unsubscribed.
// Handlers may run on any goroutine and must not block.
type Feed interface {
	Subscribe(kind Kind, h Handler) (Subscription, error)
}

// MemoryFeed is an in-process Feed. Publish delivers synchronously.
type MemoryFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]memorySub
}

type memorySub struct {
	kind Kind
	h    Handler
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[int]memorySub)}
}

func (f *MemoryFeed) Subscribe(kind Kind, h Handler) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.subs[id] = memorySub{kind: kind, h: h}
	return &memorySubscription{feed: f, id: id}, nil
}

// Publish hands d to every current subscriber of its kind and reports how
// many received it.
func (f *MemoryFeed) Publish(d Detection) int {
	f.mu.Lock()
	var handlers []Handler
	for _, s := range f.subs {
		if s.kind == d.Kind {
			handlers = append(handlers, s.h)
		}
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(d)
	}
	return len(handlers)
}

// Subscribers returns the number of active subscriptions.
func (f *MemoryFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

type memorySubscription struct {
	feed *MemoryFeed
	id   int
}

func (s *memorySubscription) Unsubscribe() error {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	delete(s.feed.subs, s.id)
	return nil
}
