package events

import (
	"sync"
	"time"
)

// Event kinds published on the bus.
const (
	KindRecompute = "recompute"
	KindReload    = "reload"
)

// Event describes one recompute or dataset reload pass.
type Event struct {
	Kind              string    `json:"kind"`
	At                time.Time `json:"at"`
	ConstraintVersion uint64    `json:"constraint_version"`
	DatasetVersion    int64     `json:"dataset_version"`
	WorkingSetSize    int       `json:"working_set_size"`
}

// Bus provides simple in-process pub/sub for observability. Slow subscribers
// drop events rather than block the pipeline.
type Bus struct {
	mu   sync.RWMutex
	subs []chan Event
}

func NewBus() *Bus { return &Bus{} }

func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
