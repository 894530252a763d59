// Package progress carries import progress events from the importer to
// whoever is watching: the CLI progress display, the debug log, or tests.
package progress

import (
	"context"
	"sync"
	"time"
)

// Status names the phase an import is in. The sequence a consumer observes
// is classifying, selecting, then one extracting/validating pair per
// attempted strategy, then persisting and a terminal done or failed.
type Status string

const (
	StatusClassifying Status = "classifying"
	StatusSelecting   Status = "selecting"
	StatusExtracting  Status = "extracting"
	StatusValidating  Status = "validating"
	StatusEnhancing   Status = "enhancing"
	StatusPersisting  Status = "persisting"
	StatusDone        Status = "done"
	StatusFailed      Status = "failed"
)

// Terminal reports whether no further updates will follow this status.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Update is one progress event. Progress runs from 0 to 1 and never moves
// backwards within an import.
type Update struct {
	Sequence  uint64    `json:"seq"`
	ImportID  string    `json:"import_id"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	Progress  float64   `json:"progress"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives every published update, for mirroring into logs.
type Sink interface {
	Append(Update)
}

// Hub stores recent updates and wakes waiters when new ones arrive.
type Hub struct {
	mu          sync.Mutex
	cond        *sync.Cond
	capacity    int
	buffer      []Update
	nextSeq     uint64
	sinks       []Sink
	subscribers map[int]*subscriber
	nextSubID   int
}

type subscriber struct {
	importID string
	ch       chan Update
}

// NewHub constructs a bounded in-memory progress buffer.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 512
	}
	h := &Hub{capacity: capacity}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// AddSink wires an additional sink that receives every published update.
func (h *Hub) AddSink(sink Sink) {
	if h == nil || sink == nil {
		return
	}
	h.mu.Lock()
	h.sinks = append(h.sinks, sink)
	h.mu.Unlock()
}

// Publish appends an update, stamping sequence and time and clamping
// progress into [0, 1].
func (h *Hub) Publish(update Update) {
	if h == nil {
		return
	}
	if update.Progress < 0 {
		update.Progress = 0
	}
	if update.Progress > 1 {
		update.Progress = 1
	}

	h.mu.Lock()
	h.nextSeq++
	update.Sequence = h.nextSeq
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now().UTC()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, update)
	sinks := append([]Sink(nil), h.sinks...)
	for _, sub := range h.subscribers {
		if sub.importID != "" && sub.importID != update.ImportID {
			continue
		}
		select {
		case sub.ch <- update:
		default:
			// Slow subscribers lose updates; the buffer keeps the record.
		}
	}
	h.cond.Broadcast()
	h.mu.Unlock()

	for _, sink := range sinks {
		sink.Append(update)
	}
}

// Subscribe streams updates for one import over a channel; an empty
// importID receives everything. The cancel function releases the
// subscription and closes the channel. Subscribers that fall behind the
// buffer size miss updates rather than blocking publishers.
func (h *Hub) Subscribe(importID string, buffer int) (<-chan Update, func()) {
	if h == nil {
		ch := make(chan Update)
		close(ch)
		return ch, func() {}
	}
	if buffer <= 0 {
		buffer = 64
	}

	h.mu.Lock()
	if h.subscribers == nil {
		h.subscribers = make(map[int]*subscriber)
	}
	h.nextSubID++
	id := h.nextSubID
	sub := &subscriber{importID: importID, ch: make(chan Update, buffer)}
	h.subscribers[id] = sub
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, id)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Snapshot returns the buffered updates for one import, oldest first.
func (h *Hub) Snapshot(importID string) []Update {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Update
	for _, update := range h.buffer {
		if update.ImportID == importID {
			out = append(out, update)
		}
	}
	return out
}

// Fetch returns updates with sequence greater than since. When wait is
// true, Fetch blocks until at least one update arrives or the context ends.
func (h *Hub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]Update, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.cond.Broadcast()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		updates, next := h.snapshotLocked(since, limit)
		if len(updates) > 0 || !wait {
			return updates, next, contextError(ctx)
		}
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
		h.cond.Wait()
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
	}
}

// Tail returns the most recent limit updates without blocking.
func (h *Hub) Tail(limit int) ([]Update, uint64) {
	if h == nil {
		return nil, 0
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.buffer) == 0 {
		return nil, h.nextSeq
	}
	start := len(h.buffer) - limit
	if start < 0 {
		start = 0
	}
	out := make([]Update, len(h.buffer)-start)
	copy(out, h.buffer[start:])
	return out, h.nextSeq
}

func (h *Hub) snapshotLocked(since uint64, limit int) ([]Update, uint64) {
	if len(h.buffer) == 0 {
		return nil, h.nextSeq
	}
	startIdx := -1
	for i, update := range h.buffer {
		if update.Sequence > since {
			startIdx = i
			break
		}
	}
	if startIdx < 0 {
		return nil, h.nextSeq
	}
	end := startIdx + limit
	if end > len(h.buffer) {
		end = len(h.buffer)
	}
	out := make([]Update, end-startIdx)
	copy(out, h.buffer[startIdx:end])
	return out, h.nextSeq
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
