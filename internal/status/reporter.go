package status

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger interface for dependency injection.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is used when no logger is configured.
type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// DefaultSubscriberBuffer is the queue capacity used when a subscriber
// asks for zero or a negative buffer.
const DefaultSubscriberBuffer = 64

// subscriber is one bounded delivery queue.
type subscriber struct {
	name    string
	ch      chan Event
	dropped uint64
}

// Reporter fans events out to subscribers and keeps per-kind counters.
//
// Report never blocks the caller: when a subscriber's queue is full the
// oldest queued event is discarded to make room. A slow WebSocket client
// must not be able to stall the sampler hot path.
type Reporter struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
	counts      map[Kind]uint64
	repo        Repository
	persistCh   chan Event
	persistDone chan struct{}
	closed      bool
	logger      Logger
}

// NewReporter creates a reporter. repo may be nil to disable persistence.
func NewReporter(repo Repository) *Reporter {
	r := &Reporter{
		subscribers: make(map[string]*subscriber),
		counts:      make(map[Kind]uint64),
		repo:        repo,
		logger:      noopLogger{},
	}
	if repo != nil {
		r.persistCh = make(chan Event, 256)
		r.persistDone = make(chan struct{})
		go r.persistLoop()
	}
	return r
}

// persistLoop writes events to the repository off the reporting path.
func (r *Reporter) persistLoop() {
	defer close(r.persistDone)
	for e := range r.persistCh {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := r.repo.Insert(ctx, &e); err != nil {
			r.logger.Warn("persisting status event failed", "error", err, "kind", string(e.Kind))
		}
		cancel()
	}
}

// SetLogger configures structured logging.
func (r *Reporter) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Report delivers an event to all subscribers and records it.
// It is fire-and-forget: delivery and persistence failures are logged,
// never surfaced to the producer.
func (r *Reporter) Report(e Event) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.counts[e.Kind]++
	for _, sub := range r.subscribers {
		select {
		case sub.ch <- e:
		default:
			// Queue full: evict the oldest event, then enqueue.
			select {
			case <-sub.ch:
				sub.dropped++
			default:
			}
			select {
			case sub.ch <- e:
			default:
			}
		}
	}

	persisted := true
	if r.persistCh != nil {
		select {
		case r.persistCh <- e:
		default:
			// Persistence backlog full; keep the hot path non-blocking.
			persisted = false
		}
	}
	r.mu.Unlock()

	if !persisted {
		r.logger.Warn("status event persistence backlog full, dropping", "kind", string(e.Kind))
	}
	r.logger.Debug("status event",
		"kind", string(e.Kind),
		"severity", string(e.Severity),
		"controller_id", e.ControllerID,
		"message", e.Message,
	)
}

// Subscribe registers a bounded delivery queue under name and returns the
// receive channel plus an unsubscribe function. Subscribing twice under the
// same name replaces the previous queue.
func (r *Reporter) Subscribe(name string, buffer int) (<-chan Event, func(), error) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, nil, ErrReporterClosed
	}

	if old, ok := r.subscribers[name]; ok {
		close(old.ch)
	}

	sub := &subscriber{name: name, ch: make(chan Event, buffer)}
	r.subscribers[name] = sub

	unsubscribe := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if current, ok := r.subscribers[name]; ok && current == sub {
			delete(r.subscribers, name)
			close(sub.ch)
		}
	}
	return sub.ch, unsubscribe, nil
}

// Counts returns a snapshot of per-kind event counters.
func (r *Reporter) Counts() map[Kind]uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[Kind]uint64, len(r.counts))
	for k, v := range r.counts {
		counts[k] = v
	}
	return counts
}

// Dropped returns the number of events discarded for a subscriber because
// its queue was full. Returns zero for unknown subscribers.
func (r *Reporter) Dropped(name string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub, ok := r.subscribers[name]; ok {
		return sub.dropped
	}
	return 0
}

// Close shuts down the reporter, closes all subscriber channels, and waits
// for pending persistence writes to drain.
func (r *Reporter) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for name, sub := range r.subscribers {
		close(sub.ch)
		delete(r.subscribers, name)
	}
	if r.persistCh != nil {
		close(r.persistCh)
	}
	r.mu.Unlock()

	if r.persistDone != nil {
		<-r.persistDone
	}
}
