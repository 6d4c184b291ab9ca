package sampler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MSandovalPhD/lisu-core/internal/device"
	"github.com/MSandovalPhD/lisu-core/internal/status"
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

// Evaluator consumes the records produced by the sampling loops.
type Evaluator interface {
	ProcessInput(ctx context.Context, record Record)
}

// Reporter is the sink for latency and overflow events.
type Reporter interface {
	Report(e status.Event)
}

// Heartbeater receives liveness signals as records are delivered.
type Heartbeater interface {
	Heartbeat(controllerID string) error
}

// loop is the sampling state for one active controller.
type loop struct {
	controllerID string
	deviceID     string
	queue        *queue
	latencyBound time.Duration
	period       time.Duration
	cancel       context.CancelFunc
	done         chan struct{}

	mu          sync.Mutex
	counters    Counters
	overflowing bool // inside an eviction batch, one event already sent
}

// Sampler runs one bounded producer queue and polling goroutine per active
// controller, feeding collected records to the evaluator.
type Sampler struct {
	evaluator Evaluator
	reporter  Reporter
	heartbeat Heartbeater

	mu    sync.RWMutex
	loops map[string]*loop

	logger Logger
}

// NewSampler creates a sampler. reporter may be nil.
func NewSampler(evaluator Evaluator, reporter Reporter) *Sampler {
	return &Sampler{
		evaluator: evaluator,
		reporter:  reporter,
		loops:     make(map[string]*loop),
		logger:    noopLogger{},
	}
}

// SetLogger configures structured logging.
func (s *Sampler) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetHeartbeater wires liveness signalling back to the controller manager.
func (s *Sampler) SetHeartbeater(h Heartbeater) {
	s.heartbeat = h
}

// Start begins the sampling loop for an activated controller. The queue
// capacity, polling period, and latency bound all come from the device
// descriptor. Starting an already started controller is a no-op.
func (s *Sampler) Start(ctx context.Context, controllerID string, desc *device.Descriptor) {
	s.mu.Lock()
	if _, exists := s.loops[controllerID]; exists {
		s.mu.Unlock()
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l := &loop{
		controllerID: controllerID,
		deviceID:     desc.ID,
		queue:        newQueue(desc.BufferSize),
		latencyBound: desc.LatencyBound(),
		period:       desc.PollingPeriod(),
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	s.loops[controllerID] = l
	s.mu.Unlock()

	go s.run(loopCtx, l)

	s.logger.Info("sampling started",
		"controller_id", controllerID,
		"period", l.period.String(),
		"latency_bound", l.latencyBound.String(),
		"buffer_size", desc.BufferSize,
	)
}

// Stop cancels the sampling loop and discards any queued samples.
func (s *Sampler) Stop(controllerID string) {
	s.mu.Lock()
	l, ok := s.loops[controllerID]
	if ok {
		delete(s.loops, controllerID)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	l.cancel()
	<-l.done
	l.queue.drain()
	s.logger.Info("sampling stopped", "controller_id", controllerID)
}

// StopAll stops every running loop. Called on shutdown.
func (s *Sampler) StopAll() {
	s.mu.Lock()
	loops := make([]*loop, 0, len(s.loops))
	for id, l := range s.loops {
		loops = append(loops, l)
		delete(s.loops, id)
	}
	s.mu.Unlock()

	for _, l := range loops {
		l.cancel()
		<-l.done
	}
}

// Push ingests one raw sample from the transport. A sample older than the
// device's latency bound is dropped and reported, not queued; this is
// non-fatal and counted. A full queue sheds its oldest sample, with one
// overflow event per eviction batch.
func (s *Sampler) Push(sample Sample) error {
	s.mu.RLock()
	l, ok := s.loops[sample.ControllerID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrControllerNotActive, sample.ControllerID)
	}

	if sample.ReceivedAt.IsZero() {
		sample.ReceivedAt = time.Now()
	}

	l.mu.Lock()
	l.counters.Received++
	l.mu.Unlock()

	if !sample.Timestamp.IsZero() {
		if latency := sample.ReceivedAt.Sub(sample.Timestamp); latency > l.latencyBound {
			l.mu.Lock()
			l.counters.LatencyDropped++
			l.mu.Unlock()

			s.report(status.Event{
				Kind:         status.KindLatencyViolation,
				Severity:     status.SeverityWarning,
				ControllerID: sample.ControllerID,
				DeviceID:     l.deviceID,
				Message:      "sample exceeded latency bound, dropped",
				Details: map[string]any{
					"channel":   sample.Channel,
					"latencyMs": latency.Milliseconds(),
					"boundMs":   l.latencyBound.Milliseconds(),
				},
			})
			return nil
		}
	}

	evicted := l.queue.push(sample)
	if evicted > 0 {
		l.mu.Lock()
		l.counters.OverflowEvicted += uint64(evicted)
		firstInBatch := !l.overflowing
		l.overflowing = true
		l.mu.Unlock()

		if firstInBatch {
			s.report(status.Event{
				Kind:         status.KindOverflow,
				Severity:     status.SeverityWarning,
				ControllerID: sample.ControllerID,
				DeviceID:     l.deviceID,
				Message:      "sample queue overflow, evicting oldest",
			})
		}
	}
	return nil
}

// Poll returns a snapshot of the controller's queued samples without
// consuming them; the background loop still delivers every queued sample
// to the evaluator. If the queue is empty it waits up to one polling
// period for samples to arrive, then fails with ErrSampleTimeout.
func (s *Sampler) Poll(ctx context.Context, controllerID string) (Record, error) {
	s.mu.RLock()
	l, ok := s.loops[controllerID]
	s.mu.RUnlock()
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrControllerNotActive, controllerID)
	}

	if l.queue.len() == 0 {
		timer := time.NewTimer(l.period)
		defer timer.Stop()
		select {
		case <-l.queue.notify:
		case <-timer.C:
		case <-ctx.Done():
			return Record{}, ctx.Err()
		}
	}
	samples := l.queue.snapshot()
	if len(samples) == 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrSampleTimeout, controllerID)
	}

	// A diagnostic read is not a delivery: counters and the eviction batch
	// state are left to the loop.
	return Record{
		ControllerID: l.controllerID,
		Samples:      samples,
		CollectedAt:  time.Now(),
	}, nil
}

// Counters returns a snapshot of the controller's sampling statistics.
func (s *Sampler) Counters(controllerID string) (Counters, error) {
	s.mu.RLock()
	l, ok := s.loops[controllerID]
	s.mu.RUnlock()
	if !ok {
		return Counters{}, fmt.Errorf("%w: %s", ErrControllerNotActive, controllerID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counters, nil
}

// Active reports whether a sampling loop is running for the controller.
func (s *Sampler) Active(controllerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.loops[controllerID]
	return ok
}

// run is the per-controller sampling loop: every polling period it drains
// the queue and hands the batch to the evaluator.
func (s *Sampler) run(ctx context.Context, l *loop) {
	defer close(l.done)

	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			samples := l.queue.drain()
			if len(samples) == 0 {
				continue
			}
			record := s.makeRecord(l, samples)
			s.evaluator.ProcessInput(ctx, record)

			if s.heartbeat != nil {
				if err := s.heartbeat.Heartbeat(l.controllerID); err != nil {
					s.logger.Debug("heartbeat failed", "controller_id", l.controllerID, "error", err)
				}
			}
		}
	}
}

// makeRecord builds a record from drained samples and closes any open
// eviction batch.
func (s *Sampler) makeRecord(l *loop, samples []Sample) Record {
	l.mu.Lock()
	l.counters.RecordsDelivered++
	l.overflowing = false
	l.mu.Unlock()

	return Record{
		ControllerID: l.controllerID,
		Samples:      samples,
		CollectedAt:  time.Now(),
	}
}

func (s *Sampler) report(e status.Event) {
	if s.reporter != nil {
		s.reporter.Report(e)
	}
}
