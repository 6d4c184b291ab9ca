package controller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

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

// Reporter is the sink for controller health events.
type Reporter interface {
	Report(e status.Event)
}

// StateListener is notified after every state transition, outside the
// manager's lock. The sampler uses it to start and stop polling loops.
type StateListener func(inst Instance, previous State)

// Manager owns the lifecycle of controller instances. Each registered
// device may have at most one active instance at a time; concurrent
// activation attempts for the same device race-fail with ErrAlreadyActive.
type Manager struct {
	registry  *device.Registry
	transport Transport
	reporter  Reporter

	mu       sync.Mutex
	byID     map[string]*Instance
	byDevice map[string]string // device ID -> controller ID claim

	listener StateListener
	logger   Logger
}

// NewManager creates a controller manager. reporter may be nil.
func NewManager(registry *device.Registry, transport Transport, reporter Reporter) *Manager {
	if transport == nil {
		transport = LoopbackTransport{}
	}
	return &Manager{
		registry:  registry,
		transport: transport,
		reporter:  reporter,
		byID:      make(map[string]*Instance),
		byDevice:  make(map[string]string),
		logger:    noopLogger{},
	}
}

// SetLogger configures structured logging.
func (m *Manager) SetLogger(logger Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// SetStateListener registers the transition callback. Must be called
// before the first Activate.
func (m *Manager) SetStateListener(fn StateListener) {
	m.listener = fn
}

// Activate creates (or recovers) a controller instance for the device and
// performs the initialization handshake. The handshake must complete
// within the device's latency bound or activation fails with
// ErrInitializationTimeout and the instance is left in the error state.
func (m *Manager) Activate(ctx context.Context, deviceID string) (string, error) {
	desc, err := m.registry.Lookup(ctx, deviceID)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrDeviceUnavailable, deviceID)
	}

	// Claim the device slot. The initializing state is the claim: a second
	// Activate racing in here sees it and fails deterministically.
	m.mu.Lock()
	var inst *Instance
	if cid, claimed := m.byDevice[deviceID]; claimed {
		existing := m.byID[cid]
		if existing.State == StateActive || existing.State == StateInitializing {
			m.mu.Unlock()
			return "", fmt.Errorf("%w: device %s has controller %s", ErrAlreadyActive, deviceID, cid)
		}
		// Error-state recovery reuses the instance identity.
		inst = existing
	} else {
		inst = &Instance{ID: uuid.New().String(), DeviceID: deviceID}
		m.byID[inst.ID] = inst
		m.byDevice[deviceID] = inst.ID
	}
	previous := inst.State
	inst.State = StateInitializing
	inst.ErrorReason = ""
	snapshot := *inst
	m.mu.Unlock()

	m.notify(snapshot, previous)

	handshakeCtx, cancel := context.WithTimeout(ctx, desc.LatencyBound())
	defer cancel()

	if err := m.transport.Handshake(handshakeCtx, inst.ID, deviceID); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: handshake exceeded %v", ErrInitializationTimeout, desc.LatencyBound())
		}
		m.fail(inst.ID, err.Error())
		return "", err
	}

	m.mu.Lock()
	if _, still := m.byID[inst.ID]; !still {
		// Deactivated mid-handshake.
		m.mu.Unlock()
		return "", ErrControllerNotFound
	}
	previous = inst.State
	inst.State = StateActive
	inst.ActivatedAt = time.Now().UTC()
	inst.LastHeartbeat = inst.ActivatedAt
	snapshot = *inst
	m.mu.Unlock()

	m.notify(snapshot, previous)
	m.report(status.Event{
		Kind:         status.KindControllerState,
		Severity:     status.SeverityInfo,
		ControllerID: inst.ID,
		DeviceID:     deviceID,
		Message:      "controller activated",
	})
	m.logger.Info("controller activated",
		"controller_id", inst.ID,
		"device_id", deviceID,
		"device_name", desc.Name,
	)
	return inst.ID, nil
}

// Deactivate releases a controller instance. The device slot becomes
// available for a fresh activation.
func (m *Manager) Deactivate(controllerID string) error {
	m.mu.Lock()
	inst, ok := m.byID[controllerID]
	if !ok {
		m.mu.Unlock()
		return ErrControllerNotFound
	}
	previous := inst.State
	inst.State = StateDisconnected
	snapshot := *inst
	delete(m.byID, controllerID)
	delete(m.byDevice, inst.DeviceID)
	m.mu.Unlock()

	m.notify(snapshot, previous)
	m.report(status.Event{
		Kind:         status.KindControllerState,
		Severity:     status.SeverityInfo,
		ControllerID: controllerID,
		DeviceID:     snapshot.DeviceID,
		Message:      "controller deactivated",
	})
	m.logger.Info("controller deactivated", "controller_id", controllerID)
	return nil
}

// Status returns a snapshot of the instance state. Non-blocking read.
func (m *Manager) Status(controllerID string) (Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.byID[controllerID]
	if !ok {
		return Instance{}, ErrControllerNotFound
	}
	return *inst, nil
}

// List returns snapshots of all instances, ordered by controller ID.
func (m *Manager) List() []Instance {
	m.mu.Lock()
	defer m.mu.Unlock()

	instances := make([]Instance, 0, len(m.byID))
	for _, inst := range m.byID {
		instances = append(instances, *inst)
	}
	sort.Slice(instances, func(i, j int) bool { return instances[i].ID < instances[j].ID })
	return instances
}

// Descriptor resolves the device descriptor backing a controller.
func (m *Manager) Descriptor(ctx context.Context, controllerID string) (*device.Descriptor, error) {
	m.mu.Lock()
	inst, ok := m.byID[controllerID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrControllerNotFound
	}
	deviceID := inst.DeviceID
	m.mu.Unlock()

	return m.registry.Lookup(ctx, deviceID)
}

// ReportError transitions a controller to the error state and forwards the
// reason to the status reporter. The instance stays claimed so recovery
// goes through an explicit re-activation of the same device.
func (m *Manager) ReportError(controllerID, reason string) error {
	if err := m.fail(controllerID, reason); err != nil {
		return err
	}
	m.logger.Warn("controller error", "controller_id", controllerID, "reason", reason)
	return nil
}

// Heartbeat records sample activity for health tracking.
func (m *Manager) Heartbeat(controllerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.byID[controllerID]
	if !ok {
		return ErrControllerNotFound
	}
	inst.LastHeartbeat = time.Now().UTC()
	return nil
}

// fail moves an instance to the error state and emits the event.
func (m *Manager) fail(controllerID, reason string) error {
	m.mu.Lock()
	inst, ok := m.byID[controllerID]
	if !ok {
		m.mu.Unlock()
		return ErrControllerNotFound
	}
	previous := inst.State
	inst.State = StateError
	inst.ErrorReason = reason
	snapshot := *inst
	m.mu.Unlock()

	m.notify(snapshot, previous)
	m.report(status.Event{
		Kind:         status.KindControllerError,
		Severity:     status.SeverityError,
		ControllerID: controllerID,
		DeviceID:     snapshot.DeviceID,
		Message:      reason,
	})
	return nil
}

func (m *Manager) notify(inst Instance, previous State) {
	if m.listener != nil && inst.State != previous {
		m.listener(inst, previous)
	}
}

func (m *Manager) report(e status.Event) {
	if m.reporter != nil {
		m.reporter.Report(e)
	}
}
