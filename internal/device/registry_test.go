package device

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// MockRepository is a test implementation of Repository.
type MockRepository struct {
	mu      sync.Mutex
	devices map[string]*Descriptor
	// For testing error paths
	createErr error
	deleteErr error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		devices: make(map[string]*Descriptor),
	}
}

func (m *MockRepository) GetByID(_ context.Context, id string) (*Descriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.devices[id]; ok {
		copy := *d
		return &copy, nil
	}
	return nil, ErrDeviceNotFound
}

func (m *MockRepository) List(_ context.Context) ([]Descriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	descriptors := make([]Descriptor, 0, len(m.devices))
	for _, d := range m.devices {
		descriptors = append(descriptors, *d)
	}
	return descriptors, nil
}

func (m *MockRepository) Create(_ context.Context, d *Descriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.devices[d.ID]; exists {
		return ErrDuplicateDevice
	}
	copy := *d
	m.devices[d.ID] = &copy
	return nil
}

func (m *MockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, exists := m.devices[id]; !exists {
		return ErrDeviceNotFound
	}
	delete(m.devices, id)
	return nil
}

// addDescriptor inserts directly, bypassing validation.
func (m *MockRepository) addDescriptor(d *Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *d
	m.devices[d.ID] = &copy
}

// testDescriptor creates a valid descriptor for tests.
func testDescriptor(id, name string, vendorID uint16) *Descriptor {
	return &Descriptor{
		ID:            id,
		VendorID:      vendorID,
		ProductID:     0x2101,
		Name:          name,
		Kind:          KindVRController,
		PollingRateHz: 1000,
		LatencyMs:     16,
		BufferSize:    64,
		Capabilities: []Channel{
			{Name: "trigger", Kind: ValueScalar},
			{Name: "grip_button", Kind: ValueBool},
			{Name: "thumbstick", Kind: ValueVec2},
		},
	}
}

func TestRegistry_SetLoggerNilKeepsNoop(t *testing.T) {
	registry := NewRegistry(NewMockRepository())
	registry.SetLogger(nil)

	// Register logs; a nil logger must not panic.
	if _, err := registry.Register(context.Background(), testDescriptor("", "Index Controller", 0x28de)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
}

func TestRegistry_RefreshCache(t *testing.T) {
	repo := NewMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	repo.addDescriptor(testDescriptor("dev-1", "Device 1", 0x28de))
	repo.addDescriptor(testDescriptor("dev-2", "Device 2", 0x0bb4))

	if err := registry.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	if registry.Count() != 2 {
		t.Errorf("Count() = %d, want 2", registry.Count())
	}
}

func TestRegistry_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("registers with generated ID", func(t *testing.T) {
		registry := NewRegistry(NewMockRepository())

		d := testDescriptor("", "Index Controller", 0x28de)
		id, err := registry.Register(ctx, d)
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if id == "" {
			t.Error("Register() returned empty ID")
		}

		got, err := registry.Lookup(ctx, id)
		if err != nil {
			t.Fatalf("Lookup() error = %v", err)
		}
		if got.Name != "Index Controller" {
			t.Errorf("Name = %q, want %q", got.Name, "Index Controller")
		}
		if got.CreatedAt.IsZero() {
			t.Error("CreatedAt was not set")
		}
	})

	t.Run("rejects invalid descriptor", func(t *testing.T) {
		registry := NewRegistry(NewMockRepository())

		d := testDescriptor("", "Bad Device", 0x28de)
		d.PollingRateHz = 0

		_, err := registry.Register(ctx, d)
		if !errors.Is(err, ErrInvalidDescriptor) {
			t.Errorf("Register() error = %v, want ErrInvalidDescriptor", err)
		}
	})

	t.Run("rejects empty capability list", func(t *testing.T) {
		registry := NewRegistry(NewMockRepository())

		d := testDescriptor("", "No Channels", 0x28de)
		d.Capabilities = nil

		_, err := registry.Register(ctx, d)
		if !errors.Is(err, ErrInvalidDescriptor) {
			t.Errorf("Register() error = %v, want ErrInvalidDescriptor", err)
		}
	})

	t.Run("rejects duplicate vendor/product pair", func(t *testing.T) {
		registry := NewRegistry(NewMockRepository())

		if _, err := registry.Register(ctx, testDescriptor("", "First", 0x28de)); err != nil {
			t.Fatalf("first Register() error = %v", err)
		}

		_, err := registry.Register(ctx, testDescriptor("", "Second", 0x28de))
		if !errors.Is(err, ErrDuplicateDevice) {
			t.Errorf("Register() error = %v, want ErrDuplicateDevice", err)
		}
	})
}

func TestRegistry_Lookup(t *testing.T) {
	repo := NewMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	repo.addDescriptor(testDescriptor("dev-get", "Test Device", 0x28de))
	if err := registry.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	t.Run("round-trips descriptor", func(t *testing.T) {
		got, err := registry.Lookup(ctx, "dev-get")
		if err != nil {
			t.Fatalf("Lookup() error = %v", err)
		}
		if got.ID != "dev-get" {
			t.Errorf("ID = %q, want %q", got.ID, "dev-get")
		}
		if got.PollingRateHz != 1000 || got.LatencyMs != 16 || got.BufferSize != 64 {
			t.Errorf("real-time parameters = {%d, %d, %d}, want {1000, 16, 64}",
				got.PollingRateHz, got.LatencyMs, got.BufferSize)
		}
		if len(got.Capabilities) != 3 {
			t.Errorf("len(Capabilities) = %d, want 3", len(got.Capabilities))
		}
	})

	t.Run("returns ErrDeviceNotFound for nonexistent", func(t *testing.T) {
		_, err := registry.Lookup(ctx, "nonexistent")
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Lookup() error = %v, want ErrDeviceNotFound", err)
		}
	})

	t.Run("returned copy does not alias cache", func(t *testing.T) {
		first, err := registry.Lookup(ctx, "dev-get")
		if err != nil {
			t.Fatalf("Lookup() error = %v", err)
		}
		first.Capabilities[0].Name = "mutated"

		second, err := registry.Lookup(ctx, "dev-get")
		if err != nil {
			t.Fatalf("Lookup() error = %v", err)
		}
		if second.Capabilities[0].Name != "trigger" {
			t.Error("mutation of returned descriptor leaked into cache")
		}
	})
}

func TestRegistry_Enumerate(t *testing.T) {
	repo := NewMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	repo.addDescriptor(testDescriptor("dev-b", "Bravo", 0x28de))
	repo.addDescriptor(testDescriptor("dev-a", "Alpha", 0x0bb4))
	if err := registry.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	got, err := registry.Enumerate(ctx)
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "Alpha" || got[1].Name != "Bravo" {
		t.Errorf("order = [%q, %q], want [Alpha, Bravo]", got[0].Name, got[1].Name)
	}

	// Enumerate is a snapshot: registering later must not mutate it
	if _, err := registry.Register(ctx, testDescriptor("", "Charlie", 0x054c)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if len(got) != 2 {
		t.Error("snapshot changed after registration")
	}
}

func TestRegistry_Remove(t *testing.T) {
	repo := NewMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	repo.addDescriptor(testDescriptor("dev-rm", "Doomed", 0x28de))
	if err := registry.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	if err := registry.Remove(ctx, "dev-rm"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if _, err := registry.Lookup(ctx, "dev-rm"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Lookup() after Remove error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_HasCapability(t *testing.T) {
	repo := NewMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	repo.addDescriptor(testDescriptor("dev-1", "Device 1", 0x28de))
	if err := registry.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	if !registry.HasCapability("trigger") {
		t.Error("HasCapability(trigger) = false, want true")
	}
	if registry.HasCapability("wheel") {
		t.Error("HasCapability(wheel) = true, want false")
	}
}

func TestRegistry_GetStats(t *testing.T) {
	repo := NewMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	d := testDescriptor("dev-1", "Device 1", 0x28de)
	repo.addDescriptor(d)
	hmd := testDescriptor("dev-2", "Headset", 0x0bb4)
	hmd.Kind = KindHMD
	repo.addDescriptor(hmd)
	if err := registry.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	stats := registry.GetStats()
	if stats.TotalDevices != 2 {
		t.Errorf("TotalDevices = %d, want 2", stats.TotalDevices)
	}
	if stats.ByKind[KindVRController] != 1 || stats.ByKind[KindHMD] != 1 {
		t.Errorf("ByKind = %v, want one vr_controller and one hmd", stats.ByKind)
	}
	if stats.Channels != 6 {
		t.Errorf("Channels = %d, want 6", stats.Channels)
	}
}
