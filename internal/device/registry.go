package device

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides descriptor management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups on the
// activation and mapping-validation paths.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-invalidating Register/Remove operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Descriptor // Cached descriptors by ID
	cacheMu sync.RWMutex           // Protects cache
	logger  Logger
}

// NewRegistry creates a new device registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Descriptor),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// RefreshCache reloads all descriptors from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	descriptors, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading descriptors: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	// Clear and rebuild cache with deep copies
	r.cache = make(map[string]*Descriptor, len(descriptors))
	for i := range descriptors {
		d := descriptors[i]
		r.cache[d.ID] = d.DeepCopy()
	}

	r.logger.Info("device cache refreshed", "count", len(descriptors))
	return nil
}

// Register validates and stores a new descriptor, returning its device ID.
//
// An ID is generated when the descriptor does not carry one. Registration
// fails with ErrInvalidDescriptor for validation failures and with
// ErrDuplicateDevice when the ID or vendor/product pair already exists.
func (r *Registry) Register(ctx context.Context, d *Descriptor) (string, error) {
	if d != nil && d.ID == "" {
		d.ID = GenerateID()
	}

	if err := ValidateDescriptor(d); err != nil {
		return "", err
	}

	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	// Reject duplicate vendor/product pairs before hitting the database so
	// the error is deterministic even for repositories without the
	// uniqueness constraint (mocks).
	r.cacheMu.RLock()
	for _, cached := range r.cache {
		if cached.VendorID == d.VendorID && cached.ProductID == d.ProductID {
			r.cacheMu.RUnlock()
			return "", ErrDuplicateDevice
		}
	}
	r.cacheMu.RUnlock()

	if err := r.repo.Create(ctx, d); err != nil {
		return "", err
	}

	// Update cache (store a deep copy to prevent external modification)
	r.cacheMu.Lock()
	r.cache[d.ID] = d.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("device registered",
		"id", d.ID,
		"name", d.Name,
		"vendor_id", fmt.Sprintf("0x%04x", d.VendorID),
		"product_id", fmt.Sprintf("0x%04x", d.ProductID),
	)
	return d.ID, nil
}

// Lookup retrieves a descriptor by ID.
// Returns ErrDeviceNotFound if the descriptor does not exist.
// The returned descriptor is a deep copy; callers can safely modify it.
func (r *Registry) Lookup(ctx context.Context, id string) (*Descriptor, error) {
	// Try cache first
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		// Return a deep copy to prevent external mutation of cache
		return cached.DeepCopy(), nil
	}

	// Fall back to repository (might be a new device not yet cached)
	d, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Cache for future lookups (store a deep copy)
	r.cacheMu.Lock()
	r.cache[id] = d.DeepCopy()
	r.cacheMu.Unlock()

	return d, nil
}

// LookupByVendorProduct retrieves a descriptor by its USB identity.
// The returned descriptor is a deep copy; callers can safely modify it.
func (r *Registry) LookupByVendorProduct(_ context.Context, vendorID, productID uint16) (*Descriptor, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	for _, d := range r.cache {
		if d.VendorID == vendorID && d.ProductID == productID {
			return d.DeepCopy(), nil
		}
	}
	return nil, ErrDeviceNotFound
}

// Enumerate retrieves a snapshot of all registered descriptors, ordered by
// name for deterministic iteration. The returned descriptors are deep
// copies; callers can safely modify them.
func (r *Registry) Enumerate(ctx context.Context) ([]Descriptor, error) {
	r.cacheMu.RLock()

	// Return from cache if populated
	if len(r.cache) > 0 {
		descriptors := make([]Descriptor, 0, len(r.cache))
		for _, d := range r.cache {
			// Deep copy to prevent external mutation of cache
			descriptors = append(descriptors, *d.DeepCopy())
		}
		r.cacheMu.RUnlock()

		sort.Slice(descriptors, func(i, j int) bool {
			return descriptors[i].Name < descriptors[j].Name
		})
		return descriptors, nil
	}
	r.cacheMu.RUnlock()

	// Fall back to repository
	return r.repo.List(ctx)
}

// Remove deletes a descriptor, typically on device disconnect.
func (r *Registry) Remove(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	// Update cache
	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("device removed", "id", id)
	return nil
}

// HasCapability reports whether any registered device produces the named
// channel. Used by the mapping matrix to validate rules at creation time.
func (r *Registry) HasCapability(channel string) bool {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	for _, d := range r.cache {
		if d.HasChannel(channel) {
			return true
		}
	}
	return false
}

// Count returns the number of cached descriptors.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// Stats returns registry statistics for monitoring.
type Stats struct {
	TotalDevices int
	ByKind       map[Kind]int
	Channels     int
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	stats := Stats{
		TotalDevices: len(r.cache),
		ByKind:       make(map[Kind]int),
	}

	for _, d := range r.cache {
		stats.ByKind[d.Kind]++
		stats.Channels += len(d.Capabilities)
	}

	return stats
}
