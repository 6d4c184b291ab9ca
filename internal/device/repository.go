package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for descriptor persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a descriptor by its unique identifier.
	// Returns ErrDeviceNotFound if the descriptor does not exist.
	GetByID(ctx context.Context, id string) (*Descriptor, error)

	// List retrieves all descriptors.
	List(ctx context.Context) ([]Descriptor, error)

	// Create inserts a new descriptor.
	// Returns ErrDuplicateDevice if the ID or vendor/product pair exists.
	Create(ctx context.Context, d *Descriptor) error

	// Delete removes a descriptor by ID.
	// Returns ErrDeviceNotFound if the descriptor does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a descriptor by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Descriptor, error) {
	query := `
		SELECT id, vendor_id, product_id, name, kind,
			polling_rate_hz, latency_ms, buffer_size, capabilities, created_at
		FROM devices
		WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	d, err := scanDescriptor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return d, nil
}

// List retrieves all descriptors ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Descriptor, error) {
	query := `
		SELECT id, vendor_id, product_id, name, kind,
			polling_rate_hz, latency_ms, buffer_size, capabilities, created_at
		FROM devices
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows close

	var descriptors []Descriptor
	for rows.Next() {
		d, scanErr := scanDescriptor(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning device row: %w", scanErr)
		}
		descriptors = append(descriptors, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device rows: %w", err)
	}
	return descriptors, nil
}

// Create inserts a new descriptor.
func (r *SQLiteRepository) Create(ctx context.Context, d *Descriptor) error {
	capabilities, err := json.Marshal(d.Capabilities)
	if err != nil {
		return fmt.Errorf("marshalling capabilities: %w", err)
	}

	query := `
		INSERT INTO devices (id, vendor_id, product_id, name, kind,
			polling_rate_hz, latency_ms, buffer_size, capabilities, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		d.ID, d.VendorID, d.ProductID, d.Name, string(d.Kind),
		d.PollingRateHz, d.LatencyMs, d.BufferSize, string(capabilities),
		d.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateDevice
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// Delete removes a descriptor by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanDescriptor.
type scanner interface {
	Scan(dest ...any) error
}

// scanDescriptor reads one descriptor row.
func scanDescriptor(s scanner) (*Descriptor, error) {
	var (
		d            Descriptor
		kind         string
		capabilities string
		createdAt    string
	)

	if err := s.Scan(
		&d.ID, &d.VendorID, &d.ProductID, &d.Name, &kind,
		&d.PollingRateHz, &d.LatencyMs, &d.BufferSize, &capabilities, &createdAt,
	); err != nil {
		return nil, err
	}

	d.Kind = Kind(kind)

	if err := json.Unmarshal([]byte(capabilities), &d.Capabilities); err != nil {
		return nil, fmt.Errorf("unmarshalling capabilities: %w", err)
	}

	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	d.CreatedAt = ts

	return &d, nil
}

// isUniqueViolation reports whether err is a SQLite unique constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
