package status

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository persists status events for later inspection.
type Repository interface {
	// Insert stores one event.
	Insert(ctx context.Context, e *Event) error

	// ListRecent returns the newest events, newest first. A non-empty kind
	// filters to that event kind.
	ListRecent(ctx context.Context, kind Kind, limit int) ([]Event, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Insert stores one event.
func (r *SQLiteRepository) Insert(ctx context.Context, e *Event) error {
	var details any
	if len(e.Details) > 0 {
		data, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshalling event details: %w", err)
		}
		details = string(data)
	}

	query := `
		INSERT INTO status_events (id, kind, severity, controller_id, device_id, message, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, string(e.Kind), string(e.Severity),
		nullable(e.ControllerID), nullable(e.DeviceID),
		e.Message, details,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting status event: %w", err)
	}
	return nil
}

// ListRecent returns the newest events, newest first.
func (r *SQLiteRepository) ListRecent(ctx context.Context, kind Kind, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, kind, severity, controller_id, device_id, message, details, created_at
		FROM status_events`
	args := []any{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing status events: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows close

	var events []Event
	for rows.Next() {
		var (
			e            Event
			kindStr      string
			severity     string
			controllerID sql.NullString
			deviceID     sql.NullString
			details      sql.NullString
			createdAt    string
		)
		if err := rows.Scan(&e.ID, &kindStr, &severity, &controllerID, &deviceID,
			&e.Message, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning status event row: %w", err)
		}

		e.Kind = Kind(kindStr)
		e.Severity = Severity(severity)
		e.ControllerID = controllerID.String
		e.DeviceID = deviceID.String

		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshalling event details: %w", err)
			}
		}

		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		e.CreatedAt = ts

		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status event rows: %w", err)
	}
	return events, nil
}

// nullable maps empty strings to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
