package mapping

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository persists mapping rules so the matrix survives restarts with
// its tie-break order intact.
type Repository interface {
	// Insert stores one rule.
	Insert(ctx context.Context, r *Rule) error

	// Delete removes a rule by handle. Deleting a nonexistent handle is
	// not an error.
	Delete(ctx context.Context, handle string) error

	// List returns all rules in creation order.
	List(ctx context.Context) ([]Rule, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Insert stores one rule.
func (r *SQLiteRepository) Insert(ctx context.Context, rule *Rule) error {
	predicate, err := json.Marshal(rule.Predicate)
	if err != nil {
		return fmt.Errorf("marshalling predicate: %w", err)
	}

	query := `
		INSERT INTO mappings (handle, seq, channel, action, priority, predicate, mode, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		rule.Handle, rule.Seq, rule.Channel, rule.Action, rule.Priority,
		string(predicate), nullableMode(rule.Mode),
		rule.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting mapping: %w", err)
	}
	return nil
}

// Delete removes a rule by handle.
func (r *SQLiteRepository) Delete(ctx context.Context, handle string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM mappings WHERE handle = ?", handle); err != nil {
		return fmt.Errorf("deleting mapping: %w", err)
	}
	return nil
}

// List returns all rules in creation order.
func (r *SQLiteRepository) List(ctx context.Context) ([]Rule, error) {
	query := `
		SELECT handle, seq, channel, action, priority, predicate, mode, created_at
		FROM mappings
		ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing mappings: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows close

	var rules []Rule
	for rows.Next() {
		var (
			rule      Rule
			predicate string
			mode      sql.NullString
			createdAt string
		)
		if err := rows.Scan(&rule.Handle, &rule.Seq, &rule.Channel, &rule.Action,
			&rule.Priority, &predicate, &mode, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning mapping row: %w", err)
		}

		if err := json.Unmarshal([]byte(predicate), &rule.Predicate); err != nil {
			return nil, fmt.Errorf("unmarshalling predicate: %w", err)
		}
		rule.Mode = mode.String

		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		rule.CreatedAt = ts

		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mapping rows: %w", err)
	}
	return rules, nil
}

// nullableMode maps the always-enabled empty mode to SQL NULL.
func nullableMode(mode string) any {
	if mode == "" {
		return nil
	}
	return mode
}
