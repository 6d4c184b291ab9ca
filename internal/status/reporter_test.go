package status

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func TestReporter_ReportAndSubscribe(t *testing.T) {
	reporter := NewReporter(nil)
	defer reporter.Close()

	events, unsubscribe, err := reporter.Subscribe("test", 8)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer unsubscribe()

	reporter.Report(Event{
		Kind:         KindLatencyViolation,
		Severity:     SeverityWarning,
		ControllerID: "ctrl-1",
		Message:      "sample exceeded latency bound",
	})

	select {
	case e := <-events:
		if e.Kind != KindLatencyViolation {
			t.Errorf("Kind = %q, want latency_violation", e.Kind)
		}
		if e.ID == "" {
			t.Error("ID was not assigned")
		}
		if e.CreatedAt.IsZero() {
			t.Error("CreatedAt was not assigned")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestReporter_FullQueueDropsOldest(t *testing.T) {
	reporter := NewReporter(nil)
	defer reporter.Close()

	events, unsubscribe, err := reporter.Subscribe("slow", 2)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer unsubscribe()

	// Nobody reads: third report must evict the first.
	for i, msg := range []string{"first", "second", "third"} {
		reporter.Report(Event{Kind: KindOverflow, Message: msg})
		_ = i
	}

	got := []string{(<-events).Message, (<-events).Message}
	if got[0] != "second" || got[1] != "third" {
		t.Errorf("queued messages = %v, want [second third]", got)
	}
	if reporter.Dropped("slow") != 1 {
		t.Errorf("Dropped() = %d, want 1", reporter.Dropped("slow"))
	}
}

func TestReporter_Counts(t *testing.T) {
	reporter := NewReporter(nil)
	defer reporter.Close()

	reporter.Report(Event{Kind: KindOverflow})
	reporter.Report(Event{Kind: KindOverflow})
	reporter.Report(Event{Kind: KindInvalidSample})

	counts := reporter.Counts()
	if counts[KindOverflow] != 2 {
		t.Errorf("counts[overflow] = %d, want 2", counts[KindOverflow])
	}
	if counts[KindInvalidSample] != 1 {
		t.Errorf("counts[invalid_sample] = %d, want 1", counts[KindInvalidSample])
	}
}

func TestReporter_SubscribeAfterClose(t *testing.T) {
	reporter := NewReporter(nil)
	reporter.Close()

	if _, _, err := reporter.Subscribe("late", 8); !errors.Is(err, ErrReporterClosed) {
		t.Errorf("Subscribe() error = %v, want ErrReporterClosed", err)
	}

	// Reporting after close must not panic.
	reporter.Report(Event{Kind: KindOverflow})
}

func TestReporter_UnsubscribeClosesChannel(t *testing.T) {
	reporter := NewReporter(nil)
	defer reporter.Close()

	events, unsubscribe, err := reporter.Subscribe("gone", 8)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	unsubscribe()

	if _, ok := <-events; ok {
		t.Error("channel still open after unsubscribe")
	}

	// Reporting after unsubscribe must not panic.
	reporter.Report(Event{Kind: KindOverflow})
}

func setupStatusDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE status_events (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			severity TEXT NOT NULL,
			controller_id TEXT,
			device_id TEXT,
			message TEXT NOT NULL,
			details TEXT,
			created_at TEXT NOT NULL
		);`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return db
}

func TestSQLiteRepository_InsertAndList(t *testing.T) {
	repo := NewSQLiteRepository(setupStatusDB(t))
	ctx := context.Background()

	base := time.Now().UTC()
	for i, e := range []Event{
		{ID: "ev-1", Kind: KindOverflow, Severity: SeverityWarning, ControllerID: "ctrl-1",
			Message: "buffer overflow", Details: map[string]any{"evicted": float64(3)}},
		{ID: "ev-2", Kind: KindControllerError, Severity: SeverityError, Message: "handshake failed"},
	} {
		e.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := repo.Insert(ctx, &e); err != nil {
			t.Fatalf("Insert(%s) error = %v", e.ID, err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		got, err := repo.ListRecent(ctx, "", 10)
		if err != nil {
			t.Fatalf("ListRecent() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		if got[0].ID != "ev-2" {
			t.Errorf("first ID = %q, want ev-2", got[0].ID)
		}
	})

	t.Run("kind filter", func(t *testing.T) {
		got, err := repo.ListRecent(ctx, KindOverflow, 10)
		if err != nil {
			t.Fatalf("ListRecent() error = %v", err)
		}
		if len(got) != 1 || got[0].ID != "ev-1" {
			t.Fatalf("got %v, want single ev-1", got)
		}
		if got[0].Details["evicted"] != float64(3) {
			t.Errorf("Details = %v, want evicted=3", got[0].Details)
		}
	})
}
