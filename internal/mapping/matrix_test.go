package mapping

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/MSandovalPhD/lisu-core/internal/device"
	"github.com/MSandovalPhD/lisu-core/internal/sampler"
	"github.com/MSandovalPhD/lisu-core/internal/status"
)

// staticCapabilities is a fixed channel set.
type staticCapabilities map[string]struct{}

func (c staticCapabilities) HasCapability(channel string) bool {
	_, ok := c[channel]
	return ok
}

// eventCollector records reported events.
type eventCollector struct {
	mu     sync.Mutex
	events []status.Event
}

func (c *eventCollector) Report(e status.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *eventCollector) countKind(kind status.Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func testCapabilities() staticCapabilities {
	return staticCapabilities{
		"trigger": {}, "button": {}, "thumbstick": {},
	}
}

func threshold(v float64) *float64 { return &v }

func record(controllerID string, samples ...sampler.Sample) sampler.Record {
	for i := range samples {
		samples[i].ControllerID = controllerID
		if samples[i].Timestamp.IsZero() {
			samples[i].Timestamp = time.Now()
		}
	}
	return sampler.Record{
		ControllerID: controllerID,
		Samples:      samples,
		CollectedAt:  time.Now(),
	}
}

func actions(result ActionResult) []string {
	out := make([]string, len(result.Actions))
	for i, a := range result.Actions {
		out[i] = a.Action
	}
	return out
}

func TestMatrix_CreateMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and lists rules", func(t *testing.T) {
		m := NewMatrix(testCapabilities(), nil, nil)

		handle, err := m.CreateMapping(ctx, RuleSpec{
			Channel: "trigger", Action: "grab", Priority: 1, Threshold: threshold(0.5),
		})
		if err != nil {
			t.Fatalf("CreateMapping() error = %v", err)
		}
		if handle == "" {
			t.Fatal("empty handle")
		}

		rules := m.Rules()
		if len(rules) != 1 {
			t.Fatalf("len(Rules()) = %d, want 1", len(rules))
		}
		if rules[0].Handle != handle || rules[0].Action != "grab" {
			t.Errorf("rule = %+v", rules[0])
		}
		if m.State() != StateConfigured {
			t.Errorf("State() = %q, want configured", m.State())
		}
	})

	t.Run("unknown channel fails fast", func(t *testing.T) {
		m := NewMatrix(testCapabilities(), nil, nil)

		_, err := m.CreateMapping(ctx, RuleSpec{Channel: "wheel", Action: "steer", Priority: 1})
		if !errors.Is(err, ErrUnknownChannel) {
			t.Errorf("CreateMapping() error = %v, want ErrUnknownChannel", err)
		}
	})

	t.Run("equal priority ambiguity fails fast and reports", func(t *testing.T) {
		reporter := &eventCollector{}
		m := NewMatrix(testCapabilities(), nil, reporter)

		if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "button", Action: "menu_select", Priority: 5}); err != nil {
			t.Fatalf("first CreateMapping() error = %v", err)
		}
		_, err := m.CreateMapping(ctx, RuleSpec{Channel: "button", Action: "jump", Priority: 5})
		if !errors.Is(err, ErrMappingConflict) {
			t.Errorf("CreateMapping() error = %v, want ErrMappingConflict", err)
		}
		if reporter.countKind(status.KindMappingConflict) != 1 {
			t.Error("conflict was not reported")
		}
	})

	t.Run("equal priority same action is not a conflict", func(t *testing.T) {
		m := NewMatrix(testCapabilities(), nil, nil)

		if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "button", Action: "jump", Priority: 5}); err != nil {
			t.Fatalf("first CreateMapping() error = %v", err)
		}
		if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "button", Action: "jump", Priority: 5, Threshold: threshold(0.9)}); err != nil {
			t.Errorf("CreateMapping() error = %v, want nil", err)
		}
	})

	t.Run("equal priority different modes is not a conflict", func(t *testing.T) {
		m := NewMatrix(testCapabilities(), nil, nil)

		if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "button", Action: "jump", Priority: 5, Mode: "game"}); err != nil {
			t.Fatalf("first CreateMapping() error = %v", err)
		}
		if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "button", Action: "menu_select", Priority: 5, Mode: "menu"}); err != nil {
			t.Errorf("CreateMapping() error = %v, want nil", err)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		m := NewMatrix(testCapabilities(), nil, nil)
		if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "trigger"}); !errors.Is(err, ErrInvalidRule) {
			t.Errorf("CreateMapping() error = %v, want ErrInvalidRule", err)
		}
	})
}

func TestMatrix_Evaluate_ScalarThreshold(t *testing.T) {
	ctx := context.Background()
	m := NewMatrix(testCapabilities(), nil, nil)

	if _, err := m.CreateMapping(ctx, RuleSpec{
		Channel: "trigger", Action: "grab", Priority: 1, Threshold: threshold(0.5),
	}); err != nil {
		t.Fatalf("CreateMapping() error = %v", err)
	}

	t.Run("above threshold fires", func(t *testing.T) {
		result := m.Evaluate(record("ctrl-1",
			sampler.Sample{Channel: "trigger", Value: sampler.ScalarValue(0.8)}))
		if got := actions(result); len(got) != 1 || got[0] != "grab" {
			t.Errorf("actions = %v, want [grab]", got)
		}
	})

	t.Run("below threshold yields empty result", func(t *testing.T) {
		result := m.Evaluate(record("ctrl-1",
			sampler.Sample{Channel: "trigger", Value: sampler.ScalarValue(0.2)}))
		if len(result.Actions) != 0 {
			t.Errorf("actions = %v, want empty", actions(result))
		}
	})
}

func TestMatrix_Evaluate_PriorityWins(t *testing.T) {
	ctx := context.Background()
	m := NewMatrix(testCapabilities(), nil, nil)

	// Two rules on one boolean channel with distinct priorities.
	if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "button", Action: "menu_select", Priority: 5}); err != nil {
		t.Fatalf("CreateMapping() error = %v", err)
	}
	if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "button", Action: "teleport", Priority: 10}); err != nil {
		t.Fatalf("CreateMapping() error = %v", err)
	}

	result := m.Evaluate(record("ctrl-1",
		sampler.Sample{Channel: "button", Value: sampler.BoolValue(true)}))
	if got := actions(result); len(got) != 1 || got[0] != "teleport" {
		t.Errorf("actions = %v, want [teleport] only", got)
	}

	// Falsy boolean fires nothing.
	result = m.Evaluate(record("ctrl-1",
		sampler.Sample{Channel: "button", Value: sampler.BoolValue(false)}))
	if len(result.Actions) != 0 {
		t.Errorf("actions = %v, want empty", actions(result))
	}
}

func TestMatrix_Evaluate_TieBreakFirstRegistered(t *testing.T) {
	ctx := context.Background()

	// Equal priority with differing actions is rejected at creation, so
	// the reachable tie is equal-priority rules for the same action. The
	// first-registered rule must be the one credited, every run.
	for run := 0; run < 5; run++ {
		m := NewMatrix(testCapabilities(), nil, nil)

		if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "button", Action: "jump", Priority: 5}); err != nil {
			t.Fatalf("CreateMapping() error = %v", err)
		}
		// Same action at equal priority is allowed and exercises the
		// seq-ordered scan deterministically.
		if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "button", Action: "jump", Priority: 5, Threshold: threshold(0.5)}); err != nil {
			t.Fatalf("CreateMapping() error = %v", err)
		}

		result := m.Evaluate(record("ctrl-1",
			sampler.Sample{Channel: "button", Value: sampler.BoolValue(true)}))
		if len(result.Actions) != 1 {
			t.Fatalf("run %d: actions = %v, want one", run, actions(result))
		}
		first := m.Rules()[0]
		if result.Actions[0].RuleHandle != first.Handle {
			t.Errorf("run %d: fired %s, want first-registered %s",
				run, result.Actions[0].RuleHandle, first.Handle)
		}
	}
}

func TestMatrix_Evaluate_Dedup(t *testing.T) {
	ctx := context.Background()
	m := NewMatrix(testCapabilities(), nil, nil)

	// Two channels both mapped to the same action.
	if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "trigger", Action: "grab", Priority: 1, Threshold: threshold(0.5)}); err != nil {
		t.Fatalf("CreateMapping() error = %v", err)
	}
	if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "button", Action: "grab", Priority: 1}); err != nil {
		t.Fatalf("CreateMapping() error = %v", err)
	}

	result := m.Evaluate(record("ctrl-1",
		sampler.Sample{Channel: "trigger", Value: sampler.ScalarValue(0.9)},
		sampler.Sample{Channel: "button", Value: sampler.BoolValue(true)},
	))
	if got := actions(result); len(got) != 1 || got[0] != "grab" {
		t.Errorf("actions = %v, want [grab] deduplicated", got)
	}
}

func TestMatrix_Evaluate_ModeEnablement(t *testing.T) {
	ctx := context.Background()
	m := NewMatrix(testCapabilities(), nil, nil)

	if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "button", Action: "teleport", Priority: 10, Mode: "game"}); err != nil {
		t.Fatalf("CreateMapping() error = %v", err)
	}
	if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "button", Action: "menu_select", Priority: 5}); err != nil {
		t.Fatalf("CreateMapping() error = %v", err)
	}

	sample := sampler.Sample{Channel: "button", Value: sampler.BoolValue(true)}

	// Default mode: the game rule is disabled, lower priority fires.
	result := m.Evaluate(record("ctrl-1", sample))
	if got := actions(result); len(got) != 1 || got[0] != "menu_select" {
		t.Errorf("default mode actions = %v, want [menu_select]", got)
	}

	m.SetMode("game")
	result = m.Evaluate(record("ctrl-1", sample))
	if got := actions(result); len(got) != 1 || got[0] != "teleport" {
		t.Errorf("game mode actions = %v, want [teleport]", got)
	}
}

func TestMatrix_Evaluate_VectorMagnitude(t *testing.T) {
	ctx := context.Background()
	m := NewMatrix(testCapabilities(), nil, nil)

	if _, err := m.CreateMapping(ctx, RuleSpec{
		Channel: "thumbstick", Action: "move", Priority: 1, Threshold: threshold(0.5),
	}); err != nil {
		t.Fatalf("CreateMapping() error = %v", err)
	}

	deflected := m.Evaluate(record("ctrl-1",
		sampler.Sample{Channel: "thumbstick", Value: sampler.Vec2Value(0.6, 0.6)}))
	if got := actions(deflected); len(got) != 1 || got[0] != "move" {
		t.Errorf("actions = %v, want [move]", got)
	}

	centered := m.Evaluate(record("ctrl-1",
		sampler.Sample{Channel: "thumbstick", Value: sampler.Vec2Value(0.1, 0.1)}))
	if len(centered.Actions) != 0 {
		t.Errorf("actions = %v, want empty", actions(centered))
	}
}

func TestMatrix_Evaluate_PartialFailure(t *testing.T) {
	ctx := context.Background()
	reporter := &eventCollector{}
	m := NewMatrix(testCapabilities(), nil, reporter)

	if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "button", Action: "jump", Priority: 1}); err != nil {
		t.Fatalf("CreateMapping() error = %v", err)
	}

	corrupt := sampler.Sample{
		Channel: "thumbstick",
		Value:   sampler.Value{Kind: device.ValueVec3, Vec: []float64{1}},
	}
	good := sampler.Sample{Channel: "button", Value: sampler.BoolValue(true)}

	result := m.Evaluate(record("ctrl-1", corrupt, good))

	// Corrupt sample reported, good sample still evaluated.
	if result.InvalidSamples != 1 {
		t.Errorf("InvalidSamples = %d, want 1", result.InvalidSamples)
	}
	if got := actions(result); len(got) != 1 || got[0] != "jump" {
		t.Errorf("actions = %v, want [jump]", got)
	}
	if reporter.countKind(status.KindInvalidSample) != 1 {
		t.Error("invalid sample was not reported")
	}
}

func TestMatrix_Evaluate_EmptyMatrix(t *testing.T) {
	m := NewMatrix(testCapabilities(), nil, nil)

	if m.State() != StateEmpty {
		t.Fatalf("State() = %q, want empty", m.State())
	}

	result := m.Evaluate(record("ctrl-1",
		sampler.Sample{Channel: "trigger", Value: sampler.ScalarValue(1)}))
	if len(result.Actions) != 0 {
		t.Errorf("actions = %v, want empty", actions(result))
	}
	if m.State() != StateActive {
		t.Errorf("State() = %q, want active after evaluation", m.State())
	}
}

func TestMatrix_Evaluate_UnmappedChannelIgnored(t *testing.T) {
	ctx := context.Background()
	m := NewMatrix(testCapabilities(), nil, nil)

	if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "button", Action: "jump", Priority: 1}); err != nil {
		t.Fatalf("CreateMapping() error = %v", err)
	}

	result := m.Evaluate(record("ctrl-1",
		sampler.Sample{Channel: "trigger", Value: sampler.ScalarValue(1)}))
	if len(result.Actions) != 0 || result.InvalidSamples != 0 {
		t.Errorf("result = %+v, want empty and no invalid samples", result)
	}
}

func TestMatrix_RemoveMapping(t *testing.T) {
	ctx := context.Background()
	m := NewMatrix(testCapabilities(), nil, nil)

	handle, err := m.CreateMapping(ctx, RuleSpec{Channel: "button", Action: "jump", Priority: 1})
	if err != nil {
		t.Fatalf("CreateMapping() error = %v", err)
	}

	if err := m.RemoveMapping(ctx, handle); err != nil {
		t.Fatalf("RemoveMapping() error = %v", err)
	}
	if len(m.Rules()) != 0 {
		t.Error("rule still installed after removal")
	}

	// Idempotent: second removal is a no-op.
	if err := m.RemoveMapping(ctx, handle); err != nil {
		t.Errorf("second RemoveMapping() error = %v, want nil", err)
	}

	result := m.Evaluate(record("ctrl-1",
		sampler.Sample{Channel: "button", Value: sampler.BoolValue(true)}))
	if len(result.Actions) != 0 {
		t.Errorf("removed rule still fires: %v", actions(result))
	}
}

func TestMatrix_ConcurrentEvaluationDuringMutation(t *testing.T) {
	ctx := context.Background()
	m := NewMatrix(testCapabilities(), nil, nil)

	if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "trigger", Action: "grab", Priority: 1, Threshold: threshold(0.5)}); err != nil {
		t.Fatalf("CreateMapping() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			handle, err := m.CreateMapping(ctx, RuleSpec{Channel: "button", Action: "jump", Priority: i + 100})
			if err != nil {
				t.Errorf("CreateMapping() error = %v", err)
				return
			}
			if err := m.RemoveMapping(ctx, handle); err != nil {
				t.Errorf("RemoveMapping() error = %v", err)
				return
			}
		}
	}()

	rec := record("ctrl-1", sampler.Sample{Channel: "trigger", Value: sampler.ScalarValue(0.9)})
	for {
		select {
		case <-done:
			return
		default:
			result := m.Evaluate(rec)
			if got := actions(result); len(got) != 1 || got[0] != "grab" {
				t.Fatalf("actions = %v, want [grab] against every snapshot", got)
			}
		}
	}
}

func setupMappingDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE mappings (
			handle TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			channel TEXT NOT NULL,
			action TEXT NOT NULL,
			priority INTEGER NOT NULL,
			predicate TEXT NOT NULL,
			mode TEXT,
			created_at TEXT NOT NULL
		);`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return db
}

func TestMatrix_PersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := setupMappingDB(t)
	repo := NewSQLiteRepository(db)

	m := NewMatrix(testCapabilities(), repo, nil)
	if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "trigger", Action: "grab", Priority: 1, Threshold: threshold(0.5)}); err != nil {
		t.Fatalf("CreateMapping() error = %v", err)
	}
	if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "button", Action: "teleport", Priority: 10, Mode: "game"}); err != nil {
		t.Fatalf("CreateMapping() error = %v", err)
	}

	// Fresh matrix, same database: simulates a restart.
	restarted := NewMatrix(testCapabilities(), repo, nil)
	rules, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	restarted.Load(rules)

	got := restarted.Rules()
	if len(got) != 2 {
		t.Fatalf("len(Rules()) = %d, want 2", len(got))
	}
	if got[0].Action != "grab" || got[1].Action != "teleport" {
		t.Errorf("creation order lost: %v", got)
	}
	if got[0].Predicate.Threshold == nil || *got[0].Predicate.Threshold != 0.5 {
		t.Errorf("threshold lost: %+v", got[0].Predicate)
	}
	if got[1].Mode != "game" {
		t.Errorf("mode lost: %q", got[1].Mode)
	}

	// Sequence counter continues past loaded rules.
	if _, err := restarted.CreateMapping(ctx, RuleSpec{Channel: "thumbstick", Action: "move", Priority: 1}); err != nil {
		t.Fatalf("CreateMapping() after Load error = %v", err)
	}
	rules = restarted.Rules()
	if rules[2].Seq <= rules[1].Seq {
		t.Errorf("seq did not advance past loaded rules: %d then %d", rules[1].Seq, rules[2].Seq)
	}

	result := restarted.Evaluate(record("ctrl-1",
		sampler.Sample{Channel: "trigger", Value: sampler.ScalarValue(0.8)}))
	if got := actions(result); len(got) != 1 || got[0] != "grab" {
		t.Errorf("actions after reload = %v, want [grab]", got)
	}
}

func BenchmarkMatrix_Evaluate(b *testing.B) {
	ctx := context.Background()
	m := NewMatrix(testCapabilities(), nil, nil)

	if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "trigger", Action: "grab", Priority: 1, Threshold: threshold(0.5)}); err != nil {
		b.Fatalf("CreateMapping() error = %v", err)
	}
	if _, err := m.CreateMapping(ctx, RuleSpec{Channel: "button", Action: "teleport", Priority: 10}); err != nil {
		b.Fatalf("CreateMapping() error = %v", err)
	}

	rec := record("ctrl-1",
		sampler.Sample{Channel: "trigger", Value: sampler.ScalarValue(0.8)},
		sampler.Sample{Channel: "button", Value: sampler.BoolValue(true)},
	)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Evaluate(rec)
	}
}
