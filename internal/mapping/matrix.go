package mapping

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MSandovalPhD/lisu-core/internal/sampler"
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

// CapabilityChecker validates rule channels against registered devices.
// Implemented by device.Registry.
type CapabilityChecker interface {
	HasCapability(channel string) bool
}

// Reporter is the sink for conflict and invalid-sample events.
type Reporter interface {
	Report(e status.Event)
}

// Sink receives evaluated action results, e.g. a WebSocket hub or an MQTT
// publisher.
type Sink interface {
	PublishActions(result ActionResult)
}

// ruleTable is an immutable snapshot of the rule set. Candidate lists are
// kept sorted by descending priority, then ascending creation order, so
// evaluation takes the first satisfied rule without re-sorting.
type ruleTable struct {
	byChannel map[string][]*Rule
	byHandle  map[string]*Rule
}

func emptyTable() *ruleTable {
	return &ruleTable{
		byChannel: make(map[string][]*Rule),
		byHandle:  make(map[string]*Rule),
	}
}

// clone copies the table maps; the immutable *Rule values are shared.
func (t *ruleTable) clone() *ruleTable {
	next := &ruleTable{
		byChannel: make(map[string][]*Rule, len(t.byChannel)),
		byHandle:  make(map[string]*Rule, len(t.byHandle)),
	}
	for ch, rules := range t.byChannel {
		next.byChannel[ch] = append([]*Rule(nil), rules...)
	}
	for h, r := range t.byHandle {
		next.byHandle[h] = r
	}
	return next
}

// Matrix holds the input-to-action rule set and evaluates sample records
// against it.
//
// The rule table is read-mostly: mutations copy the table and publish the
// new snapshot atomically, so evaluations at kHz polling rates run against
// a consistent pre-mutation snapshot without taking any lock.
type Matrix struct {
	capabilities CapabilityChecker
	repo         Repository
	reporter     Reporter

	table atomic.Pointer[ruleTable]

	// writeMu serializes mutations only; ProcessInput never takes it.
	writeMu sync.Mutex
	nextSeq uint64

	mode atomic.Pointer[string]

	configured atomic.Bool
	active     atomic.Bool

	sinkMu sync.RWMutex
	sinks  []Sink

	logger Logger
}

// NewMatrix creates a matrix. repo and reporter may be nil.
func NewMatrix(capabilities CapabilityChecker, repo Repository, reporter Reporter) *Matrix {
	m := &Matrix{
		capabilities: capabilities,
		repo:         repo,
		reporter:     reporter,
		logger:       noopLogger{},
	}
	m.table.Store(emptyTable())
	mode := ""
	m.mode.Store(&mode)
	return m
}

// SetLogger configures structured logging.
func (m *Matrix) SetLogger(logger Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// AddSink registers an action result consumer.
func (m *Matrix) AddSink(sink Sink) {
	m.sinkMu.Lock()
	defer m.sinkMu.Unlock()
	m.sinks = append(m.sinks, sink)
}

// SetMode switches the active enablement mode. Rules with an empty mode
// are always enabled; others only while their mode is current.
func (m *Matrix) SetMode(mode string) {
	m.mode.Store(&mode)
	m.logger.Info("mode switched", "mode", mode)
}

// Mode returns the current enablement mode.
func (m *Matrix) Mode() string {
	return *m.mode.Load()
}

// State reports the matrix lifecycle for diagnostics: empty on
// construction, configured after the first successful CreateMapping,
// active once ProcessInput has run.
func (m *Matrix) State() State {
	switch {
	case m.active.Load():
		return StateActive
	case m.configured.Load():
		return StateConfigured
	default:
		return StateEmpty
	}
}

// CreateMapping validates and installs one rule, returning its handle.
//
// Validation is fail-fast: the channel must be producible by a registered
// device (ErrUnknownChannel), and the rule must not make any channel
// ambiguous at equal priority for the same mode (ErrMappingConflict).
// Conflicts are also forwarded to the status reporter.
func (m *Matrix) CreateMapping(ctx context.Context, spec RuleSpec) (string, error) {
	if spec.Channel == "" || spec.Action == "" {
		return "", fmt.Errorf("%w: channel and action are required", ErrInvalidRule)
	}
	if m.capabilities != nil && !m.capabilities.HasCapability(spec.Channel) {
		return "", fmt.Errorf("%w: %q", ErrUnknownChannel, spec.Channel)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	table := m.table.Load()
	for _, existing := range table.byChannel[spec.Channel] {
		if existing.Priority == spec.Priority &&
			existing.Action != spec.Action &&
			existing.Mode == spec.Mode {
			err := fmt.Errorf("%w: channel %q priority %d already maps to %q",
				ErrMappingConflict, spec.Channel, spec.Priority, existing.Action)
			m.report(status.Event{
				Kind:     status.KindMappingConflict,
				Severity: status.SeverityWarning,
				Message:  err.Error(),
				Details: map[string]any{
					"channel":        spec.Channel,
					"priority":       spec.Priority,
					"action":         spec.Action,
					"existingAction": existing.Action,
				},
			})
			return "", err
		}
	}

	m.nextSeq++
	rule := &Rule{
		Handle:    uuid.New().String(),
		Channel:   spec.Channel,
		Action:    spec.Action,
		Priority:  spec.Priority,
		Mode:      spec.Mode,
		Seq:       m.nextSeq,
		CreatedAt: time.Now().UTC(),
	}
	if spec.Threshold != nil {
		threshold := *spec.Threshold
		rule.Predicate.Threshold = &threshold
	}

	if m.repo != nil {
		if err := m.repo.Insert(ctx, rule); err != nil {
			m.nextSeq--
			return "", fmt.Errorf("persisting rule: %w", err)
		}
	}

	next := table.clone()
	next.byHandle[rule.Handle] = rule
	next.byChannel[rule.Channel] = insertSorted(next.byChannel[rule.Channel], rule)
	m.table.Store(next)
	m.configured.Store(true)

	m.logger.Info("mapping created",
		"handle", rule.Handle,
		"channel", rule.Channel,
		"action", rule.Action,
		"priority", rule.Priority,
	)
	return rule.Handle, nil
}

// RemoveMapping uninstalls a rule. Idempotent: removing a nonexistent
// handle is a no-op, not an error.
func (m *Matrix) RemoveMapping(ctx context.Context, handle string) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	table := m.table.Load()
	rule, ok := table.byHandle[handle]
	if !ok {
		return nil
	}

	if m.repo != nil {
		if err := m.repo.Delete(ctx, handle); err != nil {
			return fmt.Errorf("deleting rule: %w", err)
		}
	}

	next := table.clone()
	delete(next.byHandle, handle)
	candidates := next.byChannel[rule.Channel]
	for i, r := range candidates {
		if r.Handle == handle {
			next.byChannel[rule.Channel] = append(candidates[:i:i], candidates[i+1:]...)
			break
		}
	}
	if len(next.byChannel[rule.Channel]) == 0 {
		delete(next.byChannel, rule.Channel)
	}
	m.table.Store(next)

	m.logger.Info("mapping removed", "handle", handle, "channel", rule.Channel)
	return nil
}

// Load replaces the rule set with persisted rules, typically at startup.
func (m *Matrix) Load(rules []Rule) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	next := emptyTable()
	var maxSeq uint64
	for i := range rules {
		rule := rules[i]
		next.byHandle[rule.Handle] = &rule
		next.byChannel[rule.Channel] = insertSorted(next.byChannel[rule.Channel], &rule)
		if rule.Seq > maxSeq {
			maxSeq = rule.Seq
		}
	}
	m.table.Store(next)
	m.nextSeq = maxSeq
	if len(rules) > 0 {
		m.configured.Store(true)
	}
	m.logger.Info("rule table loaded", "rules", len(rules))
}

// Rules returns a snapshot of all installed rules in creation order.
func (m *Matrix) Rules() []Rule {
	table := m.table.Load()
	rules := make([]Rule, 0, len(table.byHandle))
	for _, r := range table.byHandle {
		rules = append(rules, *r)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Seq < rules[j].Seq })
	return rules
}

// Evaluate applies the current rule snapshot to one record and returns the
// deduplicated action set.
//
// Per sample: the candidate rules for its channel are scanned in priority
// order and the first enabled, satisfied rule fires. Samples on channels
// without rules are ignored. Malformed samples are reported as
// invalid-sample events and skipped; the rest of the batch still
// evaluates (partial-failure semantics).
func (m *Matrix) Evaluate(record sampler.Record) ActionResult {
	m.active.Store(true)

	table := m.table.Load()
	mode := m.Mode()

	result := ActionResult{
		ControllerID: record.ControllerID,
		EvaluatedAt:  time.Now().UTC(),
	}
	seen := make(map[string]struct{})

	for i := range record.Samples {
		sample := &record.Samples[i]

		if sample.ControllerID == "" || !sample.Value.WellFormed() {
			result.InvalidSamples++
			m.report(status.Event{
				Kind:         status.KindInvalidSample,
				Severity:     status.SeverityWarning,
				ControllerID: record.ControllerID,
				Message:      "malformed sample skipped",
				Details: map[string]any{
					"channel":   sample.Channel,
					"valueKind": string(sample.Value.Kind),
				},
			})
			continue
		}

		candidates := table.byChannel[sample.Channel]
		for _, rule := range candidates {
			if !rule.enabledIn(mode) {
				continue
			}
			if !rule.Predicate.Satisfied(sample.Value) {
				continue
			}
			// Highest priority satisfied rule wins; candidates are
			// pre-sorted so this is the first hit.
			if _, dup := seen[rule.Action]; !dup {
				seen[rule.Action] = struct{}{}
				result.Actions = append(result.Actions, TriggeredAction{
					Action:     rule.Action,
					RuleHandle: rule.Handle,
					Channel:    rule.Channel,
					Priority:   rule.Priority,
				})
			}
			break
		}
	}
	return result
}

// ProcessInput evaluates a record and publishes the result to all sinks.
// It satisfies the sampler's evaluator contract and never blocks on rule
// mutations.
func (m *Matrix) ProcessInput(_ context.Context, record sampler.Record) {
	result := m.Evaluate(record)

	m.sinkMu.RLock()
	sinks := m.sinks
	m.sinkMu.RUnlock()
	for _, sink := range sinks {
		sink.PublishActions(result)
	}

	if len(result.Actions) > 0 {
		m.logger.Debug("actions triggered",
			"controller_id", record.ControllerID,
			"count", len(result.Actions),
		)
	}
}

// insertSorted places a rule into a candidate list keeping descending
// priority order with ascending creation order inside equal priorities.
func insertSorted(rules []*Rule, rule *Rule) []*Rule {
	idx := sort.Search(len(rules), func(i int) bool {
		if rules[i].Priority != rule.Priority {
			return rules[i].Priority < rule.Priority
		}
		return rules[i].Seq > rule.Seq
	})
	rules = append(rules, nil)
	copy(rules[idx+1:], rules[idx:])
	rules[idx] = rule
	return rules
}

func (m *Matrix) report(e status.Event) {
	if m.reporter != nil {
		m.reporter.Report(e)
	}
}
