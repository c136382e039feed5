package report

import (
	"sort"

	"go.uber.org/zap"

	"github.com/ppiankov/hazardwatch/internal/alert"
	"github.com/ppiankov/hazardwatch/internal/audit"
	"github.com/ppiankov/hazardwatch/internal/fuzzy"
	"github.com/ppiankov/hazardwatch/internal/history"
	"github.com/ppiankov/hazardwatch/internal/monitor"
)

// Alert turns steps into webhook events.
type Alert struct {
	d          *alert.Dispatcher
	cls        *fuzzy.Classifier
	runID      string
	configHash string
}

// NewAlert dispatches through d. cls ranks labels for severity.
func NewAlert(d *alert.Dispatcher, cls *fuzzy.Classifier, runID, configHash string) *Alert {
	return &Alert{d: d, cls: cls, runID: runID, configHash: configHash}
}

// Report implements monitor.Reporter. Delivery is asynchronous.
func (a *Alert) Report(s monitor.Step) {
	if a.d == nil {
		return
	}
	severity := -1
	if a.cls != nil {
		severity = a.cls.Severity(s.Decision.Label)
	}
	a.d.Dispatch(alert.AlertEvent{
		Timestamp:   s.At.UTC().Format(audit.TimestampFormat),
		RunID:       a.runID,
		Step:        s.Index,
		Label:       string(s.Decision.Label),
		Severity:    severity,
		Probability: s.Probability,
		Alarm:       s.Alarm,
		Evidence:    s.Evidence.ToMap(),
		ConfigHash:  a.configHash,
	})
}

// Wait blocks until in-flight deliveries finish.
func (a *Alert) Wait() {
	if a.d != nil {
		a.d.Wait()
	}
}

// Audit appends every step to a hash-chained log.
type Audit struct {
	log        *audit.Log
	runID      string
	configHash string
	logger     *zap.Logger
}

// NewAudit records to l. Write failures are logged.
func NewAudit(l *audit.Log, runID, configHash string, logger *zap.Logger) *Audit {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Audit{log: l, runID: runID, configHash: configHash, logger: logger}
}

// Report implements monitor.Reporter.
func (a *Audit) Report(s monitor.Step) {
	if err := a.log.Record(AuditEntry(s, a.runID, a.configHash)); err != nil {
		a.logger.Error("audit write failed", zap.Int("step", s.Index), zap.Error(err))
	}
}

// AuditEntry converts a step to an audit record. Evidence and memberships
// are emitted as sorted slices so the hashed bytes are reproducible.
func AuditEntry(s monitor.Step, runID, configHash string) audit.AuditEntry {
	ev := s.Evidence.ToMap()
	names := make([]string, 0, len(ev))
	for name := range ev {
		names = append(names, name)
	}
	sort.Strings(names)
	fields := make([]audit.EvidenceField, 0, len(names))
	for _, name := range names {
		fields = append(fields, audit.EvidenceField{Variable: name, State: ev[name]})
	}

	mems := make([]audit.MembershipField, 0, len(s.Decision.Memberships))
	for _, m := range s.Decision.Memberships {
		mems = append(mems, audit.MembershipField{Label: string(m.Label), Degree: m.Degree})
	}

	return audit.AuditEntry{
		Timestamp:   s.At.UTC().Format(audit.TimestampFormat),
		RunID:       runID,
		Step:        s.Index,
		Evidence:    fields,
		Raw:         s.Raw,
		Probability: s.Probability,
		Label:       string(s.Decision.Label),
		Memberships: mems,
		Alarm:       s.Alarm,
		ConfigHash:  configHash,
	}
}

// Store persists every step to the history database.
type Store struct {
	store  *history.Store
	runID  string
	logger *zap.Logger
}

// NewStore records under runID, which must come from store.CreateRun.
func NewStore(store *history.Store, runID string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{store: store, runID: runID, logger: logger}
}

// Report implements monitor.Reporter.
func (st *Store) Report(s monitor.Step) {
	mems := make(map[string]float64, len(s.Decision.Memberships))
	for _, m := range s.Decision.Memberships {
		mems[string(m.Label)] = m.Degree
	}
	err := st.store.RecordStep(history.StepRecord{
		RunID:       st.runID,
		Index:       s.Index,
		At:          s.At,
		Evidence:    s.Evidence.ToMap(),
		Raw:         s.Raw,
		Probability: s.Probability,
		Label:       string(s.Decision.Label),
		Memberships: mems,
		Alarm:       s.Alarm,
	})
	if err != nil {
		st.logger.Error("history write failed", zap.Int("step", s.Index), zap.Error(err))
	}
}
