package memory

import (
	"sync"
	"time"

	"github.com/meshpay/payops-agent/core"
)

// Capacities and windows for the store's bounded collections.
const (
	BufferCap     = 600
	PatternLogCap = 200
	ActionLogCap  = 100

	WindowMS             = 60_000
	DefaultSuppressionMS = 300_000
)

// Store is the single source of truth for the controller: the rolling event
// buffer, cumulative per-entity profiles, the suppression registry, and the
// bounded pattern/action/outcome logs. It behaves as a monitor: every method
// takes the store mutex, so all reads and writes are linearizable with
// respect to each other. Methods return copies; callers never see internal
// slices or maps.
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	buffer         []core.TransactionEvent
	issuerProfiles map[string]*core.EntityProfile
	methodProfiles map[string]*core.EntityProfile

	issuerSupp map[string]core.Suppression
	methodSupp map[string]core.Suppression

	patternLog []core.Pattern
	actionLog  []*core.ActionRecord
	outcomeLog []core.Outcome
}

// Option configures the store.
type Option func(*Store)

// WithNow overrides the store's clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:            time.Now,
		issuerProfiles: make(map[string]*core.EntityProfile),
		methodProfiles: make(map[string]*core.EntityProfile),
		issuerSupp:     make(map[string]core.Suppression),
		methodSupp:     make(map[string]core.Suppression),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) nowMS() int64 {
	return s.now().UnixMilli()
}

// Ingest appends events in order, folds them into both profile maps, then
// truncates the buffer to its most recent BufferCap entries. Never fails.
func (s *Store) Ingest(events []core.TransactionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		s.buffer = append(s.buffer, e)

		ip, ok := s.issuerProfiles[e.Issuer]
		if !ok {
			ip = core.NewEntityProfile()
			s.issuerProfiles[e.Issuer] = ip
		}
		ip.Observe(e)

		mp, ok := s.methodProfiles[e.Method]
		if !ok {
			mp = core.NewEntityProfile()
			s.methodProfiles[e.Method] = mp
		}
		mp.Observe(e)
	}

	if excess := len(s.buffer) - BufferCap; excess > 0 {
		s.buffer = append(s.buffer[:0], s.buffer[excess:]...)
	}
}

// Buffer returns a copy of the full event buffer, oldest first.
func (s *Store) Buffer() []core.TransactionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.TransactionEvent, len(s.buffer))
	copy(out, s.buffer)
	return out
}

// Windowed returns buffered events with timestamp >= now - durationMS, in
// original order.
func (s *Store) Windowed(durationMS int64) []core.TransactionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windowedLocked(durationMS)
}

func (s *Store) windowedLocked(durationMS int64) []core.TransactionEvent {
	cutoff := s.nowMS() - durationMS
	var out []core.TransactionEvent
	for _, e := range s.buffer {
		if e.Timestamp >= cutoff {
			out = append(out, e)
		}
	}
	return out
}

// IssuerProfile returns a copy of the cumulative profile for an issuer, or
// false if the issuer has never been observed.
func (s *Store) IssuerProfile(issuer string) (core.EntityProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyProfile(s.issuerProfiles[issuer])
}

// MethodProfile returns a copy of the cumulative profile for a method.
func (s *Store) MethodProfile(method string) (core.EntityProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyProfile(s.methodProfiles[method])
}

func copyProfile(p *core.EntityProfile) (core.EntityProfile, bool) {
	if p == nil {
		return core.EntityProfile{}, false
	}
	out := *p
	out.Errors = make(map[string]int, len(p.Errors))
	for k, v := range p.Errors {
		out.Errors[k] = v
	}
	return out, true
}

// RecordPattern appends a pattern to the bounded pattern log, stamping its
// detection time.
func (s *Store) RecordPattern(p core.Pattern) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.DetectedAt = s.nowMS()
	s.patternLog = append(s.patternLog, p)
	if len(s.patternLog) > PatternLogCap {
		s.patternLog = append(s.patternLog[:0], s.patternLog[len(s.patternLog)-PatternLogCap:]...)
	}
}

// RecentPatterns returns up to n most recent logged patterns, oldest first.
func (s *Store) RecentPatterns(n int) []core.Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tail(s.patternLog, n)
}

// RecordAction appends an action record to the bounded action log. If the
// record carries no execution timestamp it is stamped with the current time.
func (s *Store) RecordAction(rec core.ActionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ExecutedAt == 0 {
		rec.ExecutedAt = s.nowMS()
	}
	r := rec
	s.actionLog = append(s.actionLog, &r)
	if len(s.actionLog) > ActionLogCap {
		s.actionLog = append(s.actionLog[:0], s.actionLog[len(s.actionLog)-ActionLogCap:]...)
	}
}

// RecentActions returns copies of up to n most recent action records,
// oldest first.
func (s *Store) RecentActions(n int) []core.ActionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := tail(s.actionLog, n)
	out := make([]core.ActionRecord, len(recs))
	for i, r := range recs {
		out[i] = *r
	}
	return out
}

// ActiveActions returns copies of all logged records still in active status.
func (s *Store) ActiveActions() []core.ActionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.ActionRecord
	for _, r := range s.actionLog {
		if r.Status == core.StatusActive {
			out = append(out, *r)
		}
	}
	return out
}

// MarkActionEvaluated sets the one mutable flag on a logged record. Returns
// false if no record with the given ID is in the log.
func (s *Store) MarkActionEvaluated(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.actionLog {
		if r.ID == id {
			r.Evaluated = true
			return true
		}
	}
	return false
}

// RecordOutcome appends to the outcome log, stamping the evaluation time.
// The outcome log is never truncated; it grows one entry per evaluated
// action, at most one per record in the capped action log.
func (s *Store) RecordOutcome(o core.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o.EvaluatedAt = s.nowMS()
	s.outcomeLog = append(s.outcomeLog, o)
}

// RecentOutcomes returns up to n most recent outcomes, oldest first.
func (s *Store) RecentOutcomes(n int) []core.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tail(s.outcomeLog, n)
}

func tail[T any](log []T, n int) []T {
	if n <= 0 || len(log) == 0 {
		return nil
	}
	if n > len(log) {
		n = len(log)
	}
	out := make([]T, n)
	copy(out, log[len(log)-n:])
	return out
}
