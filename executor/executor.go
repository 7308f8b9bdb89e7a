// Package executor applies approved remediation actions to the memory store
// and freezes each application into an immutable action record. Execution is
// append-only: re-invoking an action always creates a new record, never
// rewrites history.
package executor

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/meshpay/payops-agent/core"
	"github.com/meshpay/payops-agent/memory"
)

// DefaultAlertCooldown is how long an identical ops alert is considered a
// duplicate of the previous one.
const DefaultAlertCooldown = 5 * time.Minute

// Executor turns approved actions into memory-store mutations and records.
// It owns the action identifier counter; independent executors number their
// records independently.
type Executor struct {
	store    *memory.Store
	now      func() time.Time
	cooldown time.Duration

	mu     sync.Mutex
	nextID int

	alerts *ristretto.Cache
}

// Option configures the executor.
type Option func(*Executor)

// WithNow overrides the executor's clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(e *Executor) {
		e.now = now
	}
}

// WithAlertCooldown sets the window within which repeated identical alerts
// are marked as duplicates.
func WithAlertCooldown(d time.Duration) Option {
	return func(e *Executor) {
		e.cooldown = d
	}
}

// New creates an executor bound to a store.
func New(store *memory.Store, opts ...Option) *Executor {
	e := &Executor{
		store:    store,
		now:      time.Now,
		cooldown: DefaultAlertCooldown,
		nextID:   1000,
	}
	for _, opt := range opts {
		opt(e)
	}

	// Small TTL cache for alert dedup. Failure to build it only disables
	// dedup, never execution.
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		log.Printf("[EXECUTOR] alert dedup cache unavailable: %v", err)
	} else {
		e.alerts = cache
	}
	return e
}

func (e *Executor) newID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	return fmt.Sprintf("ACT-%d", e.nextID)
}

// Execute applies the action under the given approval tier, logs the
// resulting record to the store, and returns it. Unknown action kinds
// produce a failed record rather than an error; nothing here aborts a cycle.
func (e *Executor) Execute(action core.Action, tier core.Tier) core.ActionRecord {
	id := e.newID()
	now := e.now().UnixMilli()

	var rec core.ActionRecord
	switch a := action.(type) {
	case core.SuppressIssuer:
		e.store.SuppressIssuer(a.Issuer, a.Reason, a.DurationMS)
		rec = core.ActionRecord{
			ID: id, Kind: core.KindSuppressIssuer, Status: core.StatusActive, Tier: tier, ExecutedAt: now,
			Details: core.ActionDetails{
				Issuer:     a.Issuer,
				Reason:     a.Reason,
				DurationMS: a.DurationMS,
				ExpiresAt:  now + a.DurationMS,
				Message:    fmt.Sprintf("Suppressed %q for %ds", a.Issuer, a.DurationMS/1000),
			},
		}

	case core.SuppressMethod:
		e.store.SuppressMethod(a.Method, a.Reason, a.DurationMS)
		rec = core.ActionRecord{
			ID: id, Kind: core.KindSuppressMethod, Status: core.StatusActive, Tier: tier, ExecutedAt: now,
			Details: core.ActionDetails{
				Method:     a.Method,
				Reason:     a.Reason,
				DurationMS: a.DurationMS,
				ExpiresAt:  now + a.DurationMS,
				Message:    fmt.Sprintf("Suppressed method %q for %ds", a.Method, a.DurationMS/1000),
			},
		}

	case core.AdjustRetry:
		rec = core.ActionRecord{
			ID: id, Kind: core.KindAdjustRetry, Status: core.StatusActive, Tier: tier, ExecutedAt: now,
			Details: core.ActionDetails{
				Target:      a.Target(),
				PrevRetries: a.Current,
				NextRetries: a.Proposed,
				Reason:      a.Rationale,
				Message:     fmt.Sprintf("Retries: %d->%d (%s)", a.Current, a.Proposed, a.Target()),
			},
		}

	case core.RerouteTraffic:
		rec = core.ActionRecord{
			ID: id, Kind: core.KindRerouteTraffic, Status: core.StatusActive, Tier: tier, ExecutedAt: now,
			Details: core.ActionDetails{
				FromIssuer: a.FromIssuer,
				ToIssuers:  a.ToIssuers,
				Percentage: a.Percentage,
				Message:    fmt.Sprintf("Reroute %d%% from %q", a.Percentage, a.FromIssuer),
			},
		}

	case core.AlertOps:
		rec = core.ActionRecord{
			ID: id, Kind: core.KindAlertOps, Status: core.StatusSent, Tier: tier, ExecutedAt: now,
			Details: core.ActionDetails{
				Severity:     a.Severity,
				Title:        a.Title,
				Body:         a.Body,
				Deduplicated: e.isDuplicateAlert(a),
				Message:      fmt.Sprintf("[%s] %s", strings.ToUpper(a.Severity), a.Title),
			},
		}

	case core.Rollback:
		if a.Issuer != "" {
			e.store.UnsuppressIssuer(a.Issuer)
		}
		if a.Method != "" {
			e.store.UnsuppressMethod(a.Method)
		}
		rec = core.ActionRecord{
			ID: id, Kind: core.KindRollback, Status: core.StatusExecuted, Tier: core.TierAutonomous, ExecutedAt: now,
			Details: core.ActionDetails{
				OriginalActionID: a.OriginalActionID,
				Issuer:           a.Issuer,
				Method:           a.Method,
				Reason:           a.Reason,
				Message:          fmt.Sprintf("ROLLBACK: %s (%s)", a.OriginalActionID, a.Reason),
			},
		}

	default:
		rec = core.ActionRecord{
			ID: id, Kind: action.Kind(), Status: core.StatusFailed, Tier: tier, ExecutedAt: now,
			Details: core.ActionDetails{
				Error:   "unknown action",
				Message: fmt.Sprintf("Unknown action %q", action.Kind()),
			},
		}
	}

	e.store.RecordAction(rec)
	log.Printf("[EXECUTOR] %s %s: %s", rec.ID, rec.Kind, rec.Details.Message)
	return rec
}

// QueueForApproval logs a pending_approval record for a human-gated action
// without executing it. The record never enters active status, so the
// learning pass ignores it.
func (e *Executor) QueueForApproval(action core.Action, reason string) core.ActionRecord {
	now := e.now().UnixMilli()
	rec := core.ActionRecord{
		ID:         fmt.Sprintf("PENDING-%d", now),
		Kind:       action.Kind(),
		Status:     core.StatusPendingApproval,
		Tier:       core.TierHumanGate,
		ExecutedAt: now,
		Details: core.ActionDetails{
			Reason:  reason,
			Message: fmt.Sprintf("Pending approval: %s", reason),
		},
	}
	if a, ok := action.(core.SuppressIssuer); ok {
		rec.Details.Issuer = a.Issuer
		rec.Details.DurationMS = a.DurationMS
	}
	e.store.RecordAction(rec)
	log.Printf("[EXECUTOR] %s queued for approval: %s", rec.ID, reason)
	return rec
}

// isDuplicateAlert reports whether an identical alert fired within the
// cooldown, and marks this one as the latest.
func (e *Executor) isDuplicateAlert(a core.AlertOps) bool {
	if e.alerts == nil {
		return false
	}
	key := a.Severity + "|" + a.Title
	_, dup := e.alerts.Get(key)
	e.alerts.SetWithTTL(key, struct{}{}, 1, e.cooldown)
	return dup
}
