package core

import "encoding/json"

// ActionKind tags an action variant.
type ActionKind string

const (
	KindSuppressIssuer ActionKind = "suppress_issuer"
	KindSuppressMethod ActionKind = "suppress_method"
	KindAdjustRetry    ActionKind = "adjust_retry"
	KindRerouteTraffic ActionKind = "reroute_traffic"
	KindAlertOps       ActionKind = "alert_ops"
	KindRollback       ActionKind = "rollback"
)

// Tier is the approval level assigned to a candidate action by guardrail
// policy, in increasing order of caution.
type Tier string

const (
	TierAutonomous Tier = "AUTONOMOUS"
	TierGuarded    Tier = "GUARDED"
	TierHumanGate  Tier = "HUMAN_GATE"
	TierBlocked    Tier = "BLOCKED"
)

// ActionStatus is the execution status recorded for an action.
type ActionStatus string

const (
	StatusActive          ActionStatus = "active"
	StatusSent            ActionStatus = "sent"
	StatusExecuted        ActionStatus = "executed"
	StatusPendingApproval ActionStatus = "pending_approval"
	StatusFailed          ActionStatus = "failed"
)

// Action is the closed set of remediation action variants. The guardrail
// evaluator and executor switch over it exhaustively; UnknownAction exists
// so unparseable provider output still flows through the same paths.
type Action interface {
	Kind() ActionKind
	isAction()
}

// SuppressIssuer takes an issuer out of routing for a bounded duration.
type SuppressIssuer struct {
	Issuer     string `json:"issuer"`
	DurationMS int64  `json:"duration"`
	Reason     string `json:"reason"`
}

func (SuppressIssuer) Kind() ActionKind { return KindSuppressIssuer }
func (SuppressIssuer) isAction()        {}

// SuppressMethod takes a payment method out of routing for a bounded duration.
type SuppressMethod struct {
	Method     string `json:"method"`
	DurationMS int64  `json:"duration"`
	Reason     string `json:"reason"`
}

func (SuppressMethod) Kind() ActionKind { return KindSuppressMethod }
func (SuppressMethod) isAction()        {}

// AdjustRetry proposes a new retry budget for a merchant or issuer.
type AdjustRetry struct {
	Merchant  string `json:"merchant,omitempty"`
	Issuer    string `json:"issuer,omitempty"`
	Current   int    `json:"currentRetryCount"`
	Proposed  int    `json:"proposedRetryCount"`
	Rationale string `json:"rationale,omitempty"`
}

// Target names the entity the adjustment applies to, defaulting to Global.
func (a AdjustRetry) Target() string {
	switch {
	case a.Merchant != "":
		return a.Merchant
	case a.Issuer != "":
		return a.Issuer
	default:
		return "Global"
	}
}

func (AdjustRetry) Kind() ActionKind { return KindAdjustRetry }
func (AdjustRetry) isAction()        {}

// RerouteTraffic shifts a percentage of traffic away from an issuer.
type RerouteTraffic struct {
	FromIssuer string   `json:"fromIssuer"`
	ToIssuers  []string `json:"toIssuers"`
	Percentage int      `json:"percentage"`
}

func (RerouteTraffic) Kind() ActionKind { return KindRerouteTraffic }
func (RerouteTraffic) isAction()        {}

// AlertOps notifies human operators. Always safe to execute.
type AlertOps struct {
	Severity string `json:"severity"` // low | medium | high | critical
	Title    string `json:"title"`
	Body     string `json:"body"`
}

func (AlertOps) Kind() ActionKind { return KindAlertOps }
func (AlertOps) isAction()        {}

// Rollback reverses a previously executed action. Issuer/Method carry the
// entity captured from the original record's details; adjust-retry and alert
// actions have no persisted side effect and are not reversed.
type Rollback struct {
	OriginalActionID string `json:"originalActionId"`
	Issuer           string `json:"issuer,omitempty"`
	Method           string `json:"method,omitempty"`
	Reason           string `json:"reason"`
}

func (Rollback) Kind() ActionKind { return KindRollback }
func (Rollback) isAction()        {}

// UnknownAction carries a provider-emitted action whose type tag is not in
// the closed set. Guardrails always block it; executing it directly yields a
// failed record.
type UnknownAction struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"raw,omitempty"`
}

func (u UnknownAction) Kind() ActionKind { return ActionKind(u.Type) }
func (UnknownAction) isAction()          {}

// ActionDetails is the structured detail payload frozen into a record.
// Fields are populated per action kind; Message is always set.
type ActionDetails struct {
	Issuer           string   `json:"issuer,omitempty"`
	Method           string   `json:"method,omitempty"`
	Reason           string   `json:"reason,omitempty"`
	DurationMS       int64    `json:"duration,omitempty"`
	ExpiresAt        int64    `json:"expiresAt,omitempty"`
	Target           string   `json:"target,omitempty"`
	PrevRetries      int      `json:"prev,omitempty"`
	NextRetries      int      `json:"next,omitempty"`
	FromIssuer       string   `json:"from,omitempty"`
	ToIssuers        []string `json:"to,omitempty"`
	Percentage       int      `json:"pct,omitempty"`
	Severity         string   `json:"severity,omitempty"`
	Title            string   `json:"title,omitempty"`
	Body             string   `json:"body,omitempty"`
	OriginalActionID string   `json:"originalActionId,omitempty"`
	Deduplicated     bool     `json:"deduplicated,omitempty"`
	Error            string   `json:"error,omitempty"`
	Message          string   `json:"message"`
}

// ActionRecord is the immutable log entry produced by executing (or queuing)
// an action. Once logged, only the Evaluated flag may change, and only
// through the memory store.
type ActionRecord struct {
	ID         string        `json:"actionId"`
	Kind       ActionKind    `json:"type"`
	Status     ActionStatus  `json:"status"`
	Tier       Tier          `json:"tier"`
	ExecutedAt int64         `json:"executedAt"`
	Details    ActionDetails `json:"details"`
	Evaluated  bool          `json:"evaluated,omitempty"`
}
