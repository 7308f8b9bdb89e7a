// Package engine runs the closed remediation loop: snapshot the rolling
// window, detect patterns, ask the provider for a decision, pass every
// proposed action through guardrails, execute what survives, then score
// earlier actions against the metrics they were supposed to improve.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/meshpay/payops-agent/core"
	"github.com/meshpay/payops-agent/detector"
	"github.com/meshpay/payops-agent/executor"
	"github.com/meshpay/payops-agent/guardrail"
	"github.com/meshpay/payops-agent/memory"
	"github.com/meshpay/payops-agent/provider"
	"github.com/meshpay/payops-agent/recall"
)

const (
	// contextOutcomes is how many previous outcomes are shown to the provider.
	contextOutcomes = 5

	// learningBacklog is how many recent actions each cycle re-examines.
	learningBacklog = 8

	// learningCooldownMS is the minimum age before an action is scored.
	// Scoring earlier would measure the pre-action window.
	learningCooldownMS = 35_000

	// Outcome thresholds over the trailing window after an action.
	minHealthySuccessPct = 88.0
	maxHealthyLatencyMS  = 1800.0
)

// Engine wires the store, detector, provider, guardrails and executor into
// one cycle. It holds no per-cycle state; RunCycle may be called from a
// single goroutine at a time.
type Engine struct {
	store    *memory.Store
	provider provider.Provider
	executor *executor.Executor
	recall   recall.Manager
	now      func() time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithRecall attaches a long-term incident memory. Retrieval failures are
// non-fatal; the cycle proceeds without enrichment.
func WithRecall(m recall.Manager) Option {
	return func(e *Engine) {
		e.recall = m
	}
}

// WithNow overrides the engine's clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an engine over a store, provider and executor.
func New(store *memory.Store, p provider.Provider, exec *executor.Executor, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		provider: p,
		executor: exec,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunCycle executes one full observe-decide-act-learn cycle and returns its
// result. The only error it returns is context cancellation; provider
// failures degrade to fallback mode instead of aborting the cycle.
func (e *Engine) RunCycle(ctx context.Context) (*core.CycleResult, error) {
	now := e.now()
	result := &core.CycleResult{
		CycleID: "CYCLE-" + uuid.NewString(),
	}

	// Detect over the rolling window and log what we found.
	events := e.store.Windowed(memory.WindowMS)
	patterns := detector.Detect(events, now)
	for _, p := range patterns {
		e.store.RecordPattern(p)
		log.Printf("[ENGINE] pattern %s (%s): %s", p.Type, p.Severity, p.Hypothesis)
	}
	result.Patterns = patterns

	mc := core.MonitoringContext{
		CurrentMetrics:     e.store.Summarize(),
		DetectedPatterns:   patterns,
		PreviousOutcomes:   e.store.RecentOutcomes(contextOutcomes),
		ActiveSuppressions: e.store.Suppressions(),
	}
	e.enrichFromRecall(ctx, &mc, patterns)

	rec, err := e.provider.Recommend(ctx, mc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[ENGINE] provider unavailable, entering fallback: %v", err)
		rec = fallbackRecommendation(patterns, err)
		result.Fallback = true
	}

	// A recommendation that lands after shutdown must not mutate state.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	result.Reasoning = rec.Reasoning
	result.Confidence = rec.Confidence
	result.DetectedIssues = rec.DetectedIssues
	result.MonitoringNotes = rec.MonitoringNotes
	result.LearningInsight = rec.LearningInsight

	// Guardrail pass. Every recommended action is normalized and tiered;
	// nothing reaches the executor without a decision.
	for _, action := range rec.RecommendedActions {
		normalized, decision := guardrail.Evaluate(action, e.store)
		evaluated := core.EvaluatedAction{Action: normalized, Tier: decision.Tier, Reason: decision.Reason}

		switch {
		case !decision.Allowed:
			log.Printf("[GUARDRAIL] blocked %s: %s", normalized.Kind(), decision.Reason)
			result.Blocked = append(result.Blocked, evaluated)

		case decision.Tier == core.TierHumanGate:
			log.Printf("[GUARDRAIL] human gate for %s: %s", normalized.Kind(), decision.Reason)
			result.HumanGate = append(result.HumanGate, evaluated)
			// Logged as pending, but pending actions never count as executed.
			e.executor.QueueForApproval(normalized, decision.Reason)

		default:
			result.Approved = append(result.Approved, evaluated)
			result.Executed = append(result.Executed, e.executor.Execute(normalized, decision.Tier))
		}
	}

	// Learning pass scores earlier actions and rolls back the harmful ones.
	result.Executed = append(result.Executed, e.evaluateOutcomes(now)...)

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	e.recordIncident(ctx, result, patterns)

	log.Printf("[ENGINE] %s: %d patterns, %d approved, %d blocked, %d gated, fallback=%t",
		result.CycleID, len(result.Patterns), len(result.Approved), len(result.Blocked), len(result.HumanGate), result.Fallback)
	return result, nil
}

// evaluateOutcomes scores recent active actions against the trailing window
// and rolls back those judged negative. Returns any rollback records so the
// cycle result reflects them.
func (e *Engine) evaluateOutcomes(now time.Time) []core.ActionRecord {
	nowMS := now.UnixMilli()
	window := e.store.Windowed(memory.WindowMS)
	if len(window) == 0 {
		return nil
	}

	var failed int
	var latencySum int64
	for _, ev := range window {
		if ev.Failed() {
			failed++
		}
		latencySum += ev.LatencyMS
	}
	successPct := float64(len(window)-failed) / float64(len(window)) * 100
	avgLatency := float64(latencySum) / float64(len(window))

	var rollbacks []core.ActionRecord
	for _, a := range e.store.RecentActions(learningBacklog) {
		if a.Status != core.StatusActive || a.Evaluated {
			continue
		}
		if nowMS-a.ExecutedAt < learningCooldownMS {
			continue
		}

		assessment := core.AssessmentPositive
		if successPct < minHealthySuccessPct || avgLatency > maxHealthyLatencyMS {
			assessment = core.AssessmentNegative
		}

		e.store.RecordOutcome(core.Outcome{
			ActionID:         a.ID,
			ActionKind:       a.Kind,
			SuccessRateAfter: successPct,
			AvgLatencyAfter:  avgLatency,
			Assessment:       assessment,
		})
		e.store.MarkActionEvaluated(a.ID)
		log.Printf("[LEARNING] %s %s assessed %s (success=%.1f%% latency=%.0fms)",
			a.ID, a.Kind, assessment, successPct, avgLatency)

		if assessment == core.AssessmentNegative && reversible(a.Kind) {
			rb := e.executor.Execute(core.Rollback{
				OriginalActionID: a.ID,
				Issuer:           a.Details.Issuer,
				Method:           a.Details.Method,
				Reason:           fmt.Sprintf("negative outcome: success=%.1f%% latency=%.0fms", successPct, avgLatency),
			}, core.TierAutonomous)
			rollbacks = append(rollbacks, rb)
		}
	}
	return rollbacks
}

// reversible reports whether a negative outcome for this kind warrants a
// rollback. Alerts have no state to reverse and rollbacks never cascade.
func reversible(kind core.ActionKind) bool {
	switch kind {
	case core.KindAlertOps, core.KindRollback:
		return false
	default:
		return true
	}
}

func (e *Engine) enrichFromRecall(ctx context.Context, mc *core.MonitoringContext, patterns []core.Pattern) {
	if e.recall == nil || len(patterns) == 0 {
		return
	}
	query := patterns[0].Hypothesis
	past, err := e.recall.Retrieve(ctx, query)
	if err != nil {
		log.Printf("[RECALL] retrieval failed: %v", err)
		return
	}
	mc.PastIncidents = past
}

func (e *Engine) recordIncident(ctx context.Context, result *core.CycleResult, patterns []core.Pattern) {
	if e.recall == nil || len(patterns) == 0 {
		return
	}
	inc := recall.IncidentFromCycle(result, patterns, e.now().UnixMilli())
	if err := e.recall.Record(ctx, inc); err != nil {
		log.Printf("[RECALL] record failed: %v", err)
	}
}
