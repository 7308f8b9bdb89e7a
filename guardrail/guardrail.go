// Package guardrail applies the fixed approval policy to candidate
// remediation actions. Evaluation is a pure transform: it returns a
// normalized copy of the action (durations and retry counts clamped into
// policy bounds) together with the tier decision, and never mutates the
// caller's action or the store.
package guardrail

import (
	"fmt"

	"github.com/meshpay/payops-agent/core"
)

// Policy bounds.
const (
	MaxIssuerSuppressions = 2
	MaxMethodSuppressions = 1

	MinSuppressionMS = 30_000
	MaxSuppressionMS = 600_000

	MinRetryCount     = 1
	MaxRetryCount     = 5
	MaxRetryReduction = 0.5

	// Issuers above this trailing-60s volume need a human in the loop
	// before suppression.
	HumanGateVolume = 100

	volumeWindowMS = 60_000
)

// StateView is the read-only slice of memory-store state the policy needs.
// *memory.Store satisfies it.
type StateView interface {
	Suppressions() core.SuppressionSet
	IsIssuerSuppressed(issuer string) bool
	Windowed(durationMS int64) []core.TransactionEvent
}

// Decision is the outcome of evaluating one action.
type Decision struct {
	Allowed bool
	Tier    core.Tier
	Reason  string
}

func blocked(reason string) Decision {
	return Decision{Allowed: false, Tier: core.TierBlocked, Reason: reason}
}

func approved(tier core.Tier, reason string) Decision {
	return Decision{Allowed: true, Tier: tier, Reason: reason}
}

// Evaluate classifies a proposed action against current suppression state
// and returns the normalized action alongside the decision. The normalized
// action is what must be executed; the input is returned unchanged for
// blocked unknown kinds.
func Evaluate(action core.Action, state StateView) (core.Action, Decision) {
	switch a := action.(type) {
	case core.SuppressIssuer:
		return evaluateSuppressIssuer(a, state)
	case core.SuppressMethod:
		return evaluateSuppressMethod(a, state)
	case core.AdjustRetry:
		return evaluateAdjustRetry(a)
	case core.RerouteTraffic:
		return a, approved(core.TierGuarded, "Traffic reroute approved (guarded, incremental).")
	case core.AlertOps:
		return a, approved(core.TierAutonomous, "Alerting always permitted.")
	case core.Rollback:
		// Rollbacks are reserved for the learning pass; a recommended
		// rollback would let the provider lift suppressions at will.
		return a, blocked("Rollback is issued by outcome evaluation, not recommended directly.")
	default:
		return action, blocked(fmt.Sprintf("Unknown action: %s", action.Kind()))
	}
}

func evaluateSuppressIssuer(a core.SuppressIssuer, state StateView) (core.Action, Decision) {
	supps := state.Suppressions()
	if len(supps.Issuers) >= MaxIssuerSuppressions {
		return a, blocked("Max 2 simultaneous issuer suppressions reached.")
	}
	if state.IsIssuerSuppressed(a.Issuer) {
		return a, blocked(fmt.Sprintf("%s already suppressed.", a.Issuer))
	}

	a.DurationMS = clampDuration(a.DurationMS)

	volume := 0
	for _, e := range state.Windowed(volumeWindowMS) {
		if e.Issuer == a.Issuer {
			volume++
		}
	}
	if volume > HumanGateVolume {
		return a, approved(core.TierHumanGate, fmt.Sprintf("High-volume issuer (%d txns). Requires approval.", volume))
	}
	return a, approved(core.TierGuarded, "Suppression approved with auto-rollback monitoring.")
}

func evaluateSuppressMethod(a core.SuppressMethod, state StateView) (core.Action, Decision) {
	if len(state.Suppressions().Methods) >= MaxMethodSuppressions {
		return a, blocked("Max 1 simultaneous method suppression reached.")
	}
	a.DurationMS = clampDuration(a.DurationMS)
	return a, approved(core.TierGuarded, "Method suppression approved (guarded).")
}

func evaluateAdjustRetry(a core.AdjustRetry) (core.Action, Decision) {
	if a.Proposed == 0 {
		a.Proposed = 2
	}
	a.Proposed = clampInt(a.Proposed, MinRetryCount, MaxRetryCount)
	if a.Current == 0 {
		a.Current = MaxRetryCount
	}
	if a.Current > 0 && float64(a.Current-a.Proposed)/float64(a.Current) > MaxRetryReduction {
		return a, blocked("Retry reduction >50% not allowed in single step.")
	}
	return a, approved(core.TierAutonomous, "Retry adjustment within bounds.")
}

func clampDuration(d int64) int64 {
	if d <= 0 {
		d = 300_000
	}
	if d < MinSuppressionMS {
		return MinSuppressionMS
	}
	if d > MaxSuppressionMS {
		return MaxSuppressionMS
	}
	return d
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
