package engine

import (
	"fmt"

	"github.com/meshpay/payops-agent/core"
)

// fallbackConfidence is the fixed confidence assigned when the provider is
// unavailable and the engine degrades to alert-only operation.
const fallbackConfidence = 0.3

// fallbackRecommendation builds the alert-only recommendation used when the
// provider cannot be reached. Critical patterns become ops alerts; nothing
// that mutates routing state is ever recommended here.
func fallbackRecommendation(patterns []core.Pattern, cause error) *core.Recommendation {
	rec := &core.Recommendation{
		Reasoning:       fmt.Sprintf("LLM unavailable (%v). Raising alerts for critical patterns; no automated interventions.", cause),
		Confidence:      fallbackConfidence,
		MonitoringNotes: "Operating in alert-only fallback mode until LLM recovers.",
		LearningInsight: "N/A (fallback mode)",
	}

	for _, p := range patterns {
		if p.Severity != core.SeverityCritical {
			continue
		}
		rec.DetectedIssues = append(rec.DetectedIssues, p.Hypothesis)
		rec.RecommendedActions = append(rec.RecommendedActions, core.AlertOps{
			Severity: "high",
			Title:    fmt.Sprintf("[Fallback] %s", p.Type),
			Body:     p.Hypothesis,
		})
	}
	return rec
}
