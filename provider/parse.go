package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meshpay/payops-agent/core"
)

// wireRecommendation mirrors the JSON schema the model is asked to emit.
// Actions arrive untyped and are dispatched by their "type" tag.
type wireRecommendation struct {
	Reasoning          string            `json:"reasoning"`
	Confidence         float64           `json:"confidence"`
	DetectedIssues     []string          `json:"detectedIssues"`
	RecommendedActions []json.RawMessage `json:"recommendedActions"`
	MonitoringNotes    string            `json:"monitoringNotes"`
	LearningInsight    string            `json:"learningInsight"`
}

// ParseRecommendation decodes a model response into a Recommendation. Code
// fences around the JSON are tolerated. Actions with an unrecognized type tag
// decode to UnknownAction so the guardrail layer can block them explicitly.
func ParseRecommendation(text string) (*core.Recommendation, error) {
	body := stripFences(text)

	var wire wireRecommendation
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return nil, fmt.Errorf("decode recommendation: %w", err)
	}

	rec := &core.Recommendation{
		Reasoning:       wire.Reasoning,
		Confidence:      clamp01(wire.Confidence),
		DetectedIssues:  wire.DetectedIssues,
		MonitoringNotes: wire.MonitoringNotes,
		LearningInsight: wire.LearningInsight,
	}

	for i, raw := range wire.RecommendedActions {
		action, err := decodeAction(raw)
		if err != nil {
			return nil, fmt.Errorf("decode action %d: %w", i, err)
		}
		rec.RecommendedActions = append(rec.RecommendedActions, action)
	}
	return rec, nil
}

func decodeAction(raw json.RawMessage) (core.Action, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, err
	}

	switch core.ActionKind(tag.Type) {
	case core.KindSuppressIssuer:
		var a core.SuppressIssuer
		return a, json.Unmarshal(raw, &a)
	case core.KindSuppressMethod:
		var a core.SuppressMethod
		return a, json.Unmarshal(raw, &a)
	case core.KindAdjustRetry:
		var a core.AdjustRetry
		return a, json.Unmarshal(raw, &a)
	case core.KindRerouteTraffic:
		var a core.RerouteTraffic
		return a, json.Unmarshal(raw, &a)
	case core.KindAlertOps:
		var a core.AlertOps
		return a, json.Unmarshal(raw, &a)
	case core.KindRollback:
		var a core.Rollback
		return a, json.Unmarshal(raw, &a)
	default:
		return core.UnknownAction{Type: tag.Type, Raw: raw}, nil
	}
}

// stripFences removes a surrounding markdown code fence, if present, so
// models that ignore the "JSON only" instruction still parse.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
