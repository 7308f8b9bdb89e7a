package core

import "encoding/json"

// EntityWindow is a per-entity breakdown over the trailing window.
type EntityWindow struct {
	Total        int     `json:"total"`
	Failed       int     `json:"failed"`
	FailureRate  float64 `json:"failRate"` // percent
	AvgLatencyMS float64 `json:"avgLat,omitempty"`
}

// Summary is the 60-second monitoring snapshot handed to the recommendation
// provider and any reporting layer.
type Summary struct {
	Window         string                  `json:"window"`
	Total          int                     `json:"total"`
	SuccessRate    float64                 `json:"successRate"` // percent
	FailureRate    float64                 `json:"failureRate"` // percent
	AvgLatencyMS   float64                 `json:"avgLatency"`
	ErrorFreq      map[string]int          `json:"errorFreq"`
	ByIssuer       map[string]EntityWindow `json:"byIssuer"`
	ByMethod       map[string]EntityWindow `json:"byMethod"`
	Suppressions   SuppressionSet          `json:"suppressions"`
	RecentPatterns []Pattern               `json:"recentPatterns"`
	RecentActions  []ActionRecord          `json:"recentActions"`
	RecentOutcomes []Outcome               `json:"recentOutcomes"`
}

// MonitoringContext is the full context for one recommendation request.
type MonitoringContext struct {
	CurrentMetrics     Summary        `json:"currentMetrics"`
	DetectedPatterns   []Pattern      `json:"detectedPatterns"`
	PreviousOutcomes   []Outcome      `json:"previousOutcomes"`
	ActiveSuppressions SuppressionSet `json:"activeSuppressions"`

	// PastIncidents is optional prompt enrichment from long-term recall.
	PastIncidents string `json:"pastIncidents,omitempty"`
}

// Recommendation is the provider's (or the fallback's) response.
type Recommendation struct {
	Reasoning          string   `json:"reasoning"`
	Confidence         float64  `json:"confidence"` // [0,1]
	DetectedIssues     []string `json:"detectedIssues"`
	RecommendedActions []Action `json:"recommendedActions"`
	MonitoringNotes    string   `json:"monitoringNotes"`
	LearningInsight    string   `json:"learningInsight"`
}

// EvaluatedAction pairs a guardrail-normalized action with its decision.
type EvaluatedAction struct {
	Action Action
	Tier   Tier
	Reason string
}

// MarshalJSON tags the action with its kind so consumers can dispatch.
func (e EvaluatedAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   ActionKind `json:"type"`
		Action Action     `json:"action"`
		Tier   Tier       `json:"tier"`
		Reason string     `json:"reason"`
	}{e.Action.Kind(), e.Action, e.Tier, e.Reason})
}

// CycleResult is the full outcome of one agent cycle, consumed by any
// reporting layer.
type CycleResult struct {
	CycleID         string            `json:"cycleId"`
	Reasoning       string            `json:"llmReasoning"`
	Confidence      float64           `json:"confidence"`
	DetectedIssues  []string          `json:"detectedIssues"`
	MonitoringNotes string            `json:"monitoringNotes"`
	LearningInsight string            `json:"learningInsight"`
	Patterns        []Pattern         `json:"patterns"`
	Approved        []EvaluatedAction `json:"approved"`
	Blocked         []EvaluatedAction `json:"blocked"`
	HumanGate       []EvaluatedAction `json:"humanGate"`
	Executed        []ActionRecord    `json:"executed"`
	Fallback        bool              `json:"fallback,omitempty"`
}
