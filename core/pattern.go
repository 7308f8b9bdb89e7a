package core

// PatternType tags a detected failure pattern.
type PatternType string

const (
	PatternIssuerDegradation PatternType = "ISSUER_DEGRADATION"
	PatternLatencySpike      PatternType = "LATENCY_SPIKE"
	PatternRetryStorm        PatternType = "RETRY_STORM"
	PatternMethodFatigue     PatternType = "METHOD_FATIGUE"
	PatternCorrelatedFailure PatternType = "CORRELATED_FAILURE"
)

// Severity grades a pattern. Only statistically strong signals are emitted,
// so there is no level below high.
type Severity string

const (
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ErrorCount pairs an error code with its occurrence count.
type ErrorCount struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// Pattern is a statistically supported hypothesis about a failure mode,
// derived purely from windowed aggregates. The Hypothesis text is advisory;
// it is never used for control decisions.
type Pattern struct {
	Type     PatternType `json:"type"`
	Severity Severity    `json:"severity"`

	// Subject entities. Exactly one of Issuer/Method/Merchant is set for
	// single-entity patterns; AffectedIssuers is set for correlated failure.
	Issuer          string   `json:"issuer,omitempty"`
	Method          string   `json:"method,omitempty"`
	Merchant        string   `json:"merchant,omitempty"`
	AffectedIssuers []string `json:"affectedIssuers,omitempty"`

	// Supporting statistics.
	FailureRate    float64        `json:"failureRate,omitempty"` // fraction in [0,1]
	SampleSize     int            `json:"sampleSize,omitempty"`
	DominantError  *ErrorCount    `json:"dominantError,omitempty"`
	AvgLatencyMS   float64        `json:"avgLatency,omitempty"`
	Timeouts       int            `json:"timeouts,omitempty"`
	AvgRetries     float64        `json:"avgRetries,omitempty"`
	RateLimited    int            `json:"rateLimited,omitempty"`
	ErrorBreakdown map[string]int `json:"errorBreakdown,omitempty"`
	Coverage       float64        `json:"coverage,omitempty"` // fraction of active issuer groups failing

	Hypothesis string `json:"hypothesis"`
	DetectedAt int64  `json:"detectedAt,omitempty"` // set when logged to the store
}

// Assessment is the binary judgement of an executed action's effect.
type Assessment string

const (
	AssessmentPositive Assessment = "positive"
	AssessmentNegative Assessment = "negative"
)

// Outcome is the post-hoc measured effect of one executed action, created
// once per evaluated record and never mutated.
type Outcome struct {
	ActionID         string     `json:"actionId"`
	ActionKind       ActionKind `json:"actionType"`
	SuccessRateAfter float64    `json:"successRateAfter"` // percent over trailing window
	AvgLatencyAfter  float64    `json:"avgLatencyAfter"`  // ms over trailing window
	Assessment       Assessment `json:"assessment"`
	EvaluatedAt      int64      `json:"evaluatedAt"`
}
