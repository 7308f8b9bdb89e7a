// Package recall is the agent's long-term memory: past incidents stored as
// vector embeddings and retrieved by similarity when a new pattern looks
// like something seen before. The rolling-window store forgets in minutes;
// recall remembers across the process lifetime.
package recall

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meshpay/payops-agent/core"
)

// Incident is one remembered remediation episode: what was detected, what
// was done about it, and whether the loop was degraded at the time.
type Incident struct {
	ID           string   `json:"id"`
	Timestamp    int64    `json:"timestamp"`
	PatternTypes []string `json:"patternTypes"`
	Severity     string   `json:"severity"`
	Summary      string   `json:"summary"`
	ActionsTaken []string `json:"actionsTaken"`
	Fallback     bool     `json:"fallback,omitempty"`
}

// IncidentFromCycle distills a completed cycle into an incident record.
func IncidentFromCycle(result *core.CycleResult, patterns []core.Pattern, nowMS int64) Incident {
	inc := Incident{
		ID:        "INC-" + uuid.NewString(),
		Timestamp: nowMS,
		Severity:  string(core.SeverityHigh),
		Fallback:  result.Fallback,
	}

	var hypotheses []string
	for _, p := range patterns {
		inc.PatternTypes = append(inc.PatternTypes, string(p.Type))
		hypotheses = append(hypotheses, p.Hypothesis)
		if p.Severity == core.SeverityCritical {
			inc.Severity = string(core.SeverityCritical)
		}
	}
	inc.Summary = strings.Join(hypotheses, " | ")

	for _, rec := range result.Executed {
		inc.ActionsTaken = append(inc.ActionsTaken, fmt.Sprintf("%s: %s", rec.Kind, rec.Details.Message))
	}
	return inc
}

// FormatForEmbedding renders the incident as the text its embedding is
// computed from.
func (i Incident) FormatForEmbedding() string {
	return fmt.Sprintf("%s [%s] %s | actions: %s",
		strings.Join(i.PatternTypes, ","), i.Severity, i.Summary, strings.Join(i.ActionsTaken, "; "))
}

// Format renders the incident for prompt injection, truncated to maxLen.
func (i Incident) Format(maxLen int) string {
	ts := time.UnixMilli(i.Timestamp).UTC().Format(time.RFC3339)
	mode := ""
	if i.Fallback {
		mode = " (fallback mode)"
	}
	s := fmt.Sprintf("%s%s %s: %s. Actions: %s",
		ts, mode, i.Severity, i.Summary, strings.Join(i.ActionsTaken, "; "))
	if maxLen > 3 && len(s) > maxLen {
		s = s[:maxLen-3] + "..."
	}
	return s
}

// Store is the vector storage backend for incidents.
type Store interface {
	// Store saves an incident with its embedding.
	Store(ctx context.Context, inc Incident, embedding []float32) error

	// Query retrieves incidents by vector similarity, highest first.
	Query(ctx context.Context, embedding []float32, limit int) ([]Incident, error)

	// Close releases resources.
	Close() error
}

// Embedder converts text to vector embeddings. It is an implementation
// detail of Manager; the engine never touches it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Manager orchestrates incident memory. The engine decides WHEN to use it
// (retrieve before reasoning, record after the cycle); the Manager decides
// HOW, which incidents to return and how to format them.
type Manager interface {
	// Retrieve finds incidents similar to the query and returns a formatted
	// block ready for prompt injection, or "" when nothing relevant exists.
	Retrieve(ctx context.Context, query string) (string, error)

	// Record stores a completed incident.
	Record(ctx context.Context, inc Incident) error
}
