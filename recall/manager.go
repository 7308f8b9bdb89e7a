package recall

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Config holds SimpleManager configuration.
type Config struct {
	// Enabled toggles incident memory on/off.
	Enabled bool

	// MaxIncidents is the retrieval limit per query.
	MaxIncidents int

	// MaxChars bounds the total formatted output.
	MaxChars int
}

// DefaultConfig returns sensible defaults.
var DefaultConfig = &Config{
	Enabled:      true,
	MaxIncidents: 5,
	MaxChars:     2000,
}

// SimpleManager is the built-in Manager: embed the query, search the store,
// format the hits chronologically.
type SimpleManager struct {
	store    Store
	embedder Embedder
	config   *Config
}

// NewSimpleManager creates a manager over a store and embedder.
func NewSimpleManager(store Store, embedder Embedder, config *Config) *SimpleManager {
	if config == nil {
		config = DefaultConfig
	}
	return &SimpleManager{
		store:    store,
		embedder: embedder,
		config:   config,
	}
}

// Retrieve finds incidents similar to the query and formats them for the
// provider prompt.
func (m *SimpleManager) Retrieve(ctx context.Context, query string) (string, error) {
	if !m.config.Enabled {
		return "", nil
	}

	embedding, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	incidents, err := m.store.Query(ctx, embedding, m.config.MaxIncidents)
	if err != nil {
		return "", fmt.Errorf("query store: %w", err)
	}

	log.Printf("[RECALL] retrieved %d incidents for query %q", len(incidents), truncateLog(query, 50))
	if len(incidents) == 0 {
		return "", nil
	}
	return m.formatIncidents(incidents), nil
}

// Record embeds and stores one incident.
func (m *SimpleManager) Record(ctx context.Context, inc Incident) error {
	if !m.config.Enabled {
		return nil
	}

	embedding, err := m.embedder.Embed(ctx, inc.FormatForEmbedding())
	if err != nil {
		return fmt.Errorf("embed incident: %w", err)
	}
	if err := m.store.Store(ctx, inc, embedding); err != nil {
		return fmt.Errorf("store incident: %w", err)
	}

	log.Printf("[RECALL] stored incident %s (%s)", inc.ID, strings.Join(inc.PatternTypes, ","))
	return nil
}

func (m *SimpleManager) formatIncidents(incidents []Incident) string {
	perIncident := m.config.MaxChars / len(incidents)
	if perIncident < 100 {
		perIncident = 100
	}

	var parts []string
	parts = append(parts, "=== SIMILAR PAST INCIDENTS ===")
	for i, inc := range incidents {
		parts = append(parts, fmt.Sprintf("%d. %s", i+1, inc.Format(perIncident)))
	}
	return strings.Join(parts, "\n")
}

func truncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
