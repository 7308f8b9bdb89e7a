// Package chromem backs incident recall with chromem-go, a pure Go embedded
// vector database. All incidents live in one collection; the process owns
// its own memory and there is no per-tenant namespace to isolate.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/meshpay/payops-agent/recall"
)

const collectionName = "incidents"

// Store wraps a chromem-go collection of incidents.
type Store struct {
	db *chromem.DB

	mu  sync.Mutex
	col *chromem.Collection
}

// New creates an in-memory chromem store.
func New() (*Store, error) {
	return &Store{db: chromem.NewDB()}, nil
}

func (s *Store) collection() (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.col != nil {
		return s.col, nil
	}
	col, err := s.db.CreateCollection(
		collectionName,
		nil, // embeddings are provided by the caller
		nil, // default cosine distance
	)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.col = col
	return col, nil
}

// Store saves an incident with its embedding.
func (s *Store) Store(ctx context.Context, inc recall.Incident, embedding []float32) error {
	col, err := s.collection()
	if err != nil {
		return err
	}

	content, err := json.Marshal(inc)
	if err != nil {
		return fmt.Errorf("marshal incident: %w", err)
	}

	doc := chromem.Document{
		ID:        inc.ID,
		Content:   string(content),
		Embedding: embedding,
		Metadata: map[string]string{
			"severity":  inc.Severity,
			"timestamp": strconv.FormatInt(inc.Timestamp, 10),
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	log.Printf("[CHROMEM] stored incident %s", inc.ID)
	return nil
}

// Query retrieves incidents by vector similarity. chromem-go requires
// nResults <= collection size, so the limit shrinks until the query fits.
func (s *Store) Query(ctx context.Context, embedding []float32, limit int) ([]recall.Incident, error) {
	col, err := s.collection()
	if err != nil {
		return nil, err
	}

	var results []chromem.Result
	for currentLimit := limit; currentLimit >= 1; currentLimit-- {
		results, err = col.QueryEmbedding(ctx, embedding, currentLimit, nil, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if currentLimit == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	var incidents []recall.Incident
	for i, result := range results {
		var inc recall.Incident
		if err := json.Unmarshal([]byte(result.Content), &inc); err != nil {
			log.Printf("[CHROMEM] skipping result #%d: %v", i+1, err)
			continue
		}
		incidents = append(incidents, inc)
	}
	return incidents, nil
}

// Close releases resources. chromem-go keeps everything in memory, so there
// is nothing to release.
func (s *Store) Close() error {
	return nil
}

func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
