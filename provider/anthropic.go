package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/meshpay/payops-agent/core"
)

const (
	// DefaultModel is the Claude model used when none is configured.
	DefaultModel = "claude-sonnet-4-20250514"

	// DefaultMaxTokens bounds the response; the recommendation schema is
	// compact and never needs more.
	DefaultMaxTokens = 1500

	// DefaultTimeout bounds a single Recommend call.
	DefaultTimeout = 30 * time.Second
)

// Anthropic is a Provider backed by the Claude Messages API.
type Anthropic struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

// AnthropicOption configures the Anthropic provider.
type AnthropicOption func(*Anthropic)

// WithModel overrides the Claude model.
func WithModel(model string) AnthropicOption {
	return func(p *Anthropic) {
		if model != "" {
			p.model = model
		}
	}
}

// WithMaxTokens overrides the response token budget.
func WithMaxTokens(n int64) AnthropicOption {
	return func(p *Anthropic) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithTimeout overrides the per-call deadline.
func WithTimeout(d time.Duration) AnthropicOption {
	return func(p *Anthropic) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewAnthropic creates a Claude-backed provider.
func NewAnthropic(client *anthropic.Client, opts ...AnthropicOption) *Anthropic {
	p := &Anthropic{
		client:    client,
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Recommend serializes the monitoring context, asks Claude for a decision,
// and parses the structured recommendation out of the response text.
func (p *Anthropic) Recommend(ctx context.Context, mc core.MonitoringContext) (*core.Recommendation, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	payload, err := json.MarshalIndent(mc, "", "  ")
	if err != nil {
		return nil, &UnavailableError{Op: "encode context", Err: err}
	}

	prompt := fmt.Sprintf("CONTEXT:\n%s\n\nRespond with ONLY valid JSON matching the schema.", payload)

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, &UnavailableError{Op: "messages.new", Err: err}
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, &UnavailableError{Op: "messages.new", Err: fmt.Errorf("response contained no text blocks")}
	}

	rec, err := ParseRecommendation(text)
	if err != nil {
		return nil, &UnavailableError{Op: "parse response", Err: err}
	}

	log.Printf("[PROVIDER] recommendation: confidence=%.2f actions=%d", rec.Confidence, len(rec.RecommendedActions))
	return rec, nil
}
