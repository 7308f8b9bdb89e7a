// Package provider abstracts the LLM reasoning step of the remediation loop.
// The engine hands a provider a monitoring context and expects back a
// structured recommendation; any transport or parsing failure surfaces as an
// UnavailableError so the caller can switch to fallback mode.
package provider

import (
	"context"
	"fmt"

	"github.com/meshpay/payops-agent/core"
)

// Provider produces a remediation recommendation from a monitoring context.
type Provider interface {
	Recommend(ctx context.Context, mc core.MonitoringContext) (*core.Recommendation, error)
}

// UnavailableError wraps any failure that prevents the provider from
// returning a usable recommendation.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("provider unavailable during %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}
