package detector_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshpay/payops-agent/core"
	"github.com/meshpay/payops-agent/detector"
)

var testNow = time.UnixMilli(1_700_000_000_000)

type eventSpec struct {
	issuer   string
	method   string
	merchant string
	status   core.TxStatus
	errCode  string
	latency  int64
	retries  int
}

func build(specs []eventSpec) []core.TransactionEvent {
	events := make([]core.TransactionEvent, len(specs))
	for i, s := range specs {
		if s.method == "" {
			s.method = "credit_card"
		}
		if s.merchant == "" {
			s.merchant = "ShopFast"
		}
		if s.latency == 0 {
			s.latency = 200
		}
		events[i] = core.TransactionEvent{
			ID:         fmt.Sprintf("TXN-%d", i),
			Timestamp:  testNow.UnixMilli() - 1000,
			Issuer:     s.issuer,
			Method:     s.method,
			Merchant:   s.merchant,
			Amount:     25,
			Status:     s.status,
			ErrorCode:  s.errCode,
			LatencyMS:  s.latency,
			RetryCount: s.retries,
			Region:     "US-East",
		}
	}
	return events
}

func repeat(n int, s eventSpec) []eventSpec {
	out := make([]eventSpec, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func TestSmallWindowYieldsNoPatterns(t *testing.T) {
	specs := repeat(7, eventSpec{issuer: "Chase", status: core.TxFailed, errCode: core.ErrIssuerDecline})
	assert.Empty(t, detector.Detect(build(specs), testNow))
}

func TestStaleEventsExcludedFromWindow(t *testing.T) {
	events := build(repeat(20, eventSpec{issuer: "Chase", status: core.TxFailed, errCode: core.ErrIssuerDecline}))
	for i := range events {
		events[i].Timestamp = testNow.UnixMilli() - 61_000
	}
	assert.Empty(t, detector.Detect(events, testNow))
}

func TestIssuerDegradationThresholdIsStrict(t *testing.T) {
	// 7 of 20 failed is exactly 0.35: no pattern.
	specs := append(
		repeat(7, eventSpec{issuer: "Chase", status: core.TxFailed, errCode: core.ErrIssuerDecline}),
		repeat(13, eventSpec{issuer: "Chase", status: core.TxSuccess})...,
	)
	for _, p := range detector.Detect(build(specs), testNow) {
		assert.NotEqual(t, core.PatternIssuerDegradation, p.Type)
	}

	// 8 of 20 (0.40) crosses the threshold at severity high.
	specs = append(
		repeat(8, eventSpec{issuer: "Chase", status: core.TxFailed, errCode: core.ErrIssuerDecline}),
		repeat(12, eventSpec{issuer: "Chase", status: core.TxSuccess})...,
	)
	patterns := detector.Detect(build(specs), testNow)
	p := findPattern(t, patterns, core.PatternIssuerDegradation)
	assert.Equal(t, core.SeverityHigh, p.Severity)
	assert.Equal(t, "Chase", p.Issuer)
	assert.Equal(t, 20, p.SampleSize)
	require.NotNil(t, p.DominantError)
	assert.Equal(t, core.ErrIssuerDecline, p.DominantError.Code)
}

func TestIssuerDegradationCriticalScenario(t *testing.T) {
	// 30 failed Chase events plus 10 healthy from another issuer.
	specs := append(
		repeat(30, eventSpec{issuer: "Chase", status: core.TxFailed, errCode: core.ErrIssuerDecline}),
		repeat(10, eventSpec{issuer: "Amex", status: core.TxSuccess})...,
	)
	patterns := detector.Detect(build(specs), testNow)

	p := findPattern(t, patterns, core.PatternIssuerDegradation)
	assert.Equal(t, core.SeverityCritical, p.Severity)
	assert.Equal(t, "Chase", p.Issuer)
	assert.Equal(t, 30, p.SampleSize)
	assert.InDelta(t, 1.0, p.FailureRate, 0.001)
}

func TestIssuerGroupBelowMinSizeIgnored(t *testing.T) {
	// 5 Chase failures (below the 6-event group minimum) among enough filler.
	specs := append(
		repeat(5, eventSpec{issuer: "Chase", status: core.TxFailed, errCode: core.ErrIssuerDecline}),
		repeat(10, eventSpec{issuer: "Citi", status: core.TxSuccess})...,
	)
	for _, p := range detector.Detect(build(specs), testNow) {
		assert.NotEqual(t, "Chase", p.Issuer)
	}
}

func TestLatencySpike(t *testing.T) {
	specs := repeat(10, eventSpec{issuer: "Wells", status: core.TxSuccess, latency: 2500})
	p := findPattern(t, detector.Detect(build(specs), testNow), core.PatternLatencySpike)
	assert.Equal(t, core.SeverityHigh, p.Severity)
	assert.InDelta(t, 2500, p.AvgLatencyMS, 0.1)

	specs = repeat(10, eventSpec{issuer: "Wells", status: core.TxFailed, errCode: core.ErrTimeout, latency: 4500})
	p = findPattern(t, detector.Detect(build(specs), testNow), core.PatternLatencySpike)
	assert.Equal(t, core.SeverityCritical, p.Severity)
	assert.Equal(t, 10, p.Timeouts)
}

func TestRetryStorm(t *testing.T) {
	// High average retries, no rate limiting: high severity.
	specs := repeat(10, eventSpec{merchant: "GameStore", issuer: "BoA", status: core.TxFailed, errCode: core.ErrRetryExhausted, retries: 6})
	p := findPattern(t, detector.Detect(build(specs), testNow), core.PatternRetryStorm)
	assert.Equal(t, core.SeverityHigh, p.Severity)
	assert.Equal(t, "GameStore", p.Merchant)
	assert.InDelta(t, 6.0, p.AvgRetries, 0.01)

	// Five rate-limited events escalate to critical even with low retries.
	specs = append(
		repeat(5, eventSpec{merchant: "GameStore", issuer: "BoA", status: core.TxFailed, errCode: core.ErrRateLimited}),
		repeat(5, eventSpec{merchant: "GameStore", issuer: "BoA", status: core.TxSuccess})...,
	)
	p = findPattern(t, detector.Detect(build(specs), testNow), core.PatternRetryStorm)
	assert.Equal(t, core.SeverityCritical, p.Severity)
	assert.Equal(t, 5, p.RateLimited)
}

func TestMethodFatigue(t *testing.T) {
	specs := append(
		repeat(6, eventSpec{issuer: "Citi", method: "digital_wallet", status: core.TxFailed, errCode: core.ErrMethodUnsupported}),
		repeat(4, eventSpec{issuer: "Citi", method: "digital_wallet", status: core.TxSuccess})...,
	)
	p := findPattern(t, detector.Detect(build(specs), testNow), core.PatternMethodFatigue)
	assert.Equal(t, core.SeverityCritical, p.Severity) // 0.6 > 0.5
	assert.Equal(t, "digital_wallet", p.Method)
	assert.Equal(t, 6, p.ErrorBreakdown[core.ErrMethodUnsupported])
}

func TestCorrelatedFailure(t *testing.T) {
	// Three active issuer groups, two failing above 20%.
	var specs []eventSpec
	specs = append(specs, repeat(4, eventSpec{issuer: "Chase", status: core.TxFailed, errCode: core.ErrNetworkError})...)
	specs = append(specs, repeat(4, eventSpec{issuer: "Chase", status: core.TxSuccess})...)
	specs = append(specs, repeat(4, eventSpec{issuer: "Citi", status: core.TxFailed, errCode: core.ErrNetworkError})...)
	specs = append(specs, repeat(4, eventSpec{issuer: "Citi", status: core.TxSuccess})...)
	specs = append(specs, repeat(8, eventSpec{issuer: "Amex", status: core.TxSuccess})...)

	p := findPattern(t, detector.Detect(build(specs), testNow), core.PatternCorrelatedFailure)
	assert.Equal(t, core.SeverityCritical, p.Severity)
	assert.ElementsMatch(t, []string{"Chase", "Citi"}, p.AffectedIssuers)
	assert.InDelta(t, 2.0/3.0, p.Coverage, 0.001)
}

func TestCorrelatedFailureNeedsThreeActiveGroups(t *testing.T) {
	var specs []eventSpec
	specs = append(specs, repeat(8, eventSpec{issuer: "Chase", status: core.TxFailed, errCode: core.ErrNetworkError})...)
	specs = append(specs, repeat(8, eventSpec{issuer: "Citi", status: core.TxFailed, errCode: core.ErrNetworkError})...)

	for _, p := range detector.Detect(build(specs), testNow) {
		assert.NotEqual(t, core.PatternCorrelatedFailure, p.Type)
	}
}

func findPattern(t *testing.T, patterns []core.Pattern, typ core.PatternType) core.Pattern {
	t.Helper()
	for _, p := range patterns {
		if p.Type == typ {
			return p
		}
	}
	t.Fatalf("no %s pattern in %v", typ, patterns)
	return core.Pattern{}
}
