// Package detector derives failure patterns from a window of transaction
// events. Detection is a pure function over a snapshot: it holds no state
// and performs no I/O, so it can run outside the memory store's lock.
package detector

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/meshpay/payops-agent/core"
)

// Policy constants. Each rule is independently evaluable; emission order
// does not affect correctness.
const (
	windowMS      = 60_000
	minWindowSize = 8

	minIssuerGroup       = 6
	degradationRate      = 0.35
	degradationCritical  = 0.6
	latencySpikeMS       = 2000.0
	latencyCriticalMS    = 4000.0
	minMerchantGroup     = 8
	stormAvgRetries      = 4.0
	stormRateLimited     = 3
	stormCriticalLimited = 5
	minMethodGroup       = 8
	fatigueRate          = 0.30
	fatigueCritical      = 0.5
	correlatedMinGroups  = 3
	correlatedRate       = 0.2
	correlatedCoverage   = 0.25
)

// Detect partitions the trailing 60 seconds of events by issuer, method and
// merchant and emits every pattern whose thresholds are met. Windows with
// fewer than 8 events produce no patterns.
func Detect(events []core.TransactionEvent, now time.Time) []core.Pattern {
	cutoff := now.UnixMilli() - windowMS
	var recent []core.TransactionEvent
	for _, e := range events {
		if e.Timestamp >= cutoff {
			recent = append(recent, e)
		}
	}
	if len(recent) < minWindowSize {
		return nil
	}

	byIssuer := make(map[string][]core.TransactionEvent)
	byMethod := make(map[string][]core.TransactionEvent)
	byMerchant := make(map[string][]core.TransactionEvent)
	for _, e := range recent {
		byIssuer[e.Issuer] = append(byIssuer[e.Issuer], e)
		byMethod[e.Method] = append(byMethod[e.Method], e)
		byMerchant[e.Merchant] = append(byMerchant[e.Merchant], e)
	}

	var patterns []core.Pattern
	issuerFailRates := make(map[string]float64)

	for _, issuer := range sortedKeys(byIssuer) {
		group := byIssuer[issuer]
		if len(group) < minIssuerGroup {
			continue
		}
		rate := failureRate(group)
		issuerFailRates[issuer] = rate
		if rate > degradationRate {
			patterns = append(patterns, issuerDegradation(issuer, group, rate))
		}
	}

	for _, issuer := range sortedKeys(byIssuer) {
		group := byIssuer[issuer]
		if len(group) < minIssuerGroup {
			continue
		}
		if avg := avgLatency(group); avg > latencySpikeMS {
			patterns = append(patterns, latencySpike(issuer, group, avg))
		}
	}

	for _, merchant := range sortedKeys(byMerchant) {
		group := byMerchant[merchant]
		if len(group) < minMerchantGroup {
			continue
		}
		if p, ok := retryStorm(merchant, group); ok {
			patterns = append(patterns, p)
		}
	}

	for _, method := range sortedKeys(byMethod) {
		group := byMethod[method]
		if len(group) < minMethodGroup {
			continue
		}
		if rate := failureRate(group); rate > fatigueRate {
			patterns = append(patterns, methodFatigue(method, group, rate))
		}
	}

	if p, ok := correlatedFailure(byIssuer, issuerFailRates); ok {
		patterns = append(patterns, p)
	}

	return patterns
}

func issuerDegradation(issuer string, group []core.TransactionEvent, rate float64) core.Pattern {
	sev := core.SeverityHigh
	if rate > degradationCritical {
		sev = core.SeverityCritical
	}
	dom := dominantError(group)
	domCode := "mixed"
	if dom != nil {
		domCode = dom.Code
	}
	return core.Pattern{
		Type:          core.PatternIssuerDegradation,
		Severity:      sev,
		Issuer:        issuer,
		FailureRate:   rate,
		SampleSize:    len(group),
		DominantError: dom,
		AvgLatencyMS:  avgLatency(group),
		Hypothesis: fmt.Sprintf("Issuer %s degraded at %.1f%%. Dominant error: %s. Likely issuer-side throttling or outage.",
			issuer, rate*100, domCode),
	}
}

func latencySpike(issuer string, group []core.TransactionEvent, avg float64) core.Pattern {
	sev := core.SeverityHigh
	if avg > latencyCriticalMS {
		sev = core.SeverityCritical
	}
	timeouts := 0
	for _, e := range group {
		if e.ErrorCode == core.ErrTimeout {
			timeouts++
		}
	}
	return core.Pattern{
		Type:         core.PatternLatencySpike,
		Severity:     sev,
		Issuer:       issuer,
		AvgLatencyMS: avg,
		SampleSize:   len(group),
		Timeouts:     timeouts,
		Hypothesis: fmt.Sprintf("Issuer %s latency at %.0fms. Possible network congestion. Timeouts: %d.",
			issuer, avg, timeouts),
	}
}

func retryStorm(merchant string, group []core.TransactionEvent) (core.Pattern, bool) {
	var totalRetries, rateLimited int
	for _, e := range group {
		totalRetries += e.RetryCount
		if e.ErrorCode == core.ErrRateLimited {
			rateLimited++
		}
	}
	avgRetries := float64(totalRetries) / float64(len(group))
	if avgRetries <= stormAvgRetries && rateLimited < stormRateLimited {
		return core.Pattern{}, false
	}
	sev := core.SeverityHigh
	if rateLimited >= stormCriticalLimited {
		sev = core.SeverityCritical
	}
	return core.Pattern{
		Type:        core.PatternRetryStorm,
		Severity:    sev,
		Merchant:    merchant,
		AvgRetries:  avgRetries,
		RateLimited: rateLimited,
		SampleSize:  len(group),
		Hypothesis: fmt.Sprintf("Merchant %s generating retry storm (avg %.1f retries). Rate limits hit: %d. Aggressive retry config suspected.",
			merchant, avgRetries, rateLimited),
	}, true
}

func methodFatigue(method string, group []core.TransactionEvent, rate float64) core.Pattern {
	sev := core.SeverityHigh
	if rate > fatigueCritical {
		sev = core.SeverityCritical
	}
	breakdown := make(map[string]int)
	for _, e := range group {
		if e.ErrorCode != "" {
			breakdown[e.ErrorCode]++
		}
	}
	return core.Pattern{
		Type:           core.PatternMethodFatigue,
		Severity:       sev,
		Method:         method,
		FailureRate:    rate,
		SampleSize:     len(group),
		ErrorBreakdown: breakdown,
		Hypothesis: fmt.Sprintf("Payment method '%s' degraded at %.1f%%. Provider-side issues likely. Reroute to alternatives recommended.",
			method, rate*100),
	}
}

func correlatedFailure(byIssuer map[string][]core.TransactionEvent, failRates map[string]float64) (core.Pattern, bool) {
	activeGroups := 0
	for _, group := range byIssuer {
		if len(group) >= minIssuerGroup {
			activeGroups++
		}
	}
	var failing []string
	for _, issuer := range sortedKeys(byIssuer) {
		if rate, ok := failRates[issuer]; ok && rate > correlatedRate {
			failing = append(failing, issuer)
		}
	}
	if activeGroups < correlatedMinGroups {
		return core.Pattern{}, false
	}
	coverage := float64(len(failing)) / float64(activeGroups)
	if coverage <= correlatedCoverage {
		return core.Pattern{}, false
	}
	return core.Pattern{
		Type:            core.PatternCorrelatedFailure,
		Severity:        core.SeverityCritical,
		AffectedIssuers: failing,
		Coverage:        coverage,
		Hypothesis: fmt.Sprintf("Correlated failure across %s. Shared infrastructure issue likely. Escalation recommended.",
			strings.Join(failing, ", ")),
	}, true
}

func failureRate(group []core.TransactionEvent) float64 {
	failed := 0
	for _, e := range group {
		if e.Failed() {
			failed++
		}
	}
	return float64(failed) / float64(len(group))
}

func avgLatency(group []core.TransactionEvent) float64 {
	var total int64
	for _, e := range group {
		total += e.LatencyMS
	}
	return float64(total) / float64(len(group))
}

// dominantError returns the most frequent error code among failed events,
// or nil when the group carries no error codes.
func dominantError(group []core.TransactionEvent) *core.ErrorCount {
	counts := make(map[string]int)
	for _, e := range group {
		if e.ErrorCode != "" {
			counts[e.ErrorCode]++
		}
	}
	var top *core.ErrorCount
	for _, code := range sortedStringKeys(counts) {
		n := counts[code]
		if top == nil || n > top.Count {
			top = &core.ErrorCount{Code: code, Count: n}
		}
	}
	return top
}

// Deterministic iteration keeps pattern order stable between runs.
func sortedKeys(m map[string][]core.TransactionEvent) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStringKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
