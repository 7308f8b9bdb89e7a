package memory

import "github.com/meshpay/payops-agent/core"

// How many log entries the summary carries forward as recent context.
const (
	summaryPatterns = 5
	summaryActions  = 3
	summaryOutcomes = 3
)

// Summarize computes the 60-second monitoring snapshot: totals, rates,
// latency, error frequency, per-issuer and per-method breakdowns, the live
// suppression registry, and the last few logged patterns, actions and
// outcomes. This is the context handed to the recommendation provider.
func (s *Store) Summarize() core.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent := s.windowedLocked(WindowMS)

	sum := core.Summary{
		Window:       "60s",
		Total:        len(recent),
		ErrorFreq:    make(map[string]int),
		ByIssuer:     make(map[string]core.EntityWindow),
		ByMethod:     make(map[string]core.EntityWindow),
		Suppressions: s.suppressionsLocked(),
	}

	var successes int
	var totalLatency int64
	issuerLat := make(map[string]int64)

	for _, e := range recent {
		totalLatency += e.LatencyMS
		if e.Failed() {
			if e.ErrorCode != "" {
				sum.ErrorFreq[e.ErrorCode]++
			}
		} else {
			successes++
		}

		iw := sum.ByIssuer[e.Issuer]
		iw.Total++
		if e.Failed() {
			iw.Failed++
		}
		sum.ByIssuer[e.Issuer] = iw
		issuerLat[e.Issuer] += e.LatencyMS

		mw := sum.ByMethod[e.Method]
		mw.Total++
		if e.Failed() {
			mw.Failed++
		}
		sum.ByMethod[e.Method] = mw
	}

	if sum.Total > 0 {
		sum.SuccessRate = float64(successes) / float64(sum.Total) * 100
		sum.FailureRate = float64(sum.Total-successes) / float64(sum.Total) * 100
		sum.AvgLatencyMS = float64(totalLatency) / float64(sum.Total)
	}

	for issuer, iw := range sum.ByIssuer {
		iw.FailureRate = float64(iw.Failed) / float64(iw.Total) * 100
		iw.AvgLatencyMS = float64(issuerLat[issuer]) / float64(iw.Total)
		sum.ByIssuer[issuer] = iw
	}
	for method, mw := range sum.ByMethod {
		mw.FailureRate = float64(mw.Failed) / float64(mw.Total) * 100
		sum.ByMethod[method] = mw
	}

	sum.RecentPatterns = tail(s.patternLog, summaryPatterns)
	for _, r := range tail(s.actionLog, summaryActions) {
		sum.RecentActions = append(sum.RecentActions, *r)
	}
	sum.RecentOutcomes = tail(s.outcomeLog, summaryOutcomes)

	return sum
}
