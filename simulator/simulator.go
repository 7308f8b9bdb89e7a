// Package simulator generates synthetic payment traffic with injectable
// failure scenarios. It exists so the full remediation loop can run, and be
// demonstrated, without a live payment rail behind it.
package simulator

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/meshpay/payops-agent/core"
)

// Scenario names.
const (
	ScenarioIssuerDegradation = "issuer_degradation"
	ScenarioRetryStorm        = "retry_storm"
	ScenarioLatencySpike      = "network_latency_spike"
	ScenarioMethodFatigue     = "method_fatigue"
	ScenarioBankOutage        = "bank_outage"
)

// DefaultBatchSize is the number of events per GenerateBatch call when the
// caller passes 0.
const DefaultBatchSize = 40

// backgroundFailureRate is the baseline failure probability for otherwise
// healthy traffic.
const backgroundFailureRate = 0.04

// scenario is one injectable fault, with its fixed tuning knobs.
type scenario struct {
	active    bool
	startedAt time.Time

	issuer          string
	merchant        string
	method          string
	failureRate     float64
	retryMultiplier int
	spikeLatencyMS  int64
	affectedIssuers []string
	degradeCurve    float64
}

// Simulator produces transaction events. Safe for concurrent use.
type Simulator struct {
	mu        sync.Mutex
	rng       *rand.Rand
	now       func() time.Time
	nextTxID  int
	scenarios map[string]*scenario
}

// Option configures the simulator.
type Option func(*Simulator)

// WithNow overrides the simulator's clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Simulator) {
		s.now = now
	}
}

// WithSeed makes the event stream reproducible.
func WithSeed(seed int64) Option {
	return func(s *Simulator) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// New creates a simulator with all scenarios inactive.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
		nextTxID: 100_000,
		scenarios: map[string]*scenario{
			ScenarioIssuerDegradation: {issuer: "Chase", failureRate: 0.78},
			ScenarioRetryStorm:        {merchant: "ShopFast", retryMultiplier: 8},
			ScenarioLatencySpike:      {spikeLatencyMS: 3400, affectedIssuers: []string{"Citi", "Wells"}},
			ScenarioMethodFatigue:     {method: "digital_wallet", degradeCurve: 0.14},
			ScenarioBankOutage:        {issuer: "HSBC"},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateBatch produces n transaction events reflecting currently active
// scenarios. n <= 0 uses DefaultBatchSize.
func (s *Simulator) GenerateBatch(n int) []core.TransactionEvent {
	if n <= 0 {
		n = DefaultBatchSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]core.TransactionEvent, n)
	for i := range events {
		events[i] = s.generate()
	}
	return events
}

// Activate turns a scenario on. Returns false for an unknown name.
func (s *Simulator) Activate(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scenarios[name]
	if !ok {
		return false
	}
	sc.active = true
	sc.startedAt = s.now()
	return true
}

// Deactivate turns a scenario off. Returns false for an unknown name.
func (s *Simulator) Deactivate(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scenarios[name]
	if !ok {
		return false
	}
	sc.active = false
	sc.startedAt = time.Time{}
	return true
}

// IsActive reports whether a scenario is currently active.
func (s *Simulator) IsActive(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scenarios[name]
	return ok && sc.active
}

// Scenarios lists all scenario names.
func (s *Simulator) Scenarios() []string {
	return []string{
		ScenarioIssuerDegradation,
		ScenarioRetryStorm,
		ScenarioLatencySpike,
		ScenarioMethodFatigue,
		ScenarioBankOutage,
	}
}

// generate produces one event. Caller holds the lock.
func (s *Simulator) generate() core.TransactionEvent {
	now := s.now()

	issuer := pick(s.rng, core.Issuers)
	method := pick(s.rng, core.Methods)
	merchant := pick(s.rng, core.Merchants)

	latency := int64(120 + s.rng.Intn(200))
	status := core.TxSuccess
	errorCode := ""
	retryCount := 0

	if sc := s.scenarios[ScenarioIssuerDegradation]; sc.active && issuer == sc.issuer && s.rng.Float64() < sc.failureRate {
		status = core.TxFailed
		if s.rng.Float64() < 0.6 {
			errorCode = core.ErrIssuerDecline
		} else {
			errorCode = core.ErrTimeout
		}
		latency += int64(s.rng.Intn(800))
	}

	if sc := s.scenarios[ScenarioBankOutage]; sc.active && issuer == sc.issuer {
		status = core.TxFailed
		errorCode = core.ErrBankUnavailable
		latency = int64(5000 + s.rng.Intn(2000))
	}

	if sc := s.scenarios[ScenarioLatencySpike]; sc.active && containsString(sc.affectedIssuers, issuer) {
		latency = sc.spikeLatencyMS + int64(s.rng.Intn(800))
		if latency > 4500 && s.rng.Float64() < 0.4 {
			status = core.TxFailed
			errorCode = core.ErrTimeout
		}
	}

	if sc := s.scenarios[ScenarioMethodFatigue]; sc.active && method == sc.method {
		// Failure probability ramps with scenario age, capped at 82%.
		elapsedMin := now.Sub(sc.startedAt).Minutes()
		p := clamp(sc.degradeCurve*elapsedMin, 0, 0.82)
		if s.rng.Float64() < p {
			status = core.TxFailed
			errorCode = core.ErrMethodUnsupported
		}
	}

	if sc := s.scenarios[ScenarioRetryStorm]; sc.active && merchant == sc.merchant && status == core.TxFailed {
		retryCount = s.rng.Intn(sc.retryMultiplier)
		if retryCount >= 5 {
			errorCode = core.ErrRateLimited
		}
	}

	if status == core.TxSuccess && s.rng.Float64() < backgroundFailureRate {
		status = core.TxFailed
		if s.rng.Float64() < 0.5 {
			errorCode = core.ErrInsufficientFunds
		} else {
			errorCode = core.ErrNetworkError
			latency += int64(s.rng.Intn(500))
		}
	}

	s.nextTxID++
	return core.TransactionEvent{
		ID:         fmt.Sprintf("TXN-%d", s.nextTxID),
		Timestamp:  now.UnixMilli(),
		Issuer:     issuer,
		Method:     method,
		Merchant:   merchant,
		Amount:     float64(int((s.rng.Float64()*450+10)*100)) / 100,
		Status:     status,
		ErrorCode:  errorCode,
		LatencyMS:  latency,
		RetryCount: retryCount,
		Region:     pick(s.rng, core.Regions),
	}
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func clamp(v, min, max float64) float64 {
	switch {
	case v < min:
		return min
	case v > max:
		return max
	default:
		return v
	}
}
