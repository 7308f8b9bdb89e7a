package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshpay/payops-agent/core"
)

func TestGenerateBatchSizeAndShape(t *testing.T) {
	sim := New(WithSeed(1))

	events := sim.GenerateBatch(0)
	require.Len(t, events, DefaultBatchSize)

	seen := make(map[string]bool)
	for _, e := range events {
		assert.False(t, seen[e.ID], "duplicate ID %s", e.ID)
		seen[e.ID] = true
		assert.Contains(t, core.Issuers, e.Issuer)
		assert.Contains(t, core.Methods, e.Method)
		assert.Contains(t, core.Merchants, e.Merchant)
		assert.Contains(t, core.Regions, e.Region)
		assert.NotZero(t, e.Timestamp)
		if e.Status == core.TxFailed {
			assert.NotEmpty(t, e.ErrorCode)
		} else {
			assert.Empty(t, e.ErrorCode)
		}
	}
}

func TestIssuerDegradationScenario(t *testing.T) {
	sim := New(WithSeed(7))
	require.True(t, sim.Activate(ScenarioIssuerDegradation))

	events := sim.GenerateBatch(2000)

	var chase, chaseFailed int
	for _, e := range events {
		if e.Issuer != "Chase" {
			continue
		}
		chase++
		if e.Failed() {
			chaseFailed++
		}
	}
	require.NotZero(t, chase)

	// Configured failure rate is 78%; with background noise the observed
	// rate should be solidly above healthy baseline.
	rate := float64(chaseFailed) / float64(chase)
	assert.Greater(t, rate, 0.6)
}

func TestBankOutageScenarioIsTotal(t *testing.T) {
	sim := New(WithSeed(7))
	require.True(t, sim.Activate(ScenarioBankOutage))

	events := sim.GenerateBatch(2000)
	for _, e := range events {
		if e.Issuer != "HSBC" {
			continue
		}
		assert.True(t, e.Failed())
		assert.Equal(t, core.ErrBankUnavailable, e.ErrorCode)
		assert.GreaterOrEqual(t, e.LatencyMS, int64(5000))
	}
}

func TestLatencySpikeScenario(t *testing.T) {
	sim := New(WithSeed(7))
	require.True(t, sim.Activate(ScenarioLatencySpike))

	events := sim.GenerateBatch(1000)
	for _, e := range events {
		if e.Issuer == "Citi" || e.Issuer == "Wells" {
			assert.GreaterOrEqual(t, e.LatencyMS, int64(3400))
		}
	}
}

func TestMethodFatigueRampsOverTime(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	current := start
	sim := New(WithSeed(7), WithNow(func() time.Time { return current }))
	require.True(t, sim.Activate(ScenarioMethodFatigue))

	failRate := func() float64 {
		events := sim.GenerateBatch(3000)
		var n, failed int
		for _, e := range events {
			if e.Method != "digital_wallet" {
				continue
			}
			n++
			if e.Failed() {
				failed++
			}
		}
		require.NotZero(t, n)
		return float64(failed) / float64(n)
	}

	early := failRate()

	current = start.Add(5 * time.Minute)
	late := failRate()

	assert.Greater(t, late, early)
	assert.LessOrEqual(t, late, 0.9)
}

func TestRetryStormMarksRateLimited(t *testing.T) {
	sim := New(WithSeed(7))
	require.True(t, sim.Activate(ScenarioRetryStorm))
	require.True(t, sim.Activate(ScenarioIssuerDegradation))

	events := sim.GenerateBatch(5000)

	var stormRetries int
	for _, e := range events {
		if e.Merchant != "ShopFast" || !e.Failed() {
			continue
		}
		if e.RetryCount > 0 {
			stormRetries++
		}
		assert.Less(t, e.RetryCount, 8)
		if e.RetryCount >= 5 {
			assert.Equal(t, core.ErrRateLimited, e.ErrorCode)
		}
	}
	assert.NotZero(t, stormRetries)
}

func TestActivateUnknownScenario(t *testing.T) {
	sim := New()
	assert.False(t, sim.Activate("meteor_strike"))
	assert.False(t, sim.Deactivate("meteor_strike"))
	assert.False(t, sim.IsActive("meteor_strike"))
}

func TestDeactivateStopsScenario(t *testing.T) {
	sim := New(WithSeed(7))
	require.True(t, sim.Activate(ScenarioBankOutage))
	require.True(t, sim.IsActive(ScenarioBankOutage))
	require.True(t, sim.Deactivate(ScenarioBankOutage))
	assert.False(t, sim.IsActive(ScenarioBankOutage))

	events := sim.GenerateBatch(2000)
	var hsbcOutage int
	for _, e := range events {
		if e.Issuer == "HSBC" && e.ErrorCode == core.ErrBankUnavailable {
			hsbcOutage++
		}
	}
	assert.Zero(t, hsbcOutage)
}
