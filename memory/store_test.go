package memory_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshpay/payops-agent/core"
	"github.com/meshpay/payops-agent/memory"
)

// fakeClock is a controllable clock for deterministic window tests.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
func (c *fakeClock) NowMS() int64            { return c.t.UnixMilli() }

func event(id int, ts int64, issuer string, status core.TxStatus) core.TransactionEvent {
	return core.TransactionEvent{
		ID:        fmt.Sprintf("TXN-%d", id),
		Timestamp: ts,
		Issuer:    issuer,
		Method:    "credit_card",
		Merchant:  "ShopFast",
		Amount:    42.50,
		Status:    status,
		LatencyMS: 200,
		Region:    "US-East",
	}
}

func TestIngestTruncatesBufferToCap(t *testing.T) {
	clock := newFakeClock()
	store := memory.NewStore(memory.WithNow(clock.Now))

	var batch []core.TransactionEvent
	for i := 0; i < 750; i++ {
		batch = append(batch, event(i, clock.NowMS(), "Chase", core.TxSuccess))
	}
	store.Ingest(batch)

	buf := store.Buffer()
	require.Len(t, buf, memory.BufferCap)
	// Truncation drops the oldest entries and preserves order.
	assert.Equal(t, "TXN-150", buf[0].ID)
	assert.Equal(t, "TXN-749", buf[len(buf)-1].ID)
}

func TestIngestUpdatesProfilesCumulatively(t *testing.T) {
	clock := newFakeClock()
	store := memory.NewStore(memory.WithNow(clock.Now))

	fail := event(1, clock.NowMS(), "Citi", core.TxFailed)
	fail.ErrorCode = core.ErrTimeout
	store.Ingest([]core.TransactionEvent{
		event(0, clock.NowMS(), "Citi", core.TxSuccess),
		fail,
	})

	p, ok := store.IssuerProfile("Citi")
	require.True(t, ok)
	assert.Equal(t, 2, p.Total)
	assert.Equal(t, 1, p.Successes)
	assert.Equal(t, 1, p.Failures)
	assert.Equal(t, 1, p.Errors[core.ErrTimeout])

	// Profiles survive buffer eviction: flood the buffer, totals keep growing.
	var flood []core.TransactionEvent
	for i := 0; i < memory.BufferCap+10; i++ {
		flood = append(flood, event(100+i, clock.NowMS(), "Citi", core.TxSuccess))
	}
	store.Ingest(flood)

	p, _ = store.IssuerProfile("Citi")
	assert.Equal(t, 2+memory.BufferCap+10, p.Total)
}

func TestWindowedFiltersByTimestamp(t *testing.T) {
	clock := newFakeClock()
	store := memory.NewStore(memory.WithNow(clock.Now))

	old := event(0, clock.NowMS()-120_000, "Chase", core.TxSuccess)
	recent := event(1, clock.NowMS()-10_000, "Chase", core.TxSuccess)
	store.Ingest([]core.TransactionEvent{old, recent})

	got := store.Windowed(memory.WindowMS)
	require.Len(t, got, 1)
	assert.Equal(t, "TXN-1", got[0].ID)
}

func TestSuppressionLifecycle(t *testing.T) {
	clock := newFakeClock()
	store := memory.NewStore(memory.WithNow(clock.Now))

	store.SuppressIssuer("Chase", "degraded", 30_000)
	assert.True(t, store.IsIssuerSuppressed("Chase"))

	// Live through the whole window [T, T+30000).
	clock.Advance(29_999 * time.Millisecond)
	assert.True(t, store.IsIssuerSuppressed("Chase"))

	// Gone at T+30000 and beyond; lookup purges the entry.
	clock.Advance(1 * time.Millisecond)
	assert.False(t, store.IsIssuerSuppressed("Chase"))
	assert.Empty(t, store.Suppressions().Issuers)
}

func TestSuppressionUpsertOverwrites(t *testing.T) {
	clock := newFakeClock()
	store := memory.NewStore(memory.WithNow(clock.Now))

	store.SuppressIssuer("HSBC", "first", 30_000)
	clock.Advance(10 * time.Second)
	store.SuppressIssuer("HSBC", "second", 600_000)

	set := store.Suppressions()
	require.Contains(t, set.Issuers, "HSBC")
	assert.Equal(t, "second", set.Issuers["HSBC"].Reason)
	assert.Equal(t, clock.NowMS()+600_000, set.Issuers["HSBC"].ExpiresAt)
}

func TestUnsuppressIsIdempotent(t *testing.T) {
	store := memory.NewStore()

	store.SuppressMethod("digital_wallet", "fatigued", 0)
	store.UnsuppressMethod("digital_wallet")
	store.UnsuppressMethod("digital_wallet")
	assert.False(t, store.IsMethodSuppressed("digital_wallet"))
}

func TestSuppressionsPurgesExpiredAcrossBothMaps(t *testing.T) {
	clock := newFakeClock()
	store := memory.NewStore(memory.WithNow(clock.Now))

	store.SuppressIssuer("Chase", "a", 30_000)
	store.SuppressMethod("debit_card", "b", 30_000)
	store.SuppressIssuer("Citi", "c", 600_000)

	clock.Advance(31 * time.Second)
	set := store.Suppressions()
	assert.NotContains(t, set.Issuers, "Chase")
	assert.NotContains(t, set.Methods, "debit_card")
	assert.Contains(t, set.Issuers, "Citi")
}

func TestPatternAndActionLogsAreBounded(t *testing.T) {
	store := memory.NewStore()

	for i := 0; i < 250; i++ {
		store.RecordPattern(core.Pattern{Type: core.PatternLatencySpike, Hypothesis: fmt.Sprintf("p%d", i)})
	}
	patterns := store.RecentPatterns(memory.PatternLogCap + 50)
	require.Len(t, patterns, memory.PatternLogCap)
	assert.Equal(t, "p49", patterns[0].Hypothesis)

	for i := 0; i < 120; i++ {
		store.RecordAction(core.ActionRecord{ID: fmt.Sprintf("ACT-%d", i), Status: core.StatusActive})
	}
	actions := store.RecentActions(memory.ActionLogCap + 50)
	require.Len(t, actions, memory.ActionLogCap)
	assert.Equal(t, "ACT-20", actions[0].ID)
}

func TestMarkActionEvaluated(t *testing.T) {
	store := memory.NewStore()
	store.RecordAction(core.ActionRecord{ID: "ACT-1", Status: core.StatusActive})

	require.True(t, store.MarkActionEvaluated("ACT-1"))
	assert.False(t, store.MarkActionEvaluated("ACT-404"))

	recs := store.RecentActions(1)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Evaluated)
}

func TestSummarize(t *testing.T) {
	clock := newFakeClock()
	store := memory.NewStore(memory.WithNow(clock.Now))

	events := []core.TransactionEvent{
		event(0, clock.NowMS(), "Chase", core.TxSuccess),
		event(1, clock.NowMS(), "Chase", core.TxFailed),
		event(2, clock.NowMS(), "Citi", core.TxSuccess),
		event(3, clock.NowMS()-120_000, "Wells", core.TxFailed), // outside window
	}
	events[1].ErrorCode = core.ErrIssuerDecline
	store.Ingest(events)
	store.SuppressIssuer("HSBC", "outage", 0)

	sum := store.Summarize()
	assert.Equal(t, "60s", sum.Window)
	assert.Equal(t, 3, sum.Total)
	assert.InDelta(t, 66.7, sum.SuccessRate, 0.1)
	assert.InDelta(t, 33.3, sum.FailureRate, 0.1)
	assert.Equal(t, 1, sum.ErrorFreq[core.ErrIssuerDecline])
	assert.Equal(t, 2, sum.ByIssuer["Chase"].Total)
	assert.Equal(t, 1, sum.ByIssuer["Chase"].Failed)
	assert.InDelta(t, 50.0, sum.ByIssuer["Chase"].FailureRate, 0.01)
	assert.NotContains(t, sum.ByIssuer, "Wells")
	assert.Contains(t, sum.Suppressions.Issuers, "HSBC")
	assert.Equal(t, 3, sum.ByMethod["credit_card"].Total)
}

func TestSummarizeEmptyStore(t *testing.T) {
	store := memory.NewStore()
	sum := store.Summarize()
	assert.Zero(t, sum.Total)
	assert.Zero(t, sum.SuccessRate)
	assert.Empty(t, sum.RecentPatterns)
}
