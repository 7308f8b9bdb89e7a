package executor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshpay/payops-agent/core"
	"github.com/meshpay/payops-agent/executor"
	"github.com/meshpay/payops-agent/memory"
)

func newExecutor(t *testing.T) (*executor.Executor, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return executor.New(store), store
}

func TestExecuteSuppressIssuer(t *testing.T) {
	exec, store := newExecutor(t)

	rec := exec.Execute(core.SuppressIssuer{Issuer: "Chase", DurationMS: 60_000, Reason: "degraded"}, core.TierGuarded)

	assert.Equal(t, core.KindSuppressIssuer, rec.Kind)
	assert.Equal(t, core.StatusActive, rec.Status)
	assert.Equal(t, core.TierGuarded, rec.Tier)
	assert.Equal(t, "Chase", rec.Details.Issuer)
	assert.Equal(t, rec.ExecutedAt+60_000, rec.Details.ExpiresAt)
	assert.True(t, store.IsIssuerSuppressed("Chase"))

	// The record is also logged.
	logged := store.RecentActions(1)
	require.Len(t, logged, 1)
	assert.Equal(t, rec.ID, logged[0].ID)
}

func TestExecuteSuppressMethod(t *testing.T) {
	exec, store := newExecutor(t)

	rec := exec.Execute(core.SuppressMethod{Method: "digital_wallet", DurationMS: 60_000, Reason: "fatigued"}, core.TierGuarded)
	assert.Equal(t, core.StatusActive, rec.Status)
	assert.True(t, store.IsMethodSuppressed("digital_wallet"))
}

func TestExecuteAdjustRetryHasNoStoreSideEffect(t *testing.T) {
	exec, store := newExecutor(t)

	rec := exec.Execute(core.AdjustRetry{Merchant: "ShopFast", Current: 5, Proposed: 3}, core.TierAutonomous)
	assert.Equal(t, core.StatusActive, rec.Status)
	assert.Equal(t, "ShopFast", rec.Details.Target)
	assert.Equal(t, 5, rec.Details.PrevRetries)
	assert.Equal(t, 3, rec.Details.NextRetries)
	assert.Empty(t, store.Suppressions().Issuers)
}

func TestExecuteAlertIsSent(t *testing.T) {
	exec, _ := newExecutor(t)

	rec := exec.Execute(core.AlertOps{Severity: "high", Title: "Chase degradation", Body: "..."}, core.TierAutonomous)
	assert.Equal(t, core.StatusSent, rec.Status)
	assert.Equal(t, "[HIGH] Chase degradation", rec.Details.Message)
}

func TestAlertDeduplicationWithinCooldown(t *testing.T) {
	exec, _ := newExecutor(t)

	first := exec.Execute(core.AlertOps{Severity: "high", Title: "same"}, core.TierAutonomous)
	assert.False(t, first.Details.Deduplicated)

	// Ristretto admits asynchronously; give the set a moment to land.
	time.Sleep(20 * time.Millisecond)

	second := exec.Execute(core.AlertOps{Severity: "high", Title: "same"}, core.TierAutonomous)
	assert.True(t, second.Details.Deduplicated)
	assert.Equal(t, core.StatusSent, second.Status)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestExecuteRollbackRemovesSuppression(t *testing.T) {
	exec, store := newExecutor(t)

	orig := exec.Execute(core.SuppressIssuer{Issuer: "Chase", DurationMS: 300_000, Reason: "degraded"}, core.TierGuarded)
	require.True(t, store.IsIssuerSuppressed("Chase"))

	rb := exec.Execute(core.Rollback{
		OriginalActionID: orig.ID,
		Issuer:           "Chase",
		Reason:           "negative outcome",
	}, core.TierAutonomous)

	assert.Equal(t, core.KindRollback, rb.Kind)
	assert.Equal(t, core.StatusExecuted, rb.Status)
	assert.Equal(t, orig.ID, rb.Details.OriginalActionID)
	assert.False(t, store.IsIssuerSuppressed("Chase"))
}

func TestExecuteUnknownActionFailsRecordOnly(t *testing.T) {
	exec, store := newExecutor(t)

	rec := exec.Execute(core.UnknownAction{Type: "defragment_ledger"}, core.TierBlocked)
	assert.Equal(t, core.StatusFailed, rec.Status)
	assert.Equal(t, "unknown action", rec.Details.Error)
	require.Len(t, store.RecentActions(1), 1)
}

func TestQueueForApproval(t *testing.T) {
	exec, store := newExecutor(t)

	rec := exec.QueueForApproval(core.SuppressIssuer{Issuer: "Chase", DurationMS: 300_000}, "High-volume issuer")
	assert.Equal(t, core.StatusPendingApproval, rec.Status)
	assert.Equal(t, core.TierHumanGate, rec.Tier)
	assert.Equal(t, "Chase", rec.Details.Issuer)

	// Queued actions take no effect on routing state.
	assert.False(t, store.IsIssuerSuppressed("Chase"))
	assert.Empty(t, store.ActiveActions())
}

func TestRecordIDsAreMonotonicPerExecutor(t *testing.T) {
	exec, _ := newExecutor(t)

	a := exec.Execute(core.AlertOps{Severity: "low", Title: "a"}, core.TierAutonomous)
	b := exec.Execute(core.AlertOps{Severity: "low", Title: "b"}, core.TierAutonomous)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Less(t, a.ID, b.ID)
}
