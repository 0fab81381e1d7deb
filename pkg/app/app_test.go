package app

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodexlab/kodex/pkg/config"
	"github.com/kodexlab/kodex/pkg/domain"
)

func testSettings() config.Settings {
	return config.Settings{
		DatabasePath:      ":memory:",
		DebounceWindowMS:  50,
		SignalBufferSize:  16,
		BusHistorySize:    16,
		SnapshotsToKeep:   3,
		AgentEnabled:      false,
		DefaultTrustLevel: "auto",
		TrustLevels:       map[string]string{},
	}
}

func newTestApp(t *testing.T, settings config.Settings) *App {
	t.Helper()
	a, err := New(settings)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func dispatchJSON(t *testing.T, a *App, operation, payload string) *domain.OperationResult {
	t.Helper()
	res, err := a.Dispatcher.Dispatch(context.Background(), operation, json.RawMessage(payload))
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func mustSucceed(t *testing.T, a *App, operation, payload string) *domain.OperationResult {
	t.Helper()
	res := dispatchJSON(t, a, operation, payload)
	require.True(t, res.Success, "%s failed: %s (%s)", operation, res.Reason, res.ErrorCode)
	return res
}

func dataString(t *testing.T, res *domain.OperationResult, key string) string {
	t.Helper()
	v, ok := res.Data[key].(string)
	require.True(t, ok, "result data missing %q", key)
	return v
}

func TestDeleteSourceCascadePurgesSegmentsAndUnlinksCases(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, testSettings())

	codeID := dataString(t, mustSucceed(t, a, "coding.create_code", `{"name":"Anxiety"}`), "code_id")
	doomed := dataString(t, mustSucceed(t, a, "sources.add_source", `{"name":"Interview 1","path":"/data/int1.txt"}`), "source_id")
	kept := dataString(t, mustSucceed(t, a, "sources.add_source", `{"name":"Interview 2","path":"/data/int2.txt"}`), "source_id")

	mustSucceed(t, a, "sources.code_segment",
		fmt.Sprintf(`{"source_id":%q,"code_id":%q,"start":10,"end":40}`, doomed, codeID))
	mustSucceed(t, a, "sources.code_segment",
		fmt.Sprintf(`{"source_id":%q,"code_id":%q,"start":5,"end":25}`, kept, codeID))

	caseID := dataString(t, mustSucceed(t, a, "cases.create_case", `{"name":"Cohort North"}`), "case_id")
	mustSucceed(t, a, "cases.link_source", fmt.Sprintf(`{"case_id":%q,"source_id":%q}`, caseID, doomed))
	mustSucceed(t, a, "cases.link_source", fmt.Sprintf(`{"case_id":%q,"source_id":%q}`, caseID, kept))

	var order []string
	sub := a.Bus.SubscribeAll(func(evt domain.Event) {
		switch evt.EventType() {
		case "sources.source_deleted", "sources.segments_purged", "cases.source_unlinked_everywhere":
			order = append(order, evt.EventType())
		}
	})
	defer a.Bus.Unsubscribe(sub)

	mustSucceed(t, a, "sources.delete_source", fmt.Sprintf(`{"source_id":%q}`, doomed))

	// Cascade events publish re-entrantly inside the deletion's delivery,
	// each exactly once, purge before unlink.
	assert.Equal(t, []string{
		"sources.segments_purged",
		"cases.source_unlinked_everywhere",
		"sources.source_deleted",
	}, order)

	srcSnap, err := a.Store.Sources().LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, srcSnap.Sources, 1)
	assert.Equal(t, kept, srcSnap.Sources[0].ID)
	require.Len(t, srcSnap.Segments, 1)
	assert.Equal(t, kept, srcSnap.Segments[0].SourceID)

	caseSnap, err := a.Store.Cases().LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, caseSnap.Cases, 1)
	assert.Equal(t, []string{kept}, caseSnap.Cases[0].SourceIDs)
}

func TestDeleteCodeCascadePurgesItsSegments(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, testSettings())

	doomed := dataString(t, mustSucceed(t, a, "coding.create_code", `{"name":"Anxiety"}`), "code_id")
	kept := dataString(t, mustSucceed(t, a, "coding.create_code", `{"name":"Relief"}`), "code_id")
	srcID := dataString(t, mustSucceed(t, a, "sources.add_source", `{"name":"Interview 1","path":"/data/int1.txt"}`), "source_id")

	mustSucceed(t, a, "sources.code_segment",
		fmt.Sprintf(`{"source_id":%q,"code_id":%q,"start":10,"end":40}`, srcID, doomed))
	mustSucceed(t, a, "sources.code_segment",
		fmt.Sprintf(`{"source_id":%q,"code_id":%q,"start":50,"end":80}`, srcID, kept))

	mustSucceed(t, a, "coding.delete_code", fmt.Sprintf(`{"code_id":%q}`, doomed))

	snap, err := a.Store.Sources().LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Segments, 1)
	assert.Equal(t, kept, snap.Segments[0].CodeID)
}

func TestDuplicateCodeNameRejectedCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, testSettings())

	mustSucceed(t, a, "coding.create_code", `{"name":"Anxiety"}`)
	res := dispatchJSON(t, a, "coding.create_code", `{"name":"anxiety"}`)

	assert.False(t, res.Success)
	assert.Equal(t, "CODE_NOT_CREATED/DUPLICATE_NAME", res.ErrorCode)

	snap, err := a.Store.Coding().LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Codes, 1)
}

func TestMalformedAndInvalidPayloadsStopAtTheBoundary(t *testing.T) {
	a := newTestApp(t, testSettings())

	res := dispatchJSON(t, a, "coding.create_code", `{`)
	assert.Equal(t, "VALIDATION/MALFORMED_PAYLOAD", res.ErrorCode)

	res = dispatchJSON(t, a, "coding.create_code", `{"name":""}`)
	assert.Equal(t, "VALIDATION/INVALID_FIELDS", res.ErrorCode)
	assert.Contains(t, res.Reason, "Name is required")
}

func TestUnknownOperation(t *testing.T) {
	a := newTestApp(t, testSettings())

	_, err := a.Dispatcher.Dispatch(context.Background(), "coding.rewrite_history", nil)
	assert.ErrorIs(t, err, domain.ErrOperationNotFound)
}

func TestDestructiveOperationHeldUntilApproved(t *testing.T) {
	ctx := context.Background()
	settings := testSettings()
	settings.TrustLevels = map[string]string{"sources.destructive": "require"}
	a := newTestApp(t, settings)

	srcID := dataString(t, mustSucceed(t, a, "sources.add_source", `{"name":"Interview 1","path":"/data/int1.txt"}`), "source_id")
	codeID := dataString(t, mustSucceed(t, a, "coding.create_code", `{"name":"Anxiety"}`), "code_id")
	mustSucceed(t, a, "sources.code_segment",
		fmt.Sprintf(`{"source_id":%q,"code_id":%q,"start":10,"end":40}`, srcID, codeID))

	res := dispatchJSON(t, a, "sources.delete_source", fmt.Sprintf(`{"source_id":%q}`, srcID))
	require.True(t, res.Pending)
	require.NotEmpty(t, res.PendingID)

	// Nothing is applied while the operation is held.
	snap, err := a.Store.Sources().LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Sources, 1)
	assert.Len(t, snap.Segments, 1)

	list := mustSucceed(t, a, "approval.list_pending", "")
	pending, ok := list.Data["pending"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, pending, 1)
	assert.Equal(t, res.PendingID, pending[0]["pending_id"])

	approved := mustSucceed(t, a, "approval.approve", fmt.Sprintf(`{"pending_id":%q}`, res.PendingID))
	assert.True(t, approved.Success)

	// The commit ran, and with it the cascade.
	snap, err = a.Store.Sources().LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Sources)
	assert.Empty(t, snap.Segments)
}

func TestRejectedOperationNeverRuns(t *testing.T) {
	ctx := context.Background()
	settings := testSettings()
	settings.TrustLevels = map[string]string{"sources.destructive": "require"}
	a := newTestApp(t, settings)

	srcID := dataString(t, mustSucceed(t, a, "sources.add_source", `{"name":"Interview 1","path":"/data/int1.txt"}`), "source_id")

	res := dispatchJSON(t, a, "sources.delete_source", fmt.Sprintf(`{"source_id":%q}`, srcID))
	require.True(t, res.Pending)

	rejected := mustSucceed(t, a, "approval.reject", fmt.Sprintf(`{"pending_id":%q}`, res.PendingID))
	assert.True(t, rejected.Success)

	snap, err := a.Store.Sources().LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Sources, 1)

	// The pending slot is gone; a late approve cannot resurrect it.
	again := dispatchJSON(t, a, "approval.approve", fmt.Sprintf(`{"pending_id":%q}`, res.PendingID))
	assert.Equal(t, CodePendingNotFound, again.ErrorCode)
}

func TestSnapshotWrittenAfterQuietWindow(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t, testSettings())

	for _, svc := range a.Services() {
		require.NoError(t, svc.Start(ctx))
	}
	defer func() {
		for i := len(a.Services()) - 1; i >= 0; i-- {
			stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			_ = a.Services()[i].Stop(stopCtx)
			cancel()
		}
	}()

	mustSucceed(t, a, "coding.create_code", `{"name":"Anxiety"}`)
	mustSucceed(t, a, "coding.create_code", `{"name":"Relief"}`)

	deadline := time.Now().Add(2 * time.Second)
	for {
		payload, _, err := a.Store.LatestProjectSnapshot(ctx)
		if err == nil {
			var snapshot map[string]any
			require.NoError(t, json.Unmarshal(payload, &snapshot))
			codes, ok := snapshot["codes"].([]any)
			require.True(t, ok)
			assert.Len(t, codes, 2)
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("no project snapshot written within the deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEventBusHistoryRetainsRecentEvents(t *testing.T) {
	a := newTestApp(t, testSettings())

	mustSucceed(t, a, "coding.create_code", `{"name":"Anxiety"}`)
	mustSucceed(t, a, "coding.create_code", `{"name":"Relief"}`)

	history := a.Bus.History(10)
	require.Len(t, history, 2)
	assert.Equal(t, "coding.code_created", history[0].EventType())
}
