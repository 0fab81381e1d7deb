package approval_test

import (
	"testing"
	"time"

	"github.com/kodexlab/kodex/pkg/approval"
	"github.com/kodexlab/kodex/pkg/domain"
	"github.com/kodexlab/kodex/pkg/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCommand struct {
	typ string
	cat string
}

func (c stubCommand) CommandType() string { return c.typ }
func (c stubCommand) Category() string    { return c.cat }

func okCommit(ran *int) func() *domain.OperationResult {
	return func() *domain.OperationResult {
		*ran++
		return domain.SuccessResult(map[string]any{"done": true}, nil)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]approval.Level{
		"":                 approval.LevelAuto,
		"auto":             approval.LevelAuto,
		"Notify":           approval.LevelNotify,
		"require":          approval.LevelRequire,
		"require-approval": approval.LevelRequire,
	} {
		got, err := approval.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := approval.ParseLevel("paranoid")
	assert.Error(t, err)
}

func TestAutoLevelRunsImmediately(t *testing.T) {
	bus := eventbus.New()
	var published []domain.Event
	bus.SubscribeAll(func(evt domain.Event) { published = append(published, evt) })

	gate := approval.NewGate(approval.Settings{Default: approval.LevelAuto}, bus)

	ran := 0
	res := gate.Execute(stubCommand{"coding.create_code", "coding.write"}, okCommit(&ran))

	assert.True(t, res.Success)
	assert.Equal(t, 1, ran)
	assert.Empty(t, published, "auto level emits no approval events")
	assert.Empty(t, gate.Pending())
}

func TestNotifyLevelRunsAndAnnounces(t *testing.T) {
	bus := eventbus.New()
	var published []domain.Event
	bus.SubscribeAll(func(evt domain.Event) { published = append(published, evt) })

	gate := approval.NewGate(approval.Settings{
		Default: approval.LevelAuto,
		Levels:  map[string]approval.Level{"coding.write": approval.LevelNotify},
	}, bus)

	ran := 0
	res := gate.Execute(stubCommand{"coding.create_code", "coding.write"}, okCommit(&ran))

	assert.True(t, res.Success)
	assert.Equal(t, 1, ran)
	require.Len(t, published, 1)
	assert.Equal(t, approval.EventTypeOperationExecuted, published[0].EventType())
}

func TestNotifyLevelStaysSilentOnFailure(t *testing.T) {
	bus := eventbus.New()
	var published []domain.Event
	bus.SubscribeAll(func(evt domain.Event) { published = append(published, evt) })

	gate := approval.NewGate(approval.Settings{Default: approval.LevelNotify}, bus)

	res := gate.Execute(stubCommand{"coding.create_code", "coding.write"}, func() *domain.OperationResult {
		return domain.InfrastructureFailure(domain.CodePersistence)
	})

	assert.False(t, res.Success)
	assert.Empty(t, published, "failed commits are not announced")
}

func TestRequireLevelHoldsAndApproveResumes(t *testing.T) {
	bus := eventbus.New()
	var published []domain.Event
	bus.SubscribeAll(func(evt domain.Event) { published = append(published, evt) })

	gate := approval.NewGate(approval.Settings{Default: approval.LevelRequire}, bus)

	ran := 0
	res := gate.Execute(stubCommand{"coding.delete_code", "coding.destructive"}, okCommit(&ran))

	require.True(t, res.Pending)
	require.NotEmpty(t, res.PendingID)
	assert.Equal(t, 0, ran, "held commit must not run")

	pending := gate.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, res.PendingID, pending[0].PendingID)
	assert.Equal(t, "coding.delete_code", pending[0].CommandType)

	final, err := gate.Approve(res.PendingID)
	require.NoError(t, err)
	assert.True(t, final.Success)
	assert.Equal(t, 1, ran)
	assert.Empty(t, gate.Pending())

	require.Len(t, published, 2)
	assert.Equal(t, approval.EventTypeOperationHeld, published[0].EventType())
	assert.Equal(t, approval.EventTypeOperationApproved, published[1].EventType())
}

func TestRejectNeverRunsCommit(t *testing.T) {
	bus := eventbus.New()
	var published []domain.Event
	bus.SubscribeAll(func(evt domain.Event) { published = append(published, evt) })

	gate := approval.NewGate(approval.Settings{Default: approval.LevelRequire}, bus)

	ran := 0
	res := gate.Execute(stubCommand{"coding.delete_code", "coding.destructive"}, okCommit(&ran))
	require.True(t, res.Pending)

	require.NoError(t, gate.Reject(res.PendingID))
	assert.Equal(t, 0, ran)
	assert.Empty(t, gate.Pending())
	assert.Equal(t, approval.EventTypeOperationRejected, published[len(published)-1].EventType())
}

func TestApproveUnknownPendingID(t *testing.T) {
	gate := approval.NewGate(approval.Settings{}, eventbus.New())

	_, err := gate.Approve("nope")
	assert.ErrorIs(t, err, domain.ErrPendingNotFound)
	assert.ErrorIs(t, gate.Reject("nope"), domain.ErrPendingNotFound)
}

func TestApproveIsOneShot(t *testing.T) {
	gate := approval.NewGate(approval.Settings{Default: approval.LevelRequire}, eventbus.New())

	ran := 0
	res := gate.Execute(stubCommand{"coding.delete_code", "coding.destructive"}, okCommit(&ran))

	_, err := gate.Approve(res.PendingID)
	require.NoError(t, err)

	_, err = gate.Approve(res.PendingID)
	assert.ErrorIs(t, err, domain.ErrPendingNotFound)
	assert.Equal(t, 1, ran)
}

func TestPendingSortedOldestFirst(t *testing.T) {
	gate := approval.NewGate(approval.Settings{Default: approval.LevelRequire}, eventbus.New())

	var ids []string
	for _, typ := range []string{"a", "b", "c"} {
		res := gate.Execute(stubCommand{typ, "coding.destructive"}, okCommit(new(int)))
		ids = append(ids, res.PendingID)
		time.Sleep(time.Millisecond)
	}

	pending := gate.Pending()
	require.Len(t, pending, 3)
	for i, p := range pending {
		assert.Equal(t, ids[i], p.PendingID)
	}
}
