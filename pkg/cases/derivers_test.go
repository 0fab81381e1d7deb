package cases_test

import (
	"testing"
	"time"

	"github.com/kodexlab/kodex/pkg/cases"
	"github.com/kodexlab/kodex/pkg/domain"
	"github.com/kodexlab/kodex/pkg/idgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func meta() domain.Meta {
	return domain.Meta{
		CommandID:     "cmd-1",
		CorrelationID: "corr-1",
		IssuedAt:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDeriveCaseCreation(t *testing.T) {
	snap := &cases.Snapshot{
		Cases:     []cases.Case{{ID: "k1", Name: "participant 01"}},
		SourceIDs: []string{"s1", "s2"},
	}

	t.Run("CreatesCase", func(t *testing.T) {
		evt := cases.DeriveCaseCreation(cases.CreateCase{
			Meta: meta(), Name: "Participant 02", SourceIDs: []string{"s1"},
		}, snap, idgen.NewSeeded(1))

		created, ok := evt.(cases.CaseCreated)
		require.True(t, ok, "expected CaseCreated, got %T", evt)
		assert.NotEmpty(t, created.CaseID)
		assert.Equal(t, []string{"s1"}, created.SourceIDs)
	})

	t.Run("RejectsDuplicateNameCaseInsensitively", func(t *testing.T) {
		evt := cases.DeriveCaseCreation(cases.CreateCase{
			Meta: meta(), Name: "PARTICIPANT 01",
		}, snap, idgen.NewSeeded(1))
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "CASE_NOT_CREATED/DUPLICATE_NAME", f.ErrorCode())
	})

	t.Run("RejectsUnknownInitialSource", func(t *testing.T) {
		evt := cases.DeriveCaseCreation(cases.CreateCase{
			Meta: meta(), Name: "Participant 02", SourceIDs: []string{"missing"},
		}, snap, idgen.NewSeeded(1))
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "CASE_NOT_CREATED/SOURCE_NOT_FOUND", f.ErrorCode())
	})

	t.Run("RejectsEmptyName", func(t *testing.T) {
		evt := cases.DeriveCaseCreation(cases.CreateCase{Meta: meta()}, snap, idgen.NewSeeded(1))
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "CASE_NOT_CREATED/EMPTY_NAME", f.ErrorCode())
	})
}

func TestDeriveSourceLink(t *testing.T) {
	snap := &cases.Snapshot{
		Cases: []cases.Case{
			{ID: "k1", Name: "Participant 01", SourceIDs: []string{"s1"}},
		},
		SourceIDs: []string{"s1", "s2"},
	}

	t.Run("LinksSource", func(t *testing.T) {
		evt := cases.DeriveSourceLink(cases.LinkSource{
			Meta: meta(), CaseID: "k1", SourceID: "s2",
		}, snap)
		linked := evt.(cases.SourceLinked)
		assert.Equal(t, "k1", linked.CaseID)
		assert.Equal(t, "s2", linked.SourceID)
	})

	t.Run("RejectsAlreadyLinked", func(t *testing.T) {
		evt := cases.DeriveSourceLink(cases.LinkSource{
			Meta: meta(), CaseID: "k1", SourceID: "s1",
		}, snap)
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "SOURCE_NOT_LINKED/ALREADY_LINKED", f.ErrorCode())
	})

	t.Run("RejectsUnknownCase", func(t *testing.T) {
		evt := cases.DeriveSourceLink(cases.LinkSource{
			Meta: meta(), CaseID: "missing", SourceID: "s1",
		}, snap)
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "SOURCE_NOT_LINKED/CASE_NOT_FOUND", f.ErrorCode())
	})

	t.Run("RejectsUnknownSource", func(t *testing.T) {
		evt := cases.DeriveSourceLink(cases.LinkSource{
			Meta: meta(), CaseID: "k1", SourceID: "missing",
		}, snap)
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "SOURCE_NOT_LINKED/SOURCE_NOT_FOUND", f.ErrorCode())
	})
}

func TestDeriveSourceUnlink(t *testing.T) {
	snap := &cases.Snapshot{
		Cases: []cases.Case{
			{ID: "k1", Name: "Participant 01", SourceIDs: []string{"s1"}},
		},
		SourceIDs: []string{"s1"},
	}

	t.Run("UnlinksSource", func(t *testing.T) {
		evt := cases.DeriveSourceUnlink(cases.UnlinkSource{
			Meta: meta(), CaseID: "k1", SourceID: "s1",
		}, snap)
		assert.IsType(t, cases.SourceUnlinked{}, evt)
	})

	t.Run("RejectsNotLinked", func(t *testing.T) {
		evt := cases.DeriveSourceUnlink(cases.UnlinkSource{
			Meta: meta(), CaseID: "k1", SourceID: "s9",
		}, snap)
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "SOURCE_NOT_UNLINKED/NOT_LINKED", f.ErrorCode())
	})
}

func TestDeriveSourceUnlinkEverywhere(t *testing.T) {
	snap := &cases.Snapshot{Cases: []cases.Case{
		{ID: "k1", SourceIDs: []string{"s1", "s2"}},
		{ID: "k2", SourceIDs: []string{"s2"}},
		{ID: "k3", SourceIDs: []string{"s1"}},
	}}

	t.Run("CollectsEveryLinkingCase", func(t *testing.T) {
		evt := cases.DeriveSourceUnlinkEverywhere(cases.UnlinkSourceEverywhere{
			Meta: meta(), SourceID: "s1",
		}, snap)
		unlinked := evt.(cases.SourceUnlinkedEverywhere)
		assert.ElementsMatch(t, []string{"k1", "k3"}, unlinked.CaseIDs)
	})

	t.Run("ZeroMatchesIsStillSuccess", func(t *testing.T) {
		evt := cases.DeriveSourceUnlinkEverywhere(cases.UnlinkSourceEverywhere{
			Meta: meta(), SourceID: "unlinked",
		}, snap)
		unlinked, ok := evt.(cases.SourceUnlinkedEverywhere)
		require.True(t, ok, "idempotent unlink must not fail")
		assert.Empty(t, unlinked.CaseIDs)
	})
}

func TestDeriveCaseDeletionCarriesLinks(t *testing.T) {
	snap := &cases.Snapshot{Cases: []cases.Case{
		{ID: "k1", Name: "Participant 01", SourceIDs: []string{"s1", "s2"}},
	}}

	evt := cases.DeriveCaseDeletion(cases.DeleteCase{Meta: meta(), CaseID: "k1"}, snap)
	deleted := evt.(cases.CaseDeleted)
	assert.Equal(t, []string{"s1", "s2"}, deleted.SourceIDs)
}
