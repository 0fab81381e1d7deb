package coding_test

import (
	"testing"
	"time"

	"github.com/kodexlab/kodex/pkg/coding"
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

func TestDeriveCodeCreation(t *testing.T) {
	empty := &coding.Snapshot{}

	t.Run("CreatesCodeAgainstEmptyState", func(t *testing.T) {
		evt := coding.DeriveCodeCreation(coding.CreateCode{
			Meta: meta(), Name: "Anxiety", Color: "#1F77B4",
		}, empty, idgen.NewSeeded(1))

		created, ok := evt.(coding.CodeCreated)
		require.True(t, ok, "expected CodeCreated, got %T", evt)
		assert.Equal(t, "Anxiety", created.Name)
		assert.NotEmpty(t, created.CodeID)
		assert.Equal(t, meta().IssuedAt, created.OccurredAt())
		assert.False(t, domain.IsFailure(evt))
	})

	t.Run("RejectsDuplicateNameCaseInsensitively", func(t *testing.T) {
		snap := &coding.Snapshot{
			Codes: []coding.Code{{ID: "c1", Name: "anxiety"}},
		}

		evt := coding.DeriveCodeCreation(coding.CreateCode{
			Meta: meta(), Name: "Anxiety",
		}, snap, idgen.NewSeeded(1))

		rejected, ok := evt.(coding.CodeNotCreated)
		require.True(t, ok, "expected CodeNotCreated, got %T", evt)
		assert.Equal(t, "CODE_NOT_CREATED/DUPLICATE_NAME", rejected.ErrorCode())
		assert.NotEmpty(t, rejected.Reason())
		assert.NotEmpty(t, rejected.Suggestions())
	})

	t.Run("RejectsEmptyName", func(t *testing.T) {
		evt := coding.DeriveCodeCreation(coding.CreateCode{Meta: meta()}, empty, idgen.NewSeeded(1))
		f, ok := evt.(domain.FailureEvent)
		require.True(t, ok)
		assert.Equal(t, "CODE_NOT_CREATED/EMPTY_NAME", f.ErrorCode())
	})

	t.Run("FirstFailingInvariantWins", func(t *testing.T) {
		// Empty name and missing category: the cheaper name check decides.
		evt := coding.DeriveCodeCreation(coding.CreateCode{
			Meta: meta(), CategoryID: "missing",
		}, empty, idgen.NewSeeded(1))
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "CODE_NOT_CREATED/EMPTY_NAME", f.ErrorCode())
	})

	t.Run("RejectsUnknownCategory", func(t *testing.T) {
		evt := coding.DeriveCodeCreation(coding.CreateCode{
			Meta: meta(), Name: "Anxiety", CategoryID: "missing",
		}, empty, idgen.NewSeeded(1))
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "CODE_NOT_CREATED/CATEGORY_NOT_FOUND", f.ErrorCode())
	})

	t.Run("RejectsInvalidColor", func(t *testing.T) {
		evt := coding.DeriveCodeCreation(coding.CreateCode{
			Meta: meta(), Name: "Anxiety", Color: "blue-ish",
		}, empty, idgen.NewSeeded(1))
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "CODE_NOT_CREATED/INVALID_COLOR", f.ErrorCode())
	})

	t.Run("KeepsSuppliedIDForUndoRestore", func(t *testing.T) {
		evt := coding.DeriveCodeCreation(coding.CreateCode{
			Meta: meta(), CodeID: "restored-id", Name: "Anxiety",
		}, empty, idgen.NewSeeded(1))
		assert.Equal(t, "restored-id", evt.(coding.CodeCreated).CodeID)
	})

	t.Run("IsPureWithSeededGenerator", func(t *testing.T) {
		cmd := coding.CreateCode{Meta: meta(), Name: "Anxiety"}
		a := coding.DeriveCodeCreation(cmd, empty, idgen.NewSeeded(7))
		b := coding.DeriveCodeCreation(cmd, empty, idgen.NewSeeded(7))
		assert.Equal(t, a, b, "identical inputs must yield structurally equal output")
	})
}

func TestDeriveCodeRename(t *testing.T) {
	snap := &coding.Snapshot{Codes: []coding.Code{
		{ID: "c1", Name: "Anxiety"},
		{ID: "c2", Name: "Hope"},
	}}

	t.Run("RenamesExistingCode", func(t *testing.T) {
		evt := coding.DeriveCodeRename(coding.RenameCode{
			Meta: meta(), CodeID: "c1", NewName: "Acute Anxiety",
		}, snap)

		renamed := evt.(coding.CodeRenamed)
		assert.Equal(t, "Anxiety", renamed.OldName)
		assert.Equal(t, "Acute Anxiety", renamed.NewName)
	})

	t.Run("AllowsCaseOnlyRenameOfItself", func(t *testing.T) {
		evt := coding.DeriveCodeRename(coding.RenameCode{
			Meta: meta(), CodeID: "c1", NewName: "ANXIETY",
		}, snap)
		assert.IsType(t, coding.CodeRenamed{}, evt)
	})

	t.Run("RejectsCollisionWithOtherCode", func(t *testing.T) {
		evt := coding.DeriveCodeRename(coding.RenameCode{
			Meta: meta(), CodeID: "c1", NewName: "hope",
		}, snap)
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "CODE_NOT_RENAMED/DUPLICATE_NAME", f.ErrorCode())
	})

	t.Run("RejectsUnknownCode", func(t *testing.T) {
		evt := coding.DeriveCodeRename(coding.RenameCode{
			Meta: meta(), CodeID: "missing", NewName: "X",
		}, snap)
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "CODE_NOT_RENAMED/NOT_FOUND", f.ErrorCode())
	})
}

func TestDeriveCodeRecolor(t *testing.T) {
	snap := &coding.Snapshot{Codes: []coding.Code{
		{ID: "c1", Name: "Anxiety", Color: "#1F77B4"},
	}}

	t.Run("RecolorsExistingCode", func(t *testing.T) {
		evt := coding.DeriveCodeRecolor(coding.RecolorCode{
			Meta: meta(), CodeID: "c1", NewColor: "#FF7F0E",
		}, snap)

		recolored := evt.(coding.CodeRecolored)
		assert.Equal(t, "#1F77B4", recolored.OldColor)
		assert.Equal(t, "#FF7F0E", recolored.NewColor)
	})

	t.Run("ClearsColorWithEmptyValue", func(t *testing.T) {
		evt := coding.DeriveCodeRecolor(coding.RecolorCode{
			Meta: meta(), CodeID: "c1",
		}, snap)
		assert.Empty(t, evt.(coding.CodeRecolored).NewColor)
	})

	t.Run("RejectsInvalidColor", func(t *testing.T) {
		evt := coding.DeriveCodeRecolor(coding.RecolorCode{
			Meta: meta(), CodeID: "c1", NewColor: "bright blue",
		}, snap)
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "CODE_NOT_RECOLORED/INVALID_COLOR", f.ErrorCode())
	})

	t.Run("RejectsUnknownCode", func(t *testing.T) {
		evt := coding.DeriveCodeRecolor(coding.RecolorCode{
			Meta: meta(), CodeID: "missing", NewColor: "#FF7F0E",
		}, snap)
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "CODE_NOT_RECOLORED/NOT_FOUND", f.ErrorCode())
	})
}

func TestDeriveCodeMove(t *testing.T) {
	snap := &coding.Snapshot{
		Codes:      []coding.Code{{ID: "c1", Name: "Anxiety", CategoryID: "cat1"}},
		Categories: []coding.Category{{ID: "cat1", Name: "Emotions"}, {ID: "cat2", Name: "Context"}},
	}

	t.Run("MovesToAnotherCategory", func(t *testing.T) {
		evt := coding.DeriveCodeMove(coding.MoveCodeToCategory{
			Meta: meta(), CodeID: "c1", CategoryID: "cat2",
		}, snap)

		moved := evt.(coding.CodeMoved)
		assert.Equal(t, "cat1", moved.FromCategoryID)
		assert.Equal(t, "cat2", moved.ToCategoryID)
	})

	t.Run("MovesToRoot", func(t *testing.T) {
		evt := coding.DeriveCodeMove(coding.MoveCodeToCategory{
			Meta: meta(), CodeID: "c1",
		}, snap)
		assert.Empty(t, evt.(coding.CodeMoved).ToCategoryID)
	})

	t.Run("RejectsUnknownCategory", func(t *testing.T) {
		evt := coding.DeriveCodeMove(coding.MoveCodeToCategory{
			Meta: meta(), CodeID: "c1", CategoryID: "missing",
		}, snap)
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "CODE_NOT_MOVED/CATEGORY_NOT_FOUND", f.ErrorCode())
	})

	t.Run("RejectsUnknownCode", func(t *testing.T) {
		evt := coding.DeriveCodeMove(coding.MoveCodeToCategory{
			Meta: meta(), CodeID: "missing", CategoryID: "cat2",
		}, snap)
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "CODE_NOT_MOVED/NOT_FOUND", f.ErrorCode())
	})
}

func TestDeriveCodeDeletion(t *testing.T) {
	snap := &coding.Snapshot{Codes: []coding.Code{
		{ID: "c1", Name: "Anxiety", Color: "#1F77B4", CategoryID: "cat1"},
	}}

	t.Run("CarriesFormerStateForUndo", func(t *testing.T) {
		evt := coding.DeriveCodeDeletion(coding.DeleteCode{Meta: meta(), CodeID: "c1"}, snap)
		deleted := evt.(coding.CodeDeleted)
		assert.Equal(t, "Anxiety", deleted.Name)
		assert.Equal(t, "#1F77B4", deleted.Color)
		assert.Equal(t, "cat1", deleted.CategoryID)
	})

	t.Run("RejectsUnknownCode", func(t *testing.T) {
		evt := coding.DeriveCodeDeletion(coding.DeleteCode{Meta: meta(), CodeID: "nope"}, snap)
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "CODE_NOT_DELETED/NOT_FOUND", f.ErrorCode())
	})
}

func TestDeriveCategoryMove(t *testing.T) {
	// root <- a <- b <- c
	snap := &coding.Snapshot{Categories: []coding.Category{
		{ID: "a", Name: "A"},
		{ID: "b", Name: "B", ParentID: "a"},
		{ID: "c", Name: "C", ParentID: "b"},
	}}

	t.Run("MovesToSibling", func(t *testing.T) {
		evt := coding.DeriveCategoryMove(coding.MoveCategory{
			Meta: meta(), CategoryID: "c", NewParentID: "a",
		}, snap)
		moved := evt.(coding.CategoryMoved)
		assert.Equal(t, "b", moved.FromParentID)
		assert.Equal(t, "a", moved.ToParentID)
	})

	t.Run("MovesToRoot", func(t *testing.T) {
		evt := coding.DeriveCategoryMove(coding.MoveCategory{
			Meta: meta(), CategoryID: "b",
		}, snap)
		assert.IsType(t, coding.CategoryMoved{}, evt)
	})

	t.Run("RejectsCycle", func(t *testing.T) {
		evt := coding.DeriveCategoryMove(coding.MoveCategory{
			Meta: meta(), CategoryID: "a", NewParentID: "c",
		}, snap)
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "CATEGORY_NOT_MOVED/CYCLE", f.ErrorCode())
	})

	t.Run("RejectsSelfParent", func(t *testing.T) {
		evt := coding.DeriveCategoryMove(coding.MoveCategory{
			Meta: meta(), CategoryID: "a", NewParentID: "a",
		}, snap)
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "CATEGORY_NOT_MOVED/CYCLE", f.ErrorCode())
	})
}

func TestDeriveCategoryDeletion(t *testing.T) {
	snap := &coding.Snapshot{
		Categories: []coding.Category{
			{ID: "a", Name: "A"},
			{ID: "b", Name: "B", ParentID: "a"},
			{ID: "empty", Name: "Empty"},
		},
		Codes: []coding.Code{{ID: "c1", Name: "Anxiety", CategoryID: "b"}},
	}

	t.Run("DeletesEmptyCategory", func(t *testing.T) {
		evt := coding.DeriveCategoryDeletion(coding.DeleteCategory{Meta: meta(), CategoryID: "empty"}, snap)
		assert.IsType(t, coding.CategoryDeleted{}, evt)
	})

	t.Run("RejectsCategoryWithChildren", func(t *testing.T) {
		evt := coding.DeriveCategoryDeletion(coding.DeleteCategory{Meta: meta(), CategoryID: "a"}, snap)
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "CATEGORY_NOT_DELETED/NOT_EMPTY", f.ErrorCode())
	})

	t.Run("RejectsCategoryWithCodes", func(t *testing.T) {
		evt := coding.DeriveCategoryDeletion(coding.DeleteCategory{Meta: meta(), CategoryID: "b"}, snap)
		f := evt.(domain.FailureEvent)
		assert.Equal(t, "CATEGORY_NOT_DELETED/NOT_EMPTY", f.ErrorCode())
	})
}
