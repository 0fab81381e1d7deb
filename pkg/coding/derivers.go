package coding

import (
	"fmt"

	"github.com/kodexlab/kodex/pkg/idgen"
)

// Derivers are pure functions (command, snapshot) -> event. They perform
// no I/O and read no clock: timestamps come from command metadata and
// identities from the injected generator. Invariants run cheapest-first;
// the first failing one selects the failure event.

// DeriveCodeCreation validates CreateCode against the snapshot.
func DeriveCodeCreation(cmd CreateCode, snap *Snapshot, ids idgen.Generator) Event {
	reject := func(reason, cause string, hints ...string) CodeNotCreated {
		return CodeNotCreated{
			Name: cmd.Name,
			Rejection: Rejection{
				Code:    "CODE_NOT_CREATED/" + reason,
				Cause:   cause,
				Hints:   hints,
				Subject: cmd.CodeID,
				At:      cmd.Meta.IssuedAt,
			},
		}
	}

	if !NameProvided(cmd.Name) {
		return reject("EMPTY_NAME", "a code needs a name",
			"provide a non-empty name")
	}
	if !NameWithinLimit(cmd.Name) {
		return reject("NAME_TOO_LONG",
			fmt.Sprintf("code names are limited to %d characters", MaxNameLength),
			"shorten the name")
	}
	if !ColorIsValid(cmd.Color) {
		return reject("INVALID_COLOR",
			fmt.Sprintf("%q is not a hex color", cmd.Color),
			"use a value like #1F77B4", "omit the color to leave it unset")
	}
	if !CodeNameIsUnique(cmd.Name, snap, "") {
		return reject("DUPLICATE_NAME",
			fmt.Sprintf("a code named %q already exists (names are case-insensitive)", cmd.Name),
			"pick a different name", "rename the existing code first")
	}
	if cmd.CategoryID != "" && !CategoryExists(cmd.CategoryID, snap) {
		return reject("CATEGORY_NOT_FOUND",
			fmt.Sprintf("category %q does not exist", cmd.CategoryID),
			"create the category first", "omit the category to file the code at the root")
	}

	id := cmd.CodeID
	if id == "" {
		id = ids.NewID()
	}
	return CodeCreated{
		CodeID:     id,
		Name:       cmd.Name,
		Color:      cmd.Color,
		CategoryID: cmd.CategoryID,
		At:         cmd.Meta.IssuedAt,
	}
}

// DeriveCodeRename validates RenameCode against the snapshot.
func DeriveCodeRename(cmd RenameCode, snap *Snapshot) Event {
	reject := func(reason, cause string, hints ...string) CodeNotRenamed {
		return CodeNotRenamed{
			CodeID:  cmd.CodeID,
			NewName: cmd.NewName,
			Rejection: Rejection{
				Code:    "CODE_NOT_RENAMED/" + reason,
				Cause:   cause,
				Hints:   hints,
				Subject: cmd.CodeID,
				At:      cmd.Meta.IssuedAt,
			},
		}
	}

	code, ok := snap.CodeByID(cmd.CodeID)
	if !ok {
		return reject("NOT_FOUND",
			fmt.Sprintf("code %q does not exist", cmd.CodeID),
			"refresh the code list")
	}
	if !NameProvided(cmd.NewName) {
		return reject("EMPTY_NAME", "a code needs a name",
			"provide a non-empty name")
	}
	if !NameWithinLimit(cmd.NewName) {
		return reject("NAME_TOO_LONG",
			fmt.Sprintf("code names are limited to %d characters", MaxNameLength),
			"shorten the name")
	}
	if !CodeNameIsUnique(cmd.NewName, snap, cmd.CodeID) {
		return reject("DUPLICATE_NAME",
			fmt.Sprintf("a code named %q already exists (names are case-insensitive)", cmd.NewName),
			"pick a different name")
	}

	return CodeRenamed{
		CodeID:  cmd.CodeID,
		OldName: code.Name,
		NewName: cmd.NewName,
		At:      cmd.Meta.IssuedAt,
	}
}

// DeriveCodeRecolor validates RecolorCode against the snapshot.
func DeriveCodeRecolor(cmd RecolorCode, snap *Snapshot) Event {
	reject := func(reason, cause string, hints ...string) CodeNotRecolored {
		return CodeNotRecolored{
			CodeID:   cmd.CodeID,
			NewColor: cmd.NewColor,
			Rejection: Rejection{
				Code:    "CODE_NOT_RECOLORED/" + reason,
				Cause:   cause,
				Hints:   hints,
				Subject: cmd.CodeID,
				At:      cmd.Meta.IssuedAt,
			},
		}
	}

	code, ok := snap.CodeByID(cmd.CodeID)
	if !ok {
		return reject("NOT_FOUND",
			fmt.Sprintf("code %q does not exist", cmd.CodeID),
			"refresh the code list")
	}
	if !ColorIsValid(cmd.NewColor) {
		return reject("INVALID_COLOR",
			fmt.Sprintf("%q is not a hex color", cmd.NewColor),
			"use a value like #1F77B4", "send an empty color to clear it")
	}

	return CodeRecolored{
		CodeID:   cmd.CodeID,
		OldColor: code.Color,
		NewColor: cmd.NewColor,
		At:       cmd.Meta.IssuedAt,
	}
}

// DeriveCodeMove validates MoveCodeToCategory against the snapshot.
func DeriveCodeMove(cmd MoveCodeToCategory, snap *Snapshot) Event {
	reject := func(reason, cause string, hints ...string) CodeNotMoved {
		return CodeNotMoved{
			CodeID: cmd.CodeID,
			Rejection: Rejection{
				Code:    "CODE_NOT_MOVED/" + reason,
				Cause:   cause,
				Hints:   hints,
				Subject: cmd.CodeID,
				At:      cmd.Meta.IssuedAt,
			},
		}
	}

	code, ok := snap.CodeByID(cmd.CodeID)
	if !ok {
		return reject("NOT_FOUND",
			fmt.Sprintf("code %q does not exist", cmd.CodeID),
			"refresh the code list")
	}
	if cmd.CategoryID != "" && !CategoryExists(cmd.CategoryID, snap) {
		return reject("CATEGORY_NOT_FOUND",
			fmt.Sprintf("category %q does not exist", cmd.CategoryID),
			"create the category first", "omit the category to file the code at the root")
	}

	return CodeMoved{
		CodeID:         cmd.CodeID,
		FromCategoryID: code.CategoryID,
		ToCategoryID:   cmd.CategoryID,
		At:             cmd.Meta.IssuedAt,
	}
}

// DeriveCodeDeletion validates DeleteCode against the snapshot.
func DeriveCodeDeletion(cmd DeleteCode, snap *Snapshot) Event {
	code, ok := snap.CodeByID(cmd.CodeID)
	if !ok {
		return CodeNotDeleted{
			CodeID: cmd.CodeID,
			Rejection: Rejection{
				Code:    "CODE_NOT_DELETED/NOT_FOUND",
				Cause:   fmt.Sprintf("code %q does not exist", cmd.CodeID),
				Hints:   []string{"refresh the code list"},
				Subject: cmd.CodeID,
				At:      cmd.Meta.IssuedAt,
			},
		}
	}

	return CodeDeleted{
		CodeID:     code.ID,
		Name:       code.Name,
		Color:      code.Color,
		CategoryID: code.CategoryID,
		At:         cmd.Meta.IssuedAt,
	}
}

// DeriveCategoryCreation validates CreateCategory against the snapshot.
func DeriveCategoryCreation(cmd CreateCategory, snap *Snapshot, ids idgen.Generator) Event {
	reject := func(reason, cause string, hints ...string) CategoryNotCreated {
		return CategoryNotCreated{
			Name: cmd.Name,
			Rejection: Rejection{
				Code:    "CATEGORY_NOT_CREATED/" + reason,
				Cause:   cause,
				Hints:   hints,
				Subject: cmd.CategoryID,
				At:      cmd.Meta.IssuedAt,
			},
		}
	}

	if !NameProvided(cmd.Name) {
		return reject("EMPTY_NAME", "a category needs a name",
			"provide a non-empty name")
	}
	if !NameWithinLimit(cmd.Name) {
		return reject("NAME_TOO_LONG",
			fmt.Sprintf("category names are limited to %d characters", MaxNameLength),
			"shorten the name")
	}
	if !CategoryNameIsUnique(cmd.Name, snap, "") {
		return reject("DUPLICATE_NAME",
			fmt.Sprintf("a category named %q already exists (names are case-insensitive)", cmd.Name),
			"pick a different name")
	}
	if cmd.ParentID != "" && !CategoryExists(cmd.ParentID, snap) {
		return reject("PARENT_NOT_FOUND",
			fmt.Sprintf("parent category %q does not exist", cmd.ParentID),
			"create the parent first", "omit the parent to create a root category")
	}

	id := cmd.CategoryID
	if id == "" {
		id = ids.NewID()
	}
	return CategoryCreated{
		CategoryID: id,
		Name:       cmd.Name,
		ParentID:   cmd.ParentID,
		At:         cmd.Meta.IssuedAt,
	}
}

// DeriveCategoryMove validates MoveCategory against the snapshot.
func DeriveCategoryMove(cmd MoveCategory, snap *Snapshot) Event {
	reject := func(reason, cause string, hints ...string) CategoryNotMoved {
		return CategoryNotMoved{
			CategoryID: cmd.CategoryID,
			Rejection: Rejection{
				Code:    "CATEGORY_NOT_MOVED/" + reason,
				Cause:   cause,
				Hints:   hints,
				Subject: cmd.CategoryID,
				At:      cmd.Meta.IssuedAt,
			},
		}
	}

	cat, ok := snap.CategoryByID(cmd.CategoryID)
	if !ok {
		return reject("NOT_FOUND",
			fmt.Sprintf("category %q does not exist", cmd.CategoryID),
			"refresh the category tree")
	}
	if cmd.NewParentID != "" && !CategoryExists(cmd.NewParentID, snap) {
		return reject("PARENT_NOT_FOUND",
			fmt.Sprintf("parent category %q does not exist", cmd.NewParentID),
			"refresh the category tree")
	}
	if !MoveKeepsTreeAcyclic(cmd.CategoryID, cmd.NewParentID, snap) {
		return reject("CYCLE",
			"moving a category under its own descendant would create a cycle",
			"choose a parent outside the category's subtree")
	}

	return CategoryMoved{
		CategoryID:   cmd.CategoryID,
		FromParentID: cat.ParentID,
		ToParentID:   cmd.NewParentID,
		At:           cmd.Meta.IssuedAt,
	}
}

// DeriveCategoryDeletion validates DeleteCategory against the snapshot.
func DeriveCategoryDeletion(cmd DeleteCategory, snap *Snapshot) Event {
	reject := func(reason, cause string, hints ...string) CategoryNotDeleted {
		return CategoryNotDeleted{
			CategoryID: cmd.CategoryID,
			Rejection: Rejection{
				Code:    "CATEGORY_NOT_DELETED/" + reason,
				Cause:   cause,
				Hints:   hints,
				Subject: cmd.CategoryID,
				At:      cmd.Meta.IssuedAt,
			},
		}
	}

	cat, ok := snap.CategoryByID(cmd.CategoryID)
	if !ok {
		return reject("NOT_FOUND",
			fmt.Sprintf("category %q does not exist", cmd.CategoryID),
			"refresh the category tree")
	}
	if !CategoryIsEmpty(cmd.CategoryID, snap) {
		return reject("NOT_EMPTY",
			fmt.Sprintf("category %q still contains codes or subcategories", cat.Name),
			"move or delete its contents first")
	}

	return CategoryDeleted{
		CategoryID: cat.ID,
		Name:       cat.Name,
		ParentID:   cat.ParentID,
		At:         cmd.Meta.IssuedAt,
	}
}
