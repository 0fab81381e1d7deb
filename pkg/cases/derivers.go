package cases

import (
	"fmt"

	"github.com/kodexlab/kodex/pkg/idgen"
)

// Derivers are pure functions (command, snapshot) -> event. Timestamps
// come from command metadata, identities from the injected generator,
// and the first failing invariant selects the failure event.

// DeriveCaseCreation validates CreateCase against the snapshot.
func DeriveCaseCreation(cmd CreateCase, snap *Snapshot, ids idgen.Generator) Event {
	reject := func(reason, cause string, hints ...string) CaseNotCreated {
		return CaseNotCreated{
			Name: cmd.Name,
			Rejection: Rejection{
				Code:    "CASE_NOT_CREATED/" + reason,
				Cause:   cause,
				Hints:   hints,
				Subject: cmd.CaseID,
				At:      cmd.Meta.IssuedAt,
			},
		}
	}

	if !NameProvided(cmd.Name) {
		return reject("EMPTY_NAME", "a case needs a name",
			"provide a non-empty name")
	}
	if !NameWithinLimit(cmd.Name) {
		return reject("NAME_TOO_LONG",
			fmt.Sprintf("case names are limited to %d characters", MaxNameLength),
			"shorten the name")
	}
	if !CaseNameIsUnique(cmd.Name, snap, "") {
		return reject("DUPLICATE_NAME",
			fmt.Sprintf("a case named %q already exists (names are case-insensitive)", cmd.Name),
			"pick a different name")
	}
	for _, srcID := range cmd.SourceIDs {
		if !snap.HasSource(srcID) {
			return reject("SOURCE_NOT_FOUND",
				fmt.Sprintf("source %q does not exist", srcID),
				"add the source first")
		}
	}

	id := cmd.CaseID
	if id == "" {
		id = ids.NewID()
	}
	return CaseCreated{
		CaseID:    id,
		Name:      cmd.Name,
		SourceIDs: cmd.SourceIDs,
		At:        cmd.Meta.IssuedAt,
	}
}

// DeriveCaseRename validates RenameCase against the snapshot.
func DeriveCaseRename(cmd RenameCase, snap *Snapshot) Event {
	reject := func(reason, cause string, hints ...string) CaseNotRenamed {
		return CaseNotRenamed{
			CaseID:  cmd.CaseID,
			NewName: cmd.NewName,
			Rejection: Rejection{
				Code:    "CASE_NOT_RENAMED/" + reason,
				Cause:   cause,
				Hints:   hints,
				Subject: cmd.CaseID,
				At:      cmd.Meta.IssuedAt,
			},
		}
	}

	c, ok := snap.CaseByID(cmd.CaseID)
	if !ok {
		return reject("NOT_FOUND",
			fmt.Sprintf("case %q does not exist", cmd.CaseID),
			"refresh the case list")
	}
	if !NameProvided(cmd.NewName) {
		return reject("EMPTY_NAME", "a case needs a name",
			"provide a non-empty name")
	}
	if !NameWithinLimit(cmd.NewName) {
		return reject("NAME_TOO_LONG",
			fmt.Sprintf("case names are limited to %d characters", MaxNameLength),
			"shorten the name")
	}
	if !CaseNameIsUnique(cmd.NewName, snap, cmd.CaseID) {
		return reject("DUPLICATE_NAME",
			fmt.Sprintf("a case named %q already exists (names are case-insensitive)", cmd.NewName),
			"pick a different name")
	}

	return CaseRenamed{
		CaseID:  cmd.CaseID,
		OldName: c.Name,
		NewName: cmd.NewName,
		At:      cmd.Meta.IssuedAt,
	}
}

// DeriveCaseDeletion validates DeleteCase against the snapshot.
func DeriveCaseDeletion(cmd DeleteCase, snap *Snapshot) Event {
	c, ok := snap.CaseByID(cmd.CaseID)
	if !ok {
		return CaseNotDeleted{
			CaseID: cmd.CaseID,
			Rejection: Rejection{
				Code:    "CASE_NOT_DELETED/NOT_FOUND",
				Cause:   fmt.Sprintf("case %q does not exist", cmd.CaseID),
				Hints:   []string{"refresh the case list"},
				Subject: cmd.CaseID,
				At:      cmd.Meta.IssuedAt,
			},
		}
	}

	return CaseDeleted{
		CaseID:    c.ID,
		Name:      c.Name,
		SourceIDs: c.SourceIDs,
		At:        cmd.Meta.IssuedAt,
	}
}

// DeriveSourceLink validates LinkSource against the snapshot.
func DeriveSourceLink(cmd LinkSource, snap *Snapshot) Event {
	reject := func(reason, cause string, hints ...string) SourceNotLinked {
		return SourceNotLinked{
			CaseID:   cmd.CaseID,
			SourceID: cmd.SourceID,
			Rejection: Rejection{
				Code:    "SOURCE_NOT_LINKED/" + reason,
				Cause:   cause,
				Hints:   hints,
				Subject: cmd.CaseID,
				At:      cmd.Meta.IssuedAt,
			},
		}
	}

	c, ok := snap.CaseByID(cmd.CaseID)
	if !ok {
		return reject("CASE_NOT_FOUND",
			fmt.Sprintf("case %q does not exist", cmd.CaseID),
			"refresh the case list")
	}
	if !snap.HasSource(cmd.SourceID) {
		return reject("SOURCE_NOT_FOUND",
			fmt.Sprintf("source %q does not exist", cmd.SourceID),
			"add the source first")
	}
	if c.HasSource(cmd.SourceID) {
		return reject("ALREADY_LINKED",
			fmt.Sprintf("source %q is already linked to case %q", cmd.SourceID, c.Name),
			"nothing to do")
	}

	return SourceLinked{
		CaseID:   cmd.CaseID,
		SourceID: cmd.SourceID,
		At:       cmd.Meta.IssuedAt,
	}
}

// DeriveSourceUnlink validates UnlinkSource against the snapshot.
func DeriveSourceUnlink(cmd UnlinkSource, snap *Snapshot) Event {
	reject := func(reason, cause string, hints ...string) SourceNotUnlinked {
		return SourceNotUnlinked{
			CaseID:   cmd.CaseID,
			SourceID: cmd.SourceID,
			Rejection: Rejection{
				Code:    "SOURCE_NOT_UNLINKED/" + reason,
				Cause:   cause,
				Hints:   hints,
				Subject: cmd.CaseID,
				At:      cmd.Meta.IssuedAt,
			},
		}
	}

	c, ok := snap.CaseByID(cmd.CaseID)
	if !ok {
		return reject("CASE_NOT_FOUND",
			fmt.Sprintf("case %q does not exist", cmd.CaseID),
			"refresh the case list")
	}
	if !c.HasSource(cmd.SourceID) {
		return reject("NOT_LINKED",
			fmt.Sprintf("source %q is not linked to case %q", cmd.SourceID, c.Name),
			"refresh the case contents")
	}

	return SourceUnlinked{
		CaseID:   cmd.CaseID,
		SourceID: cmd.SourceID,
		At:       cmd.Meta.IssuedAt,
	}
}

// DeriveSourceUnlinkEverywhere collects the cases linking the source.
// Matching zero cases still derives a success so cascades are
// idempotent.
func DeriveSourceUnlinkEverywhere(cmd UnlinkSourceEverywhere, snap *Snapshot) Event {
	var caseIDs []string
	for _, c := range snap.Cases {
		if c.HasSource(cmd.SourceID) {
			caseIDs = append(caseIDs, c.ID)
		}
	}

	return SourceUnlinkedEverywhere{
		SourceID: cmd.SourceID,
		CaseIDs:  caseIDs,
		At:       cmd.Meta.IssuedAt,
	}
}
