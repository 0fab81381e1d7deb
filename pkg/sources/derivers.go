package sources

import (
	"fmt"

	"github.com/kodexlab/kodex/pkg/idgen"
)

// Derivers are pure functions (command, snapshot) -> event. Timestamps
// come from command metadata, identities from the injected generator,
// and the first failing invariant selects the failure event.

// DeriveSourceAddition validates AddSource against the snapshot.
func DeriveSourceAddition(cmd AddSource, snap *Snapshot, ids idgen.Generator) Event {
	reject := func(reason, cause string, hints ...string) SourceNotAdded {
		return SourceNotAdded{
			Name: cmd.Name,
			Path: cmd.Path,
			Rejection: Rejection{
				Code:    "SOURCE_NOT_ADDED/" + reason,
				Cause:   cause,
				Hints:   hints,
				Subject: cmd.SourceID,
				At:      cmd.Meta.IssuedAt,
			},
		}
	}

	if !NameProvided(cmd.Name) {
		return reject("EMPTY_NAME", "a source needs a name",
			"provide a non-empty name")
	}
	if !NameWithinLimit(cmd.Name) {
		return reject("NAME_TOO_LONG",
			fmt.Sprintf("source names are limited to %d characters", MaxNameLength),
			"shorten the name")
	}
	if cmd.Path == "" {
		return reject("EMPTY_PATH", "a source needs a file path",
			"provide the path of the document or media file")
	}
	if !PathIsUnique(cmd.Path, snap, "") {
		return reject("DUPLICATE_PATH",
			fmt.Sprintf("a source already imports %q", cmd.Path),
			"the file is already in the project")
	}
	if cmd.Length < 0 {
		return reject("NEGATIVE_LENGTH",
			"a source length cannot be negative",
			"omit the length when it is unknown")
	}

	id := cmd.SourceID
	if id == "" {
		id = ids.NewID()
	}
	return SourceAdded{
		SourceID:  id,
		Name:      cmd.Name,
		Path:      cmd.Path,
		MediaType: cmd.MediaType,
		Length:    cmd.Length,
		At:        cmd.Meta.IssuedAt,
	}
}

// DeriveSourceDeletion validates DeleteSource against the snapshot.
func DeriveSourceDeletion(cmd DeleteSource, snap *Snapshot) Event {
	src, ok := snap.SourceByID(cmd.SourceID)
	if !ok {
		return SourceNotDeleted{
			SourceID: cmd.SourceID,
			Rejection: Rejection{
				Code:    "SOURCE_NOT_DELETED/NOT_FOUND",
				Cause:   fmt.Sprintf("source %q does not exist", cmd.SourceID),
				Hints:   []string{"refresh the source list"},
				Subject: cmd.SourceID,
				At:      cmd.Meta.IssuedAt,
			},
		}
	}

	return SourceDeleted{
		SourceID:  src.ID,
		Name:      src.Name,
		Path:      src.Path,
		MediaType: src.MediaType,
		Length:    src.Length,
		At:        cmd.Meta.IssuedAt,
	}
}

// DeriveSegmentCoding validates CodeSegment against the snapshot.
func DeriveSegmentCoding(cmd CodeSegment, snap *Snapshot, ids idgen.Generator) Event {
	reject := func(reason, cause string, hints ...string) SegmentNotCoded {
		return SegmentNotCoded{
			SourceID: cmd.SourceID,
			CodeID:   cmd.CodeID,
			Rejection: Rejection{
				Code:    "SEGMENT_NOT_CODED/" + reason,
				Cause:   cause,
				Hints:   hints,
				Subject: cmd.SegmentID,
				At:      cmd.Meta.IssuedAt,
			},
		}
	}

	src, ok := snap.SourceByID(cmd.SourceID)
	if !ok {
		return reject("SOURCE_NOT_FOUND",
			fmt.Sprintf("source %q does not exist", cmd.SourceID),
			"refresh the source list")
	}
	if !snap.HasCode(cmd.CodeID) {
		return reject("CODE_NOT_FOUND",
			fmt.Sprintf("code %q does not exist", cmd.CodeID),
			"create the code first")
	}
	if !SpanIsValid(cmd.Start, cmd.End) {
		return reject("INVALID_SPAN",
			fmt.Sprintf("span [%d, %d) must start at or after zero and end after it starts", cmd.Start, cmd.End),
			"check the selection boundaries")
	}
	if !SpanWithinSource(cmd.End, src) {
		return reject("SPAN_OUT_OF_BOUNDS",
			fmt.Sprintf("span ends at %d but source %q is only %d long", cmd.End, src.Name, src.Length),
			"re-select within the source")
	}

	id := cmd.SegmentID
	if id == "" {
		id = ids.NewID()
	}
	return SegmentCoded{
		SegmentID: id,
		SourceID:  cmd.SourceID,
		CodeID:    cmd.CodeID,
		Start:     cmd.Start,
		End:       cmd.End,
		Excerpt:   cmd.Excerpt,
		At:        cmd.Meta.IssuedAt,
	}
}

// DeriveSegmentDeletion validates DeleteSegment against the snapshot.
func DeriveSegmentDeletion(cmd DeleteSegment, snap *Snapshot) Event {
	seg, ok := snap.SegmentByID(cmd.SegmentID)
	if !ok {
		return SegmentNotDeleted{
			SegmentID: cmd.SegmentID,
			Rejection: Rejection{
				Code:    "SEGMENT_NOT_DELETED/NOT_FOUND",
				Cause:   fmt.Sprintf("segment %q does not exist", cmd.SegmentID),
				Hints:   []string{"refresh the segment list"},
				Subject: cmd.SegmentID,
				At:      cmd.Meta.IssuedAt,
			},
		}
	}

	return SegmentDeleted{
		SegmentID: seg.ID,
		SourceID:  seg.SourceID,
		CodeID:    seg.CodeID,
		Start:     seg.Start,
		End:       seg.End,
		Excerpt:   seg.Excerpt,
		At:        cmd.Meta.IssuedAt,
	}
}

// DeriveSegmentPurge collects the segments matching the selector. A
// selector matching nothing still derives a successful purge so that
// cascades are idempotent.
func DeriveSegmentPurge(cmd PurgeSegments, snap *Snapshot) Event {
	if cmd.CodeID == "" && cmd.SourceID == "" {
		return SegmentsNotPurged{
			Rejection: Rejection{
				Code:  "SEGMENTS_NOT_PURGED/EMPTY_SELECTOR",
				Cause: "a purge needs a code or a source to match against",
				Hints: []string{"set code_id, source_id, or both"},
				At:    cmd.Meta.IssuedAt,
			},
		}
	}

	var ids []string
	for _, seg := range snap.Segments {
		if cmd.CodeID != "" && seg.CodeID != cmd.CodeID {
			continue
		}
		if cmd.SourceID != "" && seg.SourceID != cmd.SourceID {
			continue
		}
		ids = append(ids, seg.ID)
	}

	return SegmentsPurged{
		CodeID:     cmd.CodeID,
		SourceID:   cmd.SourceID,
		SegmentIDs: ids,
		At:         cmd.Meta.IssuedAt,
	}
}
