// Package sources is the bounded context for research sources (documents,
// transcripts, media) and the coded segments applied to them.
package sources

// Source is a document or media file under analysis. Length is the
// extent of the source in its native unit (runes for text,
// milliseconds for media); zero means unknown.
type Source struct {
	ID        string
	Name      string
	Path      string
	MediaType string
	Length    int64
}

// Segment is one application of a code to a span of a source. Spans are
// half-open [Start, End) and may overlap freely.
type Segment struct {
	ID       string
	SourceID string
	CodeID   string
	Start    int64
	End      int64
	Excerpt  string
}

// Snapshot is an immutable view of the sources state, assembled fresh
// from the repository per command. CodeIDs lists the identifiers known
// to the coding context so segment coding can check its reference.
type Snapshot struct {
	Sources  []Source
	Segments []Segment
	CodeIDs  []string
}

// SourceByID returns the source with the given ID, if present.
func (s *Snapshot) SourceByID(id string) (Source, bool) {
	for _, src := range s.Sources {
		if src.ID == id {
			return src, true
		}
	}
	return Source{}, false
}

// SegmentByID returns the segment with the given ID, if present.
func (s *Snapshot) SegmentByID(id string) (Segment, bool) {
	for _, seg := range s.Segments {
		if seg.ID == id {
			return seg, true
		}
	}
	return Segment{}, false
}

// HasCode reports whether the coding context knows the given code ID.
func (s *Snapshot) HasCode(id string) bool {
	for _, c := range s.CodeIDs {
		if c == id {
			return true
		}
	}
	return false
}
