package sources

import "github.com/kodexlab/kodex/pkg/domain"

// Operation categories for trust-level resolution.
const (
	CategoryWrite       = "sources.write"
	CategoryDestructive = "sources.destructive"
)

// AddSource registers a source. SourceID is normally empty and assigned
// by the deriver; undo supplies the original ID to restore it.
type AddSource struct {
	Meta      domain.Meta `json:"meta"`
	SourceID  string      `json:"source_id,omitempty"`
	Name      string      `json:"name"`
	Path      string      `json:"path"`
	MediaType string      `json:"media_type,omitempty"`
	Length    int64       `json:"length,omitempty"`
}

func (AddSource) CommandType() string { return "sources.add_source" }
func (AddSource) Category() string    { return CategoryWrite }

// DeleteSource removes a source. Its segments are cleaned up by a
// policy reaction, not by this command.
type DeleteSource struct {
	Meta     domain.Meta `json:"meta"`
	SourceID string      `json:"source_id"`
}

func (DeleteSource) CommandType() string { return "sources.delete_source" }
func (DeleteSource) Category() string    { return CategoryDestructive }

// CodeSegment applies a code to a span of a source.
type CodeSegment struct {
	Meta      domain.Meta `json:"meta"`
	SegmentID string      `json:"segment_id,omitempty"`
	SourceID  string      `json:"source_id"`
	CodeID    string      `json:"code_id"`
	Start     int64       `json:"start"`
	End       int64       `json:"end"`
	Excerpt   string      `json:"excerpt,omitempty"`
}

func (CodeSegment) CommandType() string { return "sources.code_segment" }
func (CodeSegment) Category() string    { return CategoryWrite }

// DeleteSegment removes one coded segment.
type DeleteSegment struct {
	Meta      domain.Meta `json:"meta"`
	SegmentID string      `json:"segment_id"`
}

func (DeleteSegment) CommandType() string { return "sources.delete_segment" }
func (DeleteSegment) Category() string    { return CategoryWrite }

// PurgeSegments removes every segment matching the selector: by code,
// by source, or both. It is the cascade command issued when a code or a
// source disappears, so it stays in the write category to keep cascades
// from being held at the approval gate. Purging nothing is a success.
type PurgeSegments struct {
	Meta     domain.Meta `json:"meta"`
	CodeID   string      `json:"code_id,omitempty"`
	SourceID string      `json:"source_id,omitempty"`
}

func (PurgeSegments) CommandType() string { return "sources.purge_segments" }
func (PurgeSegments) Category() string    { return CategoryWrite }
