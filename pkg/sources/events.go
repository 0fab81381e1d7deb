package sources

import (
	"time"

	"github.com/kodexlab/kodex/pkg/domain"
)

// Event type strings at the bus boundary.
const (
	EventTypeSourceAdded       = "sources.source_added"
	EventTypeSourceDeleted     = "sources.source_deleted"
	EventTypeSegmentCoded      = "sources.segment_coded"
	EventTypeSegmentDeleted    = "sources.segment_deleted"
	EventTypeSegmentsPurged    = "sources.segments_purged"
	EventTypeSourceNotAdded    = "sources.source_not_added"
	EventTypeSourceNotDeleted  = "sources.source_not_deleted"
	EventTypeSegmentNotCoded   = "sources.segment_not_coded"
	EventTypeSegmentNotDeleted = "sources.segment_not_deleted"
	EventTypeSegmentsNotPurged = "sources.segments_not_purged"
)

// Event is the closed set of facts this context can produce.
type Event interface {
	domain.Event
	isSourcesEvent()
}

// Rejection is the shared shape of this context's failure events.
type Rejection struct {
	Code    string
	Cause   string
	Hints   []string
	Subject string
	At      time.Time
}

func (r Rejection) ErrorCode() string     { return r.Code }
func (r Rejection) Reason() string        { return r.Cause }
func (r Rejection) Suggestions() []string { return r.Hints }
func (r Rejection) AggregateID() string   { return r.Subject }
func (r Rejection) OccurredAt() time.Time { return r.At }

// SourceAdded records a new source.
type SourceAdded struct {
	SourceID  string
	Name      string
	Path      string
	MediaType string
	Length    int64
	At        time.Time
}

func (SourceAdded) EventType() string       { return EventTypeSourceAdded }
func (e SourceAdded) AggregateID() string   { return e.SourceID }
func (e SourceAdded) OccurredAt() time.Time { return e.At }
func (SourceAdded) isSourcesEvent()         {}

// SourceDeleted records a source removal. It carries the full former
// state so undo and policy reactions can act without re-querying.
type SourceDeleted struct {
	SourceID  string
	Name      string
	Path      string
	MediaType string
	Length    int64
	At        time.Time
}

func (SourceDeleted) EventType() string       { return EventTypeSourceDeleted }
func (e SourceDeleted) AggregateID() string   { return e.SourceID }
func (e SourceDeleted) OccurredAt() time.Time { return e.At }
func (SourceDeleted) isSourcesEvent()         {}

// SegmentCoded records a code applied to a span.
type SegmentCoded struct {
	SegmentID string
	SourceID  string
	CodeID    string
	Start     int64
	End       int64
	Excerpt   string
	At        time.Time
}

func (SegmentCoded) EventType() string       { return EventTypeSegmentCoded }
func (e SegmentCoded) AggregateID() string   { return e.SegmentID }
func (e SegmentCoded) OccurredAt() time.Time { return e.At }
func (SegmentCoded) isSourcesEvent()         {}

// SegmentDeleted records a segment removal with its former state.
type SegmentDeleted struct {
	SegmentID string
	SourceID  string
	CodeID    string
	Start     int64
	End       int64
	Excerpt   string
	At        time.Time
}

func (SegmentDeleted) EventType() string       { return EventTypeSegmentDeleted }
func (e SegmentDeleted) AggregateID() string   { return e.SegmentID }
func (e SegmentDeleted) OccurredAt() time.Time { return e.At }
func (SegmentDeleted) isSourcesEvent()         {}

// SegmentsPurged records a bulk removal by selector. An empty SegmentIDs
// slice is still a successful purge.
type SegmentsPurged struct {
	CodeID     string
	SourceID   string
	SegmentIDs []string
	At         time.Time
}

func (SegmentsPurged) EventType() string       { return EventTypeSegmentsPurged }
func (e SegmentsPurged) OccurredAt() time.Time { return e.At }
func (SegmentsPurged) isSourcesEvent()         {}

func (e SegmentsPurged) AggregateID() string {
	if e.CodeID != "" {
		return e.CodeID
	}
	return e.SourceID
}

// Failure events.

// SourceNotAdded records a rejected source registration.
type SourceNotAdded struct {
	Rejection
	Name string
	Path string
}

func (SourceNotAdded) EventType() string { return EventTypeSourceNotAdded }
func (SourceNotAdded) isSourcesEvent()   {}

// SourceNotDeleted records a rejected source removal.
type SourceNotDeleted struct {
	Rejection
	SourceID string
}

func (SourceNotDeleted) EventType() string { return EventTypeSourceNotDeleted }
func (SourceNotDeleted) isSourcesEvent()   {}

// SegmentNotCoded records a rejected segment coding.
type SegmentNotCoded struct {
	Rejection
	SourceID string
	CodeID   string
}

func (SegmentNotCoded) EventType() string { return EventTypeSegmentNotCoded }
func (SegmentNotCoded) isSourcesEvent()   {}

// SegmentNotDeleted records a rejected segment removal.
type SegmentNotDeleted struct {
	Rejection
	SegmentID string
}

func (SegmentNotDeleted) EventType() string { return EventTypeSegmentNotDeleted }
func (SegmentNotDeleted) isSourcesEvent()   {}

// SegmentsNotPurged records a purge with no usable selector.
type SegmentsNotPurged struct {
	Rejection
}

func (SegmentsNotPurged) EventType() string { return EventTypeSegmentsNotPurged }
func (SegmentsNotPurged) isSourcesEvent()   {}
