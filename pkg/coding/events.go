package coding

import (
	"time"

	"github.com/kodexlab/kodex/pkg/domain"
)

// Event type strings at the bus boundary.
const (
	EventTypeCodeCreated        = "coding.code_created"
	EventTypeCodeRenamed        = "coding.code_renamed"
	EventTypeCodeRecolored      = "coding.code_recolored"
	EventTypeCodeMoved          = "coding.code_moved"
	EventTypeCodeDeleted        = "coding.code_deleted"
	EventTypeCategoryCreated    = "coding.category_created"
	EventTypeCategoryMoved      = "coding.category_moved"
	EventTypeCategoryDeleted    = "coding.category_deleted"
	EventTypeCodeNotCreated     = "coding.code_not_created"
	EventTypeCodeNotRenamed     = "coding.code_not_renamed"
	EventTypeCodeNotRecolored   = "coding.code_not_recolored"
	EventTypeCodeNotMoved       = "coding.code_not_moved"
	EventTypeCodeNotDeleted     = "coding.code_not_deleted"
	EventTypeCategoryNotCreated = "coding.category_not_created"
	EventTypeCategoryNotMoved   = "coding.category_not_moved"
	EventTypeCategoryNotDeleted = "coding.category_not_deleted"
)

// Event is the closed set of facts this context can produce. The sealed
// marker keeps the union exhaustive at compile time; the string event type
// exists only for the bus boundary.
type Event interface {
	domain.Event
	isCodingEvent()
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

// CodeCreated records a new code.
type CodeCreated struct {
	CodeID     string
	Name       string
	Color      string
	CategoryID string
	At         time.Time
}

func (CodeCreated) EventType() string       { return EventTypeCodeCreated }
func (e CodeCreated) AggregateID() string   { return e.CodeID }
func (e CodeCreated) OccurredAt() time.Time { return e.At }
func (CodeCreated) isCodingEvent()          {}

// CodeRenamed records a code name change.
type CodeRenamed struct {
	CodeID  string
	OldName string
	NewName string
	At      time.Time
}

func (CodeRenamed) EventType() string       { return EventTypeCodeRenamed }
func (e CodeRenamed) AggregateID() string   { return e.CodeID }
func (e CodeRenamed) OccurredAt() time.Time { return e.At }
func (CodeRenamed) isCodingEvent()          {}

// CodeRecolored records a code color change.
type CodeRecolored struct {
	CodeID   string
	OldColor string
	NewColor string
	At       time.Time
}

func (CodeRecolored) EventType() string       { return EventTypeCodeRecolored }
func (e CodeRecolored) AggregateID() string   { return e.CodeID }
func (e CodeRecolored) OccurredAt() time.Time { return e.At }
func (CodeRecolored) isCodingEvent()          {}

// CodeMoved records a code being filed under a different category.
type CodeMoved struct {
	CodeID         string
	FromCategoryID string
	ToCategoryID   string
	At             time.Time
}

func (CodeMoved) EventType() string       { return EventTypeCodeMoved }
func (e CodeMoved) AggregateID() string   { return e.CodeID }
func (e CodeMoved) OccurredAt() time.Time { return e.At }
func (CodeMoved) isCodingEvent()          {}

// CodeDeleted records a code removal. It carries the full former state so
// subscribers (and undo) can act without re-querying.
type CodeDeleted struct {
	CodeID     string
	Name       string
	Color      string
	CategoryID string
	At         time.Time
}

func (CodeDeleted) EventType() string       { return EventTypeCodeDeleted }
func (e CodeDeleted) AggregateID() string   { return e.CodeID }
func (e CodeDeleted) OccurredAt() time.Time { return e.At }
func (CodeDeleted) isCodingEvent()          {}

// CategoryCreated records a new category.
type CategoryCreated struct {
	CategoryID string
	Name       string
	ParentID   string
	At         time.Time
}

func (CategoryCreated) EventType() string       { return EventTypeCategoryCreated }
func (e CategoryCreated) AggregateID() string   { return e.CategoryID }
func (e CategoryCreated) OccurredAt() time.Time { return e.At }
func (CategoryCreated) isCodingEvent()          {}

// CategoryMoved records a category re-parenting.
type CategoryMoved struct {
	CategoryID   string
	FromParentID string
	ToParentID   string
	At           time.Time
}

func (CategoryMoved) EventType() string       { return EventTypeCategoryMoved }
func (e CategoryMoved) AggregateID() string   { return e.CategoryID }
func (e CategoryMoved) OccurredAt() time.Time { return e.At }
func (CategoryMoved) isCodingEvent()          {}

// CategoryDeleted records a category removal.
type CategoryDeleted struct {
	CategoryID string
	Name       string
	ParentID   string
	At         time.Time
}

func (CategoryDeleted) EventType() string       { return EventTypeCategoryDeleted }
func (e CategoryDeleted) AggregateID() string   { return e.CategoryID }
func (e CategoryDeleted) OccurredAt() time.Time { return e.At }
func (CategoryDeleted) isCodingEvent()          {}

// Failure events.

// CodeNotCreated records a rejected code creation.
type CodeNotCreated struct {
	Rejection
	Name string
}

func (CodeNotCreated) EventType() string { return EventTypeCodeNotCreated }
func (CodeNotCreated) isCodingEvent()    {}

// CodeNotRenamed records a rejected rename.
type CodeNotRenamed struct {
	Rejection
	CodeID  string
	NewName string
}

func (CodeNotRenamed) EventType() string { return EventTypeCodeNotRenamed }
func (CodeNotRenamed) isCodingEvent()    {}

// CodeNotRecolored records a rejected recolor.
type CodeNotRecolored struct {
	Rejection
	CodeID   string
	NewColor string
}

func (CodeNotRecolored) EventType() string { return EventTypeCodeNotRecolored }
func (CodeNotRecolored) isCodingEvent()    {}

// CodeNotMoved records a rejected code move.
type CodeNotMoved struct {
	Rejection
	CodeID string
}

func (CodeNotMoved) EventType() string { return EventTypeCodeNotMoved }
func (CodeNotMoved) isCodingEvent()    {}

// CodeNotDeleted records a rejected deletion.
type CodeNotDeleted struct {
	Rejection
	CodeID string
}

func (CodeNotDeleted) EventType() string { return EventTypeCodeNotDeleted }
func (CodeNotDeleted) isCodingEvent()    {}

// CategoryNotCreated records a rejected category creation.
type CategoryNotCreated struct {
	Rejection
	Name string
}

func (CategoryNotCreated) EventType() string { return EventTypeCategoryNotCreated }
func (CategoryNotCreated) isCodingEvent()    {}

// CategoryNotMoved records a rejected category move.
type CategoryNotMoved struct {
	Rejection
	CategoryID string
}

func (CategoryNotMoved) EventType() string { return EventTypeCategoryNotMoved }
func (CategoryNotMoved) isCodingEvent()    {}

// CategoryNotDeleted records a rejected category deletion.
type CategoryNotDeleted struct {
	Rejection
	CategoryID string
}

func (CategoryNotDeleted) EventType() string { return EventTypeCategoryNotDeleted }
func (CategoryNotDeleted) isCodingEvent()    {}
