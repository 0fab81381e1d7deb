package cases

import (
	"time"

	"github.com/kodexlab/kodex/pkg/domain"
)

// Event type strings at the bus boundary.
const (
	EventTypeCaseCreated              = "cases.case_created"
	EventTypeCaseRenamed              = "cases.case_renamed"
	EventTypeCaseDeleted              = "cases.case_deleted"
	EventTypeSourceLinked             = "cases.source_linked"
	EventTypeSourceUnlinked           = "cases.source_unlinked"
	EventTypeSourceUnlinkedEverywhere = "cases.source_unlinked_everywhere"
	EventTypeCaseNotCreated           = "cases.case_not_created"
	EventTypeCaseNotRenamed           = "cases.case_not_renamed"
	EventTypeCaseNotDeleted           = "cases.case_not_deleted"
	EventTypeSourceNotLinked          = "cases.source_not_linked"
	EventTypeSourceNotUnlinked        = "cases.source_not_unlinked"
)

// Event is the closed set of facts this context can produce.
type Event interface {
	domain.Event
	isCasesEvent()
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

// CaseCreated records a new case.
type CaseCreated struct {
	CaseID    string
	Name      string
	SourceIDs []string
	At        time.Time
}

func (CaseCreated) EventType() string       { return EventTypeCaseCreated }
func (e CaseCreated) AggregateID() string   { return e.CaseID }
func (e CaseCreated) OccurredAt() time.Time { return e.At }
func (CaseCreated) isCasesEvent()           {}

// CaseRenamed records a case name change.
type CaseRenamed struct {
	CaseID  string
	OldName string
	NewName string
	At      time.Time
}

func (CaseRenamed) EventType() string       { return EventTypeCaseRenamed }
func (e CaseRenamed) AggregateID() string   { return e.CaseID }
func (e CaseRenamed) OccurredAt() time.Time { return e.At }
func (CaseRenamed) isCasesEvent()           {}

// CaseDeleted records a case removal with its former state.
type CaseDeleted struct {
	CaseID    string
	Name      string
	SourceIDs []string
	At        time.Time
}

func (CaseDeleted) EventType() string       { return EventTypeCaseDeleted }
func (e CaseDeleted) AggregateID() string   { return e.CaseID }
func (e CaseDeleted) OccurredAt() time.Time { return e.At }
func (CaseDeleted) isCasesEvent()           {}

// SourceLinked records a source attached to a case.
type SourceLinked struct {
	CaseID   string
	SourceID string
	At       time.Time
}

func (SourceLinked) EventType() string       { return EventTypeSourceLinked }
func (e SourceLinked) AggregateID() string   { return e.CaseID }
func (e SourceLinked) OccurredAt() time.Time { return e.At }
func (SourceLinked) isCasesEvent()           {}

// SourceUnlinked records a source detached from a case.
type SourceUnlinked struct {
	CaseID   string
	SourceID string
	At       time.Time
}

func (SourceUnlinked) EventType() string       { return EventTypeSourceUnlinked }
func (e SourceUnlinked) AggregateID() string   { return e.CaseID }
func (e SourceUnlinked) OccurredAt() time.Time { return e.At }
func (SourceUnlinked) isCasesEvent()           {}

// SourceUnlinkedEverywhere records a bulk unlink. An empty CaseIDs
// slice is still a successful unlink.
type SourceUnlinkedEverywhere struct {
	SourceID string
	CaseIDs  []string
	At       time.Time
}

func (SourceUnlinkedEverywhere) EventType() string       { return EventTypeSourceUnlinkedEverywhere }
func (e SourceUnlinkedEverywhere) AggregateID() string   { return e.SourceID }
func (e SourceUnlinkedEverywhere) OccurredAt() time.Time { return e.At }
func (SourceUnlinkedEverywhere) isCasesEvent()           {}

// Failure events.

// CaseNotCreated records a rejected case creation.
type CaseNotCreated struct {
	Rejection
	Name string
}

func (CaseNotCreated) EventType() string { return EventTypeCaseNotCreated }
func (CaseNotCreated) isCasesEvent()     {}

// CaseNotRenamed records a rejected rename.
type CaseNotRenamed struct {
	Rejection
	CaseID  string
	NewName string
}

func (CaseNotRenamed) EventType() string { return EventTypeCaseNotRenamed }
func (CaseNotRenamed) isCasesEvent()     {}

// CaseNotDeleted records a rejected case removal.
type CaseNotDeleted struct {
	Rejection
	CaseID string
}

func (CaseNotDeleted) EventType() string { return EventTypeCaseNotDeleted }
func (CaseNotDeleted) isCasesEvent()     {}

// SourceNotLinked records a rejected link.
type SourceNotLinked struct {
	Rejection
	CaseID   string
	SourceID string
}

func (SourceNotLinked) EventType() string { return EventTypeSourceNotLinked }
func (SourceNotLinked) isCasesEvent()     {}

// SourceNotUnlinked records a rejected unlink.
type SourceNotUnlinked struct {
	Rejection
	CaseID   string
	SourceID string
}

func (SourceNotUnlinked) EventType() string { return EventTypeSourceNotUnlinked }
func (SourceNotUnlinked) isCasesEvent()     {}
