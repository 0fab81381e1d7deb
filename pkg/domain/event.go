// Package domain holds the contracts shared by every bounded context:
// events, commands, and the operation result envelope returned to callers.
package domain

import (
	"strings"
	"time"
)

// Event is an immutable, past-tense fact produced by a deriver.
//
// Concrete event types form a closed set inside each bounded context
// package. The string EventType exists only for the cross-context bus
// boundary where wildcard subscription needs it.
type Event interface {
	// EventType returns the namespaced, past-tense type string,
	// e.g. "coding.code_created".
	EventType() string

	// AggregateID returns the stable identity of the changed aggregate.
	AggregateID() string

	// OccurredAt returns when the originating command was issued.
	// Derivers copy this from command metadata; they never read the clock.
	OccurredAt() time.Time
}

// FailureEvent records an attempted-and-rejected mutation. It is a
// first-class, publishable value, never an error.
type FailureEvent interface {
	Event

	// ErrorCode returns a machine-readable code in the form
	// {OPERATION}_NOT_{VERB}/{REASON}, e.g. "CODE_NOT_CREATED/DUPLICATE_NAME".
	ErrorCode() string

	// Reason returns the human-readable explanation.
	Reason() string

	// Suggestions returns remediation hints, possibly empty.
	Suggestions() []string
}

// IsFailure reports whether evt is a FailureEvent.
func IsFailure(evt Event) bool {
	_, ok := evt.(FailureEvent)
	return ok
}

// Context extracts the bounded-context prefix from an event type string.
// "coding.code_created" -> "coding". Returns the whole string when there
// is no dot.
func Context(eventType string) string {
	if i := strings.IndexByte(eventType, '.'); i >= 0 {
		return eventType[:i]
	}
	return eventType
}
