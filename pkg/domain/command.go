package domain

import (
	"time"

	"github.com/google/uuid"
)

// Command is a request to change state. It is created by a caller (UI
// action, agent tool call), consumed once by exactly one handler
// invocation, and never persisted.
type Command interface {
	// CommandType returns the operation name, e.g. "coding.create_code".
	CommandType() string

	// Category returns the approval category used by the trust gate,
	// e.g. "coding.write" or "sources.destructive".
	Category() string
}

// Meta carries the boundary-supplied context for one command invocation.
// The dispatch boundary fills it in; derivers treat it as input, which
// keeps them free of clock and RNG reads.
type Meta struct {
	// CommandID uniquely identifies this invocation.
	CommandID string `json:"command_id"`

	// CorrelationID ties together a cascade of commands and events.
	CorrelationID string `json:"correlation_id"`

	// IssuedAt is when the caller issued the command. Events derived from
	// this command carry it as their OccurredAt.
	IssuedAt time.Time `json:"issued_at"`
}

// NewMeta creates boundary metadata with fresh identifiers and the
// current wall clock. Call this once at the edge, not inside derivers.
func NewMeta() Meta {
	return Meta{
		CommandID:     uuid.NewString(),
		CorrelationID: uuid.NewString(),
		IssuedAt:      time.Now().UTC(),
	}
}

// ChildMeta derives metadata for a cascade command, keeping the parent's
// correlation ID so the whole reaction chain can be traced.
func ChildMeta(parent Meta) Meta {
	return Meta{
		CommandID:     uuid.NewString(),
		CorrelationID: parent.CorrelationID,
		IssuedAt:      parent.IssuedAt,
	}
}
