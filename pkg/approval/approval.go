// Package approval implements the trust gate consulted by command
// handlers before the persist step, and the pending queue that suspends
// operations requiring explicit approval.
package approval

import (
	"fmt"
	"strings"
	"time"

	"github.com/kodexlab/kodex/pkg/domain"
)

// Level is the trust level configured per operation category.
type Level int

const (
	// LevelAuto executes the operation immediately.
	LevelAuto Level = iota

	// LevelNotify executes immediately and publishes a notice so the UI
	// can surface what happened.
	LevelNotify

	// LevelRequire suspends the operation in the pending queue until it
	// is approved or rejected.
	LevelRequire
)

// ParseLevel parses a settings string into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "auto-execute":
		return LevelAuto, nil
	case "notify":
		return LevelNotify, nil
	case "require", "require-approval":
		return LevelRequire, nil
	default:
		return LevelAuto, fmt.Errorf("unknown trust level %q", s)
	}
}

func (l Level) String() string {
	switch l {
	case LevelNotify:
		return "notify"
	case LevelRequire:
		return "require"
	default:
		return "auto"
	}
}

// Settings maps operation categories to trust levels.
type Settings struct {
	Default Level
	Levels  map[string]Level
}

// LevelFor resolves the trust level for an operation category.
func (s Settings) LevelFor(category string) Level {
	if lvl, ok := s.Levels[category]; ok {
		return lvl
	}
	return s.Default
}

// Event type strings for the approval context.
const (
	EventTypeOperationHeld     = "approval.operation_held"
	EventTypeOperationExecuted = "approval.operation_executed"
	EventTypeOperationApproved = "approval.operation_approved"
	EventTypeOperationRejected = "approval.operation_rejected"
)

// OperationHeld records an operation suspended for approval.
type OperationHeld struct {
	PendingID   string
	CommandType string
	Category    string
	At          time.Time
}

func (OperationHeld) EventType() string       { return EventTypeOperationHeld }
func (e OperationHeld) AggregateID() string   { return e.PendingID }
func (e OperationHeld) OccurredAt() time.Time { return e.At }

// OperationExecuted records a notify-level operation that ran without
// prior approval, so the UI can surface it.
type OperationExecuted struct {
	CommandType string
	Category    string
	At          time.Time
}

func (OperationExecuted) EventType() string       { return EventTypeOperationExecuted }
func (e OperationExecuted) AggregateID() string   { return e.CommandType }
func (e OperationExecuted) OccurredAt() time.Time { return e.At }

// OperationApproved records a pending operation that was resumed.
type OperationApproved struct {
	PendingID   string
	CommandType string
	At          time.Time
}

func (OperationApproved) EventType() string       { return EventTypeOperationApproved }
func (e OperationApproved) AggregateID() string   { return e.PendingID }
func (e OperationApproved) OccurredAt() time.Time { return e.At }

// OperationRejected records a pending operation that was discarded.
type OperationRejected struct {
	PendingID   string
	CommandType string
	At          time.Time
}

func (OperationRejected) EventType() string       { return EventTypeOperationRejected }
func (e OperationRejected) AggregateID() string   { return e.PendingID }
func (e OperationRejected) OccurredAt() time.Time { return e.At }

// ApproveOperation resumes a pending operation. Approval is itself a
// command so it flows through the same dispatch path as any mutation.
type ApproveOperation struct {
	Meta      domain.Meta `json:"meta"`
	PendingID string      `json:"pending_id"`
}

func (ApproveOperation) CommandType() string { return "approval.approve" }
func (ApproveOperation) Category() string    { return "approval.manage" }

// RejectOperation discards a pending operation.
type RejectOperation struct {
	Meta      domain.Meta `json:"meta"`
	PendingID string      `json:"pending_id"`
}

func (RejectOperation) CommandType() string { return "approval.reject" }
func (RejectOperation) Category() string    { return "approval.manage" }
