package domain

// Infrastructure error codes. Business rejections carry their own codes on
// the failure event; these cover faults that are not business facts.
const (
	CodePersistence = "INTERNAL/PERSISTENCE"
	CodePanic       = "INTERNAL/PANIC"
	CodeRejected    = "APPROVAL/REJECTED"
)

// OperationResult is the envelope a command handler returns synchronously
// to its caller. Exactly one of the success or failure field groups is
// populated; Pending marks an operation suspended for approval.
type OperationResult struct {
	// Success reports whether the mutation was applied.
	Success bool `json:"success"`

	// Data holds the success payload as primitive values.
	Data map[string]any `json:"data,omitempty"`

	// ErrorCode, Reason and Suggestions hold the failure payload.
	ErrorCode   string   `json:"error_code,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`

	// Rollback is an optional compensating command the caller may
	// re-issue to undo the effect (undo/redo support).
	Rollback Command `json:"-"`

	// Pending is set when the trust gate suspended the operation; the
	// PendingID resumes or discards it via the approval commands.
	Pending   bool   `json:"pending,omitempty"`
	PendingID string `json:"pending_id,omitempty"`
}

// SuccessResult builds a success envelope.
func SuccessResult(data map[string]any, rollback Command) *OperationResult {
	return &OperationResult{
		Success:  true,
		Data:     data,
		Rollback: rollback,
	}
}

// FailureResult builds a failure envelope from a rejected mutation.
func FailureResult(evt FailureEvent) *OperationResult {
	return &OperationResult{
		ErrorCode:   evt.ErrorCode(),
		Reason:      evt.Reason(),
		Suggestions: evt.Suggestions(),
	}
}

// InfrastructureFailure builds a failure envelope for a persistence or
// runtime fault. The underlying error is logged by the handler, not
// leaked to the caller.
func InfrastructureFailure(code string) *OperationResult {
	if code == "" {
		code = CodePersistence
	}
	return &OperationResult{
		ErrorCode: code,
		Reason:    "the operation could not be completed due to an internal error",
		Suggestions: []string{
			"retry the operation",
			"check the application log for details",
		},
	}
}

// PendingResult builds the envelope for an operation held for approval.
func PendingResult(pendingID string) *OperationResult {
	return &OperationResult{
		Pending:   true,
		PendingID: pendingID,
		Reason:    "operation requires approval",
	}
}
