// Package engine is the pure decision core of the approval service. It
// computes state transitions for workflows, requests and delegations without
// touching storage, clocks or logs: time is always passed in by the caller
// and persistence plus per-request serialization belong to the host.
package engine

import "errors"

// Error kinds surfaced by engine operations. Callers classify with
// errors.Is; services wrap them with context via fmt.Errorf and %w.
var (
	// ErrNotFound marks a missing workflow, request, step or delegation.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState marks an operation attempted from a status that
	// forbids it, e.g. acting on a cancelled request.
	ErrInvalidState = errors.New("invalid state")

	// ErrValidationFailed marks a failed input precondition, e.g. missing
	// reject comments or activating a workflow with zero steps. The check
	// always runs before any mutation.
	ErrValidationFailed = errors.New("validation failed")

	// ErrNotAuthorized marks an acting identity that is not a resolvable
	// approver for the current step, directly or via delegation.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrConflict marks an optimistic-version miss on save; the host decides
	// whether to retry.
	ErrConflict = errors.New("version conflict")
)
