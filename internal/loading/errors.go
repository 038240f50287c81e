package loading

import "errors"

var (
	// ErrGroupNotFound indicates no group with the requested key in the fresh read.
	ErrGroupNotFound = errors.New("loading group not found")
	// ErrNotApprovable indicates every member is already past the workflow's actionable statuses.
	ErrNotApprovable = errors.New("loading group has nothing to approve")
	// ErrUnknownWorkflow indicates a workflow name that is not registered.
	ErrUnknownWorkflow = errors.New("unknown workflow")
	// ErrInvalidCommand indicates an approve command missing required fields.
	ErrInvalidCommand = errors.New("invalid approve command")
	// ErrDuplicateRequest indicates the idempotency key was already used.
	ErrDuplicateRequest = errors.New("approval request already processed")
	// ErrOrdersUnavailable wraps failures reading orders upstream.
	ErrOrdersUnavailable = errors.New("orders unavailable")
	// ErrApprovalFailed wraps failures of the remote approval command.
	ErrApprovalFailed = errors.New("approval command failed")
)

// ErrReceiptNotFound indicates no stored receipt for the group, either never issued or expired.
var ErrReceiptNotFound = errors.New("receipt not found")
