package sharing

import "errors"

var (
	// ErrUnknownUser is returned when a grantee identifier resolves to no user.
	ErrUnknownUser = errors.New("unknown user")
	// ErrSelfShare is returned when an owner shares a resource with themselves.
	ErrSelfShare = errors.New("cannot share a resource with its owner")
	// ErrSelfRequest is returned when a user requests access to their own resource.
	ErrSelfRequest = errors.New("cannot request access to an owned resource")
	// ErrAlreadyGranted is returned when requesting a resource already shared with the requester.
	ErrAlreadyGranted = errors.New("access already granted")
	// ErrNotOwner is returned when a caller acts on a resource they do not own.
	ErrNotOwner = errors.New("caller does not own the resource")
	// ErrAlreadyResolved is returned when resolving a non-pending request.
	ErrAlreadyResolved = errors.New("access request already resolved")
	// ErrRequestNotFound is returned for unknown access-request ids.
	ErrRequestNotFound = errors.New("access request not found")
	// ErrDuplicateRequest is returned by storage when a pending request for the
	// same (node, requester) already exists. The service resolves it to the
	// existing request instead of surfacing it.
	ErrDuplicateRequest = errors.New("pending access request already exists")
	// ErrInvalidDecision is returned for decisions other than approve/decline.
	ErrInvalidDecision = errors.New("invalid decision")
	// ErrStorageUnavailable wraps record store failures.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
