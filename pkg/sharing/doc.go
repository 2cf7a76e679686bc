// Package sharing tracks which nodes are shared with whom and mediates the
// access-request workflow between owners and requesters.
//
// CanAccess is the single authorization choke point: a user may read a node
// iff they own it or hold a ShareGrant for it. Every read/download path must
// consult it; the namespace layer's containment checks are an independent
// second line of defense, not a substitute.
//
// Access requests follow a two-transition state machine:
//
//	pending -> approved  (terminal; the grant is created in the same storage transaction)
//	pending -> declined  (terminal; no grant)
//
// Re-requesting after a decline creates a new request. Requesting a resource
// the user already holds a grant for is rejected without creating anything.
//
// Approving a request creates its grant atomically: there is never an
// approved request without a grant, nor a grant from a half-approved request.
// Notification intents emitted by RequestAccess are fire-and-forget; enqueue
// or delivery failures are logged and never surfaced to the requester.
package sharing
