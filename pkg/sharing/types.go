package sharing

import (
	"time"

	"github.com/google/uuid"
)

// Grant is a standing permission letting a non-owner access a specific node.
// Uniqueness is (NodeID, GranteeID); granting twice is a no-op.
type Grant struct {
	ID        uuid.UUID
	NodeID    uuid.UUID
	GranteeID uuid.UUID
	CreatedAt time.Time
}

// Status is the lifecycle state of an access request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
)

// Resolved reports whether the status is terminal.
func (s Status) Resolved() bool { return s == StatusApproved || s == StatusDeclined }

// Decision is an owner's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDecline Decision = "decline"
)

// Request is a pending ask by a non-owner for a grant, resolved by the owner.
type Request struct {
	ID          uuid.UUID
	NodeID      uuid.UUID
	RequesterID uuid.UUID
	Status      Status
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}
