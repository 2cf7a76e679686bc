package sharing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/filevault/pkg/identity"
	"github.com/dmitrymomot/filevault/pkg/logger"
	"github.com/dmitrymomot/filevault/pkg/namespace"
	"github.com/dmitrymomot/filevault/pkg/notify"
)

// Storage defines the persistence operations required by the sharing engine.
//
// CreateGrant must enforce (node, grantee) uniqueness atomically and return
// ErrAlreadyGranted on conflict. CreateRequest must enforce at most one
// pending request per (node, requester) and return ErrDuplicateRequest on
// conflict. ApproveRequest must transition the request from pending to
// approved AND insert the grant in one transaction, failing with
// ErrAlreadyResolved when the request is not pending.
type Storage interface {
	CreateGrant(ctx context.Context, grant Grant) error
	GrantExists(ctx context.Context, nodeID, granteeID uuid.UUID) (bool, error)
	CreateRequest(ctx context.Context, req Request) error
	GetRequest(ctx context.Context, id uuid.UUID) (Request, error)
	GetPendingRequest(ctx context.Context, nodeID, requesterID uuid.UUID) (Request, error)
	ApproveRequest(ctx context.Context, id uuid.UUID, grant Grant) error
	DeclineRequest(ctx context.Context, id uuid.UUID) error
	ListPendingRequests(ctx context.Context, ownerID uuid.UUID) ([]Request, error)
}

// UserDirectory is the slice of the identity store the engine needs:
// resolving grantee identifiers and owner contact details.
type UserDirectory interface {
	GetUserByUsername(ctx context.Context, username string) (identity.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (identity.User, error)
}

// NodeSource resolves node ids to records for ownership checks.
type NodeSource interface {
	GetNode(ctx context.Context, id uuid.UUID) (namespace.Node, error)
}

// IntentSink receives notification intents for out-of-band delivery.
// Implementations must not block on downstream delivery.
type IntentSink interface {
	Enqueue(ctx context.Context, intent notify.Intent) error
}

// Service is the sharing and access-request engine.
type Service struct {
	storage Storage
	users   UserDirectory
	nodes   NodeSource
	intents IntentSink
	log     *slog.Logger
}

// Option configures the sharing service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithIntentSink sets the destination for notification intents.
// Without one, intents are silently dropped (useful in tests).
func WithIntentSink(sink IntentSink) Option {
	return func(s *Service) {
		if sink != nil {
			s.intents = sink
		}
	}
}

// NewService creates a sharing engine.
func NewService(storage Storage, users UserDirectory, nodes NodeSource, opts ...Option) *Service {
	s := &Service{
		storage: storage,
		users:   users,
		nodes:   nodes,
		log:     logger.Discard(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ShareFolder grants granteeUsername access to the node. Idempotent: sharing
// an already-shared resource with the same grantee succeeds without effect.
func (s *Service) ShareFolder(ctx context.Context, owner identity.Session, nodeID uuid.UUID, granteeUsername string) error {
	node, err := s.getNode(ctx, nodeID)
	if err != nil {
		return err
	}
	if node.OwnerID != owner.UserID {
		return ErrNotOwner
	}

	// Grantee identifiers resolve like login credentials do: an identifier
	// that differs only in case or surrounding whitespace names the same user.
	granteeUsername, err = identity.NormalizeUsername(granteeUsername)
	if err != nil {
		return ErrUnknownUser
	}

	grantee, err := s.users.GetUserByUsername(ctx, granteeUsername)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return ErrUnknownUser
		}
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if grantee.ID == owner.UserID {
		return ErrSelfShare
	}

	grant := Grant{
		ID:        uuid.New(),
		NodeID:    nodeID,
		GranteeID: grantee.ID,
		CreatedAt: time.Now(),
	}

	if err := s.storage.CreateGrant(ctx, grant); err != nil {
		if errors.Is(err, ErrAlreadyGranted) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.log.InfoContext(ctx, "resource shared",
		logger.UserID(owner.UserID.String()),
		logger.NodeID(nodeID.String()),
		slog.String("grantee", grantee.Username),
		logger.Component("sharing"),
	)

	return nil
}

// RequestAccess creates a pending access request for a resource the
// requester does not own and has no grant for, then emits a notification
// intent for the resource owner. Repeating the call while a request is still
// pending returns the existing request id without notifying the owner again.
// Intent delivery is best-effort: a full or failed sink is logged, never
// returned.
func (s *Service) RequestAccess(ctx context.Context, requester identity.Session, nodeID uuid.UUID) (uuid.UUID, error) {
	node, err := s.getNode(ctx, nodeID)
	if err != nil {
		return uuid.Nil, err
	}
	if node.OwnerID == requester.UserID {
		return uuid.Nil, ErrSelfRequest
	}

	granted, err := s.storage.GrantExists(ctx, nodeID, requester.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if granted {
		return uuid.Nil, ErrAlreadyGranted
	}

	req := Request{
		ID:          uuid.New(),
		NodeID:      nodeID,
		RequesterID: requester.UserID,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}

	if err := s.storage.CreateRequest(ctx, req); err != nil {
		if errors.Is(err, ErrDuplicateRequest) {
			existing, err := s.storage.GetPendingRequest(ctx, nodeID, requester.UserID)
			if err != nil {
				return uuid.Nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
			}
			return existing.ID, nil
		}
		return uuid.Nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.emitIntent(ctx, node, requester)

	return req.ID, nil
}

// ResolveRequest applies the owner's decision to a pending request.
// Approval transitions the status and creates the grant atomically.
func (s *Service) ResolveRequest(ctx context.Context, owner identity.Session, requestID uuid.UUID, decision Decision) error {
	req, err := s.storage.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return ErrRequestNotFound
		}
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	node, err := s.getNode(ctx, req.NodeID)
	if err != nil {
		return err
	}
	if node.OwnerID != owner.UserID {
		return ErrNotOwner
	}
	if req.Status.Resolved() {
		return ErrAlreadyResolved
	}

	switch decision {
	case DecisionApprove:
		grant := Grant{
			ID:        uuid.New(),
			NodeID:    req.NodeID,
			GranteeID: req.RequesterID,
			CreatedAt: time.Now(),
		}
		if err := s.storage.ApproveRequest(ctx, requestID, grant); err != nil {
			if errors.Is(err, ErrAlreadyResolved) {
				return ErrAlreadyResolved
			}
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
	case DecisionDecline:
		if err := s.storage.DeclineRequest(ctx, requestID); err != nil {
			if errors.Is(err, ErrAlreadyResolved) {
				return ErrAlreadyResolved
			}
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
	default:
		return ErrInvalidDecision
	}

	s.log.InfoContext(ctx, "access request resolved",
		logger.RequestID(requestID.String()),
		logger.NodeID(req.NodeID.String()),
		slog.String("decision", string(decision)),
		logger.Component("sharing"),
	)

	return nil
}

// CanAccess reports whether user may read the node: owner or grant holder.
func (s *Service) CanAccess(ctx context.Context, userID, nodeID uuid.UUID) (bool, error) {
	node, err := s.getNode(ctx, nodeID)
	if err != nil {
		return false, err
	}
	if node.OwnerID == userID {
		return true, nil
	}

	granted, err := s.storage.GrantExists(ctx, nodeID, userID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return granted, nil
}

// PendingRequests lists unresolved requests targeting resources the owner holds.
func (s *Service) PendingRequests(ctx context.Context, owner identity.Session) ([]Request, error) {
	reqs, err := s.storage.ListPendingRequests(ctx, owner.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return reqs, nil
}

func (s *Service) getNode(ctx context.Context, nodeID uuid.UUID) (namespace.Node, error) {
	node, err := s.nodes.GetNode(ctx, nodeID)
	if err != nil {
		if errors.Is(err, namespace.ErrNotFound) {
			return namespace.Node{}, namespace.ErrNotFound
		}
		return namespace.Node{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return node, nil
}

// emitIntent hands the notification to the sink without letting any failure
// reach the caller: the request record is already committed and notification
// is best-effort by contract.
func (s *Service) emitIntent(ctx context.Context, node namespace.Node, requester identity.Session) {
	if s.intents == nil {
		return
	}

	owner, err := s.users.GetUserByID(ctx, node.OwnerID)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to resolve resource owner for notification",
			logger.NodeID(node.ID.String()),
			logger.Error(err),
			logger.Component("sharing"),
		)
		return
	}

	intent := notify.Intent{
		Recipient: owner.Username,
		Requester: requester.Username,
		Resource:  node.Name,
		CreatedAt: time.Now(),
	}

	if err := s.intents.Enqueue(ctx, intent); err != nil {
		s.log.ErrorContext(ctx, "failed to enqueue notification intent",
			logger.NodeID(node.ID.String()),
			logger.Error(err),
			logger.Component("sharing"),
		)
	}
}
