package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/filevault/pkg/identity"
	"github.com/dmitrymomot/filevault/pkg/namespace"
	"github.com/dmitrymomot/filevault/pkg/sharing"
)

// Store implements identity.Storage, namespace.Storage and sharing.Storage
// with mutex-guarded maps.
type Store struct {
	mu sync.RWMutex

	users     map[uuid.UUID]identity.User
	usernames map[string]uuid.UUID

	nodes    map[uuid.UUID]namespace.Node
	children map[childKey]uuid.UUID
	byParent map[parentKey][]uuid.UUID

	grants   map[grantKey]sharing.Grant
	requests map[uuid.UUID]sharing.Request
}

type childKey struct {
	owner  uuid.UUID
	parent uuid.UUID // uuid.Nil for root-level nodes
	name   string
}

type parentKey struct {
	owner  uuid.UUID
	parent uuid.UUID
}

type grantKey struct {
	node    uuid.UUID
	grantee uuid.UUID
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:     make(map[uuid.UUID]identity.User),
		usernames: make(map[string]uuid.UUID),
		nodes:     make(map[uuid.UUID]namespace.Node),
		children:  make(map[childKey]uuid.UUID),
		byParent:  make(map[parentKey][]uuid.UUID),
		grants:    make(map[grantKey]sharing.Grant),
		requests:  make(map[uuid.UUID]sharing.Request),
	}
}

// --- identity.Storage ---

func (s *Store) CreateUser(ctx context.Context, user identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usernames[user.Username]; exists {
		return identity.ErrUsernameTaken
	}

	s.users[user.ID] = user
	s.usernames[user.Username] = user.ID
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[username]
	if !ok {
		return identity.User{}, identity.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return identity.User{}, identity.ErrUserNotFound
	}
	return user, nil
}

// --- namespace.Storage ---

func (s *Store) CreateNode(ctx context.Context, node namespace.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ck := childKey{owner: node.OwnerID, parent: derefOrNil(node.ParentID), name: node.Name}
	if _, exists := s.children[ck]; exists {
		return namespace.ErrAlreadyExists
	}

	pk := parentKey{owner: node.OwnerID, parent: ck.parent}
	s.nodes[node.ID] = node
	s.children[ck] = node.ID
	s.byParent[pk] = append(s.byParent[pk], node.ID)
	return nil
}

func (s *Store) GetNode(ctx context.Context, id uuid.UUID) (namespace.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return namespace.Node{}, namespace.ErrNotFound
	}
	return node, nil
}

func (s *Store) ListChildren(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]namespace.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pk := parentKey{owner: ownerID, parent: derefOrNil(parentID)}
	ids := s.byParent[pk]

	// Insertion order is preserved by the per-parent id slice.
	nodes := make([]namespace.Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, s.nodes[id])
	}
	return nodes, nil
}

// --- sharing.Storage ---

func (s *Store) CreateGrant(ctx context.Context, grant sharing.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gk := grantKey{node: grant.NodeID, grantee: grant.GranteeID}
	if _, exists := s.grants[gk]; exists {
		return sharing.ErrAlreadyGranted
	}

	s.grants[gk] = grant
	return nil
}

func (s *Store) GrantExists(ctx context.Context, nodeID, granteeID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.grants[grantKey{node: nodeID, grantee: granteeID}]
	return exists, nil
}

func (s *Store) CreateRequest(ctx context.Context, req sharing.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.requests {
		if existing.NodeID == req.NodeID && existing.RequesterID == req.RequesterID && existing.Status == sharing.StatusPending {
			return sharing.ErrDuplicateRequest
		}
	}

	s.requests[req.ID] = req
	return nil
}

func (s *Store) GetPendingRequest(ctx context.Context, nodeID, requesterID uuid.UUID) (sharing.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, req := range s.requests {
		if req.NodeID == nodeID && req.RequesterID == requesterID && req.Status == sharing.StatusPending {
			return req, nil
		}
	}
	return sharing.Request{}, sharing.ErrRequestNotFound
}

func (s *Store) GetRequest(ctx context.Context, id uuid.UUID) (sharing.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return sharing.Request{}, sharing.ErrRequestNotFound
	}
	return req, nil
}

// ApproveRequest transitions pending->approved and inserts the grant under
// one lock acquisition, mirroring the postgres transaction.
func (s *Store) ApproveRequest(ctx context.Context, id uuid.UUID, grant sharing.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return sharing.ErrRequestNotFound
	}
	if req.Status != sharing.StatusPending {
		return sharing.ErrAlreadyResolved
	}

	now := time.Now()
	req.Status = sharing.StatusApproved
	req.ResolvedAt = &now
	s.requests[id] = req

	// A grant may already exist from a direct share; approval stays idempotent.
	gk := grantKey{node: grant.NodeID, grantee: grant.GranteeID}
	if _, exists := s.grants[gk]; !exists {
		s.grants[gk] = grant
	}

	return nil
}

func (s *Store) DeclineRequest(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return sharing.ErrRequestNotFound
	}
	if req.Status != sharing.StatusPending {
		return sharing.ErrAlreadyResolved
	}

	now := time.Now()
	req.Status = sharing.StatusDeclined
	req.ResolvedAt = &now
	s.requests[id] = req
	return nil
}

func (s *Store) ListPendingRequests(ctx context.Context, ownerID uuid.UUID) ([]sharing.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []sharing.Request
	for _, req := range s.requests {
		if req.Status != sharing.StatusPending {
			continue
		}
		node, ok := s.nodes[req.NodeID]
		if !ok || node.OwnerID != ownerID {
			continue
		}
		pending = append(pending, req)
	}

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].ID.String() < pending[j].ID.String()
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	return pending, nil
}

func derefOrNil(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
