package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/filevault/pkg/identity"
	"github.com/dmitrymomot/filevault/pkg/namespace"
	"github.com/dmitrymomot/filevault/pkg/sharing"
)

// uniqueViolation is the postgres SQLSTATE for unique constraint errors.
const uniqueViolation = "23505"

// Store implements identity.Storage, namespace.Storage and sharing.Storage
// on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- identity.Storage ---

func (s *Store) CreateUser(ctx context.Context, user identity.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Username, user.PasswordHash, user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return identity.ErrUsernameTaken
	}
	return err
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (identity.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`,
		username,
	))
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (identity.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = $1`,
		id,
	))
}

func (s *Store) scanUser(row pgx.Row) (identity.User, error) {
	var user identity.User
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.User{}, identity.ErrUserNotFound
		}
		return identity.User{}, err
	}
	return user, nil
}

// --- namespace.Storage ---

func (s *Store) CreateNode(ctx context.Context, node namespace.Node) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO nodes (id, owner_id, parent_id, name, kind, blob_key, size, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		node.ID, node.OwnerID, node.ParentID, node.Name, string(node.Kind), node.BlobKey, node.Size, node.CreatedAt,
	)
	if isUniqueViolation(err) {
		return namespace.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetNode(ctx context.Context, id uuid.UUID) (namespace.Node, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, parent_id, name, kind, blob_key, size, created_at FROM nodes WHERE id = $1`,
		id,
	)

	node, err := scanNode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return namespace.Node{}, namespace.ErrNotFound
		}
		return namespace.Node{}, err
	}
	return node, nil
}

func (s *Store) ListChildren(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]namespace.Node, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if parentID == nil {
		rows, err = s.pool.Query(ctx,
			`SELECT id, owner_id, parent_id, name, kind, blob_key, size, created_at
			 FROM nodes WHERE owner_id = $1 AND parent_id IS NULL
			 ORDER BY created_at, id`,
			ownerID,
		)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT id, owner_id, parent_id, name, kind, blob_key, size, created_at
			 FROM nodes WHERE owner_id = $1 AND parent_id = $2
			 ORDER BY created_at, id`,
			ownerID, *parentID,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	nodes := make([]namespace.Node, 0)
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

func scanNode(row pgx.Row) (namespace.Node, error) {
	var (
		node namespace.Node
		kind string
	)
	if err := row.Scan(&node.ID, &node.OwnerID, &node.ParentID, &node.Name, &kind, &node.BlobKey, &node.Size, &node.CreatedAt); err != nil {
		return namespace.Node{}, err
	}
	node.Kind = namespace.Kind(kind)
	return node, nil
}

// --- sharing.Storage ---

func (s *Store) CreateGrant(ctx context.Context, grant sharing.Grant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO share_grants (id, node_id, grantee_id, created_at) VALUES ($1, $2, $3, $4)`,
		grant.ID, grant.NodeID, grant.GranteeID, grant.CreatedAt,
	)
	if isUniqueViolation(err) {
		return sharing.ErrAlreadyGranted
	}
	return err
}

func (s *Store) GrantExists(ctx context.Context, nodeID, granteeID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM share_grants WHERE node_id = $1 AND grantee_id = $2)`,
		nodeID, granteeID,
	).Scan(&exists)
	return exists, err
}

func (s *Store) CreateRequest(ctx context.Context, req sharing.Request) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO access_requests (id, node_id, requester_id, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		req.ID, req.NodeID, req.RequesterID, string(req.Status), req.CreatedAt,
	)
	if isUniqueViolation(err) {
		return sharing.ErrDuplicateRequest
	}
	return err
}

func (s *Store) GetPendingRequest(ctx context.Context, nodeID, requesterID uuid.UUID) (sharing.Request, error) {
	var (
		req    sharing.Request
		status string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, node_id, requester_id, status, created_at, resolved_at
		 FROM access_requests WHERE node_id = $1 AND requester_id = $2 AND status = 'pending'`,
		nodeID, requesterID,
	).Scan(&req.ID, &req.NodeID, &req.RequesterID, &status, &req.CreatedAt, &req.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sharing.Request{}, sharing.ErrRequestNotFound
		}
		return sharing.Request{}, err
	}
	req.Status = sharing.Status(status)
	return req, nil
}

func (s *Store) GetRequest(ctx context.Context, id uuid.UUID) (sharing.Request, error) {
	var (
		req    sharing.Request
		status string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, node_id, requester_id, status, created_at, resolved_at FROM access_requests WHERE id = $1`,
		id,
	).Scan(&req.ID, &req.NodeID, &req.RequesterID, &status, &req.CreatedAt, &req.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sharing.Request{}, sharing.ErrRequestNotFound
		}
		return sharing.Request{}, err
	}
	req.Status = sharing.Status(status)
	return req, nil
}

// ApproveRequest transitions the request and inserts the grant in one
// transaction. The status predicate in the UPDATE makes the transition a
// compare-and-swap: a concurrent resolver loses with ErrAlreadyResolved.
func (s *Store) ApproveRequest(ctx context.Context, id uuid.UUID, grant sharing.Grant) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE access_requests SET status = 'approved', resolved_at = now() WHERE id = $1 AND status = 'pending'`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM access_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return sharing.ErrRequestNotFound
		}
		return sharing.ErrAlreadyResolved
	}

	// The grant may already exist from a direct share; approval is idempotent
	// with respect to it.
	if _, err := tx.Exec(ctx,
		`INSERT INTO share_grants (id, node_id, grantee_id, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (node_id, grantee_id) DO NOTHING`,
		grant.ID, grant.NodeID, grant.GranteeID, grant.CreatedAt,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) DeclineRequest(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE access_requests SET status = 'declined', resolved_at = now() WHERE id = $1 AND status = 'pending'`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM access_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return sharing.ErrRequestNotFound
		}
		return sharing.ErrAlreadyResolved
	}
	return nil
}

func (s *Store) ListPendingRequests(ctx context.Context, ownerID uuid.UUID) ([]sharing.Request, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.id, r.node_id, r.requester_id, r.status, r.created_at, r.resolved_at
		 FROM access_requests r
		 JOIN nodes n ON n.id = r.node_id
		 WHERE n.owner_id = $1 AND r.status = 'pending'
		 ORDER BY r.created_at, r.id`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reqs := make([]sharing.Request, 0)
	for rows.Next() {
		var (
			req    sharing.Request
			status string
		)
		if err := rows.Scan(&req.ID, &req.NodeID, &req.RequesterID, &status, &req.CreatedAt, &req.ResolvedAt); err != nil {
			return nil, err
		}
		req.Status = sharing.Status(status)
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Healthcheck verifies the pool is usable within the given timeout.
func (s *Store) Healthcheck(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToConnect, err)
	}
	return nil
}
