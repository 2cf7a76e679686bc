package filevault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/filevault/pkg/identity"
	"github.com/dmitrymomot/filevault/pkg/logger"
	"github.com/dmitrymomot/filevault/pkg/namespace"
	"github.com/dmitrymomot/filevault/pkg/sharing"
)

// ErrAccessDenied is returned by Download when the caller neither owns the
// node nor holds a grant for it.
var ErrAccessDenied = errors.New("access denied")

// Drive composes the identity, namespace and sharing services into the
// surface the HTTP layer calls.
type Drive struct {
	identity  *identity.Service
	namespace *namespace.Service
	sharing   *sharing.Service
	log       *slog.Logger
}

// Option configures the drive facade.
type Option func(*Drive)

// WithLogger sets a custom logger for the facade.
func WithLogger(log *slog.Logger) Option {
	return func(d *Drive) {
		if log != nil {
			d.log = log
		}
	}
}

// New creates a Drive over the three core services.
func New(ids *identity.Service, ns *namespace.Service, sh *sharing.Service, opts ...Option) *Drive {
	d := &Drive{
		identity:  ids,
		namespace: ns,
		sharing:   sh,
		log:       logger.Discard(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Register creates an account and provisions its namespace root.
func (d *Drive) Register(ctx context.Context, username, password string) (identity.User, error) {
	user, err := d.identity.Register(ctx, username, password)
	if err != nil {
		return identity.User{}, err
	}

	if _, err := d.namespace.EnsureRoot(ctx, user.ID); err != nil {
		// The account exists; a missing root directory is recreated lazily
		// on first upload, so this is logged rather than failed.
		d.log.ErrorContext(ctx, "failed to provision namespace root",
			logger.UserID(user.ID.String()),
			logger.Error(err),
			logger.Component("drive"),
		)
	}

	return user, nil
}

// Login verifies credentials and returns the session token used by every
// other Drive call.
func (d *Drive) Login(ctx context.Context, username, password string) (identity.Session, error) {
	return d.identity.Authenticate(ctx, username, password)
}

// NewFolder creates a folder in the caller's namespace.
func (d *Drive) NewFolder(ctx context.Context, sess identity.Session, parentID *uuid.UUID, name string) (namespace.Node, error) {
	return d.namespace.CreateFolder(ctx, sess.UserID, parentID, name)
}

// NewSharedFolder creates a folder and immediately shares it with grantee.
// The folder survives a failed share so the caller can retry the share alone.
func (d *Drive) NewSharedFolder(ctx context.Context, sess identity.Session, parentID *uuid.UUID, name, granteeUsername string) (namespace.Node, error) {
	node, err := d.namespace.CreateFolder(ctx, sess.UserID, parentID, name)
	if err != nil {
		return namespace.Node{}, err
	}

	if err := d.sharing.ShareFolder(ctx, sess, node.ID, granteeUsername); err != nil {
		return node, fmt.Errorf("folder created but not shared: %w", err)
	}

	return node, nil
}

// Upload stores a file in the caller's namespace.
func (d *Drive) Upload(ctx context.Context, sess identity.Session, parentID *uuid.UUID, name string, content io.Reader) (namespace.Node, error) {
	return d.namespace.StoreFile(ctx, sess.UserID, parentID, name, content)
}

// Browse lists the caller's own nodes under parentID (nil for the root).
func (d *Drive) Browse(ctx context.Context, sess identity.Session, parentID *uuid.UUID) ([]namespace.Node, error) {
	return d.namespace.ListChildren(ctx, sess.UserID, parentID)
}

// Download returns the content of a node the caller may read.
// The sharing engine is the authorization choke point: no content is fetched
// before CanAccess allows it, regardless of how the node id was obtained.
func (d *Drive) Download(ctx context.Context, sess identity.Session, nodeID uuid.UUID) (io.ReadCloser, namespace.Node, error) {
	ok, err := d.sharing.CanAccess(ctx, sess.UserID, nodeID)
	if err != nil {
		return nil, namespace.Node{}, err
	}
	if !ok {
		return nil, namespace.Node{}, ErrAccessDenied
	}

	return d.namespace.Open(ctx, nodeID)
}

// Share grants another user access to a node the caller owns.
func (d *Drive) Share(ctx context.Context, sess identity.Session, nodeID uuid.UUID, granteeUsername string) error {
	return d.sharing.ShareFolder(ctx, sess, nodeID, granteeUsername)
}

// RequestAccess files an access request for someone else's node.
func (d *Drive) RequestAccess(ctx context.Context, sess identity.Session, nodeID uuid.UUID) (uuid.UUID, error) {
	return d.sharing.RequestAccess(ctx, sess, nodeID)
}

// ResolveRequest applies the caller's decision to a pending access request
// targeting a node they own.
func (d *Drive) ResolveRequest(ctx context.Context, sess identity.Session, requestID uuid.UUID, decision sharing.Decision) error {
	return d.sharing.ResolveRequest(ctx, sess, requestID, decision)
}

// PendingRequests lists unresolved access requests for the caller's nodes.
func (d *Drive) PendingRequests(ctx context.Context, sess identity.Session) ([]sharing.Request, error) {
	return d.sharing.PendingRequests(ctx, sess)
}
