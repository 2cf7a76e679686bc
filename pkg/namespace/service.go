package namespace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/dmitrymomot/filevault/pkg/blob"
	"github.com/dmitrymomot/filevault/pkg/logger"
)

// rootPrefix is the top-level blob key segment for all user namespaces.
const rootPrefix = "users"

// maxDepth caps ResolvePath's parent walk. It breaks parent-reference cycles
// introduced by record corruption.
const maxDepth = 255

// defaultAllowedExtensions is the upload allowlist, matched case-insensitively.
var defaultAllowedExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".pdf": {}, ".mp4": {},
}

// Storage defines the node-record persistence required by the service.
// CreateNode must enforce (owner, parent, name) uniqueness atomically and
// return ErrAlreadyExists on conflict.
type Storage interface {
	CreateNode(ctx context.Context, node Node) error
	GetNode(ctx context.Context, id uuid.UUID) (Node, error)
	ListChildren(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]Node, error)
}

// Service manages per-user namespaces on top of a record store and a blob store.
type Service struct {
	storage     Storage
	blobs       blob.Store
	allowedExts map[string]struct{}
	log         *slog.Logger
}

// Option configures the namespace service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithAllowedExtensions replaces the default upload allowlist.
// Extensions must include the leading dot; matching is case-insensitive.
func WithAllowedExtensions(exts ...string) Option {
	return func(s *Service) {
		allowed := make(map[string]struct{}, len(exts))
		for _, ext := range exts {
			allowed[strings.ToLower(ext)] = struct{}{}
		}
		s.allowedExts = allowed
	}
}

// NewService creates a namespace service.
func NewService(storage Storage, blobs blob.Store, opts ...Option) *Service {
	s := &Service{
		storage:     storage,
		blobs:       blobs,
		allowedExts: defaultAllowedExtensions,
		log:         logger.Discard(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// RootKey returns the canonical blob-key prefix of a user's namespace root.
func RootKey(ownerID uuid.UUID) string {
	return path.Join(rootPrefix, ownerID.String())
}

// EnsureRoot idempotently provisions the owner's namespace root and returns
// its canonical location. Backends with real directories (local filesystem)
// create the directory; object stores treat the prefix as virtual.
func (s *Service) EnsureRoot(ctx context.Context, ownerID uuid.UUID) (string, error) {
	root := RootKey(ownerID)

	if pc, ok := s.blobs.(blob.PrefixCreator); ok {
		if err := pc.EnsurePrefix(ctx, root); err != nil {
			return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
	}

	return root, nil
}

// CreateFolder creates a folder under parent (nil parent means the root).
// Returns ErrAlreadyExists if a sibling of either kind has the same name.
func (s *Service) CreateFolder(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, name string) (Node, error) {
	if err := validateName(name); err != nil {
		return Node{}, err
	}
	if err := s.checkParent(ctx, ownerID, parentID); err != nil {
		return Node{}, err
	}

	node := Node{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		ParentID:  parentID,
		Name:      name,
		Kind:      KindFolder,
		CreatedAt: time.Now(),
	}

	if err := s.storage.CreateNode(ctx, node); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return Node{}, ErrAlreadyExists
		}
		return Node{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.log.InfoContext(ctx, "folder created",
		logger.UserID(ownerID.String()),
		logger.NodeID(node.ID.String()),
		logger.Component("namespace"),
	)

	return node, nil
}

// StoreFile streams content into the blob store and records the node.
// The record is written only after the upload is confirmed; on a name
// collision at insert time the uploaded blob is removed again, so nothing
// partially uploaded is ever visible in listings.
func (s *Service) StoreFile(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, name string, content io.Reader) (Node, error) {
	if err := validateName(name); err != nil {
		return Node{}, err
	}

	ext := strings.ToLower(path.Ext(name))
	if _, ok := s.allowedExts[ext]; !ok {
		return Node{}, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}

	if err := s.checkParent(ctx, ownerID, parentID); err != nil {
		return Node{}, err
	}

	id := uuid.New()
	key := path.Join(RootKey(ownerID), id.String()+ext)

	// Blob upload happens before the record insert and outside any lock;
	// the store enforces uniqueness when the record lands.
	counter := &countingReader{r: content}
	if err := s.blobs.Put(ctx, key, counter); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Node{}, err
		}
		return Node{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	node := Node{
		ID:        id,
		OwnerID:   ownerID,
		ParentID:  parentID,
		Name:      name,
		Kind:      KindFile,
		BlobKey:   key,
		Size:      counter.n,
		CreatedAt: time.Now(),
	}

	if err := s.storage.CreateNode(ctx, node); err != nil {
		// Compensate: the blob must not outlive a failed record insert.
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.log.ErrorContext(ctx, "failed to remove orphaned blob",
				logger.NodeID(id.String()),
				logger.Error(delErr),
				logger.Component("namespace"),
			)
		}
		if errors.Is(err, ErrAlreadyExists) {
			return Node{}, ErrAlreadyExists
		}
		return Node{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.log.InfoContext(ctx, "file stored",
		logger.UserID(ownerID.String()),
		logger.NodeID(node.ID.String()),
		slog.Int64("size", node.Size),
		logger.Component("namespace"),
	)

	return node, nil
}

// ListChildren returns the nodes under parent in creation order.
func (s *Service) ListChildren(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]Node, error) {
	if err := s.checkParent(ctx, ownerID, parentID); err != nil {
		return nil, err
	}

	children, err := s.storage.ListChildren(ctx, ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return children, nil
}

// GetNode returns a node by id regardless of owner. The sharing engine uses
// it for resource identity; callers gating reads go through ResolvePath or
// the drive facade instead.
func (s *Service) GetNode(ctx context.Context, id uuid.UUID) (Node, error) {
	return s.storage.GetNode(ctx, id)
}

// ResolvePath rebuilds the node's path relative to the owner's root by
// walking parent references, re-validating every stored segment. A segment
// that no longer passes name validation, a foreign owner in the chain, or a
// cycle all yield ErrPathEscapes: stored records are not trusted.
func (s *Service) ResolvePath(ctx context.Context, ownerID uuid.UUID, nodeID uuid.UUID) (string, error) {
	segments := make([]string, 0, 8)

	current := nodeID
	for depth := 0; ; depth++ {
		if depth > maxDepth {
			return "", ErrPathEscapes
		}

		node, err := s.storage.GetNode(ctx, current)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return "", ErrNotFound
			}
			return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		if node.OwnerID != ownerID {
			return "", ErrNotFound
		}
		if err := validateName(node.Name); err != nil {
			return "", ErrPathEscapes
		}

		segments = append(segments, node.Name)
		if node.ParentID == nil {
			break
		}
		current = *node.ParentID
	}

	// Reverse: the walk collected leaf-first.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}

	return path.Join(append([]string{RootKey(ownerID)}, segments...)...), nil
}

// Open returns the content of a file node. It re-validates path containment
// and the stored blob key before touching the blob store; authorization is
// the caller's responsibility (see the drive facade).
func (s *Service) Open(ctx context.Context, nodeID uuid.UUID) (io.ReadCloser, Node, error) {
	node, err := s.storage.GetNode(ctx, nodeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, Node{}, ErrNotFound
		}
		return nil, Node{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if node.Kind != KindFile {
		return nil, Node{}, ErrNotFile
	}

	// Containment, independently of the access check: the stored path and
	// blob key must both still live under the owner's root.
	if _, err := s.ResolvePath(ctx, node.OwnerID, nodeID); err != nil {
		return nil, Node{}, err
	}
	if blob.ValidateKey(node.BlobKey) != nil || !strings.HasPrefix(node.BlobKey, RootKey(node.OwnerID)+"/") {
		return nil, Node{}, ErrPathEscapes
	}

	rc, err := s.blobs.Get(ctx, node.BlobKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, Node{}, ErrNotFound
		}
		return nil, Node{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return rc, node, nil
}

// checkParent validates that parentID (when set) exists, is a folder and
// belongs to ownerID. Foreign parents surface as ErrNotFound, not as a
// permission error, to avoid leaking other users' node ids.
func (s *Service) checkParent(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) error {
	if parentID == nil {
		return nil
	}

	parent, err := s.storage.GetNode(ctx, *parentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if parent.OwnerID != ownerID {
		return ErrNotFound
	}
	if parent.Kind != KindFolder {
		return ErrNotFolder
	}

	return nil
}

// validateName rejects empty names, path separators, traversal segments,
// control characters and over-long names. Names are single path segments;
// anything that could change the resolved location after normalization is
// invalid.
func validateName(name string) error {
	if name == "" || len(name) > 255 {
		return ErrInvalidName
	}
	if name == "." || name == ".." {
		return ErrInvalidName
	}
	if name != strings.TrimSpace(name) {
		return ErrInvalidName
	}
	for _, r := range name {
		if r == '/' || r == '\\' || r == 0 || unicode.IsControl(r) {
			return ErrInvalidName
		}
	}
	return nil
}

// countingReader tracks bytes read so node records carry the actual stored
// size, not a caller-declared one.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
