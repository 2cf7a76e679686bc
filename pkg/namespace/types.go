package namespace

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates files from folders.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// Node is a file or folder entry owned by exactly one user.
// Root-level nodes have a nil ParentID. BlobKey and Size are zero for folders.
type Node struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	ParentID  *uuid.UUID
	Name      string
	Kind      Kind
	BlobKey   string
	Size      int64
	CreatedAt time.Time
}

// IsFolder reports whether the node can contain children.
func (n Node) IsFolder() bool { return n.Kind == KindFolder }
