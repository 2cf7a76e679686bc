package namespace

import "errors"

var (
	// ErrNotFound is returned when a node does not exist or belongs to another owner.
	ErrNotFound = errors.New("node not found")
	// ErrAlreadyExists is returned when a sibling with the same name exists under the same parent.
	ErrAlreadyExists = errors.New("a file or folder with this name already exists")
	// ErrInvalidName is returned for names containing separators, traversal segments or control characters.
	ErrInvalidName = errors.New("invalid file or folder name")
	// ErrUnsupportedType is returned for file extensions outside the allowed set.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrNotFolder is returned when a parent reference points at a file.
	ErrNotFolder = errors.New("parent node is not a folder")
	// ErrNotFile is returned when a content operation targets a folder.
	ErrNotFile = errors.New("node is not a file")
	// ErrPathEscapes is returned when a stored path would resolve outside the owner's root.
	ErrPathEscapes = errors.New("path escapes namespace root")
	// ErrStorageUnavailable wraps blob or record store failures.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
