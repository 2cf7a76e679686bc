// Package namespace manages each user's isolated tree of files and folders.
//
// Every node (file or folder) belongs to exactly one owner and lives under
// the owner's namespace root. Name validation and blob-key containment
// checks guarantee that no stored path can resolve outside that root, even
// if a persisted record is corrupted.
//
// Sibling names are unique per (owner, parent); a second file or folder with
// the same name under the same parent is rejected with ErrAlreadyExists.
// Overwrite-on-upload was considered and rejected: the reject-duplicate rule
// keeps file and folder collision behavior identical.
//
// File content is streamed into an injected blob.Store. The node record is
// written only after the blob upload is confirmed, so an abandoned upload is
// never visible in listings.
package namespace
