// Package blob abstracts content storage behind a small Store capability:
// Put, Get, Exists and Delete keyed by slash-separated relative keys.
//
// Four backends are provided:
//
//   - LocalStore: files under a base directory on the local filesystem
//   - S3Store: Amazon S3 and S3-compatible services (MinIO, Wasabi, etc.)
//   - BadgerStore: embedded key-value storage for single-binary deployments
//   - MemoryStore: map-backed storage for tests
//
// Put is atomic from the reader's perspective: a failed or canceled upload
// never leaves a readable object under the key. The namespace layer relies
// on this to guarantee that node records only ever reference fully stored
// content.
package blob
