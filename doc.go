// Package filevault is the authorization-and-storage core of a web file
// storage and sharing application: per-user file/folder namespaces, folder
// sharing with access grants, and an owner-mediated access-request workflow.
//
// The package composes three services, identity (pkg/identity), namespace
// (pkg/namespace) and sharing (pkg/sharing), behind the Drive facade, which
// enforces the one rule the services cannot enforce alone: every read of a
// node goes through the sharing engine's CanAccess check before any content
// is fetched.
//
// Persistence of records is pluggable (pkg/store/memory, pkg/store/postgres)
// and file content lives in an injected blob store (pkg/blob: local
// filesystem, S3, badger or memory). Notifications about access requests are
// dispatched out-of-band via pkg/notify.
//
// A minimal session:
//
//	rec := memory.New()
//	blobs, _ := blob.NewLocalStore("/var/lib/filevault")
//	ns := namespace.NewService(rec, blobs)
//	drive := filevault.New(
//		identity.NewService(rec),
//		ns,
//		sharing.NewService(rec, rec, ns),
//	)
//
//	user, _ := drive.Register(ctx, "alice", "correct horse battery")
//	sess, _ := drive.Login(ctx, "alice", "correct horse battery")
//	node, _ := drive.Upload(ctx, sess, nil, "photo.png", file)
//	rc, _, _ := drive.Download(ctx, sess, node.ID)
package filevault
