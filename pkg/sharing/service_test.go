package sharing_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/filevault/pkg/blob"
	"github.com/dmitrymomot/filevault/pkg/identity"
	"github.com/dmitrymomot/filevault/pkg/namespace"
	"github.com/dmitrymomot/filevault/pkg/notify"
	"github.com/dmitrymomot/filevault/pkg/sharing"
	"github.com/dmitrymomot/filevault/pkg/store/memory"
)

type fixture struct {
	store      *memory.Store
	identities *identity.Service
	namespaces *namespace.Service
	sharing    *sharing.Service
	outbox     *notify.MemoryOutbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	outbox := notify.NewMemoryOutbox(16)
	t.Cleanup(func() { _ = outbox.Close() })

	ids := identity.NewService(store, identity.WithBcryptCost(bcrypt.MinCost))
	ns := namespace.NewService(store, blob.NewMemoryStore())

	return &fixture{
		store:      store,
		identities: ids,
		namespaces: ns,
		sharing:    sharing.NewService(store, store, ns, sharing.WithIntentSink(outbox)),
		outbox:     outbox,
	}
}

func (f *fixture) user(t *testing.T, username string) identity.Session {
	t.Helper()
	u, err := f.identities.Register(context.Background(), username, "correct horse battery")
	require.NoError(t, err)
	return identity.Session{UserID: u.ID, Username: u.Username}
}

func (f *fixture) folder(t *testing.T, owner identity.Session, name string) namespace.Node {
	t.Helper()
	node, err := f.namespaces.CreateFolder(context.Background(), owner.UserID, nil, name)
	require.NoError(t, err)
	return node
}

func TestService_ShareFolder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("grants access to the grantee", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")
		bob := f.user(t, "bob")
		folder := f.folder(t, alice, "vacation")

		require.NoError(t, f.sharing.ShareFolder(ctx, alice, folder.ID, "bob"))

		ok, err := f.sharing.CanAccess(ctx, bob.UserID, folder.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("idempotent for the same grantee", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")
		f.user(t, "bob")
		folder := f.folder(t, alice, "vacation")

		require.NoError(t, f.sharing.ShareFolder(ctx, alice, folder.ID, "bob"))
		assert.NoError(t, f.sharing.ShareFolder(ctx, alice, folder.ID, "bob"))
	})

	t.Run("grantee identifier resolves like login does", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")
		bob := f.user(t, "bob")
		folder := f.folder(t, alice, "vacation")

		require.NoError(t, f.sharing.ShareFolder(ctx, alice, folder.ID, " Bob "))

		ok, err := f.sharing.CanAccess(ctx, bob.UserID, folder.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("unknown grantee", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")
		folder := f.folder(t, alice, "vacation")

		err := f.sharing.ShareFolder(ctx, alice, folder.ID, "nobody")
		assert.ErrorIs(t, err, sharing.ErrUnknownUser)
	})

	t.Run("sharing with yourself", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")
		folder := f.folder(t, alice, "vacation")

		err := f.sharing.ShareFolder(ctx, alice, folder.ID, "alice")
		assert.ErrorIs(t, err, sharing.ErrSelfShare)
	})

	t.Run("only the owner can share", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")
		bob := f.user(t, "bob")
		f.user(t, "carol")
		folder := f.folder(t, alice, "vacation")

		err := f.sharing.ShareFolder(ctx, bob, folder.ID, "carol")
		assert.ErrorIs(t, err, sharing.ErrNotOwner)
	})

	t.Run("missing node", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")
		f.user(t, "bob")

		err := f.sharing.ShareFolder(ctx, alice, uuid.New(), "bob")
		assert.ErrorIs(t, err, namespace.ErrNotFound)
	})
}

func TestService_RequestAccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates a pending request and emits an intent", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")
		bob := f.user(t, "bob")
		folder := f.folder(t, alice, "vacation")

		reqID, err := f.sharing.RequestAccess(ctx, bob, folder.ID)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, reqID)

		pending, err := f.sharing.PendingRequests(ctx, alice)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, reqID, pending[0].ID)
		assert.Equal(t, sharing.StatusPending, pending[0].Status)

		intent, err := f.outbox.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, "alice", intent.Recipient)
		assert.Equal(t, "bob", intent.Requester)
		assert.Equal(t, "vacation", intent.Resource)
	})

	t.Run("requesting your own resource", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")
		folder := f.folder(t, alice, "vacation")

		_, err := f.sharing.RequestAccess(ctx, alice, folder.ID)
		assert.ErrorIs(t, err, sharing.ErrSelfRequest)
	})

	t.Run("already granted", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")
		bob := f.user(t, "bob")
		folder := f.folder(t, alice, "vacation")

		require.NoError(t, f.sharing.ShareFolder(ctx, alice, folder.ID, "bob"))

		_, err := f.sharing.RequestAccess(ctx, bob, folder.ID)
		assert.ErrorIs(t, err, sharing.ErrAlreadyGranted)
	})

	t.Run("repeat request while pending reuses the existing one", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")
		bob := f.user(t, "bob")
		folder := f.folder(t, alice, "vacation")

		first, err := f.sharing.RequestAccess(ctx, bob, folder.ID)
		require.NoError(t, err)
		second, err := f.sharing.RequestAccess(ctx, bob, folder.ID)
		require.NoError(t, err)
		assert.Equal(t, first, second)

		pending, err := f.sharing.PendingRequests(ctx, alice)
		require.NoError(t, err)
		assert.Len(t, pending, 1)

		// Only the first request notifies the owner.
		_, err = f.outbox.Dequeue(ctx)
		require.NoError(t, err)
		short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err = f.outbox.Dequeue(short)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("re-request after decline opens a new request", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")
		bob := f.user(t, "bob")
		folder := f.folder(t, alice, "vacation")

		first, err := f.sharing.RequestAccess(ctx, bob, folder.ID)
		require.NoError(t, err)
		require.NoError(t, f.sharing.ResolveRequest(ctx, alice, first, sharing.DecisionDecline))

		second, err := f.sharing.RequestAccess(ctx, bob, folder.ID)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("full outbox does not fail the request", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")
		bob := f.user(t, "bob")

		// Fill the outbox so the intent is dropped instead of delivered.
		full := notify.NewMemoryOutbox(1)
		t.Cleanup(func() { _ = full.Close() })
		require.NoError(t, full.Enqueue(ctx, notify.Intent{Recipient: "filler"}))
		svc := sharing.NewService(f.store, f.store, f.namespaces, sharing.WithIntentSink(full))

		folder := f.folder(t, alice, "vacation")

		reqID, err := svc.RequestAccess(ctx, bob, folder.ID)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, reqID)
	})
}

func TestService_ResolveRequest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, identity.Session, identity.Session, namespace.Node, uuid.UUID) {
		t.Helper()
		f := newFixture(t)
		alice := f.user(t, "alice")
		bob := f.user(t, "bob")
		folder := f.folder(t, alice, "vacation")
		reqID, err := f.sharing.RequestAccess(ctx, bob, folder.ID)
		require.NoError(t, err)
		return f, alice, bob, folder, reqID
	}

	t.Run("approval grants access", func(t *testing.T) {
		t.Parallel()

		f, alice, bob, folder, reqID := setup(t)

		require.NoError(t, f.sharing.ResolveRequest(ctx, alice, reqID, sharing.DecisionApprove))

		ok, err := f.sharing.CanAccess(ctx, bob.UserID, folder.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		pending, err := f.sharing.PendingRequests(ctx, alice)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("decline leaves access denied", func(t *testing.T) {
		t.Parallel()

		f, alice, bob, folder, reqID := setup(t)

		require.NoError(t, f.sharing.ResolveRequest(ctx, alice, reqID, sharing.DecisionDecline))

		ok, err := f.sharing.CanAccess(ctx, bob.UserID, folder.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("resolving twice", func(t *testing.T) {
		t.Parallel()

		f, alice, _, _, reqID := setup(t)

		require.NoError(t, f.sharing.ResolveRequest(ctx, alice, reqID, sharing.DecisionApprove))

		err := f.sharing.ResolveRequest(ctx, alice, reqID, sharing.DecisionDecline)
		assert.ErrorIs(t, err, sharing.ErrAlreadyResolved)
	})

	t.Run("only the owner can resolve", func(t *testing.T) {
		t.Parallel()

		f, _, bob, _, reqID := setup(t)

		err := f.sharing.ResolveRequest(ctx, bob, reqID, sharing.DecisionApprove)
		assert.ErrorIs(t, err, sharing.ErrNotOwner)
	})

	t.Run("unknown request", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		alice := f.user(t, "alice")

		err := f.sharing.ResolveRequest(ctx, alice, uuid.New(), sharing.DecisionApprove)
		assert.ErrorIs(t, err, sharing.ErrRequestNotFound)
	})

	t.Run("invalid decision", func(t *testing.T) {
		t.Parallel()

		f, alice, _, _, reqID := setup(t)

		err := f.sharing.ResolveRequest(ctx, alice, reqID, sharing.Decision("maybe"))
		assert.ErrorIs(t, err, sharing.ErrInvalidDecision)
	})

	t.Run("concurrent approvals resolve exactly once", func(t *testing.T) {
		t.Parallel()

		f, alice, bob, folder, reqID := setup(t)

		const workers = 8
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			go func() {
				errs <- f.sharing.ResolveRequest(ctx, alice, reqID, sharing.DecisionApprove)
			}()
		}

		var succeeded int
		for i := 0; i < workers; i++ {
			if err := <-errs; err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, sharing.ErrAlreadyResolved)
			}
		}
		assert.Equal(t, 1, succeeded)

		ok, err := f.sharing.CanAccess(ctx, bob.UserID, folder.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestService_CanAccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	folder := f.folder(t, alice, "vacation")
	file, err := f.namespaces.StoreFile(ctx, alice.UserID, &folder.ID, "beach.jpg", strings.NewReader("jpg"))
	require.NoError(t, err)

	t.Run("owner always has access", func(t *testing.T) {
		ok, err := f.sharing.CanAccess(ctx, alice.UserID, file.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("stranger has no access", func(t *testing.T) {
		ok, err := f.sharing.CanAccess(ctx, bob.UserID, file.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("grants are per node, not inherited", func(t *testing.T) {
		require.NoError(t, f.sharing.ShareFolder(ctx, alice, folder.ID, "bob"))

		ok, err := f.sharing.CanAccess(ctx, bob.UserID, folder.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = f.sharing.CanAccess(ctx, bob.UserID, file.ID)
		require.NoError(t, err)
		assert.False(t, ok, "a folder grant does not cover its children")
	})

	t.Run("missing node", func(t *testing.T) {
		_, err := f.sharing.CanAccess(ctx, alice.UserID, uuid.New())
		assert.ErrorIs(t, err, namespace.ErrNotFound)
	})
}
