package namespace_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/filevault/pkg/blob"
	"github.com/dmitrymomot/filevault/pkg/namespace"
	"github.com/dmitrymomot/filevault/pkg/store/memory"
)

func newService(t *testing.T) (*namespace.Service, *blob.MemoryStore) {
	t.Helper()
	blobs := blob.NewMemoryStore()
	return namespace.NewService(memory.New(), blobs), blobs
}

func TestService_EnsureRoot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _ := newService(t)
	owner := uuid.New()

	first, err := svc.EnsureRoot(ctx, owner)
	require.NoError(t, err)
	second, err := svc.EnsureRoot(ctx, owner)
	require.NoError(t, err)

	assert.Equal(t, first, second, "EnsureRoot is idempotent")
	assert.Equal(t, namespace.RootKey(owner), first)
}

func TestService_CreateFolder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates folder at root", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService(t)
		owner := uuid.New()

		node, err := svc.CreateFolder(ctx, owner, nil, "documents")
		require.NoError(t, err)
		assert.Equal(t, namespace.KindFolder, node.Kind)
		assert.Equal(t, owner, node.OwnerID)
		assert.Nil(t, node.ParentID)
	})

	t.Run("creates nested folder", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService(t)
		owner := uuid.New()

		parent, err := svc.CreateFolder(ctx, owner, nil, "documents")
		require.NoError(t, err)

		child, err := svc.CreateFolder(ctx, owner, &parent.ID, "taxes")
		require.NoError(t, err)
		require.NotNil(t, child.ParentID)
		assert.Equal(t, parent.ID, *child.ParentID)
	})

	t.Run("rejects duplicate sibling", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService(t)
		owner := uuid.New()

		_, err := svc.CreateFolder(ctx, owner, nil, "documents")
		require.NoError(t, err)

		_, err = svc.CreateFolder(ctx, owner, nil, "documents")
		assert.ErrorIs(t, err, namespace.ErrAlreadyExists)
	})

	t.Run("same name under different owners is fine", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService(t)

		_, err := svc.CreateFolder(ctx, uuid.New(), nil, "documents")
		require.NoError(t, err)
		_, err = svc.CreateFolder(ctx, uuid.New(), nil, "documents")
		assert.NoError(t, err)
	})

	t.Run("rejects invalid names", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService(t)
		owner := uuid.New()

		for _, name := range []string{"", ".", "..", "a/b", "a\\b", "/abs", " padded ", "nul\x00byte"} {
			_, err := svc.CreateFolder(ctx, owner, nil, name)
			assert.ErrorIs(t, err, namespace.ErrInvalidName, "name %q", name)
		}
	})

	t.Run("rejects foreign or missing parent", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService(t)
		alice, bob := uuid.New(), uuid.New()

		folder, err := svc.CreateFolder(ctx, alice, nil, "private")
		require.NoError(t, err)

		_, err = svc.CreateFolder(ctx, bob, &folder.ID, "intruder")
		assert.ErrorIs(t, err, namespace.ErrNotFound, "foreign parents must not leak")

		missing := uuid.New()
		_, err = svc.CreateFolder(ctx, alice, &missing, "orphan")
		assert.ErrorIs(t, err, namespace.ErrNotFound)
	})

	t.Run("rejects file as parent", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService(t)
		owner := uuid.New()

		file, err := svc.StoreFile(ctx, owner, nil, "photo.png", strings.NewReader("img"))
		require.NoError(t, err)

		_, err = svc.CreateFolder(ctx, owner, &file.ID, "inside-a-file")
		assert.ErrorIs(t, err, namespace.ErrNotFolder)
	})

	t.Run("concurrent creates with the same name", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService(t)
		owner := uuid.New()

		const workers = 8
		errs := make([]error, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.CreateFolder(ctx, owner, nil, "contested")
			}(i)
		}
		wg.Wait()

		var succeeded int
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, namespace.ErrAlreadyExists)
			}
		}
		assert.Equal(t, 1, succeeded, "exactly one create wins")
	})
}

func TestService_StoreFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService(t)
		owner := uuid.New()
		content := "not really a png"

		node, err := svc.StoreFile(ctx, owner, nil, "photo.PNG", strings.NewReader(content))
		require.NoError(t, err)
		assert.Equal(t, namespace.KindFile, node.Kind)
		assert.Equal(t, int64(len(content)), node.Size)

		rc, got, err := svc.Open(ctx, node.ID)
		require.NoError(t, err)
		defer func() { _ = rc.Close() }()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
		assert.Equal(t, node.ID, got.ID)
	})

	t.Run("rejects disallowed extensions", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService(t)
		owner := uuid.New()

		for _, name := range []string{"evil.exe", "script.sh", "noext", "archive.tar.gz"} {
			_, err := svc.StoreFile(ctx, owner, nil, name, strings.NewReader("x"))
			assert.ErrorIs(t, err, namespace.ErrUnsupportedType, "name %q", name)
		}
	})

	t.Run("rejects traversal names", func(t *testing.T) {
		t.Parallel()

		svc, _ := newService(t)
		owner := uuid.New()

		_, err := svc.StoreFile(ctx, owner, nil, "../../etc/passwd", strings.NewReader("x"))
		assert.ErrorIs(t, err, namespace.ErrInvalidName)
	})

	t.Run("duplicate name removes the uploaded blob", func(t *testing.T) {
		t.Parallel()

		svc, blobs := newService(t)
		owner := uuid.New()

		_, err := svc.StoreFile(ctx, owner, nil, "photo.png", strings.NewReader("one"))
		require.NoError(t, err)

		_, err = svc.StoreFile(ctx, owner, nil, "photo.png", strings.NewReader("two"))
		assert.ErrorIs(t, err, namespace.ErrAlreadyExists)
		assert.Equal(t, 1, blobs.Len(), "losing upload must not leave an orphaned blob")
	})

	t.Run("canceled upload leaves nothing visible", func(t *testing.T) {
		t.Parallel()

		svc, blobs := newService(t)
		owner := uuid.New()

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := svc.StoreFile(canceled, owner, nil, "big.mp4", strings.NewReader(strings.Repeat("x", 1<<16)))
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)

		children, err := svc.ListChildren(ctx, owner, nil)
		require.NoError(t, err)
		assert.Empty(t, children)
		assert.Equal(t, 0, blobs.Len())
	})

	t.Run("custom extension allowlist", func(t *testing.T) {
		t.Parallel()

		blobs := blob.NewMemoryStore()
		svc := namespace.NewService(memory.New(), blobs, namespace.WithAllowedExtensions(".txt"))
		owner := uuid.New()

		_, err := svc.StoreFile(ctx, owner, nil, "notes.txt", strings.NewReader("x"))
		assert.NoError(t, err)
		_, err = svc.StoreFile(ctx, owner, nil, "photo.png", strings.NewReader("x"))
		assert.ErrorIs(t, err, namespace.ErrUnsupportedType)
	})
}

func TestService_ListChildren(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _ := newService(t)
	owner := uuid.New()

	names := []string{"alpha", "bravo", "charlie"}
	for _, name := range names {
		_, err := svc.CreateFolder(ctx, owner, nil, name)
		require.NoError(t, err)
	}

	children, err := svc.ListChildren(ctx, owner, nil)
	require.NoError(t, err)
	require.Len(t, children, len(names))
	for i, name := range names {
		assert.Equal(t, name, children[i].Name, "insertion order is preserved")
	}

	// Another owner's listing is empty.
	other, err := svc.ListChildren(ctx, uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestService_ResolvePath(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _ := newService(t)
	owner := uuid.New()

	docs, err := svc.CreateFolder(ctx, owner, nil, "documents")
	require.NoError(t, err)
	taxes, err := svc.CreateFolder(ctx, owner, &docs.ID, "taxes")
	require.NoError(t, err)
	file, err := svc.StoreFile(ctx, owner, &taxes.ID, "2025.pdf", strings.NewReader("pdf"))
	require.NoError(t, err)

	path, err := svc.ResolvePath(ctx, owner, file.ID)
	require.NoError(t, err)
	assert.Equal(t, namespace.RootKey(owner)+"/documents/taxes/2025.pdf", path)

	t.Run("foreign owner cannot resolve", func(t *testing.T) {
		_, err := svc.ResolvePath(ctx, uuid.New(), file.ID)
		assert.ErrorIs(t, err, namespace.ErrNotFound)
	})

	t.Run("corrupted stored name is rejected", func(t *testing.T) {
		store := memory.New()
		blobs := blob.NewMemoryStore()
		svc := namespace.NewService(store, blobs)
		owner := uuid.New()

		// Plant a corrupted record directly, bypassing validation.
		bad := namespace.Node{
			ID:      uuid.New(),
			OwnerID: owner,
			Name:    "../escape",
			Kind:    namespace.KindFolder,
		}
		require.NoError(t, store.CreateNode(ctx, bad))

		_, err := svc.ResolvePath(ctx, owner, bad.ID)
		assert.ErrorIs(t, err, namespace.ErrPathEscapes)
	})
}

func TestService_Open(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _ := newService(t)
	owner := uuid.New()

	folder, err := svc.CreateFolder(ctx, owner, nil, "documents")
	require.NoError(t, err)

	_, _, err = svc.Open(ctx, folder.ID)
	assert.ErrorIs(t, err, namespace.ErrNotFile)

	_, _, err = svc.Open(ctx, uuid.New())
	assert.ErrorIs(t, err, namespace.ErrNotFound)
}

func TestService_OpenRejectsForeignBlobKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := memory.New()
	blobs := blob.NewMemoryStore()
	svc := namespace.NewService(store, blobs)
	owner := uuid.New()

	// Simulate stored-record corruption pointing at another user's blob.
	bad := namespace.Node{
		ID:      uuid.New(),
		OwnerID: owner,
		Name:    "innocent.png",
		Kind:    namespace.KindFile,
		BlobKey: "users/" + uuid.New().String() + "/stolen.png",
	}
	require.NoError(t, store.CreateNode(ctx, bad))

	_, _, err := svc.Open(ctx, bad.ID)
	assert.ErrorIs(t, err, namespace.ErrPathEscapes)
}
