package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore implements Store on an embedded BadgerDB database.
// Suitable for single-binary deployments that need persistence across
// restarts without an external object store.
//
// Values pass through memory on Put; badger is not a streaming store. Large
// media should use LocalStore or S3Store instead.
type BadgerStore struct {
	db    *badger.DB
	owned bool
}

// NewBadgerStore opens (or creates) a badger database at dir and returns a
// store that owns the database handle. Close releases it.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	if dir == "" {
		return nil, ErrInvalidConfig
	}

	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &BadgerStore{db: db, owned: true}, nil
}

// NewBadgerStoreWithDB wraps an existing database handle. The caller keeps
// ownership and Close becomes a no-op.
func NewBadgerStoreWithDB(db *badger.DB) (*BadgerStore, error) {
	if db == nil {
		return nil, ErrInvalidConfig
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the database handle if this store owns it.
func (s *BadgerStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func (s *BadgerStore) Put(ctx context.Context, key string, r io.Reader) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	// Read fully before the write transaction so a mid-stream cancellation
	// aborts before anything is stored.
	data, err := readAllWithContext(ctx, r)
	if err != nil {
		return err
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

func (s *BadgerStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *BadgerStore) Exists(ctx context.Context, key string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	if err := ValidateKey(key); err != nil {
		return false, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return true, nil
}

func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := ValidateKey(key); err != nil {
		return err
	}

	exists, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// readAllWithContext is io.ReadAll with periodic context checks so abandoned
// uploads stop consuming the reader.
func readAllWithContext(ctx context.Context, r io.Reader) ([]byte, error) {
	var out bytes.Buffer
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			out.Write(buf[:n])
		}
		if err == io.EOF {
			return out.Bytes(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
}
