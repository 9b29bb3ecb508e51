// internal/session/bolt.go
//
// bbolt-backed Slot: the CLI's client-local storage.  One file, one bucket,
// one key.  A short open timeout keeps a second process from hanging on the
// file lock; it fails instead and the caller reports "no session".
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var bucketName = []byte("local_storage")

// BoltSlot implements Slot on a bbolt database file.
type BoltSlot struct {
	db *bbolt.DB
}

var _ Slot = (*BoltSlot)(nil)

// OpenBoltSlot opens (or creates) the storage file at path.
func OpenBoltSlot(path string) (*BoltSlot, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("session dir: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening session file: %w", err)
	}
	return &BoltSlot{db: db}, nil
}

// Close releases the file lock.
func (s *BoltSlot) Close() error { return s.db.Close() }

func (s *BoltSlot) Load() ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return ErrEmpty
		}
		v := b.Get([]byte(StorageKey))
		if v == nil {
			return ErrEmpty
		}
		out = append([]byte(nil), v...) // v is only valid inside the tx
		return nil
	})
	return out, err
}

func (s *BoltSlot) Store(raw []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		return b.Put([]byte(StorageKey), raw)
	})
}

func (s *BoltSlot) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(StorageKey))
	})
}
