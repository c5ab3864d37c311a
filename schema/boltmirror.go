package schema

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/davidleathers113/indexforge-sub000/pipelineerr"
)

const schemaBucket = "schemas"

// BoltMirror is an optional fast-lookup read cache for active schemas,
// grounded on the teacher's db/bolt/bolt.go PutJSON/GetJSON pattern. It
// is never authoritative: FileStorage remains the source of truth, and
// a mirror miss or corruption just falls through to a file read.
type BoltMirror struct {
	db *bolt.DB
}

// OpenBoltMirror opens (creating if absent) a bbolt database at path
// and ensures its schema bucket exists.
func OpenBoltMirror(path string) (*BoltMirror, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, pipelineerr.NewResource(err, "open schema bolt mirror %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(schemaBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, pipelineerr.NewResource(err, "create schema bucket in %s", path)
	}
	return &BoltMirror{db: db}, nil
}

// Close releases the underlying database handle.
func (m *BoltMirror) Close() error {
	return m.db.Close()
}

// Put mirrors sc under key name, overwriting any prior active mirror
// entry for that name.
func (m *BoltMirror) Put(name string, sc Schema) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("marshal schema %s for bolt mirror: %w", name, err)
	}
	return m.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(schemaBucket))
		return b.Put([]byte(name), data)
	})
}

// Get returns the mirrored schema for name, or ok=false on a miss or a
// decode failure (treated the same: fall through to FileStorage).
func (m *BoltMirror) Get(name string) (sc Schema, ok bool) {
	err := m.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(schemaBucket))
		data := b.Get([]byte(name))
		if data == nil {
			return fmt.Errorf("not found")
		}
		return json.Unmarshal(data, &sc)
	})
	return sc, err == nil
}

// Delete removes name's mirrored entry, a no-op if absent.
func (m *BoltMirror) Delete(name string) error {
	return m.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(schemaBucket))
		return b.Delete([]byte(name))
	})
}
