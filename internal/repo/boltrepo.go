package repo

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/meta-secret/meta-secret-go/internal/model"
)

// objectsBucket holds every ArtifactId payload in one flat bucket, keyed
// by ArtifactId.Key(). Other bbolt-backed stores in this codebase split
// state across several purpose-named buckets; this repo has only one
// kind of record so a single bucket is enough.
var objectsBucket = []byte("objects")

// BoltRepo is a bbolt-backed Repository, the default on-disk backend for
// a single device/node process.
type BoltRepo struct {
	db *bolt.DB
}

func OpenBoltRepo(path string) (*BoltRepo, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt db %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(objectsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init bolt buckets: %w", err)
	}
	return &BoltRepo{db: db}, nil
}

func (r *BoltRepo) Save(_ context.Context, id model.ArtifactId, payload []byte) error {
	key := []byte(id.Key())
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(objectsBucket)
		if b.Get(key) != nil {
			return ErrAlreadyExists
		}
		cp := make([]byte, len(payload))
		copy(cp, payload)
		return b.Put(key, cp)
	})
}

func (r *BoltRepo) FindOne(_ context.Context, id model.ArtifactId) ([]byte, bool, error) {
	var payload []byte
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(objectsBucket)
		v := b.Get([]byte(id.Key()))
		if v != nil {
			payload = make([]byte, len(v))
			copy(payload, v)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return payload, payload != nil, nil
}

func (r *BoltRepo) Delete(_ context.Context, id model.ArtifactId) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(objectsBucket).Delete([]byte(id.Key()))
	})
}

func (r *BoltRepo) Close() error {
	return r.db.Close()
}
