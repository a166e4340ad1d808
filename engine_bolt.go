package canonkv

import (
	"go.etcd.io/bbolt"
)

// boltBucketName is the single bucket canonkv keeps all keys in. There is
// no nested-bucket split between the T/ and V/ key families — the families
// are already disambiguated by their own key prefixes (§6).
var boltBucketName = []byte("canonkv")

// boltEngine is the default OrderedEngine, wrapping a *bbolt.DB. Grounded on
// the teacher's storage_bolt.go boltStorage/boltBucket/boltCursor, flattened
// from its (storage, tx, bucket, cursor) layering to a single type since
// every canonkv operation is a one-shot, single-key or single-range call —
// there is no multi-statement transaction object exposed to callers.
type boltEngine struct {
	db *bbolt.DB
}

// OpenBolt opens (creating if absent) a bbolt database at path and ensures
// the canonkv bucket exists, returning it as an OrderedEngine ready to back
// a Store.
func OpenBolt(path string) (OrderedEngine, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, engineErrf("open", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, engineErrf("init", err)
	}
	return &boltEngine{db: db}, nil
}

func (e *boltEngine) Put(key, value []byte) error {
	err := e.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucketName).Put(key, value)
	})
	if err != nil {
		return engineErrf("put", err)
	}
	return nil
}

func (e *boltEngine) Get(key []byte) ([]byte, error) {
	var out []byte
	err := e.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(boltBucketName).Get(key)
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, engineErrf("get", err)
	}
	return out, nil
}

func (e *boltEngine) Delete(key []byte) error {
	err := e.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucketName).Delete(key)
	})
	if err != nil {
		return engineErrf("delete", err)
	}
	return nil
}

func (e *boltEngine) Range(start, end []byte, limit int) ([]KV, error) {
	var out []KV
	err := e.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(boltBucketName).Cursor()
		for k, v := c.Seek(start); k != nil; k, v = c.Next() {
			if !rangeUpperBound(k, end) {
				break
			}
			out = append(out, KV{Key: append([]byte(nil), k...), Value: append([]byte(nil), v...)})
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, engineErrf("range", err)
	}
	return out, nil
}

func (e *boltEngine) Close() error {
	if err := e.db.Close(); err != nil {
		return engineErrf("close", err)
	}
	return nil
}
