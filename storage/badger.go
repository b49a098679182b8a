package storage

import (
	"sync"

	"github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"

	"github.com/make-os/grasp/storage/common"
)

// Badger is the opaque key-value persistence engine used by reposcache for
// its persistent tier; no other package stores data in it. Grounded in the
// teacher's storage.Badger, with the WrappedTx/transaction-renewal layer
// dropped in favor of badger/v2's own Update/View closures — the teacher's
// tendermint-era Tx abstraction has no SPEC_FULL.md caller.
type Badger struct {
	lck    *sync.Mutex
	db     *badger.DB
	closed bool
}

// NewBadger creates an unopened Badger engine.
func NewBadger() *Badger {
	return &Badger{lck: &sync.Mutex{}}
}

// Init opens the database. If dir is empty, an in-memory database is used
// (suitable for tests and ephemeral sessions).
func (b *Badger) Init(dir string) error {
	opts := badger.DefaultOptions(dir)
	opts = opts.WithTruncate(true)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = &common.NoopLogger{}

	db, err := badger.Open(opts)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	b.db = db
	return nil
}

// GetDB returns the underlying badger database.
func (b *Badger) GetDB() *badger.DB {
	return b.db
}

// Put writes a record, auto-committing.
func (b *Badger) Put(r *Record) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(r.GetKey(), r.Value)
	})
}

// Get reads the record stored at key under the given prefixes. Returns
// ErrRecordNotFound if absent.
func (b *Badger) Get(key []byte, prefixes ...[]byte) (*Record, error) {
	fullKey := MakeKey(key, prefixes...)
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(fullKey)
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			value = append([]byte{}, v...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read record")
	}
	return &Record{Key: key, Value: value, Prefix: MakePrefix(prefixes...)}, nil
}

// Del deletes the record stored at key under the given prefixes.
func (b *Badger) Del(key []byte, prefixes ...[]byte) error {
	fullKey := MakeKey(key, prefixes...)
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(fullKey)
	})
}

// IteratePrefix calls fn for every record whose key begins with the given
// joined prefix, stopping early if fn returns false.
func (b *Badger) IteratePrefix(prefix []byte, fn func(*Record) bool) error {
	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var value []byte
			if err := item.Value(func(v []byte) error {
				value = append([]byte{}, v...)
				return nil
			}); err != nil {
				return errors.Wrap(err, "failed to read record during iteration")
			}
			rec := NewFromKeyValue(item.KeyCopy(nil), value)
			if !fn(rec) {
				break
			}
		}
		return nil
	})
}

// Closed reports whether the engine has been closed.
func (b *Badger) Closed() bool {
	b.lck.Lock()
	defer b.lck.Unlock()
	return b.closed
}

// Close closes the database engine and frees resources.
func (b *Badger) Close() error {
	b.lck.Lock()
	defer b.lck.Unlock()
	if b.db != nil {
		b.closed = true
		return b.db.Close()
	}
	return nil
}
