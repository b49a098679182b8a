// Package reposcache implements the two-level repository cache (§4.I): a
// persistent tier keyed by repoId (backed by github.com/dgraph-io/badger/v2
// through the storage package) and an in-memory per-session cache-object
// tier bounded by github.com/hashicorp/golang-lru. Grounded in the
// teacher's storage.Badger + storage.Record idiom for the persistent side.
package reposcache

import (
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/make-os/grasp/storage"
)

// DataLevel is the cache strata of a repo directory.
type DataLevel string

const (
	DataLevelRefs    DataLevel = "refs"
	DataLevelShallow DataLevel = "shallow"
	DataLevelFull    DataLevel = "full"
)

// BranchRef names a branch and its current tip commit, persisted as part of
// an Entry.
type BranchRef struct {
	Name   string `json:"name"`
	Commit string `json:"commit"`
}

// Entry is the persistent per-repository cache record.
type Entry struct {
	RepoID      string      `json:"repoId"`
	LastUpdated time.Time   `json:"lastUpdated"`
	HeadCommit  string      `json:"headCommit"`
	DataLevel   DataLevel   `json:"dataLevel"`
	Branches    []BranchRef `json:"branches"`
	CloneURLs   []string    `json:"cloneUrls"`
	CommitCount int         `json:"commitCount,omitempty"`
}

var reposPrefix = []byte("repos")

// Cache is the two-level contract: persistent Entry storage plus an
// in-memory pool of opaque per-directory cache-object identities.
type Cache struct {
	db          *storage.Badger
	staleWindow time.Duration
	objects     *lru.Cache // dir -> cacheObjectToken
}

// cacheObjectToken is the opaque identity injected into every GitProvider
// call for a directory (§4.I); its only contract is that it changes exactly
// once per mutation and is otherwise stable.
type cacheObjectToken struct {
	generation uint64
}

// New builds a Cache. dbDir is passed straight to storage.Badger.Init (empty
// string opens an in-memory database). maxEntries bounds the in-memory
// cache-object pool size (one LRU entry per repo directory).
func New(dbDir string, staleWindow time.Duration, maxEntries int) (*Cache, error) {
	db := storage.NewBadger()
	if err := db.Init(dbDir); err != nil {
		return nil, errors.Wrap(err, "failed to open repo cache database")
	}
	objects, err := lru.New(maxEntries)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create in-memory cache-object pool")
	}
	return &Cache{db: db, staleWindow: staleWindow, objects: objects}, nil
}

// Close releases the persistent database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the persisted Entry for repoID, or nil if none exists.
func (c *Cache) Get(repoID string) (*Entry, error) {
	rec, err := c.db.Get([]byte(repoID), reposPrefix)
	if err == storage.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read repo cache entry")
	}
	var e Entry
	if err := rec.Scan(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Put persists Entry, created on first successful fetch and updated on
// every sync.
func (c *Cache) Put(e *Entry) error {
	value, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "failed to encode repo cache entry")
	}
	return c.db.Put(storage.NewRecord([]byte(e.RepoID), value, reposPrefix))
}

// Invalidate removes the persisted entry for repoID. The worker calls it
// after an operation fails with a fatal error; commit and push replace only
// the in-memory cache object (InvalidateObject) and leave the persisted
// entry in place.
func (c *Cache) Invalidate(repoID string) error {
	return c.db.Del([]byte(repoID), reposPrefix)
}

// PruneStale deletes every persisted entry older than ttl relative to now.
// The ttl is supplied by the caller; no default is applied and nothing in
// this package runs the sweep on its own.
func (c *Cache) PruneStale(now time.Time, ttl time.Duration) (int, error) {
	pruned := 0
	var stale [][]byte

	err := c.db.IteratePrefix(reposPrefix, func(r *storage.Record) bool {
		var e Entry
		if err := r.Scan(&e); err != nil {
			return true
		}
		if now.Sub(e.LastUpdated) > ttl {
			stale = append(stale, append([]byte{}, r.Key...))
		}
		return true
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to scan repo cache for stale entries")
	}

	for _, key := range stale {
		if err := c.db.Del(key, reposPrefix); err != nil {
			return pruned, errors.Wrap(err, "failed to prune stale repo cache entry")
		}
		pruned++
	}
	return pruned, nil
}

// NeedsUpdate reports whether the persisted entry for repoID is stale:
// either its last-sync timestamp exceeds staleWindow, or observedHead
// differs from the cached HEAD commit.
func (c *Cache) NeedsUpdate(e *Entry, now time.Time, observedHead string) bool {
	if e == nil {
		return true
	}
	if now.Sub(e.LastUpdated) > c.staleWindow {
		return true
	}
	if observedHead != "" && observedHead != e.HeadCommit {
		return true
	}
	return false
}

// CacheObject returns the current opaque cache-object identity for dir,
// creating one on first access. Identity is stable across non-mutating
// operations.
func (c *Cache) CacheObject(dir string) interface{} {
	if v, ok := c.objects.Get(dir); ok {
		return v
	}
	token := &cacheObjectToken{generation: 1}
	c.objects.Add(dir, token)
	return token
}

// InvalidateObject bumps the cache-object generation for dir, changing its
// identity exactly once per mutation (commit, writeRef, push, checkout,
// branch, deleteRef).
func (c *Cache) InvalidateObject(dir string) interface{} {
	var gen uint64 = 1
	if v, ok := c.objects.Get(dir); ok {
		gen = v.(*cacheObjectToken).generation + 1
	}
	token := &cacheObjectToken{generation: gen}
	c.objects.Add(dir, token)
	return token
}
