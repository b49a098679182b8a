// Package capability declares the four external collaborator interfaces
// this core consumes but never implements: GitProvider, EventIO, Signer,
// and BlobStore. Shaped after the teacher's remote/repo.Repo method surface
// (Clone, GetReferences, GetBranches, GetCommit, ObjectsOfCommit, ...),
// generalized from a single concrete *Repo receiver to an interface so a
// caller can supply any Git backend (go-git/v5 by default, see gitworker).
package capability

import (
	"context"
	"io"
	"time"
)

// Ref is a single resolved reference: its full name and target commit id.
type Ref struct {
	Name     string
	CommitID string
}

// Branch names a branch and its current tip commit.
type Branch struct {
	Name     string
	CommitID string
}

// CloneOptions controls GitProvider.Clone/Fetch depth and branch selection.
type CloneOptions struct {
	URL      string
	Branch   string
	Depth    int
	Bare     bool
	Mirror   bool
	Insecure bool
}

// CacheObject is the shared per-directory cache token passed to every
// GitProvider call so object-layer caches survive across reads (§4.I). Its
// concrete type is provider-specific; the core only ever compares identity.
type CacheObject interface{}

// StatusEntry is one path's three-way status in a diff/commit comparison.
type StatusEntry struct {
	Path     string
	Staging  byte
	Worktree byte
}

// CommitInfo is the subset of a Git commit the core needs: hash, parents,
// author, timestamp, message.
type CommitInfo struct {
	Hash      string
	Parents   []string
	Author    string
	Message   string
	Timestamp time.Time
}

// GitProvider is the Git object/packfile implementation the core drives.
// All receivers take a CacheObject produced for the target directory; the
// provider is free to use it as an opaque cache key.
type GitProvider interface {
	Init(ctx context.Context, dir string, bare bool) error
	Clone(ctx context.Context, dir string, opts CloneOptions, cache CacheObject) error
	Fetch(ctx context.Context, dir string, remote string, refspecs []string, cache CacheObject) error
	Pull(ctx context.Context, dir string, remote string, branch string, cache CacheObject) error
	Push(ctx context.Context, dir string, remote string, refspecs []string, authCallback func(host string) (user, pass string), cache CacheObject) error
	Merge(ctx context.Context, dir string, targetBranch string, cache CacheObject) error
	Commit(ctx context.Context, dir string, message string, author string, cache CacheObject) (string, error)

	Walk(ctx context.Context, dir string, from string, cache CacheObject) (CommitWalker, error)
	Log(ctx context.Context, dir string, ref string, cache CacheObject) ([]*CommitInfo, error)
	ReadCommit(ctx context.Context, dir string, hash string, cache CacheObject) (*CommitInfo, error)
	ReadBlob(ctx context.Context, dir string, ref string, path string, cache CacheObject) (io.ReadCloser, error)

	ResolveRef(ctx context.Context, dir string, ref string, cache CacheObject) (string, error)
	ListBranches(ctx context.Context, dir string, cache CacheObject) ([]Branch, error)
	ListRemotes(ctx context.Context, dir string, cache CacheObject) ([]string, error)
	ListRefs(ctx context.Context, dir string, cache CacheObject) ([]Ref, error)
	ListServerRefs(ctx context.Context, url string) ([]Ref, error)

	WriteRef(ctx context.Context, dir string, name string, commitID string, cache CacheObject) error
	DeleteRef(ctx context.Context, dir string, name string, cache CacheObject) error

	StatusMatrix(ctx context.Context, dir string, cache CacheObject) ([]StatusEntry, error)
	Checkout(ctx context.Context, dir string, branch string, cache CacheObject) error
	Add(ctx context.Context, dir string, paths []string, cache CacheObject) error
	Remove(ctx context.Context, dir string, paths []string, cache CacheObject) error
}

// CommitWalker iterates ancestor commits one at a time.
type CommitWalker interface {
	Next() (*CommitInfo, error)
	Close()
}

// EventIO is the relay transport capability: fetch/publish signed events.
// The core never dials a socket; the host application owns subscriptions.
type EventIO interface {
	FetchEvents(ctx context.Context, filters interface{}) ([]interface{}, error)
	PublishEvent(ctx context.Context, event interface{}) (PublishResult, error)
}

// PublishResult reports per-relay acceptance of a published event.
type PublishResult struct {
	OK     bool
	Relays []string
	Error  string
}

// Signer turns an unsigned event template into a signed event. The core
// never stores or handles private keys; this is purely delegated.
type Signer interface {
	Sign(ctx context.Context, unsignedTemplate interface{}) (interface{}, error)
}

// BlobSummary reports the outcome of a blob mirroring pass.
type BlobSummary struct {
	Total    int
	Uploaded int
	Skipped  int
	Failures int
}

// BlobStore is the optional large-object ("Blossom") storage capability.
type BlobStore interface {
	PushToBlossom(ctx context.Context, objectHashes []string) (*BlobSummary, error)
}
