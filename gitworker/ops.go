package gitworker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/make-os/grasp/capability"
	"github.com/make-os/grasp/grasperrors"
	"github.com/make-os/grasp/reposcache"
)

// InitResult is the outcome of SmartInitializeRepo.
type InitResult struct {
	Success   bool
	DataLevel reposcache.DataLevel
	Warning   string
	Branches  []capability.Branch
	Head      string
}

const shallowDepth = 50

// SmartInitializeRepo returns the cached HEAD, data level and branches if
// the cache entry is fresh; otherwise it clones shallow (depth 50), resolves
// HEAD, lists branches, and updates the cache. A stale entry is also
// refreshed by cloning: it never fetches into an existing local clone.
// Empty repositories return {success:true, dataLevel:"refs",
// warning:"no branches"}.
func (w *Worker) SmartInitializeRepo(ctx context.Context, repoID string, cloneURLs []string, branch string) (*InitResult, error) {
	v, err := w.submit(ctx, repoID, func(ctx context.Context) (interface{}, error) {
		dir := w.repoDir(repoID)
		cacheObj := w.cache.CacheObject(dir)

		entry, _ := w.cache.Get(repoID)
		if entry != nil && !w.cache.NeedsUpdate(entry, time.Now(), "") {
			cached := make([]capability.Branch, 0, len(entry.Branches))
			for _, b := range entry.Branches {
				cached = append(cached, capability.Branch{Name: b.Name, CommitID: b.Commit})
			}
			return &InitResult{
				Success:   true,
				DataLevel: entry.DataLevel,
				Branches:  cached,
				Head:      entry.HeadCommit,
			}, nil
		}

		w.setState(repoID, StateCloning)
		if len(cloneURLs) == 0 {
			return nil, grasperrors.New(grasperrors.CodeInvalidInput, "no clone URLs provided")
		}

		opts := capability.CloneOptions{URL: cloneURLs[0], Branch: branch, Depth: shallowDepth}
		if err := grasperrors.WithRetry(ctx, func() error {
			if err := w.provider.Clone(ctx, dir, opts, cacheObj); err != nil {
				return grasperrors.Wrap(err, grasperrors.CodeNetwork, "failed to clone repository")
			}
			return nil
		}); err != nil {
			return nil, w.invalidateOnCorruption(repoID, err)
		}

		branches, err := w.provider.ListBranches(ctx, dir, cacheObj)
		if err != nil {
			return nil, grasperrors.Wrap(err, grasperrors.CodeNetwork, "failed to list branches after clone")
		}

		if len(branches) == 0 {
			w.setState(repoID, StateRefs)
			e := &reposcache.Entry{RepoID: repoID, LastUpdated: time.Now(), DataLevel: reposcache.DataLevelRefs, CloneURLs: cloneURLs}
			if err := w.cache.Put(e); err != nil {
				return nil, grasperrors.Wrap(err, grasperrors.CodeFilesystem, "failed to persist cache entry")
			}
			return &InitResult{Success: true, DataLevel: reposcache.DataLevelRefs, Warning: errNoBranches.Error()}, nil
		}

		head, err := w.provider.ResolveRef(ctx, dir, "HEAD", cacheObj)
		if err != nil {
			head = branches[0].CommitID
		}

		w.setState(repoID, StateShallow)
		e := &reposcache.Entry{
			RepoID:      repoID,
			LastUpdated: time.Now(),
			HeadCommit:  head,
			DataLevel:   reposcache.DataLevelShallow,
			CloneURLs:   cloneURLs,
		}
		for _, b := range branches {
			e.Branches = append(e.Branches, reposcache.BranchRef{Name: b.Name, Commit: b.CommitID})
		}
		if err := w.cache.Put(e); err != nil {
			return nil, grasperrors.Wrap(err, grasperrors.CodeFilesystem, "failed to persist cache entry")
		}

		return &InitResult{Success: true, DataLevel: reposcache.DataLevelShallow, Branches: branches, Head: head}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*InitResult), nil
}

// EnsureShallowClone fetches branch from origin and checks it out. The
// fetch carries no depth limit, so the branch is not truncated to depth 1.
func (w *Worker) EnsureShallowClone(ctx context.Context, repoID, branch string) error {
	_, err := w.submit(ctx, repoID, func(ctx context.Context) (interface{}, error) {
		dir := w.repoDir(repoID)
		cacheObj := w.cache.CacheObject(dir)

		if err := grasperrors.WithRetry(ctx, func() error {
			if err := w.provider.Fetch(ctx, dir, "origin", []string{"refs/heads/" + branch}, cacheObj); err != nil {
				return grasperrors.Wrap(err, grasperrors.CodeNetwork, "failed to fetch branch for shallow clone")
			}
			return nil
		}); err != nil {
			return nil, w.invalidateOnCorruption(repoID, err)
		}
		if err := w.provider.Checkout(ctx, dir, branch, w.cache.InvalidateObject(dir)); err != nil {
			return nil, grasperrors.Wrap(err, grasperrors.CodeInvalidRef, "failed to checkout branch")
		}
		w.setState(repoID, StateShallow)
		return nil, nil
	})
	return err
}

// EnsureFullClone upgrades a repository's data level to full.
func (w *Worker) EnsureFullClone(ctx context.Context, repoID string) error {
	_, err := w.submit(ctx, repoID, func(ctx context.Context) (interface{}, error) {
		dir := w.repoDir(repoID)
		cacheObj := w.cache.CacheObject(dir)

		if err := grasperrors.WithRetry(ctx, func() error {
			if err := w.provider.Fetch(ctx, dir, "origin", []string{"+refs/heads/*:refs/remotes/origin/*"}, cacheObj); err != nil {
				return grasperrors.Wrap(err, grasperrors.CodeNetwork, "failed to fetch full history")
			}
			return nil
		}); err != nil {
			return nil, w.invalidateOnCorruption(repoID, err)
		}
		w.setState(repoID, StateFull)

		if entry, _ := w.cache.Get(repoID); entry != nil {
			entry.DataLevel = reposcache.DataLevelFull
			entry.LastUpdated = time.Now()
			_ = w.cache.Put(entry)
		}
		return nil, nil
	})
	return err
}

// SyncResult is the outcome of SyncWithRemote.
type SyncResult struct {
	NeedsUpdate bool
	HeadCommit  string
	LocalCommit string
	Duration    time.Duration
}

// SyncWithRemote lists remotes, picks an origin, fetches, compares remote
// HEAD to local HEAD, and updates the cache.
func (w *Worker) SyncWithRemote(ctx context.Context, repoID, branch string) (*SyncResult, error) {
	started := time.Now()
	v, err := w.submit(ctx, repoID, func(ctx context.Context) (interface{}, error) {
		dir := w.repoDir(repoID)
		cacheObj := w.cache.CacheObject(dir)

		remotes, err := w.provider.ListRemotes(ctx, dir, cacheObj)
		if err != nil {
			return nil, grasperrors.Wrap(err, grasperrors.CodeNetwork, "failed to list remotes")
		}
		origin := "origin"
		if len(remotes) > 0 && !contains(remotes, "origin") {
			origin = remotes[0]
		}

		if err := grasperrors.WithRetry(ctx, func() error {
			if err := w.provider.Fetch(ctx, dir, origin, []string{"refs/heads/" + branch}, cacheObj); err != nil {
				return grasperrors.Wrap(err, grasperrors.CodeNetwork, "failed to fetch during sync")
			}
			return nil
		}); err != nil {
			return nil, w.invalidateOnCorruption(repoID, err)
		}

		localHead, err := w.provider.ResolveRef(ctx, dir, "refs/heads/"+branch, cacheObj)
		if err != nil {
			return nil, grasperrors.Wrap(err, grasperrors.CodeInvalidRef, "failed to resolve local head")
		}

		remoteRefs, err := w.provider.ListServerRefs(ctx, origin)
		remoteHead := localHead
		if err == nil {
			for _, r := range remoteRefs {
				if r.Name == "refs/heads/"+branch {
					remoteHead = r.CommitID
				}
			}
		}

		if entry, _ := w.cache.Get(repoID); entry != nil {
			entry.HeadCommit = remoteHead
			entry.LastUpdated = time.Now()
			_ = w.cache.Put(entry)
		}

		return &SyncResult{
			NeedsUpdate: remoteHead != localHead,
			HeadCommit:  remoteHead,
			LocalCommit: localHead,
			Duration:    time.Since(started),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*SyncResult), nil
}

func contains(set []string, s string) bool {
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}

// PushResult is the outcome of PushToRemote/ApplyPatchAndPush.
type PushResult struct {
	Pushed bool
	URL    string
}

// ApplyPatchAndPush stages the given paths, commits them with commitMessage
// and author, and pushes refs/heads/<patchBranch> to remoteURL, trying each
// provided auth token in order (the token cascade, §7). It does not parse a
// diff and does not stage deletions; the commit lands on the currently
// checked-out branch, and patchBranch is neither created nor checked out.
func (w *Worker) ApplyPatchAndPush(ctx context.Context, repoID string, patchBranch string, paths []string, commitMessage, author string, remoteURL string, tokens []string) (*PushResult, error) {
	v, err := w.submit(ctx, repoID, func(ctx context.Context) (interface{}, error) {
		dir := w.repoDir(repoID)
		cacheObj := w.cache.InvalidateObject(dir)

		if err := w.provider.Add(ctx, dir, paths, cacheObj); err != nil {
			return nil, grasperrors.Wrap(err, grasperrors.CodeFilesystem, "failed to stage patch files")
		}

		if _, err := w.provider.Commit(ctx, dir, commitMessage, author, cacheObj); err != nil {
			return nil, grasperrors.Wrap(err, grasperrors.CodeFilesystem, "failed to commit patch")
		}

		return pushWithTokenCascade(ctx, w, dir, remoteURL, []string{"refs/heads/" + patchBranch}, tokens, cacheObj)
	})
	if err != nil {
		return nil, err
	}
	return v.(*PushResult), nil
}

// PushToRemote pushes refs/heads/<branch> to url through the worker's
// GitProvider, trying each provided auth token in order. It has no
// relay-specific path: relay URLs are pushed like any other remote, and the
// bridge sequence (bridge.PushAndSync) is not run.
func (w *Worker) PushToRemote(ctx context.Context, repoID, url, branch string, tokens []string) (*PushResult, error) {
	v, err := w.submit(ctx, repoID, func(ctx context.Context) (interface{}, error) {
		dir := w.repoDir(repoID)
		cacheObj := w.cache.InvalidateObject(dir)
		return pushWithTokenCascade(ctx, w, dir, url, []string{"refs/heads/" + branch}, tokens, cacheObj)
	})
	if err != nil {
		return nil, err
	}
	return v.(*PushResult), nil
}

// pushWithTokenCascade tries each given token in order, retrying retriable
// failures per token; after every token has failed it returns a single
// aggregated user-actionable error listing each attempt's failure (§7).
// Tokens are not filtered by host: every token passed in is tried.
func pushWithTokenCascade(ctx context.Context, w *Worker, dir, url string, refspecs []string, tokens []string, cacheObj capability.CacheObject) (*PushResult, error) {
	if len(tokens) == 0 {
		tokens = []string{""}
	}

	var attemptErrors []string
	for _, token := range tokens {
		token := token
		authCb := func(host string) (string, string) { return token, "x-oauth-basic" }
		err := grasperrors.WithRetry(ctx, func() error {
			pushErr := w.provider.Push(ctx, dir, url, refspecs, authCb, cacheObj)
			if pushErr == nil {
				return nil
			}
			if errors.Is(pushErr, transport.ErrAuthenticationRequired) {
				return grasperrors.Wrap(pushErr, grasperrors.CodeAuthRequired, "authentication failed for token")
			}
			return grasperrors.Wrap(pushErr, grasperrors.CodeNetwork, "failed to push")
		})
		if err == nil {
			return &PushResult{Pushed: true, URL: url}, nil
		}
		attemptErrors = append(attemptErrors, err.Error())
	}

	return nil, grasperrors.New(grasperrors.CodeAuthRequired, "all configured tokens failed").
		WithHint("configure a valid token for host " + hostOf(url)).
		WithContext(map[string]interface{}{"attempts": attemptErrors})
}

func hostOf(url string) string {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	if idx := strings.Index(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}
