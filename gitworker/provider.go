package gitworker

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitstorage "github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/pkg/errors"

	"github.com/make-os/grasp/capability"
)

// GoGitProvider is the default capability.GitProvider, backed by
// github.com/go-git/go-git/v5. Plain (non-bare) on-disk repositories are
// opened fresh on every call, the way the teacher's remote/repo.Repo.Get
// does; CacheObject values are accepted and ignored.
//
// When memBacked is set, directories are instead backed by an in-process
// github.com/go-git/go-git/v5/storage/memory store and a
// github.com/go-git/go-billy/v5/memfs worktree, keyed by dir — used by the
// worker for ephemeral patch staging that must never touch the host
// filesystem.
type GoGitProvider struct {
	memBacked bool

	mu  sync.Mutex
	mem map[string]*git.Repository
	wts map[string]billy.Filesystem
}

// NewGoGitProvider constructs the default, disk-backed provider.
func NewGoGitProvider() *GoGitProvider { return &GoGitProvider{} }

// NewInMemoryGoGitProvider constructs a provider whose repositories live
// entirely in memory, keyed by the dir argument passed to each call.
func NewInMemoryGoGitProvider() *GoGitProvider {
	return &GoGitProvider{memBacked: true, mem: map[string]*git.Repository{}, wts: map[string]billy.Filesystem{}}
}

func (p *GoGitProvider) open(dir string) (*git.Repository, error) {
	if !p.memBacked {
		return git.PlainOpen(dir)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	repo, ok := p.mem[dir]
	if !ok {
		return nil, git.ErrRepositoryNotExists
	}
	return repo, nil
}

func (p *GoGitProvider) initMemRepo(dir string, storer gitstorage.Storer, fs billy.Filesystem) (*git.Repository, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	repo, err := git.Init(storer, fs)
	if err != nil {
		return nil, err
	}
	p.mem[dir] = repo
	p.wts[dir] = fs
	return repo, nil
}

func (p *GoGitProvider) Init(ctx context.Context, dir string, bare bool) error {
	if !p.memBacked {
		_, err := git.PlainInit(dir, bare)
		return err
	}
	fs := memfs.New()
	_, err := p.initMemRepo(dir, memory.NewStorage(), fs)
	return err
}

func (p *GoGitProvider) Clone(ctx context.Context, dir string, opts capability.CloneOptions, cache capability.CacheObject) error {
	gopts := &git.CloneOptions{URL: opts.URL, Depth: opts.Depth, InsecureSkipTLS: opts.Insecure}
	if opts.Branch != "" {
		gopts.SingleBranch = true
		gopts.ReferenceName = plumbing.NewBranchReferenceName(opts.Branch)
	}
	if !p.memBacked {
		_, err := git.PlainCloneContext(ctx, dir, opts.Bare || opts.Mirror, gopts)
		return err
	}
	fs := memfs.New()
	p.mu.Lock()
	p.wts[dir] = fs
	p.mu.Unlock()
	repo, err := git.CloneContext(ctx, memory.NewStorage(), fs, gopts)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.mem[dir] = repo
	p.mu.Unlock()
	return nil
}

func (p *GoGitProvider) Fetch(ctx context.Context, dir string, remote string, refspecs []string, cache capability.CacheObject) error {
	repo, err := p.open(dir)
	if err != nil {
		return err
	}
	specs := make([]config.RefSpec, 0, len(refspecs))
	for _, s := range refspecs {
		specs = append(specs, config.RefSpec(s))
	}
	err = repo.FetchContext(ctx, &git.FetchOptions{RemoteName: remote, RefSpecs: specs})
	if err == git.NoErrAlreadyUpToDate {
		return nil
	}
	return err
}

func (p *GoGitProvider) Pull(ctx context.Context, dir string, remote string, branch string, cache capability.CacheObject) error {
	repo, err := p.open(dir)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	opts := &git.PullOptions{RemoteName: remote}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}
	err = wt.PullContext(ctx, opts)
	if err == git.NoErrAlreadyUpToDate {
		return nil
	}
	return err
}

func (p *GoGitProvider) Push(ctx context.Context, dir string, remote string, refspecs []string, authCallback func(host string) (user, pass string), cache capability.CacheObject) error {
	repo, err := p.open(dir)
	if err != nil {
		return err
	}
	specs := make([]config.RefSpec, 0, len(refspecs))
	for _, s := range refspecs {
		specs = append(specs, config.RefSpec(s))
	}
	opts := &git.PushOptions{RemoteName: remote, RefSpecs: specs}
	if authCallback != nil {
		user, pass := authCallback(remote)
		if user != "" || pass != "" {
			opts.Auth = &githttp.BasicAuth{Username: user, Password: pass}
		}
	}
	err = repo.PushContext(ctx, opts)
	if err == git.NoErrAlreadyUpToDate {
		return nil
	}
	if err == transport.ErrAuthenticationRequired {
		return errors.Wrap(err, "authentication required")
	}
	return err
}

func (p *GoGitProvider) Merge(ctx context.Context, dir string, targetBranch string, cache capability.CacheObject) error {
	return errors.New("fast-forward-only merges are performed by writing the ref directly; three-way worktree merges are not supported")
}

func (p *GoGitProvider) Commit(ctx context.Context, dir string, message string, author string, cache capability.CacheObject) (string, error) {
	repo, err := p.open(dir)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	sig := parseAuthorSignature(author)
	hash, err := wt.Commit(message, &git.CommitOptions{Author: sig})
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

func parseAuthorSignature(author string) *object.Signature {
	name, email := author, ""
	for i := 0; i < len(author); i++ {
		if author[i] == '<' {
			name = author[:i]
			email = author[i+1:]
			if len(email) > 0 && email[len(email)-1] == '>' {
				email = email[:len(email)-1]
			}
			break
		}
	}
	return &object.Signature{Name: name, Email: email, When: time.Now()}
}

type goGitCommitWalker struct {
	iter object.CommitIter
}

func (w *goGitCommitWalker) Next() (*capability.CommitInfo, error) {
	c, err := w.iter.Next()
	if err != nil {
		return nil, err
	}
	return toCommitInfo(c), nil
}

func (w *goGitCommitWalker) Close() { w.iter.Close() }

func toCommitInfo(c *object.Commit) *capability.CommitInfo {
	parents := make([]string, 0, c.NumParents())
	for _, h := range c.ParentHashes {
		parents = append(parents, h.String())
	}
	return &capability.CommitInfo{
		Hash:      c.Hash.String(),
		Parents:   parents,
		Author:    c.Author.Name,
		Message:   c.Message,
		Timestamp: c.Author.When,
	}
}

func (p *GoGitProvider) Walk(ctx context.Context, dir string, from string, cache capability.CacheObject) (capability.CommitWalker, error) {
	repo, err := p.open(dir)
	if err != nil {
		return nil, err
	}
	start, err := repo.CommitObject(plumbing.NewHash(from))
	if err != nil {
		return nil, err
	}
	return &goGitCommitWalker{iter: object.NewCommitPreorderIter(start, nil, nil)}, nil
}

func (p *GoGitProvider) Log(ctx context.Context, dir string, ref string, cache capability.CacheObject) ([]*capability.CommitInfo, error) {
	repo, err := p.open(dir)
	if err != nil {
		return nil, err
	}
	hash, err := resolveHash(repo, ref)
	if err != nil {
		return nil, err
	}
	start, err := repo.CommitObject(hash)
	if err != nil {
		return nil, err
	}
	iter := object.NewCommitPreorderIter(start, nil, nil)
	defer iter.Close()

	var out []*capability.CommitInfo
	for {
		c, err := iter.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, toCommitInfo(c))
	}
	return out, nil
}

func (p *GoGitProvider) ReadCommit(ctx context.Context, dir string, hash string, cache capability.CacheObject) (*capability.CommitInfo, error) {
	repo, err := p.open(dir)
	if err != nil {
		return nil, err
	}
	c, err := repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return nil, err
	}
	return toCommitInfo(c), nil
}

func (p *GoGitProvider) ReadBlob(ctx context.Context, dir string, ref string, path string, cache capability.CacheObject) (io.ReadCloser, error) {
	repo, err := p.open(dir)
	if err != nil {
		return nil, err
	}
	hash, err := resolveHash(repo, ref)
	if err != nil {
		return nil, err
	}
	commit, err := repo.CommitObject(hash)
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	f, err := tree.File(path)
	if err != nil {
		return nil, err
	}
	return f.Reader()
}

func resolveHash(repo *git.Repository, ref string) (plumbing.Hash, error) {
	if plumbing.IsHash(ref) {
		return plumbing.NewHash(ref), nil
	}
	r, err := repo.Reference(plumbing.ReferenceName(ref), true)
	if err == nil {
		return r.Hash(), nil
	}
	r, err = repo.Reference(plumbing.NewBranchReferenceName(ref), true)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return r.Hash(), nil
}

func (p *GoGitProvider) ResolveRef(ctx context.Context, dir string, ref string, cache capability.CacheObject) (string, error) {
	repo, err := p.open(dir)
	if err != nil {
		return "", err
	}
	if ref == "HEAD" {
		h, err := repo.Head()
		if err != nil {
			return "", err
		}
		return h.Hash().String(), nil
	}
	hash, err := resolveHash(repo, ref)
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

func (p *GoGitProvider) ListBranches(ctx context.Context, dir string, cache capability.CacheObject) ([]capability.Branch, error) {
	repo, err := p.open(dir)
	if err != nil {
		return nil, err
	}
	iter, err := repo.Branches()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []capability.Branch
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		out = append(out, capability.Branch{Name: ref.Name().Short(), CommitID: ref.Hash().String()})
		return nil
	})
	return out, err
}

func (p *GoGitProvider) ListRemotes(ctx context.Context, dir string, cache capability.CacheObject) ([]string, error) {
	repo, err := p.open(dir)
	if err != nil {
		return nil, err
	}
	remotes, err := repo.Remotes()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(remotes))
	for _, r := range remotes {
		out = append(out, r.Config().Name)
	}
	return out, nil
}

func (p *GoGitProvider) ListRefs(ctx context.Context, dir string, cache capability.CacheObject) ([]capability.Ref, error) {
	repo, err := p.open(dir)
	if err != nil {
		return nil, err
	}
	iter, err := repo.References()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []capability.Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		out = append(out, capability.Ref{Name: ref.Name().String(), CommitID: ref.Hash().String()})
		return nil
	})
	return out, err
}

func (p *GoGitProvider) ListServerRefs(ctx context.Context, url string) ([]capability.Ref, error) {
	rem := git.NewRemote(nil, &config.RemoteConfig{Name: "origin", URLs: []string{url}})
	refs, err := rem.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]capability.Ref, 0, len(refs))
	for _, r := range refs {
		if r.Type() != plumbing.HashReference {
			continue
		}
		out = append(out, capability.Ref{Name: r.Name().String(), CommitID: r.Hash().String()})
	}
	return out, nil
}

func (p *GoGitProvider) WriteRef(ctx context.Context, dir string, name string, commitID string, cache capability.CacheObject) error {
	repo, err := p.open(dir)
	if err != nil {
		return err
	}
	ref := plumbing.NewHashReference(plumbing.ReferenceName(name), plumbing.NewHash(commitID))
	return repo.Storer.SetReference(ref)
}

func (p *GoGitProvider) DeleteRef(ctx context.Context, dir string, name string, cache capability.CacheObject) error {
	repo, err := p.open(dir)
	if err != nil {
		return err
	}
	return repo.Storer.RemoveReference(plumbing.ReferenceName(name))
}

func (p *GoGitProvider) StatusMatrix(ctx context.Context, dir string, cache capability.CacheObject) ([]capability.StatusEntry, error) {
	repo, err := p.open(dir)
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	status, err := wt.Status()
	if err != nil {
		return nil, err
	}
	out := make([]capability.StatusEntry, 0, len(status))
	for path, s := range status {
		out = append(out, capability.StatusEntry{Path: path, Staging: byte(s.Staging), Worktree: byte(s.Worktree)})
	}
	return out, nil
}

func (p *GoGitProvider) Checkout(ctx context.Context, dir string, branch string, cache capability.CacheObject) error {
	repo, err := p.open(dir)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	return wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(branch)})
}

func (p *GoGitProvider) Add(ctx context.Context, dir string, paths []string, cache capability.CacheObject) error {
	repo, err := p.open(dir)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	for _, path := range paths {
		if _, err := wt.Add(path); err != nil {
			return errors.Wrapf(err, "failed to stage %s", path)
		}
	}
	return nil
}

func (p *GoGitProvider) Remove(ctx context.Context, dir string, paths []string, cache capability.CacheObject) error {
	repo, err := p.open(dir)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	for _, path := range paths {
		if _, err := wt.Remove(path); err != nil {
			return errors.Wrapf(err, "failed to unstage %s", path)
		}
	}
	return nil
}
