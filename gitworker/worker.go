// Package gitworker implements the single-threaded cooperative Git worker
// (§4.J): one logical event loop owning a GitProvider and an in-process
// filesystem, exposing an RPC surface (smartInitializeRepo,
// ensureShallowClone, ensureFullClone, syncWithRemote, applyPatchAndPush,
// pushToRemote), backed by the repository cache. Grounded in the teacher's
// remote/refsync.RefSync queue-worker pattern: one task queue
// (pkgs/queue.UniqueQueue), a single worker goroutine, and a
// finalizing-refs mutex-guarded index generalized here from per-ref to
// per-repo task serialization.
package gitworker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/make-os/grasp/capability"
	"github.com/make-os/grasp/gitlog"
	"github.com/make-os/grasp/grasperrors"
	"github.com/make-os/grasp/pkgs/queue"
	"github.com/make-os/grasp/reposcache"
)

// task wraps one RPC call as a queued unit of work executed by the single
// worker goroutine. seq is the queue-uniqueness key (each submission gets
// its own, since UniqueQueue drops re-appends of an already-queued id);
// repoID is the finalizing-index key the worker uses to refuse running two
// tasks for the same repo concurrently, the way the teacher's RefSync
// refuses to finalize the same ref twice.
type task struct {
	seq    uint64
	repoID string
	run    func(ctx context.Context) (interface{}, error)
	result chan taskResult
}

type taskResult struct {
	value interface{}
	err   error
}

func (t *task) GetID() interface{} { return t.seq }

// Worker is the cooperative single-threaded Git worker. One Worker owns one
// GitProvider instance; operations on different repoIds may interleave at
// the task-queue level (they do not block each other while queued), but
// execution itself is always one task at a time.
type Worker struct {
	provider capability.GitProvider
	cache    *reposcache.Cache
	log      gitlog.Logger
	repoRoot string

	q       *queue.UniqueQueue
	stopCh  chan struct{}
	started bool
	seq     uint64

	lck        sync.Mutex
	finalizing map[string]bool
	repoStates map[string]State
}

// New creates a Worker. repoRoot is the base directory repo directories are
// resolved under (repoRoot/<repoId>).
func New(provider capability.GitProvider, cache *reposcache.Cache, log gitlog.Logger, repoRoot string) *Worker {
	return &Worker{
		provider:   provider,
		cache:      cache,
		log:        log.Module("git-worker"),
		repoRoot:   repoRoot,
		q:          queue.NewUnique(),
		stopCh:     make(chan struct{}),
		finalizing: map[string]bool{},
		repoStates: map[string]State{},
	}
}

// Start launches the single worker goroutine. Panics if already started.
func (w *Worker) Start() {
	w.lck.Lock()
	if w.started {
		w.lck.Unlock()
		panic("git worker already started")
	}
	w.started = true
	w.lck.Unlock()

	go w.loop()
}

// Stop halts the worker loop after its current task finishes.
func (w *Worker) Stop() {
	close(w.stopCh)
}

func (w *Worker) loop() {
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		item := w.q.Head()
		if item == nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		t := item.(*task)

		if w.isFinalizing(t.repoID) {
			// re-queue under a fresh seq: the original seq was already
			// removed from the index by Head() and must not be reused.
			t.seq = atomic.AddUint64(&w.seq, 1)
			w.q.Append(t)
			continue
		}

		w.addFinalizing(t.repoID)
		value, err := t.run(context.Background())
		w.removeFinalizing(t.repoID)

		t.result <- taskResult{value: value, err: err}
	}
}

func (w *Worker) isFinalizing(id string) bool {
	w.lck.Lock()
	defer w.lck.Unlock()
	return w.finalizing[id]
}

func (w *Worker) addFinalizing(id string) {
	w.lck.Lock()
	defer w.lck.Unlock()
	w.finalizing[id] = true
}

func (w *Worker) removeFinalizing(id string) {
	w.lck.Lock()
	defer w.lck.Unlock()
	delete(w.finalizing, id)
}

// submit enqueues a task keyed by repoId and blocks for its result. Callers
// outside the worker loop see every operation as atomic.
func (w *Worker) submit(ctx context.Context, repoID string, run func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	t := &task{
		seq:    atomic.AddUint64(&w.seq, 1),
		repoID: repoID,
		run:    run,
		result: make(chan taskResult, 1),
	}
	w.q.Append(t)

	select {
	case res := <-t.result:
		return res.value, res.err
	case <-ctx.Done():
		return nil, grasperrors.ErrOperationAborted
	}
}

func (w *Worker) setState(repoID string, s State) {
	w.lck.Lock()
	defer w.lck.Unlock()
	w.repoStates[repoID] = s
}

// State returns the current data-level state for repoID.
func (w *Worker) State(repoID string) State {
	w.lck.Lock()
	defer w.lck.Unlock()
	return w.repoStates[repoID]
}

func (w *Worker) repoDir(repoID string) string {
	return w.repoRoot + "/" + repoID
}

func (w *Worker) invalidateOnCorruption(repoID string, err error) error {
	if grasperrors.IsFatal(err) {
		w.setState(repoID, StateUnknown)
		if ierr := w.cache.Invalidate(repoID); ierr != nil {
			w.log.Warn("failed to invalidate cache after fatal error", "repo", repoID, "err", ierr.Error())
		}
	}
	return err
}

// QueueSize reports the number of queued-but-not-yet-running tasks.
func (w *Worker) QueueSize() int { return w.q.Size() }

var errNoBranches = errors.New("no branches")
