package bridge_test

import (
	"context"
	"io"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/make-os/grasp/bridge"
	"github.com/make-os/grasp/capability"
)

type stubProvider struct {
	refs []capability.Ref
}

func (s *stubProvider) Init(context.Context, string, bool) error { return nil }
func (s *stubProvider) Clone(context.Context, string, capability.CloneOptions, capability.CacheObject) error {
	return nil
}
func (s *stubProvider) Fetch(context.Context, string, string, []string, capability.CacheObject) error {
	return nil
}
func (s *stubProvider) Pull(context.Context, string, string, string, capability.CacheObject) error {
	return nil
}
func (s *stubProvider) Push(context.Context, string, string, []string, func(string) (string, string), capability.CacheObject) error {
	return nil
}
func (s *stubProvider) Merge(context.Context, string, string, capability.CacheObject) error { return nil }
func (s *stubProvider) Commit(context.Context, string, string, string, capability.CacheObject) (string, error) {
	return "", nil
}
func (s *stubProvider) Walk(context.Context, string, string, capability.CacheObject) (capability.CommitWalker, error) {
	return nil, nil
}
func (s *stubProvider) Log(context.Context, string, string, capability.CacheObject) ([]*capability.CommitInfo, error) {
	return nil, nil
}
func (s *stubProvider) ReadCommit(context.Context, string, string, capability.CacheObject) (*capability.CommitInfo, error) {
	return nil, nil
}
func (s *stubProvider) ReadBlob(context.Context, string, string, string, capability.CacheObject) (io.ReadCloser, error) {
	return nil, nil
}
func (s *stubProvider) ResolveRef(context.Context, string, string, capability.CacheObject) (string, error) {
	return "", nil
}
func (s *stubProvider) ListBranches(context.Context, string, capability.CacheObject) ([]capability.Branch, error) {
	return nil, nil
}
func (s *stubProvider) ListRemotes(context.Context, string, capability.CacheObject) ([]string, error) {
	return nil, nil
}
func (s *stubProvider) ListRefs(context.Context, string, capability.CacheObject) ([]capability.Ref, error) {
	return s.refs, nil
}
func (s *stubProvider) ListServerRefs(context.Context, string) ([]capability.Ref, error) { return nil, nil }
func (s *stubProvider) WriteRef(context.Context, string, string, string, capability.CacheObject) error {
	return nil
}
func (s *stubProvider) DeleteRef(context.Context, string, string, capability.CacheObject) error {
	return nil
}
func (s *stubProvider) StatusMatrix(context.Context, string, capability.CacheObject) ([]capability.StatusEntry, error) {
	return nil, nil
}
func (s *stubProvider) Checkout(context.Context, string, string, capability.CacheObject) error { return nil }
func (s *stubProvider) Add(context.Context, string, []string, capability.CacheObject) error    { return nil }
func (s *stubProvider) Remove(context.Context, string, []string, capability.CacheObject) error { return nil }

type stubEventIO struct {
	published []interface{}
	result    capability.PublishResult
	err       error
}

func (s *stubEventIO) FetchEvents(context.Context, interface{}) ([]interface{}, error) { return nil, nil }
func (s *stubEventIO) PublishEvent(ctx context.Context, event interface{}) (capability.PublishResult, error) {
	s.published = append(s.published, event)
	return s.result, s.err
}

type stubSigner struct{}

func (stubSigner) Sign(ctx context.Context, unsigned interface{}) (interface{}, error) {
	return unsigned, nil
}

type stubBlobStore struct {
	summary *capability.BlobSummary
	err     error
	called  bool
}

func (s *stubBlobStore) PushToBlossom(ctx context.Context, hashes []string) (*capability.BlobSummary, error) {
	s.called = true
	return s.summary, s.err
}

var _ = Describe("PushAndSync", func() {
	var provider *stubProvider

	BeforeEach(func() {
		provider = &stubProvider{refs: []capability.Ref{
			{Name: "refs/heads/main", CommitID: "c1"},
			{Name: "refs/tags/v1", CommitID: "c0"},
		}}
	})

	It("publishes state and mirrors blobs on a fully successful sequence", func() {
		eventIO := &stubEventIO{result: capability.PublishResult{OK: true, Relays: []string{"wss://relay.test"}}}
		blobs := &stubBlobStore{summary: &capability.BlobSummary{Total: 2, Uploaded: 2}}

		res, err := bridge.PushAndSync(context.Background(), provider, "/tmp/o-r", nil, "o/r", "pk1", false, stubSigner{}, eventIO, blobs)
		Expect(err).To(BeNil())
		Expect(res.Pushed).To(BeTrue())
		Expect(res.StatePublished).To(BeTrue())
		Expect(blobs.called).To(BeTrue())
		Expect(res.BlobSummary.Uploaded).To(Equal(2))
		Expect(eventIO.published).To(HaveLen(1))
	})

	It("does not mirror blobs when state publish fails", func() {
		eventIO := &stubEventIO{result: capability.PublishResult{OK: false, Error: "no relay ack"}}
		blobs := &stubBlobStore{summary: &capability.BlobSummary{}}

		res, err := bridge.PushAndSync(context.Background(), provider, "/tmp/o-r", nil, "o/r", "pk1", false, stubSigner{}, eventIO, blobs)
		Expect(err).To(BeNil())
		Expect(res.StatePublished).To(BeFalse())
		Expect(blobs.called).To(BeFalse())
	})

	It("reports a mirror failure without touching the already-successful push/publish", func() {
		eventIO := &stubEventIO{result: capability.PublishResult{OK: true}}
		blobs := &stubBlobStore{err: io.ErrClosedPipe}

		res, err := bridge.PushAndSync(context.Background(), provider, "/tmp/o-r", nil, "o/r", "pk1", false, stubSigner{}, eventIO, blobs)
		Expect(err).NotTo(BeNil())
		Expect(res.Pushed).To(BeTrue())
		Expect(res.StatePublished).To(BeTrue())
	})

	It("skips publish entirely when no EventIO is configured", func() {
		res, err := bridge.PushAndSync(context.Background(), provider, "/tmp/o-r", nil, "o/r", "pk1", false, stubSigner{}, nil, nil)
		Expect(err).To(BeNil())
		Expect(res.StatePublished).To(BeFalse())
	})
})
