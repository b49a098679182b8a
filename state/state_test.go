package state_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/make-os/grasp/nostr"
	"github.com/make-os/grasp/state"
)

func stateEvent(id, author string, createdAt int64, fullRef, commit string) *nostr.Event {
	e := &nostr.Event{ID: id, Kind: nostr.KindRepoState, Pubkey: author, CreatedAt: createdAt}
	return nostr.AddTag(e, nostr.Tag{"ref", fullRef, commit})
}

var _ = Describe("MergeRepoStateByMaintainers", func() {
	It("keeps the maintainer entry with the greatest (created_at, id) per key", func() {
		m := nostr.AddTag(&nostr.Event{ID: "e1", Kind: nostr.KindRepoState, Pubkey: "M", CreatedAt: 10}, nostr.Tag{"ref", "refs/heads/main", "c1"})
		n := nostr.AddTag(&nostr.Event{ID: "e2", Kind: nostr.KindRepoState, Pubkey: "N", CreatedAt: 20}, nostr.Tag{"ref", "refs/heads/main", "c2"})
		m2 := nostr.AddTag(&nostr.Event{ID: "e3", Kind: nostr.KindRepoState, Pubkey: "M", CreatedAt: 30}, nostr.Tag{"ref", "refs/heads/main", "c3"})

		merged, err := state.MergeRepoStateByMaintainers([]string{"M"}, []*nostr.Event{m, n, m2}, false)
		Expect(err).To(BeNil())
		Expect(merged["heads:main"].CommitID).To(Equal("c3"))
	})

	It("ignores non-maintainer events entirely", func() {
		n := nostr.AddTag(&nostr.Event{ID: "e1", Kind: nostr.KindRepoState, Pubkey: "N", CreatedAt: 100}, nostr.Tag{"ref", "refs/heads/main", "cX"})
		merged, err := state.MergeRepoStateByMaintainers([]string{"M"}, []*nostr.Event{n}, false)
		Expect(err).To(BeNil())
		_, ok := merged["heads:main"]
		Expect(ok).To(BeFalse())
	})

	It("breaks created_at ties by lexicographically greater event id", func() {
		a := nostr.AddTag(&nostr.Event{ID: "aaa", Kind: nostr.KindRepoState, Pubkey: "M", CreatedAt: 10}, nostr.Tag{"ref", "refs/heads/main", "ca"})
		b := nostr.AddTag(&nostr.Event{ID: "bbb", Kind: nostr.KindRepoState, Pubkey: "M", CreatedAt: 10}, nostr.Tag{"ref", "refs/heads/main", "cb"})

		merged, err := state.MergeRepoStateByMaintainers([]string{"M"}, []*nostr.Event{a, b}, false)
		Expect(err).To(BeNil())
		Expect(merged["heads:main"].CommitID).To(Equal("cb"))
	})

	It("derives type:short from refs/{type}/{short}", func() {
		e := stateEvent("e1", "M", 1, "refs/tags/v1", "ctag")
		merged, err := state.MergeRepoStateByMaintainers([]string{"M"}, []*nostr.Event{e}, false)
		Expect(err).To(BeNil())
		Expect(merged).To(HaveKey("tags:v1"))
	})

	It("surfaces a validation error instead of silently dropping a malformed event when validation is enabled", func() {
		e := stateEvent("not-64-hex", "M", 1, "refs/heads/main", "c1")
		_, err := state.MergeRepoStateByMaintainers([]string{"M"}, []*nostr.Event{e}, true)
		Expect(err).NotTo(BeNil())
	})
})
