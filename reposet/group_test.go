package reposet_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/make-os/grasp/nostr"
	"github.com/make-os/grasp/reposet"
)

func announcement(pubkey, d, name, euc string, clones ...string) *nostr.Event {
	e := &nostr.Event{Kind: nostr.KindRepoAnnouncement, Pubkey: pubkey}
	e = nostr.AddTag(e, nostr.Tag{"d", d})
	e = nostr.AddTag(e, nostr.Tag{"name", name})
	e = nostr.AddTag(e, nostr.Tag{"r", euc, "euc"})
	for _, c := range clones {
		e = nostr.AddTag(e, nostr.Tag{"clone", c})
	}
	return e
}

var _ = Describe("GroupByEUC", func() {
	It("splits forks with the same EUC but different names into separate groups", func() {
		a := announcement("pub1", "alpha", "alpha", "E", "https://h/u/alpha.git")
		b := announcement("pub2", "alpha-fork", "alpha-fork", "E", "https://h/v/alpha-fork.git")

		groups, err := reposet.GroupByEUC([]*nostr.Event{a, b}, false)
		Expect(err).To(BeNil())
		Expect(groups).To(HaveLen(2))
	})

	It("folds events with identical EUC/name/clones from different authors into one group", func() {
		a := announcement("pub1", "alpha", "alpha", "E", "https://h/u/alpha.git")
		b := announcement("pub2", "alpha", "alpha", "E", "https://h/u/alpha.git")

		groups, err := reposet.GroupByEUC([]*nostr.Event{a, b}, false)
		Expect(err).To(BeNil())
		Expect(groups).To(HaveLen(1))
		Expect(groups[0].Maintainers).To(ContainElement("pub1"))
		Expect(groups[0].Maintainers).To(ContainElement("pub2"))
	})

	It("includes every event author in the group's maintainer set", func() {
		a := announcement("pub1", "alpha", "alpha", "E", "https://h/u/alpha.git")
		groups, err := reposet.GroupByEUC([]*nostr.Event{a}, false)
		Expect(err).To(BeNil())
		Expect(groups[0].Maintainers).To(ContainElement("pub1"))
	})

	It("surfaces a validation error instead of silently dropping a malformed event when validation is enabled", func() {
		a := announcement("pub1", "alpha", "alpha", "E", "https://h/u/alpha.git")
		_, err := reposet.GroupByEUC([]*nostr.Event{a}, true)
		Expect(err).NotTo(BeNil())
	})
})
