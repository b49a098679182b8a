package labels_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/make-os/grasp/labels"
	"github.com/make-os/grasp/nostr"
)

var _ = Describe("MergeLabels", func() {
	It("associates l tags with their declared L namespace", func() {
		e := &nostr.Event{}
		e = nostr.AddTag(e, nostr.Tag{"L", "priority"})
		e = nostr.AddTag(e, nostr.Tag{"l", "high", "priority"})
		e = nostr.AddTag(e, nostr.Tag{"t", "bug"})

		set := labels.MergeLabels(e, nil)
		Expect(set.Self).To(HaveLen(1))
		Expect(set.Self[0].Namespace).To(Equal("priority"))
		Expect(set.Self[0].Value).To(Equal("high"))
		Expect(set.Topic).To(ConsistOf("bug"))
	})

	It("drops l tags whose namespace was never declared", func() {
		e := &nostr.Event{}
		e = nostr.AddTag(e, nostr.Tag{"l", "high", "priority"})

		set := labels.MergeLabels(e, nil)
		Expect(set.Self).To(BeEmpty())
	})

	It("orders normalized as self, external, topic", func() {
		e := &nostr.Event{}
		e = nostr.AddTag(e, nostr.Tag{"L", "priority"})
		e = nostr.AddTag(e, nostr.Tag{"l", "high", "priority"})
		e = nostr.AddTag(e, nostr.Tag{"t", "bug"})

		ext := &nostr.Event{}
		ext = nostr.AddTag(ext, nostr.Tag{"L", "status"})
		ext = nostr.AddTag(ext, nostr.Tag{"l", "triaged", "status"})

		set := labels.MergeLabels(e, []*nostr.Event{ext})
		Expect(set.Normalized).To(Equal([]string{"priority/high", "status/triaged", "t/bug"}))
	})
})
