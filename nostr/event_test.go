package nostr_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/make-os/grasp/nostr"
)

var _ = Describe("Tag accessors", func() {
	e := &nostr.Event{
		Kind: nostr.KindPatch,
		Tags: []nostr.Tag{
			{"commit", "c1"},
			{"parent-commit", "p1"},
			{"parent-commit", "p2"},
		},
	}

	It("GetTag returns the first match", func() {
		tag, ok := nostr.GetTag(e, "parent-commit")
		Expect(ok).To(BeTrue())
		Expect(tag.Value()).To(Equal("p1"))
	})

	It("GetTags returns every match", func() {
		tags := nostr.GetTags(e, "parent-commit")
		Expect(tags).To(HaveLen(2))
	})

	It("GetTagValue reports not-found explicitly for unknown names", func() {
		_, ok := nostr.GetTagValue(e, "does-not-exist")
		Expect(ok).To(BeFalse())
	})

	It("AddTag does not mutate the input", func() {
		out := nostr.AddTag(e, nostr.Tag{"t", "topic"})
		Expect(e.Tags).To(HaveLen(3))
		Expect(out.Tags).To(HaveLen(4))
	})

	It("SetTag replaces all tags of that name", func() {
		out := nostr.SetTag(e, nostr.Tag{"commit", "c2"})
		val, _ := nostr.GetTagValue(out, "commit")
		Expect(val).To(Equal("c2"))
		Expect(nostr.GetTags(out, "commit")).To(HaveLen(1))
	})

	It("RemoveTag drops every tag of that name", func() {
		out := nostr.RemoveTag(e, "parent-commit")
		Expect(nostr.GetTags(out, "parent-commit")).To(BeEmpty())
		Expect(nostr.GetTags(e, "parent-commit")).To(HaveLen(2))
	})
})

var _ = Describe("ValidateEvent", func() {
	It("is a no-op when disabled", func() {
		Expect(nostr.ValidateEvent(&nostr.Event{}, false)).To(BeNil())
	})

	It("rejects a patch event missing its commit tag when enabled", func() {
		err := nostr.ValidateEvent(&nostr.Event{Kind: nostr.KindPatch}, true)
		Expect(err).NotTo(BeNil())
	})

	It("accepts a well-formed patch event", func() {
		e := &nostr.Event{
			Kind: nostr.KindPatch,
			Tags: []nostr.Tag{{"commit", "c1"}},
		}
		Expect(nostr.ValidateEvent(e, true)).To(BeNil())
	})
})
