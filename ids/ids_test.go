package ids_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/make-os/grasp/ids"
)

var _ = Describe("NormalizeRepoKey", func() {
	It("should normalize owner/name form", func() {
		key, err := ids.NormalizeRepoKey("acme/widgets")
		Expect(err).To(BeNil())
		Expect(key).To(Equal("acme/widgets"))
	})

	It("should normalize owner:name form", func() {
		key, err := ids.NormalizeRepoKey("acme:widgets")
		Expect(err).To(BeNil())
		Expect(key).To(Equal("acme/widgets"))
	})

	It("should sanitize disallowed characters per segment", func() {
		key, err := ids.NormalizeRepoKey("ac me/wid gets!!")
		Expect(err).To(BeNil())
		Expect(key).To(Equal("ac-me/wid-gets--"))
	})

	It("should fail on empty input", func() {
		_, err := ids.NormalizeRepoKey("")
		Expect(err).NotTo(BeNil())
	})

	It("should fail on a bare 64-hex event id", func() {
		_, err := ids.NormalizeRepoKey("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
		Expect(err).NotTo(BeNil())
	})

	It("should be idempotent", func() {
		first, err := ids.NormalizeRepoKey("Acme/Widgets Co")
		Expect(err).To(BeNil())
		second, err := ids.NormalizeRepoKey(first)
		Expect(err).To(BeNil())
		Expect(second).To(Equal(first))
	})
})

var _ = Describe("NormalizeRelayURL", func() {
	It("should use wss for regular hosts and strip the default port", func() {
		out, err := ids.NormalizeRelayURL("relay.example.com:443/path//x")
		Expect(err).To(BeNil())
		Expect(out).To(Equal("wss://relay.example.com/path/x"))
	})

	It("should use ws for onion hosts", func() {
		out, err := ids.NormalizeRelayURL("wss://abc123.onion")
		Expect(err).To(BeNil())
		Expect(out).To(Equal("ws://abc123.onion"))
	})

	It("should lowercase the host", func() {
		out, err := ids.NormalizeRelayURL("wss://RELAY.Example.COM")
		Expect(err).To(BeNil())
		Expect(out).To(Equal("wss://relay.example.com"))
	})
})

var _ = Describe("MakeRepoAddr / ParseRepoAddr", func() {
	pubkey := "abcdefabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcd"[:64]

	It("should round-trip", func() {
		addr, err := ids.MakeRepoAddr(pubkey, "myrepo")
		Expect(err).To(BeNil())
		Expect(addr).To(Equal("30617:" + pubkey + ":myrepo"))

		parsed, err := ids.ParseRepoAddr(addr)
		Expect(err).To(BeNil())
		Expect(parsed.Kind).To(Equal(30617))
		Expect(parsed.Pubkey).To(Equal(pubkey))
		Expect(parsed.RepoID).To(Equal("myrepo"))
	})

	It("should reject a non-hex pubkey", func() {
		_, err := ids.MakeRepoAddr("not-hex", "myrepo")
		Expect(err).NotTo(BeNil())
	})
})

var _ = Describe("ParsePermalink", func() {
	It("should parse a blob permalink with a line range", func() {
		p := ids.ParsePermalink("https://host/owner/repo/blob/main/src/a.ts#L10-L20")
		Expect(p).NotTo(BeNil())
		Expect(p.Owner).To(Equal("owner"))
		Expect(p.Repo).To(Equal("repo"))
		Expect(p.Ref).To(Equal("main"))
		Expect(p.Path).To(Equal("src/a.ts"))
		Expect(p.StartLine).To(Equal(10))
		Expect(p.EndLine).To(Equal(20))
	})

	It("should parse a commit+diff fragment permalink", func() {
		p := ids.ParsePermalink("https://host/owner/repo/commit/deadbeef#diff-abc123")
		Expect(p).NotTo(BeNil())
		Expect(p.Ref).To(Equal("deadbeef"))
		Expect(p.IsDiff).To(BeTrue())
	})

	It("should parse a Gitea src/commit permalink", func() {
		p := ids.ParsePermalink("https://host/owner/repo/src/commit/abc123/dir/file.go#L5")
		Expect(p).NotTo(BeNil())
		Expect(p.Platform).To(Equal("gitea"))
		Expect(p.Path).To(Equal("dir/file.go"))
		Expect(p.StartLine).To(Equal(5))
	})

	It("should return nil for an unrecognized shape", func() {
		Expect(ids.ParsePermalink("https://host/not-a-permalink")).To(BeNil())
	})
})
