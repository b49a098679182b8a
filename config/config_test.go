package config_test

import (
	"io/ioutil"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/make-os/grasp/config"
)

var _ = Describe("Load", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = ioutil.TempDir("", "grasp-config")
		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		Expect(os.RemoveAll(dir)).To(BeNil())
	})

	It("applies defaults and writes a config file on first load", func() {
		cfg, err := config.Load(dir)
		Expect(err).To(BeNil())
		Expect(cfg.CacheMode).To(Equal(config.CacheModePerSession))
		Expect(cfg.CacheMaxAgeMs).To(Equal(60000))
		Expect(cfg.ValidateEvents).To(BeTrue())

		_, statErr := os.Stat(filepath.Join(dir, "grasp.yml"))
		Expect(statErr).To(BeNil())
	})

	It("matches auth tokens by host suffix", func() {
		cfg, err := config.Load(dir)
		Expect(err).To(BeNil())
		cfg.AuthTokens = []config.AuthToken{{Host: "example.test", Token: "tok-1"}}

		tok, ok := cfg.TokenFor("relay.example.test")
		Expect(ok).To(BeTrue())
		Expect(tok).To(Equal("tok-1"))

		_, ok = cfg.TokenFor("other.test")
		Expect(ok).To(BeFalse())
	})

	It("reloads an existing config file without overwriting it", func() {
		first, err := config.Load(dir)
		Expect(err).To(BeNil())
		first.CacheMaxAgeMs = 1234

		second, err := config.Load(dir)
		Expect(err).To(BeNil())
		Expect(second.CacheMaxAgeMs).To(Equal(60000), "Load must read the written file's own values, not the mutated in-memory struct")
	})
})
