package bridge_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/make-os/grasp/bridge"
)

func stubServer(body string, status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

var _ = Describe("DetectCapabilities", func() {
	It("classifies a relay advertising grasp-01 as full", func() {
		srv := stubServer(`{"supported_grasps":["grasp-01"],"smart_http":"`+"http://smart.test/git"+`"}`, 200)
		defer srv.Close()

		caps, err := bridge.DetectCapabilities(context.Background(), srv.URL)
		Expect(err).To(BeNil())
		Expect(caps.Level).To(Equal(bridge.LevelFull))
		Expect(caps.SmartHTTP).To(Equal("http://smart.test/git"))
		Expect(caps.Origins[0]).To(Equal("http://smart.test/git"))
	})

	It("classifies a relay advertising only grasp-05 as archive-only", func() {
		srv := stubServer(`{"supported_grasps":["grasp-05"]}`, 200)
		defer srv.Close()

		caps, err := bridge.DetectCapabilities(context.Background(), srv.URL)
		Expect(err).To(BeNil())
		Expect(caps.Level).To(Equal(bridge.LevelArchive))
	})

	It("classifies a relay with no grasp profile as unsupported", func() {
		srv := stubServer(`{"name":"some relay"}`, 200)
		defer srv.Close()

		caps, err := bridge.DetectCapabilities(context.Background(), srv.URL)
		Expect(err).To(BeNil())
		Expect(caps.Level).To(Equal(bridge.LevelUnsupported))
	})

	It("appends a /git fallback origin derived from the relay's own origin", func() {
		srv := stubServer(`{"supported_grasps":["grasp-01"]}`, 200)
		defer srv.Close()

		caps, err := bridge.DetectCapabilities(context.Background(), srv.URL)
		Expect(err).To(BeNil())
		Expect(caps.Origins).To(ContainElement(srv.URL + "/git"))
	})

	It("reports unsupported without erroring on a 404", func() {
		srv := stubServer(``, 404)
		defer srv.Close()

		caps, err := bridge.DetectCapabilities(context.Background(), srv.URL)
		Expect(err).To(BeNil())
		Expect(caps.Level).To(Equal(bridge.LevelUnsupported))
	})

	It("surfaces a relay-error on a 5xx response", func() {
		srv := stubServer(``, 503)
		defer srv.Close()

		_, err := bridge.DetectCapabilities(context.Background(), srv.URL)
		Expect(err).NotTo(BeNil())
	})
})

var _ = Describe("IsRelayAware", func() {
	It("matches a URL under a detected origin", func() {
		caps := &bridge.Capabilities{Level: bridge.LevelFull, Origins: []string{"https://relay.test"}}
		Expect(bridge.IsRelayAware("https://relay.test/o/r.git", caps)).To(BeTrue())
	})

	It("rejects an unsupported relay", func() {
		caps := &bridge.Capabilities{Level: bridge.LevelUnsupported}
		Expect(bridge.IsRelayAware("https://relay.test/o/r.git", caps)).To(BeFalse())
	})
})
