// Package bridge implements the relay-git bridge (§4.K): GRASP capability
// detection against a relay's HTTP origin, and the strict
// git-push -> publish-state -> mirror-blobs sequencing that follows a
// successful push to a relay-aware remote. Grounded in the teacher's
// NIP-11-adjacent relay info pattern and its ad hoc JSON reads via gjson.
package bridge

import (
	"context"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/tidwall/gjson"

	"github.com/make-os/grasp/grasperrors"
)

// Level classifies a relay's Git-hosting capability.
type Level string

const (
	// LevelFull is GRASP-01: the relay serves full Git HTTP (clone, fetch, push).
	LevelFull Level = "grasp-01"
	// LevelArchive is GRASP-05: the relay serves Git read-only (archive/mirror).
	LevelArchive Level = "grasp-05"
	// LevelUnsupported means the relay does not advertise any GRASP profile.
	LevelUnsupported Level = "unsupported"
)

// Capabilities is the outcome of detecting a relay's Git-hosting support.
type Capabilities struct {
	Level       Level
	Profiles    []string
	SmartHTTP   string
	Origins     []string
	LastChecked time.Time
}

// httpGetter abstracts the HTTP client so detection is testable without a
// live relay.
type httpGetter func(ctx context.Context, url string) ([]byte, int, error)

func defaultHTTPGetter(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/nostr+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// DetectCapabilities issues a NIP-11-style HTTP GET against httpOrigin,
// parses supported_grasps and smart_http/http fields, and classifies the
// relay as GRASP-01 (full), GRASP-05 (archive-only), or unsupported.
func DetectCapabilities(ctx context.Context, httpOrigin string) (*Capabilities, error) {
	return detectCapabilities(ctx, httpOrigin, defaultHTTPGetter)
}

func detectCapabilities(ctx context.Context, httpOrigin string, get httpGetter) (*Capabilities, error) {
	origin := strings.TrimRight(httpOrigin, "/")

	body, status, err := get(ctx, origin)
	if err != nil {
		return nil, grasperrors.Wrap(err, grasperrors.CodeRelayError, "failed to reach relay HTTP origin").
			WithContext(map[string]interface{}{"origin": origin})
	}
	if status >= 500 {
		return nil, grasperrors.New(grasperrors.CodeRelayError, "relay returned a server error during capability detection").
			WithContext(map[string]interface{}{"origin": origin, "statusCode": status})
	}
	if status >= 400 {
		return &Capabilities{Level: LevelUnsupported, Origins: fallbackOrigins(origin), LastChecked: lastChecked(body)}, nil
	}

	doc := gjson.ParseBytes(body)

	var profiles []string
	if arr := doc.Get("supported_grasps"); arr.Exists() {
		for _, p := range arr.Array() {
			profiles = append(profiles, p.String())
		}
	}

	smartHTTP := doc.Get("smart_http").String()
	if smartHTTP == "" {
		smartHTTP = doc.Get("http").String()
	}

	level := classify(profiles)
	origins := fallbackOrigins(origin)
	if smartHTTP != "" {
		origins = append([]string{strings.TrimRight(smartHTTP, "/")}, origins...)
	}

	return &Capabilities{
		Level:       level,
		Profiles:    profiles,
		SmartHTTP:   smartHTTP,
		Origins:     origins,
		LastChecked: lastChecked(body),
	}, nil
}

func classify(profiles []string) Level {
	for _, p := range profiles {
		if strings.EqualFold(p, string(LevelFull)) {
			return LevelFull
		}
	}
	for _, p := range profiles {
		if strings.EqualFold(p, string(LevelArchive)) {
			return LevelArchive
		}
	}
	return LevelUnsupported
}

// fallbackOrigins derives the candidate HTTP Git origins for a relay,
// heuristically appending /git as documented in spec.md's design notes:
// stricter implementations may prefer NIP-11-declared endpoints only.
func fallbackOrigins(origin string) []string {
	return []string{origin, origin + "/git"}
}

// lastChecked extracts an optional "updated_at"-style timestamp from the
// NIP-11 document using lenient parsing; it falls back to the zero time
// when absent or unparseable, never failing detection over it.
func lastChecked(body []byte) time.Time {
	raw := gjson.GetBytes(body, "updated_at").String()
	if raw == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// IsRelayAware reports whether url begins with one of a detected relay's
// origins. A relay classified as unsupported never matches.
func IsRelayAware(url string, caps *Capabilities) bool {
	if caps == nil || caps.Level == LevelUnsupported {
		return false
	}
	for _, o := range caps.Origins {
		if strings.HasPrefix(url, o) {
			return true
		}
	}
	return false
}
