// Package ids implements the canonical identifier operations: repo keys,
// relay URLs, repo addresses and permalinks. These are pure functions with
// no suspension points.
package ids

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/thoas/go-funk"

	"github.com/make-os/grasp/grasperrors"
)

var (
	segmentSanitizer = regexp.MustCompile(`[^A-Za-z0-9._-]`)
	hexID64          = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
	npubSegment      = regexp.MustCompile(`/npub1[a-z0-9]+`)
)

func sanitizeSegment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = segmentSanitizer.ReplaceAllString(s, "-")
	return s
}

// NormalizeRepoKey normalizes s into "owner/name". Accepts "owner/name" or
// "owner:name". Each segment is sanitized independently.
func NormalizeRepoKey(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", grasperrors.New(grasperrors.CodeInvalidInput, "empty repo key").
			WithHint("provide a key in the form owner/name")
	}

	if hexID64.MatchString(s) {
		return "", grasperrors.New(grasperrors.CodeInvalidInput, "repo key looks like a bare event id").
			WithContext(map[string]interface{}{"input": s})
	}

	sep := "/"
	if !strings.Contains(s, "/") && strings.Contains(s, ":") {
		sep = ":"
	}

	parts := strings.SplitN(s, sep, 2)
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return "", grasperrors.New(grasperrors.CodeInvalidInput, "repo key missing owner or name segment").
			WithContext(map[string]interface{}{"input": s})
	}

	owner := sanitizeSegment(parts[0])
	name := sanitizeSegment(parts[1])
	if owner == "" || name == "" {
		return "", grasperrors.New(grasperrors.CodeInvalidInput, "repo key segment empty after sanitization").
			WithContext(map[string]interface{}{"input": s})
	}

	return owner + "/" + name, nil
}

// NormalizeRelayURL canonicalizes a relay URL: ws:// for .onion hosts, wss://
// otherwise; lowercased host; default ports stripped; duplicate slashes
// collapsed; fragment dropped; userinfo and query preserved.
func NormalizeRelayURL(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", grasperrors.New(grasperrors.CodeInvalidInput, "empty relay url")
	}

	if !strings.Contains(s, "://") {
		s = "wss://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", grasperrors.Wrap(err, grasperrors.CodeInvalidInput, "malformed relay url").
			WithContext(map[string]interface{}{"input": s})
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", grasperrors.New(grasperrors.CodeInvalidInput, "relay url missing host").
			WithContext(map[string]interface{}{"input": s})
	}

	scheme := "wss"
	if strings.HasSuffix(host, ".onion") {
		scheme = "ws"
	}

	port := u.Port()
	defaultPort := map[string]string{"ws": "80", "wss": "443"}[scheme]
	hostport := host
	if port != "" && port != defaultPort {
		hostport = host + ":" + port
	}

	path := collapseSlashes(u.EscapedPath())

	out := url.URL{
		Scheme:   scheme,
		User:     u.User,
		Host:     hostport,
		Path:     path,
		RawQuery: u.RawQuery,
	}
	return out.String(), nil
}

func collapseSlashes(p string) string {
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

// MakeRepoAddr builds a "30617:<hex>:<repoId>" repo address string.
func MakeRepoAddr(pubkeyHex, repoID string) (string, error) {
	if !hexID64.MatchString(pubkeyHex) {
		return "", grasperrors.New(grasperrors.CodeInvalidInput, "pubkey must be 64 hex characters").
			WithContext(map[string]interface{}{"pubkey": pubkeyHex})
	}
	if strings.TrimSpace(repoID) == "" {
		return "", grasperrors.New(grasperrors.CodeInvalidInput, "repoId must not be empty")
	}
	return "30617:" + strings.ToLower(pubkeyHex) + ":" + repoID, nil
}

// RepoAddr is the parsed form of a "kind:pubkey:repoId" address.
type RepoAddr struct {
	Kind   int
	Pubkey string
	RepoID string
}

// ParseRepoAddr parses and validates a repo address produced by MakeRepoAddr
// (or any addressable-event reference of the same shape).
func ParseRepoAddr(addr string) (*RepoAddr, error) {
	parts := strings.SplitN(addr, ":", 3)
	if len(parts) != 3 {
		return nil, grasperrors.New(grasperrors.CodeInvalidInput, "repo address must have 3 colon-separated parts").
			WithContext(map[string]interface{}{"input": addr})
	}

	kind, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, errors.Wrap(grasperrors.New(grasperrors.CodeInvalidInput, "repo address kind is not numeric"), "parse repo address")
	}

	if !hexID64.MatchString(parts[1]) {
		return nil, grasperrors.New(grasperrors.CodeInvalidInput, "repo address pubkey segment must be 64 hex characters").
			WithContext(map[string]interface{}{"input": addr})
	}

	if parts[2] == "" {
		return nil, grasperrors.New(grasperrors.CodeInvalidInput, "repo address missing repoId segment")
	}

	return &RepoAddr{Kind: kind, Pubkey: strings.ToLower(parts[1]), RepoID: parts[2]}, nil
}

// decodeNpubSegment decodes a "npub1..." path segment into its raw pubkey
// bytes using base58, mirroring the way the pack favors a compact
// human-facing encoding for pubkey path segments.
func decodeNpubSegment(segment string) ([]byte, bool) {
	body := strings.TrimPrefix(segment, "npub1")
	if body == segment {
		return nil, false
	}
	raw, err := base58.Decode(body)
	if err != nil {
		return nil, false
	}
	return raw, true
}

// NormalizeCloneURL lowercases a clone URL, strips a trailing ".git" and
// trailing slashes, and replaces any embedded "npub1…" path segment with a
// literal placeholder so that otherwise-identical clone URLs published by
// different signer identities group together.
func NormalizeCloneURL(cloneURL string) string {
	s := strings.ToLower(strings.TrimSpace(cloneURL))
	s = strings.TrimRight(s, "/")
	s = strings.TrimSuffix(s, ".git")
	s = npubSegment.ReplaceAllStringFunc(s, func(seg string) string {
		if _, ok := decodeNpubSegment(strings.TrimPrefix(seg, "/")); ok {
			return "/<npub>"
		}
		return seg
	})
	return s
}

// NormalizeCloneURLSet normalizes, dedupes and sorts a set of clone URLs,
// joining them with "|" — the group key fragment used by reposet.GroupByEUC.
func NormalizeCloneURLSet(urls []string) string {
	normalized := funk.Map(urls, func(u string) string { return NormalizeCloneURL(u) }).([]string)
	uniq := funk.UniqString(normalized)
	sort.Strings(uniq)
	return strings.Join(uniq, "|")
}

// Permalink is the structured result of ParsePermalink.
type Permalink struct {
	Platform  string
	Owner     string
	Repo      string
	Ref       string
	Path      string
	StartLine int
	EndLine   int
	IsDiff    bool
	DiffHash  string
}

var (
	blobRe   = regexp.MustCompile(`^https?://([^/]+)/([^/]+)/([^/]+)/blob/([^/]+)/(.+?)(?:#L(\d+)(?:-L(\d+))?)?$`)
	commitRe = regexp.MustCompile(`^https?://([^/]+)/([^/]+)/([^/]+)/commit/([0-9a-fA-F]+)(?:#(diff-[0-9a-fA-F]+))?$`)
	giteaRe  = regexp.MustCompile(`^https?://([^/]+)/([^/]+)/([^/]+)/src/commit/([^/]+)/(.+?)(?:#L(\d+)(?:-L(\d+))?)?$`)
)

// ParsePermalink recognizes three hosting styles (blob, commit+diff
// fragment, Gitea src/commit) and returns nil for unrecognized shapes.
func ParsePermalink(link string) *Permalink {
	if m := giteaRe.FindStringSubmatch(link); m != nil {
		return &Permalink{
			Platform:  "gitea",
			Owner:     m[2],
			Repo:      m[3],
			Ref:       m[4],
			Path:      m[5],
			StartLine: atoiOrZero(m[6]),
			EndLine:   atoiOrZero(m[7]),
		}
	}
	if m := blobRe.FindStringSubmatch(link); m != nil {
		return &Permalink{
			Platform:  "generic",
			Owner:     m[2],
			Repo:      m[3],
			Ref:       m[4],
			Path:      m[5],
			StartLine: atoiOrZero(m[6]),
			EndLine:   atoiOrZero(m[7]),
		}
	}
	if m := commitRe.FindStringSubmatch(link); m != nil {
		return &Permalink{
			Platform: "generic",
			Owner:    m[2],
			Repo:     m[3],
			Ref:      m[4],
			IsDiff:   m[5] != "",
			DiffHash: m[5],
		}
	}
	return nil
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
