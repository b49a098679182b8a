// Package state implements the state resolver: merging multiple repository
// state events (kind 30618) into one ref-map using maintainer authority and
// recency. Grounded in the teacher's refsync task idiom (remote/refsync) of
// folding the newest observation per key, adapted from ref-sync tasks to
// event timestamp comparison.
package state

import (
	"sort"
	"strings"

	"github.com/thoas/go-funk"

	"github.com/make-os/grasp/nostr"
)

// RefEntry is one resolved ref: its commit id, the maintainer that published
// it, when, and the full ref path it came from.
type RefEntry struct {
	CommitID  string
	Author    string
	Timestamp int64
	EventID   string
	FullRef   string
}

// MergedState maps "type:shortName" (e.g. "heads:main", "tags:v1") to the
// winning RefEntry, plus an optional "HEAD" symbolic entry.
type MergedState map[string]RefEntry

// shortKey derives "type:short" from a full ref path "refs/{type}/{short}".
// Refs that don't match that shape are keyed by their full path verbatim.
func shortKey(fullRef string) string {
	const prefix = "refs/"
	if !strings.HasPrefix(fullRef, prefix) {
		return fullRef
	}
	rest := strings.TrimPrefix(fullRef, prefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		return fullRef
	}
	return parts[0] + ":" + parts[1]
}

// wins reports whether candidate should replace current under the
// (created_at, id) precedence: greater created_at wins; ties are broken by
// lexicographically greater event id for determinism.
func wins(candidate, current RefEntry) bool {
	if candidate.Timestamp != current.Timestamp {
		return candidate.Timestamp > current.Timestamp
	}
	return candidate.EventID > current.EventID
}

// MergeRepoStateByMaintainers iterates every state event authored by a
// maintainer and, for each ref key, keeps the entry with the greatest
// (created_at, id). Non-maintainer events are ignored entirely. HEAD
// symbolic tags are merged identically under the reserved "HEAD" key. When
// validateEvents is true, every event is asserted via nostr.ValidateEvent
// before merging; a failure is returned as an error rather than silently
// dropping the offending event (§4.B).
func MergeRepoStateByMaintainers(maintainers []string, stateEvents []*nostr.Event, validateEvents bool) (MergedState, error) {
	stateEvents, err := nostr.FilterValid(stateEvents, validateEvents)
	if err != nil {
		return nil, err
	}

	out := MergedState{}

	for _, e := range stateEvents {
		if e == nil || e.Kind != nostr.KindRepoState {
			continue
		}
		if !funk.ContainsString(maintainers, e.Pubkey) {
			continue
		}

		for _, t := range nostr.GetTags(e, "ref") {
			fullRef := t.Value()
			commitID := t.Extra(0)
			if fullRef == "" || commitID == "" {
				continue
			}
			candidate := RefEntry{
				CommitID:  commitID,
				Author:    e.Pubkey,
				Timestamp: e.CreatedAt,
				EventID:   e.ID,
				FullRef:   fullRef,
			}
			key := shortKey(fullRef)
			if current, ok := out[key]; !ok || wins(candidate, current) {
				out[key] = candidate
			}
		}

		if head, ok := nostr.GetTag(e, "HEAD"); ok {
			candidate := RefEntry{
				CommitID:  head.Value(),
				Author:    e.Pubkey,
				Timestamp: e.CreatedAt,
				EventID:   e.ID,
				FullRef:   "HEAD",
			}
			if current, ok := out["HEAD"]; !ok || wins(candidate, current) {
				out["HEAD"] = candidate
			}
		}
	}

	return out, nil
}

// Keys returns the merged state's ref keys in sorted order, for stable
// iteration and logging.
func (m MergedState) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
