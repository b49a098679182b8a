// Package reposet implements repository grouping: folding repository
// announcement events by Earliest-Unique-Commit (EUC) into RepoGroups and
// deriving each group's maintainer set. Grounded in the teacher's
// accumulate-then-dedupe idiom (remote/push/pushpool.go's container
// indexing) adapted from push-note containers to announcement folding.
package reposet

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/thoas/go-funk"

	"github.com/make-os/grasp/ids"
	"github.com/make-os/grasp/nostr"
)

// RepoGroup unions all announcements sharing identity (same EUC, normalized
// name and normalized clone-URL set). Facet sets are deduplicated unions
// across every event folded into the group; the maintainer set always
// includes every event author in the group.
type RepoGroup struct {
	GroupKey    string
	GroupHash   uint64
	EUC         string
	Name        string
	Handles     []string
	WebURLs     []string
	CloneURLs   []string
	Maintainers []string
	Relays      []string
	Events      []*nostr.Event
}

func firstValue(e *nostr.Event, names ...string) string {
	for _, name := range names {
		if v, ok := nostr.GetTagValue(e, name); ok {
			return v
		}
	}
	return ""
}

func euc(e *nostr.Event) string {
	for _, t := range nostr.GetTags(e, "r") {
		if t.Extra(0) == "euc" {
			return t.Value()
		}
	}
	return ""
}

func allValues(e *nostr.Event, name string) []string {
	out := make([]string, 0)
	for _, t := range nostr.GetTags(e, name) {
		if v := t.Value(); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func groupHash(key string) uint64 {
	return xxhash.Sum64String(key)
}

// GroupByEUC folds a set of kind-30617 repository announcement events into
// RepoGroups. Two events with identical EUC but different names represent
// forks and produce separate groups; two events with identical EUC/name/
// clone set from different authors fold into the same group. When
// validateEvents is true, every event is asserted via nostr.ValidateEvent
// before folding; a failure is returned as an error rather than silently
// dropping the offending event (§4.B).
func GroupByEUC(events []*nostr.Event, validateEvents bool) ([]*RepoGroup, error) {
	events, err := nostr.FilterValid(events, validateEvents)
	if err != nil {
		return nil, err
	}

	byKey := map[string]*RepoGroup{}
	order := make([]string, 0)

	for _, e := range events {
		if e == nil || e.Kind != nostr.KindRepoAnnouncement {
			continue
		}

		eucVal := euc(e)
		name := firstValue(e, "name", "d")
		clones := allValues(e, "clone")
		cloneKey := ids.NormalizeCloneURLSet(clones)

		key := eucVal + ":" + name + ":" + cloneKey

		g, ok := byKey[key]
		if !ok {
			g = &RepoGroup{
				GroupKey:  key,
				GroupHash: groupHash(key),
				EUC:       eucVal,
				Name:      name,
			}
			byKey[key] = g
			order = append(order, key)
		}

		g.Events = append(g.Events, e)

		if d, ok := nostr.GetTagValue(e, "d"); ok && d != "" {
			g.Handles = append(g.Handles, d)
		}
		g.WebURLs = append(g.WebURLs, allValues(e, "web")...)
		g.CloneURLs = append(g.CloneURLs, clones...)
		g.Maintainers = append(g.Maintainers, allValues(e, "maintainers")...)
		g.Relays = append(g.Relays, allValues(e, "relays")...)
		if e.Pubkey != "" {
			g.Maintainers = append(g.Maintainers, e.Pubkey)
		}
	}

	out := make([]*RepoGroup, 0, len(order))
	for _, key := range order {
		g := byKey[key]
		g.Handles = dedupeSorted(g.Handles)
		g.WebURLs = dedupeSorted(g.WebURLs)
		g.CloneURLs = dedupeSorted(g.CloneURLs)
		g.Maintainers = dedupeSorted(g.Maintainers)
		g.Relays = dedupeSorted(g.Relays)
		out = append(out, g)
	}
	return out, nil
}

func dedupeSorted(in []string) []string {
	uniq := funk.UniqString(in)
	sort.Strings(uniq)
	return uniq
}

// Stringify is a small debugging helper producing a stable textual form of
// a group hash, used by log lines the way the teacher logs hex ids.
func (g *RepoGroup) Stringify() string {
	return strconv.FormatUint(g.GroupHash, 16)
}
