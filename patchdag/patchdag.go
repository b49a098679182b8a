// Package patchdag builds a commit-keyed directed graph from a stream of
// patch events, folding multiple revisions of the same logical commit and
// detecting roots and merges. Input is untrusted: edges are recorded
// without traversal so that cyclic patch references cannot cause
// non-termination (design note §9); downstream traversal is the caller's
// responsibility and must carry its own visited set.
package patchdag

import (
	"sort"

	"github.com/thoas/go-funk"

	"github.com/make-os/grasp/nostr"
)

// PatchNode indexes patches by commit hash. Effective is the latest revision
// by timestamp; Superseded holds every earlier revision's event id. Root
// flags are sticky: set if any revision of this commit ever carried the
// corresponding marker tag.
type PatchNode struct {
	Commit         string
	Effective      *nostr.Event
	Superseded     []string
	Parents        []string
	Children       []string
	IsRoot         bool
	IsRootRevision bool
}

// PatchDAG is the set of commit-keyed nodes linked by parent->child edges.
type PatchDAG struct {
	Nodes map[string]*PatchNode
	Roots []string
}

func revisionOf(e *nostr.Event) string {
	v, _ := nostr.GetTagValue(e, "commit")
	return v
}

func parentsOf(e *nostr.Event) []string {
	out := make([]string, 0)
	for _, t := range nostr.GetTags(e, "parent-commit") {
		if v := t.Value(); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func hasMarker(e *nostr.Event, marker string) bool {
	_, ok := nostr.GetTag(e, marker)
	return ok
}

// BuildPatchGraph groups patches by their commit tag, folds revisions
// (latest by created_at is effective, earlier ids recorded as superseded),
// computes sticky root flags, and links children into each parent's
// children list without duplicates. Malformed patches (no commit tag) are
// skipped. The result is idempotent under reordering of the input, and root
// flags are preserved across revision reordering. When validateEvents is
// true, every patch is asserted via nostr.ValidateEvent before folding; a
// failure is returned as an error rather than silently dropping the
// offending event (§4.B).
func BuildPatchGraph(patches []*nostr.Event, validateEvents bool) (map[string]*PatchNode, error) {
	patches, err := nostr.FilterValid(patches, validateEvents)
	if err != nil {
		return nil, err
	}

	byCommit := map[string][]*nostr.Event{}
	order := make([]string, 0)

	for _, e := range patches {
		if e == nil || e.Kind != nostr.KindPatch {
			continue
		}
		commit := revisionOf(e)
		if commit == "" {
			continue
		}
		if _, ok := byCommit[commit]; !ok {
			order = append(order, commit)
		}
		byCommit[commit] = append(byCommit[commit], e)
	}

	nodes := map[string]*PatchNode{}

	for _, commit := range order {
		revisions := byCommit[commit]
		sorted := make([]*nostr.Event, len(revisions))
		copy(sorted, revisions)
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].CreatedAt != sorted[j].CreatedAt {
				return sorted[i].CreatedAt < sorted[j].CreatedAt
			}
			return sorted[i].ID < sorted[j].ID
		})

		effective := sorted[len(sorted)-1]
		superseded := make([]string, 0, len(sorted)-1)
		isRoot := false
		isRootRevision := false
		for _, rev := range sorted {
			if rev.ID != effective.ID {
				superseded = append(superseded, rev.ID)
			}
			if hasMarker(rev, "t:root") {
				isRoot = true
			}
			if hasMarker(rev, "t:root-revision") {
				isRootRevision = true
			}
		}

		nodes[commit] = &PatchNode{
			Commit:         commit,
			Effective:      effective,
			Superseded:     superseded,
			Parents:        parentsOf(effective),
			IsRoot:         isRoot,
			IsRootRevision: isRootRevision,
		}
	}

	for commit, node := range nodes {
		for _, parent := range node.Parents {
			parentNode, ok := nodes[parent]
			if !ok {
				continue
			}
			if !funk.ContainsString(parentNode.Children, commit) {
				parentNode.Children = append(parentNode.Children, commit)
			}
		}
	}

	return nodes, nil
}

// BuildPatchDAG wraps BuildPatchGraph and additionally returns the root
// set: commits with empty parents, or explicitly tagged t:root. Cycles are
// not detected or forbidden.
func BuildPatchDAG(patches []*nostr.Event, validateEvents bool) (*PatchDAG, error) {
	nodes, err := BuildPatchGraph(patches, validateEvents)
	if err != nil {
		return nil, err
	}

	roots := make([]string, 0)
	for commit, node := range nodes {
		if len(node.Parents) == 0 || node.IsRoot {
			roots = append(roots, commit)
		}
	}
	sort.Strings(roots)

	return &PatchDAG{Nodes: nodes, Roots: roots}, nil
}
