// Package nostr implements the event taxonomy and tag accessor helpers:
// typed event kinds, an immutable Tag/Event model, and a feature-flagged
// validation layer. Adapted from the teacher's git-ref-based issue/post
// storage idiom (remote/issues, remote/plumbing/post.go) to an event-based
// model, re-architected as a typed accessor API per design note §9 (dynamic
// tag access replaced with sum-typed results instead of ad-hoc find/filter).
package nostr

// Event kinds (numeric on-wire identifiers are stable).
const (
	KindRepoAnnouncement = 30617
	KindRepoState        = 30618
	KindPatch            = 1617
	KindPullRequest      = 1618
	KindPermalink        = 1623
	KindIssue            = 1621
	KindStatusOpen       = 1630
	KindStatusApplied    = 1631
	KindStatusClosed     = 1632
	KindStatusDraft      = 1633
	KindComment          = 1111
	KindGraspServerSet   = 30002
	KindBookmarkSet      = 30003
)

// Tag is a tuple: name, value, and zero or more extras.
type Tag []string

// Name returns the tag's first element, or "" if the tag is empty.
func (t Tag) Name() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Value returns the tag's second element, or "" if absent.
func (t Tag) Value() string {
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// Extra returns the tag element at position 2+i, or "" if absent.
func (t Tag) Extra(i int) string {
	idx := 2 + i
	if idx >= len(t) {
		return ""
	}
	return t[idx]
}

// Event is a signed, immutable record: numeric kind, author pubkey,
// timestamp, tag list, content, and id (hash of the canonical form).
// Events are never mutated in place; AddTag/SetTag/RemoveTag return copies.
type Event struct {
	ID        string `json:"id"`
	Pubkey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      int    `json:"kind"`
	Tags      []Tag  `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig"`
}

// GetTag returns the first tag tuple with the given name, and whether one
// was found.
func GetTag(e *Event, name string) (Tag, bool) {
	for _, t := range e.Tags {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// GetTags returns every tag tuple with the given name.
func GetTags(e *Event, name string) []Tag {
	out := make([]Tag, 0)
	for _, t := range e.Tags {
		if t.Name() == name {
			out = append(out, t)
		}
	}
	return out
}

// GetTagValue returns the value (second element) of the first tag matching
// name, and whether one was found. Unknown tag names yield false rather
// than a null/empty sentinel.
func GetTagValue(e *Event, name string) (string, bool) {
	t, ok := GetTag(e, name)
	if !ok {
		return "", false
	}
	return t.Value(), true
}

func cloneEvent(e *Event) *Event {
	out := *e
	out.Tags = make([]Tag, len(e.Tags))
	copy(out.Tags, e.Tags)
	return &out
}

// AddTag returns a copy of e with tag appended.
func AddTag(e *Event, tag Tag) *Event {
	out := cloneEvent(e)
	out.Tags = append(out.Tags, tag)
	return out
}

// SetTag returns a copy of e with every existing tag of tag.Name() removed
// and tag appended in their place.
func SetTag(e *Event, tag Tag) *Event {
	out := cloneEvent(e)
	filtered := make([]Tag, 0, len(out.Tags)+1)
	for _, t := range out.Tags {
		if t.Name() != tag.Name() {
			filtered = append(filtered, t)
		}
	}
	out.Tags = append(filtered, tag)
	return out
}

// RemoveTag returns a copy of e with every tag named name removed.
func RemoveTag(e *Event, name string) *Event {
	out := cloneEvent(e)
	filtered := make([]Tag, 0, len(out.Tags))
	for _, t := range out.Tags {
		if t.Name() != name {
			filtered = append(filtered, t)
		}
	}
	out.Tags = filtered
	return out
}
