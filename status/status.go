// Package status implements the status resolver: choosing the effective
// status from competing status events by role, kind priority, and
// timestamp. Grounded in the teacher's endorsement-tally idiom
// (remote/server/reactor.go's noteEndorsements precedence folding),
// adapted from endorsement counting to a single precedence tuple pick.
package status

import (
	"github.com/make-os/grasp/nostr"
)

// Role is a status author's standing relative to the issue/patch being
// resolved; greater Role wins under equal kind-priority and timestamp.
type Role int

const (
	RoleOther Role = iota
	RoleRootAuthor
	RoleMaintainer
)

var kindPriority = map[int]int{
	nostr.KindStatusOpen:    1,
	nostr.KindStatusDraft:   2,
	nostr.KindStatusClosed:  3,
	nostr.KindStatusApplied: 4,
}

// Resolution is the outcome of ResolveStatus: the winning event plus the
// role and kind that decided it.
type Resolution struct {
	Final  *nostr.Event
	Role   Role
	Kind   int
	Reason string
}

func roleOf(e *nostr.Event, rootAuthor string, maintainers map[string]bool) Role {
	if maintainers[e.Pubkey] {
		return RoleMaintainer
	}
	if e.Pubkey == rootAuthor {
		return RoleRootAuthor
	}
	return RoleOther
}

// less reports whether a has strictly lower precedence than b under the
// tuple (role, kind-priority, created_at, id-lex), where greater wins.
func less(aRole Role, aKindPri int, a *nostr.Event, bRole Role, bKindPri int, b *nostr.Event) bool {
	if aRole != bRole {
		return aRole < bRole
	}
	if aKindPri != bKindPri {
		return aKindPri < bKindPri
	}
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return a.ID < b.ID
}

// ResolveStatus picks the effective status among events of kind 1630/1631/
// 1632/1633 using the precedence tuple (role, kind-priority, created_at,
// id-lex), greater wins. Role: maintainer > rootAuthor > other. Kind
// priority: applied/resolved > closed > draft > open. Non-status kinds are
// ignored. Returns nil when no status event is given. When validateEvents
// is true, every status event is asserted via nostr.ValidateEvent first; a
// failure is returned as an error rather than silently dropping the
// offending event (§4.B).
func ResolveStatus(statuses []*nostr.Event, rootAuthor string, maintainers []string, validateEvents bool) (*Resolution, error) {
	statuses, err := nostr.FilterValid(statuses, validateEvents)
	if err != nil {
		return nil, err
	}

	maintainerSet := map[string]bool{}
	for _, m := range maintainers {
		maintainerSet[m] = true
	}

	var best *nostr.Event
	var bestRole Role
	var bestKindPri int

	for _, e := range statuses {
		if e == nil {
			continue
		}
		pri, ok := kindPriority[e.Kind]
		if !ok {
			continue
		}
		role := roleOf(e, rootAuthor, maintainerSet)

		if best == nil || less(bestRole, bestKindPri, best, role, pri, e) {
			best = e
			bestRole = role
			bestKindPri = pri
		}
	}

	if best == nil {
		return nil, nil
	}

	return &Resolution{
		Final:  best,
		Role:   bestRole,
		Kind:   best.Kind,
		Reason: roleName(bestRole) + " published kind " + kindName(best.Kind),
	}, nil
}

func roleName(r Role) string {
	switch r {
	case RoleMaintainer:
		return "maintainer"
	case RoleRootAuthor:
		return "root author"
	default:
		return "other"
	}
}

func kindName(kind int) string {
	switch kind {
	case nostr.KindStatusOpen:
		return "open"
	case nostr.KindStatusApplied:
		return "applied"
	case nostr.KindStatusClosed:
		return "closed"
	case nostr.KindStatusDraft:
		return "draft"
	default:
		return "unknown"
	}
}
