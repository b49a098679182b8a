// Intake wraps the relay-event consumption functions (state merge, repo
// grouping, patch graph construction, status resolution) with the
// §4.B validation gate, reading Config.ValidateEvents so callers never have
// to thread the flag through by hand at every call site.
package bridge

import (
	"github.com/make-os/grasp/config"
	"github.com/make-os/grasp/nostr"
	"github.com/make-os/grasp/patchdag"
	"github.com/make-os/grasp/reposet"
	"github.com/make-os/grasp/state"
	"github.com/make-os/grasp/status"
)

// ResolveRepoState merges repository-state events from maintainers,
// honoring cfg.ValidateEvents (§4.B): when enabled, a malformed event is
// surfaced as an error rather than silently dropped.
func ResolveRepoState(cfg *config.Config, maintainers []string, stateEvents []*nostr.Event) (state.MergedState, error) {
	return state.MergeRepoStateByMaintainers(maintainers, stateEvents, cfg.ValidateEvents)
}

// GroupRepoAnnouncements groups repository-announcement events by EUC,
// honoring cfg.ValidateEvents (§4.B).
func GroupRepoAnnouncements(cfg *config.Config, events []*nostr.Event) ([]*reposet.RepoGroup, error) {
	return reposet.GroupByEUC(events, cfg.ValidateEvents)
}

// BuildPatchDAG builds the patch DAG from patch events, honoring
// cfg.ValidateEvents (§4.B).
func BuildPatchDAG(cfg *config.Config, patches []*nostr.Event) (*patchdag.PatchDAG, error) {
	return patchdag.BuildPatchDAG(patches, cfg.ValidateEvents)
}

// ResolveIssueStatus picks the effective status among competing status
// events, honoring cfg.ValidateEvents (§4.B).
func ResolveIssueStatus(cfg *config.Config, statuses []*nostr.Event, rootAuthor string, maintainers []string) (*status.Resolution, error) {
	return status.ResolveStatus(statuses, rootAuthor, maintainers, cfg.ValidateEvents)
}
