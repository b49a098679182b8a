package bridge

import (
	"context"
	"strings"
	"time"

	"github.com/make-os/grasp/capability"
	"github.com/make-os/grasp/grasperrors"
	"github.com/make-os/grasp/nostr"
)

// blobMirrorTimeout bounds the post-push object-mirroring call so a stalled
// Blossom endpoint can't hang PushAndSync indefinitely.
const blobMirrorTimeout = 30 * time.Second

// PushResult is the outcome of a full PushAndSync sequence: the Git push
// itself, the optional state-publish result, and the optional blob-mirror
// summary.
type PushResult struct {
	Pushed         bool
	StatePublished bool
	PublishResult  *capability.PublishResult
	BlobSummary    *capability.BlobSummary
}

// PushAndSync runs the bridge sequence after a caller-performed Git push:
// compute repo state from local refs, publish it via EventIO, and, if a
// BlobStore is configured, mirror newly-reachable objects. Sequencing is
// strict and one-directional: a failure in mirror never retries the push,
// and a failure in publish never attempts to mirror.
func PushAndSync(
	ctx context.Context,
	provider capability.GitProvider,
	dir string,
	cache capability.CacheObject,
	repoAddr string,
	pubkey string,
	includeTags bool,
	signer capability.Signer,
	eventIO capability.EventIO,
	blobStore capability.BlobStore,
) (*PushResult, error) {
	result := &PushResult{Pushed: true}

	refs, err := provider.ListRefs(ctx, dir, cache)
	if err != nil {
		return result, grasperrors.Wrap(err, grasperrors.CodeFilesystem, "failed to read local refs for state computation")
	}

	event := buildStateEvent(repoAddr, pubkey, refs, includeTags)

	if signer != nil {
		signed, err := signer.Sign(ctx, event)
		if err != nil {
			return result, grasperrors.Wrap(err, grasperrors.CodeAuthRequired, "failed to sign repository state event")
		}
		if e, ok := signed.(*nostr.Event); ok {
			event = e
		}
	}

	if eventIO == nil {
		return result, nil
	}

	pubResult, err := eventIO.PublishEvent(ctx, event)
	if err != nil {
		return result, grasperrors.Wrap(err, grasperrors.CodeRelayError, "failed to publish repository state event")
	}
	result.StatePublished = pubResult.OK
	result.PublishResult = &pubResult
	if !pubResult.OK {
		return result, nil
	}

	if blobStore == nil {
		return result, nil
	}

	hashes := objectHashesFromRefs(refs)
	var summary *capability.BlobSummary
	err = grasperrors.WithTimeout(ctx, blobMirrorTimeout, "blob mirroring", nil, func(ctx context.Context) error {
		s, err := blobStore.PushToBlossom(ctx, hashes)
		if err != nil {
			return grasperrors.Wrap(err, grasperrors.CodeTransient, "blob mirroring failed after successful push and state publish")
		}
		summary = s
		return nil
	})
	if err != nil {
		// mirror failures are reported, not retried and never roll back the push.
		return result, err
	}
	result.BlobSummary = summary

	return result, nil
}

// buildStateEvent computes a kind:30618 Repository State event from a set
// of resolved refs, optionally excluding tag refs.
func buildStateEvent(repoAddr, pubkey string, refs []capability.Ref, includeTags bool) *nostr.Event {
	tags := []nostr.Tag{{"d", repoAddr}}
	for _, ref := range refs {
		if !includeTags && strings.HasPrefix(ref.Name, "refs/tags/") {
			continue
		}
		tags = append(tags, nostr.Tag{"ref", ref.Name, ref.CommitID})
	}

	return &nostr.Event{
		Pubkey: pubkey,
		Kind:   nostr.KindRepoState,
		Tags:   tags,
	}
}

// objectHashesFromRefs collects the tip commit hash of every ref as the
// seed set for blob mirroring; the BlobStore implementation is responsible
// for walking reachability from these roots.
func objectHashesFromRefs(refs []capability.Ref) []string {
	hashes := make([]string, 0, len(refs))
	for _, ref := range refs {
		hashes = append(hashes, ref.CommitID)
	}
	return hashes
}
