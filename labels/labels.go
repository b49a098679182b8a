// Package labels implements the label engine: normalizing an event's
// self-declared labels and any external label events into one effective
// label set. Grounded in the teacher's reaction/label tally idiom
// (remote/plumbing/post.go's reactions folding), adapted from vote tallies
// to namespace/value pairing.
package labels

import (
	"github.com/make-os/grasp/nostr"
)

// NamespacedLabel is a single "namespace/value" label association.
type NamespacedLabel struct {
	Namespace string
	Value     string
}

// EffectiveLabelSet is the merged view of an event's labels: self-declared,
// externally asserted, topic tags, and the normalized "namespace/value"
// (or "t/value" for topics) strings in self, external, topic order.
type EffectiveLabelSet struct {
	Self       []NamespacedLabel
	External   []NamespacedLabel
	Topic      []string
	Normalized []string
}

// selfLabels collects L tags as namespace declarations, then for each l tag
// associates it with its declared namespace if that namespace appears among
// the declarations.
func selfLabels(e *nostr.Event) []NamespacedLabel {
	declared := map[string]bool{}
	for _, t := range nostr.GetTags(e, "L") {
		if v := t.Value(); v != "" {
			declared[v] = true
		}
	}

	out := make([]NamespacedLabel, 0)
	for _, t := range nostr.GetTags(e, "l") {
		ns := t.Extra(0)
		value := t.Value()
		if ns == "" || value == "" || !declared[ns] {
			continue
		}
		out = append(out, NamespacedLabel{Namespace: ns, Value: value})
	}
	return out
}

// externalLabels parses a set of external label events (authored by
// parties other than the labeled event) the same way as selfLabels.
func externalLabels(labelEvents []*nostr.Event) []NamespacedLabel {
	out := make([]NamespacedLabel, 0)
	for _, e := range labelEvents {
		if e == nil {
			continue
		}
		out = append(out, selfLabels(e)...)
	}
	return out
}

func topicTags(e *nostr.Event) []string {
	out := make([]string, 0)
	for _, t := range nostr.GetTags(e, "t") {
		if v := t.Value(); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// MergeLabels builds the EffectiveLabelSet for e given a set of external
// label events referencing it. Normalized ordering is self first, then
// external, then topic.
func MergeLabels(e *nostr.Event, externalLabelEvents []*nostr.Event) *EffectiveLabelSet {
	self := selfLabels(e)
	external := externalLabels(externalLabelEvents)
	topics := topicTags(e)

	normalized := make([]string, 0, len(self)+len(external)+len(topics))
	for _, l := range self {
		normalized = append(normalized, l.Namespace+"/"+l.Value)
	}
	for _, l := range external {
		normalized = append(normalized, l.Namespace+"/"+l.Value)
	}
	for _, t := range topics {
		normalized = append(normalized, "t/"+t)
	}

	return &EffectiveLabelSet{
		Self:       self,
		External:   external,
		Topic:      topics,
		Normalized: normalized,
	}
}
