package nostr

import (
	"fmt"
	"regexp"

	"github.com/make-os/grasp/grasperrors"
)

var hexID64 = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// requiredTags lists the tag names every event of a given kind must carry at
// least once. Kinds absent from the map have no required tags.
var requiredTags = map[int][]string{
	KindRepoAnnouncement: {"d"},
	KindRepoState:        {"d"},
	KindPatch:            {"commit"},
	KindIssue:            {"d"},
	KindComment:          {"e"},
}

// ValidateEvent asserts shape: required tags present, kind a positive
// integer, 64-hex id/pubkey when set. It is feature-flagged by the caller
// (config.Load defaults the flag to true, with no separate production
// default); validation failure is surfaced as an invalid-input error, never
// a silent drop.
func ValidateEvent(e *Event, enabled bool) error {
	if !enabled {
		return nil
	}

	if e == nil {
		return grasperrors.New(grasperrors.CodeInvalidInput, "nil event")
	}

	if e.ID != "" && !hexID64.MatchString(e.ID) {
		return grasperrors.New(grasperrors.CodeInvalidInput, "event id is not 64 hex characters").
			WithContext(map[string]interface{}{"id": e.ID})
	}

	if e.Pubkey != "" && !hexID64.MatchString(e.Pubkey) {
		return grasperrors.New(grasperrors.CodeInvalidInput, "event pubkey is not 64 hex characters").
			WithContext(map[string]interface{}{"pubkey": e.Pubkey})
	}

	if e.Kind <= 0 {
		return grasperrors.New(grasperrors.CodeInvalidInput, "event kind must be a positive integer").
			WithContext(map[string]interface{}{"kind": e.Kind})
	}

	for _, name := range requiredTags[e.Kind] {
		if _, ok := GetTag(e, name); !ok {
			return grasperrors.New(grasperrors.CodeInvalidInput,
				fmt.Sprintf("event of kind %d missing required tag %q", e.Kind, name)).
				WithContext(map[string]interface{}{"kind": e.Kind, "tag": name})
		}
	}

	return nil
}

// FilterValid is the event-intake assertion layer (§4.B): when enabled, it
// validates every event in events and returns the first validation failure
// as an invalid-input error instead of dropping the offending event
// silently. When disabled, events pass through unchanged.
func FilterValid(events []*Event, enabled bool) ([]*Event, error) {
	if !enabled {
		return events, nil
	}
	for _, e := range events {
		if err := ValidateEvent(e, true); err != nil {
			return nil, err
		}
	}
	return events, nil
}
