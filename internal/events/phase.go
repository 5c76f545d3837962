// Package events implements the core domain logic for timed photo events:
// phase derivation from the event's period timestamps, the process-wide event
// cache, viewer access filtering, and unseen-photo batch sampling.
package events

import (
	"time"

	"snapcircle/internal/types"
)

// Phase describes where a reference instant sits relative to an event's
// contribution and reaction periods. It is valid only for the instant it was
// computed against and must be recomputed per evaluation, never cached
// across time.
type Phase struct {
	BeforeContribution bool
	InContribution     bool
	AfterContribution  bool
	InReaction         bool
	AfterReaction      bool
}

// PhaseOf derives the phase of an event at the given reference instant.
//
// All comparisons are strict: the periods are open intervals, so at an exact
// boundary instant every flag for that boundary is false. The monitor's
// firing conditions depend on this exactness.
func PhaseOf(event *types.PhotoEvent, now time.Time) Phase {
	var p Phase

	if event.ContributionStartsAt.After(now) {
		p.BeforeContribution = true
	}
	if event.ContributionEndsAt.Before(now) {
		p.AfterContribution = true
	}
	if event.ReactionEndsAt.Before(now) {
		p.AfterReaction = true
	}

	if event.ReactionStartsAt.Before(now) && event.ReactionEndsAt.After(now) {
		p.InReaction = true
	}
	if event.ContributionStartsAt.Before(now) && event.ContributionEndsAt.After(now) {
		p.InContribution = true
	}

	return p
}

// IsActive reports whether the instant falls inside either period. Used by
// the feed to order active events first.
func IsActive(event *types.PhotoEvent, now time.Time) bool {
	p := PhaseOf(event, now)
	return p.InContribution || p.InReaction
}
