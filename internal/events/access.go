package events

import (
	"context"
	"time"

	"snapcircle/internal/types"
)

// MembershipChecker asserts that a user belongs to a group. Failure is a
// permission error and propagates to the caller unchanged.
type MembershipChecker interface {
	AssertMember(ctx context.Context, groupID, userID string) error
}

// PhotoScope is the query predicate the access filter produces: photos of one
// event, optionally restricted to a single creator. An empty CreatorID means
// no creator restriction. The listing collaborator turns the scope into its
// actual query; the filter itself never touches photos.
type PhotoScope struct {
	EventID   string
	CreatorID string
}

// AccessFilter decides which photos a viewer may see in an event, as a
// function of the event's peer-content policy and the current phase.
type AccessFilter struct {
	cache   *Cache
	members MembershipChecker
	now     func() time.Time
}

// NewAccessFilter creates an AccessFilter over the shared event cache and
// membership checker. The clock defaults to time.Now and is overridable for
// tests via WithClock.
func NewAccessFilter(cache *Cache, members MembershipChecker) *AccessFilter {
	return &AccessFilter{
		cache:   cache,
		members: members,
		now:     time.Now,
	}
}

// WithClock overrides the reference clock. Intended for tests.
func (f *AccessFilter) WithClock(now func() time.Time) *AccessFilter {
	f.now = now
	return f
}

// ScopeFor builds the visibility scope for a viewer in an event.
//
// Membership is asserted before the scope is constructed; a non-member gets
// the membership error, never a scope. Photos are private to their creator by
// default. The creator restriction is lifted when the policy is "always", or
// when the policy is "reaction" and the reaction period has been reached at
// the current instant. The phase is recomputed on every call.
func (f *AccessFilter) ScopeFor(ctx context.Context, eventID, viewerID string) (PhotoScope, error) {
	event, err := f.cache.Get(ctx, eventID)
	if err != nil {
		return PhotoScope{}, err
	}

	if err := f.members.AssertMember(ctx, event.GroupID, viewerID); err != nil {
		return PhotoScope{}, err
	}

	scope := PhotoScope{
		EventID:   event.ID,
		CreatorID: viewerID,
	}

	phase := PhaseOf(event, f.now())
	switch event.PeerContentAccess {
	case types.PeerContentAlways:
		scope.CreatorID = ""
	case types.PeerContentReaction:
		if phase.InReaction || phase.AfterReaction {
			scope.CreatorID = ""
		}
	}

	return scope, nil
}
