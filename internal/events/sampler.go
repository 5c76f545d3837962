package events

import (
	"context"

	"snapcircle/internal/types"
)

// DefaultBatchSize is the number of photos returned per reaction batch.
const DefaultBatchSize = 20

// PhotoQuery is the eligibility filter the sampler hands to the photo
// repository. Zero-valued fields impose no restriction.
type PhotoQuery struct {
	EventID      string
	NotCreatedBy string
	// CreatedByAny narrows eligibility to photos created by any of these
	// users (the demographic-affinity pass).
	CreatedByAny []string
	ExcludeIDs   []string
	Limit        int
}

// PhotoLister runs eligibility queries over the photo store. Results are
// ordered most-recent-first; this is the sampler's stable tie-break, not true
// randomness.
type PhotoLister interface {
	ListEligible(ctx context.Context, q PhotoQuery) ([]types.Photo, error)
	CountEligible(ctx context.Context, q PhotoQuery) (int, error)
}

// ReactionLister returns the IDs of photos a user has already reacted to in
// an event.
type ReactionLister interface {
	ListReactedPhotoIDs(ctx context.Context, eventID, userID string) ([]string, error)
}

// MembershipDirectory combines the membership assertion with the member
// listing the affinity pass needs.
type MembershipDirectory interface {
	MembershipChecker
	ListMembers(ctx context.Context, groupID string) ([]types.Member, error)
}

// Batch is one sampler result: up to batchSize unseen photos plus the count
// of base-eligible photos left over for further batches.
type Batch struct {
	Photos         []types.Photo
	RemainingCount int
}

// Sampler selects batches of unseen photos for the one-by-one reaction view.
type Sampler struct {
	cache     *Cache
	photos    PhotoLister
	reactions ReactionLister
	members   MembershipDirectory
}

// NewSampler creates a Sampler over the shared event cache and repositories.
func NewSampler(cache *Cache, photos PhotoLister, reactions ReactionLister, members MembershipDirectory) *Sampler {
	return &Sampler{
		cache:     cache,
		photos:    photos,
		reactions: reactions,
		members:   members,
	}
}

// SampleBatch draws up to batchSize photos the viewer has not yet reacted to,
// most-recent-first.
//
// Photos the viewer has already reacted to are always excluded, as are the
// viewer's own photos. The group roster is read once; when it shows the viewer
// sharing a demographic group with other members, the first pass narrows
// eligibility to those members' photos; a short first pass is padded from the
// unnarrowed eligibility set, excluding everything already drawn.
// RemainingCount is the number of base-eligible photos not reacted to and not
// in the returned batch.
//
// Degenerate input is not an error: zero eligible photos yields an empty
// batch. The returned batch never contains a reacted photo and never contains
// a duplicate.
func (s *Sampler) SampleBatch(ctx context.Context, eventID, viewerID string, batchSize int) (Batch, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	event, err := s.cache.Get(ctx, eventID)
	if err != nil {
		return Batch{}, err
	}

	if err := s.members.AssertMember(ctx, event.GroupID, viewerID); err != nil {
		return Batch{}, err
	}

	reacted, err := s.reactions.ListReactedPhotoIDs(ctx, event.ID, viewerID)
	if err != nil {
		return Batch{}, err
	}

	base := PhotoQuery{
		EventID:      event.ID,
		NotCreatedBy: viewerID,
	}

	first := base
	first.ExcludeIDs = reacted
	first.Limit = batchSize

	affine, err := s.affinePeers(ctx, event.GroupID, viewerID)
	if err != nil {
		return Batch{}, err
	}
	if len(affine) > 0 {
		first.CreatedByAny = affine
	}

	photos, err := s.photos.ListEligible(ctx, first)
	if err != nil {
		return Batch{}, err
	}

	excluded := make([]string, 0, len(reacted)+len(photos))
	excluded = append(excluded, reacted...)
	for _, photo := range photos {
		excluded = append(excluded, photo.ID)
	}

	// Pad a short first pass from the base eligibility set.
	if len(photos) < batchSize {
		pad := base
		pad.ExcludeIDs = excluded
		pad.Limit = batchSize - len(photos)

		padding, err := s.photos.ListEligible(ctx, pad)
		if err != nil {
			return Batch{}, err
		}
		photos = append(photos, padding...)
	}

	batch := Batch{Photos: photos}

	if len(reacted) > 0 || len(photos) > 0 {
		remaining := base
		remaining.ExcludeIDs = make([]string, 0, len(reacted)+len(photos))
		remaining.ExcludeIDs = append(remaining.ExcludeIDs, reacted...)
		for _, photo := range photos {
			remaining.ExcludeIDs = append(remaining.ExcludeIDs, photo.ID)
		}

		batch.RemainingCount, err = s.photos.CountEligible(ctx, remaining)
		if err != nil {
			return Batch{}, err
		}
	}

	return batch, nil
}

// affinePeers resolves the viewer's demographic group from the roster and
// returns the IDs of the other members sharing it. The roster is listed once
// per call; a viewer without a demographic group yields no peers.
func (s *Sampler) affinePeers(ctx context.Context, groupID, viewerID string) ([]string, error) {
	members, err := s.members.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	var demographic *string
	for _, member := range members {
		if member.UserID == viewerID {
			demographic = member.DemographicGroup
			break
		}
	}
	if demographic == nil {
		return nil, nil
	}

	var affine []string
	for _, member := range members {
		if member.UserID == viewerID || member.DemographicGroup == nil {
			continue
		}
		if *member.DemographicGroup == *demographic {
			affine = append(affine, member.UserID)
		}
	}
	return affine, nil
}
