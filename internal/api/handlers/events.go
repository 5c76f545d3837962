// Package handlers contains the HTTP handler implementations for the
// SnapCircle API. Each handler declares the narrow interfaces it consumes and
// is wired with concrete repositories by the composition root.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"snapcircle/internal/api"
	"snapcircle/internal/events"
	"snapcircle/internal/types"
)

// feedPreviewLimit is the number of photos included inline per feed entry.
const feedPreviewLimit = 6

// feedRecentLimit caps the number of inactive events appended to the feed.
const feedRecentLimit = 20

// EventRepo defines the data access contract for photo event operations.
type EventRepo interface {
	Create(ctx context.Context, event *types.PhotoEvent) error
	ListActiveForGroups(ctx context.Context, groupIDs []string, now time.Time) ([]*types.PhotoEvent, error)
	ListRecentForGroups(ctx context.Context, groupIDs, excludeIDs []string, limit int) ([]*types.PhotoEvent, error)
}

// GroupDirectory resolves group membership for the feed and for creation
// permission checks. Event creation requires the membership capability, not
// just membership.
type GroupDirectory interface {
	AssertMember(ctx context.Context, groupID, userID string) error
	AssertCanCreateEvents(ctx context.Context, groupID, userID string) error
	ListGroupIDsForUser(ctx context.Context, userID string) ([]string, error)
}

// PhotoPager lists photos within a visibility scope, newest first.
type PhotoPager interface {
	ListForScope(ctx context.Context, scope events.PhotoScope, limit, offset int) ([]types.Photo, int, error)
}

// CreateEventRequest is the request body for POST /v1/photo-events.
type CreateEventRequest struct {
	Name              string `json:"name" validate:"required,max=200"`
	GroupID           string `json:"group_id" validate:"required"`
	PeerContentAccess string `json:"peer_content_access,omitempty" validate:"omitempty,oneof=always reaction never"`

	ContributionStartsAt time.Time `json:"contribution_period_starts_at" validate:"required"`
	ContributionEndsAt   time.Time `json:"contribution_period_ends_at" validate:"required"`
	ReactionStartsAt     time.Time `json:"reaction_period_starts_at" validate:"required"`
	ReactionEndsAt       time.Time `json:"reaction_period_ends_at" validate:"required"`
}

// FeedEntry is one event in the feed response, with the viewer-visible photo
// preview and the activity flag.
type FeedEntry struct {
	*types.PhotoEvent
	IsActive bool          `json:"is_active"`
	Photos   []types.Photo `json:"photos"`
}

// EventHandler manages photo event creation, retrieval, and the feed.
type EventHandler struct {
	repo      EventRepo
	groups    GroupDirectory
	photos    PhotoPager
	cache     *events.Cache
	filter    *events.AccessFilter
	validator *api.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewEventHandler creates an EventHandler with the provided dependencies.
func NewEventHandler(
	repo EventRepo,
	groups GroupDirectory,
	photos PhotoPager,
	cache *events.Cache,
	filter *events.AccessFilter,
	validator *api.Validator,
	logger *slog.Logger,
) *EventHandler {
	return &EventHandler{
		repo:      repo,
		groups:    groups,
		photos:    photos,
		cache:     cache,
		filter:    filter,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the handler's clock. Intended for tests.
func (h *EventHandler) WithClock(now func() time.Time) *EventHandler {
	h.now = now
	return h
}

// RegisterRoutes mounts the event endpoints onto the authenticated router.
func (h *EventHandler) RegisterRoutes(r chi.Router) {
	r.Get("/feed", h.HandleFeed)
	r.Post("/photo-events", h.HandleCreate)
	r.Get("/photo-events/{eventID}", h.HandleGet)
}

// HandleCreate creates a photo event for a group in which the caller holds the
// event-creation capability. Both period ranges must be strictly increasing;
// peer content access defaults to "reaction". Both recognized notification
// kinds are enqueued so the monitor announces each period start.
func (h *EventHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := types.GetUserID(ctx)

	var req CreateEventRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		api.Error(w, r, err)
		return
	}
	if err := validateRange("contribution", req.ContributionStartsAt, req.ContributionEndsAt); err != nil {
		api.Error(w, r, err)
		return
	}
	if err := validateRange("reaction", req.ReactionStartsAt, req.ReactionEndsAt); err != nil {
		api.Error(w, r, err)
		return
	}

	if err := h.groups.AssertCanCreateEvents(ctx, req.GroupID, userID); err != nil {
		api.Error(w, r, err)
		return
	}

	access := types.PeerContentAccess(req.PeerContentAccess)
	if access == "" {
		access = types.PeerContentReaction
	}

	now := h.now().UTC()
	event := &types.PhotoEvent{
		ID:                   uuid.NewString(),
		Name:                 req.Name,
		GroupID:              req.GroupID,
		CreatedBy:            userID,
		PeerContentAccess:    access,
		ContributionStartsAt: req.ContributionStartsAt,
		ContributionEndsAt:   req.ContributionEndsAt,
		ReactionStartsAt:     req.ReactionStartsAt,
		ReactionEndsAt:       req.ReactionEndsAt,
		StartsAt:             req.ContributionStartsAt,
		EndsAt:               laterOf(req.ContributionEndsAt, req.ReactionEndsAt),
		PendingPushNotifications: []types.PendingPushNotification{
			{Kind: types.KindContributionStarting},
			{Kind: types.KindReactionStarting},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.repo.Create(ctx, event); err != nil {
		api.Error(w, r, err)
		return
	}
	h.cache.Add(event)

	h.logger.Info("photo event created",
		"event_id", event.ID,
		"group_id", event.GroupID,
		"created_by", userID,
	)

	api.JSON(w, r, http.StatusCreated, api.APIResponse{Data: event})
}

// HandleGet returns a single event visible to the caller.
func (h *EventHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := types.GetUserID(ctx)
	eventID := chi.URLParam(r, "eventID")

	event, err := h.cache.Get(ctx, eventID)
	if err != nil {
		api.Error(w, r, err)
		return
	}
	if err := h.groups.AssertMember(ctx, event.GroupID, userID); err != nil {
		api.Error(w, r, err)
		return
	}

	api.JSON(w, r, http.StatusOK, api.APIResponse{Data: event})
}

// HandleFeed returns the caller's event feed: active events across all of
// their groups (soonest-starting first) followed by recently ended ones, each
// carrying the first page of photos the caller may see.
func (h *EventHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := types.GetUserID(ctx)
	now := h.now()

	groupIDs, err := h.groups.ListGroupIDsForUser(ctx, userID)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	feed := make([]FeedEntry, 0)
	if len(groupIDs) == 0 {
		api.JSON(w, r, http.StatusOK, api.APIResponse{Data: feed})
		return
	}

	active, err := h.repo.ListActiveForGroups(ctx, groupIDs, now)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	activeIDs := make([]string, 0, len(active))
	for _, event := range active {
		activeIDs = append(activeIDs, event.ID)
	}

	recent, err := h.repo.ListRecentForGroups(ctx, groupIDs, activeIDs, feedRecentLimit)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	for _, event := range append(active, recent...) {
		entry, err := h.feedEntry(ctx, event, userID, now)
		if err != nil {
			// A single broken entry must not take down the whole feed.
			h.logger.Error("skipping feed entry", "event_id", event.ID, "error", err)
			continue
		}
		feed = append(feed, entry)
	}

	api.JSON(w, r, http.StatusOK, api.APIResponse{Data: feed})
}

func (h *EventHandler) feedEntry(ctx context.Context, event *types.PhotoEvent, userID string, now time.Time) (FeedEntry, error) {
	scope, err := h.filter.ScopeFor(ctx, event.ID, userID)
	if err != nil {
		return FeedEntry{}, err
	}

	photos, _, err := h.photos.ListForScope(ctx, scope, feedPreviewLimit, 0)
	if err != nil {
		return FeedEntry{}, err
	}
	if photos == nil {
		photos = []types.Photo{}
	}

	return FeedEntry{
		PhotoEvent: event,
		IsActive:   events.IsActive(event, now),
		Photos:     photos,
	}, nil
}

// validateRange rejects period ranges that are not strictly increasing.
func validateRange(period string, start, end time.Time) error {
	if !start.Before(end) {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationDateRange,
			period+" period must start before it ends",
			nil,
			map[string]any{"period": period},
		)
	}
	return nil
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
