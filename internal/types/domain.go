package types

import "time"

// PeerContentAccess controls whether a participant may see photos created by
// other members of the event's group, and from which phase onward.
type PeerContentAccess string

const (
	// PeerContentAlways makes every participant's photos visible to all
	// members for the whole lifetime of the event.
	PeerContentAlways PeerContentAccess = "always"
	// PeerContentReaction keeps photos private to their creator until the
	// reaction period is reached.
	PeerContentReaction PeerContentAccess = "reaction"
	// PeerContentNever restricts each participant to their own photos.
	PeerContentNever PeerContentAccess = "never"
)

// NotificationKind is the closed set of pending-notification kinds the
// monitor evaluates. Kinds outside the two recognized values are inert: they
// stay in the pending queue forever and never fire.
type NotificationKind string

const (
	KindContributionStarting NotificationKind = "photo-event:contribution:starting"
	KindReactionStarting     NotificationKind = "photo-event:reaction:starting"
)

// Recognized reports whether the kind is one the monitor knows how to fire.
func (k NotificationKind) Recognized() bool {
	return k == KindContributionStarting || k == KindReactionStarting
}

// PendingPushNotification is a queued intent to notify the event's group once
// a phase condition becomes true. Only the monitor removes entries.
type PendingPushNotification struct {
	Kind NotificationKind `json:"notificationType"`
}

// PhotoEvent is the core domain entity: a group-scoped photo event with a
// contribution window followed by a reaction window.
//
// Invariants: ContributionStartsAt < ContributionEndsAt and
// ReactionStartsAt < ReactionEndsAt (enforced at creation);
// StartsAt = ContributionStartsAt; EndsAt = max of the two period ends.
type PhotoEvent struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	GroupID   string `json:"group_id" db:"group_id"`
	CreatedBy string `json:"created_by" db:"created_by"`

	PeerContentAccess PeerContentAccess `json:"peer_content_access" db:"peer_content_access"`

	ContributionStartsAt time.Time `json:"contribution_period_starts_at" db:"contribution_starts_at"`
	ContributionEndsAt   time.Time `json:"contribution_period_ends_at" db:"contribution_ends_at"`
	ReactionStartsAt     time.Time `json:"reaction_period_starts_at" db:"reaction_starts_at"`
	ReactionEndsAt       time.Time `json:"reaction_period_ends_at" db:"reaction_ends_at"`

	// Derived overall bounds, persisted for range queries.
	StartsAt time.Time `json:"starts_at" db:"starts_at"`
	EndsAt   time.Time `json:"ends_at" db:"ends_at"`

	PendingPushNotifications []PendingPushNotification `json:"pending_push_notifications" db:"pending_push_notifications"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DevicePlatform tags the mobile platform a push token belongs to.
type DevicePlatform string

const (
	PlatformIOS     DevicePlatform = "ios"
	PlatformAndroid DevicePlatform = "android"
)

// Device is a registered push target. Created idempotently per (token, user);
// removed individually by token or in bulk when the push provider reports the
// token as permanently invalid.
type Device struct {
	ID        string         `json:"id" db:"id"`
	Token     string         `json:"token" db:"token"`
	Platform  DevicePlatform `json:"platform" db:"platform"`
	UserID    string         `json:"user_id" db:"user_id"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// Member is a read-only projection of a group membership carrying the
// demographic attribute used by the sampler's affinity pass. Filter and
// sampler receive these projections rather than live group references.
type Member struct {
	UserID           string  `json:"user_id" db:"user_id"`
	GroupID          string  `json:"group_id" db:"group_id"`
	DemographicGroup *string `json:"demographic_group,omitempty" db:"demographic_group"`
}

// Thumbnail is one resized rendition of a photo, produced by the external
// resize worker.
type Thumbnail struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}

// AnnotationAnswer is one prompt/answer pair the creator attaches to their
// photo.
type AnnotationAnswer struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
}

// Photo belongs to exactly one event. The sampler and access filter consume
// photos read-only; the ingest coordinator writes thumbnails and the creator
// writes annotations.
type Photo struct {
	ID          string             `json:"id" db:"id"`
	EventID     string             `json:"event_id" db:"event_id"`
	CreatedBy   string             `json:"created_by" db:"created_by"`
	ImageURL    string             `json:"image_url" db:"image_url"`
	Thumbnails  []Thumbnail        `json:"thumbnails,omitempty" db:"thumbnails"`
	Annotations []AnnotationAnswer `json:"annotations,omitempty" db:"annotations"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
}

// PhotoReaction records that a user reacted to a photo within an event.
type PhotoReaction struct {
	ID        string    `json:"id" db:"id"`
	PhotoID   string    `json:"photo_id" db:"photo_id"`
	EventID   string    `json:"event_id" db:"event_id"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PushNotification is the logical notification handed to the dispatcher.
// Params travel as the push payload's custom data.
type PushNotification struct {
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Params  map[string]string `json:"params,omitempty"`
}
