package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"snapcircle/internal/api"
	"snapcircle/internal/events"
	"snapcircle/internal/types"
)

const (
	defaultPhotoPageSize = 30
	maxPhotoPageSize     = 100
	maxSampleBatchSize   = 100
)

// PhotoRepo defines the data access contract for photo operations.
type PhotoRepo interface {
	Create(ctx context.Context, photo *types.Photo) error
	Get(ctx context.Context, id string) (*types.Photo, error)
	ListForScope(ctx context.Context, scope events.PhotoScope, limit, offset int) ([]types.Photo, int, error)
	UpdateAnnotations(ctx context.Context, photoID, userID string, answers []types.AnnotationAnswer) (*types.Photo, error)
	Destroy(ctx context.Context, id, userID string) error
}

// ReactionRepo defines the data access contract for photo reactions.
type ReactionRepo interface {
	Create(ctx context.Context, id, photoID, userID string, createdAt time.Time) (*types.PhotoReaction, error)
	ListReactedPhotoIDs(ctx context.Context, eventID, userID string) ([]string, error)
}

// PhotoIngestor announces new photos to the resize pipeline.
type PhotoIngestor interface {
	SubmitUploaded(ctx context.Context, photo *types.Photo) error
}

// SubmitPhotoRequest is the request body for POST /v1/photo-events/{id}/photos.
type SubmitPhotoRequest struct {
	ImageURL string `json:"image_url" validate:"required,url"`
}

// AnnotationAnswerRequest is one prompt/answer pair of an annotation request.
type AnnotationAnswerRequest struct {
	Prompt string `json:"prompt" validate:"required,max=500"`
	Answer string `json:"answer" validate:"required,max=2000"`
}

// AnnotatePhotoRequest is the request body for PUT /v1/photos/{id}/annotations.
// The answers replace any previous set.
type AnnotatePhotoRequest struct {
	Annotations []AnnotationAnswerRequest `json:"annotations" validate:"required,min=1,max=10,dive"`
}

// PhotoWithReaction annotates a photo with whether the viewer already reacted
// to it.
type PhotoWithReaction struct {
	types.Photo
	HasReacted bool `json:"has_reacted"`
}

// PhotoListResponse is the paginated photo listing payload.
type PhotoListResponse struct {
	Photos []PhotoWithReaction `json:"photos"`
	Total  int                 `json:"total"`
}

// BatchResponse is the sampler payload for the one-by-one reaction view.
type BatchResponse struct {
	Photos         []types.Photo `json:"photos"`
	RemainingCount int           `json:"remaining_count"`
}

// PhotoHandler manages photo submission, listing, sampling, reactions, and
// deletion.
type PhotoHandler struct {
	photos    PhotoRepo
	reactions ReactionRepo
	ingestor  PhotoIngestor
	filter    *events.AccessFilter
	sampler   *events.Sampler
	validator *api.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewPhotoHandler creates a PhotoHandler with the provided dependencies.
func NewPhotoHandler(
	photos PhotoRepo,
	reactions ReactionRepo,
	ingestor PhotoIngestor,
	filter *events.AccessFilter,
	sampler *events.Sampler,
	validator *api.Validator,
	logger *slog.Logger,
) *PhotoHandler {
	return &PhotoHandler{
		photos:    photos,
		reactions: reactions,
		ingestor:  ingestor,
		filter:    filter,
		sampler:   sampler,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the handler's clock. Intended for tests.
func (h *PhotoHandler) WithClock(now func() time.Time) *PhotoHandler {
	h.now = now
	return h
}

// RegisterRoutes mounts the photo endpoints onto the authenticated router.
func (h *PhotoHandler) RegisterRoutes(r chi.Router) {
	r.Get("/photo-events/{eventID}/photos", h.HandleList)
	r.Post("/photo-events/{eventID}/photos", h.HandleSubmit)
	r.Get("/photo-events/{eventID}/photos/batch", h.HandleSampleBatch)
	r.Post("/photos/{photoID}/reactions", h.HandleReact)
	r.Put("/photos/{photoID}/annotations", h.HandleAnnotate)
	r.Delete("/photos/{photoID}", h.HandleDelete)
}

// HandleList returns the photos the caller may see in an event, newest first,
// each annotated with the caller's reaction status.
func (h *PhotoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := types.GetUserID(ctx)
	eventID := chi.URLParam(r, "eventID")

	limit, offset, err := pagination(r)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	scope, err := h.filter.ScopeFor(ctx, eventID, userID)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	photos, total, err := h.photos.ListForScope(ctx, scope, limit, offset)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	reacted, err := h.reactions.ListReactedPhotoIDs(ctx, eventID, userID)
	if err != nil {
		api.Error(w, r, err)
		return
	}
	reactedSet := make(map[string]struct{}, len(reacted))
	for _, id := range reacted {
		reactedSet[id] = struct{}{}
	}

	annotated := make([]PhotoWithReaction, 0, len(photos))
	for _, photo := range photos {
		_, hasReacted := reactedSet[photo.ID]
		annotated = append(annotated, PhotoWithReaction{Photo: photo, HasReacted: hasReacted})
	}

	api.JSON(w, r, http.StatusOK, api.APIResponse{Data: PhotoListResponse{
		Photos: annotated,
		Total:  total,
	}})
}

// HandleSubmit records a new photo in an event and hands it to the resize
// pipeline. The caller must be a member of the event's group.
func (h *PhotoHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := types.GetUserID(ctx)
	eventID := chi.URLParam(r, "eventID")

	var req SubmitPhotoRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		api.Error(w, r, err)
		return
	}

	// Membership gate; the scope itself is not needed for a write.
	if _, err := h.filter.ScopeFor(ctx, eventID, userID); err != nil {
		api.Error(w, r, err)
		return
	}

	photo := &types.Photo{
		ID:        uuid.NewString(),
		EventID:   eventID,
		CreatedBy: userID,
		ImageURL:  req.ImageURL,
		CreatedAt: h.now().UTC(),
	}

	if err := h.photos.Create(ctx, photo); err != nil {
		api.Error(w, r, err)
		return
	}

	// Thumbnails arrive asynchronously; a queue failure leaves the photo
	// full-size only, which is not worth failing the upload over.
	if err := h.ingestor.SubmitUploaded(ctx, photo); err != nil {
		h.logger.Error("failed to enqueue photo for resize",
			"photo_id", photo.ID, "error", err)
	}

	api.JSON(w, r, http.StatusCreated, api.APIResponse{Data: photo})
}

// HandleSampleBatch draws a batch of unseen photos for the reaction view.
func (h *PhotoHandler) HandleSampleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := types.GetUserID(ctx)
	eventID := chi.URLParam(r, "eventID")

	batchSize := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSampleBatchSize {
			api.Error(w, r, types.NewAppErrorWithDetails(
				types.ErrCodeValidationBatchSize,
				"batch size must be an integer between 1 and 100",
				err,
				map[string]any{"size": raw},
			))
			return
		}
		batchSize = n
	}

	batch, err := h.sampler.SampleBatch(ctx, eventID, userID, batchSize)
	if err != nil {
		api.Error(w, r, err)
		return
	}
	if batch.Photos == nil {
		batch.Photos = []types.Photo{}
	}

	api.JSON(w, r, http.StatusOK, api.APIResponse{Data: BatchResponse{
		Photos:         batch.Photos,
		RemainingCount: batch.RemainingCount,
	}})
}

// HandleReact records the caller's reaction to a photo. The caller must be a
// member of the photo's event group.
func (h *PhotoHandler) HandleReact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := types.GetUserID(ctx)
	photoID := chi.URLParam(r, "photoID")

	photo, err := h.photos.Get(ctx, photoID)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	if _, err := h.filter.ScopeFor(ctx, photo.EventID, userID); err != nil {
		api.Error(w, r, err)
		return
	}

	reaction, err := h.reactions.Create(ctx, uuid.NewString(), photoID, userID, h.now().UTC())
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.JSON(w, r, http.StatusCreated, api.APIResponse{Data: reaction})
}

// HandleAnnotate replaces the annotation answers on the caller's own photo.
func (h *PhotoHandler) HandleAnnotate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := types.GetUserID(ctx)
	photoID := chi.URLParam(r, "photoID")

	var req AnnotatePhotoRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		api.Error(w, r, err)
		return
	}

	answers := make([]types.AnnotationAnswer, 0, len(req.Annotations))
	for _, a := range req.Annotations {
		answers = append(answers, types.AnnotationAnswer{Prompt: a.Prompt, Answer: a.Answer})
	}

	photo, err := h.photos.UpdateAnnotations(ctx, photoID, userID, answers)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.JSON(w, r, http.StatusOK, api.APIResponse{Data: photo})
}

// HandleDelete removes the caller's own photo and its reactions.
func (h *PhotoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := types.GetUserID(ctx)
	photoID := chi.URLParam(r, "photoID")

	if err := h.photos.Destroy(ctx, photoID, userID); err != nil {
		api.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pagination parses page/per_page query parameters into limit and offset.
func pagination(r *http.Request) (limit, offset int, err error) {
	limit = defaultPhotoPageSize
	page := 1

	if raw := r.URL.Query().Get("per_page"); raw != "" {
		n, perr := strconv.Atoi(raw)
		if perr != nil || n < 1 || n > maxPhotoPageSize {
			return 0, 0, types.NewAppErrorWithDetails(
				types.ErrCodeValidationPayload,
				"per_page must be an integer between 1 and 100",
				perr,
				map[string]any{"per_page": raw},
			)
		}
		limit = n
	}
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, perr := strconv.Atoi(raw)
		if perr != nil || n < 1 {
			return 0, 0, types.NewAppErrorWithDetails(
				types.ErrCodeValidationPayload,
				"page must be a positive integer",
				perr,
				map[string]any{"page": raw},
			)
		}
		page = n
	}

	return limit, (page - 1) * limit, nil
}
