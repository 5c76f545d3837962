package queue

import (
	"context"
	"fmt"
	"log/slog"

	"snapcircle/internal/types"
)

// ThumbnailStore applies resize output onto photo records. Satisfied by the
// db.PhotoRepository.
type ThumbnailStore interface {
	UpdateThumbnails(ctx context.Context, photoID string, thumbnails []types.Thumbnail) error
}

// IngestCoordinator is the thin handoff between photo uploads and the
// external resize worker: uploads go out on the photo-uploaded queue, and
// resize results coming back on the photo-resized queue are applied onto the
// photo record.
type IngestCoordinator struct {
	producer *UploadProducer
	photos   ThumbnailStore
	logger   *slog.Logger
}

// NewIngestCoordinator creates an IngestCoordinator.
func NewIngestCoordinator(producer *UploadProducer, photos ThumbnailStore, logger *slog.Logger) *IngestCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestCoordinator{
		producer: producer,
		photos:   photos,
		logger:   logger,
	}
}

// SubmitUploaded announces a newly uploaded photo to the resize worker.
func (c *IngestCoordinator) SubmitUploaded(ctx context.Context, photo *types.Photo) error {
	return c.producer.Publish(ctx, types.UploadedPhotoMessage{
		ID:       photo.ID,
		ImageURL: photo.ImageURL,
	})
}

// ApplyResized writes the worker's thumbnails onto the photo record. Used as
// the ResizedConsumer handler; a returned error leaves the message queued for
// redelivery.
func (c *IngestCoordinator) ApplyResized(ctx context.Context, msg types.ResizedPhotoMessage) error {
	if err := c.photos.UpdateThumbnails(ctx, msg.ID, msg.Thumbnails); err != nil {
		return fmt.Errorf("queue: applying thumbnails for photo %s: %w", msg.ID, err)
	}
	return nil
}
