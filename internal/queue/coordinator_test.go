package queue

import (
	"context"
	"errors"
	"testing"

	"snapcircle/internal/types"
)

type mockThumbnailStore struct {
	updates map[string][]types.Thumbnail
	err     error
}

func (m *mockThumbnailStore) UpdateThumbnails(_ context.Context, photoID string, thumbnails []types.Thumbnail) error {
	if m.err != nil {
		return m.err
	}
	if m.updates == nil {
		m.updates = make(map[string][]types.Thumbnail)
	}
	m.updates[photoID] = thumbnails
	return nil
}

func TestSubmitUploaded_PublishesPhotoReference(t *testing.T) {
	sender := &mockSender{}
	c := NewIngestCoordinator(NewUploadProducer(sender, queueURL, nil), &mockThumbnailStore{}, nil)

	err := c.SubmitUploaded(context.Background(), &types.Photo{
		ID:       "photo-1",
		ImageURL: "https://cdn/photo-1.jpg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.inputs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.inputs))
	}
}

func TestApplyResized_WritesThumbnails(t *testing.T) {
	store := &mockThumbnailStore{}
	c := NewIngestCoordinator(NewUploadProducer(&mockSender{}, queueURL, nil), store, nil)

	thumbs := []types.Thumbnail{{Width: 200, Height: 200, URL: "https://cdn/thumb.jpg"}}
	err := c.ApplyResized(context.Background(), types.ResizedPhotoMessage{
		ID:         "photo-1",
		Thumbnails: thumbs,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.updates["photo-1"]) != 1 {
		t.Errorf("updates = %+v", store.updates)
	}
}

// Repository failure propagates so the consumer leaves the message queued.
func TestApplyResized_StoreFailurePropagates(t *testing.T) {
	store := &mockThumbnailStore{err: errors.New("photo not found")}
	c := NewIngestCoordinator(NewUploadProducer(&mockSender{}, queueURL, nil), store, nil)

	if err := c.ApplyResized(context.Background(), types.ResizedPhotoMessage{ID: "photo-1"}); err == nil {
		t.Fatal("expected error, got nil")
	}
}
