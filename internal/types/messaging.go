package types

// Queue names for the photo ingest pipeline. Both queues are durable and
// at-least-once; the resize worker consumes photo-uploaded and publishes to
// photo-resized.
const (
	QueuePhotoUploaded = "photo-uploaded"
	QueuePhotoResized  = "photo-resized"
)

// UploadedPhotoMessage announces a newly uploaded photo to the resize worker.
type UploadedPhotoMessage struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
}

// ResizedPhotoMessage carries the resize worker's output back for application
// onto the photo record.
type ResizedPhotoMessage struct {
	ID         string      `json:"id"`
	Thumbnails []Thumbnail `json:"thumbnails"`
}
