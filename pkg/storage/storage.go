package storage

import (
	"context"
	"io"
)

// UploadedObject describes a stored object. PublicID is the stable key used
// for later deletion; URL is what gets persisted on the owning record.
type UploadedObject struct {
	URL      string
	PublicID string
}

// ObjectStore abstracts image storage for avatars, product photos and review
// photos. Delete is best-effort; callers log failures rather than abort.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (UploadedObject, error)
	Delete(ctx context.Context, publicID string) error
}
