package objectstore

import (
	"context"
	"io"
)

// ObjectStore defines interactions with S3 or any object storage.
// It is abstract so AWS can be replaced with MinIO, GCP, etc. easily.
type ObjectStore interface {
	UploadFile(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, key string) error
	GetObjectReader(ctx context.Context, key string) (io.ReadCloser, error)

	// PresignGet returns a time-limited download URL for an object.
	PresignGet(ctx context.Context, key string) (string, error)
}
