package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStorage defines minimal object storage operations required by the avatar upload flow.
// It is intentionally small so we can swap MinIO/AWS-S3 implementations without touching business logic.
type ObjectStorage interface {
	// PutObject uploads an object from a streaming reader.
	PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, sizeBytes int64, contentType string) error

	// GetObject opens a reader for an object.
	// Caller must close the returned reader.
	GetObject(ctx context.Context, bucket, objectKey string) (ObjectReader, error)

	// StatObject returns size and content type for an object.
	StatObject(ctx context.Context, bucket, objectKey string) (ObjectStat, error)

	// PresignGet returns a presigned URL for downloading an object via HTTP GET.
	PresignGet(ctx context.Context, bucket, objectKey string, ttl time.Duration) (string, error)

	// RemoveObject deletes an object. Removing a missing object is not an error.
	RemoveObject(ctx context.Context, bucket, objectKey string) error
}

// ObjectReader is a streaming reader for object data.
type ObjectReader interface {
	Read(p []byte) (int, error)
	Close() error
}

// ObjectStat contains object metadata used for validation.
type ObjectStat struct {
	SizeBytes   int64
	ETag        string
	ContentType string
}
