// Package storage holds the object store client used for film assets and
// thumbnails.  Media never touches the local filesystem: uploads stream
// straight from the multipart reader into the bucket and playback streams
// the object back through the entitlement gate.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/filmila/filmila/internal/config"
)

// Store abstracts the media bucket so handlers can be tested with a fake.
type Store interface {
	// Put streams an object into the bucket under key.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get opens an object for reading.  The caller must close the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Remove deletes an object; used to clean up after a failed film insert.
	Remove(ctx context.Context, key string) error
}

// MediaStore is the MinIO/S3 implementation of Store.
type MediaStore struct {
	client *minio.Client
	bucket string
}

// NewMediaStore connects to the object store and ensures the media bucket
// exists.  Called once at process start.
func NewMediaStore(ctx context.Context, cfg config.Config) (*MediaStore, error) {
	client, err := minio.New(cfg.MediaEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MediaAccessKey, cfg.MediaSecretKey, ""),
		Secure: cfg.MediaUseSSL,
		Region: cfg.MediaRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("media store: connect: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.MediaBucket)
	if err != nil {
		return nil, fmt.Errorf("media store: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MediaBucket, minio.MakeBucketOptions{Region: cfg.MediaRegion}); err != nil {
			return nil, fmt.Errorf("media store: create bucket: %w", err)
		}
	}
	return &MediaStore{client: client, bucket: cfg.MediaBucket}, nil
}

func (s *MediaStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return fmt.Errorf("media store: put %s: %w", key, err)
	}
	return nil
}

func (s *MediaStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("media store: get %s: %w", key, err)
	}
	return obj, nil
}

func (s *MediaStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("media store: remove %s: %w", key, err)
	}
	return nil
}

// NewObjectKey builds a collision-free key under the given prefix, keeping
// the original file extension so content types survive a round trip.
func NewObjectKey(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return prefix + "/" + uuid.NewString() + ext
}

// ContentTypeFor maps a file name to a MIME type for storage and playback.
func ContentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
