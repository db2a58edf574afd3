package store

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCS adapts one bucket of a Cloud Storage client to the Store interface.
type GCS struct {
	bucket *storage.BucketHandle
}

func NewGCS(client *storage.Client, bucket string) *GCS {
	return &GCS{bucket: client.Bucket(bucket)}
}

// GCSOpener hands out per-bucket stores from a shared client, so the worker
// can bind whichever bucket the trigger event names.
type GCSOpener struct {
	client *storage.Client
}

func NewGCSOpener(client *storage.Client) *GCSOpener {
	return &GCSOpener{client: client}
}

func (o *GCSOpener) Bucket(name string) Store {
	return &GCS{bucket: o.client.Bucket(name)}
}

func (g *GCS) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", key, err)
	}
	return nil
}

func (g *GCS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return r, nil
}

func (g *GCS) Head(ctx context.Context, key string) (bool, error) {
	_, err := g.bucket.Object(key).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("head %s: %w", key, err)
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	if err := g.bucket.Object(key).Delete(ctx); err != nil && !IsNotFound(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
