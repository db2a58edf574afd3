// Package store abstracts the object store the conversion protocol runs on.
// The protocol only needs put/get/head/delete plus one guarantee: a "not
// found" outcome that is distinguishable from every other failure, because
// during polling not-found means "still pending" while anything else must
// surface immediately.
package store

import (
	"context"
	"errors"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// ErrNotFound is the store-agnostic "object does not exist" sentinel.
var ErrNotFound = errors.New("object not found")

// Store is one bucket's worth of object operations.
// Head returns (false, nil) for a missing object; any returned error is a
// transport problem the caller must not treat as "not yet".
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Head(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Opener resolves the bucket named in a trigger event to a Store.
type Opener interface {
	Bucket(name string) Store
}

// IsNotFound classifies an error as the store's "object does not exist"
// outcome, as opposed to auth, permission or connectivity failures.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, storage.ErrObjectNotExist) {
		return true
	}
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
