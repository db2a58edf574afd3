// Package ledger records worker-side job status transitions in Firestore.
// It is observability only: the bucket stays the sole channel between
// submitter and worker, and every ledger failure is survivable.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
)

const (
	StatusConverting = "CONVERTING"
	StatusSucceeded  = "SUCCEEDED"
	StatusFailed     = "FAILED"
)

// Ledger receives one call per worker state transition.
type Ledger interface {
	Converting(ctx context.Context, inputKey string) error
	Succeeded(ctx context.Context, inputKey, outputKey string) error
	Failed(ctx context.Context, inputKey, detail string) error
}

// Nop is the ledger used when no collection is configured.
type Nop struct{}

func (Nop) Converting(context.Context, string) error        { return nil }
func (Nop) Succeeded(context.Context, string, string) error { return nil }
func (Nop) Failed(context.Context, string, string) error    { return nil }

// Firestore keeps one document per input key, merged on every transition so
// duplicate trigger deliveries overwrite rather than duplicate.
type Firestore struct {
	client     *firestore.Client
	collection string
}

func NewFirestore(ctx context.Context, projectID, collection string) (*Firestore, error) {
	if projectID == "" || collection == "" {
		return nil, fmt.Errorf("ledger: projectID and collection must be provided")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return &Firestore{client: client, collection: collection}, nil
}

func (l *Firestore) Close() error {
	return l.client.Close()
}

// docID hashes the input key; object keys contain slashes, which Firestore
// document IDs cannot.
func docID(inputKey string) string {
	sum := sha256.Sum256([]byte(inputKey))
	return hex.EncodeToString(sum[:])
}

func (l *Firestore) set(ctx context.Context, inputKey string, fields map[string]any) error {
	fields["inputKey"] = inputKey
	fields["updatedAt"] = time.Now()
	_, err := l.client.Collection(l.collection).Doc(docID(inputKey)).Set(ctx, fields, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("ledger update for %s: %w", inputKey, err)
	}
	return nil
}

func (l *Firestore) Converting(ctx context.Context, inputKey string) error {
	return l.set(ctx, inputKey, map[string]any{"status": StatusConverting})
}

func (l *Firestore) Succeeded(ctx context.Context, inputKey, outputKey string) error {
	return l.set(ctx, inputKey, map[string]any{"status": StatusSucceeded, "outputKey": outputKey})
}

func (l *Firestore) Failed(ctx context.Context, inputKey, detail string) error {
	return l.set(ctx, inputKey, map[string]any{"status": StatusFailed, "errorDetails": detail})
}
