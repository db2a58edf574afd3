// Package worker drives one arriving input object to exactly one terminal
// artifact: the Markdown result at the success key, or a diagnostic at the
// error key. Nothing may escape the handler boundary as a raised error —
// an unsignaled failure would leave the submitter polling forever.
package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/mdrelay/mdrelay/internal/config"
	"github.com/mdrelay/mdrelay/internal/convert"
	"github.com/mdrelay/mdrelay/internal/keys"
	"github.com/mdrelay/mdrelay/internal/ledger"
	"github.com/mdrelay/mdrelay/internal/store"
)

// ObjectEvent is the storage notification payload delivered by the trigger.
type ObjectEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// Result reports how an invocation terminated. When OK is false, Error names
// the failing stage and Detail carries the diagnostic that was written to
// the error artifact (best-effort).
type Result struct {
	OK        bool   `json:"ok"`
	Skipped   bool   `json:"skipped,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
	Detail    string `json:"detail,omitempty"`
	InputKey  string `json:"inputKey,omitempty"`
	OutputKey string `json:"outputKey,omitempty"`
}

// Converter holds the worker's collaborators. All fields are read-only after
// construction; invocations share nothing else.
type Converter struct {
	Stores store.Opener
	Engine convert.Engine
	Ledger ledger.Ledger
	Scheme keys.Scheme
}

// NewFromEnv builds the production converter from the environment.
func NewFromEnv(ctx context.Context) (*Converter, error) {
	projectID := config.Env("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	engine, err := convert.NewGeminiEngine(ctx, convert.GeminiConfig{
		ProjectID: projectID,
		Region:    config.Env("VERTEX_AI_REGION", "us-central1"),
		Model:     config.Env("MODEL_NAME", "gemini-1.5-pro"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create conversion engine: %w", err)
	}

	var led ledger.Ledger = ledger.Nop{}
	if coll := config.Env("LEDGER_COLLECTION", ""); coll != "" {
		fs, err := ledger.NewFirestore(ctx, projectID, coll)
		if err != nil {
			return nil, fmt.Errorf("failed to create ledger: %w", err)
		}
		led = fs
	}

	c := &Converter{
		Stores: store.NewGCSOpener(storageClient),
		Engine: engine,
		Ledger: led,
		Scheme: keys.Scheme{
			InputPrefix:  config.Env("INPUT_PREFIX", keys.DefaultInputPrefix),
			OutputPrefix: config.Env("OUTPUT_PREFIX", keys.DefaultOutputPrefix),
		},
	}
	slog.Info("Converter initialized.", "inputPrefix", c.Scheme.InputPrefix, "outputPrefix", c.Scheme.OutputPrefix)
	return c, nil
}

func (c *Converter) ledger() ledger.Ledger {
	if c.Ledger == nil {
		return ledger.Nop{}
	}
	return c.Ledger
}

// Process runs the state machine for one arriving object:
// Received -> Downloading -> Converting -> WritingSuccess|WritingError -> Done.
// It writes at most one artifact and never returns a raised error; every
// failure is folded into the Result after the error artifact is written.
func (c *Converter) Process(ctx context.Context, e ObjectEvent) Result {
	if e.Bucket == "" || e.Name == "" {
		slog.Error("Invalid event format.", "bucket", e.Bucket, "object", e.Name)
		return Result{Error: "Invalid event format"}
	}
	logCtx := slog.With("bucket", e.Bucket, "object", e.Name)

	if !c.Scheme.InInput(e.Name) {
		logCtx.Info("Skipping object outside input prefix.")
		return Result{OK: true, Skipped: true, Reason: "not under " + c.Scheme.InputPrefix, InputKey: e.Name}
	}
	if !keys.Supported(e.Name) {
		logCtx.Info("Skipping unsupported file type.")
		return Result{OK: true, Skipped: true, Reason: "unsupported extension", InputKey: e.Name}
	}

	ks := c.Scheme.Derive(e.Name)
	bucket := c.Stores.Bucket(e.Bucket)

	// Completion-marker check: the success artifact doubles as the dedupe
	// marker for at-least-once trigger delivery. A duplicate that races
	// past this check just overwrites, which is safe.
	done, err := bucket.Head(ctx, ks.Success)
	if err != nil {
		logCtx.Warn("Completion check failed, converting anyway.", "error", err)
	} else if done {
		logCtx.Info("Output already present, duplicate delivery.", "outputKey", ks.Success)
		return Result{OK: true, Skipped: true, Reason: "already converted", InputKey: e.Name, OutputKey: ks.Success}
	}

	if err := c.ledger().Converting(ctx, e.Name); err != nil {
		logCtx.Warn("Ledger update failed.", "status", ledger.StatusConverting, "error", err)
	}

	tempDir, err := os.MkdirTemp("", "convert-worker-*")
	if err != nil {
		return c.fail(ctx, logCtx, bucket, ks, e.Name, "Temp dir creation failed", err)
	}
	defer os.RemoveAll(tempDir)

	localIn := filepath.Join(tempDir, keys.SafeBase(e.Name))
	if err := download(ctx, bucket, e.Name, localIn); err != nil {
		return c.fail(ctx, logCtx, bucket, ks, e.Name, "Download failed", err)
	}
	logCtx.Info("Downloaded input.", "path", localIn)

	md, err := c.Engine.Convert(ctx, localIn)
	if err != nil {
		return c.fail(ctx, logCtx, bucket, ks, e.Name, "Conversion failed", err)
	}
	if md == "" {
		return c.fail(ctx, logCtx, bucket, ks, e.Name, "Conversion failed", fmt.Errorf("engine produced no output"))
	}

	if err := bucket.Put(ctx, ks.Success, "text/markdown; charset=utf-8", strings.NewReader(md)); err != nil {
		return c.fail(ctx, logCtx, bucket, ks, e.Name, "Upload failed", err)
	}
	if err := c.ledger().Succeeded(ctx, e.Name, ks.Success); err != nil {
		logCtx.Warn("Ledger update failed.", "status", ledger.StatusSucceeded, "error", err)
	}
	logCtx.Info("Conversion complete.", "outputKey", ks.Success)
	return Result{OK: true, InputKey: e.Name, OutputKey: ks.Success}
}

// fail writes the diagnostic to the error artifact and folds the failure
// into a Result. The artifact write itself is best-effort: there is no
// further fallback channel, so a write failure is logged and the submitter
// will eventually time out.
func (c *Converter) fail(ctx context.Context, logCtx *slog.Logger, bucket store.Store, ks keys.Set, inputKey, stage string, cause error) Result {
	detail := fmt.Sprintf("%s: %v", stage, cause)
	logCtx.Error(stage, "error", cause)
	if err := bucket.Put(ctx, ks.Error, "text/plain; charset=utf-8", strings.NewReader(detail)); err != nil {
		logCtx.Error("Failed to write error artifact.", "errorKey", ks.Error, "error", err)
	}
	if err := c.ledger().Failed(ctx, inputKey, detail); err != nil {
		logCtx.Warn("Ledger update failed.", "status", ledger.StatusFailed, "error", err)
	}
	return Result{Error: stage, Detail: detail, InputKey: inputKey}
}

func download(ctx context.Context, s store.Store, key, destPath string) error {
	r, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	defer r.Close()
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file at %s: %w", destPath, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to copy %s to local file: %w", key, err)
	}
	return nil
}
