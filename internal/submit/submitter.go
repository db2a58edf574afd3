// Package submit implements the client half of the mailbox protocol: upload
// an input object, poll for the success or error artifact until one appears
// or the deadline elapses, then fetch the outcome. The bucket is the only
// channel to the worker; key naming and existence checks carry all state.
package submit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mdrelay/mdrelay/internal/keys"
	"github.com/mdrelay/mdrelay/internal/store"
)

const (
	DefaultPoll    = 2500 * time.Millisecond
	DefaultTimeout = 15 * time.Minute
)

// Submitter uploads documents and waits for their conversion outcome.
// All fields are read-only configuration; a single Submitter is safe for
// concurrent jobs because every job derives its own keys and paths.
type Submitter struct {
	Store   store.Store
	Scheme  keys.Scheme
	Poll    time.Duration
	Timeout time.Duration
	// OutDir receives downloaded results and error artifacts. Defaults to ".".
	OutDir string
	// Progress, when set, receives the cosmetic stage/spinner output.
	Progress io.Writer
	// RemoveInput deletes the input object after a successful download.
	RemoveInput bool
}

// Validate checks a local file before any network interaction.
func Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return &ValidationError{Path: path, Reason: "not found"}
	}
	if !keys.Supported(path) {
		return &ValidationError{Path: path, Reason: "unsupported extension (must be .pdf or .docx)"}
	}
	return nil
}

// Submit runs one job end to end and returns the local path of the
// downloaded Markdown. Failure modes: *ValidationError before any I/O,
// *ConversionFailedError when the worker reported failure, *TimeoutError
// when neither artifact appeared in time, and raw transport errors from
// upload or probing, which are deliberately not retried here.
func (s *Submitter) Submit(ctx context.Context, path string) (string, error) {
	if err := Validate(path); err != nil {
		return "", err
	}
	poll := s.Poll
	if poll <= 0 {
		poll = DefaultPoll
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	outDir := s.OutDir
	if outDir == "" {
		outDir = "."
	}

	ks := s.Scheme.Derive(path)
	logCtx := slog.With("file", path, "inputKey", ks.Input)

	if err := s.upload(ctx, path, ks.Input); err != nil {
		return "", fmt.Errorf("upload %s: %w", ks.Input, err)
	}
	s.progressf("[+] uploaded %s -> %s\n", path, ks.Input)
	logCtx.Info("Input uploaded, waiting for output.", "successKey", ks.Success, "timeout", timeout)

	start := time.Now()
	deadline := start.Add(timeout)
	const spinner = `|/-\`
	for i := 0; ; i++ {
		// Deadline first, before any I/O, so a slow store cannot
		// silently extend the effective timeout.
		if time.Now().After(deadline) {
			return "", &TimeoutError{SuccessKey: ks.Success, ErrorKey: ks.Error, Timeout: timeout}
		}

		// Success is probed before error on every iteration.
		done, err := s.Store.Head(ctx, ks.Success)
		if err != nil {
			return "", err
		}
		if done {
			break
		}

		failed, err := s.Store.Head(ctx, ks.Error)
		if err != nil {
			return "", err
		}
		if failed {
			return "", s.failFromArtifact(ctx, ks, outDir)
		}

		s.progressf("\r    %c still converting...", spinner[i%len(spinner)])
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(poll):
		}
	}
	s.progressf("\r    conversion complete          \n")

	dest := filepath.Join(outDir, filepath.Base(ks.Success))
	s.progressf("[v] downloading -> %s\n", dest)
	if err := s.download(ctx, ks.Success, dest); err != nil {
		return "", fmt.Errorf("download %s: %w", ks.Success, err)
	}

	if s.RemoveInput {
		if err := s.Store.Delete(ctx, ks.Input); err != nil {
			logCtx.Warn("Failed to remove input object.", "error", err)
		}
	}

	logCtx.Info("Output downloaded.", "path", dest, "elapsed", time.Since(start).Round(time.Millisecond))
	return dest, nil
}

// failFromArtifact downloads the error artifact for local inspection and
// wraps its text. A failed download of the artifact itself still yields a
// ConversionFailedError, just without the text.
func (s *Submitter) failFromArtifact(ctx context.Context, ks keys.Set, outDir string) error {
	local := filepath.Join(outDir, filepath.Base(ks.Error))
	var msg string
	if err := s.download(ctx, ks.Error, local); err != nil {
		slog.Warn("Failed to download error artifact.", "errorKey", ks.Error, "error", err)
		local = ""
	} else if b, err := os.ReadFile(local); err == nil {
		msg = strings.TrimSpace(string(b))
	}
	return &ConversionFailedError{Message: msg, LocalPath: local}
}

func (s *Submitter) upload(ctx context.Context, path, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.Store.Put(ctx, key, keys.ContentType(path), f)
}

func (s *Submitter) download(ctx context.Context, key, dest string) error {
	r, err := s.Store.Get(ctx, key)
	if err != nil {
		return err
	}
	defer r.Close()
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (s *Submitter) progressf(format string, args ...any) {
	if s.Progress != nil {
		fmt.Fprintf(s.Progress, format, args...)
	}
}
