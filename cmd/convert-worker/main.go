package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/mdrelay/mdrelay/internal/worker"
)

var (
	converterInstance *worker.Converter
	once              sync.Once
	initErr           error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the CloudEvent function. The framework routes storage
	// object-finalized events here.
	functions.CloudEvent("ConvertDocument", convertDocument)
}

// main is required by the Go Functions Framework.
func main() {}

// convertDocument is the Cloud Function entry point. Processing failures are
// signaled through the error artifact, never through the return value: a
// non-nil return would re-trigger delivery and still leave the submitter
// without a signal. Only an unusable runtime errors the invocation.
func convertDocument(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		converterInstance, initErr = worker.NewFromEnv(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization.", "error", initErr)
		return initErr
	}

	var ev worker.ObjectEvent
	if err := json.Unmarshal(e.Data(), &ev); err != nil {
		slog.Error("Failed to unmarshal event data.", "error", err, "data", string(e.Data()))
		ev = worker.ObjectEvent{} // Process reports "Invalid event format".
	}

	res := converterInstance.Process(ctx, ev)
	slog.Info("Invocation finished.",
		"ok", res.OK,
		"skipped", res.Skipped,
		"inputKey", res.InputKey,
		"outputKey", res.OutputKey,
		"error", res.Error,
	)
	return nil
}
