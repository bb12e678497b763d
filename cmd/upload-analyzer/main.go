package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/deckscreen/internal/services"
)

var (
	uploadAnalyzerInstance *services.UploadAnalyzerFunction
	once                   sync.Once
	initErr                error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("AnalyzeUploadedDeck", analyzeUploadedDeck)
}

// main is required by the Go Functions Framework.
func main() {}

// analyzeUploadedDeck pre-screens a deck finalized in a Cloud Storage bucket.
func analyzeUploadedDeck(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		uploadAnalyzerInstance, initErr = services.NewUploadAnalyzer(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// The report is logged by Process; only failures matter to the trigger.
	if _, err := uploadAnalyzerInstance.Process(ctx, gcsEvent); err != nil {
		return err
	}
	return nil
}
