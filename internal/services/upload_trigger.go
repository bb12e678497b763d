package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/Lllllllleong/deckscreen/internal/deck"
	"github.com/Lllllllleong/deckscreen/internal/gcp"
	"github.com/Lllllllleong/deckscreen/internal/models"
)

// GCSEvent is the payload of a Cloud Storage object-finalized event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// DeckAnalyzer is the pipeline entry point the trigger delegates to.
type DeckAnalyzer interface {
	Process(ctx context.Context, sub models.Submission) (*models.AnalysisResponse, error)
}

// ObjectDownloader fetches a GCS object to a local path.
type ObjectDownloader func(ctx context.Context, bucket, object, destPath string) (int64, error)

// UploadAnalyzerFunction pre-screens decks as they land in a bucket.
type UploadAnalyzerFunction struct {
	analyzer DeckAnalyzer
	download ObjectDownloader
}

// NewUploadAnalyzer creates the trigger with a GCS-backed downloader.
func NewUploadAnalyzer(ctx context.Context) (*UploadAnalyzerFunction, error) {
	analyzer, err := NewAnalyzer(ctx)
	if err != nil {
		return nil, err
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	download := func(ctx context.Context, bucket, object, destPath string) (int64, error) {
		return gcp.DownloadObject(ctx, storageClient, bucket, object, destPath)
	}
	return NewUploadAnalyzerWith(analyzer, download), nil
}

func NewUploadAnalyzerWith(analyzer DeckAnalyzer, download ObjectDownloader) *UploadAnalyzerFunction {
	return &UploadAnalyzerFunction{analyzer: analyzer, download: download}
}

// Process downloads the uploaded deck and screens it. Objects that are not
// decks are skipped. Extraction failures are logged but not returned, so the
// event is not redelivered for a deck that will never parse.
func (f *UploadAnalyzerFunction) Process(ctx context.Context, e GCSEvent) (*models.AnalysisResponse, error) {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new GCS object.")

	if strings.HasSuffix(e.Name, "/") || deck.Resolve(e.Name) == models.FormatUnsupported {
		logCtx.Info("Object is not a deck. Skipping.")
		return nil, nil
	}

	tempDir, err := os.MkdirTemp("", "deck-upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	localPath := filepath.Join(tempDir, path.Base(e.Name))
	size, err := f.download(ctx, e.Bucket, e.Name, localPath)
	if err != nil {
		logCtx.Error("Failed to download deck", "error", err)
		return nil, err
	}

	sub := models.Submission{Source: localPath, ProcessingID: uuid.NewString()}
	logCtx = logCtx.With("processingId", sub.ProcessingID, "bytes", size)

	resp, err := f.analyzer.Process(ctx, sub)
	if err != nil {
		if _, ok := asExtractionError(err); ok {
			logCtx.Warn("Deck could not be extracted. Not retrying.", "error", err)
			return nil, nil
		}
		logCtx.Error("Deck analysis failed", "error", err)
		return nil, err
	}

	logCtx.Info("Deck pre-screen complete.",
		"submissionAllowed", resp.Status.SubmissionAllowed,
		"allTestsPassed", resp.Status.AllTestsPassed,
		"nextSteps", resp.Status.NextSteps,
	)
	return resp, nil
}
