package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/google/uuid"

	"github.com/Lllllllleong/deckscreen/internal/deck"
	"github.com/Lllllllleong/deckscreen/internal/models"
	"github.com/Lllllllleong/deckscreen/internal/services"
)

// maxUploadMemory is how much of a multipart upload is buffered in memory
// before the rest is spooled to disk.
const maxUploadMemory = 32 << 20

type deckAnalyzer interface {
	Process(ctx context.Context, sub models.Submission) (*models.AnalysisResponse, error)
}

var (
	analyzerInstance deckAnalyzer
	once             sync.Once
	initErr          error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleAnalyzeDeck", handleAnalyzeDeck)
}

func main() {}

// handleAnalyzeDeck screens an uploaded deck (multipart "file") or a deck
// behind a URL (JSON body).
func handleAnalyzeDeck(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		analyzerInstance, initErr = services.NewAnalyzer(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Analyzer initialization failed", "error", initErr)
		writeError(w, http.StatusInternalServerError, "failed to initialize service", "")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "only POST is supported", "")
		return
	}

	tempDir, err := os.MkdirTemp("", "deck-*")
	if err != nil {
		slog.Error("Failed to create temp dir", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to prepare upload", "")
		return
	}
	defer os.RemoveAll(tempDir)

	sub, err := readSubmission(r, tempDir)
	if err != nil {
		slog.Warn("Could not read submission", "error", err)
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	sub.ProcessingID = uuid.NewString()

	res, err := analyzerInstance.Process(r.Context(), sub)
	if err != nil {
		// Error is already logged with context in the Process method.
		var ee *deck.ExtractionError
		reason := ""
		if errors.As(err, &ee) {
			reason = ee.Reason
		}
		writeError(w, services.HTTPStatus(err), err.Error(), reason)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err, "processingId", sub.ProcessingID)
	}
}

// readSubmission spools a multipart upload into dir or decodes a JSON URL
// submission. Only URLs are accepted as JSON sources.
func readSubmission(r *http.Request, dir string) (models.Submission, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return readUpload(r, dir)
	}

	var req models.AnalyzeDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return models.Submission{}, fmt.Errorf("could not parse JSON: %w", err)
	}
	if !deck.IsURL(req.Source) {
		return models.Submission{}, errors.New("source must be an http(s) URL; upload files as multipart form data")
	}
	return models.Submission{Source: req.Source, DeclaredFormat: req.DeckFormat}, nil
}

func readUpload(r *http.Request, dir string) (models.Submission, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return models.Submission{}, fmt.Errorf("could not parse multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return models.Submission{}, errors.New("no file part in the request")
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return models.Submission{}, errors.New("no selected file")
	}
	dst := filepath.Join(dir, name)
	out, err := os.Create(dst)
	if err != nil {
		return models.Submission{}, fmt.Errorf("failed to save upload: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		return models.Submission{}, fmt.Errorf("failed to save upload: %w", err)
	}
	if err := out.Close(); err != nil {
		return models.Submission{}, fmt.Errorf("failed to save upload: %w", err)
	}
	return models.Submission{Source: dst, DeclaredFormat: r.FormValue("deck_format")}, nil
}

func writeError(w http.ResponseWriter, status int, msg, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: msg, Reason: reason})
}
