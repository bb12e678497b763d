package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/deckscreen/internal/gcp"
	"github.com/Lllllllleong/deckscreen/internal/models"
	"github.com/Lllllllleong/deckscreen/internal/services"
	"github.com/Lllllllleong/deckscreen/internal/slidestore"
)

var (
	storeInstance slidestore.ImageStore
	once          sync.Once
	initErr       error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleSlideImage", handleSlideImage)
}

func main() {}

func newStore(ctx context.Context) (slidestore.ImageStore, error) {
	bucket := gcp.GetEnv("SLIDE_IMAGES_BUCKET", "")
	dir := gcp.GetEnv("SLIDE_IMAGES_DIR", "")
	if bucket == "" && dir == "" {
		return nil, fmt.Errorf("SLIDE_IMAGES_BUCKET or SLIDE_IMAGES_DIR environment variable must be set")
	}
	return services.NewImageStore(ctx, bucket, dir)
}

// handleSlideImage serves one stored slide image (?ref=<processing_id>/<n>)
// or lists the stored slides of a run (?processing_id=<id>).
func handleSlideImage(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		storeInstance, initErr = newStore(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Slide image store initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	switch {
	case q.Get("ref") != "":
		serveImage(w, r, q.Get("ref"))
	case q.Get("processing_id") != "":
		listSlides(w, r, q.Get("processing_id"))
	default:
		http.Error(w, "Bad Request: ref or processing_id is required", http.StatusBadRequest)
	}
}

func serveImage(w http.ResponseWriter, r *http.Request, ref string) {
	processingID, slideNumber, err := slidestore.ParseRef(ref)
	if err != nil {
		http.Error(w, "Bad Request: invalid image ref", http.StatusBadRequest)
		return
	}
	png, err := storeInstance.Get(r.Context(), processingID, slideNumber)
	if errors.Is(err, slidestore.ErrNotFound) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to read slide image", "error", err, "ref", ref)
		http.Error(w, "Internal Server Error: failed to read image", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		slog.Error("Failed to write slide image", "error", err, "ref", ref)
	}
}

func listSlides(w http.ResponseWriter, r *http.Request, processingID string) {
	numbers, err := storeInstance.List(r.Context(), processingID)
	if errors.Is(err, slidestore.ErrInvalidRef) {
		http.Error(w, "Bad Request: invalid processing id", http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("Failed to list slide images", "error", err, "processingId", processingID)
		http.Error(w, "Internal Server Error: failed to list images", http.StatusInternalServerError)
		return
	}

	res := models.SlideListResponse{ProcessingID: processingID, Slides: make([]models.SlideInfo, 0, len(numbers))}
	for _, n := range numbers {
		res.Slides = append(res.Slides, models.SlideInfo{SlideNumber: n, ImageRef: slidestore.Ref(processingID, n)})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err, "processingId", processingID)
	}
}
