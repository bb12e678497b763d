// Package slidestore persists rendered slide images and serves them back by
// reference. A reference is "<processing_id>/<slide_number>".
package slidestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotFound is returned when no image is stored under a reference.
var ErrNotFound = errors.New("slide image not found")

// ErrInvalidRef is returned for references that do not parse.
var ErrInvalidRef = errors.New("invalid slide image reference")

// ImageStore keeps slide PNGs keyed by processing id and 1-based slide
// number. Put is idempotent: storing the same image twice is the same as
// storing it once, and a second image for the same key replaces the first.
type ImageStore interface {
	Put(ctx context.Context, processingID string, slideNumber int, png []byte) error
	Get(ctx context.Context, processingID string, slideNumber int) ([]byte, error)
	// List returns the stored slide numbers for a processing id in ascending
	// order.
	List(ctx context.Context, processingID string) ([]int, error)
}

// Ref builds the public reference for a stored slide image.
func Ref(processingID string, slideNumber int) string {
	return fmt.Sprintf("%s/%d", processingID, slideNumber)
}

// ParseRef splits a reference produced by Ref.
func ParseRef(ref string) (string, int, error) {
	i := strings.LastIndex(ref, "/")
	if i <= 0 || i == len(ref)-1 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	pid := ref[:i]
	if err := checkProcessingID(pid); err != nil {
		return "", 0, err
	}
	n, err := strconv.Atoi(ref[i+1:])
	if err != nil || n < 1 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return pid, n, nil
}

// checkProcessingID rejects ids that could escape their key prefix.
func checkProcessingID(pid string) error {
	if pid == "" || pid == "." || pid == ".." || strings.ContainsAny(pid, `/\`) {
		return fmt.Errorf("%w: bad processing id %q", ErrInvalidRef, pid)
	}
	return nil
}

func objectName(processingID string, slideNumber int) string {
	return fmt.Sprintf("%s/slide_%d.png", processingID, slideNumber)
}

// slideNumberFromName is the inverse of objectName's final element.
func slideNumberFromName(name string) (int, bool) {
	base := name[strings.LastIndex(name, "/")+1:]
	if !strings.HasPrefix(base, "slide_") || !strings.HasSuffix(base, ".png") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(base, "slide_"), ".png"))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
