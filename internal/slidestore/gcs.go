package slidestore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/deckscreen/internal/gcp"
)

// GCSStore keeps slide images in a Cloud Storage bucket.
type GCSStore struct {
	bucket *storage.BucketHandle
	name   string
}

func NewGCSStore(client *storage.Client, bucket string) *GCSStore {
	return &GCSStore{bucket: client.Bucket(bucket), name: bucket}
}

func (s *GCSStore) Put(ctx context.Context, processingID string, slideNumber int, png []byte) error {
	if err := checkProcessingID(processingID); err != nil {
		return err
	}
	obj := objectName(processingID, slideNumber)
	if err := gcp.WriteObject(ctx, s.bucket, obj, "image/png", png); err != nil {
		return err
	}
	slog.Debug("Stored slide image.", "gcsBucket", s.name, "gcsObject", obj, "bytes", len(png))
	return nil
}

func (s *GCSStore) Get(ctx context.Context, processingID string, slideNumber int) ([]byte, error) {
	if err := checkProcessingID(processingID); err != nil {
		return nil, err
	}
	data, err := gcp.ReadObject(ctx, s.bucket, objectName(processingID, slideNumber))
	if gcp.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, Ref(processingID, slideNumber))
	}
	return data, err
}

func (s *GCSStore) List(ctx context.Context, processingID string) ([]int, error) {
	if err := checkProcessingID(processingID); err != nil {
		return nil, err
	}
	names, err := gcp.ListObjects(ctx, s.bucket, processingID+"/")
	if err != nil {
		return nil, err
	}
	nums := make([]int, 0, len(names))
	for _, name := range names {
		if n, ok := slideNumberFromName(name); ok {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums, nil
}
