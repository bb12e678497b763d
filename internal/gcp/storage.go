package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// WriteObject stores content under objectName, replacing whatever is there.
// Repeating the write with the same content leaves the bucket unchanged.
func WriteObject(ctx context.Context, bucket *storage.BucketHandle, objectName, contentType string, content []byte) error {
	writer := bucket.Object(objectName).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write to GCS object %s: %w", objectName, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS write for %s: %w", objectName, err)
	}
	return nil
}

// ReadObject returns the full content of objectName. A missing object yields
// an error wrapping storage.ErrObjectNotExist.
func ReadObject(ctx context.Context, bucket *storage.BucketHandle, objectName string) ([]byte, error) {
	reader, err := bucket.Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object %s: %w", objectName, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object %s: %w", objectName, err)
	}
	return data, nil
}

// ListObjects returns the names of all objects under prefix.
func ListObjects(ctx context.Context, bucket *storage.BucketHandle, prefix string) ([]string, error) {
	var names []string
	it := bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %q: %w", prefix, err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

// DownloadObject streams gs://bucket/object into destPath.
func DownloadObject(ctx context.Context, client *storage.Client, bucket, object, destPath string) (int64, error) {
	gcsReader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer gcsReader.Close()

	localFile, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file at %s: %w", destPath, err)
	}
	defer localFile.Close()

	n, err := io.Copy(localFile, gcsReader)
	if err != nil {
		return n, fmt.Errorf("failed to copy GCS object to local file: %w", err)
	}
	return n, nil
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return true
	}
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// IsTransient reports whether a Google API error is worth retrying.
func IsTransient(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	switch gerr.Code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
