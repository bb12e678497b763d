package gcp

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/slides/v1"
)

// NewSlidesService creates a read-only Slides API client. With an API key
// only publicly shared presentations are readable; without one the default
// service account credentials are used.
func NewSlidesService(ctx context.Context, apiKey string) (*slides.Service, error) {
	opts := []option.ClientOption{option.WithScopes(slides.PresentationsReadonlyScope)}
	if apiKey != "" {
		opts = []option.ClientOption{option.WithAPIKey(apiKey)}
	}
	svc, err := slides.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("slides.NewService: %w", err)
	}
	return svc, nil
}
