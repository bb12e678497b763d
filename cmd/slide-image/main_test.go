package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/deckscreen/internal/models"
	"github.com/Lllllllleong/deckscreen/internal/slidestore"
)

func seededStore(t *testing.T) *slidestore.MemoryStore {
	t.Helper()
	store := slidestore.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "run-1", 2, []byte("png-2")))
	require.NoError(t, store.Put(context.Background(), "run-1", 1, []byte("png-1")))
	once.Do(func() {})
	storeInstance, initErr = store, nil
	return store
}

func get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handleSlideImage(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServeImage(t *testing.T) {
	seededStore(t)

	rec := get("/?ref=run-1/2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png-2", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, get("/?ref=run-1/3").Code)
	assert.Equal(t, http.StatusBadRequest, get("/?ref=run-1/zero").Code)
	assert.Equal(t, http.StatusBadRequest, get("/?ref=../1").Code)
	assert.Equal(t, http.StatusBadRequest, get("/").Code)
}

func TestListSlides(t *testing.T) {
	seededStore(t)

	rec := get("/?processing_id=run-1")
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.SlideListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, []models.SlideInfo{
		{SlideNumber: 1, ImageRef: "run-1/1"},
		{SlideNumber: 2, ImageRef: "run-1/2"},
	}, res.Slides)

	rec = get("/?processing_id=unknown")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Empty(t, res.Slides)
}
