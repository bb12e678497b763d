package models

// These structs define the JSON payloads exchanged with submission portals
// by the HTTP functions.

// AnalyzeDeckRequest is the JSON body accepted by the analyze-deck function
// for decks that live behind a URL. Uploaded files use multipart form fields
// with the same names instead.
type AnalyzeDeckRequest struct {
	Source     string `json:"source"`
	DeckFormat string `json:"deck_format"`
}

// SlideListResponse lists the stored slide images for one processing run.
type SlideListResponse struct {
	ProcessingID string      `json:"processing_id"`
	Slides       []SlideInfo `json:"slides"`
}

// ErrorResponse is written by the HTTP functions when a request fails.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}
