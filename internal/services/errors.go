package services

import (
	"errors"
	"net/http"

	"github.com/Lllllllleong/deckscreen/internal/deck"
)

func asExtractionError(err error) (*deck.ExtractionError, bool) {
	var ee *deck.ExtractionError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// HTTPStatus maps a pipeline error to the status code the HTTP functions
// return for it.
func HTTPStatus(err error) int {
	if ee, ok := asExtractionError(err); ok {
		switch ee.Reason {
		case deck.ReasonInvalidSource:
			return http.StatusBadRequest
		case deck.ReasonNotConfigured:
			return http.StatusInternalServerError
		}
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
