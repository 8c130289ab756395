package models

import "errors"

var (
	// ErrNotFound is returned when no place exists for a place id.
	ErrNotFound = errors.New("place not found")

	// ErrModelUnavailable means the classifier artifact was never loaded.
	ErrModelUnavailable = errors.New("classifier model unavailable")

	// ErrSchemaMismatch means the artifact's feature schema disagrees with
	// the feature pipeline. It is a startup error.
	ErrSchemaMismatch = errors.New("feature schema mismatch")

	// ErrInvalidQuery marks search text below the minimum effective length.
	ErrInvalidQuery = errors.New("invalid search query")
)
