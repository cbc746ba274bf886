package model

import "errors"

// Sentinel errors for the ingestion and retrieval failure taxonomy.
// Check with errors.Is; all wrapping preserves these for callers.
var (
	// ErrMalformedRecord indicates extractor output missing required fields
	// (e.g. an empty type). Recovered by skipping the record and counting it.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrStorageUnavailable indicates the graph store could not be reached.
	// Fatal for the in-flight operation; never reported as an empty result.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrExtractionFailed indicates a per-chunk extraction failure or timeout.
	// Recovered by skip-and-continue; counted in the batch summary.
	ErrExtractionFailed = errors.New("extraction failed")
)
