package common

import "errors"

// Stage-local failure taxonomy. Sentinels are matched with errors.Is; callers
// decide whether a failure is soft (zero contribution for one artifact) or
// fatal (configuration-time, aborts the run before any document is touched).
var (
	ErrConversionFailed  = errors.New("conversion failed")
	ErrDetectionFailed   = errors.New("detection failed")
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrEmptyResponse     = errors.New("empty response")
	ErrMalformedResponse = errors.New("malformed response")
	ErrInvalidRecord     = errors.New("invalid record")
	ErrStoreFailure      = errors.New("store failure")
)
