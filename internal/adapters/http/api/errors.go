package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest         = errors.New("bad request")
	ErrMissingAlias       = errors.New("missing alias")
	ErrMissingDisplayName = errors.New("missing displayName")
	ErrMissingScore       = errors.New("missing score")
	ErrMissingDocID       = errors.New("missing docId")
	ErrMissingValue       = errors.New("missing value")
	ErrValueNotFinite     = errors.New("value must be finite")
)
