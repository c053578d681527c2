package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrMissingCredential = errors.New("missing credential")
	ErrBadExtraction     = errors.New("bad extraction output")
	ErrProviderFailure   = errors.New("provider failure")
)
