package documents

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("document not found")
	ErrForbidden        = errors.New("forbidden")
	ErrNotReady         = errors.New("document is not ready for queries")
	ErrUpstream         = errors.New("upstream dependency failed")
	ErrAlreadyFinalized = errors.New("document already finalized")
)
