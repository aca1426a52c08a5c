package domain

import "errors"

var (
	ErrNotFound                  = errors.New("not found")
	ErrInvalidInput              = errors.New("invalid input")
	ErrTooManyProcessing         = errors.New("too many requests in processing")
	ErrProviderFailure           = errors.New("provider failure")
	ErrUnsupportedModel          = errors.New("unsupported model")
	ErrMalformedProviderResponse = errors.New("malformed provider response")
)
