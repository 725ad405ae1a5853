package apperrors

import (
	"errors"
)

var (
	ErrMalformedToken = errors.New("token is malformed")
	ErrMissingExpiry  = errors.New("token has no expiry claim")

	ErrMissingBaseURL     = errors.New("backend base url is not configured")
	ErrMalformedResponse  = errors.New("backend response is malformed")
	ErrBackendUnavailable = errors.New("backend is unavailable")

	ErrAccessTokenMissing = errors.New("access token not found")

	ErrUnsupportedLocale = errors.New("locale is not supported")
)
