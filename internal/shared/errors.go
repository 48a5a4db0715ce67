package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Credential lifecycle errors
	ErrAuthFailed         = fmt.Errorf("authentication failed")
	ErrAuthExpired        = fmt.Errorf("credential rejected after refresh")
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrIssuanceExhausted  = fmt.Errorf("credential issuance exhausted retries")
	ErrIdentifierNotFound = fmt.Errorf("client identifier not found")
	ErrSlotEmpty          = fmt.Errorf("credential slot empty")
	ErrInvalidTTL         = fmt.Errorf("credential ttl must be positive")

	// API and transport errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrUnexpectedStatus   = fmt.Errorf("%w: unexpected status", ErrAPIRequest)
	ErrMalformedResponse  = fmt.Errorf("malformed response")
	ErrNetworkFailure     = fmt.Errorf("network failure")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrUnexpectedKind     = fmt.Errorf("resource is not a playlist")

	// Loader errors
	ErrGalleryUnavailable = fmt.Errorf("gallery unavailable")
	ErrLoadInFlight       = fmt.Errorf("a load cycle is already running")

	// Input validation errors
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrInvalidPlaylistURL = fmt.Errorf("%w: not a playlist url", ErrInvalidInput)
	ErrMissingArgument    = fmt.Errorf("missing required argument")
	ErrInvalidArgument    = fmt.Errorf("invalid argument")
	ErrInvalidFlag        = fmt.Errorf("invalid flag value")
)
