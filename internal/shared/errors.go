package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Provider errors. Both are absorbed at the adapter boundary.
	ErrProviderUnavailable = fmt.Errorf("provider unavailable")
	ErrMalformedResponse   = fmt.Errorf("malformed provider response")

	// Resolution and playback errors
	ErrResolutionFailed   = fmt.Errorf("stream resolution failed")
	ErrPlaybackFailed     = fmt.Errorf("playback failed")
	ErrTrackNotInSource   = fmt.Errorf("track not in source list")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Library and registry errors
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrReservedPlaylist = fmt.Errorf("playlist is reserved")
	ErrEndpointNotFound = fmt.Errorf("endpoint not found")
	ErrBuiltinEndpoint  = fmt.Errorf("built-in endpoints cannot be removed")
	ErrTrackNotFound    = fmt.Errorf("track not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
