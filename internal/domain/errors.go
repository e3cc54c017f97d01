package domain

import "errors"

// Sentinel errors for the failure modes a fetch-parse cycle can hit. Callers
// match with errors.Is to decide what to tell the client; the wrapped detail
// is for logs.
var (
	// ErrUpstreamUnavailable covers transport failures and non-2xx statuses
	// from a source.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrSecurityBlocked means the telemetry source answered with a challenge
	// or redirect page instead of data, usually because the session warm-up
	// did not take.
	ErrSecurityBlocked = errors.New("blocked by upstream security layer")

	// ErrUnexpectedFormat means the telemetry body had no payload delimiter
	// or the payload did not decode.
	ErrUnexpectedFormat = errors.New("unexpected telemetry format")

	// ErrParseFailure means a feed document was structurally malformed.
	ErrParseFailure = errors.New("malformed feed document")

	// ErrNoDataFound means the document parsed but the expected reading was
	// not in it.
	ErrNoDataFound = errors.New("no data found in feed")

	// ErrStorageFailure wraps read/write failures of the on-disk documents.
	ErrStorageFailure = errors.New("storage failure")
)
