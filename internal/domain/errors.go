package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrAuthorizationRequired means the refresh token is missing or expired
	// and a human must complete the interactive consent flow before any
	// automated progress is possible.
	ErrAuthorizationRequired = errors.New("authorization required")

	// ErrRefreshFailed is a transient or upstream failure during a token
	// refresh; the caller may retry with backoff.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrAuthentication is a second consecutive 401 after one refresh and
	// retry; fatal for the request that observed it.
	ErrAuthentication = errors.New("authentication failed")

	// ErrUpstream is a 5xx from the marketplace, surfaced unmodified.
	ErrUpstream = errors.New("upstream error")

	ErrRateLimited = errors.New("rate limited")
	ErrLockHeld    = errors.New("lock already held")
	ErrZeroPrice   = errors.New("listing price is zero")
)
