package vendorclient

import "errors"

// Error kinds, mirroring the conceptual categories of spec.md §7.
// Callers can branch on these with errors.Is/errors.As rather than
// string-matching vendor error text.
var (
	// ErrNetworkUnreachable means the vendor host could not be reached
	// at the transport level (P1).
	ErrNetworkUnreachable = errors.New("vendor host unreachable")

	// ErrAuthenticationFailed means both the primary and fallback
	// credential sets were rejected (P2).
	ErrAuthenticationFailed = errors.New("authentication failed with all credential sets")

	// ErrTokenExpired names the 401 case. doEnvelope handles a 401 by
	// re-logging in and retrying once directly, and does not return this
	// error; a 401 after the refresh is reported as ErrTransient.
	ErrTokenExpired = errors.New("vendor session token expired")

	// ErrTransient covers 5xx responses, network I/O errors, body read
	// failures, and a failed token refresh — retryable up to max_retries.
	ErrTransient = errors.New("transient vendor API error")

	// ErrTerminal covers 404 and non-"000" result codes — no retry,
	// treated as "no data" for the affected terminal/status.
	ErrTerminal = errors.New("vendor reports no data for this request")

	// ErrMalformedResponse means a 200 response body could not be decoded
	// as a vendor envelope. The decode failure is retried like a
	// transient error; this kind is returned once the retries are used up.
	ErrMalformedResponse = errors.New("malformed vendor response")
)

// APIError wraps a vendor error kind with enough context for logging
// without leaking it into control flow — callers still match on the
// wrapped sentinel via errors.Is.
type APIError struct {
	Endpoint string
	Status   int
	Kind     error
	Detail   string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return e.Endpoint + ": " + e.Kind.Error()
	}
	return e.Endpoint + ": " + e.Kind.Error() + ": " + e.Detail
}

func (e *APIError) Unwrap() error { return e.Kind }
