/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package llm

import "fmt"

// AuthError means the provider rejected the credential (or none was set).
// Never retried.
type AuthError struct {
	Provider string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %s", e.Provider, e.Message)
}

// RateLimitError means the provider returned a rate-limit response.
// Retryable with backoff.
type RateLimitError struct {
	Provider string
	Message  string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited: %s", e.Provider, e.Message)
}

// UnavailableError means the provider could not be reached or answered
// with a server error or timeout. Retryable with backoff.
type UnavailableError struct {
	Provider string
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: provider unavailable: %v", e.Provider, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// MalformedResponseError means the provider answered but no single SQL
// statement could be extracted. Never retried.
type MalformedResponseError struct {
	Provider string
	Raw      string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: no SQL statement found in response", e.Provider)
}
