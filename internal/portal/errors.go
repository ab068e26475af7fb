package portal

import "errors"

var (
	// ErrSessionExpired means the portal terminated the authenticated
	// session; the caller should log in again.
	ErrSessionExpired = errors.New("login session expired")

	// ErrInvalidLogin means the portal rejected the supplied credentials.
	ErrInvalidLogin = errors.New("login failed: username or password incorrect")
)

// ParseError is returned when expected data could not be scraped from a
// portal page. Snippet carries the start of the raw text that failed to
// parse, for diagnosing markup changes.
type ParseError struct {
	Message string
	Snippet string
}

func (e *ParseError) Error() string {
	return "portal parse error: " + e.Message
}

func snippet(page string) string {
	const max = 200
	if len(page) > max {
		return page[:max]
	}
	return page
}
