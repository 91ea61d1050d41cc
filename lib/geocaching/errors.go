package geocaching

import (
	"errors"
	"fmt"

	"geoscrape/lib/session"
)

// Error kinds raised by entity extraction. The session-level kinds
// are the session package's sentinel values themselves, not new
// wrappers, so errors.Is matches against either package; callers
// should never define their own copies.
var (
	ErrNotFetched     = errors.New("entity has not been fetched yet")
	ErrExtract        = errors.New("site markup did not match expected shape")
	ErrTooManyResults = errors.New("query exceeded 500 results")

	ErrUsage   = session.ErrUsage
	ErrLogin   = session.ErrLogin
	ErrTimeout = session.ErrTimeout
	ErrHTTP    = session.ErrHTTP
)

func extractError(what string) error {
	return fmt.Errorf("%w: could not extract %s", ErrExtract, what)
}
