package archive

import (
	"errors"
	"fmt"
)

// Sentinel errors for the remote archive protocols. Callers classify
// failures with errors.Is; every wrapped error keeps its original
// cause for diagnostics.
var (
	// ErrAuthentication covers any failure to establish a session.
	ErrAuthentication = errors.New("authentication failed")

	// ErrInvalidCredentials is the rejected-credentials case. It wraps
	// ErrAuthentication, so errors.Is(err, ErrAuthentication) also
	// holds.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrAuthentication)

	// ErrResolution means neither a page manifest nor a direct
	// artifact could be found for a locator.
	ErrResolution = errors.New("book could not be resolved")

	// ErrLoan marks a borrow or return protocol failure.
	ErrLoan = errors.New("loan protocol failure")

	// ErrSearch marks a failed catalog search.
	ErrSearch = errors.New("search failed")
)

// Logf receives diagnostic messages from archive components. A nil
// Logf discards them.
type Logf func(format string, args ...any)

func (l Logf) printf(format string, args ...any) {
	if l != nil {
		l(format, args...)
	}
}
