package model

import "time"

// LoanGrant represents an active access window for one book.
//
// A grant is issued by the Loan Manager after the three-step borrow
// protocol. An empty Token means the remote reported that the content
// was never gated; such a grant is still valid and still needs to be
// returned exactly once.
type LoanGrant struct {
	// BookID is the identifier the grant is scoped to.
	BookID string

	// Token is the opaque credential appended to page requests.
	// Empty when the content required no loan.
	Token string

	// IssuedAt records when the grant was obtained.
	IssuedAt time.Time
}

// Gated reports whether page requests need the loan token attached.
func (g *LoanGrant) Gated() bool {
	return g != nil && g.Token != ""
}
