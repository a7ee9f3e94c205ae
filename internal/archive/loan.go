package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	httpclient "bookfetch/internal/http"
	"bookfetch/internal/model"
)

// notNeededMessage is the exact error string the remote uses to say a
// book requires no loan. Any other 400 from browse_book is fatal.
const notNeededMessage = "This book is not available to borrow at this time. Please try again later."

// LoanManager drives the remote grant protocol for access-gated books.
//
// Borrowing is a strict three-step sequence:
//
//	grant_access -> browse_book -> create_token
//
// grant_access failures are logged and tolerated (some providers skip
// that step). browse_book may short-circuit with a recognized "no loan
// required" answer, which yields a valid tokenless grant. create_token
// must produce a token, otherwise the borrow fails.
//
// At most one grant per book is outstanding at a time. Concurrent
// fetch workers that observe token expiry share a single re-borrow
// round trip through Refresh.
type LoanManager struct {
	client  *httpclient.Client
	baseURL string
	logf    Logf

	group singleflight.Group

	mu      sync.Mutex
	current *model.LoanGrant
}

// NewLoanManager creates a LoanManager operating against baseURL.
func NewLoanManager(client *httpclient.Client, baseURL string, logf Logf) *LoanManager {
	return &LoanManager{client: client, baseURL: baseURL, logf: logf}
}

func (lm *LoanManager) loanURL() string {
	return lm.baseURL + "/services/loans/loan/"
}

func (lm *LoanManager) grantURL() string {
	return lm.loanURL() + "searchInside.php"
}

// Borrow obtains an access grant for one book, replacing any grant the
// manager currently holds.
func (lm *LoanManager) Borrow(ctx context.Context, bookID string) (*model.LoanGrant, error) {
	lm.logf.printf("borrowing %s", bookID)

	form := url.Values{
		"action":     {"grant_access"},
		"identifier": {bookID},
	}

	// The grant step is best-effort: some providers answer page
	// requests without it.
	if resp, err := lm.client.PostForm(ctx, lm.grantURL(), form); err != nil {
		lm.logf.printf("grant_access for %s: %v", bookID, err)
	} else if resp.Status >= 400 {
		lm.logf.printf("grant_access for %s: HTTP %d", bookID, resp.Status)
	}

	form.Set("action", "browse_book")
	resp, err := lm.client.PostForm(ctx, lm.loanURL(), form)
	if err != nil {
		return nil, fmt.Errorf("%w: browse_book for %s: %v", ErrLoan, bookID, err)
	}

	if resp.Status == 400 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(resp.Body, &payload)

		if payload.Error == notNeededMessage {
			lm.logf.printf("%s does not need to be borrowed", bookID)
			grant := &model.LoanGrant{BookID: bookID, IssuedAt: time.Now()}
			lm.setCurrent(grant)
			return grant, nil
		}
		return nil, fmt.Errorf("%w: cannot borrow %s: %s", ErrLoan, bookID, payload.Error)
	}
	if resp.Status >= 400 {
		return nil, fmt.Errorf("%w: browse_book for %s: HTTP %d", ErrLoan, bookID, resp.Status)
	}

	form.Set("action", "create_token")
	resp, err = lm.client.PostForm(ctx, lm.loanURL(), form)
	if err != nil {
		return nil, fmt.Errorf("%w: create_token for %s: %v", ErrLoan, bookID, err)
	}
	if resp.Status >= 400 || !strings.Contains(string(resp.Body), "token") {
		return nil, fmt.Errorf("%w: no token issued for %s; you may not have permission to borrow it", ErrLoan, bookID)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil || payload.Token == "" {
		return nil, fmt.Errorf("%w: malformed token response for %s", ErrLoan, bookID)
	}

	lm.logf.printf("borrowed %s", bookID)

	grant := &model.LoanGrant{BookID: bookID, Token: payload.Token, IssuedAt: time.Now()}
	lm.setCurrent(grant)
	return grant, nil
}

// Refresh re-borrows after a token expiry signal. Concurrent callers
// for the same book are collapsed into one remote round trip, each
// receiving the same fresh grant.
func (lm *LoanManager) Refresh(ctx context.Context, bookID string) (*model.LoanGrant, error) {
	v, err, _ := lm.group.Do(bookID, func() (any, error) {
		return lm.Borrow(ctx, bookID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.LoanGrant), nil
}

// Current returns the grant the manager holds, or nil. Fetch workers
// read the token from here at send time, so a mid-flight refresh is
// picked up by every request dispatched afterwards.
func (lm *LoanManager) Current() *model.LoanGrant {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.current
}

func (lm *LoanManager) setCurrent(grant *model.LoanGrant) {
	lm.mu.Lock()
	lm.current = grant
	lm.mu.Unlock()
}

// Return releases the loan. Callers in the pipeline treat a failed
// return as a warning, never overriding a successful acquisition; a
// double return is tolerated the same way.
func (lm *LoanManager) Return(ctx context.Context, bookID string) error {
	lm.logf.printf("returning %s", bookID)

	form := url.Values{
		"action":     {"return_loan"},
		"identifier": {bookID},
	}

	resp, err := lm.client.PostForm(ctx, lm.loanURL(), form)
	if err != nil {
		return fmt.Errorf("%w: return_loan for %s: %v", ErrLoan, bookID, err)
	}

	var payload struct {
		Success bool `json:"success"`
	}
	if resp.Status != 200 || json.Unmarshal(resp.Body, &payload) != nil || !payload.Success {
		return fmt.Errorf("%w: return_loan for %s: HTTP %d %s", ErrLoan, bookID, resp.Status, resp.Body)
	}

	lm.setCurrent(nil)
	return nil
}
