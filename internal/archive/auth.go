package archive

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	httpclient "bookfetch/internal/http"
	"bookfetch/internal/model"
)

// Login success and failure are recognized by exact markers in the
// response body; anything else is an ambiguous failure.
const (
	loginSuccessMarker = "Successful login"
	loginFailureMarker = "bad_login"
)

// Authenticator establishes an authenticated session with the archive.
//
// The session lives in the shared Client's cookie jar; once Login
// succeeds, every later request through the same Client is
// authenticated.
type Authenticator struct {
	client  *httpclient.Client
	baseURL string
	logf    Logf
}

// NewAuthenticator creates an Authenticator operating against baseURL.
func NewAuthenticator(client *httpclient.Client, baseURL string, logf Logf) *Authenticator {
	return &Authenticator{client: client, baseURL: baseURL, logf: logf}
}

// Login authenticates with the given credentials.
//
// The login page is fetched first so the session cookie is primed,
// then the credentials are posted. Returns ErrInvalidCredentials when
// the remote rejects them, ErrAuthentication for any other failure.
func (a *Authenticator) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", model.ErrValidation)
	}

	loginURL := a.baseURL + "/account/login"

	a.logf.printf("logging in as %s", email)

	if _, err := a.client.Get(ctx, loginURL); err != nil {
		return fmt.Errorf("%w: fetching login page: %v", ErrAuthentication, err)
	}

	form := url.Values{
		"username": {email},
		"password": {password},
		"remember": {"true"},
		"action":   {"login"},
	}

	resp, err := a.client.PostForm(ctx, loginURL, form)
	if err != nil {
		return fmt.Errorf("%w: posting credentials: %v", ErrAuthentication, err)
	}

	body := string(resp.Body)
	switch {
	case strings.Contains(body, loginSuccessMarker):
		a.logf.printf("login succeeded")
		return nil
	case strings.Contains(body, loginFailureMarker):
		return ErrInvalidCredentials
	default:
		return fmt.Errorf("%w: unrecognized login response (HTTP %d)", ErrAuthentication, resp.Status)
	}
}
