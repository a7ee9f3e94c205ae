// Package http provides the authenticated HTTP session shared by all
// bookfetch components.
//
// A Client carries a cookie jar, so the session established by the
// Authenticator is automatically presented on every later request.
// The loan protocol and the page fetch workers all operate through the
// same Client instance, which is safe for concurrent use.
//
// Responses from Fetch and PostForm expose the raw status code because
// several remote endpoints encode protocol state in non-2xx statuses
// (403 signals loan-token expiry, 400 carries the "no loan required"
// answer).
package http
