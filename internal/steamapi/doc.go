// Package steamapi is the HTTP client for the remote Steam endpoints the
// authenticator needs: server time, the IAuthenticationService login
// session flow (password and QR), access-token refresh, the mobileconf
// confirmation endpoints, and authenticator enrollment and removal.
//
// The client holds no per-account state; callers pass session cookies and
// signed parameters explicitly. Responses are mapped onto the domain
// error taxonomy here so upper layers never see raw transport errors.
package steamapi
