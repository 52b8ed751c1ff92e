// Package auth issues and validates the bearer tokens used by the HTTP API and
// the realtime channel. Authenticator is the single credential check shared by
// both: it consults the revocation store, verifies the JWT and resolves the
// subject to a registered user.
package auth
